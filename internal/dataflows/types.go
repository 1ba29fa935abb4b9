package dataflows

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/chimeralabs/chimera/config"
)

// Config is an alias for the main application config
type Config = config.Config

// MarketData represents stock price data
type MarketData struct {
	Symbol    string          `json:"symbol"`
	Date      time.Time       `json:"date"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	AdjClose  decimal.Decimal `json:"adj_close"`
	Volume    int64           `json:"volume"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewsArticle represents a news article
type NewsArticle struct {
	Title       string            `json:"title"`
	Content     string            `json:"content"`
	URL         string            `json:"url"`
	Source      string            `json:"source"`
	PublishedAt time.Time         `json:"published_at"`
	Keywords    []string          `json:"keywords,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// CompanyProfile represents basic company information
type CompanyProfile struct {
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	Industry     string          `json:"industry"`
	Exchange     string          `json:"exchange"`
	Currency     string          `json:"currency"`
	Country      string          `json:"country"`
	MarketCap    decimal.Decimal `json:"market_cap"`
	SharesOut    decimal.Decimal `json:"shares_outstanding"`
	IPODate      string          `json:"ipo_date"`
	WebURL       string          `json:"web_url"`
}

// KeyMetrics represents fundamental financial metrics. Nil fields were not
// reported for the company.
type KeyMetrics struct {
	Symbol       string   `json:"symbol"`
	PERatio      *float64 `json:"pe_ratio,omitempty"`
	EPS          *float64 `json:"eps,omitempty"`
	RevenuePerSh *float64 `json:"revenue_per_share,omitempty"`
	NetMargin    *float64 `json:"net_margin,omitempty"`
	DebtEquity   *float64 `json:"debt_to_equity,omitempty"`
	CurrentRatio *float64 `json:"current_ratio,omitempty"`
	ROE          *float64 `json:"roe,omitempty"`
	ROA          *float64 `json:"roa,omitempty"`
}

// RecommendationTrend represents aggregate analyst recommendations for a
// single reporting period
type RecommendationTrend struct {
	Symbol     string `json:"symbol"`
	Period     string `json:"period"`
	StrongBuy  int    `json:"strong_buy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strong_sell"`
}

// DateRange represents a time period for data queries
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
