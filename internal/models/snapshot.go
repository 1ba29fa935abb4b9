package models

import (
	"fmt"
	"strconv"
)

// FundamentalSnapshot is the fundamental-data read from the market-data
// boundary. Nil fields were unavailable upstream and are omitted from the
// persona context rather than coerced to zero.
type FundamentalSnapshot struct {
	Ticker      string   `json:"ticker"`
	CompanyName string   `json:"company_name"`
	Sector      string   `json:"sector"`
	MarketCap   *float64 `json:"market_cap,omitempty"`
	PERatio     *float64 `json:"pe_ratio,omitempty"`
	Revenue     *float64 `json:"revenue,omitempty"`
	NetIncome   *float64 `json:"net_income,omitempty"`
	EPS         *float64 `json:"eps,omitempty"`
	DebtEquity  *float64 `json:"debt_to_equity,omitempty"`
	CurrentRatio *float64 `json:"current_ratio,omitempty"`
	ProfitMargin *float64 `json:"profit_margin,omitempty"`
	ROE          *float64 `json:"roe,omitempty"`
	ROA          *float64 `json:"roa,omitempty"`

	AnalystStrongBuy  *int `json:"analyst_strong_buy,omitempty"`
	AnalystBuy        *int `json:"analyst_buy,omitempty"`
	AnalystHold       *int `json:"analyst_hold,omitempty"`
	AnalystSell       *int `json:"analyst_sell,omitempty"`
	AnalystStrongSell *int `json:"analyst_strong_sell,omitempty"`

	Error        bool   `json:"error"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// TechnicalSnapshot is the price/volume read from the market-data boundary.
// CurrentPrice is nil when the fetch failed; Error flags the snapshot as
// unusable for validation purposes.
type TechnicalSnapshot struct {
	Ticker         string   `json:"ticker"`
	CurrentPrice   *float64 `json:"current_price,omitempty"`
	PriceChange    float64  `json:"price_change"`
	PriceChangePct float64  `json:"price_change_pct"`
	SMA5           float64  `json:"sma_5"`
	SMA20          float64  `json:"sma_20"`
	CurrentVolume  int64    `json:"current_volume"`
	AvgVolume      float64  `json:"avg_volume"`
	VolumeRatio    float64  `json:"volume_ratio"`
	RecentHigh     float64  `json:"recent_high"`
	RecentLow      float64  `json:"recent_low"`
	PriceVsSMA5    float64  `json:"price_vs_sma5"`
	PriceVsSMA20   float64  `json:"price_vs_sma20"`

	Error        bool   `json:"error"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Headline is one aggregated news item feeding the sentiment snapshot.
type Headline struct {
	Title       string `json:"headline"`
	Summary     string `json:"summary"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
}

// SentimentSnapshot is the news/sentiment read from the market-data boundary.
type SentimentSnapshot struct {
	Ticker         string     `json:"ticker"`
	TotalNews      int        `json:"total_news"`
	PositiveNews   int        `json:"positive_news"`
	NegativeNews   int        `json:"negative_news"`
	NeutralNews    int        `json:"neutral_news"`
	SentimentScore float64    `json:"sentiment_score"`
	Headlines      []Headline `json:"headlines,omitempty"`

	Error        bool   `json:"error"`
	ErrorMessage string `json:"error_message,omitempty"`
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Facts converts the snapshot into persona-ready named facts, skipping
// unavailable fields.
func (s *FundamentalSnapshot) Facts() ContextBundle {
	if s == nil {
		return ContextBundle{}
	}
	b := ContextBundle{"ticker": s.Ticker}
	if s.Error {
		return b.With("data_quality", "fundamental data unavailable: "+s.ErrorMessage)
	}
	if s.CompanyName != "" {
		b["company_name"] = s.CompanyName
	}
	if s.Sector != "" {
		b["sector"] = s.Sector
	}
	optional := map[string]*float64{
		"market_cap":     s.MarketCap,
		"pe_ratio":       s.PERatio,
		"revenue":        s.Revenue,
		"net_income":     s.NetIncome,
		"eps":            s.EPS,
		"debt_to_equity": s.DebtEquity,
		"current_ratio":  s.CurrentRatio,
		"profit_margin":  s.ProfitMargin,
		"roe":            s.ROE,
		"roa":            s.ROA,
	}
	for k, v := range optional {
		if v != nil {
			b[k] = fmtFloat(*v)
		}
	}
	counts := map[string]*int{
		"analyst_strong_buy":  s.AnalystStrongBuy,
		"analyst_buy":         s.AnalystBuy,
		"analyst_hold":        s.AnalystHold,
		"analyst_sell":        s.AnalystSell,
		"analyst_strong_sell": s.AnalystStrongSell,
	}
	for k, v := range counts {
		if v != nil {
			b[k] = strconv.Itoa(*v)
		}
	}
	return b
}

// Facts converts the snapshot into persona-ready named facts. An error-flagged
// snapshot degrades to a descriptive placeholder instead of numbers.
func (s *TechnicalSnapshot) Facts() ContextBundle {
	if s == nil {
		return ContextBundle{}
	}
	b := ContextBundle{"ticker": s.Ticker}
	if s.Error || s.CurrentPrice == nil {
		return b.With("data_quality", "technical data unavailable: "+s.ErrorMessage)
	}
	return b.With(
		"current_price", fmtFloat(*s.CurrentPrice),
		"price_change", fmtFloat(s.PriceChange),
		"price_change_pct", fmtFloat(s.PriceChangePct),
		"sma_5", fmtFloat(s.SMA5),
		"sma_20", fmtFloat(s.SMA20),
		"current_volume", strconv.FormatInt(s.CurrentVolume, 10),
		"avg_volume", fmtFloat(s.AvgVolume),
		"volume_ratio", fmtFloat(s.VolumeRatio),
		"recent_high", fmtFloat(s.RecentHigh),
		"recent_low", fmtFloat(s.RecentLow),
		"price_vs_sma5", fmtFloat(s.PriceVsSMA5),
		"price_vs_sma20", fmtFloat(s.PriceVsSMA20),
	)
}

// Facts converts the snapshot into persona-ready named facts.
func (s *SentimentSnapshot) Facts() ContextBundle {
	if s == nil {
		return ContextBundle{}
	}
	b := ContextBundle{"ticker": s.Ticker}
	if s.Error {
		return b.With("data_quality", "sentiment data unavailable: "+s.ErrorMessage)
	}
	b = b.With(
		"total_news", strconv.Itoa(s.TotalNews),
		"positive_news", strconv.Itoa(s.PositiveNews),
		"negative_news", strconv.Itoa(s.NegativeNews),
		"neutral_news", strconv.Itoa(s.NeutralNews),
		"sentiment_score", fmtFloat(s.SentimentScore),
	)
	for i, h := range s.Headlines {
		if i >= 10 {
			break
		}
		b[fmt.Sprintf("headline_%d", i+1)] = h.Title
	}
	return b
}
