package dataflows

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/chimeralabs/chimera/internal/models"
)

// Keyword lexicons for headline sentiment tallies.
var (
	positiveWords = []string{"positive", "growth", "increase", "profit", "gain", "up", "higher", "strong"}
	negativeWords = []string{"negative", "decline", "decrease", "loss", "down", "lower", "weak", "risk"}
)

const (
	newsLookbackDays = 7
	priceWindowDays  = 30
	maxHeadlines     = 10
)

// SnapshotBuilder assembles the market-data snapshots the deliberation
// pipeline consumes. Upstream failures degrade to error-flagged snapshots
// rather than aborting the memo.
type SnapshotBuilder struct {
	finnhub *FinnhubClient
	yahoo   *YahooFinanceClient
	scraper *NewsScraperClient
}

// NewSnapshotBuilder creates a snapshot builder with all data clients wired.
func NewSnapshotBuilder(config *Config) *SnapshotBuilder {
	return &SnapshotBuilder{
		finnhub: NewFinnhubClient(config),
		yahoo:   NewYahooFinanceClient(config),
		scraper: NewNewsScraperClient(config),
	}
}

// BuildFundamental collects company profile, key metrics and analyst
// recommendation counts for the ticker.
func (sb *SnapshotBuilder) BuildFundamental(ticker string) *models.FundamentalSnapshot {
	ticker = NormalizeSymbol(ticker)
	snap := &models.FundamentalSnapshot{Ticker: ticker}

	profile, err := sb.finnhub.GetCompanyProfile(ticker)
	if err != nil {
		log.Printf("fundamental snapshot for %s: %v", ticker, err)
		snap.Error = true
		snap.ErrorMessage = err.Error()
		return snap
	}
	snap.CompanyName = profile.Name
	snap.Sector = profile.Industry
	if !profile.MarketCap.IsZero() {
		mc, _ := profile.MarketCap.Float64()
		snap.MarketCap = models.Float(mc)
	}

	if metrics, err := sb.finnhub.GetKeyMetrics(ticker); err != nil {
		log.Printf("key metrics for %s: %v", ticker, err)
	} else {
		snap.PERatio = metrics.PERatio
		snap.EPS = metrics.EPS
		snap.Revenue = metrics.RevenuePerSh
		snap.ProfitMargin = metrics.NetMargin
		snap.DebtEquity = metrics.DebtEquity
		snap.CurrentRatio = metrics.CurrentRatio
		snap.ROE = metrics.ROE
		snap.ROA = metrics.ROA
	}

	if trends, err := sb.finnhub.GetRecommendationTrends(ticker); err != nil {
		log.Printf("recommendation trends for %s: %v", ticker, err)
	} else if len(trends) > 0 {
		latest := trends[0]
		snap.AnalystStrongBuy = intPtr(latest.StrongBuy)
		snap.AnalystBuy = intPtr(latest.Buy)
		snap.AnalystHold = intPtr(latest.Hold)
		snap.AnalystSell = intPtr(latest.Sell)
		snap.AnalystStrongSell = intPtr(latest.StrongSell)
	}

	return snap
}

// BuildTechnical collects the current quote plus a 30-day daily window and
// derives moving averages, volume ratios and price positioning.
func (sb *SnapshotBuilder) BuildTechnical(ticker string) *models.TechnicalSnapshot {
	ticker = NormalizeSymbol(ticker)
	snap := &models.TechnicalSnapshot{Ticker: ticker}

	history, err := sb.yahoo.GetHistoricalDataWindow(ticker, priceWindowDays)
	if err != nil || len(history) == 0 {
		if err == nil {
			err = errors.New("no price data returned")
		}
		log.Printf("technical snapshot for %s: %v", ticker, err)
		snap.Error = true
		snap.ErrorMessage = err.Error()
		return snap
	}

	closes := make([]float64, len(history))
	var totalVolume float64
	high, low := 0.0, 0.0
	for i, bar := range history {
		c, _ := bar.Close.Float64()
		closes[i] = c
		totalVolume += float64(bar.Volume)
		h, _ := bar.High.Float64()
		l, _ := bar.Low.Float64()
		if i == 0 || h > high {
			high = h
		}
		if i == 0 || l < low {
			low = l
		}
	}

	latest := history[len(history)-1]
	current := closes[len(closes)-1]
	snap.CurrentPrice = models.Float(current)
	snap.CurrentVolume = latest.Volume
	snap.AvgVolume = totalVolume / float64(len(history))
	if snap.AvgVolume > 0 {
		snap.VolumeRatio = float64(latest.Volume) / snap.AvgVolume
	}
	snap.RecentHigh = high
	snap.RecentLow = low

	if len(closes) >= 2 {
		prev := closes[len(closes)-2]
		snap.PriceChange = current - prev
		if prev != 0 {
			snap.PriceChangePct = (current - prev) / prev * 100
		}
	}

	snap.SMA5 = sma(closes, 5)
	snap.SMA20 = sma(closes, 20)
	if snap.SMA5 > 0 {
		snap.PriceVsSMA5 = (current - snap.SMA5) / snap.SMA5 * 100
	}
	if snap.SMA20 > 0 {
		snap.PriceVsSMA20 = (current - snap.SMA20) / snap.SMA20 * 100
	}

	return snap
}

// BuildSentiment aggregates recent company news and tallies headline
// sentiment. Finnhub is preferred; the Google News scraper is the keyless
// fallback.
func (sb *SnapshotBuilder) BuildSentiment(ticker string) *models.SentimentSnapshot {
	ticker = NormalizeSymbol(ticker)
	snap := &models.SentimentSnapshot{Ticker: ticker}

	to := time.Now()
	from := to.AddDate(0, 0, -newsLookbackDays)

	articles, err := sb.finnhub.GetCompanyNews(ticker, from, to)
	if err != nil || len(articles) == 0 {
		articles, err = sb.scraper.GetGoogleNews(GoogleNewsParams{
			Query:     ticker + " stock",
			StartDate: from,
			EndDate:   to,
		})
	}
	if err != nil {
		log.Printf("sentiment snapshot for %s (%s): %v", ticker, FormatDateRange(from, to), err)
		snap.Error = true
		snap.ErrorMessage = err.Error()
		return snap
	}

	snap.TotalNews = len(articles)
	for i, article := range articles {
		text := strings.ToLower(article.Title + " " + article.Content)
		pos := countAny(text, positiveWords)
		neg := countAny(text, negativeWords)
		switch {
		case pos > neg:
			snap.PositiveNews++
		case neg > pos:
			snap.NegativeNews++
		default:
			snap.NeutralNews++
		}

		if i < maxHeadlines {
			snap.Headlines = append(snap.Headlines, models.Headline{
				Title:       article.Title,
				Summary:     article.Content,
				URL:         article.URL,
				PublishedAt: article.PublishedAt.Format("2006-01-02"),
			})
		}
	}

	if snap.TotalNews > 0 {
		snap.SentimentScore = float64(snap.PositiveNews-snap.NegativeNews) / float64(snap.TotalNews)
	}

	return snap
}

func countAny(text string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}

func sma(values []float64, window int) float64 {
	if len(values) == 0 {
		return 0
	}
	if len(values) < window {
		window = len(values)
	}
	var sum float64
	for _, v := range values[len(values)-window:] {
		sum += v
	}
	return sum / float64(window)
}

func intPtr(v int) *int { return &v }
