package dataflows

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// FinnhubClient handles Finnhub API operations
type FinnhubClient struct {
	client *resty.Client
	cache  *CacheManager
	apiKey string
}

// NewFinnhubClient creates a new Finnhub client
func NewFinnhubClient(config *Config) *FinnhubClient {
	cacheDir := filepath.Join(config.DataCacheDir, "finnhub")
	cache := NewCacheManager(cacheDir, 6*time.Hour, config.CacheEnabled) // 6 hour cache for news

	client := resty.New()
	client.SetBaseURL("https://finnhub.io/api/v1")
	client.SetTimeout(30 * time.Second)

	return &FinnhubClient{
		client: client,
		cache:  cache,
		apiKey: config.FinnhubAPIKey,
	}
}

type finnhubProfile struct {
	Name              string  `json:"name"`
	Ticker            string  `json:"ticker"`
	Industry          string  `json:"finnhubIndustry"`
	Exchange          string  `json:"exchange"`
	Currency          string  `json:"currency"`
	Country           string  `json:"country"`
	MarketCap         float64 `json:"marketCapitalization"`
	SharesOutstanding float64 `json:"shareOutstanding"`
	IPO               string  `json:"ipo"`
	WebURL            string  `json:"weburl"`
}

// GetCompanyProfile gets basic company information
func (fc *FinnhubClient) GetCompanyProfile(symbol string) (*CompanyProfile, error) {
	if fc.apiKey == "" {
		return nil, fmt.Errorf("Finnhub API key not configured")
	}

	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}

	symbol = NormalizeSymbol(symbol)

	// Check cache first
	var cached CompanyProfile
	if fc.cache.Get("finnhub", "profile", symbol, &cached) {
		return &cached, nil
	}

	var result *CompanyProfile
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := fc.client.R().
			SetQueryParams(map[string]string{
				"symbol": symbol,
				"token":  fc.apiKey,
			}).
			Get("/stock/profile2")

		if err != nil {
			return fmt.Errorf("failed to fetch profile for %s: %w", symbol, err)
		}

		if resp.StatusCode() != 200 {
			return fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
		}

		var profile finnhubProfile
		if err := json.Unmarshal(resp.Body(), &profile); err != nil {
			return fmt.Errorf("failed to parse profile response: %w", err)
		}

		if profile.Name == "" {
			return fmt.Errorf("no profile data for %s", symbol)
		}

		// MarketCapitalization is reported in millions
		result = &CompanyProfile{
			Symbol:    symbol,
			Name:      profile.Name,
			Industry:  profile.Industry,
			Exchange:  profile.Exchange,
			Currency:  profile.Currency,
			Country:   profile.Country,
			MarketCap: decimal.NewFromFloat(profile.MarketCap).Mul(decimal.NewFromInt(1_000_000)),
			SharesOut: decimal.NewFromFloat(profile.SharesOutstanding),
			IPODate:   profile.IPO,
			WebURL:    profile.WebURL,
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	// Cache the result
	fc.cache.Set("finnhub", "profile", symbol, result)

	return result, nil
}

// GetKeyMetrics gets fundamental metrics for a company
func (fc *FinnhubClient) GetKeyMetrics(symbol string) (*KeyMetrics, error) {
	if fc.apiKey == "" {
		return nil, fmt.Errorf("Finnhub API key not configured")
	}

	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}

	symbol = NormalizeSymbol(symbol)

	// Check cache first
	var cached KeyMetrics
	if fc.cache.Get("finnhub", "metrics", symbol, &cached) {
		return &cached, nil
	}

	var result *KeyMetrics
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := fc.client.R().
			SetQueryParams(map[string]string{
				"symbol": symbol,
				"metric": "all",
				"token":  fc.apiKey,
			}).
			Get("/stock/metric")

		if err != nil {
			return fmt.Errorf("failed to fetch metrics for %s: %w", symbol, err)
		}

		if resp.StatusCode() != 200 {
			return fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
		}

		var apiResponse struct {
			Metric map[string]interface{} `json:"metric"`
		}
		if err := json.Unmarshal(resp.Body(), &apiResponse); err != nil {
			return fmt.Errorf("failed to parse metrics response: %w", err)
		}

		result = &KeyMetrics{
			Symbol:       symbol,
			PERatio:      metricFloat(apiResponse.Metric, "peTTM"),
			EPS:          metricFloat(apiResponse.Metric, "epsTTM"),
			RevenuePerSh: metricFloat(apiResponse.Metric, "revenuePerShareTTM"),
			NetMargin:    metricFloat(apiResponse.Metric, "netProfitMarginTTM"),
			DebtEquity:   metricFloat(apiResponse.Metric, "totalDebt/totalEquityQuarterly"),
			CurrentRatio: metricFloat(apiResponse.Metric, "currentRatioQuarterly"),
			ROE:          metricFloat(apiResponse.Metric, "roeTTM"),
			ROA:          metricFloat(apiResponse.Metric, "roaTTM"),
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	// Cache the result
	fc.cache.Set("finnhub", "metrics", symbol, result)

	return result, nil
}

func metricFloat(metrics map[string]interface{}, key string) *float64 {
	raw, ok := metrics[key]
	if !ok {
		return nil
	}
	v, ok := raw.(float64)
	if !ok {
		return nil
	}
	return &v
}

// GetRecommendationTrends gets aggregate analyst recommendations, most recent
// period first
func (fc *FinnhubClient) GetRecommendationTrends(symbol string) ([]*RecommendationTrend, error) {
	if fc.apiKey == "" {
		return nil, fmt.Errorf("Finnhub API key not configured")
	}

	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}

	symbol = NormalizeSymbol(symbol)

	// Check cache first
	var cached []*RecommendationTrend
	if fc.cache.Get("finnhub", "recommendations", symbol, &cached) {
		return cached, nil
	}

	var result []*RecommendationTrend
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := fc.client.R().
			SetQueryParams(map[string]string{
				"symbol": symbol,
				"token":  fc.apiKey,
			}).
			Get("/stock/recommendation")

		if err != nil {
			return fmt.Errorf("failed to fetch recommendations for %s: %w", symbol, err)
		}

		if resp.StatusCode() != 200 {
			return fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
		}

		var trends []struct {
			Symbol     string `json:"symbol"`
			Period     string `json:"period"`
			StrongBuy  int    `json:"strongBuy"`
			Buy        int    `json:"buy"`
			Hold       int    `json:"hold"`
			Sell       int    `json:"sell"`
			StrongSell int    `json:"strongSell"`
		}
		if err := json.Unmarshal(resp.Body(), &trends); err != nil {
			return fmt.Errorf("failed to parse recommendations response: %w", err)
		}

		result = make([]*RecommendationTrend, 0, len(trends))
		for _, t := range trends {
			result = append(result, &RecommendationTrend{
				Symbol:     t.Symbol,
				Period:     t.Period,
				StrongBuy:  t.StrongBuy,
				Buy:        t.Buy,
				Hold:       t.Hold,
				Sell:       t.Sell,
				StrongSell: t.StrongSell,
			})
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	// Cache the result
	fc.cache.Set("finnhub", "recommendations", symbol, result)

	return result, nil
}

// FinnhubNews represents news from Finnhub API
type FinnhubNews struct {
	Category string `json:"category"`
	DateTime int64  `json:"datetime"`
	Headline string `json:"headline"`
	ID       int64  `json:"id"`
	Image    string `json:"image"`
	Related  string `json:"related"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// GetCompanyNews gets news articles for a specific company
func (fc *FinnhubClient) GetCompanyNews(symbol string, from, to time.Time) ([]*NewsArticle, error) {
	if fc.apiKey == "" {
		return nil, fmt.Errorf("Finnhub API key not configured")
	}

	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}

	symbol = NormalizeSymbol(symbol)

	// Create cache key
	cacheKey := map[string]interface{}{
		"symbol": symbol,
		"from":   from.Format("2006-01-02"),
		"to":     to.Format("2006-01-02"),
	}

	// Check cache first
	var cached []*NewsArticle
	if fc.cache.Get("finnhub", "company_news", cacheKey, &cached) {
		return cached, nil
	}

	var result []*NewsArticle
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := fc.client.R().
			SetQueryParams(map[string]string{
				"symbol": symbol,
				"from":   from.Format("2006-01-02"),
				"to":     to.Format("2006-01-02"),
				"token":  fc.apiKey,
			}).
			Get("/company-news")

		if err != nil {
			return fmt.Errorf("failed to fetch news for %s: %w", symbol, err)
		}

		if resp.StatusCode() != 200 {
			return fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
		}

		var finnhubNews []FinnhubNews
		if err := json.Unmarshal(resp.Body(), &finnhubNews); err != nil {
			return fmt.Errorf("failed to parse news response: %w", err)
		}

		// Convert to our format
		result = make([]*NewsArticle, 0, len(finnhubNews))
		for _, news := range finnhubNews {
			article := &NewsArticle{
				Title:       news.Headline,
				Content:     news.Summary,
				URL:         news.URL,
				Source:      news.Source,
				PublishedAt: time.Unix(news.DateTime, 0),
				Keywords:    []string{symbol},
				Metadata: map[string]string{
					"category": news.Category,
					"related":  news.Related,
					"id":       strconv.FormatInt(news.ID, 10),
				},
			}
			result = append(result, article)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	// Cache the result
	fc.cache.Set("finnhub", "company_news", cacheKey, result)

	return result, nil
}
