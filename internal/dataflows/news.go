package dataflows

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// NewsScraperClient scrapes Google News as a keyless news source
type NewsScraperClient struct {
	client *resty.Client
	cache  *CacheManager
}

// NewNewsScraperClient creates a new news scraper client
func NewNewsScraperClient(config *Config) *NewsScraperClient {
	cacheDir := filepath.Join(config.DataCacheDir, "news_scraper")
	cache := NewCacheManager(cacheDir, 2*time.Hour, config.CacheEnabled) // 2 hour cache for news

	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; Chimera/1.0)")

	return &NewsScraperClient{
		client: client,
		cache:  cache,
	}
}

// GoogleNewsParams represents parameters for Google News search
type GoogleNewsParams struct {
	Query      string    `json:"query"`
	Language   string    `json:"language"`
	Country    string    `json:"country"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	MaxResults int       `json:"max_results"`
}

// GetGoogleNews scrapes Google News for articles
func (ns *NewsScraperClient) GetGoogleNews(params GoogleNewsParams) ([]*NewsArticle, error) {
	if strings.TrimSpace(params.Query) == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}

	// Set defaults
	if params.Language == "" {
		params.Language = "en"
	}
	if params.Country == "" {
		params.Country = "US"
	}
	if params.MaxResults <= 0 {
		params.MaxResults = 20
	}

	// Check cache first
	var cached []*NewsArticle
	if ns.cache.Get("google_news", "search", params, &cached) {
		return cached, nil
	}

	googleURL := ns.buildGoogleNewsURL(params)

	var result []*NewsArticle
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := ns.client.R().Get(googleURL)
		if err != nil {
			return fmt.Errorf("failed to fetch Google News: %w", err)
		}

		if resp.StatusCode() != 200 {
			return fmt.Errorf("HTTP error %d when fetching Google News", resp.StatusCode())
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
		if err != nil {
			return fmt.Errorf("failed to parse HTML: %w", err)
		}

		result = ns.parseGoogleNewsHTML(doc, params.Query)

		if len(result) > params.MaxResults {
			result = result[:params.MaxResults]
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	// Cache the result
	ns.cache.Set("google_news", "search", params, result)

	return result, nil
}

// buildGoogleNewsURL constructs the Google News search URL
func (ns *NewsScraperClient) buildGoogleNewsURL(params GoogleNewsParams) string {
	baseURL := "https://news.google.com/search"

	query := url.QueryEscape(params.Query)

	if !params.StartDate.IsZero() && !params.EndDate.IsZero() {
		dateQuery := fmt.Sprintf(" after:%s before:%s",
			params.StartDate.Format("2006-01-02"),
			params.EndDate.Format("2006-01-02"))
		query += url.QueryEscape(dateQuery)
	}

	return fmt.Sprintf("%s?q=%s&hl=%s&gl=%s&ceid=%s:%s",
		baseURL, query, params.Language, params.Country, params.Country, params.Language)
}

// parseGoogleNewsHTML extracts articles from Google News HTML
func (ns *NewsScraperClient) parseGoogleNewsHTML(doc *goquery.Document, query string) []*NewsArticle {
	var articles []*NewsArticle

	doc.Find("article").Each(func(i int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Find("h3").Text())
		if title == "" {
			title = strings.TrimSpace(s.Find("h4").Text())
		}
		if title == "" {
			return
		}

		link := s.Find("a").First()
		href, exists := link.Attr("href")
		if !exists {
			return
		}

		source := strings.TrimSpace(s.Find("div[data-n-tid]").Text())
		if source == "" {
			source = "Google News"
		}

		// Google News reports relative times only
		timeText := strings.TrimSpace(s.Find("time").Text())

		articles = append(articles, &NewsArticle{
			Title:       title,
			Content:     strings.TrimSpace(s.Find("span").Last().Text()),
			URL:         ns.cleanGoogleNewsURL(href),
			Source:      source,
			PublishedAt: ns.parseRelativeTime(timeText),
			Keywords:    []string{query},
			Metadata: map[string]string{
				"scraper":      "google_news",
				"original_url": href,
				"time_text":    timeText,
			},
		})
	})

	return articles
}

// cleanGoogleNewsURL removes the Google News redirect wrapper
func (ns *NewsScraperClient) cleanGoogleNewsURL(googleURL string) string {
	if strings.Contains(googleURL, "url=") {
		parts := strings.Split(googleURL, "url=")
		if len(parts) > 1 {
			if decoded, err := url.QueryUnescape(parts[1]); err == nil {
				return decoded
			}
		}
	}

	if strings.HasPrefix(googleURL, "./") {
		return "https://news.google.com" + googleURL[1:]
	}
	if strings.HasPrefix(googleURL, "/") {
		return "https://news.google.com" + googleURL
	}

	return googleURL
}

var relativeTimePatterns = []struct {
	re   *regexp.Regexp
	unit time.Duration
}{
	{regexp.MustCompile(`(\d+)\s*minutes?\s*ago`), time.Minute},
	{regexp.MustCompile(`(\d+)\s*hours?\s*ago`), time.Hour},
	{regexp.MustCompile(`(\d+)\s*days?\s*ago`), 24 * time.Hour},
	{regexp.MustCompile(`(\d+)\s*weeks?\s*ago`), 7 * 24 * time.Hour},
}

// parseRelativeTime converts relative time strings to actual time
func (ns *NewsScraperClient) parseRelativeTime(timeText string) time.Time {
	now := time.Now()
	timeText = strings.ToLower(strings.TrimSpace(timeText))

	switch timeText {
	case "just now":
		return now
	case "yesterday":
		return now.Add(-24 * time.Hour)
	}

	for _, p := range relativeTimePatterns {
		if matches := p.re.FindStringSubmatch(timeText); len(matches) > 1 {
			if n, err := strconv.Atoi(matches[1]); err == nil && n > 0 {
				return now.Add(-time.Duration(n) * p.unit)
			}
		}
	}

	// If we can't parse it, assume it's recent
	return now.Add(-1 * time.Hour)
}
