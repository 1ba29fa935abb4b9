// Package signal recovers structured trading fields from free-form persona
// text. Extraction is ordered pattern matching, not sentiment analysis: the
// first matching pattern per field wins, and every function is total, returning
// a documented default when nothing matches.
package signal

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/chimeralabs/chimera/internal/models"
)

// Defaults applied by callers that require a value.
const (
	DefaultConfidence   = 0.7
	DefaultPositionSize = 5.0
	DefaultRiskScore    = 5.0
)

var confidencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)confidence.*?(\d+(?:\.\d+)?)\s*%`),
	regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*%\s*confidence`),
	regexp.MustCompile(`(?i)confidence.*?(\d+(?:\.\d+)?)/10`),
	regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)/10\s*confidence`),
}

var positionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*%\s*(?:position|allocation|size)`),
	regexp.MustCompile(`(?i)position\s*size.*?(\d+(?:\.\d+)?)\s*%`),
	regexp.MustCompile(`(?i)recommend.*?(\d+(?:\.\d+)?)\s*%`),
	regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*%\s*of\s*portfolio`),
}

var percentPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)

// Fixed lexicons for the risk-score heuristic. Each term counts at most once
// per analyzed text.
var (
	riskKeywords   = []string{"high risk", "volatile", "uncertainty", "danger", "warning", "caution"}
	safetyKeywords = []string{"safe", "stable", "conservative", "low risk", "defensive"}
)

// Recommendation applies the literal buy/sell rule: "buy" present without
// "sell" means Buy; "sell" present means Sell regardless of "buy"; otherwise
// Hold. The sell-beats-buy asymmetry is observable downstream behavior and is
// preserved as-is.
func Recommendation(text string) string {
	lower := strings.ToLower(text)
	hasBuy := strings.Contains(lower, "buy")
	hasSell := strings.Contains(lower, "sell")
	switch {
	case hasBuy && !hasSell:
		return models.RecommendationBuy
	case hasSell:
		return models.RecommendationSell
	default:
		return models.RecommendationHold
	}
}

// Confidence scans the ordered confidence patterns and normalizes the first
// match onto [0,1]: values above 10 are read as percentages, values at or
// below 10 as a ten-point scale. ok is false when nothing matched.
func Confidence(text string) (val float64, ok bool) {
	for _, p := range confidencePatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if v > 10 {
			return v / 100, true
		}
		return v / 10, true
	}
	return 0, false
}

// PositionSize scans the ordered position patterns and returns the first match
// as a plain percentage. ok is false when nothing matched; callers that need a
// value use DefaultPositionSize.
func PositionSize(text string) (val float64, ok bool) {
	for _, p := range positionPatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		return v, true
	}
	return 0, false
}

// FirstPercent returns the first bare percentage in the text. The basic
// pipeline reads the risk persona's position size this way.
func FirstPercent(text string) (val float64, ok bool) {
	m := percentPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// RiskScore tallies risk-lexicon against safety-lexicon mentions across the
// given texts and maps the ratio onto a 1-10 scale. With no mentions at all it
// returns the neutral DefaultRiskScore.
func RiskScore(texts ...string) float64 {
	riskCount := 0
	safetyCount := 0
	for _, text := range texts {
		lower := strings.ToLower(text)
		for _, kw := range riskKeywords {
			if strings.Contains(lower, kw) {
				riskCount++
			}
		}
		for _, kw := range safetyKeywords {
			if strings.Contains(lower, kw) {
				safetyCount++
			}
		}
	}
	if riskCount == 0 && safetyCount == 0 {
		return DefaultRiskScore
	}
	ratio := float64(riskCount) / float64(riskCount+safetyCount)
	return 1 + ratio*9
}

// RiskCategory buckets a 1-10 risk score.
func RiskCategory(score float64) string {
	switch {
	case score <= 3:
		return models.RiskLow
	case score <= 6:
		return models.RiskMedium
	default:
		return models.RiskHigh
	}
}
