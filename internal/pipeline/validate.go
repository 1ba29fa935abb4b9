package pipeline

import (
	"fmt"
	"strings"

	"github.com/chimeralabs/chimera/internal/models"
)

// seal runs the consistency checks against the finished memo and stamps its
// terminal status. A memo fails closed: any rule violation seals it as error
// with the first violated rule as the reason.
func seal(memo *models.Memo, technical *models.TechnicalSnapshot) {
	if reason, ok := validate(memo, technical); !ok {
		memo.Status = models.StatusError
		memo.ErrorMessage = reason
		return
	}
	memo.Status = models.StatusComplete
}

// validate checks the memo for data and consistency defects, in fixed order:
// technical-source errors, implausible price, unrecognized recommendation,
// missing stage narratives, and a chief narrative that never mentions the
// recommendation it supposedly produced.
func validate(memo *models.Memo, technical *models.TechnicalSnapshot) (string, bool) {
	if technical == nil || technical.Error {
		msg := "Unknown error"
		if technical != nil && technical.ErrorMessage != "" {
			msg = technical.ErrorMessage
		}
		return fmt.Sprintf("Technical data error: %s", msg), false
	}

	// A price of exactly 100.0 is the placeholder emitted by dead data feeds.
	if technical.CurrentPrice == nil {
		return "Invalid or static price detected: <nil>", false
	}
	if *technical.CurrentPrice == 100.0 {
		return fmt.Sprintf("Invalid or static price detected: %v", *technical.CurrentPrice), false
	}

	rec := memo.Signal.Recommendation
	switch rec {
	case models.RecommendationBuy, models.RecommendationSell, models.RecommendationHold:
	default:
		return fmt.Sprintf("Invalid recommendation: %s", rec), false
	}

	required := []struct {
		name string
		text string
	}{
		{"fundamental_analysis", memo.FundamentalAnalysis},
		{"technical_analysis", memo.TechnicalAnalysis},
		{"sentiment_analysis", memo.SentimentAnalysis},
		{"chief_strategist_analysis", memo.ChiefAnalysis},
	}
	for _, f := range required {
		if f.text == "" {
			return fmt.Sprintf("Missing critical field: %s", f.name), false
		}
	}

	if !strings.Contains(strings.ToLower(memo.ChiefAnalysis), strings.ToLower(rec)) {
		return fmt.Sprintf("Recommendation mismatch between chief strategist and top-line: %s", rec), false
	}

	return "", true
}
