package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chimeralabs/chimera/internal/models"
)

// InsightMode selects how retrieved precedents are framed for the memory
// analyst persona.
type InsightMode string

const (
	ModePattern     InsightMode = "pattern_analysis"
	ModeOutcome     InsightMode = "outcome_analysis"
	ModeImprovement InsightMode = "improvement_suggestions"
	ModeGeneral     InsightMode = "general"
)

var modeLabels = map[InsightMode]string{
	ModePattern:     "pattern analysis",
	ModeOutcome:     "outcome analysis",
	ModeImprovement: "improvement suggestions",
	ModeGeneral:     "analysis",
}

var modeFocus = map[InsightMode]string{
	ModePattern: "Identify common themes and patterns across similar situations, " +
		"recurring factors that led to success or failure, market conditions that " +
		"influenced outcomes, decision-making patterns that worked well, and warning " +
		"signs that appeared in failed cases.",
	ModeOutcome: "Identify the key factors that differentiated successful from failed " +
		"cases, common characteristics of successful decisions, warning signs from " +
		"failed cases, and recommendations based on historical success patterns.",
	ModeImprovement: "Suggest specific improvements: refining the investment thesis " +
		"based on historical patterns, adjusting position sizing based on past " +
		"outcomes, adding risk management measures that worked in similar cases, and " +
		"avoiding mistakes that led to failures.",
	ModeGeneral: "Explain how this situation compares to historical precedents, what " +
		"can be learned from similar past decisions, key differences that might " +
		"affect the outcome, and recommendations based on historical patterns.",
}

// Insights retrieves similar precedents for the candidate and synthesizes
// natural-language guidance under the given mode. With no similar records it
// returns a fixed placeholder without calling the persona service.
func (s *System) Insights(ctx context.Context, current models.SimilarityRecord, mode InsightMode) (string, error) {
	label, ok := modeLabels[mode]
	if !ok {
		mode, label = ModeGeneral, modeLabels[ModeGeneral]
	}

	similar, err := s.FindSimilar(ctx, current.InvestmentThesis, current.RiskAssessment, 0, 0)
	if err != nil {
		return "", err
	}
	if len(similar) == 0 {
		return fmt.Sprintf("No similar historical memos found for %s.", label), nil
	}

	bundle := models.ContextBundle{
		"analysis_type":  string(mode),
		"analysis_focus": modeFocus[mode],
		"current_memo":   mustJSON(current),
		"similar_memos":  mustJSON(similar),
	}

	if mode == ModeOutcome {
		var successful, failed []models.SimilarityRecord
		for _, rec := range similar {
			switch rec.Outcome {
			case models.OutcomeSuccess:
				successful = append(successful, rec)
			case models.OutcomeFailure:
				failed = append(failed, rec)
			}
		}
		bundle = bundle.With(
			"total_similar_cases", fmt.Sprintf("%d", len(similar)),
			"successful_cases", mustJSON(successful),
			"failed_cases", mustJSON(failed),
			"success_rate", fmt.Sprintf("%.1f%%", float64(len(successful))/float64(len(similar))*100),
		)
	}

	return s.svc.Generate(ctx, s.analyst, bundle)
}

// LearningSummary is the aggregate view behind LearningInsights.
type LearningSummary struct {
	Insights        string  `json:"learning_insights"`
	TotalAnalyzed   int     `json:"total_analyzed"`
	SuccessfulCases int     `json:"successful_cases"`
	FailedCases     int     `json:"failed_cases"`
	SuccessRate     float64 `json:"success_rate"`
}

// LearningInsights summarizes the most recent labeled outcomes into
// high-level guidance.
func (s *System) LearningInsights(ctx context.Context) (*LearningSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT investment_thesis, risk_assessment, decision, outcome
FROM memory
WHERE outcome IS NOT NULL AND TRIM(outcome) != ''
ORDER BY created_at DESC
LIMIT 50
`)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var recent []models.SimilarityRecord
	summary := &LearningSummary{}
	for rows.Next() {
		var rec models.SimilarityRecord
		if err := rows.Scan(&rec.InvestmentThesis, &rec.RiskAssessment, &rec.Decision, &rec.Outcome); err != nil {
			return nil, err
		}
		recent = append(recent, rec)
		switch rec.Outcome {
		case models.OutcomeSuccess:
			summary.SuccessfulCases++
		case models.OutcomeFailure:
			summary.FailedCases++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	summary.TotalAnalyzed = len(recent)
	if summary.TotalAnalyzed == 0 {
		summary.Insights = "No historical data available for learning insights"
		return summary, nil
	}
	summary.SuccessRate = float64(summary.SuccessfulCases) / float64(summary.TotalAnalyzed)

	bundle := models.ContextBundle{
		"analysis_type":  string(ModeGeneral),
		"analysis_focus": modeFocus[ModeGeneral],
		"current_memo":   `{"type": "learning_analysis"}`,
		"similar_memos":  mustJSON(recent),
	}
	insights, err := s.svc.Generate(ctx, s.analyst, bundle)
	if err != nil {
		return nil, err
	}
	summary.Insights = insights
	return summary, nil
}

func mustJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
