package models

import "time"

// Outcome labels attached to historical records after the fact.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// SimilarityRecord is a historical memo's thesis/risk text plus its labeled
// outcome, as stored in (and retrieved from) the memory index. Similarity is
// populated only on retrieval.
type SimilarityRecord struct {
	MemoID           string             `json:"memo_id"`
	Ticker           string             `json:"ticker"`
	InvestmentThesis string             `json:"investment_thesis"`
	RiskAssessment   string             `json:"risk_assessment"`
	Decision         string             `json:"decision"`
	Outcome          string             `json:"outcome,omitempty"`
	OutcomeDate      string             `json:"outcome_date,omitempty"`
	Metrics          map[string]float64 `json:"performance_metrics,omitempty"`
	Tags             []string           `json:"tags,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	Similarity       float64            `json:"similarity_score,omitempty"`
}
