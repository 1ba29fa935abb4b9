package models

// DebateRound captures one round of a debate: the output of every participant,
// keyed by persona name. Round sequences are append-only and never reordered.
type DebateRound struct {
	Index   int               `json:"index"`
	Outputs map[string]string `json:"outputs"`
}

// KeyPoints is the quick-reference digest pulled out of the research debate.
type KeyPoints struct {
	BullPoints     []string `json:"bull_key_points"`
	BearPoints     []string `json:"bear_key_points"`
	ConsensusAreas []string `json:"consensus_areas"`
}

// ResearchDebate is the result of the bull/bear exchange. BullAnalysis and
// BearAnalysis are the final-round arguments of each side.
type ResearchDebate struct {
	BullAnalysis string        `json:"bull_analysis"`
	BearAnalysis string        `json:"bear_analysis"`
	Synthesis    string        `json:"debate_synthesis"`
	Rounds       []DebateRound `json:"rounds"`
	KeyPoints    KeyPoints     `json:"key_points"`
}

// RiskMetrics aggregates the structured values recovered from the three risk
// perspectives.
type RiskMetrics struct {
	ConservativeSize *float64 `json:"conservative_size,omitempty"`
	AggressiveSize   *float64 `json:"aggressive_size,omitempty"`
	NeutralSize      *float64 `json:"neutral_size,omitempty"`
	RecommendedSize  float64  `json:"recommended_size"`

	ConservativeConfidence *float64 `json:"conservative_confidence,omitempty"`
	AggressiveConfidence   *float64 `json:"aggressive_confidence,omitempty"`
	NeutralConfidence      *float64 `json:"neutral_confidence,omitempty"`

	RiskScore      float64  `json:"risk_score"`
	RiskCategory   string   `json:"risk_category"`
	KeyRiskFactors []string `json:"key_risk_factors"`
}

// RiskRecommendation is the final guidance produced by the risk debate.
type RiskRecommendation struct {
	Recommendation    string   `json:"recommendation"`
	PositionSize      float64  `json:"position_size"`
	RiskScore         float64  `json:"risk_score"`
	RiskCategory      string   `json:"risk_category"`
	KeyConsiderations []string `json:"key_considerations"`
	Monitoring        []string `json:"monitoring_requirements"`
}

// RiskDebate is the result of the conservative/aggressive/neutral exchange.
type RiskDebate struct {
	ConservativeAnalysis string             `json:"conservative_analysis"`
	AggressiveAnalysis   string             `json:"aggressive_analysis"`
	NeutralAnalysis      string             `json:"neutral_analysis"`
	Synthesis            string             `json:"risk_synthesis"`
	Rounds               []DebateRound      `json:"rounds"`
	Metrics              RiskMetrics        `json:"risk_metrics"`
	Final                RiskRecommendation `json:"final_recommendation"`
}
