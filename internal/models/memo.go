package models

import "time"

// Memo lifecycle states. A memo starts pending and is sealed exactly once into
// complete or error by the validator.
const (
	StatusPending  = "pending"
	StatusComplete = "complete"
	StatusError    = "error"
)

// Workflow identifiers recorded on the memo.
const (
	WorkflowEnhanced = "enhanced_v2"
	WorkflowBasic    = "basic"
	WorkflowFallback = "basic_fallback"
)

// Recommendation values recovered from chief-strategist text.
const (
	RecommendationBuy  = "Buy"
	RecommendationSell = "Sell"
	RecommendationHold = "Hold"
)

// Risk categories derived from the 1-10 risk score.
const (
	RiskLow    = "Low"
	RiskMedium = "Medium"
	RiskHigh   = "High"
)

// ExtractedSignal holds the structured fields mechanically recovered from the
// free-text persona outputs. Confidence and PositionSize are nil when no
// pattern matched and no default applies.
type ExtractedSignal struct {
	Recommendation string   `json:"recommendation"`
	Confidence     *float64 `json:"confidence,omitempty"`
	PositionSize   *float64 `json:"position_size,omitempty"`
	RiskScore      float64  `json:"risk_score"`
	RiskCategory   string   `json:"risk_category"`
}

// Memo is the terminal aggregate of one deliberation. It is append-only until
// the validator seals its status; nothing mutates it afterwards.
type Memo struct {
	ID        string    `json:"id"`
	Ticker    string    `json:"ticker"`
	CreatedAt time.Time `json:"created_at"`

	FundamentalAnalysis string `json:"fundamental_analysis"`
	TechnicalAnalysis   string `json:"technical_analysis"`
	SentimentAnalysis   string `json:"sentiment_analysis"`
	ChiefAnalysis       string `json:"chief_strategist_analysis"`
	RiskAssessment      string `json:"risk_assessment"`

	ResearchDebate *ResearchDebate `json:"research_debate,omitempty"`
	RiskDebate     *RiskDebate     `json:"risk_debate,omitempty"`

	Signal ExtractedSignal `json:"signal"`

	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	Workflow     string `json:"workflow"`
	MemoryStored bool   `json:"memory_stored"`
}

// Float pointer helper for optional signal fields.
func Float(v float64) *float64 { return &v }
