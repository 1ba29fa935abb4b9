package debate

import (
	"context"

	"github.com/chimeralabs/chimera/internal/models"
	"github.com/chimeralabs/chimera/internal/persona"
	"github.com/chimeralabs/chimera/internal/signal"
)

// RiskTeam runs the three-perspective risk debate.
type RiskTeam struct {
	svc          persona.Service
	conservative persona.Persona
	aggressive   persona.Persona
	neutral      persona.Persona
	director     persona.Persona
	rounds       int
}

// NewRiskTeam wires the risk debate personas. rounds <= 0 selects
// DefaultRounds.
func NewRiskTeam(svc persona.Service, rounds int) *RiskTeam {
	return &RiskTeam{
		svc:          svc,
		conservative: persona.MustLoad(persona.ConservativeAnalyst),
		aggressive:   persona.MustLoad(persona.AggressiveAnalyst),
		neutral:      persona.MustLoad(persona.NeutralAnalyst),
		director:     persona.MustLoad(persona.RiskDirector),
		rounds:       rounds,
	}
}

// Conduct runs the risk debate over the shared context, synthesizes it, and
// derives the structured risk metrics and final recommendation. The bundle is
// expected to carry ticker, investment_thesis, market_conditions and the
// proposed position.
func (t *RiskTeam) Conduct(ctx context.Context, bundle models.ContextBundle) *models.RiskDebate {
	parts := []Participant{
		{Persona: t.conservative, Key: "conservative"},
		{Persona: t.aggressive, Key: "aggressive"},
		{Persona: t.neutral, Key: "neutral"},
	}

	rounds := run(ctx, t.svc, bundle, parts, t.rounds)
	final := rounds[len(rounds)-1].Outputs
	conservative := final[t.conservative.Name]
	aggressive := final[t.aggressive.Name]
	neutral := final[t.neutral.Name]

	synthesis := synthesize(ctx, t.svc, t.director, bundle.With(
		"conservative_analysis", conservative,
		"aggressive_analysis", aggressive,
		"neutral_analysis", neutral,
	))

	metrics := calculateRiskMetrics(conservative, aggressive, neutral)

	return &models.RiskDebate{
		ConservativeAnalysis: conservative,
		AggressiveAnalysis:   aggressive,
		NeutralAnalysis:      neutral,
		Synthesis:            synthesis,
		Rounds:               rounds,
		Metrics:              metrics,
		Final:                finalRecommendation(metrics),
	}
}

func calculateRiskMetrics(conservative, aggressive, neutral string) models.RiskMetrics {
	m := models.RiskMetrics{}

	if v, ok := signal.PositionSize(conservative); ok {
		m.ConservativeSize = models.Float(v)
	}
	if v, ok := signal.PositionSize(aggressive); ok {
		m.AggressiveSize = models.Float(v)
	}
	if v, ok := signal.PositionSize(neutral); ok {
		m.NeutralSize = models.Float(v)
	}
	// The neutral recommendation wins; fall back to the documented default.
	m.RecommendedSize = signal.DefaultPositionSize
	if m.NeutralSize != nil {
		m.RecommendedSize = *m.NeutralSize
	}

	if v, ok := signal.Confidence(conservative); ok {
		m.ConservativeConfidence = models.Float(v)
	}
	if v, ok := signal.Confidence(aggressive); ok {
		m.AggressiveConfidence = models.Float(v)
	}
	if v, ok := signal.Confidence(neutral); ok {
		m.NeutralConfidence = models.Float(v)
	}

	m.RiskScore = signal.RiskScore(conservative, aggressive, neutral)
	m.RiskCategory = signal.RiskCategory(m.RiskScore)
	m.KeyRiskFactors = ExtractRiskFactors(conservative, aggressive, neutral)
	return m
}

func finalRecommendation(m models.RiskMetrics) models.RiskRecommendation {
	var recommendation string
	switch {
	case m.RiskScore <= 3:
		recommendation = "Proceed with position - Low risk profile"
	case m.RiskScore <= 6:
		recommendation = "Proceed with caution - Monitor closely"
	default:
		recommendation = "Consider reducing position size or hedging"
	}

	considerations := m.KeyRiskFactors
	if len(considerations) > 3 {
		considerations = considerations[:3]
	}

	return models.RiskRecommendation{
		Recommendation:    recommendation,
		PositionSize:      m.RecommendedSize,
		RiskScore:         m.RiskScore,
		RiskCategory:      m.RiskCategory,
		KeyConsiderations: considerations,
		Monitoring:        monitoringRequirements(m.RiskScore),
	}
}

func monitoringRequirements(riskScore float64) []string {
	switch {
	case riskScore <= 3:
		return []string{"Weekly portfolio review", "Monthly position assessment"}
	case riskScore <= 6:
		return []string{"Daily market monitoring", "Weekly position review", "Set stop-loss levels"}
	default:
		return []string{"Daily position monitoring", "Real-time alerts", "Frequent rebalancing", "Hedge monitoring"}
	}
}
