package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/chimeralabs/chimera/internal/models"
	"github.com/chimeralabs/chimera/internal/persona"
	"github.com/chimeralabs/chimera/internal/signal"
)

// Basic is the five-persona pipeline: three analysts, the chief strategist and
// the risk manager, invoked sequentially with no debates or memory. It never
// fails: a persona error degrades to inline error text in the affected stage.
type Basic struct {
	svc         persona.Service
	fundamental persona.Persona
	technical   persona.Persona
	sentiment   persona.Persona
	chief       persona.Persona
	risk        persona.Persona
}

// NewBasic wires the five core personas.
func NewBasic(svc persona.Service) *Basic {
	return &Basic{
		svc:         svc,
		fundamental: persona.MustLoad(persona.FundamentalAnalyst),
		technical:   persona.MustLoad(persona.TechnicalAnalyst),
		sentiment:   persona.MustLoad(persona.SentimentAnalyst),
		chief:       persona.MustLoad(persona.ChiefStrategist),
		risk:        persona.MustLoad(persona.RiskManager),
	}
}

// generate is Generate with errors degraded to inline text.
func (b *Basic) generate(ctx context.Context, p persona.Persona, bundle models.ContextBundle) string {
	text, err := b.svc.Generate(ctx, p, bundle)
	if err != nil {
		return fmt.Sprintf("Error in %s: %v", p.Name, err)
	}
	return text
}

// Deliberate runs the five personas in sequence and seals a complete memo.
func (b *Basic) Deliberate(ctx context.Context, req Request) (*models.Memo, error) {
	memo := &models.Memo{
		ID:        memoID(req.Ticker),
		Ticker:    req.Ticker,
		CreatedAt: time.Now().UTC(),
		Workflow:  models.WorkflowBasic,
	}

	memo.FundamentalAnalysis = b.generate(ctx, b.fundamental, req.Fundamental.Facts())
	memo.TechnicalAnalysis = b.generate(ctx, b.technical, req.Technical.Facts())
	memo.SentimentAnalysis = b.generate(ctx, b.sentiment, req.Sentiment.Facts())

	memo.ChiefAnalysis = b.generate(ctx, b.chief, models.NewContextBundle(req.Ticker).With(
		"fundamental_analysis", memo.FundamentalAnalysis,
		"technical_analysis", memo.TechnicalAnalysis,
		"sentiment_analysis", memo.SentimentAnalysis,
	))

	memo.RiskAssessment = b.generate(ctx, b.risk, models.NewContextBundle(req.Ticker).With(
		"chief_strategist_analysis", memo.ChiefAnalysis,
		"fundamental_analysis", memo.FundamentalAnalysis,
		"technical_analysis", memo.TechnicalAnalysis,
		"sentiment_analysis", memo.SentimentAnalysis,
	))

	memo.Signal = b.extractSignal(memo)
	memo.Status = models.StatusComplete
	return memo, nil
}

// extractSignal recovers the structured fields the basic pipeline reports: the
// recommendation and confidence from the chief narrative, the position size as
// the first bare percentage in the risk assessment.
func (b *Basic) extractSignal(memo *models.Memo) models.ExtractedSignal {
	sig := models.ExtractedSignal{
		Recommendation: signal.Recommendation(memo.ChiefAnalysis),
	}
	if v, ok := signal.Confidence(memo.ChiefAnalysis); ok {
		sig.Confidence = models.Float(v)
	} else {
		sig.Confidence = models.Float(signal.DefaultConfidence)
	}
	if v, ok := signal.FirstPercent(memo.RiskAssessment); ok {
		sig.PositionSize = models.Float(v)
	}
	sig.RiskScore = signal.RiskScore(memo.RiskAssessment)
	sig.RiskCategory = signal.RiskCategory(sig.RiskScore)
	return sig
}
