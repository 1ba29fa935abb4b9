package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chimeralabs/chimera/config"
	"github.com/chimeralabs/chimera/internal/debate"
	"github.com/chimeralabs/chimera/internal/memory"
	"github.com/chimeralabs/chimera/internal/models"
	"github.com/chimeralabs/chimera/internal/persona"
	"github.com/chimeralabs/chimera/internal/signal"
)

const (
	noHistoricalContext = "No historical context available"
	marketConditionsCap = 500
)

// Advanced is the full deliberation pipeline: analyst stages, the research
// debate, chief synthesis, the risk debate, memory storage and validation.
// Analyst and chief failures propagate so the engine can fall back; debate
// failures degrade inside the debate packages.
type Advanced struct {
	svc persona.Service
	mem Memory

	research *debate.ResearchTeam
	risk     *debate.RiskTeam

	fundamental persona.Persona
	technical   persona.Persona
	sentiment   persona.Persona
	chief       persona.Persona
	riskManager persona.Persona
}

// NewAdvanced wires the advanced pipeline. Disabled features leave the
// corresponding stage nil; mem may be nil when memory is disabled.
func NewAdvanced(svc persona.Service, mem Memory, cfg *config.Config) *Advanced {
	a := &Advanced{
		svc:         svc,
		mem:         mem,
		fundamental: persona.MustLoad(persona.FundamentalAnalyst),
		technical:   persona.MustLoad(persona.TechnicalAnalyst),
		sentiment:   persona.MustLoad(persona.SentimentAnalyst),
		chief:       persona.MustLoad(persona.ChiefStrategist),
		riskManager: persona.MustLoad(persona.RiskManager),
	}
	if !cfg.EnableMemory {
		a.mem = nil
	}
	if cfg.EnableResearchDebate {
		a.research = debate.NewResearchTeam(svc, cfg.MaxDebateRounds)
	}
	if cfg.EnableRiskDebate {
		a.risk = debate.NewRiskTeam(svc, cfg.MaxRiskDebateRounds)
	}
	return a
}

// Deliberate runs the full stage sequence for one request.
func (a *Advanced) Deliberate(ctx context.Context, req Request) (*models.Memo, error) {
	memo := &models.Memo{
		ID:        memoID(req.Ticker),
		Ticker:    req.Ticker,
		CreatedAt: time.Now().UTC(),
		Workflow:  models.WorkflowEnhanced,
	}

	var err error
	if memo.FundamentalAnalysis, err = a.svc.Generate(ctx, a.fundamental, req.Fundamental.Facts()); err != nil {
		return nil, err
	}
	if memo.TechnicalAnalysis, err = a.svc.Generate(ctx, a.technical, req.Technical.Facts()); err != nil {
		return nil, err
	}
	if memo.SentimentAnalysis, err = a.svc.Generate(ctx, a.sentiment, req.Sentiment.Facts()); err != nil {
		return nil, err
	}

	memoryContext := a.memoryContext(ctx, memo)

	base := models.NewContextBundle(req.Ticker).With(
		"fundamental_analysis", memo.FundamentalAnalysis,
		"technical_analysis", memo.TechnicalAnalysis,
		"sentiment_analysis", memo.SentimentAnalysis,
		"memory_context", memoryContext,
	)

	if a.research != nil {
		memo.ResearchDebate = a.research.Conduct(ctx, base)
	}

	chiefBundle := base
	if memo.ResearchDebate != nil {
		chiefBundle = chiefBundle.With(
			"bull_analysis", memo.ResearchDebate.BullAnalysis,
			"bear_analysis", memo.ResearchDebate.BearAnalysis,
			"debate_synthesis", memo.ResearchDebate.Synthesis,
		)
	}
	if memo.ChiefAnalysis, err = a.svc.Generate(ctx, a.chief, chiefBundle); err != nil {
		return nil, err
	}

	memo.Signal.Recommendation = signal.Recommendation(memo.ChiefAnalysis)
	if v, ok := signal.Confidence(memo.ChiefAnalysis); ok {
		memo.Signal.Confidence = models.Float(v)
	} else {
		memo.Signal.Confidence = models.Float(signal.DefaultConfidence)
	}

	if err := a.assessRisk(ctx, req, memo, memoryContext); err != nil {
		return nil, err
	}

	a.storeMemory(ctx, memo)

	seal(memo, req.Technical)
	return memo, nil
}

// assessRisk runs the three-perspective risk debate, or the single risk
// manager persona when the debate is disabled.
func (a *Advanced) assessRisk(ctx context.Context, req Request, memo *models.Memo, memoryContext string) error {
	if a.risk == nil {
		bundle := models.NewContextBundle(req.Ticker).With(
			"chief_strategist_analysis", memo.ChiefAnalysis,
			"fundamental_analysis", memo.FundamentalAnalysis,
			"technical_analysis", memo.TechnicalAnalysis,
			"sentiment_analysis", memo.SentimentAnalysis,
		)
		text, err := a.svc.Generate(ctx, a.riskManager, bundle)
		if err != nil {
			return err
		}
		memo.RiskAssessment = text
		if v, ok := signal.PositionSize(text); ok {
			memo.Signal.PositionSize = models.Float(v)
		} else {
			memo.Signal.PositionSize = models.Float(signal.DefaultPositionSize)
		}
		memo.Signal.RiskScore = signal.RiskScore(text)
		memo.Signal.RiskCategory = signal.RiskCategory(memo.Signal.RiskScore)
		return nil
	}

	confidence := signal.DefaultConfidence
	if memo.Signal.Confidence != nil {
		confidence = *memo.Signal.Confidence
	}
	bundle := models.NewContextBundle(req.Ticker).With(
		"investment_thesis", memo.ChiefAnalysis,
		"market_conditions", fmt.Sprintf("Fundamental: %s... Technical: %s... Sentiment: %s...",
			truncate(memo.FundamentalAnalysis, marketConditionsCap),
			truncate(memo.TechnicalAnalysis, marketConditionsCap),
			truncate(memo.SentimentAnalysis, marketConditionsCap)),
		"proposed_recommendation", memo.Signal.Recommendation,
		"proposed_confidence", fmt.Sprintf("%.2f", confidence),
		"proposed_size", fmt.Sprintf("%.1f%%", signal.DefaultPositionSize),
		"memory_context", memoryContext,
	)

	memo.RiskDebate = a.risk.Conduct(ctx, bundle)
	memo.RiskAssessment = memo.RiskDebate.Synthesis
	memo.Signal.PositionSize = models.Float(memo.RiskDebate.Final.PositionSize)
	memo.Signal.RiskScore = memo.RiskDebate.Final.RiskScore
	memo.Signal.RiskCategory = memo.RiskDebate.Final.RiskCategory
	return nil
}

// memoryContext retrieves precedent-based guidance for the in-progress memo.
// Any failure, or an empty memory, degrades to a fixed placeholder.
func (a *Advanced) memoryContext(ctx context.Context, memo *models.Memo) string {
	if a.mem == nil {
		return noHistoricalContext
	}
	current := models.SimilarityRecord{
		Ticker:           memo.Ticker,
		InvestmentThesis: memo.FundamentalAnalysis + " " + memo.TechnicalAnalysis + " " + memo.SentimentAnalysis,
		RiskAssessment:   "Analysis in progress",
	}
	insights, err := a.mem.Insights(ctx, current, memory.ModeGeneral)
	if err != nil {
		log.Printf("memory insights for %s: %v", memo.Ticker, err)
		return noHistoricalContext
	}
	if insights == "" {
		return noHistoricalContext
	}
	return insights
}

// storeMemory indexes the finalized deliberation for future retrieval. Storage
// failures are logged, never fatal.
func (a *Advanced) storeMemory(ctx context.Context, memo *models.Memo) {
	if a.mem == nil {
		return
	}
	rec := models.SimilarityRecord{
		MemoID:           memo.ID,
		Ticker:           memo.Ticker,
		InvestmentThesis: memo.ChiefAnalysis,
		RiskAssessment:   memo.RiskAssessment,
		Decision:         memo.Signal.Recommendation,
		Tags:             []string{"enhanced_analysis", memo.Ticker},
		CreatedAt:        memo.CreatedAt,
	}
	if err := a.mem.Store(ctx, rec); err != nil {
		log.Printf("memory store for %s: %v", memo.ID, err)
		return
	}
	memo.MemoryStored = true
}

// truncate caps a string at n runes, never splitting a multi-byte character.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
