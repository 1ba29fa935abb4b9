// Package service is the JSON-parameter facade over the deliberation engine,
// the memo store and the memory system. Every operation takes a params JSON
// string and returns a JSON-encodable result, so embedders and the CLI share
// one entry surface.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chimeralabs/chimera/config"
	"github.com/chimeralabs/chimera/internal/dataflows"
	"github.com/chimeralabs/chimera/internal/debate"
	"github.com/chimeralabs/chimera/internal/memory"
	"github.com/chimeralabs/chimera/internal/models"
	"github.com/chimeralabs/chimera/internal/persona"
	"github.com/chimeralabs/chimera/internal/pipeline"
	"github.com/chimeralabs/chimera/internal/storage/sqlite"
)

// Service owns the wired components behind the operation surface.
type Service struct {
	cfg       *config.Config
	personas  persona.Service
	memos     *sqlite.Store
	mem       *memory.System
	snapshots *dataflows.SnapshotBuilder
	engine    *pipeline.Engine
	basic     *pipeline.Basic
}

// New wires a service from config: chat backend, memo store, memory system
// (when enabled), snapshot builder and both pipelines.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	personas, err := persona.NewChatService(ctx, cfg)
	if err != nil {
		return nil, err
	}

	memos, err := sqlite.Open(cfg.MemoDBPath)
	if err != nil {
		return nil, fmt.Errorf("open memo store: %w", err)
	}

	var mem *memory.System
	if cfg.EnableMemory {
		mem, err = memory.Open(cfg.MemoryDBPath, personas)
		if err != nil {
			_ = memos.Close()
			return nil, fmt.Errorf("open memory system: %w", err)
		}
	}

	s := &Service{
		cfg:       cfg,
		personas:  personas,
		memos:     memos,
		mem:       mem,
		snapshots: dataflows.NewSnapshotBuilder(cfg),
		basic:     pipeline.NewBasic(personas),
	}
	var pipelineMem pipeline.Memory
	if mem != nil {
		pipelineMem = mem
	}
	s.engine = pipeline.NewEngine(personas, pipelineMem, cfg)
	return s, nil
}

// NewWithComponents wires a service from pre-built components, for embedding
// and tests.
func NewWithComponents(cfg *config.Config, personas persona.Service, memos *sqlite.Store, mem *memory.System, snapshots *dataflows.SnapshotBuilder) *Service {
	s := &Service{
		cfg:       cfg,
		personas:  personas,
		memos:     memos,
		mem:       mem,
		snapshots: snapshots,
		basic:     pipeline.NewBasic(personas),
	}
	var pipelineMem pipeline.Memory
	if mem != nil {
		pipelineMem = mem
	}
	s.engine = pipeline.NewEngine(personas, pipelineMem, cfg)
	return s
}

// Close releases the underlying stores.
func (s *Service) Close() error {
	var firstErr error
	if s.memos != nil {
		firstErr = s.memos.Close()
	}
	if s.mem != nil {
		if err := s.mem.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type tickerParams struct {
	Ticker string `json:"ticker"`
}

func parseTicker(paramsJson string) (string, error) {
	var params tickerParams
	if err := json.Unmarshal([]byte(paramsJson), &params); err != nil {
		return "", fmt.Errorf("invalid params: %w", err)
	}
	ticker := dataflows.NormalizeSymbol(params.Ticker)
	if err := dataflows.ValidateSymbol(ticker); err != nil {
		return "", err
	}
	return ticker, nil
}

func (s *Service) buildRequest(ticker string) pipeline.Request {
	return pipeline.Request{
		Ticker:      ticker,
		Fundamental: s.snapshots.BuildFundamental(ticker),
		Technical:   s.snapshots.BuildTechnical(ticker),
		Sentiment:   s.snapshots.BuildSentiment(ticker),
	}
}

// GenerateMemo runs the five-persona basic pipeline for a ticker and persists
// the memo.
func (s *Service) GenerateMemo(ctx context.Context, paramsJson string) (any, error) {
	ticker, err := parseTicker(paramsJson)
	if err != nil {
		return nil, err
	}

	memo, err := s.basic.Deliberate(ctx, s.buildRequest(ticker))
	if err != nil {
		return nil, err
	}
	if err := s.memos.SaveMemo(ctx, memo); err != nil {
		return nil, err
	}
	return memo, nil
}

// GenerateEnhancedMemo runs the full deliberation pipeline for a ticker,
// falling back to basic on failure, and persists the memo.
func (s *Service) GenerateEnhancedMemo(ctx context.Context, paramsJson string) (any, error) {
	ticker, err := parseTicker(paramsJson)
	if err != nil {
		return nil, err
	}

	memo, err := s.engine.Deliberate(ctx, s.buildRequest(ticker))
	if err != nil {
		return nil, err
	}
	if err := s.memos.SaveMemo(ctx, memo); err != nil {
		return nil, err
	}
	return memo, nil
}

type debateParams struct {
	Ticker              string `json:"ticker"`
	FundamentalAnalysis string `json:"fundamental_analysis"`
	TechnicalAnalysis   string `json:"technical_analysis"`
	SentimentAnalysis   string `json:"sentiment_analysis"`
	Rounds              int    `json:"rounds"`
}

// ConductResearchDebate runs a standalone bull/bear debate over the supplied
// analyses.
func (s *Service) ConductResearchDebate(ctx context.Context, paramsJson string) (any, error) {
	var params debateParams
	if err := json.Unmarshal([]byte(paramsJson), &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if strings.TrimSpace(params.Ticker) == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	rounds := params.Rounds
	if rounds <= 0 {
		rounds = s.cfg.MaxDebateRounds
	}

	team := debate.NewResearchTeam(s.personas, rounds)
	bundle := models.NewContextBundle(params.Ticker).With(
		"fundamental_analysis", params.FundamentalAnalysis,
		"technical_analysis", params.TechnicalAnalysis,
		"sentiment_analysis", params.SentimentAnalysis,
	)
	return team.Conduct(ctx, bundle), nil
}

type riskDebateParams struct {
	Ticker           string `json:"ticker"`
	InvestmentThesis string `json:"investment_thesis"`
	MarketConditions string `json:"market_conditions"`
	Rounds           int    `json:"rounds"`
}

// ConductRiskDebate runs a standalone three-perspective risk debate over the
// supplied thesis.
func (s *Service) ConductRiskDebate(ctx context.Context, paramsJson string) (any, error) {
	var params riskDebateParams
	if err := json.Unmarshal([]byte(paramsJson), &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if strings.TrimSpace(params.Ticker) == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	rounds := params.Rounds
	if rounds <= 0 {
		rounds = s.cfg.MaxRiskDebateRounds
	}

	team := debate.NewRiskTeam(s.personas, rounds)
	bundle := models.NewContextBundle(params.Ticker).With(
		"investment_thesis", params.InvestmentThesis,
		"market_conditions", params.MarketConditions,
	)
	return team.Conduct(ctx, bundle), nil
}

type findSimilarParams struct {
	InvestmentThesis string  `json:"investment_thesis"`
	RiskAssessment   string  `json:"risk_assessment"`
	Limit            int     `json:"limit"`
	MinSimilarity    float64 `json:"min_similarity"`
}

// FindSimilar retrieves outcome-labeled precedents similar to the supplied
// thesis.
func (s *Service) FindSimilar(ctx context.Context, paramsJson string) (any, error) {
	if s.mem == nil {
		return nil, fmt.Errorf("memory system not enabled")
	}
	var params findSimilarParams
	if err := json.Unmarshal([]byte(paramsJson), &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	return s.mem.FindSimilar(ctx, params.InvestmentThesis, params.RiskAssessment,
		params.Limit, params.MinSimilarity)
}

type outcomeParams struct {
	MemoID  string             `json:"memo_id"`
	Outcome string             `json:"outcome"`
	Metrics map[string]float64 `json:"performance_metrics"`
}

// AttachOutcome labels a stored memo with its realized outcome.
func (s *Service) AttachOutcome(ctx context.Context, paramsJson string) (any, error) {
	if s.mem == nil {
		return nil, fmt.Errorf("memory system not enabled")
	}
	var params outcomeParams
	if err := json.Unmarshal([]byte(paramsJson), &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if strings.TrimSpace(params.MemoID) == "" {
		return nil, fmt.Errorf("memo_id is required")
	}
	if err := s.mem.AttachOutcome(ctx, params.MemoID, params.Outcome, params.Metrics); err != nil {
		return nil, err
	}
	return map[string]string{"status": "updated", "memo_id": params.MemoID}, nil
}

type analyticsParams struct {
	Ticker string `json:"ticker"`
	Window string `json:"window"`
}

// PerformanceAnalytics aggregates outcome performance for a ticker and window.
func (s *Service) PerformanceAnalytics(ctx context.Context, paramsJson string) (any, error) {
	if s.mem == nil {
		return nil, fmt.Errorf("memory system not enabled")
	}
	var params analyticsParams
	if err := json.Unmarshal([]byte(paramsJson), &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	return s.mem.PerformanceAnalytics(ctx, dataflows.NormalizeSymbol(params.Ticker), params.Window)
}

// LearningInsights summarizes recent labeled outcomes into guidance.
func (s *Service) LearningInsights(ctx context.Context) (any, error) {
	if s.mem == nil {
		return nil, fmt.Errorf("memory system not enabled")
	}
	return s.mem.LearningInsights(ctx)
}

type insightsParams struct {
	InvestmentThesis string `json:"investment_thesis"`
	RiskAssessment   string `json:"risk_assessment"`
	Mode             string `json:"mode"`
}

// MemoryInsights synthesizes precedent-based guidance for an in-progress
// thesis under one of the insight modes.
func (s *Service) MemoryInsights(ctx context.Context, paramsJson string) (any, error) {
	if s.mem == nil {
		return nil, fmt.Errorf("memory system not enabled")
	}
	var params insightsParams
	if err := json.Unmarshal([]byte(paramsJson), &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	current := models.SimilarityRecord{
		InvestmentThesis: params.InvestmentThesis,
		RiskAssessment:   params.RiskAssessment,
	}
	text, err := s.mem.Insights(ctx, current, memory.InsightMode(params.Mode))
	if err != nil {
		return nil, err
	}
	return map[string]string{"insights": text}, nil
}

type listMemosParams struct {
	Ticker string `json:"ticker"`
	Cursor int64  `json:"cursor"`
	Limit  int    `json:"limit"`
}

// ListMemos pages stored memos newest-first.
func (s *Service) ListMemos(ctx context.Context, paramsJson string) (any, error) {
	var params listMemosParams
	if paramsJson != "" {
		if err := json.Unmarshal([]byte(paramsJson), &params); err != nil {
			return nil, fmt.Errorf("invalid params: %w", err)
		}
	}
	return s.memos.ListMemos(ctx, dataflows.NormalizeSymbol(params.Ticker), params.Cursor, params.Limit)
}

type getMemoParams struct {
	ID string `json:"id"`
}

// GetMemo fetches one stored memo by id.
func (s *Service) GetMemo(ctx context.Context, paramsJson string) (any, error) {
	var params getMemoParams
	if err := json.Unmarshal([]byte(paramsJson), &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	memo, err := s.memos.GetMemo(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	if memo == nil {
		return nil, fmt.Errorf("memo %s not found", params.ID)
	}
	return memo, nil
}

// SystemInfo reports the running configuration surface.
func (s *Service) SystemInfo() any {
	return map[string]any{
		"name":                   "chimera",
		"model":                  s.cfg.Model,
		"memory_enabled":         s.mem != nil,
		"research_debate":        s.cfg.EnableResearchDebate,
		"risk_debate":            s.cfg.EnableRiskDebate,
		"max_debate_rounds":      s.cfg.MaxDebateRounds,
		"max_risk_debate_rounds": s.cfg.MaxRiskDebateRounds,
		"time":                   time.Now().UTC().Format(time.RFC3339),
	}
}
