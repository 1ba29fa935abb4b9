package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/chimeralabs/chimera/config"
	"github.com/chimeralabs/chimera/internal/memory"
	"github.com/chimeralabs/chimera/internal/models"
	"github.com/chimeralabs/chimera/internal/persona"
)

// fakeService replays canned outputs per persona name and records every call.
type fakeService struct {
	replies map[string]string
	errs    map[string]error
	bundles map[string][]models.ContextBundle
}

func newFakeService(replies map[string]string) *fakeService {
	return &fakeService{
		replies: replies,
		errs:    map[string]error{},
		bundles: map[string][]models.ContextBundle{},
	}
}

func (f *fakeService) Generate(ctx context.Context, p persona.Persona, bundle models.ContextBundle) (string, error) {
	f.bundles[p.Name] = append(f.bundles[p.Name], bundle)
	if err, ok := f.errs[p.Name]; ok {
		return "", err
	}
	if reply, ok := f.replies[p.Name]; ok {
		return reply, nil
	}
	return fmt.Sprintf("analysis from %s", p.Name), nil
}

type fakeMemory struct {
	insights    string
	insightsErr error
	storeErr    error
	stored      []models.SimilarityRecord
}

func (f *fakeMemory) Insights(ctx context.Context, current models.SimilarityRecord, mode memory.InsightMode) (string, error) {
	return f.insights, f.insightsErr
}

func (f *fakeMemory) Store(ctx context.Context, rec models.SimilarityRecord) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	f.stored = append(f.stored, rec)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		EnableResearchDebate: true,
		EnableRiskDebate:     true,
		EnableMemory:         true,
		MaxDebateRounds:      1,
		MaxRiskDebateRounds:  1,
	}
}

func testRequest(ticker string) Request {
	price := 187.32
	return Request{
		Ticker:      ticker,
		Fundamental: &models.FundamentalSnapshot{Ticker: ticker, CompanyName: "Test Corp"},
		Technical:   &models.TechnicalSnapshot{Ticker: ticker, CurrentPrice: &price},
		Sentiment:   &models.SentimentSnapshot{Ticker: ticker, TotalNews: 3},
	}
}

func chiefReply() string {
	return "After weighing all inputs I recommend a buy. Confidence: 80%."
}

func TestEngineDeliberateComplete(t *testing.T) {
	svc := newFakeService(map[string]string{
		persona.ChiefStrategist:  chiefReply(),
		persona.NeutralAnalyst:   "A 6% position is appropriate here.",
		persona.RiskDirector:     "Risk synthesis of all three perspectives.",
		persona.ResearchDirector: "Research synthesis.",
	})
	mem := &fakeMemory{insights: "precedent guidance"}

	engine := NewEngine(svc, mem, testConfig())
	memo, err := engine.Deliberate(context.Background(), testRequest("AAPL"))
	if err != nil {
		t.Fatalf("Deliberate: %v", err)
	}

	if memo.Status != models.StatusComplete {
		t.Fatalf("status = %s (%s), want complete", memo.Status, memo.ErrorMessage)
	}
	if memo.Workflow != models.WorkflowEnhanced {
		t.Fatalf("workflow = %s, want %s", memo.Workflow, models.WorkflowEnhanced)
	}
	if memo.Signal.Recommendation != models.RecommendationBuy {
		t.Fatalf("recommendation = %s, want Buy", memo.Signal.Recommendation)
	}
	if memo.Signal.Confidence == nil || *memo.Signal.Confidence != 0.8 {
		t.Fatalf("confidence = %v, want 0.8", memo.Signal.Confidence)
	}
	if memo.ResearchDebate == nil || memo.RiskDebate == nil {
		t.Fatalf("debates missing: research=%v risk=%v", memo.ResearchDebate, memo.RiskDebate)
	}
	if memo.Signal.PositionSize == nil || *memo.Signal.PositionSize != 6 {
		t.Fatalf("position size = %v, want 6 from neutral analyst", memo.Signal.PositionSize)
	}
	if memo.RiskAssessment != "Risk synthesis of all three perspectives." {
		t.Fatalf("risk assessment = %q", memo.RiskAssessment)
	}
	if !memo.MemoryStored || len(mem.stored) != 1 {
		t.Fatalf("memory not stored (flag=%v, records=%d)", memo.MemoryStored, len(mem.stored))
	}

	rec := mem.stored[0]
	if rec.MemoID != memo.ID || rec.Decision != "Buy" {
		t.Fatalf("stored record = %+v", rec)
	}
	if len(rec.Tags) != 2 || rec.Tags[0] != "enhanced_analysis" || rec.Tags[1] != "AAPL" {
		t.Fatalf("stored tags = %v", rec.Tags)
	}
	if !strings.HasPrefix(memo.ID, "AAPL_") {
		t.Fatalf("memo id = %q", memo.ID)
	}

	// The chief must have seen the memory context and the debate results.
	chiefBundle := svc.bundles[persona.ChiefStrategist][0]
	if chiefBundle.Get("memory_context") != "precedent guidance" {
		t.Fatalf("chief memory_context = %q", chiefBundle.Get("memory_context"))
	}
	if chiefBundle.Get("debate_synthesis") != "Research synthesis." {
		t.Fatalf("chief debate_synthesis = %q", chiefBundle.Get("debate_synthesis"))
	}
}

func TestEngineFallsBackToBasic(t *testing.T) {
	svc := newFakeService(map[string]string{
		persona.ChiefStrategist: chiefReply(),
	})
	// First stage of the advanced pipeline fails outright.
	svc.errs[persona.FundamentalAnalyst] = &persona.GenerationError{
		Persona: persona.FundamentalAnalyst,
		Err:     fmt.Errorf("backend down"),
	}

	engine := NewEngine(svc, &fakeMemory{}, testConfig())
	memo, err := engine.Deliberate(context.Background(), testRequest("AAPL"))
	if err != nil {
		t.Fatalf("Deliberate: %v", err)
	}

	if memo.Workflow != models.WorkflowFallback {
		t.Fatalf("workflow = %s, want %s", memo.Workflow, models.WorkflowFallback)
	}
	if memo.Status != models.StatusComplete {
		t.Fatalf("fallback status = %s", memo.Status)
	}
	// The basic pipeline degrades the failed stage to inline error text.
	if !strings.Contains(memo.FundamentalAnalysis, "Error in Fundamental Analyst") {
		t.Fatalf("fundamental analysis = %q", memo.FundamentalAnalysis)
	}
	if memo.ResearchDebate != nil || memo.RiskDebate != nil {
		t.Fatalf("fallback memo must not carry debates")
	}
}

func TestAdvancedMemoryDegradesToPlaceholder(t *testing.T) {
	svc := newFakeService(map[string]string{persona.ChiefStrategist: chiefReply()})
	mem := &fakeMemory{insightsErr: fmt.Errorf("index corrupted")}

	engine := NewEngine(svc, mem, testConfig())
	memo, err := engine.Deliberate(context.Background(), testRequest("AAPL"))
	if err != nil {
		t.Fatalf("Deliberate: %v", err)
	}
	if memo.Workflow != models.WorkflowEnhanced {
		t.Fatalf("memory failure must not abort the pipeline, workflow = %s", memo.Workflow)
	}

	chiefBundle := svc.bundles[persona.ChiefStrategist][0]
	if chiefBundle.Get("memory_context") != noHistoricalContext {
		t.Fatalf("memory_context = %q, want placeholder", chiefBundle.Get("memory_context"))
	}
}

func TestAdvancedStoreFailureIsNotFatal(t *testing.T) {
	svc := newFakeService(map[string]string{persona.ChiefStrategist: chiefReply()})
	mem := &fakeMemory{insights: "guidance", storeErr: fmt.Errorf("disk full")}

	engine := NewEngine(svc, mem, testConfig())
	memo, err := engine.Deliberate(context.Background(), testRequest("AAPL"))
	if err != nil {
		t.Fatalf("Deliberate: %v", err)
	}
	if memo.MemoryStored {
		t.Fatalf("memory_stored must be false after a store failure")
	}
	if memo.Status != models.StatusComplete {
		t.Fatalf("status = %s", memo.Status)
	}
}

func TestAdvancedRiskManagerWhenDebateDisabled(t *testing.T) {
	svc := newFakeService(map[string]string{
		persona.ChiefStrategist: chiefReply(),
		persona.RiskManager:     "Measured risk, no explicit sizing given.",
	})
	cfg := testConfig()
	cfg.EnableRiskDebate = false

	engine := NewEngine(svc, &fakeMemory{insights: "guidance"}, cfg)
	memo, err := engine.Deliberate(context.Background(), testRequest("AAPL"))
	if err != nil {
		t.Fatalf("Deliberate: %v", err)
	}

	if memo.RiskDebate != nil {
		t.Fatalf("risk debate ran despite being disabled")
	}
	if memo.RiskAssessment != "Measured risk, no explicit sizing given." {
		t.Fatalf("risk assessment = %q", memo.RiskAssessment)
	}
	if memo.Signal.PositionSize == nil || *memo.Signal.PositionSize != 5.0 {
		t.Fatalf("position size = %v, want default 5.0", memo.Signal.PositionSize)
	}
}

func TestBasicDeliberate(t *testing.T) {
	svc := newFakeService(map[string]string{
		persona.ChiefStrategist: "Buy on weakness.",
		persona.RiskManager:     "Allocate 4% and keep powder dry.",
	})

	basic := NewBasic(svc)
	memo, err := basic.Deliberate(context.Background(), testRequest("MSFT"))
	if err != nil {
		t.Fatalf("Deliberate: %v", err)
	}

	if memo.Workflow != models.WorkflowBasic || memo.Status != models.StatusComplete {
		t.Fatalf("workflow=%s status=%s", memo.Workflow, memo.Status)
	}
	if memo.Signal.Recommendation != models.RecommendationBuy {
		t.Fatalf("recommendation = %s", memo.Signal.Recommendation)
	}
	// No confidence pattern in the chief text: the documented default applies.
	if memo.Signal.Confidence == nil || *memo.Signal.Confidence != 0.7 {
		t.Fatalf("confidence = %v, want default 0.7", memo.Signal.Confidence)
	}
	// Position size is the first bare percentage in the risk assessment.
	if memo.Signal.PositionSize == nil || *memo.Signal.PositionSize != 4 {
		t.Fatalf("position size = %v, want 4", memo.Signal.PositionSize)
	}
}

func TestSealValidation(t *testing.T) {
	price := 55.5
	staticPrice := 100.0
	base := func() *models.Memo {
		return &models.Memo{
			FundamentalAnalysis: "f",
			TechnicalAnalysis:   "t",
			SentimentAnalysis:   "s",
			ChiefAnalysis:       "we should buy this",
			Signal:              models.ExtractedSignal{Recommendation: models.RecommendationBuy},
		}
	}

	cases := []struct {
		name      string
		memo      *models.Memo
		technical *models.TechnicalSnapshot
		wantErr   string
	}{
		{
			name:      "complete",
			memo:      base(),
			technical: &models.TechnicalSnapshot{CurrentPrice: &price},
		},
		{
			name:      "technical error",
			memo:      base(),
			technical: &models.TechnicalSnapshot{Error: true, ErrorMessage: "feed timeout"},
			wantErr:   "Technical data error: feed timeout",
		},
		{
			name:      "nil technical",
			memo:      base(),
			technical: nil,
			wantErr:   "Technical data error: Unknown error",
		},
		{
			name:      "missing price",
			memo:      base(),
			technical: &models.TechnicalSnapshot{},
			wantErr:   "Invalid or static price detected: <nil>",
		},
		{
			name:      "static placeholder price",
			memo:      base(),
			technical: &models.TechnicalSnapshot{CurrentPrice: &staticPrice},
			wantErr:   "Invalid or static price detected: 100",
		},
		{
			name: "invalid recommendation",
			memo: func() *models.Memo {
				m := base()
				m.Signal.Recommendation = "Strong Buy"
				return m
			}(),
			technical: &models.TechnicalSnapshot{CurrentPrice: &price},
			wantErr:   "Invalid recommendation: Strong Buy",
		},
		{
			name: "missing stage text",
			memo: func() *models.Memo {
				m := base()
				m.SentimentAnalysis = ""
				return m
			}(),
			technical: &models.TechnicalSnapshot{CurrentPrice: &price},
			wantErr:   "Missing critical field: sentiment_analysis",
		},
		{
			name: "recommendation mismatch",
			memo: func() *models.Memo {
				m := base()
				m.ChiefAnalysis = "stay on the sidelines"
				return m
			}(),
			technical: &models.TechnicalSnapshot{CurrentPrice: &price},
			wantErr:   "Recommendation mismatch between chief strategist and top-line: Buy",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			seal(c.memo, c.technical)
			if c.wantErr == "" {
				if c.memo.Status != models.StatusComplete {
					t.Fatalf("status = %s (%s), want complete", c.memo.Status, c.memo.ErrorMessage)
				}
				return
			}
			if c.memo.Status != models.StatusError {
				t.Fatalf("status = %s, want error", c.memo.Status)
			}
			if c.memo.ErrorMessage != c.wantErr {
				t.Fatalf("error = %q, want %q", c.memo.ErrorMessage, c.wantErr)
			}
		})
	}
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	long := strings.Repeat("é", marketConditionsCap+100)
	got := truncate(long, marketConditionsCap)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated string is not valid UTF-8")
	}
	if got != strings.Repeat("é", marketConditionsCap) {
		t.Fatalf("truncated to %d runes, want %d", utf8.RuneCountInString(got), marketConditionsCap)
	}

	short := "plain ascii"
	if truncate(short, marketConditionsCap) != short {
		t.Fatalf("short string must pass through unchanged")
	}
}
