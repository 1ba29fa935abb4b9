package memory

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chimeralabs/chimera/internal/models"
	"github.com/chimeralabs/chimera/internal/persona"
)

type fakePersonaService struct {
	reply string
	calls int
}

func (f *fakePersonaService) Generate(ctx context.Context, p persona.Persona, bundle models.ContextBundle) (string, error) {
	f.calls++
	return f.reply, nil
}

func openTestSystem(t *testing.T, svc persona.Service) *System {
	t.Helper()
	sys, err := Open(filepath.Join(t.TempDir(), "memory.db"), svc)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { sys.Close() })
	return sys
}

func record(memoID, ticker, thesis string) models.SimilarityRecord {
	return models.SimilarityRecord{
		MemoID:           memoID,
		Ticker:           ticker,
		InvestmentThesis: thesis,
		RiskAssessment:   "moderate downside if growth stalls",
		Decision:         "Buy",
		Tags:             []string{"enhanced_analysis", ticker},
	}
}

func TestStoreAndAttachOutcome(t *testing.T) {
	sys := openTestSystem(t, nil)
	ctx := context.Background()

	rec := record("AAPL_20250101_090000", "AAPL", "strong services growth with sticky ecosystem")
	if err := sys.Store(ctx, rec); err != nil {
		t.Fatalf("Store: %v", err)
	}

	// Re-storing the same memo id must not error.
	if err := sys.Store(ctx, rec); err != nil {
		t.Fatalf("Store (upsert): %v", err)
	}

	if err := sys.AttachOutcome(ctx, rec.MemoID, models.OutcomeSuccess, map[string]float64{"return_pct": 8.2}); err != nil {
		t.Fatalf("AttachOutcome: %v", err)
	}

	// Attaching again is idempotent.
	if err := sys.AttachOutcome(ctx, rec.MemoID, models.OutcomeSuccess, nil); err != nil {
		t.Fatalf("AttachOutcome (repeat): %v", err)
	}
}

func TestAttachOutcomeValidation(t *testing.T) {
	sys := openTestSystem(t, nil)
	ctx := context.Background()

	if err := sys.AttachOutcome(ctx, "whatever", "sideways", nil); err == nil {
		t.Fatalf("expected invalid outcome error")
	}
	if err := sys.AttachOutcome(ctx, "missing_memo", models.OutcomeFailure, nil); err == nil {
		t.Fatalf("expected missing memo error")
	}
}

func TestStoreRequiresMemoID(t *testing.T) {
	sys := openTestSystem(t, nil)
	if err := sys.Store(context.Background(), models.SimilarityRecord{Ticker: "AAPL"}); err == nil {
		t.Fatalf("expected error for empty memo id")
	}
}

func TestFindSimilarFiltersAndRanks(t *testing.T) {
	sys := openTestSystem(t, nil)
	ctx := context.Background()

	thesis := "cloud revenue accelerating with operating leverage improving"

	labeled := record("MSFT_20250101_090000", "MSFT", thesis)
	if err := sys.Store(ctx, labeled); err != nil {
		t.Fatalf("Store labeled: %v", err)
	}
	if err := sys.AttachOutcome(ctx, labeled.MemoID, models.OutcomeSuccess, nil); err != nil {
		t.Fatalf("AttachOutcome: %v", err)
	}

	// Same text but never labeled with an outcome: must be invisible.
	unlabeled := record("MSFT_20250102_090000", "MSFT", thesis)
	if err := sys.Store(ctx, unlabeled); err != nil {
		t.Fatalf("Store unlabeled: %v", err)
	}

	similar, err := sys.FindSimilar(ctx, thesis, "moderate downside if growth stalls", 0, 0)
	if err != nil {
		t.Fatalf("FindSimilar: %v", err)
	}
	if len(similar) != 1 {
		t.Fatalf("got %d records, want 1 (unlabeled rows must be excluded)", len(similar))
	}
	if similar[0].MemoID != labeled.MemoID {
		t.Fatalf("wrong record retrieved: %s", similar[0].MemoID)
	}
	if similar[0].Similarity < 0.99 {
		t.Fatalf("identical text similarity = %v, want ~1.0", similar[0].Similarity)
	}
	if similar[0].Outcome != models.OutcomeSuccess {
		t.Fatalf("outcome not carried: %q", similar[0].Outcome)
	}
}

func TestFindSimilarMinSimilarity(t *testing.T) {
	sys := openTestSystem(t, nil)
	ctx := context.Background()

	far := record("XOM_20250101_090000", "XOM", "refining margins normalize while upstream capex shrinks")
	if err := sys.Store(ctx, far); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := sys.AttachOutcome(ctx, far.MemoID, models.OutcomeFailure, nil); err != nil {
		t.Fatalf("AttachOutcome: %v", err)
	}

	similar, err := sys.FindSimilar(ctx, "handset demand rebounding in emerging markets", "", 0, 0.99)
	if err != nil {
		t.Fatalf("FindSimilar: %v", err)
	}
	if len(similar) != 0 {
		t.Fatalf("got %d records above threshold, want 0", len(similar))
	}
}

func TestInsightsEmptyMemory(t *testing.T) {
	svc := &fakePersonaService{reply: "should not be used"}
	sys := openTestSystem(t, svc)

	text, err := sys.Insights(context.Background(), models.SimilarityRecord{
		InvestmentThesis: "fresh thesis",
	}, ModePattern)
	if err != nil {
		t.Fatalf("Insights: %v", err)
	}
	if !strings.Contains(text, "No similar historical memos found") {
		t.Fatalf("unexpected placeholder: %q", text)
	}
	if svc.calls != 0 {
		t.Fatalf("persona called despite empty memory")
	}
}

func TestInsightsSynthesizes(t *testing.T) {
	svc := &fakePersonaService{reply: "historical guidance"}
	sys := openTestSystem(t, svc)
	ctx := context.Background()

	thesis := "subscription churn falling while pricing power holds"
	rec := record("NFLX_20250101_090000", "NFLX", thesis)
	if err := sys.Store(ctx, rec); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := sys.AttachOutcome(ctx, rec.MemoID, models.OutcomeSuccess, nil); err != nil {
		t.Fatalf("AttachOutcome: %v", err)
	}

	text, err := sys.Insights(ctx, models.SimilarityRecord{InvestmentThesis: thesis}, "unknown_mode")
	if err != nil {
		t.Fatalf("Insights: %v", err)
	}
	if text != "historical guidance" {
		t.Fatalf("insights = %q", text)
	}
	if svc.calls != 1 {
		t.Fatalf("persona calls = %d, want 1", svc.calls)
	}
}

func TestLearningInsightsEmpty(t *testing.T) {
	svc := &fakePersonaService{reply: "unused"}
	sys := openTestSystem(t, svc)

	summary, err := sys.LearningInsights(context.Background())
	if err != nil {
		t.Fatalf("LearningInsights: %v", err)
	}
	if summary.TotalAnalyzed != 0 {
		t.Fatalf("total analyzed = %d, want 0", summary.TotalAnalyzed)
	}
	if !strings.Contains(summary.Insights, "No historical data available") {
		t.Fatalf("unexpected insights: %q", summary.Insights)
	}
}

func TestPerformanceAnalytics(t *testing.T) {
	sys := openTestSystem(t, nil)
	ctx := context.Background()

	wins := []string{"A_20250101_090000", "B_20250101_090000", "C_20250101_090000"}
	for _, id := range wins {
		rec := record(id, "AAPL", "thesis for "+id)
		if err := sys.Store(ctx, rec); err != nil {
			t.Fatalf("Store: %v", err)
		}
		if err := sys.AttachOutcome(ctx, id, models.OutcomeSuccess, map[string]float64{"return_pct": 10}); err != nil {
			t.Fatalf("AttachOutcome: %v", err)
		}
	}
	loss := record("D_20250101_090000", "AAPL", "losing thesis")
	if err := sys.Store(ctx, loss); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := sys.AttachOutcome(ctx, loss.MemoID, models.OutcomeFailure, map[string]float64{"return_pct": -6}); err != nil {
		t.Fatalf("AttachOutcome: %v", err)
	}

	analytics, err := sys.PerformanceAnalytics(ctx, "AAPL", "30d")
	if err != nil {
		t.Fatalf("PerformanceAnalytics: %v", err)
	}
	if analytics.TotalDecisions != 4 {
		t.Fatalf("total decisions = %d, want 4", analytics.TotalDecisions)
	}
	if analytics.SuccessRate != 0.75 {
		t.Fatalf("success rate = %v, want 0.75", analytics.SuccessRate)
	}
	// Weighted average: (10*3 + -6*1) / 4 = 6.
	if analytics.AvgReturn != 6 {
		t.Fatalf("avg return = %v, want 6", analytics.AvgReturn)
	}
	success := analytics.OutcomeBreakdown[models.OutcomeSuccess]
	if success.Count != 3 || success.AvgReturn != 10 || success.Percentage != 0.75 {
		t.Fatalf("success bucket = %+v", success)
	}

	// Other tickers are excluded by the filter.
	other, err := sys.PerformanceAnalytics(ctx, "TSLA", "30d")
	if err != nil {
		t.Fatalf("PerformanceAnalytics (other): %v", err)
	}
	if other.TotalDecisions != 0 {
		t.Fatalf("other ticker decisions = %d, want 0", other.TotalDecisions)
	}
}
