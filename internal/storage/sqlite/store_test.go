package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/chimeralabs/chimera/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "memos.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleMemo(id, ticker string) *models.Memo {
	return &models.Memo{
		ID:                  id,
		Ticker:              ticker,
		CreatedAt:           time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
		FundamentalAnalysis: "fundamentals look fine",
		TechnicalAnalysis:   "trend is up",
		SentimentAnalysis:   "mildly positive",
		ChiefAnalysis:       "buy with conviction",
		RiskAssessment:      "manageable risk",
		Signal: models.ExtractedSignal{
			Recommendation: models.RecommendationBuy,
			Confidence:     models.Float(0.8),
			RiskScore:      4.2,
			RiskCategory:   models.RiskMedium,
		},
		Status:   models.StatusComplete,
		Workflow: models.WorkflowEnhanced,
	}
}

func TestSaveAndGetMemo(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	memo := sampleMemo("AAPL_20250601_093000", "AAPL")
	memo.ResearchDebate = &models.ResearchDebate{
		BullAnalysis: "bull case",
		BearAnalysis: "bear case",
		Synthesis:    "synthesis",
	}
	if err := store.SaveMemo(ctx, memo); err != nil {
		t.Fatalf("SaveMemo: %v", err)
	}

	got, err := store.GetMemo(ctx, memo.ID)
	if err != nil {
		t.Fatalf("GetMemo: %v", err)
	}
	if got == nil {
		t.Fatalf("memo not found after save")
	}
	if got.Ticker != "AAPL" || got.ChiefAnalysis != "buy with conviction" {
		t.Fatalf("roundtrip mismatch: %+v", got.Memo)
	}
	if !got.CreatedAt.Equal(memo.CreatedAt) {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, memo.CreatedAt)
	}
	if got.Signal.Confidence == nil || *got.Signal.Confidence != 0.8 {
		t.Fatalf("signal confidence = %v", got.Signal.Confidence)
	}
	if got.ResearchDebate == nil || got.ResearchDebate.BullAnalysis != "bull case" {
		t.Fatalf("research debate not decoded: %+v", got.ResearchDebate)
	}
	if got.RiskDebate != nil {
		t.Fatalf("risk debate should be nil, got %+v", got.RiskDebate)
	}
}

func TestGetMemoAbsent(t *testing.T) {
	store := openTestStore(t)
	got, err := store.GetMemo(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetMemo: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for absent memo, got %+v", got)
	}
}

func TestSaveMemoUpsert(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	memo := sampleMemo("TSLA_20250601_093000", "TSLA")
	if err := store.SaveMemo(ctx, memo); err != nil {
		t.Fatalf("SaveMemo: %v", err)
	}
	memo.Status = models.StatusError
	memo.ErrorMessage = "Invalid recommendation: Maybe"
	if err := store.SaveMemo(ctx, memo); err != nil {
		t.Fatalf("SaveMemo (update): %v", err)
	}

	got, err := store.GetMemo(ctx, memo.ID)
	if err != nil {
		t.Fatalf("GetMemo: %v", err)
	}
	if got.Status != models.StatusError || got.ErrorMessage != "Invalid recommendation: Maybe" {
		t.Fatalf("update not applied: status=%s msg=%q", got.Status, got.ErrorMessage)
	}

	memos, err := store.ListMemos(ctx, "TSLA", 0, 0)
	if err != nil {
		t.Fatalf("ListMemos: %v", err)
	}
	if len(memos) != 1 {
		t.Fatalf("upsert produced %d rows, want 1", len(memos))
	}
}

func TestListMemosFilterAndPaging(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ids := []string{"AAPL_1", "AAPL_2", "MSFT_1", "AAPL_3"}
	for _, id := range ids {
		ticker := id[:4]
		if err := store.SaveMemo(ctx, sampleMemo(id, ticker)); err != nil {
			t.Fatalf("SaveMemo %s: %v", id, err)
		}
	}

	all, err := store.ListMemos(ctx, "", 0, 0)
	if err != nil {
		t.Fatalf("ListMemos: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("got %d memos, want 4", len(all))
	}
	// Newest insert first.
	if all[0].ID != "AAPL_3" {
		t.Fatalf("first memo = %s, want AAPL_3", all[0].ID)
	}

	aapl, err := store.ListMemos(ctx, "AAPL", 0, 0)
	if err != nil {
		t.Fatalf("ListMemos(AAPL): %v", err)
	}
	if len(aapl) != 3 {
		t.Fatalf("got %d AAPL memos, want 3", len(aapl))
	}

	// Page with the cursor: rows strictly older than the first page's last row.
	page1, err := store.ListMemos(ctx, "", 0, 2)
	if err != nil {
		t.Fatalf("ListMemos page1: %v", err)
	}
	if len(page1) != 2 {
		t.Fatalf("page1 has %d rows, want 2", len(page1))
	}
	page2, err := store.ListMemos(ctx, "", page1[len(page1)-1].RowID, 2)
	if err != nil {
		t.Fatalf("ListMemos page2: %v", err)
	}
	if len(page2) != 2 {
		t.Fatalf("page2 has %d rows, want 2", len(page2))
	}
	if page2[0].ID == page1[1].ID {
		t.Fatalf("pages overlap at %s", page2[0].ID)
	}
}

func TestSaveMemoRequiresID(t *testing.T) {
	store := openTestStore(t)
	if err := store.SaveMemo(context.Background(), &models.Memo{Ticker: "AAPL"}); err == nil {
		t.Fatalf("expected error for memo without id")
	}
}
