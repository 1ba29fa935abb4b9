package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/chimeralabs/chimera/config"
	"github.com/chimeralabs/chimera/internal/dataflows"
	"github.com/chimeralabs/chimera/internal/models"
	"github.com/chimeralabs/chimera/internal/persona"
	"github.com/chimeralabs/chimera/internal/storage/sqlite"
)

type fakePersonaService struct{}

func (fakePersonaService) Generate(ctx context.Context, p persona.Persona, bundle models.ContextBundle) (string, error) {
	return fmt.Sprintf("analysis from %s", p.Name), nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfigWithRoot(dir)

	memos, err := sqlite.Open(filepath.Join(dir, "memos.db"))
	if err != nil {
		t.Fatalf("open memo store: %v", err)
	}
	t.Cleanup(func() { memos.Close() })

	return NewWithComponents(cfg, fakePersonaService{}, memos, nil, dataflows.NewSnapshotBuilder(cfg))
}

func decodeResponse(t *testing.T, raw string) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("invalid response %q: %v", raw, err)
	}
	return resp
}

func TestDispatchUnknownMethod(t *testing.T) {
	svc := newTestService(t)
	resp := decodeResponse(t, svc.Dispatch(context.Background(), "no.such.method", "{}"))
	if resp.Code != 404 || resp.Msg != "Method not found" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestDispatchSystemInfo(t *testing.T) {
	svc := newTestService(t)
	resp := decodeResponse(t, svc.Dispatch(context.Background(), "system.info", "{}"))
	if resp.Code != 200 {
		t.Fatalf("response = %+v", resp)
	}
	info, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("data = %T", resp.Data)
	}
	if info["name"] != "chimera" {
		t.Fatalf("name = %v", info["name"])
	}
	if info["memory_enabled"] != false {
		t.Fatalf("memory_enabled = %v, want false without a memory system", info["memory_enabled"])
	}
}

func TestDispatchMemoryDisabled(t *testing.T) {
	svc := newTestService(t)
	for _, method := range []string{"memory.similar", "memory.outcome", "memory.insights", "memory.analytics", "memory.learning"} {
		resp := decodeResponse(t, svc.Dispatch(context.Background(), method, `{"memo_id":"x","outcome":"success"}`))
		if resp.Code != 500 || resp.Msg != "memory system not enabled" {
			t.Fatalf("%s response = %+v", method, resp)
		}
	}
}

func TestDispatchInvalidTicker(t *testing.T) {
	svc := newTestService(t)
	resp := decodeResponse(t, svc.Dispatch(context.Background(), "memo.generate", `{"ticker":"WAYTOOLONGTICKER"}`))
	if resp.Code != 500 {
		t.Fatalf("response = %+v", resp)
	}
}

func TestDispatchGetMemoNotFound(t *testing.T) {
	svc := newTestService(t)
	resp := decodeResponse(t, svc.Dispatch(context.Background(), "memo.get", `{"id":"missing"}`))
	if resp.Code != 500 || resp.Msg != "memo missing not found" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestConductResearchDebate(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.ConductResearchDebate(context.Background(), `{
		"ticker": "AAPL",
		"fundamental_analysis": "solid",
		"technical_analysis": "uptrend",
		"sentiment_analysis": "positive",
		"rounds": 1
	}`)
	if err != nil {
		t.Fatalf("ConductResearchDebate: %v", err)
	}
	debate, ok := result.(*models.ResearchDebate)
	if !ok {
		t.Fatalf("result = %T", result)
	}
	if len(debate.Rounds) != 1 {
		t.Fatalf("rounds = %d, want 1", len(debate.Rounds))
	}
	if debate.BullAnalysis == "" || debate.BearAnalysis == "" || debate.Synthesis == "" {
		t.Fatalf("debate incomplete: %+v", debate)
	}
}

func TestConductResearchDebateRequiresTicker(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.ConductResearchDebate(context.Background(), `{"rounds":1}`); err == nil {
		t.Fatalf("expected error for missing ticker")
	}
}

func TestConductRiskDebate(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.ConductRiskDebate(context.Background(), `{
		"ticker": "AAPL",
		"investment_thesis": "buy the dip",
		"market_conditions": "choppy",
		"rounds": 1
	}`)
	if err != nil {
		t.Fatalf("ConductRiskDebate: %v", err)
	}
	debate, ok := result.(*models.RiskDebate)
	if !ok {
		t.Fatalf("result = %T", result)
	}
	if debate.Final.PositionSize != 5.0 {
		t.Fatalf("position size = %v, want default 5.0 with no sizing in text", debate.Final.PositionSize)
	}
}

func TestListMemosEmpty(t *testing.T) {
	svc := newTestService(t)
	result, err := svc.ListMemos(context.Background(), `{"ticker":"aapl"}`)
	if err != nil {
		t.Fatalf("ListMemos: %v", err)
	}
	memos, _ := result.([]sqlite.MemoWithMeta)
	if len(memos) != 0 {
		t.Fatalf("memos = %d, want 0", len(memos))
	}
}
