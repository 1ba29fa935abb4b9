package debate

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/chimeralabs/chimera/internal/models"
	"github.com/chimeralabs/chimera/internal/persona"
)

// fakeService replays canned outputs per persona and records every bundle it
// was called with.
type fakeService struct {
	replies map[string]string
	errs    map[string]error
	calls   []call
}

type call struct {
	persona string
	bundle  models.ContextBundle
}

func (f *fakeService) Generate(ctx context.Context, p persona.Persona, bundle models.ContextBundle) (string, error) {
	f.calls = append(f.calls, call{persona: p.Name, bundle: bundle})
	if err, ok := f.errs[p.Name]; ok {
		return "", err
	}
	if reply, ok := f.replies[p.Name]; ok {
		return reply, nil
	}
	return fmt.Sprintf("analysis from %s", p.Name), nil
}

func TestResearchDebateRounds(t *testing.T) {
	svc := &fakeService{replies: map[string]string{
		persona.BullResearcher:   "- Growth runway is long\nStrong buy case given the valuation reset.",
		persona.BearResearcher:   "- Competition is intensifying\nValuation still rich despite growth.",
		persona.ResearchDirector: "Balanced synthesis of both sides.",
	}}

	team := NewResearchTeam(svc, 2)
	bundle := models.NewContextBundle("AAPL").With("fundamental_analysis", "solid")
	result := team.Conduct(context.Background(), bundle)

	if len(result.Rounds) != 2 {
		t.Fatalf("expected 2 rounds, got %d", len(result.Rounds))
	}
	for i, round := range result.Rounds {
		if round.Index != i {
			t.Fatalf("round %d has index %d", i, round.Index)
		}
		if len(round.Outputs) != 2 {
			t.Fatalf("round %d has %d outputs, want 2", i, len(round.Outputs))
		}
	}
	if result.BullAnalysis == "" || result.BearAnalysis == "" {
		t.Fatalf("final arguments missing")
	}
	if result.Synthesis != "Balanced synthesis of both sides." {
		t.Fatalf("unexpected synthesis: %q", result.Synthesis)
	}
}

func TestResearchDebateCounterpartArguments(t *testing.T) {
	svc := &fakeService{replies: map[string]string{
		persona.BullResearcher: "bull says up",
		persona.BearResearcher: "bear says down",
	}}

	team := NewResearchTeam(svc, 2)
	team.Conduct(context.Background(), models.NewContextBundle("AAPL"))

	// Calls: bull r0, bear r0, bull r1, bear r1, director.
	var sawBullRebuttal, sawBearRebuttal bool
	for _, c := range svc.calls {
		switch c.persona {
		case persona.BullResearcher:
			if c.bundle.Get("bear_arguments_to_address") == "bear says down" {
				sawBullRebuttal = true
			}
			if c.bundle.Get("bull_arguments_to_address") != "" {
				t.Fatalf("bull saw its own arguments")
			}
		case persona.BearResearcher:
			if c.bundle.Get("bull_arguments_to_address") == "bull says up" {
				sawBearRebuttal = true
			}
		}
	}
	if !sawBullRebuttal || !sawBearRebuttal {
		t.Fatalf("round 1 did not carry counterpart arguments (bull=%v bear=%v)", sawBullRebuttal, sawBearRebuttal)
	}

	// Round zero must not carry rebuttal keys.
	first := svc.calls[0]
	if first.bundle.Get("bear_arguments_to_address") != "" || first.bundle.Get("bull_arguments_to_address") != "" {
		t.Fatalf("round 0 carried rebuttal arguments")
	}
}

// sequenceService numbers each persona's replies so outputs from different
// rounds are distinguishable.
type sequenceService struct {
	counts map[string]int
	calls  []call
}

func (f *sequenceService) Generate(ctx context.Context, p persona.Persona, bundle models.ContextBundle) (string, error) {
	f.calls = append(f.calls, call{persona: p.Name, bundle: bundle})
	n := f.counts[p.Name]
	f.counts[p.Name]++
	return fmt.Sprintf("%s argument %d", p.Name, n), nil
}

func TestResearchDebateCarriesOnlyPreviousRound(t *testing.T) {
	svc := &sequenceService{counts: map[string]int{}}

	team := NewResearchTeam(svc, 3)
	team.Conduct(context.Background(), models.NewContextBundle("AAPL"))

	var bullCalls []call
	for _, c := range svc.calls {
		if c.persona == persona.BullResearcher {
			bullCalls = append(bullCalls, c)
		}
	}
	if len(bullCalls) != 3 {
		t.Fatalf("bull invoked %d times, want 3", len(bullCalls))
	}

	// Each round must carry exactly the counterpart's previous-round output,
	// never anything older.
	for k := 1; k < len(bullCalls); k++ {
		want := fmt.Sprintf("%s argument %d", persona.BearResearcher, k-1)
		got := bullCalls[k].bundle.Get("bear_arguments_to_address")
		if got != want {
			t.Fatalf("round %d rebuttal = %q, want %q", k, got, want)
		}
	}
	if bullCalls[0].bundle.Get("bear_arguments_to_address") != "" {
		t.Fatalf("round 0 carried rebuttal arguments")
	}
}

func TestDebateDegradesOnError(t *testing.T) {
	svc := &fakeService{
		replies: map[string]string{persona.BearResearcher: "bear holds the floor"},
		errs:    map[string]error{persona.BullResearcher: fmt.Errorf("backend down")},
	}

	team := NewResearchTeam(svc, 1)
	result := team.Conduct(context.Background(), models.NewContextBundle("AAPL"))

	if !strings.Contains(result.BullAnalysis, "Error in Bull Researcher") {
		t.Fatalf("failed slot not degraded inline: %q", result.BullAnalysis)
	}
	if result.BearAnalysis != "bear holds the floor" {
		t.Fatalf("healthy slot affected by failure: %q", result.BearAnalysis)
	}
}

func TestRiskDebateMetrics(t *testing.T) {
	svc := &fakeService{replies: map[string]string{
		persona.ConservativeAnalyst: "This is high risk and volatile. Position size: 2% with 60% confidence.\nRisk: liquidity could dry up quickly",
		persona.AggressiveAnalyst:   "Great opportunity. Take a 15% position with 90% confidence.",
		persona.NeutralAnalyst:      "Balanced view, a 6% position looks right with 75% confidence.",
		persona.RiskDirector:        "Risk synthesis.",
	}}

	team := NewRiskTeam(svc, 1)
	result := team.Conduct(context.Background(), models.NewContextBundle("AAPL").With(
		"investment_thesis", "thesis",
	))

	m := result.Metrics
	if m.ConservativeSize == nil || *m.ConservativeSize != 2 {
		t.Fatalf("conservative size = %v, want 2", m.ConservativeSize)
	}
	if m.AggressiveSize == nil || *m.AggressiveSize != 15 {
		t.Fatalf("aggressive size = %v, want 15", m.AggressiveSize)
	}
	if m.NeutralSize == nil || *m.NeutralSize != 6 {
		t.Fatalf("neutral size = %v, want 6", m.NeutralSize)
	}
	// The neutral size carries through to the recommendation.
	if m.RecommendedSize != 6 || result.Final.PositionSize != 6 {
		t.Fatalf("recommended size = %v / %v, want 6", m.RecommendedSize, result.Final.PositionSize)
	}
	if m.RiskScore <= 0 || m.RiskCategory == "" {
		t.Fatalf("risk score/category not derived: %v %q", m.RiskScore, m.RiskCategory)
	}
	if len(result.Final.Monitoring) == 0 {
		t.Fatalf("monitoring requirements missing")
	}
}

func TestRiskDebateDefaultsWithoutNeutralSize(t *testing.T) {
	svc := &fakeService{replies: map[string]string{
		persona.NeutralAnalyst: "No numbers here at all.",
	}}

	team := NewRiskTeam(svc, 1)
	result := team.Conduct(context.Background(), models.NewContextBundle("AAPL"))

	if result.Metrics.RecommendedSize != 5.0 {
		t.Fatalf("recommended size = %v, want default 5.0", result.Metrics.RecommendedSize)
	}
}
