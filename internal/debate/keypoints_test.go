package debate

import (
	"strings"
	"testing"
)

func TestExtractKeyPoints(t *testing.T) {
	bull := `The growth story is intact.
- Revenue compounding at 20%
- Margin expansion ahead
1. Valuation reset creates opportunity`
	bear := `Plenty to worry about.
- Competition is eroding share
Key risk: regulation could cap growth`

	points := ExtractKeyPoints(bull, bear)

	if len(points.BullPoints) != 3 {
		t.Fatalf("bull points = %v, want 3 entries", points.BullPoints)
	}
	if points.BullPoints[0] != "Revenue compounding at 20%" {
		t.Fatalf("unexpected first bull point: %q", points.BullPoints[0])
	}
	if len(points.BearPoints) == 0 {
		t.Fatalf("no bear points extracted")
	}

	// Both sides mention "growth" and "opportunity"-adjacent vocabulary.
	var sawGrowth bool
	for _, area := range points.ConsensusAreas {
		if strings.Contains(area, "growth") {
			sawGrowth = true
		}
	}
	if !sawGrowth {
		t.Fatalf("consensus areas missing shared growth mention: %v", points.ConsensusAreas)
	}
}

func TestExtractKeyPointsCapped(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 10; i++ {
		sb.WriteString("- a point that keeps going\n")
	}
	points := ExtractKeyPoints(sb.String(), "")
	if len(points.BullPoints) != maxKeyPoints {
		t.Fatalf("bull points = %d, want cap %d", len(points.BullPoints), maxKeyPoints)
	}
}

func TestExtractRiskFactors(t *testing.T) {
	conservative := "Risk: liquidity could evaporate overnight\nConcern: leverage is far too high"
	aggressive := "Risk: liquidity could evaporate overnight" // duplicate must dedupe
	neutral := "Risk: short" // too short, dropped

	factors := ExtractRiskFactors(conservative, aggressive, neutral)

	if len(factors) != 2 {
		t.Fatalf("factors = %v, want 2 distinct entries", factors)
	}
	if factors[0] != "liquidity could evaporate overnight" {
		t.Fatalf("unexpected first factor: %q", factors[0])
	}
}
