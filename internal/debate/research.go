package debate

import (
	"context"

	"github.com/chimeralabs/chimera/internal/models"
	"github.com/chimeralabs/chimera/internal/persona"
)

// ResearchTeam runs the bull/bear research debate.
type ResearchTeam struct {
	svc      persona.Service
	bull     persona.Persona
	bear     persona.Persona
	director persona.Persona
	rounds   int
}

// NewResearchTeam wires the research debate personas. rounds <= 0 selects
// DefaultRounds.
func NewResearchTeam(svc persona.Service, rounds int) *ResearchTeam {
	return &ResearchTeam{
		svc:      svc,
		bull:     persona.MustLoad(persona.BullResearcher),
		bear:     persona.MustLoad(persona.BearResearcher),
		director: persona.MustLoad(persona.ResearchDirector),
		rounds:   rounds,
	}
}

// Conduct runs the configured number of rounds over the shared context and
// synthesizes the result. The bundle is expected to carry the ticker and the
// three analyst reports.
func (t *ResearchTeam) Conduct(ctx context.Context, bundle models.ContextBundle) *models.ResearchDebate {
	parts := []Participant{
		{Persona: t.bull, Key: "bull"},
		{Persona: t.bear, Key: "bear"},
	}

	rounds := run(ctx, t.svc, bundle, parts, t.rounds)
	final := rounds[len(rounds)-1].Outputs
	bullFinal := final[t.bull.Name]
	bearFinal := final[t.bear.Name]

	synthesis := synthesize(ctx, t.svc, t.director, bundle.With(
		"bull_analysis", bullFinal,
		"bear_analysis", bearFinal,
	))

	return &models.ResearchDebate{
		BullAnalysis: bullFinal,
		BearAnalysis: bearFinal,
		Synthesis:    synthesis,
		Rounds:       rounds,
		KeyPoints:    ExtractKeyPoints(bullFinal, bearFinal),
	}
}
