// Package debate runs multi-round exchanges between opposing personas and
// synthesizes them into a balanced narrative.
package debate

import (
	"context"
	"fmt"

	"github.com/chimeralabs/chimera/internal/models"
	"github.com/chimeralabs/chimera/internal/persona"
)

// DefaultRounds is the round count used when a caller passes zero.
const DefaultRounds = 2

// Participant is one side of a debate. Key prefixes the bundle entries that
// carry this side's arguments into counterpart rounds.
type Participant struct {
	Persona persona.Persona
	Key     string
}

// run executes rounds of alternating persona invocations. In round zero every
// participant sees only the shared bundle; in later rounds each participant
// additionally sees the previous round's output of every counterpart, labeled
// as arguments to address. A failed call degrades to inline error text so the
// round always advances with some output per slot.
func run(ctx context.Context, svc persona.Service, base models.ContextBundle, parts []Participant, rounds int) []models.DebateRound {
	if rounds <= 0 {
		rounds = DefaultRounds
	}

	history := make([]models.DebateRound, 0, rounds)
	for k := 0; k < rounds; k++ {
		outputs := make(map[string]string, len(parts))
		for _, p := range parts {
			bundle := base
			if k > 0 {
				prev := history[k-1].Outputs
				for _, other := range parts {
					if other.Persona.Name == p.Persona.Name {
						continue
					}
					bundle = bundle.With(other.Key+"_arguments_to_address", prev[other.Persona.Name])
				}
			}
			text, err := svc.Generate(ctx, p.Persona, bundle)
			if err != nil {
				text = fmt.Sprintf("Error in %s: %v", p.Persona.Name, err)
			}
			outputs[p.Persona.Name] = text
		}
		history = append(history, models.DebateRound{Index: k, Outputs: outputs})
	}
	return history
}

// synthesize aggregates final-round outputs through a neutral director
// persona. Failures degrade to inline error text like any other debate slot.
func synthesize(ctx context.Context, svc persona.Service, director persona.Persona, bundle models.ContextBundle) string {
	text, err := svc.Generate(ctx, director, bundle)
	if err != nil {
		return fmt.Sprintf("Error in %s: %v", director.Name, err)
	}
	return text
}
