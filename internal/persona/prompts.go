package persona

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed prompts
var promptFiles embed.FS

// Persona is a named role with fixed instructions.
type Persona struct {
	Name         string
	Instructions string
}

// Role names used across the pipeline.
const (
	FundamentalAnalyst  = "Fundamental Analyst"
	TechnicalAnalyst    = "Technical Analyst"
	SentimentAnalyst    = "Sentiment Analyst"
	ChiefStrategist     = "Chief Strategist"
	RiskManager         = "Risk Manager"
	BullResearcher      = "Bull Researcher"
	BearResearcher      = "Bear Researcher"
	ResearchDirector    = "Research Director"
	ConservativeAnalyst = "Conservative Risk Analyst"
	AggressiveAnalyst   = "Aggressive Risk Analyst"
	NeutralAnalyst      = "Neutral Risk Analyst"
	RiskDirector        = "Risk Director"
	MemoryAnalyst       = "Memory Analyst"
)

var promptPaths = map[string]string{
	FundamentalAnalyst:  "fundamental_analyst",
	TechnicalAnalyst:    "technical_analyst",
	SentimentAnalyst:    "sentiment_analyst",
	ChiefStrategist:     "chief_strategist",
	RiskManager:         "risk_manager",
	BullResearcher:      "bull_researcher",
	BearResearcher:      "bear_researcher",
	ResearchDirector:    "research_director",
	ConservativeAnalyst: "conservative_analyst",
	AggressiveAnalyst:   "aggressive_analyst",
	NeutralAnalyst:      "neutral_analyst",
	RiskDirector:        "risk_director",
	MemoryAnalyst:       "memory_analyst",
}

// Load returns the persona for a known role name with its embedded
// instructions.
func Load(name string) (Persona, error) {
	path, ok := promptPaths[name]
	if !ok {
		return Persona{}, fmt.Errorf("unknown persona: %s", name)
	}
	content, err := promptFiles.ReadFile(fmt.Sprintf("prompts/%s.md", path))
	if err != nil {
		return Persona{}, fmt.Errorf("failed to load prompt %s: %w", path, err)
	}
	return Persona{Name: name, Instructions: strings.TrimSpace(string(content))}, nil
}

// MustLoad is Load for personas known at compile time.
func MustLoad(name string) Persona {
	p, err := Load(name)
	if err != nil {
		panic(err)
	}
	return p
}
