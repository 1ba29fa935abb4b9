package debate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/chimeralabs/chimera/internal/models"
)

const maxKeyPoints = 5

var bulletPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*[-•*]\s*(.+)$`),
	regexp.MustCompile(`^\s*\d+\.\s*(.+)$`),
	regexp.MustCompile(`(?i)(?:Key|Important|Critical|Major)\s+(?:point|factor|consideration|risk):\s*(.+)$`),
}

// Shared vocabulary terms checked on both sides of the research debate.
var consensusKeywords = []string{
	"volatility", "uncertainty", "competition", "regulation", "market conditions",
	"valuation", "growth", "risk", "opportunity", "challenge",
}

var riskFactorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:risk|concern|threat|challenge):\s*([^\n.]+)`),
	regexp.MustCompile(`(?i)(?:key|major|primary)\s+(?:risk|concern):\s*([^\n.]+)`),
	regexp.MustCompile(`(?m)^\s*[-*]\s*(.+)$`),
}

// ExtractKeyPoints pulls the top bullet-like lines from both sides of the
// research debate and reports shared-vocabulary consensus areas.
func ExtractKeyPoints(bullText, bearText string) models.KeyPoints {
	return models.KeyPoints{
		BullPoints:     extractBulletPoints(bullText, maxKeyPoints),
		BearPoints:     extractBulletPoints(bearText, maxKeyPoints),
		ConsensusAreas: findConsensusAreas(bullText, bearText),
	}
}

func extractBulletPoints(text string, limit int) []string {
	lines := strings.Split(text, "\n")
	points := make([]string, 0, limit)
	for _, pattern := range bulletPatterns {
		for _, line := range lines {
			m := pattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			point := strings.TrimSpace(m[1])
			if point != "" {
				points = append(points, point)
			}
		}
	}
	if len(points) > limit {
		points = points[:limit]
	}
	return points
}

func findConsensusAreas(bullText, bearText string) []string {
	bullLower := strings.ToLower(bullText)
	bearLower := strings.ToLower(bearText)

	areas := make([]string, 0, len(consensusKeywords))
	for _, kw := range consensusKeywords {
		if strings.Contains(bullLower, kw) && strings.Contains(bearLower, kw) {
			areas = append(areas, fmt.Sprintf("Both analyses mention %s", kw))
		}
	}
	return areas
}

// ExtractRiskFactors collects distinct risk-factor statements across the risk
// analyses, first-seen order, top 10.
func ExtractRiskFactors(texts ...string) []string {
	const limit = 10
	seen := make(map[string]bool)
	factors := make([]string, 0, limit)
	for _, text := range texts {
		for _, pattern := range riskFactorPatterns {
			for _, m := range pattern.FindAllStringSubmatch(text, -1) {
				factor := strings.TrimSpace(m[1])
				if len(factor) <= 10 || seen[factor] {
					continue
				}
				seen[factor] = true
				factors = append(factors, factor)
			}
		}
	}
	if len(factors) > limit {
		factors = factors[:limit]
	}
	return factors
}
