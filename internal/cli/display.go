package cli

import (
	"fmt"
	"strings"

	"github.com/chimeralabs/chimera/internal/models"
)

// DisplayMemo renders a finished memo to stdout.
func DisplayMemo(memo *models.Memo) {
	fmt.Println()
	fmt.Println(titleStyle.Render(fmt.Sprintf(" 📊 Investment Memo — %s ", memo.Ticker)))

	displaySummary(memo)
	displaySection("🏦 Fundamental Analysis", memo.FundamentalAnalysis)
	displaySection("📉 Technical Analysis", memo.TechnicalAnalysis)
	displaySection("💬 Sentiment Analysis", memo.SentimentAnalysis)
	displayResearchDebate(memo.ResearchDebate)
	displaySection("🎯 Chief Strategist", memo.ChiefAnalysis)
	displayRiskDebate(memo.RiskDebate)
	displaySection("⚠️  Risk Assessment", memo.RiskAssessment)
	fmt.Println()
}

func displaySummary(memo *models.Memo) {
	rec := memo.Signal.Recommendation
	lines := []string{
		fmt.Sprintf("%s %s  %s", recommendationEmoji(rec), labelStyle.Render("Recommendation:"), recommendationStyle(rec).Render(rec)),
		fmt.Sprintf("🆔 %s %s", labelStyle.Render("Memo ID:"), memo.ID),
		fmt.Sprintf("⚙️  %s %s", labelStyle.Render("Workflow:"), memo.Workflow),
	}

	if memo.Signal.Confidence != nil {
		lines = append(lines, fmt.Sprintf("📶 %s %.0f%%", labelStyle.Render("Confidence:"), *memo.Signal.Confidence*100))
	}
	if memo.Signal.PositionSize != nil {
		lines = append(lines, fmt.Sprintf("💰 %s %.1f%% of portfolio", labelStyle.Render("Position size:"), *memo.Signal.PositionSize))
	}
	lines = append(lines, fmt.Sprintf("🌡️  %s %.1f/10 (%s)", labelStyle.Render("Risk score:"),
		memo.Signal.RiskScore, memo.Signal.RiskCategory))

	switch memo.Status {
	case models.StatusComplete:
		lines = append(lines, successStyle.Render("✅ Status: complete"))
	case models.StatusError:
		lines = append(lines, errorStyle.Render(fmt.Sprintf("❌ Status: error — %s", memo.ErrorMessage)))
	default:
		lines = append(lines, fmt.Sprintf("⏳ Status: %s", memo.Status))
	}
	if memo.MemoryStored {
		lines = append(lines, labelStyle.Render("🧠 Stored in decision memory"))
	}

	fmt.Println(boxStyle.Render(strings.Join(lines, "\n")))
}

func displaySection(title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	fmt.Println(sectionStyle.Render(title))
	fmt.Println(strings.Repeat("─", 78))
	fmt.Println(strings.TrimSpace(body))
	fmt.Println()
}

func displayResearchDebate(debate *models.ResearchDebate) {
	if debate == nil {
		return
	}
	fmt.Println(sectionStyle.Render(fmt.Sprintf("🗣️  Research Debate (%d rounds)", len(debate.Rounds))))
	fmt.Println(strings.Repeat("─", 78))
	displayKeyPoints("🐂 Bull case", debate.KeyPoints.BullPoints)
	displayKeyPoints("🐻 Bear case", debate.KeyPoints.BearPoints)
	displayKeyPoints("🤝 Consensus", debate.KeyPoints.ConsensusAreas)
	if strings.TrimSpace(debate.Synthesis) != "" {
		fmt.Println("Synthesis:")
		fmt.Println(strings.TrimSpace(debate.Synthesis))
	}
	fmt.Println()
}

func displayRiskDebate(debate *models.RiskDebate) {
	if debate == nil {
		return
	}
	fmt.Println(sectionStyle.Render(fmt.Sprintf("⚖️  Risk Debate (%d rounds)", len(debate.Rounds))))
	fmt.Println(strings.Repeat("─", 78))
	fmt.Printf("Recommended position: %.1f%%  |  Risk: %.1f/10 (%s)\n",
		debate.Final.PositionSize, debate.Final.RiskScore, debate.Final.RiskCategory)
	displayKeyPoints("🔑 Key considerations", debate.Final.KeyConsiderations)
	displayKeyPoints("👀 Monitoring", debate.Final.Monitoring)
	if strings.TrimSpace(debate.Synthesis) != "" {
		fmt.Println("Synthesis:")
		fmt.Println(strings.TrimSpace(debate.Synthesis))
	}
	fmt.Println()
}

func displayKeyPoints(title string, points []string) {
	if len(points) == 0 {
		return
	}
	fmt.Printf("%s:\n", title)
	for _, p := range points {
		fmt.Printf("  • %s\n", p)
	}
}
