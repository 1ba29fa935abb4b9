package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chimeralabs/chimera/config"
	"github.com/chimeralabs/chimera/internal/memory"
	"github.com/chimeralabs/chimera/internal/models"
	"github.com/chimeralabs/chimera/internal/service"
	"github.com/chimeralabs/chimera/internal/storage/sqlite"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()
	mgr, err := config.NewManager(config.WithInitialConfig(cfg))
	if err != nil {
		log.Printf("config manager unavailable, using defaults: %v", err)
	} else {
		loaded := mgr.Get()
		cfg = &loaded
	}

	rootCmd := &cobra.Command{
		Use:   "chimera",
		Short: "Chimera - AI-Powered Investment Memos",
		Long: `Chimera is a multi-persona deliberation engine powered by Large Language Models.
It produces structured investment memos through analyst personas, bull/bear research
debates, risk debates, and a precedent memory that learns from realized outcomes.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("failed to create directories: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default behavior: start interactive mode
			return runInteractiveMode(cfg, mgr)
		},
	}

	rootCmd.AddCommand(newAnalyzeCmd(cfg))
	rootCmd.AddCommand(newMemosCmd(cfg))
	rootCmd.AddCommand(newOutcomeCmd(cfg))
	rootCmd.AddCommand(newInsightsCmd(cfg))
	rootCmd.AddCommand(newConfigCmd(cfg, mgr))
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")

	return rootCmd
}

// withService wires the full service for one command invocation and tears it
// down afterwards.
func withService(cfg *config.Config, fn func(ctx context.Context, svc *service.Service) error) error {
	ctx := context.Background()
	svc, err := service.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer svc.Close()
	return fn(ctx, svc)
}

func mustParams(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// newAnalyzeCmd creates the analyze command
func newAnalyzeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [TICKER]",
		Short: "Generate an investment memo for a ticker",
		Long: `Run the full deliberation pipeline for a given stock ticker symbol and print
the resulting memo. Use --basic to skip debates and memory.
Example: chimera analyze AAPL`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ticker string
			var err error
			if len(args) > 0 {
				ticker = args[0]
			} else {
				ticker, err = PromptForTicker()
				if err != nil {
					return err
				}
			}
			basic, _ := cmd.Flags().GetBool("basic")
			return runAnalyze(cfg, ticker, basic)
		},
	}

	cmd.Flags().Bool("basic", false, "Run the basic pipeline without debates or memory")

	return cmd
}

// runAnalyze executes the memo generation workflow
func runAnalyze(cfg *config.Config, ticker string, basic bool) error {
	return withService(cfg, func(ctx context.Context, svc *service.Service) error {
		fmt.Printf("🔍 Deliberating on %s, this can take a few minutes...\n", strings.ToUpper(ticker))

		params := mustParams(map[string]string{"ticker": ticker})
		var result any
		var err error
		if basic {
			result, err = svc.GenerateMemo(ctx, params)
		} else {
			result, err = svc.GenerateEnhancedMemo(ctx, params)
		}
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}

		memo, ok := result.(*models.Memo)
		if !ok {
			return fmt.Errorf("unexpected result type %T", result)
		}
		DisplayMemo(memo)
		if memo.Status == models.StatusError {
			fmt.Println(errorStyle.Render("⚠️  Memo failed validation; see status above."))
		}
		return nil
	})
}

// newMemosCmd creates the memos command group
func newMemosCmd(cfg *config.Config) *cobra.Command {
	memosCmd := &cobra.Command{
		Use:   "memos",
		Short: "Browse stored memos",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored memos, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ticker, _ := cmd.Flags().GetString("ticker")
			limit, _ := cmd.Flags().GetInt("limit")
			return withService(cfg, func(ctx context.Context, svc *service.Service) error {
				result, err := svc.ListMemos(ctx, mustParams(map[string]any{
					"ticker": ticker,
					"limit":  limit,
				}))
				if err != nil {
					return err
				}
				memos, _ := result.([]sqlite.MemoWithMeta)
				if len(memos) == 0 {
					fmt.Println("No memos found.")
					return nil
				}
				for _, m := range memos {
					status := "✅"
					if m.Status == models.StatusError {
						status = "❌"
					}
					fmt.Printf("%s %-24s %-6s %s %s\n", status, m.ID, m.Ticker,
						recommendationStyle(m.Signal.Recommendation).Render(fmt.Sprintf("%-4s", m.Signal.Recommendation)),
						m.CreatedAt.Format("2006-01-02 15:04"))
				}
				return nil
			})
		},
	}
	listCmd.Flags().String("ticker", "", "Filter by ticker symbol")
	listCmd.Flags().Int("limit", 20, "Maximum number of memos to show")

	showCmd := &cobra.Command{
		Use:   "show [MEMO_ID]",
		Short: "Show one stored memo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cfg, func(ctx context.Context, svc *service.Service) error {
				result, err := svc.GetMemo(ctx, mustParams(map[string]string{"id": args[0]}))
				if err != nil {
					return err
				}
				memo, ok := result.(*sqlite.MemoWithMeta)
				if !ok {
					return fmt.Errorf("unexpected result type %T", result)
				}
				DisplayMemo(&memo.Memo)
				return nil
			})
		},
	}

	memosCmd.AddCommand(listCmd)
	memosCmd.AddCommand(showCmd)
	return memosCmd
}

// newOutcomeCmd creates the outcome command
func newOutcomeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outcome [MEMO_ID]",
		Short: "Record the realized outcome of a memo",
		Long: `Label a past memo with how the recommendation actually played out, so the
decision memory can learn from it.
Example: chimera outcome AAPL_20250115_093045 --result=success --return=12.5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, _ := cmd.Flags().GetString("result")
			var metrics map[string]float64

			if result == "" {
				outcome, ret, err := PromptForOutcome()
				if err != nil {
					return err
				}
				result = outcome
				if ret != nil {
					metrics = map[string]float64{"return_pct": *ret}
				}
			} else if cmd.Flags().Changed("return") {
				ret, _ := cmd.Flags().GetFloat64("return")
				metrics = map[string]float64{"return_pct": ret}
			}

			return withService(cfg, func(ctx context.Context, svc *service.Service) error {
				_, err := svc.AttachOutcome(ctx, mustParams(map[string]any{
					"memo_id":             args[0],
					"outcome":             result,
					"performance_metrics": metrics,
				}))
				if err != nil {
					return err
				}
				fmt.Println(successStyle.Render(fmt.Sprintf("✅ Outcome recorded for %s", args[0])))
				return nil
			})
		},
	}

	cmd.Flags().String("result", "", "Outcome label: success or failure")
	cmd.Flags().Float64("return", 0, "Realized return in percent")

	return cmd
}

// newInsightsCmd creates the insights command group
func newInsightsCmd(cfg *config.Config) *cobra.Command {
	insightsCmd := &cobra.Command{
		Use:   "insights",
		Short: "Analytics over past decisions",
	}

	analyticsCmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show outcome analytics for a ticker and window",
		RunE: func(cmd *cobra.Command, args []string) error {
			ticker, _ := cmd.Flags().GetString("ticker")
			window, _ := cmd.Flags().GetString("window")
			return withService(cfg, func(ctx context.Context, svc *service.Service) error {
				result, err := svc.PerformanceAnalytics(ctx, mustParams(map[string]string{
					"ticker": ticker,
					"window": window,
				}))
				if err != nil {
					return err
				}
				analytics, ok := result.(*memory.Analytics)
				if !ok {
					return fmt.Errorf("unexpected result type %T", result)
				}
				showAnalytics(ticker, window, analytics)
				return nil
			})
		},
	}
	analyticsCmd.Flags().String("ticker", "", "Ticker symbol (all tickers if omitted)")
	analyticsCmd.Flags().String("window", "30d", "Lookback window: 7d, 30d, or 90d")

	learningCmd := &cobra.Command{
		Use:   "learning",
		Short: "Show what the memory has learned from labeled outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cfg, func(ctx context.Context, svc *service.Service) error {
				result, err := svc.LearningInsights(ctx)
				if err != nil {
					return err
				}
				summary, ok := result.(*memory.LearningSummary)
				if !ok {
					return fmt.Errorf("unexpected result type %T", result)
				}
				fmt.Println(titleStyle.Render(" 🧠 Learning Insights "))
				fmt.Printf("Analyzed: %d decisions (%d success, %d failure, %.0f%% success rate)\n\n",
					summary.TotalAnalyzed, summary.SuccessfulCases, summary.FailedCases,
					summary.SuccessRate*100)
				fmt.Println(summary.Insights)
				return nil
			})
		},
	}

	insightsCmd.AddCommand(analyticsCmd)
	insightsCmd.AddCommand(learningCmd)
	return insightsCmd
}

func showAnalytics(ticker, window string, analytics *memory.Analytics) {
	label := ticker
	if label == "" {
		label = "all tickers"
	}
	fmt.Println(titleStyle.Render(fmt.Sprintf(" 📊 Performance — %s (%s) ", label, window)))

	if analytics.TotalDecisions == 0 {
		fmt.Println("No labeled outcomes in this window yet.")
		return
	}

	fmt.Printf("📋 Total decisions: %d\n", analytics.TotalDecisions)
	fmt.Printf("🎯 Success rate:    %.1f%%\n", analytics.SuccessRate*100)
	fmt.Printf("💹 Average return:  %.2f%%\n", analytics.AvgReturn)
	fmt.Println()
	for outcome, stats := range analytics.OutcomeBreakdown {
		fmt.Printf("  %-10s %3d decisions (%.0f%%), avg return %.2f%%\n",
			outcome, stats.Count, stats.Percentage*100, stats.AvgReturn)
	}
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Chimera v1.0.0")
			fmt.Println("AI-Powered Investment Memo Engine")
			fmt.Println("Built with ❤️  using Go and Large Language Models")
		},
	}
}

// newConfigCmd creates the config command
func newConfigCmd(cfg *config.Config, mgr *config.Manager) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "Manage Chimera configuration settings",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			showConfig(cfg)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "set <json>",
		Short: "Update configuration fields from a JSON fragment",
		Long: `Merge a JSON fragment over the persisted configuration and save it.
Example: chimera config set '{"max_debate_rounds": 3, "enable_memory": false}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if mgr == nil {
				return fmt.Errorf("config manager unavailable")
			}
			updated := mgr.Get()
			if err := json.Unmarshal([]byte(args[0]), &updated); err != nil {
				return fmt.Errorf("parse config json: %w", err)
			}
			if err := mgr.Update(updated); err != nil {
				return err
			}
			fmt.Println(successStyle.Render("✅ Configuration saved to " + mgr.Path()))
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(cfg)
		},
	})

	return configCmd
}

// showConfig displays the current configuration
func showConfig(cfg *config.Config) {
	fmt.Println("📋 Current Configuration:")
	fmt.Println("═══════════════════════════════════════")
	fmt.Printf("🤖 Model:                 %s\n", cfg.Model)
	if cfg.BackendURL != "" {
		fmt.Printf("🌐 Backend URL:           %s\n", cfg.BackendURL)
	}
	fmt.Printf("🔢 Max tokens:            %d\n", cfg.MaxTokens)
	fmt.Printf("🗣️  Research debate:       %v (%d rounds)\n", cfg.EnableResearchDebate, cfg.MaxDebateRounds)
	fmt.Printf("⚖️  Risk debate:           %v (%d rounds)\n", cfg.EnableRiskDebate, cfg.MaxRiskDebateRounds)
	fmt.Printf("🧠 Memory:                %v\n", cfg.EnableMemory)
	fmt.Printf("📄 Memo DB:               %s\n", cfg.MemoDBPath)
	fmt.Printf("📚 Memory DB:             %s\n", cfg.MemoryDBPath)
	fmt.Printf("📂 Results directory:     %s\n", cfg.ResultsDir)
	fmt.Printf("💾 Cache enabled:         %v\n", cfg.CacheEnabled)
	fmt.Printf("🐛 Debug mode:            %v\n", cfg.Debug)
	fmt.Println()
	fmt.Println("🔑 API Keys:")
	showKeyStatus("OpenAI", cfg.LLMAPIKey)
	showKeyStatus("Finnhub", cfg.FinnhubAPIKey)
}

func showKeyStatus(name, key string) {
	if key != "" {
		fmt.Printf("  ✅ %s: configured\n", name)
	} else {
		fmt.Printf("  ❌ %s: not set\n", name)
	}
}

// validateConfig validates the configuration
func validateConfig(cfg *config.Config) error {
	fmt.Println("🔍 Validating configuration...")

	if err := cfg.Validate(); err != nil {
		fmt.Printf("❌ Configuration invalid: %v\n", err)
		return err
	}
	if cfg.LLMAPIKey == "" {
		fmt.Println("⚠️  OPENAI_API_KEY is not set; memo generation will fail")
	}
	if cfg.FinnhubAPIKey == "" {
		fmt.Println("⚠️  FINNHUB_API_KEY is not set; fundamental snapshots will degrade")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("❌ Directory check failed: %v\n", err)
		return err
	}

	fmt.Println("✅ Configuration is valid")
	return nil
}

// runInteractiveMode starts the interactive CLI session. Config file edits made
// while the session runs are picked up between commands via the manager watch.
func runInteractiveMode(cfg *config.Config, mgr *config.Manager) error {
	fmt.Println(titleStyle.Render(" 🦁 Chimera — Investment Memo Engine "))
	fmt.Println("Type a ticker symbol to analyze it, 'help' for commands, or 'quit' to exit.")
	fmt.Println()

	if mgr != nil {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if err := mgr.Watch(ctx, func(config.Config) {
			fmt.Printf("\n🔄 Configuration reloaded from %s\n", mgr.Path())
		}); err != nil {
			log.Printf("config watch: %v", err)
		}
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("chimera> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if mgr != nil {
			current := mgr.Get()
			cfg = &current
		}

		switch strings.ToLower(input) {
		case "quit", "exit", "q":
			fmt.Println("👋 Goodbye!")
			return nil
		case "help", "h":
			printInteractiveHelp()
		case "config":
			showConfig(cfg)
		default:
			ticker := strings.ToUpper(input)
			ok, err := PromptForConfirmation(fmt.Sprintf("Run a full deliberation for %s?", ticker))
			if err != nil || !ok {
				continue
			}
			if err := runAnalyze(cfg, ticker, false); err != nil {
				fmt.Println(errorStyle.Render(fmt.Sprintf("❌ %v", err)))
			}
		}
	}
}

func printInteractiveHelp() {
	fmt.Println("Commands:")
	fmt.Println("  <TICKER>   Run the full deliberation pipeline for a ticker (e.g., AAPL)")
	fmt.Println("  config     Show the current configuration")
	fmt.Println("  help       Show this help")
	fmt.Println("  quit       Exit")
}
