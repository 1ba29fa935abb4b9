package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ProjectDir   string `json:"project_dir"`
	ResultsDir   string `json:"results_dir"`
	DataDir      string `json:"data_dir"`
	DataCacheDir string `json:"data_cache_dir"`

	// LLM backend (OpenAI-compatible endpoint)
	Model      string `json:"model"`
	BackendURL string `json:"backend_url"`
	LLMAPIKey  string `json:"-"`
	MaxTokens  int    `json:"max_tokens"`

	// Deliberation controls
	MaxDebateRounds      int  `json:"max_debate_rounds"`
	MaxRiskDebateRounds  int  `json:"max_risk_debate_rounds"`
	EnableResearchDebate bool `json:"enable_research_debate"`
	EnableRiskDebate     bool `json:"enable_risk_debate"`
	EnableMemory         bool `json:"enable_memory"`

	MemoDBPath   string `json:"memo_db_path"`
	MemoryDBPath string `json:"memory_db_path"`

	CacheEnabled bool `json:"cache_enabled"`
	Debug        bool `json:"debug"`

	// Market data API keys
	FinnhubAPIKey string `json:"-"`
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	cfg := &Config{
		ProjectDir:   currentDir,
		ResultsDir:   filepath.Join(currentDir, "results"),
		DataDir:      filepath.Join(currentDir, "data"),
		DataCacheDir: filepath.Join(currentDir, "data", "cache"),

		Model:      "gpt-4o-mini",
		BackendURL: "",
		MaxTokens:  4000,

		MaxDebateRounds:      2,
		MaxRiskDebateRounds:  2,
		EnableResearchDebate: true,
		EnableRiskDebate:     true,
		EnableMemory:         true,

		MemoDBPath:   filepath.Join(currentDir, "data", "memos.db"),
		MemoryDBPath: filepath.Join(currentDir, "data", "memory.db"),

		CacheEnabled: true,
		Debug:        false,
	}

	// Load environment variables from .env file
	_ = godotenv.Load()

	// Override with environment variables if they exist
	cfg.loadFromEnv()

	return cfg
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("PROJECT_DIR"); val != "" {
		c.ProjectDir = val
	}
	if val := os.Getenv("RESULTS_DIR"); val != "" {
		c.ResultsDir = val
	}
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("DATA_CACHE_DIR"); val != "" {
		c.DataCacheDir = val
	}

	if val := os.Getenv("CHIMERA_MODEL"); val != "" {
		c.Model = val
	}
	if val := os.Getenv("BACKEND_URL"); val != "" {
		c.BackendURL = val
	}
	if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		c.LLMAPIKey = val
	}
	if val := os.Getenv("CHIMERA_MAX_TOKENS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxTokens = v
		}
	}

	if val := os.Getenv("MAX_DEBATE_ROUNDS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxDebateRounds = v
		}
	}
	if val := os.Getenv("MAX_RISK_DEBATE_ROUNDS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxRiskDebateRounds = v
		}
	}
	if val := os.Getenv("ENABLE_RESEARCH_DEBATE"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.EnableResearchDebate = enabled
		}
	}
	if val := os.Getenv("ENABLE_RISK_DEBATE"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.EnableRiskDebate = enabled
		}
	}
	if val := os.Getenv("ENABLE_MEMORY"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.EnableMemory = enabled
		}
	}

	if val := os.Getenv("MEMO_DB_PATH"); val != "" {
		c.MemoDBPath = val
	}
	if val := os.Getenv("MEMORY_DB_PATH"); val != "" {
		c.MemoryDBPath = val
	}

	if val := os.Getenv("CACHE_ENABLED"); val != "" {
		if cache, err := strconv.ParseBool(val); err == nil {
			c.CacheEnabled = cache
		}
	}
	if val := os.Getenv("CHIMERA_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}

	if val := os.Getenv("FINNHUB_API_KEY"); val != "" {
		c.FinnhubAPIKey = val
	}
}

// DefaultConfigWithRoot returns the default config anchored under root
// instead of the working directory.
func DefaultConfigWithRoot(root string) *Config {
	cfg := DefaultConfig()
	cfg.ProjectDir = root
	cfg.ResultsDir = filepath.Join(root, "results")
	cfg.DataDir = filepath.Join(root, "data")
	cfg.DataCacheDir = filepath.Join(root, "data", "cache")
	cfg.MemoDBPath = filepath.Join(root, "data", "memos.db")
	cfg.MemoryDBPath = filepath.Join(root, "data", "memory.db")
	return cfg
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("model is required")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens)
	}
	if c.MaxDebateRounds < 1 {
		return fmt.Errorf("max_debate_rounds must be at least 1, got %d", c.MaxDebateRounds)
	}
	if c.MaxRiskDebateRounds < 1 {
		return fmt.Errorf("max_risk_debate_rounds must be at least 1, got %d", c.MaxRiskDebateRounds)
	}
	return nil
}

func loadConfigFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.ProjectDir, c.ResultsDir, c.DataDir, c.DataCacheDir}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}
