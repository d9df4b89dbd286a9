package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// Unified LLM configuration (OpenAI-compatible protocol)
	// All providers (openai, deepseek, siliconflow, ollama) use the same config
	LLMProvider string // Provider identifier: openai, deepseek, siliconflow, ollama
	LLMAPIKey   string // Unified LLM API key
	LLMBaseURL  string // Unified LLM base URL (optional, has default per provider)
	LLMModel    string // Model name: gpt-4o-mini, deepseek-chat, etc.
	LLMTimeout  int    // LLM request timeout in seconds (default: 60)

	// Embedding configuration
	EmbeddingProvider string
	EmbeddingModel    string
	EmbeddingAPIKey   string
	EmbeddingBaseURL  string
	EmbeddingDims     int

	// Reranker configuration
	RerankProvider string
	RerankModel    string
	RerankAPIKey   string
	RerankBaseURL  string
	RerankTimeout  int // Rerank request timeout in seconds (default: 15)

	// Web search configuration
	WebSearchEnabled bool
	WebSearchHits    int
	WebSearchTimeout int // seconds

	// Answer pipeline tuning
	RetrieverK      int     // candidates per retrieval leg (default: 12)
	RerankTopN      int     // documents kept after rerank (default: 4)
	DenseWeight     float64 // fused score dense weight (default: 0.7)
	SparseWeight    float64 // fused score sparse weight (default: 0.3)
	LocalThreshold  float64 // min rerank score for the local stage (default: 0.15)
	FuzzyScore      int     // min fuzzy score 0-100 (default: 80)
	FuzzyLimit      int     // fuzzy candidate snippets (default: 3)
	CacheTTLSeconds int     // response cache TTL (default: 600)
	SessionTTLMin   int     // session idle TTL in minutes (default: 30)

	// Server / storage
	Mode        string
	Addr        string
	Port        int
	Data        string
	Driver      string // sqlite | postgres
	DSN         string
	InstanceURL string
	Version     string
}

// Provider default configurations for LLM.
// Used when URCBOT_LLM_BASE_URL is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-mini",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "Qwen/Qwen2.5-72B-Instruct",
	},
	"ollama": {
		BaseURL: "http://localhost:11434/v1",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsLLMEnabled returns true if a generation API key is configured.
func (p *Profile) IsLLMEnabled() bool {
	return p.LLMAPIKey != "" || p.LLMProvider == "ollama"
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvOrDefaultFloat returns environment variable value as float64 or default value.
func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	// Unified LLM configuration
	p.LLMProvider = getEnvOrDefault("URCBOT_LLM_PROVIDER", "openai")
	p.LLMAPIKey = getEnvOrDefault("URCBOT_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("URCBOT_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("URCBOT_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("URCBOT_LLM_TIMEOUT_SECONDS", 60)

	if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
		slog.Warn("unknown LLM provider, using default: openai", "provider", p.LLMProvider)
		p.LLMProvider = "openai"
	}
	if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
		if p.LLMBaseURL == "" {
			p.LLMBaseURL = defaults.BaseURL
		}
		if p.LLMModel == "" {
			p.LLMModel = defaults.Model
		}
	}

	// Embedding configuration
	p.EmbeddingProvider = getEnvOrDefault("URCBOT_EMBEDDING_PROVIDER", "siliconflow")
	p.EmbeddingModel = getEnvOrDefault("URCBOT_EMBEDDING_MODEL", "BAAI/bge-m3")
	p.EmbeddingAPIKey = getEnvOrDefault("URCBOT_EMBEDDING_API_KEY", "")
	p.EmbeddingBaseURL = getEnvOrDefault("URCBOT_EMBEDDING_BASE_URL", "https://api.siliconflow.cn/v1")
	p.EmbeddingDims = getEnvOrDefaultInt("URCBOT_EMBEDDING_DIMENSIONS", 1024)

	// Reranker configuration
	p.RerankProvider = getEnvOrDefault("URCBOT_RERANK_PROVIDER", "siliconflow")
	p.RerankModel = getEnvOrDefault("URCBOT_RERANK_MODEL", "BAAI/bge-reranker-v2-m3")
	p.RerankAPIKey = getEnvOrDefault("URCBOT_RERANK_API_KEY", "")
	p.RerankBaseURL = getEnvOrDefault("URCBOT_RERANK_BASE_URL", "https://api.siliconflow.cn/v1")
	p.RerankTimeout = getEnvOrDefaultInt("URCBOT_RERANK_TIMEOUT_SECONDS", 15)

	// Web search
	p.WebSearchEnabled = getEnvOrDefault("URCBOT_WEBSEARCH_ENABLED", "true") == "true"
	p.WebSearchHits = getEnvOrDefaultInt("URCBOT_WEBSEARCH_HITS", 5)
	p.WebSearchTimeout = getEnvOrDefaultInt("URCBOT_WEBSEARCH_TIMEOUT_SECONDS", 10)

	// Pipeline tuning
	p.RetrieverK = getEnvOrDefaultInt("URCBOT_RETRIEVER_K", 12)
	p.RerankTopN = getEnvOrDefaultInt("URCBOT_RERANK_TOP_N", 4)
	p.DenseWeight = getEnvOrDefaultFloat("URCBOT_DENSE_WEIGHT", 0.7)
	p.SparseWeight = getEnvOrDefaultFloat("URCBOT_SPARSE_WEIGHT", 0.3)
	p.LocalThreshold = getEnvOrDefaultFloat("URCBOT_LOCAL_THRESHOLD", 0.15)
	p.FuzzyScore = getEnvOrDefaultInt("URCBOT_FUZZY_SCORE", 80)
	p.FuzzyLimit = getEnvOrDefaultInt("URCBOT_FUZZY_LIMIT", 3)
	p.CacheTTLSeconds = getEnvOrDefaultInt("URCBOT_CACHE_TTL_SECONDS", 600)
	p.SessionTTLMin = getEnvOrDefaultInt("URCBOT_SESSION_TTL_MINUTES", 30)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		p.Data = "/var/opt/urcbot"
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q (want sqlite or postgres)", p.Driver)
	}

	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("urcbot_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("postgres driver requires a DSN")
	}

	if p.DenseWeight+p.SparseWeight <= 0 {
		return errors.New("retrieval weights must be positive")
	}

	return nil
}
