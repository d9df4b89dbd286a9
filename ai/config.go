// Package ai aggregates the answer pipeline configuration from the
// runtime profile.
package ai

import (
	"time"

	"github.com/cheonanurc/urcbot/ai/core/embedding"
	"github.com/cheonanurc/urcbot/ai/core/llm"
	"github.com/cheonanurc/urcbot/ai/core/reranker"
	"github.com/cheonanurc/urcbot/ai/core/retrieval"
	"github.com/cheonanurc/urcbot/ai/websearch"
	"github.com/cheonanurc/urcbot/internal/profile"
)

// Config carries the per-service configurations derived from a profile.
type Config struct {
	Embedding embedding.Config
	LLM       llm.Config
	Reranker  reranker.Config
	Retrieval retrieval.Config
	WebSearch websearch.Config

	WebSearchEnabled bool
	WebSearchHits    int

	RerankTopN     int
	LocalThreshold float64
	FuzzyScore     int
	FuzzyLimit     int
	RetrieverK     int

	CacheTTL   time.Duration
	SessionTTL time.Duration
}

// NewConfigFromProfile maps profile settings onto service configs.
func NewConfigFromProfile(p *profile.Profile) *Config {
	return &Config{
		Embedding: embedding.Config{
			Model:      p.EmbeddingModel,
			APIKey:     p.EmbeddingAPIKey,
			BaseURL:    p.EmbeddingBaseURL,
			Dimensions: p.EmbeddingDims,
		},
		LLM: llm.Config{
			Provider: p.LLMProvider,
			Model:    p.LLMModel,
			APIKey:   p.LLMAPIKey,
			BaseURL:  p.LLMBaseURL,
			Timeout:  p.LLMTimeout,
		},
		Reranker: reranker.Config{
			Model:   p.RerankModel,
			APIKey:  p.RerankAPIKey,
			BaseURL: p.RerankBaseURL,
			Enabled: p.RerankAPIKey != "",
		},
		Retrieval: retrieval.Config{
			DenseWeight:  p.DenseWeight,
			SparseWeight: p.SparseWeight,
			SearchLimit:  p.RetrieverK,
		},
		WebSearch: websearch.Config{
			Timeout: time.Duration(p.WebSearchTimeout) * time.Second,
		},
		WebSearchEnabled: p.WebSearchEnabled,
		WebSearchHits:    p.WebSearchHits,
		RerankTopN:       p.RerankTopN,
		LocalThreshold:   p.LocalThreshold,
		FuzzyScore:       p.FuzzyScore,
		FuzzyLimit:       p.FuzzyLimit,
		RetrieverK:       p.RetrieverK,
		CacheTTL:         time.Duration(p.CacheTTLSeconds) * time.Second,
		SessionTTL:       time.Duration(p.SessionTTLMin) * time.Minute,
	}
}
