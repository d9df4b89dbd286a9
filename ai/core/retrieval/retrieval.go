package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/cheonanurc/urcbot/ai/core/embedding"
	"github.com/cheonanurc/urcbot/ai/core/reranker"
	"github.com/cheonanurc/urcbot/store"
)

// Default fusion weights. The dense side carries most of the signal;
// the sparse side rescues exact-term queries the embedding misses.
const (
	DefaultDenseWeight  = 0.7
	DefaultSparseWeight = 0.3
)

// Candidate is one retrieval result flowing through fusion and rerank.
type Candidate struct {
	DocID       int64
	Text        string
	Title       string
	Section     string
	URL         string
	DenseScore  float64
	SparseScore float64
	FusedScore  float64
	RerankScore float32
}

// Snippet is a raw corpus fragment for fuzzy fallback matching.
type Snippet struct {
	DocID int64
	Title string
	URL   string
	Text  string
}

// DenseSearcher is the vector nearest-neighbor lookup, satisfied by
// *store.Store.
type DenseSearcher interface {
	SearchDocumentsByEmbedding(ctx context.Context, vector []float32, limit int) ([]*store.DocumentMatch, error)
}

// Config tunes the hybrid retriever.
type Config struct {
	DenseWeight  float64
	SparseWeight float64
	SearchLimit  int // per-branch fetch size before fusion (default: 20)
}

// HybridRetriever merges dense and sparse search over the document
// corpus into one ranked candidate list, then optionally reranks.
type HybridRetriever struct {
	dense        DenseSearcher
	embedder     embedding.Service
	reranker     reranker.Service
	index        atomic.Pointer[corpusIndex]
	denseWeight  float64
	sparseWeight float64
	searchLimit  int
}

// NewHybridRetriever creates a retriever over an empty corpus; call
// Rebuild to load documents.
func NewHybridRetriever(dense DenseSearcher, embedder embedding.Service, rr reranker.Service, cfg *Config) *HybridRetriever {
	if cfg == nil {
		cfg = &Config{}
	}
	denseWeight := cfg.DenseWeight
	sparseWeight := cfg.SparseWeight
	if denseWeight <= 0 && sparseWeight <= 0 {
		denseWeight, sparseWeight = DefaultDenseWeight, DefaultSparseWeight
	}
	searchLimit := cfg.SearchLimit
	if searchLimit <= 0 {
		searchLimit = 20
	}

	r := &HybridRetriever{
		dense:        dense,
		embedder:     embedder,
		reranker:     rr,
		denseWeight:  denseWeight,
		sparseWeight: sparseWeight,
		searchLimit:  searchLimit,
	}
	r.index.Store(buildCorpusIndex(nil))
	return r
}

// Rebuild replaces the sparse index snapshot with one built from the
// given documents. In-flight queries finish against the old snapshot.
func (r *HybridRetriever) Rebuild(documents []*store.Document) {
	idx := buildCorpusIndex(documents)
	r.index.Store(idx)
	slog.Info("corpus index rebuilt", "documents", len(idx.docs))
}

// Snippets returns the indexed corpus fragments for fuzzy fallback.
func (r *HybridRetriever) Snippets() []Snippet {
	idx := r.index.Load()
	snippets := make([]Snippet, 0, len(idx.docs))
	for _, doc := range idx.docs {
		snippets = append(snippets, Snippet{
			DocID: doc.ID,
			Title: doc.Title,
			URL:   doc.URL,
			Text:  doc.Text,
		})
	}
	return snippets
}

// Retrieve runs dense and sparse search concurrently and fuses the
// union by weighted score sum. An empty result is not an error; the
// error return fires only when both branches fail.
func (r *HybridRetriever) Retrieve(ctx context.Context, query string, k int) ([]*Candidate, error) {
	if k <= 0 {
		k = 5
	}

	var denseMatches, sparseMatches []*store.DocumentMatch
	var denseErr error

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		vector, err := r.embedder.Embed(gctx, query)
		if err != nil {
			denseErr = fmt.Errorf("failed to embed query: %w", err)
			return nil
		}
		matches, err := r.dense.SearchDocumentsByEmbedding(gctx, vector, r.searchLimit)
		if err != nil {
			denseErr = fmt.Errorf("dense search failed: %w", err)
			return nil
		}
		denseMatches = matches
		return nil
	})

	g.Go(func() error {
		sparseMatches = r.index.Load().search(query, r.searchLimit)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if denseErr != nil {
		slog.WarnContext(ctx, "dense search failed, using sparse only", "error", denseErr)
		if len(sparseMatches) == 0 {
			return nil, denseErr
		}
	}

	candidates := r.fuse(denseMatches, sparseMatches)
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	slog.DebugContext(ctx, "hybrid retrieval completed",
		"dense_count", len(denseMatches),
		"sparse_count", len(sparseMatches),
		"fused_count", len(candidates),
	)

	return candidates, nil
}

// Rerank rescales candidates with the reranker and returns the top N
// plus the best score. Empty input returns empty without an API call.
func (r *HybridRetriever) Rerank(ctx context.Context, query string, candidates []*Candidate, topN int) ([]*Candidate, float32, error) {
	if len(candidates) == 0 {
		return []*Candidate{}, 0, nil
	}

	documents := make([]string, len(candidates))
	for i, c := range candidates {
		documents[i] = c.Text
	}

	results, err := r.reranker.Rerank(ctx, query, documents, topN)
	if err != nil {
		return nil, 0, fmt.Errorf("rerank failed: %w", err)
	}

	reordered := make([]*Candidate, 0, len(results))
	var best float32
	for _, res := range results {
		if res.Index >= len(candidates) {
			continue
		}
		c := candidates[res.Index]
		c.RerankScore = res.Score
		if res.Score > best {
			best = res.Score
		}
		reordered = append(reordered, c)
	}

	return reordered, best, nil
}

// fuse takes the union of both result lists, sums weighted scores per
// document, and sorts descending. Missing-side scores count as zero.
func (r *HybridRetriever) fuse(dense, sparse []*store.DocumentMatch) []*Candidate {
	merged := make(map[int64]*Candidate)

	for _, m := range dense {
		merged[m.Document.ID] = &Candidate{
			DocID:      m.Document.ID,
			Text:       m.Document.Text,
			Title:      m.Document.Title,
			Section:    m.Document.Section,
			URL:        m.Document.URL,
			DenseScore: m.Score,
		}
	}
	for _, m := range sparse {
		if c, ok := merged[m.Document.ID]; ok {
			c.SparseScore = m.Score
			continue
		}
		merged[m.Document.ID] = &Candidate{
			DocID:       m.Document.ID,
			Text:        m.Document.Text,
			Title:       m.Document.Title,
			Section:     m.Document.Section,
			URL:         m.Document.URL,
			SparseScore: m.Score,
		}
	}

	candidates := make([]*Candidate, 0, len(merged))
	for _, c := range merged {
		c.FusedScore = r.denseWeight*c.DenseScore + r.sparseWeight*c.SparseScore
		candidates = append(candidates, c)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].FusedScore > candidates[j].FusedScore
	})

	return candidates
}
