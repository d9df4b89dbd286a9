package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cheonanurc/urcbot/ai/core/reranker"
	"github.com/cheonanurc/urcbot/store"
)

type mockEmbedder struct {
	vector []float32
	err    error
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return m.vector, m.err
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = m.vector
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int { return len(m.vector) }

type mockDense struct {
	matches []*store.DocumentMatch
	err     error
	calls   int
}

func (m *mockDense) SearchDocumentsByEmbedding(ctx context.Context, vector []float32, limit int) ([]*store.DocumentMatch, error) {
	m.calls++
	return m.matches, m.err
}

func doc(id int64, title, text string) *store.Document {
	return &store.Document{ID: id, Title: title, Text: text, URL: "https://www.cheonanurc.or.kr/page"}
}

func match(id int64, text string, score float64) *store.DocumentMatch {
	return &store.DocumentMatch{Document: &store.Document{ID: id, Text: text}, Score: score}
}

func TestRetrieveFusesDenseAndSparse(t *testing.T) {
	dense := &mockDense{matches: []*store.DocumentMatch{
		match(1, "도시재생 뉴딜사업 소개", 0.9),
		match(2, "센터 연혁", 0.5),
	}}
	r := NewHybridRetriever(dense, &mockEmbedder{vector: []float32{1, 0}}, reranker.NewService(&reranker.Config{}), nil)
	r.Rebuild([]*store.Document{
		doc(1, "뉴딜사업", "도시재생 뉴딜사업 소개"),
		doc(3, "주민공모", "주민공모 사업 안내"),
	})

	candidates, err := r.Retrieve(context.Background(), "도시재생 뉴딜사업", 5)
	require.NoError(t, err)
	require.NotEmpty(t, candidates)

	// Doc 1 appears in both branches so it carries both scores.
	assert.Equal(t, int64(1), candidates[0].DocID)
	assert.Greater(t, candidates[0].DenseScore, 0.0)
	assert.Greater(t, candidates[0].SparseScore, 0.0)
	assert.InDelta(t, 0.7*candidates[0].DenseScore+0.3*candidates[0].SparseScore, candidates[0].FusedScore, 1e-9)
}

func TestRetrieveSparseOnlyWhenDenseFails(t *testing.T) {
	dense := &mockDense{err: errors.New("connection refused")}
	r := NewHybridRetriever(dense, &mockEmbedder{vector: []float32{1}}, reranker.NewService(&reranker.Config{}), nil)
	r.Rebuild([]*store.Document{
		doc(1, "투어 안내", "도시재생 투어 코스 안내"),
	})

	candidates, err := r.Retrieve(context.Background(), "투어 코스", 5)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, int64(1), candidates[0].DocID)
	assert.Zero(t, candidates[0].DenseScore)
}

func TestRetrieveErrorWhenBothBranchesEmpty(t *testing.T) {
	dense := &mockDense{err: errors.New("connection refused")}
	r := NewHybridRetriever(dense, &mockEmbedder{vector: []float32{1}}, reranker.NewService(&reranker.Config{}), nil)

	_, err := r.Retrieve(context.Background(), "아무 질문", 5)
	require.Error(t, err)
}

func TestRetrieveEmptyCorpusIsNotError(t *testing.T) {
	dense := &mockDense{}
	r := NewHybridRetriever(dense, &mockEmbedder{vector: []float32{1}}, reranker.NewService(&reranker.Config{}), nil)

	candidates, err := r.Retrieve(context.Background(), "질문", 5)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestRerankEmptyCandidatesSkipsScorer(t *testing.T) {
	r := NewHybridRetriever(&mockDense{}, &mockEmbedder{}, nil, nil)

	reordered, best, err := r.Rerank(context.Background(), "질문", nil, 3)
	require.NoError(t, err)
	assert.Empty(t, reordered)
	assert.Zero(t, best)
}

func TestRerankReordersAndReportsBest(t *testing.T) {
	rr := reranker.NewService(&reranker.Config{Enabled: false})
	r := NewHybridRetriever(&mockDense{}, &mockEmbedder{}, rr, nil)

	candidates := []*Candidate{
		{DocID: 1, Text: "첫번째 문서"},
		{DocID: 2, Text: "두번째 문서"},
	}
	reordered, best, err := r.Rerank(context.Background(), "질문", candidates, 2)
	require.NoError(t, err)
	require.Len(t, reordered, 2)
	assert.Equal(t, int64(1), reordered[0].DocID)
	assert.InDelta(t, 1.0, float64(best), 0.001)
}

func TestRebuildSwapsSnapshot(t *testing.T) {
	r := NewHybridRetriever(&mockDense{}, &mockEmbedder{}, nil, nil)
	assert.Empty(t, r.Snippets())

	r.Rebuild([]*store.Document{doc(1, "소개", "센터 소개 문서")})
	snippets := r.Snippets()
	require.Len(t, snippets, 1)
	assert.Equal(t, int64(1), snippets[0].DocID)

	r.Rebuild([]*store.Document{doc(2, "연혁", "센터 연혁"), doc(3, "조직", "조직 구성")})
	assert.Len(t, r.Snippets(), 2)
}

func TestSparseSearchRanksByTermOverlap(t *testing.T) {
	idx := buildCorpusIndex([]*store.Document{
		doc(1, "투어", "도시재생 투어 코스 신청 안내"),
		doc(2, "연혁", "센터 연혁과 조직 구성"),
		doc(3, "투어 일정", "투어 일정과 투어 코스 상세"),
	})

	matches := idx.search("투어 코스", 10)
	require.NotEmpty(t, matches)
	for _, m := range matches {
		assert.NotEqual(t, int64(2), m.Document.ID)
	}
}
