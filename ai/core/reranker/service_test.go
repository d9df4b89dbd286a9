package reranker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRerankDisabledKeepsOrder(t *testing.T) {
	s := NewService(&Config{Enabled: false})

	results, err := s.Rerank(context.Background(), "투어 신청", []string{"a", "b", "c"}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 0, results[0].Index)
	assert.Equal(t, 1, results[1].Index)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestRerankEmptyDocuments(t *testing.T) {
	s := NewService(&Config{Enabled: true})

	results, err := s.Rerank(context.Background(), "query", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRerankCallsAPI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/rerank", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "투어 일정", req["query"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{"index": 1, "relevance_score": 0.42},
				{"index": 0, "relevance_score": 0.91},
			},
		})
	}))
	defer server.Close()

	s := NewService(&Config{
		Enabled: true,
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-reranker",
	})

	results, err := s.Rerank(context.Background(), "투어 일정", []string{"doc0", "doc1"}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 0, results[0].Index)
	assert.InDelta(t, 0.91, results[0].Score, 0.001)
	assert.Equal(t, 1, results[1].Index)
}

func TestRerankAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	s := NewService(&Config{Enabled: true, BaseURL: server.URL})

	_, err := s.Rerank(context.Background(), "q", []string{"doc"}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rerank API error")
}
