package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServiceRequiresModel(t *testing.T) {
	_, err := NewService(&Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model")
}

func TestNewServiceDefaultsDimensions(t *testing.T) {
	svc, err := NewService(&Config{Model: "BAAI/bge-m3"})
	require.NoError(t, err)
	assert.Equal(t, 1536, svc.Dimensions())

	svc, err = NewService(&Config{Model: "BAAI/bge-m3", Dimensions: 1024})
	require.NoError(t, err)
	assert.Equal(t, 1024, svc.Dimensions())
}

func TestEmbedBatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		resp := map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": []float32{0.1, 0.2}},
				{"object": "embedding", "index": 1, "embedding": []float32{0.3, 0.4}},
			},
			"model": "BAAI/bge-m3",
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer ts.Close()

	svc, err := NewService(&Config{Model: "BAAI/bge-m3", APIKey: "test-key", BaseURL: ts.URL, Dimensions: 2})
	require.NoError(t, err)

	vectors, err := svc.EmbedBatch(context.Background(), []string{"오시는 길", "투어 신청"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{0.1, 0.2}, vectors[0])
	assert.Equal(t, []float32{0.3, 0.4}, vectors[1])
}

func TestEmbedBatchRejectsEmptyInput(t *testing.T) {
	svc, err := NewService(&Config{Model: "BAAI/bge-m3"})
	require.NoError(t, err)

	_, err = svc.EmbedBatch(context.Background(), nil)
	assert.Error(t, err)
}
