package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultPage = `<html><body>
<div class="results">
  <div class="result">
    <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.cheonanurc.or.kr%2F24">천안시 도시재생지원센터 소개</a>
    <a class="result__snippet">센터 소개와 오시는 길 안내</a>
  </div>
  <div class="result">
    <a class="result__a" href="https://www.cheonan.go.kr/urban">천안시 도시재생 뉴딜사업</a>
    <div class="result__snippet">뉴딜사업 추진 현황</div>
  </div>
</div>
</body></html>`

func TestSearchParsesResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("q"), "도시재생")
		_, _ = w.Write([]byte(resultPage))
	}))
	defer server.Close()

	s := NewService(&Config{Endpoint: server.URL, RatePerSec: 100})

	results, err := s.Search(context.Background(), "도시재생지원센터", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "천안시 도시재생지원센터 소개", results[0].Title)
	assert.Equal(t, "https://www.cheonanurc.or.kr/24", results[0].URL)
	assert.Equal(t, "센터 소개와 오시는 길 안내", results[0].Snippet)

	assert.Equal(t, "https://www.cheonan.go.kr/urban", results[1].URL)
	assert.Equal(t, "뉴딜사업 추진 현황", results[1].Snippet)
}

func TestSearchCapsResultCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(resultPage))
	}))
	defer server.Close()

	s := NewService(&Config{Endpoint: server.URL, RatePerSec: 100})

	results, err := s.Search(context.Background(), "질문", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchRetriesWithExpansion(t *testing.T) {
	var queries []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		queries = append(queries, q)
		if strings.HasPrefix(q, "천안 도시재생지원센터") {
			_, _ = w.Write([]byte(resultPage))
			return
		}
		_, _ = w.Write([]byte("<html><body></body></html>"))
	}))
	defer server.Close()

	s := NewService(&Config{Endpoint: server.URL, RatePerSec: 100})

	results, err := s.Search(context.Background(), "투어 신청", 5)
	require.NoError(t, err)
	require.Len(t, queries, 2)
	assert.Equal(t, "투어 신청", queries[0])
	assert.Equal(t, "천안 도시재생지원센터 투어 신청", queries[1])
	assert.NotEmpty(t, results)
}

func TestSearchHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer server.Close()

	s := NewService(&Config{Endpoint: server.URL, RatePerSec: 100})

	_, err := s.Search(context.Background(), "질문", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 403")
}
