package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cheonanurc/urcbot/ai/cache"
	"github.com/cheonanurc/urcbot/ai/faq"
	"github.com/cheonanurc/urcbot/ai/intent"
	"github.com/cheonanurc/urcbot/ai/metrics"
	"github.com/cheonanurc/urcbot/ai/registry"
	"github.com/cheonanurc/urcbot/ai/router"
	"github.com/cheonanurc/urcbot/ai/session"
	"github.com/cheonanurc/urcbot/internal/profile"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	reg := registry.MustNew()
	exporter := metrics.NewPrometheusExporter(metrics.DefaultConfig())
	answers := router.New(router.Services{
		Registry: reg,
		FAQ:      faq.MustNew(),
		Intents:  intent.NewResolver(reg, intent.DefaultConfig()),
		Cache:    cache.NewAnswerCache(64, time.Minute),
		Sessions: session.NewStore(time.Minute),
		Metrics:  exporter,
	}, router.DefaultConfig())

	prof := &profile.Profile{Mode: "dev", Version: "test"}
	s, err := NewServer(context.Background(), prof, answers, exporter)
	require.NoError(t, err)
	return s
}

func postChat(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestChatRouteAnswersFAQ(t *testing.T) {
	s := newTestServer(t)

	rec := postChat(t, s, `{"query":"도시재생이 뭐야?","session_id":"s1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "exact_faq", resp.Stage)
	assert.Equal(t, "s1", resp.SessionID)
	assert.NotEmpty(t, resp.RequestID)
	assert.Contains(t, resp.Answer, "도시재생은")
}

func TestChatRouteGeneratesSessionID(t *testing.T) {
	s := newTestServer(t)

	rec := postChat(t, s, `{"query":"오시는 길 센터"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "intent_rules", resp.Stage)
}

func TestChatRouteEmptyQueryStillAnswers(t *testing.T) {
	s := newTestServer(t)

	rec := postChat(t, s, `{"query":"","session_id":"s1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Answer)
	assert.Equal(t, "empty_query", resp.Stage)
}

func TestChatRouteRejectsMalformedBody(t *testing.T) {
	s := newTestServer(t)

	rec := postChat(t, s, `{"query": `)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	postChat(t, s, `{"query":"도시재생이 뭐야?","session_id":"s1"}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "urcbot_router_ask_requests_total")
}
