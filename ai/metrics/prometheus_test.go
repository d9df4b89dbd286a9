package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestPrometheusExporter(t *testing.T) {
	exporter := NewPrometheusExporter(DefaultConfig())

	t.Run("RecordAsk", func(t *testing.T) {
		exporter.RecordAsk("intent_rules", "rule", 20*time.Millisecond)
		exporter.RecordAsk("local_retrieval", "high", 800*time.Millisecond)
	})

	t.Run("RecordStage", func(t *testing.T) {
		exporter.RecordStage("cache_hit", time.Millisecond, false)
		exporter.RecordStage("exact_faq", 2*time.Millisecond, true)
		exporter.RecordStageError("web_fallback", "timeout")
	})

	t.Run("RecordCache", func(t *testing.T) {
		exporter.RecordCacheHit("answer")
		exporter.RecordCacheMiss("answer")
	})

	t.Run("ActiveGauge", func(t *testing.T) {
		exporter.AskStarted()
		exporter.AskFinished()
	})
}

func TestPrometheusExporterHandler(t *testing.T) {
	exporter := NewPrometheusExporter(DefaultConfig())

	exporter.RecordAsk("exact_faq", "high", 5*time.Millisecond)
	exporter.RecordStage("exact_faq", 5*time.Millisecond, true)
	exporter.RecordCacheHit("answer")

	req := httptest.NewRequest("GET", "/metrics", http.NoBody)
	w := httptest.NewRecorder()

	exporter.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	body := w.Body.String()
	if !strings.Contains(body, "urcbot_router_ask_requests_total") {
		t.Error("expected ask_requests_total metric in output")
	}
	if !strings.Contains(body, "urcbot_router_stage_hits_total") {
		t.Error("expected stage_hits_total metric in output")
	}
	if !strings.Contains(body, "urcbot_cache_hits_total") {
		t.Error("expected cache_hits_total metric in output")
	}
}
