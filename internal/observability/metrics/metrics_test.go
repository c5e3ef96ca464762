package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kirillkom/witness-statement/internal/core/domain"
)

func TestHTTPMiddlewareCountsRequests(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	handler := m.Middleware("api", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	req := httptest.NewRequest(http.MethodPost, "/generate", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	got := testutil.ToFloat64(m.requestTotal.WithLabelValues("api", http.MethodPost, "/generate", "400"))
	if got != 1 {
		t.Fatalf("expected one counted request, got %v", got)
	}
}

func TestNormalizePathCollapsesAssets(t *testing.T) {
	if got := normalizePath("/assets/script.js"); got != "/static" {
		t.Fatalf("normalizePath() = %q", got)
	}
	if got := normalizePath("/generate"); got != "/generate" {
		t.Fatalf("normalizePath() = %q", got)
	}
}

func TestObserveGenerationLabelsOutcome(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	m.ObserveGeneration(3, 4096, 10*time.Millisecond, nil)
	m.ObserveGeneration(0, 0, time.Millisecond, domain.WrapError(domain.ErrBinding, "verify", errors.New("missing")))

	if got := testutil.ToFloat64(m.total.WithLabelValues("api", "success")); got != 1 {
		t.Fatalf("expected one success, got %v", got)
	}
	if got := testutil.ToFloat64(m.total.WithLabelValues("api", "binding")); got != 1 {
		t.Fatalf("expected one binding failure, got %v", got)
	}
}

func TestHandlerExposesGenerationMetrics(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	m.ObserveGeneration(1, 100, time.Millisecond, nil)

	res := httptest.NewRecorder()
	m.Handler().ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(body), "ws_statement_generations_total") {
		t.Fatalf("metrics output missing generation counter:\n%s", body)
	}
}

func TestBatchMetricsRows(t *testing.T) {
	m := NewBatchMetrics("batch")
	m.StartRow()
	m.FinishRow(time.Millisecond, nil)
	m.StartRow()
	m.FinishRow(time.Millisecond, errors.New("bad row"))

	if got := testutil.ToFloat64(m.rowTotal.WithLabelValues("batch", "success")); got != 1 {
		t.Fatalf("expected one successful row, got %v", got)
	}
	if got := testutil.ToFloat64(m.rowTotal.WithLabelValues("batch", "error")); got != 1 {
		t.Fatalf("expected one failed row, got %v", got)
	}
	if got := testutil.ToFloat64(m.rowInFlight); got != 0 {
		t.Fatalf("expected no rows in flight, got %v", got)
	}
}

func TestBatchPushSendsToGateway(t *testing.T) {
	var pushed string
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pushed = r.Method + " " + r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	m := NewBatchMetrics("batch")
	if err := m.Push(t.Context(), "", "witness_batch"); err != nil {
		t.Fatalf("Push() with empty url error = %v", err)
	}
	if err := m.Push(t.Context(), gateway.URL, "witness_batch"); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if pushed != "PUT /metrics/job/witness_batch" {
		t.Fatalf("unexpected push request %q", pushed)
	}
}
