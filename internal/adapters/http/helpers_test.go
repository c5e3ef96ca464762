package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kirillkom/witness-statement/internal/adapters/http/openapi"
	"github.com/kirillkom/witness-statement/internal/config"
	"github.com/kirillkom/witness-statement/internal/core/domain"
	"github.com/kirillkom/witness-statement/internal/core/ports"
	"github.com/kirillkom/witness-statement/internal/core/usecase"
	"github.com/kirillkom/witness-statement/internal/infrastructure/chunking"
	"github.com/kirillkom/witness-statement/internal/infrastructure/docx"
	"github.com/kirillkom/witness-statement/internal/observability/metrics"
)

type staticTemplate struct {
	content []byte
}

func (s staticTemplate) Load(context.Context) (*domain.TemplateArtifact, error) {
	return &domain.TemplateArtifact{Manifest: domain.DefaultManifest(), Content: s.content}, nil
}

func testConfig() config.Config {
	return config.Config{
		MaxBodyBytes:   10 << 20,
		MetricsEnabled: true,
	}
}

func newGenerator(t *testing.T, template []byte) ports.StatementGenerator {
	t.Helper()
	return usecase.NewGenerateStatementUseCase(
		staticTemplate{content: template},
		docx.NewRenderer(),
		chunking.NewLineSplitter(),
		nil,
	).WithClock(func() time.Time { return time.UnixMilli(1735689600123) })
}

func newTestHandler(t *testing.T, cfg config.Config, generator ports.StatementGenerator) http.Handler {
	t.Helper()
	validator, err := openapi.NewValidator(context.Background())
	if err != nil {
		t.Fatalf("NewValidator() error = %v", err)
	}
	return NewRouter(cfg, generator, validator, metrics.NewHTTPServerMetrics(serviceName)).Handler()
}

func submission(overrides map[string]any) []byte {
	payload := map[string]any{
		"MATTER":    "M-1",
		"LOCATION":  "Sydney",
		"DATE":      "2025-01-01",
		"NAME":      "Jane Doe",
		"AGE":       42,
		"polName":   "Smith",
		"polRego":   "1234",
		"PARAGRAPH": "Line one\n\nLine two\n   \n",
	}
	for key, value := range overrides {
		if value == nil {
			delete(payload, key)
			continue
		}
		payload[key] = value
	}
	raw, _ := json.Marshal(payload)
	return raw
}

func postGenerate(handler http.Handler, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/generate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}
