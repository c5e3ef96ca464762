package httpadapter

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/kirillkom/witness-statement/internal/adapters/http/openapi"
	"github.com/kirillkom/witness-statement/internal/config"
	"github.com/kirillkom/witness-statement/internal/core/ports"
	"github.com/kirillkom/witness-statement/internal/observability/metrics"
)

const serviceName = "api"

//go:embed static
var staticFiles embed.FS

type Router struct {
	cfg       config.Config
	generator ports.StatementGenerator
	validator *openapi.Validator
	metrics   *metrics.HTTPServerMetrics
	limiter   *rate.Limiter
}

func NewRouter(
	cfg config.Config,
	generator ports.StatementGenerator,
	validator *openapi.Validator,
	httpMetrics *metrics.HTTPServerMetrics,
) *Router {
	rt := &Router{
		cfg:       cfg,
		generator: generator,
		validator: validator,
		metrics:   httpMetrics,
	}
	if cfg.APIRateLimitRPS > 0 {
		burst := cfg.APIRateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		rt.limiter = rate.NewLimiter(rate.Limit(cfg.APIRateLimitRPS), burst)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/generate", rt.generate)
	mux.HandleFunc("/openapi.yaml", rt.openAPIDocument)
	if rt.metrics != nil && rt.cfg.MetricsEnabled {
		mux.Handle("/metrics", rt.metrics.Handler())
	}
	mux.Handle("/", staticHandler())

	var handler http.Handler = mux
	handler = rateLimitMiddleware(handler, rt.limiter, rt.recordRejected)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(fmt.Sprintf("static assets: %v", err))
	}
	return http.FileServerFS(sub)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPIDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openapi.Document())
}

func (rt *Router) generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeTemplateError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, rt.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			rt.recordRejected("body_too_large")
			writeTemplateError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeTemplateError(w, http.StatusBadRequest, fmt.Sprintf("read request body: %v", err))
		return
	}

	record, err := rt.validator.DecodeSubmission(body)
	if err != nil {
		rt.recordRejected("invalid_input")
		slog.WarnContext(r.Context(), "submission_rejected", "error", err)
		writeTemplateError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	doc, err := rt.generator.Generate(r.Context(), record)
	if err != nil {
		writeTemplateError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}

func (rt *Router) recordRejected(reason string) {
	if rt.metrics != nil {
		rt.metrics.RecordRejected(reason)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
