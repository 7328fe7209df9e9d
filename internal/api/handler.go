// Package api exposes the recommender over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	apperrors "program-recommender/internal/common/errors"
	"program-recommender/internal/common/logger"
	"program-recommender/internal/common/observability"
	"program-recommender/internal/models"
)

const (
	defaultMaxBodyBytes = 4 << 20
	tracerName          = "program-recommender/api"
)

// Recommender ranks a raw recommendation request document.
type Recommender interface {
	Execute(ctx context.Context, payload []byte) (*models.RecommendationResult, error)
}

// Explainer explains a raw comparison request document.
type Explainer interface {
	Execute(ctx context.Context, payload []byte) (*models.ComparisonResult, error)
}

// ReadinessCheck is one dependency probed by /ready.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Options struct {
	Recommender    Recommender
	Explainer      Explainer
	Checks         []ReadinessCheck
	Observability  *observability.Observability
	Logger         logger.Logger
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	Version        string
}

type Handler struct {
	recommender    Recommender
	explainer      Explainer
	checks         []ReadinessCheck
	obs            *observability.Observability
	logger         logger.Logger
	requestTimeout time.Duration
	maxBodyBytes   int64
	version        string
}

func NewHandler(opts Options) *Handler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	return &Handler{
		recommender:    opts.Recommender,
		explainer:      opts.Explainer,
		checks:         opts.Checks,
		obs:            opts.Observability,
		logger:         opts.Logger.WithFields(map[string]interface{}{"component": "http"}),
		requestTimeout: opts.RequestTimeout,
		maxBodyBytes:   opts.MaxBodyBytes,
		version:        opts.Version,
	}
}

// Routes returns the service mux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/recommendations", h.Recommend)
	mux.HandleFunc("/v1/comparisons", h.Compare)
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/ready", h.Ready)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	payload, ok := h.readJSON(w, r)
	if !ok {
		return
	}

	ctx, span := otel.Tracer(tracerName).Start(r.Context(), r.Method+" "+r.URL.Path,
		trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, h.requestTimeout)
	defer cancel()

	result, err := h.recommender.Execute(ctx, payload)
	if err != nil {
		h.writeError(w, r, "rank", start, err)
		return
	}
	h.obs.RecordRequest(ctx, "rank", "http", "ok", time.Since(start))
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	payload, ok := h.readJSON(w, r)
	if !ok {
		return
	}

	ctx, span := otel.Tracer(tracerName).Start(r.Context(), r.Method+" "+r.URL.Path,
		trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, h.requestTimeout)
	defer cancel()

	result, err := h.explainer.Execute(ctx, payload)
	if err != nil {
		h.writeError(w, r, "compare", start, err)
		return
	}
	h.obs.RecordRequest(ctx, "compare", "http", "ok", time.Since(start))
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": h.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready probes every configured dependency and reports 503 if any fails.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			deps[c.Name] = err.Error()
			continue
		}
		deps[c.Name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	h.writeJSON(w, status, map[string]interface{}{
		"status":       state,
		"dependencies": deps,
		"time":         time.Now().UTC().Format(time.RFC3339),
	})
}

// readJSON enforces POST with a JSON body and reads it whole. It writes the
// error response itself and reports whether the handler should continue.
func (h *Handler) readJSON(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}

	if !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return nil, false
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return nil, false
		}
		h.logger.Warn("Error reading request body", map[string]interface{}{"error": err.Error()})
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return nil, false
	}
	return payload, true
}

type errorResponse struct {
	Error *apperrors.StandardError `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, operation string, start time.Time, err error) {
	stdErr := apperrors.AsStandardError(err)
	status := StatusFor(stdErr)

	fields := map[string]interface{}{
		"operation": operation,
		"path":      r.URL.Path,
		"status":    status,
		"errorCode": string(stdErr.Code),
		"details":   stdErr.Details,
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", fields)
	} else {
		h.logger.Info("Request rejected", fields)
	}

	h.obs.RecordRequest(r.Context(), operation, "http", string(stdErr.Code), time.Since(start))
	h.writeJSON(w, status, errorResponse{Error: stdErr})
}

// StatusFor maps an error code to its HTTP status.
func StatusFor(err *apperrors.StandardError) int {
	switch err.Code {
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest
	case apperrors.ErrCodeCatalogUnavailable, apperrors.ErrCodeCacheUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON encodes into a buffer first so an encoding failure can still
// produce a clean 500.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		h.logger.Error("Error encoding response", map[string]interface{}{"error": err.Error()})
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("Error writing response", map[string]interface{}{"error": err.Error()})
	}
}
