// internal/workers/recommendation/rank-programs/handler.go
package rankprograms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "program-recommender/internal/common/errors"
	"program-recommender/internal/common/logger"
	"program-recommender/internal/common/metrics"
	"program-recommender/internal/common/observability"
	"program-recommender/internal/common/validation"
	"program-recommender/internal/engine"
	"program-recommender/internal/models"
)

const (
	TaskType = "rank-programs"
)

// Ranking sources, used as the metrics label.
const (
	sourceInline  = "inline"
	sourceCatalog = "catalog"
	sourceCache   = "cache"
)

// CandidateSource supplies candidates for requests without inline programs.
type CandidateSource interface {
	ListPrograms(ctx context.Context) ([]models.RawCandidate, error)
}

type Handler struct {
	config       *Config
	engine       *engine.Engine
	catalog      CandidateSource
	redis        *redis.Client
	validator    *validation.Validator
	errorHandler *apperrors.ErrorHandler
	obs          *observability.Observability
	configHash   string
	logger       logger.Logger
}

// HandlerOptions wires the handler. Catalog, Redis and Observability are
// optional.
type HandlerOptions struct {
	Config        *Config
	Engine        *engine.Engine
	Catalog       CandidateSource
	Redis         *redis.Client
	Observability *observability.Observability
	Logger        logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	if opts.Config == nil || opts.Engine == nil || opts.Logger == nil {
		return nil, errors.New("config, engine and logger are required")
	}

	// Engine settings are part of every cache key so that a configuration
	// change never serves results scored under the old weights.
	cfgJSON, err := json.Marshal(opts.Engine.Config())
	if err != nil {
		return nil, fmt.Errorf("fingerprint engine config: %w", err)
	}

	log := opts.Logger.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       opts.Config,
		engine:       opts.Engine,
		catalog:      opts.Catalog,
		redis:        opts.Redis,
		validator:    validation.MustValidator(validation.RecommendationRequestSchema),
		errorHandler: apperrors.NewErrorHandler(log),
		obs:          opts.Observability,
		configHash:   fmt.Sprintf("%08x", uint32(xxhash.Sum64(cfgJSON))),
		logger:       log,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	result, err := h.Execute(ctx, []byte(job.Variables))
	duration := time.Since(start)
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(duration.Seconds())

	if err != nil {
		stdErr := apperrors.AsStandardError(err)
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
		h.obs.RecordRequest(ctx, "rank", "zeebe", string(stdErr.Code), duration)
		h.errorHandler.HandleJobError(context.Background(), client, job, stdErr)
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.obs.RecordRequest(ctx, "rank", "zeebe", "ok", duration)
	h.completeJob(client, job, &Output{Recommendation: result})
}

// Execute validates a raw request document and ranks it. It backs both the
// job handler and the HTTP endpoint.
func (h *Handler) Execute(ctx context.Context, payload []byte) (*models.RecommendationResult, error) {
	check := h.validator.ValidateJSON(payload)
	if !check.Valid {
		return nil, apperrors.NewValidationError(
			"invalid recommendation request: "+strings.Join(check.GetErrorMessages(), "; "),
			check.FieldMessages(),
		)
	}

	var input Input
	if err := models.DecodeJSON(payload, &input); err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("decode recommendation request: %v", err), nil)
	}
	return h.Recommend(ctx, &input)
}

// Recommend ranks a decoded request. Requests without a programs array are
// served from the catalog when one is configured, and rank nothing otherwise.
func (h *Handler) Recommend(ctx context.Context, req *Input) (*models.RecommendationResult, error) {
	start := time.Now()
	requestID := uuid.NewString()
	useCatalog := req.Programs == nil && h.catalog != nil

	var key string
	if h.cacheEnabled() {
		key = h.cacheKey(req, useCatalog)
		if cached := h.lookup(ctx, key); cached != nil {
			cached.RequestID = requestID
			cached.Cached = true
			metrics.RankingDuration.WithLabelValues(sourceCache).Observe(time.Since(start).Seconds())
			h.logger.Info("recommendation served from cache", map[string]interface{}{
				"requestId": requestID,
				"returned":  len(cached.Ranked),
			})
			return cached, nil
		}
	}

	source := sourceInline
	var (
		result *models.RecommendationResult
		err    error
	)
	if useCatalog {
		source = sourceCatalog
		var candidates []models.RawCandidate
		candidates, err = h.catalog.ListPrograms(ctx)
		if err != nil {
			return nil, err
		}
		result, err = h.engine.RankCandidates(ctx, req.StudentProfile, candidates, req.Limit)
	} else {
		result, err = h.engine.Rank(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	result.RequestID = requestID

	h.recordOutcome(result)
	if key != "" {
		h.store(ctx, key, result)
	}

	metrics.RankingDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	h.logger.Info("recommendation ranked", map[string]interface{}{
		"requestId":   requestID,
		"source":      source,
		"considered":  result.TotalCountConsidered,
		"eligible":    result.EligibleCount,
		"returned":    len(result.Ranked),
		"diagnostics": len(result.Diagnostics),
	})
	return result, nil
}

func (h *Handler) cacheEnabled() bool {
	return h.config.CacheEnabled && h.redis != nil && h.config.CacheTTL > 0
}

// cacheKey is prefix, engine config hash and request hash. An empty key
// disables caching for the request.
func (h *Handler) cacheKey(req *Input, useCatalog bool) string {
	var programs []interface{}
	if req.Programs != nil {
		programs = make([]interface{}, len(req.Programs))
		for i, raw := range req.Programs {
			// Re-encoding through a generic value sorts object keys.
			if err := models.DecodeJSON(raw, &programs[i]); err != nil {
				return ""
			}
		}
	}

	data, err := json.Marshal(cacheKeyInput{
		Profile:  req.StudentProfile,
		Programs: programs,
		Catalog:  useCatalog,
		Limit:    req.Limit,
	})
	if err != nil {
		h.logger.Debug("request not cacheable", map[string]interface{}{"error": err.Error()})
		return ""
	}
	return fmt.Sprintf("%s%s:%016x", h.config.CacheKeyPrefix, h.configHash, xxhash.Sum64(data))
}

func (h *Handler) lookup(ctx context.Context, key string) *models.RecommendationResult {
	data, err := h.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.ResultCacheLookups.WithLabelValues("miss").Inc()
		return nil
	}
	if err != nil {
		metrics.ResultCacheLookups.WithLabelValues("error").Inc()
		h.logCacheError("cache lookup failed", key, err)
		return nil
	}

	var result models.RecommendationResult
	if err := json.Unmarshal(data, &result); err != nil {
		metrics.ResultCacheLookups.WithLabelValues("error").Inc()
		h.logCacheError("cached result unreadable", key, err)
		return nil
	}
	if result.Ranked == nil {
		result.Ranked = []models.ScoredCandidate{}
	}
	if result.Diagnostics == nil {
		result.Diagnostics = []models.Diagnostic{}
	}
	metrics.ResultCacheLookups.WithLabelValues("hit").Inc()
	return &result
}

func (h *Handler) store(ctx context.Context, key string, result *models.RecommendationResult) {
	data, err := json.Marshal(result)
	if err != nil {
		h.logCacheError("encode result for cache", key, err)
		return
	}
	if err := h.redis.Set(ctx, key, data, h.config.CacheTTL).Err(); err != nil {
		h.logCacheError("cache store failed", key, err)
	}
}

func (h *Handler) logCacheError(msg, key string, err error) {
	stdErr := apperrors.NewCacheUnavailableError(err)
	h.logger.Warn(msg, map[string]interface{}{
		"cacheKey":  key,
		"errorCode": string(stdErr.Code),
		"error":     stdErr.Details,
	})
}

var exclusionKinds = map[models.DiagnosticKind]bool{
	models.DiagInvalidCandidate: true,
	models.DiagDuplicateProgram: true,
	models.DiagIneligibleLevel:  true,
	models.DiagOverBudget:       true,
}

func (h *Handler) recordOutcome(result *models.RecommendationResult) {
	metrics.CandidatesEvaluated.Add(float64(result.TotalCountConsidered))
	for _, d := range result.Diagnostics {
		if exclusionKinds[d.Kind] {
			metrics.CandidatesExcluded.WithLabelValues(string(d.Kind)).Inc()
		}
	}

	if len(result.Excluded) > 0 {
		ids := make([]int64, len(result.Excluded))
		for i := range result.Excluded {
			ids[i] = result.Excluded[i].ProgramID
		}
		h.logger.Debug("ineligible programs", map[string]interface{}{
			"requestId":  result.RequestID,
			"programIds": ids,
		})
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
