// internal/workers/recommendation/explain-comparison/handler.go
package explaincomparison

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "program-recommender/internal/common/errors"
	"program-recommender/internal/common/logger"
	"program-recommender/internal/common/metrics"
	"program-recommender/internal/common/observability"
	"program-recommender/internal/common/validation"
	"program-recommender/internal/models"
)

const (
	TaskType = "explain-comparison"
)

// Comparer produces the comparison text for two scored programs.
type Comparer interface {
	Compare(ctx context.Context, a, b *models.ScoredCandidate) *models.ComparisonResult
}

type Handler struct {
	config       *Config
	comparer     Comparer
	validator    *validation.Validator
	errorHandler *apperrors.ErrorHandler
	obs          *observability.Observability
	logger       logger.Logger
}

func NewHandler(config *Config, comparer Comparer, obs *observability.Observability, log logger.Logger) (*Handler, error) {
	if config == nil || comparer == nil || log == nil {
		return nil, errors.New("config, comparer and logger are required")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		comparer:     comparer,
		validator:    validation.MustValidator(validation.ComparisonRequestSchema),
		errorHandler: apperrors.NewErrorHandler(log),
		obs:          obs,
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
		h.obs.RecordRequest(ctx, "compare", "zeebe", string(stdErr.Code), duration)
		h.errorHandler.HandleJobError(context.Background(), client, job, stdErr)
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.obs.RecordRequest(ctx, "compare", "zeebe", "ok", duration)
	h.completeJob(client, job, &Output{Comparison: result})
}

// Execute validates a comparison document and explains it. Only an invalid
// request fails; generator problems come back as a fallback result.
func (h *Handler) Execute(ctx context.Context, payload []byte) (*models.ComparisonResult, error) {
	check := h.validator.ValidateJSON(payload)
	if !check.Valid {
		return nil, apperrors.NewValidationError(
			"invalid comparison request: "+strings.Join(check.GetErrorMessages(), "; "),
			check.FieldMessages(),
		)
	}

	var input Input
	if err := json.Unmarshal(payload, &input); err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("decode comparison request: %v", err), nil)
	}

	result := h.comparer.Compare(ctx, &input.ProgramA, &input.ProgramB)

	h.logger.Info("comparison explained", map[string]interface{}{
		"programA": input.ProgramA.ProgramID,
		"programB": input.ProgramB.ProgramID,
		"source":   result.Source,
		"success":  result.Success,
	})
	return result, nil
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
