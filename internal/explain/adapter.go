// Package explain turns a pair of scored programs into comparison text. The
// text comes from an external generator when one is configured and answers
// in time, and from a deterministic template otherwise.
package explain

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	apperrors "program-recommender/internal/common/errors"
	"program-recommender/internal/common/logger"
	"program-recommender/internal/common/metrics"
	"program-recommender/internal/models"
)

// Generator produces free text for a prompt. summary is the structured data
// the prompt was rendered from, for generators that forward it as context.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string, summary *Summary) (string, error)
}

var errEmptyText = errors.New("generator returned empty text")

type Options struct {
	Timeout     time.Duration // per attempt
	MaxAttempts int           // 1 or 2
	Backoff     time.Duration // pause before the retry
}

func DefaultOptions() Options {
	return Options{
		Timeout:     10 * time.Second,
		MaxAttempts: 2,
		Backoff:     100 * time.Millisecond,
	}
}

type Adapter struct {
	generator Generator
	opts      Options
	logger    logger.Logger
}

// NewAdapter accepts a nil generator; every comparison then uses the fallback.
func NewAdapter(gen Generator, opts Options, log logger.Logger) *Adapter {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.MaxAttempts > 2 {
		opts.MaxAttempts = 2
	}
	return &Adapter{
		generator: gen,
		opts:      opts,
		logger:    log.WithFields(map[string]interface{}{"component": "explain"}),
	}
}

// Compare never fails: generator errors are logged and absorbed into a
// fallback result carrying an explanation_fallback diagnostic.
func (a *Adapter) Compare(ctx context.Context, progA, progB *models.ScoredCandidate) *models.ComparisonResult {
	ctx, span := otel.Tracer("program-recommender/explain").Start(ctx, "explain.Compare")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("programA", progA.ProgramID),
		attribute.Int64("programB", progB.ProgramID),
	)

	summary := BuildSummary(progA, progB)

	text, err := a.generate(ctx, summary)
	if err == nil {
		span.SetAttributes(attribute.String("source", models.SourceGenerator))
		metrics.ExplanationsTotal.WithLabelValues(models.SourceGenerator).Inc()
		return &models.ComparisonResult{
			Success: true,
			Summary: text,
			Source:  models.SourceGenerator,
		}
	}

	stdErr := apperrors.AsStandardError(err)
	a.logger.Warn("Explanation generator failed, using fallback summary", map[string]interface{}{
		"programA":  progA.ProgramID,
		"programB":  progB.ProgramID,
		"errorCode": string(stdErr.Code),
		"error":     stdErr.Error(),
	})
	span.RecordError(stdErr)
	span.SetAttributes(attribute.String("source", models.SourceFallback))
	metrics.ExplanationsTotal.WithLabelValues(models.SourceFallback).Inc()

	return &models.ComparisonResult{
		Success: false,
		Summary: summary.Fallback(),
		Source:  models.SourceFallback,
		Diagnostics: []models.Diagnostic{
			models.NewDiagnostic(models.DiagExplanationFallback, "%s", fallbackReason(stdErr)),
		},
	}
}

// generate calls the generator up to MaxAttempts times with the same prompt,
// each attempt under its own timeout. The error is always a *StandardError.
func (a *Adapter) generate(ctx context.Context, summary *Summary) (string, error) {
	if a.generator == nil {
		return "", apperrors.NewExternalCollaboratorError("generator", errors.New("no generator configured"))
	}

	name := a.generator.Name()
	prompt := summary.Prompt()

	var lastErr error
	for attempt := 1; attempt <= a.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(a.opts.Backoff):
			case <-ctx.Done():
				return "", apperrors.NewExternalCollaboratorError(name, ctx.Err())
			}
		}

		text, err := a.attempt(ctx, prompt, summary)
		if err == nil {
			metrics.ExplanationAttempts.WithLabelValues(name, "success").Inc()
			return text, nil
		}
		lastErr = err

		outcome := "error"
		if apperrors.HasCode(err, apperrors.ErrCodeExplanationTimeout) {
			outcome = "timeout"
		}
		metrics.ExplanationAttempts.WithLabelValues(name, outcome).Inc()
		a.logger.Debug("Explanation attempt failed", map[string]interface{}{
			"generator": name,
			"attempt":   attempt,
			"error":     err.Error(),
		})

		if ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}

func (a *Adapter) attempt(ctx context.Context, prompt string, summary *Summary) (string, error) {
	name := a.generator.Name()

	attemptCtx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	text, err := a.generator.Generate(attemptCtx, prompt, summary)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return "", apperrors.NewExplanationTimeoutError(name, a.opts.Timeout)
		}
		return "", apperrors.NewExternalCollaboratorError(name, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", apperrors.NewExternalCollaboratorError(name, errEmptyText)
	}
	return text, nil
}

func fallbackReason(err *apperrors.StandardError) string {
	if err.Code == apperrors.ErrCodeExplanationTimeout {
		return "explanation generator timed out, templated summary returned"
	}
	if err.Details != "" {
		return "explanation generator unavailable (" + err.Details + "), templated summary returned"
	}
	return "explanation generator unavailable, templated summary returned"
}
