// Package engine scores candidate study programs against a student profile
// and ranks them. It is a pure function of its input: no I/O and no state
// shared between calls.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"program-recommender/internal/common/logger"
	"program-recommender/internal/models"
)

const tracerName = "program-recommender/engine"

type Engine struct {
	cfg         Config
	criteria    []Criterion
	weights     []float64 // normalized, parallel to criteria
	levels      map[string]string
	levelValues []interface{}
	logger      logger.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithCriteria registers criteria in addition to the defaults.
func WithCriteria(criteria ...Criterion) Option {
	return func(e *Engine) {
		e.criteria = append(e.criteria, criteria...)
	}
}

func New(cfg Config, log logger.Logger, opts ...Option) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}

	e := &Engine{
		cfg:      cfg,
		criteria: DefaultCriteria(cfg),
		levels:   make(map[string]string, len(cfg.Levels)),
		logger:   log.WithFields(map[string]interface{}{"component": "engine"}),
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, l := range cfg.Levels {
		canonical := strings.TrimSpace(l)
		e.levels[strings.ToLower(canonical)] = canonical
		e.levelValues = append(e.levelValues, canonical)
	}

	for name := range cfg.Weights {
		if !e.hasCriterion(name) {
			return nil, fmt.Errorf("engine config: weight given for unknown criterion %q", name)
		}
	}

	sum := 0.0
	names := make(map[string]bool, len(e.criteria))
	for _, cr := range e.criteria {
		if cr.Score == nil {
			return nil, fmt.Errorf("criterion %q has no score function", cr.Name)
		}
		if names[cr.Name] {
			return nil, fmt.Errorf("criterion %q registered twice", cr.Name)
		}
		names[cr.Name] = true
		if cr.Weight < 0 {
			return nil, fmt.Errorf("criterion %q has negative weight %v", cr.Name, cr.Weight)
		}
		sum += cr.Weight
	}
	if sum <= 0 {
		return nil, fmt.Errorf("criterion weights must have a positive sum")
	}
	e.weights = make([]float64, len(e.criteria))
	for i, cr := range e.criteria {
		e.weights[i] = cr.Weight / sum
	}
	return e, nil
}

func (e *Engine) hasCriterion(name string) bool {
	for _, cr := range e.criteria {
		if cr.Name == name {
			return true
		}
	}
	return false
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() Config {
	return e.cfg
}

// Rank scores and ranks the programs of req. A nil Programs slice is treated
// as empty; loading a catalog is the caller's job.
func (e *Engine) Rank(ctx context.Context, req *models.RecommendationRequest) (*models.RecommendationResult, error) {
	return e.rank(ctx, req.StudentProfile, decodeCandidates(req.Programs), req.Limit)
}

// RankCandidates is Rank for candidates that are already decoded, such as
// catalog rows.
func (e *Engine) RankCandidates(ctx context.Context, profile models.RawProfile, candidates []models.RawCandidate, limit *int) (*models.RecommendationResult, error) {
	return e.rank(ctx, profile, wrapCandidates(candidates), limit)
}

// evaluation is the per-candidate outcome, written to its own slot.
type evaluation struct {
	scored models.ScoredCandidate
	diag   *models.Diagnostic
}

func (e *Engine) rank(ctx context.Context, rawProfile models.RawProfile, items []rawItem, limit *int) (*models.RecommendationResult, error) {
	startTime := time.Now()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "engine.Rank")
	defer span.End()
	span.SetAttributes(attribute.Int("candidates.input", len(items)))

	profile, diags, err := e.NormalizeProfile(rawProfile)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid profile")
		return nil, err
	}

	candidates, candDiags := e.normalizeCandidates(items)
	diags = append(diags, candDiags...)

	evals, err := e.evaluate(ctx, profile, candidates)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluation aborted")
		return nil, err
	}

	ranked := make([]models.ScoredCandidate, 0, len(evals))
	var excluded []models.ScoredCandidate
	for i := range evals {
		if evals[i].diag != nil {
			diags = append(diags, *evals[i].diag)
			excluded = append(excluded, evals[i].scored)
			continue
		}
		ranked = append(ranked, evals[i].scored)
	}

	sortScored(ranked)
	sortScored(excluded)
	eligible := len(ranked)

	ranked, limitDiag := applyLimit(ranked, limit)
	if limitDiag != nil {
		diags = append(diags, *limitDiag)
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	if diags == nil {
		diags = []models.Diagnostic{}
	}

	result := &models.RecommendationResult{
		Ranked:               ranked,
		TotalCountConsidered: len(candidates),
		EligibleCount:        eligible,
		Diagnostics:          diags,
		Excluded:             excluded,
	}

	duration := time.Since(startTime)
	span.SetAttributes(
		attribute.Int("candidates.considered", len(candidates)),
		attribute.Int("candidates.eligible", eligible),
		attribute.Int("candidates.returned", len(ranked)),
	)
	fields := map[string]interface{}{
		"input":       len(items),
		"considered":  len(candidates),
		"eligible":    eligible,
		"returned":    len(ranked),
		"diagnostics": len(diags),
		"durationMs":  duration.Milliseconds(),
	}
	if duration > e.cfg.SlowRankingThreshold {
		e.logger.Warn("Ranking took longer than expected", fields)
	} else {
		e.logger.Debug("Ranking completed", fields)
	}
	return result, nil
}

// evaluate applies eligibility and scoring to every candidate. Large batches
// fan out over a bounded errgroup; each goroutine writes only its own slot.
func (e *Engine) evaluate(ctx context.Context, p *models.StudentProfile, candidates []models.CandidateProgram) ([]evaluation, error) {
	evals := make([]evaluation, len(candidates))

	if len(candidates) < e.cfg.ParallelThreshold || e.cfg.MaxParallelism <= 1 {
		for i := range candidates {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			evals[i] = e.evaluateOne(p, &candidates[i])
		}
		return evals, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxParallelism)
	for i := range candidates {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			evals[i] = e.evaluateOne(p, &candidates[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return evals, nil
}

func (e *Engine) evaluateOne(p *models.StudentProfile, c *models.CandidateProgram) evaluation {
	diag := e.checkEligibility(p, c)
	total, scores := e.score(p, c)
	return evaluation{
		scored: toScored(c, total, scores, diag == nil),
		diag:   diag,
	}
}
