package engine

import (
	"math"
	"strings"

	"program-recommender/internal/models"
)

// ScoreFunc scores one dimension of fit. It must be total: absent data scores
// neutral, never an error, and the result is clamped to [0,1] by the caller.
type ScoreFunc func(p *models.StudentProfile, c *models.CandidateProgram) float64

// Criterion is a named, weighted soft criterion.
type Criterion struct {
	Name   string
	Weight float64
	Score  ScoreFunc
}

// DefaultCriteria builds the five standard criteria from cfg. A criterion
// missing from cfg.Weights gets weight 0.
func DefaultCriteria(cfg Config) []Criterion {
	return []Criterion{
		{Name: models.CriterionFieldMatch, Weight: cfg.Weights[models.CriterionFieldMatch], Score: FieldMatch},
		{Name: models.CriterionBudgetFit, Weight: cfg.Weights[models.CriterionBudgetFit], Score: BudgetFit},
		{Name: models.CriterionAcademicFit, Weight: cfg.Weights[models.CriterionAcademicFit], Score: AcademicFit(cfg.CGPAScale)},
		{Name: models.CriterionLocationPreference, Weight: cfg.Weights[models.CriterionLocationPreference], Score: LocationPreference(cfg.LocationMismatchScore)},
		{Name: models.CriterionDurationFit, Weight: cfg.Weights[models.CriterionDurationFit], Score: DurationFit(cfg.DurationBuckets, cfg.DurationMaxDeviation)},
	}
}

// FieldMatch is binary.
func FieldMatch(p *models.StudentProfile, c *models.CandidateProgram) float64 {
	if p.HasField(c.FieldID) {
		return 1
	}
	return 0
}

// BudgetFit rewards cheaper programs linearly: free scores 1, a fee at or
// above the budget scores 0. A zero budget only fits nothing.
func BudgetFit(p *models.StudentProfile, c *models.CandidateProgram) float64 {
	if p.Budget == nil || c.TuitionFee == nil {
		return 1
	}
	if *p.Budget == 0 {
		return 0
	}
	return clamp01(1 - *c.TuitionFee / *p.Budget)
}

func AcademicFit(scale float64) ScoreFunc {
	return func(p *models.StudentProfile, _ *models.CandidateProgram) float64 {
		if p.CGPA == nil || scale <= 0 {
			return 1
		}
		return clamp01(*p.CGPA / scale)
	}
}

// LocationPreference scores 1 when there is no preference, the program's
// state is unknown, or the state is preferred; mismatch otherwise.
func LocationPreference(mismatch float64) ScoreFunc {
	return func(p *models.StudentProfile, c *models.CandidateProgram) float64 {
		if len(p.PreferredStates) == 0 || c.State == "" {
			return 1
		}
		for _, s := range p.PreferredStates {
			if strings.EqualFold(s, c.State) {
				return 1
			}
		}
		return clamp01(mismatch)
	}
}

// DurationFit scores 1 inside the ideal bucket for the student's level and
// decays linearly to 0 at maxDeviation months outside it.
func DurationFit(buckets map[string]DurationBucket, maxDeviation int) ScoreFunc {
	return func(p *models.StudentProfile, c *models.CandidateProgram) float64 {
		if c.DurationMonths == nil {
			return 1
		}
		bucket, ok := buckets[strings.ToLower(p.StudyLevel)]
		if !ok {
			return 1
		}

		d := *c.DurationMonths
		var distance int
		switch {
		case d < bucket.MinMonths:
			distance = bucket.MinMonths - d
		case d > bucket.MaxMonths:
			distance = d - bucket.MaxMonths
		default:
			return 1
		}
		if maxDeviation <= 0 {
			return 0
		}
		return clamp01(1 - float64(distance)/float64(maxDeviation))
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
