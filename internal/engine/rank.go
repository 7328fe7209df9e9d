package engine

import (
	"sort"

	"program-recommender/internal/models"
)

// score evaluates every criterion and the weighted total. Weights are
// pre-normalized so the total stays in [0,1].
func (e *Engine) score(p *models.StudentProfile, c *models.CandidateProgram) (float64, map[string]float64) {
	scores := make(map[string]float64, len(e.criteria))
	total := 0.0
	for i, cr := range e.criteria {
		s := clamp01(cr.Score(p, c))
		scores[cr.Name] = s
		total += e.weights[i] * s
	}
	return clamp01(total), scores
}

// less orders by total score desc, then field match desc, then program id asc.
// Scores compare exactly so the order is reproducible.
func less(a, b *models.ScoredCandidate) bool {
	if a.TotalScore != b.TotalScore {
		return a.TotalScore > b.TotalScore
	}
	fa, fb := a.CriterionScores[models.CriterionFieldMatch], b.CriterionScores[models.CriterionFieldMatch]
	if fa != fb {
		return fa > fb
	}
	return a.ProgramID < b.ProgramID
}

func sortScored(list []models.ScoredCandidate) {
	sort.Slice(list, func(i, j int) bool { return less(&list[i], &list[j]) })
}

// applyLimit truncates ranked to a positive limit. A non-positive limit is
// ignored and reported.
func applyLimit(ranked []models.ScoredCandidate, limit *int) ([]models.ScoredCandidate, *models.Diagnostic) {
	if limit == nil {
		return ranked, nil
	}
	if *limit <= 0 {
		d := models.NewDiagnostic(models.DiagLimitIgnored, "limit %d is not positive, returning all eligible programs", *limit)
		return ranked, &d
	}
	if *limit < len(ranked) {
		return ranked[:*limit], nil
	}
	return ranked, nil
}

func toScored(c *models.CandidateProgram, total float64, scores map[string]float64, eligible bool) models.ScoredCandidate {
	return models.ScoredCandidate{
		ProgramID:       c.ProgramID,
		UniversityID:    c.UniversityID,
		TotalScore:      total,
		CriterionScores: scores,
		Eligible:        eligible,
		Name:            c.Name,
		UniversityName:  c.UniversityName,
		Level:           c.Level,
		State:           c.State,
		TuitionFee:      c.TuitionFee,
		DurationMonths:  c.DurationMonths,
		Rating:          c.Rating,
		ReviewCount:     c.ReviewCount,
		EmploymentRate:  c.EmploymentRate,
	}
}
