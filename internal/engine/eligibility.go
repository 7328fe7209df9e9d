package engine

import (
	"math"
	"strings"

	"program-recommender/internal/models"
)

// budgetSlack absorbs float error in budget*(1+tolerance), so a fee of
// exactly 55000 against 50000 at 10% is not rejected by rounding.
const budgetSlack = 1e-9

// checkEligibility applies the hard constraints. It returns nil for an
// eligible candidate, otherwise the diagnostic explaining the exclusion.
// CGPA is never a hard constraint.
func (e *Engine) checkEligibility(p *models.StudentProfile, c *models.CandidateProgram) *models.Diagnostic {
	if !strings.EqualFold(strings.TrimSpace(c.Level), p.StudyLevel) {
		d := programDiag(c.ProgramID, models.DiagIneligibleLevel,
			"program %d is offered at level %q, student is at %q", c.ProgramID, c.Level, p.StudyLevel)
		return &d
	}

	if p.Budget != nil && c.TuitionFee != nil {
		limit := *p.Budget * (1 + e.cfg.BudgetTolerance)
		if *c.TuitionFee > limit+budgetSlack*math.Max(1, limit) {
			d := programDiag(c.ProgramID, models.DiagOverBudget,
				"program %d tuition %.2f exceeds budget %.2f plus %.0f%% tolerance",
				c.ProgramID, *c.TuitionFee, *p.Budget, e.cfg.BudgetTolerance*100)
			return &d
		}
	}
	return nil
}
