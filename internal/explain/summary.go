package explain

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"program-recommender/internal/models"
)

const (
	maxDifferentiators = 3
	minDifference      = 0.01
	// tieGap is the total-score gap below which two programs are worded as even.
	tieGap = 0.005
)

// Side is one program of a comparison as the generator sees it.
type Side struct {
	ProgramID       int64              `json:"program_id"`
	Name            string             `json:"name"`
	UniversityName  string             `json:"university_name,omitempty"`
	TotalScore      float64            `json:"total_score"`
	CriterionScores map[string]float64 `json:"criterion_scores"`
	TuitionFee      *float64           `json:"tuition_fee,omitempty"`
	DurationMonths  *int               `json:"duration_months,omitempty"`
	Rating          *float64           `json:"rating,omitempty"`
	State           string             `json:"state,omitempty"`
}

// Differentiator is a per-criterion score difference, A minus B.
type Differentiator struct {
	Criterion  string  `json:"criterion"`
	ScoreA     float64 `json:"score_a"`
	ScoreB     float64 `json:"score_b"`
	Difference float64 `json:"difference"`
	Favors     string  `json:"favors"` // "A" or "B"
}

// Summary is the structured, deterministic view of a comparison. It is sent
// to the generator and is the only input of the fallback text.
type Summary struct {
	ProgramA        Side             `json:"programA"`
	ProgramB        Side             `json:"programB"`
	Leader          string           `json:"leader"` // "A", "B" or "tie"
	ScoreGap        float64          `json:"score_gap"`
	Differentiators []Differentiator `json:"differentiators"`
}

// BuildSummary compares a and b criterion by criterion. Differentiators are
// ordered by absolute difference, then criterion name, and capped at three.
func BuildSummary(a, b *models.ScoredCandidate) *Summary {
	s := &Summary{
		ProgramA: toSide(a),
		ProgramB: toSide(b),
		ScoreGap: a.TotalScore - b.TotalScore,
	}
	switch {
	case math.Abs(s.ScoreGap) < tieGap:
		s.Leader = "tie"
	case s.ScoreGap > 0:
		s.Leader = "A"
	default:
		s.Leader = "B"
	}

	names := make(map[string]bool, len(a.CriterionScores)+len(b.CriterionScores))
	for name := range a.CriterionScores {
		names[name] = true
	}
	for name := range b.CriterionScores {
		names[name] = true
	}

	diffs := make([]Differentiator, 0, len(names))
	for name := range names {
		sa, sb := a.CriterionScores[name], b.CriterionScores[name]
		d := sa - sb
		if math.Abs(d) < minDifference {
			continue
		}
		favors := "A"
		if d < 0 {
			favors = "B"
		}
		diffs = append(diffs, Differentiator{Criterion: name, ScoreA: sa, ScoreB: sb, Difference: d, Favors: favors})
	}
	sort.Slice(diffs, func(i, j int) bool {
		di, dj := math.Abs(diffs[i].Difference), math.Abs(diffs[j].Difference)
		if di != dj {
			return di > dj
		}
		return diffs[i].Criterion < diffs[j].Criterion
	})
	if len(diffs) > maxDifferentiators {
		diffs = diffs[:maxDifferentiators]
	}
	s.Differentiators = diffs
	return s
}

func toSide(c *models.ScoredCandidate) Side {
	return Side{
		ProgramID:       c.ProgramID,
		Name:            c.DisplayName(),
		UniversityName:  c.UniversityName,
		TotalScore:      c.TotalScore,
		CriterionScores: c.CriterionScores,
		TuitionFee:      c.TuitionFee,
		DurationMonths:  c.DurationMonths,
		Rating:          c.Rating,
		State:           c.State,
	}
}

// Prompt renders the instruction sent to the text generator.
func (s *Summary) Prompt() string {
	var parts []string

	parts = append(parts, "You are a helpful university admissions advisor. Compare the two study programs below for a student, based ONLY on the provided data.")

	data, _ := json.MarshalIndent(s, "", "  ")
	parts = append(parts, "\nComparison Data:")
	parts = append(parts, string(data))

	parts = append(parts, "\nInstructions:")
	parts = append(parts, "- Scores are between 0 and 1; higher means a better fit for this student")
	parts = append(parts, "- Start with which program fits better overall, then explain the key differentiators")
	parts = append(parts, "- Mention tuition, duration and rating only when they are given")
	parts = append(parts, "- Keep the answer under 120 words, plain text, no lists")

	parts = append(parts, "\nComparison:")

	return strings.Join(parts, "\n")
}

// Fallback renders a templated comparison from the summary alone. It is
// never empty.
func (s *Summary) Fallback() string {
	a, b := s.ProgramA, s.ProgramB
	var sb strings.Builder

	switch s.Leader {
	case "A":
		fmt.Fprintf(&sb, "%s scores %s overall against %s for %s, making it the closer fit.",
			a.Name, percent(a.TotalScore), percent(b.TotalScore), b.Name)
	case "B":
		fmt.Fprintf(&sb, "%s scores %s overall against %s for %s, making it the closer fit.",
			b.Name, percent(b.TotalScore), percent(a.TotalScore), a.Name)
	default:
		fmt.Fprintf(&sb, "%s and %s are an even match overall (%s vs %s).",
			a.Name, b.Name, percent(a.TotalScore), percent(b.TotalScore))
	}

	if len(s.Differentiators) == 0 {
		sb.WriteString(" Their individual criterion scores are nearly identical.")
	} else {
		items := make([]string, len(s.Differentiators))
		for i, d := range s.Differentiators {
			items[i] = fmt.Sprintf("%s (%s vs %s)", criterionLabel(d.Criterion), percent(d.ScoreA), percent(d.ScoreB))
		}
		fmt.Fprintf(&sb, " The largest differences are in %s.", joinList(items))
	}

	if a.TuitionFee != nil && b.TuitionFee != nil {
		fmt.Fprintf(&sb, " Tuition is %.0f versus %.0f.", *a.TuitionFee, *b.TuitionFee)
	}
	if a.DurationMonths != nil && b.DurationMonths != nil {
		fmt.Fprintf(&sb, " Duration is %d versus %d months.", *a.DurationMonths, *b.DurationMonths)
	}
	if a.Rating != nil && b.Rating != nil {
		fmt.Fprintf(&sb, " Ratings are %.1f and %.1f out of 5.", *a.Rating, *b.Rating)
	}
	return sb.String()
}

func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

func criterionLabel(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}

func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
