package explain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"program-recommender/internal/models"
)

func TestBuildSummary_LeaderAndDifferentiators(t *testing.T) {
	a, b := testPair()
	s := BuildSummary(a, b)

	assert.Equal(t, "A", s.Leader)
	assert.InDelta(t, 0.21, s.ScoreGap, 1e-9)

	require.Len(t, s.Differentiators, 3)
	assert.Equal(t, models.CriterionLocationPreference, s.Differentiators[0].Criterion)
	assert.Equal(t, "A", s.Differentiators[0].Favors)
	assert.Equal(t, models.CriterionDurationFit, s.Differentiators[1].Criterion)
	assert.Equal(t, models.CriterionBudgetFit, s.Differentiators[2].Criterion)
	for _, d := range s.Differentiators {
		assert.NotEqual(t, models.CriterionFieldMatch, d.Criterion)
	}
}

func TestBuildSummary_ReversedOrder(t *testing.T) {
	a, b := testPair()
	s := BuildSummary(b, a)

	assert.Equal(t, "B", s.Leader)
	assert.Equal(t, "B", s.Differentiators[0].Favors)
	assert.Less(t, s.Differentiators[0].Difference, 0.0)
}

func TestBuildSummary_Tie(t *testing.T) {
	a, _ := testPair()
	twin := *a
	twin.ProgramID = 303
	twin.Name = ""

	s := BuildSummary(a, &twin)
	assert.Equal(t, "tie", s.Leader)
	assert.Empty(t, s.Differentiators)
	assert.Equal(t, "Program 303", s.ProgramB.Name)

	text := s.Fallback()
	assert.Contains(t, text, "even match")
	assert.Contains(t, text, "nearly identical")
}

func TestBuildSummary_MissingCriterionCountsAsZero(t *testing.T) {
	a := &models.ScoredCandidate{ProgramID: 1, TotalScore: 0.5, CriterionScores: map[string]float64{"custom": 0.8}}
	b := &models.ScoredCandidate{ProgramID: 2, TotalScore: 0.5, CriterionScores: map[string]float64{}}

	s := BuildSummary(a, b)
	require.Len(t, s.Differentiators, 1)
	assert.Equal(t, "custom", s.Differentiators[0].Criterion)
	assert.InDelta(t, 0.8, s.Differentiators[0].Difference, 1e-9)
}

func TestSummary_Fallback(t *testing.T) {
	a, b := testPair()
	text := BuildSummary(a, b).Fallback()

	assert.True(t, strings.HasPrefix(text, "BSc Computer Science scores 92% overall against 71% for BEng Software Engineering"))
	assert.Contains(t, text, "location preference (100% vs 50%), duration fit (100% vs 75%) and budget fit (10% vs 0%)")
	assert.Contains(t, text, "Tuition is 18000 versus 24000.")
	assert.NotContains(t, text, "Duration is")
	assert.NotContains(t, text, "Ratings are")
}

func TestSummary_Prompt(t *testing.T) {
	a, b := testPair()
	prompt := BuildSummary(a, b).Prompt()

	assert.Contains(t, prompt, "university admissions advisor")
	assert.Contains(t, prompt, `"program_id": 101`)
	assert.Contains(t, prompt, `"leader": "A"`)
	assert.True(t, strings.HasSuffix(prompt, "\nComparison:"))
}

func TestJoinList(t *testing.T) {
	assert.Equal(t, "", joinList(nil))
	assert.Equal(t, "a", joinList([]string{"a"}))
	assert.Equal(t, "a and b", joinList([]string{"a", "b"}))
	assert.Equal(t, "a, b and c", joinList([]string{"a", "b", "c"}))
}
