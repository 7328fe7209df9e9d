package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"program-recommender/internal/common/config"
	"program-recommender/internal/models"
)

func f64(v float64) *float64 { return &v }
func intp(v int) *int { return &v }

func TestBudgetFit(t *testing.T) {
	tests := []struct {
		name   string
		budget *float64
		fee    *float64
		want   float64
	}{
		{"no budget", nil, f64(90000), 1},
		{"no fee", f64(50000), nil, 1},
		{"free program", f64(50000), f64(0), 1},
		{"half budget", f64(50000), f64(25000), 0.5},
		{"exactly budget", f64(50000), f64(50000), 0},
		{"within tolerance", f64(50000), f64(54000), 0},
		{"zero budget", f64(0), f64(0), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &models.StudentProfile{Budget: tt.budget}
			c := &models.CandidateProgram{TuitionFee: tt.fee}
			assert.InDelta(t, tt.want, BudgetFit(p, c), 1e-12)
		})
	}
}

func TestAcademicFit(t *testing.T) {
	score := AcademicFit(4.0)
	c := &models.CandidateProgram{}

	assert.Equal(t, 1.0, score(&models.StudentProfile{}, c))
	assert.Equal(t, 0.0, score(&models.StudentProfile{CGPA: f64(0)}, c))
	assert.Equal(t, 0.75, score(&models.StudentProfile{CGPA: f64(3.0)}, c))
	assert.Equal(t, 1.0, score(&models.StudentProfile{CGPA: f64(4.0)}, c))

	// Monotonic in cgpa.
	assert.Less(t, score(&models.StudentProfile{CGPA: f64(2.1)}, c), score(&models.StudentProfile{CGPA: f64(2.2)}, c))
}

func TestLocationPreference(t *testing.T) {
	score := LocationPreference(0.5)

	tests := []struct {
		name  string
		prefs []string
		state string
		want  float64
	}{
		{"no preference", nil, "Penang", 1},
		{"unknown state", []string{"Selangor"}, "", 1},
		{"preferred", []string{"Selangor", "Johor"}, "Johor", 1},
		{"case-insensitive", []string{"selangor"}, "SELANGOR", 1},
		{"mismatch", []string{"Selangor"}, "Sabah", 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &models.StudentProfile{PreferredStates: tt.prefs}
			c := &models.CandidateProgram{State: tt.state}
			assert.Equal(t, tt.want, score(p, c))
		})
	}
}

func TestDurationFit(t *testing.T) {
	cfg := DefaultConfig()
	score := DurationFit(cfg.DurationBuckets, cfg.DurationMaxDeviation)

	tests := []struct {
		name     string
		level    string
		duration *int
		want     float64
	}{
		{"absent duration", "Bachelor", nil, 1},
		{"lower edge", "Bachelor", intp(36), 1},
		{"upper edge", "Bachelor", intp(48), 1},
		{"12 months short", "Bachelor", intp(24), 0.5},
		{"6 months long", "Bachelor", intp(54), 0.75},
		{"at max deviation", "Bachelor", intp(72), 0},
		{"beyond max deviation", "Bachelor", intp(120), 0},
		{"master bucket", "Master", intp(18), 1},
		{"level without bucket", "Certificate", intp(3), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &models.StudentProfile{StudyLevel: tt.level}
			c := &models.CandidateProgram{DurationMonths: tt.duration}
			assert.InDelta(t, tt.want, score(p, c), 1e-12)
		})
	}
}

func TestDurationFit_ZeroDeviationIsStep(t *testing.T) {
	score := DurationFit(map[string]DurationBucket{"bachelor": {MinMonths: 36, MaxMonths: 48}}, 0)
	p := &models.StudentProfile{StudyLevel: "Bachelor"}

	assert.Equal(t, 1.0, score(p, &models.CandidateProgram{DurationMonths: intp(40)}))
	assert.Equal(t, 0.0, score(p, &models.CandidateProgram{DurationMonths: intp(49)}))
}

func TestFieldMatch(t *testing.T) {
	p := &models.StudentProfile{FieldIDs: []int64{2, 5, 9}}

	assert.Equal(t, 1.0, FieldMatch(p, &models.CandidateProgram{FieldID: 5}))
	assert.Equal(t, 0.0, FieldMatch(p, &models.CandidateProgram{FieldID: 4}))
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-3))
	assert.Equal(t, 1.0, clamp01(7))
	assert.Equal(t, 0.25, clamp01(0.25))
}

func TestConfigFromSettings(t *testing.T) {
	tol := 0.0
	mismatch := 0.2
	cfg := ConfigFromSettings(config.EngineConfig{
		Weights:               map[string]float64{"Field_Match": 1},
		BudgetTolerance:       &tol,
		LocationMismatchScore: &mismatch,
		CGPAScale:             10,
		DurationBuckets: map[string]config.DurationBucketConfig{
			"Bachelor": {MinMonths: 30, MaxMonths: 40},
		},
		ParallelThreshold:    16,
		SlowRankingThreshold: 250,
	})

	assert.Equal(t, map[string]float64{models.CriterionFieldMatch: 1}, cfg.Weights)
	assert.Equal(t, 0.0, cfg.BudgetTolerance)
	assert.Equal(t, 0.2, cfg.LocationMismatchScore)
	assert.Equal(t, 10.0, cfg.CGPAScale)
	assert.Equal(t, DurationBucket{MinMonths: 30, MaxMonths: 40}, cfg.DurationBuckets["bachelor"])
	assert.Equal(t, DurationBucket{MinMonths: 12, MaxMonths: 24}, cfg.DurationBuckets["master"])
	assert.Equal(t, 16, cfg.ParallelThreshold)
	assert.Equal(t, int64(250), cfg.SlowRankingThreshold.Milliseconds())
	assert.Equal(t, DefaultConfig().Levels, cfg.Levels)

	unset := ConfigFromSettings(config.EngineConfig{})
	assert.Equal(t, 0.10, unset.BudgetTolerance)
	assert.Equal(t, 0.5, unset.LocationMismatchScore)
	assert.Len(t, unset.Weights, 5)
}

func TestCheckEligibility(t *testing.T) {
	e := newTestEngine(t)

	p := &models.StudentProfile{StudyLevel: "Bachelor", FieldIDs: []int64{1}, Budget: f64(50000), CGPA: f64(0.5)}

	assert.Nil(t, e.checkEligibility(p, &models.CandidateProgram{ProgramID: 1, Level: "bachelor", TuitionFee: f64(55000)}))
	assert.Nil(t, e.checkEligibility(p, &models.CandidateProgram{ProgramID: 2, Level: "Bachelor"}))

	d := e.checkEligibility(p, &models.CandidateProgram{ProgramID: 3, Level: "Diploma"})
	if assert.NotNil(t, d) {
		assert.Equal(t, models.DiagIneligibleLevel, d.Kind)
	}

	d = e.checkEligibility(p, &models.CandidateProgram{ProgramID: 4, Level: "Bachelor", TuitionFee: f64(55000.01)})
	if assert.NotNil(t, d) {
		assert.Equal(t, models.DiagOverBudget, d.Kind)
	}
}
