// internal/models/recommendation.go
package models

import (
	"encoding/json"
	"fmt"
)

// Criterion names as they appear in criterion_scores.
const (
	CriterionFieldMatch         = "field_match"
	CriterionBudgetFit          = "budget_fit"
	CriterionAcademicFit        = "academic_fit"
	CriterionLocationPreference = "location_preference"
	CriterionDurationFit        = "duration_fit"
)

// ScoredCandidate is the output unit of a ranking: the candidate's scores plus
// the display details a caller needs to render or compare it.
type ScoredCandidate struct {
	ProgramID       int64              `json:"program_id"`
	UniversityID    *int64             `json:"university_id,omitempty"`
	Rank            int                `json:"rank,omitempty"`
	TotalScore      float64            `json:"total_score"`
	CriterionScores map[string]float64 `json:"criterion_scores"`
	Eligible        bool               `json:"eligible"`

	Name           string   `json:"name,omitempty"`
	UniversityName string   `json:"university_name,omitempty"`
	Level          string   `json:"level,omitempty"`
	State          string   `json:"state,omitempty"`
	TuitionFee     *float64 `json:"tuition_fee,omitempty"`
	DurationMonths *int     `json:"duration_months,omitempty"`
	Rating         *float64 `json:"rating,omitempty"`
	ReviewCount    *int     `json:"review_count,omitempty"`
	EmploymentRate *float64 `json:"employment_rate,omitempty"`
}

// DisplayName returns the program name, or a synthetic one when the catalog had none.
func (s *ScoredCandidate) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("Program %d", s.ProgramID)
}

type DiagnosticKind string

const (
	DiagInvalidCandidate      DiagnosticKind = "invalid_candidate"
	DiagDuplicateProgram      DiagnosticKind = "duplicate_program"
	DiagIneligibleLevel       DiagnosticKind = "ineligible_level"
	DiagOverBudget            DiagnosticKind = "over_budget"
	DiagProfileFieldIgnored   DiagnosticKind = "profile_field_ignored"
	DiagCandidateFieldIgnored DiagnosticKind = "candidate_field_ignored"
	DiagLimitIgnored          DiagnosticKind = "limit_ignored"
	DiagExplanationFallback   DiagnosticKind = "explanation_fallback"
)

// Diagnostic records a non-fatal change to the input: a dropped or altered
// candidate, an ignored profile value, or a degraded explanation.
type Diagnostic struct {
	ProgramID *int64         `json:"program_id,omitempty"`
	Kind      DiagnosticKind `json:"kind"`
	Message   string         `json:"message"`
}

func NewDiagnostic(kind DiagnosticKind, format string, args ...interface{}) Diagnostic {
	return Diagnostic{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NewProgramDiagnostic(programID int64, kind DiagnosticKind, format string, args ...interface{}) Diagnostic {
	id := programID
	return Diagnostic{ProgramID: &id, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// RecommendationRequest is the body of a ranking call. Programs stay raw so a
// single malformed element can be dropped without failing the decode. A nil
// Programs slice (absent or null) asks for the configured catalog.
type RecommendationRequest struct {
	StudentProfile RawProfile        `json:"student_profile"`
	Programs       []json.RawMessage `json:"programs"`
	Limit          *int              `json:"limit,omitempty"`
}

type RecommendationResult struct {
	RequestID            string            `json:"request_id,omitempty"`
	Cached               bool              `json:"cached"`
	Ranked               []ScoredCandidate `json:"ranked"`
	TotalCountConsidered int               `json:"total_count_considered"`
	EligibleCount        int               `json:"eligible_count"`
	Diagnostics          []Diagnostic      `json:"diagnostics"`

	// Excluded holds the scored ineligible candidates for logging. It is not
	// part of the response and does not survive the result cache.
	Excluded []ScoredCandidate `json:"-"`
}

type ComparisonRequest struct {
	ProgramA ScoredCandidate `json:"programA"`
	ProgramB ScoredCandidate `json:"programB"`
}

// Explanation sources.
const (
	SourceGenerator = "generator"
	SourceFallback  = "fallback"
)

type ComparisonResult struct {
	Success     bool         `json:"success"`
	Summary     string       `json:"summary"`
	Source      string       `json:"source"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}
