// internal/models/program.go
package models

import "sort"

// RawProfile is the student profile as it arrives on the wire. Every field is
// left untyped so numbers and numeric strings can both be coerced.
type RawProfile struct {
	StudyLevel      interface{} `json:"study_level"`
	FieldIDs        interface{} `json:"field_ids"`
	CGPA            interface{} `json:"cgpa,omitempty"`
	Budget          interface{} `json:"budget,omitempty"`
	PreferredStates interface{} `json:"preferred_states,omitempty"`
}

// RawCandidate is one catalog record before normalization.
type RawCandidate struct {
	ProgramID      interface{} `json:"program_id"`
	UniversityID   interface{} `json:"university_id,omitempty"`
	FieldID        interface{} `json:"field_id"`
	TuitionFee     interface{} `json:"tuition_fee,omitempty"`
	DurationMonths interface{} `json:"duration_months,omitempty"`
	Level          interface{} `json:"level"`
	State          interface{} `json:"state,omitempty"`
	Name           interface{} `json:"name,omitempty"`
	UniversityName interface{} `json:"university_name,omitempty"`

	Rating         interface{} `json:"rating,omitempty"`
	ReviewCount    interface{} `json:"review_count,omitempty"`
	EmploymentRate interface{} `json:"employment_rate,omitempty"`

	EntryRequirements interface{} `json:"entry_requirements,omitempty"`
	Curriculum        interface{} `json:"curriculum,omitempty"`
	CareerOutcomes    interface{} `json:"career_outcomes,omitempty"`
	Facilities        interface{} `json:"facilities,omitempty"`
}

// StudentProfile is a normalized profile. Optional values are nil when absent.
type StudentProfile struct {
	StudyLevel      string   `json:"study_level"`
	FieldIDs        []int64  `json:"field_ids"` // sorted, unique, never empty
	CGPA            *float64 `json:"cgpa,omitempty"`
	Budget          *float64 `json:"budget,omitempty"`
	PreferredStates []string `json:"preferred_states,omitempty"`
}

// HasField reports whether id is one of the profile's fields of interest.
func (p *StudentProfile) HasField(id int64) bool {
	i := sort.Search(len(p.FieldIDs), func(i int) bool { return p.FieldIDs[i] >= id })
	return i < len(p.FieldIDs) && p.FieldIDs[i] == id
}

// CandidateProgram is a normalized candidate.
type CandidateProgram struct {
	ProgramID      int64    `json:"program_id"`
	UniversityID   *int64   `json:"university_id,omitempty"`
	FieldID        int64    `json:"field_id"`
	TuitionFee     *float64 `json:"tuition_fee,omitempty"`
	DurationMonths *int     `json:"duration_months,omitempty"`
	Level          string   `json:"level"`
	State          string   `json:"state,omitempty"` // empty when unknown
	Name           string   `json:"name,omitempty"`
	UniversityName string   `json:"university_name,omitempty"`

	// Enrichment. Carried for explanations and display, never scored.
	Rating         *float64 `json:"rating,omitempty"`
	ReviewCount    *int     `json:"review_count,omitempty"`
	EmploymentRate *float64 `json:"employment_rate,omitempty"`

	EntryRequirements map[string]interface{} `json:"entry_requirements,omitempty"`
	Curriculum        map[string]interface{} `json:"curriculum,omitempty"`
	CareerOutcomes    map[string]interface{} `json:"career_outcomes,omitempty"`
	Facilities        map[string]interface{} `json:"facilities,omitempty"`
}
