package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"program-recommender/internal/models"
)

// rawItem is one input candidate before normalization. err is set when the
// element could not be decoded as an object.
type rawItem struct {
	cand *models.RawCandidate
	err  error
}

var errNotObject = errors.New("not a JSON object")

func decodeCandidates(raws []json.RawMessage) []rawItem {
	items := make([]rawItem, len(raws))
	for i, raw := range raws {
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			items[i] = rawItem{err: errNotObject}
			continue
		}
		var rc models.RawCandidate
		if err := models.DecodeJSON(trimmed, &rc); err != nil {
			items[i] = rawItem{err: err}
			continue
		}
		items[i] = rawItem{cand: &rc}
	}
	return items
}

func wrapCandidates(raws []models.RawCandidate) []rawItem {
	items := make([]rawItem, len(raws))
	for i := range raws {
		items[i] = rawItem{cand: &raws[i]}
	}
	return items
}

// normalizeCandidates never fails the batch. Invalid records and repeated
// program ids are dropped with a diagnostic; the first valid occurrence of a
// program id wins.
func (e *Engine) normalizeCandidates(items []rawItem) ([]models.CandidateProgram, []models.Diagnostic) {
	var diags []models.Diagnostic
	candidates := make([]models.CandidateProgram, 0, len(items))
	firstSeen := make(map[int64]int, len(items))

	for i, item := range items {
		if item.err != nil {
			diags = append(diags, models.NewDiagnostic(models.DiagInvalidCandidate,
				"%s: %v, dropped", fieldPath("programs", i), item.err))
			continue
		}

		cand, cdiags, ok := e.normalizeCandidate(i, item.cand)
		if !ok {
			diags = append(diags, cdiags...)
			continue
		}
		if first, dup := firstSeen[cand.ProgramID]; dup {
			diags = append(diags, programDiag(cand.ProgramID, models.DiagDuplicateProgram,
				"%s: program %d already given at %s, dropped", fieldPath("programs", i), cand.ProgramID, fieldPath("programs", first)))
			continue
		}
		firstSeen[cand.ProgramID] = i
		diags = append(diags, cdiags...)
		candidates = append(candidates, cand)
	}
	return candidates, diags
}

func (e *Engine) normalizeCandidate(idx int, rc *models.RawCandidate) (models.CandidateProgram, []models.Diagnostic, bool) {
	programID, ok := toInt64(rc.ProgramID)
	if !ok {
		return models.CandidateProgram{}, []models.Diagnostic{models.NewDiagnostic(models.DiagInvalidCandidate,
			"%s: program_id missing or not an integer, dropped", fieldPath("programs", idx))}, false
	}

	level, levelOK := toText(rc.Level)
	fieldID, fieldOK := toInt64(rc.FieldID)
	if !levelOK || !fieldOK {
		var missing []string
		if !levelOK {
			missing = append(missing, "level")
		}
		if !fieldOK {
			missing = append(missing, "field_id")
		}
		return models.CandidateProgram{}, []models.Diagnostic{programDiag(programID, models.DiagInvalidCandidate,
			"%s: program %d has no valid %s, dropped", fieldPath("programs", idx), programID, strings.Join(missing, " or "))}, false
	}
	level, _ = e.canonicalLevel(level)

	var diags []models.Diagnostic
	ignore := func(field string, value interface{}, reason string) {
		diags = append(diags, programDiag(programID, models.DiagCandidateFieldIgnored,
			"program %d %s", programID, ignoredMessage(field, value, reason)))
	}

	cand := models.CandidateProgram{
		ProgramID:    programID,
		UniversityID: optionalID(rc.UniversityID, "university_id", ignore),
		FieldID:      fieldID,
		TuitionFee: optionalFloat(rc.TuitionFee, "tuition_fee", ignore,
			validation.Min(0.0)),
		DurationMonths: optionalInt(rc.DurationMonths, "duration_months", ignore,
			validation.Required.Error("must be a positive number of months"),
			validation.Min(1).Error("must be a positive number of months")),
		Level:          level,
		State:          optionalText(rc.State, "state", ignore),
		Name:           optionalText(rc.Name, "name", ignore),
		UniversityName: optionalText(rc.UniversityName, "university_name", ignore),

		Rating: optionalFloat(rc.Rating, "rating", ignore,
			validation.Min(0.0), validation.Max(5.0)),
		ReviewCount: optionalInt(rc.ReviewCount, "review_count", ignore,
			validation.Min(0)),
		EmploymentRate: optionalFloat(rc.EmploymentRate, "employment_rate", ignore,
			validation.Min(0.0), validation.Max(1.0)),

		EntryRequirements: optionalObject(rc.EntryRequirements, "entry_requirements", ignore),
		Curriculum:        optionalObject(rc.Curriculum, "curriculum", ignore),
		CareerOutcomes:    optionalObject(rc.CareerOutcomes, "career_outcomes", ignore),
		Facilities:        optionalObject(rc.Facilities, "facilities", ignore),
	}
	return cand, diags, true
}
