package engine

import (
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	apperrors "program-recommender/internal/common/errors"
	"program-recommender/internal/models"
)

// NormalizeProfile validates and canonicalizes a raw profile. A missing,
// blank or unknown study_level, or field_ids that yield no integer id, reject
// the request. Bad optional values are dropped with a diagnostic.
func (e *Engine) NormalizeProfile(raw models.RawProfile) (*models.StudentProfile, []models.Diagnostic, error) {
	var diags []models.Diagnostic
	ignore := func(field string, value interface{}, reason string) {
		diags = append(diags, models.NewDiagnostic(models.DiagProfileFieldIgnored, "%s", ignoredMessage(field, value, reason)))
	}

	level, _ := toText(raw.StudyLevel)
	level, _ = e.canonicalLevel(level)

	errs := validation.Errors{
		"study_level": validation.Validate(level,
			validation.Required,
			validation.In(e.levelValues...).Error("must be one of "+strings.Join(e.cfg.Levels, ", ")),
		),
	}

	fieldIDs, isList := profileFieldIDs(raw.FieldIDs, ignore)
	if raw.FieldIDs != nil && !isList {
		errs["field_ids"] = validation.NewError("validation_not_a_list", "must be a list of integer field ids")
	} else {
		errs["field_ids"] = validation.Validate(fieldIDs,
			validation.Required.Error("must contain at least one integer field id"),
		)
	}

	if err := errs.Filter(); err != nil {
		return nil, nil, newProfileValidationError(err)
	}

	profile := &models.StudentProfile{
		StudyLevel: level,
		FieldIDs:   fieldIDs,
		CGPA: optionalFloat(raw.CGPA, "cgpa", ignore,
			validation.Min(0.0), validation.Max(e.cfg.CGPAScale)),
		Budget: optionalFloat(raw.Budget, "budget", ignore,
			validation.Min(0.0)),
		PreferredStates: preferredStates(raw.PreferredStates, ignore),
	}
	return profile, diags, nil
}

// profileFieldIDs returns the integer ids in v, sorted and de-duplicated.
// The bool is false when v is not a list at all.
func profileFieldIDs(v interface{}, ignore ignoreFunc) ([]int64, bool) {
	items, ok := toList(v)
	if !ok {
		return nil, false
	}

	seen := make(map[int64]bool, len(items))
	ids := make([]int64, 0, len(items))
	for i, item := range items {
		id, ok := toInt64(item)
		if !ok {
			ignore(fieldPath("field_ids", i), item, "is not an integer id")
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, true
}

// preferredStates accepts a list of region names or a single name. Entries
// are trimmed and de-duplicated case-insensitively, first spelling wins.
func preferredStates(v interface{}, ignore ignoreFunc) []string {
	if isBlank(v) {
		return nil
	}

	var items []interface{}
	if s, ok := v.(string); ok {
		items = []interface{}{s}
	} else if list, ok := toList(v); ok {
		items = list
	} else {
		ignore("preferred_states", v, "is not a list of region names")
		return nil
	}

	seen := make(map[string]bool, len(items))
	var states []string
	for i, item := range items {
		s, ok := toText(item)
		if !ok {
			if !isBlank(item) {
				ignore(fieldPath("preferred_states", i), item, "is not a region name")
			}
			continue
		}
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		states = append(states, s)
	}
	return states
}

func newProfileValidationError(err error) *apperrors.StandardError {
	fields := map[string]string{}
	if verrs, ok := err.(validation.Errors); ok {
		for name, ferr := range verrs {
			fields["student_profile."+name] = ferr.Error()
		}
	}
	return apperrors.NewValidationError("student_profile: "+err.Error(), fields)
}
