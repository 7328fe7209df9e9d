package engine

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"program-recommender/internal/models"
)

// ignoreFunc records that an optional value was dropped and why.
type ignoreFunc func(field string, value interface{}, reason string)

// isBlank reports whether an optional raw value should be treated as absent
// without a diagnostic.
func isBlank(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func optionalFloat(v interface{}, field string, ignore ignoreFunc, rules ...validation.Rule) *float64 {
	if isBlank(v) {
		return nil
	}
	f, ok := toFloat(v)
	if !ok {
		ignore(field, v, "is not a number")
		return nil
	}
	if err := validation.Validate(f, rules...); err != nil {
		ignore(field, v, err.Error())
		return nil
	}
	return &f
}

func optionalInt(v interface{}, field string, ignore ignoreFunc, rules ...validation.Rule) *int {
	if isBlank(v) {
		return nil
	}
	n, ok := toInt64(v)
	if !ok {
		ignore(field, v, "is not an integer")
		return nil
	}
	i := int(n)
	if err := validation.Validate(i, rules...); err != nil {
		ignore(field, v, err.Error())
		return nil
	}
	return &i
}

func optionalID(v interface{}, field string, ignore ignoreFunc) *int64 {
	if isBlank(v) {
		return nil
	}
	id, ok := toInt64(v)
	if !ok {
		ignore(field, v, "is not an integer id")
		return nil
	}
	return &id
}

func optionalText(v interface{}, field string, ignore ignoreFunc) string {
	if isBlank(v) {
		return ""
	}
	s, ok := toText(v)
	if !ok {
		ignore(field, v, "is not text")
		return ""
	}
	return s
}

func optionalObject(v interface{}, field string, ignore ignoreFunc) map[string]interface{} {
	if v == nil {
		return nil
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		ignore(field, v, "is not an object")
		return nil
	}
	return m
}

// canonicalLevel maps a level to its configured spelling. Unknown levels are
// returned trimmed and unchanged.
func (e *Engine) canonicalLevel(level string) (string, bool) {
	canonical, ok := e.levels[strings.ToLower(strings.TrimSpace(level))]
	if !ok {
		return strings.TrimSpace(level), false
	}
	return canonical, true
}

func programDiag(id int64, kind models.DiagnosticKind, format string, args ...interface{}) models.Diagnostic {
	return models.NewProgramDiagnostic(id, kind, format, args...)
}

func ignoredMessage(field string, value interface{}, reason string) string {
	return fmt.Sprintf("%s: %s %s, treated as absent", field, describe(value), reason)
}

func fieldPath(field string, i int) string {
	return fmt.Sprintf("%s[%d]", field, i)
}
