// Package catalog reads candidate programs from the Postgres program catalog.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	apperrors "program-recommender/internal/common/errors"
	"program-recommender/internal/common/logger"
	"program-recommender/internal/common/metrics"
	"program-recommender/internal/models"
)

const listProgramsQuery = `
		SELECT p.id, p.university_id, p.field_id, p.tuition_fee, p.duration_months,
		       p.level, u.state, p.name, u.name,
		       p.rating, p.review_count, p.employment_rate,
		       p.entry_requirements, p.curriculum, p.career_outcomes, p.facilities
		FROM programs p
		LEFT JOIN universities u ON u.id = p.university_id
		ORDER BY p.id
		LIMIT $1`

// Repository returns catalog rows as raw candidates. Values are passed
// through untouched so the engine applies the same normalization to catalog
// and inline programs.
type Repository struct {
	db          *sql.DB
	maxPrograms int
	logger      logger.Logger
}

func NewRepository(db *sql.DB, maxPrograms int, log logger.Logger) *Repository {
	if maxPrograms <= 0 {
		maxPrograms = 5000
	}
	return &Repository{
		db:          db,
		maxPrograms: maxPrograms,
		logger:      log.WithFields(map[string]interface{}{"component": "catalog"}),
	}
}

// ListPrograms returns up to the configured maximum of programs ordered by id.
// Reaching the maximum is logged as a possible truncation. Any database
// failure is a CATALOG_UNAVAILABLE error.
func (r *Repository) ListPrograms(ctx context.Context) ([]models.RawCandidate, error) {
	start := time.Now()

	rows, err := r.db.QueryContext(ctx, listProgramsQuery, r.maxPrograms)
	if err != nil {
		return nil, catalogError("query programs", err)
	}
	defer rows.Close()

	candidates := make([]models.RawCandidate, 0, 64)
	for rows.Next() {
		cand, err := scanProgram(rows)
		if err != nil {
			return nil, catalogError("scan program", err)
		}
		candidates = append(candidates, cand)
	}
	if err := rows.Err(); err != nil {
		return nil, catalogError("iterate programs", err)
	}

	if len(candidates) >= r.maxPrograms {
		metrics.CatalogTruncated.Inc()
		r.logger.Warn("catalog reached max_programs, later programs were not considered", map[string]interface{}{
			"maxPrograms": r.maxPrograms,
		})
	}

	r.logger.Debug("catalog programs loaded", map[string]interface{}{
		"count":    len(candidates),
		"duration": time.Since(start).Milliseconds(),
	})
	return candidates, nil
}

func scanProgram(rows *sql.Rows) (models.RawCandidate, error) {
	var id int64
	var universityID, fieldID, durationMonths, reviewCount sql.NullInt64
	var tuitionFee, rating, employmentRate sql.NullFloat64
	var level, state, name, universityName sql.NullString
	var entryRequirements, curriculum, careerOutcomes, facilities []byte

	err := rows.Scan(
		&id, &universityID, &fieldID, &tuitionFee, &durationMonths,
		&level, &state, &name, &universityName,
		&rating, &reviewCount, &employmentRate,
		&entryRequirements, &curriculum, &careerOutcomes, &facilities,
	)
	if err != nil {
		return models.RawCandidate{}, err
	}

	return models.RawCandidate{
		ProgramID:         id,
		UniversityID:      nullInt(universityID),
		FieldID:           nullInt(fieldID),
		TuitionFee:        nullFloat(tuitionFee),
		DurationMonths:    nullInt(durationMonths),
		Level:             nullString(level),
		State:             nullString(state),
		Name:              nullString(name),
		UniversityName:    nullString(universityName),
		Rating:            nullFloat(rating),
		ReviewCount:       nullInt(reviewCount),
		EmploymentRate:    nullFloat(employmentRate),
		EntryRequirements: jsonColumn(entryRequirements),
		Curriculum:        jsonColumn(curriculum),
		CareerOutcomes:    jsonColumn(careerOutcomes),
		Facilities:        jsonColumn(facilities),
	}, nil
}

func nullInt(v sql.NullInt64) interface{} {
	if !v.Valid {
		return nil
	}
	return v.Int64
}

func nullFloat(v sql.NullFloat64) interface{} {
	if !v.Valid {
		return nil
	}
	return v.Float64
}

func nullString(v sql.NullString) interface{} {
	if !v.Valid {
		return nil
	}
	return v.String
}

// jsonColumn decodes a jsonb column. Undecodable content is returned as text
// and later reported by the candidate normalizer.
func jsonColumn(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

func catalogError(stage string, err error) error {
	return apperrors.NewCatalogUnavailableError(fmt.Errorf("%s: %w", stage, err)).
		WithMetadata(map[string]interface{}{"stage": stage})
}
