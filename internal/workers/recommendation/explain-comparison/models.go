// internal/workers/recommendation/explain-comparison/models.go
package explaincomparison

import "program-recommender/internal/models"

type Input = models.ComparisonRequest

type Output struct {
	Comparison *models.ComparisonResult `json:"comparison"`
}
