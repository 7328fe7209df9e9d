// internal/workers/recommendation/rank-programs/models.go
package rankprograms

import "program-recommender/internal/models"

// Input is the job payload: the recommendation request carried in the
// process variables.
type Input = models.RecommendationRequest

// Output is written back to the process under a single variable so the
// result fields do not collide with other process variables.
type Output struct {
	Recommendation *models.RecommendationResult `json:"recommendation"`
}

// cacheKeyInput is the canonical form of a request for cache keys.
// encoding/json sorts map keys, so equal requests serialize identically.
type cacheKeyInput struct {
	Profile  models.RawProfile `json:"profile"`
	Programs []interface{}     `json:"programs"`
	Catalog  bool              `json:"catalog"`
	Limit    *int              `json:"limit"`
}
