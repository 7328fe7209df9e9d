package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// DecodeJSON unmarshals data keeping numbers in untyped fields as
// json.Number, so integer ids above 2^53 survive exactly.
func DecodeJSON(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after top-level value")
	}
	return nil
}

// UnmarshalJSON decodes the profile with exact numbers and accepts an
// integral float such as 5.0 as the limit.
func (r *RecommendationRequest) UnmarshalJSON(data []byte) error {
	type plain RecommendationRequest
	var aux struct {
		plain
		Limit *json.Number `json:"limit"`
	}
	if err := DecodeJSON(data, &aux); err != nil {
		return err
	}

	*r = RecommendationRequest(aux.plain)
	r.Limit = nil
	if aux.Limit == nil {
		return nil
	}
	limit, err := integralNumber(*aux.Limit)
	if err != nil {
		return fmt.Errorf("limit: %w", err)
	}
	r.Limit = &limit
	return nil
}

func integralNumber(n json.Number) (int, error) {
	if i, err := n.Int64(); err == nil {
		if i > math.MaxInt32 || i < math.MinInt32 {
			return 0, fmt.Errorf("%s is out of range", n)
		}
		return int(i), nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("%s is not an integer", n)
	}
	return int(f), nil
}
