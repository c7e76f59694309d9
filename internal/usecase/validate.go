package usecase

import (
	"bytes"
	"encoding/json"
	"math"

	"volatiq/internal/domain/models"
)

// ValidateFeatures applies the inbound batch rules in fixed order, short
// circuiting on the first failure: missing field, shape, batch size, feature
// count, non-finite entries. Only a batch passing all five reaches the
// scaler.
func ValidateFeatures(raw json.RawMessage, maxRows int) ([][]float64, *models.RequestError) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, models.NewRequestError(models.ReasonMissingField, "missing features in request")
	}

	// Python-style encoders emit bare NaN/Infinity tokens, which the JSON
	// decoder rejects. Substitute them so the batch still parses and the
	// non-finite rule fires with its own tag instead of a shape error.
	sanitized, hadTokens := replaceNonFiniteTokens(raw)

	var X [][]float64
	if err := json.Unmarshal(sanitized, &X); err != nil {
		return nil, models.NewRequestError(models.ReasonShape, "features must be a 2D numeric array")
	}
	if len(X) == 0 {
		return nil, models.NewRequestError(models.ReasonShape, "features must contain at least one row")
	}

	if len(X) > maxRows {
		return nil, models.NewRequestError(models.ReasonBatchSize,
			"batch size %d exceeds maximum of %d", len(X), maxRows)
	}

	for i, row := range X {
		if len(row) != models.FeatureCount {
			return nil, models.NewRequestError(models.ReasonFeatureCount,
				"row %d has %d features, expected %d", i, len(row), models.FeatureCount)
		}
	}

	if hadTokens {
		return nil, models.NewRequestError(models.ReasonNonFinite,
			"features contain NaN or infinite values")
	}
	for i, row := range X {
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, models.NewRequestError(models.ReasonNonFinite,
					"features contain NaN or infinite values at row %d column %d", i, j)
			}
		}
	}

	return X, nil
}

var nonFiniteTokens = [][]byte{[]byte("-Infinity"), []byte("Infinity"), []byte("NaN")}

// replaceNonFiniteTokens swaps bare non-finite literals for zero so the
// payload parses. Tokens inside string values don't occur in a numeric
// matrix; a payload holding strings fails the shape rule regardless.
func replaceNonFiniteTokens(raw []byte) ([]byte, bool) {
	found := false
	for _, tok := range nonFiniteTokens {
		if bytes.Contains(raw, tok) {
			found = true
			raw = bytes.ReplaceAll(raw, tok, []byte("0"))
		}
	}
	return raw, found
}
