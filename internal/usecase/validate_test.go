package usecase

import (
	"encoding/json"
	"strings"
	"testing"

	"volatiq/internal/domain/models"
)

func validRow() string { return "[0.01, 0.02, 100.0, 101.0, 50.0]" }

func batchOf(n int) json.RawMessage {
	rows := make([]string, n)
	for i := range rows {
		rows[i] = validRow()
	}
	return json.RawMessage("[" + strings.Join(rows, ",") + "]")
}

func TestValidateFeaturesOK(t *testing.T) {
	X, verr := ValidateFeatures(batchOf(3), 1000)
	if verr != nil {
		t.Fatalf("unexpected error: %v", verr)
	}
	if len(X) != 3 || len(X[0]) != models.FeatureCount {
		t.Fatalf("unexpected shape %dx%d", len(X), len(X[0]))
	}
}

func TestValidateFeaturesMissing(t *testing.T) {
	for _, raw := range []json.RawMessage{nil, json.RawMessage("null")} {
		_, verr := ValidateFeatures(raw, 1000)
		if verr == nil || verr.Reason != models.ReasonMissingField {
			t.Fatalf("raw %q: got %v, want %s", raw, verr, models.ReasonMissingField)
		}
	}
}

func TestValidateFeaturesShape(t *testing.T) {
	cases := []string{
		`"not an array"`,
		`42`,
		`{"a": 1}`,
		`[1, 2, 3]`,
		`[["a", "b", "c", "d", "e"]]`,
		`[]`,
	}
	for _, raw := range cases {
		_, verr := ValidateFeatures(json.RawMessage(raw), 1000)
		if verr == nil || verr.Reason != models.ReasonShape {
			t.Fatalf("raw %s: got %v, want %s", raw, verr, models.ReasonShape)
		}
	}
}

func TestValidateFeaturesBatchSize(t *testing.T) {
	if _, verr := ValidateFeatures(batchOf(1000), 1000); verr != nil {
		t.Fatalf("1000 rows should pass: %v", verr)
	}
	_, verr := ValidateFeatures(batchOf(1001), 1000)
	if verr == nil || verr.Reason != models.ReasonBatchSize {
		t.Fatalf("got %v, want %s", verr, models.ReasonBatchSize)
	}
}

func TestValidateFeaturesFeatureCount(t *testing.T) {
	cases := []string{
		`[[1, 2, 3, 4]]`,
		`[[1, 2, 3, 4, 5, 6]]`,
		`[` + validRow() + `, [1, 2]]`,
	}
	for _, raw := range cases {
		_, verr := ValidateFeatures(json.RawMessage(raw), 1000)
		if verr == nil || verr.Reason != models.ReasonFeatureCount {
			t.Fatalf("raw %s: got %v, want %s", raw, verr, models.ReasonFeatureCount)
		}
	}
}

func TestValidateFeaturesNonFinite(t *testing.T) {
	cases := []string{
		`[[NaN, 0.02, 100.0, 101.0, 50.0]]`,
		`[[0.01, Infinity, 100.0, 101.0, 50.0]]`,
		`[[0.01, -Infinity, 100.0, 101.0, 50.0]]`,
	}
	for _, raw := range cases {
		_, verr := ValidateFeatures(json.RawMessage(raw), 1000)
		if verr == nil || verr.Reason != models.ReasonNonFinite {
			t.Fatalf("raw %s: got %v, want %s", raw, verr, models.ReasonNonFinite)
		}
	}
}

func TestValidateFeaturesOrder(t *testing.T) {
	// oversized batch with a bad row: batch size fires first
	rows := make([]string, 1001)
	for i := range rows {
		rows[i] = validRow()
	}
	rows[0] = "[1, 2]"
	_, verr := ValidateFeatures(json.RawMessage("["+strings.Join(rows, ",")+"]"), 1000)
	if verr == nil || verr.Reason != models.ReasonBatchSize {
		t.Fatalf("got %v, want %s", verr, models.ReasonBatchSize)
	}

	// wrong width with NaN in the same batch: feature count fires first
	_, verr = ValidateFeatures(json.RawMessage(`[[1, 2], [NaN, 2, 3, 4, 5]]`), 1000)
	if verr == nil || verr.Reason != models.ReasonFeatureCount {
		t.Fatalf("got %v, want %s", verr, models.ReasonFeatureCount)
	}
}

func TestValidationErrorsAreTagged(t *testing.T) {
	_, verr := ValidateFeatures(nil, 1000)
	if verr == nil {
		t.Fatal("expected error")
	}
	if !verr.IsValidation() {
		t.Fatalf("reason %s should be a validation error", verr.Reason)
	}
}
