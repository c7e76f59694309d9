package service

import "context"

// Scaler standardizes feature matrices with parameters fitted offline.
// Transform is deterministic and stateless given those parameters.
type Scaler interface {
	Transform(X [][]float64) ([][]float64, error)
}

// Predictor maps a scaled feature matrix to one scalar prediction per row.
// Implementations must be deterministic for identical input and must
// tolerate concurrent read-only use after load.
type Predictor interface {
	Predict(ctx context.Context, X [][]float64) ([]float64, error)
}

// Explainer estimates per-feature attributions for each row of a scaled
// feature matrix. Output rows have one entry per feature and approximately
// sum to prediction minus baseline prediction.
type Explainer interface {
	Explain(ctx context.Context, X [][]float64) ([][]float64, error)
}
