package models

// FeatureCount is the width of the model input. The order of the columns is
// fixed and must match the scaler/predictor artifacts.
const FeatureCount = 5

// FeatureNames returns the feature columns in model input order.
func FeatureNames() []string {
	return []string{"log_return", "volatility", "ma_5", "ma_10", "rsi"}
}

// Dataset is an aligned (features, target) pair produced offline for
// training. Row i of Features and Targets come from the same anchor bar.
type Dataset struct {
	Features [][]float64
	Targets  []float64
}

// Len returns the number of aligned rows.
func (d Dataset) Len() int { return len(d.Targets) }
