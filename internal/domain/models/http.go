package models

import (
	"encoding/json"
	"time"
)

// Requests and responses for the prediction HTTP endpoints. Defined in domain
// for consistency and reuse.

// PredictRequest is the body of POST /predict. Features stays raw so the
// validator can distinguish a missing field from a malformed array.
type PredictRequest struct {
	Features json.RawMessage `json:"features"`
}

// ExplainRequest is the body of POST /explain. Samples overrides the
// per-row coalition sample budget within a bounded range; when omitted the
// configured default applies.
type ExplainRequest struct {
	Features json.RawMessage `json:"features"`
	Samples  int             `json:"samples" validate:"omitempty,gte=10,lte=1000"`
}

type PredictResponse struct {
	Predictions    []float64 `json:"predictions"`
	NumPredictions int       `json:"num_predictions"`
	ModelVersion   string    `json:"model_version"`
	Timestamp      time.Time `json:"timestamp"`
}

type ExplainResponse struct {
	Predictions  []float64   `json:"predictions"`
	ShapValues   [][]float64 `json:"shap_values"`
	FeatureNames []string    `json:"feature_names"`
	Timestamp    time.Time   `json:"timestamp"`
}

// HealthResponse reports the composite readiness of the serving process.
type HealthResponse struct {
	Status            string    `json:"status"`
	ModelLoaded       bool      `json:"model_loaded"`
	PredictionWorking bool      `json:"prediction_working"`
	Timestamp         time.Time `json:"timestamp"`
	Version           string    `json:"version"`
}

// ModelInfoResponse describes the loaded model and its input contract.
type ModelInfoResponse struct {
	ModelType    string    `json:"model_type"`
	Version      string    `json:"version"`
	Features     []string  `json:"features"`
	Target       string    `json:"target"`
	Horizon      int       `json:"training_horizon_days"`
	ModelLoaded  bool      `json:"model_loaded"`
	ScalerLoaded bool      `json:"scaler_loaded"`
	Timestamp    time.Time `json:"timestamp"`
}
