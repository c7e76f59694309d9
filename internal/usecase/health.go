package usecase

import (
	"context"
	"time"

	"volatiq/internal/domain/models"
	svc "volatiq/internal/domain/service"
)

// probeVector is a canned, plausible feature row used to verify the scaler
// and predictor end to end without touching real data.
var probeVector = []float64{0.01, 0.02, 100.0, 101.0, 50.0}

// HealthMonitor is a composite readiness probe over the scaler and
// predictor. Read-only, side-effect free, and cheap: a single-row inference.
type HealthMonitor struct {
	scaler    svc.Scaler
	predictor svc.Predictor
}

func NewHealthMonitor(scaler svc.Scaler, predictor svc.Predictor) *HealthMonitor {
	return &HealthMonitor{scaler: scaler, predictor: predictor}
}

// Check returns Healthy only if both artifacts are loaded and the probe
// vector can be transformed and predicted without error.
func (m *HealthMonitor) Check(ctx context.Context) models.HealthResponse {
	resp := models.HealthResponse{
		Status:      "unhealthy",
		ModelLoaded: m.scaler != nil && m.predictor != nil,
		Timestamp:   time.Now().UTC(),
		Version:     ModelVersion,
	}
	if !resp.ModelLoaded {
		return resp
	}

	probe := [][]float64{probeVector}
	scaled, err := m.scaler.Transform(probe)
	if err != nil {
		return resp
	}
	preds, err := m.predictor.Predict(ctx, scaled)
	if err != nil || len(preds) != 1 {
		return resp
	}

	resp.PredictionWorking = true
	resp.Status = "healthy"
	return resp
}
