package usecase

import (
	"context"
	"errors"
	"testing"
)

type stubScaler struct{ err error }

func (s *stubScaler) Transform(X [][]float64) ([][]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return X, nil
}

type stubPredictor struct {
	err error
	fn  func(X [][]float64) []float64
}

func (p *stubPredictor) Predict(_ context.Context, X [][]float64) ([]float64, error) {
	if p.err != nil {
		return nil, p.err
	}
	if p.fn != nil {
		return p.fn(X), nil
	}
	return make([]float64, len(X)), nil
}

func TestHealthHealthy(t *testing.T) {
	m := NewHealthMonitor(&stubScaler{}, &stubPredictor{})
	resp := m.Check(context.Background())
	if resp.Status != "healthy" {
		t.Fatalf("status = %s, want healthy", resp.Status)
	}
	if !resp.ModelLoaded || !resp.PredictionWorking {
		t.Fatalf("flags = %v/%v, want true/true", resp.ModelLoaded, resp.PredictionWorking)
	}
}

func TestHealthMissingArtifacts(t *testing.T) {
	cases := []struct {
		name string
		m    *HealthMonitor
	}{
		{"no scaler", NewHealthMonitor(nil, &stubPredictor{})},
		{"no predictor", NewHealthMonitor(&stubScaler{}, nil)},
		{"neither", NewHealthMonitor(nil, nil)},
	}
	for _, tc := range cases {
		resp := tc.m.Check(context.Background())
		if resp.Status != "unhealthy" || resp.ModelLoaded {
			t.Fatalf("%s: status=%s loaded=%v, want unhealthy/false", tc.name, resp.Status, resp.ModelLoaded)
		}
	}
}

func TestHealthProbeFailure(t *testing.T) {
	m := NewHealthMonitor(&stubScaler{}, &stubPredictor{err: errors.New("backend down")})
	resp := m.Check(context.Background())
	if resp.Status != "unhealthy" {
		t.Fatalf("status = %s, want unhealthy on probe failure", resp.Status)
	}
	if !resp.ModelLoaded {
		t.Fatal("artifacts are loaded even when the probe fails")
	}
	if resp.PredictionWorking {
		t.Fatal("prediction must not be reported working")
	}
}

func TestHealthScalerFailure(t *testing.T) {
	m := NewHealthMonitor(&stubScaler{err: errors.New("bad params")}, &stubPredictor{})
	if resp := m.Check(context.Background()); resp.Status != "unhealthy" {
		t.Fatalf("status = %s, want unhealthy on transform failure", resp.Status)
	}
}
