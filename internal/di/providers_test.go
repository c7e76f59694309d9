package di

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	svc "volatiq/internal/domain/service"
	"volatiq/internal/services/model"
	"volatiq/internal/usecase"
	"volatiq/pkg/config"
	applogger "volatiq/pkg/logger"
)

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func writeScalerArtifact(t *testing.T) string {
	t.Helper()
	s, err := model.FitStandardScaler([][]float64{
		{0.01, 0.02, 100, 101, 50},
		{0.02, 0.03, 101, 102, 55},
		{-0.01, 0.01, 99, 100, 45},
	})
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	path := filepath.Join(t.TempDir(), "scaler.json")
	if err := s.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	return path
}

func TestRemoteBackendServes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Features [][]float64 `json:"features"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		preds := make([]float64, len(req.Features))
		json.NewEncoder(w).Encode(map[string][]float64{"predictions": preds})
	}))
	defer srv.Close()

	cfg := &config.Config{}
	cfg.Model.Backend = "remote"
	cfg.Model.RemoteURL = srv.URL
	cfg.Model.ScalerPath = writeScalerArtifact(t)

	log := testLogger(t)
	scaler := ProvideScaler(cfg, log)
	if scaler == nil {
		t.Fatal("remote backend: scaler is nil")
	}
	predictor := ProvidePredictor(cfg, log)
	if predictor == nil {
		t.Fatal("remote backend: predictor is nil")
	}

	resp := usecase.NewHealthMonitor(scaler, predictor).Check(context.Background())
	if resp.Status != "healthy" {
		t.Fatalf("status = %q, want healthy", resp.Status)
	}
	if !resp.ModelLoaded || !resp.PredictionWorking {
		t.Fatalf("loaded/working = %v/%v, want true/true", resp.ModelLoaded, resp.PredictionWorking)
	}
}

type rowCountPredictor struct {
	rows int
}

func (p *rowCountPredictor) Predict(ctx context.Context, X [][]float64) ([]float64, error) {
	p.rows += len(X)
	return make([]float64, len(X)), nil
}

func TestExplainerFactoryConfigDefault(t *testing.T) {
	cfg := &config.Config{}
	cfg.Model.ExplainSamples = 40

	pred := &rowCountPredictor{}
	factory := ProvideExplainerFactory(pred, cfg)
	if factory == nil {
		t.Fatal("factory is nil")
	}

	row := [][]float64{{0.01, 0.02, 100, 101, 50}}
	if _, err := factory(0).Explain(context.Background(), row); err != nil {
		t.Fatalf("explain: %v", err)
	}
	// samples coalition rows plus the row itself and the baseline
	if pred.rows != 42 {
		t.Fatalf("predictor saw %d rows, want 42", pred.rows)
	}
}

var _ svc.Predictor = (*rowCountPredictor)(nil)
