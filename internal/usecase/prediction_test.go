package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"volatiq/internal/domain/models"
	svc "volatiq/internal/domain/service"
	icache "volatiq/internal/service/cache"
	applogger "volatiq/pkg/logger"
)

type stubMetrics struct {
	mu     sync.Mutex
	errors []string
	preds  map[string]int
}

func newStubMetrics() *stubMetrics { return &stubMetrics{preds: make(map[string]int)} }

func (m *stubMetrics) RecordPrediction(endpoint string, rows int) {
	m.mu.Lock()
	m.preds[endpoint] += rows
	m.mu.Unlock()
}

func (m *stubMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors = append(m.errors, kind)
	m.mu.Unlock()
}

func (m *stubMetrics) RecordLatency(string, float64)    {}
func (m *stubMetrics) RecordMessageSent(string, string) {}
func (m *stubMetrics) RecordLastClose(string, float64)  {}

type stubExplainer struct{ calls int }

func (e *stubExplainer) Explain(_ context.Context, X [][]float64) ([][]float64, error) {
	e.calls++
	out := make([][]float64, len(X))
	for i := range out {
		out[i] = make([]float64, models.FeatureCount)
	}
	return out, nil
}

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func newTestService(t *testing.T, scaler svc.Scaler, predictor svc.Predictor, cache icache.BytesCache, ttl time.Duration) (*PredictionService, *stubMetrics, *stubExplainer) {
	t.Helper()
	m := newStubMetrics()
	ex := &stubExplainer{}
	factory := func(samples int) svc.Explainer { return ex }
	s := NewPredictionService(testLogger(t), scaler, predictor, factory, m, cache, PredictionConfig{
		MaxPredictRows: 1000,
		MaxExplainRows: 10,
		Horizon:        5,
		CacheTTL:       ttl,
	})
	return s, m, ex
}

func featuresJSON(rows int) json.RawMessage {
	X := make([][]float64, rows)
	for i := range X {
		X[i] = []float64{0.01, 0.02, 100, 101, 50}
	}
	b, _ := json.Marshal(X)
	return b
}

func TestPredict(t *testing.T) {
	pred := &stubPredictor{fn: func(X [][]float64) []float64 {
		out := make([]float64, len(X))
		for i := range out {
			out[i] = 0.42
		}
		return out
	}}
	s, m, _ := newTestService(t, &stubScaler{}, pred, nil, 0)

	resp, err := s.Predict(context.Background(), &models.PredictRequest{Features: featuresJSON(3)})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if resp.NumPredictions != 3 || len(resp.Predictions) != 3 {
		t.Fatalf("got %d predictions, want 3", len(resp.Predictions))
	}
	if resp.Predictions[0] != 0.42 {
		t.Fatalf("prediction = %v, want 0.42", resp.Predictions[0])
	}
	if resp.ModelVersion != ModelVersion {
		t.Fatalf("version = %s, want %s", resp.ModelVersion, ModelVersion)
	}
	if m.preds["predict"] != 3 {
		t.Fatalf("metrics recorded %d rows, want 3", m.preds["predict"])
	}
}

func TestPredictUnavailable(t *testing.T) {
	s, m, _ := newTestService(t, nil, nil, nil, 0)
	_, err := s.Predict(context.Background(), &models.PredictRequest{Features: featuresJSON(1)})
	var rerr *models.RequestError
	if !errors.As(err, &rerr) || rerr.Reason != models.ReasonServiceUnavailable {
		t.Fatalf("got %v, want %s", err, models.ReasonServiceUnavailable)
	}
	if len(m.errors) != 1 || m.errors[0] != string(models.ReasonServiceUnavailable) {
		t.Fatalf("metrics errors = %v", m.errors)
	}
}

func TestPredictValidationShortCircuits(t *testing.T) {
	calls := 0
	pred := &stubPredictor{fn: func(X [][]float64) []float64 {
		calls++
		return make([]float64, len(X))
	}}
	s, _, _ := newTestService(t, &stubScaler{}, pred, nil, 0)

	_, err := s.Predict(context.Background(), &models.PredictRequest{Features: json.RawMessage(`[[1, 2]]`)})
	var rerr *models.RequestError
	if !errors.As(err, &rerr) || rerr.Reason != models.ReasonFeatureCount {
		t.Fatalf("got %v, want %s", err, models.ReasonFeatureCount)
	}
	if calls != 0 {
		t.Fatal("predictor must not run on invalid input")
	}
}

func TestPredictAtomicFailure(t *testing.T) {
	s, _, _ := newTestService(t, &stubScaler{}, &stubPredictor{err: errors.New("backend down")}, nil, 0)
	resp, err := s.Predict(context.Background(), &models.PredictRequest{Features: featuresJSON(4)})
	if resp != nil {
		t.Fatal("partial results returned on failure")
	}
	var rerr *models.RequestError
	if !errors.As(err, &rerr) || rerr.Reason != models.ReasonComputation {
		t.Fatalf("got %v, want %s", err, models.ReasonComputation)
	}
}

func TestExplainRowCap(t *testing.T) {
	s, _, ex := newTestService(t, &stubScaler{}, &stubPredictor{}, nil, 0)

	if _, err := s.Explain(context.Background(), &models.ExplainRequest{Features: featuresJSON(10), Samples: 100}); err != nil {
		t.Fatalf("10 rows should pass: %v", err)
	}
	if ex.calls != 1 {
		t.Fatalf("explainer ran %d times, want 1", ex.calls)
	}

	_, err := s.Explain(context.Background(), &models.ExplainRequest{Features: featuresJSON(11), Samples: 100})
	var rerr *models.RequestError
	if !errors.As(err, &rerr) || rerr.Reason != models.ReasonBatchSize {
		t.Fatalf("got %v, want %s", err, models.ReasonBatchSize)
	}
}

func TestExplainResponseShape(t *testing.T) {
	s, _, _ := newTestService(t, &stubScaler{}, &stubPredictor{}, nil, 0)
	resp, err := s.Explain(context.Background(), &models.ExplainRequest{Features: featuresJSON(2), Samples: 100})
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if len(resp.Predictions) != 2 || len(resp.ShapValues) != 2 {
		t.Fatalf("got %d/%d rows", len(resp.Predictions), len(resp.ShapValues))
	}
	if len(resp.FeatureNames) != models.FeatureCount {
		t.Fatalf("feature names = %v", resp.FeatureNames)
	}
	if resp.FeatureNames[0] != "log_return" || resp.FeatureNames[4] != "rsi" {
		t.Fatalf("feature names out of order: %v", resp.FeatureNames)
	}
}

func TestExplainCaching(t *testing.T) {
	cache := icache.NewTTLCache()
	s, m, ex := newTestService(t, &stubScaler{}, &stubPredictor{}, cache, time.Minute)

	req := &models.ExplainRequest{Features: featuresJSON(1), Samples: 100}
	if _, err := s.Explain(context.Background(), req); err != nil {
		t.Fatalf("first explain: %v", err)
	}
	if _, err := s.Explain(context.Background(), req); err != nil {
		t.Fatalf("second explain: %v", err)
	}
	if ex.calls != 1 {
		t.Fatalf("explainer ran %d times, want 1 (second hit cached)", ex.calls)
	}
	if m.preds["explain_cached"] == 0 {
		t.Fatal("cache hit not recorded")
	}

	// different sample budget is a different key
	req2 := &models.ExplainRequest{Features: featuresJSON(1), Samples: 200}
	if _, err := s.Explain(context.Background(), req2); err != nil {
		t.Fatalf("third explain: %v", err)
	}
	if ex.calls != 2 {
		t.Fatalf("explainer ran %d times, want 2", ex.calls)
	}
}

func TestModelInfo(t *testing.T) {
	s, _, _ := newTestService(t, &stubScaler{}, &stubPredictor{}, nil, 0)
	info := s.ModelInfo()
	if !info.ModelLoaded || !info.ScalerLoaded {
		t.Fatal("artifacts should be reported loaded")
	}
	if info.Horizon != 5 {
		t.Fatalf("horizon = %d, want 5", info.Horizon)
	}
	if info.Target != "future_realized_volatility" {
		t.Fatalf("target = %s", info.Target)
	}
}
