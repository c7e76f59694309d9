package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"volatiq/internal/domain/models"
	svc "volatiq/internal/domain/service"
	"volatiq/internal/usecase"
	applogger "volatiq/pkg/logger"
)

type okScaler struct{}

func (okScaler) Transform(X [][]float64) ([][]float64, error) { return X, nil }

type okPredictor struct{}

func (okPredictor) Predict(_ context.Context, X [][]float64) ([]float64, error) {
	out := make([]float64, len(X))
	for i := range out {
		out[i] = 0.1
	}
	return out, nil
}

type okExplainer struct{}

func (okExplainer) Explain(_ context.Context, X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i := range out {
		out[i] = make([]float64, models.FeatureCount)
	}
	return out, nil
}

type noopMetrics struct{}

func (noopMetrics) RecordPrediction(string, int)     {}
func (noopMetrics) RecordError(string)               {}
func (noopMetrics) RecordLatency(string, float64)    {}
func (noopMetrics) RecordMessageSent(string, string) {}
func (noopMetrics) RecordLastClose(string, float64)  {}

func newTestServer(t *testing.T, scaler svc.Scaler, predictor svc.Predictor, limits RateLimits) *echo.Echo {
	t.Helper()
	log, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	factory := func(samples int) svc.Explainer { return okExplainer{} }
	ps := usecase.NewPredictionService(log, scaler, predictor, factory, noopMetrics{}, nil, usecase.PredictionConfig{
		MaxPredictRows: 1000,
		MaxExplainRows: 10,
		Horizon:        5,
	})
	h := NewPredictHandler(log, ps, usecase.NewHealthMonitor(scaler, predictor), limits)

	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func validBody(rows int) string {
	row := "[0.01, 0.02, 100.0, 101.0, 50.0]"
	rs := make([]string, rows)
	for i := range rs {
		rs[i] = row
	}
	return `{"features": [` + strings.Join(rs, ",") + `]}`
}

func TestInfoEndpoint(t *testing.T) {
	e := newTestServer(t, okScaler{}, okPredictor{}, RateLimits{})
	rec := doJSON(e, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "VolatiQ") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	e := newTestServer(t, okScaler{}, okPredictor{}, RateLimits{})
	rec := doJSON(e, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp models.HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "healthy" || !resp.PredictionWorking {
		t.Fatalf("unexpected health: %+v", resp)
	}
}

func TestHealthEndpointDegraded(t *testing.T) {
	e := newTestServer(t, nil, nil, RateLimits{})
	rec := doJSON(e, http.MethodGet, "/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestPredictEndpoint(t *testing.T) {
	e := newTestServer(t, okScaler{}, okPredictor{}, RateLimits{})
	rec := doJSON(e, http.MethodPost, "/predict", validBody(2))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Status int                    `json:"status"`
		Data   models.PredictResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.NumPredictions != 2 {
		t.Fatalf("num_predictions = %d, want 2", envelope.Data.NumPredictions)
	}
}

func TestPredictEndpointValidation(t *testing.T) {
	e := newTestServer(t, okScaler{}, okPredictor{}, RateLimits{})

	cases := []struct {
		body string
		code string
	}{
		{`{}`, string(models.ReasonMissingField)},
		{`{"features": "nope"}`, string(models.ReasonShape)},
		{`{"features": [[1, 2]]}`, string(models.ReasonFeatureCount)},
	}
	for _, tc := range cases {
		rec := doJSON(e, http.MethodPost, "/predict", tc.body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d, want 400", tc.body, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), tc.code) {
			t.Fatalf("body %s: response lacks tag %s: %s", tc.body, tc.code, rec.Body.String())
		}
	}
}

func TestPredictEndpointUnavailable(t *testing.T) {
	e := newTestServer(t, nil, nil, RateLimits{})
	rec := doJSON(e, http.MethodPost, "/predict", validBody(1))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), string(models.ReasonServiceUnavailable)) {
		t.Fatalf("response lacks tag: %s", rec.Body.String())
	}
}

func TestExplainEndpoint(t *testing.T) {
	e := newTestServer(t, okScaler{}, okPredictor{}, RateLimits{})
	rec := doJSON(e, http.MethodPost, "/explain", validBody(2))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data models.ExplainResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(envelope.Data.ShapValues) != 2 {
		t.Fatalf("shap rows = %d, want 2", len(envelope.Data.ShapValues))
	}
	if len(envelope.Data.FeatureNames) != models.FeatureCount {
		t.Fatalf("feature names = %v", envelope.Data.FeatureNames)
	}
}

func TestExplainEndpointSampleBounds(t *testing.T) {
	e := newTestServer(t, okScaler{}, okPredictor{}, RateLimits{})

	rec := doJSON(e, http.MethodPost, "/explain", `{"features": [[0.01, 0.02, 100, 101, 50]], "samples": 5}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("samples 5: status = %d, want 400", rec.Code)
	}

	rec = doJSON(e, http.MethodPost, "/explain", `{"features": [[0.01, 0.02, 100, 101, 50]], "samples": 2000}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("samples 2000: status = %d, want 400", rec.Code)
	}
}

func TestExplainRowLimit(t *testing.T) {
	e := newTestServer(t, okScaler{}, okPredictor{}, RateLimits{})
	rec := doJSON(e, http.MethodPost, "/explain", validBody(11))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), string(models.ReasonBatchSize)) {
		t.Fatalf("response lacks tag: %s", rec.Body.String())
	}
}

func TestModelInfoEndpoint(t *testing.T) {
	e := newTestServer(t, okScaler{}, okPredictor{}, RateLimits{})
	rec := doJSON(e, http.MethodGet, "/model/info", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "future_realized_volatility") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestRateLimiting(t *testing.T) {
	e := newTestServer(t, okScaler{}, okPredictor{}, RateLimits{
		Enabled:       true,
		PredictPerSec: 0.001,
		Burst:         2,
	})

	var last int
	for i := 0; i < 3; i++ {
		last = doJSON(e, http.MethodPost, "/predict", validBody(1)).Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", last)
	}
}
