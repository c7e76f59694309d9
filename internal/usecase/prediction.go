package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"volatiq/internal/domain/models"
	domrepo "volatiq/internal/domain/repository"
	svc "volatiq/internal/domain/service"
	icache "volatiq/internal/service/cache"
	applogger "volatiq/pkg/logger"
)

// ModelVersion is reported alongside predictions and model info.
const ModelVersion = "1.0.0"

// ExplainerFactory builds an explainer with the given per-row sample budget.
type ExplainerFactory func(samples int) svc.Explainer

// PredictionService orchestrates the serving path: validation, scaling,
// inference and attribution against the process-wide immutable scaler and
// predictor. Handlers borrow it read-only; it is safe for concurrent use.
type PredictionService struct {
	log          *applogger.Logger
	scaler       svc.Scaler
	predictor    svc.Predictor
	newExplainer ExplainerFactory
	metrics      domrepo.Metrics
	cache        icache.BytesCache
	cacheTTL     time.Duration

	maxPredictRows int
	maxExplainRows int
	horizon        int
}

// PredictionConfig bounds the per-request work.
type PredictionConfig struct {
	MaxPredictRows int
	MaxExplainRows int
	Horizon        int
	CacheTTL       time.Duration
}

// NewPredictionService wires the serving core. scaler or predictor may be nil
// when artifact loading failed; every request then fails with the
// service-unavailable tag until the process restarts with valid artifacts.
func NewPredictionService(
	log *applogger.Logger,
	scaler svc.Scaler,
	predictor svc.Predictor,
	newExplainer ExplainerFactory,
	metrics domrepo.Metrics,
	cache icache.BytesCache,
	cfg PredictionConfig,
) *PredictionService {
	if cfg.MaxPredictRows <= 0 {
		cfg.MaxPredictRows = 1000
	}
	if cfg.MaxExplainRows <= 0 {
		cfg.MaxExplainRows = 10
	}
	return &PredictionService{
		log:            log,
		scaler:         scaler,
		predictor:      predictor,
		newExplainer:   newExplainer,
		metrics:        metrics,
		cache:          cache,
		cacheTTL:       cfg.CacheTTL,
		maxPredictRows: cfg.MaxPredictRows,
		maxExplainRows: cfg.MaxExplainRows,
		horizon:        cfg.Horizon,
	}
}

// Ready reports whether both artifacts are loaded.
func (s *PredictionService) Ready() bool {
	return s.scaler != nil && s.predictor != nil
}

// Predict validates, scales and predicts one batch. The batch fails
// atomically; partial results are never returned.
func (s *PredictionService) Predict(ctx context.Context, req *models.PredictRequest) (*models.PredictResponse, error) {
	start := time.Now()
	if !s.Ready() {
		s.metrics.RecordError(string(models.ReasonServiceUnavailable))
		return nil, models.UnavailableError()
	}

	X, verr := ValidateFeatures(req.Features, s.maxPredictRows)
	if verr != nil {
		s.metrics.RecordError(string(verr.Reason))
		return nil, verr
	}

	preds, rerr := s.run(ctx, X)
	if rerr != nil {
		s.metrics.RecordError(string(rerr.Reason))
		return nil, rerr
	}

	s.metrics.RecordPrediction("predict", len(preds))
	s.metrics.RecordLatency("predict", time.Since(start).Seconds())
	s.log.Info("prediction ok",
		applogger.Int("rows", len(preds)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return &models.PredictResponse{
		Predictions:    preds,
		NumPredictions: len(preds),
		ModelVersion:   ModelVersion,
		Timestamp:      start.UTC(),
	}, nil
}

// Explain validates against the tighter row cap, then computes predictions
// and per-feature attributions. Responses are cached because the sampling
// pass is materially more expensive than plain inference.
func (s *PredictionService) Explain(ctx context.Context, req *models.ExplainRequest) (*models.ExplainResponse, error) {
	start := time.Now()
	if !s.Ready() {
		s.metrics.RecordError(string(models.ReasonServiceUnavailable))
		return nil, models.UnavailableError()
	}

	X, verr := ValidateFeatures(req.Features, s.maxExplainRows)
	if verr != nil {
		s.metrics.RecordError(string(verr.Reason))
		return nil, verr
	}

	key := explainCacheKey(req)
	if s.cache != nil {
		if b, ok, err := s.cache.GetBytes(key); err == nil && ok {
			var cached models.ExplainResponse
			if json.Unmarshal(b, &cached) == nil {
				s.metrics.RecordPrediction("explain_cached", len(cached.Predictions))
				return &cached, nil
			}
		}
	}

	scaled, err := s.scaler.Transform(X)
	if err != nil {
		rerr := models.ComputationError(err, "transform")
		s.metrics.RecordError(string(rerr.Reason))
		return nil, rerr
	}
	preds, err := s.predictor.Predict(ctx, scaled)
	if err != nil {
		rerr := models.ComputationError(err, "predict")
		s.metrics.RecordError(string(rerr.Reason))
		return nil, rerr
	}
	attrs, err := s.newExplainer(req.Samples).Explain(ctx, scaled)
	if err != nil {
		rerr := models.ComputationError(err, "explain")
		s.metrics.RecordError(string(rerr.Reason))
		return nil, rerr
	}

	resp := &models.ExplainResponse{
		Predictions:  preds,
		ShapValues:   attrs,
		FeatureNames: models.FeatureNames(),
		Timestamp:    start.UTC(),
	}
	if s.cache != nil && s.cacheTTL > 0 {
		if b, err := json.Marshal(resp); err == nil {
			_ = s.cache.SetBytes(key, b, s.cacheTTL)
		}
	}

	s.metrics.RecordPrediction("explain", len(preds))
	s.metrics.RecordLatency("explain", time.Since(start).Seconds())
	s.log.Info("explanation ok",
		applogger.Int("rows", len(preds)),
		applogger.Int("samples", req.Samples),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return resp, nil
}

// ModelInfo describes the loaded artifacts and the feature contract.
func (s *PredictionService) ModelInfo() *models.ModelInfoResponse {
	return &models.ModelInfoResponse{
		ModelType:    "feed-forward neural network",
		Version:      ModelVersion,
		Features:     models.FeatureNames(),
		Target:       "future_realized_volatility",
		Horizon:      s.horizon,
		ModelLoaded:  s.predictor != nil,
		ScalerLoaded: s.scaler != nil,
		Timestamp:    time.Now().UTC(),
	}
}

func (s *PredictionService) run(ctx context.Context, X [][]float64) ([]float64, *models.RequestError) {
	scaled, err := s.scaler.Transform(X)
	if err != nil {
		return nil, models.ComputationError(err, "transform")
	}
	preds, err := s.predictor.Predict(ctx, scaled)
	if err != nil {
		return nil, models.ComputationError(err, "predict")
	}
	if len(preds) != len(X) {
		return nil, models.ComputationError(
			fmt.Errorf("got %d predictions for %d rows", len(preds), len(X)), "predict")
	}
	return preds, nil
}

func explainCacheKey(req *models.ExplainRequest) string {
	h := sha256.New()
	h.Write(req.Features)
	fmt.Fprintf(h, "|%d", req.Samples)
	return "explain:" + hex.EncodeToString(h.Sum(nil))
}
