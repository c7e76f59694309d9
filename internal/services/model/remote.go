package model

import (
	"context"
	"fmt"
	"time"

	svc "volatiq/internal/domain/service"
	xhttp "volatiq/pkg/http"
)

// RemotePredictor satisfies the predictor contract by delegating to an
// external model service over HTTP. Selected by config when the model is
// hosted out of process.
type RemotePredictor struct {
	baseURL string
	client  *xhttp.Client
}

// NewRemotePredictor builds an HTTP-backed predictor client.
func NewRemotePredictor(baseURL string, timeout time.Duration) *RemotePredictor {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &RemotePredictor{
		baseURL: baseURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

type remotePredictReq struct {
	Features [][]float64 `json:"features"`
}

type remotePredictResp struct {
	Predictions []float64 `json:"predictions"`
}

// Predict posts the scaled batch to the remote /predict endpoint.
func (p *RemotePredictor) Predict(ctx context.Context, X [][]float64) ([]float64, error) {
	if p.baseURL == "" {
		return nil, fmt.Errorf("remote predictor not configured")
	}
	var resp remotePredictResp
	err := p.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     p.baseURL + "/predict",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    remotePredictReq{Features: X},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("remote predict: %w", err)
	}
	if len(resp.Predictions) != len(X) {
		return nil, fmt.Errorf("remote predict: got %d predictions for %d rows", len(resp.Predictions), len(X))
	}
	return resp.Predictions, nil
}

var _ svc.Predictor = (*RemotePredictor)(nil)
