package model

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	svc "volatiq/internal/domain/service"
)

// Layer is one dense layer of the persisted network. Weights is shaped
// [in][out]; batch-norm layers are folded into the affine parameters at
// export time, so inference is a plain chain of affine transforms and
// activations.
type Layer struct {
	Weights    [][]float64 `json:"weights"`
	Biases     []float64   `json:"biases"`
	Activation string      `json:"activation"`
}

// Network is a feed-forward volatility predictor loaded from a persisted
// weights artifact. The architecture is opaque to the serving core; only the
// input width and the scalar output matter here.
type Network struct {
	Version string  `json:"version"`
	Layers  []Layer `json:"layers"`
}

// LoadNetwork reads and dimension-checks a network artifact.
func LoadNetwork(path string) (*Network, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var n Network
	if err := json.Unmarshal(b, &n); err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}
	if len(n.Layers) == 0 {
		return nil, fmt.Errorf("model artifact has no layers")
	}
	for i, l := range n.Layers {
		if len(l.Weights) == 0 {
			return nil, fmt.Errorf("layer %d: empty weights", i)
		}
		out := len(l.Weights[0])
		for _, row := range l.Weights {
			if len(row) != out {
				return nil, fmt.Errorf("layer %d: ragged weight matrix", i)
			}
		}
		if len(l.Biases) != out {
			return nil, fmt.Errorf("layer %d: %d biases for %d units", i, len(l.Biases), out)
		}
		if i > 0 && len(l.Weights) != len(n.Layers[i-1].Biases) {
			return nil, fmt.Errorf("layer %d: input width %d does not match previous output %d",
				i, len(l.Weights), len(n.Layers[i-1].Biases))
		}
	}
	if last := n.Layers[len(n.Layers)-1]; len(last.Biases) != 1 {
		return nil, fmt.Errorf("model output width %d, want scalar", len(last.Biases))
	}
	return &n, nil
}

// InputWidth returns the expected number of features per row.
func (n *Network) InputWidth() int { return len(n.Layers[0].Weights) }

// Predict runs the forward pass for every row. Pure float arithmetic over
// immutable weights, so repeated calls on identical input are bit-identical
// and concurrent use is safe.
func (n *Network) Predict(_ context.Context, X [][]float64) ([]float64, error) {
	out := make([]float64, len(X))
	for i, row := range X {
		if len(row) != n.InputWidth() {
			return nil, fmt.Errorf("predict: row %d has %d features, model expects %d", i, len(row), n.InputWidth())
		}
		v := row
		for _, l := range n.Layers {
			v = l.forward(v)
		}
		out[i] = v[0]
	}
	return out, nil
}

func (l Layer) forward(in []float64) []float64 {
	out := make([]float64, len(l.Biases))
	copy(out, l.Biases)
	for i, x := range in {
		if x == 0 {
			continue
		}
		w := l.Weights[i]
		for j := range out {
			out[j] += x * w[j]
		}
	}
	switch l.Activation {
	case "relu":
		for j, v := range out {
			if v < 0 {
				out[j] = 0
			}
		}
	case "tanh":
		for j, v := range out {
			out[j] = math.Tanh(v)
		}
	case "sigmoid":
		for j, v := range out {
			out[j] = 1 / (1 + math.Exp(-v))
		}
	}
	return out
}

var _ svc.Predictor = (*Network)(nil)
