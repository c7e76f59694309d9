// Package explain implements sampling-based local attribution for single
// predictions: coalitions of features are masked to a baseline, the predictor
// is evaluated on each masked vector, and a weighted regression distributes
// the output delta across features.
package explain

import (
	"context"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"volatiq/internal/domain/models"
	svc "volatiq/internal/domain/service"
)

// KernelExplainer estimates per-feature attributions with a fixed per-row
// sample budget. The random source is injected so results are reproducible
// under a fixed seed.
type KernelExplainer struct {
	predictor svc.Predictor
	baseline  []float64
	samples   int
	rng       *rand.Rand
}

// Option configures a KernelExplainer.
type Option func(*KernelExplainer)

// WithBaseline overrides the zero-vector reference point.
func WithBaseline(b []float64) Option {
	return func(e *KernelExplainer) { e.baseline = b }
}

// WithSamples sets the coalition sample budget per row.
func WithSamples(n int) Option {
	return func(e *KernelExplainer) {
		if n > 0 {
			e.samples = n
		}
	}
}

// WithSeed fixes the random source.
func WithSeed(seed int64) Option {
	return func(e *KernelExplainer) { e.rng = rand.New(rand.NewSource(seed)) }
}

// NewKernelExplainer builds an explainer over the given predictor with a
// zero-vector baseline and a 100-sample budget by default.
func NewKernelExplainer(p svc.Predictor, opts ...Option) *KernelExplainer {
	e := &KernelExplainer{
		predictor: p,
		baseline:  make([]float64, models.FeatureCount),
		samples:   100,
		rng:       rand.New(rand.NewSource(rand.Int63())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Explain attributes each row's prediction-minus-baseline delta across
// features. Cost is samples x rows predictor evaluations; callers bound rows
// upstream. The attributions of a row sum to the delta by construction, up to
// the least-squares solve's float error.
func (e *KernelExplainer) Explain(ctx context.Context, X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		if len(row) != len(e.baseline) {
			return nil, fmt.Errorf("explain: row %d has %d features, baseline has %d", i, len(row), len(e.baseline))
		}
		phi, err := e.explainRow(ctx, row)
		if err != nil {
			return nil, fmt.Errorf("explain row %d: %w", i, err)
		}
		out[i] = phi
	}
	return out, nil
}

func (e *KernelExplainer) explainRow(ctx context.Context, x []float64) ([]float64, error) {
	d := len(x)

	masks := make([][]bool, e.samples)
	for s := range masks {
		masks[s] = e.sampleCoalition(d)
	}

	// One vectorized predictor call: all masked vectors plus the row itself
	// and the baseline.
	batch := make([][]float64, 0, e.samples+2)
	for _, z := range masks {
		batch = append(batch, applyMask(x, e.baseline, z))
	}
	batch = append(batch, x, e.baseline)

	preds, err := e.predictor.Predict(ctx, batch)
	if err != nil {
		return nil, err
	}
	fx := preds[len(preds)-2]
	fb := preds[len(preds)-1]
	delta := fx - fb

	// Regress masked deltas onto coalition indicators. The additivity
	// constraint sum(phi) = delta is eliminated analytically: with
	// phi_d = delta - sum(phi_j, j<d), each sample contributes
	//   sum_{j<d} (z_j - z_d) phi_j = v_z - z_d * delta.
	rows := e.samples
	a := mat.NewDense(rows, d-1, nil)
	b := mat.NewVecDense(rows, nil)
	for s, z := range masks {
		v := preds[s] - fb
		zd := 0.0
		if z[d-1] {
			zd = 1
		}
		for j := 0; j < d-1; j++ {
			zj := 0.0
			if z[j] {
				zj = 1
			}
			a.Set(s, j, zj-zd)
		}
		b.SetVec(s, v-zd*delta)
	}

	var phiHead mat.VecDense
	if err := phiHead.SolveVec(a, b); err != nil {
		return nil, fmt.Errorf("weighted regression: %w", err)
	}

	phi := make([]float64, d)
	sum := 0.0
	for j := 0; j < d-1; j++ {
		phi[j] = phiHead.AtVec(j)
		sum += phi[j]
	}
	phi[d-1] = delta - sum
	return phi, nil
}

// sampleCoalition draws a non-degenerate mask. Coalition sizes are drawn
// proportionally to the Shapley kernel weight (d-1)/(k(d-k)), so an ordinary
// least-squares fit over the samples approximates the weighted problem.
func (e *KernelExplainer) sampleCoalition(d int) []bool {
	weights := make([]float64, d-1)
	total := 0.0
	for k := 1; k < d; k++ {
		w := float64(d-1) / float64(k*(d-k))
		weights[k-1] = w
		total += w
	}
	r := e.rng.Float64() * total
	k := d - 1
	for i, w := range weights {
		if r < w {
			k = i + 1
			break
		}
		r -= w
	}

	idx := e.rng.Perm(d)[:k]
	mask := make([]bool, d)
	for _, j := range idx {
		mask[j] = true
	}
	return mask
}

func applyMask(x, baseline []float64, keep []bool) []float64 {
	out := make([]float64, len(x))
	for j := range x {
		if keep[j] {
			out[j] = x[j]
		} else {
			out[j] = baseline[j]
		}
	}
	return out
}

var _ svc.Explainer = (*KernelExplainer)(nil)
