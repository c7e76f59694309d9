package explain

import (
	"context"
	"errors"
	"math"
	"testing"
)

type fnPredictor func([][]float64) ([]float64, error)

func (f fnPredictor) Predict(_ context.Context, X [][]float64) ([]float64, error) {
	return f(X)
}

func linearPredictor(w []float64, b float64) fnPredictor {
	return func(X [][]float64) ([]float64, error) {
		out := make([]float64, len(X))
		for i, row := range X {
			v := b
			for j, x := range row {
				v += w[j] * x
			}
			out[i] = v
		}
		return out, nil
	}
}

func TestExplainAdditivity(t *testing.T) {
	p := fnPredictor(func(X [][]float64) ([]float64, error) {
		out := make([]float64, len(X))
		for i, row := range X {
			// nonlinear on purpose
			out[i] = row[0]*row[1] + math.Tanh(row[2]) + row[3] - 0.5*row[4]*row[4]
		}
		return out, nil
	})
	e := NewKernelExplainer(p, WithSeed(7))

	X := [][]float64{
		{0.01, 0.02, 100.0, 101.0, 50.0},
		{0.5, -0.2, 1.0, 2.0, 3.0},
	}
	phis, err := e.Explain(context.Background(), X)
	if err != nil {
		t.Fatalf("explain: %v", err)
	}

	preds, _ := p(X)
	base, _ := p([][]float64{make([]float64, 5)})
	for i, phi := range phis {
		if len(phi) != 5 {
			t.Fatalf("row %d: %d attributions, want 5", i, len(phi))
		}
		sum := 0.0
		for _, v := range phi {
			sum += v
		}
		delta := preds[i] - base[0]
		if math.Abs(sum-delta) > 1e-2 {
			t.Fatalf("row %d: attributions sum %v, delta %v", i, sum, delta)
		}
	}
}

func TestExplainLinearModelExact(t *testing.T) {
	w := []float64{2, -1, 0.5, 0, 3}
	e := NewKernelExplainer(linearPredictor(w, 10), WithSeed(1))

	x := []float64{1, 2, -4, 8, 0.5}
	phis, err := e.Explain(context.Background(), [][]float64{x})
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	// for a linear model with zero baseline the attribution of feature j
	// is exactly w_j * x_j
	for j, phi := range phis[0] {
		want := w[j] * x[j]
		if math.Abs(phi-want) > 1e-6 {
			t.Fatalf("feature %d: attribution %v, want %v", j, phi, want)
		}
	}
}

func TestExplainReproducible(t *testing.T) {
	p := linearPredictor([]float64{1, 2, 3, 4, 5}, 0)
	x := [][]float64{{0.1, 0.2, 0.3, 0.4, 0.5}}

	a, err := NewKernelExplainer(p, WithSeed(42)).Explain(context.Background(), x)
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	b, err := NewKernelExplainer(p, WithSeed(42)).Explain(context.Background(), x)
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	for j := range a[0] {
		if a[0][j] != b[0][j] {
			t.Fatalf("feature %d differs across runs with same seed", j)
		}
	}
}

func TestExplainSampleBudget(t *testing.T) {
	calls := 0
	p := fnPredictor(func(X [][]float64) ([]float64, error) {
		calls += len(X)
		return make([]float64, len(X)), nil
	})
	e := NewKernelExplainer(p, WithSamples(50), WithSeed(3))
	if _, err := e.Explain(context.Background(), [][]float64{make([]float64, 5)}); err != nil {
		t.Fatalf("explain: %v", err)
	}
	// 50 masked vectors plus the row and the baseline, one batched call
	if calls != 52 {
		t.Fatalf("predictor saw %d rows, want 52", calls)
	}
}

func TestExplainPredictorError(t *testing.T) {
	boom := errors.New("backend down")
	p := fnPredictor(func(X [][]float64) ([]float64, error) { return nil, boom })
	e := NewKernelExplainer(p, WithSeed(1))
	if _, err := e.Explain(context.Background(), [][]float64{make([]float64, 5)}); !errors.Is(err, boom) {
		t.Fatalf("got %v, want wrapped predictor error", err)
	}
}

func TestExplainWidthMismatch(t *testing.T) {
	e := NewKernelExplainer(linearPredictor([]float64{1, 1, 1, 1, 1}, 0), WithSeed(1))
	if _, err := e.Explain(context.Background(), [][]float64{{1, 2}}); err == nil {
		t.Fatal("expected width error")
	}
}

func TestCoalitionsNeverDegenerate(t *testing.T) {
	e := NewKernelExplainer(linearPredictor([]float64{1, 1, 1, 1, 1}, 0), WithSeed(9))
	for i := 0; i < 500; i++ {
		mask := e.sampleCoalition(5)
		n := 0
		for _, b := range mask {
			if b {
				n++
			}
		}
		if n == 0 || n == 5 {
			t.Fatalf("degenerate coalition of size %d", n)
		}
	}
}
