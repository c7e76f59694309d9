// Package features turns an ordered daily bar history into the fixed
// 5-column technical representation and the forward realized-volatility
// training target. Everything here is a pure function over []models.PriceBar.
package features

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"volatiq/internal/domain/models"
)

const (
	rsiWindow  = 14
	maShort    = 5
	maLong     = 10
	rsiEpsilon = 1e-9
)

// Frame is a feature matrix aligned to bar indices. Rows contain no NaN;
// warm-up rows are dropped before the frame is built, never imputed.
type Frame struct {
	Index []int
	Rows  [][]float64
}

// Series is a target column aligned to bar indices.
type Series struct {
	Index  []int
	Values []float64
}

// WarmUp returns the number of leading bars that cannot produce a full
// feature row for the given horizon. RSI dominates for any horizon up to its
// 14-bar window.
func WarmUp(horizon int) int {
	if horizon > rsiWindow {
		return horizon
	}
	return rsiWindow
}

// ComputeFeatures computes per-bar feature rows in the fixed column order
// [log_return, volatility, ma_5, ma_10, rsi].
//
//	log_return_t = ln(close_t / close_{t-1})
//	volatility_t = sample std of log returns over the trailing horizon window
//	ma_5, ma_10  = trailing means of close
//	rsi_t        = 100 - 100/(1 + avg_gain/(avg_loss + eps)) over 14 bars
//
// Only bars with full window history appear in the result; every retained row
// uses information from bars <= t exclusively.
func ComputeFeatures(bars []models.PriceBar, horizon int) Frame {
	if horizon < 1 || len(bars) == 0 {
		return Frame{}
	}

	logRet := logReturns(bars)
	n := len(bars)
	first := WarmUp(horizon)

	f := Frame{
		Index: make([]int, 0, max(0, n-first)),
		Rows:  make([][]float64, 0, max(0, n-first)),
	}
	for t := first; t < n; t++ {
		row := []float64{
			logRet[t],
			rollingStd(logRet, t, horizon),
			rollingMeanClose(bars, t, maShort),
			rollingMeanClose(bars, t, maLong),
			rsi(bars, t),
		}
		if hasNonFinite(row) {
			continue
		}
		f.Index = append(f.Index, t)
		f.Rows = append(f.Rows, row)
	}
	return f
}

// ComputeTargets computes the forward-looking realized-volatility target.
// The target at t is the sample standard deviation of the one-bar log returns
// of the horizon window strictly after t (bars t+1..t+horizon); it never
// consumes information from bars before t. Feature columns, by contrast, must
// never look past t, so the target is intentionally the only forward-looking
// column in the dataset.
func ComputeTargets(bars []models.PriceBar, horizon int) Series {
	if horizon < 1 || len(bars) == 0 {
		return Series{}
	}

	logRet := logReturns(bars)
	n := len(bars)

	s := Series{}
	for t := 0; t+horizon < n; t++ {
		window := logRet[t+1 : t+horizon+1]
		if hasNonFinite(window) {
			continue
		}
		v := stat.StdDev(window, nil)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		s.Index = append(s.Index, t)
		s.Values = append(s.Values, v)
	}
	return s
}

// PrepareDataset joins features and targets on bar index and drops rows where
// either side is undefined. A series shorter than the combined warm-up
// (14 + horizon bars at minimum) yields an empty dataset, not an error.
func PrepareDataset(bars []models.PriceBar, horizon int) (models.Dataset, error) {
	if horizon < 1 {
		return models.Dataset{}, fmt.Errorf("horizon must be >= 1, got %d", horizon)
	}

	f := ComputeFeatures(bars, horizon)
	tg := ComputeTargets(bars, horizon)

	targetAt := make(map[int]float64, len(tg.Index))
	for i, idx := range tg.Index {
		targetAt[idx] = tg.Values[i]
	}

	var ds models.Dataset
	for i, idx := range f.Index {
		v, ok := targetAt[idx]
		if !ok {
			continue
		}
		ds.Features = append(ds.Features, f.Rows[i])
		ds.Targets = append(ds.Targets, v)
	}
	return ds, nil
}

// logReturns returns a full-length column; index 0 and any bar with a
// non-positive close are NaN so downstream windows reject them.
func logReturns(bars []models.PriceBar) []float64 {
	out := make([]float64, len(bars))
	out[0] = math.NaN()
	for i := 1; i < len(bars); i++ {
		prev, cur := bars[i-1].Close, bars[i].Close
		if prev <= 0 || cur <= 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = math.Log(cur / prev)
	}
	return out
}

func rollingStd(col []float64, t, window int) float64 {
	if window < 2 || t-window+1 < 0 {
		return math.NaN()
	}
	w := col[t-window+1 : t+1]
	if hasNonFinite(w) {
		return math.NaN()
	}
	return stat.StdDev(w, nil)
}

func rollingMeanClose(bars []models.PriceBar, t, window int) float64 {
	if t-window+1 < 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := t - window + 1; i <= t; i++ {
		sum += bars[i].Close
	}
	return sum / float64(window)
}

func rsi(bars []models.PriceBar, t int) float64 {
	if t-rsiWindow < 0 {
		return math.NaN()
	}
	var gain, loss float64
	for i := t - rsiWindow + 1; i <= t; i++ {
		delta := bars[i].Close - bars[i-1].Close
		if delta > 0 {
			gain += delta
		} else {
			loss += -delta
		}
	}
	avgGain := gain / rsiWindow
	avgLoss := loss / rsiWindow
	rs := avgGain / (avgLoss + rsiEpsilon)
	return 100 - 100/(1+rs)
}

func hasNonFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return true
		}
	}
	return false
}
