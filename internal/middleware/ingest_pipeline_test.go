package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"volatiq/internal/domain/models"
)

type recordingProc struct {
	bars []*models.PriceBar
	err  error
}

func (p *recordingProc) Process(_ context.Context, b *models.PriceBar) error {
	if p.err != nil {
		return p.err
	}
	p.bars = append(p.bars, b)
	return nil
}

type nullMetrics struct{ errs map[string]int }

func newNullMetrics() *nullMetrics { return &nullMetrics{errs: make(map[string]int)} }

func (m *nullMetrics) RecordPrediction(string, int)     {}
func (m *nullMetrics) RecordError(kind string)          { m.errs[kind]++ }
func (m *nullMetrics) RecordLatency(string, float64)    {}
func (m *nullMetrics) RecordMessageSent(string, string) {}
func (m *nullMetrics) RecordLastClose(string, float64)  {}

func goodBar(symbol string) *models.PriceBar {
	return &models.PriceBar{
		Symbol: symbol,
		Date:   time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		Open:   100, High: 102, Low: 99, Close: 101, Volume: 1e6,
	}
}

func TestPipelineForwards(t *testing.T) {
	proc := &recordingProc{}
	p := NewIngestPipeline(proc, newNullMetrics())
	if err := p.Process(context.Background(), goodBar("aapl")); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(proc.bars) != 1 {
		t.Fatalf("forwarded %d bars, want 1", len(proc.bars))
	}
	if proc.bars[0].Symbol != "AAPL" {
		t.Fatalf("symbol = %s, want normalized AAPL", proc.bars[0].Symbol)
	}
}

func TestPipelineRejectsInvalid(t *testing.T) {
	proc := &recordingProc{}
	m := newNullMetrics()
	p := NewIngestPipeline(proc, m)

	bad := []*models.PriceBar{
		nil,
		{Date: time.Now()}, // no symbol
		{Symbol: "AAPL"},   // zero date
		func() *models.PriceBar { b := goodBar("AAPL"); b.Close = -1; return b }(),
		func() *models.PriceBar { b := goodBar("AAPL"); b.High, b.Low = 99, 102; return b }(),
	}
	for i, b := range bad {
		if err := p.Process(context.Background(), b); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
	if len(proc.bars) != 0 {
		t.Fatalf("invalid bars reached downstream: %d", len(proc.bars))
	}
	if m.errs["pipeline_validate"] != len(bad) {
		t.Fatalf("validate errors = %d, want %d", m.errs["pipeline_validate"], len(bad))
	}
}

func TestPipelineThrottlesPerSymbol(t *testing.T) {
	proc := &recordingProc{}
	m := newNullMetrics()
	p := NewIngestPipeline(proc, m, WithMaxRPS(1))

	ctx := context.Background()
	if err := p.Process(ctx, goodBar("AAPL")); err != nil {
		t.Fatalf("first bar: %v", err)
	}
	// second bar for the same symbol inside the window is dropped silently
	if err := p.Process(ctx, goodBar("AAPL")); err != nil {
		t.Fatalf("throttled bar must not error: %v", err)
	}
	// a different symbol is not affected
	if err := p.Process(ctx, goodBar("MSFT")); err != nil {
		t.Fatalf("other symbol: %v", err)
	}
	if len(proc.bars) != 2 {
		t.Fatalf("forwarded %d bars, want 2", len(proc.bars))
	}
	if m.errs["pipeline_throttle"] != 1 {
		t.Fatalf("throttle count = %d, want 1", m.errs["pipeline_throttle"])
	}
}

func TestPipelineBuffersOnFailure(t *testing.T) {
	proc := &recordingProc{err: errors.New("backend down")}
	m := newNullMetrics()
	p := NewIngestPipeline(proc, m, WithBufferSize(2))

	ctx := context.Background()
	if err := p.Process(ctx, goodBar("AAPL")); err == nil {
		t.Fatal("expected downstream error")
	}
	if m.errs["pipeline_process"] != 1 {
		t.Fatalf("process errors = %d, want 1", m.errs["pipeline_process"])
	}
	if len(p.bufCh) != 1 {
		t.Fatalf("buffered %d bars, want 1", len(p.bufCh))
	}
}
