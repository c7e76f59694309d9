package usecase

import (
	"context"
	"testing"
	"time"

	"volatiq/internal/domain/models"
)

type stubPublisher struct {
	bars   []*models.PriceBar
	closed bool
}

func (p *stubPublisher) Publish(_ context.Context, b *models.PriceBar) error {
	p.bars = append(p.bars, b)
	return nil
}

func (p *stubPublisher) PublishBatch(_ context.Context, bars []*models.PriceBar) error {
	p.bars = append(p.bars, bars...)
	return nil
}

func (p *stubPublisher) Close() error { p.closed = true; return nil }

type stubStore struct {
	bars []*models.PriceBar
}

func (s *stubStore) Store(_ context.Context, b *models.PriceBar) error {
	s.bars = append(s.bars, b)
	return nil
}

func (s *stubStore) StoreBatch(_ context.Context, bars []*models.PriceBar) error {
	s.bars = append(s.bars, bars...)
	return nil
}

func (s *stubStore) Query(context.Context, string, time.Time, time.Time, int) ([]models.PriceBar, error) {
	return nil, nil
}

func (s *stubStore) Health(context.Context) error { return nil }
func (s *stubStore) Close() error                 { return nil }

func intradayBar() *models.PriceBar {
	return &models.PriceBar{
		Symbol: "AAPL",
		Date:   time.Date(2024, 6, 3, 15, 30, 45, 0, time.UTC),
		Open:   100, High: 102, Low: 99, Close: 101, Volume: 1e6,
	}
}

func TestProcessorRoutesToKafka(t *testing.T) {
	pub, store := &stubPublisher{}, &stubStore{}
	p := NewBarProcessor(pub, store, newStubMetrics(), "kafka")

	if err := p.Process(context.Background(), intradayBar()); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(pub.bars) != 1 || len(store.bars) != 0 {
		t.Fatalf("kafka backend wrote pub=%d store=%d", len(pub.bars), len(store.bars))
	}
}

func TestProcessorRoutesToClickHouse(t *testing.T) {
	pub, store := &stubPublisher{}, &stubStore{}
	p := NewBarProcessor(pub, store, newStubMetrics(), "clickhouse")

	if err := p.ProcessBatch(context.Background(), []*models.PriceBar{intradayBar(), intradayBar()}); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(store.bars) != 2 || len(pub.bars) != 0 {
		t.Fatalf("clickhouse backend wrote pub=%d store=%d", len(pub.bars), len(store.bars))
	}
}

func TestProcessorUnknownBackend(t *testing.T) {
	p := NewBarProcessor(&stubPublisher{}, &stubStore{}, newStubMetrics(), "postgres")
	if err := p.Process(context.Background(), intradayBar()); err == nil {
		t.Fatal("expected backend error")
	}
}

func TestProcessorTruncatesDates(t *testing.T) {
	store := &stubStore{}
	p := NewBarProcessor(nil, store, newStubMetrics(), "clickhouse")

	if err := p.Process(context.Background(), intradayBar()); err != nil {
		t.Fatalf("process: %v", err)
	}
	want := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	if !store.bars[0].Date.Equal(want) {
		t.Fatalf("date = %v, want day-truncated %v", store.bars[0].Date, want)
	}
}

func TestProcessorClose(t *testing.T) {
	pub := &stubPublisher{}
	p := NewBarProcessor(pub, &stubStore{}, newStubMetrics(), "kafka")
	p.Close()
	if !pub.closed {
		t.Fatal("publisher not closed")
	}
}
