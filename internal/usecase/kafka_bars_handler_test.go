package usecase

import (
	"context"
	"testing"
	"time"
)

func TestKafkaBarsHandlerStores(t *testing.T) {
	store := &stubStore{}
	h := NewKafkaBarsHandler("volatiq.bars.daily", store, newStubMetrics())
	if h.Topic() != "volatiq.bars.daily" {
		t.Fatalf("topic = %s", h.Topic())
	}

	msg := `{"symbol": "AAPL", "t": 1717372800, "o": 100, "h": 102, "l": 99, "c": 101, "v": 1000000}`
	if err := h.Handle(context.Background(), []byte(msg)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(store.bars) != 1 {
		t.Fatalf("stored %d bars, want 1", len(store.bars))
	}
	b := store.bars[0]
	if b.Symbol != "AAPL" || b.Close != 101 {
		t.Fatalf("unexpected bar: %+v", b)
	}
	if !b.Date.Equal(time.Unix(1717372800, 0).UTC()) {
		t.Fatalf("date = %v", b.Date)
	}
}

func TestKafkaBarsHandlerMillisTimestamps(t *testing.T) {
	store := &stubStore{}
	h := NewKafkaBarsHandler("t", store, newStubMetrics())

	msg := `{"symbol": "AAPL", "t": 1717372800000, "o": 1, "h": 1, "l": 1, "c": 1, "v": 1}`
	if err := h.Handle(context.Background(), []byte(msg)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := store.bars[0].Date; !got.Equal(time.Unix(1717372800, 0).UTC()) {
		t.Fatalf("ms timestamp not converted: %v", got)
	}
}

func TestKafkaBarsHandlerBadPayload(t *testing.T) {
	h := NewKafkaBarsHandler("t", &stubStore{}, newStubMetrics())
	if err := h.Handle(context.Background(), []byte("{not json")); err == nil {
		t.Fatal("expected unmarshal error")
	}
}
