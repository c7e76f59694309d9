package repository

import (
	"context"
	"time"

	"volatiq/internal/domain/models"
)

// BarStream is a live feed of OHLCV bars from a market-data provider.
type BarStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.PriceBar, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Publisher pushes bars onto a message bus for downstream storage.
type Publisher interface {
	Publish(ctx context.Context, b *models.PriceBar) error
	PublishBatch(ctx context.Context, bars []*models.PriceBar) error
	Close() error
}

// BarStore persists and serves the daily bar history used for training.
type BarStore interface {
	Store(ctx context.Context, b *models.PriceBar) error
	StoreBatch(ctx context.Context, bars []*models.PriceBar) error
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.PriceBar, error)
	Health(ctx context.Context) error
	Close() error
}

// Metrics abstracts the Prometheus recorder from domain code.
type Metrics interface {
	RecordPrediction(endpoint string, rows int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordMessageSent(backend, symbol string)
	RecordLastClose(symbol string, price float64)
}
