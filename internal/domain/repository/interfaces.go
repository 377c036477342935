package repository

import (
	"context"

	"omniscient/internal/domain/models"
)

// MarketProbe observes the marketplace for one tracked keyword and
// returns the current snapshot of its listing activity.
type MarketProbe interface {
	Observe(ctx context.Context, item models.WatchlistItem) (*models.MarketSnapshot, error)
}

// StatStore persists and reads per-keyword market statistics.
// History reads return rows ordered oldest to newest.
type StatStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, stat *models.MarketStat) error
	StoreBatch(ctx context.Context, stats []*models.MarketStat) error
	History(ctx context.Context, keyword string, days int) ([]models.MarketStat, error)
	Rates(ctx context.Context, keyword string, days int) ([]float64, error)
	Latest(ctx context.Context, keyword string) (*models.MarketStat, error)
	Keywords(ctx context.Context) ([]string, error)
	MarketDaily(ctx context.Context, days int) ([]models.DailyAggregate, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// SignalPublisher ships market signals to downstream consumers.
type SignalPublisher interface {
	Publish(ctx context.Context, s *models.Signal) error
	PublishBatch(ctx context.Context, signals []*models.Signal) error
	Close() error
}

type Metrics interface {
	RecordScan(status string)
	RecordAnomaly(anomalyType, severity string)
	RecordSignal(level string)
	RecordError(kind string)
	RecordOpportunity(keyword string, score float64)
	RecordSellThroughRate(keyword string, rate float64)
	RecordLatency(op string, seconds float64)
}
