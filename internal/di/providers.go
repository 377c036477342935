package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"omniscient/internal/domain/models"
	domrepo "omniscient/internal/domain/repository"
	domsvc "omniscient/internal/domain/service"
	"omniscient/internal/handler/api"
	internalrepo "omniscient/internal/repository"
	icache "omniscient/internal/service/cache"
	"omniscient/internal/service/probe"
	"omniscient/internal/services/analytics"
	"omniscient/internal/usecase"
	pkgcache "omniscient/pkg/cache"
	pkgch "omniscient/pkg/clickhouse"
	"omniscient/pkg/config"
	pkgkafka "omniscient/pkg/kafka"
	applogger "omniscient/pkg/logger"
	"omniscient/pkg/metrics"
	"omniscient/pkg/queue"
	"omniscient/pkg/server"

	"github.com/redis/go-redis/v9"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := "info"
	format := "json"
	if cfg.Environment == "development" {
		level = "debug"
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: "stdout"})
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.SchemaStatements); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideStatStore creates the ClickHouse-backed stat store.
func ProvideStatStore(chClient *pkgch.Client, l *applogger.Logger) domrepo.StatStore {
	store := internalrepo.NewCHStatStore(chClient)
	store.SetLogger(l)
	return store
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is off.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideSignalPublisher creates the signal publisher; a no-op one when
// Kafka is off.
func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.SignalPublisher {
	if producer == nil {
		return internalrepo.NopSignalPublisher{}
	}
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.Topic)
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideProbe selects the market probe by configured mode.
func ProvideProbe(cfg *config.Config, l *applogger.Logger) domrepo.MarketProbe {
	if cfg.Probe.Mode == "http" {
		return probe.NewHTTPProbe(cfg.Probe.BaseURL, cfg.Probe.Timeout, l)
	}
	return probe.NewSynthetic()
}

// ProvideTrendAnalyzer creates the trend engine.
func ProvideTrendAnalyzer() domsvc.TrendAnalyzer { return analytics.NewTrendEngine() }

// ProvideAnomalyDetector creates the anomaly detector.
func ProvideAnomalyDetector() domsvc.AnomalyDetector { return analytics.NewStatAnomalyDetector() }

// ProvideForecaster creates the forecaster.
func ProvideForecaster() domsvc.Forecaster { return analytics.NewStatForecaster() }

// ProvideScorer creates the opportunity scorer.
func ProvideScorer() domsvc.OpportunityScorer { return analytics.NewMarketScorer() }

// ProvideSignalFeed creates the in-memory signal feed.
func ProvideSignalFeed() *usecase.SignalFeed { return usecase.NewSignalFeed() }

func watchlist(cfg *config.Config) []models.WatchlistItem {
	items := make([]models.WatchlistItem, 0, len(cfg.Scan.Watchlist))
	for _, w := range cfg.Scan.Watchlist {
		items = append(items, models.WatchlistItem{
			Keyword:  w.Keyword,
			Category: w.Category,
			Platform: w.Platform,
		})
	}
	return items
}

// ProvideScanUseCase creates the sweep use case.
func ProvideScanUseCase(
	prb domrepo.MarketProbe,
	store domrepo.StatStore,
	trends domsvc.TrendAnalyzer,
	anomalies domsvc.AnomalyDetector,
	scorer domsvc.OpportunityScorer,
	publisher domrepo.SignalPublisher,
	m domrepo.Metrics,
	feed *usecase.SignalFeed,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.MarketScanUseCase {
	return usecase.NewMarketScanUseCase(prb, store, trends, anomalies, scorer, publisher, m, feed, l, usecase.ScanConfig{
		HistoryDays: cfg.Scan.HistoryDays,
		Concurrency: cfg.Scan.Concurrency,
		Watchlist:   watchlist(cfg),
	})
}

// ProvideIntelligenceUseCase creates the read-side analytics use case.
func ProvideIntelligenceUseCase(
	store domrepo.StatStore,
	trends domsvc.TrendAnalyzer,
	anomalies domsvc.AnomalyDetector,
	forecaster domsvc.Forecaster,
	scorer domsvc.OpportunityScorer,
	cfg *config.Config,
) *usecase.IntelligenceUseCase {
	return usecase.NewIntelligenceUseCase(store, trends, anomalies, forecaster, scorer, watchlist(cfg))
}

// ProvideRedisClient creates a Redis client, or nil when Redis is off.
func ProvideRedisClient(cfg *config.Config) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// ProvideCache selects the response cache backend: Redis when available,
// otherwise in-process TTL.
func ProvideCache(cfg *config.Config) icache.BytesCache {
	if cfg.Redis.Enabled {
		return icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	return icache.NewTTLCache()
}

// directQueue runs jobs inline when no Redis queue is available.
type directQueue struct {
	jobs map[string]queue.Job
}

func (q *directQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	job, ok := q.jobs[msgType]
	if !ok {
		return fmt.Errorf("no job registered for %q", msgType)
	}
	return job.Handle(ctx, payload)
}

// ProvideLockCache creates the coordination cache: layered over Redis when
// available so the sweep lock holds across replicas, memory-only otherwise.
func ProvideLockCache(cfg *config.Config, l *applogger.Logger) pkgcache.Service {
	if !cfg.Redis.Enabled {
		return pkgcache.NewMemoryCache()
	}
	host, port := splitHostPort(cfg.Redis.Addr)
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		l.Warn("redis cache unavailable, using memory lock", applogger.Error(err))
		return pkgcache.NewMemoryCache()
	}
	return pkgcache.NewLayeredCache(rc)
}

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}

// ProvideScanJob creates the queue job running the sweep.
func ProvideScanJob(scan *usecase.MarketScanUseCase, locker pkgcache.Service, l *applogger.Logger) *usecase.ScanJob {
	return usecase.NewScanJob(scan, locker, l)
}

// ScanQueue bundles the enqueue surface with the Redis consumer behind it.
// Redis is nil in inline mode.
type ScanQueue struct {
	Service queue.QueueService
	Redis   *queue.RedisQueue
}

// ProvideScanQueue wires the scan job behind a Redis queue when Redis is
// enabled, or an inline dispatcher otherwise.
func ProvideScanQueue(
	client *redis.Client,
	job *usecase.ScanJob,
	l *applogger.Logger,
) *ScanQueue {
	if client == nil {
		return &ScanQueue{Service: &directQueue{jobs: map[string]queue.Job{job.Name(): job}}}
	}
	rq := queue.NewRedisQueue(l, &queue.QueueConfig{Workers: 1, RetryLimit: 2}, client,
		queue.ModeProducerConsumer, queue.WithKeyPrefix("omniscient:scan"))
	rq.RegisterJob(job)
	return &ScanQueue{Service: rq, Redis: rq}
}

// ProvideScheduler creates the interval scheduler.
func ProvideScheduler(q *ScanQueue, cfg *config.Config, l *applogger.Logger) *usecase.ScanScheduler {
	return usecase.NewScanScheduler(q.Service, cfg.Scan.Interval, l)
}

// ProvideRouter assembles the HTTP handlers.
func ProvideRouter(
	l *applogger.Logger,
	scan *usecase.MarketScanUseCase,
	intel *usecase.IntelligenceUseCase,
	feed *usecase.SignalFeed,
	cache icache.BytesCache,
	cfg *config.Config,
) *api.Router {
	h := api.NewIntelligenceEchoHandler(l, scan, intel, feed, api.CacheTTLs{
		Trends:        cfg.Analytics.CacheTTL.Trends,
		Forecast:      cfg.Analytics.CacheTTL.Forecast,
		Anomalies:     cfg.Analytics.CacheTTL.Anomalies,
		Opportunities: cfg.Analytics.CacheTTL.Opportunities,
	})
	h.SetCache(cache)
	live := api.NewLiveHandler(l, scan, feed)
	return api.NewRouter(h, live)
}

// kafkaLogPublisher adapts the producer to the log collector's interface.
type kafkaLogPublisher struct {
	producer *pkgkafka.Producer
}

func (p kafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	router *api.Router,
	scheduler *usecase.ScanScheduler,
	q *ScanQueue,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	store domrepo.StatStore,
	publisher domrepo.SignalPublisher,
) *server.App {
	// Error-level logs ship to Kafka in aggregate when a producer exists.
	if producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.Topic + ".logs",
			Publisher:      kafkaLogPublisher{producer: producer},
		})
	}
	return server.New(cfg, l, router, scheduler, q.Redis, chClient, store, publisher)
}
