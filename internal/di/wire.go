//go:build wireinject
// +build wireinject

package di

import (
	"omniscient/pkg/config"
	"omniscient/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideRedisClient,

		// Repositories
		ProvideStatStore,
		ProvideSignalPublisher,
		ProvideProbe,

		// Analytics engines
		ProvideTrendAnalyzer,
		ProvideAnomalyDetector,
		ProvideForecaster,
		ProvideScorer,

		// Use cases
		ProvideSignalFeed,
		ProvideLockCache,
		ProvideScanUseCase,
		ProvideIntelligenceUseCase,
		ProvideScanJob,
		ProvideScanQueue,
		ProvideScheduler,

		// HTTP surface
		ProvideCache,
		ProvideRouter,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
