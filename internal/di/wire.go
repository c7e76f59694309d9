//go:build wireinject
// +build wireinject

package di

import (
	"volatiq/pkg/config"
	"volatiq/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Model artifacts and serving core
		ProvideScaler,
		ProvidePredictor,
		ProvideExplainerFactory,
		ProvideExplainCache,
		ProvidePredictionService,
		ProvideHealthMonitor,
		ProvideHTTPHandler,

		// Ingest infrastructure
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideBarStore,
		ProvideBarPublisher,
		ProvideKafkaBarsHandler,
		ProvideBarStream,
		ProvideBarProcessor,
		ProvideBarCollector,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
