//go:build wireinject
// +build wireinject

package di

import (
	"DemandCast/pkg/config"
	"DemandCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisClient,
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories
		ProvideArtifactStore,
		ProvideModelStore,
		ProvidePredictionStorage,
		ProvidePredictionPublisher,
		ProvideEventPublisher,
		ProvideCache,

		// Use cases
		ProvideHyperparams,
		ProvideTrainer,
		ProvidePredictor,
		ProvidePredictionRecorder,
		ProvideForecastService,
		ProvideJobs,
		ProvideAuditLogHandler,

		// Transport
		ProvideQueue,
		ProvideAuditConsumer,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
