//go:build wireinject
// +build wireinject

package di

import (
	"SignalForge/pkg/config"
	"SignalForge/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisCache,
		ProvideCache,
		ProvideDocumentStore,
		ProvideClickHouseClient,
		ProvidePatternArchive,
		ProvideArchiveQueue,
		ProvideKafkaProducer,

		// Signal delivery
		ProvideSignalPublisher,
		ProvideSignalDispatcher,

		// Shared state
		ProvidePersonalityWatcher,
		ProvidePersonalitySource,
		ProvideStrategyStore,
		ProvidePatternMemory,
		ProvideCooldown,
		ProvideWallet,

		// Decision pipeline
		ProvideGate,
		ProvidePredictor,
		ProvideEngine,
		ProvideSnapshotCache,
		ProvideMarketData,
		ProvideKafkaConsumer,
		ProvideSentiment,
		ProvideAssetWorker,

		// Calibration
		ProvideCalibrator,
		ProvideTrainer,
		ProvideCalibrationLoop,

		// HTTP
		ProvideHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
