//go:build wireinject
// +build wireinject

package di

import (
	"WhaleTrail/pkg/config"
	"WhaleTrail/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideHTTPClient,
		ProvideSolanaClient,
		ProvideChainClient,
		ProvideSigner,
		ProvideVenues,
		ProvidePriceSource,
		ProvideCacheService,
		ProvideNotifier,
		ProvideClickHouseClient,
		ProvideMovementStore,

		// Detection
		ProvideSources,
		ProvideMonitor,
		ProvideClassifier,
		ProvideEventCache,
		ProvideEngine,
		ProvideHistory,
		ProvideVolumeTracker,

		// Execution
		ProvideRetryHandler,
		ProvideExecutor,
		ProvideQueue,

		// Use cases
		ProvidePipeline,
		ProvideExecuteSignalJob,

		// HTTP surface
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
