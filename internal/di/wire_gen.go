// Code generated by Wire. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package di

import (
	"WhaleTrail/pkg/config"
	"WhaleTrail/pkg/server"
)

// Injectors from wire.go:

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}
	client := ProvideHTTPClient()
	solanaClient := ProvideSolanaClient(cfg, client)
	v := ProvideSources(cfg, solanaClient, logger)
	metrics := ProvideMetrics()
	monitor := ProvideMonitor(cfg, logger, v, metrics)
	classifier := ProvideClassifier(cfg, logger)
	eventCache := ProvideEventCache(cfg)
	engine := ProvideEngine(cfg, logger, metrics)
	history := ProvideHistory(cfg)
	volumeTracker := ProvideVolumeTracker(cfg)
	chainClient := ProvideChainClient(solanaClient)
	priceSource := ProvidePriceSource(client)
	queue := ProvideQueue(cfg, logger)
	notifier, err := ProvideNotifier(cfg)
	if err != nil {
		return nil, err
	}
	clickhouseClient, err := ProvideClickHouseClient(cfg)
	if err != nil {
		return nil, err
	}
	movementStore, err := ProvideMovementStore(clickhouseClient, logger)
	if err != nil {
		return nil, err
	}
	pipeline := ProvidePipeline(cfg, logger, monitor, classifier, eventCache, engine, history, volumeTracker, chainClient, priceSource, queue, notifier, movementStore, metrics)
	signer, err := ProvideSigner(cfg)
	if err != nil {
		return nil, err
	}
	retryHandler := ProvideRetryHandler(cfg, logger)
	v2 := ProvideVenues(cfg)
	service, err := ProvideCacheService(cfg)
	if err != nil {
		return nil, err
	}
	executor := ProvideExecutor(cfg, logger, chainClient, signer, retryHandler, v2, service, metrics)
	executeSignalJob := ProvideExecuteSignalJob(logger, executor, engine, notifier)
	handler := ProvideHTTPHandler(logger, engine, history, volumeTracker, executor)
	app := ProvideApp(cfg, logger, pipeline, executeSignalJob, queue, handler, notifier, clickhouseClient)
	return app, nil
}
