package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	evcache "WhaleTrail/internal/cache"
	"WhaleTrail/internal/dex"
	"WhaleTrail/internal/domain/models"
	"WhaleTrail/internal/domain/repository"
	"WhaleTrail/internal/executor"
	"WhaleTrail/internal/handler/api"
	"WhaleTrail/internal/ingest"
	internalrepo "WhaleTrail/internal/repository"
	"WhaleTrail/internal/service/jupiter"
	"WhaleTrail/internal/service/raydium"
	"WhaleTrail/internal/service/solana"
	"WhaleTrail/internal/strategy"
	"WhaleTrail/internal/usecase"
	"WhaleTrail/pkg/cache"
	pkgch "WhaleTrail/pkg/clickhouse"
	"WhaleTrail/pkg/config"
	xhttp "WhaleTrail/pkg/http"
	pkgkafka "WhaleTrail/pkg/kafka"
	"WhaleTrail/pkg/logger"
	"WhaleTrail/pkg/metrics"
	"WhaleTrail/pkg/queue"
	"WhaleTrail/pkg/server"
)

// ProvideLogger creates the application logger. Zero-valued fields fall back
// to info-level JSON on stdout.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	lc := &logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if lc.Level == "" {
		lc.Level = "info"
	}
	if lc.Format == "" {
		lc.Format = "json"
	}
	if lc.Output == "" {
		lc.Output = "stdout"
	}
	return logger.New(lc)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideHTTPClient creates the outbound HTTP client shared by the RPC and
// price lookups.
func ProvideHTTPClient() *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(10 * time.Second))
}

// ProvideSolanaClient creates the JSON-RPC chain client.
func ProvideSolanaClient(cfg *config.Config, hc *xhttp.Client) *solana.Client {
	var opts []solana.ClientOption
	if rps := cfg.Solana.RPCRateLimit; rps > 0 {
		opts = append(opts, solana.WithRateLimit(rps, rps))
	}
	return solana.NewClient(cfg.Solana.RPCURL, cfg.Solana.Commitment, hc, opts...)
}

// ProvideChainClient exposes the chain client behind the domain interface.
func ProvideChainClient(c *solana.Client) repository.ChainClient {
	return c
}

// ProvideSigner loads the trading wallet from the configured private key.
func ProvideSigner(cfg *config.Config) (executor.Signer, error) {
	w, err := solana.NewWallet(cfg.Solana.WalletKey)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}
	return w, nil
}

// ProvideSources assembles the ingestion sources: the websocket log stream,
// plus an RPC poller sweeping the tracked wallets when any are configured.
func ProvideSources(cfg *config.Config, client *solana.Client, log *logger.Logger) []repository.TransactionSource {
	pingInterval := cfg.Solana.PingInterval
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	sources := []repository.TransactionSource{
		solana.NewLogStream(cfg.WebSocketURL(), cfg.Solana.Commitment, cfg.Solana.WatchPrograms, pingInterval, client, log),
	}
	if len(cfg.Whale.TrackedAddresses) > 0 {
		pollInterval := cfg.Solana.PollInterval
		if pollInterval <= 0 {
			pollInterval = 15 * time.Second
		}
		pollLimit := cfg.Solana.PollLimit
		if pollLimit <= 0 {
			pollLimit = 25
		}
		sources = append(sources, solana.NewPoller(cfg.Whale.TrackedAddresses, pollInterval, pollLimit, client, log))
	}
	return sources
}

// ProvideMonitor creates the deduplicating source supervisor.
func ProvideMonitor(cfg *config.Config, log *logger.Logger, sources []repository.TransactionSource, rec repository.Metrics) *ingest.Monitor {
	opts := []ingest.MonitorOption{ingest.WithMonitorMetrics(rec)}
	if cfg.Solana.SourceRetry > 0 {
		opts = append(opts, ingest.WithRetryDelay(cfg.Solana.SourceRetry))
	}
	return ingest.NewMonitor(log, cfg.Whale.DedupeCapacity, sources, opts...)
}

// ProvideClassifier creates the venue-dispatched swap classifier.
func ProvideClassifier(cfg *config.Config, log *logger.Logger) *dex.Classifier {
	return dex.NewClassifier(cfg.Whale.MinTradeAmount, log,
		dex.NewJupiterDecoder(),
		dex.NewRaydiumDecoder(),
	)
}

// ProvideEventCache creates the in-process movement cache.
func ProvideEventCache(cfg *config.Config) *evcache.EventCache {
	capacity := cfg.Cache.MemoryMaxSize
	if capacity <= 0 {
		capacity = 1000
	}
	return evcache.New(capacity)
}

// ProvideEngine builds the strategy engine from the configured risk policy.
// Zero-valued knobs keep the stock defaults.
func ProvideEngine(cfg *config.Config, log *logger.Logger, rec repository.Metrics) *strategy.Engine {
	params := strategy.DefaultParams()
	s := cfg.Strategy
	if s.StopLossPct > 0 {
		params.StopLossPct = decimal.NewFromFloat(s.StopLossPct)
	}
	if s.TakeProfitPct > 0 {
		params.TakeProfitPct = decimal.NewFromFloat(s.TakeProfitPct)
	}
	if s.MinTradeSize > 0 {
		params.MinTradeSize = decimal.NewFromFloat(s.MinTradeSize)
	}
	if s.MaxSlippage > 0 {
		params.MaxSlippage = s.MaxSlippage
	}
	if s.MaxPriceImpact > 0 {
		params.MaxPriceImpact = s.MaxPriceImpact
	}
	// The operating floor defaults to the configured portfolio size, so a
	// drawdown below the starting balance halts new entries.
	switch {
	case s.MinOperatingBalance > 0:
		params.MinOperatingBalance = decimal.NewFromFloat(s.MinOperatingBalance)
	case s.TotalPortfolio > 0:
		params.MinOperatingBalance = decimal.NewFromFloat(s.TotalPortfolio)
	}
	params.Risk = models.RiskParams{
		MaxPositionSize:     decimal.NewFromFloat(s.Risk.MaxPositionSize),
		MaxLossPerTrade:     decimal.NewFromFloat(s.Risk.MaxLossPerTrade),
		MaxTotalRisk:        decimal.NewFromFloat(s.Risk.MaxTotalRisk),
		MinConfidence:       s.Risk.MinConfidence,
		MaxConcurrentTrades: s.Risk.MaxConcurrentTrades,
	}

	total := decimal.NewFromFloat(s.TotalPortfolio)
	portfolio := models.PortfolioState{
		TotalValue:       total,
		AvailableBalance: total,
	}
	return strategy.NewEngine(log, params, portfolio, strategy.WithEngineMetrics(rec))
}

// ProvideHistory creates the movement history ring.
func ProvideHistory(cfg *config.Config) *strategy.History {
	return strategy.NewHistory(cfg.Whale.HistoryCapacity)
}

// ProvideVolumeTracker creates the hot-pair volume tracker.
func ProvideVolumeTracker(cfg *config.Config) *strategy.VolumeTracker {
	return strategy.NewVolumeTracker(cfg.HotPairs.TimeWindow, cfg.HotPairs.MinCount, cfg.HotPairs.MinVolume, cfg.HotPairs.MaxVolume)
}

// ProvideVenues creates the execution venue clients in preference order:
// Jupiter first, Raydium as fallback.
func ProvideVenues(cfg *config.Config) []repository.VenueClient {
	jupTimeout := cfg.Venues.Jupiter.Timeout
	if jupTimeout <= 0 {
		jupTimeout = 10 * time.Second
	}
	rayTimeout := cfg.Venues.Raydium.Timeout
	if rayTimeout <= 0 {
		rayTimeout = 10 * time.Second
	}
	return []repository.VenueClient{
		jupiter.New(cfg.Venues.Jupiter.BaseURL, xhttp.NewClient(xhttp.WithTimeout(jupTimeout))),
		raydium.New(cfg.Venues.Raydium.BaseURL, xhttp.NewClient(xhttp.WithTimeout(rayTimeout))),
	}
}

// ProvidePriceSource creates the token price and metadata client.
func ProvidePriceSource(hc *xhttp.Client) repository.PriceSource {
	return jupiter.NewPriceClient("", hc)
}

// ProvideRetryHandler builds the backoff policy shared by venue and chain
// calls.
func ProvideRetryHandler(cfg *config.Config, log *logger.Logger) *executor.RetryHandler {
	return executor.NewRetryHandler(executor.RetryConfig{
		MaxAttempts:   cfg.Retry.MaxAttempts,
		InitialDelay:  cfg.Retry.InitialDelay,
		MaxDelay:      cfg.Retry.MaxDelay,
		BackoffFactor: cfg.Retry.BackoffFactor,
	}, log)
}

// ProvideCacheService builds the status cache. With Redis enabled it layers
// memory over Redis; otherwise it is memory only.
func ProvideCacheService(cfg *config.Config) (cache.Service, error) {
	memSize := cfg.Cache.MemoryMaxSize
	if memSize <= 0 {
		memSize = 1000
	}
	if !cfg.Cache.Redis.Enabled {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(memSize)), nil
	}

	host, portStr, err := net.SplitHostPort(cfg.Cache.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("parse redis addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("parse redis port: %w", err)
	}
	redisCache, err := cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
		cache.WithRedisPrefix("whaletrail"),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(redisCache, cache.WithLayeredMemorySize(memSize)), nil
}

// ProvideExecutor assembles the order executor.
func ProvideExecutor(
	cfg *config.Config,
	log *logger.Logger,
	chain repository.ChainClient,
	signer executor.Signer,
	retry *executor.RetryHandler,
	venues []repository.VenueClient,
	avail cache.Service,
	rec repository.Metrics,
) *executor.Executor {
	opts := []executor.ExecutorOption{
		executor.WithAvailabilityCache(avail),
		executor.WithExecutorMetrics(rec),
	}
	if cfg.Executor.SlippageToleranceBps > 0 {
		opts = append(opts, executor.WithSlippageToleranceBps(cfg.Executor.SlippageToleranceBps))
	}
	return executor.NewExecutor(log, chain, signer, retry, venues, opts...)
}

// ProvideQueue creates the bounded in-process work queue for accepted
// signals.
func ProvideQueue(cfg *config.Config, log *logger.Logger) *queue.Queue {
	return queue.New(queue.Config{
		Workers:   cfg.Executor.Workers,
		QueueSize: cfg.Executor.QueueSize,
	}, log)
}

// ProvideNotifier creates the Kafka notifier when enabled. A nil notifier
// means signal and order notifications are skipped.
func ProvideNotifier(cfg *config.Config) (repository.Notifier, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	k := cfg.Kafka
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(k.Brokers),
		pkgkafka.WithCompression(k.Compression),
		pkgkafka.WithRequiredAcks(k.RequiredAcks),
		pkgkafka.WithBatchSize(k.Producer.BatchSize),
		pkgkafka.WithBatchBytes(k.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(k.Producer.Linger),
		pkgkafka.WithTimeouts(k.Producer.WriteTimeout, k.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(k.Producer.MaxAttempts),
		pkgkafka.WithAsync(k.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaNotifier(producer, k.SignalsTopic, k.OrdersTopic), nil
}

// ProvideClickHouseClient creates a ClickHouse client when the audit store
// is enabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	ch := cfg.ClickHouse
	client, err := pkgch.NewClient(
		pkgch.WithHost(ch.Host),
		pkgch.WithPort(ch.Port),
		pkgch.WithDatabase(ch.Database),
		pkgch.WithCredentials(ch.User, ch.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(ch.UseHTTP),
		pkgch.WithAsyncInsert(ch.AsyncInsert, ch.WaitForAsync),
		pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout, ch.WriteTimeout),
		pkgch.WithMaxExecutionTime(ch.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideMovementStore creates the audit sink over ClickHouse, ensuring the
// schema exists. A nil client yields a nil store and the pipeline skips
// auditing.
func ProvideMovementStore(chClient *pkgch.Client, log *logger.Logger) (repository.MovementStore, error) {
	if chClient == nil {
		return nil, nil
	}
	store := internalrepo.NewCHMovementStore(chClient, log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("movement schema: %w", err)
	}
	return store, nil
}

// ProvidePipeline assembles the detection pipeline.
func ProvidePipeline(
	cfg *config.Config,
	log *logger.Logger,
	monitor *ingest.Monitor,
	classifier *dex.Classifier,
	events *evcache.EventCache,
	engine *strategy.Engine,
	history *strategy.History,
	volumes *strategy.VolumeTracker,
	chain repository.ChainClient,
	prices repository.PriceSource,
	q *queue.Queue,
	notifier repository.Notifier,
	store repository.MovementStore,
	rec repository.Metrics,
) *usecase.Pipeline {
	pcfg := usecase.PipelineConfig{
		TrackedAddresses:   cfg.Whale.TrackedAddresses,
		MinimumBalance:     cfg.Whale.MinimumBalance,
		MinimumTransaction: cfg.Whale.MinimumTransaction,
		BufferSize:         cfg.Executor.QueueSize,
	}
	opts := []usecase.PipelineOption{usecase.WithPipelineMetrics(rec)}
	if notifier != nil {
		opts = append(opts, usecase.WithNotifier(notifier))
	}
	if store != nil {
		opts = append(opts, usecase.WithMovementStore(store))
	}
	return usecase.NewPipeline(log, pcfg, monitor, classifier, events, engine, history, volumes, chain, prices, q, opts...)
}

// ProvideExecuteSignalJob creates the queue job that drives order execution.
func ProvideExecuteSignalJob(log *logger.Logger, exec *executor.Executor, engine *strategy.Engine, notifier repository.Notifier) *usecase.ExecuteSignalJob {
	return usecase.NewExecuteSignalJob(log, exec, engine, notifier)
}

// ProvideHTTPHandler creates the REST read surface.
func ProvideHTTPHandler(log *logger.Logger, engine *strategy.Engine, history *strategy.History, volumes *strategy.VolumeTracker, exec *executor.Executor) xhttp.Handler {
	return api.NewTradesEchoHandler(log, engine, history, volumes, exec)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	pipeline *usecase.Pipeline,
	execJob *usecase.ExecuteSignalJob,
	q *queue.Queue,
	handler xhttp.Handler,
	notifier repository.Notifier,
	chClient *pkgch.Client,
) *server.App {
	return server.New(cfg, log, pipeline, execJob, q, handler, notifier, chClient)
}
