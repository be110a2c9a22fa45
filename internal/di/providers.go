package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	domsvc "SignalForge/internal/domain/service"
	"SignalForge/internal/handler/api"
	mid "SignalForge/internal/middleware"
	internalrepo "SignalForge/internal/repository"
	"SignalForge/internal/service/marketfeed"
	svcmetrics "SignalForge/internal/service/metrics"
	"SignalForge/internal/service/paperwallet"
	"SignalForge/internal/service/personality"
	"SignalForge/internal/service/ratelimit"
	"SignalForge/internal/service/sentimentfeed"
	"SignalForge/internal/services/calibration"
	"SignalForge/internal/services/decision"
	"SignalForge/internal/services/gate"
	"SignalForge/internal/services/predictor"
	"SignalForge/internal/services/state"
	"SignalForge/internal/usecase"
	"SignalForge/pkg/cache"
	pkgch "SignalForge/pkg/clickhouse"
	"SignalForge/pkg/config"
	xhttp "SignalForge/pkg/http"
	pkgkafka "SignalForge/pkg/kafka"
	applogger "SignalForge/pkg/logger"
	"SignalForge/pkg/metrics"
	"SignalForge/pkg/queue"
	"SignalForge/pkg/server"
)

const (
	initTimeout     = 10 * time.Second
	patternCacheTTL = 30 * time.Second
)

func initContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), initTimeout)
}

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates the Prometheus recorder and registers the
// upstream API collectors.
func ProvideMetrics() *metrics.Recorder {
	svcmetrics.Register()
	return metrics.New()
}

// ProvideRedisCache connects to Redis. It returns nil when Redis is disabled.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, 2, 5*time.Second),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}

// ProvideCache puts process memory in front of Redis when Redis is
// available, memory only otherwise.
func ProvideCache(rc *cache.RedisCache) cache.Service {
	if rc == nil {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(5000))
	}
	return cache.NewLayeredCache(rc,
		cache.WithLayeredMemorySize(1000),
		cache.WithLayeredMemoryTTL(time.Minute))
}

// ProvideDocumentStore selects the persistence backend for strategy,
// patterns, calibration logs, the model and the wallet.
func ProvideDocumentStore(cfg *config.Config, rc *cache.RedisCache) (domrepo.DocumentStore, error) {
	switch cfg.Storage.Backend {
	case "redis":
		if rc == nil {
			return nil, errors.New("storage backend redis requires redis")
		}
		return internalrepo.NewRedisStore(rc.Client(), cfg.Redis.Prefix+"docs:"), nil
	case "sqlite":
		s, err := internalrepo.NewGormStore(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		s, err := internalrepo.NewFileStore(cfg.Storage.Dir)
		if err != nil {
			return nil, fmt.Errorf("file store: %w", err)
		}
		return s, nil
	}
}

// ProvideClickHouseClient creates a ClickHouse client. It returns nil when
// the archive is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvidePatternArchive creates the ClickHouse pattern archive and its
// schema. A nil client yields a nil archive.
func ProvidePatternArchive(client *pkgch.Client, logger *applogger.Logger) (domrepo.PatternArchive, error) {
	if client == nil {
		return nil, nil
	}
	archive := internalrepo.NewCHPatternArchive(client)
	archive.SetLogger(logger.With("pattern_archive"))

	ctx, cancel := initContext()
	defer cancel()
	if err := archive.Init(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return archive, nil
}

// ProvideArchiveQueue returns a Redis queue that drains pattern records into
// the archive, or nil when either side is missing.
func ProvideArchiveQueue(cfg *config.Config, rc *cache.RedisCache, archive domrepo.PatternArchive, logger *applogger.Logger) *queue.RedisQueue {
	if rc == nil || archive == nil || !cfg.ClickHouse.WriteQueue {
		return nil
	}
	q := queue.NewRedisQueue(logger.With("archive_queue"), &queue.QueueConfig{
		Workers:    cfg.ClickHouse.QueueWorkers,
		RetryLimit: cfg.ClickHouse.QueueRetries,
		RetryDelay: 30 * time.Second,
	}, rc.Client(), queue.WithKeyPrefix(cfg.Redis.Prefix+"queue:archive"))
	q.RegisterJob(internalrepo.NewArchiveJob(archive))
	return q
}

// ProvideKafkaProducer creates a Kafka producer. It returns nil when Kafka
// is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchTimeout),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideSignalPublisher publishes to Kafka when a producer exists and to
// the log otherwise.
func ProvideSignalPublisher(cfg *config.Config, producer *pkgkafka.Producer, logger *applogger.Logger) domrepo.SignalPublisher {
	if producer == nil {
		return internalrepo.NewLogSignalPublisher(logger.With("signals"))
	}
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.SignalsTopic)
}

func ProvideSignalDispatcher(cfg *config.Config, pub domrepo.SignalPublisher, m *metrics.Recorder, logger *applogger.Logger) *mid.SignalDispatcher {
	backend := "log"
	if cfg.Kafka.Enabled {
		backend = "kafka"
	}
	return mid.NewSignalDispatcher(pub, m,
		mid.WithBackendName(backend),
		mid.WithDispatchLogger(logger.With("dispatcher")))
}

// ProvidePersonalityWatcher returns nil when no profile file is configured.
func ProvidePersonalityWatcher(cfg *config.Config, logger *applogger.Logger) (*personality.Watcher, error) {
	if cfg.Personality.File == "" {
		return nil, nil
	}
	w, err := personality.NewWatcher(cfg.Personality.File, seedProfile(cfg), logger.With("personality"))
	if err != nil {
		return nil, fmt.Errorf("personality: %w", err)
	}
	return w, nil
}

func ProvidePersonalitySource(cfg *config.Config, w *personality.Watcher) domsvc.PersonalitySource {
	if w == nil {
		return personality.Static(seedProfile(cfg))
	}
	return w
}

func seedProfile(cfg *config.Config) models.PersonalityProfile {
	return models.PersonalityProfile{
		ConfidenceTone: cfg.Personality.ConfidenceTone,
		RiskProfile:    cfg.Personality.RiskProfile,
		ResponseStyle:  cfg.Personality.ResponseStyle,
	}
}

func ProvideStrategyStore(cfg *config.Config, docs domrepo.DocumentStore, src domsvc.PersonalitySource, m *metrics.Recorder, logger *applogger.Logger) *state.Store {
	ctx, cancel := initContext()
	defer cancel()
	return state.NewStore(ctx, docs, src.Profile(), logger.With("strategy"),
		state.WithHistoryCap(cfg.Storage.HistoryCap),
		state.WithMetrics(m),
	)
}

func ProvidePatternMemory(cfg *config.Config, docs domrepo.DocumentStore, archive domrepo.PatternArchive, q *queue.RedisQueue, logger *applogger.Logger) *state.PatternMemory {
	ctx, cancel := initContext()
	defer cancel()
	mem := state.NewPatternMemory(ctx, docs, cfg.Storage.PatternCap, logger.With("patterns"))
	switch {
	case archive == nil:
	case q != nil:
		mem.SetArchive(internalrepo.NewQueuedPatternArchive(archive, q))
	default:
		mem.SetArchive(archive)
	}
	return mem
}

func ProvideCooldown(c cache.Service) domrepo.Cooldown {
	return internalrepo.NewCacheCooldown(c)
}

func ProvideGate(cfg *config.Config, m *metrics.Recorder, logger *applogger.Logger) *gate.Gate {
	return gate.New(cfg.Trading.MinVolume, gate.WithMetrics(m), gate.WithLogger(logger.With("gate")))
}

// ProvidePredictor loads the persisted logistic model or connects to the
// remote model service. A missing logistic model leaves predictions
// unavailable until the first successful training run.
func ProvidePredictor(cfg *config.Config, docs domrepo.DocumentStore, m *metrics.Recorder, logger *applogger.Logger) *predictor.Predictor {
	l := logger.With("predictor")
	if cfg.Model.Mode == "remote" {
		remote := predictor.NewRemoteModel(cfg.Model.ServiceURL, cfg.Model.Timeout)
		return predictor.New(cfg.Model.ConfidenceThreshold, remote, l, m)
	}

	ctx, cancel := initContext()
	defer cancel()
	lm, err := predictor.LoadLogistic(ctx, docs)
	if err != nil {
		l.Warn("no usable model, predictions unavailable until trained", applogger.Error(err))
		return predictor.New(cfg.Model.ConfidenceThreshold, nil, l, m)
	}
	return predictor.New(cfg.Model.ConfidenceThreshold, lm, l, m)
}

func ProvideEngine(cfg *config.Config, store *state.Store, src domsvc.PersonalitySource, cooldown domrepo.Cooldown, m *metrics.Recorder, logger *applogger.Logger) *decision.Engine {
	return decision.NewEngine(decision.Config{
		Cooldown:          cfg.Trading.Cooldown,
		MinConfidence:     cfg.Trading.MinConfidence,
		MinTradeAmount:    cfg.Trading.MinTradeAmount,
		MaxTradeAmount:    cfg.Trading.MaxTradeAmount,
		MinCashFloor:      cfg.Trading.MinCashFloor,
		MinHoldingValue:   cfg.Trading.MinHoldingValue,
		OverrideMinAmount: cfg.Trading.OverrideMinAmount,
		OverrideMaxAmount: cfg.Trading.OverrideMaxAmount,
	}, store, src, cooldown,
		decision.WithMetrics(m),
		decision.WithLogger(logger.With("decision")),
	)
}

func ProvideWallet(cfg *config.Config, docs domrepo.DocumentStore, logger *applogger.Logger) *paperwallet.Wallet {
	ctx, cancel := initContext()
	defer cancel()
	return paperwallet.New(ctx, docs, cfg.Wallet.InitialUSD, logger.With("wallet"))
}

// ProvideSnapshotCache returns nil unless snapshots arrive over Kafka.
func ProvideSnapshotCache(cfg *config.Config) *marketfeed.SnapshotCache {
	if cfg.Market.Source != "kafka" {
		return nil
	}
	return marketfeed.NewSnapshotCache(cfg.Market.MaxSnapshotAge)
}

func ProvideMarketData(cfg *config.Config, snapshots *marketfeed.SnapshotCache, logger *applogger.Logger) domsvc.MarketData {
	if snapshots != nil {
		return snapshots
	}
	limiter := ratelimit.New(cfg.Market.RequestsPerSecond, cfg.Market.Burst)
	return marketfeed.New(cfg.Market, limiter, logger.With("market"))
}

// ProvideKafkaConsumer feeds the snapshot cache. It returns nil unless the
// market source is Kafka.
func ProvideKafkaConsumer(cfg *config.Config, snapshots *marketfeed.SnapshotCache, m *metrics.Recorder, logger *applogger.Logger) (*pkgkafka.Consumer, error) {
	if snapshots == nil {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.SetLogger(logger.With("kafka_consumer"))
	consumer.SetHook(pkgkafka.HookFuncs{
		Dead: func(_ context.Context, topic string, km kafkago.Message, err error) {
			m.RecordError("snapshot_dead_letter")
			logger.Warn("snapshot dead-lettered",
				applogger.String("topic", topic),
				applogger.String("key", string(km.Key)),
				applogger.Int64("offset", km.Offset),
				applogger.Error(err))
		},
	})
	consumer.RegisterHandler(usecase.NewKafkaSnapshotHandler(cfg.Kafka.SnapshotsTopic, snapshots, m))
	return consumer, nil
}

func ProvideSentiment(cfg *config.Config, c cache.Service, logger *applogger.Logger) domsvc.Sentiment {
	if !cfg.Sentiment.Enabled {
		return sentimentfeed.Neutral{}
	}
	return sentimentfeed.New(cfg.Sentiment, c, nil, logger.With("sentiment"))
}

func ProvideAssetWorker(
	cfg *config.Config,
	market domsvc.MarketData,
	sentiment domsvc.Sentiment,
	g *gate.Gate,
	p *predictor.Predictor,
	engine *decision.Engine,
	wallet *paperwallet.Wallet,
	patterns *state.PatternMemory,
	dispatcher *mid.SignalDispatcher,
	m *metrics.Recorder,
	logger *applogger.Logger,
) *usecase.AssetWorker {
	return usecase.NewAssetWorker(cfg.Trading.Symbols, market, sentiment, g, p, engine, wallet, patterns,
		usecase.WithDelay(cfg.Trading.WorkerMinDelay, cfg.Trading.WorkerMaxDelay),
		usecase.WithSignalSink(dispatcher),
		usecase.WithWorkerMetrics(m),
		usecase.WithWorkerLogger(logger.With("worker")),
	)
}

func ProvideCalibrator(
	cfg *config.Config,
	store *state.Store,
	patterns *state.PatternMemory,
	engine *decision.Engine,
	docs domrepo.DocumentStore,
	m *metrics.Recorder,
	logger *applogger.Logger,
) *calibration.Calibrator {
	c := cfg.Calibration
	return calibration.New(calibration.Config{
		AccuracyThreshold:   c.AccuracyThreshold,
		StableAccuracy:      c.StableAccuracy,
		MutationStep:        c.MutationStep,
		MismatchSample:      c.MismatchSample,
		ReplayCash:          c.ReplayCash,
		ConfidenceThreshold: cfg.Model.ConfidenceThreshold,
		CloneCount:          c.CloneCount,
		CloneJitter:         c.CloneJitter,
		CloneTrials:         c.CloneTrials,
		CloneFee:            c.CloneFee,
		CloneNoise:          c.CloneNoise,
		ReplayCap:           cfg.Storage.ReplayCap,
		MutationCap:         cfg.Storage.MutationCap,
		CloneCap:            cfg.Storage.CloneCap,
	}, store, patterns, engine, docs,
		calibration.WithMetrics(m),
		calibration.WithLogger(logger.With("calibration")),
	)
}

// ProvideTrainer returns nil for the remote model, which is trained
// elsewhere.
func ProvideTrainer(cfg *config.Config, patterns *state.PatternMemory, docs domrepo.DocumentStore, p *predictor.Predictor, logger *applogger.Logger) *predictor.Trainer {
	if cfg.Model.Mode == "remote" {
		return nil
	}
	return predictor.NewTrainer(predictor.TrainerConfig{
		MinRows:      cfg.Model.MinTrainingRows,
		MinAccuracy:  cfg.Model.MinAccuracy,
		Epochs:       cfg.Model.Epochs,
		LearningRate: cfg.Model.LearningRate,
	}, patterns, docs, p, logger.With("trainer"))
}

// ProvideCalibrationLoop returns nil when calibration is disabled.
func ProvideCalibrationLoop(cfg *config.Config, cal *calibration.Calibrator, trainer *predictor.Trainer, m *metrics.Recorder) *calibration.Loop {
	if !cfg.Calibration.Enabled {
		return nil
	}
	var t calibration.Trainer
	if trainer != nil {
		trainer.SetMetrics(m)
		t = calibration.TrainerFunc(trainer.Retrain)
	}
	return calibration.NewLoop(calibration.LoopConfig{
		ReplayInterval:   cfg.Calibration.ReplayInterval,
		MutationInterval: cfg.Calibration.MutationInterval,
		CloneInterval:    cfg.Calibration.CloneInterval,
		TrainInterval:    cfg.Calibration.TrainInterval,
		ApplyBestClone:   cfg.Calibration.ApplyBestClone,
	}, cal, t)
}

func ProvideHandler(
	store *state.Store,
	cal *calibration.Calibrator,
	g *gate.Gate,
	p *predictor.Predictor,
	engine *decision.Engine,
	patterns *state.PatternMemory,
	archive domrepo.PatternArchive,
	wallet *paperwallet.Wallet,
	c cache.Service,
	logger *applogger.Logger,
) *api.Handler {
	return api.NewHandler(logger.With("api"), store, cal,
		usecase.NewEvaluateUseCase(g, p, store, engine),
		usecase.NewPatternsUseCase(patterns, archive),
		usecase.NewOverviewUseCase(store, cal, patterns, wallet, archive),
		api.WithWallet(wallet),
		api.WithResponseCache(c, patternCacheTTL),
	)
}

func ProvideHTTPServer(cfg *config.Config, h *api.Handler, logger *applogger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(true, cfg.Server.CORSOrigins...),
		xhttp.WithLogger(logger.With("http")),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(cfg.Metrics.Path))
	} else {
		opts = append(opts, xhttp.WithMetricsPath(""))
	}
	if cfg.Server.RateLimit > 0 {
		opts = append(opts, xhttp.WithRateLimit(ratelimit.New(cfg.Server.RateLimit, cfg.Server.RateBurst)))
	}
	return xhttp.NewServer(h, opts...)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// ProvideApp registers every long-running component and every client that
// needs closing.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	store *state.Store,
	worker *usecase.AssetWorker,
	dispatcher *mid.SignalDispatcher,
	loop *calibration.Loop,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	watcher *personality.Watcher,
	archiveQueue *queue.RedisQueue,
	producer *pkgkafka.Producer,
	rc *cache.RedisCache,
	chClient *pkgch.Client,
	docs domrepo.DocumentStore,
) *server.App {
	app := server.New(logger.With("app"))

	if producer != nil {
		logger.AddCollector(&applogger.CollectionConfig{
			TimeInterval: 30 * time.Second,
			Topic:        cfg.Kafka.LogsTopic,
			Publisher:    producer,
		})
		app.OnClose("kafka_producer", producer)
		app.OnClose("log_collector", closerFunc(func() error {
			logger.RemoveCollector()
			return nil
		}))
	}
	if rc != nil {
		app.OnClose("redis", rc)
	}
	if chClient != nil {
		app.OnClose("clickhouse", chClient)
	}
	app.OnClose("document_store", docs)

	app.Add("strategy_store", store).
		Add("signal_dispatcher", dispatcher).
		Add("asset_worker", worker).
		Add("http_server", srv)
	if loop != nil {
		app.Add("calibration", loop)
	}
	if consumer != nil {
		app.Add("kafka_consumer", consumer)
	}
	if archiveQueue != nil {
		app.Add("archive_queue", archiveQueue)
	}
	if watcher != nil {
		app.Add("personality_watcher", server.ComponentFunc(func(ctx context.Context) error {
			watcher.Watch()
			<-ctx.Done()
			return nil
		}))
	}
	return app
}
