package di

import (
	"context"
	"fmt"
	"time"

	"DemandCast/internal/domain/models"
	"DemandCast/internal/domain/repository"
	"DemandCast/internal/handler/api"
	internalrepo "DemandCast/internal/repository"
	"DemandCast/internal/usecase"
	"DemandCast/pkg/cache"
	pkgch "DemandCast/pkg/clickhouse"
	"DemandCast/pkg/config"
	xhttp "DemandCast/pkg/http"
	pkgkafka "DemandCast/pkg/kafka"
	"DemandCast/pkg/logger"
	"DemandCast/pkg/metrics"
	"DemandCast/pkg/queue"
	"DemandCast/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder, or a no-op one when
// metrics are disabled.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideRedisClient opens the shared Redis client. It is nil when Redis is
// disabled.
func ProvideRedisClient(cfg *config.Config, l *logger.Logger) (*redis.Client, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}
	client, err := cache.NewRedisClient(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, 2, 30*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis client: %w", err)
	}
	l.Info("redis connected", logger.String("addr", cfg.Redis.Addr))
	return client, func() {
		if err := client.Close(); err != nil {
			l.Warn("redis close error", logger.Error(err))
		}
	}, nil
}

// ProvideClickHouseClient creates a ClickHouse client when the audit trail
// writes to or drains into ClickHouse.
func ProvideClickHouseClient(cfg *config.Config, l *logger.Logger) (*pkgch.Client, func(), error) {
	if cfg.Audit.Backend != usecase.AuditClickHouse && !cfg.Audit.Consume {
		return nil, func() {}, nil
	}
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
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close error", logger.Error(err))
		}
	}, nil
}

// ProvideKafkaProducer creates a Kafka producer. It is nil without brokers.
func ProvideKafkaProducer(cfg *config.Config, l *logger.Logger) (*pkgkafka.Producer, func(), error) {
	if !cfg.KafkaEnabled() {
		return nil, func() {}, nil
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
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() {
		if err := producer.Close(); err != nil {
			l.Warn("kafka producer close error", logger.Error(err))
		}
	}, nil
}

// ProvideArtifactStore selects the model artifact backend.
func ProvideArtifactStore(cfg *config.Config, rc *redis.Client) (repository.ArtifactStore, error) {
	switch cfg.Model.Store {
	case "file":
		return internalrepo.NewFileArtifactStore(cfg.Model.Path), nil
	case "redis":
		if rc == nil {
			return nil, fmt.Errorf("model store redis: redis is disabled")
		}
		return internalrepo.NewRedisArtifactStore(rc, cfg.Model.RedisKey), nil
	case "sqlite":
		return internalrepo.NewSQLiteArtifactStore(cfg.Model.SQLitePath, cfg.Model.Name)
	default:
		return nil, fmt.Errorf("unknown model store: %s", cfg.Model.Store)
	}
}

// ProvideModelStore wraps the artifact backend with the artifact codec.
func ProvideModelStore(cfg *config.Config, backend repository.ArtifactStore, l *logger.Logger) (*internalrepo.ModelStore, func()) {
	store := internalrepo.NewModelStore(backend, cfg.Model.Store)
	return store, func() {
		if err := store.Close(); err != nil {
			l.Warn("model store close error", logger.Error(err))
		}
	}
}

// ProvideCache creates the statistics cache and training lock backend.
func ProvideCache(cfg *config.Config, rc *redis.Client) (cache.Service, func()) {
	if cfg.Cache.Backend == "redis" && rc != nil {
		return cache.NewRedisCache(rc, "demandcast:cache"), func() {}
	}
	mc := cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MaxSize))
	return mc, func() { _ = mc.Close() }
}

// ProvideHyperparams maps the config section onto the domain type.
func ProvideHyperparams(cfg *config.Config) models.Hyperparams {
	h := cfg.Model.Hyperparams
	return models.Hyperparams{
		NEstimators:     h.NEstimators,
		LearningRate:    h.LearningRate,
		MaxDepth:        h.MaxDepth,
		MinSamplesSplit: h.MinSamplesSplit,
		MinSamplesLeaf:  h.MinSamplesLeaf,
		Subsample:       h.Subsample,
		Seed:            h.Seed,
	}
}

// ProvideTrainer creates the training state machine.
func ProvideTrainer(store *internalrepo.ModelStore, params models.Hyperparams, l *logger.Logger, m repository.Metrics) (*usecase.Trainer, error) {
	return usecase.NewTrainer(store, params, l, m)
}

// ProvidePredictor creates the serving side.
func ProvidePredictor(l *logger.Logger, m repository.Metrics) *usecase.Predictor {
	return usecase.NewPredictor(l, m)
}

// ProvidePredictionStorage creates ClickHouse audit storage and ensures the
// table exists. It is nil when ClickHouse is not in use.
func ProvidePredictionStorage(cfg *config.Config, ch *pkgch.Client, l *logger.Logger) (repository.PredictionStorage, error) {
	if ch == nil {
		return nil, nil
	}
	storage := internalrepo.NewCHPredictionStorage(ch, cfg.ClickHouse.Database, cfg.ClickHouse.Table, l)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := storage.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return storage, nil
}

// ProvidePredictionPublisher creates the Kafka audit publisher.
func ProvidePredictionPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.PredictionPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPredictionPublisher(producer, cfg.Kafka.AuditTopic)
}

// ProvideEventPublisher creates the model lifecycle publisher.
func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.EventPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.EventsTopic)
}

// ProvidePredictionRecorder creates the audit trail router.
func ProvidePredictionRecorder(
	cfg *config.Config,
	pub repository.PredictionPublisher,
	store repository.PredictionStorage,
	m repository.Metrics,
	l *logger.Logger,
) (*usecase.PredictionRecorder, error) {
	return usecase.NewPredictionRecorder(
		pub,
		store,
		m,
		l,
		cfg.Audit.Backend,
		cfg.Audit.BatchSize,
		cfg.Audit.FlushInterval,
		cfg.Audit.BufferSize,
	)
}

// ProvideForecastService creates the service behind the HTTP API.
func ProvideForecastService(
	cfg *config.Config,
	trainer *usecase.Trainer,
	predictor *usecase.Predictor,
	store *internalrepo.ModelStore,
	recorder *usecase.PredictionRecorder,
	events repository.EventPublisher,
	c cache.Service,
	l *logger.Logger,
	m repository.Metrics,
) *usecase.ForecastService {
	return usecase.NewForecastService(
		usecase.ForecastConfig{
			DataPath: cfg.Dataset.Path,
			TestSize: cfg.Dataset.TestSize,
			StatsTTL: cfg.Cache.StatsTTL,
		},
		trainer, predictor, store, recorder, events, c, l, m,
	)
}

// ProvideQueue creates the Redis job queue. It is nil when disabled.
func ProvideQueue(cfg *config.Config, rc *redis.Client, l *logger.Logger) *queue.RedisQueue {
	if !cfg.Queue.Enabled || rc == nil {
		return nil
	}
	return queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, rc, queue.WithKeyPrefix(cfg.Queue.KeyPrefix))
}

// ProvideJobs lists the jobs the queue workers run.
func ProvideJobs(svc *usecase.ForecastService, l *logger.Logger) []queue.Job {
	return []queue.Job{usecase.NewRetrainJob(svc, l)}
}

// ProvideAuditConsumer creates the Kafka consumer for the audit sink. It is
// nil unless audit.consume is set.
func ProvideAuditConsumer(cfg *config.Config, l *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Audit.Consume {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideAuditLogHandler creates the Kafka to ClickHouse audit sink handler.
func ProvideAuditLogHandler(cfg *config.Config, storage repository.PredictionStorage, m repository.Metrics) pkgkafka.MessageHandler {
	if !cfg.Audit.Consume || storage == nil {
		return nil
	}
	return usecase.NewAuditLogHandler(cfg.Kafka.AuditTopic, storage, m)
}

// ProvideHTTPServer builds the echo server with every route.
func ProvideHTTPServer(cfg *config.Config, l *logger.Logger, svc *usecase.ForecastService, q *queue.RedisQueue) *xhttp.Server {
	var qs queue.QueueService
	if q != nil {
		qs = q
	}
	handlers := []xhttp.Handler{
		api.NewForecastEchoHandler(l, svc, qs),
		api.NewPredictStreamHandler(l, svc),
	}
	return xhttp.NewServer(l, handlers,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowRequest(cfg.Server.SlowRequest),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithMetrics(cfg.Metrics.Enabled),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	srv *xhttp.Server,
	svc *usecase.ForecastService,
	recorder *usecase.PredictionRecorder,
	q *queue.RedisQueue,
	jobs []queue.Job,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
) *server.App {
	return server.New(cfg, l, srv, svc, recorder, q, jobs, consumer, kh)
}
