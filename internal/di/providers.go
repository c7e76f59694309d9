package di

import (
	"context"
	"fmt"
	"time"

	"volatiq/internal/domain/repository"
	svc "volatiq/internal/domain/service"
	"volatiq/internal/handler/api"
	mid "volatiq/internal/middleware"
	internalrepo "volatiq/internal/repository"
	icache "volatiq/internal/service/cache"
	"volatiq/internal/service/marketdata"
	"volatiq/internal/services/explain"
	"volatiq/internal/services/model"
	"volatiq/internal/usecase"
	pkgch "volatiq/pkg/clickhouse"
	"volatiq/pkg/config"
	xhttp "volatiq/pkg/http"
	pkgkafka "volatiq/pkg/kafka"
	applogger "volatiq/pkg/logger"
	"volatiq/pkg/metrics"
	"volatiq/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideScaler loads the persisted scaler artifact. Both backends need
// it: the remote predictor receives already-scaled rows. A load failure is
// logged but not fatal: the service starts degraded and reports
// unavailable until restarted with valid artifacts.
func ProvideScaler(cfg *config.Config, log *applogger.Logger) svc.Scaler {
	s, err := model.LoadScaler(cfg.Model.ScalerPath)
	if err != nil {
		log.Error("scaler load failed", applogger.String("path", cfg.Model.ScalerPath), applogger.Error(err))
		return nil
	}
	log.Info("scaler loaded", applogger.String("path", cfg.Model.ScalerPath))
	return s
}

// ProvidePredictor loads the local network or builds a remote client,
// depending on the configured backend. Returns nil on load failure.
func ProvidePredictor(cfg *config.Config, log *applogger.Logger) svc.Predictor {
	if cfg.Model.Backend == "remote" {
		log.Info("using remote predictor", applogger.String("url", cfg.Model.RemoteURL))
		return model.NewRemotePredictor(cfg.Model.RemoteURL, cfg.Model.RemoteTimeout)
	}
	n, err := model.LoadNetwork(cfg.Model.ModelPath)
	if err != nil {
		log.Error("model load failed", applogger.String("path", cfg.Model.ModelPath), applogger.Error(err))
		return nil
	}
	log.Info("model loaded",
		applogger.String("path", cfg.Model.ModelPath),
		applogger.String("version", n.Version),
	)
	return n
}

// ProvideExplainerFactory builds per-request kernel explainers around the
// shared predictor. Requests that leave the sample budget unset fall back
// to the configured default.
func ProvideExplainerFactory(predictor svc.Predictor, cfg *config.Config) usecase.ExplainerFactory {
	if predictor == nil {
		return nil
	}
	return func(samples int) svc.Explainer {
		if samples <= 0 {
			samples = cfg.Model.ExplainSamples
		}
		return explain.NewKernelExplainer(predictor, explain.WithSamples(samples))
	}
}

// ProvideExplainCache selects Redis when configured, otherwise an
// in-process TTL cache.
func ProvideExplainCache(cfg *config.Config, log *applogger.Logger) icache.BytesCache {
	if cfg.Cache.Redis.Enabled {
		log.Info("explain cache: redis", applogger.String("addr", cfg.Cache.Redis.Addr))
		return icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
	}
	return icache.NewTTLCache()
}

// ProvidePredictionService creates the serving core use case.
func ProvidePredictionService(
	log *applogger.Logger,
	scaler svc.Scaler,
	predictor svc.Predictor,
	factory usecase.ExplainerFactory,
	m repository.Metrics,
	cache icache.BytesCache,
	cfg *config.Config,
) *usecase.PredictionService {
	return usecase.NewPredictionService(log, scaler, predictor, factory, m, cache, usecase.PredictionConfig{
		MaxPredictRows: cfg.Model.MaxPredictRows,
		MaxExplainRows: cfg.Model.MaxExplainRows,
		Horizon:        cfg.Model.Horizon,
		CacheTTL:       cfg.Model.ExplainTTL,
	})
}

// ProvideHealthMonitor creates the probe-based health monitor.
func ProvideHealthMonitor(scaler svc.Scaler, predictor svc.Predictor) *usecase.HealthMonitor {
	return usecase.NewHealthMonitor(scaler, predictor)
}

// ProvideHTTPHandler creates the Echo API handler.
func ProvideHTTPHandler(
	log *applogger.Logger,
	ps *usecase.PredictionService,
	hm *usecase.HealthMonitor,
	cfg *config.Config,
) xhttp.Handler {
	return api.NewPredictHandler(log, ps, hm, api.RateLimits{
		Enabled:       cfg.RateLimit.Enabled,
		PredictPerSec: cfg.RateLimit.PredictPerSec,
		ExplainPerSec: cfg.RateLimit.ExplainPerSec,
		Burst:         cfg.RateLimit.Burst,
	})
}

// ProvideClickHouseClient creates a ClickHouse client and prepares the
// daily bar schema. Returns nil when ingest is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.Ingest.Enabled {
		return nil, nil
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
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
		"CREATE TABLE IF NOT EXISTS " + cfg.ClickHouse.Database + ".daily_bars (symbol String, d Date, open Float64, high Float64, low Float64, close Float64, volume Float64) ENGINE=ReplacingMergeTree ORDER BY (symbol, d)",
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer for the bar stream.
// Returns nil unless the kafka ingest backend is selected.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Ingest.Enabled || cfg.Ingest.Backend != "kafka" {
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

// ProvideKafkaConsumer creates a Kafka consumer for the bar topic.
// Returns nil unless the kafka ingest backend is selected.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Ingest.Enabled || cfg.Ingest.Backend != "kafka" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideBarStore creates the ClickHouse bar repository.
func ProvideBarStore(chClient *pkgch.Client, cfg *config.Config) repository.BarStore {
	if chClient == nil {
		return nil
	}
	return internalrepo.NewClickHouseBarStore(chClient.DB(), cfg.ClickHouse.Database+".daily_bars")
}

// ProvideBarPublisher creates the Kafka bar publisher.
func ProvideBarPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaBarPublisher(producer, cfg.Kafka.Topic)
}

// ProvideKafkaBarsHandler registers the consumer handler for the bar topic.
func ProvideKafkaBarsHandler(store repository.BarStore, m repository.Metrics, cfg *config.Config) pkgkafka.MessageHandler {
	if !cfg.Ingest.Enabled || cfg.Ingest.Backend != "kafka" || store == nil {
		return nil
	}
	return usecase.NewKafkaBarsHandler(cfg.Kafka.Topic, store, m)
}

// ProvideBarStream creates the market data WebSocket stream.
func ProvideBarStream(cfg *config.Config) repository.BarStream {
	if !cfg.Ingest.Enabled {
		return nil
	}
	return marketdata.New(
		cfg.Ingest.APIKey,
		cfg.Ingest.WebSocketURL,
		cfg.Ingest.Symbols,
		cfg.Ingest.ReconnectDelay,
		cfg.Ingest.PingInterval,
	)
}

// ProvideBarProcessor creates the bar processor use case.
func ProvideBarProcessor(
	pub repository.Publisher,
	store repository.BarStore,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.BarProcessor {
	if !cfg.Ingest.Enabled {
		return nil
	}
	return usecase.NewBarProcessor(pub, store, m, cfg.Ingest.Backend)
}

// ProvideBarCollector creates the bar collector with its throttling and
// buffering pipeline between the WebSocket and the backend.
func ProvideBarCollector(
	stream repository.BarStream,
	proc *usecase.BarProcessor,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.BarCollector {
	if stream == nil || proc == nil {
		return nil
	}
	pipe := mid.NewIngestPipeline(proc, m,
		mid.WithMaxRPS(cfg.Ingest.MaxRPS),
		mid.WithBufferSize(cfg.Ingest.BufferSize),
	)
	return usecase.NewBarCollector(stream, proc, m, pipe)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	m repository.Metrics,
	handler xhttp.Handler,
	collector *usecase.BarCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.LatencyHook{
			Observe: func(topic string, seconds float64) {
				m.RecordLatency("kafka_handle", seconds)
			},
		})
	}
	return server.New(cfg, log, handler, collector, consumer, kh, chClient)
}
