package di

import (
	"context"
	"fmt"
	"time"

	"FinLoad/internal/domain/repository"
	"FinLoad/internal/handler/api"
	internalrepo "FinLoad/internal/repository"
	"FinLoad/internal/service/twelvedata"
	"FinLoad/internal/usecase"
	"FinLoad/pkg/cache"
	pkgch "FinLoad/pkg/clickhouse"
	"FinLoad/pkg/config"
	xhttp "FinLoad/pkg/http"
	pkgkafka "FinLoad/pkg/kafka"
	"FinLoad/pkg/logger"
	"FinLoad/pkg/metrics"
	pkgpg "FinLoad/pkg/postgres"
	"FinLoad/pkg/server"
)

const storeCheckTimeout = 10 * time.Second

// ProvideLogger builds the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
		File: logger.FileConfig{
			Path:       cfg.Log.File,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			MaxBackups: cfg.Log.MaxBackups,
		},
	})
}

// ProvideRecorder creates a Prometheus metrics recorder.
func ProvideRecorder() *metrics.Recorder {
	return metrics.New()
}

// ProvideMetrics exposes the recorder as the domain Metrics port.
func ProvideMetrics(r *metrics.Recorder) repository.Metrics {
	return r
}

// ProvideQuoteProvider creates the Twelve Data client.
func ProvideQuoteProvider(cfg *config.Config) repository.QuoteProvider {
	p := cfg.Provider
	return twelvedata.New(p.APIKey,
		twelvedata.WithBaseURL(p.BaseURL),
		twelvedata.WithOutputSize(p.OutputSize),
		twelvedata.WithHTTPClient(xhttp.NewClient(xhttp.WithTimeout(p.Timeout))),
		twelvedata.WithRateLimit(p.RateLimit.PerMinute, p.RateLimit.Burst),
		twelvedata.WithRetry(p.Retry.MaxAttempts, p.Retry.BackoffMin, p.Retry.BackoffMax),
	)
}

// ProvidePriceStore opens the configured backend. The cleanup closes its pool.
func ProvidePriceStore(cfg *config.Config, log *logger.Logger) (repository.PriceStore, func(), error) {
	if err := internalrepo.ValidateTable(cfg.Store.Table); err != nil {
		return nil, nil, err
	}

	switch cfg.Store.Type {
	case "postgres":
		pg := cfg.Store.Postgres
		client, err := pkgpg.NewClient(
			pkgpg.WithHost(pg.Host),
			pkgpg.WithPort(pg.Port),
			pkgpg.WithDatabase(pg.Database),
			pkgpg.WithCredentials(pg.User, pg.Password),
			pkgpg.WithSSLMode(pg.SSLMode),
			pkgpg.WithMaxConnections(pg.MaxOpenConns, pg.MaxIdleConns),
			pkgpg.WithConnectTimeout(pg.ConnectTimeout),
			pkgpg.WithDebug(pg.Debug),
			pkgpg.WithLazyConnect(true),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres client: %w", err)
		}
		logReachability(log, "postgres", pg.Host, pg.Database, client.Health)
		cleanup := func() {
			if err := client.Close(); err != nil {
				log.Warn("postgres close error", logger.Error(err))
			}
		}
		return internalrepo.NewPostgresStore(client.DB(), cfg.Store.Table), cleanup, nil

	case "clickhouse":
		ch := cfg.Store.ClickHouse
		client, err := pkgch.NewClient(
			pkgch.WithHost(ch.Host),
			pkgch.WithPort(ch.Port),
			pkgch.WithDatabase(ch.Database),
			pkgch.WithCredentials(ch.User, ch.Password),
			pkgch.WithMaxConnections(10, 5),
			pkgch.WithHTTP(ch.UseHTTP),
			pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout),
			pkgch.WithMaxExecutionTime(ch.MaxExecutionTime),
			pkgch.WithLazyConnect(true),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse client: %w", err)
		}

		logReachability(log, "clickhouse", ch.Host, ch.Database, func(ctx context.Context) error {
			return client.InitSchema(ctx, []string{"CREATE DATABASE IF NOT EXISTS " + ch.Database})
		})
		cleanup := func() {
			if err := client.Close(); err != nil {
				log.Warn("clickhouse close error", logger.Error(err))
			}
		}
		return internalrepo.NewClickHouseStore(client.DB(), cfg.Store.Table), cleanup, nil

	default:
		log.Warn("using in-memory store, rows are not persisted")
		return internalrepo.NewMemoryStore(), func() {}, nil
	}
}

// logReachability checks a freshly opened store. An unreachable store is not
// fatal: each symbol of a run then fails at LOADING and the report says so.
func logReachability(log *logger.Logger, kind, host, database string, check func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeCheckTimeout)
	defer cancel()
	if err := check(ctx); err != nil {
		log.Warn(kind+" unreachable", logger.String("host", host), logger.String("database", database), logger.Error(err))
		return
	}
	log.Info(kind+" connected", logger.String("host", host), logger.String("database", database))
}

// ProvideCache returns Redis when enabled, otherwise a process-local cache.
// An unreachable Redis degrades to the local cache so a run still proceeds.
func ProvideCache(cfg *config.Config, log *logger.Logger) (cache.Service, func(), error) {
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisCache(
			cache.WithRedisAddr(cfg.Redis.Addr),
			cache.WithRedisPassword(cfg.Redis.Password),
			cache.WithRedisDB(cfg.Redis.DB),
			cache.WithRedisPrefix(cfg.Redis.Prefix),
		)
		if err == nil {
			return rc, func() { _ = rc.Close() }, nil
		}
		log.Warn("redis unreachable, using local cache and no cross-process run lock",
			logger.String("addr", cfg.Redis.Addr), logger.Error(err))
	}
	mc := cache.NewMemoryCache()
	return mc, func() { _ = mc.Close() }, nil
}

// ProvideRunLock guards against concurrent runs across processes; it needs Redis.
func ProvideRunLock(cfg *config.Config, c cache.Service) repository.RunLock {
	if _, ok := c.(*cache.RedisCache); !ok || !cfg.Redis.Enabled {
		return nil
	}
	return internalrepo.NewCacheRunLock(c, cfg.Ingest.LockTTL)
}

// ProvideReportPublisher creates the Kafka result sink when enabled.
func ProvideReportPublisher(cfg *config.Config, r *metrics.Recorder) (repository.ReportPublisher, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(1, 10*time.Millisecond),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithAutoCreateTopic(cfg.Kafka.AutoCreateTopic),
		pkgkafka.WithRegisterer(r.Registry()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	reporter := internalrepo.NewKafkaReporter(producer, cfg.Kafka.Topic)
	return reporter, func() { _ = reporter.Close() }, nil
}

// ProvideIngestion creates the ingestion use case.
func ProvideIngestion(
	provider repository.QuoteProvider,
	store repository.PriceStore,
	publisher repository.ReportPublisher,
	m repository.Metrics,
	lock repository.RunLock,
	log *logger.Logger,
) *usecase.Ingestion {
	return usecase.NewIngestion(provider, store, publisher, m, lock, log)
}

// ProvidePricesUseCase creates the read-side use case.
func ProvidePricesUseCase(store repository.PriceStore, c cache.Service, log *logger.Logger) *usecase.PricesUseCase {
	return usecase.NewPricesUseCase(store, c, log)
}

// ProvideHTTPHandler creates the Echo route set.
func ProvideHTTPHandler(log *logger.Logger, prices *usecase.PricesUseCase) xhttp.Handler {
	return api.NewPricesEchoHandler(log, prices)
}

// ProvideHTTPServer creates the API server (not started).
func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, r *metrics.Recorder, log *logger.Logger) *xhttp.Server {
	return xhttp.NewServer(h,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins),
		xhttp.WithLogger(log),
		xhttp.WithMetrics(r.Registry(), r.Handler()),
	)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	ingestion *usecase.Ingestion,
	prices *usecase.PricesUseCase,
	store repository.PriceStore,
	srv *xhttp.Server,
	r *metrics.Recorder,
) *server.App {
	return server.New(cfg, log, ingestion, prices, store, srv, r)
}
