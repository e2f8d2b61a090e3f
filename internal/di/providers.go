package di

import (
	"fmt"

	"CargoCast/internal/domain/repository"
	"CargoCast/internal/handler/api"
	internalrepo "CargoCast/internal/repository"
	icache "CargoCast/internal/service/cache"
	svcmetrics "CargoCast/internal/service/metrics"
	"CargoCast/internal/usecase"
	pkgch "CargoCast/pkg/clickhouse"
	"CargoCast/pkg/config"
	xhttp "CargoCast/pkg/http"
	pkgkafka "CargoCast/pkg/kafka"
	applogger "CargoCast/pkg/logger"
	"CargoCast/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := "info"
	format := "json"
	if cfg.Environment == "development" {
		level = "debug"
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: "stdout"})
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return svcmetrics.NewRecorder()
}

// DataBackend bundles the configured series source. Exactly one of CSV or CH
// is non-nil, matching cfg.Data.Backend.
type DataBackend struct {
	Store repository.SeriesStore
	CSV   *internalrepo.CSVSeriesStore
	CH    *pkgch.Client
}

// ProvideDataBackend creates the series store for the configured backend.
func ProvideDataBackend(cfg *config.Config, l *applogger.Logger) (*DataBackend, error) {
	switch cfg.Data.Backend {
	case "csv":
		store := internalrepo.NewCSVSeriesStore(cfg.Data.Dir, l)
		return &DataBackend{Store: store, CSV: store}, nil
	case "clickhouse":
		client, err := pkgch.NewClient(
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
			pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}
		store := internalrepo.NewCHSeriesStore(client, cfg.Data.ClickHouseTable)
		store.SetLogger(l)
		return &DataBackend{Store: store, CH: client}, nil
	default:
		return nil, fmt.Errorf("unsupported data backend %q", cfg.Data.Backend)
	}
}

// ProvideModelStore creates the cached filesystem model store.
func ProvideModelStore(cfg *config.Config, l *applogger.Logger) repository.ModelStore {
	fs := internalrepo.NewFSModelStore(cfg.Models.Dir)
	fs.SetLogger(l)
	return internalrepo.NewModelCache(fs)
}

// ProvideForecaster creates the recursive quantile forecaster.
func ProvideForecaster(store repository.ModelStore, l *applogger.Logger, m repository.Metrics) *usecase.Forecaster {
	f := usecase.NewForecaster(store)
	f.SetLogger(l)
	f.SetMetrics(m)
	return f
}

// ProvideBacktestEngine creates the walk-forward backtest engine.
func ProvideBacktestEngine(f *usecase.Forecaster, l *applogger.Logger, m repository.Metrics) *usecase.BacktestEngine {
	e := usecase.NewBacktestEngine(f)
	e.SetLogger(l)
	e.SetMetrics(m)
	return e
}

// ProvideForecastService creates the request-facing forecast service.
func ProvideForecastService(
	backend *DataBackend,
	f *usecase.Forecaster,
	e *usecase.BacktestEngine,
	l *applogger.Logger,
	m repository.Metrics,
) *usecase.ForecastService {
	svc := usecase.NewForecastService(backend.Store, f, e)
	svc.SetLogger(l)
	svc.SetMetrics(m)
	if backend.CSV != nil {
		svc.SetReloader(backend.CSV)
	}
	return svc
}

// ProvideRunStore opens the SQLite run store.
func ProvideRunStore(cfg *config.Config, l *applogger.Logger) (repository.RunStore, error) {
	path := cfg.Runs.DBPath
	if path == "" {
		path = "runs.db"
	}
	return internalrepo.NewSQLiteRunStore(path, l)
}

// ProvideRunEvents creates the Kafka run event publisher, or a no-op when no
// broker is configured.
func ProvideRunEvents(cfg *config.Config, l *applogger.Logger) (repository.RunEventPublisher, error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NopRunEvents{}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.BatchTimeout),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	topic := cfg.Kafka.Topic
	if topic == "" {
		topic = "cargocast.runs"
	}
	return internalrepo.NewKafkaRunEvents(producer, topic, l), nil
}

// ProvideRunService creates the run bookkeeping service.
func ProvideRunService(
	store repository.RunStore,
	svc *usecase.ForecastService,
	events repository.RunEventPublisher,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.RunService {
	defaults := usecase.RunDefaults{
		FlowKey:     cfg.Runs.DefaultFlow,
		HorizonDays: cfg.Runs.DefaultHorizonDays,
		HistoryDays: cfg.Runs.DefaultHistoryDays,
	}
	if defaults.FlowKey == "" {
		defaults.FlowKey = "export"
	}
	if defaults.HorizonDays <= 0 {
		defaults.HorizonDays = 28
	}
	if defaults.HistoryDays <= 0 {
		defaults.HistoryDays = 365
	}
	rs := usecase.NewRunService(store, svc, events, defaults)
	rs.SetLogger(l)
	return rs
}

// ProvideBytesCache creates the response cache: Redis when configured, an
// in-process TTL cache otherwise.
func ProvideBytesCache(cfg *config.Config) icache.BytesCache {
	if cfg.Cache.Redis.Enabled {
		return icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
	}
	return icache.NewTTLCache()
}

// ProvideHandlers creates the HTTP route groups.
func ProvideHandlers(
	cfg *config.Config,
	l *applogger.Logger,
	svc *usecase.ForecastService,
	runs *usecase.RunService,
	c icache.BytesCache,
) []xhttp.Handler {
	return []xhttp.Handler{
		api.NewForecastHandler(l, svc, c, cfg.Version),
		api.NewRunsHandler(l, runs),
	}
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handlers []xhttp.Handler,
	backend *DataBackend,
	runStore repository.RunStore,
	events repository.RunEventPublisher,
) *server.App {
	return server.New(cfg, l, handlers, backend.CSV, runStore, events, backend.CH)
}
