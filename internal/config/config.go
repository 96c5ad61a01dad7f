package config

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"tprmgrc/internal/core/amendments"
	"tprmgrc/internal/core/approvals"
	"tprmgrc/internal/core/contracts"
	"tprmgrc/internal/core/idgen"
	"tprmgrc/internal/core/renewals"
	"tprmgrc/internal/core/vendors"
	"tprmgrc/internal/core/versiongraph"
	"tprmgrc/internal/events"
	"tprmgrc/internal/repositories/elsearch"
	"tprmgrc/internal/repositories/mongo"
	"tprmgrc/internal/repositories/redis"
	"tprmgrc/internal/repositories/sqlserver"
	"tprmgrc/internal/sideeffects"
	"tprmgrc/pkg/logger"

	"github.com/google/uuid"
)

// App holds every client and engine of the service
type App struct {
	Logger    *logger.FileLogger
	SqlServer *sqlserver.Internal
	Redis     *redis.RedisInternal
	ES        *elsearch.Client
	Mongo     *mongo.MongoInternal

	Bus        *events.Bus
	IdGen      *idgen.Generator
	Contracts  *contracts.Engine
	Amendments *amendments.Engine
	Renewals   *renewals.Engine
	Approvals  *approvals.Engine
	Vendors    *vendors.Engine
	Handlers   []string

	RequestTimeout time.Duration
	StartedAt      time.Time
}

// NewConfig connects to the store and the optional backends and wires the
// engines
func NewConfig() (*App, error) {
	cfg := new(App)
	cfg.StartedAt = time.Now()

	executionID := uuid.New().String()[0:5]
	cfg.Logger = logger.NewLogger(logger.Config{
		Service:       "tprmgrc-api",
		Version:       "1.0.0",
		Environment:   getEnv("ENVIRONMENT_APP", "development"),
		LogDir:        os.Getenv("LOG_DIR"),
		Stdout:        os.Getenv("LOG_STDOUT") == "true",
		FlushInterval: 5 * time.Second,
		BatchSize:     50,
		BufferSize:    1000,
		LogLevel:      logger.LogLevel(strings.ToUpper(getEnv("LOG_LEVEL", string(logger.LevelInfo)))),
		EnableCaller:  true,
		ExecutionID:   executionID,
	})

	sqlServer, err := sqlserver.NewSQLServerInternal()
	if err != nil {
		return cfg, errors.New("creating sql server client: " + err.Error())
	}
	cfg.SqlServer = sqlServer

	if os.Getenv("AUTO_MIGRATE") == "true" {
		if err := sqlServer.AutoMigrate(); err != nil {
			return cfg, errors.New("migrating sql server: " + err.Error())
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cfg.newClientRedis(ctx)
	cfg.newClientES(ctx)
	cfg.newClientMongo(ctx)

	cfg.Wire()
	return cfg, nil
}

// Log is the logger engines receive; a nil Logger logs nothing
func (cfg *App) Log() logger.Interface {
	if cfg.Logger == nil {
		return logger.NewNop()
	}
	return cfg.Logger
}

// Wire builds the bus, the engines and the side-effect handlers on top of
// the clients already set on cfg
func (cfg *App) Wire() {
	log := cfg.Log()
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = time.Duration(getEnvAsInt64("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second
	}

	cfg.Bus = events.NewBus(events.Options{
		Workers:         getEnvAsInt64("DEFERRED_WORKERS", 8),
		DeferredTimeout: time.Duration(getEnvAsInt64("DEFERRED_HANDLER_TIMEOUT_SECONDS", 60)) * time.Second,
	}, log)
	cfg.IdGen = idgen.New()

	graph := versiongraph.New(cfg.IdGen, log)
	cfg.Contracts = contracts.New(cfg.SqlServer, graph, cfg.Bus, log)
	cfg.Amendments = amendments.New(cfg.SqlServer, graph, cfg.Bus, log)
	cfg.Renewals = renewals.New(cfg.SqlServer, cfg.Bus, log, renewals.Options{
		StrictDates: os.Getenv("RENEWAL_STRICT_DATES") == "true",
	})
	cfg.Approvals = approvals.New(cfg.SqlServer, cfg.Bus, log)
	cfg.Vendors = vendors.New(cfg.SqlServer, cfg.IdGen, cfg.Bus, log, vendors.Options{
		BaseURL: getEnv("INVITATION_BASE_URL", "http://localhost:3000"),
	})

	deps := sideeffects.Deps{
		Store:      cfg.SqlServer,
		Amendments: cfg.Amendments,
		Renewals:   cfg.Renewals,
		Policy:     sideeffects.PolicyFromEnv(),
		Log:        log,
	}
	if cfg.Redis != nil {
		deps.Cache = cfg.Redis
		deps.Risk = cfg.Redis
	}
	if cfg.ES != nil {
		deps.Index = cfg.ES
	}
	if cfg.Mongo != nil {
		deps.Journal = cfg.Mongo
	}
	cfg.Handlers = sideeffects.Register(cfg.Bus, deps)
}

// CloseAll drains the bus and closes every connection
func (cfg *App) CloseAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if cfg.Bus != nil {
		_ = cfg.Bus.Close(ctx)
	}
	if cfg.Redis != nil {
		_ = cfg.Redis.Close()
	}
	if cfg.Mongo != nil {
		_ = cfg.Mongo.Close(ctx)
	}
	if cfg.SqlServer != nil {
		_ = cfg.SqlServer.Close()
	}
	if cfg.Logger != nil {
		_ = cfg.Logger.Close()
	}
}

// newClientRedis connects to Redis; the service runs without it
func (cfg *App) newClientRedis(ctx context.Context) {
	r, err := redis.NewRedisInternal(ctx, redis.Options{})
	if err != nil {
		cfg.Log().Warn("redis unavailable", map[string]interface{}{"error": err.Error()})
		return
	}
	cfg.Redis = r
}

func (cfg *App) newClientES(ctx context.Context) {
	if os.Getenv("ELASTICSEARCH_URL") == "" {
		cfg.Log().Warn("ELASTICSEARCH_URL not set, search disabled")
		return
	}
	es, err := elsearch.NewClient(&elsearch.Config{
		MaxRetries:         3,
		RetryBackoff:       300 * time.Millisecond,
		Timeout:            5 * time.Second,
		InsecureSkipVerify: true,
		IndexName:          "contracts",
	})
	if err != nil {
		cfg.Log().Warn("elasticsearch unavailable", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := es.EnsureIndex(ctx); err != nil {
		cfg.Log().Warn("contract index not ready", map[string]interface{}{"error": err.Error()})
		return
	}
	cfg.ES = es
}

func (cfg *App) newClientMongo(ctx context.Context) {
	if os.Getenv("MONGO_URI") == "" {
		cfg.Log().Warn("MONGO_URI not set, event journal disabled")
		return
	}
	m, err := mongo.NewMongoInternal(ctx, "", os.Getenv("MONGO_DATABASE"))
	if err != nil {
		cfg.Log().Warn("mongo unavailable", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := m.EnsureJournalIndexes(ctx); err != nil {
		cfg.Log().Warn("journal indexes not created", map[string]interface{}{"error": err.Error()})
	}
	cfg.Mongo = m
}

func getEnv(name, defaultValue string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return defaultValue
}

func getEnvAsInt64(name string, defaultValue int64) int64 {
	valueStr := os.Getenv(name)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
