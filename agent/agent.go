package agent

import (
	"context"
	"sync"

	"github.com/glebarez/sqlite"
	"github.com/mohitkumar/flowcanvas/analytics"
	"github.com/mohitkumar/flowcanvas/config"
	"github.com/mohitkumar/flowcanvas/flow"
	"github.com/mohitkumar/flowcanvas/instruction"
	"github.com/mohitkumar/flowcanvas/logger"
	"github.com/mohitkumar/flowcanvas/metrics"
	"github.com/mohitkumar/flowcanvas/persistence"
	"github.com/mohitkumar/flowcanvas/persistence/memory"
	"github.com/mohitkumar/flowcanvas/persistence/rdb"
	"github.com/mohitkumar/flowcanvas/persistence/redis"
	"github.com/mohitkumar/flowcanvas/rest"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Agent struct {
	Config       config.Config
	store        persistence.Store
	closeStore   func() error
	registry     *instruction.Registry
	collector    analytics.EditDataCollector
	flowService  *flow.Service
	httpServer   *rest.Server
	shutdown     bool
	shutdowns    chan struct{}
	shutdownLock sync.Mutex
	wg           sync.WaitGroup
}

func New(config config.Config) (*Agent, error) {
	a := &Agent{
		Config:    config,
		shutdowns: make(chan struct{}),
	}
	setup := []func() error{
		a.Config.Validate,
		a.setupMetrics,
		a.setupStore,
		a.setupRegistry,
		a.setupAnalytics,
		a.setupFlowService,
		a.setupHttpServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupMetrics() error {
	return metrics.Register()
}

func (a *Agent) setupStore() error {
	a.closeStore = func() error { return nil }
	switch a.Config.StorageType {
	case config.STORAGE_TYPE_REDIS:
		rs := redis.NewRedisStore(redis.Config{
			Addrs:     a.Config.RedisConfig.Addrs,
			Namespace: a.Config.RedisConfig.Namespace,
			Password:  a.Config.RedisConfig.Password,
			PoolSize:  a.Config.RedisConfig.PoolSize,
		})
		if err := rs.Ping(context.Background()); err != nil {
			return err
		}
		a.store = rs
		a.closeStore = rs.Close
	case config.STORAGE_TYPE_POSTGRES, config.STORAGE_TYPE_SQLITE:
		dialector := postgres.Open(a.Config.SqlConfig.Dsn)
		if a.Config.StorageType == config.STORAGE_TYPE_SQLITE {
			dialector = sqlite.Open(a.Config.SqlConfig.Dsn)
		}
		db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
		if err != nil {
			return err
		}
		gs := rdb.NewGormStore(db)
		if err := gs.Migrate(); err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		a.store = gs
		a.closeStore = sqlDB.Close
	default:
		a.store = memory.NewMemoryStore()
	}
	logger.Info("storage ready", zap.String("impl", string(a.Config.StorageType)))
	return nil
}

func (a *Agent) setupRegistry() error {
	var err error
	a.registry, err = instruction.NewRegistry(instruction.Builtin()...)
	return err
}

func (a *Agent) setupAnalytics() error {
	var err error
	a.collector, err = analytics.NewDataCollector(a.Config.AnalyticsConfig)
	return err
}

func (a *Agent) setupFlowService() error {
	conf := flow.ServiceConfig{
		Partitions:    a.Config.Partitions,
		Lanes:         a.Config.Lanes,
		LaneCapacity:  a.Config.LaneCapacity,
		SessionTTL:    a.Config.SessionTTL,
		AuditInterval: a.Config.AuditInterval,
	}
	a.flowService = flow.NewService(a.store, a.registry, conf, &a.wg, a.collector, metrics.EditRecorder{})
	a.flowService.Start()
	return nil
}

func (a *Agent) setupHttpServer() error {
	var err error
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, a.flowService)
	return err
}

func (a *Agent) Start() error {
	go func() {
		if err := a.httpServer.Start(); err != nil {
			logger.Error("http server failed", zap.Error(err))
			_ = a.Shutdown()
		}
	}()
	return nil
}

func (a *Agent) Done() <-chan struct{} {
	return a.shutdowns
}

func (a *Agent) Shutdown() error {
	logger.Info("shutting down server")
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true
	close(a.shutdowns)

	shutdown := []func() error{
		a.httpServer.Stop,
		a.flowService.Stop,
	}
	for _, fn := range shutdown {
		if err := fn(); err != nil {
			return err
		}
	}
	logger.Info("waiting for all services to shutdown...")
	a.wg.Wait()
	metrics.Unregister()
	return a.closeStore()
}
