package api

import (
	forrHandlers "forrflow/api/handlers/forr"
	"forrflow/internal/config"
	"forrflow/internal/forr"
	"forrflow/internal/infra"
	"forrflow/internal/infra/lock"
	"forrflow/internal/infra/queue"
	"forrflow/internal/logger"
	middlewarepkg "forrflow/internal/middleware"
	"forrflow/internal/process"
	"forrflow/internal/subworkflow"
	"forrflow/internal/worker"
	"forrflow/internal/worker/handlers"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AppContainer 应用容器，集中管理所有服务依赖
type AppContainer struct {
	// 基础设施
	DB          *gorm.DB
	Config      *config.Config
	RedisClient redis.UniversalClient
	QueueClient queue.Client
	Locker      *lock.Locker
	RateLimiter *middlewarepkg.RateLimiter

	// 核心服务
	SubWorkflowService *subworkflow.Service
	ForrFactory        *forr.Factory

	// Worker
	WorkerServer *worker.Server
}

// Handlers 所有 HTTP Handler
type Handlers struct {
	Forr *forrHandlers.Handler
}

// InitContainer 初始化应用容器
func InitContainer(db *gorm.DB, cfg *config.Config) (*AppContainer, error) {
	container := &AppContainer{
		DB:     db,
		Config: cfg,
	}

	if err := container.initRedis(cfg); err != nil {
		return nil, err
	}
	container.initCoreServices(db, cfg)
	container.initWorker(cfg)

	return container, nil
}

// InitHandlers 初始化所有 Handlers
func (c *AppContainer) InitHandlers() *Handlers {
	return &Handlers{
		Forr: forrHandlers.NewHandler(c.ForrFactory, c.SubWorkflowService, c.QueueClient, logger.Get()),
	}
}

// Close 释放队列与 Redis 连接
func (c *AppContainer) Close() {
	if c.RateLimiter != nil {
		c.RateLimiter.Stop()
	}
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warn("关闭队列客户端失败", zap.Error(err))
		}
	}
	if err := infra.CloseRedis(); err != nil {
		logger.Warn("关闭 Redis 失败", zap.Error(err))
	}
}

// --- 内部初始化方法 ---

func (c *AppContainer) initRedis(cfg *config.Config) error {
	redisCfg := normalizeRedisConfig(cfg.Redis)
	cfg.Redis = redisCfg
	c.QueueClient = queue.NewClient(redisCfg)

	redisClient, err := infra.InitRedis(&redisCfg)
	if err != nil {
		// 锁不可用时仍可运行，依赖 asynq TaskID 去重
		logger.Warn("Redis 不可用，扇出任务将不加分布式锁", zap.Error(err))
		return nil
	}

	c.RedisClient = redisClient
	c.Locker = lock.NewLocker(redisClient, cfg.Forr.LockTTL)
	return nil
}

func (c *AppContainer) initCoreServices(db *gorm.DB, cfg *config.Config) {
	c.SubWorkflowService = subworkflow.NewService(db, c.QueueClient, logger.Get())

	opts := forr.DefaultOptions()
	if cfg.Forr.MaxSubWorkflowInstances > 0 {
		opts.MaxSubWorkflowInstances = cfg.Forr.MaxSubWorkflowInstances
	}
	if cfg.Forr.DegreeOfParallelism > 0 {
		opts.DegreeOfParallelism = cfg.Forr.DegreeOfParallelism
	}
	if cfg.Forr.MaxProductSize > 0 {
		opts.MaxProductSize = cfg.Forr.MaxProductSize
	}

	c.ForrFactory = forr.NewFactory(
		process.NewTaskInstanceDao(db),
		forr.Collaborators{
			Instances:   process.NewProcessInstanceDao(db),
			Definitions: process.NewProcessDefinitionDao(db),
			SubWorkflow: c.SubWorkflowService,
		},
		opts,
		logger.Get(),
	)
}

func (c *AppContainer) initWorker(cfg *config.Config) {
	var locker handlers.TaskLocker
	if c.Locker != nil {
		locker = c.Locker
	}
	forrHandler := handlers.NewForrHandler(c.ForrFactory, c.QueueClient, locker, cfg.Worker.PollInterval, logger.Get())
	c.WorkerServer = worker.NewServer(cfg.Redis, cfg.Worker, forrHandler, logger.Get())
}
