package worker

import (
	"context"

	"forrflow/internal/config"
	"forrflow/internal/infra/queue"
	"forrflow/internal/worker/handlers"
	"forrflow/internal/worker/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type Server struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *zap.Logger
}

func NewServer(
	redisCfg config.RedisConfig,
	workerCfg config.WorkerConfig,
	forrHandler *handlers.ForrHandler,
	logger *zap.Logger,
) *Server {
	queues := workerCfg.Queues
	if len(queues) == 0 {
		queues = map[string]int{
			tasks.QueueForr: 6, // 扇出与轮询优先
			"default":       1,
		}
	}
	concurrency := workerCfg.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}

	srv := asynq.NewServer(
		queue.RedisClientOpt(redisCfg),
		asynq.Config{
			Concurrency: concurrency,
			Queues:      queues,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("任务执行失败",
					zap.String("type", task.Type()),
					zap.Error(err),
				)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeForrHandle, forrHandler.HandleForrTask)
	mux.HandleFunc(tasks.TypeForrCheck, forrHandler.HandleForrCheck)

	return &Server{
		server: srv,
		mux:    mux,
		logger: logger,
	}
}

// Run 启动 Worker 服务器
func (s *Server) Run() error {
	s.logger.Info("Worker 服务器启动中...")
	return s.server.Run(s.mux)
}

// Start 非阻塞启动
func (s *Server) Start() error {
	s.logger.Info("Worker 服务器启动中 (后台)...")
	return s.server.Start(s.mux)
}

// Shutdown 停止 Worker 服务器
func (s *Server) Shutdown() {
	s.logger.Info("Worker 服务器停止中...")
	s.server.Shutdown()
}
