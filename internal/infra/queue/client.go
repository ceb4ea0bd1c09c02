package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"forrflow/internal/config"
	"forrflow/internal/worker/tasks"

	"github.com/hibiken/asynq"
)

// Client 任务队列客户端接口
type Client interface {
	EnqueueForrHandle(payload tasks.ForrHandlePayload) error
	EnqueueForrCheck(payload tasks.ForrCheckPayload, delay time.Duration) error
	EnqueueStartCommand(payload tasks.StartCommandPayload) error
	Close() error
}

type asynqClient struct {
	client *asynq.Client
}

// NewClient 创建任务队列客户端
func NewClient(cfg config.RedisConfig) Client {
	return &asynqClient{client: asynq.NewClient(RedisClientOpt(cfg))}
}

// RedisClientOpt 由配置构造 asynq 连接参数
func RedisClientOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// EnqueueForrHandle 同一任务实例同时只允许一个待执行的 handle 任务
func (c *asynqClient) EnqueueForrHandle(payload tasks.ForrHandlePayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload failed: %w", err)
	}

	task := asynq.NewTask(tasks.TypeForrHandle, data)
	_, err = c.client.Enqueue(task,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue(tasks.QueueForr),
		asynq.TaskID(fmt.Sprintf("forr-handle-%d", payload.TaskInstanceID)),
		asynq.Retention(time.Minute),
	)
	if err != nil {
		return fmt.Errorf("enqueue task failed: %w", err)
	}
	return nil
}

func (c *asynqClient) EnqueueForrCheck(payload tasks.ForrCheckPayload, delay time.Duration) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload failed: %w", err)
	}

	task := asynq.NewTask(tasks.TypeForrCheck, data)
	_, err = c.client.Enqueue(task,
		asynq.MaxRetry(5),
		asynq.Timeout(time.Minute),
		asynq.Queue(tasks.QueueForr),
		asynq.ProcessIn(delay),
	)
	if err != nil {
		return fmt.Errorf("enqueue task failed: %w", err)
	}
	return nil
}

func (c *asynqClient) EnqueueStartCommand(payload tasks.StartCommandPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload failed: %w", err)
	}

	task := asynq.NewTask(tasks.TypeWorkflowStartCommand, data)
	// 子工作流由 master 负责执行与重试，这里只投递命令
	_, err = c.client.Enqueue(task,
		asynq.MaxRetry(0),
		asynq.Queue(tasks.QueueWorkflow),
	)
	if err != nil {
		return fmt.Errorf("enqueue task failed: %w", err)
	}
	return nil
}

func (c *asynqClient) Close() error {
	return c.client.Close()
}
