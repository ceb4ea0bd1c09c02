package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"forrflow/internal/forr"
	"forrflow/internal/infra/lock"
	"forrflow/internal/logger"
	"forrflow/internal/process"
	"forrflow/internal/worker/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// CheckScheduler 投递延迟轮询任务
type CheckScheduler interface {
	EnqueueForrCheck(payload tasks.ForrCheckPayload, delay time.Duration) error
}

// TaskLocker 父任务级互斥锁
type TaskLocker interface {
	Acquire(ctx context.Context, key string) (func(context.Context) error, error)
}

type ForrHandler struct {
	factory      *forr.Factory
	scheduler    CheckScheduler
	locker       TaskLocker
	pollInterval time.Duration
	logger       *zap.Logger
}

// NewForrHandler locker 为空时不加锁
func NewForrHandler(factory *forr.Factory, scheduler CheckScheduler, locker TaskLocker, pollInterval time.Duration, logger *zap.Logger) *ForrHandler {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &ForrHandler{
		factory:      factory,
		scheduler:    scheduler,
		locker:       locker,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// HandleForrTask 扇出父任务：创建或重置子工作流实例，然后开始轮询
func (h *ForrHandler) HandleForrTask(ctx context.Context, t *asynq.Task) error {
	var p tasks.ForrHandlePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json unmarshal failed: %w", err)
	}
	if p.TraceID != "" {
		ctx = logger.WithTraceID(ctx, p.TraceID)
	}
	log := logger.WithContext(ctx, h.logger).With(zap.Int64("task_instance_id", p.TaskInstanceID))

	release, held, err := h.acquireTaskLock(ctx, log, p.TaskInstanceID)
	if err != nil {
		return err
	}
	if held {
		log.Info("父任务正在被其他 worker 处理，跳过")
		return nil
	}
	defer release()

	log.Info("开始扇出子工作流")

	_, logic, err := h.factory.Load(ctx, p.TaskInstanceID)
	if err != nil {
		return h.fail(ctx, log, p.TaskInstanceID, err)
	}
	if _, err := logic.Handle(ctx); err != nil {
		return h.fail(ctx, log, p.TaskInstanceID, err)
	}

	if err := h.factory.Tasks().UpdateState(ctx, p.TaskInstanceID, process.TaskRunningExecution); err != nil {
		return err
	}
	if err := h.scheduler.EnqueueForrCheck(tasks.ForrCheckPayload{
		TaskInstanceID: p.TaskInstanceID,
		Attempt:        1,
		TraceID:        p.TraceID,
	}, h.pollInterval); err != nil {
		return err
	}

	log.Info("扇出完成，等待子工作流执行")
	return nil
}

// HandleForrCheck 轮询一次子工作流实例状态，未结束时重新投递自身
func (h *ForrHandler) HandleForrCheck(ctx context.Context, t *asynq.Task) error {
	var p tasks.ForrCheckPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json unmarshal failed: %w", err)
	}
	if p.TraceID != "" {
		ctx = logger.WithTraceID(ctx, p.TraceID)
	}
	log := logger.WithContext(ctx, h.logger).With(
		zap.Int64("task_instance_id", p.TaskInstanceID),
		zap.Int("attempt", p.Attempt),
	)

	// 与 handle 及其它轮询链互斥，重复的轮询链在此收敛为一条
	release, held, err := h.acquireTaskLock(ctx, log, p.TaskInstanceID)
	if err != nil {
		return err
	}
	if held {
		log.Info("父任务正在被其他 worker 处理，丢弃本次轮询")
		return nil
	}
	defer release()

	task, logic, err := h.factory.Load(ctx, p.TaskInstanceID)
	if task != nil && task.State.IsFinished() {
		log.Info("父任务已结束，停止轮询", zap.String("state", string(task.State)))
		return nil
	}
	if err != nil {
		return h.fail(ctx, log, p.TaskInstanceID, err)
	}

	status, err := logic.AsyncFunction().Check(ctx)
	if err != nil {
		return err
	}

	if status.IsFinished() {
		applied, err := h.factory.Tasks().FinishState(ctx, p.TaskInstanceID, status)
		if err != nil {
			return err
		}
		if !applied {
			log.Info("父任务已被置为终态，忽略轮询结果", zap.String("state", string(status)))
			return nil
		}
		log.Info("父任务执行结束", zap.String("state", string(status)))
		return nil
	}

	return h.scheduler.EnqueueForrCheck(tasks.ForrCheckPayload{
		TaskInstanceID: p.TaskInstanceID,
		Attempt:        p.Attempt + 1,
		TraceID:        p.TraceID,
	}, h.pollInterval)
}

// acquireTaskLock 获取父任务锁。held 为 true 表示锁被其他 worker 持有；Redis 错误原样返回交给 asynq 重试
func (h *ForrHandler) acquireTaskLock(ctx context.Context, log *zap.Logger, taskInstanceID int64) (release func(), held bool, err error) {
	if h.locker == nil {
		return func() {}, false, nil
	}
	unlock, err := h.locker.Acquire(ctx, fmt.Sprintf("forr:%d", taskInstanceID))
	if errors.Is(err, lock.ErrLockHeld) {
		return nil, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return func() {
		if err := unlock(context.Background()); err != nil {
			log.Warn("释放父任务锁失败", zap.Error(err))
		}
	}, false, nil
}

// fail 参数错误和任务不存在不再重试，其余错误交给 asynq 重试
func (h *ForrHandler) fail(ctx context.Context, log *zap.Logger, taskInstanceID int64, err error) error {
	switch {
	case errors.Is(err, forr.ErrInvalidTaskParameters):
		log.Error("扇出参数不合法", zap.Error(err))
		if _, uerr := h.factory.Tasks().FinishState(ctx, taskInstanceID, process.TaskFailure); uerr != nil {
			log.Error("更新父任务状态失败", zap.Error(uerr))
		}
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	case errors.Is(err, process.ErrNotFound):
		log.Error("任务实例不存在", zap.Error(err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	log.Error("扇出子工作流失败", zap.Error(err))
	return err
}
