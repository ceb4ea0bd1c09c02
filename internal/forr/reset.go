package forr

import (
	"context"
	"fmt"

	"forrflow/internal/metrics"
	"forrflow/internal/process"

	"go.uber.org/zap"
)

// ProcessInstanceStore 工作流实例存储
type ProcessInstanceStore interface {
	QueryByID(ctx context.Context, id int64) (*process.ProcessInstance, error)
	UpdateByID(ctx context.Context, instance *process.ProcessInstance) error
}

// FailureFilter 从子工作流实例中筛出失败的实例
type FailureFilter interface {
	FilterFailedProcessInstances(subs []*process.ProcessInstance) []*process.ProcessInstance
}

// StatusResetter 父工作流恢复执行时重置子工作流实例状态
type StatusResetter struct {
	instances ProcessInstanceStore
	failures  FailureFilter
	logger    *zap.Logger
}

// NewStatusResetter 创建 StatusResetter
func NewStatusResetter(instances ProcessInstanceStore, failures FailureFilter, logger *zap.Logger) *StatusResetter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusResetter{instances: instances, failures: failures, logger: logger}
}

// Reset 根据父实例的命令类型选出需要重跑的子实例，置为 WAIT_TO_RUN 并逐个持久化。
//   - REPEAT_RUNNING: 全部子实例
//   - START_FAILURE_TASK_PROCESS: 仅失败的子实例
//   - 其它命令类型不做任何修改
//
// 持久化失败立即返回，不在此处重试。
func (r *StatusResetter) Reset(ctx context.Context, commandType process.CommandType, subs []*process.ProcessInstance) error {
	var targets []*process.ProcessInstance
	switch commandType {
	case process.CommandRepeatRunning:
		targets = subs
	case process.CommandStartFailureTaskProcess:
		targets = r.failures.FilterFailedProcessInstances(subs)
	default:
		return nil
	}

	for _, sub := range targets {
		sub.State = process.WorkflowWaitToRun
		if err := r.instances.UpdateByID(ctx, sub); err != nil {
			return fmt.Errorf("%w: instance %d: %w", ErrPersistenceFailure, sub.ID, err)
		}
		metrics.SubWorkflowInstancesReset.WithLabelValues(string(commandType)).Inc()
	}

	r.logger.Info("子工作流实例状态已重置",
		zap.String("command_type", string(commandType)),
		zap.Int("total", len(subs)),
		zap.Int("reset", len(targets)),
	)
	return nil
}
