package forr

import (
	"context"

	"forrflow/internal/metrics"
	"forrflow/internal/process"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// AsyncTaskExecuteFunction 轮询子工作流实例，按并发度下发启动命令并汇总父任务状态
type AsyncTaskExecuteFunction struct {
	parentInstanceID     int64
	parentTaskInstanceID int64
	parentCommandType    process.CommandType
	degreeOfParallelism  int
	subWorkflow          SubWorkflowService
	logger               *zap.Logger
}

// NewAsyncTaskExecuteFunction 创建 AsyncTaskExecuteFunction
func NewAsyncTaskExecuteFunction(parentInstanceID, parentTaskInstanceID int64, parentCommandType process.CommandType, degreeOfParallelism int, subWorkflow SubWorkflowService, logger *zap.Logger) *AsyncTaskExecuteFunction {
	if degreeOfParallelism <= 0 {
		degreeOfParallelism = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AsyncTaskExecuteFunction{
		parentInstanceID:     parentInstanceID,
		parentTaskInstanceID: parentTaskInstanceID,
		parentCommandType:    parentCommandType,
		degreeOfParallelism:  degreeOfParallelism,
		subWorkflow:          subWorkflow,
		logger:               logger,
	}
}

// Check 检查一次子实例状态。全部结束时返回 SUCCESS 或 FAILURE，
// 否则补齐运行中的实例数量到并发度并返回 RUNNING_EXECUTION。
func (f *AsyncTaskExecuteFunction) Check(ctx context.Context) (process.TaskExecutionStatus, error) {
	ctx, span := tracer.Start(ctx, "AsyncTaskExecuteFunction.Check")
	defer span.End()

	subs, err := f.subWorkflow.GetAllSubWorkflow(ctx, f.parentInstanceID, f.parentTaskInstanceID)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	status, err := f.check(ctx, subs)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	span.SetAttributes(
		attribute.Int("sub_instances", len(subs)),
		attribute.String("status", string(status)),
	)
	metrics.ForrChecksTotal.WithLabelValues(string(status)).Inc()
	return status, nil
}

func (f *AsyncTaskExecuteFunction) check(ctx context.Context, subs []*process.ProcessInstance) (process.TaskExecutionStatus, error) {
	var finished, succeeded, running int
	for _, sub := range subs {
		switch {
		case sub.State.IsFinished():
			finished++
			if sub.State.IsSuccess() {
				succeeded++
			}
		case sub.State != process.WorkflowWaitToRun:
			running++
		}
	}

	if finished == len(subs) {
		if succeeded == len(subs) {
			return process.TaskSuccess, nil
		}
		f.logger.Warn("存在未成功的子工作流实例",
			zap.Int("total", len(subs)),
			zap.Int("succeeded", succeeded),
		)
		return process.TaskFailure, nil
	}

	slots := f.degreeOfParallelism - running
	for _, sub := range subs {
		if slots <= 0 {
			break
		}
		if sub.State != process.WorkflowWaitToRun {
			continue
		}
		if err := f.subWorkflow.StartSubWorkflow(ctx, sub, f.commandTypeFor(sub)); err != nil {
			return "", err
		}
		metrics.SubWorkflowDispatched.Inc()
		slots--
	}
	return process.TaskRunningExecution, nil
}

// commandTypeFor 首次运行的子实例使用 START_PROCESS，重跑的子实例沿用父实例的恢复命令
func (f *AsyncTaskExecuteFunction) commandTypeFor(sub *process.ProcessInstance) process.CommandType {
	if sub.RunTimes == 0 {
		return process.CommandStartProcess
	}
	switch f.parentCommandType {
	case process.CommandRepeatRunning, process.CommandStartFailureTaskProcess:
		return f.parentCommandType
	}
	return process.CommandStartProcess
}

// Kill 停止全部未结束的子工作流实例
func (f *AsyncTaskExecuteFunction) Kill(ctx context.Context) (process.TaskExecutionStatus, error) {
	subs, err := f.subWorkflow.GetAllSubWorkflow(ctx, f.parentInstanceID, f.parentTaskInstanceID)
	if err != nil {
		return "", err
	}
	stopped := 0
	for _, sub := range subs {
		if sub.State.IsFinished() {
			continue
		}
		if err := f.subWorkflow.StopSubWorkflow(ctx, sub); err != nil {
			return "", err
		}
		stopped++
	}
	f.logger.Info("已停止子工作流实例", zap.Int("stopped", stopped))
	return process.TaskKill, nil
}
