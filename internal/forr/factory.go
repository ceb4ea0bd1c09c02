package forr

import (
	"context"
	"encoding/json"
	"fmt"

	"forrflow/internal/process"

	"go.uber.org/zap"
)

// TaskInstanceStore 任务实例存储
type TaskInstanceStore interface {
	QueryByID(ctx context.Context, id int64) (*process.TaskInstance, error)
	UpdateState(ctx context.Context, id int64, state process.TaskExecutionStatus) error
	FinishState(ctx context.Context, id int64, state process.TaskExecutionStatus) (bool, error)
}

// Factory 从持久化的任务实例构造 ForrLogicTask，worker 与 API 共用
type Factory struct {
	tasks  TaskInstanceStore
	deps   Collaborators
	opts   Options
	logger *zap.Logger
}

// NewFactory 创建 Factory
func NewFactory(tasks TaskInstanceStore, deps Collaborators, opts Options, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{tasks: tasks, deps: deps, opts: opts, logger: logger}
}

// Tasks 任务实例存储
func (f *Factory) Tasks() TaskInstanceStore {
	return f.tasks
}

// Options 默认限制
func (f *Factory) Options() Options {
	return f.opts
}

// Load 加载任务实例并构造 ForrLogicTask，非 FORR 类型的任务返回 ErrInvalidTaskParameters
func (f *Factory) Load(ctx context.Context, taskInstanceID int64) (*process.TaskInstance, *ForrLogicTask, error) {
	task, err := f.tasks.QueryByID(ctx, taskInstanceID)
	if err != nil {
		return nil, nil, err
	}
	if task.TaskType != TaskTypeForr {
		return task, nil, fmt.Errorf("%w: task %d has type %q", ErrInvalidTaskParameters, task.ID, task.TaskType)
	}

	logic, err := NewForrLogicTask(ctx, NewTaskExecutionContext(task), f.deps, f.opts, f.logger)
	if err != nil {
		return task, nil, err
	}
	return task, logic, nil
}

// NewTaskExecutionContext 由任务实例构造执行上下文，VarPool 中的变量作为 ${name} 的取值
func NewTaskExecutionContext(task *process.TaskInstance) *TaskExecutionContext {
	return &TaskExecutionContext{
		TaskInstanceID:    task.ID,
		ProcessInstanceID: task.ProcessInstanceID,
		TaskName:          task.Name,
		TaskParams:        task.TaskParams,
		PrepareParamsMap:  ParseVarPool(task.VarPool),
		VarPool:           task.VarPool,
		Host:              task.Host,
	}
}

type property struct {
	Prop  string `json:"prop"`
	Value string `json:"value"`
}

// ParseVarPool 解析 [{"prop":"k","value":"v"}] 格式的变量池，无法解析时返回空 map
func ParseVarPool(varPool string) map[string]string {
	vars := map[string]string{}
	if varPool == "" {
		return vars
	}
	var props []property
	if err := json.Unmarshal([]byte(varPool), &props); err != nil {
		return vars
	}
	for _, p := range props {
		if p.Prop != "" {
			vars[p.Prop] = p.Value
		}
	}
	return vars
}
