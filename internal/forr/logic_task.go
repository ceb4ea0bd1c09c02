package forr

import (
	"context"
	"fmt"

	"forrflow/internal/metrics"
	"forrflow/internal/process"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// TaskTypeForr forr 任务类型
const TaskTypeForr = "FORR"

var tracer = otel.Tracer("forrflow/internal/forr")

// TaskExecutionContext 任务执行上下文，由 worker 从任务实例构造
type TaskExecutionContext struct {
	TaskInstanceID    int64
	ProcessInstanceID int64
	TaskName          string
	TaskParams        string
	// PrepareParamsMap 预处理后的变量，用于替换 ${name}
	PrepareParamsMap map[string]string
	VarPool          string
	Host             string
}

// ProcessDefinitionStore 工作流定义存储
type ProcessDefinitionStore interface {
	QueryByCode(ctx context.Context, code int64) (*process.ProcessDefinition, error)
}

// SubWorkflowService 子工作流的创建、查询与启停
type SubWorkflowService interface {
	FailureFilter
	GetAllSubWorkflow(ctx context.Context, parentInstanceID, parentTaskInstanceID int64) ([]*process.ProcessInstance, error)
	CreateSubWorkflowInstances(ctx context.Context, parentInstanceID, parentTaskInstanceID int64, subs []*process.ProcessInstance) error
	StartSubWorkflow(ctx context.Context, sub *process.ProcessInstance, commandType process.CommandType) error
	StopSubWorkflow(ctx context.Context, sub *process.ProcessInstance) error
}

// Collaborators ForrLogicTask 依赖的外部组件
type Collaborators struct {
	Instances   ProcessInstanceStore
	Definitions ProcessDefinitionStore
	SubWorkflow SubWorkflowService
}

// Options 默认限制，任务参数中的非零值优先
type Options struct {
	MaxSubWorkflowInstances int
	DegreeOfParallelism     int
	MaxProductSize          int
}

// DefaultOptions 默认限制
func DefaultOptions() Options {
	return Options{
		MaxSubWorkflowInstances: 1024,
		DegreeOfParallelism:     1,
		MaxProductSize:          DefaultMaxProductSize,
	}
}

// ForrLogicTask 按参数组合扇出子工作流的逻辑任务
type ForrLogicTask struct {
	taskCtx         *TaskExecutionContext
	params          *ForrParameters
	processInstance *process.ProcessInstance
	deps            Collaborators
	resetter        *StatusResetter
	opts            Options
	logger          *zap.Logger
}

// NewForrLogicTask 解析任务参数并加载父工作流实例
func NewForrLogicTask(ctx context.Context, taskCtx *TaskExecutionContext, deps Collaborators, opts Options, logger *zap.Logger) (*ForrLogicTask, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	params, err := DecodeParameters(taskCtx.TaskParams)
	if err != nil {
		return nil, err
	}
	parent, err := deps.Instances.QueryByID(ctx, taskCtx.ProcessInstanceID)
	if err != nil {
		return nil, fmt.Errorf("加载父工作流实例失败: %w", err)
	}

	if params.MaxNumOfSubWorkflowInstances > 0 {
		opts.MaxSubWorkflowInstances = params.MaxNumOfSubWorkflowInstances
	}
	if params.DegreeOfParallelism > 0 {
		opts.DegreeOfParallelism = params.DegreeOfParallelism
	}
	if opts.DegreeOfParallelism <= 0 {
		opts.DegreeOfParallelism = 1
	}

	logger = logger.With(
		zap.Int64("process_instance_id", taskCtx.ProcessInstanceID),
		zap.Int64("task_instance_id", taskCtx.TaskInstanceID),
	)
	return &ForrLogicTask{
		taskCtx:         taskCtx,
		params:          params,
		processInstance: parent,
		deps:            deps,
		resetter:        NewStatusResetter(deps.Instances, deps.SubWorkflow, logger),
		opts:            opts,
		logger:          logger,
	}, nil
}

// Parameters 已解析的任务参数
func (t *ForrLogicTask) Parameters() *ForrParameters {
	return t.params
}

// GenerateParameterGroup 替换变量后展开全部参数，再按过滤条件剔除
func (t *ForrLogicTask) GenerateParameterGroup() ([]ParameterGroup, error) {
	kept, _, err := GenerateGroups(t.params, t.taskCtx.PrepareParamsMap, t.opts.MaxProductSize)
	return kept, err
}

// GenerateGroups 返回过滤后保留的参数组以及过滤前的组合总数
func GenerateGroups(params *ForrParameters, prepared map[string]string, maxProductSize int) ([]ParameterGroup, int, error) {
	inputs := make([]ForrInputParameter, len(params.ListParameters))
	for i, p := range params.ListParameters {
		p.Value = resolvePlaceholders(p.Value, prepared)
		inputs[i] = p
	}

	groups, err := ExpandWithLimit(inputs, maxProductSize)
	if err != nil {
		return nil, 0, err
	}
	condition := resolvePlaceholders(params.FilterCondition, prepared)
	kept := Filter(groups, condition)

	metrics.ForrGroupsGenerated.Add(float64(len(groups)))
	metrics.ForrGroupsFiltered.Add(float64(len(groups) - len(kept)))
	return kept, len(groups), nil
}

// Handle 首次执行时按参数组创建子工作流实例，恢复执行时重置已有子实例，
// 返回用于轮询子实例状态的 AsyncTaskExecuteFunction
func (t *ForrLogicTask) Handle(ctx context.Context) (*AsyncTaskExecuteFunction, error) {
	ctx, span := tracer.Start(ctx, "ForrLogicTask.Handle")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("process_instance_id", t.taskCtx.ProcessInstanceID),
		attribute.Int64("task_instance_id", t.taskCtx.TaskInstanceID),
		attribute.String("command_type", string(t.processInstance.CommandType)),
	)

	groups, err := t.GenerateParameterGroup()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if limit := t.opts.MaxSubWorkflowInstances; limit > 0 && len(groups) > limit {
		t.logger.Warn("参数组数量超过子工作流实例上限，多余的参数组将被丢弃",
			zap.Int("groups", len(groups)),
			zap.Int("max", limit),
		)
		metrics.ForrGroupsTruncated.Add(float64(len(groups) - limit))
		groups = groups[:limit]
	}
	span.SetAttributes(attribute.Int("parameter_groups", len(groups)))

	existing, err := t.deps.SubWorkflow.GetAllSubWorkflow(ctx, t.taskCtx.ProcessInstanceID, t.taskCtx.TaskInstanceID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if len(existing) == 0 {
		err = t.GenerateSubWorkflowInstances(ctx, groups)
	} else {
		err = t.ResetProcessInstanceStatus(ctx, existing)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return t.AsyncFunction(), nil
}

// ResetProcessInstanceStatus 按父实例的命令类型重置已存在的子实例
func (t *ForrLogicTask) ResetProcessInstanceStatus(ctx context.Context, subs []*process.ProcessInstance) error {
	return t.resetter.Reset(ctx, t.processInstance.CommandType, subs)
}

// GenerateSubWorkflowInstances 为每个参数组创建一个待运行的子工作流实例
func (t *ForrLogicTask) GenerateSubWorkflowInstances(ctx context.Context, groups []ParameterGroup) error {
	if len(groups) == 0 {
		t.logger.Info("没有可用的参数组，不创建子工作流实例")
		return nil
	}

	def, err := t.deps.Definitions.QueryByCode(ctx, t.params.ProcessDefinitionCode)
	if err != nil {
		return fmt.Errorf("查询子工作流定义失败: %w", err)
	}

	subs := make([]*process.ProcessInstance, 0, len(groups))
	for i, group := range groups {
		startParams := make(map[string]any, len(group))
		for k, v := range group {
			startParams[k] = v
		}
		subs = append(subs, &process.ProcessInstance{
			Name:                     fmt.Sprintf("%s-%s-%d", t.taskCtx.TaskName, def.Name, i+1),
			ProcessDefinitionCode:    def.Code,
			ProcessDefinitionVersion: def.Version,
			State:                    process.WorkflowWaitToRun,
			CommandType:              process.CommandDynamicGeneration,
			CommandParam: datatypes.JSONMap{
				"parentProcessInstanceId": t.taskCtx.ProcessInstanceID,
				"parentTaskInstanceId":    t.taskCtx.TaskInstanceID,
				"startParams":             startParams,
			},
			IsSubProcess: true,
			VarPool:      t.taskCtx.VarPool,
			Host:         t.taskCtx.Host,
		})
	}

	if err := t.deps.SubWorkflow.CreateSubWorkflowInstances(ctx, t.taskCtx.ProcessInstanceID, t.taskCtx.TaskInstanceID, subs); err != nil {
		return err
	}
	metrics.SubWorkflowInstancesCreated.Add(float64(len(subs)))
	t.logger.Info("子工作流实例已创建",
		zap.Int64("sub_definition_code", def.Code),
		zap.Int("count", len(subs)),
	)
	return nil
}

// AsyncFunction 返回轮询子实例状态的函数，不产生副作用
func (t *ForrLogicTask) AsyncFunction() *AsyncTaskExecuteFunction {
	return NewAsyncTaskExecuteFunction(
		t.taskCtx.ProcessInstanceID,
		t.taskCtx.TaskInstanceID,
		t.processInstance.CommandType,
		t.opts.DegreeOfParallelism,
		t.deps.SubWorkflow,
		t.logger,
	)
}
