package subworkflow

import (
	"context"
	"fmt"

	"forrflow/internal/logger"
	"forrflow/internal/process"
	"forrflow/internal/worker/tasks"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CommandPublisher 投递子工作流启动命令
type CommandPublisher interface {
	EnqueueStartCommand(payload tasks.StartCommandPayload) error
}

// Service 子工作流服务
type Service struct {
	db        *gorm.DB
	instances *process.ProcessInstanceDao
	maps      *process.ProcessInstanceMapDao
	commands  *process.CommandDao
	publisher CommandPublisher
	logger    *zap.Logger
}

// NewService 创建子工作流服务，publisher 为空时只落库不投递
func NewService(db *gorm.DB, publisher CommandPublisher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		db:        db,
		instances: process.NewProcessInstanceDao(db),
		maps:      process.NewProcessInstanceMapDao(db),
		commands:  process.NewCommandDao(db),
		publisher: publisher,
		logger:    log,
	}
}

// FilterFailedProcessInstances 只保留失败状态的实例
func (s *Service) FilterFailedProcessInstances(subs []*process.ProcessInstance) []*process.ProcessInstance {
	failed := make([]*process.ProcessInstance, 0, len(subs))
	for _, sub := range subs {
		if sub.State.IsFailure() {
			failed = append(failed, sub)
		}
	}
	return failed
}

// GetAllSubWorkflow 查询父任务创建的全部子工作流实例
func (s *Service) GetAllSubWorkflow(ctx context.Context, parentInstanceID, parentTaskInstanceID int64) ([]*process.ProcessInstance, error) {
	return s.maps.QuerySubProcessInstances(ctx, parentInstanceID, parentTaskInstanceID)
}

// CreateSubWorkflowInstances 在一个事务中写入子实例与父子关联
func (s *Service) CreateSubWorkflowInstances(ctx context.Context, parentInstanceID, parentTaskInstanceID int64, subs []*process.ProcessInstance) error {
	return process.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		instances := s.instances.WithTx(tx)
		maps := make([]*process.ProcessInstanceMap, 0, len(subs))
		for _, sub := range subs {
			if err := instances.Insert(ctx, sub); err != nil {
				return err
			}
			maps = append(maps, &process.ProcessInstanceMap{
				ParentProcessInstanceID: parentInstanceID,
				ParentTaskInstanceID:    parentTaskInstanceID,
				ProcessInstanceID:       sub.ID,
			})
		}
		return s.maps.WithTx(tx).InsertBatch(ctx, maps)
	})
}

// StartSubWorkflow 在同一事务中写入启动命令并将实例置为 SUBMITTED_SUCCESS，提交成功后才修改 sub。
// Command 表是启动命令的唯一来源，队列投递只用于提前唤醒 master，投递失败只记录日志
func (s *Service) StartSubWorkflow(ctx context.Context, sub *process.ProcessInstance, commandType process.CommandType) error {
	cmd := &process.Command{
		CommandType:              commandType,
		ProcessDefinitionCode:    sub.ProcessDefinitionCode,
		ProcessDefinitionVersion: sub.ProcessDefinitionVersion,
		ProcessInstanceID:        sub.ID,
		CommandParam:             sub.CommandParam,
		TraceID:                  traceIDFrom(ctx),
	}

	submitted := *sub
	submitted.State = process.WorkflowSubmittedSuccess
	submitted.RunTimes++
	err := process.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.commands.WithTx(tx).Insert(ctx, cmd); err != nil {
			return err
		}
		return s.instances.WithTx(tx).UpdateByID(ctx, &submitted)
	})
	if err != nil {
		return fmt.Errorf("启动子工作流实例 %d 失败: %w", sub.ID, err)
	}
	*sub = submitted

	log := logger.WithContext(ctx, s.logger).With(
		zap.Int64("process_instance_id", sub.ID),
		zap.Int64("command_id", cmd.ID),
	)
	if s.publisher != nil {
		if err := s.publisher.EnqueueStartCommand(tasks.StartCommandPayload{
			CommandID:         cmd.ID,
			ProcessInstanceID: sub.ID,
			CommandType:       string(cmd.CommandType),
			TraceID:           cmd.TraceID,
		}); err != nil {
			log.Warn("投递启动命令失败，等待 master 扫描 Command 表", zap.Error(err))
			return nil
		}
	}

	log.Debug("子工作流实例已下发")
	return nil
}

// StopSubWorkflow 将子工作流实例置为 STOP
func (s *Service) StopSubWorkflow(ctx context.Context, sub *process.ProcessInstance) error {
	sub.State = process.WorkflowStop
	if err := s.instances.UpdateByID(ctx, sub); err != nil {
		return fmt.Errorf("停止子工作流实例 %d 失败: %w", sub.ID, err)
	}
	return nil
}

func traceIDFrom(ctx context.Context) string {
	if traceID := logger.GetTraceID(ctx); traceID != "" {
		return traceID
	}
	return uuid.NewString()
}
