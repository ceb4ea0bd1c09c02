package process

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("记录不存在")

// ProcessInstanceDao 工作流实例数据访问
type ProcessInstanceDao struct {
	db *gorm.DB
}

// NewProcessInstanceDao 创建 ProcessInstanceDao
func NewProcessInstanceDao(db *gorm.DB) *ProcessInstanceDao {
	return &ProcessInstanceDao{db: db}
}

// QueryByID 根据 ID 查询工作流实例
func (d *ProcessInstanceDao) QueryByID(ctx context.Context, id int64) (*ProcessInstance, error) {
	var instance ProcessInstance
	if err := d.db.WithContext(ctx).First(&instance, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("工作流实例 %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("查询工作流实例失败: %w", err)
	}
	return &instance, nil
}

// UpdateByID 按主键保存工作流实例的全部字段
func (d *ProcessInstanceDao) UpdateByID(ctx context.Context, instance *ProcessInstance) error {
	if instance.ID == 0 {
		return fmt.Errorf("更新工作流实例失败: 缺少 ID")
	}
	result := d.db.WithContext(ctx).Save(instance)
	if result.Error != nil {
		return fmt.Errorf("更新工作流实例 %d 失败: %w", instance.ID, result.Error)
	}
	return nil
}

// Insert 新增工作流实例
func (d *ProcessInstanceDao) Insert(ctx context.Context, instance *ProcessInstance) error {
	if err := d.db.WithContext(ctx).Create(instance).Error; err != nil {
		return fmt.Errorf("新增工作流实例失败: %w", err)
	}
	return nil
}

// WithTx 返回绑定到事务的 DAO
func (d *ProcessInstanceDao) WithTx(tx *gorm.DB) *ProcessInstanceDao {
	return &ProcessInstanceDao{db: tx}
}

// CountSubProcessByState 按状态统计子工作流实例数量
func (d *ProcessInstanceDao) CountSubProcessByState(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		State string
		Count int64
	}
	if err := d.db.WithContext(ctx).
		Model(&ProcessInstance{}).
		Select("state, COUNT(*) AS count").
		Where("is_sub_process = ?", true).
		Group("state").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("统计子工作流实例失败: %w", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.State] = r.Count
	}
	return counts, nil
}

// TaskInstanceDao 任务实例数据访问
type TaskInstanceDao struct {
	db *gorm.DB
}

// NewTaskInstanceDao 创建 TaskInstanceDao
func NewTaskInstanceDao(db *gorm.DB) *TaskInstanceDao {
	return &TaskInstanceDao{db: db}
}

// QueryByID 根据 ID 查询任务实例
func (d *TaskInstanceDao) QueryByID(ctx context.Context, id int64) (*TaskInstance, error) {
	var task TaskInstance
	if err := d.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("任务实例 %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("查询任务实例失败: %w", err)
	}
	return &task, nil
}

// Insert 新增任务实例
func (d *TaskInstanceDao) Insert(ctx context.Context, task *TaskInstance) error {
	if err := d.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("新增任务实例失败: %w", err)
	}
	return nil
}

// UpdateState 更新任务实例状态
func (d *TaskInstanceDao) UpdateState(ctx context.Context, id int64, state TaskExecutionStatus) error {
	updates := map[string]any{"state": state}
	if state.IsFinished() {
		updates["end_time"] = d.db.NowFunc()
	}
	result := d.db.WithContext(ctx).Model(&TaskInstance{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("更新任务实例状态失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("任务实例 %d: %w", id, ErrNotFound)
	}
	return nil
}

// FinishState 仅当任务实例尚未结束时写入终态，已结束时返回 false 且不修改
func (d *TaskInstanceDao) FinishState(ctx context.Context, id int64, state TaskExecutionStatus) (bool, error) {
	if !state.IsFinished() {
		return false, fmt.Errorf("%s 不是终态", state)
	}
	result := d.db.WithContext(ctx).Model(&TaskInstance{}).
		Where("id = ? AND state NOT IN ?", id, finishedTaskStates).
		Updates(map[string]any{"state": state, "end_time": d.db.NowFunc()})
	if result.Error != nil {
		return false, fmt.Errorf("更新任务实例状态失败: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return true, nil
	}
	if _, err := d.QueryByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// ProcessDefinitionDao 工作流定义数据访问
type ProcessDefinitionDao struct {
	db *gorm.DB
}

// NewProcessDefinitionDao 创建 ProcessDefinitionDao
func NewProcessDefinitionDao(db *gorm.DB) *ProcessDefinitionDao {
	return &ProcessDefinitionDao{db: db}
}

// QueryByCode 根据定义编码查询
func (d *ProcessDefinitionDao) QueryByCode(ctx context.Context, code int64) (*ProcessDefinition, error) {
	var def ProcessDefinition
	if err := d.db.WithContext(ctx).First(&def, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("工作流定义 %d: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("查询工作流定义失败: %w", err)
	}
	return &def, nil
}

// Insert 新增工作流定义
func (d *ProcessDefinitionDao) Insert(ctx context.Context, def *ProcessDefinition) error {
	if err := d.db.WithContext(ctx).Create(def).Error; err != nil {
		return fmt.Errorf("新增工作流定义失败: %w", err)
	}
	return nil
}

// ProcessInstanceMapDao 父子实例关联数据访问
type ProcessInstanceMapDao struct {
	db *gorm.DB
}

// NewProcessInstanceMapDao 创建 ProcessInstanceMapDao
func NewProcessInstanceMapDao(db *gorm.DB) *ProcessInstanceMapDao {
	return &ProcessInstanceMapDao{db: db}
}

// WithTx 返回绑定到事务的 DAO
func (d *ProcessInstanceMapDao) WithTx(tx *gorm.DB) *ProcessInstanceMapDao {
	return &ProcessInstanceMapDao{db: tx}
}

// InsertBatch 批量新增关联关系
func (d *ProcessInstanceMapDao) InsertBatch(ctx context.Context, maps []*ProcessInstanceMap) error {
	if len(maps) == 0 {
		return nil
	}
	if err := d.db.WithContext(ctx).CreateInBatches(maps, 100).Error; err != nil {
		return fmt.Errorf("批量新增实例关联失败: %w", err)
	}
	return nil
}

// QuerySubProcessInstances 查询某个父任务创建的全部子工作流实例，按 ID 升序
func (d *ProcessInstanceMapDao) QuerySubProcessInstances(ctx context.Context, parentInstanceID, parentTaskInstanceID int64) ([]*ProcessInstance, error) {
	var instances []*ProcessInstance
	sub := d.db.Model(&ProcessInstanceMap{}).
		Select("process_instance_id").
		Where("parent_process_instance_id = ? AND parent_task_instance_id = ?", parentInstanceID, parentTaskInstanceID)
	if err := d.db.WithContext(ctx).
		Where("id IN (?)", sub).
		Order("id ASC").
		Find(&instances).Error; err != nil {
		return nil, fmt.Errorf("查询子工作流实例失败: %w", err)
	}
	return instances, nil
}

// CommandDao 调度命令数据访问
type CommandDao struct {
	db *gorm.DB
}

// NewCommandDao 创建 CommandDao
func NewCommandDao(db *gorm.DB) *CommandDao {
	return &CommandDao{db: db}
}

// WithTx 返回绑定到事务的 DAO
func (d *CommandDao) WithTx(tx *gorm.DB) *CommandDao {
	return &CommandDao{db: tx}
}

// Insert 新增命令
func (d *CommandDao) Insert(ctx context.Context, cmd *Command) error {
	if err := d.db.WithContext(ctx).Create(cmd).Error; err != nil {
		return fmt.Errorf("新增调度命令失败: %w", err)
	}
	return nil
}

// ListByProcessInstance 查询某个实例的全部命令
func (d *CommandDao) ListByProcessInstance(ctx context.Context, processInstanceID int64) ([]*Command, error) {
	var cmds []*Command
	if err := d.db.WithContext(ctx).
		Where("process_instance_id = ?", processInstanceID).
		Order("id ASC").
		Find(&cmds).Error; err != nil {
		return nil, fmt.Errorf("查询调度命令失败: %w", err)
	}
	return cmds, nil
}

// Transaction 在同一个事务中执行 fn
func Transaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}
