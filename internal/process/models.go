package process

import (
	"time"

	"gorm.io/datatypes"
)

// ProcessDefinition 工作流定义（只保留扇出任务需要的字段）
type ProcessDefinition struct {
	ID          int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Code        int64  `json:"code" gorm:"not null;uniqueIndex"`
	Version     int    `json:"version" gorm:"not null;default:1"`
	Name        string `json:"name" gorm:"size:255;not null"`
	ProjectCode int64  `json:"projectCode" gorm:"index"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

// ProcessInstance 工作流实例，子工作流实例同样使用该结构
type ProcessInstance struct {
	ID                       int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Name                     string `json:"name" gorm:"size:255"`
	ProcessDefinitionCode    int64  `json:"processDefinitionCode" gorm:"not null;index"`
	ProcessDefinitionVersion int    `json:"processDefinitionVersion" gorm:"not null;default:1"`

	// 状态
	State       WorkflowExecutionStatus `json:"state" gorm:"size:50;not null;default:SUBMITTED_SUCCESS"`
	CommandType CommandType             `json:"commandType" gorm:"size:50"`

	// 启动参数，子工作流实例中保存本次扇出的参数组
	CommandParam datatypes.JSONMap `json:"commandParam"`

	IsSubProcess bool   `json:"isSubProcess" gorm:"not null;default:false"`
	VarPool      string `json:"varPool" gorm:"type:text"`
	Host         string `json:"host" gorm:"size:255"`
	RunTimes     int    `json:"runTimes" gorm:"default:0"`

	StartTime *time.Time `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

// TaskInstance 任务实例
type TaskInstance struct {
	ID                int64               `json:"id" gorm:"primaryKey;autoIncrement"`
	Name              string              `json:"name" gorm:"size:255"`
	TaskCode          int64               `json:"taskCode" gorm:"not null;index"`
	TaskType          string              `json:"taskType" gorm:"size:50;not null"`
	ProcessInstanceID int64               `json:"processInstanceId" gorm:"not null;index"`
	State             TaskExecutionStatus `json:"state" gorm:"size:50;not null;default:SUBMITTED_SUCCESS"`

	// 任务参数（JSON 文本），forr 任务对应 ForrParameters
	TaskParams string `json:"taskParams" gorm:"type:text"`
	VarPool    string `json:"varPool" gorm:"type:text"`
	Host       string `json:"host" gorm:"size:255"`

	StartTime *time.Time `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

// ProcessInstanceMap 父任务与子工作流实例的关联关系
type ProcessInstanceMap struct {
	ID                      int64 `json:"id" gorm:"primaryKey;autoIncrement"`
	ParentProcessInstanceID int64 `json:"parentProcessInstanceId" gorm:"not null;index:idx_parent_task"`
	ParentTaskInstanceID    int64 `json:"parentTaskInstanceId" gorm:"not null;index:idx_parent_task"`
	ProcessInstanceID       int64 `json:"processInstanceId" gorm:"not null;uniqueIndex"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
}

// Command 调度命令，由 master 消费后启动工作流实例
type Command struct {
	ID                       int64             `json:"id" gorm:"primaryKey;autoIncrement"`
	CommandType              CommandType       `json:"commandType" gorm:"size:50;not null"`
	ProcessDefinitionCode    int64             `json:"processDefinitionCode" gorm:"not null"`
	ProcessDefinitionVersion int               `json:"processDefinitionVersion" gorm:"not null;default:1"`
	ProcessInstanceID        int64             `json:"processInstanceId" gorm:"index"`
	CommandParam             datatypes.JSONMap `json:"commandParam"`
	Priority                 int               `json:"priority" gorm:"default:0"`
	TraceID                  string            `json:"traceId" gorm:"size:100;index"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

// AllModels 返回需要自动迁移的模型
func AllModels() []any {
	return []any{
		&ProcessDefinition{},
		&ProcessInstance{},
		&TaskInstance{},
		&ProcessInstanceMap{},
		&Command{},
	}
}
