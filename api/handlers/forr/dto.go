package forr

import (
	forrSvc "forrflow/internal/forr"
	"forrflow/internal/process"
)

// PreviewRequest 预览参数组合
type PreviewRequest struct {
	Parameters    forrSvc.ForrParameters `json:"parameters"`
	PrepareParams map[string]string      `json:"prepareParams"`
}

// PreviewResponse 预览结果
type PreviewResponse struct {
	Total     int                      `json:"total"`
	Filtered  int                      `json:"filtered"`
	Truncated int                      `json:"truncated"`
	Groups    []forrSvc.ParameterGroup `json:"groups"`
}

// RunTaskResponse 已提交的扇出任务
type RunTaskResponse struct {
	TaskInstanceID int64  `json:"taskInstanceId"`
	TraceID        string `json:"traceId"`
}

// SubInstancesResponse 子工作流实例列表
type SubInstancesResponse struct {
	Items []*process.ProcessInstance `json:"items"`
	Total int                        `json:"total"`
}

// KillTaskResponse 终止结果
type KillTaskResponse struct {
	TaskInstanceID int64                       `json:"taskInstanceId"`
	State          process.TaskExecutionStatus `json:"state"`
}
