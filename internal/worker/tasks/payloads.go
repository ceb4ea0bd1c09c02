package tasks

// Task Types
const (
	TypeForrHandle           = "forr:handle"
	TypeForrCheck            = "forr:check"
	TypeWorkflowStartCommand = "workflow:start_command"
)

// Queues
const (
	QueueForr     = "forr"
	QueueWorkflow = "workflow"
)

// ForrHandlePayload 扇出任务执行载荷
type ForrHandlePayload struct {
	TaskInstanceID int64  `json:"task_instance_id"`
	TraceID        string `json:"trace_id,omitempty"`
}

// ForrCheckPayload 扇出任务状态轮询载荷
type ForrCheckPayload struct {
	TaskInstanceID int64  `json:"task_instance_id"`
	Attempt        int    `json:"attempt"`
	TraceID        string `json:"trace_id,omitempty"`
}

// StartCommandPayload 子工作流启动命令载荷，由 master 消费
type StartCommandPayload struct {
	CommandID         int64  `json:"command_id"`
	ProcessInstanceID int64  `json:"process_instance_id"`
	CommandType       string `json:"command_type"`
	TraceID           string `json:"trace_id,omitempty"`
}
