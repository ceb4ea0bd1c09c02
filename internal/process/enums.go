package process

// CommandType 命令类型，记录工作流实例被触发的原因
type CommandType string

const (
	CommandStartProcess                 CommandType = "START_PROCESS"
	CommandStartCurrentTaskProcess      CommandType = "START_CURRENT_TASK_PROCESS"
	CommandRecoverToleranceFaultProcess CommandType = "RECOVER_TOLERANCE_FAULT_PROCESS"
	CommandRecoverSuspendedProcess      CommandType = "RECOVER_SUSPENDED_PROCESS"
	CommandStartFailureTaskProcess      CommandType = "START_FAILURE_TASK_PROCESS"
	CommandComplementData               CommandType = "COMPLEMENT_DATA"
	CommandScheduler                    CommandType = "SCHEDULER"
	CommandRepeatRunning                CommandType = "REPEAT_RUNNING"
	CommandPause                        CommandType = "PAUSE"
	CommandStop                         CommandType = "STOP"
	CommandRecoverWaitingThread         CommandType = "RECOVER_WAITING_THREAD"
	CommandRecoverSerialWait            CommandType = "RECOVER_SERIAL_WAIT"
	CommandExecuteTask                  CommandType = "EXECUTE_TASK"
	CommandDynamicGeneration            CommandType = "DYNAMIC_GENERATION"
)

// WorkflowExecutionStatus 工作流实例状态
type WorkflowExecutionStatus string

const (
	WorkflowSubmittedSuccess WorkflowExecutionStatus = "SUBMITTED_SUCCESS"
	WorkflowRunningExecution WorkflowExecutionStatus = "RUNNING_EXECUTION"
	WorkflowReadyPause       WorkflowExecutionStatus = "READY_PAUSE"
	WorkflowPause            WorkflowExecutionStatus = "PAUSE"
	WorkflowReadyStop        WorkflowExecutionStatus = "READY_STOP"
	WorkflowStop             WorkflowExecutionStatus = "STOP"
	WorkflowFailure          WorkflowExecutionStatus = "FAILURE"
	WorkflowSuccess          WorkflowExecutionStatus = "SUCCESS"
	WorkflowDelayExecution   WorkflowExecutionStatus = "DELAY_EXECUTION"
	WorkflowSerialWait       WorkflowExecutionStatus = "SERIAL_WAIT"
	WorkflowReadyBlock       WorkflowExecutionStatus = "READY_BLOCK"
	WorkflowBlock            WorkflowExecutionStatus = "BLOCK"
	WorkflowWaitToRun        WorkflowExecutionStatus = "WAIT_TO_RUN"
)

// IsFinished 是否已进入终态
func (s WorkflowExecutionStatus) IsFinished() bool {
	switch s {
	case WorkflowSuccess, WorkflowFailure, WorkflowStop, WorkflowPause:
		return true
	}
	return false
}

// IsSuccess 是否成功
func (s WorkflowExecutionStatus) IsSuccess() bool {
	return s == WorkflowSuccess
}

// IsFailure 是否失败
func (s WorkflowExecutionStatus) IsFailure() bool {
	return s == WorkflowFailure
}

// TaskExecutionStatus 任务实例状态
type TaskExecutionStatus string

const (
	TaskSubmittedSuccess TaskExecutionStatus = "SUBMITTED_SUCCESS"
	TaskRunningExecution TaskExecutionStatus = "RUNNING_EXECUTION"
	TaskSuccess          TaskExecutionStatus = "SUCCESS"
	TaskFailure          TaskExecutionStatus = "FAILURE"
	TaskKill             TaskExecutionStatus = "KILL"
)

// finishedTaskStates 任务实例的全部终态
var finishedTaskStates = []TaskExecutionStatus{TaskSuccess, TaskFailure, TaskKill}

// IsFinished 是否已进入终态
func (s TaskExecutionStatus) IsFinished() bool {
	return s == TaskSuccess || s == TaskFailure || s == TaskKill
}
