package forr

import "errors"

var (
	// ErrInvalidTaskParameters 扇出参数无法解析或不合法，任务直接失败，不重试
	ErrInvalidTaskParameters = errors.New("invalid forr task parameters")

	// ErrPersistenceFailure 子工作流实例状态持久化失败
	ErrPersistenceFailure = errors.New("persist sub workflow instance failed")
)
