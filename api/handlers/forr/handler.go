package forr

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"forrflow/api/handlers/common"
	forrSvc "forrflow/internal/forr"
	"forrflow/internal/logger"
	"forrflow/internal/process"
	"forrflow/internal/worker/tasks"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TaskEnqueuer 投递扇出任务
type TaskEnqueuer interface {
	EnqueueForrHandle(payload tasks.ForrHandlePayload) error
}

// SubWorkflowLister 查询子工作流实例
type SubWorkflowLister interface {
	GetAllSubWorkflow(ctx context.Context, parentInstanceID, parentTaskInstanceID int64) ([]*process.ProcessInstance, error)
}

// Handler forr 任务 Handler
type Handler struct {
	factory     *forrSvc.Factory
	subWorkflow SubWorkflowLister
	queue       TaskEnqueuer
	logger      *zap.Logger
}

// NewHandler 创建 Handler
func NewHandler(factory *forrSvc.Factory, subWorkflow SubWorkflowLister, queue TaskEnqueuer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{factory: factory, subWorkflow: subWorkflow, queue: queue, logger: logger}
}

// Preview 预览参数组合
// @Summary 预览参数组合
// @Description 展开并过滤参数，返回将要创建的子工作流参数组，不落库
// @Tags Forr
// @Accept json
// @Produce json
// @Param request body PreviewRequest true "forr 参数"
// @Success 200 {object} common.APIResponse
// @Failure 400 {object} common.ErrorResponse
// @Router /api/forr/preview [post]
func (h *Handler) Preview(c *gin.Context) {
	var req PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, "INVALID_REQUEST", "请求参数错误: "+err.Error())
		return
	}

	opts := h.factory.Options()
	groups, total, err := forrSvc.GenerateGroups(&req.Parameters, req.PrepareParams, opts.MaxProductSize)
	if err != nil {
		h.writeError(c, err)
		return
	}

	limit := opts.MaxSubWorkflowInstances
	if req.Parameters.MaxNumOfSubWorkflowInstances > 0 {
		limit = req.Parameters.MaxNumOfSubWorkflowInstances
	}
	resp := PreviewResponse{Total: total, Filtered: total - len(groups)}
	if limit > 0 && len(groups) > limit {
		resp.Truncated = len(groups) - limit
		groups = groups[:limit]
	}
	resp.Groups = groups
	if resp.Groups == nil {
		resp.Groups = []forrSvc.ParameterGroup{}
	}

	common.Success(c, resp)
}

// RunTask 提交扇出任务
// @Summary 提交扇出任务
// @Description 将 forr 任务实例投递到队列，由 worker 创建或重置子工作流实例
// @Tags Forr
// @Produce json
// @Param id path int true "任务实例ID"
// @Success 202 {object} common.APIResponse
// @Failure 400 {object} common.ErrorResponse
// @Failure 404 {object} common.ErrorResponse
// @Failure 409 {object} common.ErrorResponse
// @Router /api/forr/tasks/{id}/run [post]
func (h *Handler) RunTask(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}

	task, err := h.factory.Tasks().QueryByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if task.TaskType != forrSvc.TaskTypeForr {
		common.Fail(c, http.StatusBadRequest, "INVALID_TASK_TYPE", "任务类型不是 FORR")
		return
	}
	// 已在轮询中的任务再次投递会产生第二条轮询链
	if task.State == process.TaskRunningExecution {
		common.Fail(c, http.StatusConflict, "TASK_RUNNING", "扇出任务正在执行")
		return
	}

	traceID := logger.GetTraceID(c.Request.Context())
	if traceID == "" {
		traceID = uuid.NewString()
	}
	if err := h.queue.EnqueueForrHandle(tasks.ForrHandlePayload{TaskInstanceID: id, TraceID: traceID}); err != nil {
		logger.WithContext(c.Request.Context(), h.logger).
			Error("投递扇出任务失败", zap.Int64("task_instance_id", id), zap.Error(err))
		common.Fail(c, http.StatusInternalServerError, "ENQUEUE_FAILED", "投递扇出任务失败")
		return
	}

	c.JSON(http.StatusAccepted, common.APIResponse{
		Success: true,
		Message: "扇出任务已提交",
		Data:    RunTaskResponse{TaskInstanceID: id, TraceID: traceID},
	})
}

// ListSubInstances 查询子工作流实例
// @Summary 查询子工作流实例
// @Tags Forr
// @Produce json
// @Param id path int true "任务实例ID"
// @Success 200 {object} common.APIResponse
// @Failure 404 {object} common.ErrorResponse
// @Router /api/forr/tasks/{id}/sub-instances [get]
func (h *Handler) ListSubInstances(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	task, err := h.factory.Tasks().QueryByID(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	subs, err := h.subWorkflow.GetAllSubWorkflow(ctx, task.ProcessInstanceID, task.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if subs == nil {
		subs = []*process.ProcessInstance{}
	}

	common.Success(c, SubInstancesResponse{Items: subs, Total: len(subs)})
}

// KillTask 终止扇出任务
// @Summary 终止扇出任务
// @Description 停止全部未结束的子工作流实例，并将父任务置为 KILL
// @Tags Forr
// @Produce json
// @Param id path int true "任务实例ID"
// @Success 200 {object} common.APIResponse
// @Failure 404 {object} common.ErrorResponse
// @Failure 409 {object} common.ErrorResponse
// @Router /api/forr/tasks/{id}/kill [post]
func (h *Handler) KillTask(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	task, logic, err := h.factory.Load(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if task.State.IsFinished() {
		common.Fail(c, http.StatusConflict, "TASK_FINISHED", "扇出任务已结束: "+string(task.State))
		return
	}
	status, err := logic.AsyncFunction().Kill(ctx)
	if err != nil {
		h.writeError(c, err)
		return
	}
	applied, err := h.factory.Tasks().FinishState(ctx, id, status)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !applied {
		// 轮询已先一步写入终态，以库中状态为准
		current, err := h.factory.Tasks().QueryByID(ctx, id)
		if err != nil {
			h.writeError(c, err)
			return
		}
		status = current.State
	}

	common.Success(c, KillTaskResponse{TaskInstanceID: id, State: status})
}

func parseTaskID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		common.Fail(c, http.StatusBadRequest, "INVALID_ID", "任务实例ID不合法")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, process.ErrNotFound):
		common.Fail(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, forrSvc.ErrInvalidTaskParameters):
		common.Fail(c, http.StatusBadRequest, "INVALID_TASK_PARAMETERS", err.Error())
	default:
		logger.WithContext(c.Request.Context(), h.logger).Error("forr 请求处理失败", zap.Error(err))
		common.Fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}
