package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"forrflow/internal/forr"
	"forrflow/internal/infra/lock"
	"forrflow/internal/process"
	"forrflow/internal/subworkflow"
	"forrflow/internal/worker/tasks"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

const forrTaskParams = `{
	"processDefinitionCode": 42,
	"listParameters": [
		{"name": "param1", "value": "a,b,c", "separator": ","},
		{"name": "param2", "value": "1,2,3", "separator": ","}
	],
	"filterCondition": "b,2",
	"degreeOfParallelism": 2
}`

type recordingScheduler struct {
	checks []tasks.ForrCheckPayload
	delays []time.Duration
}

func (s *recordingScheduler) EnqueueForrCheck(payload tasks.ForrCheckPayload, delay time.Duration) error {
	s.checks = append(s.checks, payload)
	s.delays = append(s.delays, delay)
	return nil
}

type fakeLocker struct {
	held     bool
	err      error
	released int
}

func (l *fakeLocker) Acquire(_ context.Context, key string) (func(context.Context) error, error) {
	if l.err != nil {
		return nil, l.err
	}
	if l.held {
		return nil, fmt.Errorf("%w: %s", lock.ErrLockHeld, key)
	}
	return func(context.Context) error {
		l.released++
		return nil
	}, nil
}

type handlerFixture struct {
	db        *gorm.DB
	handler   *ForrHandler
	scheduler *recordingScheduler
	locker    *fakeLocker
	task      *process.TaskInstance
}

func newHandlerFixture(t *testing.T, taskParams string) *handlerFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:forr_handler_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(process.AllModels()...))

	ctx := context.Background()
	require.NoError(t, process.NewProcessDefinitionDao(db).Insert(ctx, &process.ProcessDefinition{Code: 42, Version: 1, Name: "child"}))
	parent := &process.ProcessInstance{Name: "parent", ProcessDefinitionCode: 1, State: process.WorkflowRunningExecution, CommandType: process.CommandStartProcess}
	require.NoError(t, process.NewProcessInstanceDao(db).Insert(ctx, parent))
	task := &process.TaskInstance{
		Name:              "fanout",
		TaskCode:          7,
		TaskType:          forr.TaskTypeForr,
		ProcessInstanceID: parent.ID,
		State:             process.TaskSubmittedSuccess,
		TaskParams:        taskParams,
	}
	taskDao := process.NewTaskInstanceDao(db)
	require.NoError(t, taskDao.Insert(ctx, task))

	log := zaptest.NewLogger(t)
	factory := forr.NewFactory(taskDao, forr.Collaborators{
		Instances:   process.NewProcessInstanceDao(db),
		Definitions: process.NewProcessDefinitionDao(db),
		SubWorkflow: subworkflow.NewService(db, nil, log),
	}, forr.DefaultOptions(), log)

	scheduler := &recordingScheduler{}
	locker := &fakeLocker{}
	return &handlerFixture{
		db:        db,
		handler:   NewForrHandler(factory, scheduler, locker, time.Second, log),
		scheduler: scheduler,
		locker:    locker,
		task:      task,
	}
}

func (f *handlerFixture) taskState(t *testing.T) process.TaskExecutionStatus {
	t.Helper()
	task, err := process.NewTaskInstanceDao(f.db).QueryByID(context.Background(), f.task.ID)
	require.NoError(t, err)
	return task.State
}

func (f *handlerFixture) subs(t *testing.T) []*process.ProcessInstance {
	t.Helper()
	subs, err := process.NewProcessInstanceMapDao(f.db).QuerySubProcessInstances(context.Background(), f.task.ProcessInstanceID, f.task.ID)
	require.NoError(t, err)
	return subs
}

func handleTask(t *testing.T, id int64) *asynq.Task {
	payload, err := json.Marshal(tasks.ForrHandlePayload{TaskInstanceID: id, TraceID: "trace-1"})
	require.NoError(t, err)
	return asynq.NewTask(tasks.TypeForrHandle, payload)
}

func checkTask(t *testing.T, id int64, attempt int) *asynq.Task {
	payload, err := json.Marshal(tasks.ForrCheckPayload{TaskInstanceID: id, Attempt: attempt})
	require.NoError(t, err)
	return asynq.NewTask(tasks.TypeForrCheck, payload)
}

func TestForrHandlerHandleForrTask_CreatesSubInstances(t *testing.T) {
	f := newHandlerFixture(t, forrTaskParams)

	require.NoError(t, f.handler.HandleForrTask(context.Background(), handleTask(t, f.task.ID)))

	subs := f.subs(t)
	require.Len(t, subs, 4)
	for _, sub := range subs {
		assert.Equal(t, process.WorkflowWaitToRun, sub.State)
		assert.True(t, sub.IsSubProcess)
	}
	assert.Equal(t, process.TaskRunningExecution, f.taskState(t))
	require.Len(t, f.scheduler.checks, 1)
	assert.Equal(t, 1, f.scheduler.checks[0].Attempt)
	assert.Equal(t, "trace-1", f.scheduler.checks[0].TraceID)
	assert.Equal(t, time.Second, f.scheduler.delays[0])
	assert.Equal(t, 1, f.locker.released)
}

func TestForrHandlerHandleForrTask_LockHeld(t *testing.T) {
	f := newHandlerFixture(t, forrTaskParams)
	f.locker.held = true

	require.NoError(t, f.handler.HandleForrTask(context.Background(), handleTask(t, f.task.ID)))
	assert.Empty(t, f.subs(t))
	assert.Empty(t, f.scheduler.checks)
}

func TestForrHandlerHandleForrTask_InvalidParamsSkipRetry(t *testing.T) {
	f := newHandlerFixture(t, `{"listParameters": "oops"}`)

	err := f.handler.HandleForrTask(context.Background(), handleTask(t, f.task.ID))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	assert.Equal(t, process.TaskFailure, f.taskState(t))
	assert.Empty(t, f.scheduler.checks)
}

func TestForrHandlerHandleForrTask_MissingTask(t *testing.T) {
	f := newHandlerFixture(t, forrTaskParams)

	err := f.handler.HandleForrTask(context.Background(), handleTask(t, 999))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestForrHandlerHandleForrTask_InvalidPayload(t *testing.T) {
	f := newHandlerFixture(t, forrTaskParams)

	err := f.handler.HandleForrTask(context.Background(), asynq.NewTask(tasks.TypeForrHandle, []byte("not-json")))
	require.Error(t, err)
	assert.Empty(t, f.subs(t))
}

func TestForrHandlerHandleForrCheck_DispatchesAndCompletes(t *testing.T) {
	f := newHandlerFixture(t, forrTaskParams)
	ctx := context.Background()
	require.NoError(t, f.handler.HandleForrTask(ctx, handleTask(t, f.task.ID)))

	require.NoError(t, f.handler.HandleForrCheck(ctx, checkTask(t, f.task.ID, 1)))

	submitted := 0
	for _, sub := range f.subs(t) {
		if sub.State == process.WorkflowSubmittedSuccess {
			submitted++
		}
	}
	assert.Equal(t, 2, submitted)
	require.Len(t, f.scheduler.checks, 2)
	assert.Equal(t, 2, f.scheduler.checks[1].Attempt)
	assert.Equal(t, process.TaskRunningExecution, f.taskState(t))

	instances := process.NewProcessInstanceDao(f.db)
	for _, sub := range f.subs(t) {
		sub.State = process.WorkflowSuccess
		require.NoError(t, instances.UpdateByID(ctx, sub))
	}

	require.NoError(t, f.handler.HandleForrCheck(ctx, checkTask(t, f.task.ID, 2)))
	assert.Equal(t, process.TaskSuccess, f.taskState(t))
	assert.Len(t, f.scheduler.checks, 2)
}

func TestForrHandlerHandleForrCheck_FinishedTaskStopsPolling(t *testing.T) {
	f := newHandlerFixture(t, forrTaskParams)
	ctx := context.Background()
	require.NoError(t, process.NewTaskInstanceDao(f.db).UpdateState(ctx, f.task.ID, process.TaskKill))

	require.NoError(t, f.handler.HandleForrCheck(ctx, checkTask(t, f.task.ID, 3)))
	assert.Empty(t, f.scheduler.checks)
	assert.Equal(t, process.TaskKill, f.taskState(t))
}

func TestForrHandlerHandleForrTask_LockErrorIsRetried(t *testing.T) {
	f := newHandlerFixture(t, forrTaskParams)
	f.locker.err = errors.New("dial tcp: connection refused")

	err := f.handler.HandleForrTask(context.Background(), handleTask(t, f.task.ID))
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
	assert.Empty(t, f.subs(t))
	assert.Equal(t, process.TaskSubmittedSuccess, f.taskState(t))
}

func TestForrHandlerHandleForrCheck_DuplicateChainDropped(t *testing.T) {
	f := newHandlerFixture(t, forrTaskParams)
	ctx := context.Background()
	require.NoError(t, f.handler.HandleForrTask(ctx, handleTask(t, f.task.ID)))

	f.locker.held = true
	require.NoError(t, f.handler.HandleForrCheck(ctx, checkTask(t, f.task.ID, 1)))

	for _, sub := range f.subs(t) {
		assert.Equal(t, process.WorkflowWaitToRun, sub.State)
	}
	var cmds int64
	require.NoError(t, f.db.Model(&process.Command{}).Count(&cmds).Error)
	assert.Zero(t, cmds)
	assert.Len(t, f.scheduler.checks, 1)
}

func TestForrHandlerHandleForrCheck_LockErrorIsRetried(t *testing.T) {
	f := newHandlerFixture(t, forrTaskParams)
	ctx := context.Background()
	require.NoError(t, f.handler.HandleForrTask(ctx, handleTask(t, f.task.ID)))

	f.locker.err = errors.New("i/o timeout")
	err := f.handler.HandleForrCheck(ctx, checkTask(t, f.task.ID, 1))
	require.Error(t, err)
	assert.Len(t, f.scheduler.checks, 1)
}
