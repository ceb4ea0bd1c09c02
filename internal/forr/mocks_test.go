package forr

import (
	"context"

	"forrflow/internal/process"

	"github.com/stretchr/testify/mock"
)

// MockProcessInstanceStore Mock 实现
type MockProcessInstanceStore struct {
	mock.Mock
}

func (m *MockProcessInstanceStore) QueryByID(ctx context.Context, id int64) (*process.ProcessInstance, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*process.ProcessInstance), args.Error(1)
}

func (m *MockProcessInstanceStore) UpdateByID(ctx context.Context, instance *process.ProcessInstance) error {
	args := m.Called(ctx, instance)
	return args.Error(0)
}

// MockProcessDefinitionStore Mock 实现
type MockProcessDefinitionStore struct {
	mock.Mock
}

func (m *MockProcessDefinitionStore) QueryByCode(ctx context.Context, code int64) (*process.ProcessDefinition, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*process.ProcessDefinition), args.Error(1)
}

// MockSubWorkflowService Mock 实现
type MockSubWorkflowService struct {
	mock.Mock
}

func (m *MockSubWorkflowService) FilterFailedProcessInstances(subs []*process.ProcessInstance) []*process.ProcessInstance {
	args := m.Called(subs)
	return args.Get(0).([]*process.ProcessInstance)
}

func (m *MockSubWorkflowService) GetAllSubWorkflow(ctx context.Context, parentInstanceID, parentTaskInstanceID int64) ([]*process.ProcessInstance, error) {
	args := m.Called(ctx, parentInstanceID, parentTaskInstanceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*process.ProcessInstance), args.Error(1)
}

func (m *MockSubWorkflowService) CreateSubWorkflowInstances(ctx context.Context, parentInstanceID, parentTaskInstanceID int64, subs []*process.ProcessInstance) error {
	args := m.Called(ctx, parentInstanceID, parentTaskInstanceID, subs)
	return args.Error(0)
}

func (m *MockSubWorkflowService) StartSubWorkflow(ctx context.Context, sub *process.ProcessInstance, commandType process.CommandType) error {
	args := m.Called(ctx, sub, commandType)
	return args.Error(0)
}

func (m *MockSubWorkflowService) StopSubWorkflow(ctx context.Context, sub *process.ProcessInstance) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

// fakeSubWorkflow 内存实现，用于轮询相关测试
type fakeSubWorkflow struct {
	subs       []*process.ProcessInstance
	started    []int64
	startTypes []process.CommandType
	stopped    []int64
	startErr   error
}

func (f *fakeSubWorkflow) FilterFailedProcessInstances(subs []*process.ProcessInstance) []*process.ProcessInstance {
	var failed []*process.ProcessInstance
	for _, s := range subs {
		if s.State.IsFailure() {
			failed = append(failed, s)
		}
	}
	return failed
}

func (f *fakeSubWorkflow) GetAllSubWorkflow(context.Context, int64, int64) ([]*process.ProcessInstance, error) {
	return f.subs, nil
}

func (f *fakeSubWorkflow) CreateSubWorkflowInstances(_ context.Context, _, _ int64, subs []*process.ProcessInstance) error {
	for _, s := range subs {
		s.ID = int64(len(f.subs) + 1)
		f.subs = append(f.subs, s)
	}
	return nil
}

func (f *fakeSubWorkflow) StartSubWorkflow(_ context.Context, sub *process.ProcessInstance, commandType process.CommandType) error {
	if f.startErr != nil {
		return f.startErr
	}
	sub.State = process.WorkflowSubmittedSuccess
	sub.RunTimes++
	f.started = append(f.started, sub.ID)
	f.startTypes = append(f.startTypes, commandType)
	return nil
}

func (f *fakeSubWorkflow) StopSubWorkflow(_ context.Context, sub *process.ProcessInstance) error {
	sub.State = process.WorkflowStop
	f.stopped = append(f.stopped, sub.ID)
	return nil
}

func waitingSubs(n int) []*process.ProcessInstance {
	subs := make([]*process.ProcessInstance, n)
	for i := range subs {
		subs[i] = &process.ProcessInstance{ID: int64(i + 1), State: process.WorkflowWaitToRun, IsSubProcess: true}
	}
	return subs
}
