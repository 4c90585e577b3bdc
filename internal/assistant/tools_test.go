package assistant

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/taskforge-api/internal/domain"
	"github.com/taskforge/taskforge-api/internal/service"
	"github.com/taskforge/taskforge-api/internal/store"
)

// fakeTaskService is an in-memory service.TaskService for toolbox tests.
type fakeTaskService struct {
	mu     sync.Mutex
	nextID int64
	tasks  map[int64]domain.Task
}

func newFakeTaskService() *fakeTaskService {
	return &fakeTaskService{nextID: 1, tasks: make(map[int64]domain.Task)}
}

func (f *fakeTaskService) Create(_ context.Context, params service.CreateTaskParams) (*domain.Task, error) {
	task, err := domain.NewTask(params.Title, params.Description, params.Priority, params.DueDate)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	task.ID = f.nextID
	f.nextID++
	f.tasks[task.ID] = *task
	return task, nil
}

func (f *fakeTaskService) Get(_ context.Context, id int64) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return &task, nil
}

func (f *fakeTaskService) GetByTitleMatch(_ context.Context, match string) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id := range f.tasks {
		task := f.tasks[id]
		if strings.Contains(strings.ToLower(task.Title), strings.ToLower(match)) {
			return &task, nil
		}
	}
	return nil, store.ErrTaskNotFound
}

func (f *fakeTaskService) List(_ context.Context, filter store.ListFilter) ([]*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.Task, 0, len(f.tasks))
	for id := range f.tasks {
		task := f.tasks[id]
		if filter.Status != nil && task.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && task.Priority != *filter.Priority {
			continue
		}
		if filter.DueBefore != nil && (task.DueDate == nil || task.DueDate.After(*filter.DueBefore)) {
			continue
		}
		if filter.DueAfter != nil && (task.DueDate == nil || task.DueDate.Before(*filter.DueAfter)) {
			continue
		}
		out = append(out, &task)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeTaskService) Update(_ context.Context, id int64, params service.UpdateTaskParams) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	if params.Title != nil {
		task.Title = *params.Title
	}
	if params.Description != nil {
		task.Description = *params.Description
	}
	if params.Status != nil {
		task.Status = *params.Status
	}
	if params.Priority != nil {
		task.Priority = *params.Priority
	}
	if params.DueDate != nil {
		task.DueDate = params.DueDate
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}
	task.Touch()
	f.tasks[id] = task
	return &task, nil
}

func (f *fakeTaskService) Delete(_ context.Context, id int64) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	delete(f.tasks, id)
	return &task, nil
}

func newTestToolbox() (*Toolbox, *fakeTaskService) {
	svc := newFakeTaskService()
	return NewToolbox(svc, nil), svc
}

func TestToolboxCreateTask(t *testing.T) {
	tb, _ := newTestToolbox()

	result := tb.Dispatch(context.Background(), ToolCreateTask, map[string]any{
		"title":    "Buy milk",
		"priority": "high",
		"due_date": "2026-09-01",
	})

	require.Equal(t, "success", result["status"])
	assert.Contains(t, result["message"], "created successfully with ID 1")

	task, ok := result["task"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "high", task["priority"])
	assert.Equal(t, "todo", task["status"])
}

func TestToolboxCreateTaskMissingTitle(t *testing.T) {
	tb, _ := newTestToolbox()

	result := tb.Dispatch(context.Background(), ToolCreateTask, map[string]any{})

	assert.Equal(t, "error", result["status"])
	assert.Equal(t, "title is required", result["message"])
}

func TestToolboxCreateTaskBadDate(t *testing.T) {
	tb, svc := newTestToolbox()

	result := tb.Dispatch(context.Background(), ToolCreateTask, map[string]any{
		"title":    "Buy milk",
		"due_date": "01/09/2026",
	})

	assert.Equal(t, "error", result["status"])
	assert.Equal(t, "Invalid due_date format. Use YYYY-MM-DD.", result["message"])
	assert.Empty(t, svc.tasks, "nothing should be created on a bad date")
}

func TestToolboxCreateTaskBadPriority(t *testing.T) {
	tb, _ := newTestToolbox()

	result := tb.Dispatch(context.Background(), ToolCreateTask, map[string]any{
		"title":    "Buy milk",
		"priority": "whenever",
	})

	assert.Equal(t, "error", result["status"])
	assert.Contains(t, result["message"], "Invalid priority")
}

func TestToolboxUpdateTaskByID(t *testing.T) {
	tb, svc := newTestToolbox()
	ctx := context.Background()

	created, err := svc.Create(ctx, service.CreateTaskParams{Title: "Buy milk"})
	require.NoError(t, err)

	// Function-call arguments arrive as float64 after JSON decoding.
	result := tb.Dispatch(ctx, ToolUpdateTask, map[string]any{
		"task_id":    float64(created.ID),
		"new_status": "done",
	})

	require.Equal(t, "success", result["status"])
	stored, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusDone, stored.Status)
}

func TestToolboxUpdateTaskByTitleMatch(t *testing.T) {
	tb, svc := newTestToolbox()
	ctx := context.Background()

	created, err := svc.Create(ctx, service.CreateTaskParams{Title: "Pick up groceries"})
	require.NoError(t, err)

	result := tb.Dispatch(ctx, ToolUpdateTask, map[string]any{
		"title_match":  "groceries",
		"new_priority": "urgent",
	})

	require.Equal(t, "success", result["status"])
	stored, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskPriorityUrgent, stored.Priority)
}

func TestToolboxUpdateTaskInvalidStatus(t *testing.T) {
	tb, svc := newTestToolbox()
	ctx := context.Background()

	created, err := svc.Create(ctx, service.CreateTaskParams{Title: "Buy milk"})
	require.NoError(t, err)

	result := tb.Dispatch(ctx, ToolUpdateTask, map[string]any{
		"task_id":    float64(created.ID),
		"new_status": "paused",
	})

	assert.Equal(t, "error", result["status"])
	assert.Contains(t, result["message"], "Invalid status")
}

func TestToolboxUpdateTaskNoSelector(t *testing.T) {
	tb, _ := newTestToolbox()

	result := tb.Dispatch(context.Background(), ToolUpdateTask, map[string]any{
		"new_status": "done",
	})

	assert.Equal(t, "error", result["status"])
	assert.Equal(t, "Either task_id or title_match must be provided.", result["message"])
}

func TestToolboxDeleteTask(t *testing.T) {
	tb, svc := newTestToolbox()
	ctx := context.Background()

	created, err := svc.Create(ctx, service.CreateTaskParams{Title: "Buy milk"})
	require.NoError(t, err)

	result := tb.Dispatch(ctx, ToolDeleteTask, map[string]any{
		"task_id": float64(created.ID),
	})

	require.Equal(t, "success", result["status"])
	assert.Contains(t, result["message"], "deleted successfully")

	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestToolboxDeleteTaskNotFound(t *testing.T) {
	tb, _ := newTestToolbox()

	result := tb.Dispatch(context.Background(), ToolDeleteTask, map[string]any{
		"task_id": float64(99),
	})

	assert.Equal(t, "error", result["status"])
	assert.Contains(t, result["message"], "Task not found with ID 99")
}

func TestToolboxListTasks(t *testing.T) {
	tb, svc := newTestToolbox()
	ctx := context.Background()

	_, err := svc.Create(ctx, service.CreateTaskParams{Title: "one"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, service.CreateTaskParams{Title: "two"})
	require.NoError(t, err)

	result := tb.Dispatch(ctx, ToolListTasks, nil)

	require.Equal(t, "success", result["status"])
	tasks, ok := result["tasks"].([]map[string]any)
	require.True(t, ok)
	assert.Len(t, tasks, 2)
}

func TestToolboxFilterTasks(t *testing.T) {
	tb, svc := newTestToolbox()
	ctx := context.Background()

	due := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Create(ctx, service.CreateTaskParams{Title: "urgent one", Priority: domain.TaskPriorityUrgent, DueDate: &due})
	require.NoError(t, err)
	_, err = svc.Create(ctx, service.CreateTaskParams{Title: "low one", Priority: domain.TaskPriorityLow})
	require.NoError(t, err)

	result := tb.Dispatch(ctx, ToolFilterTasks, map[string]any{"priority": "urgent"})

	require.Equal(t, "success", result["status"])
	tasks, ok := result["tasks"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, tasks, 1)
	assert.Equal(t, "urgent one", tasks[0]["title"])
}

func TestToolboxFilterTasksBadDate(t *testing.T) {
	tb, _ := newTestToolbox()

	result := tb.Dispatch(context.Background(), ToolFilterTasks, map[string]any{
		"due_date_before": "next week",
	})

	assert.Equal(t, "error", result["status"])
	assert.Equal(t, "Invalid due_date_before format. Use YYYY-MM-DD.", result["message"])
}

func TestToolboxFilterTasksBadStatus(t *testing.T) {
	tb, _ := newTestToolbox()

	result := tb.Dispatch(context.Background(), ToolFilterTasks, map[string]any{
		"status": "archived",
	})

	assert.Equal(t, "error", result["status"])
	assert.Contains(t, result["message"], "Invalid status for filter")
}

func TestToolboxUnknownTool(t *testing.T) {
	tb, _ := newTestToolbox()

	result := tb.Dispatch(context.Background(), "summon_demon", nil)

	assert.Equal(t, "error", result["status"])
	assert.Contains(t, result["message"], "summon_demon")
}

func TestMutatingTools(t *testing.T) {
	assert.True(t, MutatingTools[ToolCreateTask])
	assert.True(t, MutatingTools[ToolUpdateTask])
	assert.True(t, MutatingTools[ToolDeleteTask])
	assert.False(t, MutatingTools[ToolListTasks])
	assert.False(t, MutatingTools[ToolFilterTasks])
}
