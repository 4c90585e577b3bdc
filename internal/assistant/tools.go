package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskforge/taskforge-api/internal/domain"
	"github.com/taskforge/taskforge-api/internal/platform/logger"
	"github.com/taskforge/taskforge-api/internal/service"
	"github.com/taskforge/taskforge-api/internal/store"
)

// Tool names exposed to the model.
const (
	ToolCreateTask  = "create_task"
	ToolUpdateTask  = "update_task"
	ToolDeleteTask  = "delete_task"
	ToolListTasks   = "list_tasks"
	ToolFilterTasks = "filter_tasks"
)

// MutatingTools lists the tools whose successful execution changes task
// state. Callers use this to decide whether clients need a refreshed list.
var MutatingTools = map[string]bool{
	ToolCreateTask: true,
	ToolUpdateTask: true,
	ToolDeleteTask: true,
}

// dueDateLayout is the date format the model is instructed to use.
const dueDateLayout = "2006-01-02"

// Toolbox executes the assistant's task tools against the TaskService.
// Every tool returns a result map with a "status" of "success" or "error";
// failures are results, never transport errors, so the model can read them
// and correct itself.
type Toolbox struct {
	tasks  service.TaskService
	logger *slog.Logger
}

// NewToolbox creates a Toolbox over the given TaskService.
func NewToolbox(tasks service.TaskService, log *slog.Logger) *Toolbox {
	if log == nil {
		log = slog.Default()
	}
	return &Toolbox{
		tasks:  tasks,
		logger: log.With(slog.String("component", "assistant_toolbox")),
	}
}

// Dispatch runs the named tool with the given arguments. Unknown tool names
// return an error result rather than an error, matching tool-failure
// semantics everywhere else.
func (tb *Toolbox) Dispatch(ctx context.Context, name string, args map[string]any) map[string]any {
	log := logger.FromContextOrDefault(ctx, tb.logger)
	log.Info("executing tool", slog.String("tool", name))

	var result map[string]any
	switch name {
	case ToolCreateTask:
		result = tb.createTask(ctx, args)
	case ToolUpdateTask:
		result = tb.updateTask(ctx, args)
	case ToolDeleteTask:
		result = tb.deleteTask(ctx, args)
	case ToolListTasks:
		result = tb.listTasks(ctx)
	case ToolFilterTasks:
		result = tb.filterTasks(ctx, args)
	default:
		result = errorResult(fmt.Sprintf("%v: %s", ErrUnknownTool, name))
	}

	log.Info("tool finished",
		slog.String("tool", name),
		slog.Any("status", result["status"]))
	return result
}

func (tb *Toolbox) createTask(ctx context.Context, args map[string]any) map[string]any {
	title := stringArg(args, "title")
	if title == "" {
		return errorResult("title is required")
	}

	dueDate, err := dateArg(args, "due_date")
	if err != nil {
		return errorResult("Invalid due_date format. Use YYYY-MM-DD.")
	}

	priority := domain.TaskPriority(stringArg(args, "priority"))
	if priority != "" && !priority.IsValid() {
		return errorResult(fmt.Sprintf("Invalid priority: %s. Must be one of %v.", priority, domain.TaskPriorities()))
	}

	task, err := tb.tasks.Create(ctx, service.CreateTaskParams{
		Title:       title,
		Description: stringArg(args, "description"),
		Priority:    priority,
		DueDate:     dueDate,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to create task: %v", err))
	}

	return map[string]any{
		"status":  "success",
		"message": fmt.Sprintf("Task '%s' created successfully with ID %d.", task.Title, task.ID),
		"task":    taskResult(task),
	}
}

func (tb *Toolbox) updateTask(ctx context.Context, args map[string]any) map[string]any {
	task, errMsg := tb.resolveTask(ctx, args)
	if errMsg != "" {
		return errorResult(errMsg)
	}

	params := service.UpdateTaskParams{}
	if title := stringArg(args, "new_title"); title != "" {
		params.Title = &title
	}
	if desc := stringArg(args, "new_description"); desc != "" {
		params.Description = &desc
	}
	if raw := stringArg(args, "new_status"); raw != "" {
		status := domain.TaskStatus(raw)
		if !status.IsValid() {
			return errorResult(fmt.Sprintf("Invalid status: %s. Must be one of %v.", raw, domain.TaskStatuses()))
		}
		params.Status = &status
	}
	if raw := stringArg(args, "new_priority"); raw != "" {
		priority := domain.TaskPriority(raw)
		if !priority.IsValid() {
			return errorResult(fmt.Sprintf("Invalid new_priority: %s. Must be one of %v.", raw, domain.TaskPriorities()))
		}
		params.Priority = &priority
	}
	if _, ok := args["new_due_date"]; ok {
		dueDate, err := dateArg(args, "new_due_date")
		if err != nil {
			return errorResult("Invalid new_due_date format. Use YYYY-MM-DD.")
		}
		params.DueDate = dueDate
	}

	updated, err := tb.tasks.Update(ctx, task.ID, params)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to update task: %v", err))
	}

	return map[string]any{
		"status":  "success",
		"message": fmt.Sprintf("Task '%s' updated successfully.", updated.Title),
		"task":    taskResult(updated),
	}
}

func (tb *Toolbox) deleteTask(ctx context.Context, args map[string]any) map[string]any {
	task, errMsg := tb.resolveTask(ctx, args)
	if errMsg != "" {
		return errorResult(errMsg)
	}

	if _, err := tb.tasks.Delete(ctx, task.ID); err != nil {
		return errorResult(fmt.Sprintf("Failed to delete task: %v", err))
	}

	return map[string]any{
		"status":  "success",
		"message": fmt.Sprintf("Task '%s' (ID: %d) deleted successfully.", task.Title, task.ID),
	}
}

func (tb *Toolbox) listTasks(ctx context.Context) map[string]any {
	tasks, err := tb.tasks.List(ctx, store.ListFilter{})
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to list tasks: %v", err))
	}

	return map[string]any{
		"status": "success",
		"tasks":  tasksResult(tasks),
	}
}

func (tb *Toolbox) filterTasks(ctx context.Context, args map[string]any) map[string]any {
	var filter store.ListFilter

	if raw := stringArg(args, "status"); raw != "" {
		status := domain.TaskStatus(raw)
		if !status.IsValid() {
			return errorResult(fmt.Sprintf("Invalid status for filter: %s. Must be one of %v.", raw, domain.TaskStatuses()))
		}
		filter.Status = &status
	}
	if raw := stringArg(args, "priority"); raw != "" {
		priority := domain.TaskPriority(raw)
		if !priority.IsValid() {
			return errorResult(fmt.Sprintf("Invalid priority for filter: %s. Must be one of %v.", raw, domain.TaskPriorities()))
		}
		filter.Priority = &priority
	}

	before, err := dateArg(args, "due_date_before")
	if err != nil {
		return errorResult("Invalid due_date_before format. Use YYYY-MM-DD.")
	}
	filter.DueBefore = before

	after, err := dateArg(args, "due_date_after")
	if err != nil {
		return errorResult("Invalid due_date_after format. Use YYYY-MM-DD.")
	}
	filter.DueAfter = after

	tasks, err := tb.tasks.List(ctx, filter)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to filter tasks: %v", err))
	}

	return map[string]any{
		"status": "success",
		"tasks":  tasksResult(tasks),
	}
}

// resolveTask finds the task referenced by task_id or title_match arguments.
// Returns the task, or a non-empty error message suitable for the model.
func (tb *Toolbox) resolveTask(ctx context.Context, args map[string]any) (*domain.Task, string) {
	if id, ok := intArg(args, "task_id"); ok {
		task, err := tb.tasks.Get(ctx, id)
		if err != nil {
			return nil, fmt.Sprintf("Task not found with ID %d.", id)
		}
		return task, ""
	}

	if match := stringArg(args, "title_match"); match != "" {
		task, err := tb.tasks.GetByTitleMatch(ctx, match)
		if err != nil {
			return nil, fmt.Sprintf("Task not found with ID %s.", match)
		}
		return task, ""
	}

	return nil, "Either task_id or title_match must be provided."
}

// taskResult renders a task for tool output, dates in ISO form.
func taskResult(task *domain.Task) map[string]any {
	var dueDate any
	if task.DueDate != nil {
		dueDate = task.DueDate.Format(time.RFC3339)
	}

	return map[string]any{
		"id":          task.ID,
		"title":       task.Title,
		"description": task.Description,
		"status":      string(task.Status),
		"priority":    string(task.Priority),
		"due_date":    dueDate,
		"created_at":  task.CreatedAt.Format(time.RFC3339),
		"updated_at":  task.UpdatedAt.Format(time.RFC3339),
	}
}

func tasksResult(tasks []*domain.Task) []map[string]any {
	out := make([]map[string]any, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, taskResult(task))
	}
	return out
}

func errorResult(message string) map[string]any {
	return map[string]any{
		"status":  "error",
		"message": message,
	}
}

// stringArg reads a string argument, returning "" when absent or not a string.
func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// intArg reads an integer argument. JSON decoding and model function calls
// deliver numbers as float64, so both forms are accepted.
func intArg(args map[string]any, key string) (int64, bool) {
	switch v := args[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}

// dateArg reads an optional YYYY-MM-DD argument.
func dateArg(args map[string]any, key string) (*time.Time, error) {
	raw := stringArg(args, key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dueDateLayout, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
