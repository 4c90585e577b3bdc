// Package service contains the application services that orchestrate domain
// entities, stores and outbound notifications.
package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskforge/taskforge-api/internal/domain"
	"github.com/taskforge/taskforge-api/internal/platform/logger"
	"github.com/taskforge/taskforge-api/internal/store"
)

// Broadcaster pushes the current task list to connected clients after a
// mutation. The WebSocket hub implements this; a nil broadcaster disables
// live updates.
type Broadcaster interface {
	BroadcastTaskList(ctx context.Context, tasks []*domain.Task)
}

// CreateTaskParams carries the caller-supplied fields for a new task.
// Priority defaults to medium when empty; status always starts as todo.
type CreateTaskParams struct {
	Title       string
	Description string
	Priority    domain.TaskPriority
	DueDate     *time.Time
}

// UpdateTaskParams carries a partial update. Nil fields are left unchanged.
type UpdateTaskParams struct {
	Title       *string
	Description *string
	Status      *domain.TaskStatus
	Priority    *domain.TaskPriority
	DueDate     *time.Time
}

// TaskService exposes the task CRUD operations used by both the HTTP API and
// the assistant's tools. All mutations refresh UpdatedAt and trigger a task
// list broadcast on success.
type TaskService interface {
	Create(ctx context.Context, params CreateTaskParams) (*domain.Task, error)
	Get(ctx context.Context, id int64) (*domain.Task, error)
	GetByTitleMatch(ctx context.Context, match string) (*domain.Task, error)
	List(ctx context.Context, filter store.ListFilter) ([]*domain.Task, error)
	Update(ctx context.Context, id int64, params UpdateTaskParams) (*domain.Task, error)
	Delete(ctx context.Context, id int64) (*domain.Task, error)
}

type taskService struct {
	db          *sql.DB
	tasks       store.TaskStore
	broadcaster Broadcaster
	logger      *slog.Logger
}

// NewTaskService creates a TaskService backed by the given store.
// The db handle drives transactions for read-modify-write operations; a nil
// db runs them non-transactionally (in-memory stores in tests).
// The broadcaster may be nil, in which case no live updates are sent.
func NewTaskService(db *sql.DB, tasks store.TaskStore, broadcaster Broadcaster, log *slog.Logger) TaskService {
	if log == nil {
		log = slog.Default()
	}
	return &taskService{
		db:          db,
		tasks:       tasks,
		broadcaster: broadcaster,
		logger:      log.With(slog.String("component", "task_service")),
	}
}

// inTx runs fn against a transactional view of the task store when a db
// handle is present, and directly against the store otherwise.
func (s *taskService) inTx(ctx context.Context, fn func(tasks store.TaskStore) error) error {
	if s.db == nil {
		return fn(s.tasks)
	}
	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(s.tasks.WithTx(tx))
	})
}

// Create validates the parameters, persists a new task and broadcasts the
// updated list. The store assigns the task's ID.
func (s *taskService) Create(ctx context.Context, params CreateTaskParams) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := domain.NewTask(params.Title, params.Description, params.Priority, params.DueDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	log.Info("task created",
		slog.Int64("task_id", task.ID),
		slog.String("status", string(task.Status)),
		slog.String("priority", string(task.Priority)))

	s.notifyChanged(ctx)
	return task, nil
}

// Get retrieves a task by ID.
func (s *taskService) Get(ctx context.Context, id int64) (*domain.Task, error) {
	return s.tasks.GetByID(ctx, id)
}

// GetByTitleMatch retrieves the newest task whose title contains the given
// substring. Used by the assistant when the user refers to a task by name.
func (s *taskService) GetByTitleMatch(ctx context.Context, match string) (*domain.Task, error) {
	return s.tasks.GetByTitleMatch(ctx, match)
}

// List retrieves tasks matching the filter, newest first.
func (s *taskService) List(ctx context.Context, filter store.ListFilter) ([]*domain.Task, error) {
	return s.tasks.List(ctx, filter)
}

// Update applies a partial update to an existing task. Validation happens
// before anything is written, so an invalid patch leaves the stored record
// untouched.
func (s *taskService) Update(ctx context.Context, id int64, params UpdateTaskParams) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var task *domain.Task
	err := s.inTx(ctx, func(tasks store.TaskStore) error {
		var err error
		task, err = tasks.GetByID(ctx, id)
		if err != nil {
			return err
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
		task.Touch()

		if err := task.Validate(); err != nil {
			return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}

		return tasks.Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	log.Info("task updated", slog.Int64("task_id", task.ID))

	s.notifyChanged(ctx)
	return task, nil
}

// Delete removes a task by ID and returns the deleted task so callers can
// reference it in responses.
func (s *taskService) Delete(ctx context.Context, id int64) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var task *domain.Task
	err := s.inTx(ctx, func(tasks store.TaskStore) error {
		var err error
		task, err = tasks.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return tasks.Delete(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	log.Info("task deleted", slog.Int64("task_id", id))

	s.notifyChanged(ctx)
	return task, nil
}

// notifyChanged pushes the full ordered task list to the broadcaster.
// Broadcast failures must never fail the mutation that triggered them.
func (s *taskService) notifyChanged(ctx context.Context) {
	if s.broadcaster == nil {
		return
	}

	tasks, err := s.tasks.List(ctx, store.ListFilter{})
	if err != nil {
		s.logger.Error("failed to load task list for broadcast", "error", err)
		return
	}

	s.broadcaster.BroadcastTaskList(ctx, tasks)
}
