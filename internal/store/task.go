package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/taskforge/taskforge-api/internal/domain"
)

// ListFilter narrows the result set of TaskStore.List. Nil fields are
// ignored. All time bounds are inclusive.
type ListFilter struct {
	Status    *domain.TaskStatus
	Priority  *domain.TaskPriority
	DueBefore *time.Time
	DueAfter  *time.Time
}

// TaskStore defines the interface for task data persistence.
type TaskStore interface {
	// Create saves a new task to the store. The database assigns the ID and
	// the stored timestamps are written back onto the task.
	// Returns ErrInvalidEntity (wrapped) if the task fails domain validation.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Task, error)

	// GetByTitleMatch retrieves the most recently created task whose title
	// contains the given substring (case-insensitive).
	// Returns ErrTaskNotFound if no task matches.
	GetByTitleMatch(ctx context.Context, match string) (*domain.Task, error)

	// List retrieves tasks matching the filter, ordered by creation time
	// descending (newest first).
	List(ctx context.Context, filter ListFilter) ([]*domain.Task, error)

	// Update writes all mutable fields of the task back to the store.
	// Returns ErrTaskNotFound if the task does not exist.
	// Returns ErrInvalidEntity (wrapped) if the task fails domain validation.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task from the store by its ID.
	// Returns ErrTaskNotFound if the task does not exist; deleting the same
	// ID twice fails the same way.
	Delete(ctx context.Context, id int64) error

	// WithTx returns a new TaskStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller,
	// typically through RunInTransaction.
	WithTx(tx *sql.Tx) TaskStore
}
