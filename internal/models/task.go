// internal/models/task.go
package models

import "time"

// TaskStatus defines the possible statuses for a task.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "Todo"
	StatusInProgress TaskStatus = "In-Progress"
	StatusDone       TaskStatus = "Done"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "Low"
	PriorityMedium TaskPriority = "Medium"
	PriorityHigh   TaskPriority = "High"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task represents the structure of a task in the system.
// A soft-deleted task never comes back to Active.
type Task struct {
	ID          int64        `json:"id" db:"id"`
	Title       string       `json:"title" db:"title"`
	Description string       `json:"description" db:"description"`
	Status      TaskStatus   `json:"status" db:"status"`
	Priority    TaskPriority `json:"priority" db:"priority"`
	DueDate     *time.Time   `json:"due_date,omitempty" db:"due_date"`
	ProjectID   int64        `json:"project_id" db:"project_id"`
	AssignedTo  *int64       `json:"assigned_to,omitempty" db:"assigned_to"`
	CreatedBy   int64        `json:"created_by" db:"created_by"`
	IsDeleted   bool         `json:"is_deleted" db:"is_deleted"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}

// AssigneeID returns the assignee or 0 when the task is unassigned.
func (t *Task) AssigneeID() int64 {
	if t == nil || t.AssignedTo == nil {
		return 0
	}
	return *t.AssignedTo
}

// TaskPatch is a partial update. A nil field is absent from the payload.
// A zero DueDate clears the due date.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *TaskStatus
	Priority    *TaskPriority
	DueDate     *time.Time
	AssignedTo  *int64
	ProjectID   *int64
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Priority == nil &&
		p.DueDate == nil && p.AssignedTo == nil && p.ProjectID == nil
}

// TaskFilter defines the available parameters for filtering tasks.
// Soft-deleted tasks are never listed.
type TaskFilter struct {
	AssignedTo *int64
	ProjectID  *int64
	Status     *TaskStatus
	Priority   *TaskPriority
}
