package model

import "time"

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

type Task struct {
	ID          int64        `json:"id"`
	FamilyID    int64        `json:"family_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	DueDate     *time.Time   `json:"due_date"`
	Priority    TaskPriority `json:"priority"`
	Status      TaskStatus   `json:"status"`
	AssignedTo  *int64       `json:"assigned_to"`
	Points      int          `json:"points"`
	CompletedAt *time.Time   `json:"completed_at"`
	CreatedBy   *int64       `json:"created_by"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (t Task) Completed() bool {
	return t.Status == TaskCompleted
}

// Urgent reports whether an open task should surface as a notification.
func (t Task) Urgent() bool {
	return !t.Completed() && (t.Priority == PriorityHigh || t.Priority == PriorityUrgent)
}
