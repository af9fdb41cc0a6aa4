package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/hearthboard/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

// TaskParams carries the editable fields of a task.
type TaskParams struct {
	Title       string
	Description string
	DueDate     *time.Time
	Priority    model.TaskPriority
	Status      model.TaskStatus
	AssignedTo  *int64
	Points      int
}

const taskCols = `id, family_id, title, description, due_date, priority, status, assigned_to, points, completed_at, created_by, created_at, updated_at`

func scanTask(s scanner) (*model.Task, error) {
	var t model.Task
	var dueDate, completedAt sql.NullTime
	var assignedTo, createdBy sql.NullInt64

	err := s.Scan(
		&t.ID, &t.FamilyID, &t.Title, &t.Description, &dueDate, &t.Priority, &t.Status,
		&assignedTo, &t.Points, &completedAt, &createdBy, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if dueDate.Valid {
		t.DueDate = &dueDate.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	t.AssignedTo = int64Ptr(assignedTo)
	t.CreatedBy = int64Ptr(createdBy)
	return &t, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func (s *TaskStore) Create(ctx context.Context, familyID int64, createdBy *int64, p TaskParams) (*model.Task, error) {
	if p.Priority == "" {
		p.Priority = model.PriorityMedium
	}
	if p.Status == "" {
		p.Status = model.TaskPending
	}

	var completedAt sql.NullTime
	if p.Status == model.TaskCompleted {
		completedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (family_id, title, description, due_date, priority, status, assigned_to, points, completed_at, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		familyID, p.Title, p.Description, nullTime(p.DueDate), p.Priority, p.Status,
		nullInt64(p.AssignedTo), p.Points, completedAt, nullInt64(createdBy),
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *TaskStore) GetByID(ctx context.Context, id int64) (*model.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *TaskStore) query(ctx context.Context, query string, args ...any) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// ListByFamily returns the family's tasks, undated tasks last.
func (s *TaskStore) ListByFamily(ctx context.Context, familyID int64) ([]model.Task, error) {
	tasks, err := s.query(ctx,
		`SELECT `+taskCols+` FROM tasks WHERE family_id = ?
		 ORDER BY due_date IS NULL, due_date ASC, id ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ListForAssigneeDueFrom returns the member's tasks due at or after from,
// earliest first. Undated tasks are not included.
func (s *TaskStore) ListForAssigneeDueFrom(ctx context.Context, memberID int64, from time.Time) ([]model.Task, error) {
	tasks, err := s.query(ctx,
		`SELECT `+taskCols+` FROM tasks WHERE assigned_to = ? AND due_date >= ?
		 ORDER BY due_date ASC, id ASC`,
		memberID, from.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks for assignee: %w", err)
	}
	return tasks, nil
}

func (s *TaskStore) Update(ctx context.Context, id int64, p TaskParams) (*model.Task, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, due_date = ?, priority = ?, status = ?, assigned_to = ?, points = ?,
		   completed_at = CASE WHEN ? = 'completed' THEN COALESCE(completed_at, ?) ELSE NULL END
		 WHERE id = ?`,
		p.Title, p.Description, nullTime(p.DueDate), p.Priority, p.Status, nullInt64(p.AssignedTo), p.Points,
		p.Status, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Complete marks a task completed at the given time. Completing an already
// completed task keeps the original completion time.
func (s *TaskStore) Complete(ctx context.Context, id int64, at time.Time) (*model.Task, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = 'completed', completed_at = COALESCE(completed_at, ?) WHERE id = ?`,
		at.UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("complete task: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *TaskStore) Reopen(ctx context.Context, id int64) (*model.Task, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = 'pending', completed_at = NULL WHERE id = ?`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("reopen task: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *TaskStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
