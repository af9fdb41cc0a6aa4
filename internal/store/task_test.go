package store

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/hearthboard/internal/model"
)

func TestTaskCreateDefaults(t *testing.T) {
	db := setupTestDB(t)
	f := seedFamily(t, db)
	ts := NewTaskStore(db)

	task, err := ts.Create(context.Background(), f.ID, nil, TaskParams{Title: "Feed the cat"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Priority != model.PriorityMedium {
		t.Errorf("priority = %q, want medium", task.Priority)
	}
	if task.Status != model.TaskPending {
		t.Errorf("status = %q, want pending", task.Status)
	}
	if task.DueDate != nil || task.AssignedTo != nil || task.CompletedAt != nil {
		t.Errorf("expected nil optional fields, got %+v", task)
	}
}

func TestTaskListForAssigneeDueFrom(t *testing.T) {
	db := setupTestDB(t)
	f := seedFamily(t, db)
	leo := seedMember(t, db, f.ID, "Leo", model.RoleChild)
	ava := seedMember(t, db, f.ID, "Ava", model.RoleTeen)
	ts := NewTaskStore(db)
	ctx := context.Background()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	soon := now.Add(2 * time.Hour)
	later := now.Add(48 * time.Hour)

	mustCreate := func(title string, due *time.Time, assignee int64) {
		t.Helper()
		if _, err := ts.Create(ctx, f.ID, nil, TaskParams{Title: title, DueDate: due, AssignedTo: &assignee}); err != nil {
			t.Fatalf("create %q: %v", title, err)
		}
	}
	mustCreate("overdue", &past, leo.ID)
	mustCreate("later", &later, leo.ID)
	mustCreate("soon", &soon, leo.ID)
	mustCreate("undated", nil, leo.ID)
	mustCreate("someone else", &soon, ava.ID)

	tasks, err := ts.ListForAssigneeDueFrom(ctx, leo.ID, now)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("tasks = %d, want 2: %+v", len(tasks), tasks)
	}
	if tasks[0].Title != "soon" || tasks[1].Title != "later" {
		t.Errorf("order = %q, %q; want soon, later", tasks[0].Title, tasks[1].Title)
	}
}

func TestTaskCompleteAndReopen(t *testing.T) {
	db := setupTestDB(t)
	f := seedFamily(t, db)
	ts := NewTaskStore(db)
	ctx := context.Background()

	task, _ := ts.Create(ctx, f.ID, nil, TaskParams{Title: "Homework", Points: 5})

	at := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	done, err := ts.Complete(ctx, task.ID, at)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !done.Completed() || done.CompletedAt == nil || !done.CompletedAt.Equal(at) {
		t.Errorf("completed task = %+v", done)
	}

	again, _ := ts.Complete(ctx, task.ID, at.Add(time.Hour))
	if !again.CompletedAt.Equal(at) {
		t.Errorf("completing twice moved completed_at to %v", again.CompletedAt)
	}

	reopened, err := ts.Reopen(ctx, task.ID)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Status != model.TaskPending || reopened.CompletedAt != nil {
		t.Errorf("reopened = %+v", reopened)
	}
}

func TestTaskUpdateAndDelete(t *testing.T) {
	db := setupTestDB(t)
	f := seedFamily(t, db)
	leo := seedMember(t, db, f.ID, "Leo", model.RoleChild)
	ts := NewTaskStore(db)
	ctx := context.Background()

	task, _ := ts.Create(ctx, f.ID, nil, TaskParams{Title: "Dishes"})
	updated, err := ts.Update(ctx, task.ID, TaskParams{
		Title:      "Dishes and counters",
		Priority:   model.PriorityUrgent,
		Status:     model.TaskCompleted,
		AssignedTo: &leo.ID,
		Points:     3,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Dishes and counters" || updated.Priority != model.PriorityUrgent || updated.Points != 3 {
		t.Errorf("updated = %+v", updated)
	}
	if updated.CompletedAt == nil {
		t.Error("completing through update should stamp completed_at")
	}
	if updated.AssignedTo == nil || *updated.AssignedTo != leo.ID {
		t.Errorf("assigned_to = %v", updated.AssignedTo)
	}

	if err := ts.Delete(ctx, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ := ts.GetByID(ctx, task.ID)
	if got != nil {
		t.Error("expected nil after delete")
	}
}
