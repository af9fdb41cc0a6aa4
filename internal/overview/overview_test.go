package overview

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/hearthboard/internal/model"
)

type fakeMembers []model.FamilyMember

func (f fakeMembers) ListByFamily(context.Context, int64) ([]model.FamilyMember, error) {
	return f, nil
}

type fakeTasks struct {
	mu    sync.Mutex
	tasks map[int64][]model.Task
	from  []time.Time
	err   error
}

func (f *fakeTasks) ListForAssigneeDueFrom(_ context.Context, memberID int64, from time.Time) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.from = append(f.from, from)
	if f.err != nil {
		return nil, f.err
	}
	return f.tasks[memberID], nil
}

type fakeEvents struct {
	mu     sync.Mutex
	ranges [][2]time.Time
}

func (f *fakeEvents) CountStartingBetween(_ context.Context, _ int64, start, end time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ranges = append(f.ranges, [2]time.Time{start, end})
	if end.Sub(start) > 24*time.Hour+time.Hour {
		return 5, nil
	}
	return 2, nil
}

type fakeIntentions int

func (f fakeIntentions) CountActive(context.Context, int64) (int, error) {
	return int(f), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func task(id int64, status model.TaskStatus, priority model.TaskPriority) model.Task {
	return model.Task{ID: id, Status: status, Priority: priority}
}

func TestCompletionRate(t *testing.T) {
	tests := []struct {
		name     string
		statuses []MemberStatus
		want     int
	}{
		{"empty", nil, 100},
		{"no tasks", []MemberStatus{{}, {}}, 100},
		{"one of three", []MemberStatus{{TasksTotal: 3, TasksCompleted: 1}}, 33},
		{"two of three", []MemberStatus{{TasksTotal: 3, TasksCompleted: 2}}, 67},
		{"family of two", []MemberStatus{{TasksTotal: 5, TasksCompleted: 3}, {}}, 60},
		{"all done", []MemberStatus{{TasksTotal: 2, TasksCompleted: 2}, {TasksTotal: 1, TasksCompleted: 1}}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompletionRate(tt.statuses); got != tt.want {
				t.Errorf("CompletionRate = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFamily(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 3, 11, 14, 30, 0, 0, loc) // Wednesday

	members := fakeMembers{
		{ID: 1, Name: "Alex", Role: model.RoleParent},
		{ID: 2, Name: "Sam", Role: model.RoleChild},
	}
	tasks := &fakeTasks{tasks: map[int64][]model.Task{
		1: {
			task(10, model.TaskCompleted, model.PriorityHigh),
			task(11, model.TaskCompleted, model.PriorityLow),
			task(12, model.TaskCompleted, model.PriorityMedium),
			task(13, model.TaskPending, model.PriorityUrgent),
			task(14, model.TaskInProgress, model.PriorityLow),
		},
	}}
	events := &fakeEvents{}

	agg := NewAggregator(members, tasks, events, fakeIntentions(4), loc, discardLogger())
	agg.now = func() time.Time { return now }

	ov, err := agg.Family(context.Background(), 1)
	if err != nil {
		t.Fatalf("Family: %v", err)
	}

	if len(ov.Members) != 2 {
		t.Fatalf("members = %d, want 2", len(ov.Members))
	}
	if ov.Members[0].Member.ID != 1 || ov.Members[1].Member.ID != 2 {
		t.Errorf("member order not preserved: %d, %d", ov.Members[0].Member.ID, ov.Members[1].Member.ID)
	}

	alex := ov.Members[0]
	if alex.TasksTotal != 5 || alex.TasksCompleted != 3 {
		t.Errorf("alex = %d/%d, want 3/5", alex.TasksCompleted, alex.TasksTotal)
	}
	if len(alex.UrgentTasks) != 1 || alex.UrgentTasks[0].ID != 13 {
		t.Errorf("alex urgent = %+v, want task 13", alex.UrgentTasks)
	}
	if !alex.HasNotifications {
		t.Error("alex should have notifications")
	}

	sam := ov.Members[1]
	if sam.TasksTotal != 0 || sam.HasNotifications {
		t.Errorf("sam = %+v, want empty", sam)
	}
	if sam.UrgentTasks == nil {
		t.Error("urgent tasks should be an empty slice, not nil")
	}

	if ov.CompletionRate != 60 {
		t.Errorf("completion rate = %d, want 60", ov.CompletionRate)
	}
	if ov.EventsToday != 2 || ov.EventsThisWeek != 5 {
		t.Errorf("events = %d today, %d week; want 2, 5", ov.EventsToday, ov.EventsThisWeek)
	}
	if ov.ActiveIntentions != 4 {
		t.Errorf("active intentions = %d, want 4", ov.ActiveIntentions)
	}

	for _, from := range tasks.from {
		if !from.Equal(now) {
			t.Errorf("tasks fetched from %v, want %v", from, now)
		}
	}
}

func TestFamilyCapsNotifications(t *testing.T) {
	var urgent []model.Task
	for i := range 5 {
		urgent = append(urgent, task(int64(i+1), model.TaskPending, model.PriorityHigh))
	}
	tasks := &fakeTasks{tasks: map[int64][]model.Task{7: urgent}}

	agg := NewAggregator(fakeMembers{{ID: 7}}, tasks, &fakeEvents{}, fakeIntentions(0), time.UTC, discardLogger())
	ov, err := agg.Family(context.Background(), 1)
	if err != nil {
		t.Fatalf("Family: %v", err)
	}

	got := ov.Members[0].UrgentTasks
	if len(got) != maxNotifications {
		t.Fatalf("urgent = %d, want %d", len(got), maxNotifications)
	}
	for i, tk := range got {
		if tk.ID != int64(i+1) {
			t.Errorf("urgent[%d] = task %d, want earliest-due order", i, tk.ID)
		}
	}
}

func TestFamilyPropagatesErrors(t *testing.T) {
	boom := errors.New("db gone")
	tasks := &fakeTasks{err: boom}

	agg := NewAggregator(fakeMembers{{ID: 1}}, tasks, &fakeEvents{}, fakeIntentions(0), time.UTC, discardLogger())
	if _, err := agg.Family(context.Background(), 1); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
}

func TestFamilyNoMembers(t *testing.T) {
	agg := NewAggregator(fakeMembers{}, &fakeTasks{}, &fakeEvents{}, fakeIntentions(0), time.UTC, discardLogger())
	ov, err := agg.Family(context.Background(), 1)
	if err != nil {
		t.Fatalf("Family: %v", err)
	}
	if len(ov.Members) != 0 || ov.CompletionRate != 100 {
		t.Errorf("overview = %+v, want no members and rate 100", ov)
	}
}

func TestWeekBounds(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"wednesday", time.Date(2026, 3, 11, 14, 0, 0, 0, ny), time.Date(2026, 3, 8, 0, 0, 0, 0, ny)},
		{"sunday", time.Date(2026, 3, 8, 0, 0, 0, 0, ny), time.Date(2026, 3, 8, 0, 0, 0, 0, ny)},
		{"saturday night", time.Date(2026, 3, 14, 23, 59, 0, 0, ny), time.Date(2026, 3, 8, 0, 0, 0, 0, ny)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := weekBounds(tt.now)
			if !start.Equal(tt.want) {
				t.Errorf("start = %v, want %v", start, tt.want)
			}
			if wantEnd := tt.want.AddDate(0, 0, 7); !end.Equal(wantEnd) {
				t.Errorf("end = %v, want %v", end, wantEnd)
			}
		})
	}
}

func TestDayBounds(t *testing.T) {
	now := time.Date(2026, 3, 11, 14, 30, 0, 0, time.UTC)
	start, end := dayBounds(now)
	if !start.Equal(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", start)
	}
	if !end.Equal(time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("end = %v", end)
	}
}
