// Package overview computes the family-wide progress summary shown on the
// family dashboard: per-member task counts, urgent-task notifications, and
// a handful of family totals.
package overview

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/hearthboard/internal/model"
)

// maxNotifications caps the urgent tasks surfaced per member.
const maxNotifications = 3

type MemberLister interface {
	ListByFamily(ctx context.Context, familyID int64) ([]model.FamilyMember, error)
}

type TaskSource interface {
	// ListForAssigneeDueFrom returns tasks assigned to memberID with a due
	// date at or after from, earliest due first.
	ListForAssigneeDueFrom(ctx context.Context, memberID int64, from time.Time) ([]model.Task, error)
}

type EventCounter interface {
	CountStartingBetween(ctx context.Context, familyID int64, start, end time.Time) (int, error)
}

type IntentionCounter interface {
	CountActive(ctx context.Context, familyID int64) (int, error)
}

// MemberStatus is computed per request and never stored.
type MemberStatus struct {
	Member           model.FamilyMember `json:"member"`
	TasksTotal       int                `json:"tasks_total"`
	TasksCompleted   int                `json:"tasks_completed"`
	UrgentTasks      []model.Task       `json:"urgent_tasks"`
	HasNotifications bool               `json:"has_notifications"`
}

type Overview struct {
	Members          []MemberStatus `json:"members"`
	CompletionRate   int            `json:"completion_rate"`
	EventsToday      int            `json:"events_today"`
	EventsThisWeek   int            `json:"events_this_week"`
	ActiveIntentions int            `json:"active_intentions"`
	GeneratedAt      time.Time      `json:"generated_at"`
}

type Aggregator struct {
	members    MemberLister
	tasks      TaskSource
	events     EventCounter
	intentions IntentionCounter
	loc        *time.Location
	now        func() time.Time
	logger     *slog.Logger
}

func NewAggregator(members MemberLister, tasks TaskSource, events EventCounter, intentions IntentionCounter, loc *time.Location, logger *slog.Logger) *Aggregator {
	if loc == nil {
		loc = time.Local
	}
	return &Aggregator{
		members:    members,
		tasks:      tasks,
		events:     events,
		intentions: intentions,
		loc:        loc,
		now:        time.Now,
		logger:     logger,
	}
}

// Family builds the overview for one family in the default timezone.
func (a *Aggregator) Family(ctx context.Context, familyID int64) (*Overview, error) {
	return a.FamilyIn(ctx, familyID, a.loc)
}

// FamilyIn builds the overview with "today" and "this week" taken in loc.
// Member statuses keep the order returned by the member lister.
func (a *Aggregator) FamilyIn(ctx context.Context, familyID int64, loc *time.Location) (*Overview, error) {
	if loc == nil {
		loc = a.loc
	}
	now := a.now().In(loc)

	members, err := a.members.ListByFamily(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	ov := &Overview{
		Members:     make([]MemberStatus, len(members)),
		GeneratedAt: now,
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, m := range members {
		g.Go(func() error {
			st, err := a.memberStatus(gctx, m, now)
			if err != nil {
				return fmt.Errorf("member %d: %w", m.ID, err)
			}
			ov.Members[i] = st
			return nil
		})
	}

	dayStart, dayEnd := dayBounds(now)
	weekStart, weekEnd := weekBounds(now)
	g.Go(func() error {
		n, err := a.events.CountStartingBetween(gctx, familyID, dayStart, dayEnd)
		if err != nil {
			return fmt.Errorf("count today's events: %w", err)
		}
		ov.EventsToday = n
		return nil
	})
	g.Go(func() error {
		n, err := a.events.CountStartingBetween(gctx, familyID, weekStart, weekEnd)
		if err != nil {
			return fmt.Errorf("count this week's events: %w", err)
		}
		ov.EventsThisWeek = n
		return nil
	})
	g.Go(func() error {
		n, err := a.intentions.CountActive(gctx, familyID)
		if err != nil {
			return fmt.Errorf("count intentions: %w", err)
		}
		ov.ActiveIntentions = n
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	ov.CompletionRate = CompletionRate(ov.Members)

	a.logger.Debug("family overview built",
		"family_id", familyID,
		"members", len(members),
		"completion_rate", ov.CompletionRate,
	)
	return ov, nil
}

func (a *Aggregator) memberStatus(ctx context.Context, m model.FamilyMember, now time.Time) (MemberStatus, error) {
	tasks, err := a.tasks.ListForAssigneeDueFrom(ctx, m.ID, now)
	if err != nil {
		return MemberStatus{}, err
	}

	st := MemberStatus{
		Member:      m,
		TasksTotal:  len(tasks),
		UrgentTasks: []model.Task{},
	}
	for _, t := range tasks {
		if t.Completed() {
			st.TasksCompleted++
			continue
		}
		if t.Urgent() && len(st.UrgentTasks) < maxNotifications {
			st.UrgentTasks = append(st.UrgentTasks, t)
		}
	}
	st.HasNotifications = len(st.UrgentTasks) > 0
	return st, nil
}

// CompletionRate is the rounded percentage of completed tasks across all
// members. A family with no tasks is fully caught up and scores 100.
func CompletionRate(statuses []MemberStatus) int {
	var total, completed int
	for _, s := range statuses {
		total += s.TasksTotal
		completed += s.TasksCompleted
	}
	if total == 0 {
		return 100
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

func dayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

// weekBounds returns the Sunday-to-Sunday calendar week containing t.
func weekBounds(t time.Time) (time.Time, time.Time) {
	dayStart, _ := dayBounds(t)
	start := dayStart.AddDate(0, 0, -int(t.Weekday()))
	return start, start.AddDate(0, 0, 7)
}
