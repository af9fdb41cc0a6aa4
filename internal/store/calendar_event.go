package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/hearthboard/internal/model"
)

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

const eventCols = `id, family_id, title, description, start_time, end_time, all_day, family_member_id, location, created_at, updated_at`

func scanEvent(s scanner) (*model.CalendarEvent, error) {
	var e model.CalendarEvent
	var allDay int
	var memberID sql.NullInt64

	err := s.Scan(&e.ID, &e.FamilyID, &e.Title, &e.Description, &e.StartTime, &e.EndTime, &allDay, &memberID, &e.Location, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.AllDay = allDay != 0
	e.FamilyMemberID = int64Ptr(memberID)
	return &e, nil
}

func (s *EventStore) Create(ctx context.Context, familyID int64, title, description string, startTime, endTime time.Time, allDay bool, familyMemberID *int64, location string) (*model.CalendarEvent, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO calendar_events (family_id, title, description, start_time, end_time, all_day, family_member_id, location)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		familyID, title, description, startTime.UTC(), endTime.UTC(), boolInt(allDay), nullInt64(familyMemberID), location,
	)
	if err != nil {
		return nil, fmt.Errorf("insert calendar event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *EventStore) GetByID(ctx context.Context, id int64) (*model.CalendarEvent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventCols+` FROM calendar_events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query calendar event: %w", err)
	}
	return e, nil
}

// ListByDateRange returns events overlapping [start, end), all-day events first.
func (s *EventStore) ListByDateRange(ctx context.Context, familyID int64, start, end time.Time) ([]model.CalendarEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventCols+` FROM calendar_events
		 WHERE family_id = ? AND start_time < ? AND end_time > ?
		 ORDER BY all_day DESC, start_time ASC`,
		familyID, end.UTC(), start.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query calendar events: %w", err)
	}
	defer rows.Close()

	var events []model.CalendarEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calendar event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// CountStartingBetween counts events whose start time falls in [start, end).
func (s *EventStore) CountStartingBetween(ctx context.Context, familyID int64, start, end time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM calendar_events WHERE family_id = ? AND start_time >= ? AND start_time < ?`,
		familyID, start.UTC(), end.UTC(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count calendar events: %w", err)
	}
	return n, nil
}

func (s *EventStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM calendar_events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	return nil
}
