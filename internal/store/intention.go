package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/hearthboard/internal/model"
)

type IntentionStore struct {
	db *sql.DB
}

func NewIntentionStore(db *sql.DB) *IntentionStore {
	return &IntentionStore{db: db}
}

const intentionCols = `id, family_id, title, description, status, created_by, created_at, updated_at`

func scanIntention(s scanner) (*model.Intention, error) {
	var in model.Intention
	var createdBy sql.NullInt64
	err := s.Scan(&in.ID, &in.FamilyID, &in.Title, &in.Description, &in.Status, &createdBy, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		return nil, err
	}
	in.CreatedBy = int64Ptr(createdBy)
	return &in, nil
}

func (s *IntentionStore) Create(ctx context.Context, familyID int64, title, description string, createdBy *int64) (*model.Intention, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO best_intentions (family_id, title, description, created_by) VALUES (?, ?, ?, ?)`,
		familyID, title, description, nullInt64(createdBy),
	)
	if err != nil {
		return nil, fmt.Errorf("insert intention: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *IntentionStore) GetByID(ctx context.Context, id int64) (*model.Intention, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+intentionCols+` FROM best_intentions WHERE id = ?`, id)
	in, err := scanIntention(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get intention: %w", err)
	}
	return in, nil
}

// ListByFamily returns the family's intentions, active ones first.
func (s *IntentionStore) ListByFamily(ctx context.Context, familyID int64) ([]model.Intention, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+intentionCols+` FROM best_intentions WHERE family_id = ?
		 ORDER BY status = 'active' DESC, created_at DESC, id DESC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list intentions: %w", err)
	}
	defer rows.Close()

	var out []model.Intention
	for rows.Next() {
		in, err := scanIntention(rows)
		if err != nil {
			return nil, fmt.Errorf("scan intention: %w", err)
		}
		out = append(out, *in)
	}
	return out, rows.Err()
}

func (s *IntentionStore) SetStatus(ctx context.Context, id int64, status model.IntentionStatus) (*model.Intention, error) {
	_, err := s.db.ExecContext(ctx, `UPDATE best_intentions SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	if err != nil {
		return nil, fmt.Errorf("set intention status: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *IntentionStore) CountActive(ctx context.Context, familyID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM best_intentions WHERE family_id = ? AND status = 'active'`, familyID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active intentions: %w", err)
	}
	return n, nil
}
