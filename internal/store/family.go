package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/hearthboard/internal/model"
)

type FamilyStore struct {
	db *sql.DB
}

func NewFamilyStore(db *sql.DB) *FamilyStore {
	return &FamilyStore{db: db}
}

const familyCols = `id, name, timezone, created_at, updated_at`

func (s *FamilyStore) Create(ctx context.Context, name, timezone string) (*model.Family, error) {
	result, err := s.db.ExecContext(ctx, `INSERT INTO families (name, timezone) VALUES (?, ?)`, name, timezone)
	if err != nil {
		return nil, fmt.Errorf("insert family: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// CreateWithOrganizer creates a family and its first member in one
// transaction, so a failed member insert leaves no family behind.
func (s *FamilyStore) CreateWithOrganizer(ctx context.Context, name, timezone, organizerName, authUserID string) (*model.Family, *model.FamilyMember, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `INSERT INTO families (name, timezone) VALUES (?, ?)`, name, timezone)
	if err != nil {
		return nil, nil, fmt.Errorf("insert family: %w", err)
	}
	familyID, err := result.LastInsertId()
	if err != nil {
		return nil, nil, fmt.Errorf("last insert id: %w", err)
	}

	result, err = tx.ExecContext(ctx,
		`INSERT INTO family_members (family_id, name, role, auth_user_id, sort_order) VALUES (?, ?, ?, ?, 0)`,
		familyID, organizerName, model.RoleOrganizer, authUserID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("insert organizer: %w", err)
	}
	memberID, err := result.LastInsertId()
	if err != nil {
		return nil, nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit family: %w", err)
	}

	f, err := s.GetByID(ctx, familyID)
	if err != nil {
		return nil, nil, err
	}
	m, err := NewFamilyMemberStore(s.db).GetByID(ctx, memberID)
	if err != nil {
		return nil, nil, err
	}
	return f, m, nil
}

func (s *FamilyStore) GetByID(ctx context.Context, id int64) (*model.Family, error) {
	var f model.Family
	err := s.db.QueryRowContext(ctx, `SELECT `+familyCols+` FROM families WHERE id = ?`, id).
		Scan(&f.ID, &f.Name, &f.Timezone, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family: %w", err)
	}
	return &f, nil
}

func (s *FamilyStore) Update(ctx context.Context, id int64, name, timezone string) (*model.Family, error) {
	_, err := s.db.ExecContext(ctx, `UPDATE families SET name = ?, timezone = ? WHERE id = ?`, name, timezone, id)
	if err != nil {
		return nil, fmt.Errorf("update family: %w", err)
	}
	return s.GetByID(ctx, id)
}
