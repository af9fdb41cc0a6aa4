package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/hearthboard/internal/model"
)

type FamilyMemberStore struct {
	db *sql.DB
}

func NewFamilyMemberStore(db *sql.DB) *FamilyMemberStore {
	return &FamilyMemberStore{db: db}
}

const memberCols = `id, family_id, name, role, avatar_url, COALESCE(auth_user_id, ''), pin IS NOT NULL, sort_order, created_at, updated_at`

func scanMember(s scanner) (*model.FamilyMember, error) {
	var m model.FamilyMember
	err := s.Scan(&m.ID, &m.FamilyID, &m.Name, &m.Role, &m.AvatarURL, &m.AuthUserID, &m.HasPIN, &m.SortOrder, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create adds a member at the end of the family's sort order. authUserID links
// the member to an identity-provider account and may be empty.
func (s *FamilyMemberStore) Create(ctx context.Context, familyID int64, name string, role model.Role, avatarURL, authUserID string) (*model.FamilyMember, error) {
	var maxOrder int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sort_order), -1) FROM family_members WHERE family_id = ?`, familyID,
	).Scan(&maxOrder)
	if err != nil {
		return nil, fmt.Errorf("query max sort_order: %w", err)
	}

	var authID sql.NullString
	if authUserID != "" {
		authID = sql.NullString{String: authUserID, Valid: true}
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO family_members (family_id, name, role, avatar_url, auth_user_id, sort_order) VALUES (?, ?, ?, ?, ?, ?)`,
		familyID, name, role, avatarURL, authID, maxOrder+1,
	)
	if err != nil {
		return nil, fmt.Errorf("insert family member: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *FamilyMemberStore) GetByID(ctx context.Context, id int64) (*model.FamilyMember, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+memberCols+` FROM family_members WHERE id = ?`, id)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family member: %w", err)
	}
	return m, nil
}

func (s *FamilyMemberStore) GetByAuthUserID(ctx context.Context, authUserID string) (*model.FamilyMember, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+memberCols+` FROM family_members WHERE auth_user_id = ?`, authUserID)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family member by auth user: %w", err)
	}
	return m, nil
}

func (s *FamilyMemberStore) ListByFamily(ctx context.Context, familyID int64) ([]model.FamilyMember, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memberCols+` FROM family_members WHERE family_id = ? ORDER BY sort_order ASC, id ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("query family members: %w", err)
	}
	defer rows.Close()

	var members []model.FamilyMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan family member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// MemberRole returns the role of a member, or ErrNotFound.
func (s *FamilyMemberStore) MemberRole(ctx context.Context, id int64) (model.Role, error) {
	var role model.Role
	err := s.db.QueryRowContext(ctx, `SELECT role FROM family_members WHERE id = ?`, id).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("member %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("query member role: %w", err)
	}
	return role, nil
}

func (s *FamilyMemberStore) Update(ctx context.Context, id int64, name string, role model.Role, avatarURL string) (*model.FamilyMember, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE family_members SET name = ?, role = ?, avatar_url = ? WHERE id = ?`,
		name, role, avatarURL, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update family member: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *FamilyMemberStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM family_members WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete family member: %w", err)
	}
	return nil
}

func (s *FamilyMemberStore) NameExists(ctx context.Context, familyID int64, name string, excludeID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM family_members WHERE family_id = ? AND name = ? AND id != ?`,
		familyID, name, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check name exists: %w", err)
	}
	return count > 0, nil
}

func (s *FamilyMemberStore) SetPIN(ctx context.Context, id int64, hashedPIN string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE family_members SET pin = ? WHERE id = ?`, hashedPIN, id)
	if err != nil {
		return fmt.Errorf("set pin: %w", err)
	}
	return nil
}

func (s *FamilyMemberStore) ClearPIN(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE family_members SET pin = NULL WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("clear pin: %w", err)
	}
	return nil
}

// GetPINHash returns the stored bcrypt hash, or "" when no PIN is set.
func (s *FamilyMemberStore) GetPINHash(ctx context.Context, id int64) (string, error) {
	var pin sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT pin FROM family_members WHERE id = ?`, id).Scan(&pin)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("member %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("query pin: %w", err)
	}
	return pin.String, nil
}
