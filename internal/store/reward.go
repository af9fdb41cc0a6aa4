package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/hearthboard/internal/model"
)

type RewardStore struct {
	db *sql.DB
}

func NewRewardStore(db *sql.DB) *RewardStore {
	return &RewardStore{db: db}
}

const rewardCols = `id, family_id, title, description, point_cost, active, created_at`

func scanReward(s scanner) (*model.Reward, error) {
	var r model.Reward
	var active int
	if err := s.Scan(&r.ID, &r.FamilyID, &r.Title, &r.Description, &r.PointCost, &active, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Active = active != 0
	return &r, nil
}

func (s *RewardStore) Create(ctx context.Context, familyID int64, title, description string, pointCost int, active bool) (*model.Reward, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO rewards (family_id, title, description, point_cost, active) VALUES (?, ?, ?, ?, ?)`,
		familyID, title, description, pointCost, boolInt(active),
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *RewardStore) GetByID(ctx context.Context, id int64) (*model.Reward, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+rewardCols+` FROM rewards WHERE id = ?`, id)
	r, err := scanReward(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

// List returns the family's rewards, active first, then by title.
func (s *RewardStore) List(ctx context.Context, familyID int64) ([]model.Reward, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+rewardCols+` FROM rewards WHERE family_id = ? ORDER BY active DESC, title ASC`, familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

func (s *RewardStore) Update(ctx context.Context, id int64, title, description string, pointCost int, active bool) (*model.Reward, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE rewards SET title = ?, description = ?, point_cost = ?, active = ? WHERE id = ?`,
		title, description, pointCost, boolInt(active), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update reward: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *RewardStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM rewards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reward: %w", err)
	}
	return nil
}

// Points are earned by completing tasks and spent on redemptions.
const pointsEarnedSQL = `SELECT COALESCE(SUM(points), 0) FROM tasks WHERE assigned_to = ? AND status = 'completed'`
const pointsSpentSQL = `SELECT COALESCE(SUM(points_spent), 0) FROM reward_redemptions WHERE redeemed_by = ?`

// Redeem spends the reward's cost from the member's balance. The balance check
// and the insert share a transaction so two redemptions cannot overdraw.
func (s *RewardStore) Redeem(ctx context.Context, rewardID, memberID int64) (*model.RewardRedemption, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var cost, active int
	err = tx.QueryRowContext(ctx, `SELECT point_cost, active FROM rewards WHERE id = ?`, rewardID).Scan(&cost, &active)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && active == 0) {
		return nil, fmt.Errorf("reward %d: %w", rewardID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get reward cost: %w", err)
	}

	var earned, spent int
	if err := tx.QueryRowContext(ctx, pointsEarnedSQL, memberID).Scan(&earned); err != nil {
		return nil, fmt.Errorf("sum points earned: %w", err)
	}
	if err := tx.QueryRowContext(ctx, pointsSpentSQL, memberID).Scan(&spent); err != nil {
		return nil, fmt.Errorf("sum points spent: %w", err)
	}
	if earned-spent < cost {
		return nil, ErrInsufficientPoints
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO reward_redemptions (reward_id, redeemed_by, points_spent) VALUES (?, ?, ?)`,
		rewardID, memberID, cost,
	)
	if err != nil {
		return nil, fmt.Errorf("insert redemption: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	var r model.RewardRedemption
	err = tx.QueryRowContext(ctx,
		`SELECT id, reward_id, redeemed_by, points_spent, redeemed_at FROM reward_redemptions WHERE id = ?`, id,
	).Scan(&r.ID, &r.RewardID, &r.RedeemedBy, &r.PointsSpent, &r.RedeemedAt)
	if err != nil {
		return nil, fmt.Errorf("read redemption: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit redemption: %w", err)
	}
	return &r, nil
}

// PointBalance computes earned minus spent for one member.
func (s *RewardStore) PointBalance(ctx context.Context, memberID int64) (*model.PointBalance, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM family_members WHERE id = ?`, memberID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member name: %w", err)
	}

	b := model.PointBalance{MemberID: memberID, MemberName: name}
	if err := s.db.QueryRowContext(ctx, pointsEarnedSQL, memberID).Scan(&b.TotalEarned); err != nil {
		return nil, fmt.Errorf("sum points earned: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, pointsSpentSQL, memberID).Scan(&b.TotalSpent); err != nil {
		return nil, fmt.Errorf("sum points spent: %w", err)
	}
	b.Balance = b.TotalEarned - b.TotalSpent
	return &b, nil
}

// Leaderboard returns balances for every member of the family, highest first.
func (s *RewardStore) Leaderboard(ctx context.Context, familyID int64) ([]model.PointBalance, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.name,
		        COALESCE((SELECT SUM(t.points) FROM tasks t WHERE t.assigned_to = m.id AND t.status = 'completed'), 0) AS earned,
		        COALESCE((SELECT SUM(r.points_spent) FROM reward_redemptions r WHERE r.redeemed_by = m.id), 0) AS spent
		 FROM family_members m
		 WHERE m.family_id = ?
		 ORDER BY earned - spent DESC, m.sort_order ASC, m.id ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var balances []model.PointBalance
	for rows.Next() {
		var b model.PointBalance
		if err := rows.Scan(&b.MemberID, &b.MemberName, &b.TotalEarned, &b.TotalSpent); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		b.Balance = b.TotalEarned - b.TotalSpent
		balances = append(balances, b)
	}
	return balances, rows.Err()
}
