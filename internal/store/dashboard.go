package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/dukerupert/hearthboard/internal/model"
)

const maxUpdateRetries = 10

// DashboardStore persists one dashboard configuration per (member, dashboard type).
//
// Widget mutations are optimistic: each one reads the row with its version,
// applies the change in memory and writes back only if the version is
// unchanged. A lost race is retried against the fresh row, so concurrent
// editors never drop each other's placements.
type DashboardStore struct {
	db      *sql.DB
	newID   func() string
	backoff func() retry.Backoff
}

func NewDashboardStore(db *sql.DB) *DashboardStore {
	return &DashboardStore{
		db:    db,
		newID: uuid.NewString,
		backoff: func() retry.Backoff {
			b := retry.NewConstant(5 * time.Millisecond)
			b = retry.WithJitterPercent(50, b)
			return retry.WithMaxRetries(maxUpdateRetries, b)
		},
	}
}

const dashboardCols = `id, family_member_id, dashboard_type, widgets, layout, is_personal, version, created_at, updated_at`

func scanDashboard(s scanner) (*model.DashboardConfig, error) {
	var c model.DashboardConfig
	var widgets, layout string
	var personal int

	err := s.Scan(&c.ID, &c.OwnerID, &c.DashboardType, &widgets, &layout, &personal, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	c.IsPersonal = personal != 0
	if err := json.Unmarshal([]byte(widgets), &c.Widgets); err != nil {
		return nil, fmt.Errorf("decode widgets for %s: %w", c.ID, err)
	}
	if c.Widgets == nil {
		c.Widgets = []model.WidgetPlacement{}
	}
	if err := json.Unmarshal([]byte(layout), &c.Layout); err != nil {
		return nil, fmt.Errorf("decode layout for %s: %w", c.ID, err)
	}
	return &c, nil
}

// Get returns the configuration for an owner and dashboard type, or nil if
// none exists yet.
func (s *DashboardStore) Get(ctx context.Context, ownerID int64, dt model.DashboardType) (*model.DashboardConfig, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+dashboardCols+` FROM dashboard_configs WHERE family_member_id = ? AND dashboard_type = ?`,
		ownerID, dt,
	)
	c, err := scanDashboard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get dashboard config: %w", err)
	}
	return c, nil
}

func (s *DashboardStore) GetByID(ctx context.Context, id string) (*model.DashboardConfig, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+dashboardCols+` FROM dashboard_configs WHERE id = ?`, id)
	c, err := scanDashboard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get dashboard config: %w", err)
	}
	return c, nil
}

func (s *DashboardStore) ListByOwner(ctx context.Context, ownerID int64) ([]model.DashboardConfig, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+dashboardCols+` FROM dashboard_configs WHERE family_member_id = ? ORDER BY created_at ASC, id ASC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list dashboard configs: %w", err)
	}
	defer rows.Close()

	var configs []model.DashboardConfig
	for rows.Next() {
		c, err := scanDashboard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dashboard config: %w", err)
		}
		configs = append(configs, *c)
	}
	return configs, rows.Err()
}

// Create inserts an empty configuration with the default layout. It returns
// ErrConfigExists if the owner already has one for this dashboard type.
func (s *DashboardStore) Create(ctx context.Context, ownerID int64, dt model.DashboardType, isPersonal bool) (*model.DashboardConfig, error) {
	layout, err := json.Marshal(model.DefaultLayout())
	if err != nil {
		return nil, fmt.Errorf("encode layout: %w", err)
	}

	id := s.newID()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO dashboard_configs (id, family_member_id, dashboard_type, widgets, layout, is_personal)
		 VALUES (?, ?, ?, '[]', ?, ?)`,
		id, ownerID, dt, string(layout), boolInt(isPersonal),
	)
	if isUniqueViolation(err) {
		return nil, ErrConfigExists
	}
	if err != nil {
		return nil, fmt.Errorf("insert dashboard config: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetOrCreate returns the existing configuration or lazily creates it.
// created reports whether this call inserted the row.
func (s *DashboardStore) GetOrCreate(ctx context.Context, ownerID int64, dt model.DashboardType, isPersonal bool) (cfg *model.DashboardConfig, created bool, err error) {
	layout, err := json.Marshal(model.DefaultLayout())
	if err != nil {
		return nil, false, fmt.Errorf("encode layout: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO dashboard_configs (id, family_member_id, dashboard_type, widgets, layout, is_personal)
		 VALUES (?, ?, ?, '[]', ?, ?)
		 ON CONFLICT(family_member_id, dashboard_type) DO NOTHING`,
		s.newID(), ownerID, dt, string(layout), boolInt(isPersonal),
	)
	if err != nil {
		return nil, false, fmt.Errorf("upsert dashboard config: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}

	cfg, err = s.Get(ctx, ownerID, dt)
	if err != nil {
		return nil, false, err
	}
	if cfg == nil {
		return nil, false, fmt.Errorf("dashboard config for member %d vanished after upsert", ownerID)
	}
	return cfg, n > 0, nil
}

// AddWidget appends a new visible, editable placement and returns it.
func (s *DashboardStore) AddWidget(ctx context.Context, configID, widgetType string, pos model.Position, settings map[string]any) (*model.WidgetPlacement, error) {
	if settings == nil {
		settings = map[string]any{}
	}
	placement := model.WidgetPlacement{
		ID:         s.newID(),
		WidgetType: widgetType,
		Position:   pos,
		Settings:   settings,
		Visible:    true,
		Editable:   true,
	}

	_, err := s.update(ctx, configID, func(c *model.DashboardConfig) {
		c.Widgets = append(c.Widgets, placement)
	})
	if err != nil {
		return nil, err
	}
	return &placement, nil
}

// RemoveWidget drops a placement. Removing an id that is not present is a
// no-op and succeeds.
func (s *DashboardStore) RemoveWidget(ctx context.Context, configID, widgetID string) error {
	_, err := s.update(ctx, configID, func(c *model.DashboardConfig) {
		kept := c.Widgets[:0]
		for _, w := range c.Widgets {
			if w.ID != widgetID {
				kept = append(kept, w)
			}
		}
		c.Widgets = kept
	})
	return err
}

// UpdateWidgetPosition moves one placement. Nothing else in the configuration
// changes; an unknown widget id leaves the list as it was.
func (s *DashboardStore) UpdateWidgetPosition(ctx context.Context, configID, widgetID string, pos model.Position) error {
	_, err := s.update(ctx, configID, func(c *model.DashboardConfig) {
		if w := c.Widget(widgetID); w != nil {
			w.Position = pos
		}
	})
	return err
}

// UpdateWidgetSettings replaces the settings bag of one placement.
func (s *DashboardStore) UpdateWidgetSettings(ctx context.Context, configID, widgetID string, settings map[string]any) error {
	if settings == nil {
		settings = map[string]any{}
	}
	_, err := s.update(ctx, configID, func(c *model.DashboardConfig) {
		if w := c.Widget(widgetID); w != nil {
			w.Settings = settings
		}
	})
	return err
}

// SetWidgetVisibility toggles whether a placement renders and whether it can
// be interacted with.
func (s *DashboardStore) SetWidgetVisibility(ctx context.Context, configID, widgetID string, visible, editable bool) error {
	_, err := s.update(ctx, configID, func(c *model.DashboardConfig) {
		if w := c.Widget(widgetID); w != nil {
			w.Visible = visible
			w.Editable = editable
		}
	})
	return err
}

func (s *DashboardStore) UpdateLayout(ctx context.Context, configID string, layout model.Layout) (*model.DashboardConfig, error) {
	return s.update(ctx, configID, func(c *model.DashboardConfig) {
		c.Layout = layout
	})
}

// update applies fn to a fresh copy of the configuration and writes it back
// guarded by the row version, retrying when another writer got there first.
func (s *DashboardStore) update(ctx context.Context, configID string, fn func(*model.DashboardConfig)) (*model.DashboardConfig, error) {
	var out *model.DashboardConfig

	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		cfg, err := s.GetByID(ctx, configID)
		if err != nil {
			return err
		}
		if cfg == nil {
			return ErrNotFound
		}

		fn(cfg)

		widgets, err := json.Marshal(cfg.Widgets)
		if err != nil {
			return fmt.Errorf("encode widgets: %w", err)
		}
		layout, err := json.Marshal(cfg.Layout)
		if err != nil {
			return fmt.Errorf("encode layout: %w", err)
		}

		now := time.Now().UTC()
		res, err := s.db.ExecContext(ctx,
			`UPDATE dashboard_configs
			 SET widgets = ?, layout = ?, version = version + 1, updated_at = ?
			 WHERE id = ? AND version = ?`,
			string(widgets), string(layout), now, cfg.ID, cfg.Version,
		)
		if err != nil {
			return fmt.Errorf("update dashboard config: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return retry.RetryableError(ErrConcurrentUpdate)
		}

		cfg.Version++
		cfg.UpdatedAt = now
		out = cfg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
