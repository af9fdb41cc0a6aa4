package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dukerupert/hearthboard/internal/model"
)

func setupDashboardTest(t *testing.T) (*DashboardStore, *model.FamilyMember) {
	t.Helper()
	db := setupTestDB(t)
	f := seedFamily(t, db)
	m := seedMember(t, db, f.ID, "Maya", model.RoleOrganizer)
	return NewDashboardStore(db), m
}

func TestDashboardCreateThenGet(t *testing.T) {
	ds, m := setupDashboardTest(t)
	ctx := context.Background()

	for _, dt := range model.DashboardTypes() {
		created, err := ds.Create(ctx, m.ID, dt, dt == model.DashboardPersonal)
		if err != nil {
			t.Fatalf("create %s: %v", dt, err)
		}
		if created.ID == "" {
			t.Fatalf("%s: expected generated id", dt)
		}

		got, err := ds.Get(ctx, m.ID, dt)
		if err != nil {
			t.Fatalf("get %s: %v", dt, err)
		}
		if got == nil {
			t.Fatalf("get %s: expected config", dt)
		}
		if got.ID != created.ID {
			t.Errorf("%s: id = %q, want %q", dt, got.ID, created.ID)
		}
		if len(got.Widgets) != 0 {
			t.Errorf("%s: widgets = %v, want empty", dt, got.Widgets)
		}
		if got.Widgets == nil {
			t.Errorf("%s: widgets should be an empty list, not nil", dt)
		}
		if got.Layout != model.DefaultLayout() {
			t.Errorf("%s: layout = %+v, want %+v", dt, got.Layout, model.DefaultLayout())
		}
		if got.IsPersonal != (dt == model.DashboardPersonal) {
			t.Errorf("%s: is_personal = %v", dt, got.IsPersonal)
		}
	}
}

func TestDashboardDefaultLayoutValues(t *testing.T) {
	l := model.DefaultLayout()
	if l.Columns != 12 || l.Rows != 12 || l.Gap != 16 || !l.Responsive {
		t.Errorf("default layout = %+v", l)
	}
}

func TestDashboardGetMissing(t *testing.T) {
	ds, m := setupDashboardTest(t)

	got, err := ds.Get(context.Background(), m.ID, model.DashboardPlay)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing config, got %+v", got)
	}

	byID, err := ds.GetByID(context.Background(), "no-such-id")
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byID != nil {
		t.Error("expected nil for unknown id")
	}
}

func TestDashboardCreateDuplicate(t *testing.T) {
	ds, m := setupDashboardTest(t)
	ctx := context.Background()

	if _, err := ds.Create(ctx, m.ID, model.DashboardFamily, false); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := ds.Create(ctx, m.ID, model.DashboardFamily, false)
	if !errors.Is(err, ErrConfigExists) {
		t.Fatalf("second create err = %v, want ErrConfigExists", err)
	}
}

func TestDashboardGetOrCreate(t *testing.T) {
	ds, m := setupDashboardTest(t)
	ctx := context.Background()

	first, created, err := ds.GetOrCreate(ctx, m.ID, model.DashboardGuided, false)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if !created {
		t.Error("expected first call to create")
	}

	second, created, err := ds.GetOrCreate(ctx, m.ID, model.DashboardGuided, false)
	if err != nil {
		t.Fatalf("get or create again: %v", err)
	}
	if created {
		t.Error("expected second call to reuse the row")
	}
	if first.ID != second.ID {
		t.Errorf("ids differ: %q vs %q", first.ID, second.ID)
	}
}

func TestDashboardAddWidget(t *testing.T) {
	ds, m := setupDashboardTest(t)
	ctx := context.Background()

	cfg, err := ds.Create(ctx, m.ID, model.DashboardPersonal, true)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	first, err := ds.AddWidget(ctx, cfg.ID, "task_list", model.Position{X: 0, Y: 0, W: 4, H: 3}, nil)
	if err != nil {
		t.Fatalf("add first widget: %v", err)
	}
	second, err := ds.AddWidget(ctx, cfg.ID, "calendar", model.Position{X: 4, Y: 0, W: 4, H: 4}, map[string]any{"view": "week"})
	if err != nil {
		t.Fatalf("add second widget: %v", err)
	}

	if first.ID == "" || second.ID == "" || first.ID == second.ID {
		t.Fatalf("expected distinct generated ids, got %q and %q", first.ID, second.ID)
	}

	got, err := ds.GetByID(ctx, cfg.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Widgets) != 2 {
		t.Fatalf("widgets = %d, want 2", len(got.Widgets))
	}

	w := got.Widgets[1]
	if w.ID != second.ID {
		t.Errorf("insertion order not kept: got %q at index 1", w.ID)
	}
	if !w.Visible || !w.Editable {
		t.Errorf("visible/editable = %v/%v, want true/true", w.Visible, w.Editable)
	}
	if w.Settings["view"] != "week" {
		t.Errorf("settings = %v", w.Settings)
	}
	if got.Widgets[0].Settings == nil {
		t.Error("nil settings should be stored as an empty bag")
	}
	if got.Version != cfg.Version+2 {
		t.Errorf("version = %d, want %d", got.Version, cfg.Version+2)
	}
}

func TestDashboardAddWidgetUnknownConfig(t *testing.T) {
	ds, _ := setupDashboardTest(t)

	_, err := ds.AddWidget(context.Background(), "missing", "task_list", model.Position{W: 1, H: 1}, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDashboardRemoveWidget(t *testing.T) {
	ds, m := setupDashboardTest(t)
	ctx := context.Background()

	cfg, _ := ds.Create(ctx, m.ID, model.DashboardFamily, false)
	a, _ := ds.AddWidget(ctx, cfg.ID, "task_list", model.Position{W: 4, H: 3}, nil)
	b, _ := ds.AddWidget(ctx, cfg.ID, "calendar", model.Position{X: 4, W: 4, H: 3}, nil)

	if err := ds.RemoveWidget(ctx, cfg.ID, a.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	got, _ := ds.GetByID(ctx, cfg.ID)
	if len(got.Widgets) != 1 || got.Widgets[0].ID != b.ID {
		t.Fatalf("widgets after remove = %+v", got.Widgets)
	}
}

func TestDashboardRemoveMissingWidgetIsNoop(t *testing.T) {
	ds, m := setupDashboardTest(t)
	ctx := context.Background()

	cfg, _ := ds.Create(ctx, m.ID, model.DashboardFamily, false)
	a, _ := ds.AddWidget(ctx, cfg.ID, "task_list", model.Position{W: 4, H: 3}, nil)

	before, _ := ds.GetByID(ctx, cfg.ID)
	if err := ds.RemoveWidget(ctx, cfg.ID, "does-not-exist"); err != nil {
		t.Fatalf("remove missing widget: %v", err)
	}
	after, _ := ds.GetByID(ctx, cfg.ID)

	if len(after.Widgets) != len(before.Widgets) || after.Widgets[0].ID != a.ID {
		t.Errorf("widgets changed: before %+v, after %+v", before.Widgets, after.Widgets)
	}
}

func TestDashboardUpdateWidgetPosition(t *testing.T) {
	ds, m := setupDashboardTest(t)
	ctx := context.Background()

	cfg, _ := ds.Create(ctx, m.ID, model.DashboardPersonal, true)
	a, _ := ds.AddWidget(ctx, cfg.ID, "task_list", model.Position{X: 0, Y: 0, W: 4, H: 3}, map[string]any{"limit": float64(5)})
	b, _ := ds.AddWidget(ctx, cfg.ID, "calendar", model.Position{X: 4, Y: 0, W: 4, H: 3}, nil)

	before, _ := ds.GetByID(ctx, cfg.ID)

	moved := model.Position{X: 8, Y: 2, W: 4, H: 5}
	if err := ds.UpdateWidgetPosition(ctx, cfg.ID, a.ID, moved); err != nil {
		t.Fatalf("update position: %v", err)
	}

	after, _ := ds.GetByID(ctx, cfg.ID)
	if len(after.Widgets) != 2 {
		t.Fatalf("widgets = %d, want 2", len(after.Widgets))
	}

	gotA := after.Widget(a.ID)
	if gotA.Position != moved {
		t.Errorf("position = %+v, want %+v", gotA.Position, moved)
	}
	wantA := before.Widgets[0]
	if gotA.WidgetType != wantA.WidgetType || gotA.Visible != wantA.Visible || gotA.Editable != wantA.Editable || gotA.Settings["limit"] != float64(5) {
		t.Errorf("fields other than position changed: %+v", gotA)
	}

	gotB := after.Widget(b.ID)
	if gotB.Position != before.Widgets[1].Position || gotB.WidgetType != "calendar" {
		t.Errorf("untargeted widget changed: %+v", gotB)
	}
	if after.Layout != before.Layout {
		t.Errorf("layout changed: %+v", after.Layout)
	}
}

func TestDashboardUpdateWidgetSettingsAndVisibility(t *testing.T) {
	ds, m := setupDashboardTest(t)
	ctx := context.Background()

	cfg, _ := ds.Create(ctx, m.ID, model.DashboardPlay, false)
	w, _ := ds.AddWidget(ctx, cfg.ID, "rewards", model.Position{W: 3, H: 3}, nil)

	if err := ds.UpdateWidgetSettings(ctx, cfg.ID, w.ID, map[string]any{"show_costs": true}); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if err := ds.SetWidgetVisibility(ctx, cfg.ID, w.ID, false, false); err != nil {
		t.Fatalf("set visibility: %v", err)
	}

	got, _ := ds.GetByID(ctx, cfg.ID)
	pw := got.Widget(w.ID)
	if pw.Settings["show_costs"] != true {
		t.Errorf("settings = %v", pw.Settings)
	}
	if pw.Visible || pw.Editable {
		t.Errorf("visible/editable = %v/%v, want false/false", pw.Visible, pw.Editable)
	}
}

func TestDashboardUpdateLayout(t *testing.T) {
	ds, m := setupDashboardTest(t)
	ctx := context.Background()

	cfg, _ := ds.Create(ctx, m.ID, model.DashboardFamily, false)
	layout := model.Layout{Columns: 8, Rows: 10, Gap: 8, Responsive: false}

	updated, err := ds.UpdateLayout(ctx, cfg.ID, layout)
	if err != nil {
		t.Fatalf("update layout: %v", err)
	}
	if updated.Layout != layout {
		t.Errorf("layout = %+v, want %+v", updated.Layout, layout)
	}

	got, _ := ds.GetByID(ctx, cfg.ID)
	if got.Layout != layout {
		t.Errorf("stored layout = %+v, want %+v", got.Layout, layout)
	}
}

func TestDashboardConcurrentAddsKeepEveryWidget(t *testing.T) {
	ds, m := setupDashboardTest(t)
	ctx := context.Background()

	cfg, _ := ds.Create(ctx, m.ID, model.DashboardFamily, false)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := ds.AddWidget(ctx, cfg.ID, "task_list", model.Position{X: i, W: 1, H: 1}, nil)
			if err != nil {
				errs <- fmt.Errorf("add %d: %w", i, err)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	got, _ := ds.GetByID(ctx, cfg.ID)
	if len(got.Widgets) != n {
		t.Errorf("widgets = %d, want %d (lost update)", len(got.Widgets), n)
	}
}

func TestDashboardStaleVersionIsRetried(t *testing.T) {
	ds, m := setupDashboardTest(t)
	ctx := context.Background()

	cfg, _ := ds.Create(ctx, m.ID, model.DashboardFamily, false)

	// Sneak a concurrent write in between the read and the write of the
	// first attempt.
	interfered := false
	_, err := ds.update(ctx, cfg.ID, func(c *model.DashboardConfig) {
		if !interfered {
			interfered = true
			if _, err := ds.AddWidget(ctx, cfg.ID, "calendar", model.Position{W: 1, H: 1}, nil); err != nil {
				t.Fatalf("interfering add: %v", err)
			}
		}
		c.Widgets = append(c.Widgets, model.WidgetPlacement{ID: "manual", WidgetType: "task_list"})
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := ds.GetByID(ctx, cfg.ID)
	if len(got.Widgets) != 2 {
		t.Fatalf("widgets = %+v, want both the interfering and the retried placement", got.Widgets)
	}
}

func TestDashboardListByOwner(t *testing.T) {
	ds, m := setupDashboardTest(t)
	ctx := context.Background()

	ds.Create(ctx, m.ID, model.DashboardFamily, false)
	ds.Create(ctx, m.ID, model.DashboardPersonal, true)

	configs, err := ds.ListByOwner(ctx, m.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(configs) != 2 {
		t.Errorf("configs = %d, want 2", len(configs))
	}
}
