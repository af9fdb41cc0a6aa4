// Package widget holds the static catalog of dashboard widget types.
//
// The catalog is advisory: it tells clients which widgets exist, how big
// they start and who may add them. The dashboard store accepts any type.
package widget

import (
	"slices"

	"github.com/dukerupert/hearthboard/internal/model"
)

type Size struct {
	W int `json:"w"`
	H int `json:"h"`
}

type Entry struct {
	Type         string       `json:"type"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	DefaultSize  Size         `json:"default_size"`
	MinSize      Size         `json:"min_size"`
	AllowedRoles []model.Role `json:"allowed_roles"`
}

// Allows reports whether a member with the given role may add this widget.
func (e Entry) Allows(role model.Role) bool {
	return slices.Contains(e.AllowedRoles, role)
}

// Fits reports whether a placement respects the widget's minimum size.
func (e Entry) Fits(pos model.Position) bool {
	return pos.W >= e.MinSize.W && pos.H >= e.MinSize.H
}

var (
	everyone  = []model.Role{model.RoleOrganizer, model.RoleParent, model.RoleTeen, model.RoleChild}
	adults    = []model.Role{model.RoleOrganizer, model.RoleParent}
	olderKids = []model.Role{model.RoleOrganizer, model.RoleParent, model.RoleTeen}
)

var catalog = []Entry{
	{
		Type:         "task_list",
		Title:        "Tasks",
		Description:  "Open tasks assigned to the dashboard owner.",
		DefaultSize:  Size{W: 4, H: 4},
		MinSize:      Size{W: 3, H: 2},
		AllowedRoles: everyone,
	},
	{
		Type:         "task_creator",
		Title:        "Quick Add Task",
		Description:  "Create and assign a task without leaving the dashboard.",
		DefaultSize:  Size{W: 4, H: 2},
		MinSize:      Size{W: 3, H: 2},
		AllowedRoles: adults,
	},
	{
		Type:         "calendar",
		Title:        "Calendar",
		Description:  "Upcoming family events for the day or week.",
		DefaultSize:  Size{W: 6, H: 4},
		MinSize:      Size{W: 4, H: 3},
		AllowedRoles: everyone,
	},
	{
		Type:         "family_overview",
		Title:        "Family Overview",
		Description:  "Task progress and notifications for every family member.",
		DefaultSize:  Size{W: 8, H: 4},
		MinSize:      Size{W: 6, H: 3},
		AllowedRoles: adults,
	},
	{
		Type:         "rewards",
		Title:        "Rewards",
		Description:  "Rewards the owner can redeem with earned points.",
		DefaultSize:  Size{W: 4, H: 3},
		MinSize:      Size{W: 2, H: 2},
		AllowedRoles: everyone,
	},
	{
		Type:         "points_tracker",
		Title:        "Points",
		Description:  "Current point balance and recent earnings.",
		DefaultSize:  Size{W: 3, H: 2},
		MinSize:      Size{W: 2, H: 2},
		AllowedRoles: everyone,
	},
	{
		Type:         "leaderboard",
		Title:        "Leaderboard",
		Description:  "Family point standings.",
		DefaultSize:  Size{W: 4, H: 3},
		MinSize:      Size{W: 3, H: 2},
		AllowedRoles: everyone,
	},
	{
		Type:         "best_intentions",
		Title:        "Best Intentions",
		Description:  "Active family goals.",
		DefaultSize:  Size{W: 4, H: 3},
		MinSize:      Size{W: 3, H: 2},
		AllowedRoles: olderKids,
	},
	{
		Type:         "progress_ring",
		Title:        "Progress",
		Description:  "Completion rate for the owner's tasks this week.",
		DefaultSize:  Size{W: 3, H: 3},
		MinSize:      Size{W: 2, H: 2},
		AllowedRoles: everyone,
	},
	{
		Type:         "celebration",
		Title:        "Celebrations",
		Description:  "Recently completed tasks and redeemed rewards.",
		DefaultSize:  Size{W: 4, H: 2},
		MinSize:      Size{W: 2, H: 2},
		AllowedRoles: everyone,
	},
	{
		Type:         "notes",
		Title:        "Notes",
		Description:  "A private scratchpad.",
		DefaultSize:  Size{W: 3, H: 3},
		MinSize:      Size{W: 2, H: 2},
		AllowedRoles: olderKids,
	},
}

var byType = func() map[string]Entry {
	m := make(map[string]Entry, len(catalog))
	for _, e := range catalog {
		m[e.Type] = e
	}
	return m
}()

// Lookup returns the catalog entry for a widget type.
func Lookup(widgetType string) (Entry, bool) {
	e, ok := byType[widgetType]
	return e, ok
}

// All returns every entry in catalog order.
func All() []Entry {
	return slices.Clone(catalog)
}

// AvailableFor returns the entries a member with the given role may add.
func AvailableFor(role model.Role) []Entry {
	out := []Entry{}
	for _, e := range catalog {
		if e.Allows(role) {
			out = append(out, e)
		}
	}
	return out
}

// DefaultPosition places a new widget of this type at the given origin using
// its default size. Unknown types get a 1x1 cell.
func DefaultPosition(widgetType string, x, y int) model.Position {
	e, ok := Lookup(widgetType)
	if !ok {
		return model.Position{X: x, Y: y, W: 1, H: 1}
	}
	return model.Position{X: x, Y: y, W: e.DefaultSize.W, H: e.DefaultSize.H}
}
