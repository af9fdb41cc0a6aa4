package model

import "time"

type DashboardType string

const (
	DashboardFamily          DashboardType = "family"
	DashboardPersonal        DashboardType = "personal"
	DashboardPlay            DashboardType = "play"
	DashboardGuided          DashboardType = "guided"
	DashboardIndependent     DashboardType = "independent"
	DashboardAdditionalAdult DashboardType = "additional_adult"
)

var dashboardTypes = []DashboardType{
	DashboardFamily,
	DashboardPersonal,
	DashboardPlay,
	DashboardGuided,
	DashboardIndependent,
	DashboardAdditionalAdult,
}

// DashboardTypes returns every known dashboard type.
func DashboardTypes() []DashboardType {
	out := make([]DashboardType, len(dashboardTypes))
	copy(out, dashboardTypes)
	return out
}

func (t DashboardType) Valid() bool {
	for _, dt := range dashboardTypes {
		if dt == t {
			return true
		}
	}
	return false
}

// Position is a placement on the dashboard grid, in grid cells.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type Layout struct {
	Columns    int  `json:"columns"`
	Rows       int  `json:"rows"`
	Gap        int  `json:"gap"`
	Responsive bool `json:"responsive"`
}

// DefaultLayout is the grid every new dashboard configuration starts with.
func DefaultLayout() Layout {
	return Layout{Columns: 12, Rows: 12, Gap: 16, Responsive: true}
}

type WidgetPlacement struct {
	ID         string         `json:"id"`
	WidgetType string         `json:"widget_type"`
	Position   Position       `json:"position"`
	Settings   map[string]any `json:"settings"`
	Visible    bool           `json:"visible"`
	Editable   bool           `json:"editable"`
}

type DashboardConfig struct {
	ID            string            `json:"id"`
	OwnerID       int64             `json:"owner_id"`
	DashboardType DashboardType     `json:"dashboard_type"`
	Widgets       []WidgetPlacement `json:"widgets"`
	Layout        Layout            `json:"layout"`
	IsPersonal    bool              `json:"is_personal"`
	Version       int64             `json:"version"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Widget returns the placement with the given id, or nil.
func (c *DashboardConfig) Widget(id string) *WidgetPlacement {
	for i := range c.Widgets {
		if c.Widgets[i].ID == id {
			return &c.Widgets[i]
		}
	}
	return nil
}
