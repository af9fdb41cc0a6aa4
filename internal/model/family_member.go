package model

import "time"

type Role string

const (
	RoleOrganizer Role = "organizer"
	RoleParent    Role = "parent"
	RoleTeen      Role = "teen"
	RoleChild     Role = "child"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOrganizer, RoleParent, RoleTeen, RoleChild:
		return true
	}
	return false
}

// IsAdult reports whether the role manages the family (organizer or parent).
func (r Role) IsAdult() bool {
	return r == RoleOrganizer || r == RoleParent
}

// DefaultDashboardType is the dashboard a member lands on when none is requested.
func DefaultDashboardType(r Role) DashboardType {
	switch r {
	case RoleOrganizer:
		return DashboardPersonal
	case RoleParent:
		return DashboardAdditionalAdult
	case RoleTeen:
		return DashboardIndependent
	default:
		return DashboardPlay
	}
}

type Family struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type FamilyMember struct {
	ID         int64     `json:"id"`
	FamilyID   int64     `json:"family_id"`
	Name       string    `json:"name"`
	Role       Role      `json:"role"`
	AvatarURL  string    `json:"avatar_url"`
	AuthUserID string    `json:"-"`
	HasPIN     bool      `json:"has_pin"`
	SortOrder  int       `json:"sort_order"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
