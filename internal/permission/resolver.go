// Package permission decides who may edit whose dashboard.
package permission

import (
	"context"
	"fmt"

	"github.com/dukerupert/hearthboard/internal/model"
)

// RoleLookup resolves a family member's role.
type RoleLookup interface {
	MemberRole(ctx context.Context, memberID int64) (model.Role, error)
}

type Resolver struct {
	roles RoleLookup
}

func NewResolver(roles RoleLookup) *Resolver {
	return &Resolver{roles: roles}
}

// CanEdit reports whether viewer may edit the dashboards owned by owner.
// A failed role lookup denies and returns the error.
func (r *Resolver) CanEdit(ctx context.Context, viewerID, ownerID int64) (bool, error) {
	if viewerID == ownerID {
		return true, nil
	}

	viewerRole, err := r.roles.MemberRole(ctx, viewerID)
	if err != nil {
		return false, fmt.Errorf("viewer role: %w", err)
	}

	switch viewerRole {
	case model.RoleOrganizer:
		return true, nil
	case model.RoleParent:
		ownerRole, err := r.roles.MemberRole(ctx, ownerID)
		if err != nil {
			return false, fmt.Errorf("owner role: %w", err)
		}
		return RoleMayEdit(viewerRole, ownerRole), nil
	default:
		return false, nil
	}
}

// RoleMayEdit applies the role hierarchy to two distinct members: organizers
// edit anyone, parents edit teens and children, nobody else edits others.
func RoleMayEdit(viewer, owner model.Role) bool {
	switch viewer {
	case model.RoleOrganizer:
		return true
	case model.RoleParent:
		return owner == model.RoleChild || owner == model.RoleTeen
	}
	return false
}
