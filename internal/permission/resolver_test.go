package permission

import (
	"context"
	"errors"
	"testing"

	"github.com/dukerupert/hearthboard/internal/model"
)

type fakeRoles struct {
	roles   map[int64]model.Role
	err     error
	lookups int
}

func (f *fakeRoles) MemberRole(_ context.Context, id int64) (model.Role, error) {
	f.lookups++
	if f.err != nil {
		return "", f.err
	}
	role, ok := f.roles[id]
	if !ok {
		return "", errors.New("no such member")
	}
	return role, nil
}

const (
	organizer int64 = iota + 1
	parentA
	parentB
	teen
	child
)

func family() *fakeRoles {
	return &fakeRoles{roles: map[int64]model.Role{
		organizer: model.RoleOrganizer,
		parentA:   model.RoleParent,
		parentB:   model.RoleParent,
		teen:      model.RoleTeen,
		child:     model.RoleChild,
	}}
}

func TestCanEdit(t *testing.T) {
	tests := []struct {
		name   string
		viewer int64
		owner  int64
		want   bool
	}{
		{"organizer self", organizer, organizer, true},
		{"parent self", parentA, parentA, true},
		{"teen self", teen, teen, true},
		{"child self", child, child, true},

		{"organizer edits parent", organizer, parentA, true},
		{"organizer edits teen", organizer, teen, true},
		{"organizer edits child", organizer, child, true},

		{"parent edits child", parentA, child, true},
		{"parent edits teen", parentA, teen, true},
		{"parent cannot edit other parent", parentA, parentB, false},
		{"parent cannot edit organizer", parentA, organizer, false},

		{"teen cannot edit child", teen, child, false},
		{"teen cannot edit parent", teen, parentA, false},
		{"teen cannot edit organizer", teen, organizer, false},
		{"child cannot edit teen", child, teen, false},
		{"child cannot edit organizer", child, organizer, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(family())
			got, err := r.CanEdit(context.Background(), tt.viewer, tt.owner)
			if err != nil {
				t.Fatalf("CanEdit: %v", err)
			}
			if got != tt.want {
				t.Errorf("CanEdit(%d, %d) = %v, want %v", tt.viewer, tt.owner, got, tt.want)
			}
		})
	}
}

func TestCanEditSelfSkipsLookup(t *testing.T) {
	roles := &fakeRoles{err: errors.New("backend down")}
	ok, err := NewResolver(roles).CanEdit(context.Background(), 42, 42)
	if err != nil || !ok {
		t.Fatalf("CanEdit(self) = %v, %v; want true, nil", ok, err)
	}
	if roles.lookups != 0 {
		t.Errorf("lookups = %d, want 0", roles.lookups)
	}
}

func TestCanEditOrganizerSkipsOwnerLookup(t *testing.T) {
	roles := family()
	ok, err := NewResolver(roles).CanEdit(context.Background(), organizer, 999)
	if err != nil || !ok {
		t.Fatalf("CanEdit = %v, %v; want true, nil", ok, err)
	}
	if roles.lookups != 1 {
		t.Errorf("lookups = %d, want 1", roles.lookups)
	}
}

func TestCanEditLookupFailureDenies(t *testing.T) {
	boom := errors.New("backend down")
	ok, err := NewResolver(&fakeRoles{err: boom}).CanEdit(context.Background(), parentA, child)
	if ok {
		t.Error("expected deny on lookup failure")
	}
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
}

func TestCanEditUnknownOwnerDenies(t *testing.T) {
	ok, err := NewResolver(family()).CanEdit(context.Background(), parentA, 999)
	if ok || err == nil {
		t.Errorf("CanEdit = %v, %v; want false with error", ok, err)
	}
}

func TestRoleMayEdit(t *testing.T) {
	roles := []model.Role{model.RoleOrganizer, model.RoleParent, model.RoleTeen, model.RoleChild}
	for _, owner := range roles {
		if !RoleMayEdit(model.RoleOrganizer, owner) {
			t.Errorf("organizer should edit %s", owner)
		}
		if RoleMayEdit(model.RoleTeen, owner) || RoleMayEdit(model.RoleChild, owner) {
			t.Errorf("minors should not edit %s", owner)
		}
	}
	if RoleMayEdit(model.RoleParent, model.RoleParent) || RoleMayEdit(model.RoleParent, model.RoleOrganizer) {
		t.Error("parents may only edit minors")
	}
}
