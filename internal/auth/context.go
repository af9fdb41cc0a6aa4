package auth

import (
	"context"

	"github.com/dukerupert/hearthboard/internal/model"
)

type contextKey struct{}

// AuthContext identifies the family member behind a request.
type AuthContext struct {
	MemberID int64
	FamilyID int64
	Role     model.Role
	Subject  string // identity-provider user id
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func FamilyID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.FamilyID
}

func MemberID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.MemberID
}
