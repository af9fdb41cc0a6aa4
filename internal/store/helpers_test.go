package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dukerupert/hearthboard/internal/database"
	"github.com/dukerupert/hearthboard/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedFamily(t *testing.T, db *sql.DB) *model.Family {
	t.Helper()
	f, err := NewFamilyStore(db).Create(context.Background(), "The Rivers", "America/Chicago")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	return f
}

func seedMember(t *testing.T, db *sql.DB, familyID int64, name string, role model.Role) *model.FamilyMember {
	t.Helper()
	m, err := NewFamilyMemberStore(db).Create(context.Background(), familyID, name, role, "", "")
	if err != nil {
		t.Fatalf("create member %q: %v", name, err)
	}
	return m
}
