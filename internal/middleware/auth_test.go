package middleware

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dukerupert/hearthboard/internal/auth"
	"github.com/dukerupert/hearthboard/internal/database"
	"github.com/dukerupert/hearthboard/internal/model"
	"github.com/dukerupert/hearthboard/internal/store"
)

const testSecret = "test-secret-with-enough-entropy"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupAuthMiddlewareDB(t *testing.T) (*store.FamilyMemberStore, *model.FamilyMember) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	fam, err := store.NewFamilyStore(db).Create(ctx, "Rivera", "UTC")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	members := store.NewFamilyMemberStore(db)
	m, err := members.Create(ctx, fam.ID, "Alice", model.RoleParent, "", "idp|alice")
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	return members, m
}

func signToken(t *testing.T, claims jwt.RegisteredClaims, method jwt.SigningMethod, key any) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func validClaims(sub string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   sub,
		Issuer:    "https://id.example.com",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
}

func unreachable(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	})
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body["error"]
}

func TestRequireAuthNoToken(t *testing.T) {
	members, _ := setupAuthMiddlewareDB(t)
	handler := RequireAuth(NewTokenVerifier(testSecret, ""), members, discardLogger())(unreachable(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if msg := errorBody(t, rec); msg != "missing bearer token" {
		t.Errorf("error = %q", msg)
	}
}

func TestRequireAuthRejectsBadTokens(t *testing.T) {
	members, _ := setupAuthMiddlewareDB(t)
	verifier := NewTokenVerifier(testSecret, "https://id.example.com")

	expired := validClaims("idp|alice")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	noExpiry := validClaims("idp|alice")
	noExpiry.ExpiresAt = nil

	wrongIssuer := validClaims("idp|alice")
	wrongIssuer.Issuer = "https://evil.example.com"

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"wrong secret", signToken(t, validClaims("idp|alice"), jwt.SigningMethodHS256, []byte("other"))},
		{"expired", signToken(t, expired, jwt.SigningMethodHS256, []byte(testSecret))},
		{"no expiry", signToken(t, noExpiry, jwt.SigningMethodHS256, []byte(testSecret))},
		{"wrong issuer", signToken(t, wrongIssuer, jwt.SigningMethodHS256, []byte(testSecret))},
		{"wrong algorithm", signToken(t, validClaims("idp|alice"), jwt.SigningMethodHS512, []byte(testSecret))},
		{"no subject", signToken(t, validClaims(""), jwt.SigningMethodHS256, []byte(testSecret))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireAuth(verifier, members, discardLogger())(unreachable(t))
			req := httptest.NewRequest("GET", "/", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestRequireAuthUnknownSubject(t *testing.T) {
	members, _ := setupAuthMiddlewareDB(t)
	handler := RequireAuth(NewTokenVerifier(testSecret, ""), members, discardLogger())(unreachable(t))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, validClaims("idp|stranger"), jwt.SigningMethodHS256, []byte(testSecret)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestRequireAuthValidToken(t *testing.T) {
	members, alice := setupAuthMiddlewareDB(t)
	token := signToken(t, validClaims("idp|alice"), jwt.SigningMethodHS256, []byte(testSecret))

	tests := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }},
		{"lowercase scheme", func(r *http.Request) { r.Header.Set("Authorization", "bearer "+token) }},
		{"query param", func(r *http.Request) {
			q := r.URL.Query()
			q.Set("access_token", token)
			r.URL.RawQuery = q.Encode()
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAC auth.AuthContext
			handler := RequireAuth(NewTokenVerifier(testSecret, "https://id.example.com"), members, discardLogger())(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					ac, ok := auth.FromContext(r.Context())
					if !ok {
						t.Fatal("expected AuthContext in request context")
					}
					gotAC = ac
					w.WriteHeader(http.StatusOK)
				}))

			req := httptest.NewRequest("GET", "/ws", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
			}
			want := auth.AuthContext{MemberID: alice.ID, FamilyID: alice.FamilyID, Role: model.RoleParent, Subject: "idp|alice"}
			if gotAC != want {
				t.Errorf("AuthContext = %+v, want %+v", gotAC, want)
			}
		})
	}
}

func TestRequireAuthNonBearerScheme(t *testing.T) {
	members, _ := setupAuthMiddlewareDB(t)
	handler := RequireAuth(NewTokenVerifier(testSecret, ""), members, discardLogger())(unreachable(t))

	req := httptest.NewRequest("GET", "/", nil)
	req.SetBasicAuth("alice", "hunter2")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireRole(model.RoleOrganizer, model.RoleParent)(ok)

	tests := []struct {
		role model.Role
		want int
	}{
		{model.RoleOrganizer, http.StatusOK},
		{model.RoleParent, http.StatusOK},
		{model.RoleTeen, http.StatusForbidden},
		{model.RoleChild, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			ctx := auth.WithAuth(context.Background(), auth.AuthContext{Role: tt.role})
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil).WithContext(ctx))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("missing auth: status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}
