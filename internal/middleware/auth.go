package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dukerupert/hearthboard/internal/auth"
	"github.com/dukerupert/hearthboard/internal/model"
)

// MemberFinder maps an identity-provider subject to a family member.
type MemberFinder interface {
	GetByAuthUserID(ctx context.Context, authUserID string) (*model.FamilyMember, error)
}

// TokenVerifier checks HS256 bearer tokens issued by the identity provider.
type TokenVerifier struct {
	secret []byte
	issuer string
}

func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), issuer: issuer}
}

// Verify parses the token and returns its subject.
func (v *TokenVerifier) Verify(tokenString string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// RequireAuth resolves the bearer token to a family member and populates
// AuthContext. Browsers cannot set headers on websocket upgrades, so the
// token is also accepted from the access_token query parameter.
func RequireAuth(verifier *TokenVerifier, members MemberFinder, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				jsonError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			subject, err := verifier.Verify(token)
			if err != nil {
				logger.Debug("rejected token", "error", err, "remote", RealIP(r))
				jsonError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			member, err := members.GetByAuthUserID(r.Context(), subject)
			if err != nil {
				logger.Error("lookup member for token", "error", err, "subject", subject)
				jsonError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if member == nil {
				jsonError(w, http.StatusForbidden, "no family member for this account")
				return
			}

			ac := auth.AuthContext{
				MemberID: member.ID,
				FamilyID: member.FamilyID,
				Role:     member.Role,
				Subject:  subject,
			}
			recordMember(r.Context(), member.ID)
			next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), ac)))
		})
	}
}

// RequireRole rejects callers whose role is not in roles.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := auth.FromContext(r.Context())
			if !ok || !slices.Contains(roles, ac.Role) {
				jsonError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
