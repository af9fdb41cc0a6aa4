package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/hearthboard/internal/auth"
	"github.com/dukerupert/hearthboard/internal/middleware"
	"github.com/dukerupert/hearthboard/internal/model"
	"github.com/dukerupert/hearthboard/internal/permission"
	"github.com/dukerupert/hearthboard/internal/store"
	"github.com/dukerupert/hearthboard/internal/websocket"
)

type FamilyMemberHandler struct {
	store    *store.FamilyMemberStore
	resolver *permission.Resolver
	limiter  *middleware.RateLimiter
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewFamilyMemberHandler(s *store.FamilyMemberStore, resolver *permission.Resolver, limiter *middleware.RateLimiter, hub *websocket.Hub, logger *slog.Logger) *FamilyMemberHandler {
	return &FamilyMemberHandler{store: s, resolver: resolver, limiter: limiter, hub: hub, logger: logger}
}

// PINAttemptKey groups PIN verification attempts per target member and
// connecting address. Forwarding headers are ignored so a caller cannot
// rotate them to reset the count.
func PINAttemptKey(r *http.Request) string {
	return "pin:" + r.PathValue("id") + ":" + middleware.RemoteHost(r)
}

// target loads the member named by {id} and checks it is in the caller's
// family. It writes the error response itself.
func (h *FamilyMemberHandler) target(w http.ResponseWriter, r *http.Request) (*model.FamilyMember, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}
	m, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		serverError(w, r, h.logger, "failed to get family member", err)
		return nil, false
	}
	if m == nil || m.FamilyID != auth.FamilyID(r.Context()) {
		writeError(w, http.StatusNotFound, "family member not found")
		return nil, false
	}
	return m, true
}

// editableTarget is target plus a permission check.
func (h *FamilyMemberHandler) editableTarget(w http.ResponseWriter, r *http.Request) (*model.FamilyMember, bool) {
	m, ok := h.target(w, r)
	if !ok {
		return nil, false
	}
	allowed, err := h.resolver.CanEdit(r.Context(), auth.MemberID(r.Context()), m.ID)
	if err != nil {
		serverError(w, r, h.logger, "failed to check permissions", err)
		return nil, false
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "you cannot manage this family member")
		return nil, false
	}
	return m, true
}

func (h *FamilyMemberHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.store.ListByFamily(r.Context(), auth.FamilyID(r.Context()))
	if err != nil {
		serverError(w, r, h.logger, "failed to list family members", err)
		return
	}
	if members == nil {
		members = []model.FamilyMember{}
	}
	writeJSON(w, http.StatusOK, members)
}

// Me returns the caller and the dashboard they should land on.
func (h *FamilyMemberHandler) Me(w http.ResponseWriter, r *http.Request) {
	m, err := h.store.GetByID(r.Context(), auth.MemberID(r.Context()))
	if err != nil {
		serverError(w, r, h.logger, "failed to get family member", err)
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "family member not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"member":                 m,
		"default_dashboard_type": model.DefaultDashboardType(m.Role),
	})
}

type memberRequest struct {
	Name       string     `json:"name"`
	Role       model.Role `json:"role"`
	AvatarURL  string     `json:"avatar_url"`
	AuthUserID string     `json:"auth_user_id"`
}

func (h *FamilyMemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if !req.Role.Valid() {
		writeError(w, http.StatusBadRequest, "role must be organizer, parent, teen or child")
		return
	}
	ac, _ := auth.FromContext(r.Context())
	if !permission.RoleMayEdit(ac.Role, req.Role) {
		writeError(w, http.StatusForbidden, "you cannot add a member with that role")
		return
	}

	exists, err := h.store.NameExists(r.Context(), ac.FamilyID, req.Name, 0)
	if err != nil {
		serverError(w, r, h.logger, "failed to check name", err)
		return
	}
	if exists {
		writeError(w, http.StatusConflict, "a family member with that name already exists")
		return
	}

	req.AuthUserID = strings.TrimSpace(req.AuthUserID)
	if req.AuthUserID != "" {
		linked, err := h.store.GetByAuthUserID(r.Context(), req.AuthUserID)
		if err != nil {
			serverError(w, r, h.logger, "failed to check account link", err)
			return
		}
		if linked != nil {
			writeError(w, http.StatusConflict, "that account is already linked to a family member")
			return
		}
	}

	member, err := h.store.Create(r.Context(), ac.FamilyID, req.Name, req.Role, req.AvatarURL, req.AuthUserID)
	if err != nil {
		serverError(w, r, h.logger, "failed to create family member", err)
		return
	}

	h.logger.Info("family member created", "member_id", member.ID, "family_id", ac.FamilyID, "role", member.Role)
	broadcast(h.hub, ac.FamilyID, websocket.NewMessage("family_member", "created", member.ID, nil))
	writeJSON(w, http.StatusCreated, member)
}

func (h *FamilyMemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.editableTarget(w, r)
	if !ok {
		return
	}

	var req memberRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Role == "" {
		req.Role = existing.Role
	}
	if !req.Role.Valid() {
		writeError(w, http.StatusBadRequest, "role must be organizer, parent, teen or child")
		return
	}
	ac, _ := auth.FromContext(r.Context())
	if req.Role != existing.Role && (existing.ID == ac.MemberID || !permission.RoleMayEdit(ac.Role, req.Role)) {
		writeError(w, http.StatusForbidden, "you cannot assign that role")
		return
	}

	exists, err := h.store.NameExists(r.Context(), ac.FamilyID, req.Name, existing.ID)
	if err != nil {
		serverError(w, r, h.logger, "failed to check name", err)
		return
	}
	if exists {
		writeError(w, http.StatusConflict, "a family member with that name already exists")
		return
	}

	member, err := h.store.Update(r.Context(), existing.ID, req.Name, req.Role, req.AvatarURL)
	if err != nil {
		serverError(w, r, h.logger, "failed to update family member", err)
		return
	}

	broadcast(h.hub, ac.FamilyID, websocket.NewMessage("family_member", "updated", member.ID, nil))
	writeJSON(w, http.StatusOK, member)
}

func (h *FamilyMemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.editableTarget(w, r)
	if !ok {
		return
	}
	if existing.ID == auth.MemberID(r.Context()) {
		writeError(w, http.StatusBadRequest, "you cannot remove yourself")
		return
	}

	if err := h.store.Delete(r.Context(), existing.ID); err != nil {
		serverError(w, r, h.logger, "failed to delete family member", err)
		return
	}

	h.logger.Info("family member deleted", "member_id", existing.ID, "by", auth.MemberID(r.Context()))
	broadcast(h.hub, existing.FamilyID, websocket.NewMessage("family_member", "deleted", existing.ID, nil))
	w.WriteHeader(http.StatusNoContent)
}

func (h *FamilyMemberHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.editableTarget(w, r)
	if !ok {
		return
	}

	var req struct {
		PIN string `json:"pin"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if len(req.PIN) != 4 || !isDigits(req.PIN) {
		writeError(w, http.StatusBadRequest, "PIN must be exactly 4 digits")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		serverError(w, r, h.logger, "failed to hash PIN", err)
		return
	}

	if err := h.store.SetPIN(r.Context(), existing.ID, string(hash)); err != nil {
		serverError(w, r, h.logger, "failed to set PIN", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "pin set"})
}

func (h *FamilyMemberHandler) ClearPIN(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.editableTarget(w, r)
	if !ok {
		return
	}

	if err := h.store.ClearPIN(r.Context(), existing.ID); err != nil {
		serverError(w, r, h.logger, "failed to clear PIN", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "pin cleared"})
}

// VerifyPIN checks a kiosk profile-switch PIN. Attempts are rate limited by
// the router; a correct PIN clears the attempt counter.
func (h *FamilyMemberHandler) VerifyPIN(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.target(w, r)
	if !ok {
		return
	}

	var req struct {
		PIN string `json:"pin"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	hash, err := h.store.GetPINHash(r.Context(), existing.ID)
	if err != nil {
		storeError(w, r, h.logger, "failed to get PIN", err)
		return
	}
	if hash == "" {
		writeError(w, http.StatusBadRequest, "no PIN set for this member")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.PIN)); err != nil {
		h.logger.Warn("incorrect PIN", "member_id", existing.ID, "remote", middleware.RealIP(r))
		writeError(w, http.StatusUnauthorized, "incorrect PIN")
		return
	}

	if h.limiter != nil {
		h.limiter.Reset(PINAttemptKey(r))
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "verified", "member_id": strconv.FormatInt(existing.ID, 10)})
}
