package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/hearthboard/internal/auth"
	"github.com/dukerupert/hearthboard/internal/model"
	"github.com/dukerupert/hearthboard/internal/store"
	"github.com/dukerupert/hearthboard/internal/websocket"
)

type IntentionHandler struct {
	intentions *store.IntentionStore
	hub        *websocket.Hub
	logger     *slog.Logger
}

func NewIntentionHandler(is *store.IntentionStore, hub *websocket.Hub, logger *slog.Logger) *IntentionHandler {
	return &IntentionHandler{intentions: is, hub: hub, logger: logger}
}

func (h *IntentionHandler) List(w http.ResponseWriter, r *http.Request) {
	intentions, err := h.intentions.ListByFamily(r.Context(), auth.FamilyID(r.Context()))
	if err != nil {
		serverError(w, r, h.logger, "failed to list intentions", err)
		return
	}
	if intentions == nil {
		intentions = []model.Intention{}
	}
	writeJSON(w, http.StatusOK, intentions)
}

func (h *IntentionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	ac, _ := auth.FromContext(r.Context())
	creator := ac.MemberID
	intention, err := h.intentions.Create(r.Context(), ac.FamilyID, req.Title, req.Description, &creator)
	if err != nil {
		serverError(w, r, h.logger, "failed to create intention", err)
		return
	}

	broadcast(h.hub, ac.FamilyID, websocket.NewMessage("intention", "created", intention.ID, nil))
	writeJSON(w, http.StatusCreated, intention)
}

// SetStatus moves an intention between active, paused, achieved and
// archived. Adults and the member who set the intention may change it.
func (h *IntentionHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.intentions.GetByID(r.Context(), id)
	if err != nil {
		serverError(w, r, h.logger, "failed to get intention", err)
		return
	}
	ac, _ := auth.FromContext(r.Context())
	if existing == nil || existing.FamilyID != ac.FamilyID {
		writeError(w, http.StatusNotFound, "intention not found")
		return
	}
	if !ac.Role.IsAdult() && !isMember(existing.CreatedBy, ac.MemberID) {
		writeError(w, http.StatusForbidden, "you cannot change this intention")
		return
	}

	var req struct {
		Status model.IntentionStatus `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "status must be active, paused, achieved or archived")
		return
	}

	intention, err := h.intentions.SetStatus(r.Context(), existing.ID, req.Status)
	if err != nil {
		serverError(w, r, h.logger, "failed to update intention", err)
		return
	}

	broadcast(h.hub, ac.FamilyID, websocket.NewMessage("intention", "updated", intention.ID,
		map[string]any{"status": intention.Status}))
	writeJSON(w, http.StatusOK, intention)
}
