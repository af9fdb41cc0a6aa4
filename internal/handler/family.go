package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/hearthboard/internal/auth"
	"github.com/dukerupert/hearthboard/internal/store"
	"github.com/dukerupert/hearthboard/internal/websocket"
)

type FamilyHandler struct {
	families *store.FamilyStore
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewFamilyHandler(fs *store.FamilyStore, hub *websocket.Hub, logger *slog.Logger) *FamilyHandler {
	return &FamilyHandler{families: fs, hub: hub, logger: logger}
}

func (h *FamilyHandler) Get(w http.ResponseWriter, r *http.Request) {
	f, err := h.families.GetByID(r.Context(), auth.FamilyID(r.Context()))
	if err != nil {
		serverError(w, r, h.logger, "failed to get family", err)
		return
	}
	if f == nil {
		writeError(w, http.StatusNotFound, "family not found")
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *FamilyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Timezone string `json:"timezone"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			writeError(w, http.StatusBadRequest, "unknown timezone")
			return
		}
	}

	familyID := auth.FamilyID(r.Context())
	f, err := h.families.Update(r.Context(), familyID, req.Name, req.Timezone)
	if err != nil {
		serverError(w, r, h.logger, "failed to update family", err)
		return
	}

	broadcast(h.hub, familyID, websocket.NewMessage("family", "updated", familyID, nil))
	writeJSON(w, http.StatusOK, f)
}
