package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/hearthboard/internal/auth"
	"github.com/dukerupert/hearthboard/internal/overview"
	"github.com/dukerupert/hearthboard/internal/store"
)

type OverviewHandler struct {
	aggregator *overview.Aggregator
	families   *store.FamilyStore
	logger     *slog.Logger
}

func NewOverviewHandler(agg *overview.Aggregator, fs *store.FamilyStore, logger *slog.Logger) *OverviewHandler {
	return &OverviewHandler{aggregator: agg, families: fs, logger: logger}
}

// Get builds the family overview. Days and weeks follow the family's own
// timezone when one is set, otherwise the server default.
func (h *OverviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	var loc *time.Location
	f, err := h.families.GetByID(r.Context(), familyID)
	if err != nil {
		serverError(w, r, h.logger, "failed to get family", err)
		return
	}
	if f != nil && f.Timezone != "" {
		if l, err := time.LoadLocation(f.Timezone); err == nil {
			loc = l
		} else {
			h.logger.Warn("family has invalid timezone", "family_id", familyID, "timezone", f.Timezone)
		}
	}

	ov, err := h.aggregator.FamilyIn(r.Context(), familyID, loc)
	if err != nil {
		serverError(w, r, h.logger, "failed to build family overview", err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}
