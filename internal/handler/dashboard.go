package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/hearthboard/internal/auth"
	"github.com/dukerupert/hearthboard/internal/model"
	"github.com/dukerupert/hearthboard/internal/permission"
	"github.com/dukerupert/hearthboard/internal/store"
	"github.com/dukerupert/hearthboard/internal/websocket"
	"github.com/dukerupert/hearthboard/internal/widget"
)

type DashboardHandler struct {
	configs  *store.DashboardStore
	members  *store.FamilyMemberStore
	resolver *permission.Resolver
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewDashboardHandler(cs *store.DashboardStore, ms *store.FamilyMemberStore, resolver *permission.Resolver, hub *websocket.Hub, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{configs: cs, members: ms, resolver: resolver, hub: hub, logger: logger}
}

type dashboardResponse struct {
	*model.DashboardConfig
	CanEdit bool `json:"can_edit"`
}

// owner loads the member named by the {id} path value and checks it belongs
// to the caller's family. It writes the error response itself.
func (h *DashboardHandler) owner(w http.ResponseWriter, r *http.Request) (*model.FamilyMember, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}
	m, err := h.members.GetByID(r.Context(), id)
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

func dashboardTypeParam(w http.ResponseWriter, r *http.Request) (model.DashboardType, bool) {
	dt := model.DashboardType(r.PathValue("type"))
	if !dt.Valid() {
		writeError(w, http.StatusBadRequest, "unknown dashboard type")
		return "", false
	}
	return dt, true
}

// hiddenFrom reports whether a personal dashboard must be concealed from viewer.
func hiddenFrom(viewerID, ownerID int64, personal bool) bool {
	return personal && viewerID != ownerID
}

// Get returns a member's dashboard of the given type, creating it on first
// access when the caller is allowed to edit it.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	dt, ok := dashboardTypeParam(w, r)
	if !ok {
		return
	}
	viewer := auth.MemberID(r.Context())
	if hiddenFrom(viewer, owner.ID, dt == model.DashboardPersonal) {
		writeError(w, http.StatusNotFound, "dashboard not found")
		return
	}

	editable, err := h.resolver.CanEdit(r.Context(), viewer, owner.ID)
	if err != nil {
		serverError(w, r, h.logger, "failed to check permissions", err)
		return
	}

	cfg, err := h.configs.Get(r.Context(), owner.ID, dt)
	if err != nil {
		serverError(w, r, h.logger, "failed to get dashboard", err)
		return
	}
	if cfg == nil {
		if !editable {
			writeError(w, http.StatusNotFound, "dashboard not found")
			return
		}
		var created bool
		cfg, created, err = h.configs.GetOrCreate(r.Context(), owner.ID, dt, dt == model.DashboardPersonal)
		if err != nil {
			storeError(w, r, h.logger, "failed to create dashboard", err)
			return
		}
		if created {
			h.logger.Info("dashboard created", "config_id", cfg.ID, "owner_id", owner.ID, "type", dt)
			broadcast(h.hub, owner.FamilyID, websocket.NewMessage("dashboard", "created", cfg.ID,
				map[string]any{"owner_id": owner.ID, "dashboard_type": dt}))
		}
	}
	if hiddenFrom(viewer, owner.ID, cfg.IsPersonal) {
		writeError(w, http.StatusNotFound, "dashboard not found")
		return
	}

	writeJSON(w, http.StatusOK, dashboardResponse{DashboardConfig: cfg, CanEdit: editable})
}

// List returns every dashboard a member owns that the caller may see.
func (h *DashboardHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	configs, err := h.configs.ListByOwner(r.Context(), owner.ID)
	if err != nil {
		serverError(w, r, h.logger, "failed to list dashboards", err)
		return
	}

	viewer := auth.MemberID(r.Context())
	visible := make([]model.DashboardConfig, 0, len(configs))
	for _, c := range configs {
		if !hiddenFrom(viewer, owner.ID, c.IsPersonal) {
			visible = append(visible, c)
		}
	}
	writeJSON(w, http.StatusOK, visible)
}

func (h *DashboardHandler) Permissions(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	if _, ok := dashboardTypeParam(w, r); !ok {
		return
	}
	editable, err := h.resolver.CanEdit(r.Context(), auth.MemberID(r.Context()), owner.ID)
	if err != nil {
		serverError(w, r, h.logger, "failed to check permissions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"can_edit": editable})
}

// editableConfig loads the dashboard named by {id} and checks the caller may
// change it. It writes the error response itself.
func (h *DashboardHandler) editableConfig(w http.ResponseWriter, r *http.Request) (*model.DashboardConfig, bool) {
	cfg, err := h.configs.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		serverError(w, r, h.logger, "failed to get dashboard", err)
		return nil, false
	}
	if cfg == nil {
		writeError(w, http.StatusNotFound, "dashboard not found")
		return nil, false
	}

	owner, err := h.members.GetByID(r.Context(), cfg.OwnerID)
	if err != nil {
		serverError(w, r, h.logger, "failed to get family member", err)
		return nil, false
	}
	viewer := auth.MemberID(r.Context())
	if owner == nil || owner.FamilyID != auth.FamilyID(r.Context()) || hiddenFrom(viewer, owner.ID, cfg.IsPersonal) {
		writeError(w, http.StatusNotFound, "dashboard not found")
		return nil, false
	}

	editable, err := h.resolver.CanEdit(r.Context(), viewer, owner.ID)
	if err != nil {
		serverError(w, r, h.logger, "failed to check permissions", err)
		return nil, false
	}
	if !editable {
		writeError(w, http.StatusForbidden, "you cannot edit this dashboard")
		return nil, false
	}
	return cfg, true
}

func (h *DashboardHandler) notify(r *http.Request, cfg *model.DashboardConfig, action, widgetID string) {
	extra := map[string]any{"owner_id": cfg.OwnerID}
	if widgetID != "" {
		extra["widget_id"] = widgetID
	}
	broadcast(h.hub, auth.FamilyID(r.Context()), websocket.NewMessage("dashboard", action, cfg.ID, extra))
}

func validPosition(p model.Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.W >= 1 && p.H >= 1
}

func (h *DashboardHandler) AddWidget(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.editableConfig(w, r)
	if !ok {
		return
	}

	var req struct {
		WidgetType string          `json:"widget_type"`
		Position   *model.Position `json:"position"`
		Settings   map[string]any  `json:"settings"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, found := widget.Lookup(req.WidgetType)
	if !found {
		writeError(w, http.StatusBadRequest, "unknown widget type")
		return
	}
	ac, _ := auth.FromContext(r.Context())
	if !entry.Allows(ac.Role) {
		writeError(w, http.StatusForbidden, "your role cannot add this widget")
		return
	}

	pos := widget.DefaultPosition(entry.Type, 0, 0)
	if req.Position != nil {
		pos = *req.Position
	}
	if !validPosition(pos) || !entry.Fits(pos) {
		writeError(w, http.StatusBadRequest, "invalid widget position")
		return
	}

	placement, err := h.configs.AddWidget(r.Context(), cfg.ID, entry.Type, pos, req.Settings)
	if err != nil {
		storeError(w, r, h.logger, "failed to add widget", err)
		return
	}

	h.notify(r, cfg, "widget_added", placement.ID)
	writeJSON(w, http.StatusCreated, placement)
}

func (h *DashboardHandler) RemoveWidget(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.editableConfig(w, r)
	if !ok {
		return
	}
	widgetID := r.PathValue("widget_id")

	if err := h.configs.RemoveWidget(r.Context(), cfg.ID, widgetID); err != nil {
		storeError(w, r, h.logger, "failed to remove widget", err)
		return
	}

	h.notify(r, cfg, "widget_removed", widgetID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *DashboardHandler) MoveWidget(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.editableConfig(w, r)
	if !ok {
		return
	}
	widgetID := r.PathValue("widget_id")

	var pos model.Position
	if !decodeJSON(w, r, &pos) {
		return
	}
	if !validPosition(pos) {
		writeError(w, http.StatusBadRequest, "invalid widget position")
		return
	}
	if p := cfg.Widget(widgetID); p != nil {
		if entry, ok := widget.Lookup(p.WidgetType); ok && !entry.Fits(pos) {
			writeError(w, http.StatusBadRequest, "widget is smaller than its minimum size")
			return
		}
	}

	if err := h.configs.UpdateWidgetPosition(r.Context(), cfg.ID, widgetID, pos); err != nil {
		storeError(w, r, h.logger, "failed to move widget", err)
		return
	}

	h.notify(r, cfg, "widget_moved", widgetID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *DashboardHandler) UpdateWidgetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.editableConfig(w, r)
	if !ok {
		return
	}
	widgetID := r.PathValue("widget_id")

	var req struct {
		Settings map[string]any `json:"settings"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.configs.UpdateWidgetSettings(r.Context(), cfg.ID, widgetID, req.Settings); err != nil {
		storeError(w, r, h.logger, "failed to update widget settings", err)
		return
	}

	h.notify(r, cfg, "widget_updated", widgetID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *DashboardHandler) SetWidgetVisibility(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.editableConfig(w, r)
	if !ok {
		return
	}
	widgetID := r.PathValue("widget_id")

	var req struct {
		Visible  *bool `json:"visible"`
		Editable *bool `json:"editable"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	visible, editable := true, true
	if p := cfg.Widget(widgetID); p != nil {
		visible, editable = p.Visible, p.Editable
	}
	if req.Visible != nil {
		visible = *req.Visible
	}
	if req.Editable != nil {
		editable = *req.Editable
	}

	if err := h.configs.SetWidgetVisibility(r.Context(), cfg.ID, widgetID, visible, editable); err != nil {
		storeError(w, r, h.logger, "failed to update widget visibility", err)
		return
	}

	h.notify(r, cfg, "widget_updated", widgetID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *DashboardHandler) UpdateLayout(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.editableConfig(w, r)
	if !ok {
		return
	}

	var layout model.Layout
	if !decodeJSON(w, r, &layout) {
		return
	}
	if layout.Columns < 1 || layout.Columns > 24 || layout.Rows < 1 || layout.Gap < 0 {
		writeError(w, http.StatusBadRequest, "columns must be 1-24, rows at least 1 and gap non-negative")
		return
	}

	updated, err := h.configs.UpdateLayout(r.Context(), cfg.ID, layout)
	if err != nil {
		storeError(w, r, h.logger, "failed to update layout", err)
		return
	}

	h.notify(r, cfg, "layout_updated", "")
	writeJSON(w, http.StatusOK, updated)
}
