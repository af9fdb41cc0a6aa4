package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/hearthboard/internal/auth"
	"github.com/dukerupert/hearthboard/internal/model"
	"github.com/dukerupert/hearthboard/internal/store"
	"github.com/dukerupert/hearthboard/internal/websocket"
)

type CalendarEventHandler struct {
	events  *store.EventStore
	members *store.FamilyMemberStore
	hub     *websocket.Hub
	loc     *time.Location
	logger  *slog.Logger
}

func NewCalendarEventHandler(es *store.EventStore, ms *store.FamilyMemberStore, hub *websocket.Hub, loc *time.Location, logger *slog.Logger) *CalendarEventHandler {
	if loc == nil {
		loc = time.Local
	}
	return &CalendarEventHandler{events: es, members: ms, hub: hub, loc: loc, logger: logger}
}

type eventRequest struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	AllDay         bool   `json:"all_day"`
	FamilyMemberID *int64 `json:"family_member_id"`
	Location       string `json:"location"`
}

func (h *CalendarEventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	start, err := h.parseTime(req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start_time must be RFC3339 or YYYY-MM-DD format")
		return
	}
	end, err := h.parseTime(req.EndTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "end_time must be RFC3339 or YYYY-MM-DD format")
		return
	}
	if !start.Before(end) {
		writeError(w, http.StatusBadRequest, "start_time must be before end_time")
		return
	}

	ac, _ := auth.FromContext(r.Context())
	if req.FamilyMemberID != nil {
		member, err := h.members.GetByID(r.Context(), *req.FamilyMemberID)
		if err != nil {
			serverError(w, r, h.logger, "failed to check family member", err)
			return
		}
		if member == nil || member.FamilyID != ac.FamilyID {
			writeError(w, http.StatusBadRequest, "family member not found")
			return
		}
	}

	event, err := h.events.Create(r.Context(), ac.FamilyID, req.Title, req.Description, start, end, req.AllDay, req.FamilyMemberID, req.Location)
	if err != nil {
		serverError(w, r, h.logger, "failed to create event", err)
		return
	}

	broadcast(h.hub, ac.FamilyID, websocket.NewMessage("calendar_event", "created", event.ID, nil))
	writeJSON(w, http.StatusCreated, event)
}

// List returns events starting in [start, end). Both bounds default to the
// current day in the family timezone when omitted.
func (h *CalendarEventHandler) List(w http.ResponseWriter, r *http.Request) {
	now := time.Now().In(h.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc)
	end := start.AddDate(0, 0, 1)

	var err error
	if v := r.URL.Query().Get("start"); v != "" {
		if start, err = h.parseTime(v); err != nil {
			writeError(w, http.StatusBadRequest, "start must be RFC3339 or YYYY-MM-DD format")
			return
		}
	}
	if v := r.URL.Query().Get("end"); v != "" {
		if end, err = h.parseTime(v); err != nil {
			writeError(w, http.StatusBadRequest, "end must be RFC3339 or YYYY-MM-DD format")
			return
		}
	}
	if !start.Before(end) {
		writeError(w, http.StatusBadRequest, "start must be before end")
		return
	}

	events, err := h.events.ListByDateRange(r.Context(), auth.FamilyID(r.Context()), start, end)
	if err != nil {
		serverError(w, r, h.logger, "failed to list events", err)
		return
	}
	if events == nil {
		events = []model.CalendarEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *CalendarEventHandler) event(w http.ResponseWriter, r *http.Request) (*model.CalendarEvent, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}
	event, err := h.events.GetByID(r.Context(), id)
	if err != nil {
		serverError(w, r, h.logger, "failed to get event", err)
		return nil, false
	}
	if event == nil || event.FamilyID != auth.FamilyID(r.Context()) {
		writeError(w, http.StatusNotFound, "event not found")
		return nil, false
	}
	return event, true
}

func (h *CalendarEventHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, ok := h.event(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *CalendarEventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	event, ok := h.event(w, r)
	if !ok {
		return
	}

	if err := h.events.Delete(r.Context(), event.ID); err != nil {
		serverError(w, r, h.logger, "failed to delete event", err)
		return
	}

	broadcast(h.hub, event.FamilyID, websocket.NewMessage("calendar_event", "deleted", event.ID, nil))
	w.WriteHeader(http.StatusNoContent)
}

// parseTime accepts RFC3339 or a bare date, which is read as midnight in
// the family timezone.
func (h *CalendarEventHandler) parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(time.DateOnly, s, h.loc)
}
