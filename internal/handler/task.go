package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/hearthboard/internal/auth"
	"github.com/dukerupert/hearthboard/internal/model"
	"github.com/dukerupert/hearthboard/internal/store"
	"github.com/dukerupert/hearthboard/internal/websocket"
)

type TaskHandler struct {
	tasks   *store.TaskStore
	members *store.FamilyMemberStore
	hub     *websocket.Hub
	logger  *slog.Logger
	now     func() time.Time
}

func NewTaskHandler(ts *store.TaskStore, ms *store.FamilyMemberStore, hub *websocket.Hub, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: ts, members: ms, hub: hub, logger: logger, now: time.Now}
}

type taskRequest struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	DueDate     *time.Time         `json:"due_date"`
	Priority    model.TaskPriority `json:"priority"`
	Status      model.TaskStatus   `json:"status"`
	AssignedTo  *int64             `json:"assigned_to"`
	Points      int                `json:"points"`
}

// validate normalises the request and checks it against the caller's role.
// It writes the error response itself.
func (h *TaskHandler) validate(w http.ResponseWriter, r *http.Request, req *taskRequest) bool {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return false
	}
	if req.Priority == "" {
		req.Priority = model.PriorityMedium
	}
	if !req.Priority.Valid() {
		writeError(w, http.StatusBadRequest, "priority must be low, medium, high or urgent")
		return false
	}
	if req.Status == "" {
		req.Status = model.TaskPending
	}
	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "status must be pending, in_progress or completed")
		return false
	}
	if req.Points < 0 {
		writeError(w, http.StatusBadRequest, "points must be >= 0")
		return false
	}

	ac, _ := auth.FromContext(r.Context())
	if !ac.Role.IsAdult() {
		if req.AssignedTo != nil && *req.AssignedTo != ac.MemberID {
			writeError(w, http.StatusForbidden, "you can only assign tasks to yourself")
			return false
		}
		if req.Points != 0 {
			writeError(w, http.StatusForbidden, "only parents can set task points")
			return false
		}
	}

	if req.AssignedTo != nil {
		m, err := h.members.GetByID(r.Context(), *req.AssignedTo)
		if err != nil {
			serverError(w, r, h.logger, "failed to get family member", err)
			return false
		}
		if m == nil || m.FamilyID != ac.FamilyID {
			writeError(w, http.StatusBadRequest, "assigned_to is not a member of this family")
			return false
		}
	}
	return true
}

func (req taskRequest) params() store.TaskParams {
	return store.TaskParams{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Priority:    req.Priority,
		Status:      req.Status,
		AssignedTo:  req.AssignedTo,
		Points:      req.Points,
	}
}

// task loads the task named by {id} within the caller's family. It writes the
// error response itself.
func (h *TaskHandler) task(w http.ResponseWriter, r *http.Request) (*model.Task, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}
	t, err := h.tasks.GetByID(r.Context(), id)
	if err != nil {
		serverError(w, r, h.logger, "failed to get task", err)
		return nil, false
	}
	if t == nil || t.FamilyID != auth.FamilyID(r.Context()) {
		writeError(w, http.StatusNotFound, "task not found")
		return nil, false
	}
	return t, true
}

func isMember(id *int64, memberID int64) bool {
	return id != nil && *id == memberID
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.ListByFamily(r.Context(), auth.FamilyID(r.Context()))
	if err != nil {
		serverError(w, r, h.logger, "failed to list tasks", err)
		return
	}

	if v := r.URL.Query().Get("assigned_to"); v != "" {
		memberID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid assigned_to")
			return
		}
		filtered := tasks[:0]
		for _, t := range tasks {
			if isMember(t.AssignedTo, memberID) {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !h.validate(w, r, &req) {
		return
	}

	ac, _ := auth.FromContext(r.Context())
	creator := ac.MemberID
	t, err := h.tasks.Create(r.Context(), ac.FamilyID, &creator, req.params())
	if err != nil {
		serverError(w, r, h.logger, "failed to create task", err)
		return
	}

	broadcast(h.hub, ac.FamilyID, websocket.NewMessage("task", "created", t.ID, nil))
	writeJSON(w, http.StatusCreated, t)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.task(w, r)
	if !ok {
		return
	}
	ac, _ := auth.FromContext(r.Context())
	if !ac.Role.IsAdult() && !isMember(existing.CreatedBy, ac.MemberID) {
		writeError(w, http.StatusForbidden, "you cannot edit this task")
		return
	}

	var req taskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !ac.Role.IsAdult() {
		// only adults set points; anyone else keeps the current value
		req.Points = 0
	}
	if !h.validate(w, r, &req) {
		return
	}
	if !ac.Role.IsAdult() {
		req.Points = existing.Points
	}

	t, err := h.tasks.Update(r.Context(), existing.ID, req.params())
	if err != nil {
		serverError(w, r, h.logger, "failed to update task", err)
		return
	}

	broadcast(h.hub, ac.FamilyID, websocket.NewMessage("task", "updated", t.ID, nil))
	writeJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.task(w, r)
	if !ok {
		return
	}
	ac, _ := auth.FromContext(r.Context())
	if !ac.Role.IsAdult() && !isMember(existing.CreatedBy, ac.MemberID) {
		writeError(w, http.StatusForbidden, "you cannot delete this task")
		return
	}

	if err := h.tasks.Delete(r.Context(), existing.ID); err != nil {
		serverError(w, r, h.logger, "failed to delete task", err)
		return
	}

	broadcast(h.hub, ac.FamilyID, websocket.NewMessage("task", "deleted", existing.ID, nil))
	w.WriteHeader(http.StatusNoContent)
}

// mayToggle reports whether the caller may complete or reopen t.
func mayToggle(ac auth.AuthContext, t *model.Task) bool {
	return ac.Role.IsAdult() || isMember(t.AssignedTo, ac.MemberID)
}

func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.task(w, r)
	if !ok {
		return
	}
	ac, _ := auth.FromContext(r.Context())
	if !mayToggle(ac, existing) {
		writeError(w, http.StatusForbidden, "only the assignee or a parent can complete this task")
		return
	}

	t, err := h.tasks.Complete(r.Context(), existing.ID, h.now())
	if err != nil {
		serverError(w, r, h.logger, "failed to complete task", err)
		return
	}

	extra := map[string]any{"points": t.Points}
	if t.AssignedTo != nil {
		extra["assigned_to"] = *t.AssignedTo
	}
	broadcast(h.hub, ac.FamilyID, websocket.NewMessage("task", "completed", t.ID, extra))
	writeJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.task(w, r)
	if !ok {
		return
	}
	ac, _ := auth.FromContext(r.Context())
	if !mayToggle(ac, existing) {
		writeError(w, http.StatusForbidden, "only the assignee or a parent can reopen this task")
		return
	}

	t, err := h.tasks.Reopen(r.Context(), existing.ID)
	if err != nil {
		serverError(w, r, h.logger, "failed to reopen task", err)
		return
	}

	broadcast(h.hub, ac.FamilyID, websocket.NewMessage("task", "reopened", t.ID, nil))
	writeJSON(w, http.StatusOK, t)
}
