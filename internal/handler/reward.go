package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/hearthboard/internal/auth"
	"github.com/dukerupert/hearthboard/internal/model"
	"github.com/dukerupert/hearthboard/internal/store"
	"github.com/dukerupert/hearthboard/internal/websocket"
)

type RewardHandler struct {
	rewards *store.RewardStore
	members *store.FamilyMemberStore
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewRewardHandler(rs *store.RewardStore, ms *store.FamilyMemberStore, hub *websocket.Hub, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{rewards: rs, members: ms, hub: hub, logger: logger}
}

type rewardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	PointCost   int    `json:"point_cost"`
	Active      *bool  `json:"active"`
}

func (req *rewardRequest) validate(w http.ResponseWriter) bool {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return false
	}
	if req.PointCost <= 0 {
		writeError(w, http.StatusBadRequest, "point_cost must be > 0")
		return false
	}
	return true
}

func (req rewardRequest) active() bool {
	return req.Active == nil || *req.Active
}

func (h *RewardHandler) reward(w http.ResponseWriter, r *http.Request) (*model.Reward, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}
	reward, err := h.rewards.GetByID(r.Context(), id)
	if err != nil {
		serverError(w, r, h.logger, "failed to get reward", err)
		return nil, false
	}
	if reward == nil || reward.FamilyID != auth.FamilyID(r.Context()) {
		writeError(w, http.StatusNotFound, "reward not found")
		return nil, false
	}
	return reward, true
}

func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if !decodeJSON(w, r, &req) || !req.validate(w) {
		return
	}

	familyID := auth.FamilyID(r.Context())
	reward, err := h.rewards.Create(r.Context(), familyID, req.Title, req.Description, req.PointCost, req.active())
	if err != nil {
		serverError(w, r, h.logger, "failed to create reward", err)
		return
	}

	broadcast(h.hub, familyID, websocket.NewMessage("reward", "created", reward.ID, nil))
	writeJSON(w, http.StatusCreated, reward)
}

func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.rewards.List(r.Context(), auth.FamilyID(r.Context()))
	if err != nil {
		serverError(w, r, h.logger, "failed to list rewards", err)
		return
	}
	if r.URL.Query().Get("active") == "true" {
		filtered := rewards[:0]
		for _, rw := range rewards {
			if rw.Active {
				filtered = append(filtered, rw)
			}
		}
		rewards = filtered
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *RewardHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.reward(w, r)
	if !ok {
		return
	}

	var req rewardRequest
	if !decodeJSON(w, r, &req) || !req.validate(w) {
		return
	}
	active := existing.Active
	if req.Active != nil {
		active = *req.Active
	}

	reward, err := h.rewards.Update(r.Context(), existing.ID, req.Title, req.Description, req.PointCost, active)
	if err != nil {
		serverError(w, r, h.logger, "failed to update reward", err)
		return
	}

	broadcast(h.hub, reward.FamilyID, websocket.NewMessage("reward", "updated", reward.ID, nil))
	writeJSON(w, http.StatusOK, reward)
}

func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.reward(w, r)
	if !ok {
		return
	}

	if err := h.rewards.Delete(r.Context(), existing.ID); err != nil {
		storeError(w, r, h.logger, "failed to delete reward", err)
		return
	}

	broadcast(h.hub, existing.FamilyID, websocket.NewMessage("reward", "deleted", existing.ID, nil))
	w.WriteHeader(http.StatusNoContent)
}

// Redeem spends points on a reward. Members redeem for themselves; adults may
// redeem on behalf of anyone in the family by passing member_id.
func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	reward, ok := h.reward(w, r)
	if !ok {
		return
	}

	ac, _ := auth.FromContext(r.Context())
	var req struct {
		MemberID *int64 `json:"member_id"`
	}
	if r.ContentLength != 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := decodeOptional(r.Body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}

	memberID := ac.MemberID
	if req.MemberID != nil && *req.MemberID != ac.MemberID {
		if !ac.Role.IsAdult() {
			writeError(w, http.StatusForbidden, "you can only redeem rewards for yourself")
			return
		}
		m, err := h.members.GetByID(r.Context(), *req.MemberID)
		if err != nil {
			serverError(w, r, h.logger, "failed to get family member", err)
			return
		}
		if m == nil || m.FamilyID != ac.FamilyID {
			writeError(w, http.StatusBadRequest, "member_id is not a member of this family")
			return
		}
		memberID = m.ID
	}

	redemption, err := h.rewards.Redeem(r.Context(), reward.ID, memberID)
	if err != nil {
		storeError(w, r, h.logger, "failed to redeem reward", err)
		return
	}

	h.logger.Info("reward redeemed", "reward_id", reward.ID, "member_id", memberID, "points", redemption.PointsSpent)
	broadcast(h.hub, ac.FamilyID, websocket.NewMessage("reward", "redeemed", reward.ID,
		map[string]any{"member_id": memberID, "points_spent": redemption.PointsSpent}))
	writeJSON(w, http.StatusCreated, redemption)
}

func (h *RewardHandler) PointBalance(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	m, err := h.members.GetByID(r.Context(), id)
	if err != nil {
		serverError(w, r, h.logger, "failed to get family member", err)
		return
	}
	if m == nil || m.FamilyID != auth.FamilyID(r.Context()) {
		writeError(w, http.StatusNotFound, "family member not found")
		return
	}

	balance, err := h.rewards.PointBalance(r.Context(), m.ID)
	if err != nil {
		serverError(w, r, h.logger, "failed to get point balance", err)
		return
	}
	if balance == nil {
		writeError(w, http.StatusNotFound, "family member not found")
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (h *RewardHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.rewards.Leaderboard(r.Context(), auth.FamilyID(r.Context()))
	if err != nil {
		serverError(w, r, h.logger, "failed to get leaderboard", err)
		return
	}
	if board == nil {
		board = []model.PointBalance{}
	}
	writeJSON(w, http.StatusOK, board)
}

// decodeOptional decodes a JSON body that may be empty.
func decodeOptional(body io.Reader, v any) error {
	err := jsonDecode(body, v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
