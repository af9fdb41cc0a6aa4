package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Message is a live-sync notification telling open dashboards of one family
// to refetch an entity.
type Message struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	ID     string         `json:"id,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
// id may be a numeric row id or a string id such as a dashboard UUID.
func NewMessage(entity, action string, id any, extra map[string]any) Message {
	var sid string
	if id != nil {
		sid = fmt.Sprint(id)
	}
	return Message{
		Type:   entity + "_" + action,
		Entity: entity,
		Action: action,
		ID:     sid,
		Extra:  extra,
	}
}

// Hub tracks connected clients grouped by family.
type Hub struct {
	mu       sync.RWMutex
	families map[int64]map[*Client]struct{}
	logger   *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		families: make(map[int64]map[*Client]struct{}),
		logger:   logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.families[c.familyID]
	if !ok {
		set = make(map[*Client]struct{})
		h.families[c.familyID] = set
	}
	set[c] = struct{}{}
}

// Unregister removes a client and closes its send channel. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.families[c.familyID]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.families, c.familyID)
	}
}

// Broadcast sends msg to every client connected for familyID.
func (h *Hub) Broadcast(familyID int64, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.families[familyID] {
		select {
		case c.send <- data:
		default:
			// slow client, drop rather than block the writer
			h.logger.Debug("dropped broadcast", "family_id", familyID, "member_id", c.memberID, "type", msg.Type)
		}
	}
}

// ClientCount returns the number of connected clients across all families.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.families {
		n += len(set)
	}
	return n
}

// FamilyClientCount returns the number of clients connected for one family.
func (h *Hub) FamilyClientCount(familyID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.families[familyID])
}
