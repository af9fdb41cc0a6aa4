package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/hearthboard/internal/auth"
)

// HandleWebSocket upgrades authenticated requests and attaches them to the
// caller's family channel. originPatterns restricts cross-origin upgrades;
// an empty list allows only same-origin requests.
func HandleWebSocket(hub *Hub, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			logger.Warn("websocket accept", "error", err, "member_id", ac.MemberID)
			return
		}
		defer conn.CloseNow()

		logger.Debug("websocket connected", "family_id", ac.FamilyID, "member_id", ac.MemberID)
		NewClient(hub, conn, ac.FamilyID, ac.MemberID).Run(r.Context())
		logger.Debug("websocket disconnected", "family_id", ac.FamilyID, "member_id", ac.MemberID)
	}
}
