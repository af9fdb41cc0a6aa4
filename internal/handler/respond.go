package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/hearthboard/internal/store"
	"github.com/dukerupert/hearthboard/internal/websocket"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// serverError logs err and answers with a generic message so storage details
// never reach the client.
func serverError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, msg string, err error) {
	logger.ErrorContext(r.Context(), msg, "error", err, "method", r.Method, "path", r.URL.Path)
	writeError(w, http.StatusInternalServerError, msg)
}

// storeError maps the store's sentinel errors onto HTTP statuses and falls
// back to serverError for anything else.
func storeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, msg string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrConfigExists):
		writeError(w, http.StatusConflict, "dashboard already exists")
	case errors.Is(err, store.ErrConcurrentUpdate):
		writeError(w, http.StatusConflict, "dashboard is being edited elsewhere, try again")
	case errors.Is(err, store.ErrInsufficientPoints):
		writeError(w, http.StatusConflict, "not enough points")
	default:
		serverError(w, r, logger, msg, err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := jsonDecode(r.Body, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

func jsonDecode(body io.Reader, v any) error {
	return json.NewDecoder(body).Decode(v)
}

func parseIDParam(r *http.Request) (int64, error) {
	return parseInt64Param(r, "id")
}

func parseInt64Param(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func broadcast(hub *websocket.Hub, familyID int64, msg websocket.Message) {
	if hub != nil {
		hub.Broadcast(familyID, msg)
	}
}
