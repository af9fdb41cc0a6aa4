package handler

import (
	"net/http"

	"github.com/dukerupert/hearthboard/internal/auth"
	"github.com/dukerupert/hearthboard/internal/widget"
)

// ListWidgets returns the catalog entries the caller's role may add. Pass
// ?all=true to see the whole catalog.
func ListWidgets(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("all") == "true" {
		writeJSON(w, http.StatusOK, widget.All())
		return
	}
	ac, _ := auth.FromContext(r.Context())
	writeJSON(w, http.StatusOK, widget.AvailableFor(ac.Role))
}
