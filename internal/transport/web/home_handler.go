package web

import (
	"net/http"

	"github.com/orientamada/orientamada/internal/app"
)

// APIIndex describes the API entry points / Décrit les points d'entrée de l'API
type APIIndex struct {
	Name    string            `json:"name"`
	Version string            `json:"version"`
	Links   map[string]string `json:"links"`
}

// Home serves the API index at the root / Index de l'API à la racine
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIIndex{
		Name:    "OrientaMada",
		Version: app.Version,
		Links: map[string]string{
			"establishments": "/api/v1/establishments",
			"formations":     "/api/v1/formations",
			"domains":        "/api/v1/domains",
			"regions":        "/api/v1/regions",
			"stats":          "/api/v1/stats",
			"chatbot":        "/api/v1/chatbot/messages",
			"login":          "/api/v1/auth/login",
			"health":         "/health",
		},
	})
}
