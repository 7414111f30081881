package web

import "net/http"

// PublicStats serves the home page counters / Compteurs publics
func (h *Handler) PublicStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.container.StatsSvc.Public(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}

// AdminStats serves the back-office dashboard / Tableau de bord du back-office
func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.container.StatsSvc.Admin(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}
