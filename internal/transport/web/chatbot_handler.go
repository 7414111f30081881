package web

import (
	"net/http"

	"github.com/orientamada/orientamada/internal/dto"
)

// ChatbotMessage answers one visitor message / Répond à un message du visiteur
func (h *Handler) ChatbotMessage(w http.ResponseWriter, r *http.Request) {
	var req dto.ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reply, err := h.container.Chatbot.Reply(r.Context(), req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, reply)
}
