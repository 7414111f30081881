package web

import (
	"net/http"

	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/dto"
)

// ListReviews pages the reviews of an establishment / Liste les avis d'un établissement
func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, meta, err := h.container.ReviewSvc.List(r.Context(), id, parsePage(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, items, meta)
}

// CreateReview stores the caller's review / Enregistre l'avis de l'utilisateur
func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req dto.ReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := h.container.ReviewSvc.Create(r.Context(), actorID(r), &domain.Review{
		EstablishmentID: id,
		Rating:          req.Rating,
		Comment:         req.Comment,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, created)
}

// DeleteReview removes a review of the caller, or any review for moderators / Supprime un avis
func (h *Handler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.container.ReviewSvc.Delete(r.Context(), actorID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
