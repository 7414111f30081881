package web

import (
	"net/http"

	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/dto"
)

// ListUsers returns a page of accounts / Retourne une page de comptes
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, meta, err := h.container.UserSvc.ListUsers(r.Context(), parsePage(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, dto.UsersToDTO(users), meta)
}

// DeleteUser removes an account; admins cannot delete themselves / Supprime un compte
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.container.UserSvc.DeleteUser(r.Context(), actorID(r), userID); err != nil {
		writeError(w, r, err)
		return
	}

	requestLogger(r).Info("user deleted", "user_id", userID, "by", actorID(r))
	w.WriteHeader(http.StatusNoContent)
}

// UpdateUserRole changes the role of an account / Change le rôle d'un compte
func (h *Handler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req dto.RoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	role := domain.UserRole(req.Role)
	if err := h.container.UserSvc.UpdateUserRole(r.Context(), userID, role); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.container.UserSvc.GetUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	requestLogger(r).Info("user role updated", "user_id", userID, "role", role, "by", actorID(r))
	writeData(w, http.StatusOK, dto.UserToDTO(user))
}

// UserStats counts accounts by role and verification / Compte les comptes par rôle
func (h *Handler) UserStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.container.UserSvc.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}
