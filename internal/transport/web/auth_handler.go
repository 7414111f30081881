package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/orientamada/orientamada/internal/apperr"
	"github.com/orientamada/orientamada/internal/dto"
	"github.com/orientamada/orientamada/internal/service"
)

const (
	registeredMessage = "Registration received. If the address can be used, a 6-digit code has been sent to it."
	resendMessage     = "If the account exists and is not verified, a new code has been sent."
	resetMessage      = "If an account with that email exists, a password reset link has been sent."
)

func (h *Handler) cookies() cookieJar {
	return cookieJar{conf: h.container.Config.Auth}
}

func (h *Handler) binding(r *http.Request) service.ClientBinding {
	return clientBinding(r, h.container.Config.Security.TrustedProxies)
}

// startSession writes the cookies and the session body / Écrit les cookies et la réponse de session
func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, sess *service.Session) {
	if err := h.cookies().setSession(w, sess); err != nil {
		writeError(w, r, apperr.Internal(err))
		return
	}
	writeData(w, http.StatusOK, dto.SessionResponse{
		User:             dto.UserToDTO(sess.User),
		SessionID:        sess.Tokens.SessionID,
		AccessExpiresAt:  sess.Tokens.ExpiresAt.UTC(),
		RefreshExpiresAt: sess.Tokens.RefreshExpiresAt.UTC(),
	})
}

// Register creates an unverified account; existing emails get the same answer / Inscription, réponse identique si l'email existe
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	_, err := h.container.UserSvc.Register(r.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeMessage(w, http.StatusCreated, registeredMessage)
}

// VerifyOTP confirms the email with the emailed code and opens a session / Confirme l'email et ouvre une session
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.container.VerificationSvc.VerifyOTP(r.Context(), req.Email, req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sess, err := h.container.AuthSvc.OpenSession(r.Context(), user, h.binding(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.startSession(w, r, sess)
}

// ResendOTP always answers the same way with the cooldown / Répond toujours pareil, avec le délai
func (h *Handler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req dto.EmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	retry := h.container.VerificationSvc.ResendOTP(r.Context(), req.Email)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":             resendMessage,
		"retry_after_seconds": int(retry.Seconds()),
	})
}

// Login checks credentials and sets the session cookies / Vérifie les identifiants et pose les cookies
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	sess, err := h.container.AuthSvc.Login(r.Context(), req.Email, req.Password, h.binding(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.startSession(w, r, sess)
}

// Refresh rotates the refresh token; failures end the session unless a concurrent refresh won / Renouvelle le token
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := cookieValue(r, CookieRefreshToken)
	if token == "" && r.ContentLength != 0 {
		var req dto.RefreshRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		token = req.RefreshToken
	}

	sess, err := h.container.AuthSvc.Refresh(r.Context(), token, h.binding(r))
	if err != nil {
		if apperr.As(err).Status >= http.StatusInternalServerError || errors.Is(err, service.ErrRefreshSuperseded) {
			writeError(w, r, err)
			return
		}
		h.cookies().clear(w)
		writeJSON(w, http.StatusUnauthorized, ErrorBody{
			Error:    service.ErrSessionExpired.Message,
			Code:     service.ErrSessionExpired.Code,
			Redirect: loginPath,
		})
		return
	}
	h.startSession(w, r, sess)
}

// Logout closes the current session, or all of them with ?all=true; expired access tokens are fine
// Ferme la session courante, ou toutes avec ?all=true
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	req := service.LogoutRequest{
		SessionID:    cookieValue(r, CookieUserSession),
		RefreshToken: cookieValue(r, CookieRefreshToken),
	}
	req.All, _ = strconv.ParseBool(r.URL.Query().Get("all"))

	if token := accessToken(r); token != "" {
		if claims, err := h.container.AuthSvc.ValidateAccessToken(token); err == nil {
			if id, err := claims.UserID(); err == nil {
				req.UserID = id
				if req.SessionID == "" {
					req.SessionID = claims.SessionID
				}
			}
		}
	}

	if err := h.container.AuthSvc.Logout(r.Context(), req); err != nil {
		writeError(w, r, err)
		return
	}

	h.cookies().clear(w)
	writeMessage(w, http.StatusOK, "logged out")
}

// Me returns the signed-in profile / Retourne le profil connecté
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	user, err := h.container.UserSvc.GetUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, dto.UserToDTO(user))
}

// ForgotPassword sends a reset link; the answer never reveals accounts / Envoie un lien, sans révéler les comptes
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.EmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	h.container.PasswordSvc.RequestPasswordReset(r.Context(), req.Email)
	writeMessage(w, http.StatusOK, resetMessage)
}

// ResetPassword completes a reset with the emailed token / Termine la réinitialisation
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.container.PasswordSvc.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.cookies().rotateCSRF(w); err != nil {
		requestLogger(r).Error("failed to rotate CSRF token after password reset", "error", err)
	}
	writeMessage(w, http.StatusOK, "password has been reset, you can now log in")
}

// ChangePassword replaces the password; other sessions end and this one is reopened
// Change le mot de passe, ferme les autres sessions et rouvre celle-ci
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	userID, _ := UserIDFromContext(r.Context())
	if err := h.container.PasswordSvc.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.container.UserSvc.GetUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := h.container.AuthSvc.OpenSession(r.Context(), user, h.binding(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.startSession(w, r, sess)
}
