package web

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/orientamada/orientamada/internal/service"
)

const oauthStateTTL = 10 * time.Minute

// GoogleLogin stores state and PKCE verifier, then redirects to Google / Mémorise state et verifier puis redirige
func (h *Handler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	authURL, state, verifier, err := h.container.GoogleSvc.AuthCodeURL()
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, h.cookies().cookie(CookieOAuthState, state+"."+verifier, oauthStateTTL, true))
	http.Redirect(w, r, authURL, http.StatusFound)
}

// GoogleCallback finishes the sign-in and sends the browser back to the front end / Termine la connexion Google
func (h *Handler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	frontend := h.container.Config.Server.FrontendURL

	stored := cookieValue(r, CookieOAuthState)
	expired := h.cookies().cookie(CookieOAuthState, "", 0, true)
	expired.MaxAge = -1
	http.SetCookie(w, expired)

	fail := func(err error) {
		requestLogger(r).Warn("google sign-in failed", "error", err)
		http.Redirect(w, r, loginErrorURL(frontend, service.ErrOAuthFailed.Code), http.StatusSeeOther)
	}

	if !h.container.GoogleSvc.Enabled() {
		writeError(w, r, service.ErrOAuthDisabled)
		return
	}

	query := r.URL.Query()
	if reason := query.Get("error"); reason != "" {
		fail(errors.New("provider returned " + reason))
		return
	}

	state, verifier, ok := strings.Cut(stored, ".")
	got := query.Get("state")
	if !ok || got == "" || subtle.ConstantTimeCompare([]byte(state), []byte(got)) != 1 {
		fail(errors.New("state mismatch"))
		return
	}

	user, err := h.container.GoogleSvc.Exchange(r.Context(), query.Get("code"), verifier)
	if err != nil {
		fail(err)
		return
	}

	sess, err := h.container.AuthSvc.OpenSession(r.Context(), user, h.binding(r))
	if err != nil {
		fail(err)
		return
	}
	if err := h.cookies().setSession(w, sess); err != nil {
		fail(err)
		return
	}
	http.Redirect(w, r, frontend, http.StatusSeeOther)
}
