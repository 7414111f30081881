package web

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/orientamada/orientamada/internal/config"
	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/service"
)

// Session cookie names / Noms des cookies de session
const (
	CookieAccessToken   = "accessToken"
	CookieRefreshToken  = "refreshToken"
	CookieUserSession   = "userSession"
	CookieTokenMeta     = "tokenMeta"
	CookieSessionStatus = "sessionStatus"
	CookieUser          = "user"
	CookieCSRF          = "csrf_token"
	CookieOAuthState    = "oauth_state"

	sessionAuthenticated = "authenticated"
)

var sessionCookies = []string{
	CookieAccessToken,
	CookieRefreshToken,
	CookieUserSession,
	CookieTokenMeta,
	CookieSessionStatus,
	CookieUser,
	CookieCSRF,
}

// tokenMeta is readable by the front end to schedule refreshes / Lisible par le front pour planifier
type tokenMeta struct {
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// cookieUser is the profile subset exposed to scripts / Profil exposé aux scripts
type cookieUser struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// cookieJar writes the session cookies with the configured scope / Écrit les cookies de session
type cookieJar struct {
	conf config.AuthConfig
}

func (j cookieJar) cookie(name, value string, maxAge time.Duration, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     j.conf.CookiePath,
		Domain:   j.conf.CookieDomain,
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: httpOnly,
		Secure:   j.conf.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func encodeCookieJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// setSession writes the seven session cookies / Écrit les sept cookies de session
func (j cookieJar) setSession(w http.ResponseWriter, sess *service.Session) error {
	tokens := sess.Tokens
	refreshTTL := j.conf.RefreshTokenDuration

	meta, err := encodeCookieJSON(tokenMeta{
		AccessExpiresAt:  tokens.ExpiresAt.UTC(),
		RefreshExpiresAt: tokens.RefreshExpiresAt.UTC(),
	})
	if err != nil {
		return err
	}
	user, err := encodeCookieJSON(profileOf(sess.User))
	if err != nil {
		return err
	}
	csrf, err := generateCSRFToken()
	if err != nil {
		return err
	}

	for _, c := range []*http.Cookie{
		j.cookie(CookieAccessToken, tokens.AccessToken, j.conf.AccessTokenDuration, true),
		j.cookie(CookieRefreshToken, tokens.RefreshToken, refreshTTL, true),
		j.cookie(CookieUserSession, tokens.SessionID, refreshTTL, true),
		j.cookie(CookieTokenMeta, meta, refreshTTL, false),
		j.cookie(CookieSessionStatus, sessionAuthenticated, refreshTTL, false),
		j.cookie(CookieUser, user, refreshTTL, false),
		j.cookie(CookieCSRF, csrf, refreshTTL, false),
	} {
		http.SetCookie(w, c)
	}
	return nil
}

// clear expires every session cookie / Expire tous les cookies de session
func (j cookieJar) clear(w http.ResponseWriter) {
	for _, name := range sessionCookies {
		c := j.cookie(name, "", 0, name == CookieAccessToken || name == CookieRefreshToken || name == CookieUserSession)
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

// rotateCSRF replaces the csrf cookie after a credential change / Remplace le jeton CSRF
func (j cookieJar) rotateCSRF(w http.ResponseWriter) error {
	csrf, err := generateCSRFToken()
	if err != nil {
		return err
	}
	http.SetCookie(w, j.cookie(CookieCSRF, csrf, j.conf.RefreshTokenDuration, false))
	return nil
}

func profileOf(u *domain.User) cookieUser {
	return cookieUser{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      string(u.Role),
		AvatarURL: u.AvatarURL,
	}
}

func cookieValue(r *http.Request, name string) string {
	if c, err := r.Cookie(name); err == nil {
		return c.Value
	}
	return ""
}
