package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/orientamada/orientamada/internal/apperr"
	"github.com/orientamada/orientamada/internal/config"
	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/metrics"
	"github.com/orientamada/orientamada/internal/service"
	"github.com/orientamada/orientamada/internal/service/auth"
)

const (
	bearerPrefix    = "Bearer "
	RequestIDHeader = "X-Request-ID"
	CSRFHeader      = "X-CSRF-Token"
	loginPath       = "/login"
)

// RequestID tags each request with an id and a logger carrying it / Associe un ID et un logger à la requête
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), requestIDContextKey, requestID)
		ctx = context.WithValue(ctx, loggerContextKey, slog.Default().With("request_id", requestID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// responseWriter captures the status code / Capture le code de statut
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// Logging logs requests and refuses tokens in URLs / Journalise et refuse les tokens dans l'URL
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := requestLogger(r)

		query := strings.ToLower(r.URL.RawQuery)
		if strings.Contains(query, "access_token=") || strings.Contains(query, "refresh_token=") {
			logger.Error("token in query string refused", "path", r.URL.Path, "remote", r.RemoteAddr)
			writeJSON(w, http.StatusForbidden, ErrorBody{Error: "tokens must not be sent in the URL", Code: "forbidden"})
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"remote", r.RemoteAddr,
			"duration", time.Since(start),
		)
	})
}

// Timeout bounds the request context; stores abort on the deadline / Borne le contexte de la requête
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionService is the part of the auth service the guard needs / Partie du service d'auth utilisée par le garde
type sessionService interface {
	ValidateAccessToken(token string) (*auth.CustomClaims, error)
	Refresh(ctx context.Context, refreshToken string, client service.ClientBinding) (*service.Session, error)
}

// permissionChecker answers granular permission checks / Vérifie les permissions
type permissionChecker interface {
	UserHasPermission(ctx context.Context, userID int64, permission domain.Permission) (bool, error)
}

// Middleware holds middleware configuration and dependencies / Contient la configuration middleware
type Middleware struct {
	conf        *config.Config
	metrics     *metrics.Metrics
	sessions    sessionService
	permissions permissionChecker
	cookies     cookieJar

	globalLimiter *RateLimiter
	strictLimiter *RateLimiter
	userLimiter   *RateLimiter
	resendLimiter *RateLimiter
}

// NewMiddleware creates middleware with rate limiters / Crée le middleware avec limiteurs
func NewMiddleware(conf *config.Config, m *metrics.Metrics, sessions sessionService, permissions permissionChecker) *Middleware {
	mw := &Middleware{
		conf:        conf,
		metrics:     m,
		sessions:    sessions,
		permissions: permissions,
		cookies:     cookieJar{conf: conf.Auth},
	}

	if conf.RateLimiter.Enabled {
		ctx := context.Background()
		mw.globalLimiter = NewRateLimiter(ctx, conf.RateLimiter.RPS, conf.RateLimiter.Burst)

		strictRPS, strictBurst := conf.RateLimiter.RPS, conf.RateLimiter.Burst
		if conf.IsProduction() {
			strictRPS /= 2
			if strictBurst > 2 {
				strictBurst /= 2
			}
		}
		mw.strictLimiter = NewRateLimiter(ctx, strictRPS, strictBurst)
		mw.userLimiter = NewRateLimiter(ctx, conf.RateLimiter.RPS*2, conf.RateLimiter.Burst*2)
		mw.resendLimiter = NewRateLimiter(ctx, 0.3, 3)
	}

	return mw
}

// Close stops the limiter cleanup goroutines / Arrête le nettoyage des limiteurs
func (m *Middleware) Close() {
	for _, l := range []*RateLimiter{m.globalLimiter, m.strictLimiter, m.userLimiter, m.resendLimiter} {
		if l != nil {
			l.Stop()
		}
	}
}

// MetricsMiddleware tracks HTTP request metrics by route pattern / Suit les métriques HTTP par route
func (m *Middleware) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.metrics.IncrementActiveConnections()
		defer m.metrics.DecrementActiveConnections()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		// The mux fills Pattern on the request it receives
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.metrics.RecordHTTPRequest(r.Method, route, rw.statusCode)
		m.metrics.RecordHTTPDuration(r.Method, route, time.Since(start))
	})
}

func accessToken(r *http.Request) string {
	if token := cookieValue(r, CookieAccessToken); token != "" {
		return token
	}
	if authorization := r.Header.Get("Authorization"); strings.HasPrefix(authorization, bearerPrefix) {
		return strings.TrimPrefix(authorization, bearerPrefix)
	}
	return ""
}

// SessionGuard authenticates the request, refreshing the session from the refresh cookie when needed.
// Failures clear the cookies and point the client to the login page / Authentifie, rafraîchit ou renvoie vers /login
func (m *Middleware) SessionGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := accessToken(r); token != "" {
			if ctx, ok := m.authenticate(r.Context(), token); ok {
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			m.metrics.RecordInvalidToken()
		}

		refreshToken := cookieValue(r, CookieRefreshToken)
		if refreshToken == "" {
			m.sessionExpired(w, r)
			return
		}

		sess, err := m.sessions.Refresh(r.Context(), refreshToken, clientBinding(r, m.conf.Security.TrustedProxies))
		if err != nil {
			// a concurrent request already rotated the cookies: keep them
			if apperr.As(err).Status >= http.StatusInternalServerError || errors.Is(err, service.ErrRefreshSuperseded) {
				writeError(w, r, err)
				return
			}
			m.sessionExpired(w, r)
			return
		}
		if err := m.cookies.setSession(w, sess); err != nil {
			writeError(w, r, apperr.Internal(err))
			return
		}

		ctx, ok := m.authenticate(r.Context(), sess.Tokens.AccessToken)
		if !ok {
			m.sessionExpired(w, r)
			return
		}
		requestLogger(r).Debug("session refreshed by guard", "user_id", sess.User.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) authenticate(ctx context.Context, token string) (context.Context, bool) {
	claims, err := m.sessions.ValidateAccessToken(token)
	if err != nil {
		return ctx, false
	}
	userID, err := claims.UserID()
	if err != nil {
		return ctx, false
	}
	return withClaims(ctx, claims, userID), true
}

// sessionExpired clears the session and sends the client to the login page / Efface la session et renvoie vers /login
func (m *Middleware) sessionExpired(w http.ResponseWriter, r *http.Request) {
	m.cookies.clear(w)

	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		http.Redirect(w, r, loginURL(m.conf.Server.FrontendURL), http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusUnauthorized, ErrorBody{
		Error:    service.ErrSessionExpired.Message,
		Code:     service.ErrSessionExpired.Code,
		Redirect: loginPath,
	})
}

func loginURL(frontendURL string) string {
	return strings.TrimSuffix(frontendURL, "/") + loginPath
}

func loginErrorURL(frontendURL, code string) string {
	return loginURL(frontendURL) + "?error=" + url.QueryEscape(code)
}

// RequirePermission checks a granular permission of the guarded user / Vérifie une permission
func (m *Middleware) RequirePermission(permission domain.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				requestLogger(r).Error("permission check without session guard", "path", r.URL.Path)
				writeError(w, r, service.ErrSessionExpired)
				return
			}

			allowed, err := m.permissions.UserHasPermission(r.Context(), userID, permission)
			if err != nil {
				writeError(w, r, apperr.Internal(err))
				return
			}
			if !allowed {
				m.metrics.RecordPermissionDenial(string(permission))
				requestLogger(r).Warn("permission denied",
					"user_id", userID,
					"permission", permission,
					"method", r.Method,
					"path", r.URL.Path,
				)
				writeError(w, r, service.ErrForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Cors handles CORS headers / Gère les en-têtes CORS
func (m *Middleware) Cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		for _, allowed := range m.conf.Cors.AllowedOrigins {
			if origin != "" && (allowed == "*" || allowed == origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				break
			}
		}
		w.Header().Add("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, "+CSRFHeader+", "+RequestIDHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// SecurityHeaders adds security headers / Ajoute les en-têtes de sécurité
func (m *Middleware) SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
		if m.conf.IsProduction() {
			h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains; preload")
		}
		next.ServeHTTP(w, r)
	})
}

func safeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

// CSRF enforces the double-submit token on cookie-authenticated writes / Double soumission sur les écritures
func (m *Middleware) CSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if safeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		// Bearer clients without session cookies are not exposed to CSRF
		usesCookies := cookieValue(r, CookieAccessToken) != "" || cookieValue(r, CookieRefreshToken) != ""
		if !usesCookies && strings.HasPrefix(r.Header.Get("Authorization"), bearerPrefix) {
			next.ServeHTTP(w, r)
			return
		}

		cookieToken := cookieValue(r, CookieCSRF)
		headerToken := r.Header.Get(CSRFHeader)
		if !csrfTokensMatch(cookieToken, headerToken) {
			m.metrics.RecordCSRFFailure()
			requestLogger(r).Warn("csrf token mismatch",
				"cookie_len", len(cookieToken),
				"header_len", len(headerToken),
			)
			writeError(w, r, apperr.Forbidden("csrf_failed", "missing or invalid CSRF token"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// csrfTokensMatch compares the double-submit pair in constant time / Compare la paire en temps constant
func csrfTokensMatch(cookieToken, headerToken string) bool {
	if cookieToken == "" || headerToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookieToken), []byte(headerToken)) == 1
}
