package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/orientamada/orientamada/internal/service/auth"
)

// contextKey avoids collisions with other packages' context keys / Évite les collisions de clés
type contextKey string

const (
	claimsContextKey    contextKey = "claims"
	userIDContextKey    contextKey = "user_id"
	requestIDContextKey contextKey = "request_id"
	loggerContextKey    contextKey = "logger"
)

func withClaims(ctx context.Context, claims *auth.CustomClaims, userID int64) context.Context {
	ctx = context.WithValue(ctx, claimsContextKey, claims)
	return context.WithValue(ctx, userIDContextKey, userID)
}

// ClaimsFromContext returns the access token claims set by the session guard / Claims posées par le garde
func ClaimsFromContext(ctx context.Context) (*auth.CustomClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*auth.CustomClaims)
	return claims, ok
}

// UserIDFromContext returns the authenticated user id / Identifiant de l'utilisateur authentifié
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDContextKey).(int64)
	return id, ok
}

// GetRequestID extracts request ID from context / Extrait l'ID de la requête du contexte
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDContextKey).(string); ok {
		return requestID
	}
	return ""
}

// requestLogger returns the logger tagged with the request id / Logger portant l'ID de requête
func requestLogger(r *http.Request) *slog.Logger {
	return requestLoggerFromContext(r.Context())
}

func requestLoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// actorID is the authenticated user id, 0 when anonymous / Id de l'utilisateur connecté, 0 sinon
func actorID(r *http.Request) int64 {
	id, _ := UserIDFromContext(r.Context())
	return id
}
