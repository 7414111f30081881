package web

import (
	"net/http"

	"github.com/orientamada/orientamada/internal/app"
	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const apiPrefix = "/api/v1"

// Router is the HTTP entry point; Close stops the rate limiters / Point d'entrée HTTP
type Router struct {
	http.Handler
	mw *Middleware
}

// Close releases the middleware goroutines / Libère les goroutines du middleware
func (rt *Router) Close() { rt.mw.Close() }

// NewRouter wires every route of the API / Câble toutes les routes de l'API
func NewRouter(c *app.Container) *Router {
	h := NewHandler(c)
	mw := NewMiddleware(c.Config, c.Metrics, c.AuthSvc, c.UserRepo)
	mux := http.NewServeMux()

	// Health checks stay outside authentication for load balancers
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("GET /readiness", h.ReadinessCheck)
	mux.Handle("GET /metrics", chain(
		promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{}).ServeHTTP,
		mw.SessionGuard,
		mw.RequirePermission(domain.PermissionStatsRead),
	))

	mux.HandleFunc("GET /{$}", h.Home)
	mux.HandleFunc("GET "+apiPrefix+"/{$}", h.Home)

	registerAuthRoutes(mux, h, mw)
	registerCatalogRoutes(mux, c.Catalogs, mw)

	// Reviews
	mux.Handle("GET "+apiPrefix+"/establishments/{id}/reviews", chain(h.ListReviews))
	mux.Handle("POST "+apiPrefix+"/establishments/{id}/reviews", chain(h.CreateReview, mw.SessionGuard, mw.CSRF, mw.RateLimitByUser))
	mux.Handle("DELETE "+apiPrefix+"/reviews/{id}", chain(h.DeleteReview, mw.SessionGuard, mw.CSRF, mw.RateLimitByUser))

	// Stats and chatbot
	mux.HandleFunc("GET "+apiPrefix+"/stats", h.PublicStats)
	mux.Handle("POST "+apiPrefix+"/chatbot/messages", chain(h.ChatbotMessage, mw.RateLimitByUser))

	// Back-office users
	admin := func(f http.HandlerFunc, p domain.Permission) http.Handler {
		return chain(f, mw.SessionGuard, mw.CSRF, mw.RequirePermission(p), mw.RateLimitByUser)
	}
	mux.Handle("GET "+apiPrefix+"/admin/users", admin(h.ListUsers, domain.PermissionUsersList))
	mux.Handle("GET "+apiPrefix+"/admin/users/stats", admin(h.UserStats, domain.PermissionStatsRead))
	mux.Handle("DELETE "+apiPrefix+"/admin/users/{id}", admin(h.DeleteUser, domain.PermissionUsersDelete))
	mux.Handle("PATCH "+apiPrefix+"/admin/users/{id}/role", admin(h.UpdateUserRole, domain.PermissionRolesWrite))
	mux.Handle("GET "+apiPrefix+"/admin/stats", admin(h.AdminStats, domain.PermissionStatsRead))

	// Global middlewares, outermost last / Middlewares globaux, le plus externe en dernier
	var handler http.Handler = mux
	handler = mw.MetricsMiddleware(handler)
	handler = mw.RateLimit(handler)
	handler = mw.SecurityHeaders(handler)
	handler = mw.Cors(handler)
	handler = Timeout(c.Config.Server.RequestTimeout)(handler)
	handler = Logging(handler)
	handler = RequestID(handler)

	return &Router{Handler: handler, mw: mw}
}

func registerAuthRoutes(mux *http.ServeMux, h *Handler, mw *Middleware) {
	auth := apiPrefix + "/auth"

	mux.Handle("POST "+auth+"/register", chain(h.Register, mw.RateLimitStrict))
	mux.Handle("POST "+auth+"/verify-otp", chain(h.VerifyOTP, mw.RateLimitStrict))
	mux.Handle("POST "+auth+"/resend-otp", chain(h.ResendOTP, mw.RateLimitResend))
	mux.Handle("POST "+auth+"/login", chain(h.Login, mw.RateLimitStrict))
	mux.Handle("POST "+auth+"/refresh", chain(h.Refresh, mw.RateLimitStrict))
	mux.Handle("POST /api/auth/refresh", chain(h.Refresh, mw.RateLimitStrict))
	mux.Handle("POST "+auth+"/logout", chain(h.Logout, mw.RateLimitStrict))
	mux.Handle("POST "+auth+"/forgot-password", chain(h.ForgotPassword, mw.RateLimitStrict))
	mux.Handle("POST "+auth+"/reset-password", chain(h.ResetPassword, mw.RateLimitStrict))
	mux.Handle("POST "+auth+"/change-password", chain(h.ChangePassword, mw.SessionGuard, mw.CSRF, mw.RateLimitByUser))
	mux.Handle("GET "+auth+"/me", chain(h.Me, mw.SessionGuard, mw.RateLimitByUser))

	mux.Handle("GET "+auth+"/google", chain(h.GoogleLogin, mw.RateLimitStrict))
	mux.Handle("GET "+auth+"/google/callback", chain(h.GoogleCallback, mw.RateLimitStrict))
}

func registerCatalogRoutes(mux *http.ServeMux, cats *service.Catalogs, mw *Middleware) {
	regions := registerCatalog(mux, mw, "regions", cats.Regions, true)
	registerCatalog(mux, mw, "cities", cats.Cities, true)
	domains := registerCatalog(mux, mw, "domains", cats.Domains, true)
	registerCatalog(mux, mw, "mentions", cats.Mentions, true)
	registerCatalog(mux, mw, "levels", cats.Levels, true)
	registerCatalog(mux, mw, "sectors", cats.Sectors, true)
	registerCatalog(mux, mw, "establishment-types", cats.EstablishmentTypes, true)
	establishments := registerCatalog(mux, mw, "establishments", cats.Establishments, true)
	formations := registerCatalog(mux, mw, "formations", cats.Formations, true)
	registerCatalog(mux, mw, "authorizations", cats.Authorizations, false)
	registerCatalog(mux, mw, "headcounts", cats.Headcounts, false)

	nested := func(path string, f http.HandlerFunc) {
		mux.HandleFunc("GET "+apiPrefix+path, f)
	}
	nested("/regions/{id}/cities", routesFor(cats.Cities).nested("region_id", exists(regions.catalog)))
	nested("/domains/{id}/mentions", routesFor(cats.Mentions).nested("domain_id", exists(domains.catalog)))
	nested("/establishments/{id}/formations", routesFor(cats.Formations).nested("establishment_id", exists(establishments.catalog)))
	nested("/formations/{id}/authorizations", routesFor(cats.Authorizations).nested("formation_id", exists(formations.catalog)))
	nested("/formations/{id}/headcounts", routesFor(cats.Headcounts).nested("formation_id", exists(formations.catalog)))
}

// registerCatalog mounts the admin CRUD of an entity and, when public, its read routes
func registerCatalog[T any, P service.Entity[T]](mux *http.ServeMux, mw *Middleware, path string, c *service.Catalog[T, P], public bool) catalogRoutes[T, P] {
	routes := routesFor(c)
	if public {
		mux.HandleFunc("GET "+apiPrefix+"/"+path, routes.list)
		mux.HandleFunc("GET "+apiPrefix+"/"+path+"/{id}", routes.get)
	}

	write := func(f http.HandlerFunc, p domain.Permission) http.Handler {
		return chain(f, mw.SessionGuard, mw.CSRF, mw.RequirePermission(p), mw.RateLimitByUser)
	}
	admin := apiPrefix + "/admin/" + path
	mux.Handle("POST "+admin, write(routes.create, domain.PermissionReferenceWrite))
	mux.Handle("PUT "+admin+"/{id}", write(routes.update, domain.PermissionReferenceWrite))
	mux.Handle("DELETE "+admin+"/{id}", write(routes.remove, domain.PermissionReferenceDelete))
	return routes
}

// chain wraps f with middlewares, the first one outermost / Applique les middlewares, le premier à l'extérieur
func chain(f http.HandlerFunc, middlewares ...func(http.Handler) http.Handler) http.Handler {
	var handler http.Handler = f
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}
