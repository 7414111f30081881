package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every OrientaMada metric / Préfixe de toutes les métriques OrientaMada
const Namespace = "orientamada"

// Metrics holds the Prometheus collectors of the API / Contient les collecteurs Prometheus de l'API
type Metrics struct {
	// auth
	LoginAttempts     *prometheus.CounterVec // by status: success, failure, locked, unverified
	RegistrationTotal prometheus.Counter
	OTPEvents         *prometheus.CounterVec // by status: sent, verified, failed, throttled
	TokenRefreshes    *prometheus.CounterVec // by status: success, invalid, revoked, expired, binding_failure, superseded
	AccountLockouts   prometheus.Counter

	// catalog
	CacheLookups   *prometheus.CounterVec // by entity and result
	AdminMutations *prometheus.CounterVec // by entity and action
	ReviewsCreated prometheus.Counter
	ChatbotIntents *prometheus.CounterVec

	// http
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	ActiveConnections   prometheus.Gauge

	// security
	RateLimitHits     *prometheus.CounterVec
	CSRFFailures      prometheus.Counter
	InvalidTokens     prometheus.Counter
	PermissionDenials *prometheus.CounterVec

	// system
	DatabaseConnections prometheus.Gauge
	BackgroundTasks     *prometheus.GaugeVec
}

// NewMetrics registers every collector on reg / Enregistre tous les collecteurs sur reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	counter := func(subsystem, name, help string) prometheus.Counter {
		return f.NewCounter(prometheus.CounterOpts{Namespace: Namespace, Subsystem: subsystem, Name: name, Help: help})
	}
	counterVec := func(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
		return f.NewCounterVec(prometheus.CounterOpts{Namespace: Namespace, Subsystem: subsystem, Name: name, Help: help}, labels)
	}
	gauge := func(subsystem, name, help string) prometheus.Gauge {
		return f.NewGauge(prometheus.GaugeOpts{Namespace: Namespace, Subsystem: subsystem, Name: name, Help: help})
	}

	return &Metrics{
		LoginAttempts:     counterVec("auth", "login_attempts_total", "Login attempts by status", "status"),
		RegistrationTotal: counter("auth", "registrations_total", "Accounts created through sign-up"),
		OTPEvents:         counterVec("auth", "otp_events_total", "Sign-up code events by status", "status"),
		TokenRefreshes:    counterVec("auth", "token_refreshes_total", "Session refreshes by status", "status"),
		AccountLockouts:   counter("auth", "account_lockouts_total", "Accounts locked after repeated failed logins"),

		CacheLookups:   counterVec("catalog", "cache_lookups_total", "Reference cache lookups by entity and result", "entity", "result"),
		AdminMutations: counterVec("catalog", "admin_mutations_total", "Back-office writes by entity and action", "entity", "action"),
		ReviewsCreated: counter("catalog", "reviews_created_total", "Establishment reviews posted"),
		ChatbotIntents: counterVec("chatbot", "messages_total", "Chatbot messages by matched intent", "intent"),

		HTTPRequestsTotal: counterVec("http", "requests_total", "HTTP requests by method, route and status", "method", "path", "status_code"),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "path"}),
		ActiveConnections: gauge("http", "active_connections", "Requests currently in flight"),

		RateLimitHits:     counterVec("security", "rate_limit_hits_total", "Requests rejected by a rate limiter", "endpoint"),
		CSRFFailures:      counter("security", "csrf_failures_total", "Requests rejected by the CSRF check"),
		InvalidTokens:     counter("security", "invalid_tokens_total", "Invalid or expired access tokens presented"),
		PermissionDenials: counterVec("security", "permission_denials_total", "Permission checks that failed", "permission"),

		DatabaseConnections: gauge("db", "connections_open", "Open database connections"),
		BackgroundTasks: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "system",
			Name:      "background_task_running",
			Help:      "1 while a background task runs, 0 once stopped",
		}, []string{"task_name"}),
	}
}

func (m *Metrics) RecordLoginAttempt(status string) { m.LoginAttempts.WithLabelValues(status).Inc() }
func (m *Metrics) RecordRegistration()              { m.RegistrationTotal.Inc() }
func (m *Metrics) RecordOTP(status string)          { m.OTPEvents.WithLabelValues(status).Inc() }
func (m *Metrics) RecordTokenRefresh(status string) { m.TokenRefreshes.WithLabelValues(status).Inc() }
func (m *Metrics) RecordAccountLockout()            { m.AccountLockouts.Inc() }

// RecordCacheLookup records a reference cache hit or miss / Enregistre un succès ou échec de cache
func (m *Metrics) RecordCacheLookup(entity string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(entity, result).Inc()
}

// RecordAdminMutation records a back-office create, update or delete.
func (m *Metrics) RecordAdminMutation(entity, action string) {
	m.AdminMutations.WithLabelValues(entity, action).Inc()
}

func (m *Metrics) RecordReviewCreated()              { m.ReviewsCreated.Inc() }
func (m *Metrics) RecordChatbotIntent(intent string) { m.ChatbotIntents.WithLabelValues(intent).Inc() }

// RecordHTTPRequest counts a finished request. path is the route pattern, never the raw URL.
func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusLabel(statusCode)).Inc()
}

func (m *Metrics) RecordHTTPDuration(method, path string, duration time.Duration) {
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) IncrementActiveConnections() { m.ActiveConnections.Inc() }
func (m *Metrics) DecrementActiveConnections() { m.ActiveConnections.Dec() }

func (m *Metrics) RecordRateLimitHit(endpoint string)       { m.RateLimitHits.WithLabelValues(endpoint).Inc() }
func (m *Metrics) RecordCSRFFailure()                       { m.CSRFFailures.Inc() }
func (m *Metrics) RecordInvalidToken()                      { m.InvalidTokens.Inc() }
func (m *Metrics) RecordPermissionDenial(permission string) { m.PermissionDenials.WithLabelValues(permission).Inc() }

func (m *Metrics) UpdateDatabaseConnections(count int) { m.DatabaseConnections.Set(float64(count)) }

// SetBackgroundTaskStatus flips the gauge of a purge or backup loop.
func (m *Metrics) SetBackgroundTaskStatus(taskName string, running bool) {
	v := 0.0
	if running {
		v = 1
	}
	m.BackgroundTasks.WithLabelValues(taskName).Set(v)
}

// statuses the API actually answers with keep their own label
var exactStatuses = map[int]bool{
	200: true, 201: true, 204: true, 302: true, 303: true,
	400: true, 401: true, 403: true, 404: true, 409: true, 413: true, 422: true, 429: true,
	500: true, 503: true, 504: true,
}

// statusLabel keeps label cardinality bounded / Limite la cardinalité des labels
func statusLabel(code int) string {
	switch {
	case exactStatuses[code]:
		return strconv.Itoa(code)
	case code >= 100 && code < 600:
		return strconv.Itoa(code/100) + "xx"
	default:
		return "unknown"
	}
}
