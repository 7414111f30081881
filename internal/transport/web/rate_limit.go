package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	visitorIdleTTL         = 3 * time.Minute
	visitorCleanupInterval = 5 * time.Minute
)

// RateLimiter keeps one token bucket per visitor key / Un seau de jetons par visiteur
type RateLimiter struct {
	visitors map[string]*Visitor
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// Visitor is one IP hash or user id and its limiter / Un visiteur et son limiteur
type Visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter starts a limiter and its idle-visitor cleanup / Démarre un limiteur et son nettoyage
func NewRateLimiter(ctx context.Context, rps float64, burst int) *RateLimiter {
	cleanupCtx, cancel := context.WithCancel(ctx)

	rl := &RateLimiter{
		visitors: make(map[string]*Visitor),
		rate:     rate.Limit(rps),
		burst:    burst,
		ctx:      cleanupCtx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go rl.cleanupVisitors()

	return rl
}

// Stop ends the cleanup goroutine and waits for it / Arrête le nettoyage et l'attend
func (rl *RateLimiter) Stop() {
	rl.cancel()
	<-rl.done
}

// Allow consumes one token for key / Consomme un jeton pour key
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getVisitor(key).Allow()
}

func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[key]
	if !exists {
		v = &Visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

func (rl *RateLimiter) cleanupVisitors() {
	defer close(rl.done)
	ticker := time.NewTicker(visitorCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			rl.sweep(now)
		case <-rl.ctx.Done():
			return
		}
	}
}

// sweep drops visitors idle for longer than visitorIdleTTL / Supprime les visiteurs inactifs
func (rl *RateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > visitorIdleTTL {
			delete(rl.visitors, key)
		}
	}
}

// getIPWithTrustedProxies trusts X-Forwarded-For and X-Real-IP only from configured proxies
// Ne fait confiance aux en-têtes de proxy que pour les proxies configurés
func getIPWithTrustedProxies(r *http.Request, trustedProxies []string) string {
	remoteIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remoteIP = r.RemoteAddr
	}

	if len(trustedProxies) == 0 || !slices.Contains(trustedProxies, remoteIP) {
		return remoteIP
	}

	// X-Forwarded-For is "client, proxy1, proxy2"
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		clientIP := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if net.ParseIP(clientIP) != nil {
			return clientIP
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(realIP) != nil {
		return realIP
	}

	return remoteIP
}

// hashIP avoids keeping raw addresses in memory / Évite de garder les adresses en clair
func hashIP(ip string) string {
	return sha256hex(ip)
}

func (mw *Middleware) limitByIP(limiter *RateLimiter, endpoint string, retryAfter int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}
			key := hashIP(getIPWithTrustedProxies(r, mw.conf.Security.TrustedProxies))
			if !limiter.Allow(key) {
				mw.metrics.RecordRateLimitHit(endpoint)
				sendRateLimitError(w, retryAfter)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit applies the global per-IP limit / Applique la limite globale par IP
func (mw *Middleware) RateLimit(next http.Handler) http.Handler {
	return mw.limitByIP(mw.globalLimiter, "global", 60)(next)
}

// RateLimitStrict applies the stricter limit of the auth endpoints / Limite stricte des routes d'auth
func (mw *Middleware) RateLimitStrict(next http.Handler) http.Handler {
	return mw.limitByIP(mw.strictLimiter, "strict", 60)(next)
}

// RateLimitResend caps code resends per IP / Limite les renvois de code par IP
func (mw *Middleware) RateLimitResend(next http.Handler) http.Handler {
	return mw.limitByIP(mw.resendLimiter, "resend", 10)(next)
}

// RateLimitByUser limits per user, per IP for anonymous requests / Limite par utilisateur, ou par IP
func (mw *Middleware) RateLimitByUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if mw.userLimiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		key, endpoint := "", "user_authenticated"
		if userID, ok := UserIDFromContext(r.Context()); ok {
			key = "user_" + strconv.FormatInt(userID, 10)
		} else {
			key, endpoint = hashIP(getIPWithTrustedProxies(r, mw.conf.Security.TrustedProxies)), "user_ip"
		}

		if !mw.userLimiter.Allow(key) {
			mw.metrics.RecordRateLimitHit(endpoint)
			sendRateLimitError(w, 60)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimitErrorResponse is the 429 body / Corps de la réponse 429
type RateLimitErrorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	RetryAfter int    `json:"retry_after_seconds"`
}

func sendRateLimitError(w http.ResponseWriter, retryAfter int) {
	w.Header().Set("Retry-After", fmt.Sprint(retryAfter))
	writeJSON(w, http.StatusTooManyRequests, RateLimitErrorResponse{
		Error:      "too many requests, please try again later",
		Code:       "rate_limit_exceeded",
		RetryAfter: retryAfter,
	})
}
