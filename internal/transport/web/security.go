package web

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/orientamada/orientamada/internal/service"
)

// generateCSRFToken returns 32 random bytes, base64url encoded / 32 octets aléatoires en base64url
func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// sha256hex computes SHA-256 hash of string / Calcule le hash SHA-256 d'une chaîne
func sha256hex(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}

// clientBinding hashes the client IP and user agent a refresh token is bound to / Empreinte du client
func clientBinding(r *http.Request, trustedProxies []string) service.ClientBinding {
	return service.ClientBinding{
		IPHash: sha256hex(getIPWithTrustedProxies(r, trustedProxies)),
		UAHash: sha256hex(r.Header.Get("User-Agent")),
	}
}
