package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is the iss claim of every access token / Valeur du claim iss
const Issuer = "orientamada"

// ErrWeakKey is returned for signing keys shorter than 32 bytes / Clé de signature trop courte
var ErrWeakKey = errors.New("JWT key too weak")

// CustomClaims extends JWT claims with role and session / Étend les claims JWT avec le rôle et la session
type CustomClaims struct {
	jwt.RegisteredClaims
	Role      string `json:"role"`
	SessionID string `json:"sid"`
}

// UserID parses the subject / Analyse le sujet
func (c *CustomClaims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// TokenPair represents access and refresh tokens / Représente les tokens d'accès et de rafraîchissement
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	SessionID        string    `json:"session_id"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// GenerateTokenPair creates access and refresh tokens for one session / Crée les tokens d'une session
func GenerateTokenPair(userID int64, role, sessionID, jwtKey string, accessTokenDuration, refreshTokenDuration time.Duration) (*TokenPair, error) {
	if len(jwtKey) < 32 {
		return nil, ErrWeakKey
	}
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}

	now := time.Now()
	expiresAt := now.Add(accessTokenDuration)
	accessClaims := &CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    Issuer,
		},
		Role:      role,
		SessionID: sessionID,
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims)
	accessTokenString, err := accessToken.SignedString([]byte(jwtKey))
	if err != nil {
		return nil, err
	}

	refreshToken, err := GenerateSecureToken()
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      accessTokenString,
		RefreshToken:     refreshToken,
		SessionID:        sessionID,
		ExpiresAt:        expiresAt,
		RefreshExpiresAt: now.Add(refreshTokenDuration),
	}, nil
}

// GenerateSecureToken returns 32 random bytes hex-encoded / 32 octets aléatoires en hexadécimal
func GenerateSecureToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// ValidateJWT validates JWT token / Valide le token JWT
func ValidateJWT(tokenStr, jwtKey string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing algorithm: %v", token.Header["alg"])
		}
		return []byte(jwtKey), nil
	}, jwt.WithIssuer(Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrTokenInvalidClaims
}
