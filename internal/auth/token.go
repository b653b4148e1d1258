package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for cookies that fail signature or expiry checks.
var ErrInvalidToken = errors.New("invalid or expired session token")

// GenerateSessionToken returns a new random session identifier.
func GenerateSessionToken() string {
	return uuid.NewString()
}

// sessionClaims is the payload of the session cookie.
type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// CookieSigner signs and verifies session cookie values with an HMAC key.
type CookieSigner struct {
	key []byte
}

// NewCookieSigner creates a signer for key.
func NewCookieSigner(key []byte) *CookieSigner {
	return &CookieSigner{key: key}
}

// Sign returns a cookie value naming sessionID for userID until expiresAt.
func (s *CookieSigner) Sign(sessionID string, userID uint, expiresAt time.Time) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &sessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, nil
}

// Verify checks a cookie value and returns the session ID it carries.
func (s *CookieSigner) Verify(value string) (string, error) {
	token, err := jwt.ParseWithClaims(value, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return "", ErrInvalidToken
	}
	return claims.SessionID, nil
}
