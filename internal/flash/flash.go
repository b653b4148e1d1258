// Package flash carries one-time, category-tagged messages to the next
// rendered page in a signed cookie.
package flash

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Categories used by the handlers.
const (
	Success = "success"
	Danger  = "danger"
	Info    = "info"
	Message = "message"
)

const (
	// CookieName is the name of the flash cookie.
	CookieName = "flash"
	// lifetime bounds how long an unread flash survives.
	lifetime = 5 * time.Minute

	pendingKey = "flash.pending"
)

// Entry is a single flash message.
type Entry struct {
	Category string `json:"c"`
	Text     string `json:"t"`
}

type claims struct {
	Entries []Entry `json:"f"`
	jwt.RegisteredClaims
}

// Store reads and writes flash cookies signed with an HMAC key.
type Store struct {
	key          []byte
	secureCookie bool
}

// NewStore creates a Store signing with key.
func NewStore(key []byte, secureCookie bool) *Store {
	return &Store{key: key, secureCookie: secureCookie}
}

// Add queues a message for the next rendered page.
func (s *Store) Add(c *gin.Context, category, text string) {
	entries := append(s.pending(c), Entry{Category: category, Text: text})
	c.Set(pendingKey, entries)

	value, err := s.encode(entries)
	if err != nil {
		slog.Error("Failed to sign flash cookie", "error", err)
		return
	}
	s.setCookie(c, value, int(lifetime.Seconds()))
}

// Pop returns the queued messages and clears them.
func (s *Store) Pop(c *gin.Context) []Entry {
	entries := s.pending(c)
	c.Set(pendingKey, []Entry{})
	if _, err := c.Cookie(CookieName); err == nil {
		s.setCookie(c, "", -1)
	}
	return entries
}

func (s *Store) pending(c *gin.Context) []Entry {
	if v, ok := c.Get(pendingKey); ok {
		if entries, ok := v.([]Entry); ok {
			return entries
		}
	}
	value, err := c.Cookie(CookieName)
	if err != nil || value == "" {
		return nil
	}
	entries, err := s.decode(value)
	if err != nil {
		slog.Debug("Discarding flash cookie", "error", err)
		return nil
	}
	return entries
}

func (s *Store) encode(entries []Entry) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
		Entries: entries,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
	})
	return token.SignedString(s.key)
}

func (s *Store) decode(value string) ([]Entry, error) {
	token, err := jwt.ParseWithClaims(value, &claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil {
		return nil, err
	}
	cl, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid flash token")
	}
	return cl.Entries, nil
}

func (s *Store) setCookie(c *gin.Context, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
