package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"billsplit/internal/flash"
	"billsplit/internal/models"
	"billsplit/internal/storage"
)

// ErrNoSession is returned when a request carries no usable session.
var ErrNoSession = errors.New("no active session")

const (
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"
	// DefaultSessionDuration is how long sessions last (30 days).
	DefaultSessionDuration = 30 * 24 * time.Hour

	// LoginRequiredMessage is flashed when a guarded route is hit without a session.
	LoginRequiredMessage = "Please log in to access this page."

	userKey     = "auth.user"
	sessionKey  = "auth.session"
	resolvedKey = "auth.resolved"

	maxCacheTTL = 10 * time.Minute
)

// SessionStore is the session persistence the manager needs.
type SessionStore interface {
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	RenewSession(ctx context.Context, id string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, id string) error
}

// SessionManager starts, resolves and ends browser sessions.
type SessionManager struct {
	store        SessionStore
	signer       *CookieSigner
	cache        UserCache
	duration     time.Duration
	secureCookie bool
}

// NewSessionManager creates a SessionManager. A nil cache disables caching.
func NewSessionManager(store SessionStore, key []byte, duration time.Duration, secureCookie bool, cache UserCache) *SessionManager {
	if duration <= 0 {
		duration = DefaultSessionDuration
	}
	if cache == nil {
		cache = noCache{}
	}
	return &SessionManager{
		store:        store,
		signer:       NewCookieSigner(key),
		cache:        cache,
		duration:     duration,
		secureCookie: secureCookie,
	}
}

// Start creates a session for user and sets the session cookie.
func (m *SessionManager) Start(c *gin.Context, user *models.User) error {
	now := time.Now()
	session := &models.Session{
		ID:           GenerateSessionToken(),
		UserID:       user.ID,
		ExpiresAt:    now.Add(m.duration),
		LastActivity: now,
	}
	if err := m.store.CreateSession(c.Request.Context(), session); err != nil {
		return err
	}
	if err := m.writeCookie(c, session.ID, user.ID, session.ExpiresAt); err != nil {
		return err
	}

	c.Set(userKey, user)
	c.Set(sessionKey, session.ID)
	c.Set(resolvedKey, true)
	return nil
}

// Resolve returns the user owning the request's session. Sessions in the
// second half of their lifetime are renewed.
func (m *SessionManager) Resolve(c *gin.Context) (*models.User, error) {
	value, err := c.Cookie(SessionCookieName)
	if err != nil || value == "" {
		return nil, ErrNoSession
	}

	sessionID, err := m.signer.Verify(value)
	if err != nil {
		m.clearCookie(c)
		return nil, ErrNoSession
	}

	ctx := c.Request.Context()
	if user, ok := m.cache.Get(ctx, sessionID); ok {
		c.Set(sessionKey, sessionID)
		return user, nil
	}

	session, err := m.store.GetSession(ctx, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		m.clearCookie(c)
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	now := time.Now()
	if session.ExpiresAt.Sub(now) < m.duration/2 {
		expiresAt := now.Add(m.duration)
		if err := m.store.RenewSession(ctx, sessionID, expiresAt); err != nil {
			slog.Warn("Failed to renew session", "error", err, "user_id", session.UserID)
		} else {
			session.ExpiresAt = expiresAt
			if err := m.writeCookie(c, sessionID, session.UserID, expiresAt); err != nil {
				slog.Warn("Failed to refresh session cookie", "error", err)
			}
		}
	}

	user := session.User
	m.cache.Set(ctx, sessionID, &user, min(maxCacheTTL, time.Until(session.ExpiresAt)))
	c.Set(sessionKey, sessionID)
	return &user, nil
}

// End deletes the request's session and clears the cookie.
func (m *SessionManager) End(c *gin.Context) error {
	defer m.clearCookie(c)
	c.Set(userKey, nil)

	sessionID := c.GetString(sessionKey)
	if sessionID == "" {
		value, err := c.Cookie(SessionCookieName)
		if err != nil || value == "" {
			return nil
		}
		if sessionID, err = m.signer.Verify(value); err != nil {
			return nil
		}
	}

	ctx := c.Request.Context()
	m.cache.Delete(ctx, sessionID)
	return m.store.DeleteSession(ctx, sessionID)
}

// LoadSession resolves the optional current user for every request.
func (m *SessionManager) LoadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.load(c)
		c.Next()
	}
}

// RequireSession aborts requests without a session with a flash and a
// redirect to /login.
func (m *SessionManager) RequireSession(flashes *flash.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, done := c.Get(resolvedKey); !done {
			m.load(c)
		}
		if CurrentUser(c) == nil {
			flashes.Add(c, flash.Info, LoginRequiredMessage)
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (m *SessionManager) load(c *gin.Context) {
	c.Set(resolvedKey, true)
	user, err := m.Resolve(c)
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			slog.Error("Failed to resolve session", "error", err)
		}
		return
	}
	c.Set(userKey, user)
}

// CurrentUser returns the signed-in user, or nil.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(userKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

func (m *SessionManager) writeCookie(c *gin.Context, sessionID string, userID uint, expiresAt time.Time) error {
	value, err := m.signer.Sign(sessionID, userID, expiresAt)
	if err != nil {
		return err
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   m.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (m *SessionManager) clearCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
