package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"billsplit/internal/flash"
	"billsplit/internal/models"
	"billsplit/internal/storage"
)

var testKey = []byte("test-secret")

type memoryCache struct {
	users map[string]models.User
	hits  int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{users: map[string]models.User{}}
}

func (m *memoryCache) Get(_ context.Context, sid string) (*models.User, bool) {
	u, ok := m.users[sid]
	if ok {
		m.hits++
	}
	return &u, ok
}

func (m *memoryCache) Set(_ context.Context, sid string, user *models.User, _ time.Duration) {
	m.users[sid] = *user
}

func (m *memoryCache) Delete(_ context.Context, sid string) {
	delete(m.users, sid)
}

type SessionSuite struct {
	suite.Suite
	db      *storage.DB
	manager *SessionManager
	user    *models.User
}

func (s *SessionSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
}

func (s *SessionSuite) SetupTest() {
	db, err := storage.Open(":memory:")
	s.Require().NoError(err)
	s.db = db
	s.manager = NewSessionManager(db, testKey, time.Hour, false, nil)

	s.user = &models.User{Username: "bob", Email: "b@x.io", Password: "hash"}
	s.Require().NoError(db.CreateUser(context.Background(), s.user))
}

func (s *SessionSuite) TearDownTest() {
	s.db.Close()
}

func newContext(cookies ...*http.Cookie) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	for _, ck := range cookies {
		c.Request.AddCookie(ck)
	}
	return c, w
}

func responseCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	var found *http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == name {
			found = ck
		}
	}
	return found
}

func (s *SessionSuite) start() *http.Cookie {
	c, w := newContext()
	s.Require().NoError(s.manager.Start(c, s.user))
	ck := responseCookie(w, SessionCookieName)
	s.Require().NotNil(ck)
	s.True(ck.HttpOnly)
	s.Positive(ck.MaxAge)
	return ck
}

func (s *SessionSuite) TestStartAndResolve() {
	ck := s.start()

	c, _ := newContext(ck)
	user, err := s.manager.Resolve(c)
	s.Require().NoError(err)
	s.Equal(s.user.ID, user.ID)
	s.Equal("bob", user.Username)
}

func (s *SessionSuite) TestResolveWithoutCookie() {
	c, _ := newContext()
	_, err := s.manager.Resolve(c)
	s.ErrorIs(err, ErrNoSession)
}

func (s *SessionSuite) TestResolveTamperedCookie() {
	ck := s.start()
	ck.Value += "x"

	c, w := newContext(ck)
	_, err := s.manager.Resolve(c)
	s.ErrorIs(err, ErrNoSession)

	cleared := responseCookie(w, SessionCookieName)
	s.Require().NotNil(cleared)
	s.Equal("", cleared.Value)
}

func (s *SessionSuite) TestResolveExpiredSession() {
	ctx := context.Background()
	s.Require().NoError(s.db.CreateSession(ctx, &models.Session{
		ID:        "old",
		UserID:    s.user.ID,
		ExpiresAt: time.Now().Add(-time.Minute),
	}))
	value, err := s.manager.signer.Sign("old", s.user.ID, time.Now().Add(time.Hour))
	s.Require().NoError(err)

	c, _ := newContext(&http.Cookie{Name: SessionCookieName, Value: value})
	_, err = s.manager.Resolve(c)
	s.ErrorIs(err, ErrNoSession)
}

func (s *SessionSuite) TestResolveRenewsAgingSession() {
	ctx := context.Background()
	s.Require().NoError(s.db.CreateSession(ctx, &models.Session{
		ID:        "aging",
		UserID:    s.user.ID,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}))
	value, err := s.manager.signer.Sign("aging", s.user.ID, time.Now().Add(10*time.Minute))
	s.Require().NoError(err)

	c, w := newContext(&http.Cookie{Name: SessionCookieName, Value: value})
	_, err = s.manager.Resolve(c)
	s.Require().NoError(err)

	session, err := s.db.GetSession(ctx, "aging")
	s.Require().NoError(err)
	s.True(session.ExpiresAt.After(time.Now().Add(50 * time.Minute)))

	refreshed := responseCookie(w, SessionCookieName)
	s.Require().NotNil(refreshed)
	s.Greater(refreshed.MaxAge, 50*60)
}

func (s *SessionSuite) TestEnd() {
	ck := s.start()

	c, w := newContext(ck)
	s.Require().NoError(s.manager.End(c))
	s.Nil(CurrentUser(c))

	cleared := responseCookie(w, SessionCookieName)
	s.Require().NotNil(cleared)
	s.Equal(-1, cleared.MaxAge)

	c, _ = newContext(ck)
	_, err := s.manager.Resolve(c)
	s.ErrorIs(err, ErrNoSession)
}

func (s *SessionSuite) TestUserCache() {
	cache := newMemoryCache()
	s.manager = NewSessionManager(s.db, testKey, time.Hour, false, cache)
	ck := s.start()

	for range 2 {
		c, _ := newContext(ck)
		user, err := s.manager.Resolve(c)
		s.Require().NoError(err)
		s.Equal(s.user.ID, user.ID)
	}
	s.Len(cache.users, 1)
	s.Equal(1, cache.hits)

	c, _ := newContext(ck)
	s.Require().NoError(s.manager.End(c))
	s.Empty(cache.users)
}

func (s *SessionSuite) TestRequireSession() {
	flashes := flash.NewStore(testKey, false)
	r := gin.New()
	r.GET("/private", s.manager.RequireSession(flashes), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUser(c).Username)
	})

	s.Run("anonymous", func() {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", http.NoBody))
		s.Equal(http.StatusFound, w.Code)
		s.Equal("/login", w.Header().Get("Location"))
		s.NotNil(responseCookie(w, flash.CookieName))
	})

	s.Run("signed in", func() {
		ck := s.start()
		req := httptest.NewRequest(http.MethodGet, "/private", http.NoBody)
		req.AddCookie(ck)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		s.Equal(http.StatusOK, w.Code)
		s.Equal("bob", w.Body.String())
	})
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func TestLoadSessionLeavesAnonymousRequestsAlone(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	m := NewSessionManager(db, testKey, 0, false, nil)
	assert.Equal(t, DefaultSessionDuration, m.duration)

	r := gin.New()
	r.Use(m.LoadSession())
	r.GET("/", func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, "user")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "anonymous", w.Body.String())
}
