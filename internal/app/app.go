// Package app wires configuration, storage, sessions and routes into one
// HTTP application.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"billsplit/internal/admin"
	"billsplit/internal/auth"
	"billsplit/internal/config"
	"billsplit/internal/flash"
	"billsplit/internal/forms"
	"billsplit/internal/handlers"
	"billsplit/internal/models"
	"billsplit/internal/storage"
	"billsplit/internal/view"
	"billsplit/web"
)

const shutdownTimeout = 10 * time.Second

// App is the application context shared by every request.
type App struct {
	cfg      *config.Config
	store    storage.Repository
	sessions *auth.SessionManager
	flashes  *flash.Store
	metrics  *Metrics
	router   *gin.Engine
}

// New builds the application over store. cache may be nil.
func New(cfg *config.Config, store storage.Repository, cache auth.UserCache) (*App, error) {
	forms.Register()

	a := &App{
		cfg:      cfg,
		store:    store,
		sessions: auth.NewSessionManager(store, cfg.SecretKey, cfg.SessionDuration, cfg.SecureCookie, cache),
		flashes:  flash.NewStore(cfg.SecretKey, cfg.SecureCookie),
		metrics:  NewMetrics(),
	}
	if err := a.setupRouter(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) setupRouter() error {
	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		return fmt.Errorf("failed to open static assets: %w", err)
	}

	renderer := view.New(web.FS, a.flashes)
	h := handlers.NewHandlers(a.store, a.sessions, a.flashes, renderer)
	panel := admin.New(renderer, a.flashes, admin.Resources(a.store)...)

	r := gin.New()
	r.Use(recovery(), requestLogger(), a.metrics.Middleware())

	r.StaticFS("/static", http.FS(static))
	r.GET("/metrics", gin.WrapH(a.metrics.Handler()))
	r.GET("/healthz", a.health)

	// Routes below see the signed-in user, if any.
	r.Use(a.sessions.LoadSession())

	r.GET("/", h.Index)
	r.GET("/register", h.RegisterForm)
	r.POST("/register", h.Register)
	r.GET("/login", h.LoginForm)
	r.POST("/login", h.Login)

	guard := a.sessions.RequireSession(a.flashes)

	private := r.Group("/", guard)
	private.GET("/bills/:group", h.Bills)
	private.POST("/bills/:group", h.Bills)
	private.GET("/groups", h.Groups)
	private.POST("/groups", h.Groups)
	private.GET("/sign_out", h.SignOut)

	panel.Mount(r.Group("/admin", guard))

	a.router = r
	return nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.router
}

func (a *App) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := a.store.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		c.String(http.StatusServiceUnavailable, "unavailable")
		return
	}
	c.String(http.StatusOK, "ok")
}

// Bootstrap purges expired sessions and seeds the admin account when the
// users table is empty.
func (a *App) Bootstrap(ctx context.Context) error {
	purged, err := a.store.CleanExpiredSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to purge sessions: %w", err)
	}
	if purged > 0 {
		slog.Info("Purged expired sessions", "count", purged)
	}

	if !a.cfg.SeedAdmin() {
		return nil
	}
	count, err := a.store.UserCount(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword(a.cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	user := &models.User{Username: a.cfg.AdminUser, Email: a.cfg.AdminEmail, Password: hash}
	if err := a.store.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}
	slog.Info("Seeded admin account", "username", user.Username, "user_id", user.ID)
	return nil
}

// Serve listens on the configured address until ctx is cancelled, then
// shuts down gracefully.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "address", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
