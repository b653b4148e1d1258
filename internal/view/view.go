// Package view renders the site's HTML pages.
package view

import (
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"billsplit/internal/auth"
	"billsplit/internal/flash"
	"billsplit/internal/models"
)

// Page is what every template receives.
type Page struct {
	User    *models.User
	Flashes []flash.Entry
	Data    any
}

// Renderer executes a view inside base.html.
type Renderer struct {
	fsys    fs.FS
	flashes *flash.Store
}

// New creates a Renderer reading templates from fsys under templates/.
func New(fsys fs.FS, flashes *flash.Store) *Renderer {
	return &Renderer{fsys: fsys, flashes: flashes}
}

// Render writes view with data and status. Pending flash messages are
// consumed.
func (r *Renderer) Render(c *gin.Context, status int, viewName string, data any) {
	tmpl, err := template.New("base.html").ParseFS(r.fsys,
		path.Join("templates", "base.html"), path.Join("templates", viewName))
	if err != nil {
		slog.Error("Template error", "error", err, "view", viewName)
		c.String(http.StatusInternalServerError, "Template error")
		return
	}

	page := Page{User: auth.CurrentUser(c), Flashes: r.flashes.Pop(c), Data: data}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(status)
	if err := tmpl.ExecuteTemplate(c.Writer, "base.html", page); err != nil {
		slog.Error("Template execution error", "error", err, "view", viewName)
	}
}
