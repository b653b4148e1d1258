package admin

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"billsplit/internal/flash"
	"billsplit/internal/forms"
	"billsplit/internal/storage"
	"billsplit/internal/view"
)

// IndexEntry is a resource with its row count.
type IndexEntry struct {
	Name  string
	Title string
	Count int
}

// ListView is the data for admin_list.html.
type ListView struct {
	Resource Resource
	Columns  []string
	Rows     []Row
}

// FormView is the data for admin_form.html.
type FormView struct {
	Resource Resource
	ID       uint
	Editing  bool
	Action   string
	Fields   []Field
	Values   Values
	Errors   forms.Errors
}

// Panel serves the admin views.
type Panel struct {
	resources []Resource
	byName    map[string]Resource
	view      *view.Renderer
	flashes   *flash.Store
}

// New creates a Panel over resources.
func New(renderer *view.Renderer, flashes *flash.Store, resources ...Resource) *Panel {
	p := &Panel{view: renderer, flashes: flashes, byName: map[string]Resource{}}
	for _, r := range resources {
		p.resources = append(p.resources, r)
		p.byName[r.Name()] = r
	}
	return p
}

// Mount registers the panel routes on r. The caller supplies the guard.
func (p *Panel) Mount(r gin.IRouter) {
	r.GET("/", p.Index)
	r.GET("/:resource/", p.List)
	r.GET("/:resource/new", p.NewForm)
	r.POST("/:resource/new", p.Create)
	r.GET("/:resource/:id/edit", p.EditForm)
	r.POST("/:resource/:id/edit", p.Update)
	r.POST("/:resource/:id/delete", p.Delete)
}

// Index lists the resources with their row counts.
func (p *Panel) Index(c *gin.Context) {
	entries := make([]IndexEntry, 0, len(p.resources))
	for _, r := range p.resources {
		rows, err := r.List(c.Request.Context())
		if err != nil {
			p.fail(c, err)
			return
		}
		entries = append(entries, IndexEntry{Name: r.Name(), Title: r.Title(), Count: len(rows)})
	}
	p.view.Render(c, http.StatusOK, "admin_index.html", entries)
}

// List shows every row of a resource.
func (p *Panel) List(c *gin.Context) {
	res, ok := p.resource(c)
	if !ok {
		return
	}
	rows, err := res.List(c.Request.Context())
	if err != nil {
		p.fail(c, err)
		return
	}
	p.view.Render(c, http.StatusOK, "admin_list.html", ListView{Resource: res, Columns: res.Columns(), Rows: rows})
}

// NewForm renders an empty create form.
func (p *Panel) NewForm(c *gin.Context) {
	res, ok := p.resource(c)
	if !ok {
		return
	}
	p.renderForm(c, res, 0, Values{}, forms.Errors{})
}

// Create inserts a row from the posted form.
func (p *Panel) Create(c *gin.Context) {
	res, ok := p.resource(c)
	if !ok {
		return
	}
	fields, err := res.Fields(c.Request.Context(), false)
	if err != nil {
		p.fail(c, err)
		return
	}

	values, errs := collect(c, fields)
	if !errs.Any() {
		err := res.Create(c.Request.Context(), values)
		if err == nil {
			p.flashes.Add(c, flash.Success, "Record was successfully created.")
			c.Redirect(http.StatusFound, listPath(res))
			return
		}
		p.saveFailed(c, errs, "create", err)
	}
	p.renderForm(c, res, 0, values, errs)
}

// EditForm renders the form for an existing row.
func (p *Panel) EditForm(c *gin.Context) {
	res, id, ok := p.resourceAndID(c)
	if !ok {
		return
	}
	values, err := res.Get(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		c.String(http.StatusNotFound, "Record not found")
		return
	}
	if err != nil {
		p.fail(c, err)
		return
	}
	p.renderForm(c, res, id, values, forms.Errors{})
}

// Update overwrites a row from the posted form.
func (p *Panel) Update(c *gin.Context) {
	res, id, ok := p.resourceAndID(c)
	if !ok {
		return
	}
	fields, err := res.Fields(c.Request.Context(), true)
	if err != nil {
		p.fail(c, err)
		return
	}

	values, errs := collect(c, fields)
	if !errs.Any() {
		err := res.Update(c.Request.Context(), id, values)
		if errors.Is(err, storage.ErrNotFound) {
			c.String(http.StatusNotFound, "Record not found")
			return
		}
		if err == nil {
			p.flashes.Add(c, flash.Success, "Record was successfully saved.")
			c.Redirect(http.StatusFound, listPath(res))
			return
		}
		p.saveFailed(c, errs, "update", err)
	}
	p.renderForm(c, res, id, values, errs)
}

// Delete removes a row.
func (p *Panel) Delete(c *gin.Context) {
	res, id, ok := p.resourceAndID(c)
	if !ok {
		return
	}
	err := res.Delete(c.Request.Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.String(http.StatusNotFound, "Record not found")
		return
	case err != nil:
		slog.Warn("Admin delete failed", "error", err, "resource", res.Name(), "id", id)
		p.flashes.Add(c, flash.Danger, fmt.Sprintf("Failed to delete record. %v", err))
	default:
		p.flashes.Add(c, flash.Success, "Record was successfully deleted.")
	}
	c.Redirect(http.StatusFound, listPath(res))
}

func (p *Panel) saveFailed(c *gin.Context, errs forms.Errors, action string, err error) {
	if fe, ok := asFieldError(err); ok {
		errs.Add(fe.Field, fe.Message)
		return
	}
	slog.Warn("Admin save failed", "error", err, "action", action)
	p.flashes.Add(c, flash.Danger, fmt.Sprintf("Failed to %s record. %v", action, err))
}

func (p *Panel) renderForm(c *gin.Context, res Resource, id uint, values Values, errs forms.Errors) {
	editing := id != 0
	fields, err := res.Fields(c.Request.Context(), editing)
	if err != nil {
		p.fail(c, err)
		return
	}
	action := listPath(res) + "new"
	if editing {
		action = fmt.Sprintf("%s%d/edit", listPath(res), id)
	}
	p.view.Render(c, http.StatusOK, "admin_form.html", FormView{
		Resource: res,
		ID:       id,
		Editing:  editing,
		Action:   action,
		Fields:   fields,
		Values:   values,
		Errors:   errs,
	})
}

// collect reads the posted fields, requiring the not-null ones.
func collect(c *gin.Context, fields []Field) (Values, forms.Errors) {
	values := Values{}
	errs := forms.Errors{}
	for _, f := range fields {
		v := c.PostForm(f.Name)
		if f.Type != "password" {
			v = strings.TrimSpace(v)
		}
		values[f.Name] = v
		if f.Required && strings.TrimSpace(v) == "" {
			errs.Add(f.Name, forms.MsgRequired)
		}
	}
	return values, errs
}

func (p *Panel) resource(c *gin.Context) (Resource, bool) {
	res, ok := p.byName[c.Param("resource")]
	if !ok {
		c.String(http.StatusNotFound, "Unknown resource")
		return nil, false
	}
	return res, true
}

func (p *Panel) resourceAndID(c *gin.Context) (Resource, uint, bool) {
	res, ok := p.resource(c)
	if !ok {
		return nil, 0, false
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		c.String(http.StatusNotFound, "Record not found")
		return nil, 0, false
	}
	return res, uint(id), true
}

func (p *Panel) fail(c *gin.Context, err error) {
	slog.Error("Admin request failed", "error", err, "path", c.Request.URL.Path)
	c.String(http.StatusInternalServerError, "Internal server error")
}

func listPath(res Resource) string {
	return "/admin/" + res.Name() + "/"
}
