// Package handlers implements the public and signed-in pages.
package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"billsplit/internal/auth"
	"billsplit/internal/flash"
	"billsplit/internal/forms"
	"billsplit/internal/models"
	"billsplit/internal/storage"
	"billsplit/internal/view"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	store    storage.Repository
	auth     *auth.Service
	sessions *auth.SessionManager
	flashes  *flash.Store
	view     *view.Renderer
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(store storage.Repository, sessions *auth.SessionManager, flashes *flash.Store, renderer *view.Renderer) *Handlers {
	return &Handlers{
		store:    store,
		auth:     auth.NewService(store),
		sessions: sessions,
		flashes:  flashes,
		view:     renderer,
	}
}

// FormViewModel is the data passed to the register and login templates.
type FormViewModel struct {
	Form   any
	Errors forms.Errors
}

// BillsViewModel is the data passed to the bills template.
type BillsViewModel struct {
	Group  *models.Group
	Bills  []models.Bill
	Form   *forms.NewBill
	Errors forms.Errors
	Action string
}

// GroupsViewModel is the data passed to the groups template.
type GroupsViewModel struct {
	Groups []models.Group
	Bills  []models.Bill
	Form   *forms.NewGroup
	Errors forms.Errors
}

// Index renders the landing page.
func (h *Handlers) Index(c *gin.Context) {
	h.view.Render(c, http.StatusOK, "index.html", nil)
}

// RegisterForm renders the sign-up page.
func (h *Handlers) RegisterForm(c *gin.Context) {
	h.view.Render(c, http.StatusOK, "register.html", FormViewModel{Form: &forms.SignUp{}, Errors: forms.Errors{}})
}

// Register creates an account. The new user still has to sign in.
func (h *Handlers) Register(c *gin.Context) {
	form, errs, err := forms.BindSignUp(c, h.store)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !errs.Any() {
		user, err := h.auth.SignUp(c.Request.Context(), form.Username, form.Email, form.Password1)
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			errs.Add("email", forms.MsgEmailTaken)
		case err != nil:
			h.fail(c, err)
			return
		default:
			slog.Info("User registered", "user_id", user.ID)
			h.flashes.Add(c, flash.Success, fmt.Sprintf("Welcome, %s!", user.Username))
			c.Redirect(http.StatusFound, "/")
			return
		}
	}
	h.view.Render(c, http.StatusOK, "register.html", FormViewModel{Form: form, Errors: errs})
}

// LoginForm renders the sign-in page.
func (h *Handlers) LoginForm(c *gin.Context) {
	h.view.Render(c, http.StatusOK, "login.html", FormViewModel{Form: &forms.SignIn{}, Errors: forms.Errors{}})
}

// Login checks the credentials and starts a session.
func (h *Handlers) Login(c *gin.Context) {
	form, errs, err := forms.BindSignIn(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if errs.Any() {
		h.view.Render(c, http.StatusOK, "login.html", FormViewModel{Form: form, Errors: errs})
		return
	}

	user, err := h.auth.SignIn(c.Request.Context(), form.Email, form.Password)
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		h.flashes.Add(c, flash.Danger, fmt.Sprintf("User %s does not exist!", form.Email))
		c.Redirect(http.StatusFound, "/login")
		return
	case errors.Is(err, auth.ErrCredentialMismatch):
		h.flashes.Add(c, flash.Danger, "User / password do not match!")
		c.Redirect(http.StatusFound, "/login")
		return
	case err != nil:
		h.fail(c, err)
		return
	}

	if err := h.sessions.Start(c, user); err != nil {
		h.fail(c, err)
		return
	}
	h.flashes.Add(c, flash.Success, fmt.Sprintf("Welcome, %s", user.Email))
	c.Redirect(http.StatusFound, "/")
}

// Bills lists the bills of a group and adds new ones.
func (h *Handlers) Bills(c *gin.Context) {
	group, err := h.resolveGroup(c)
	if errors.Is(err, storage.ErrNotFound) {
		c.String(http.StatusNotFound, "Group not found")
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	vm := BillsViewModel{Group: group, Form: &forms.NewBill{}, Errors: forms.Errors{}, Action: c.Request.URL.Path}

	if c.Request.Method == http.MethodPost {
		form, errs, err := forms.BindNewBill(c)
		if err != nil {
			h.fail(c, err)
			return
		}
		if !errs.Any() {
			gid := group.ID
			bill := &models.Bill{Amount: form.Amount, Description: form.Description, GroupID: &gid}
			if err := h.store.CreateBill(c.Request.Context(), bill); err != nil {
				h.fail(c, err)
				return
			}
			c.Redirect(http.StatusFound, c.Request.URL.Path)
			return
		}
		vm.Form, vm.Errors = form, errs
	}

	if vm.Bills, err = h.store.ListBillsByGroup(c.Request.Context(), group.ID); err != nil {
		h.fail(c, err)
		return
	}
	h.view.Render(c, http.StatusOK, "bills.html", vm)
}

// resolveGroup looks the path segment up as a numeric id first and then as
// an external group id. External ids are never all digits, so the two
// cannot collide.
func (h *Handlers) resolveGroup(c *gin.Context) (*models.Group, error) {
	ctx := c.Request.Context()
	segment := c.Param("group")
	if id, err := strconv.ParseUint(segment, 10, 0); err == nil {
		group, err := h.store.GetGroup(ctx, uint(id))
		if !errors.Is(err, storage.ErrNotFound) {
			return group, err
		}
	}
	return h.store.GetGroupByExternalID(ctx, segment)
}

// Groups lists all groups and creates new ones.
func (h *Handlers) Groups(c *gin.Context) {
	ctx := c.Request.Context()
	vm := GroupsViewModel{Form: &forms.NewGroup{}, Errors: forms.Errors{}}

	if c.Request.Method == http.MethodPost {
		form, errs, err := forms.BindNewGroup(c, h.store)
		if err != nil {
			h.fail(c, err)
			return
		}
		if !errs.Any() {
			group := &models.Group{ExternalID: form.GroupID, Description: form.Description}
			if err := h.store.CreateGroup(ctx, group, form.BillIDs); err != nil {
				h.fail(c, err)
				return
			}
			h.flashes.Add(c, flash.Success, fmt.Sprintf("New group ID: %s", group.ExternalID))
			c.Redirect(http.StatusFound, fmt.Sprintf("/bills/%d", group.ID))
			return
		}
		vm.Form, vm.Errors = form, errs
	}

	var err error
	if vm.Groups, err = h.store.ListGroups(ctx); err != nil {
		h.fail(c, err)
		return
	}
	if vm.Bills, err = h.store.ListBills(ctx); err != nil {
		h.fail(c, err)
		return
	}
	h.view.Render(c, http.StatusOK, "groups.html", vm)
}

// SignOut ends the session.
func (h *Handlers) SignOut(c *gin.Context) {
	if user := auth.CurrentUser(c); user != nil {
		h.flashes.Add(c, flash.Message, fmt.Sprintf("See you next time, %s", user.Username))
	}
	if err := h.sessions.End(c); err != nil {
		slog.Error("Failed to delete session", "error", err)
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *Handlers) fail(c *gin.Context, err error) {
	slog.Error("Request failed", "error", err, "method", c.Request.Method, "path", c.Request.URL.Path)
	c.String(http.StatusInternalServerError, "Internal server error")
}
