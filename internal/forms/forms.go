// Package forms binds and validates the HTML forms posted to the site.
package forms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

const (
	MsgRequired      = "This field is required."
	MsgInvalidChoice = "Not a valid choice"
	MsgEmailTaken    = "User email is bad :("
	MsgNumericGroup  = "Group ID must not be a number."
)

// Errors maps a form field name to its validation messages.
type Errors map[string][]string

// Add records msg against field.
func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Get returns the messages for field.
func (e Errors) Get(field string) []string {
	return e[field]
}

// Any reports whether any field failed.
func (e Errors) Any() bool {
	return len(e) > 0
}

// UserStore answers whether an email is registered.
type UserStore interface {
	EmailExists(ctx context.Context, email string) (bool, error)
}

// BillStore reports which of the given bill ids exist.
type BillStore interface {
	ExistingBillIDs(ctx context.Context, ids []uint) ([]uint, error)
}

// SignUp is the registration form.
type SignUp struct {
	Username  string `form:"username" binding:"notblank"`
	Email     string `form:"email" binding:"notblank"`
	Password1 string `form:"password1" binding:"notblank"`
	Password2 string `form:"password2" binding:"notblank,eqfield=Password1"`
}

// SignIn is the login form.
type SignIn struct {
	Email    string `form:"email" binding:"notblank"`
	Password string `form:"password" binding:"notblank"`
}

// NewBill is the form for adding a bill to a group.
type NewBill struct {
	Amount      string `form:"amount" binding:"notblank"`
	Description string `form:"description" binding:"notblank"`
}

// NewGroup is the form for creating a group. Bills holds the raw selected
// values; BillIDs holds them parsed once validation passes.
type NewGroup struct {
	GroupID     string   `form:"group_id" binding:"notblank"`
	Description string   `form:"description" binding:"notblank"`
	Bills       []string `form:"bills"`

	BillIDs []uint `form:"-"`
}

// Selected reports whether the bill with id was picked.
func (f *NewGroup) Selected(id uint) bool {
	want := strconv.FormatUint(uint64(id), 10)
	for _, v := range f.Bills {
		if v == want {
			return true
		}
	}
	return false
}

var registerOnce sync.Once

// Register installs the custom rules on gin's validator. It is safe to
// call more than once.
func Register() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			slog.Warn("Form validator is not go-playground/validator; custom rules not registered")
			return
		}
		if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
			slog.Error("Failed to register notblank", "error", err)
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("form"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// bind decodes the request into form and converts validator failures into
// Errors. Any other error is returned as is.
func bind(c *gin.Context, form any) (Errors, error) {
	Register()
	errs := Errors{}
	err := c.ShouldBindWith(form, binding.Form)
	if err == nil {
		return errs, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}
	for _, fe := range verrs {
		errs.Add(fe.Field(), message(fe))
	}
	return errs, nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "notblank", "required":
		return MsgRequired
	case "eqfield":
		return fmt.Sprintf("Field must be equal to %s.", strings.ToLower(fe.Param()))
	default:
		return fmt.Sprintf("Invalid value (%s).", fe.Tag())
	}
}

// BindSignUp validates the registration form, including the check that the
// email is not already registered.
func BindSignUp(c *gin.Context, users UserStore) (*SignUp, Errors, error) {
	var f SignUp
	errs, err := bind(c, &f)
	if err != nil {
		return &f, nil, err
	}
	if !errs.Any() {
		exists, err := users.EmailExists(c.Request.Context(), f.Email)
		if err != nil {
			return &f, nil, err
		}
		if exists {
			errs.Add("email", MsgEmailTaken)
		}
	}
	return &f, errs, nil
}

// BindSignIn validates the login form.
func BindSignIn(c *gin.Context) (*SignIn, Errors, error) {
	var f SignIn
	errs, err := bind(c, &f)
	return &f, errs, err
}

// BindNewBill validates the bill form.
func BindNewBill(c *gin.Context) (*NewBill, Errors, error) {
	var f NewBill
	errs, err := bind(c, &f)
	return &f, errs, err
}

// NumericGroupID reports whether id is all digits. Such ids would be
// shadowed by row ids in /bills/{group}.
func NumericGroupID(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	_, err := strconv.ParseUint(id, 10, 64)
	return err == nil
}

// BindNewGroup validates the group form. Every selected bill must be an
// existing bill id.
func BindNewGroup(c *gin.Context, bills BillStore) (*NewGroup, Errors, error) {
	var f NewGroup
	errs, err := bind(c, &f)
	if err != nil {
		return &f, nil, err
	}
	if NumericGroupID(f.GroupID) {
		errs.Add("group_id", MsgNumericGroup)
	}

	ids := make([]uint, 0, len(f.Bills))
	for _, raw := range f.Bills {
		id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 0)
		if err != nil || id == 0 {
			errs.Add("bills", MsgInvalidChoice)
			return &f, errs, nil
		}
		ids = append(ids, uint(id))
	}

	if len(ids) > 0 {
		existing, err := bills.ExistingBillIDs(c.Request.Context(), ids)
		if err != nil {
			return &f, nil, err
		}
		found := make(map[uint]bool, len(existing))
		for _, id := range existing {
			found[id] = true
		}
		for _, id := range ids {
			if !found[id] {
				errs.Add("bills", MsgInvalidChoice)
				return &f, errs, nil
			}
		}
	}

	f.BillIDs = ids
	return &f, errs, nil
}
