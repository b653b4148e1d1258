// Package admin serves a generic create/read/update/delete panel over the
// users, groups and bills tables.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"billsplit/internal/auth"
	"billsplit/internal/forms"
	"billsplit/internal/models"
	"billsplit/internal/storage"
)

// Option is a choice of a select field.
type Option struct {
	Value string
	Label string
}

// Field describes one input of a resource form.
type Field struct {
	Name     string
	Label    string
	Type     string // text, password or select
	Required bool
	Options  []Option
}

// Row is one line of a list view.
type Row struct {
	ID    uint
	Cells []string
}

// Values holds submitted or stored form values keyed by field name.
type Values map[string]string

// FieldError is returned by Create and Update when a value cannot be used.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Resource is a table exposed in the panel.
type Resource interface {
	Name() string
	Title() string
	Columns() []string
	Fields(ctx context.Context, editing bool) ([]Field, error)
	List(ctx context.Context) ([]Row, error)
	Get(ctx context.Context, id uint) (Values, error)
	Create(ctx context.Context, v Values) error
	Update(ctx context.Context, id uint, v Values) error
	Delete(ctx context.Context, id uint) error
}

// Resources returns the user, group and bill resources backed by repo.
func Resources(repo storage.Repository) []Resource {
	return []Resource{
		&userResource{repo: repo},
		&groupResource{repo: repo},
		&billResource{repo: repo},
	}
}

type userResource struct {
	repo storage.Repository
}

func (r *userResource) Name() string      { return "user" }
func (r *userResource) Title() string     { return "User" }
func (r *userResource) Columns() []string { return []string{"Username", "Email"} }

// Fields makes the password optional on edit, where a blank value keeps the
// stored hash.
func (r *userResource) Fields(_ context.Context, editing bool) ([]Field, error) {
	return []Field{
		{Name: "username", Label: "Username", Type: "text", Required: true},
		{Name: "email", Label: "Email", Type: "text", Required: true},
		{Name: "password", Label: "Password", Type: "password", Required: !editing},
	}, nil
}

func (r *userResource) List(ctx context.Context) ([]Row, error) {
	users, err := r.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(users))
	for _, u := range users {
		rows = append(rows, Row{ID: u.ID, Cells: []string{u.Username, u.Email}})
	}
	return rows, nil
}

func (r *userResource) Get(ctx context.Context, id uint) (Values, error) {
	u, err := r.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return Values{"username": u.Username, "email": u.Email}, nil
}

func (r *userResource) Create(ctx context.Context, v Values) error {
	hash, err := auth.HashPassword(v["password"])
	if err != nil {
		return err
	}
	return r.repo.CreateUser(ctx, &models.User{Username: v["username"], Email: v["email"], Password: hash})
}

func (r *userResource) Update(ctx context.Context, id uint, v Values) error {
	u, err := r.repo.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	u.Username = v["username"]
	u.Email = v["email"]
	if v["password"] != "" {
		if u.Password, err = auth.HashPassword(v["password"]); err != nil {
			return err
		}
	}
	return r.repo.UpdateUser(ctx, u)
}

func (r *userResource) Delete(ctx context.Context, id uint) error {
	return r.repo.DeleteUser(ctx, id)
}

type groupResource struct {
	repo storage.Repository
}

func (r *groupResource) Name() string      { return "group" }
func (r *groupResource) Title() string     { return "Group" }
func (r *groupResource) Columns() []string { return []string{"Group ID", "Description", "Bills"} }

func (r *groupResource) Fields(context.Context, bool) ([]Field, error) {
	return []Field{
		{Name: "group_id", Label: "Group ID", Type: "text", Required: true},
		{Name: "description", Label: "Description", Type: "text", Required: true},
	}, nil
}

func (r *groupResource) List(ctx context.Context) ([]Row, error) {
	groups, err := r.repo.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(groups))
	for _, g := range groups {
		names := make([]string, 0, len(g.Bills))
		for _, b := range g.Bills {
			names = append(names, b.Description)
		}
		rows = append(rows, Row{ID: g.ID, Cells: []string{g.ExternalID, g.Description, strings.Join(names, ", ")}})
	}
	return rows, nil
}

func (r *groupResource) Get(ctx context.Context, id uint) (Values, error) {
	g, err := r.repo.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	return Values{"group_id": g.ExternalID, "description": g.Description}, nil
}

func (r *groupResource) Create(ctx context.Context, v Values) error {
	if forms.NumericGroupID(v["group_id"]) {
		return &FieldError{Field: "group_id", Message: forms.MsgNumericGroup}
	}
	return r.repo.CreateGroup(ctx, &models.Group{ExternalID: v["group_id"], Description: v["description"]}, nil)
}

func (r *groupResource) Update(ctx context.Context, id uint, v Values) error {
	if forms.NumericGroupID(v["group_id"]) {
		return &FieldError{Field: "group_id", Message: forms.MsgNumericGroup}
	}
	return r.repo.UpdateGroup(ctx, &models.Group{ID: id, ExternalID: v["group_id"], Description: v["description"]})
}

func (r *groupResource) Delete(ctx context.Context, id uint) error {
	return r.repo.DeleteGroup(ctx, id)
}

type billResource struct {
	repo storage.Repository
}

func (r *billResource) Name() string      { return "bill" }
func (r *billResource) Title() string     { return "Bill" }
func (r *billResource) Columns() []string { return []string{"Amount", "Description", "Group"} }

func (r *billResource) Fields(ctx context.Context, _ bool) ([]Field, error) {
	groups, err := r.repo.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	options := []Option{{Value: "", Label: ""}}
	for _, g := range groups {
		options = append(options, Option{Value: strconv.FormatUint(uint64(g.ID), 10), Label: g.ExternalID})
	}
	return []Field{
		{Name: "amount", Label: "Amount", Type: "text", Required: true},
		{Name: "description", Label: "Description", Type: "text", Required: true},
		{Name: "group", Label: "Group", Type: "select", Options: options},
	}, nil
}

func (r *billResource) List(ctx context.Context) ([]Row, error) {
	bills, err := r.repo.ListBills(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(bills))
	for _, b := range bills {
		group := ""
		if b.GroupID != nil {
			group = strconv.FormatUint(uint64(*b.GroupID), 10)
		}
		rows = append(rows, Row{ID: b.ID, Cells: []string{b.Amount, b.Description, group}})
	}
	return rows, nil
}

func (r *billResource) Get(ctx context.Context, id uint) (Values, error) {
	b, err := r.repo.GetBill(ctx, id)
	if err != nil {
		return nil, err
	}
	v := Values{"amount": b.Amount, "description": b.Description, "group": ""}
	if b.GroupID != nil {
		v["group"] = strconv.FormatUint(uint64(*b.GroupID), 10)
	}
	return v, nil
}

func (r *billResource) bill(v Values) (*models.Bill, error) {
	b := &models.Bill{Amount: v["amount"], Description: v["description"]}
	if raw := strings.TrimSpace(v["group"]); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 0)
		if err != nil {
			return nil, &FieldError{Field: "group", Message: "Not a valid choice"}
		}
		gid := uint(id)
		b.GroupID = &gid
	}
	return b, nil
}

func (r *billResource) Create(ctx context.Context, v Values) error {
	b, err := r.bill(v)
	if err != nil {
		return err
	}
	return r.repo.CreateBill(ctx, b)
}

func (r *billResource) Update(ctx context.Context, id uint, v Values) error {
	b, err := r.bill(v)
	if err != nil {
		return err
	}
	b.ID = id
	return r.repo.UpdateBill(ctx, b)
}

func (r *billResource) Delete(ctx context.Context, id uint) error {
	return r.repo.DeleteBill(ctx, id)
}

// asFieldError unwraps a FieldError.
func asFieldError(err error) (*FieldError, bool) {
	var fe *FieldError
	ok := errors.As(err, &fe)
	return fe, ok
}
