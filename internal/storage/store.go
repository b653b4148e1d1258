// Package storage persists users, groups, bills and sessions.
package storage

import (
	"context"
	"errors"
	"time"

	"billsplit/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// Repository defines the typed data access used by the handlers, the
// authentication service and the admin panel.
type Repository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id uint) error
	UserCount(ctx context.Context) (int64, error)

	// CreateGroup inserts the group and appends the given existing bills to
	// its collection in one transaction. The bills' own group_id is left
	// untouched.
	CreateGroup(ctx context.Context, group *models.Group, billIDs []uint) error
	GetGroup(ctx context.Context, id uint) (*models.Group, error)
	GetGroupByExternalID(ctx context.Context, externalID string) (*models.Group, error)
	ListGroups(ctx context.Context) ([]models.Group, error)
	UpdateGroup(ctx context.Context, group *models.Group) error
	DeleteGroup(ctx context.Context, id uint) error

	CreateBill(ctx context.Context, bill *models.Bill) error
	GetBill(ctx context.Context, id uint) (*models.Bill, error)
	ListBills(ctx context.Context) ([]models.Bill, error)
	ListBillsByGroup(ctx context.Context, groupID uint) ([]models.Bill, error)
	ExistingBillIDs(ctx context.Context, ids []uint) ([]uint, error)
	UpdateBill(ctx context.Context, bill *models.Bill) error
	DeleteBill(ctx context.Context, id uint) error

	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	RenewSession(ctx context.Context, id string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, id string) error
	CleanExpiredSessions(ctx context.Context) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// Ensure DB implements Repository
var _ Repository = (*DB)(nil)
