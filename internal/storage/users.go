package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"billsplit/internal/models"
)

// CreateUser inserts a new user. user.ID is populated on success.
func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	if err := db.conn.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := db.conn.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// GetUserByEmail retrieves a user by email address.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := db.conn.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// EmailExists reports whether any user is registered with email.
func (db *DB) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := db.conn.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return count > 0, nil
}

// ListUsers returns every user ordered by ID.
func (db *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := db.conn.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// UpdateUser overwrites username, email and password of an existing user.
func (db *DB) UpdateUser(ctx context.Context, user *models.User) error {
	result := db.conn.WithContext(ctx).Model(&models.User{ID: user.ID}).
		Select("username", "email", "password").
		Updates(user)
	if result.Error != nil {
		return fmt.Errorf("failed to update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes a user along with their sessions and memberships.
func (db *DB) DeleteUser(ctx context.Context, id uint) error {
	return db.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.Session{}).Error; err != nil {
			return fmt.Errorf("failed to delete sessions: %w", err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Membership{}).Error; err != nil {
			return fmt.Errorf("failed to delete memberships: %w", err)
		}
		result := tx.Delete(&models.User{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete user: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// UserCount returns the number of users in the database.
func (db *DB) UserCount(ctx context.Context) (int64, error) {
	var count int64
	err := db.conn.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}
