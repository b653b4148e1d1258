package storage

import (
	"context"
	"fmt"
	"time"

	"billsplit/internal/models"
)

// CreateSession stores a new session row.
func (db *DB) CreateSession(ctx context.Context, session *models.Session) error {
	if session.LastActivity.IsZero() {
		session.LastActivity = time.Now()
	}
	session.LastActivity = session.LastActivity.UTC()
	session.ExpiresAt = session.ExpiresAt.UTC()
	if err := db.conn.WithContext(ctx).Omit("User").Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession returns an unexpired session together with its user.
func (db *DB) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var s models.Session
	err := db.conn.WithContext(ctx).
		Preload("User").
		Where("id = ? AND expires_at > ?", id, time.Now().UTC()).
		First(&s).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// RenewSession updates last_activity and expires_at for a session.
func (db *DB) RenewSession(ctx context.Context, id string, expiresAt time.Time) error {
	return db.conn.WithContext(ctx).Model(&models.Session{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"expires_at":    expiresAt.UTC(),
			"last_activity": time.Now().UTC(),
		}).Error
}

// DeleteSession removes a session by ID.
func (db *DB) DeleteSession(ctx context.Context, id string) error {
	return db.conn.WithContext(ctx).Where("id = ?", id).Delete(&models.Session{}).Error
}

// CleanExpiredSessions removes all expired sessions and reports how many.
func (db *DB) CleanExpiredSessions(ctx context.Context) (int64, error) {
	result := db.conn.WithContext(ctx).Where("expires_at <= ?", time.Now().UTC()).Delete(&models.Session{})
	return result.RowsAffected, result.Error
}
