package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"billsplit/internal/models"
)

// CreateGroup inserts a group and links the given bills to its collection.
func (db *DB) CreateGroup(ctx context.Context, group *models.Group, billIDs []uint) error {
	billIDs = uniqueIDs(billIDs)

	return db.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(group).Error; err != nil {
			return fmt.Errorf("failed to insert group: %w", err)
		}
		if len(billIDs) == 0 {
			return nil
		}

		links := make([]models.GroupBill, 0, len(billIDs))
		for _, id := range billIDs {
			links = append(links, models.GroupBill{GroupID: group.ID, BillID: id})
		}
		if err := tx.Create(&links).Error; err != nil {
			return fmt.Errorf("failed to link bills: %w", err)
		}

		if err := tx.Where("id IN ?", billIDs).Order("id").Find(&group.Bills).Error; err != nil {
			return fmt.Errorf("failed to load linked bills: %w", err)
		}
		return nil
	})
}

// GetGroup retrieves a group by ID with its bill collection.
func (db *DB) GetGroup(ctx context.Context, id uint) (*models.Group, error) {
	var g models.Group
	if err := db.conn.WithContext(ctx).Preload("Bills").First(&g, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &g, nil
}

// GetGroupByExternalID retrieves a group by its user-supplied identifier.
func (db *DB) GetGroupByExternalID(ctx context.Context, externalID string) (*models.Group, error) {
	var g models.Group
	if err := db.conn.WithContext(ctx).Preload("Bills").Where("group_id = ?", externalID).First(&g).Error; err != nil {
		return nil, notFound(err)
	}
	return &g, nil
}

// ListGroups returns all groups with their bill collections.
func (db *DB) ListGroups(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	if err := db.conn.WithContext(ctx).Preload("Bills").Order("id").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

// UpdateGroup overwrites the external id and description of a group.
func (db *DB) UpdateGroup(ctx context.Context, group *models.Group) error {
	result := db.conn.WithContext(ctx).Model(&models.Group{ID: group.ID}).
		Select("group_id", "description").
		Updates(map[string]any{"group_id": group.ExternalID, "description": group.Description})
	if result.Error != nil {
		return fmt.Errorf("failed to update group: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteGroup removes a group and its collection links. Bills pointing at
// the group keep existing with a NULL group_id.
func (db *DB) DeleteGroup(ctx context.Context, id uint) error {
	return db.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", id).Delete(&models.GroupBill{}).Error; err != nil {
			return fmt.Errorf("failed to unlink bills: %w", err)
		}
		if err := tx.Model(&models.Bill{}).Where("group_id = ?", id).Update("group_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach bills: %w", err)
		}
		if err := tx.Where("group_id = ?", id).Delete(&models.Membership{}).Error; err != nil {
			return fmt.Errorf("failed to delete memberships: %w", err)
		}
		result := tx.Delete(&models.Group{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete group: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
