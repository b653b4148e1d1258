package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"billsplit/internal/models"
)

// CreateBill inserts a new bill. bill.ID is populated on success.
func (db *DB) CreateBill(ctx context.Context, bill *models.Bill) error {
	if err := db.conn.WithContext(ctx).Omit("Group").Create(bill).Error; err != nil {
		return fmt.Errorf("failed to create bill: %w", err)
	}
	return nil
}

// GetBill retrieves a single bill by ID.
func (db *DB) GetBill(ctx context.Context, id uint) (*models.Bill, error) {
	var b models.Bill
	if err := db.conn.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

// ListBills returns every bill ordered by ID.
func (db *DB) ListBills(ctx context.Context) ([]models.Bill, error) {
	var bills []models.Bill
	if err := db.conn.WithContext(ctx).Order("id").Find(&bills).Error; err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	return bills, nil
}

// ListBillsByGroup returns the bills whose own group_id equals groupID.
func (db *DB) ListBillsByGroup(ctx context.Context, groupID uint) ([]models.Bill, error) {
	var bills []models.Bill
	if err := db.conn.WithContext(ctx).Where("group_id = ?", groupID).Order("id").Find(&bills).Error; err != nil {
		return nil, fmt.Errorf("failed to list bills for group %d: %w", groupID, err)
	}
	return bills, nil
}

// ExistingBillIDs returns the subset of ids that name stored bills.
func (db *DB) ExistingBillIDs(ctx context.Context, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []uint
	if err := db.conn.WithContext(ctx).Model(&models.Bill{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, fmt.Errorf("failed to look up bills: %w", err)
	}
	return found, nil
}

// UpdateBill overwrites amount, description and group_id of a bill.
func (db *DB) UpdateBill(ctx context.Context, bill *models.Bill) error {
	result := db.conn.WithContext(ctx).Model(&models.Bill{ID: bill.ID}).
		Select("amount", "description", "group_id").
		Updates(map[string]any{"amount": bill.Amount, "description": bill.Description, "group_id": bill.GroupID})
	if result.Error != nil {
		return fmt.Errorf("failed to update bill: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBill removes a bill and drops it from every group collection.
func (db *DB) DeleteBill(ctx context.Context, id uint) error {
	return db.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("bill_id = ?", id).Delete(&models.GroupBill{}).Error; err != nil {
			return fmt.Errorf("failed to unlink bill: %w", err)
		}
		result := tx.Delete(&models.Bill{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete bill: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
