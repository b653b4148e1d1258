package models

import "time"

// User represents a registered account.
type User struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	Username string `json:"username" gorm:"uniqueIndex;not null"`
	Email    string `json:"email" gorm:"uniqueIndex;not null"`
	Password string `json:"-" gorm:"not null"`
}

// Group is a named collection of bills identified by a user-supplied external id.
type Group struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	ExternalID  string `json:"group_id" gorm:"column:group_id;uniqueIndex;not null"`
	Description string `json:"description" gorm:"not null"`
	// Bills is the group's collection. It is backed by group_bills and is
	// independent of Bill.GroupID.
	Bills []Bill `json:"bills,omitempty" gorm:"many2many:group_bills;"`
}

// Bill is a single amount and description, optionally scoped to a group.
type Bill struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Amount      string `json:"amount" gorm:"not null"`
	Description string `json:"description" gorm:"not null"`
	GroupID     *uint  `json:"group_id,omitempty" gorm:"index"`
	Group       *Group `json:"-" gorm:"constraint:OnDelete:SET NULL;"`
}

// GroupBill is a row of a group's bill collection.
type GroupBill struct {
	GroupID uint `gorm:"primaryKey"`
	BillID  uint `gorm:"primaryKey"`
}

// Membership links users to groups. Nothing populates it yet.
type Membership struct {
	UserID  uint `gorm:"primaryKey"`
	GroupID uint `gorm:"primaryKey"`
}

// Session represents a signed-in browser.
type Session struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	UserID       uint      `json:"user_id" gorm:"not null;index"`
	User         User      `json:"-" gorm:"constraint:OnDelete:CASCADE;"`
	ExpiresAt    time.Time `json:"expires_at" gorm:"not null;index"`
	LastActivity time.Time `json:"last_activity"`
}
