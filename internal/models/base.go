package models

import (
	"time"

	"daybook/internal/uuid"

	"gorm.io/gorm"
)

// Base contains common columns for all ledger tables. Ledger rows are hard
// deleted; deleted transactions survive as ArchivedTransaction snapshots.
type Base struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New()
	}
	return nil
}

// All lists every model managed by the ledger store, in dependency order.
func All() []interface{} {
	return []interface{}{
		&MainAccount{},
		&SubAccount{},
		&Transaction{},
		&ArchivedTransaction{},
		&AuditLog{},
	}
}
