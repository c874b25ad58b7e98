package models

import (
	"time"

	"daybook/internal/uuid"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionSnapshot is the archived copy of a deleted transaction,
// including the account names it was displayed with.
type TransactionSnapshot struct {
	ID              string          `json:"id"`
	Date            time.Time       `json:"date"`
	MainAccountID   string          `json:"main_account_id"`
	SubAccountID    string          `json:"sub_account_id"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	Type            TransactionType `json:"type"`
	CreatedBy       string          `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	MainAccountName string          `json:"main_account_name,omitempty"`
	SubAccountName  string          `json:"sub_account_name,omitempty"`
}

// Transaction rebuilds a live transaction from the snapshot without its
// former identity.
func (s TransactionSnapshot) Transaction() *Transaction {
	return &Transaction{
		Base:          Base{CreatedAt: s.CreatedAt},
		Date:          s.Date,
		MainAccountID: s.MainAccountID,
		SubAccountID:  s.SubAccountID,
		Description:   s.Description,
		Amount:        s.Amount,
		Type:          s.Type,
		CreatedBy:     s.CreatedBy,
	}
}

// ArchivedTransaction holds a deleted transaction until it is restored.
// Several rows may share an OriginalID after repeated delete/undo cycles.
type ArchivedTransaction struct {
	ID              string              `gorm:"type:uuid;primaryKey" json:"id"`
	OriginalID      string              `gorm:"type:uuid;not null;index" json:"original_id"`
	TransactionData TransactionSnapshot `gorm:"serializer:json;type:jsonb;not null" json:"transaction_data"`
	DeletedAt       time.Time           `gorm:"not null;index" json:"deleted_at"`
}

// BeforeCreate hook generates a UUIDv7 for new archive rows
func (a *ArchivedTransaction) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New()
	}
	return nil
}
