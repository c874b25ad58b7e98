package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the polarity of a ledger entry.
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "credit"
	TransactionTypeDebit  TransactionType = "debit"
)

// Valid reports whether t is one of the two supported polarities.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeCredit || t == TransactionTypeDebit
}

// Transaction is a dated credit or debit recorded against a main/sub account pair.
type Transaction struct {
	Base
	Date          time.Time       `gorm:"type:date;not null;index" json:"date"`
	MainAccountID string          `gorm:"type:uuid;not null;index" json:"main_account_id"`
	SubAccountID  string          `gorm:"type:uuid;not null;index" json:"sub_account_id"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Type          TransactionType `gorm:"not null" json:"type"`
	CreatedBy     string          `gorm:"not null" json:"created_by"`

	// Relationships
	MainAccount *MainAccount `gorm:"foreignKey:MainAccountID" json:"main_account,omitempty"`
	SubAccount  *SubAccount  `gorm:"foreignKey:SubAccountID" json:"sub_account,omitempty"`
}

// Snapshot captures the transaction's full state for the archive.
func (t *Transaction) Snapshot() TransactionSnapshot {
	s := TransactionSnapshot{
		ID:            t.ID,
		Date:          t.Date,
		MainAccountID: t.MainAccountID,
		SubAccountID:  t.SubAccountID,
		Description:   t.Description,
		Amount:        t.Amount,
		Type:          t.Type,
		CreatedBy:     t.CreatedBy,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
	if t.MainAccount != nil {
		s.MainAccountName = t.MainAccount.Name
	}
	if t.SubAccount != nil {
		s.SubAccountName = t.SubAccount.Name
	}
	return s
}
