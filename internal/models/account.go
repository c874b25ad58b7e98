package models

// MainAccount is a top-level chart-of-accounts category.
type MainAccount struct {
	Base
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description,omitempty"`

	// Relationships
	SubAccounts []SubAccount `gorm:"foreignKey:MainAccountID" json:"sub_accounts,omitempty"`
}

// SubAccount is a child category under exactly one MainAccount.
type SubAccount struct {
	Base
	Name          string `gorm:"not null" json:"name"`
	MainAccountID string `gorm:"type:uuid;not null;index" json:"main_account_id"`
	Description   string `json:"description,omitempty"`

	// Relationships
	MainAccount *MainAccount `gorm:"foreignKey:MainAccountID" json:"main_account,omitempty"`
}
