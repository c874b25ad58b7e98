package services

import (
	"time"

	"github.com/shopspring/decimal"

	"daybook/internal/ledger"
	"daybook/internal/models"
	"daybook/internal/pagination"
)

// AccountUpdate carries the mutable fields of a main or sub account.
// Nil fields are left unchanged.
type AccountUpdate struct {
	Name        *string
	Description *string
}

// AccountDirectory owns the chart of accounts and its deletion rules.
// Lookups read the cached lists; every successful mutation re-fetches them.
type AccountDirectory interface {
	FetchMainAccounts() ([]models.MainAccount, error)
	FetchSubAccounts(mainAccountID string) ([]models.SubAccount, error)
	Refresh() error
	GetMainAccountByID(id string) (*models.MainAccount, bool)
	GetSubAccountByID(id string) (*models.SubAccount, bool)
	CreateMainAccount(name, description string) (*models.MainAccount, error)
	CreateSubAccount(name, mainAccountID, description string) (*models.SubAccount, error)
	UpdateMainAccount(id string, fields AccountUpdate) error
	UpdateSubAccount(id string, fields AccountUpdate) error
	DeleteMainAccount(id string) error
	DeleteSubAccount(id string) error
}

// TransactionFilters constrain a ledger view. All set filters must hold.
// Search matches the description or either account name, ignoring case.
type TransactionFilters struct {
	StartDate     *time.Time    `json:"start_date,omitempty"`
	EndDate       *time.Time    `json:"end_date,omitempty"`
	MainAccountID string        `json:"main_account_id,omitempty"`
	SubAccountID  string        `json:"sub_account_id,omitempty"`
	Search        string        `json:"search,omitempty"`
	Summary       ledger.Period `json:"summary,omitempty"`
}

// NewTransaction holds the fields of a transaction to record. When an
// account id is empty and the matching New*AccountName is set, that account
// is created first.
type NewTransaction struct {
	Date               time.Time
	MainAccountID      string
	SubAccountID       string
	NewMainAccountName string
	NewSubAccountName  string
	Description        string
	Amount             decimal.Decimal
	Type               models.TransactionType
}

// TransactionUpdate carries the mutable fields of a transaction.
type TransactionUpdate struct {
	Date          *time.Time
	MainAccountID *string
	SubAccountID  *string
	Description   *string
	Amount        *decimal.Decimal
	Type          *models.TransactionType
}

// LedgerView is a fetched transaction set with its aggregates.
type LedgerView struct {
	Transactions []models.Transaction `json:"transactions"`
	ledger.Summary
	Periods   []ledger.PeriodSummary `json:"periods,omitempty"`
	Filters   TransactionFilters     `json:"filters"`
	FetchedAt time.Time              `json:"fetched_at"`
}

// LedgerStore is one caller's view of the transactions. It remembers the
// last applied filters and the last materialized view, and re-fetches after
// every write.
type LedgerStore interface {
	// FetchTransactions queries the ledger. A nil filter set runs unfiltered
	// and leaves the remembered filters alone; otherwise they are replaced.
	FetchTransactions(filters *TransactionFilters) (*LedgerView, error)
	ApplyFilters(filters TransactionFilters) (*LedgerView, error)
	Refresh() (*LedgerView, error)
	CreateTransaction(fields NewTransaction) (*models.Transaction, error)
	UpdateTransaction(id string, fields TransactionUpdate) error

	// RestoreTransaction and RemoveTransaction are the raw store operations
	// used by the archive. Neither re-fetches.
	RestoreTransaction(snapshot models.TransactionSnapshot) (*models.Transaction, error)
	RemoveTransaction(id string) (bool, error)

	Lookup(id string) (*models.Transaction, bool)
	View() *LedgerView
	Filters() TransactionFilters
	Actor() string
	Close()
}

// LedgerSessions hands out one LedgerStore per actor.
type LedgerSessions interface {
	Session(actor string) (LedgerStore, error)
}

// ArchiveServicer moves transactions into the archive and back.
type ArchiveServicer interface {
	DeleteTransaction(store LedgerStore, id string) error
	UndoTransaction(store LedgerStore, originalID string) (*models.Transaction, error)
	ListArchived(page pagination.PageRequest) (*pagination.PageResponse[models.ArchivedTransaction], error)
}

// Dashboard is the overview across the whole ledger.
type Dashboard struct {
	ledger.Totals
	TransactionCount   int                     `json:"transaction_count"`
	RecentTransactions []models.Transaction    `json:"recent_transactions"`
	MonthlySeries      []ledger.PeriodSummary  `json:"monthly_series"`
	AccountBalances    []ledger.AccountBalance `json:"account_balances"`
	GeneratedAt        time.Time               `json:"generated_at"`
}

// DashboardServicer builds the ledger overview.
type DashboardServicer interface {
	GetDashboard() (*Dashboard, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(actor, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
	ListAuditLogs(page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error)
}
