package services

import (
	"time"

	"gorm.io/gorm"

	"daybook/internal/ledger"
)

const (
	recentTransactionCount = 5
	dashboardMonths        = 6
)

// dashboardService summarises the whole ledger through its own unfiltered
// session, so callers' filters are never touched.
type dashboardService struct {
	store LedgerStore
	now   func() time.Time
}

// NewDashboardService creates a new DashboardServicer.
func NewDashboardService(db *gorm.DB, accounts AccountDirectory) DashboardServicer {
	return &dashboardService{
		store: NewLedgerStore(db, accounts, ""),
		now:   time.Now,
	}
}

func (s *dashboardService) GetDashboard() (*Dashboard, error) {
	view, err := s.store.FetchTransactions(nil)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	recent := view.Transactions
	if len(recent) > recentTransactionCount {
		recent = recent[:recentTransactionCount]
	}

	return &Dashboard{
		Totals:             view.Totals,
		TransactionCount:   len(view.Transactions),
		RecentTransactions: recent,
		MonthlySeries:      ledger.MonthlySeries(view.Transactions, now, dashboardMonths),
		AccountBalances:    ledger.BalancesByMainAccount(view.Transactions),
		GeneratedAt:        now,
	}, nil
}
