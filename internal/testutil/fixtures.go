package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"daybook/internal/models"
)

// TestActor is the identity fixtures record transactions under.
const TestActor = "tester@daybook.local"

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Date returns the UTC calendar date for y-m-d.
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CreateTestMainAccount creates a main account with a unique name.
func CreateTestMainAccount(t *testing.T, db *gorm.DB) *models.MainAccount {
	t.Helper()
	return CreateTestMainAccountNamed(t, db, fmt.Sprintf("Main Account %d", nextID()))
}

// CreateTestMainAccountNamed creates a main account with the given name.
func CreateTestMainAccountNamed(t *testing.T, db *gorm.DB, name string) *models.MainAccount {
	t.Helper()

	account := &models.MainAccount{Name: name}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test main account: %v", err)
	}
	return account
}

// CreateTestSubAccount creates a sub account under mainAccountID.
func CreateTestSubAccount(t *testing.T, db *gorm.DB, mainAccountID string) *models.SubAccount {
	t.Helper()

	account := &models.SubAccount{
		Name:          fmt.Sprintf("Sub Account %d", nextID()),
		MainAccountID: mainAccountID,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test sub account: %v", err)
	}
	return account
}

// CreateTestTransaction records a transaction of the given type and amount on date.
func CreateTestTransaction(t *testing.T, db *gorm.DB, sub *models.SubAccount, txType models.TransactionType, amount string, date time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		Date:          date,
		MainAccountID: sub.MainAccountID,
		SubAccountID:  sub.ID,
		Description:   fmt.Sprintf("Test transaction %d", nextID()),
		Amount:        decimal.RequireFromString(amount),
		Type:          txType,
		CreatedBy:     TestActor,
	}
	if err := db.Omit("MainAccount", "SubAccount").Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}
