package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"daybook/internal/logger"
	"daybook/internal/models"
	"daybook/internal/testutil"
)

func init() {
	logger.Init("test")
}

func strPtr(s string) *string { return &s }

func TestCreateMainAccount(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountDirectory(db)

		account, err := svc.CreateMainAccount("  Household ", "Home costs")
		testutil.AssertNoError(t, err)

		if account.ID == "" {
			t.Fatal("expected an ID to be assigned")
		}
		if account.Name != "Household" {
			t.Errorf("expected trimmed name Household, got %q", account.Name)
		}

		cached, ok := svc.GetMainAccountByID(account.ID)
		if !ok {
			t.Fatal("expected new account in the cache")
		}
		if cached.Description != "Home costs" {
			t.Errorf("expected description Home costs, got %q", cached.Description)
		}
	})

	t.Run("blank_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountDirectory(db)

		_, err := svc.CreateMainAccount("   ", "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("store_failure", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountDirectory(db)
		testutil.FailOn(t, db, "create", "main_accounts", errors.New("connection reset"))

		_, err := svc.CreateMainAccount("Household", "")
		testutil.AssertAppError(t, err, "STORE_ERROR")
	})
}

func TestCreateSubAccount(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountDirectory(db)
		main := testutil.CreateTestMainAccount(t, db)

		sub, err := svc.CreateSubAccount("Rent", main.ID, "")
		testutil.AssertNoError(t, err)

		if sub.MainAccountID != main.ID {
			t.Errorf("expected parent %s, got %s", main.ID, sub.MainAccountID)
		}
		if _, ok := svc.GetSubAccountByID(sub.ID); !ok {
			t.Error("expected new sub account in the cache")
		}
	})

	t.Run("unknown_parent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountDirectory(db)

		_, err := svc.CreateSubAccount("Rent", "0190c0de-0000-7000-8000-000000000000", "")
		testutil.AssertAppError(t, err, "UNKNOWN_MAIN_ACCOUNT")

		var count int64
		db.Model(&models.SubAccount{}).Count(&count)
		if count != 0 {
			t.Errorf("expected no sub account to be stored, found %d", count)
		}
	})

	t.Run("blank_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountDirectory(db)
		main := testutil.CreateTestMainAccount(t, db)

		_, err := svc.CreateSubAccount("", main.ID, "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestFetchAccounts(t *testing.T) {
	t.Run("main_accounts_ordered_by_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountDirectory(db)
		testutil.CreateTestMainAccountNamed(t, db, "Utilities")
		testutil.CreateTestMainAccountNamed(t, db, "Household")

		accounts, err := svc.FetchMainAccounts()
		testutil.AssertNoError(t, err)

		if len(accounts) != 2 || accounts[0].Name != "Household" || accounts[1].Name != "Utilities" {
			t.Fatalf("unexpected order: %+v", accounts)
		}
		for _, account := range accounts {
			if _, ok := svc.GetMainAccountByID(account.ID); !ok {
				t.Errorf("expected %s in the cache", account.Name)
			}
		}
	})

	t.Run("sub_accounts_filtered_by_parent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountDirectory(db)
		a := testutil.CreateTestMainAccount(t, db)
		b := testutil.CreateTestMainAccount(t, db)
		testutil.CreateTestSubAccount(t, db, a.ID)
		testutil.CreateTestSubAccount(t, db, a.ID)
		other := testutil.CreateTestSubAccount(t, db, b.ID)

		testutil.AssertNoError(t, svc.Refresh())

		subs, err := svc.FetchSubAccounts(a.ID)
		testutil.AssertNoError(t, err)
		if len(subs) != 2 {
			t.Errorf("expected 2 sub accounts under a, got %d", len(subs))
		}
		for _, s := range subs {
			if s.MainAccountID != a.ID {
				t.Errorf("sub account %s belongs to %s", s.ID, s.MainAccountID)
			}
		}
		if _, ok := svc.GetSubAccountByID(other.ID); !ok {
			t.Error("filtered fetch should leave the full cache")
		}
	})

	t.Run("lookup_misses_report_absence", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountDirectory(db)
		main := testutil.CreateTestMainAccount(t, db)

		// Not fetched yet, so the cache does not know it.
		if _, ok := svc.GetMainAccountByID(main.ID); ok {
			t.Error("expected a miss before the first fetch")
		}
		if _, ok := svc.GetSubAccountByID("missing"); ok {
			t.Error("expected a miss for an unknown id")
		}
	})
}

func TestUpdateAccounts(t *testing.T) {
	t.Run("main_account_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountDirectory(db)
		main := testutil.CreateTestMainAccount(t, db)

		err := svc.UpdateMainAccount(main.ID, AccountUpdate{Name: strPtr("Renamed")})
		testutil.AssertNoError(t, err)

		cached, ok := svc.GetMainAccountByID(main.ID)
		if !ok || cached.Name != "Renamed" {
			t.Errorf("expected cached name Renamed, got %+v", cached)
		}
	})

	t.Run("sub_account_description", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountDirectory(db)
		main := testutil.CreateTestMainAccount(t, db)
		sub := testutil.CreateTestSubAccount(t, db, main.ID)

		err := svc.UpdateSubAccount(sub.ID, AccountUpdate{Description: strPtr("monthly")})
		testutil.AssertNoError(t, err)

		var stored models.SubAccount
		db.First(&stored, "id = ?", sub.ID)
		if stored.Description != "monthly" || stored.Name != sub.Name {
			t.Errorf("unexpected stored sub account: %+v", stored)
		}
	})

	t.Run("unknown_id", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountDirectory(db)

		err := svc.UpdateMainAccount("missing", AccountUpdate{Name: strPtr("x")})
		testutil.AssertAppError(t, err, "MAIN_ACCOUNT_NOT_FOUND")

		err = svc.UpdateSubAccount("missing", AccountUpdate{Name: strPtr("x")})
		testutil.AssertAppError(t, err, "SUB_ACCOUNT_NOT_FOUND")
	})

	t.Run("blank_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountDirectory(db)
		main := testutil.CreateTestMainAccount(t, db)

		err := svc.UpdateMainAccount(main.ID, AccountUpdate{Name: strPtr(" ")})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestDeleteMainAccount(t *testing.T) {
	t.Run("no_dependents", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountDirectory(db)
		main := testutil.CreateTestMainAccount(t, db)
		testutil.AssertNoError(t, svc.Refresh())

		testutil.AssertNoError(t, svc.DeleteMainAccount(main.ID))

		if _, ok := svc.GetMainAccountByID(main.ID); ok {
			t.Error("deleted account should leave the cache")
		}
	})

	t.Run("has_sub_accounts", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountDirectory(db)
		main := testutil.CreateTestMainAccount(t, db)
		testutil.CreateTestSubAccount(t, db, main.ID)
		testutil.CreateTestSubAccount(t, db, main.ID)

		err := svc.DeleteMainAccount(main.ID)
		testutil.AssertAppError(t, err, "MAIN_ACCOUNT_HAS_DEPENDENTS")

		var mains, subs int64
		db.Model(&models.MainAccount{}).Where("id = ?", main.ID).Count(&mains)
		db.Model(&models.SubAccount{}).Where("main_account_id = ?", main.ID).Count(&subs)
		if mains != 1 || subs != 2 {
			t.Errorf("expected account and both sub accounts to remain, got %d/%d", mains, subs)
		}
	})

	t.Run("has_transactions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountDirectory(db)
		main := testutil.CreateTestMainAccount(t, db)
		other := testutil.CreateTestMainAccount(t, db)
		sub := testutil.CreateTestSubAccount(t, db, other.ID)

		// A transaction can reference main directly even though its sub account
		// hangs under another parent; only the transaction count blocks here.
		tx := &models.Transaction{
			Date:          testutil.Date(2024, time.March, 1),
			MainAccountID: main.ID,
			SubAccountID:  sub.ID,
			Amount:        mustDecimal("10"),
			Type:          models.TransactionTypeCredit,
			CreatedBy:     testutil.TestActor,
		}
		if err := db.Omit("MainAccount", "SubAccount").Create(tx).Error; err != nil {
			t.Fatalf("failed to seed transaction: %v", err)
		}

		err := svc.DeleteMainAccount(main.ID)
		testutil.AssertAppError(t, err, "MAIN_ACCOUNT_HAS_DEPENDENTS")
	})

	t.Run("unknown_id", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountDirectory(db)

		err := svc.DeleteMainAccount("missing")
		testutil.AssertAppError(t, err, "MAIN_ACCOUNT_NOT_FOUND")
	})
}

func TestDeleteSubAccount(t *testing.T) {
	t.Run("no_dependents", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountDirectory(db)
		main := testutil.CreateTestMainAccount(t, db)
		sub := testutil.CreateTestSubAccount(t, db, main.ID)

		testutil.AssertNoError(t, svc.DeleteSubAccount(sub.ID))

		var count int64
		db.Model(&models.SubAccount{}).Where("id = ?", sub.ID).Count(&count)
		if count != 0 {
			t.Error("expected sub account to be deleted")
		}
	})

	t.Run("has_transactions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountDirectory(db)
		main := testutil.CreateTestMainAccount(t, db)
		sub := testutil.CreateTestSubAccount(t, db, main.ID)
		testutil.CreateTestTransaction(t, db, sub, models.TransactionTypeDebit, "20", testutil.Date(2024, time.February, 2))

		err := svc.DeleteSubAccount(sub.ID)
		testutil.AssertAppError(t, err, "SUB_ACCOUNT_HAS_DEPENDENTS")
	})

	t.Run("count_failure_is_store_error", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAccountDirectory(db)
		main := testutil.CreateTestMainAccount(t, db)
		sub := testutil.CreateTestSubAccount(t, db, main.ID)
		testutil.FailOn(t, db, "query", "transactions", errors.New("timeout"))

		err := svc.DeleteSubAccount(sub.ID)
		testutil.AssertAppError(t, err, "STORE_ERROR")
	})
}

func TestStructuralMutationsAreSerialized(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAccountDirectory(db)
	main := testutil.CreateTestMainAccount(t, db)

	var wg sync.WaitGroup
	var createErr, deleteErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, createErr = svc.CreateSubAccount("Racing", main.ID, "")
	}()
	go func() {
		defer wg.Done()
		deleteErr = svc.DeleteMainAccount(main.ID)
	}()
	wg.Wait()

	// Whichever ran first, no sub account may point at a missing parent.
	var orphans int64
	db.Model(&models.SubAccount{}).
		Where("main_account_id NOT IN (?)", db.Model(&models.MainAccount{}).Select("id")).
		Count(&orphans)
	if orphans != 0 {
		t.Fatalf("found %d orphaned sub accounts", orphans)
	}
	if createErr == nil && deleteErr == nil {
		t.Fatal("create and delete cannot both succeed")
	}
}
