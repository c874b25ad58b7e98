package services

import (
	"errors"
	"testing"

	"daybook/internal/models"
	"daybook/internal/pagination"
	"daybook/internal/testutil"
)

func TestAuditLog(t *testing.T) {
	t.Run("records_entry", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAuditService(db)

		svc.Log("alice", "DELETE_TRANSACTION", "transaction", "tx-1", "10.0.0.1",
			map[string]interface{}{"amount": "500"})

		var entry models.AuditLog
		if err := db.First(&entry).Error; err != nil {
			t.Fatalf("expected an audit entry: %v", err)
		}
		if entry.Actor != "alice" || entry.ResourceID != "tx-1" || entry.Changes != `{"amount":"500"}` {
			t.Errorf("unexpected entry: %+v", entry)
		}
	})

	t.Run("write_failure_is_swallowed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAuditService(db)
		testutil.FailOn(t, db, "create", "audit_logs", errors.New("down"))

		svc.Log("alice", "CREATE_MAIN_ACCOUNT", "main_account", "a-1", "", nil)

		var count int64
		db.Model(&models.AuditLog{}).Count(&count)
		if count != 0 {
			t.Errorf("expected no entry, got %d", count)
		}
	})

	t.Run("lists_pages", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAuditService(db)
		for i := 0; i < 3; i++ {
			svc.Log("alice", "UPDATE_TRANSACTION", "transaction", "tx", "", nil)
		}

		page, err := svc.ListAuditLogs(pagination.PageRequest{Page: 2, PageSize: 2})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 3 || len(page.Data) != 1 || page.Page != 2 {
			t.Errorf("unexpected page: %+v", page)
		}
	})
}
