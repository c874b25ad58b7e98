// Package testutil provides test helpers for setting up in-memory databases,
// creating fixtures, and making assertions.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"daybook/internal/models"
)

// dbCounter gives every test its own in-memory database.
var dbCounter atomic.Int64

// SetupTestDB creates an isolated in-memory SQLite database with foreign
// keys enforced and all models migrated.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:daybook_test_%d?mode=memory&cache=shared&_foreign_keys=1", dbCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get underlying DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// TeardownTestDB closes the underlying database connection.
func TeardownTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()

	sqlDB, err := db.DB()
	if err != nil {
		t.Errorf("failed to get underlying DB for teardown: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		t.Errorf("failed to close test database: %v", err)
	}
}

// FailOn makes every create, update or delete against table fail with err.
// The returned function removes the injected failure again.
func FailOn(t *testing.T, db *gorm.DB, op, table string, err error) func() {
	t.Helper()

	name := fmt.Sprintf("testutil:fail_%s_%s", op, table)
	fail := func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			_ = tx.AddError(err)
		}
	}

	var register error
	switch op {
	case "create":
		register = db.Callback().Create().Before("gorm:create").Register(name, fail)
	case "update":
		register = db.Callback().Update().Before("gorm:update").Register(name, fail)
	case "delete":
		register = db.Callback().Delete().Before("gorm:delete").Register(name, fail)
	case "query":
		register = db.Callback().Query().Before("gorm:query").Register(name, fail)
	default:
		t.Fatalf("unknown callback operation %q", op)
	}
	if register != nil {
		t.Fatalf("failed to register %s: %v", name, register)
	}

	return func() {
		var removeErr error
		switch op {
		case "create":
			removeErr = db.Callback().Create().Remove(name)
		case "update":
			removeErr = db.Callback().Update().Remove(name)
		case "delete":
			removeErr = db.Callback().Delete().Remove(name)
		case "query":
			removeErr = db.Callback().Query().Remove(name)
		}
		if removeErr != nil {
			t.Errorf("failed to remove %s: %v", name, removeErr)
		}
	}
}
