// Package testutil holds helpers shared by package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"paysettle/internal/database"
	"paysettle/internal/models"
)

var dsnReplacer = strings.NewReplacer("/", "_", " ", "_", "#", "_")

// NewDB opens a migrated in-memory SQLite database private to the calling test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", dsnReplacer.Replace(t.Name()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps the in-memory database alive and serializes writers like a row lock would
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))
	return db
}

// SeedPayment inserts an unpaid record with the given reference and amount.
func SeedPayment(t *testing.T, db *gorm.DB, reference string, amount int64) *models.PaymentRecord {
	t.Helper()
	p := &models.PaymentRecord{
		Reference:     reference,
		Amount:        decimal.NewFromInt(amount),
		CustomerName:  "Ada Obi",
		CustomerEmail: "ada@example.com",
	}
	require.NoError(t, db.Create(p).Error)
	return p
}
