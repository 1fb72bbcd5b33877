package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/expense-batchpay/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/expense-batchpay/migrations"
	"github.com/garyjia/expense-batchpay/pkg/database"
)

// setupTestDB opens a migrated SQLite database in a temp dir
func setupTestDB(t *testing.T) (*sql.DB, *sqlite.DB) {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "batchpay.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = database.NewMigrator(db, logger).Run(migrations.FS)
	require.NoError(t, err)

	return db.DB, sqlite.NewDB(db.DB, logger)
}

func seedUser(t *testing.T, db *sql.DB, name, email, phone, role string) int64 {
	t.Helper()
	var p interface{}
	if phone != "" {
		p = phone
	}
	res, err := db.Exec(`INSERT INTO users (name, email, phone, role) VALUES (?, ?, ?, ?)`, name, email, p, role)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func seedSite(t *testing.T, db *sql.DB, name, code string) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO sites (name, code) VALUES (?, ?)`, name, code)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func seedExpense(t *testing.T, db *sql.DB, number string, amount float64, status string, submitter int64, site *int64) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO expenses (expense_number, amount, status, submitted_by, site_id) VALUES (?, ?, ?, ?, ?)`,
		number, amount, status, submitter, site)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func countRows(t *testing.T, db *sql.DB, query string, args ...interface{}) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRowContext(context.Background(), query, args...).Scan(&n))
	return n
}
