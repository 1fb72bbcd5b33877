package database

import (
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "test.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrator_Run(t *testing.T) {
	db := openTestDB(t)
	m := NewMigrator(db, zap.NewNop())

	fsys := fstest.MapFS{
		"002_add_column.sql": {Data: []byte(`ALTER TABLE widgets ADD COLUMN colour TEXT;`)},
		"001_widgets.sql":    {Data: []byte(`CREATE TABLE widgets (id INTEGER PRIMARY KEY); CREATE INDEX idx_widgets_id ON widgets(id);`)},
		"README.md":          {Data: []byte("ignored")},
	}

	n, err := m.Run(fsys)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = db.Exec(`INSERT INTO widgets (id, colour) VALUES (1, 'red')`)
	require.NoError(t, err)

	n, err = m.Run(fsys)
	require.NoError(t, err)
	assert.Zero(t, n)

	applied, err := m.Applied()
	require.NoError(t, err)
	require.Len(t, applied, 2)
	assert.Equal(t, "widgets", applied[0].Name)
	assert.Equal(t, 2, applied[1].Version)
}

func TestMigrator_FailedMigrationRollsBack(t *testing.T) {
	db := openTestDB(t)
	m := NewMigrator(db, zap.NewNop())

	_, err := m.Run(fstest.MapFS{
		"001_ok.sql":     {Data: []byte(`CREATE TABLE a (id INTEGER);`)},
		"002_broken.sql": {Data: []byte(`CREATE TABLE b (id INTEGER); NOT SQL;`)},
	})
	require.Error(t, err)

	applied, err := m.Applied()
	require.NoError(t, err)
	assert.Len(t, applied, 1)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'b'`).Scan(&count))
	assert.Zero(t, count)
}

func TestLoadMigrations_Invalid(t *testing.T) {
	_, err := loadMigrations(fstest.MapFS{"init.sql": {Data: []byte("")}})
	assert.Error(t, err)

	_, err = loadMigrations(fstest.MapFS{
		"001_a.sql": {Data: []byte("")},
		"1_b.sql":   {Data: []byte("")},
	})
	assert.Error(t, err)
}
