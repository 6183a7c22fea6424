package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewDatabase_SQLite(t *testing.T) {
	db, err := NewDatabase(Config{
		Driver: DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "ledger.db"),
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Ping())

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MaxOpenConnections)
}

func TestNewDatabase_UnsupportedDriver(t *testing.T) {
	_, err := NewDatabase(Config{Driver: "oracle"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestDatabase_Close(t *testing.T) {
	db, err := NewDatabase(Config{Driver: DriverSQLite, DSN: ":memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, db.Close())
	assert.Error(t, db.Ping())
}
