package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectSQLiteInMemory(t *testing.T) {
	database, err := Connect("sqlite", "file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	assert.Equal(t, "sqlite", database.Driver)
	var one int
	require.NoError(t, database.DB.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
}

func TestConnectRejectsBadInput(t *testing.T) {
	_, err := Connect("sqlite", "")
	require.Error(t, err)

	_, err = Connect("mysql", "root@/routeops")
	require.Error(t, err)
}

func TestCloseNilDatabase(t *testing.T) {
	var database *Database
	assert.NoError(t, database.Close())
}
