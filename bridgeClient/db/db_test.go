package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartaccounts/bridge-relay/bridgeClient/store"
)

func TestDB_OpenModes(t *testing.T) {
	t.Run("in-memory alias", func(t *testing.T) {
		db, err := OpenInMemoryDB(true)
		require.NoError(t, err)
		require.NotNil(t, db)

		runSampleInsertSelectTest(t, db)
		assert.NoError(t, db.Close())
	})

	t.Run("in-memory direct", func(t *testing.T) {
		db, err := openSQLite(InMemorySQLiteDSN, true)
		require.NoError(t, err)

		runSampleInsertSelectTest(t, db)
		assert.NoError(t, db.Close())
	})

	t.Run("without migration the tables are missing", func(t *testing.T) {
		db, err := OpenInMemoryDB(false)
		require.NoError(t, err)
		defer db.Close()

		err = db.Client().Create(&store.Operation{OperationID: "x", Flow: "deposit", Status: "Sent"}).Error
		assert.Error(t, err)
	})
}

func runSampleInsertSelectTest(t *testing.T, db *DB) {
	entry := store.Operation{OperationID: "op-1", Flow: "deposit", Status: "Sent"}
	require.NoError(t, db.Client().WithContext(context.Background()).Create(&entry).Error)

	var result store.Operation
	require.NoError(t, db.Client().First(&result).Error)
	assert.Equal(t, "op-1", result.OperationID)
	assert.Equal(t, "deposit", result.Flow)
}
