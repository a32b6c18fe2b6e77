package main

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"github.com/smartaccounts/bridge-relay/bridgeClient/api"
	"github.com/smartaccounts/bridge-relay/bridgeClient/cache"
	"github.com/smartaccounts/bridge-relay/bridgeClient/db"
	"github.com/smartaccounts/bridge-relay/bridgeClient/store"
)

func statusServer(t *testing.T) (*httptest.Server, *db.Journal) {
	t.Helper()
	database, err := db.OpenInMemoryDB(true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	journal := db.NewJournal(database, zerolog.Nop())
	srv := api.NewServer(zerolog.Nop(), 0, journal, cache.New(zerolog.Nop()), nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, journal
}

func seedOperation(t *testing.T, journal *db.Journal, id string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, journal.CreateOperation(ctx, &store.Operation{
		OperationID:  id,
		Flow:         "deposit",
		Status:       "Sent",
		Instruction:  "1100000000000000000f424000000001",
		LedgerTxHash: "AB12",
	}))
	require.NoError(t, journal.RecordTransition(ctx, id, "Bridged", db.Update{
		ChainTxHash: "0xbeef",
		Detail:      map[string]string{"block": "1020"},
	}))
}

func TestQueryOperationsJSON(t *testing.T) {
	ts, journal := statusServer(t)
	seedOperation(t, journal, "op-1")

	out, err := execute(t, "query", "operations", "--server", ts.URL, "--limit", "5", "-o", "json")
	require.NoError(t, err)

	var got OperationsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Operations, 1)
	op := got.Operations[0]
	assert.Equal(t, "op-1", op.OperationID)
	assert.Equal(t, "Bridged", op.Status)
	assert.Equal(t, "0xbeef", op.ChainTxHash)
	assert.False(t, got.Generated.IsZero())
}

func TestQueryOperationTransitions(t *testing.T) {
	ts, journal := statusServer(t)
	seedOperation(t, journal, "op-3")

	out, err := execute(t, "query", "operation", "op-3", "--server", ts.URL, "-o", "json")
	require.NoError(t, err)

	var got OperationsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.NotNil(t, got.Operation)
	require.Len(t, got.Operation.Transitions, 2)
	assert.Equal(t, "Sent", got.Operation.Transitions[0].Status)
	assert.Equal(t, "1020", got.Operation.Transitions[1].Detail["block"])
}

func TestQueryOperationYAML(t *testing.T) {
	ts, journal := statusServer(t)
	seedOperation(t, journal, "op-2")

	out, err := execute(t, "query", "operation", "op-2", "--server", ts.URL)
	require.NoError(t, err)

	var got struct {
		Operation struct {
			OperationID string `yaml:"operation_id"`
			Flow        string `yaml:"flow"`
		} `yaml:"operation"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, "op-2", got.Operation.OperationID)
	assert.Equal(t, "deposit", got.Operation.Flow)
}

func TestQueryOperationNotFound(t *testing.T) {
	ts, _ := statusServer(t)

	_, err := execute(t, "query", "operation", "missing", "--server", ts.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operation missing not found")
}

func TestQueryContractCache(t *testing.T) {
	ts, _ := statusServer(t)

	out, err := execute(t, "query", "contract-cache", "--server", ts.URL, "-o", "json")
	require.NoError(t, err)

	var got CacheOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Empty(t, got.Entries)
}

func TestQueryWithoutServer(t *testing.T) {
	t.Setenv("FSA_STATUS_SERVER_PORT", "0")
	_, err := execute(t, "query", "operations")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status server port is not configured")
}

func TestPrintOutputRejectsUnknownFormat(t *testing.T) {
	assert.Error(t, printOutput(nil, struct{}{}, "xml"))
}
