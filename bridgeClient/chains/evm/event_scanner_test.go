package evm

import (
	"context"
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
	"github.com/smartaccounts/bridge-relay/bridgeClient/registry"
	"github.com/smartaccounts/bridge-relay/bridgeClient/registry/registrytest"
)

func instructionExecutedLog(t *testing.T, ev *registry.Event, block uint64, txID byte) types.Log {
	t.Helper()
	return registrytest.MustLog(ev, block, map[string]interface{}{
		"personalAccount":  ethcommon.HexToAddress("0x00000000000000000000000000000000000000aa"),
		"transactionId":    [32]byte{txID},
		"paymentReference": [32]byte{},
		"xrplOwner":        "rpshnaf39wBUDNEGHJKLM4PQRST7VWXYZ2bcdeCg65jkm8oFqi1tuvAxyz",
		"instructionId":    big.NewInt(0x11),
	})
}

func collect(t *testing.T, s *EventScanner, events []*registry.Event, r BlockRange) ([]types.Log, []error) {
	t.Helper()
	var logs []types.Log
	var errs []error
	for l, err := range s.Scan(context.Background(), events, r) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		logs = append(logs, l)
	}
	return logs, errs
}

func TestEventScannerStrides(t *testing.T) {
	reg := testRegistry(t)
	ev := reg.MasterAccountController().MustEvent(registry.EventInstructionExecuted)

	chain := newFakeChain(1_000)
	chain.logs = []types.Log{
		instructionExecutedLog(t, ev, 105, 1),
		instructionExecutedLog(t, ev, 160, 2),
		instructionExecutedLog(t, ev, 199, 3),
		instructionExecutedLog(t, ev, 200, 4),
	}
	scanner := NewEventScanner(chain, 0, nil, zerolog.Nop())

	logs, errs := collect(t, scanner, []*registry.Event{ev}, Window(100, 100))
	require.Empty(t, errs)
	require.Len(t, logs, 3)
	assert.Equal(t, []uint64{105, 160, 199}, []uint64{logs[0].BlockNumber, logs[1].BlockNumber, logs[2].BlockNumber})

	queries := chain.Queries()
	require.Len(t, queries, 4)
	expected := [][2]uint64{{100, 129}, {130, 159}, {160, 189}, {190, 199}}
	for i, q := range queries {
		assert.Equal(t, expected[i][0], q.FromBlock.Uint64())
		assert.Equal(t, expected[i][1], q.ToBlock.Uint64())
		assert.Equal(t, []ethcommon.Address{testControllerAddress}, q.Addresses)
		assert.Equal(t, [][]ethcommon.Hash{{ev.Signature()}}, q.Topics)
	}
}

func TestEventScannerFiltersForeignTopics(t *testing.T) {
	reg := testRegistry(t)
	ev := reg.MasterAccountController().MustEvent(registry.EventInstructionExecuted)

	chain := newFakeChain(1_000)
	foreign := instructionExecutedLog(t, ev, 110, 9)
	foreign.Topics = append([]ethcommon.Hash{ethcommon.HexToHash("0xdead")}, foreign.Topics[1:]...)
	chain.logs = []types.Log{
		foreign,
		{Address: testControllerAddress, BlockNumber: 111},
		instructionExecutedLog(t, ev, 112, 1),
	}

	logs, errs := collect(t, NewEventScanner(chain, 30, nil, zerolog.Nop()), []*registry.Event{ev}, Window(100, 30))
	require.Empty(t, errs)
	require.Len(t, logs, 1)
	assert.Equal(t, uint64(112), logs[0].BlockNumber)
}

func TestEventScannerStopsAtHead(t *testing.T) {
	reg := testRegistry(t)
	ev := reg.MasterAccountController().MustEvent(registry.EventInstructionExecuted)

	chain := newFakeChain(150)
	chain.logs = []types.Log{instructionExecutedLog(t, ev, 140, 1)}

	logs, errs := collect(t, NewEventScanner(chain, 30, nil, zerolog.Nop()), []*registry.Event{ev}, BlockRange{Start: 100, End: 300})
	require.Empty(t, errs)
	assert.Len(t, logs, 1)

	queries := chain.Queries()
	require.Len(t, queries, 2)
	assert.Equal(t, uint64(150), queries[1].ToBlock.Uint64())
}

func TestEventScannerMultipleEvents(t *testing.T) {
	reg := testRegistry(t)
	executed := reg.MasterAccountController().MustEvent(registry.EventInstructionExecuted)
	minted := reg.AssetManager().MustEvent(registry.EventMintingExecuted)

	chain := newFakeChain(1_000)
	chain.logs = []types.Log{
		instructionExecutedLog(t, executed, 101, 1),
		registrytest.MustLog(minted, 102, map[string]interface{}{
			"agentVault":              ethcommon.HexToAddress("0x01"),
			"collateralReservationId": big.NewInt(7),
			"mintedAmountUBA":         big.NewInt(10),
			"agentFeeUBA":             big.NewInt(1),
			"poolFeeUBA":              big.NewInt(1),
		}),
	}

	logs, errs := collect(t, NewEventScanner(chain, 30, nil, zerolog.Nop()), []*registry.Event{executed, minted}, Window(100, 10))
	require.Empty(t, errs)
	assert.Len(t, logs, 2)

	q := chain.Queries()[0]
	assert.ElementsMatch(t, []ethcommon.Address{testControllerAddress, testAssetManagerAddress}, q.Addresses)
	assert.ElementsMatch(t, []ethcommon.Hash{executed.Signature(), minted.Signature()}, q.Topics[0])
}

func TestEventScannerYieldsErrorOnce(t *testing.T) {
	reg := testRegistry(t)
	ev := reg.MasterAccountController().MustEvent(registry.EventInstructionExecuted)

	chain := newFakeChain(1_000)
	chain.filterErr = errors.NewRPCError(chainName, "getLogs failed", nil)

	logs, errs := collect(t, NewEventScanner(chain, 30, nil, zerolog.Nop()), []*registry.Event{ev}, Window(100, 300))
	assert.Empty(t, logs)
	require.Len(t, errs, 1)
	assert.True(t, errors.IsChainError(errs[0], errors.ErrCodeRPC))
	assert.Len(t, chain.Queries(), 1)
}

func TestEventScannerEarlyBreak(t *testing.T) {
	reg := testRegistry(t)
	ev := reg.MasterAccountController().MustEvent(registry.EventInstructionExecuted)

	chain := newFakeChain(1_000)
	chain.logs = []types.Log{
		instructionExecutedLog(t, ev, 101, 1),
		instructionExecutedLog(t, ev, 102, 2),
		instructionExecutedLog(t, ev, 150, 3),
	}

	scanner := NewEventScanner(chain, 30, nil, zerolog.Nop())
	for l, err := range scanner.Scan(context.Background(), []*registry.Event{ev}, Window(100, 100)) {
		require.NoError(t, err)
		assert.Equal(t, uint64(101), l.BlockNumber)
		break
	}
	assert.Len(t, chain.Queries(), 1)
}

func TestEventScannerGetSingle(t *testing.T) {
	reg := testRegistry(t)
	ev := reg.MasterAccountController().MustEvent(registry.EventInstructionExecuted)

	chain := newFakeChain(1_000)
	chain.logs = []types.Log{instructionExecutedLog(t, ev, 500, 1)}
	scanner := NewEventScanner(chain, 30, nil, zerolog.Nop())

	l, err := scanner.GetSingle(context.Background(), ev, 500)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), l.BlockNumber)

	q := chain.Queries()[0]
	assert.Equal(t, uint64(500), q.FromBlock.Uint64())
	assert.Equal(t, uint64(500), q.ToBlock.Uint64())

	_, err = scanner.GetSingle(context.Background(), ev, 501)
	require.Error(t, err)
	assert.True(t, errors.IsChainError(err, errors.ErrCodeNotFound))
}

func TestEventScannerGetInTx(t *testing.T) {
	reg := testRegistry(t)
	ev := reg.MasterAccountController().MustEvent(registry.EventInstructionExecuted)

	other := instructionExecutedLog(t, ev, 500, 1)
	other.TxHash = ethcommon.HexToHash("0x01")
	own := instructionExecutedLog(t, ev, 500, 2)
	own.TxHash = ethcommon.HexToHash("0x02")

	chain := newFakeChain(1_000)
	chain.logs = []types.Log{other, own}
	scanner := NewEventScanner(chain, 30, nil, zerolog.Nop())

	l, err := scanner.GetInTx(context.Background(), ev, 500, own.TxHash)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), l.BlockNumber)
	assert.Equal(t, own.TxHash, l.TxHash)

	q := chain.Queries()[0]
	assert.Equal(t, uint64(500), q.FromBlock.Uint64())
	assert.Equal(t, uint64(500), q.ToBlock.Uint64())

	_, err = scanner.GetInTx(context.Background(), ev, 500, ethcommon.HexToHash("0x03"))
	require.Error(t, err)
	assert.True(t, errors.IsChainError(err, errors.ErrCodeNotFound))

	_, err = scanner.GetInTx(context.Background(), ev, 501, own.TxHash)
	require.Error(t, err)
	assert.True(t, errors.IsChainError(err, errors.ErrCodeNotFound))
}
