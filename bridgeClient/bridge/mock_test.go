package bridge

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/smartaccounts/bridge-relay/bridgeClient/chains/evm"
	"github.com/smartaccounts/bridge-relay/bridgeClient/chains/xrpl"
	"github.com/smartaccounts/bridge-relay/bridgeClient/config"
	"github.com/smartaccounts/bridge-relay/bridgeClient/db"
	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
	"github.com/smartaccounts/bridge-relay/bridgeClient/registry"
	"github.com/smartaccounts/bridge-relay/bridgeClient/registry/registrytest"
)

var (
	testControllerAddress   = ethcommon.HexToAddress("0x434936d47503353f06750Db1A444DBDC5F0AD37c")
	testAssetManagerAddress = ethcommon.HexToAddress("0xc1Ca88b937d0b528842F95d5731ffB586f4fbDFA")
	testPersonalAccount     = ethcommon.HexToAddress("0x00000000000000000000000000000000000a11ce")

	testSender   = "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"
	testProvider = "rPT1Sjq2YGrBMTttX4GZHjKu9dyfzbpAYe"
)

// mockController is a testify mock of the controller's read side.
type mockController struct {
	mock.Mock
}

func (m *mockController) PrimaryProviderWallet(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockController) InstructionFee(ctx context.Context, id uint64) (*big.Int, error) {
	args := m.Called(ctx, id)
	fee, _ := args.Get(0).(*big.Int)
	return fee, args.Error(1)
}

func (m *mockController) Vault(ctx context.Context, id uint64) (evm.VaultInfo, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(evm.VaultInfo), args.Error(1)
}

func (m *mockController) AgentVaultID(ctx context.Context, agent ethcommon.Address) (uint64, error) {
	args := m.Called(ctx, agent)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockController) EncodeCustomInstruction(ctx context.Context, calls []evm.CustomCall) ([32]byte, error) {
	args := m.Called(ctx, calls)
	return args.Get(0).([32]byte), args.Error(1)
}

type mockRegistrar struct {
	mock.Mock
}

func (m *mockRegistrar) Register(ctx context.Context, calls []evm.CustomCall) (ethcommon.Hash, error) {
	args := m.Called(ctx, calls)
	return args.Get(0).(ethcommon.Hash), args.Error(1)
}

// fakeLedger validates every payment immediately and hands out the queued
// transactions in order.
type fakeLedger struct {
	mu       sync.Mutex
	payments []xrpl.PaymentRequest
	queue    []*xrpl.Tx
	sendErr  error
	known    map[string]*xrpl.Tx
}

func (l *fakeLedger) Address() string { return testSender }

func (l *fakeLedger) Send(_ context.Context, req xrpl.PaymentRequest) (*xrpl.Tx, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sendErr != nil {
		return nil, l.sendErr
	}
	l.payments = append(l.payments, req)
	if len(l.queue) == 0 {
		return nil, fmt.Errorf("no transaction queued for payment %d", len(l.payments))
	}
	tx := l.queue[0]
	l.queue = l.queue[1:]
	tx.Destination = req.Destination
	tx.Memos = req.Memos
	return tx, nil
}

func (l *fakeLedger) GetTx(_ context.Context, hash string) (*xrpl.Tx, error) {
	tx, ok := l.known[hash]
	if !ok {
		return nil, errors.NewNotFoundError("xrpl", "txnNotFound")
	}
	return tx, nil
}

// fakeLocator returns the queued blocks in order and records the targets.
type fakeLocator struct {
	blocks  []uint64
	targets []uint64
}

func (l *fakeLocator) Locate(_ context.Context, target uint64) (uint64, error) {
	l.targets = append(l.targets, target)
	if len(l.blocks) == 0 {
		return 0, errors.NewNotFoundError("evm", "no block queued")
	}
	b := l.blocks[0]
	if len(l.blocks) > 1 {
		l.blocks = l.blocks[1:]
	}
	return b, nil
}

type fakeScanner struct {
	logs []types.Log
}

func (s *fakeScanner) GetInTx(_ context.Context, event *registry.Event, block uint64, txHash ethcommon.Hash) (types.Log, error) {
	for _, l := range s.logs {
		if l.BlockNumber == block && l.TxHash == txHash && len(l.Topics) > 0 && l.Topics[0] == event.Signature() {
			return l, nil
		}
	}
	return types.Log{}, errors.NewNotFoundError("evm", fmt.Sprintf("no %s log in block %d", event.Name, block))
}

// fakeConfirmer decodes its candidate logs and applies the predicate the way
// the real confirmer does, over a single pass.
type fakeConfirmer struct {
	logs    []types.Log
	err     error
	windows map[string]evm.BlockRange
}

func (c *fakeConfirmer) WaitFor(_ context.Context, event *registry.Event, r evm.BlockRange, predicate evm.Predicate, _ ...evm.WaitOption) (*registry.EventData, error) {
	if c.windows == nil {
		c.windows = make(map[string]evm.BlockRange)
	}
	c.windows[event.Name] = r
	if c.err != nil {
		return nil, c.err
	}
	for _, l := range c.logs {
		if l.BlockNumber < r.Start || l.BlockNumber >= r.End {
			continue
		}
		d, err := event.Decode(l)
		if err != nil {
			continue
		}
		if predicate(d) {
			return d, nil
		}
	}
	return nil, nil
}

type recordingReporter struct {
	steps []Step
}

func (r *recordingReporter) Report(s Step) { r.steps = append(r.steps, s) }

func (r *recordingReporter) statuses() []Status {
	out := make([]Status, 0, len(r.steps))
	for _, s := range r.steps {
		out = append(out, s.Status)
	}
	return out
}

type harness struct {
	orch       *Orchestrator
	reg        *registry.Registry
	controller *mockController
	registrar  *mockRegistrar
	ledger     *fakeLedger
	locator    *fakeLocator
	scanner    *fakeScanner
	confirmer  *fakeConfirmer
	journal    *db.Journal
	reporter   *recordingReporter
}

func newHarness(t *testing.T, settings Settings) *harness {
	t.Helper()
	reg, err := registry.New(config.Deployment{
		MasterAccountController: testControllerAddress,
		AssetManager:            testAssetManagerAddress,
	})
	require.NoError(t, err)

	database, err := db.OpenInMemoryDB(true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	h := &harness{
		reg:        reg,
		controller: &mockController{},
		registrar:  &mockRegistrar{},
		ledger:     &fakeLedger{known: map[string]*xrpl.Tx{}},
		locator:    &fakeLocator{blocks: []uint64{1000}},
		scanner:    &fakeScanner{},
		confirmer:  &fakeConfirmer{},
		journal:    db.NewJournal(database, zerolog.Nop()),
		reporter:   &recordingReporter{},
	}
	h.orch, err = New(Deps{
		Ledger:     h.ledger,
		Controller: h.controller,
		Registrar:  h.registrar,
		Registry:   reg,
		Locator:    h.locator,
		Scanner:    h.scanner,
		Confirmer:  h.confirmer,
		Journal:    h.journal,
		Reporter:   h.reporter,
		Explorers: config.ExplorerConfig{
			LedgerTxURL: "https://ledger.example/tx/%s",
			ChainTxURL:  "https://chain.example/tx/%s",
		},
		Settings: settings,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	return h
}

// expectFee sets up the fee and provider lookups of one bridge request.
func (h *harness) expectFee(kindID uint64, fee int64) {
	h.controller.On("InstructionFee", mock.Anything, kindID).Return(big.NewInt(fee), nil).Once()
	h.controller.On("PrimaryProviderWallet", mock.Anything).Return(testProvider, nil).Once()
}

func (h *harness) executedLog(t *testing.T, block uint64, ledgerHash string, instructionID int64) types.Log {
	t.Helper()
	ev := h.reg.MasterAccountController().MustEvent(registry.EventInstructionExecuted)
	l, err := registrytest.Log(ev, block, map[string]interface{}{
		"personalAccount":  testPersonalAccount,
		"transactionId":    [32]byte(ethcommon.HexToHash(ledgerHash)),
		"paymentReference": [32]byte{},
		"xrplOwner":        testSender,
		"instructionId":    big.NewInt(instructionID),
	})
	require.NoError(t, err)
	return l
}

// validatedTx is a validated ledger transaction closed at rippleDate.
func validatedTx(hash string, rippleDate uint32) *xrpl.Tx {
	return &xrpl.Tx{
		Hash:            hash,
		TransactionType: "Payment",
		Account:         testSender,
		Date:            rippleDate,
		Validated:       true,
		Meta:            &xrpl.TxMeta{TransactionResult: "tesSUCCESS"},
	}
}

func rippleDate(unix int64) uint32 {
	return xrpl.UnixToRippleTime(time.Unix(unix, 0))
}
