// Package bridge sequences ledger payments and chain confirmations into the
// relay's named flows. Every flow is strictly sequential: a step starts only
// after the previous one returned, and a window that passes without the
// awaited event ends the flow as TimedOut instead of being retried.
package bridge

import (
	"context"
	"fmt"
	"math/big"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"github.com/smartaccounts/bridge-relay/bridgeClient/chains/evm"
	"github.com/smartaccounts/bridge-relay/bridgeClient/chains/xrpl"
	"github.com/smartaccounts/bridge-relay/bridgeClient/config"
	"github.com/smartaccounts/bridge-relay/bridgeClient/db"
	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
	"github.com/smartaccounts/bridge-relay/bridgeClient/metrics"
	"github.com/smartaccounts/bridge-relay/bridgeClient/registry"
	"github.com/smartaccounts/bridge-relay/bridgeClient/store"
)

const (
	DefaultLookbackSeconds = 90
	DefaultWindowBlocks    = 360
)

// Ledger sends payments on the payment ledger.
type Ledger interface {
	Address() string
	Send(ctx context.Context, req xrpl.PaymentRequest) (*xrpl.Tx, error)
	GetTx(ctx context.Context, hash string) (*xrpl.Tx, error)
}

// Controller is the read side of the master account controller.
type Controller interface {
	PrimaryProviderWallet(ctx context.Context) (string, error)
	InstructionFee(ctx context.Context, id uint64) (*big.Int, error)
	Vault(ctx context.Context, id uint64) (evm.VaultInfo, error)
	AgentVaultID(ctx context.Context, agent ethcommon.Address) (uint64, error)
	EncodeCustomInstruction(ctx context.Context, calls []evm.CustomCall) ([32]byte, error)
}

// Registrar registers custom call batches on the chain.
type Registrar interface {
	Register(ctx context.Context, calls []evm.CustomCall) (ethcommon.Hash, error)
}

type Locator interface {
	Locate(ctx context.Context, target uint64) (uint64, error)
}

type Scanner interface {
	GetInTx(ctx context.Context, event *registry.Event, block uint64, txHash ethcommon.Hash) (types.Log, error)
}

type Confirmer interface {
	WaitFor(ctx context.Context, event *registry.Event, r evm.BlockRange, predicate evm.Predicate, opts ...evm.WaitOption) (*registry.EventData, error)
}

// Journal persists operations and their transitions.
type Journal interface {
	CreateOperation(ctx context.Context, op *store.Operation) error
	RecordTransition(ctx context.Context, operationID, status string, u db.Update) error
}

// Settings tune the confirmation windows.
type Settings struct {
	LookbackSeconds uint64
	WindowBlocks    uint64
	PollInterval    time.Duration
	// NoWait stops generic flows after the payment is validated.
	NoWait bool
}

// Deps is everything an Orchestrator talks to. Registrar, Journal, Reporter
// and Metrics are optional.
type Deps struct {
	Ledger     Ledger
	Controller Controller
	Registrar  Registrar
	Registry   *registry.Registry
	Locator    Locator
	Scanner    Scanner
	Confirmer  Confirmer
	Journal    Journal
	Reporter   Reporter
	Metrics    *metrics.Metrics
	Explorers  config.ExplorerConfig
	Settings   Settings
	Logger     zerolog.Logger
}

// Orchestrator runs bridge flows.
type Orchestrator struct {
	ledger     Ledger
	controller Controller
	registrar  Registrar
	locator    Locator
	scanner    Scanner
	confirmer  Confirmer
	journal    Journal
	reporter   Reporter
	metrics    *metrics.Metrics
	explorers  config.ExplorerConfig
	settings   Settings
	logger     zerolog.Logger

	instructionExecuted *registry.Event
	collateralReserved  *registry.Event
	mintingExecuted     *registry.Event
}

func New(d Deps) (*Orchestrator, error) {
	switch {
	case d.Ledger == nil:
		return nil, errors.NewConfigError("bridge: ledger is required")
	case d.Controller == nil:
		return nil, errors.NewConfigError("bridge: controller is required")
	case d.Registry == nil:
		return nil, errors.NewConfigError("bridge: registry is required")
	case d.Locator == nil:
		return nil, errors.NewConfigError("bridge: block locator is required")
	case d.Scanner == nil:
		return nil, errors.NewConfigError("bridge: event scanner is required")
	case d.Confirmer == nil:
		return nil, errors.NewConfigError("bridge: event confirmer is required")
	}

	mac, am := d.Registry.MasterAccountController(), d.Registry.AssetManager()
	if mac == nil || am == nil {
		return nil, errors.NewConfigError("bridge: registry lacks the controller or asset manager")
	}
	executed, err := mac.Event(registry.EventInstructionExecuted)
	if err != nil {
		return nil, err
	}
	reserved, err := am.Event(registry.EventCollateralReserved)
	if err != nil {
		return nil, err
	}
	minted, err := am.Event(registry.EventMintingExecuted)
	if err != nil {
		return nil, err
	}

	s := d.Settings
	if s.LookbackSeconds == 0 {
		s.LookbackSeconds = DefaultLookbackSeconds
	}
	if s.WindowBlocks == 0 {
		s.WindowBlocks = DefaultWindowBlocks
	}

	reporter := d.Reporter
	if reporter == nil {
		reporter = ReporterFunc(func(Step) {})
	}

	return &Orchestrator{
		ledger:              d.Ledger,
		controller:          d.Controller,
		registrar:           d.Registrar,
		locator:             d.Locator,
		scanner:             d.Scanner,
		confirmer:           d.Confirmer,
		journal:             d.Journal,
		reporter:            reporter,
		metrics:             d.Metrics,
		explorers:           d.Explorers,
		settings:            s,
		logger:              d.Logger.With().Str("component", "bridge").Logger(),
		instructionExecuted: executed,
		collateralReserved:  reserved,
		mintingExecuted:     minted,
	}, nil
}

// submit pays the instruction fee for kindID to the primary provider wallet
// with memo attached and returns the validated ledger transaction.
func (o *Orchestrator) submit(ctx context.Context, kindID uint64, memo string) (*xrpl.Tx, error) {
	fee, err := o.controller.InstructionFee(ctx, kindID)
	if err != nil {
		return nil, err
	}
	destination, err := o.controller.PrimaryProviderWallet(ctx)
	if err != nil {
		return nil, err
	}
	m, err := xrpl.MemoFromHex(memo)
	if err != nil {
		return nil, err
	}

	o.logger.Info().
		Str("destination", destination).
		Str("fee", xrpl.FormatDrops(fee)).
		Str("memo", memo).
		Msg("sending bridge request")

	return o.ledger.Send(ctx, xrpl.PaymentRequest{
		Destination: destination,
		Drops:       fee,
		Memos:       []xrpl.Memo{m},
	})
}

// windowFor locates the chain block matching the ledger close time of tx,
// moved back by the lookback, and returns the confirmation window from it.
func (o *Orchestrator) windowFor(ctx context.Context, tx *xrpl.Tx) (evm.BlockRange, error) {
	if !tx.Validated || tx.Date == 0 {
		return evm.BlockRange{}, errors.NewTransactionError("xrpl", fmt.Sprintf("transaction %s is not validated", tx.Hash), nil)
	}
	target := xrpl.RippleTimeToUnix(tx.Date)
	if target > o.settings.LookbackSeconds {
		target -= o.settings.LookbackSeconds
	}
	block, err := o.locator.Locate(ctx, target)
	if err != nil {
		return evm.BlockRange{}, err
	}
	return evm.Window(block, o.settings.WindowBlocks), nil
}

// awaitInstruction waits for InstructionExecuted carrying the ledger hash of tx.
func (o *Orchestrator) awaitInstruction(ctx context.Context, window evm.BlockRange, tx *xrpl.Tx) (*registry.EventData, error) {
	txID := ethcommon.HexToHash(tx.Hash)
	return o.confirmer.WaitFor(ctx, o.instructionExecuted, window,
		func(d *registry.EventData) bool {
			id, err := d.Bytes32("transactionId")
			return err == nil && id == txID
		},
		evm.WithPollInterval(o.settings.PollInterval),
		evm.WithMessage("waiting to bridge"),
	)
}

func (o *Orchestrator) ledgerLink(hash string) []string {
	if l := o.explorers.LedgerTxLink(hash); l != "" {
		return []string{l}
	}
	return nil
}

func (o *Orchestrator) chainLink(hash string) []string {
	if l := o.explorers.ChainTxLink(hash); l != "" {
		return []string{l}
	}
	return nil
}
