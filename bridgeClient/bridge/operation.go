package bridge

import (
	"context"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/smartaccounts/bridge-relay/bridgeClient/db"
	"github.com/smartaccounts/bridge-relay/bridgeClient/store"
)

// Result is the outcome of a flow.
type Result struct {
	OperationID     string
	Flow            string
	Status          Status
	Instruction     string
	LedgerTxHash    string
	ChainTxHash     string
	Block           uint64
	PersonalAccount ethcommon.Address

	// Set by Mint only.
	Reservation      *Reservation
	UnderlyingTxHash string
	MintTxHash       string
}

// operation tracks one flow run: it journals and reports every transition
// and observes the flow duration once it ends.
type operation struct {
	o       *Orchestrator
	res     *Result
	opened  bool
	started time.Time
	logger  zerolog.Logger
}

func (o *Orchestrator) newOperation(flow, memo string) *operation {
	id := uuid.New().String()
	return &operation{
		o:       o,
		res:     &Result{OperationID: id, Flow: flow, Instruction: memo},
		started: time.Now(),
		logger:  o.logger.With().Str("operation_id", id).Str("flow", flow).Logger(),
	}
}

// open journals the operation once its first ledger payment is validated.
func (op *operation) open(ctx context.Context, status Status, ledgerTxHash, msg string) {
	op.res.Status = status
	op.res.LedgerTxHash = ledgerTxHash
	op.opened = true

	if op.o.journal != nil {
		err := op.o.journal.CreateOperation(ctx, &store.Operation{
			OperationID:  op.res.OperationID,
			Flow:         op.res.Flow,
			Status:       string(status),
			Instruction:  op.res.Instruction,
			LedgerTxHash: ledgerTxHash,
		})
		if err != nil {
			op.logger.Warn().Err(err).Msg("failed to journal operation")
		}
	}
	op.o.reporter.Report(Step{
		OperationID:  op.res.OperationID,
		Flow:         op.res.Flow,
		Status:       status,
		LedgerTxHash: ledgerTxHash,
		Links:        op.o.ledgerLink(ledgerTxHash),
		Message:      msg,
	})
}

// advance moves the operation to step.Status and finishes it when that status
// is terminal for the flow.
func (op *operation) advance(ctx context.Context, step Step, u db.Update) {
	step.OperationID = op.res.OperationID
	step.Flow = op.res.Flow
	op.res.Status = step.Status

	if op.o.journal != nil && op.opened {
		if err := op.o.journal.RecordTransition(ctx, op.res.OperationID, string(step.Status), u); err != nil {
			op.logger.Warn().Err(err).Str("status", step.Status.String()).Msg("failed to journal transition")
		}
	}
	op.o.reporter.Report(step)
	if step.Status.Terminal(op.res.Flow) {
		op.finish()
	}
}

// fail ends the operation with err. Operations that never reached the ledger
// are not journaled.
func (op *operation) fail(ctx context.Context, err error) (*Result, error) {
	// The caller's context may be the reason for failing.
	ctx = context.WithoutCancel(ctx)
	op.advance(ctx, Step{Status: StatusFailed, Message: err.Error()}, db.Update{Error: err.Error()})
	return op.res, err
}

func (op *operation) finish() {
	took := time.Since(op.started)
	op.o.metrics.ObserveFlow(op.res.Flow, op.res.Status.String(), took)
	op.logger.Info().Str("status", op.res.Status.String()).Dur("took", took).Msg("flow finished")
}
