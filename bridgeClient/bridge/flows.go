package bridge

import (
	"context"
	"fmt"
	"math/big"

	"github.com/smartaccounts/bridge-relay/bridgeClient/chains/evm"
	"github.com/smartaccounts/bridge-relay/bridgeClient/chains/xrpl"
	"github.com/smartaccounts/bridge-relay/bridgeClient/db"
	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
	"github.com/smartaccounts/bridge-relay/bridgeClient/instruction"
	"github.com/smartaccounts/bridge-relay/bridgeClient/registry"
)

type DepositParams struct {
	Wallet  uint64
	VaultID uint64
	Assets  *big.Int
}

type WithdrawParams struct {
	Wallet  uint64
	VaultID uint64
	Shares  *big.Int
}

type RedeemParams struct {
	Wallet uint64
	Lots   *big.Int
}

// ClaimWithdrawParams claims a queued withdrawal. Firelight vaults use
// Period, Upshift vaults use Date.
type ClaimWithdrawParams struct {
	Wallet  uint64
	VaultID uint64
	Period  *big.Int
	Date    instruction.Date
}

type CustomParams struct {
	Wallet uint64
	Calls  []evm.CustomCall
}

// Deposit moves assets into a vault.
func (o *Orchestrator) Deposit(ctx context.Context, p DepositParams) (*Result, error) {
	kind, err := o.vaultType(ctx, p.VaultID)
	if err != nil {
		return nil, err
	}
	var ins instruction.Instruction
	switch kind {
	case evm.VaultTypeFirelight:
		ins, err = asInstruction(instruction.NewFirelightDeposit(p.Wallet, p.Assets, p.VaultID))
	default:
		ins, err = asInstruction(instruction.NewUpshiftDeposit(p.Wallet, p.Assets, p.VaultID))
	}
	if err != nil {
		return nil, err
	}
	return o.run(ctx, FlowDeposit, ins)
}

// Withdraw redeems vault shares. On Upshift vaults this only requests the
// redemption, which is claimed later with ClaimWithdraw.
func (o *Orchestrator) Withdraw(ctx context.Context, p WithdrawParams) (*Result, error) {
	kind, err := o.vaultType(ctx, p.VaultID)
	if err != nil {
		return nil, err
	}
	var ins instruction.Instruction
	switch kind {
	case evm.VaultTypeFirelight:
		ins, err = asInstruction(instruction.NewFirelightRedeem(p.Wallet, p.Shares, p.VaultID))
	default:
		ins, err = asInstruction(instruction.NewUpshiftRequestRedeem(p.Wallet, p.Shares, p.VaultID))
	}
	if err != nil {
		return nil, err
	}
	return o.run(ctx, FlowWithdraw, ins)
}

func (o *Orchestrator) ClaimWithdraw(ctx context.Context, p ClaimWithdrawParams) (*Result, error) {
	kind, err := o.vaultType(ctx, p.VaultID)
	if err != nil {
		return nil, err
	}
	var ins instruction.Instruction
	switch kind {
	case evm.VaultTypeFirelight:
		if p.Period == nil {
			return nil, errors.NewRangeError("period", "is required for firelight vaults")
		}
		ins, err = asInstruction(instruction.NewFirelightClaimWithdraw(p.Wallet, p.Period, p.VaultID))
	default:
		ins, err = asInstruction(instruction.NewUpshiftClaim(p.Wallet, p.Date, p.VaultID))
	}
	if err != nil {
		return nil, err
	}
	return o.run(ctx, FlowClaimWithdraw, ins)
}

// Redeem burns lots and returns the underlying asset on the ledger.
func (o *Orchestrator) Redeem(ctx context.Context, p RedeemParams) (*Result, error) {
	ins, err := instruction.NewRedeem(p.Wallet, p.Lots)
	if err != nil {
		return nil, err
	}
	return o.run(ctx, FlowRedeem, ins)
}

// SendInstruction sends an already encoded instruction after checking that
// it decodes.
func (o *Orchestrator) SendInstruction(ctx context.Context, memoHex string) (*Result, error) {
	ins, err := instruction.DecodeHex(memoHex)
	if err != nil {
		return nil, err
	}
	return o.run(ctx, FlowInstruction, ins)
}

// Custom registers calls on the controller, unless already registered, and
// executes them through a custom instruction.
func (o *Orchestrator) Custom(ctx context.Context, p CustomParams) (*Result, error) {
	if len(p.Calls) == 0 {
		return nil, errors.NewFormatError("custom instruction needs at least one call")
	}
	encoded, err := o.controller.EncodeCustomInstruction(ctx, p.Calls)
	if err != nil {
		return nil, err
	}

	if o.registrar != nil {
		txHash, err := o.registrar.Register(ctx, p.Calls)
		switch {
		case errors.IsChainError(err, errors.ErrCodeReverted):
			o.logger.Warn().Err(err).Msg("custom instruction registration reverted, assuming it is already registered")
		case err != nil:
			return nil, err
		default:
			o.logger.Info().Str("tx_hash", txHash.Hex()).Msg("custom instruction registered")
		}
	}

	ins, err := instruction.NewCustom(p.Wallet, encoded)
	if err != nil {
		return nil, err
	}
	return o.run(ctx, FlowCustom, ins)
}

// CheckStatus re-attaches to a validated ledger transaction and waits for it
// to be bridged.
func (o *Orchestrator) CheckStatus(ctx context.Context, ledgerTxHash string) (*Result, error) {
	tx, err := o.ledger.GetTx(ctx, ledgerTxHash)
	if err != nil {
		return nil, err
	}
	memo := ""
	if data := tx.MemoData(); len(data) > 0 {
		memo = data[0]
	}
	op := o.newOperation(FlowCheckStatus, memo)
	op.open(ctx, StatusSent, tx.Hash, "checking bridge request")
	return o.bridge(ctx, op, tx)
}

// run is the generic flow: pay the fee with the instruction as memo, then
// wait for the controller to execute it.
func (o *Orchestrator) run(ctx context.Context, flow string, ins instruction.Instruction) (*Result, error) {
	memo := instruction.Hex(ins)
	op := o.newOperation(flow, memo)
	op.logger.Info().Str("instruction", ins.Kind().String()).Msg("starting flow")

	tx, err := o.submit(ctx, ins.Kind().ID(), memo)
	if err != nil {
		return op.fail(ctx, err)
	}
	op.open(ctx, StatusSent, tx.Hash, "sent bridge request")

	if o.settings.NoWait {
		op.finish()
		return op.res, nil
	}
	return o.bridge(ctx, op, tx)
}

// bridge runs AwaitingBridge and ends the operation as Bridged or TimedOut.
func (o *Orchestrator) bridge(ctx context.Context, op *operation, tx *xrpl.Tx) (*Result, error) {
	window, err := o.windowFor(ctx, tx)
	if err != nil {
		return op.fail(ctx, err)
	}
	op.advance(ctx, Step{
		Status:       StatusAwaitingBridge,
		LedgerTxHash: tx.Hash,
		Block:        window.Start,
		Message:      fmt.Sprintf("waiting for the bridge in blocks %s", window),
	}, db.Update{Detail: map[string]string{"window": window.String()}})

	executed, err := o.awaitInstruction(ctx, window, tx)
	if err != nil {
		return op.fail(ctx, err)
	}
	if executed == nil {
		return o.timedOut(ctx, op, "failed to bridge"), nil
	}
	o.bridged(ctx, op, executed)
	return op.res, nil
}

// bridged records the InstructionExecuted event on the operation.
func (o *Orchestrator) bridged(ctx context.Context, op *operation, executed *registry.EventData) {
	op.res.ChainTxHash = executed.TxHash.Hex()
	op.res.Block = executed.BlockNumber
	u := db.Update{ChainTxHash: op.res.ChainTxHash}
	if account, err := executed.Address("personalAccount"); err == nil {
		op.res.PersonalAccount = account
		u.PersonalAccount = account.Hex()
	}
	op.advance(ctx, Step{
		Status:      StatusBridged,
		ChainTxHash: op.res.ChainTxHash,
		Block:       executed.BlockNumber,
		Links:       o.chainLink(op.res.ChainTxHash),
		Message:     "bridged",
	}, u)
}

func (o *Orchestrator) timedOut(ctx context.Context, op *operation, msg string) *Result {
	op.advance(ctx, Step{Status: StatusTimedOut, Message: msg}, db.Update{})
	return op.res
}

// vaultType resolves the kind of vault id from the controller's vault table.
func (o *Orchestrator) vaultType(ctx context.Context, id uint64) (uint8, error) {
	v, err := o.controller.Vault(ctx, id)
	if err != nil {
		return 0, err
	}
	switch v.Type {
	case evm.VaultTypeFirelight, evm.VaultTypeUpshift:
		return v.Type, nil
	default:
		return 0, errors.NewRangeError("vaultId", fmt.Sprintf("vault %d has unsupported type %d", id, v.Type))
	}
}

func asInstruction[T instruction.Instruction](i T, err error) (instruction.Instruction, error) {
	if err != nil {
		return nil, err
	}
	return i, nil
}
