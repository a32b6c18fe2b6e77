package bridge

import (
	"context"
	"fmt"
	"math"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/smartaccounts/bridge-relay/bridgeClient/chains/evm"
	"github.com/smartaccounts/bridge-relay/bridgeClient/chains/xrpl"
	"github.com/smartaccounts/bridge-relay/bridgeClient/db"
	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
	"github.com/smartaccounts/bridge-relay/bridgeClient/instruction"
	"github.com/smartaccounts/bridge-relay/bridgeClient/registry"
)

// MintParams selects the agent either by vault address, looked up in the
// controller's agent vault table, or directly by id.
type MintParams struct {
	Wallet       uint64
	Lots         *big.Int
	AgentVault   ethcommon.Address
	AgentVaultID *uint64
}

// Reservation is the collateral reservation announced by the asset manager.
type Reservation struct {
	CollateralReservationID *big.Int
	AgentVault              ethcommon.Address
	ValueUBA                *big.Int
	FeeUBA                  *big.Int
	LastUnderlyingBlock     *big.Int
	PaymentAddress          string
	PaymentReference        [32]byte
}

// Amount is what the underlying payment must carry.
func (r *Reservation) Amount() *big.Int {
	return new(big.Int).Add(r.ValueUBA, r.FeeUBA)
}

// ReservationFromEvent reads a decoded CollateralReserved event.
func ReservationFromEvent(d *registry.EventData) (*Reservation, error) {
	var (
		r   Reservation
		err error
	)
	if r.CollateralReservationID, err = d.BigInt("collateralReservationId"); err != nil {
		return nil, err
	}
	if r.AgentVault, err = d.Address("agentVault"); err != nil {
		return nil, err
	}
	if r.ValueUBA, err = d.BigInt("valueUBA"); err != nil {
		return nil, err
	}
	if r.FeeUBA, err = d.BigInt("feeUBA"); err != nil {
		return nil, err
	}
	if r.LastUnderlyingBlock, err = d.BigInt("lastUnderlyingBlock"); err != nil {
		return nil, err
	}
	if r.PaymentAddress, err = d.String("paymentAddress"); err != nil {
		return nil, err
	}
	if r.PaymentReference, err = d.Bytes32("paymentReference"); err != nil {
		return nil, err
	}
	return &r, nil
}

// Mint reserves collateral through the bridge, pays the reservation on the
// ledger and waits for the asset manager to execute the minting.
func (o *Orchestrator) Mint(ctx context.Context, p MintParams) (*Result, error) {
	agentVaultID, err := o.agentVaultID(ctx, p)
	if err != nil {
		return nil, err
	}
	ins, err := instruction.NewReserveCollateral(p.Wallet, p.Lots, agentVaultID)
	if err != nil {
		return nil, err
	}

	memo := instruction.Hex(ins)
	op := o.newOperation(FlowMint, memo)
	op.logger.Info().Uint64("agent_vault_id", agentVaultID).Str("lots", p.Lots.String()).Msg("starting mint")

	tx, err := o.submit(ctx, ins.Kind().ID(), memo)
	if err != nil {
		return op.fail(ctx, err)
	}
	op.open(ctx, StatusReservationRequested, tx.Hash, "sent collateral reservation request")

	window, err := o.windowFor(ctx, tx)
	if err != nil {
		return op.fail(ctx, err)
	}
	executed, err := o.awaitInstruction(ctx, window, tx)
	if err != nil {
		return op.fail(ctx, err)
	}
	if executed == nil {
		return o.timedOut(ctx, op, "failed to bridge"), nil
	}
	o.bridged(ctx, op, executed)

	reservation, err := o.reservation(ctx, executed)
	if err != nil {
		return op.fail(ctx, err)
	}
	op.res.Reservation = reservation
	op.advance(ctx, Step{
		Status: StatusReservationObserved,
		Block:  executed.BlockNumber,
		Message: fmt.Sprintf("collateral reservation %s: pay %s to %s",
			reservation.CollateralReservationID, xrpl.FormatDrops(reservation.Amount()), reservation.PaymentAddress),
	}, db.Update{Detail: map[string]string{
		"collateral_reservation_id": reservation.CollateralReservationID.String(),
		"payment_address":           reservation.PaymentAddress,
		"amount":                    reservation.Amount().String(),
		"last_underlying_block":     reservation.LastUnderlyingBlock.String(),
	}})

	if !reservation.LastUnderlyingBlock.IsUint64() || reservation.LastUnderlyingBlock.Uint64() > math.MaxUint32 {
		return op.fail(ctx, errors.NewRangeError("lastUnderlyingBlock", "does not fit a ledger sequence"))
	}
	utx, err := o.ledger.Send(ctx, xrpl.PaymentRequest{
		Destination:        reservation.PaymentAddress,
		Drops:              reservation.Amount(),
		Memos:              []xrpl.Memo{xrpl.NewMemo(reservation.PaymentReference[:])},
		LastLedgerSequence: uint32(reservation.LastUnderlyingBlock.Uint64()),
	})
	if err != nil {
		return op.fail(ctx, err)
	}
	op.res.UnderlyingTxHash = utx.Hash
	op.advance(ctx, Step{
		Status:       StatusUnderlyingSent,
		LedgerTxHash: utx.Hash,
		Links:        o.ledgerLink(utx.Hash),
		Message:      "sent underlying payment",
	}, db.Update{Detail: map[string]string{"underlying_tx": utx.Hash}})

	mintWindow, err := o.windowFor(ctx, utx)
	if err != nil {
		return op.fail(ctx, err)
	}
	op.advance(ctx, Step{
		Status:  StatusMintAwaiting,
		Block:   mintWindow.Start,
		Message: fmt.Sprintf("waiting for mint execution in blocks %s", mintWindow),
	}, db.Update{Detail: map[string]string{"window": mintWindow.String()}})

	reservationID := reservation.CollateralReservationID
	minted, err := o.confirmer.WaitFor(ctx, o.mintingExecuted, mintWindow,
		func(d *registry.EventData) bool {
			id, err := d.BigInt("collateralReservationId")
			return err == nil && id.Cmp(reservationID) == 0
		},
		evm.WithPollInterval(o.settings.PollInterval),
		evm.WithMessage("waiting for mint execution"),
	)
	if err != nil {
		return op.fail(ctx, err)
	}
	if minted == nil {
		return o.timedOut(ctx, op, "failed to mint"), nil
	}

	op.res.MintTxHash = minted.TxHash.Hex()
	op.advance(ctx, Step{
		Status:      StatusMinted,
		ChainTxHash: op.res.MintTxHash,
		Block:       minted.BlockNumber,
		Links:       o.chainLink(op.res.MintTxHash),
		Message:     "minted",
	}, db.Update{Detail: map[string]string{"mint_tx": op.res.MintTxHash}})
	return op.res, nil
}

func (o *Orchestrator) agentVaultID(ctx context.Context, p MintParams) (uint64, error) {
	if p.AgentVaultID != nil {
		return *p.AgentVaultID, nil
	}
	if p.AgentVault == (ethcommon.Address{}) {
		return 0, errors.NewRangeError("agentVault", "an agent vault address or id is required")
	}
	return o.controller.AgentVaultID(ctx, p.AgentVault)
}

// reservation reads the CollateralReserved event emitted by the transaction
// that executed the instruction.
func (o *Orchestrator) reservation(ctx context.Context, executed *registry.EventData) (*Reservation, error) {
	log, err := o.scanner.GetInTx(ctx, o.collateralReserved, executed.BlockNumber, executed.TxHash)
	if err != nil {
		return nil, err
	}
	data, err := o.collateralReserved.Decode(log)
	if err != nil {
		return nil, err
	}
	return ReservationFromEvent(data)
}
