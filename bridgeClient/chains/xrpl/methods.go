package xrpl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
)

// DropsPerXRP is the number of drops in one native unit.
var DropsPerXRP = decimal.NewFromInt(1_000_000)

// LatestValidatedSequence returns the index of the latest validated ledger.
func (c *Client) LatestValidatedSequence(ctx context.Context) (uint32, error) {
	var res ledgerResult
	if err := c.call(ctx, "ledger", map[string]interface{}{"ledger_index": "validated"}, &res); err != nil {
		return 0, err
	}
	return res.LedgerIndex, nil
}

func (c *Client) AccountInfo(ctx context.Context, address string) (*AccountData, error) {
	if err := ValidateAddress(address); err != nil {
		return nil, err
	}
	var res accountInfoResult
	err := c.call(ctx, "account_info", map[string]interface{}{
		"account":      address,
		"ledger_index": "current",
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res.AccountData, nil
}

// NextAccountSequence is the sequence the next transaction from address must use.
func (c *Client) NextAccountSequence(ctx context.Context, address string) (uint32, error) {
	info, err := c.AccountInfo(ctx, address)
	if err != nil {
		return 0, err
	}
	return info.Sequence, nil
}

// AccountBalance returns the native balance in XRP.
func (c *Client) AccountBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	info, err := c.AccountInfo(ctx, address)
	if err != nil {
		return decimal.Zero, err
	}
	drops, err := decimal.NewFromString(info.Balance)
	if err != nil {
		return decimal.Zero, errors.NewFormatErrorf("account balance %q is not a drop amount", info.Balance)
	}
	return drops.Div(DropsPerXRP), nil
}

// GetTx fetches a transaction by hash. A hash unknown to the node is a
// not-found error.
func (c *Client) GetTx(ctx context.Context, hash string) (*Tx, error) {
	hash = strings.ToUpper(strings.TrimPrefix(hash, "0x"))
	var tx Tx
	err := c.call(ctx, "tx", map[string]interface{}{
		"transaction": hash,
		"binary":      false,
		"api_version": 1,
	}, &tx)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// Submit sends a signed blob. The returned preliminary result is not final.
func (c *Client) Submit(ctx context.Context, signed *SignedTx) (*SubmitResult, error) {
	var res SubmitResult
	if err := c.call(ctx, "submit", map[string]interface{}{"tx_blob": signed.Blob}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SubmitAndWait submits signed and polls until the transaction is in a
// validated ledger or the ledger passes its LastLedgerSequence. A validated
// transaction that did not succeed is a transaction error.
func (c *Client) SubmitAndWait(ctx context.Context, signed *SignedTx) (*Tx, error) {
	res, err := c.Submit(ctx, signed)
	if err != nil {
		return nil, err
	}

	log := c.logger.With().Str("tx_hash", signed.Hash).Logger()
	prelim := res.EngineResult
	if strings.HasPrefix(prelim, "tem") || strings.HasPrefix(prelim, "tef") {
		return nil, errors.NewTransactionError(ledgerName,
			fmt.Sprintf("transaction rejected: %s %s", prelim, res.EngineResultMessage), nil).
			WithContext("tx_hash", signed.Hash)
	}
	log.Info().Str("engine_result", prelim).Uint32("last_ledger_sequence", signed.LastLedgerSequence).Msg("transaction submitted")

	hash := signed.Hash
	if hash == "" {
		hash = res.TxJSON.Hash
	}

	for {
		tx, err := c.GetTx(ctx, hash)
		switch {
		case err == nil && tx.Validated:
			if tx.Result() != "tesSUCCESS" {
				return tx, errors.NewTransactionError(ledgerName,
					fmt.Sprintf("transaction failed: %s", tx.Result()), nil).
					WithContext("tx_hash", hash).
					WithContext("preliminary_result", prelim)
			}
			log.Info().Uint32("ledger_index", tx.LedgerIndex).Msg("transaction validated")
			return tx, nil
		case err != nil && !errors.IsChainError(err, errors.ErrCodeNotFound):
			return nil, err
		}

		if signed.LastLedgerSequence > 0 {
			latest, err := c.LatestValidatedSequence(ctx)
			if err != nil {
				return nil, err
			}
			if latest > signed.LastLedgerSequence {
				return nil, errors.NewTransactionError(ledgerName,
					fmt.Sprintf("validated ledger %d passed LastLedgerSequence %d", latest, signed.LastLedgerSequence), nil).
					WithContext("tx_hash", hash).
					WithContext("preliminary_result", prelim)
			}
		}

		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
