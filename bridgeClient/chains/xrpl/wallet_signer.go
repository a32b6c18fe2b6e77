package xrpl

import (
	"context"
	"fmt"

	"github.com/Peersyst/xrpl-go/xrpl/wallet"

	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
)

// WalletSigner signs with a key derived from the account seed. Nothing
// secret leaves the process.
type WalletSigner struct {
	wallet  wallet.Wallet
	address string
}

var _ Signer = (*WalletSigner)(nil)

// NewWalletSigner derives the signing key from seed. When address is set it
// must be the account the seed controls.
func NewWalletSigner(seed, address string) (*WalletSigner, error) {
	if seed == "" {
		return nil, errors.NewConfigError("ledger secret is not configured")
	}
	if address != "" {
		if err := ValidateAddress(address); err != nil {
			return nil, err
		}
	}
	w, err := wallet.FromSeed(seed, "")
	if err != nil {
		return nil, errors.WrapChainError(err, errors.ErrCodeConfig, ledgerName, "invalid ledger secret")
	}
	derived := string(w.ClassicAddress)
	if address != "" && address != derived {
		return nil, errors.NewConfigError(fmt.Sprintf("ledger secret controls %s, not %s", derived, address))
	}
	return &WalletSigner{wallet: w, address: derived}, nil
}

func (s *WalletSigner) Address() string {
	return s.address
}

func (s *WalletSigner) Sign(_ context.Context, payment *Payment) (*SignedTx, error) {
	if payment.Account != s.address {
		return nil, errors.NewFormatErrorf("payment account %s is not the signing account %s", payment.Account, s.address)
	}
	blob, hash, err := s.wallet.Sign(payment.Flatten())
	if err != nil {
		return nil, errors.NewInternalError(ledgerName, "failed to sign payment", err)
	}
	return &SignedTx{
		Blob:               blob,
		Hash:               hash,
		LastLedgerSequence: payment.LastLedgerSequence,
	}, nil
}
