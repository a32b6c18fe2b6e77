package xrpl

import (
	"context"

	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
)

// Signer produces signed blobs for the sending account.
type Signer interface {
	Address() string
	Sign(ctx context.Context, payment *Payment) (*SignedTx, error)
}

// RPCSigner delegates signing to the node's sign method, sending the secret
// over the wire. Public servers refuse it; use it only against a node you run.
type RPCSigner struct {
	client  *Client
	address string
	secret  string
}

var _ Signer = (*RPCSigner)(nil)

func NewRPCSigner(client *Client, address, secret string) (*RPCSigner, error) {
	if err := ValidateAddress(address); err != nil {
		return nil, err
	}
	if secret == "" {
		return nil, errors.NewConfigError("ledger secret is not configured")
	}
	return &RPCSigner{client: client, address: address, secret: secret}, nil
}

func (s *RPCSigner) Address() string {
	return s.address
}

// Sign signs a fully populated transaction; the node does not autofill.
func (s *RPCSigner) Sign(ctx context.Context, payment *Payment) (*SignedTx, error) {
	var res signResult
	err := s.client.call(ctx, "sign", map[string]interface{}{
		"tx_json": payment,
		"secret":  s.secret,
		"offline": true,
	}, &res)
	if err != nil {
		return nil, err
	}
	if res.TxBlob == "" {
		return nil, errors.NewRPCError(ledgerName, "sign returned no blob", nil)
	}
	return &SignedTx{
		Blob:               res.TxBlob,
		Hash:               res.TxJSON.Hash,
		LastLedgerSequence: res.TxJSON.LastLedgerSequence,
	}, nil
}
