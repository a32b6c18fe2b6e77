package evm

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"

	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
	"github.com/smartaccounts/bridge-relay/bridgeClient/ratelimit"
)

// Signer holds the EVM key used for the few transactions the relay sends
// itself (custom instruction registration).
type Signer struct {
	key     *ecdsa.PrivateKey
	address ethcommon.Address
	chainID *big.Int
	client  *RPCClient
	logger  zerolog.Logger
}

// NewSigner parses a hex private key, with or without 0x prefix.
func NewSigner(privateKeyHex string, client *RPCClient, logger zerolog.Logger) (*Signer, error) {
	if privateKeyHex == "" {
		return nil, errors.NewConfigError("chain private key is not configured")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, errors.WrapChainError(err, errors.ErrCodeConfig, chainName, "invalid chain private key")
	}
	address := crypto.PubkeyToAddress(key.PublicKey)
	return &Signer{
		key:     key,
		address: address,
		chainID: big.NewInt(client.ChainID()),
		client:  client,
		logger:  logger.With().Str("component", "evm_signer").Str("address", address.Hex()).Logger(),
	}, nil
}

func (s *Signer) Address() ethcommon.Address {
	return s.address
}

// TransactOpts returns fresh transaction options bound to ctx.
func (s *Signer) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return nil, errors.NewInternalError(chainName, "failed to build transactor", err)
	}
	opts.Context = ctx
	return opts, nil
}

// Transactor is the backend passed to bound contracts for sending.
func (s *Signer) Transactor() (bind.ContractTransactor, error) {
	return s.client.Primary()
}

// WaitMined blocks until tx is included. A failed receipt is a revert error.
func (s *Signer) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	backend, err := s.client.Primary()
	if err != nil {
		return nil, err
	}
	receipt, err := bind.WaitMined(ctx, backend, tx)
	if err != nil {
		return nil, sendError(err, "waiting for transaction failed").WithContext("tx_hash", tx.Hash().Hex())
	}
	if err := checkReceipt(tx, receipt); err != nil {
		return receipt, err
	}
	s.logger.Info().
		Str("tx_hash", tx.Hash().Hex()).
		Uint64("block", receipt.BlockNumber.Uint64()).
		Uint64("gas_used", receipt.GasUsed).
		Msg("transaction mined")
	return receipt, nil
}

func checkReceipt(tx *types.Transaction, receipt *types.Receipt) error {
	if receipt.Status == types.ReceiptStatusSuccessful {
		return nil
	}
	err := errors.NewRevertError(chainName, "transaction reverted", nil).WithContext("tx_hash", tx.Hash().Hex())
	if receipt.BlockNumber != nil {
		err = err.WithContext("block", receipt.BlockNumber.Uint64())
	}
	return err
}

// sendError labels a failure to build, send or wait for a transaction.
// Only contract execution failures become ErrCodeReverted; transport and
// node errors keep their retryable codes.
func sendError(err error, message string) *errors.ChainError {
	switch {
	case isRevert(err):
		return errors.NewRevertError(chainName, message, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return errors.NewTimeoutError(chainName, message, err)
	}
	switch ratelimit.ClassifyRPCError(err) {
	case "network_error":
		return errors.NewNetworkError(chainName, message, err)
	case "timeout":
		return errors.NewTimeoutError(chainName, message, err)
	default:
		return errors.NewRPCError(chainName, message, err)
	}
}

// isRevert reports an execution revert, either as JSON-RPC error data or as
// the node's "execution reverted" message.
func isRevert(err error) bool {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) && dataErr.ErrorData() != nil {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}
