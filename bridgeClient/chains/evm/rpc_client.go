package evm

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
	"github.com/smartaccounts/bridge-relay/bridgeClient/metrics"
	"github.com/smartaccounts/bridge-relay/bridgeClient/ratelimit"
)

const chainName = "evm"

// ChainReader is the read surface used by the block locator, the event
// scanner and the event confirmer.
type ChainReader interface {
	GetLatestBlock(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
}

// RPCClient provides EVM RPC operations over one or more endpoints with
// round-robin failover and client side rate limiting.
type RPCClient struct {
	clients []*ethclient.Client
	index   uint64
	chainID int64
	mu      sync.RWMutex
	limiter *ratelimit.Limiter
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

var _ ChainReader = (*RPCClient)(nil)

// NewRPCClient dials every URL and keeps the endpoints whose chain id matches
// expectedChainID. An expectedChainID of 0 adopts the id of the first endpoint.
func NewRPCClient(
	ctx context.Context,
	rpcURLs []string,
	expectedChainID int64,
	limiter *ratelimit.Limiter,
	m *metrics.Metrics,
	logger zerolog.Logger,
) (*RPCClient, error) {
	if len(rpcURLs) == 0 {
		return nil, errors.NewConfigError("no chain RPC URLs provided")
	}

	log := logger.With().Str("component", "evm_rpc_client").Logger()
	clients := make([]*ethclient.Client, 0, len(rpcURLs))

	dialCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for _, url := range rpcURLs {
		client, err := ethclient.DialContext(dialCtx, url)
		if err != nil {
			log.Warn().Err(err).Str("url", url).Msg("failed to connect to RPC endpoint, skipping")
			continue
		}

		clientChainID, err := client.ChainID(dialCtx)
		if err != nil {
			client.Close()
			log.Warn().Err(err).Str("url", url).Msg("failed to read chain ID, skipping endpoint")
			continue
		}

		if expectedChainID == 0 {
			expectedChainID = clientChainID.Int64()
		}
		if clientChainID.Int64() != expectedChainID {
			client.Close()
			log.Warn().
				Str("url", url).
				Int64("expected_chain_id", expectedChainID).
				Int64("actual_chain_id", clientChainID.Int64()).
				Msg("chain ID mismatch, closing client")
			continue
		}

		clients = append(clients, client)
		log.Info().Str("url", url).Int64("chain_id", expectedChainID).Msg("connected to RPC endpoint")
	}

	if len(clients) == 0 {
		return nil, errors.NewNetworkError(chainName, "failed to connect to any valid RPC endpoints", nil)
	}

	return &RPCClient{
		clients: clients,
		chainID: expectedChainID,
		limiter: limiter,
		metrics: m,
		logger:  log,
	}, nil
}

// ChainID returns the verified chain id of the endpoints.
func (rc *RPCClient) ChainID() int64 {
	return rc.chainID
}

// Primary returns the first connected endpoint, used for signing backends.
func (rc *RPCClient) Primary() (*ethclient.Client, error) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	if len(rc.clients) == 0 {
		return nil, errors.NewNetworkError(chainName, "no RPC clients available", nil)
	}
	return rc.clients[0], nil
}

// executeWithFailover executes a function with round-robin failover
func (rc *RPCClient) executeWithFailover(ctx context.Context, operation string, fn func(*ethclient.Client) error) error {
	rc.mu.RLock()
	clients := rc.clients
	rc.mu.RUnlock()

	if len(clients) == 0 {
		return errors.NewNetworkError(chainName, fmt.Sprintf("no RPC clients available for %s", operation), nil)
	}

	var lastErr error
	maxAttempts := len(clients)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := rc.limiter.Wait(ctx); err != nil {
			return err
		}

		index := atomic.AddUint64(&rc.index, 1) - 1
		client := clients[index%uint64(len(clients))]

		err := fn(client)
		rc.metrics.RecordRPCCall(chainName, operation, ratelimit.ClassifyRPCError(err))
		if err == nil {
			return nil
		}
		lastErr = err

		rc.logger.Warn().
			Str("operation", operation).
			Int("attempt", attempt+1).
			Err(err).
			Msg("operation failed, trying next endpoint")
	}

	return errors.NewRPCError(chainName, fmt.Sprintf("operation %s failed after trying %d endpoints", operation, maxAttempts), lastErr)
}

// IsHealthy checks if any RPC in the pool is healthy by pinging it
func (rc *RPCClient) IsHealthy(ctx context.Context) bool {
	_, err := rc.GetLatestBlock(ctx)
	return err == nil
}

// GetLatestBlock returns the latest block number
func (rc *RPCClient) GetLatestBlock(ctx context.Context) (uint64, error) {
	var blockNum uint64
	err := rc.executeWithFailover(ctx, "eth_blockNumber", func(client *ethclient.Client) error {
		var innerErr error
		blockNum, innerErr = client.BlockNumber(ctx)
		return innerErr
	})
	return blockNum, err
}

// HeaderByNumber returns a block header; nil selects the latest block.
func (rc *RPCClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	var header *types.Header
	err := rc.executeWithFailover(ctx, "eth_getBlockByNumber", func(client *ethclient.Client) error {
		var innerErr error
		header, innerErr = client.HeaderByNumber(ctx, number)
		return innerErr
	})
	return header, err
}

// FilterLogs fetches logs matching the filter query
func (rc *RPCClient) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	var logs []types.Log
	err := rc.executeWithFailover(ctx, "eth_getLogs", func(client *ethclient.Client) error {
		var innerErr error
		logs, innerErr = client.FilterLogs(ctx, query)
		return innerErr
	})
	return logs, err
}

// CallContract executes a read-only call. Together with CodeAt it satisfies
// bind.ContractCaller.
func (rc *RPCClient) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var out []byte
	err := rc.executeWithFailover(ctx, "eth_call", func(client *ethclient.Client) error {
		var innerErr error
		out, innerErr = client.CallContract(ctx, call, blockNumber)
		return innerErr
	})
	return out, err
}

func (rc *RPCClient) CodeAt(ctx context.Context, contract ethcommon.Address, blockNumber *big.Int) ([]byte, error) {
	var code []byte
	err := rc.executeWithFailover(ctx, "eth_getCode", func(client *ethclient.Client) error {
		var innerErr error
		code, innerErr = client.CodeAt(ctx, contract, blockNumber)
		return innerErr
	})
	return code, err
}

// GetTransactionReceipt fetches a transaction receipt
func (rc *RPCClient) GetTransactionReceipt(ctx context.Context, txHash ethcommon.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	err := rc.executeWithFailover(ctx, "eth_getTransactionReceipt", func(client *ethclient.Client) error {
		var innerErr error
		receipt, innerErr = client.TransactionReceipt(ctx, txHash)
		return innerErr
	})
	return receipt, err
}

// Close closes all RPC connections
func (rc *RPCClient) Close() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	for _, client := range rc.clients {
		if client != nil {
			client.Close()
		}
	}
	rc.clients = nil
}
