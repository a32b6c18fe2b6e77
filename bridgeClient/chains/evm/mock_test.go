package evm

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/smartaccounts/bridge-relay/bridgeClient/config"
	"github.com/smartaccounts/bridge-relay/bridgeClient/registry"
)

var (
	testControllerAddress   = ethcommon.HexToAddress("0x434936d47503353f06750Db1A444DBDC5F0AD37c")
	testAssetManagerAddress = ethcommon.HexToAddress("0xc1Ca88b937d0b528842F95d5731ffB586f4fbDFA")
)

// mockReader is a testify mock of ChainReader for error paths.
type mockReader struct {
	mock.Mock
}

func (m *mockReader) GetLatestBlock(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockReader) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	args := m.Called(ctx, number)
	if header := args.Get(0); header != nil {
		return header.(*types.Header), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReader) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	args := m.Called(ctx, q)
	if logs := args.Get(0); logs != nil {
		return logs.([]types.Log), args.Error(1)
	}
	return nil, args.Error(1)
}

// fakeChain produces one block every blockTime seconds from genesis. Every
// GetLatestBlock call moves the head forward by advance blocks. FilterLogs
// honours the block range and addresses but not topics.
type fakeChain struct {
	mu        sync.Mutex
	genesis   uint64
	blockTime uint64
	head      uint64
	advance   uint64
	logs      []types.Log
	filterErr error
	queries   []ethereum.FilterQuery
}

func newFakeChain(head uint64) *fakeChain {
	return &fakeChain{genesis: 1_600_000_000, blockTime: 2, head: head}
}

func (c *fakeChain) timeOf(n uint64) uint64 {
	return c.genesis + n*c.blockTime
}

func (c *fakeChain) GetLatestBlock(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	head := c.head
	c.head += c.advance
	return head, nil
}

func (c *fakeChain) HeaderByNumber(_ context.Context, number *big.Int) (*types.Header, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.head
	if number != nil {
		n = number.Uint64()
	}
	if n > c.head {
		return nil, fmt.Errorf("block %d not found", n)
	}
	return &types.Header{Number: new(big.Int).SetUint64(n), Time: c.timeOf(n)}, nil
}

func (c *fakeChain) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, q)
	if c.filterErr != nil {
		return nil, c.filterErr
	}
	from, to := q.FromBlock.Uint64(), q.ToBlock.Uint64()
	var out []types.Log
	for _, l := range c.logs {
		if l.BlockNumber < from || l.BlockNumber > to {
			continue
		}
		for _, addr := range q.Addresses {
			if addr == l.Address {
				out = append(out, l)
				break
			}
		}
	}
	return out, nil
}

func (c *fakeChain) Queries() []ethereum.FilterQuery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ethereum.FilterQuery(nil), c.queries...)
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New(config.Deployment{
		MasterAccountController: testControllerAddress,
		AssetManager:            testAssetManagerAddress,
	})
	require.NoError(t, err)
	return reg
}
