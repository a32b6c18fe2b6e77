package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartaccounts/bridge-relay/bridgeClient/cache"
	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
	"github.com/smartaccounts/bridge-relay/bridgeClient/registry"
)

// fakeCaller answers eth_call by packing canned outputs for the selected method.
type fakeCaller struct {
	mu      sync.Mutex
	abi     abi.ABI
	outputs map[string][]interface{}
	calls   map[string]int
	inputs  map[string][]interface{}
}

func newFakeCaller(contract *registry.Contract) *fakeCaller {
	return &fakeCaller{
		abi:     contract.ABI,
		outputs: make(map[string][]interface{}),
		calls:   make(map[string]int),
		inputs:  make(map[string][]interface{}),
	}
}

func (f *fakeCaller) CodeAt(context.Context, ethcommon.Address, *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (f *fakeCaller) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	method, err := f.abi.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}
	f.calls[method.Name]++
	args, err := method.Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, err
	}
	f.inputs[method.Name] = args

	out, ok := f.outputs[method.Name]
	if !ok {
		return nil, fmt.Errorf("execution reverted")
	}
	return method.Outputs.Pack(out...)
}

func (f *fakeCaller) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func newTestController(t *testing.T) (*MasterAccountController, *fakeCaller) {
	t.Helper()
	c := testRegistry(t).MasterAccountController()
	caller := newFakeCaller(c)
	return NewMasterAccountController(c, caller, nil, cache.New(zerolog.Nop()), zerolog.Nop()), caller
}

func TestMasterAccountControllerProviderWallets(t *testing.T) {
	ctrl, caller := newTestController(t)
	caller.outputs["getXrplProviderWallets"] = []interface{}{[]string{"rProviderOne", "rProviderTwo"}}
	ctx := context.Background()

	wallets, err := ctrl.ProviderWallets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"rProviderOne", "rProviderTwo"}, wallets)

	primary, err := ctrl.PrimaryProviderWallet(ctx)
	require.NoError(t, err)
	assert.Equal(t, "rProviderOne", primary)
	assert.Equal(t, 1, caller.count("getXrplProviderWallets"))
}

func TestMasterAccountControllerNoProviderWallets(t *testing.T) {
	ctrl, caller := newTestController(t)
	caller.outputs["getXrplProviderWallets"] = []interface{}{[]string{}}

	_, err := ctrl.PrimaryProviderWallet(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsChainError(err, errors.ErrCodeNotFound))
}

func TestMasterAccountControllerInstructionFee(t *testing.T) {
	ctrl, caller := newTestController(t)
	caller.outputs["getInstructionFee"] = []interface{}{big.NewInt(250_000)}
	ctx := context.Background()

	fee, err := ctrl.InstructionFee(ctx, 0x11)
	require.NoError(t, err)
	assert.Equal(t, int64(250_000), fee.Int64())
	assert.Equal(t, big.NewInt(0x11), caller.inputs["getInstructionFee"][0])

	_, err = ctrl.InstructionFee(ctx, 0x11)
	require.NoError(t, err)
	_, err = ctrl.InstructionFee(ctx, 0x12)
	require.NoError(t, err)
	assert.Equal(t, 2, caller.count("getInstructionFee"))
}

func TestMasterAccountControllerVaults(t *testing.T) {
	ctrl, caller := newTestController(t)
	firelight := ethcommon.HexToAddress("0x0000000000000000000000000000000000000f01")
	upshift := ethcommon.HexToAddress("0x0000000000000000000000000000000000000f02")
	caller.outputs["getVaults"] = []interface{}{
		[]*big.Int{big.NewInt(1), big.NewInt(2)},
		[]ethcommon.Address{firelight, upshift},
		[]uint8{VaultTypeFirelight, VaultTypeUpshift},
	}
	ctx := context.Background()

	vaults, err := ctrl.Vaults(ctx)
	require.NoError(t, err)
	require.Len(t, vaults, 2)
	assert.Equal(t, VaultInfo{ID: 2, Address: upshift, Type: VaultTypeUpshift}, vaults[2])

	v, err := ctrl.Vault(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, VaultTypeFirelight, v.Type)

	_, err = ctrl.Vault(ctx, 9)
	assert.True(t, errors.IsChainError(err, errors.ErrCodeNotFound))
	assert.Equal(t, 1, caller.count("getVaults"))
}

func TestMasterAccountControllerAgentVaults(t *testing.T) {
	ctrl, caller := newTestController(t)
	agent := ethcommon.HexToAddress("0x55d9F4A5bcb6aD6d6F7fC8F1f1B8d0Ba0ba34F0E")
	caller.outputs["getAgentVaults"] = []interface{}{
		[]*big.Int{big.NewInt(1)},
		[]ethcommon.Address{agent},
	}
	ctx := context.Background()

	id, err := ctrl.AgentVaultID(ctx, agent)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	_, err = ctrl.AgentVaultID(ctx, ethcommon.HexToAddress("0x01"))
	assert.True(t, errors.IsChainError(err, errors.ErrCodeNotFound))
}

func TestMasterAccountControllerViews(t *testing.T) {
	ctrl, caller := newTestController(t)
	account := ethcommon.HexToAddress("0x00000000000000000000000000000000000000aa")
	caller.outputs["getPersonalAccount"] = []interface{}{account}
	caller.outputs["isTransactionIdUsed"] = []interface{}{true}
	caller.outputs["encodeCustomInstruction"] = []interface{}{[32]byte{0xaa, 0xbb, 0xcc}}
	ctx := context.Background()

	got, err := ctrl.PersonalAccount(ctx, "rOwner")
	require.NoError(t, err)
	assert.Equal(t, account, got)
	assert.Equal(t, "rOwner", caller.inputs["getPersonalAccount"][0])

	used, err := ctrl.IsTransactionIDUsed(ctx, [32]byte{1})
	require.NoError(t, err)
	assert.True(t, used)

	hash, err := ctrl.EncodeCustomInstruction(ctx, []CustomCall{{
		TargetContract: account,
		Value:          big.NewInt(0),
		Data:           []byte{0xde, 0xad},
	}})
	require.NoError(t, err)
	assert.Equal(t, [32]byte{0xaa, 0xbb, 0xcc}, hash)
}

func TestMasterAccountControllerCallError(t *testing.T) {
	ctrl, _ := newTestController(t)

	_, err := ctrl.ProviderWallets(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsChainError(err, errors.ErrCodeRPC))
}

type revertDataError struct{ data string }

func (e revertDataError) Error() string          { return "execution reverted: custom error 0x5a1e" }
func (e revertDataError) ErrorData() interface{} { return e.data }

// fakeTransactor fails at the first step named in failAt.
type fakeTransactor struct {
	failAt string
	err    error
	sent   []*types.Transaction
}

func (f *fakeTransactor) fail(step string) error {
	if f.failAt == step {
		return f.err
	}
	return nil
}

func (f *fakeTransactor) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	if err := f.fail("header"); err != nil {
		return nil, err
	}
	return &types.Header{Number: big.NewInt(100), BaseFee: big.NewInt(25_000_000_000)}, nil
}

func (f *fakeTransactor) PendingCodeAt(context.Context, ethcommon.Address) ([]byte, error) {
	return []byte{0x60}, nil
}

func (f *fakeTransactor) PendingNonceAt(context.Context, ethcommon.Address) (uint64, error) {
	return 7, f.fail("nonce")
}

func (f *fakeTransactor) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(25_000_000_000), nil
}

func (f *fakeTransactor) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeTransactor) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 120_000, f.fail("estimate")
}

func (f *fakeTransactor) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if err := f.fail("send"); err != nil {
		return err
	}
	f.sent = append(f.sent, tx)
	return nil
}

type fakeTxSender struct {
	key     *ecdsa.PrivateKey
	receipt *types.Receipt
	waitErr error
	waited  int
}

func (f *fakeTxSender) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(f.key, big.NewInt(114))
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	return opts, nil
}

func (f *fakeTxSender) WaitMined(_ context.Context, tx *types.Transaction) (*types.Receipt, error) {
	f.waited++
	if f.waitErr != nil {
		return nil, f.waitErr
	}
	if err := checkReceipt(tx, f.receipt); err != nil {
		return f.receipt, err
	}
	return f.receipt, nil
}

func newTestRegistrar(t *testing.T, transactor *fakeTransactor, receiptStatus uint64) (*CustomRegistrar, *fakeTxSender) {
	t.Helper()
	c := testRegistry(t).MasterAccountController()
	ctrl := NewMasterAccountController(c, newFakeCaller(c), transactor, cache.New(zerolog.Nop()), zerolog.Nop())

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := &fakeTxSender{key: key, receipt: &types.Receipt{Status: receiptStatus, BlockNumber: big.NewInt(101)}}
	return NewCustomRegistrar(ctrl, sender), sender
}

func TestCustomRegistrar(t *testing.T) {
	calls := []CustomCall{{
		TargetContract: ethcommon.HexToAddress("0x00000000000000000000000000000000000000c0"),
		Value:          big.NewInt(0),
		Data:           []byte{0xde, 0xad},
	}}

	t.Run("registers and waits", func(t *testing.T) {
		transactor := &fakeTransactor{}
		registrar, sender := newTestRegistrar(t, transactor, types.ReceiptStatusSuccessful)

		hash, err := registrar.Register(context.Background(), calls)
		require.NoError(t, err)
		require.Len(t, transactor.sent, 1)
		assert.Equal(t, transactor.sent[0].Hash(), hash)
		assert.Equal(t, uint64(7), transactor.sent[0].Nonce())
		assert.Equal(t, 1, sender.waited)
	})

	t.Run("transport failure is a network error", func(t *testing.T) {
		transactor := &fakeTransactor{failAt: "header", err: fmt.Errorf("Post \"http://127.0.0.1:8545\": dial tcp 127.0.0.1:8545: connect: connection refused")}
		registrar, sender := newTestRegistrar(t, transactor, types.ReceiptStatusSuccessful)

		_, err := registrar.Register(context.Background(), calls)
		require.Error(t, err)
		assert.True(t, errors.IsChainError(err, errors.ErrCodeNetwork))
		assert.False(t, errors.IsChainError(err, errors.ErrCodeReverted))
		assert.Empty(t, transactor.sent)
		assert.Zero(t, sender.waited)
	})

	t.Run("node rejection is an rpc error", func(t *testing.T) {
		transactor := &fakeTransactor{failAt: "send", err: fmt.Errorf("insufficient funds for gas * price + value")}
		registrar, _ := newTestRegistrar(t, transactor, types.ReceiptStatusSuccessful)

		_, err := registrar.Register(context.Background(), calls)
		assert.True(t, errors.IsChainError(err, errors.ErrCodeRPC))
	})

	t.Run("estimate revert", func(t *testing.T) {
		transactor := &fakeTransactor{failAt: "estimate", err: revertDataError{data: "0x5a1e0000"}}
		registrar, _ := newTestRegistrar(t, transactor, types.ReceiptStatusSuccessful)

		_, err := registrar.Register(context.Background(), calls)
		assert.True(t, errors.IsChainError(err, errors.ErrCodeReverted))
		assert.Empty(t, transactor.sent)
	})

	t.Run("failed receipt", func(t *testing.T) {
		transactor := &fakeTransactor{}
		registrar, _ := newTestRegistrar(t, transactor, types.ReceiptStatusFailed)

		hash, err := registrar.Register(context.Background(), calls)
		assert.True(t, errors.IsChainError(err, errors.ErrCodeReverted))
		assert.Equal(t, transactor.sent[0].Hash(), hash)
	})

	t.Run("cancelled wait", func(t *testing.T) {
		transactor := &fakeTransactor{}
		registrar, sender := newTestRegistrar(t, transactor, types.ReceiptStatusSuccessful)
		sender.waitErr = sendError(context.Canceled, "waiting for transaction failed")

		_, err := registrar.Register(context.Background(), calls)
		assert.True(t, errors.IsChainError(err, errors.ErrCodeTimeout))
		assert.False(t, errors.IsChainError(err, errors.ErrCodeReverted))
	})
}

func TestSendErrorClassification(t *testing.T) {
	cases := []struct {
		err  error
		code errors.ErrorCode
	}{
		{revertDataError{data: "0x"}, errors.ErrCodeReverted},
		{fmt.Errorf("execution reverted"), errors.ErrCodeReverted},
		{fmt.Errorf("dial tcp: connection refused"), errors.ErrCodeNetwork},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), errors.ErrCodeTimeout},
		{context.Canceled, errors.ErrCodeTimeout},
		{fmt.Errorf("nonce too low"), errors.ErrCodeRPC},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			assert.Equal(t, tc.code, sendError(tc.err, "send").Code)
		})
	}
}
