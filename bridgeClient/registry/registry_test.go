package registry_test

import (
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartaccounts/bridge-relay/bridgeClient/config"
	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
	"github.com/smartaccounts/bridge-relay/bridgeClient/registry"
	"github.com/smartaccounts/bridge-relay/bridgeClient/registry/registrytest"
)

var testDeployment = config.Deployment{
	MasterAccountController: ethcommon.HexToAddress("0x434936d47503353f06750Db1A444DBDC5F0AD37c"),
	AssetManager:            ethcommon.HexToAddress("0xc1Ca88b937d0b528842F95d5731ffB586f4fbDFA"),
}

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r, err := registry.New(testDeployment)
	require.NoError(t, err)
	return r
}

func TestRegistryContracts(t *testing.T) {
	r := newRegistry(t)

	mac := r.MasterAccountController()
	require.NotNil(t, mac)
	assert.Equal(t, testDeployment.MasterAccountController, mac.Address)

	for _, name := range []string{
		"getXrplProviderWallets", "getInstructionFee", "getPersonalAccount",
		"getVaults", "getAgentVaults", "encodeCustomInstruction", "registerCustomInstruction",
	} {
		_, err := mac.Method(name)
		assert.NoError(t, err, name)
	}

	_, err := r.Contract("Nope")
	assert.True(t, errors.IsChainError(err, errors.ErrCodeNotFound))

	_, err = mac.Event("Nope")
	assert.True(t, errors.IsChainError(err, errors.ErrCodeNotFound))

	assert.Len(t, r.Contracts(), 2)
}

func TestEventSignatures(t *testing.T) {
	r := newRegistry(t)

	minting := r.AssetManager().MustEvent(registry.EventMintingExecuted)
	assert.Equal(t, "MintingExecuted(address,uint256,uint256,uint256,uint256)", minting.CanonicalSignature())
	assert.Equal(t, crypto.Keccak256Hash([]byte(minting.CanonicalSignature())), minting.Signature())

	executed := r.MasterAccountController().MustEvent(registry.EventInstructionExecuted)
	assert.Equal(t, "InstructionExecuted(address,bytes32,bytes32,string,uint256)", executed.CanonicalSignature())
}

func TestDecodeCollateralReserved(t *testing.T) {
	r := newRegistry(t)
	ev := r.AssetManager().MustEvent(registry.EventCollateralReserved)

	ref := [32]byte{0x46, 0x42, 0x50, 0x52}
	log := registrytest.MustLog(ev, 1234, map[string]interface{}{
		"agentVault":              ethcommon.HexToAddress("0x55c815260cBE6c45Fe5bFe5FF32E3C7D746f14dC"),
		"minter":                  ethcommon.HexToAddress("0x00000000000000000000000000000000000000aa"),
		"collateralReservationId": big.NewInt(987),
		"valueUBA":                big.NewInt(20_000_000),
		"feeUBA":                  big.NewInt(50_000),
		"firstUnderlyingBlock":    big.NewInt(100),
		"lastUnderlyingBlock":     big.NewInt(200),
		"lastUnderlyingTimestamp": big.NewInt(1_700_000_000),
		"paymentAddress":          "rPT1Sjq2YGrBMTttX4GZHjKu9dyfzbpAYe",
		"paymentReference":        ref,
		"executor":                ethcommon.Address{},
		"executorFeeNatWei":       big.NewInt(0),
	})

	data, err := r.Decode(log)
	require.NoError(t, err)

	assert.Equal(t, registry.EventCollateralReserved, data.Event)
	assert.Equal(t, uint64(1234), data.BlockNumber)
	assert.Equal(t, ev.Contract.Address, data.Emitter)
	assert.Equal(t, "agentVault", data.Names[0])
	assert.Len(t, data.Names, 12)

	id, err := data.BigInt("collateralReservationId")
	require.NoError(t, err)
	assert.Equal(t, int64(987), id.Int64())

	addr, err := data.String("paymentAddress")
	require.NoError(t, err)
	assert.Equal(t, "rPT1Sjq2YGrBMTttX4GZHjKu9dyfzbpAYe", addr)

	gotRef, err := data.Bytes32("paymentReference")
	require.NoError(t, err)
	assert.Equal(t, ref, gotRef)

	agent, err := data.Address("agentVault")
	require.NoError(t, err)
	assert.Equal(t, ethcommon.HexToAddress("0x55c815260cBE6c45Fe5bFe5FF32E3C7D746f14dC"), agent)

	_, err = data.BigInt("paymentAddress")
	assert.True(t, errors.IsChainError(err, errors.ErrCodeFormat))
	_, err = data.BigInt("missing")
	assert.True(t, errors.IsChainError(err, errors.ErrCodeNotFound))
}

func TestDecodeInstructionExecutedIndexedBytes32(t *testing.T) {
	r := newRegistry(t)
	ev := r.MasterAccountController().MustEvent(registry.EventInstructionExecuted)

	txID := ethcommon.HexToHash("0xA1B2C3D4E5F60718293A4B5C6D7E8F90A1B2C3D4E5F60718293A4B5C6D7E8F90")
	log := registrytest.MustLog(ev, 5, map[string]interface{}{
		"personalAccount":  ethcommon.HexToAddress("0x0000000000000000000000000000000000000abc"),
		"transactionId":    txID,
		"paymentReference": [32]byte{},
		"xrplOwner":        "rPT1Sjq2YGrBMTttX4GZHjKu9dyfzbpAYe",
		"instructionId":    big.NewInt(0x11),
	})

	data, err := ev.Decode(log)
	require.NoError(t, err)

	got, err := data.Bytes32("transactionId")
	require.NoError(t, err)
	assert.Equal(t, [32]byte(txID), got)
}

func TestDecodeRejectsForeignLogs(t *testing.T) {
	r := newRegistry(t)
	minting := r.AssetManager().MustEvent(registry.EventMintingExecuted)
	reserved := r.AssetManager().MustEvent(registry.EventCollateralReserved)

	log := registrytest.MustLog(minting, 1, map[string]interface{}{
		"agentVault":              ethcommon.Address{},
		"collateralReservationId": big.NewInt(1),
		"mintedAmountUBA":         big.NewInt(1),
		"agentFeeUBA":             big.NewInt(0),
		"poolFeeUBA":              big.NewInt(0),
	})

	_, err := reserved.Decode(log)
	assert.True(t, errors.IsChainError(err, errors.ErrCodeFormat))

	truncated := log
	truncated.Topics = truncated.Topics[:2]
	_, err = minting.Decode(truncated)
	assert.True(t, errors.IsChainError(err, errors.ErrCodeFormat))

	foreign := log
	foreign.Address = ethcommon.HexToAddress("0x0000000000000000000000000000000000000001")
	_, err = r.Decode(foreign)
	assert.True(t, errors.IsChainError(err, errors.ErrCodeNotFound))
}

func TestVaultABI(t *testing.T) {
	parsed, err := registry.VaultABI()
	require.NoError(t, err)
	for _, name := range []string{"symbol", "decimals", "balanceOf", "convertToAssets"} {
		assert.Contains(t, parsed.Methods, name)
	}
	assert.Empty(t, parsed.Events)
}
