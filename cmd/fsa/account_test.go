package main

import (
	"bytes"
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartaccounts/bridge-relay/bridgeClient/chains/evm"
	"github.com/smartaccounts/bridge-relay/bridgeClient/core"
	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
)

func TestLedgerAddress(t *testing.T) {
	rt := &core.Runtime{}

	_, err := ledgerAddress(rt, nil)
	assert.EqualError(t, err, "no ledger address given and none configured")

	rt.Config.Ledger.Address = "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"
	got, err := ledgerAddress(rt, nil)
	require.NoError(t, err)
	assert.Equal(t, "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh", got)

	got, err = ledgerAddress(rt, []string{"rPT1Sjq2YGrBMTttX4GZHjKu9dyfzbpAYe"})
	require.NoError(t, err)
	assert.Equal(t, "rPT1Sjq2YGrBMTttX4GZHjKu9dyfzbpAYe", got)

	_, err = ledgerAddress(rt, []string{"0x1234"})
	assert.True(t, errors.IsValidation(err))
}

func TestPrintVaultBalance(t *testing.T) {
	var out bytes.Buffer
	printVaultBalance(&out, &evm.VaultBalance{
		Vault: evm.VaultInfo{
			ID:      1,
			Address: ethcommon.HexToAddress("0x0000000000000000000000000000000000000101"),
			Type:    evm.VaultTypeFirelight,
		},
		Symbol:   "fvFXRP",
		Decimals: 6,
		Shares:   big.NewInt(1_500_000),
		Assets:   big.NewInt(1_530_000),
	})
	assert.Equal(t, "vault 1 (firelight, 0x0000000000000000000000000000000000000101): 1.5 fvFXRP, worth 1.53\n", out.String())
}

func TestPersonalAccountSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	for _, name := range []string{"print", "faucet", "vault-balance"} {
		found, _, err := cmd.Find([]string{"personal-account", name})
		require.NoError(t, err)
		assert.Equal(t, name, found.Name())
	}
}
