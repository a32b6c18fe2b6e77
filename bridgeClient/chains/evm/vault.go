package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/smartaccounts/bridge-relay/bridgeClient/cache"
	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
	"github.com/smartaccounts/bridge-relay/bridgeClient/registry"
)

// VaultBalance is an account's share position in one vault.
type VaultBalance struct {
	Vault    VaultInfo
	Symbol   string
	Decimals uint8
	Shares   *big.Int
	Assets   *big.Int
}

type vaultMeta struct {
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// VaultBalance reads owner's shares in vault id and their current asset value.
func (m *MasterAccountController) VaultBalance(ctx context.Context, id uint64, owner ethcommon.Address) (*VaultBalance, error) {
	v, err := m.Vault(ctx, id)
	if err != nil {
		return nil, err
	}
	parsed, err := registry.VaultABI()
	if err != nil {
		return nil, err
	}
	token := bind.NewBoundContract(v.Address, parsed, m.caller, nil, nil)
	call := func(method string, params ...interface{}) (interface{}, error) {
		var out []interface{}
		if err := token.Call(&bind.CallOpts{Context: ctx}, &out, method, params...); err != nil {
			return nil, errors.WrapChainError(err, errors.ErrCodeRPC, chainName, fmt.Sprintf("vault %d %s call failed", id, method))
		}
		return out[0], nil
	}

	meta, err := cache.Load(m.cache, v.Address, "vaultMeta", func() (vaultMeta, error) {
		symbol, err := call("symbol")
		if err != nil {
			return vaultMeta{}, err
		}
		decimals, err := call("decimals")
		if err != nil {
			return vaultMeta{}, err
		}
		s, ok1 := symbol.(string)
		d, ok2 := decimals.(uint8)
		if !ok1 || !ok2 {
			return vaultMeta{}, unexpected("symbol/decimals", []interface{}{symbol, decimals})
		}
		return vaultMeta{Symbol: s, Decimals: d}, nil
	})
	if err != nil {
		return nil, err
	}

	out, err := call("balanceOf", owner)
	if err != nil {
		return nil, err
	}
	shares, ok := out.(*big.Int)
	if !ok {
		return nil, unexpected("balanceOf", []interface{}{out})
	}
	out, err = call("convertToAssets", shares)
	if err != nil {
		return nil, err
	}
	assets, ok := out.(*big.Int)
	if !ok {
		return nil, unexpected("convertToAssets", []interface{}{out})
	}

	return &VaultBalance{Vault: v, Symbol: meta.Symbol, Decimals: meta.Decimals, Shares: shares, Assets: assets}, nil
}
