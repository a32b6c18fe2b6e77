package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"github.com/smartaccounts/bridge-relay/bridgeClient/cache"
	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
	"github.com/smartaccounts/bridge-relay/bridgeClient/registry"
)

// Vault types as enumerated by the controller.
const (
	VaultTypeFirelight uint8 = 1
	VaultTypeUpshift   uint8 = 2
)

type VaultInfo struct {
	ID      uint64            `json:"id"`
	Address ethcommon.Address `json:"address"`
	Type    uint8             `json:"type"`
}

type AgentVaultInfo struct {
	ID      uint64            `json:"id"`
	Address ethcommon.Address `json:"address"`
}

// CustomCall is one call of a custom instruction batch. Field names follow
// the ABI tuple components.
type CustomCall struct {
	TargetContract ethcommon.Address
	Value          *big.Int
	Data           []byte
}

// MasterAccountController wraps the controller's view functions and the
// custom instruction registration. Static metadata is memoised in the cache.
type MasterAccountController struct {
	contract *bind.BoundContract
	caller   bind.ContractCaller
	address  ethcommon.Address
	cache    *cache.Cache
	logger   zerolog.Logger
}

// NewMasterAccountController binds c. transactor may be nil when no
// transactions will be sent.
func NewMasterAccountController(
	c *registry.Contract,
	caller bind.ContractCaller,
	transactor bind.ContractTransactor,
	metaCache *cache.Cache,
	logger zerolog.Logger,
) *MasterAccountController {
	return &MasterAccountController{
		contract: bind.NewBoundContract(c.Address, c.ABI, caller, transactor, nil),
		caller:   caller,
		address:  c.Address,
		cache:    metaCache,
		logger:   logger.With().Str("component", "master_account_controller").Str("address", c.Address.Hex()).Logger(),
	}
}

func (m *MasterAccountController) Address() ethcommon.Address {
	return m.address
}

func (m *MasterAccountController) call(ctx context.Context, method string, params ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := m.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, params...); err != nil {
		return nil, errors.WrapChainError(err, errors.ErrCodeRPC, chainName, fmt.Sprintf("%s call failed", method))
	}
	return out, nil
}

func unexpected(method string, out []interface{}) error {
	return errors.NewInternalError(chainName, fmt.Sprintf("unexpected %s result %v", method, out), nil)
}

// ProviderWallets returns the ledger addresses accepting bridge payments.
func (m *MasterAccountController) ProviderWallets(ctx context.Context) ([]string, error) {
	return cache.Load(m.cache, m.address, "getXrplProviderWallets", func() ([]string, error) {
		out, err := m.call(ctx, "getXrplProviderWallets")
		if err != nil {
			return nil, err
		}
		wallets, ok := out[0].([]string)
		if !ok {
			return nil, unexpected("getXrplProviderWallets", out)
		}
		return wallets, nil
	})
}

// PrimaryProviderWallet is the first provider wallet; bridge requests go there.
func (m *MasterAccountController) PrimaryProviderWallet(ctx context.Context) (string, error) {
	wallets, err := m.ProviderWallets(ctx)
	if err != nil {
		return "", err
	}
	if len(wallets) == 0 {
		return "", errors.NewNotFoundError(chainName, "controller has no provider wallets")
	}
	return wallets[0], nil
}

// InstructionFee returns the fee, in ledger drops, for instruction id.
func (m *MasterAccountController) InstructionFee(ctx context.Context, id uint64) (*big.Int, error) {
	return cache.Load(m.cache, m.address, fmt.Sprintf("getInstructionFee/%d", id), func() (*big.Int, error) {
		out, err := m.call(ctx, "getInstructionFee", new(big.Int).SetUint64(id))
		if err != nil {
			return nil, err
		}
		fee, ok := out[0].(*big.Int)
		if !ok {
			return nil, unexpected("getInstructionFee", out)
		}
		return fee, nil
	})
}

// PersonalAccount returns the smart account owned by a ledger address.
func (m *MasterAccountController) PersonalAccount(ctx context.Context, ledgerAddress string) (ethcommon.Address, error) {
	out, err := m.call(ctx, "getPersonalAccount", ledgerAddress)
	if err != nil {
		return ethcommon.Address{}, err
	}
	addr, ok := out[0].(ethcommon.Address)
	if !ok {
		return ethcommon.Address{}, unexpected("getPersonalAccount", out)
	}
	return addr, nil
}

// Vaults returns the vault table keyed by vault id.
func (m *MasterAccountController) Vaults(ctx context.Context) (map[uint64]VaultInfo, error) {
	return cache.Load(m.cache, m.address, "getVaults", func() (map[uint64]VaultInfo, error) {
		out, err := m.call(ctx, "getVaults")
		if err != nil {
			return nil, err
		}
		ids, ok1 := out[0].([]*big.Int)
		addrs, ok2 := out[1].([]ethcommon.Address)
		kinds, ok3 := out[2].([]uint8)
		if !ok1 || !ok2 || !ok3 || len(ids) != len(addrs) || len(ids) != len(kinds) {
			return nil, unexpected("getVaults", out)
		}
		vaults := make(map[uint64]VaultInfo, len(ids))
		for i, id := range ids {
			vaults[id.Uint64()] = VaultInfo{ID: id.Uint64(), Address: addrs[i], Type: kinds[i]}
		}
		m.logger.Debug().Int("vaults", len(vaults)).Msg("loaded vault table")
		return vaults, nil
	})
}

// Vault looks up one vault by id.
func (m *MasterAccountController) Vault(ctx context.Context, id uint64) (VaultInfo, error) {
	vaults, err := m.Vaults(ctx)
	if err != nil {
		return VaultInfo{}, err
	}
	v, ok := vaults[id]
	if !ok {
		return VaultInfo{}, errors.NewNotFoundError(chainName, fmt.Sprintf("vault %d is not registered", id))
	}
	return v, nil
}

// AgentVaults returns the agent vault table keyed by id.
func (m *MasterAccountController) AgentVaults(ctx context.Context) (map[uint64]AgentVaultInfo, error) {
	return cache.Load(m.cache, m.address, "getAgentVaults", func() (map[uint64]AgentVaultInfo, error) {
		out, err := m.call(ctx, "getAgentVaults")
		if err != nil {
			return nil, err
		}
		ids, ok1 := out[0].([]*big.Int)
		addrs, ok2 := out[1].([]ethcommon.Address)
		if !ok1 || !ok2 || len(ids) != len(addrs) {
			return nil, unexpected("getAgentVaults", out)
		}
		vaults := make(map[uint64]AgentVaultInfo, len(ids))
		for i, id := range ids {
			vaults[id.Uint64()] = AgentVaultInfo{ID: id.Uint64(), Address: addrs[i]}
		}
		return vaults, nil
	})
}

// AgentVaultID resolves an agent vault address to its id.
func (m *MasterAccountController) AgentVaultID(ctx context.Context, agent ethcommon.Address) (uint64, error) {
	vaults, err := m.AgentVaults(ctx)
	if err != nil {
		return 0, err
	}
	for id, v := range vaults {
		if v.Address == agent {
			return id, nil
		}
	}
	return 0, errors.NewNotFoundError(chainName, fmt.Sprintf("agent vault %s is not registered", agent.Hex()))
}

// IsTransactionIDUsed reports whether the controller already executed a ledger transaction.
func (m *MasterAccountController) IsTransactionIDUsed(ctx context.Context, txID [32]byte) (bool, error) {
	out, err := m.call(ctx, "isTransactionIdUsed", txID)
	if err != nil {
		return false, err
	}
	used, ok := out[0].(bool)
	if !ok {
		return false, unexpected("isTransactionIdUsed", out)
	}
	return used, nil
}

// EncodeCustomInstruction returns the controller's hash of a call batch.
func (m *MasterAccountController) EncodeCustomInstruction(ctx context.Context, calls []CustomCall) ([32]byte, error) {
	out, err := m.call(ctx, "encodeCustomInstruction", calls)
	if err != nil {
		return [32]byte{}, err
	}
	hash, ok := out[0].([32]byte)
	if !ok {
		return [32]byte{}, unexpected("encodeCustomInstruction", out)
	}
	return hash, nil
}

// RegisterCustomInstruction sends the registration transaction.
func (m *MasterAccountController) RegisterCustomInstruction(opts *bind.TransactOpts, calls []CustomCall) (*types.Transaction, error) {
	tx, err := m.contract.Transact(opts, "registerCustomInstruction", calls)
	if err != nil {
		return nil, sendError(err, "registerCustomInstruction failed")
	}
	m.logger.Info().Str("tx_hash", tx.Hash().Hex()).Int("calls", len(calls)).Msg("custom instruction registration sent")
	return tx, nil
}

// TxSender signs and waits for the relay's own chain transactions.
type TxSender interface {
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// CustomRegistrar registers custom call batches on the controller.
type CustomRegistrar struct {
	controller *MasterAccountController
	sender     TxSender
}

func NewCustomRegistrar(controller *MasterAccountController, sender TxSender) *CustomRegistrar {
	return &CustomRegistrar{controller: controller, sender: sender}
}

// Register sends registerCustomInstruction and waits for it to be mined.
// A second registration of the same batch reverts with ErrCodeReverted.
func (r *CustomRegistrar) Register(ctx context.Context, calls []CustomCall) (ethcommon.Hash, error) {
	opts, err := r.sender.TransactOpts(ctx)
	if err != nil {
		return ethcommon.Hash{}, err
	}
	tx, err := r.controller.RegisterCustomInstruction(opts, calls)
	if err != nil {
		return ethcommon.Hash{}, err
	}
	if _, err := r.sender.WaitMined(ctx, tx); err != nil {
		return tx.Hash(), err
	}
	return tx.Hash(), nil
}
