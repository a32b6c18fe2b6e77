// Package registry is the static table of bridge contracts: names, addresses
// and ABI fragments loaded from embedded artifacts.
package registry

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/smartaccounts/bridge-relay/bridgeClient/config"
	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
)

//go:embed abis/*.json
var abiFiles embed.FS

const (
	ContractMasterAccountController = "MasterAccountController"
	ContractAssetManager            = "AssetManager"

	EventInstructionExecuted         = "InstructionExecuted"
	EventCustomInstructionRegistered = "CustomInstructionRegistered"
	EventPersonalAccountCreated      = "PersonalAccountCreated"
	EventCollateralReserved          = "CollateralReserved"
	EventMintingExecuted             = "MintingExecuted"
)

var artifactFiles = map[string]string{
	ContractMasterAccountController: "abis/MasterAccountController.json",
	ContractAssetManager:            "abis/IAssetManagerEvents.json",
}

// vaultArtifact is the share token interface of controller vaults. Vault
// addresses come from the controller at runtime, so it is not bound here.
const vaultArtifact = "abis/IERC4626.json"

type artifact struct {
	ABI json.RawMessage `json:"abi"`
}

// Contract is a deployed contract with its parsed ABI.
type Contract struct {
	Name    string
	Address ethcommon.Address
	ABI     abi.ABI
	events  map[string]*Event
}

// Registry indexes contracts by name and events by (address, topic0).
type Registry struct {
	contracts map[string]*Contract
	byTopic   map[ethcommon.Address]map[ethcommon.Hash]*Event
}

// New loads the embedded artifacts and binds them to the deployment addresses.
func New(d config.Deployment) (*Registry, error) {
	addresses := map[string]ethcommon.Address{
		ContractMasterAccountController: d.MasterAccountController,
		ContractAssetManager:            d.AssetManager,
	}

	r := &Registry{
		contracts: make(map[string]*Contract),
		byTopic:   make(map[ethcommon.Address]map[ethcommon.Hash]*Event),
	}
	for name, file := range artifactFiles {
		parsed, err := loadABI(file)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load ABI for %s", name)
		}
		c := &Contract{
			Name:    name,
			Address: addresses[name],
			ABI:     parsed,
			events:  make(map[string]*Event),
		}
		topics, ok := r.byTopic[c.Address]
		if !ok {
			topics = make(map[ethcommon.Hash]*Event)
			r.byTopic[c.Address] = topics
		}
		for evName, ev := range parsed.Events {
			e := &Event{Name: evName, Contract: c, abi: ev}
			c.events[evName] = e
			topics[ev.ID] = e
		}
		r.contracts[name] = c
	}
	return r, nil
}

func loadABI(file string) (abi.ABI, error) {
	raw, err := abiFiles.ReadFile(file)
	if err != nil {
		return abi.ABI{}, err
	}
	var a artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return abi.ABI{}, err
	}
	return abi.JSON(bytes.NewReader(a.ABI))
}

// VaultABI parses the vault share token interface.
func VaultABI() (abi.ABI, error) {
	parsed, err := loadABI(vaultArtifact)
	if err != nil {
		return abi.ABI{}, errors.Wrap(err, "failed to load vault ABI")
	}
	return parsed, nil
}

// Contract returns the contract registered under name.
func (r *Registry) Contract(name string) (*Contract, error) {
	c, ok := r.contracts[name]
	if !ok {
		return nil, errors.NewNotFoundError("", fmt.Sprintf("contract %s is not registered", name))
	}
	return c, nil
}

func (r *Registry) MasterAccountController() *Contract {
	return r.contracts[ContractMasterAccountController]
}

func (r *Registry) AssetManager() *Contract {
	return r.contracts[ContractAssetManager]
}

// Contracts returns every registered contract sorted by name.
func (r *Registry) Contracts() []*Contract {
	out := make([]*Contract, 0, len(r.contracts))
	for _, c := range r.contracts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Decode finds the event emitted by log's address with log's topic0 and decodes it.
func (r *Registry) Decode(log types.Log) (*EventData, error) {
	if len(log.Topics) == 0 {
		return nil, errors.NewFormatError("log has no topics")
	}
	ev, ok := r.byTopic[log.Address][log.Topics[0]]
	if !ok {
		return nil, errors.NewNotFoundError("", fmt.Sprintf("no registered event for %s topic %s", log.Address.Hex(), log.Topics[0].Hex()))
	}
	return ev.Decode(log)
}

// Event returns the named event of the contract.
func (c *Contract) Event(name string) (*Event, error) {
	e, ok := c.events[name]
	if !ok {
		return nil, errors.NewNotFoundError("", fmt.Sprintf("event %s not found on %s", name, c.Name))
	}
	return e, nil
}

// MustEvent is Event for names known at compile time.
func (c *Contract) MustEvent(name string) *Event {
	e, err := c.Event(name)
	if err != nil {
		panic(err)
	}
	return e
}

// Method returns the ABI of the named function.
func (c *Contract) Method(name string) (abi.Method, error) {
	m, ok := c.ABI.Methods[name]
	if !ok {
		return abi.Method{}, errors.NewNotFoundError("", fmt.Sprintf("function %s not found on %s", name, c.Name))
	}
	return m, nil
}
