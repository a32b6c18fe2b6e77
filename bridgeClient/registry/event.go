package registry

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
)

// Event is one event of a registered contract.
type Event struct {
	Name     string
	Contract *Contract
	abi      abi.Event
}

// Signature is the keccak hash of the canonical event signature, i.e. topic0.
func (e *Event) Signature() ethcommon.Hash {
	return e.abi.ID
}

// CanonicalSignature is the text form, e.g. "MintingExecuted(address,uint256,uint256,uint256,uint256)".
func (e *Event) CanonicalSignature() string {
	return e.abi.Sig
}

// Inputs exposes the ABI arguments in declaration order.
func (e *Event) Inputs() abi.Arguments {
	return e.abi.Inputs
}

// EventData is a decoded log: ordered argument names plus the values keyed by name.
type EventData struct {
	Event       string
	Emitter     ethcommon.Address
	BlockNumber uint64
	TxHash      ethcommon.Hash
	LogIndex    uint
	Names       []string
	Args        map[string]interface{}
}

// Decode unpacks data and indexed topics of log. Indexed dynamic values
// (strings, bytes, arrays) decode to their topic hash.
func (e *Event) Decode(log types.Log) (*EventData, error) {
	if len(log.Topics) == 0 || log.Topics[0] != e.Signature() {
		return nil, errors.NewFormatErrorf("log is not a %s event", e.Name)
	}

	var indexed abi.Arguments
	names := make([]string, 0, len(e.abi.Inputs))
	for _, in := range e.abi.Inputs {
		names = append(names, in.Name)
		if in.Indexed {
			indexed = append(indexed, in)
		}
	}
	if len(log.Topics)-1 != len(indexed) {
		return nil, errors.NewFormatErrorf("%s expects %d indexed topics, log has %d", e.Name, len(indexed), len(log.Topics)-1)
	}

	args := make(map[string]interface{}, len(names))
	if err := e.abi.Inputs.UnpackIntoMap(args, log.Data); err != nil {
		return nil, errors.WrapChainError(err, errors.ErrCodeFormat, "", fmt.Sprintf("failed to unpack %s data", e.Name))
	}
	if err := abi.ParseTopicsIntoMap(args, indexed, log.Topics[1:]); err != nil {
		return nil, errors.WrapChainError(err, errors.ErrCodeFormat, "", fmt.Sprintf("failed to parse %s topics", e.Name))
	}

	return &EventData{
		Event:       e.Name,
		Emitter:     log.Address,
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
		LogIndex:    log.Index,
		Names:       names,
		Args:        args,
	}, nil
}

func (d *EventData) arg(name string) (interface{}, error) {
	v, ok := d.Args[name]
	if !ok {
		return nil, errors.NewNotFoundError("", fmt.Sprintf("%s has no argument %s", d.Event, name))
	}
	return v, nil
}

// Bytes32 returns a bytes32 argument (or the topic hash of an indexed dynamic one).
func (d *EventData) Bytes32(name string) ([32]byte, error) {
	v, err := d.arg(name)
	if err != nil {
		return [32]byte{}, err
	}
	switch b := v.(type) {
	case [32]byte:
		return b, nil
	case ethcommon.Hash:
		return b, nil
	}
	return [32]byte{}, errors.NewFormatErrorf("%s.%s is %T, not bytes32", d.Event, name, v)
}

func (d *EventData) BigInt(name string) (*big.Int, error) {
	v, err := d.arg(name)
	if err != nil {
		return nil, err
	}
	if b, ok := v.(*big.Int); ok {
		return b, nil
	}
	return nil, errors.NewFormatErrorf("%s.%s is %T, not an integer", d.Event, name, v)
}

func (d *EventData) Address(name string) (ethcommon.Address, error) {
	v, err := d.arg(name)
	if err != nil {
		return ethcommon.Address{}, err
	}
	if a, ok := v.(ethcommon.Address); ok {
		return a, nil
	}
	return ethcommon.Address{}, errors.NewFormatErrorf("%s.%s is %T, not an address", d.Event, name, v)
}

func (d *EventData) String(name string) (string, error) {
	v, err := d.arg(name)
	if err != nil {
		return "", err
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", errors.NewFormatErrorf("%s.%s is %T, not a string", d.Event, name, v)
}
