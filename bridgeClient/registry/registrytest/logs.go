// Package registrytest builds raw logs for registered events in tests.
package registrytest

import (
	"fmt"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/smartaccounts/bridge-relay/bridgeClient/registry"
)

// Log encodes args as the log event would have emitted them. Missing
// arguments are an error.
func Log(event *registry.Event, block uint64, args map[string]interface{}) (types.Log, error) {
	topics := []ethcommon.Hash{event.Signature()}
	var values []interface{}
	for _, in := range event.Inputs() {
		v, ok := args[in.Name]
		if !ok {
			return types.Log{}, fmt.Errorf("missing argument %s", in.Name)
		}
		if !in.Indexed {
			values = append(values, v)
			continue
		}
		topic, err := toTopic(v)
		if err != nil {
			return types.Log{}, fmt.Errorf("argument %s: %w", in.Name, err)
		}
		topics = append(topics, topic)
	}

	data, err := event.Inputs().NonIndexed().Pack(values...)
	if err != nil {
		return types.Log{}, err
	}

	return types.Log{
		Address:     event.Contract.Address,
		Topics:      topics,
		Data:        data,
		BlockNumber: block,
		TxHash:      crypto.Keccak256Hash(topics[0].Bytes(), new(big.Int).SetUint64(block).Bytes()),
	}, nil
}

// MustLog panics on encoding failure.
func MustLog(event *registry.Event, block uint64, args map[string]interface{}) types.Log {
	l, err := Log(event, block, args)
	if err != nil {
		panic(err)
	}
	return l
}

func toTopic(v interface{}) (ethcommon.Hash, error) {
	switch t := v.(type) {
	case [32]byte:
		return ethcommon.Hash(t), nil
	case ethcommon.Hash:
		return t, nil
	case *big.Int:
		return ethcommon.BigToHash(t), nil
	case ethcommon.Address:
		return ethcommon.BytesToHash(t.Bytes()), nil
	case string:
		return crypto.Keccak256Hash([]byte(t)), nil
	}
	return ethcommon.Hash{}, fmt.Errorf("unsupported indexed type %T", v)
}
