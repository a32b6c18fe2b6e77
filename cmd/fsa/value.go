package main

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"math/big"
	"os"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/smartaccounts/bridge-relay/bridgeClient/chains/evm"
	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
)

var weiPerFlr = decimal.New(1, 18)

// parseWei accepts a whole number of wei, optionally suffixed with "wei", or
// a decimal amount suffixed with "flr".
func parseWei(s string) (*big.Int, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	scale := decimal.New(1, 0)
	switch {
	case strings.HasSuffix(raw, "flr"):
		raw, scale = strings.TrimSuffix(raw, "flr"), weiPerFlr
	case strings.HasSuffix(raw, "wei"):
		raw = strings.TrimSuffix(raw, "wei")
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.NewFormatErrorf("invalid value %q: should be a number or end with wei or flr", s)
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, errors.NewFormatErrorf("invalid value %q: should be a number or end with wei or flr", s)
	}
	d = d.Mul(scale)
	if d.IsNegative() {
		return nil, errors.NewRangeError("value", "must not be negative")
	}
	if !d.Equal(d.Truncate(0)) {
		return nil, errors.NewRangeError("value", s+" is not a whole number of wei")
	}
	return d.BigInt(), nil
}

// parseAmount parses a base-10 integer flag such as a lot count.
func parseAmount(field, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, errors.NewFormatErrorf("%s: %q is not a decimal integer", field, s)
	}
	return v, nil
}

func parseCalldata(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.NewFormatErrorf("calldata is not valid hex: %v", err)
	}
	return b, nil
}

// customCallJSON is one entry of a custom instruction file.
type customCallJSON struct {
	TargetContract string `json:"targetContract"`
	Address        string `json:"address"`
	Value          string `json:"value"`
	Data           string `json:"data"`
}

func newCustomCall(address, value, data string) (evm.CustomCall, error) {
	if !ethcommon.IsHexAddress(address) {
		return evm.CustomCall{}, errors.NewFormatErrorf("target %q is not a 20-byte hex address", address)
	}
	call := evm.CustomCall{TargetContract: ethcommon.HexToAddress(address), Value: new(big.Int)}
	var err error
	if value != "" {
		if call.Value, err = parseWei(value); err != nil {
			return evm.CustomCall{}, err
		}
	}
	if call.Data, err = parseCalldata(data); err != nil {
		return evm.CustomCall{}, err
	}
	return call, nil
}

// customCallsFromFlags zips the repeated address, value and data flags. Value
// and data may be omitted for every call; otherwise the counts must match.
func customCallsFromFlags(addresses, values, data []string) ([]evm.CustomCall, error) {
	if len(values) != 0 && len(values) != len(addresses) {
		return nil, errors.NewFormatErrorf("got %d addresses but %d values", len(addresses), len(values))
	}
	if len(data) != 0 && len(data) != len(addresses) {
		return nil, errors.NewFormatErrorf("got %d addresses but %d calldata entries", len(addresses), len(data))
	}
	calls := make([]evm.CustomCall, 0, len(addresses))
	for i, addr := range addresses {
		var value, calldata string
		if len(values) > 0 {
			value = values[i]
		}
		if len(data) > 0 {
			calldata = data[i]
		}
		call, err := newCustomCall(addr, value, calldata)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	return calls, nil
}

// customCallsFromJSON reads either one call object or an array of them.
func customCallsFromJSON(r io.Reader) ([]evm.CustomCall, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read custom instruction")
	}
	raw = []byte(strings.TrimSpace(string(raw)))

	var entries []customCallJSON
	if len(raw) > 0 && raw[0] == '{' {
		var single customCallJSON
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, errors.NewFormatErrorf("custom instruction is not valid JSON: %v", err)
		}
		entries = append(entries, single)
	} else if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, errors.NewFormatErrorf("custom instruction is not valid JSON: %v", err)
	}

	calls := make([]evm.CustomCall, 0, len(entries))
	for _, e := range entries {
		target := e.TargetContract
		if target == "" {
			target = e.Address
		}
		call, err := newCustomCall(target, e.Value, e.Data)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	return calls, nil
}

// openInput opens path for reading, with "-" meaning stdin.
func openInput(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	return f, nil
}
