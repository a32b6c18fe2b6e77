package xrpl

import (
	"bytes"
	"crypto/sha256"

	"github.com/mr-tron/base58"

	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
)

const (
	accountIDVersion = 0x00
	accountIDLength  = 20
	checksumLength   = 4
)

var rippleAlphabet = base58.NewAlphabet("rpshnaf39wBUDNEGHJKLM4PQRST7VWXYZ2bcdeCg65jkm8oFqi1tuvAxyz")

func checksum(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:checksumLength]
}

// DecodeAddress returns the account id of a classic address.
func DecodeAddress(address string) ([accountIDLength]byte, error) {
	var id [accountIDLength]byte
	if address == "" || address[0] != 'r' {
		return id, errors.NewFormatErrorf("ledger address %q must start with 'r'", address)
	}
	raw, err := base58.DecodeAlphabet(address, rippleAlphabet)
	if err != nil {
		return id, errors.NewFormatErrorf("ledger address %q is not base58: %v", address, err)
	}
	if len(raw) != 1+accountIDLength+checksumLength || raw[0] != accountIDVersion {
		return id, errors.NewFormatErrorf("ledger address %q has the wrong length or version", address)
	}
	body, sum := raw[:1+accountIDLength], raw[1+accountIDLength:]
	if !bytes.Equal(checksum(body), sum) {
		return id, errors.NewFormatErrorf("ledger address %q has a bad checksum", address)
	}
	copy(id[:], body[1:])
	return id, nil
}

// EncodeAddress is the classic address of an account id.
func EncodeAddress(id [accountIDLength]byte) string {
	body := append([]byte{accountIDVersion}, id[:]...)
	return base58.EncodeAlphabet(append(body, checksum(body)...), rippleAlphabet)
}

func ValidateAddress(address string) error {
	_, err := DecodeAddress(address)
	return err
}
