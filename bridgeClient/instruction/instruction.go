// Package instruction implements the 32-byte instruction memo carried by
// ledger payments and executed by the operator on the smart-contract chain.
//
// Layout: byte 0 is the instruction id, byte 1 the wallet id, bytes 2-12 a
// 10-byte big-endian value, bytes 12-14 and 14-16 optional 16-bit ids. The
// transfer variant keeps a 20-byte address in bytes 12-32 and the custom
// variant a 30-byte call hash in bytes 2-32. Unused bytes are zero.
package instruction

import "fmt"

// Size is the encoded length of every instruction.
const Size = 32

// Kind is the instruction id stored in byte 0.
type Kind byte

const (
	KindReserveCollateral          Kind = 0x00
	KindTransfer                   Kind = 0x01
	KindRedeem                     Kind = 0x02
	KindFirelightReserveAndDeposit Kind = 0x10
	KindFirelightDeposit           Kind = 0x11
	KindFirelightRedeem            Kind = 0x12
	KindFirelightClaimWithdraw     Kind = 0x13
	KindUpshiftReserveAndDeposit   Kind = 0x20
	KindUpshiftDeposit             Kind = 0x21
	KindUpshiftRequestRedeem       Kind = 0x22
	KindUpshiftClaim               Kind = 0x23
	KindCustom                     Kind = 0xff
)

var kindNames = map[Kind]string{
	KindReserveCollateral:          "reserve-collateral",
	KindTransfer:                   "transfer",
	KindRedeem:                     "redeem",
	KindFirelightReserveAndDeposit: "firelight-reserve-and-deposit",
	KindFirelightDeposit:           "firelight-deposit",
	KindFirelightRedeem:            "firelight-redeem",
	KindFirelightClaimWithdraw:     "firelight-claim-withdraw",
	KindUpshiftReserveAndDeposit:   "upshift-reserve-and-deposit",
	KindUpshiftDeposit:             "upshift-deposit",
	KindUpshiftRequestRedeem:       "upshift-request-redeem",
	KindUpshiftClaim:               "upshift-claim",
	KindCustom:                     "custom",
}

// AllKinds lists every registered instruction kind in id order.
func AllKinds() []Kind {
	return []Kind{
		KindReserveCollateral,
		KindTransfer,
		KindRedeem,
		KindFirelightReserveAndDeposit,
		KindFirelightDeposit,
		KindFirelightRedeem,
		KindFirelightClaimWithdraw,
		KindUpshiftReserveAndDeposit,
		KindUpshiftDeposit,
		KindUpshiftRequestRedeem,
		KindUpshiftClaim,
		KindCustom,
	}
}

// Registered reports whether k names a known variant.
func (k Kind) Registered() bool {
	_, ok := kindNames[k]
	return ok
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%02x)", byte(k))
}

// ID is the numeric id used by the controller's fee table.
func (k Kind) ID() uint64 {
	return uint64(k)
}

// Instruction is one of the variants defined in this package. The set is
// closed: only types in this package implement it.
type Instruction interface {
	Kind() Kind
	Wallet() uint8
	layout() layout
}

// layout is the positional view shared by encoder and decoder.
type layout struct {
	wallet       uint8
	value        Uint80
	agentVaultID uint16
	vaultID      uint16
	address      [20]byte
	callHash     [30]byte
}
