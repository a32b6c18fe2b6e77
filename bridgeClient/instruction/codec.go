package instruction

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
)

// shape describes which byte ranges a kind uses beyond id and wallet.
type shape int

const (
	shapeValue shape = iota
	shapeValueAgentVault
	shapeValueVault
	shapeValueAgentVaultVault
	shapeValueAddress
	shapeCallHash
)

func shapeOf(k Kind) shape {
	switch k {
	case KindReserveCollateral:
		return shapeValueAgentVault
	case KindTransfer:
		return shapeValueAddress
	case KindRedeem:
		return shapeValue
	case KindFirelightReserveAndDeposit, KindUpshiftReserveAndDeposit:
		return shapeValueAgentVaultVault
	case KindFirelightDeposit, KindFirelightRedeem, KindFirelightClaimWithdraw,
		KindUpshiftDeposit, KindUpshiftRequestRedeem, KindUpshiftClaim:
		return shapeValueVault
	case KindCustom:
		return shapeCallHash
	default:
		panic(fmt.Sprintf("instruction: unhandled kind %s", k))
	}
}

// Encode serialises i into its 32-byte wire form.
func Encode(i Instruction) [Size]byte {
	var out [Size]byte
	l := i.layout()
	out[0] = byte(i.Kind())
	out[1] = l.wallet

	switch shapeOf(i.Kind()) {
	case shapeCallHash:
		copy(out[2:32], l.callHash[:])
		return out
	case shapeValueAddress:
		copy(out[12:32], l.address[:])
	case shapeValueAgentVault:
		binary.BigEndian.PutUint16(out[12:14], l.agentVaultID)
	case shapeValueVault:
		binary.BigEndian.PutUint16(out[14:16], l.vaultID)
	case shapeValueAgentVaultVault:
		binary.BigEndian.PutUint16(out[12:14], l.agentVaultID)
		binary.BigEndian.PutUint16(out[14:16], l.vaultID)
	}
	copy(out[2:12], l.value[:])
	return out
}

// Hex returns the lowercase hex of Encode(i) without a 0x prefix, the form
// carried in payment memos.
func Hex(i Instruction) string {
	b := Encode(i)
	return hex.EncodeToString(b[:])
}

// DecodeHex parses a 64 character hex string, with or without 0x prefix.
func DecodeHex(s string) (Instruction, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.NewFormatErrorf("instruction is not valid hex: %v", err)
	}
	return Decode(b)
}

// Decode parses the wire form. Input must be exactly 32 bytes, start with a
// registered id and keep every byte outside the kind's fields zero.
func Decode(b []byte) (Instruction, error) {
	if len(b) != Size {
		return nil, errors.NewFormatErrorf("instruction must be %d bytes, got %d", Size, len(b))
	}
	k := Kind(b[0])
	if !k.Registered() {
		return nil, errors.NewUnknownInstructionError(b[0])
	}

	var l layout
	l.wallet = b[1]
	var used [Size]bool
	mark := func(from, to int) {
		for i := from; i < to; i++ {
			used[i] = true
		}
	}
	mark(0, 2)

	switch shapeOf(k) {
	case shapeCallHash:
		copy(l.callHash[:], b[2:32])
		mark(2, 32)
	case shapeValueAddress:
		copy(l.value[:], b[2:12])
		copy(l.address[:], b[12:32])
		mark(2, 32)
	case shapeValue:
		copy(l.value[:], b[2:12])
		mark(2, 12)
	case shapeValueAgentVault:
		copy(l.value[:], b[2:12])
		l.agentVaultID = binary.BigEndian.Uint16(b[12:14])
		mark(2, 14)
	case shapeValueVault:
		copy(l.value[:], b[2:12])
		l.vaultID = binary.BigEndian.Uint16(b[14:16])
		mark(2, 12)
		mark(14, 16)
	case shapeValueAgentVaultVault:
		copy(l.value[:], b[2:12])
		l.agentVaultID = binary.BigEndian.Uint16(b[12:14])
		l.vaultID = binary.BigEndian.Uint16(b[14:16])
		mark(2, 16)
	}

	for i, inUse := range used {
		if !inUse && b[i] != 0 {
			return nil, errors.NewFormatErrorf("%s instruction has non-zero byte %d outside its fields", k, i)
		}
	}

	return fromLayout(k, l)
}

func fromLayout(k Kind, l layout) (Instruction, error) {
	switch k {
	case KindReserveCollateral:
		return ReserveCollateral{WalletID: l.wallet, Lots: l.value, AgentVaultID: l.agentVaultID}, nil
	case KindTransfer:
		return Transfer{WalletID: l.wallet, Amount: l.value, Recipient: common.Address(l.address)}, nil
	case KindRedeem:
		return Redeem{WalletID: l.wallet, Lots: l.value}, nil
	case KindFirelightReserveAndDeposit:
		return FirelightReserveAndDeposit{WalletID: l.wallet, Lots: l.value, AgentVaultID: l.agentVaultID, VaultID: l.vaultID}, nil
	case KindFirelightDeposit:
		return FirelightDeposit{WalletID: l.wallet, Assets: l.value, VaultID: l.vaultID}, nil
	case KindFirelightRedeem:
		return FirelightRedeem{WalletID: l.wallet, Shares: l.value, VaultID: l.vaultID}, nil
	case KindFirelightClaimWithdraw:
		return FirelightClaimWithdraw{WalletID: l.wallet, Period: l.value, VaultID: l.vaultID}, nil
	case KindUpshiftReserveAndDeposit:
		return UpshiftReserveAndDeposit{WalletID: l.wallet, Lots: l.value, AgentVaultID: l.agentVaultID, VaultID: l.vaultID}, nil
	case KindUpshiftDeposit:
		return UpshiftDeposit{WalletID: l.wallet, Assets: l.value, VaultID: l.vaultID}, nil
	case KindUpshiftRequestRedeem:
		return UpshiftRequestRedeem{WalletID: l.wallet, Shares: l.value, VaultID: l.vaultID}, nil
	case KindUpshiftClaim:
		packed, ok := l.value.Uint64()
		if !ok {
			return nil, errors.NewRangeError("date", "value is not a YYYYMMDD date")
		}
		d, err := DateFromPacked(packed)
		if err != nil {
			return nil, err
		}
		return UpshiftClaim{WalletID: l.wallet, Date: d, VaultID: l.vaultID}, nil
	case KindCustom:
		return Custom{WalletID: l.wallet, CallHash: l.callHash}, nil
	default:
		panic(fmt.Sprintf("instruction: unhandled kind %s", k))
	}
}

// Field is one named value of a decoded instruction, in wire order.
type Field struct {
	Name  string
	Value string
}

// Describe lists the fields of i for display.
func Describe(i Instruction) []Field {
	fields := []Field{
		{Name: "instruction", Value: fmt.Sprintf("%s (0x%02x)", i.Kind(), byte(i.Kind()))},
		{Name: "walletId", Value: fmt.Sprint(i.Wallet())},
	}
	switch v := i.(type) {
	case ReserveCollateral:
		fields = append(fields, Field{"lots", v.Lots.String()}, Field{"agentVaultId", fmt.Sprint(v.AgentVaultID)})
	case Transfer:
		fields = append(fields, Field{"amount", v.Amount.String()}, Field{"recipient", v.Recipient.Hex()})
	case Redeem:
		fields = append(fields, Field{"lots", v.Lots.String()})
	case FirelightReserveAndDeposit:
		fields = append(fields, Field{"lots", v.Lots.String()}, Field{"agentVaultId", fmt.Sprint(v.AgentVaultID)}, Field{"vaultId", fmt.Sprint(v.VaultID)})
	case UpshiftReserveAndDeposit:
		fields = append(fields, Field{"lots", v.Lots.String()}, Field{"agentVaultId", fmt.Sprint(v.AgentVaultID)}, Field{"vaultId", fmt.Sprint(v.VaultID)})
	case FirelightDeposit:
		fields = append(fields, Field{"assets", v.Assets.String()}, Field{"vaultId", fmt.Sprint(v.VaultID)})
	case UpshiftDeposit:
		fields = append(fields, Field{"assets", v.Assets.String()}, Field{"vaultId", fmt.Sprint(v.VaultID)})
	case FirelightRedeem:
		fields = append(fields, Field{"shares", v.Shares.String()}, Field{"vaultId", fmt.Sprint(v.VaultID)})
	case UpshiftRequestRedeem:
		fields = append(fields, Field{"shares", v.Shares.String()}, Field{"vaultId", fmt.Sprint(v.VaultID)})
	case FirelightClaimWithdraw:
		fields = append(fields, Field{"period", v.Period.String()}, Field{"vaultId", fmt.Sprint(v.VaultID)})
	case UpshiftClaim:
		fields = append(fields, Field{"date", v.Date.String()}, Field{"vaultId", fmt.Sprint(v.VaultID)})
	case Custom:
		fields = append(fields, Field{"callHash", hex.EncodeToString(v.CallHash[:])})
	default:
		panic(fmt.Sprintf("instruction: unhandled type %T", i))
	}
	return fields
}
