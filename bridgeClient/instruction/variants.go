package instruction

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
)

// ReserveCollateral reserves agent collateral for minting Lots lots.
type ReserveCollateral struct {
	WalletID     uint8
	Lots         Uint80
	AgentVaultID uint16
}

// Transfer moves Amount to Recipient on the chain.
type Transfer struct {
	WalletID  uint8
	Amount    Uint80
	Recipient common.Address
}

// Redeem redeems Lots lots back to the ledger.
type Redeem struct {
	WalletID uint8
	Lots     Uint80
}

// FirelightReserveAndDeposit mints and deposits the result into a Firelight vault.
type FirelightReserveAndDeposit struct {
	WalletID     uint8
	Lots         Uint80
	AgentVaultID uint16
	VaultID      uint16
}

type FirelightDeposit struct {
	WalletID uint8
	Assets   Uint80
	VaultID  uint16
}

type FirelightRedeem struct {
	WalletID uint8
	Shares   Uint80
	VaultID  uint16
}

// FirelightClaimWithdraw claims the withdrawal queued for Period.
type FirelightClaimWithdraw struct {
	WalletID uint8
	Period   Uint80
	VaultID  uint16
}

type UpshiftReserveAndDeposit struct {
	WalletID     uint8
	Lots         Uint80
	AgentVaultID uint16
	VaultID      uint16
}

type UpshiftDeposit struct {
	WalletID uint8
	Assets   Uint80
	VaultID  uint16
}

type UpshiftRequestRedeem struct {
	WalletID uint8
	Shares   Uint80
	VaultID  uint16
}

// UpshiftClaim claims redeemed assets unlocked on Date.
type UpshiftClaim struct {
	WalletID uint8
	Date     Date
	VaultID  uint16
}

// Custom executes a call batch previously registered on the controller.
type Custom struct {
	WalletID uint8
	CallHash [30]byte
}

func (ReserveCollateral) Kind() Kind          { return KindReserveCollateral }
func (Transfer) Kind() Kind                   { return KindTransfer }
func (Redeem) Kind() Kind                     { return KindRedeem }
func (FirelightReserveAndDeposit) Kind() Kind { return KindFirelightReserveAndDeposit }
func (FirelightDeposit) Kind() Kind           { return KindFirelightDeposit }
func (FirelightRedeem) Kind() Kind            { return KindFirelightRedeem }
func (FirelightClaimWithdraw) Kind() Kind     { return KindFirelightClaimWithdraw }
func (UpshiftReserveAndDeposit) Kind() Kind   { return KindUpshiftReserveAndDeposit }
func (UpshiftDeposit) Kind() Kind             { return KindUpshiftDeposit }
func (UpshiftRequestRedeem) Kind() Kind       { return KindUpshiftRequestRedeem }
func (UpshiftClaim) Kind() Kind               { return KindUpshiftClaim }
func (Custom) Kind() Kind                     { return KindCustom }

func (i ReserveCollateral) Wallet() uint8          { return i.WalletID }
func (i Transfer) Wallet() uint8                   { return i.WalletID }
func (i Redeem) Wallet() uint8                     { return i.WalletID }
func (i FirelightReserveAndDeposit) Wallet() uint8 { return i.WalletID }
func (i FirelightDeposit) Wallet() uint8           { return i.WalletID }
func (i FirelightRedeem) Wallet() uint8            { return i.WalletID }
func (i FirelightClaimWithdraw) Wallet() uint8     { return i.WalletID }
func (i UpshiftReserveAndDeposit) Wallet() uint8   { return i.WalletID }
func (i UpshiftDeposit) Wallet() uint8             { return i.WalletID }
func (i UpshiftRequestRedeem) Wallet() uint8       { return i.WalletID }
func (i UpshiftClaim) Wallet() uint8               { return i.WalletID }
func (i Custom) Wallet() uint8                     { return i.WalletID }

func (i ReserveCollateral) layout() layout {
	return layout{wallet: i.WalletID, value: i.Lots, agentVaultID: i.AgentVaultID}
}

func (i Transfer) layout() layout {
	return layout{wallet: i.WalletID, value: i.Amount, address: i.Recipient}
}

func (i Redeem) layout() layout {
	return layout{wallet: i.WalletID, value: i.Lots}
}

func (i FirelightReserveAndDeposit) layout() layout {
	return layout{wallet: i.WalletID, value: i.Lots, agentVaultID: i.AgentVaultID, vaultID: i.VaultID}
}

func (i FirelightDeposit) layout() layout {
	return layout{wallet: i.WalletID, value: i.Assets, vaultID: i.VaultID}
}

func (i FirelightRedeem) layout() layout {
	return layout{wallet: i.WalletID, value: i.Shares, vaultID: i.VaultID}
}

func (i FirelightClaimWithdraw) layout() layout {
	return layout{wallet: i.WalletID, value: i.Period, vaultID: i.VaultID}
}

func (i UpshiftReserveAndDeposit) layout() layout {
	return layout{wallet: i.WalletID, value: i.Lots, agentVaultID: i.AgentVaultID, vaultID: i.VaultID}
}

func (i UpshiftDeposit) layout() layout {
	return layout{wallet: i.WalletID, value: i.Assets, vaultID: i.VaultID}
}

func (i UpshiftRequestRedeem) layout() layout {
	return layout{wallet: i.WalletID, value: i.Shares, vaultID: i.VaultID}
}

func (i UpshiftClaim) layout() layout {
	return layout{wallet: i.WalletID, value: Uint80FromUint64(i.Date.Packed()), vaultID: i.VaultID}
}

func (i Custom) layout() layout {
	return layout{wallet: i.WalletID, callHash: i.CallHash}
}

// Validated constructors. Every integer argument is range checked against
// its wire width; failures name the offending field.

func NewReserveCollateral(wallet uint64, lots *big.Int, agentVaultID uint64) (ReserveCollateral, error) {
	var i ReserveCollateral
	var err error
	if i.WalletID, err = walletID(wallet); err != nil {
		return i, err
	}
	if i.Lots, err = Uint80FromBig("lots", lots); err != nil {
		return i, err
	}
	i.AgentVaultID, err = id16("agentVaultId", agentVaultID)
	return i, err
}

// NewTransfer accepts the recipient as a hex string with optional 0x prefix.
func NewTransfer(wallet uint64, amount *big.Int, recipient string) (Transfer, error) {
	var i Transfer
	var err error
	if i.WalletID, err = walletID(wallet); err != nil {
		return i, err
	}
	if i.Amount, err = Uint80FromBig("amount", amount); err != nil {
		return i, err
	}
	if !common.IsHexAddress(recipient) {
		return i, errors.NewFormatErrorf("recipient %q is not a 20-byte hex address", recipient)
	}
	i.Recipient = common.HexToAddress(recipient)
	return i, nil
}

func NewRedeem(wallet uint64, lots *big.Int) (Redeem, error) {
	var i Redeem
	var err error
	if i.WalletID, err = walletID(wallet); err != nil {
		return i, err
	}
	i.Lots, err = Uint80FromBig("lots", lots)
	return i, err
}

func NewFirelightReserveAndDeposit(wallet uint64, lots *big.Int, agentVaultID, vaultID uint64) (FirelightReserveAndDeposit, error) {
	l, err := reserveAndDepositLayout(wallet, lots, agentVaultID, vaultID)
	return FirelightReserveAndDeposit{WalletID: l.wallet, Lots: l.value, AgentVaultID: l.agentVaultID, VaultID: l.vaultID}, err
}

func NewUpshiftReserveAndDeposit(wallet uint64, lots *big.Int, agentVaultID, vaultID uint64) (UpshiftReserveAndDeposit, error) {
	l, err := reserveAndDepositLayout(wallet, lots, agentVaultID, vaultID)
	return UpshiftReserveAndDeposit{WalletID: l.wallet, Lots: l.value, AgentVaultID: l.agentVaultID, VaultID: l.vaultID}, err
}

func NewFirelightDeposit(wallet uint64, assets *big.Int, vaultID uint64) (FirelightDeposit, error) {
	l, err := vaultLayout(wallet, "assets", assets, vaultID)
	return FirelightDeposit{WalletID: l.wallet, Assets: l.value, VaultID: l.vaultID}, err
}

func NewFirelightRedeem(wallet uint64, shares *big.Int, vaultID uint64) (FirelightRedeem, error) {
	l, err := vaultLayout(wallet, "shares", shares, vaultID)
	return FirelightRedeem{WalletID: l.wallet, Shares: l.value, VaultID: l.vaultID}, err
}

func NewFirelightClaimWithdraw(wallet uint64, period *big.Int, vaultID uint64) (FirelightClaimWithdraw, error) {
	l, err := vaultLayout(wallet, "period", period, vaultID)
	return FirelightClaimWithdraw{WalletID: l.wallet, Period: l.value, VaultID: l.vaultID}, err
}

func NewUpshiftDeposit(wallet uint64, assets *big.Int, vaultID uint64) (UpshiftDeposit, error) {
	l, err := vaultLayout(wallet, "assets", assets, vaultID)
	return UpshiftDeposit{WalletID: l.wallet, Assets: l.value, VaultID: l.vaultID}, err
}

func NewUpshiftRequestRedeem(wallet uint64, shares *big.Int, vaultID uint64) (UpshiftRequestRedeem, error) {
	l, err := vaultLayout(wallet, "shares", shares, vaultID)
	return UpshiftRequestRedeem{WalletID: l.wallet, Shares: l.value, VaultID: l.vaultID}, err
}

func NewUpshiftClaim(wallet uint64, date Date, vaultID uint64) (UpshiftClaim, error) {
	var i UpshiftClaim
	var err error
	if i.WalletID, err = walletID(wallet); err != nil {
		return i, err
	}
	if i.Date, err = NewDate(date.Year, date.Month, date.Day); err != nil {
		return i, err
	}
	i.VaultID, err = id16("vaultId", vaultID)
	return i, err
}

// NewCustom builds the custom instruction from the 32-byte hash returned by the
// controller's encodeCustomInstruction; its two leading bytes are dropped.
func NewCustom(wallet uint64, encoded [32]byte) (Custom, error) {
	var i Custom
	var err error
	if i.WalletID, err = walletID(wallet); err != nil {
		return i, err
	}
	copy(i.CallHash[:], encoded[2:])
	return i, nil
}

func walletID(v uint64) (uint8, error) {
	if v > 0xff {
		return 0, errors.NewRangeError("walletId", "must be in [0, 255]")
	}
	return uint8(v), nil
}

func id16(field string, v uint64) (uint16, error) {
	if v > 0xffff {
		return 0, errors.NewRangeError(field, "must be in [0, 65535]")
	}
	return uint16(v), nil
}

func vaultLayout(wallet uint64, field string, value *big.Int, vaultID uint64) (layout, error) {
	var l layout
	var err error
	if l.wallet, err = walletID(wallet); err != nil {
		return l, err
	}
	if l.value, err = Uint80FromBig(field, value); err != nil {
		return l, err
	}
	l.vaultID, err = id16("vaultId", vaultID)
	return l, err
}

func reserveAndDepositLayout(wallet uint64, lots *big.Int, agentVaultID, vaultID uint64) (layout, error) {
	l, err := vaultLayout(wallet, "lots", lots, vaultID)
	if err != nil {
		return l, err
	}
	l.agentVaultID, err = id16("agentVaultId", agentVaultID)
	return l, err
}
