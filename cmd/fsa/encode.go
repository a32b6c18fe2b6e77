package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
	"github.com/smartaccounts/bridge-relay/bridgeClient/instruction"
)

// encodeFlags holds every flag an encode subcommand may register.
type encodeFlags struct {
	wallet       uint64
	value        string
	agentVaultID uint64
	vaultID      uint64
	recipient    string
	date         string
	callHash     string
}

type encodeFlag int

const (
	flagValue encodeFlag = iota
	flagAgentVaultID
	flagVaultID
	flagRecipient
	flagDate
	flagCallHash
)

// encoder describes one encode subcommand: the flags it takes and how the
// instruction is built from them. valueName labels the 80-bit value field.
type encoder struct {
	kind      instruction.Kind
	use       string
	short     string
	valueName string
	flags     []encodeFlag
	build     func(f *encodeFlags) (instruction.Instruction, error)
}

func encoders() []encoder {
	return []encoder{
		{
			kind: instruction.KindReserveCollateral, use: "reserve", short: "Reserve collateral for a mint",
			valueName: "lots", flags: []encodeFlag{flagValue, flagAgentVaultID},
			build: func(f *encodeFlags) (instruction.Instruction, error) {
				lots, err := parseAmount("lots", f.value)
				if err != nil {
					return nil, err
				}
				return asInstruction(instruction.NewReserveCollateral(f.wallet, lots, f.agentVaultID))
			},
		},
		{
			kind: instruction.KindTransfer, use: "transfer", short: "Transfer fassets to an address",
			valueName: "amount", flags: []encodeFlag{flagValue, flagRecipient},
			build: func(f *encodeFlags) (instruction.Instruction, error) {
				amount, err := parseAmount("amount", f.value)
				if err != nil {
					return nil, err
				}
				return asInstruction(instruction.NewTransfer(f.wallet, amount, f.recipient))
			},
		},
		{
			kind: instruction.KindRedeem, use: "redeem", short: "Redeem fassets",
			valueName: "lots", flags: []encodeFlag{flagValue},
			build: func(f *encodeFlags) (instruction.Instruction, error) {
				lots, err := parseAmount("lots", f.value)
				if err != nil {
					return nil, err
				}
				return asInstruction(instruction.NewRedeem(f.wallet, lots))
			},
		},
		reserveAndDepositEncoder(instruction.KindFirelightReserveAndDeposit, instruction.NewFirelightReserveAndDeposit),
		reserveAndDepositEncoder(instruction.KindUpshiftReserveAndDeposit, instruction.NewUpshiftReserveAndDeposit),
		vaultEncoder(instruction.KindFirelightDeposit, "assets", "Deposit into a Firelight vault", instruction.NewFirelightDeposit),
		vaultEncoder(instruction.KindFirelightRedeem, "shares", "Redeem shares of a Firelight vault", instruction.NewFirelightRedeem),
		vaultEncoder(instruction.KindFirelightClaimWithdraw, "period", "Claim a Firelight withdrawal", instruction.NewFirelightClaimWithdraw),
		vaultEncoder(instruction.KindUpshiftDeposit, "assets", "Deposit into an Upshift vault", instruction.NewUpshiftDeposit),
		vaultEncoder(instruction.KindUpshiftRequestRedeem, "shares", "Request redemption from an Upshift vault", instruction.NewUpshiftRequestRedeem),
		{
			kind: instruction.KindUpshiftClaim, use: "upshift-claim", short: "Claim an Upshift redemption",
			flags: []encodeFlag{flagDate, flagVaultID},
			build: func(f *encodeFlags) (instruction.Instruction, error) {
				date, err := instruction.ParseDate(f.date)
				if err != nil {
					return nil, err
				}
				return asInstruction(instruction.NewUpshiftClaim(f.wallet, date, f.vaultID))
			},
		},
		{
			kind: instruction.KindCustom, use: "custom", short: "Wrap a registered custom call hash",
			flags: []encodeFlag{flagCallHash},
			build: func(f *encodeFlags) (instruction.Instruction, error) {
				encoded, err := parseCallHash(f.callHash)
				if err != nil {
					return nil, err
				}
				return asInstruction(instruction.NewCustom(f.wallet, encoded))
			},
		},
	}
}

func reserveAndDepositEncoder[T instruction.Instruction](kind instruction.Kind, build func(uint64, *big.Int, uint64, uint64) (T, error)) encoder {
	return encoder{
		kind: kind, use: kind.String(), short: "Reserve collateral and deposit the minted fassets",
		valueName: "lots", flags: []encodeFlag{flagValue, flagAgentVaultID, flagVaultID},
		build: func(f *encodeFlags) (instruction.Instruction, error) {
			lots, err := parseAmount("lots", f.value)
			if err != nil {
				return nil, err
			}
			return asInstruction(build(f.wallet, lots, f.agentVaultID, f.vaultID))
		},
	}
}

func vaultEncoder[T instruction.Instruction](kind instruction.Kind, valueName, short string, build func(uint64, *big.Int, uint64) (T, error)) encoder {
	return encoder{
		kind: kind, use: kind.String(), short: short,
		valueName: valueName, flags: []encodeFlag{flagValue, flagVaultID},
		build: func(f *encodeFlags) (instruction.Instruction, error) {
			v, err := parseAmount(valueName, f.value)
			if err != nil {
				return nil, err
			}
			return asInstruction(build(f.wallet, v, f.vaultID))
		},
	}
}

func asInstruction[T instruction.Instruction](i T, err error) (instruction.Instruction, error) {
	if err != nil {
		return nil, err
	}
	return i, nil
}

// parseCallHash accepts the 32-byte value returned by the controller's
// encodeCustomInstruction or the bare 30-byte call hash.
func parseCallHash(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X"))
	if err != nil {
		return out, errors.NewFormatErrorf("call hash is not valid hex: %v", err)
	}
	switch len(b) {
	case 32:
		copy(out[:], b)
	case 30:
		copy(out[2:], b)
	default:
		return out, errors.NewFormatErrorf("call hash must be 30 or 32 bytes, got %d", len(b))
	}
	return out, nil
}

func encodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode an instruction memo without sending it",
	}
	for _, e := range encoders() {
		cmd.AddCommand(e.command())
	}
	return cmd
}

func (e encoder) command() *cobra.Command {
	f := &encodeFlags{}

	cmd := &cobra.Command{
		Use:   e.use,
		Short: fmt.Sprintf("%s (0x%02x)", e.short, byte(e.kind)),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ins, err := e.build(f)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), instruction.Hex(ins))
			return nil
		},
	}

	cmd.Flags().Uint64Var(&f.wallet, "wallet", 0, "wallet id")
	for _, fl := range e.flags {
		switch fl {
		case flagValue:
			cmd.Flags().StringVar(&f.value, e.valueName, "", e.valueName)
			_ = cmd.MarkFlagRequired(e.valueName)
		case flagAgentVaultID:
			cmd.Flags().Uint64Var(&f.agentVaultID, "agent-vault-id", 0, "agent vault id")
		case flagVaultID:
			cmd.Flags().Uint64Var(&f.vaultID, "vault-id", 0, "vault id")
			_ = cmd.MarkFlagRequired("vault-id")
		case flagRecipient:
			cmd.Flags().StringVar(&f.recipient, "recipient", "", "recipient address")
			_ = cmd.MarkFlagRequired("recipient")
		case flagDate:
			cmd.Flags().StringVar(&f.date, "date", "", "date as YYYY-MM-DD")
			_ = cmd.MarkFlagRequired("date")
		case flagCallHash:
			cmd.Flags().StringVar(&f.callHash, "call-hash", "", "hex call hash of a registered custom instruction")
			_ = cmd.MarkFlagRequired("call-hash")
		}
	}
	return cmd
}

func decodeCmd() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode an instruction memo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ins, err := instruction.DecodeHex(args[0])
			if err != nil {
				return err
			}
			return printInstruction(cmd.OutOrStdout(), ins, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", OutputFormatText, "Output format (text|yaml|json)")
	return cmd
}

func printInstruction(w io.Writer, ins instruction.Instruction, format string) error {
	fields := instruction.Describe(ins)
	if format != OutputFormatText {
		m := make(map[string]string, len(fields))
		for _, f := range fields {
			m[f.Name] = f.Value
		}
		return printOutput(w, m, format)
	}
	for _, f := range fields {
		fmt.Fprintf(w, "%-13s %s\n", f.Name+":", f.Value)
	}
	return nil
}
