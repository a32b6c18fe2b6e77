package main

import (
	"context"
	"fmt"
	"io"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/smartaccounts/bridge-relay/bridgeClient/bridge"
	"github.com/smartaccounts/bridge-relay/bridgeClient/chains/evm"
	"github.com/smartaccounts/bridge-relay/bridgeClient/core"
	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
	"github.com/smartaccounts/bridge-relay/bridgeClient/instruction"
)

// bridgeOptions are the flags shared by the bridge subcommands.
type bridgeOptions struct {
	silent bool
	noWait bool
	wallet uint64
}

type flowFunc func(ctx context.Context, orch *bridge.Orchestrator) (*bridge.Result, error)

func bridgeCmd(root *rootOptions) *cobra.Command {
	opts := &bridgeOptions{}

	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "Send bridge requests from the ledger account",
	}

	cmd.PersistentFlags().BoolVarP(&opts.silent, "silent", "s", false, "print only the ledger transaction hash")
	cmd.PersistentFlags().BoolVarP(&opts.noWait, "no-wait", "W", false, "don't wait for bridge confirmation")
	cmd.PersistentFlags().Uint64Var(&opts.wallet, "wallet", 0, "wallet id carried in the instruction")

	cmd.AddCommand(
		depositCmd(root, opts),
		withdrawCmd(root, opts),
		redeemCmd(root, opts),
		mintCmd(root, opts),
		claimWithdrawCmd(root, opts),
		customCmd(root, opts),
		instructionCmd(root, opts),
	)
	return cmd
}

// run builds the runtime, executes one flow and prints its outcome.
func (b *bridgeOptions) run(cmd *cobra.Command, root *rootOptions, flow flowFunc) error {
	rt, err := root.runtime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()
	return b.runWith(cmd, rt, flow)
}

func (b *bridgeOptions) runWith(cmd *cobra.Command, rt *core.Runtime, flow flowFunc) error {
	out := cmd.OutOrStdout()
	reporters := bridge.Reporters{bridge.NewLogReporter(rt.Logger)}
	if !b.silent {
		reporters = append(reporters, bridge.NewTextReporter(out))
	}

	orch, err := rt.Orchestrator(reporters, b.noWait)
	if err != nil {
		return err
	}
	res, err := flow(cmd.Context(), orch)
	if err != nil {
		return err
	}
	return printResult(out, res, b.silent)
}

// printResult writes the final summary. A timed out flow is an error so that
// scripts can tell it apart from a bridged one.
func printResult(w io.Writer, res *bridge.Result, silent bool) error {
	if silent {
		fmt.Fprintln(w, res.LedgerTxHash)
	} else {
		fmt.Fprintf(w, "%s %s: %s\n", res.Flow, res.OperationID, res.Status)
		if res.PersonalAccount != (ethcommon.Address{}) {
			fmt.Fprintf(w, "  personal account: %s\n", res.PersonalAccount.Hex())
		}
		if res.Reservation != nil {
			fmt.Fprintf(w, "  collateral reservation: %s\n", res.Reservation.CollateralReservationID)
		}
	}
	if res.Status == bridge.StatusTimedOut {
		return fmt.Errorf("%s %s timed out waiting for the bridge", res.Flow, res.LedgerTxHash)
	}
	return nil
}

func depositCmd(root *rootOptions, opts *bridgeOptions) *cobra.Command {
	var (
		amount  string
		vaultID uint64
	)

	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Deposit fassets into a vault",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			assets, err := parseAmount("amount", amount)
			if err != nil {
				return err
			}
			return opts.run(cmd, root, func(ctx context.Context, orch *bridge.Orchestrator) (*bridge.Result, error) {
				return orch.Deposit(ctx, bridge.DepositParams{Wallet: opts.wallet, VaultID: vaultID, Assets: assets})
			})
		},
	}

	cmd.Flags().StringVarP(&amount, "amount", "a", "", "number of tokens to deposit to the vault")
	cmd.Flags().Uint64Var(&vaultID, "vault-id", 1, "vault id registered on the controller")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func withdrawCmd(root *rootOptions, opts *bridgeOptions) *cobra.Command {
	var (
		amount  string
		vaultID uint64
	)

	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Withdraw fassets from a vault",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			shares, err := parseAmount("amount", amount)
			if err != nil {
				return err
			}
			return opts.run(cmd, root, func(ctx context.Context, orch *bridge.Orchestrator) (*bridge.Result, error) {
				return orch.Withdraw(ctx, bridge.WithdrawParams{Wallet: opts.wallet, VaultID: vaultID, Shares: shares})
			})
		},
	}

	cmd.Flags().StringVarP(&amount, "amount", "a", "", "number of shares to withdraw from the vault")
	cmd.Flags().Uint64Var(&vaultID, "vault-id", 1, "vault id registered on the controller")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func redeemCmd(root *rootOptions, opts *bridgeOptions) *cobra.Command {
	var lots string

	cmd := &cobra.Command{
		Use:   "redeem",
		Short: "Redeem fassets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseAmount("lots", lots)
			if err != nil {
				return err
			}
			return opts.run(cmd, root, func(ctx context.Context, orch *bridge.Orchestrator) (*bridge.Result, error) {
				return orch.Redeem(ctx, bridge.RedeemParams{Wallet: opts.wallet, Lots: n})
			})
		},
	}

	cmd.Flags().StringVarP(&lots, "lots", "l", "", "number of lots to redeem")
	_ = cmd.MarkFlagRequired("lots")
	return cmd
}

// mintFlags selects the agent either by vault address or by its id.
type mintFlags struct {
	agentAddress string
	agentVaultID uint64
	lots         string
}

func (f *mintFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.agentAddress, "agent-address", "a", "", "agent vault address to mint with")
	cmd.Flags().Uint64Var(&f.agentVaultID, "agent-vault-id", 0, "agent vault id, instead of --agent-address")
	cmd.MarkFlagsMutuallyExclusive("agent-address", "agent-vault-id")
}

func (f *mintFlags) params(cmd *cobra.Command, wallet uint64) (bridge.MintParams, error) {
	lots, err := parseAmount("lots", f.lots)
	if err != nil {
		return bridge.MintParams{}, err
	}
	p := bridge.MintParams{Wallet: wallet, Lots: lots}
	switch {
	case cmd.Flags().Changed("agent-vault-id"):
		id := f.agentVaultID
		p.AgentVaultID = &id
	case f.agentAddress != "":
		if !ethcommon.IsHexAddress(f.agentAddress) {
			return p, errors.NewFormatErrorf("agent address %q is not a 20-byte hex address", f.agentAddress)
		}
		p.AgentVault = ethcommon.HexToAddress(f.agentAddress)
	default:
		return p, errors.NewRangeError("agent", "one of --agent-address or --agent-vault-id is required")
	}
	return p, nil
}

func mintCmd(root *rootOptions, opts *bridgeOptions) *cobra.Command {
	flags := &mintFlags{}

	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Reserve collateral and send the underlying payment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := flags.params(cmd, opts.wallet)
			if err != nil {
				return err
			}
			return opts.run(cmd, root, func(ctx context.Context, orch *bridge.Orchestrator) (*bridge.Result, error) {
				return orch.Mint(ctx, p)
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&flags.lots, "lots", "l", "", "number of lots to mint")
	_ = cmd.MarkFlagRequired("lots")
	return cmd
}

func claimWithdrawCmd(root *rootOptions, opts *bridgeOptions) *cobra.Command {
	var (
		epoch   string
		date    string
		vaultID uint64
	)

	cmd := &cobra.Command{
		Use:   "claim-withdraw",
		Short: "Claim a queued withdrawal from a vault",
		Long: "Claim a queued withdrawal. Firelight vaults take the reward epoch (--reward-epoch), " +
			"Upshift vaults the request date (--date YYYY-MM-DD).",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := bridge.ClaimWithdrawParams{Wallet: opts.wallet, VaultID: vaultID}
			var err error
			if epoch != "" {
				if p.Period, err = parseAmount("reward-epoch", epoch); err != nil {
					return err
				}
			}
			if date != "" {
				if p.Date, err = instruction.ParseDate(date); err != nil {
					return err
				}
			}
			return opts.run(cmd, root, func(ctx context.Context, orch *bridge.Orchestrator) (*bridge.Result, error) {
				return orch.ClaimWithdraw(ctx, p)
			})
		},
	}

	cmd.Flags().StringVarP(&epoch, "reward-epoch", "r", "", "reward epoch to claim the withdrawal for")
	cmd.Flags().StringVar(&date, "date", "", "withdrawal request date for Upshift vaults")
	cmd.Flags().Uint64Var(&vaultID, "vault-id", 1, "vault id registered on the controller")
	cmd.MarkFlagsOneRequired("reward-epoch", "date")
	return cmd
}

func customCmd(root *rootOptions, opts *bridgeOptions) *cobra.Command {
	var addresses, values, data []string

	cmd := &cobra.Command{
		Use:   "custom [json-file]",
		Short: "Register and send a custom instruction",
		Long: "Register a batch of contract calls on the controller and send the matching custom instruction. " +
			"Calls come from repeated -a/-v/-d flags or from a JSON file ('-' reads stdin) holding " +
			`objects of the form {"targetContract": "0x..", "value": "1flr", "data": "0x.."}.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			calls, err := customCalls(cmd, args, addresses, values, data)
			if err != nil {
				return err
			}
			if len(calls) == 0 {
				return errors.NewFormatError("custom instruction needs at least one call")
			}
			return opts.run(cmd, root, func(ctx context.Context, orch *bridge.Orchestrator) (*bridge.Result, error) {
				return orch.Custom(ctx, bridge.CustomParams{Wallet: opts.wallet, Calls: calls})
			})
		},
	}

	cmd.Flags().StringArrayVarP(&addresses, "address", "a", nil, "call target address (repeatable)")
	cmd.Flags().StringArrayVarP(&values, "value", "v", nil, "call value in wei, 'flr' can be appended for flare units (repeatable)")
	cmd.Flags().StringArrayVarP(&data, "data", "d", nil, "hex encoded calldata (repeatable)")
	return cmd
}

func customCalls(cmd *cobra.Command, args, addresses, values, data []string) ([]evm.CustomCall, error) {
	if len(args) == 1 {
		if len(addresses) > 0 {
			return nil, errors.NewFormatError("pass either a JSON file or --address flags, not both")
		}
		in, err := openInput(args[0], cmd.InOrStdin())
		if err != nil {
			return nil, err
		}
		defer in.Close()
		return customCallsFromJSON(in)
	}
	return customCallsFromFlags(addresses, values, data)
}

func instructionCmd(root *rootOptions, opts *bridgeOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "instruction <hex>",
		Short: "Send an already encoded instruction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := instruction.DecodeHex(args[0]); err != nil {
				return err
			}
			return opts.run(cmd, root, func(ctx context.Context, orch *bridge.Orchestrator) (*bridge.Result, error) {
				return orch.SendInstruction(ctx, args[0])
			})
		},
	}
}
