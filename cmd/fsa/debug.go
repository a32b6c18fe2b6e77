package main

import (
	"context"
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/smartaccounts/bridge-relay/bridgeClient/bridge"
	"github.com/smartaccounts/bridge-relay/bridgeClient/core"
)

func debugCmd(root *rootOptions) *cobra.Command {
	opts := &bridgeOptions{}

	cmd := &cobra.Command{
		Use:   "debug",
		Short: "Utility commands for bridge info",
	}

	cmd.PersistentFlags().BoolVarP(&opts.silent, "silent", "s", false, "print only the ledger transaction hashes")
	cmd.PersistentFlags().Uint64Var(&opts.wallet, "wallet", 0, "wallet id carried in the instructions")

	cmd.AddCommand(checkStatusCmd(root, opts), fullScenarioCmd(root, opts))
	return cmd
}

func checkStatusCmd(root *rootOptions, opts *bridgeOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-status <ledger-tx-hash>",
		Short: "Check the bridge status of a ledger transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, root, func(ctx context.Context, orch *bridge.Orchestrator) (*bridge.Result, error) {
				return orch.CheckStatus(ctx, args[0])
			})
		},
	}
}

// scenario is the sequence run by `debug full`.
type scenario struct {
	mint    *mintFlags
	amount  string
	vaultID uint64
	epoch   string
}

func (s *scenario) steps(cmd *cobra.Command, wallet uint64) ([]flowFunc, error) {
	mint, err := s.mint.params(cmd, wallet)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", s.amount)
	if err != nil {
		return nil, err
	}
	epoch, err := parseAmount("reward-epoch", s.epoch)
	if err != nil {
		return nil, err
	}
	redeemLots := new(big.Int).Set(mint.Lots)

	return []flowFunc{
		func(ctx context.Context, orch *bridge.Orchestrator) (*bridge.Result, error) {
			return orch.Mint(ctx, mint)
		},
		func(ctx context.Context, orch *bridge.Orchestrator) (*bridge.Result, error) {
			return orch.Deposit(ctx, bridge.DepositParams{Wallet: wallet, VaultID: s.vaultID, Assets: amount})
		},
		func(ctx context.Context, orch *bridge.Orchestrator) (*bridge.Result, error) {
			return orch.Withdraw(ctx, bridge.WithdrawParams{Wallet: wallet, VaultID: s.vaultID, Shares: amount})
		},
		func(ctx context.Context, orch *bridge.Orchestrator) (*bridge.Result, error) {
			return orch.ClaimWithdraw(ctx, bridge.ClaimWithdrawParams{Wallet: wallet, VaultID: s.vaultID, Period: epoch})
		},
		func(ctx context.Context, orch *bridge.Orchestrator) (*bridge.Result, error) {
			return orch.Redeem(ctx, bridge.RedeemParams{Wallet: wallet, Lots: redeemLots})
		},
	}, nil
}

func fullScenarioCmd(root *rootOptions, opts *bridgeOptions) *cobra.Command {
	s := &scenario{mint: &mintFlags{}}

	cmd := &cobra.Command{
		Use:   "full",
		Short: "Run the full scenario: mint, deposit, withdraw, claim-withdraw, redeem",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := s.steps(cmd, opts.wallet)
			if err != nil {
				return err
			}
			rt, err := root.runtime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()
			return runScenario(cmd, rt, opts, steps)
		},
	}

	s.mint.register(cmd)
	cmd.Flags().StringVarP(&s.mint.lots, "lots", "l", "2", "lots to mint and later redeem")
	cmd.Flags().StringVar(&s.amount, "amount", "1000000", "assets to deposit and shares to withdraw")
	cmd.Flags().Uint64Var(&s.vaultID, "vault-id", 1, "vault id registered on the controller")
	cmd.Flags().StringVarP(&s.epoch, "reward-epoch", "r", "1", "reward epoch to claim the withdrawal for")
	return cmd
}

// runScenario runs the steps on one runtime and stops at the first step that
// fails or times out.
func runScenario(cmd *cobra.Command, rt *core.Runtime, opts *bridgeOptions, steps []flowFunc) error {
	for i, step := range steps {
		if !opts.silent {
			fmt.Fprintf(cmd.OutOrStdout(), "== step %d of %d\n", i+1, len(steps))
		}
		if err := opts.runWith(cmd, rt, step); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}
