package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/smartaccounts/bridge-relay/bridgeClient/chains/evm"
	"github.com/smartaccounts/bridge-relay/bridgeClient/chains/xrpl"
	"github.com/smartaccounts/bridge-relay/bridgeClient/core"
)

func personalAccountCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "personal-account",
		Short: "Inspect the personal account controlled by a ledger address",
	}
	cmd.AddCommand(
		personalAccountPrintCmd(root),
		personalAccountFaucetCmd(root),
		personalAccountBalanceCmd(root),
	)
	return cmd
}

// ledgerAddress is the address argument, or the configured sending account.
func ledgerAddress(rt *core.Runtime, args []string) (string, error) {
	var address string
	switch {
	case len(args) == 1:
		address = args[0]
	case rt.Sender != nil:
		address = rt.Sender.Address()
	default:
		address = rt.Config.Ledger.Address
	}
	if address == "" {
		return "", fmt.Errorf("no ledger address given and none configured")
	}
	if err := xrpl.ValidateAddress(address); err != nil {
		return "", err
	}
	return address, nil
}

func personalAccountPrintCmd(root *rootOptions) *cobra.Command {
	var withBalance bool

	cmd := &cobra.Command{
		Use:   "print [ledger-address]",
		Short: "Print the personal account of a ledger address (default: the configured account)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := root.runtime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			address, err := ledgerAddress(rt, args)
			if err != nil {
				return err
			}
			account, err := rt.Controller.PersonalAccount(cmd.Context(), address)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, account.Hex())

			if withBalance {
				if rt.Ledger == nil {
					return fmt.Errorf("ledger rpc_url is not configured")
				}
				balance, err := rt.Ledger.AccountBalance(cmd.Context(), address)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "ledger balance: %s XRP\n", balance.String())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withBalance, "balance", false, "also print the ledger balance of the address")
	return cmd
}

func personalAccountFaucetCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "faucet [ledger-address]",
		Short: "Print the personal account and where to fund it with test gas",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := root.runtime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			address, err := ledgerAddress(rt, args)
			if err != nil {
				return err
			}
			account, err := rt.Controller.PersonalAccount(cmd.Context(), address)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "account is: %s\n", account.Hex())
			if url := rt.Config.Explorers.FaucetURL; url != "" {
				fmt.Fprintf(out, "you can faucet here: %s\n", url)
			}
			return nil
		},
	}
}

func personalAccountBalanceCmd(root *rootOptions) *cobra.Command {
	var vaultIDs []uint

	cmd := &cobra.Command{
		Use:   "vault-balance [ledger-address]",
		Short: "Print the personal account's shares in controller vaults (default: every vault)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := root.runtime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			address, err := ledgerAddress(rt, args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			account, err := rt.Controller.PersonalAccount(ctx, address)
			if err != nil {
				return err
			}

			ids := make([]uint64, 0, len(vaultIDs))
			for _, id := range vaultIDs {
				ids = append(ids, uint64(id))
			}
			if len(ids) == 0 {
				vaults, err := rt.Controller.Vaults(ctx)
				if err != nil {
					return err
				}
				for id := range vaults {
					ids = append(ids, id)
				}
				sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "account is: %s\n", account.Hex())
			for _, id := range ids {
				balance, err := rt.Controller.VaultBalance(ctx, id, account)
				if err != nil {
					return err
				}
				printVaultBalance(out, balance)
			}
			return nil
		},
	}

	cmd.Flags().UintSliceVar(&vaultIDs, "vault-id", nil, "vault ids to read (repeatable)")
	return cmd
}

func printVaultBalance(w io.Writer, b *evm.VaultBalance) {
	exp := -int32(b.Decimals)
	fmt.Fprintf(w, "vault %d (%s, %s): %s %s, worth %s\n",
		b.Vault.ID,
		vaultTypeName(b.Vault.Type),
		b.Vault.Address.Hex(),
		decimal.NewFromBigInt(b.Shares, exp).String(),
		b.Symbol,
		decimal.NewFromBigInt(b.Assets, exp).String(),
	)
}
