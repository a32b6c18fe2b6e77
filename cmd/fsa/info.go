package main

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/smartaccounts/bridge-relay/bridgeClient/chains/evm"
	"github.com/smartaccounts/bridge-relay/bridgeClient/core"
)

// VaultOutput is one row of `info vaults`.
type VaultOutput struct {
	ID      uint64 `yaml:"id" json:"id"`
	Address string `yaml:"address" json:"address"`
	Type    string `yaml:"type,omitempty" json:"type,omitempty"`
}

// ControllerOutput summarises the controller's registration tables.
type ControllerOutput struct {
	Controller      string        `yaml:"controller" json:"controller"`
	ProviderWallets []string      `yaml:"provider_wallets,omitempty" json:"provider_wallets,omitempty"`
	Vaults          []VaultOutput `yaml:"vaults,omitempty" json:"vaults,omitempty"`
	AgentVaults     []VaultOutput `yaml:"agent_vaults,omitempty" json:"agent_vaults,omitempty"`
}

func vaultTypeName(t uint8) string {
	switch t {
	case evm.VaultTypeFirelight:
		return "firelight"
	case evm.VaultTypeUpshift:
		return "upshift"
	default:
		return "unknown"
	}
}

func infoCmd(root *rootOptions) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show provider wallets, vaults and agent vaults registered on the controller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := root.runtime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			out, err := controllerInfo(cmd, rt)
			if err != nil {
				return err
			}
			return printOutput(cmd.OutOrStdout(), out, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", OutputFormatYAML, "Output format (yaml|json)")
	return cmd
}

func controllerInfo(cmd *cobra.Command, rt *core.Runtime) (*ControllerOutput, error) {
	ctx := cmd.Context()
	out := &ControllerOutput{Controller: rt.Controller.Address().Hex()}

	var err error
	if out.ProviderWallets, err = rt.Controller.ProviderWallets(ctx); err != nil {
		return nil, err
	}

	vaults, err := rt.Controller.Vaults(ctx)
	if err != nil {
		return nil, err
	}
	for _, v := range vaults {
		out.Vaults = append(out.Vaults, VaultOutput{ID: v.ID, Address: v.Address.Hex(), Type: vaultTypeName(v.Type)})
	}

	agents, err := rt.Controller.AgentVaults(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range agents {
		out.AgentVaults = append(out.AgentVaults, VaultOutput{ID: a.ID, Address: a.Address.Hex()})
	}

	sort.Slice(out.Vaults, func(i, j int) bool { return out.Vaults[i].ID < out.Vaults[j].ID })
	sort.Slice(out.AgentVaults, func(i, j int) bool { return out.AgentVaults[i].ID < out.AgentVaults[j].ID })
	return out, nil
}
