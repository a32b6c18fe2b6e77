package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smartaccounts/bridge-relay/bridgeClient/config"
	"github.com/smartaccounts/bridge-relay/bridgeClient/core"
	"github.com/smartaccounts/bridge-relay/bridgeClient/logger"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   int
	statusPort int
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "fsa",
		Short:         "Smart accounts bridge client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "JSON config file layered over the defaults")
	rootCmd.PersistentFlags().IntVar(&opts.logLevel, "log-level", -2, "zerolog level (-1 trace .. 5 panic), defaults to the config value")
	rootCmd.PersistentFlags().IntVar(&opts.statusPort, "status-port", 0, "serve /health, /metrics and the operation journal on this port")

	InitRootCmd(rootCmd, opts) // add subcommands like `bridge` and `version`

	return rootCmd
}

// loadConfig reads the configuration and applies the flag overrides.
func (o *rootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}
	if o.logLevel >= -1 {
		cfg.LogLevel = o.logLevel
	}
	if o.statusPort > 0 {
		cfg.StatusServerPort = o.statusPort
	}
	return cfg, nil
}

// runtime connects every configured client and starts the status server.
// Callers own the returned runtime and must Close it.
func (o *rootOptions) runtime(cmd *cobra.Command) (*core.Runtime, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.Init(cfg)

	rt, err := core.New(cmd.Context(), cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to start client: %w", err)
	}
	if err := rt.StartStatusServer(); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}
