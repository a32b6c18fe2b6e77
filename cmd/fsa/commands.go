package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.Version=... -X main.Commit=...".
var (
	Version = "dev"
	Commit  = "unknown"
)

func InitRootCmd(rootCmd *cobra.Command, opts *rootOptions) {
	rootCmd.AddCommand(bridgeCmd(opts))
	rootCmd.AddCommand(encodeCmd())
	rootCmd.AddCommand(decodeCmd())
	rootCmd.AddCommand(debugCmd(opts))
	rootCmd.AddCommand(personalAccountCmd(opts))
	rootCmd.AddCommand(infoCmd(opts))
	rootCmd.AddCommand(queryCmd(opts))
	rootCmd.AddCommand(versionCmd())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print fsa version info",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:       %s\n", "fsa")
			fmt.Fprintf(out, "Version:    %s\n", Version)
			fmt.Fprintf(out, "Commit:     %s\n", Commit)
			fmt.Fprintf(out, "Go Version: %s\n", runtime.Version())
		},
	}
}
