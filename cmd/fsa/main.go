package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
)

func main() {
	// Load environment variables from .env file if available
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(rootCmd.OutOrStderr(), err)
		stop()
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for rejected input and 1 for everything else.
func exitCode(err error) int {
	if errors.IsValidation(err) {
		return 2
	}
	return 1
}
