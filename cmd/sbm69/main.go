package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// formatVersion adds 'v' prefix if version starts with a digit
func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

// newRootCmd builds the sbm69 command
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sbm69 [address]",
		Short: "Download blood pressure measurements from an SBM69 monitor",
		Long: `Downloads stored measurements from a Sanitas SBM69 blood pressure monitor
over Bluetooth Low Energy and prints them as CSV.

Without an address the first device advertising the name SBM69 is used.
Device information is printed to stderr, measurements to stdout. The
monitor ends the transfer by disconnecting once every stored record
has been sent.`,
		Args:    cobra.MaximumNArgs(1),
		Version: fmt.Sprintf("%s (commit %s, built %s)", formatVersion(version), commit, date),
		RunE:    runFetch,
	}

	// Silence Cobra's "Error:" prefix - main() prints clean errors
	cmd.SilenceErrors = true

	cmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	addFetchFlags(cmd)

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Ctrl+C is a normal exit, not an error - exit silently
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", FormatUserError(err))
		os.Exit(1)
	}
}
