// =============================================================================
// Refactura Builder - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands (like 'build', 'serve') are
// attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (refactura)
//   ├── buildCmd (refactura build)
//   ├── serveCmd (refactura serve)
//   └── versionCmd (refactura version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Setting up logging before any subcommand runs
//
// =============================================================================

package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the pipeline configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "refactura",
	Short: "Refactura Builder - Turn CFDI invoices into an IVA submission package",

	Long: `Refactura Builder reads CFDI invoice XML files (3.3 and 4.0), extracts the
fields an IVA refund submission needs, matches each invoice to its scanned
receipt, and produces a filled-in spreadsheet plus a zip package with the
scans renamed in chronological order.

Key Features:
  - Tolerant CFDI parsing (including the misspelled sat.gobmx namespaces)
  - Scan matching by normalized filename, with an identifier fallback
  - Chronological sequencing with zero-padded labels
  - Spreadsheet generation with dropdown and length validations
  - A review HTTP API for interactive upload-and-edit sessions

Example Usage:
  refactura build --xml-dir ./facturas --scans-dir ./scans --out-dir ./out
  refactura build --xml-dir ./facturas --sheet-only
  refactura serve`,

	// Without a subcommand there is nothing to do but explain ourselves.
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},

	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	// Persistent flags are available to this command and all subcommands.
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the pipeline configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// setupLogging configures the process-wide slog default. Text output on
// stderr keeps stdout clean for the build summary.
func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}
