// =============================================================================
// Refactura Builder - Main Entry Point
// =============================================================================
//
// This is the main entry point for the Refactura Builder CLI application.
// It initializes the Cobra CLI framework and delegates command execution to
// the cmd package.
//
// USAGE:
//   refactura build        - Build the IVA form and submission package from directories
//   refactura serve        - Run the review API server
//   refactura version      - Display the application version
//
// ARCHITECTURE:
//   This application follows a modular design where:
//   - cmd/           : Contains all CLI command definitions (Cobra)
//   - internal/      : Contains core business logic (not for external import)
//   - pkg/           : Contains shared utilities
//
// =============================================================================

package main

import (
	"github.com/jcutting/facturarator/cmd"
)

func main() {
	cmd.Execute()
}
