// =============================================================================
// Refactura Builder - Build Command
// =============================================================================
//
// This file defines the 'build' command, the batch mode of the pipeline. It
// reads every CFDI XML from one directory and every scan from another, runs
// a single session over them, and writes the submission spreadsheet and the
// zip package to the output directory.
//
// COMMAND USAGE:
//   refactura build --xml-dir ./facturas --scans-dir ./scans --out-dir ./out
//
// PROCESSING PIPELINE:
//   1. Load the pipeline configuration
//   2. Discover XML files and scan files
//   3. Parse every invoice (a broken payload is kept and warned, never fatal)
//   4. Build the spreadsheet, or the full package when scans are present
//   5. Print a summary with the consolidated warning list
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jcutting/facturarator/internal/config"
	"github.com/jcutting/facturarator/internal/packaging"
	"github.com/jcutting/facturarator/internal/session"
	"github.com/jcutting/facturarator/internal/spreadsheet"
	"github.com/jcutting/facturarator/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	xmlDir    string
	scansDir  string
	outDir    string
	sheetOnly bool

	// Submission metadata, written into the spreadsheet header block.
	metaPeriod   string
	metaClaimant string
	metaEmail    string
	metaIDLast4  string
)

// =============================================================================
// BUILD COMMAND DEFINITION
// =============================================================================

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the IVA form and submission package from directories",
	Long: `The build command runs the whole pipeline once, non-interactively. It reads
every .xml file from --xml-dir as a CFDI invoice and every file from
--scans-dir as a scanned receipt, matches scans to invoices, orders the
records chronologically, and writes the filled-in spreadsheet plus the zip
package to --out-dir.

A payload that fails to parse is kept as an empty row and reported in the
summary; it never aborts the run. The only hard stop is asking for the
package with no scans at all, which --sheet-only sidesteps.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuild()
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVar(&xmlDir, "xml-dir", "", "Directory containing CFDI invoice XML files (required)")
	buildCmd.Flags().StringVar(&scansDir, "scans-dir", "", "Directory containing scanned receipts")
	buildCmd.Flags().StringVar(&outDir, "out-dir", ".", "Directory to write the outputs to")
	buildCmd.Flags().BoolVar(&sheetOnly, "sheet-only", false, "Write only the spreadsheet, skip the zip package")

	buildCmd.Flags().StringVar(&metaPeriod, "period", "", "Requested refund period, e.g. 'March 2024'")
	buildCmd.Flags().StringVar(&metaClaimant, "claimant", "", "Claimant full name")
	buildCmd.Flags().StringVar(&metaEmail, "email", "", "Claimant contact email")
	buildCmd.Flags().StringVar(&metaIDLast4, "id-last4", "", "Last four digits of the claimant ID")

	buildCmd.MarkFlagRequired("xml-dir")
}

// =============================================================================
// MAIN BUILD FUNCTION
// =============================================================================

func runBuild() error {
	startTime := time.Now()

	fmt.Println("=== Refactura Builder ===")

	cfg, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// =========================================================================
	// STEP 1: DISCOVER INPUT FILES
	// =========================================================================

	xmlFiles, err := utils.DiscoverFiles(xmlDir, ".xml")
	if err != nil {
		return fmt.Errorf("failed to discover invoices: %w", err)
	}
	if len(xmlFiles) == 0 {
		fmt.Println("No XML files found in the invoice directory.")
		return nil
	}
	fmt.Printf("Found %d invoice(s)\n", len(xmlFiles))

	var scanFiles []string
	if scansDir != "" {
		scanFiles, err = utils.DiscoverFiles(scansDir)
		if err != nil {
			return fmt.Errorf("failed to discover scans: %w", err)
		}
		fmt.Printf("Found %d scan(s)\n", len(scanFiles))
	}

	// =========================================================================
	// STEP 2: LOAD EVERYTHING INTO ONE SESSION
	// =========================================================================
	// Files are fed in sorted order, one at a time. A payload that cannot be
	// read at all is the one per-file failure the parser cannot absorb, and
	// even that only skips the file.

	s := session.New(cfg, nil)

	var readFailures []string
	for _, file := range xmlFiles {
		data, err := os.ReadFile(file)
		if err != nil {
			readFailures = append(readFailures, fmt.Sprintf("%s: %v", filepath.Base(file), err))
			continue
		}
		s.AddInvoice(data, filepath.Base(file))
	}

	for _, file := range scanFiles {
		data, err := os.ReadFile(file)
		if err != nil {
			readFailures = append(readFailures, fmt.Sprintf("%s: %v", filepath.Base(file), err))
			continue
		}
		s.AddScan(filepath.Base(file), data)
	}

	s.SetMetadata(spreadsheet.Metadata{
		RequestedPeriod: metaPeriod,
		ClaimantName:    metaClaimant,
		ContactEmail:    metaEmail,
		IDLast4:         metaIDLast4,
	})

	// =========================================================================
	// STEP 3: BUILD THE OUTPUTS
	// =========================================================================

	var warnings []session.Warning
	var unresolved []packaging.Unresolved
	var written []string

	if sheetOnly || len(scanFiles) == 0 {
		out, err := s.BuildSpreadsheet()
		if err != nil {
			return err
		}
		warnings = out.Warnings

		path, err := utils.WriteOutputFile(outDir, out.FileName, out.Data)
		if err != nil {
			return err
		}
		written = append(written, path)

		if !sheetOnly {
			fmt.Println("No scans found; writing the spreadsheet only.")
		}
	} else {
		out, err := s.BuildPackage()
		if err != nil {
			if errors.Is(err, packaging.ErrNoScans) {
				return fmt.Errorf("cannot build the package: %w", err)
			}
			return err
		}
		warnings = out.Warnings
		unresolved = out.Unresolved

		path, err := utils.WriteOutputFile(outDir, out.FileName, out.Data)
		if err != nil {
			return err
		}
		written = append(written, path)

		// The package already contains the spreadsheet, but a standalone
		// copy next to it saves the operator an unzip.
		sheet, err := s.BuildSpreadsheet()
		if err != nil {
			return err
		}
		path, err = utils.WriteOutputFile(outDir, sheet.FileName, sheet.Data)
		if err != nil {
			return err
		}
		written = append(written, path)
	}

	// =========================================================================
	// STEP 4: PRINT SUMMARY
	// =========================================================================

	elapsed := time.Since(startTime)
	fmt.Println("\n=== Build Complete ===")
	fmt.Printf("Invoices:        %d\n", len(s.Records()))
	fmt.Printf("Scans:           %d\n", s.ScanCount())
	fmt.Printf("Warnings:        %d\n", len(warnings)+len(readFailures))
	fmt.Printf("Time elapsed:    %s\n", elapsed)

	for _, path := range written {
		fmt.Printf("  ✓ %s\n", path)
	}

	if len(readFailures) > 0 || len(warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, msg := range readFailures {
			fmt.Printf("  ✗ unreadable: %s\n", msg)
		}
		for _, w := range warnings {
			fmt.Printf("  ✗ %s: %s\n", w.Kind, w.Message)
		}
	}

	if len(unresolved) > 0 {
		fmt.Println("\nUnmatched invoices (no scan in the package):")
		for _, u := range unresolved {
			fmt.Printf("  - row %s (%s)\n", u.Label, u.SourceFile)
		}
	}

	return nil
}
