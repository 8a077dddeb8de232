// =============================================================================
// Refactura Builder - Submission Spreadsheet
// =============================================================================
//
// This module renders the ordered record set into the submission workbook.
// The layout is a fixed external contract:
//
//   Row 1      : title band (merged across the table width)
//   Rows 3-6   : metadata band (requested period, claimant, email, last-4)
//   Row 8      : header row, seven fixed captions
//   Rows 9+    : one row per sequenced record
//
// Sequence labels are written as text cells so leading zeros survive; both
// amount columns are numeric. Three input validations cover the body range
// plus padding rows for manual additions: category drop list, currency drop
// list, and a 36-character rule on the identifier column.
//
// An identifier of the wrong length is a collected warning, never a reason
// to withhold the artifact. An empty record set still produces a sheet with
// one placeholder row so the artifact is never structurally blank.
//
// =============================================================================

package spreadsheet

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/jcutting/facturarator/internal/cfdi"
	"github.com/jcutting/facturarator/internal/config"
	"github.com/jcutting/facturarator/internal/sequencing"
)

// =============================================================================
// LAYOUT CONTRACT
// =============================================================================

const (
	titleRow     = 1
	metaStartRow = 3
	headerRow    = 8
	dataStartRow = 9

	firstColumn = "A"
	lastColumn  = "G"
)

// columnHeaders are the seven fixed captions, in column order.
var columnHeaders = []string{
	"No.",
	"FacturaID",
	"Issuer Tax Id",
	"Tax Amount",
	"Total Amount",
	"Category",
	"Currency",
}

// metaLabels are the metadata band captions, one per row from metaStartRow.
var metaLabels = []string{
	"Requested month:",
	"Claimant name:",
	"Official email:",
	"SSN (last 4):",
}

// Metadata is the free-text submission header content. The requested period
// label is computed by the caller, not here.
type Metadata struct {
	RequestedPeriod string
	ClaimantName    string
	ContactEmail    string
	IDLast4         string
}

// =============================================================================
// BUILD
// =============================================================================

// Build renders the workbook and returns its bytes plus the non-fatal
// warnings collected while writing (identifier length violations, keyed by
// sequence label).
func Build(records []sequencing.SequencedRecord, meta Metadata, cfg *config.Config) ([]byte, []string, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := cfg.SheetName
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	styles, err := newStyleSet(f)
	if err != nil {
		return nil, nil, err
	}

	if err := writeTitle(f, sheet, styles); err != nil {
		return nil, nil, err
	}
	if err := writeMetadata(f, sheet, meta, styles); err != nil {
		return nil, nil, err
	}
	if err := writeHeader(f, sheet, styles); err != nil {
		return nil, nil, err
	}

	warnings, err := writeBody(f, sheet, records, cfg, styles)
	if err != nil {
		return nil, nil, err
	}

	if err := addValidations(f, sheet, len(records), cfg); err != nil {
		return nil, nil, err
	}

	_ = f.SetColWidth(sheet, "A", "A", 8)
	_ = f.SetColWidth(sheet, "B", "B", 42)
	_ = f.SetColWidth(sheet, "C", "E", 16)
	_ = f.SetColWidth(sheet, "F", "G", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}

	return buf.Bytes(), warnings, nil
}

// =============================================================================
// STYLES
// =============================================================================

type styleSet struct {
	title      int
	metaLabel  int
	metaValue  int
	header     int
	cell       int
	cellAmount int
}

func newStyleSet(f *excelize.File) (*styleSet, error) {
	var (
		s   styleSet
		err error
	)

	s.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create title style: %w", err)
	}

	s.metaLabel, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "008000"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata label style: %w", err)
	}

	s.metaValue, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata value style: %w", err)
	}

	s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4F81BD"}},
		Border:    boxBorder(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	s.cell, err = f.NewStyle(&excelize.Style{Border: boxBorder()})
	if err != nil {
		return nil, fmt.Errorf("failed to create cell style: %w", err)
	}

	s.cellAmount, err = f.NewStyle(&excelize.Style{
		Border:    boxBorder(),
		NumFmt:    4, // #,##0.00
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create amount style: %w", err)
	}

	return &s, nil
}

func boxBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
}

// =============================================================================
// BANDS
// =============================================================================

func writeTitle(f *excelize.File, sheet string, styles *styleSet) error {
	topLeft := fmt.Sprintf("%s%d", firstColumn, titleRow)
	topRight := fmt.Sprintf("%s%d", lastColumn, titleRow)

	if err := f.MergeCell(sheet, topLeft, topRight); err != nil {
		return fmt.Errorf("failed to merge title band: %w", err)
	}
	if err := f.SetCellStr(sheet, topLeft, sheet); err != nil {
		return err
	}
	return f.SetCellStyle(sheet, topLeft, topRight, styles.title)
}

func writeMetadata(f *excelize.File, sheet string, meta Metadata, styles *styleSet) error {
	values := []string{
		meta.RequestedPeriod,
		meta.ClaimantName,
		meta.ContactEmail,
		meta.IDLast4,
	}

	for i, label := range metaLabels {
		row := metaStartRow + i
		labelCell := fmt.Sprintf("A%d", row)
		valueCell := fmt.Sprintf("B%d", row)

		if err := f.SetCellStr(sheet, labelCell, label); err != nil {
			return err
		}
		if err := f.SetCellStr(sheet, valueCell, values[i]); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, labelCell, labelCell, styles.metaLabel); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, valueCell, valueCell, styles.metaValue); err != nil {
			return err
		}
	}

	return nil
}

func writeHeader(f *excelize.File, sheet string, styles *styleSet) error {
	for i, caption := range columnHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, headerRow)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(sheet, cell, caption); err != nil {
			return err
		}
	}

	first := fmt.Sprintf("%s%d", firstColumn, headerRow)
	last := fmt.Sprintf("%s%d", lastColumn, headerRow)
	return f.SetCellStyle(sheet, first, last, styles.header)
}

// =============================================================================
// BODY
// =============================================================================

func writeBody(f *excelize.File, sheet string, records []sequencing.SequencedRecord, cfg *config.Config, styles *styleSet) ([]string, error) {
	if len(records) == 0 {
		// Placeholder so the artifact is never structurally blank.
		placeholder := sequencing.SequencedRecord{
			Record: cfdi.Record{
				Category:     cfg.Categories[0],
				CurrencyCode: cfg.DefaultCurrency,
				TotalAmount:  "0",
			},
			Label: sequencing.Label(1, cfg.LabelWidth),
		}
		return nil, writeRow(f, sheet, dataStartRow, placeholder, styles)
	}

	var warnings []string

	for i, rec := range records {
		if err := writeRow(f, sheet, dataStartRow+i, rec, styles); err != nil {
			return nil, err
		}

		if !rec.IdentifierValid() {
			warnings = append(warnings, fmt.Sprintf(
				"row %s: identifier %q is %d characters, expected %d",
				rec.Label, rec.Identifier, len(rec.Identifier), cfdi.IdentifierLength))
		}
	}

	return warnings, nil
}

func writeRow(f *excelize.File, sheet string, row int, rec sequencing.SequencedRecord, styles *styleSet) error {
	// Label as text, not a number: "01" must not become 1.
	if err := f.SetCellStr(sheet, fmt.Sprintf("A%d", row), rec.Label); err != nil {
		return err
	}
	if err := f.SetCellStr(sheet, fmt.Sprintf("B%d", row), rec.Identifier); err != nil {
		return err
	}
	if err := f.SetCellStr(sheet, fmt.Sprintf("C%d", row), rec.IssuerTaxID); err != nil {
		return err
	}

	if err := f.SetCellValue(sheet, fmt.Sprintf("D%d", row), rec.TaxAmount.InexactFloat64()); err != nil {
		return err
	}

	// Total is numeric when the verbatim string parses; otherwise the raw
	// value is preserved for the operator to see.
	totalCell := fmt.Sprintf("E%d", row)
	if total, err := strconv.ParseFloat(rec.TotalAmount, 64); err == nil {
		if err := f.SetCellValue(sheet, totalCell, total); err != nil {
			return err
		}
	} else {
		if err := f.SetCellStr(sheet, totalCell, rec.TotalAmount); err != nil {
			return err
		}
	}

	if err := f.SetCellStr(sheet, fmt.Sprintf("F%d", row), rec.Category); err != nil {
		return err
	}
	if err := f.SetCellStr(sheet, fmt.Sprintf("G%d", row), rec.CurrencyCode); err != nil {
		return err
	}

	if err := f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("C%d", row), styles.cell); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, fmt.Sprintf("D%d", row), fmt.Sprintf("E%d", row), styles.cellAmount); err != nil {
		return err
	}
	return f.SetCellStyle(sheet, fmt.Sprintf("F%d", row), fmt.Sprintf("G%d", row), styles.cell)
}

// =============================================================================
// INPUT VALIDATIONS
// =============================================================================

// addValidations embeds the three input-validation rules over the body range
// extended past the data for manual additions.
func addValidations(f *excelize.File, sheet string, recordCount int, cfg *config.Config) error {
	bodyRows := recordCount
	if bodyRows == 0 {
		bodyRows = 1
	}
	lastRow := dataStartRow + bodyRows - 1 + cfg.ValidationPaddingRows

	category := excelize.NewDataValidation(true)
	category.Sqref = fmt.Sprintf("F%d:F%d", dataStartRow, lastRow)
	if err := category.SetDropList(cfg.Categories); err != nil {
		return fmt.Errorf("failed to build category validation: %w", err)
	}
	if err := f.AddDataValidation(sheet, category); err != nil {
		return err
	}

	currency := excelize.NewDataValidation(true)
	currency.Sqref = fmt.Sprintf("G%d:G%d", dataStartRow, lastRow)
	if err := currency.SetDropList(cfg.Currencies); err != nil {
		return fmt.Errorf("failed to build currency validation: %w", err)
	}
	if err := f.AddDataValidation(sheet, currency); err != nil {
		return err
	}

	identifier := excelize.NewDataValidation(true)
	identifier.Sqref = fmt.Sprintf("B%d:B%d", dataStartRow, lastRow)
	if err := identifier.SetRange(
		cfdi.IdentifierLength, cfdi.IdentifierLength,
		excelize.DataValidationTypeTextLength,
		excelize.DataValidationOperatorBetween,
	); err != nil {
		return fmt.Errorf("failed to build identifier validation: %w", err)
	}
	identifier.SetError(excelize.DataValidationErrorStyleStop,
		"Invalid FacturaID", "The FacturaID must be exactly 36 characters.")
	if err := f.AddDataValidation(sheet, identifier); err != nil {
		return err
	}

	return nil
}
