package spreadsheet_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jcutting/facturarator/internal/cfdi"
	"github.com/jcutting/facturarator/internal/config"
	"github.com/jcutting/facturarator/internal/sequencing"
	"github.com/jcutting/facturarator/internal/spreadsheet"
)

const uuidA = "ad662d33-6934-459c-a128-bdf0393f0f44"

func testMeta() spreadsheet.Metadata {
	return spreadsheet.Metadata{
		RequestedPeriod: "March 2024",
		ClaimantName:    "Maria Lopez",
		ContactEmail:    "maria@example.org",
		IDLast4:         "1234",
	}
}

func sequenced(t *testing.T) []sequencing.SequencedRecord {
	t.Helper()
	records := []cfdi.Record{
		{
			Identifier:   uuidA,
			IssuerTaxID:  "AAA010101AAA",
			TaxAmount:    decimal.RequireFromString("160.00"),
			TotalAmount:  "1160.00",
			CurrencyCode: "MXN",
			Category:     "Miscellaneous",
			IssueDate:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			SourceFile:   "factura-01.xml",
		},
	}
	return sequencing.Sequence(records, 2)
}

func openSheet(t *testing.T, b []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestBuild_Layout(t *testing.T) {
	cfg := config.Default()

	b, warnings, err := spreadsheet.Build(sequenced(t), testMeta(), cfg)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	f := openSheet(t, b)
	sheet := cfg.SheetName

	title, err := f.GetCellValue(sheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "SUBMISSION IVA FORM", title)

	// Metadata band.
	claimant, _ := f.GetCellValue(sheet, "B4")
	assert.Equal(t, "Maria Lopez", claimant)

	// Header captions in fixed column order.
	for i, want := range []string{"No.", "FacturaID", "Issuer Tax Id", "Tax Amount", "Total Amount", "Category", "Currency"} {
		cell, cerr := excelize.CoordinatesToCellName(i+1, 8)
		require.NoError(t, cerr)
		got, gerr := f.GetCellValue(sheet, cell)
		require.NoError(t, gerr)
		assert.Equal(t, want, got)
	}

	// Data row: label keeps its leading zero, identifier verbatim.
	label, _ := f.GetCellValue(sheet, "A9")
	assert.Equal(t, "01", label)
	id, _ := f.GetCellValue(sheet, "B9")
	assert.Equal(t, uuidA, id)
	currency, _ := f.GetCellValue(sheet, "G9")
	assert.Equal(t, "MXN", currency)
}

func TestBuild_EmptySetEmitsPlaceholderRow(t *testing.T) {
	cfg := config.Default()

	b, warnings, err := spreadsheet.Build(nil, testMeta(), cfg)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	f := openSheet(t, b)

	label, _ := f.GetCellValue(cfg.SheetName, "A9")
	assert.Equal(t, "01", label)
	category, _ := f.GetCellValue(cfg.SheetName, "F9")
	assert.Equal(t, "Miscellaneous", category)
}

func TestBuild_ShortIdentifierWarnsButBuilds(t *testing.T) {
	cfg := config.Default()
	records := sequencing.Sequence([]cfdi.Record{
		{Identifier: "ABC-123", TotalAmount: "10.00", CurrencyCode: "MXN", Category: "Gasoline"},
	}, 2)

	b, warnings, err := spreadsheet.Build(records, testMeta(), cfg)
	require.NoError(t, err)
	require.NotEmpty(t, b)

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "row 01")
	assert.Contains(t, warnings[0], "expected 36")
}

func TestBuild_EmptyIdentifierWarnsButBuilds(t *testing.T) {
	// A record whose stamp was absent has an empty identifier and no parse
	// error; it still appears in the sheet, with a length warning.
	cfg := config.Default()
	records := sequencing.Sequence([]cfdi.Record{
		{TotalAmount: "10.00", CurrencyCode: "MXN", Category: "Miscellaneous"},
	}, 2)

	b, warnings, err := spreadsheet.Build(records, testMeta(), cfg)
	require.NoError(t, err)
	require.NotEmpty(t, b)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "row 01")
}

func TestBuild_DataValidationsPresent(t *testing.T) {
	cfg := config.Default()

	b, _, err := spreadsheet.Build(sequenced(t), testMeta(), cfg)
	require.NoError(t, err)

	f := openSheet(t, b)

	dvs, err := f.GetDataValidations(cfg.SheetName)
	require.NoError(t, err)
	require.Len(t, dvs, 3)

	// Ranges extend 50 rows past the single data row.
	sqrefs := make([]string, 0, len(dvs))
	for _, dv := range dvs {
		sqrefs = append(sqrefs, dv.Sqref)
	}
	assert.Contains(t, sqrefs, "F9:F59")
	assert.Contains(t, sqrefs, "G9:G59")
	assert.Contains(t, sqrefs, "B9:B59")
}
