package matching_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcutting/facturarator/internal/cfdi"
	"github.com/jcutting/facturarator/internal/matching"
)

const uuidA = "ad662d33-6934-459c-a128-bdf0393f0f44"

func TestMatch_NormalizedKey(t *testing.T) {
	records := []cfdi.Record{
		{SourceFile: "factura-03-final.xml", Identifier: uuidA},
	}
	uploads := []string{"Factura 03 (final).pdf", "otra.pdf"}

	res := matching.Match(records, uploads)

	require.Len(t, res.Associations, 1)
	assert.Equal(t, "Factura 03 (final).pdf", res.Associations[0].FileName)
	assert.Equal(t, matching.StrategyNormalizedKey, res.Associations[0].Strategy)
	assert.True(t, res.Associations[0].Matched())
}

func TestMatch_IdentifierSubstringFallback(t *testing.T) {
	records := []cfdi.Record{
		{SourceFile: "descarga (1).xml", Identifier: uuidA},
	}
	// No stem overlap with the XML name, but the scan name carries the
	// short folio.
	uploads := []string{"scan AD662D33 gasolinera.pdf"}

	res := matching.Match(records, uploads)

	require.Len(t, res.Associations, 1)
	assert.Equal(t, "scan AD662D33 gasolinera.pdf", res.Associations[0].FileName)
	assert.Equal(t, matching.StrategyIdentifierSubstring, res.Associations[0].Strategy)
}

func TestMatch_NoMatchIsReportedNotFatal(t *testing.T) {
	records := []cfdi.Record{
		{SourceFile: "factura-07.xml"},
	}

	res := matching.Match(records, []string{"sin-relacion.pdf"})

	require.Len(t, res.Associations, 1)
	assert.Equal(t, matching.StrategyNone, res.Associations[0].Strategy)
	assert.Empty(t, res.Associations[0].FileName)
	assert.False(t, res.Associations[0].Matched())
}

func TestMatch_EmptyIdentifierSkipsSubstringStrategy(t *testing.T) {
	records := []cfdi.Record{
		{SourceFile: "factura-09.xml", Identifier: ""},
	}

	res := matching.Match(records, []string{"cualquier cosa.pdf"})

	assert.Equal(t, matching.StrategyNone, res.Associations[0].Strategy)
}

func TestMatch_FirstUploadWinsOnDuplicateKeys(t *testing.T) {
	records := []cfdi.Record{
		{SourceFile: "factura-01.xml"},
	}
	uploads := []string{"Factura 01.pdf", "factura_01.pdf"}

	res := matching.Match(records, uploads)

	assert.Equal(t, "Factura 01.pdf", res.Associations[0].FileName)

	require.Len(t, res.Duplicates, 1)
	assert.Equal(t, "factura-01", res.Duplicates[0].Key)
	assert.Equal(t, []string{"Factura 01.pdf", "factura_01.pdf"}, res.Duplicates[0].Names)
}

func TestMatch_Deterministic(t *testing.T) {
	records := []cfdi.Record{
		{SourceFile: "factura-01.xml", Identifier: uuidA},
		{SourceFile: "factura-02.xml"},
	}
	uploads := []string{"factura-02.pdf", "AD662D33.pdf"}

	first := matching.Match(records, uploads)
	second := matching.Match(records, uploads)

	assert.Equal(t, first, second)
}
