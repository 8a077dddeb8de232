package sequencing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcutting/facturarator/internal/cfdi"
	"github.com/jcutting/facturarator/internal/sequencing"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestSequence_ChronologicalOrder(t *testing.T) {
	records := []cfdi.Record{
		{SourceFile: "b.xml", IssueDate: date(2024, 3, 2)},
		{SourceFile: "a.xml", IssueDate: date(2024, 3, 1)},
	}

	seq := sequencing.Sequence(records, 2)

	require.Len(t, seq, 2)
	assert.Equal(t, "a.xml", seq[0].SourceFile)
	assert.Equal(t, "01", seq[0].Label)
	assert.Equal(t, 1, seq[0].SourceIndex)
	assert.Equal(t, "b.xml", seq[1].SourceFile)
	assert.Equal(t, "02", seq[1].Label)
	assert.Equal(t, 0, seq[1].SourceIndex)
}

func TestSequence_StableOnEqualDates(t *testing.T) {
	same := date(2024, 5, 10)
	records := []cfdi.Record{
		{SourceFile: "primero.xml", IssueDate: same},
		{SourceFile: "segundo.xml", IssueDate: same},
		{SourceFile: "tercero.xml", IssueDate: same},
	}

	seq := sequencing.Sequence(records, 2)

	assert.Equal(t, "primero.xml", seq[0].SourceFile)
	assert.Equal(t, "segundo.xml", seq[1].SourceFile)
	assert.Equal(t, "tercero.xml", seq[2].SourceFile)
}

func TestSequence_SentinelDatesSortFirst(t *testing.T) {
	records := []cfdi.Record{
		{SourceFile: "fechada.xml", IssueDate: date(2024, 1, 1)},
		{SourceFile: "sin-fecha.xml", IssueDate: cfdi.EpochSentinel()},
	}

	seq := sequencing.Sequence(records, 2)

	assert.Equal(t, "sin-fecha.xml", seq[0].SourceFile)
}

func TestSequence_RelabelReplacesOldLabels(t *testing.T) {
	records := []cfdi.Record{
		{SourceFile: "a.xml", IssueDate: date(2024, 1, 1)},
		{SourceFile: "b.xml", IssueDate: date(2024, 1, 2)},
		{SourceFile: "c.xml", IssueDate: date(2024, 1, 3)},
	}

	before := sequencing.Sequence(records, 2)
	require.Equal(t, "03", before[2].Label)

	// Removing the first record shifts every label; none survive.
	after := sequencing.Sequence(records[1:], 2)

	require.Len(t, after, 2)
	assert.Equal(t, "01", after[0].Label)
	assert.Equal(t, "b.xml", after[0].SourceFile)
	assert.Equal(t, "02", after[1].Label)
	assert.Equal(t, "c.xml", after[1].SourceFile)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "01", sequencing.Label(1, 2))
	assert.Equal(t, "007", sequencing.Label(7, 3))
	assert.Equal(t, "100", sequencing.Label(100, 2))
	// Zero or negative width falls back to the default.
	assert.Equal(t, "05", sequencing.Sequence([]cfdi.Record{{}, {}, {}, {}, {}}, 0)[4].Label)
}
