// =============================================================================
// Refactura Builder - Sequencer
// =============================================================================
//
// The sequencer puts records in chronological order and assigns each a
// zero-padded label ("01", "02", ...). The label is the contract between the
// spreadsheet and the package: it is both the row number in the submission
// grid and the file stem of the renamed scan, so both artifacts must be
// built from the same Sequence run. Any edit to the record set discards the
// previous labels entirely; a stale label must never reach an output.
//
// =============================================================================

package sequencing

import (
	"fmt"
	"sort"

	"github.com/jcutting/facturarator/internal/cfdi"
)

// DefaultLabelWidth is the zero-padding width used when none is configured.
const DefaultLabelWidth = 2

// SequencedRecord is a canonical record plus its assigned ordinal label.
type SequencedRecord struct {
	cfdi.Record

	// Label is the zero-padded ordinal, assigned from 1 over the final
	// chronological order.
	Label string

	// SourceIndex is the record's position in the pre-sort input, which is
	// what the matcher's associations are keyed by.
	SourceIndex int
}

// Sequence orders records by issue date ascending and labels them. The sort
// is stable: records with equal dates keep their relative input order.
// Width values below 1 fall back to DefaultLabelWidth.
func Sequence(records []cfdi.Record, width int) []SequencedRecord {
	if width < 1 {
		width = DefaultLabelWidth
	}

	out := make([]SequencedRecord, len(records))
	for i, rec := range records {
		out[i] = SequencedRecord{Record: rec, SourceIndex: i}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].IssueDate.Before(out[j].IssueDate)
	})

	for i := range out {
		out[i].Label = Label(i+1, width)
	}

	return out
}

// Label formats a 1-based ordinal as a zero-padded string. Ordinals wider
// than the configured width keep all their digits.
func Label(n, width int) string {
	return fmt.Sprintf("%0*d", width, n)
}
