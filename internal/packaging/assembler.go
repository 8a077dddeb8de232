// =============================================================================
// Refactura Builder - Package Assembler
// =============================================================================
//
// The assembler produces the final archive: the submission spreadsheet at
// the root, each matched scan renamed to its sequence label plus the scan's
// original extension, and a human-readable manifest. Records without a
// resolved association are omitted from the archive and listed in the
// unresolved report instead; that is a warning, not a failure.
//
// The one hard stop is requesting an archive with zero scans uploaded:
// there is nothing to bundle, and the operator almost certainly forgot the
// upload step. Spreadsheet generation is unaffected by that condition.
//
// =============================================================================

package packaging

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/jcutting/facturarator/internal/matching"
	"github.com/jcutting/facturarator/internal/sequencing"
)

// ErrNoScans is returned when an archive build is requested with no scanned
// documents uploaded.
var ErrNoScans = errors.New("no scanned documents uploaded")

// ManifestName is the manifest entry's name at the archive root.
const ManifestName = "MANIFEST.txt"

// Scan is one uploaded scanned document.
type Scan struct {
	Name string
	Data []byte
}

// Unresolved identifies a record that could not be associated with a scan.
type Unresolved struct {
	Label      string
	SourceFile string
}

// Result is one archive build.
type Result struct {
	// Archive is the zip bytes.
	Archive []byte

	// Unresolved lists the sequence labels omitted from the archive.
	Unresolved []Unresolved
}

// Assemble builds the archive from the sequenced records, their
// associations (keyed by the records' pre-sort indices), the uploaded
// scans, and the already-rendered spreadsheet bytes.
func Assemble(records []sequencing.SequencedRecord, assocs []matching.Association, scans []Scan, spreadsheetBytes []byte, spreadsheetName string) (*Result, error) {
	if len(scans) == 0 {
		return nil, ErrNoScans
	}

	byIndex := make(map[int]matching.Association, len(assocs))
	for _, a := range assocs {
		byIndex[a.RecordIndex] = a
	}

	byName := make(map[string][]byte, len(scans))
	for _, s := range scans {
		// First upload wins on duplicate names, mirroring the matcher.
		if _, seen := byName[s.Name]; !seen {
			byName[s.Name] = s.Data
		}
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	entry, err := zw.Create(spreadsheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create spreadsheet entry: %w", err)
	}
	if _, err := entry.Write(spreadsheetBytes); err != nil {
		return nil, fmt.Errorf("failed to write spreadsheet entry: %w", err)
	}

	result := &Result{}
	manifest := newManifest(spreadsheetName)

	for _, rec := range records {
		assoc, ok := byIndex[rec.SourceIndex]
		if !ok || !assoc.Matched() {
			result.Unresolved = append(result.Unresolved, Unresolved{
				Label:      rec.Label,
				SourceFile: rec.SourceFile,
			})
			manifest.addUnresolved(rec.Label, rec.SourceFile)
			continue
		}

		data, ok := byName[assoc.FileName]
		if !ok {
			// Association points at a scan that is no longer uploaded; the
			// caller should have recomputed, but stay non-fatal regardless.
			result.Unresolved = append(result.Unresolved, Unresolved{
				Label:      rec.Label,
				SourceFile: rec.SourceFile,
			})
			manifest.addUnresolved(rec.Label, rec.SourceFile)
			continue
		}

		name := rec.Label + path.Ext(assoc.FileName)
		scanEntry, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("failed to create entry %s: %w", name, err)
		}
		if _, err := scanEntry.Write(data); err != nil {
			return nil, fmt.Errorf("failed to write entry %s: %w", name, err)
		}

		manifest.addResolved(name, assoc.FileName, assoc.Strategy)
	}

	manifestEntry, err := zw.Create(ManifestName)
	if err != nil {
		return nil, fmt.Errorf("failed to create manifest entry: %w", err)
	}
	if _, err := manifestEntry.Write(manifest.bytes()); err != nil {
		return nil, fmt.Errorf("failed to write manifest entry: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	result.Archive = buf.Bytes()
	return result, nil
}

// =============================================================================
// MANIFEST
// =============================================================================

type manifest struct {
	buf bytes.Buffer
}

func newManifest(spreadsheetName string) *manifest {
	m := &manifest{}
	fmt.Fprintf(&m.buf, "Refactura package %s\n", uuid.NewString())
	fmt.Fprintf(&m.buf, "Generated: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&m.buf, "Spreadsheet: %s\n\n", spreadsheetName)
	return m
}

func (m *manifest) addResolved(entryName, originalName string, strategy matching.Strategy) {
	fmt.Fprintf(&m.buf, "%s <- %s (matched by %s)\n", entryName, originalName, strategy)
}

func (m *manifest) addUnresolved(label, sourceFile string) {
	fmt.Fprintf(&m.buf, "%s: UNRESOLVED, no scan found for %s\n", label, sourceFile)
}

func (m *manifest) bytes() []byte {
	return m.buf.Bytes()
}
