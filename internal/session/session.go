// =============================================================================
// Refactura Builder - Review Session
// =============================================================================
//
// A Session is the in-memory record set held for the duration of one
// review/build cycle: ingested invoice payloads, uploaded scans (in upload
// order, which the matcher depends on), and the submission metadata.
// Nothing persists across sessions.
//
// Associations and sequence labels are never cached across edits. Every
// build recomputes the match and the labeling from the current record set,
// which is cheap enough to do synchronously and guarantees a stale label or
// association can never reach an artifact.
//
// Warnings are collected per build action and returned as one consolidated
// list, never interleaved per file.
//
// =============================================================================

package session

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/jcutting/facturarator/internal/cfdi"
	"github.com/jcutting/facturarator/internal/config"
	"github.com/jcutting/facturarator/internal/matching"
	"github.com/jcutting/facturarator/internal/packaging"
	"github.com/jcutting/facturarator/internal/sequencing"
	"github.com/jcutting/facturarator/internal/spreadsheet"
)

// =============================================================================
// WARNINGS
// =============================================================================

// WarningKind classifies a non-fatal finding from one build action.
type WarningKind string

const (
	// WarnParse marks a structurally unusable payload that was retained
	// with zeroed fields.
	WarnParse WarningKind = "parse-error"

	// WarnUnmatched marks a record with no associated scan.
	WarnUnmatched WarningKind = "unmatched-document"

	// WarnIdentifier marks an identifier that is not exactly 36 characters.
	WarnIdentifier WarningKind = "identifier-length"

	// WarnDuplicateKey marks uploads whose names normalize to the same key.
	WarnDuplicateKey WarningKind = "duplicate-upload-key"
)

// Warning is one consolidated-report entry.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

// =============================================================================
// SESSION
// =============================================================================

// Session holds one operator's review state.
type Session struct {
	// ID identifies the session to the web surface.
	ID uuid.UUID

	mu      sync.Mutex
	cfg     *config.Config
	logger  *slog.Logger
	records []cfdi.Record
	scans   []packaging.Scan
	meta    spreadsheet.Metadata
}

// New creates an empty session.
func New(cfg *config.Config, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		ID:     uuid.New(),
		cfg:    cfg,
		logger: logger,
	}
}

// AddInvoice parses one CFDI payload and appends the resulting record.
// Parse failures are retained, never dropped; the returned record's
// ParseError says what went wrong.
func (s *Session) AddInvoice(raw []byte, name string) cfdi.Record {
	rec := cfdi.Parse(raw, name)
	rec.Category = s.cfg.Categories[0]

	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()

	if rec.ParseError != "" {
		s.logger.Warn("invoice retained with parse error",
			"session", s.ID, "file", name, "error", rec.ParseError)
	}

	return rec
}

// AddScan appends one uploaded scanned document. Upload order is preserved;
// the matcher iterates scans in exactly this order.
func (s *Session) AddScan(name string, data []byte) {
	s.mu.Lock()
	s.scans = append(s.scans, packaging.Scan{Name: name, Data: data})
	s.mu.Unlock()
}

// SetMetadata replaces the submission metadata.
func (s *Session) SetMetadata(meta spreadsheet.Metadata) {
	s.mu.Lock()
	s.meta = meta
	s.mu.Unlock()
}

// Records returns a copy of the current record set, in ingest order.
func (s *Session) Records() []cfdi.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]cfdi.Record, len(s.records))
	copy(out, s.records)
	return out
}

// ScanCount reports how many scans have been uploaded.
func (s *Session) ScanCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.scans)
}

// RecordUpdate carries the operator-editable fields. Nil fields are left
// unchanged.
type RecordUpdate struct {
	Category *string `json:"category"`
	Currency *string `json:"currency"`
}

// UpdateRecord applies an edit to the record at index. Values outside the
// configured enumerations are rejected.
func (s *Session) UpdateRecord(index int, upd RecordUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.records) {
		return fmt.Errorf("record index %d out of range", index)
	}

	if upd.Category != nil {
		if !s.cfg.CategoryAllowed(*upd.Category) {
			return fmt.Errorf("category %q is not allowed", *upd.Category)
		}
		s.records[index].Category = *upd.Category
	}

	if upd.Currency != nil {
		if !s.cfg.CurrencyAllowed(*upd.Currency) {
			return fmt.Errorf("currency %q is not allowed", *upd.Currency)
		}
		s.records[index].CurrencyCode = *upd.Currency
	}

	return nil
}

// RemoveRecord drops the record at index. Labels and associations are
// recomputed at the next build, so the removal invalidates nothing else.
func (s *Session) RemoveRecord(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.records) {
		return fmt.Errorf("record index %d out of range", index)
	}

	s.records = append(s.records[:index], s.records[index+1:]...)
	return nil
}

// =============================================================================
// BUILDS
// =============================================================================

// SpreadsheetOutput is one spreadsheet build.
type SpreadsheetOutput struct {
	Data     []byte
	FileName string
	Warnings []Warning
}

// PackageOutput is one archive build.
type PackageOutput struct {
	Data       []byte
	FileName   string
	Warnings   []Warning
	Unresolved []packaging.Unresolved
}

// BuildSpreadsheet renders the submission spreadsheet for the current
// record set. Available with zero scans uploaded; the archive hard stop
// does not apply here.
func (s *Session) BuildSpreadsheet() (*SpreadsheetOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := sequencing.Sequence(s.records, s.cfg.LabelWidth)

	data, idWarnings, err := spreadsheet.Build(seq, s.meta, s.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build spreadsheet: %w", err)
	}

	warnings := s.parseWarningsLocked()
	for _, w := range idWarnings {
		warnings = append(warnings, Warning{Kind: WarnIdentifier, Message: w})
	}

	s.logger.Info("spreadsheet built",
		"session", s.ID, "records", len(seq), "warnings", len(warnings))

	return &SpreadsheetOutput{
		Data:     data,
		FileName: s.cfg.SpreadsheetFileName,
		Warnings: warnings,
	}, nil
}

// BuildPackage recomputes associations and labels from the current state,
// renders the spreadsheet, and assembles the archive. The spreadsheet inside
// the archive is built from the same sequence run as the renamed scans, so
// the two artifacts cannot drift apart.
func (s *Session) BuildPackage() (*PackageOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.scans) == 0 {
		return nil, packaging.ErrNoScans
	}

	scanNames := make([]string, len(s.scans))
	for i, scan := range s.scans {
		scanNames[i] = scan.Name
	}

	matchRes := matching.Match(s.records, scanNames)
	seq := sequencing.Sequence(s.records, s.cfg.LabelWidth)

	sheetData, idWarnings, err := spreadsheet.Build(seq, s.meta, s.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build spreadsheet: %w", err)
	}

	pkg, err := packaging.Assemble(seq, matchRes.Associations, s.scans, sheetData, s.cfg.SpreadsheetFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble package: %w", err)
	}

	warnings := s.parseWarningsLocked()
	for _, w := range idWarnings {
		warnings = append(warnings, Warning{Kind: WarnIdentifier, Message: w})
	}
	for _, u := range pkg.Unresolved {
		warnings = append(warnings, Warning{
			Kind:    WarnUnmatched,
			Message: fmt.Sprintf("no scan associated with row %s (%s); omitted from archive", u.Label, u.SourceFile),
		})
	}
	for _, d := range matchRes.Duplicates {
		warnings = append(warnings, Warning{
			Kind:    WarnDuplicateKey,
			Message: fmt.Sprintf("uploads %v normalize to the same key %q; the first was used", d.Names, d.Key),
		})
	}

	s.logger.Info("package built",
		"session", s.ID, "records", len(seq), "scans", len(s.scans),
		"unresolved", len(pkg.Unresolved), "warnings", len(warnings))

	return &PackageOutput{
		Data:       pkg.Archive,
		FileName:   s.cfg.PackageFileName,
		Warnings:   warnings,
		Unresolved: pkg.Unresolved,
	}, nil
}

// parseWarningsLocked lists the retained parse failures. Callers hold s.mu.
func (s *Session) parseWarningsLocked() []Warning {
	var warnings []Warning
	for _, rec := range s.records {
		if rec.ParseError != "" {
			warnings = append(warnings, Warning{
				Kind:    WarnParse,
				Message: fmt.Sprintf("%s: %s", rec.SourceFile, rec.ParseError),
			})
		}
	}
	return warnings
}
