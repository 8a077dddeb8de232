// =============================================================================
// Refactura Builder - Canonical Invoice Record
// =============================================================================
//
// This file defines the canonical record extracted from one CFDI payload.
// A record is created for every uploaded XML file, including files that fail
// to parse: the operator must see every input accounted for, so a structural
// failure produces a record with ParseError set instead of dropping the file.
//
// =============================================================================

package cfdi

import (
	"time"

	"github.com/shopspring/decimal"
)

// IdentifierLength is the required length of a fiscal folio (UUID) including
// separators. A non-empty identifier of any other length is flagged at
// spreadsheet-build time but never blocks artifact generation.
const IdentifierLength = 36

// DefaultCurrency is used when the payload declares no Moneda attribute.
const DefaultCurrency = "MXN"

// DefaultCategory is the expense category assigned at parse time.
// The operator can change it during review.
const DefaultCategory = "Miscellaneous"

// epochSentinel is the issue date assigned when Fecha is absent or
// unparsable. It exists only so such records sort first; it is never
// written to any output artifact.
var epochSentinel = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// Record is one structured invoice document reduced to the fields the
// submission grid needs, plus the issue date used for chronological ordering.
type Record struct {
	// Identifier is the UUID from the TimbreFiscalDigital stamp.
	// Empty when the stamp is absent; stamp absence alone is not a parse error.
	Identifier string

	// IssuerTaxID is the issuer RFC. May be empty.
	IssuerTaxID string

	// TaxAmount is the summed IVA trasladado (Impuesto 002).
	TaxAmount decimal.Decimal

	// TotalAmount is the declared Total attribute, kept verbatim so the
	// source precision survives into the spreadsheet. Defaults to "0".
	TotalAmount string

	// CurrencyCode is the declared Moneda, or DefaultCurrency.
	CurrencyCode string

	// IssueDate is the first ten characters of Fecha parsed as a calendar
	// date, or epochSentinel. Ordering only, never surfaced.
	IssueDate time.Time

	// Category is the expense category, operator-adjustable during review.
	Category string

	// SourceFile is the original uploaded XML file name (provenance only).
	SourceFile string

	// ParseError holds a diagnostic when the payload was structurally
	// unusable. The record is retained either way.
	ParseError string
}

// IdentifierValid reports whether the identifier is present and exactly
// IdentifierLength characters long.
func (r *Record) IdentifierValid() bool {
	return len(r.Identifier) == IdentifierLength
}

// EpochSentinel returns the ordering-only fallback issue date.
func EpochSentinel() time.Time {
	return epochSentinel
}
