// =============================================================================
// Refactura Builder - CFDI Parser
// =============================================================================
//
// This module extracts the canonical submission fields from a CFDI payload:
//
//   UUID           <- tfd:TimbreFiscalDigital/@UUID (any depth)
//   RFC emisor     <- cfdi:Emisor/@Rfc or @RfcEmisor
//   IVA trasladado <- sum of cfdi:Traslados/cfdi:Traslado/@Importe
//                     where @Impuesto is "002" or "2"
//   Total          <- /@Total, kept verbatim
//   Moneda         <- /@Moneda, default MXN
//   Fecha          <- first 10 chars of /@Fecha as a calendar date
//
// SCHEMA VERSIONS:
//   Both CFDI 3.3 and 4.0 are supported. Each version is matched against a
//   canonical namespace URI and a misspelled variant (sat.gobmx without the
//   dot) that stamped documents in circulation actually carry. The variants
//   live in one ordered candidate table; adding a future version means adding
//   a row, not a branch.
//
// ERROR CONTRACT:
//   Parse never fails past its boundary. A structurally unusable payload
//   yields a Record with ParseError set and zeroed fields so the batch keeps
//   every input file visible. A missing stamp, issuer, or tax node is not an
//   error; the affected field defaults instead.
//
// =============================================================================

package cfdi

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// NAMESPACE CANDIDATE TABLE
// =============================================================================

// namespaceSet groups the URIs accepted for one schema version.
type namespaceSet struct {
	// Version is the CFDI version label, for diagnostics.
	Version string

	// URIs are the accepted namespace URIs, canonical spelling first.
	URIs []string
}

// versionCandidates is tried in priority order during version detection.
// The last entry doubles as the fallback for unversioned payloads.
var versionCandidates = []namespaceSet{
	{
		Version: "4.0",
		URIs: []string{
			"http://www.sat.gob.mx/cfd/4",
			"http://www.sat.gobmx/cfd/4",
		},
	},
	{
		Version: "3.3",
		URIs: []string{
			"http://www.sat.gob.mx/cfd/3",
			"http://www.sat.gobmx/cfd/3",
		},
	},
}

// tfdNamespace is the TimbreFiscalDigital complement namespace.
const tfdNamespace = "http://www.sat.gob.mx/TimbreFiscalDigital"

// ivaTaxCodes are the Impuesto attribute values identifying IVA. Stamping
// providers emit both the padded and the unpadded form.
var ivaTaxCodes = map[string]bool{"002": true, "2": true}

func (ns namespaceSet) contains(uri string) bool {
	for _, u := range ns.URIs {
		if u == uri {
			return true
		}
	}
	return false
}

// =============================================================================
// GENERIC ELEMENT TREE
// =============================================================================

// element is a generic XML node. The decoder resolves namespace prefixes to
// full URIs in XMLName.Space, which is what lets the misspelled-namespace
// variants be matched exactly.
type element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []element  `xml:",any"`
}

// attr returns the value of the first attribute with the given local name,
// or "" when absent. CFDI attributes are unprefixed, so matching ignores
// the attribute namespace.
func (e *element) attr(local string) string {
	for _, a := range e.Attrs {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// findDescendant returns the first descendant (depth-first, document order)
// matching the local name whose namespace satisfies match.
func (e *element) findDescendant(local string, match func(uri string) bool) *element {
	for i := range e.Children {
		child := &e.Children[i]
		if child.XMLName.Local == local && match(child.XMLName.Space) {
			return child
		}
		if found := child.findDescendant(local, match); found != nil {
			return found
		}
	}
	return nil
}

// walk visits every descendant in document order.
func (e *element) walk(visit func(parent, child *element)) {
	for i := range e.Children {
		child := &e.Children[i]
		visit(e, child)
		child.walk(visit)
	}
}

// =============================================================================
// PARSE
// =============================================================================

// Parse extracts a canonical Record from one CFDI payload. It never returns
// an error: structural failures are reported through Record.ParseError and
// the record is retained so the operator sees every input file.
func Parse(raw []byte, sourceName string) Record {
	rec := Record{
		TotalAmount:  "0",
		CurrencyCode: DefaultCurrency,
		IssueDate:    epochSentinel,
		Category:     DefaultCategory,
		SourceFile:   sourceName,
	}

	root, err := decodePayload(raw)
	if err != nil {
		rec.ParseError = fmt.Sprintf("malformed CFDI payload: %v", err)
		return rec
	}

	ns := detectVersion(root)
	inCFDI := ns.contains

	// UUID from the digital stamp. Absence is not an error.
	if tfd := root.findDescendant("TimbreFiscalDigital", func(uri string) bool {
		return uri == tfdNamespace
	}); tfd != nil {
		rec.Identifier = tfd.attr("UUID")
	}

	// Issuer RFC under either attribute spelling.
	if emisor := root.findDescendant("Emisor", inCFDI); emisor != nil {
		rec.IssuerTaxID = emisor.attr("Rfc")
		if rec.IssuerTaxID == "" {
			rec.IssuerTaxID = emisor.attr("RfcEmisor")
		}
	}

	// Currency and total from the root element, defaults already applied.
	if moneda := root.attr("Moneda"); moneda != "" {
		rec.CurrencyCode = moneda
	}
	if total := root.attr("Total"); total != "" {
		rec.TotalAmount = total
	}

	// Issue date: first ten characters of Fecha. Ordering only.
	if fecha := root.attr("Fecha"); len(fecha) >= 10 {
		if parsed, perr := time.Parse("2006-01-02", fecha[:10]); perr == nil {
			rec.IssueDate = parsed
		}
	}

	rec.TaxAmount = sumIVA(root, inCFDI)

	return rec
}

// decodePayload decodes raw bytes, tolerant of legacy charsets, into an
// element tree.
func decodePayload(raw []byte) (*element, error) {
	r, err := newUTF8Reader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	dec := xml.NewDecoder(r)

	// The stream is already UTF-8; declared legacy encodings are a no-op.
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var root element
	if err := dec.Decode(&root); err != nil {
		return nil, err
	}

	return &root, nil
}

// detectVersion picks the namespace set for this payload. The root element
// namespace is checked against each candidate in priority order; payloads
// that only reveal their version through a schemaLocation attribute are
// caught by the substring scan. Everything else is treated as 3.3.
func detectVersion(root *element) namespaceSet {
	for _, candidate := range versionCandidates {
		if candidate.contains(root.XMLName.Space) {
			return candidate
		}
	}

	for _, a := range root.Attrs {
		if strings.Contains(a.Value, "cfd/4") {
			return versionCandidates[0]
		}
	}

	return versionCandidates[len(versionCandidates)-1]
}

// sumIVA adds the Importe of every Traslado entry whose Impuesto code is
// IVA. Entries with other codes are ignored entirely; entries with a
// non-numeric Importe are skipped without aborting the sum.
func sumIVA(root *element, inCFDI func(uri string) bool) decimal.Decimal {
	sum := decimal.Zero

	root.walk(func(parent, child *element) {
		if child.XMLName.Local != "Traslado" || !inCFDI(child.XMLName.Space) {
			return
		}
		if parent.XMLName.Local != "Traslados" || !inCFDI(parent.XMLName.Space) {
			return
		}
		if !ivaTaxCodes[child.attr("Impuesto")] {
			return
		}

		importe, err := decimal.NewFromString(child.attr("Importe"))
		if err != nil {
			return
		}
		sum = sum.Add(importe)
	})

	return sum
}
