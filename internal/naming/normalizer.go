// =============================================================================
// Refactura Builder - Filename Normalization
// =============================================================================
//
// Uploaded scan names and XML source names arrive with arbitrary casing,
// accents, spacing, and punctuation ("Factura 03 (final).PDF" vs.
// "factura-03-final.pdf"). Normalize reduces both to one comparison key so
// the matcher can treat them as the same logical document.
//
// =============================================================================

package naming

import (
	"path"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldAccents decomposes, drops combining marks, and recomposes, turning
// "Fåctura" into "Factura".
var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize converts a file name into its comparison key.
//
// Steps, in order, each total over any input string:
//  1. take the final path segment
//  2. strip one trailing extension
//  3. fold accents and apply canonical composition
//  4. lower-case
//  5. collapse every run of non-alphanumeric characters into a single '-'
//  6. trim leading and trailing '-'
//
// The function is idempotent: a key already in normalized form maps to
// itself.
func Normalize(name string) string {
	// Uploads may carry either separator depending on the client OS.
	base := name
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	stem := strings.TrimSuffix(base, path.Ext(base))

	folded, _, err := transform.String(foldAccents, stem)
	if err != nil {
		// Folding is best-effort; an undecodable rune keeps the raw stem.
		folded = stem
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))

	pendingDash := false
	for _, r := range folded {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isAlnum {
			pendingDash = b.Len() > 0
			continue
		}
		if pendingDash {
			b.WriteByte('-')
			pendingDash = false
		}
		b.WriteRune(r)
	}

	return b.String()
}
