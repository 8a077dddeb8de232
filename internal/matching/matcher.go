// =============================================================================
// Refactura Builder - Document Matcher
// =============================================================================
//
// The matcher associates every canonical record with at most one uploaded
// scan. Matching is an ordered list of total, side-effect-free strategies
// tried in sequence until one yields a file; adding a fallback means
// appending to the list, not touching the existing strategies.
//
//   1. normalized-key        : the scan's normalized name equals the
//                              normalized stem of the record's source XML
//   2. identifier-substring  : a scan's normalized name contains the record's
//                              lower-cased UUID, or its first 8 characters
//   3. none                  : reported, never fatal
//
// Uploads are always scanned in their given order and never re-ordered, so
// re-running the matcher on the same inputs is deterministic. When two
// uploads normalize to the same key the first one wins; the collision is
// surfaced in the result so the operator can fix the upload set.
//
// =============================================================================

package matching

import (
	"strings"

	"github.com/jcutting/facturarator/internal/cfdi"
	"github.com/jcutting/facturarator/internal/naming"
)

// Strategy identifies how an association was made.
type Strategy string

const (
	StrategyNormalizedKey       Strategy = "normalized-key"
	StrategyIdentifierSubstring Strategy = "identifier-substring"
	StrategyNone                Strategy = "none"
)

// identifierPrefixLen is how many leading UUID characters the substring
// fallback accepts; scan names frequently carry only the short folio.
const identifierPrefixLen = 8

// Association ties one record to its matched scan, if any.
type Association struct {
	// RecordIndex is the record's position in the matcher input.
	RecordIndex int

	// FileName is the original name of the matched upload, or "" when the
	// record is unmatched.
	FileName string

	// Strategy is how the match was made.
	Strategy Strategy
}

// Matched reports whether an upload was associated.
func (a Association) Matched() bool {
	return a.Strategy != StrategyNone
}

// DuplicateKey describes uploads whose names normalize to the same key.
// The first upload in the given order wins; the rest are unreachable by the
// normalized-key strategy.
type DuplicateKey struct {
	Key   string
	Names []string
}

// Result is one matcher run over a record set and an upload set.
type Result struct {
	Associations []Association
	Duplicates   []DuplicateKey
}

// upload is a scan name with its precomputed key.
type upload struct {
	name string
	key  string
}

// strategyFunc returns the matched upload name, in upload order, or false.
type strategyFunc func(rec *cfdi.Record, uploads []upload) (string, bool)

type strategy struct {
	name  Strategy
	match strategyFunc
}

// strategies is tried in order; first hit wins with no second pass.
var strategies = []strategy{
	{StrategyNormalizedKey, matchNormalizedKey},
	{StrategyIdentifierSubstring, matchIdentifierSubstring},
}

// Match produces one Association per record against the uploads, which are
// taken strictly in the given order.
func Match(records []cfdi.Record, uploadNames []string) Result {
	uploads := make([]upload, 0, len(uploadNames))
	for _, name := range uploadNames {
		uploads = append(uploads, upload{name: name, key: naming.Normalize(name)})
	}

	result := Result{
		Associations: make([]Association, 0, len(records)),
		Duplicates:   findDuplicates(uploads),
	}

	for i := range records {
		assoc := Association{RecordIndex: i, Strategy: StrategyNone}

		for _, s := range strategies {
			if name, ok := s.match(&records[i], uploads); ok {
				assoc.FileName = name
				assoc.Strategy = s.name
				break
			}
		}

		result.Associations = append(result.Associations, assoc)
	}

	return result
}

func matchNormalizedKey(rec *cfdi.Record, uploads []upload) (string, bool) {
	want := naming.Normalize(rec.SourceFile)
	if want == "" {
		return "", false
	}

	for _, u := range uploads {
		if u.key == want {
			return u.name, true
		}
	}
	return "", false
}

func matchIdentifierSubstring(rec *cfdi.Record, uploads []upload) (string, bool) {
	if rec.Identifier == "" {
		return "", false
	}

	full := strings.ToLower(rec.Identifier)
	prefix := full
	if len(prefix) > identifierPrefixLen {
		prefix = prefix[:identifierPrefixLen]
	}

	for _, u := range uploads {
		if strings.Contains(u.key, full) || strings.Contains(u.key, prefix) {
			return u.name, true
		}
	}
	return "", false
}

func findDuplicates(uploads []upload) []DuplicateKey {
	byKey := make(map[string][]string)
	order := make([]string, 0, len(uploads))

	for _, u := range uploads {
		if u.key == "" {
			continue
		}
		if _, seen := byKey[u.key]; !seen {
			order = append(order, u.key)
		}
		byKey[u.key] = append(byKey[u.key], u.name)
	}

	var dups []DuplicateKey
	for _, key := range order {
		if names := byKey[key]; len(names) > 1 {
			dups = append(dups, DuplicateKey{Key: key, Names: names})
		}
	}
	return dups
}
