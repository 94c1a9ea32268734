package fundamentals

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/vnfinlab/vnquant/internal/domain"
)

//go:embed synonyms.yaml
var synonymsYAML []byte

// Normalizer resolves canonical statement field names against the
// provider's heterogeneous column spellings. One declarative synonym
// table serves every calculation so the lists cannot drift apart.
type Normalizer struct {
	synonyms map[string][]string
}

// NewNormalizer loads the embedded synonym table.
func NewNormalizer() (*Normalizer, error) {
	syn := map[string][]string{}
	if err := yaml.Unmarshal(synonymsYAML, &syn); err != nil {
		return nil, fmt.Errorf("failed to parse field synonyms: %w", err)
	}
	return &Normalizer{synonyms: syn}, nil
}

// MustNewNormalizer is NewNormalizer for wiring paths where a broken
// embedded table is unrecoverable.
func MustNewNormalizer() *Normalizer {
	n, err := NewNormalizer()
	if err != nil {
		panic(err)
	}
	return n
}

// Resolve returns the value of a canonical field in a row, trying each
// known synonym in declared order. Matching is exact; fuzzy matching
// would risk pairing e.g. "Revenue" with "Revenue deductions".
func (n *Normalizer) Resolve(row domain.StatementRow, field string) (float64, bool) {
	for _, name := range n.synonyms[field] {
		if v, ok := row.Values[name]; ok {
			return v, true
		}
	}
	return 0, false
}

// ResolveAll resolves a set of canonical fields for one row. When any
// field cannot be resolved the row is rejected with a MissingFieldError
// naming every unresolved canonical name.
func (n *Normalizer) ResolveAll(row domain.StatementRow, fields ...string) (map[string]float64, error) {
	resolved := make(map[string]float64, len(fields))
	var missing []string
	for _, f := range fields {
		v, ok := n.Resolve(row, f)
		if !ok {
			missing = append(missing, f)
			continue
		}
		resolved[f] = v
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &domain.MissingFieldError{Fields: missing}
	}
	return resolved, nil
}

// KnownFields lists the canonical fields the table declares.
func (n *Normalizer) KnownFields() []string {
	fields := make([]string, 0, len(n.synonyms))
	for f := range n.synonyms {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}
