package compare

import (
	"sort"
	"strings"

	"github.com/spaolacci/murmur3"

	"github.com/margauxdb/margaux/pkg/types"
)

// encodeRow renders a set row into its canonical text form: fields sorted by
// name, each as name=value. Two rows encode identically iff they carry the
// same values.
func encodeRow(row []types.NamedValue) string {
	parts := make([]string, len(row))
	for i, nv := range row {
		parts[i] = nv.Name + "=" + nv.Value.String()
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ", ") + "}"
}

// rowFingerprint hashes the canonical encoding of a set row.
func rowFingerprint(row []types.NamedValue) uint64 {
	return murmur3.Sum64([]byte(encodeRow(row)))
}

// multiset counts set rows by fingerprint, remembering one canonical encoding
// per fingerprint for reporting.
type multiset struct {
	counts   map[uint64]int
	encoding map[uint64]string
}

func newMultiset(rows [][]types.NamedValue) *multiset {
	m := &multiset{
		counts:   make(map[uint64]int, len(rows)),
		encoding: make(map[uint64]string, len(rows)),
	}
	for _, row := range rows {
		fp := rowFingerprint(row)
		m.counts[fp]++
		if _, ok := m.encoding[fp]; !ok {
			m.encoding[fp] = encodeRow(row)
		}
	}
	return m
}

// diffAgainst reports the rows whose multiplicities differ between m and o,
// ordered by canonical encoding. Each entry is (encoding, countInM, countInO).
type multisetDiff struct {
	encoding string
	a, b     int
}

func (m *multiset) diffAgainst(o *multiset) []multisetDiff {
	seen := make(map[uint64]struct{}, len(m.counts)+len(o.counts))
	var out []multisetDiff
	for fp := range m.counts {
		seen[fp] = struct{}{}
	}
	for fp := range o.counts {
		seen[fp] = struct{}{}
	}
	for fp := range seen {
		ca, cb := m.counts[fp], o.counts[fp]
		if ca == cb {
			continue
		}
		enc := m.encoding[fp]
		if enc == "" {
			enc = o.encoding[fp]
		}
		out = append(out, multisetDiff{encoding: enc, a: ca, b: cb})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].encoding < out[j].encoding })
	return out
}
