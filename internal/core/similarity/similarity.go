// Package similarity defines the pluggable product-affinity relation used to
// rank candidate locations for SKUs with no existing stock.
package similarity

import "strings"

// Relation reports whether two distinct SKUs count as similar products.
// The relation influences ranking only, never placement correctness.
type Relation interface {
	Similar(a, b string) bool
}

// None is a Relation under which no two SKUs are similar.
type None struct{}

func (None) Similar(a, b string) bool { return false }

// Static is a table-driven Relation supplied by configuration. SKU matching
// is case-insensitive, so tables survive config loaders that fold key case.
type Static struct {
	table     map[string]map[string]bool
	symmetric bool
}

// NewStatic builds a Static relation from a SKU -> similar-SKUs table. When
// symmetric is true, every edge is honored in both directions.
func NewStatic(table map[string][]string, symmetric bool) *Static {
	s := &Static{
		table:     make(map[string]map[string]bool, len(table)),
		symmetric: symmetric,
	}
	for sku, sims := range table {
		for _, sim := range sims {
			s.add(sku, sim)
			if symmetric {
				s.add(sim, sku)
			}
		}
	}
	return s
}

func (s *Static) add(from, to string) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	set, ok := s.table[from]
	if !ok {
		set = make(map[string]bool)
		s.table[from] = set
	}
	set[to] = true
}

func (s *Static) Similar(a, b string) bool {
	a = strings.ToUpper(a)
	b = strings.ToUpper(b)
	if a == b {
		return false
	}
	return s.table[a][b]
}

// Ratio is a Relation that compares SKU strings by normalized
// longest-common-subsequence ratio, case-insensitively. Two SKUs are similar
// when 2*LCS(a,b)/(len(a)+len(b)) meets the threshold.
type Ratio struct {
	threshold float64
}

// DefaultRatioThreshold matches the legacy recommender's 0.6 cutoff.
const DefaultRatioThreshold = 0.6

func NewRatio(threshold float64) *Ratio {
	if threshold <= 0 {
		threshold = DefaultRatioThreshold
	}
	return &Ratio{threshold: threshold}
}

func (r *Ratio) Similar(a, b string) bool {
	if a == b {
		return false
	}
	return ratio(strings.ToUpper(a), strings.ToUpper(b)) >= r.threshold
}

func ratio(a, b string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	return 2 * float64(lcs(a, b)) / float64(len(a)+len(b))
}

// lcs computes longest-common-subsequence length with a rolling row.
func lcs(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
