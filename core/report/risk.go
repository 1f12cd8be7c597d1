package report

import (
	"github.com/delegatescan/delegatescan/core/classify"
	"github.com/delegatescan/delegatescan/core/pattern"
)

// Risk is a per-site or overall risk level.
type Risk string

const (
	Low         Risk = "low"
	Medium      Risk = "medium"
	High        Risk = "high"
	UnknownRisk Risk = "unknown"
)

// rank orders risk levels for the "maximum risk" overall computation. Per
// spec.md §4.6, unknown sorts ABOVE high: an unresolved target is treated
// as less safe than a resolved-but-dangerous one.
var rank = map[Risk]int{Low: 0, Medium: 1, High: 2, UnknownRisk: 3}

// SiteRisk derives a single site's risk from its classification and
// (possibly nil) pattern match, per spec.md §4.6's table.
func SiteRisk(c classify.Classification, m *pattern.Match) Risk {
	switch c.Type {
	case classify.Hardcoded:
		if m != nil && m.Name == pattern.EIP1167 {
			return Medium
		}
		return Low
	case classify.Storage:
		return Medium
	case classify.Calldata, classify.Dynamic:
		return High
	default:
		return UnknownRisk
	}
}

// Overall returns the maximum of the given site risks under the order
// low < medium < high < unknown. Returns ("", false) if risks is empty.
func Overall(risks []Risk) (Risk, bool) {
	if len(risks) == 0 {
		return "", false
	}
	best := risks[0]
	for _, r := range risks[1:] {
		if rank[r] > rank[best] {
			best = r
		}
	}
	return best, true
}
