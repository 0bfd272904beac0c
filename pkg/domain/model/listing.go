package model

import (
	"sort"
	"strings"

	"github.com/secmon-lab/claimdesk/pkg/domain/types"
)

// FilterClaims keeps claims whose ID, title or policyholder name contains term,
// ignoring case. A blank term returns claims unchanged.
func FilterClaims(claims []*Claim, term string) []*Claim {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return claims
	}

	filtered := make([]*Claim, 0, len(claims))
	for _, c := range claims {
		if strings.Contains(strings.ToLower(c.ID.String()), term) ||
			strings.Contains(strings.ToLower(c.Title), term) ||
			strings.Contains(strings.ToLower(c.PolicyholderName), term) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// SortClaims returns a sorted copy of claims. Ties break on claim ID in the same
// direction as the key, so ascending and descending orders are exact reverses.
func SortClaims(claims []*Claim, key types.SortKey) []*Claim {
	if !key.IsValid() {
		key = types.DefaultSortKey
	}

	sorted := make([]*Claim, len(claims))
	copy(sorted, claims)

	less := func(a, b *Claim) int {
		switch key {
		case types.SortTitleAsc, types.SortTitleDesc:
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		case types.SortAmountAsc, types.SortAmountDesc:
			return compareInt64(a.ClaimedAmount, b.ClaimedAmount)
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		cmp := less(sorted[i], sorted[j])
		if cmp == 0 {
			cmp = strings.Compare(sorted[i].ID.String(), sorted[j].ID.String())
		}
		if key.Descending() {
			return cmp > 0
		}
		return cmp < 0
	})
	return sorted
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
