package types

import "github.com/m-mizutani/goerr/v2"

// SortKey selects the ordering of claim listings
type SortKey string

const (
	SortDateDesc   SortKey = "date_desc"
	SortDateAsc    SortKey = "date_asc"
	SortTitleAsc   SortKey = "title_asc"
	SortTitleDesc  SortKey = "title_desc"
	SortAmountAsc  SortKey = "amount_asc"
	SortAmountDesc SortKey = "amount_desc"
)

// DefaultSortKey is used when no key is requested
const DefaultSortKey = SortDateDesc

func (k SortKey) IsValid() bool {
	switch k {
	case SortDateDesc, SortDateAsc, SortTitleAsc, SortTitleDesc, SortAmountAsc, SortAmountDesc:
		return true
	default:
		return false
	}
}

// Descending reports whether the key orders from largest to smallest
func (k SortKey) Descending() bool {
	return k == SortDateDesc || k == SortTitleDesc || k == SortAmountDesc
}

// ParseSortKey parses a string into a SortKey. Empty input yields DefaultSortKey.
func ParseSortKey(s string) (SortKey, error) {
	if s == "" {
		return DefaultSortKey, nil
	}
	k := SortKey(s)
	if !k.IsValid() {
		return "", goerr.Wrap(ErrInvalidValue, "invalid sort key", goerr.V("sort", s))
	}
	return k, nil
}
