package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// SortOrder selects the ordering of the derived view.
type SortOrder string

const (
	SortNameAsc   SortOrder = "name-asc"
	SortNameDesc  SortOrder = "name-desc"
	SortPriceAsc  SortOrder = "price-asc"
	SortPriceDesc SortOrder = "price-desc"
)

// PriceRange holds optional bounds as entered by the user. An empty string
// means the bound is not set.
type PriceRange struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

// MinBound returns the parsed lower bound; ok is false when the bound is
// empty or not a number.
func (r PriceRange) MinBound() (decimal.Decimal, bool) {
	return ParseBound(r.Min)
}

// MaxBound returns the parsed upper bound; ok is false when the bound is
// empty or not a number.
func (r PriceRange) MaxBound() (decimal.Decimal, bool) {
	return ParseBound(r.Max)
}

// ParseBound parses a user-entered price bound.
func ParseBound(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FilterSet is the complete set of narrowing and ordering criteria.
// It is comparable and can be used as a cache key.
type FilterSet struct {
	SearchQuery string     `json:"searchQuery"`
	Category    string     `json:"category"`
	PriceRange  PriceRange `json:"priceRange"`
	SortBy      SortOrder  `json:"sortBy"`
}

// DefaultFilters returns the initial filter set.
func DefaultFilters() FilterSet {
	return FilterSet{
		SearchQuery: "",
		Category:    "",
		PriceRange:  PriceRange{Min: "", Max: ""},
		SortBy:      SortNameAsc,
	}
}

// PriceRangeUpdate edits price bounds independently of each other.
type PriceRangeUpdate struct {
	Min *string `json:"min,omitempty" validate:"omitempty,max=32"`
	Max *string `json:"max,omitempty" validate:"omitempty,max=32"`
}

// FilterUpdate is a partial edit of a FilterSet. Nil fields are left as they are.
type FilterUpdate struct {
	SearchQuery *string           `json:"searchQuery,omitempty" validate:"omitempty,max=200"`
	Category    *string           `json:"category,omitempty"    validate:"omitempty,max=100"`
	PriceRange  *PriceRangeUpdate `json:"priceRange,omitempty"`
	SortBy      *SortOrder        `json:"sortBy,omitempty"      validate:"omitempty,max=32"`
}

// Merge returns f with the non-nil fields of u applied. Price bounds are
// merged one by one, so editing Min keeps Max.
func (f FilterSet) Merge(u FilterUpdate) FilterSet {
	if u.SearchQuery != nil {
		f.SearchQuery = *u.SearchQuery
	}
	if u.Category != nil {
		f.Category = *u.Category
	}
	if u.PriceRange != nil {
		if u.PriceRange.Min != nil {
			f.PriceRange.Min = *u.PriceRange.Min
		}
		if u.PriceRange.Max != nil {
			f.PriceRange.Max = *u.PriceRange.Max
		}
	}
	if u.SortBy != nil {
		f.SortBy = *u.SortBy
	}
	return f
}
