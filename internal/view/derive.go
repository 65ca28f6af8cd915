// Package view derives the filtered and sorted product sequence shown to
// the user from the raw collection and the current filter set.
package view

import (
	"slices"
	"strings"

	"github.com/abgdnv/catalogviewer/internal/catalog"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Derive returns the products matching filters, ordered by filters.SortBy.
// Names are compared with the collation rules of locale. The input slice is
// never modified and the result never shares its backing array.
func Derive(products []catalog.Product, filters catalog.FilterSet, locale language.Tag) []catalog.Product {
	result := make([]catalog.Product, 0, len(products))

	query := strings.ToLower(filters.SearchQuery)
	minPrice, hasMin := filters.PriceRange.MinBound()
	maxPrice, hasMax := filters.PriceRange.MaxBound()

	for _, p := range products {
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Title), query) &&
			!strings.Contains(strings.ToLower(p.Description), query) {
			continue
		}
		if filters.Category != "" && p.Category != filters.Category {
			continue
		}
		if hasMin && p.Price.LessThan(minPrice) {
			continue
		}
		if hasMax && p.Price.GreaterThan(maxPrice) {
			continue
		}
		result = append(result, p)
	}

	slices.SortStableFunc(result, comparator(filters.SortBy, locale))
	return result
}

func comparator(order catalog.SortOrder, locale language.Tag) func(a, b catalog.Product) int {
	switch order {
	case catalog.SortPriceAsc:
		return func(a, b catalog.Product) int { return a.Price.Cmp(b.Price) }
	case catalog.SortPriceDesc:
		return func(a, b catalog.Product) int { return b.Price.Cmp(a.Price) }
	case catalog.SortNameDesc:
		// a collator keeps internal buffers, one per sort
		c := collate.New(locale)
		return func(a, b catalog.Product) int { return c.CompareString(b.Title, a.Title) }
	default:
		c := collate.New(locale)
		return func(a, b catalog.Product) int { return c.CompareString(a.Title, b.Title) }
	}
}
