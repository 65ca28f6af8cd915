package view

import (
	"slices"
	"sync"

	"github.com/abgdnv/catalogviewer/internal/catalog"
	"golang.org/x/text/language"
)

// Memo caches the most recent derived view keyed by the collection version
// and the filter set value. Callers bump the version whenever they replace
// the raw collection.
type Memo struct {
	mu      sync.Mutex
	locale  language.Tag
	valid   bool
	version uint64
	filters catalog.FilterSet
	result  []catalog.Product
	misses  uint64
}

// NewMemo creates an empty cache that sorts names using locale.
func NewMemo(locale language.Tag) *Memo {
	return &Memo{locale: locale}
}

// View returns Derive(products, filters) for the given collection version,
// recomputing only when version or filters differ from the cached key.
// The returned slice is a copy the caller may keep.
func (m *Memo) View(version uint64, products []catalog.Product, filters catalog.FilterSet) []catalog.Product {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.valid || m.version != version || m.filters != filters {
		m.result = Derive(products, filters, m.locale)
		m.version = version
		m.filters = filters
		m.valid = true
		m.misses++
	}
	return slices.Clone(m.result)
}

// Recomputations reports how many times View had to derive a new result.
func (m *Memo) Recomputations() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.misses
}
