// Package catalog holds the domain types shared by the catalog client, the
// derived view engine and the product store.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ProductID is the opaque product identifier. The backend may send it as a
// JSON string or number; both are kept in their textual form.
type ProductID string

func (id *ProductID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ProductID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("product id must be a string or a number: %w", err)
	}
	*id = ProductID(n.String())
	return nil
}

func (id ProductID) String() string {
	return string(id)
}

// Product is a catalog record as received from the backend.
type Product struct {
	ID          ProductID       `json:"id"          validate:"required"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"       validate:"gte=0"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Available   bool            `json:"available"`
}

// productWire is the lenient wire shape: title may come as name, price may be
// a number, a numeric string or garbage, available may be missing.
type productWire struct {
	ID          ProductID       `json:"id"`
	Title       *string         `json:"title"`
	Name        *string         `json:"name"`
	Price       json.RawMessage `json:"price"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Available   *bool           `json:"available"`
}

// UnmarshalJSON decodes a backend record. A missing available flag means
// true and a price that is not a number becomes zero.
func (p *Product) UnmarshalJSON(b []byte) error {
	var w productWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*p = Product{
		ID:          w.ID,
		Price:       parsePrice(w.Price),
		Description: w.Description,
		Category:    w.Category,
		Image:       w.Image,
		Available:   true,
	}
	switch {
	case w.Title != nil:
		p.Title = *w.Title
	case w.Name != nil:
		p.Title = *w.Name
	}
	if w.Available != nil {
		p.Available = *w.Available
	}
	return nil
}

// MarshalJSON writes the price as a JSON number.
func (p Product) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID          ProductID   `json:"id"`
		Title       string      `json:"title"`
		Price       json.Number `json:"price"`
		Description string      `json:"description"`
		Category    string      `json:"category"`
		Image       string      `json:"image"`
		Available   bool        `json:"available"`
	}{
		ID:          p.ID,
		Title:       p.Title,
		Price:       json.Number(p.Price.String()),
		Description: p.Description,
		Category:    p.Category,
		Image:       p.Image,
		Available:   p.Available,
	})
}

// FormattedPrice renders the price with two decimals behind symbol, e.g. "$19.90".
func (p Product) FormattedPrice(symbol string) string {
	return symbol + p.Price.StringFixed(2)
}

func parsePrice(raw json.RawMessage) decimal.Decimal {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return decimal.Zero
	}
	text := string(raw)
	if raw[0] == '"' {
		unquoted, err := strconv.Unquote(text)
		if err != nil {
			return decimal.Zero
		}
		text = strings.TrimSpace(unquoted)
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero
	}
	return d
}
