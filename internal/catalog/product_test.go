package catalog

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProduct_UnmarshalJSON(t *testing.T) {
	testCases := []struct {
		name     string
		payload  string
		expected Product
	}{
		{
			name:    "Success - full record",
			payload: `{"id":"p-1","title":"Apple Phone","price":499.99,"description":"A phone","category":"electronics","image":"https://img/1.png","available":false}`,
			expected: Product{
				ID: "p-1", Title: "Apple Phone", Price: decimal.RequireFromString("499.99"),
				Description: "A phone", Category: "electronics", Image: "https://img/1.png", Available: false,
			},
		},
		{
			name:     "Numeric id and missing available",
			payload:  `{"id":42,"title":"Shirt","price":20}`,
			expected: Product{ID: "42", Title: "Shirt", Price: decimal.RequireFromString("20"), Available: true},
		},
		{
			name:     "Name used when title is absent",
			payload:  `{"id":1,"name":"Banana Shirt","price":"15.5"}`,
			expected: Product{ID: "1", Title: "Banana Shirt", Price: decimal.RequireFromString("15.5"), Available: true},
		},
		{
			name:     "Non-numeric price becomes zero",
			payload:  `{"id":1,"title":"Mystery","price":"call us"}`,
			expected: Product{ID: "1", Title: "Mystery", Price: decimal.Zero, Available: true},
		},
		{
			name:     "Null price and null id",
			payload:  `{"id":null,"title":"Ghost","price":null}`,
			expected: Product{ID: "", Title: "Ghost", Price: decimal.Zero, Available: true},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			var p Product
			err := json.Unmarshal([]byte(tc.payload), &p)

			// then
			require.NoError(t, err)
			assert.Equal(t, tc.expected.ID, p.ID)
			assert.Equal(t, tc.expected.Title, p.Title)
			assert.True(t, tc.expected.Price.Equal(p.Price), "price %s != %s", tc.expected.Price, p.Price)
			assert.Equal(t, tc.expected.Description, p.Description)
			assert.Equal(t, tc.expected.Category, p.Category)
			assert.Equal(t, tc.expected.Image, p.Image)
			assert.Equal(t, tc.expected.Available, p.Available)
		})
	}
}

func TestProduct_UnmarshalJSON_InvalidID(t *testing.T) {
	var p Product
	err := json.Unmarshal([]byte(`{"id":{"nested":true},"title":"x"}`), &p)
	assert.Error(t, err)
}

func TestProduct_MarshalJSON_PriceIsNumber(t *testing.T) {
	// given
	p := Product{ID: "7", Title: "Lamp", Price: decimal.RequireFromString("12.50"), Available: true}

	// when
	b, err := json.Marshal(p)

	// then
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"7","title":"Lamp","price":12.5,"description":"","category":"","image":"","available":true}`, string(b))
}

func TestProduct_FormattedPrice(t *testing.T) {
	testCases := []struct {
		price    decimal.Decimal
		expected string
	}{
		{price: decimal.RequireFromString("19.9"), expected: "$19.90"},
		{price: decimal.Zero, expected: "$0.00"},
		{price: decimal.RequireFromString("5.005"), expected: "$5.01"},
	}
	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, Product{Price: tc.price}.FormattedPrice("$"))
		})
	}
}
