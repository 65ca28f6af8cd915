// Package service fetches catalog records from the remote API and turns them
// into validated domain products.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"reflect"

	"github.com/abgdnv/catalogviewer/internal/catalog"
	"github.com/abgdnv/catalogviewer/internal/client"
	catalogerrors "github.com/abgdnv/catalogviewer/internal/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// CatalogService defines the read operations available against the catalog API.
// Every failure carries a *errors.RemoteFetchError in its chain.
type CatalogService interface {
	// FetchAll returns the whole collection, narrowed by params when given.
	FetchAll(ctx context.Context, params url.Values, token string) ([]catalog.Product, error)

	// FetchByID returns a single product.
	// Returns an ErrInvalidInput error when id is empty.
	FetchByID(ctx context.Context, id catalog.ProductID, token string) (*catalog.Product, error)

	// FetchByCategory returns the products of one category.
	// Returns an ErrInvalidInput error when category is empty.
	FetchByCategory(ctx context.Context, category string, params url.Values, token string) ([]catalog.Product, error)
}

// Service implements CatalogService on top of a JSON HTTP client.
type Service struct {
	client   client.Getter
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService creates a Service that reads through c.
func NewService(c client.Getter, logger *slog.Logger) *Service {
	return &Service{
		client:   c,
		validate: NewValidator(),
		logger:   logger.With("component", "catalog_service"),
	}
}

// NewValidator returns a validator that understands decimal prices.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// FetchAll retrieves GET /products.
func (s *Service) FetchAll(ctx context.Context, params url.Values, token string) ([]catalog.Product, error) {
	products, err := s.fetchCollection(ctx, "/products", params, token)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	return products, nil
}

// FetchByID retrieves GET /products/{id}. A record without an id takes the
// requested one.
func (s *Service) FetchByID(ctx context.Context, id catalog.ProductID, token string) (*catalog.Product, error) {
	if id == "" {
		return nil, catalogerrors.NewInvalidInputError("product id is required")
	}

	var raw json.RawMessage
	if err := s.client.Get(ctx, "/products/"+url.PathEscape(id.String()), nil, token, &raw); err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %s: %w", id, err)
	}

	var p catalog.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %s: %w", id, catalogerrors.NewDecodeError(err))
	}
	if p.ID == "" {
		p.ID = id
	}
	if err := s.validate.Struct(p); err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %s: %w", id, catalogerrors.NewDecodeError(err))
	}
	return &p, nil
}

// FetchByCategory retrieves GET /products/category/{category}.
func (s *Service) FetchByCategory(ctx context.Context, category string, params url.Values, token string) ([]catalog.Product, error) {
	if category == "" {
		return nil, catalogerrors.NewInvalidInputError("category is required")
	}
	products, err := s.fetchCollection(ctx, "/products/category/"+url.PathEscape(category), params, token)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products in category %s: %w", category, err)
	}
	return products, nil
}

// fetchCollection decodes a JSON array record by record. Records that fail to
// decode or validate are dropped, and so are repeated ids after the first.
func (s *Service) fetchCollection(ctx context.Context, endpoint string, params url.Values, token string) ([]catalog.Product, error) {
	var raw []json.RawMessage
	if err := s.client.Get(ctx, endpoint, params, token, &raw); err != nil {
		return nil, err
	}

	products := make([]catalog.Product, 0, len(raw))
	seen := make(map[catalog.ProductID]struct{}, len(raw))
	for i, item := range raw {
		var p catalog.Product
		if err := json.Unmarshal(item, &p); err != nil {
			s.logger.WarnContext(ctx, "dropping undecodable product", "endpoint", endpoint, "index", i, "error", err)
			continue
		}
		if err := s.validate.Struct(p); err != nil {
			s.logger.WarnContext(ctx, "dropping invalid product", "endpoint", endpoint, "index", i, "id", p.ID, "error", err)
			continue
		}
		if _, dup := seen[p.ID]; dup {
			s.logger.WarnContext(ctx, "dropping duplicate product", "endpoint", endpoint, "id", p.ID)
			continue
		}
		seen[p.ID] = struct{}{}
		products = append(products, p)
	}
	return products, nil
}

var _ CatalogService = (*Service)(nil)
