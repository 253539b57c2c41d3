// Package catalog provides the implementation of product-related business logic.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	ierrors "github.com/tiendatech/inventory/internal/errors"
	"github.com/tiendatech/inventory/internal/store"
)

// Categories is the fixed enumerated set a product category must belong to.
var Categories = []string{"Computers", "Smartphones", "Accessories", "Peripherals"}

// Search criteria accepted by Service.Search.
const (
	CriterionID       = "id"
	CriterionName     = "name"
	CriterionSupplier = "supplier"
	CriterionCategory = "category"
)

// ProductService defines the methods for managing the product catalog.
type ProductService interface {
	// Add creates a new product. Returns ErrInvalidInput when a field
	// violates its constraint and ErrProductExists on a duplicate id.
	Add(ctx context.Context, product ProductDto) (*ProductDto, error)

	// Search returns the products matching the criterion, ordered by
	// ascending id. Criterion id matches exactly on the numeric id,
	// name and supplier match case-insensitive substrings, category
	// matches exactly. Returns ErrInvalidInput for an unknown criterion
	// or a non-numeric id value.
	Search(ctx context.Context, criterion, value string) ([]ProductDto, error)

	// Update applies a field-level merge to an existing product. Provided
	// fields are validated with the same rules as Add. Returns whether a
	// matching product existed; an unknown id is not an error.
	Update(ctx context.Context, id int64, upd ProductUpdateDto) (bool, error)

	// Remove deletes a product by id. Returns whether a deletion occurred.
	Remove(ctx context.Context, id int64) (bool, error)

	// ListAll returns the full catalog ordered by ascending id.
	ListAll(ctx context.Context) ([]ProductDto, error)
}

// Service implements ProductService on top of the product store gateway.
type Service struct {
	products store.ProductStore
}

// NewService creates a new catalog service with the provided product store.
func NewService(products store.ProductStore) *Service {
	return &Service{products: products}
}

// ProductDto represents the data transfer object for a product.
type ProductDto struct {
	ID       int64   `json:"id"       validate:"required"`
	Name     string  `json:"name"     validate:"required"`
	Category string  `json:"category" validate:"required"`
	Price    float64 `json:"price"    validate:"gte=0"`
	Quantity int64   `json:"quantity" validate:"gte=0"`
	Supplier string  `json:"supplier" validate:"required"`
}

// ProductUpdateDto represents a partial product update. Nil fields are
// left untouched.
type ProductUpdateDto struct {
	Name     *string  `json:"name,omitempty"`
	Category *string  `json:"category,omitempty"`
	Price    *float64 `json:"price,omitempty"    validate:"omitempty,gte=0"`
	Quantity *int64   `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	Supplier *string  `json:"supplier,omitempty"`
}

// Add creates a new product and returns it as a ProductDto.
func (s *Service) Add(ctx context.Context, product ProductDto) (*ProductDto, error) {
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	doc := store.Product{
		ProductID: product.ID,
		Name:      product.Name,
		Category:  product.Category,
		Price:     product.Price,
		Quantity:  product.Quantity,
		Supplier:  product.Supplier,
	}
	if err := s.products.Insert(ctx, doc); err != nil {
		if errors.Is(err, ierrors.ErrProductExists) {
			return nil, fmt.Errorf("%w: id %d", ierrors.ErrProductExists, product.ID)
		}
		return nil, fmt.Errorf("failed to add product %d: %w", product.ID, err)
	}

	return toDto(&doc), nil
}

// Search returns the products matching the criterion as ProductDtos.
func (s *Service) Search(ctx context.Context, criterion, value string) ([]ProductDto, error) {
	var filter store.ProductFilter

	switch criterion {
	case CriterionID:
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: id must be numeric, got %q", ierrors.ErrInvalidInput, value)
		}
		filter.ID = &id
	case CriterionName:
		filter.NameSubstr = value
	case CriterionSupplier:
		filter.SupplierSubstr = value
	case CriterionCategory:
		filter.Category = value
	default:
		return nil, fmt.Errorf("%w: unknown search criterion %q", ierrors.ErrInvalidInput, criterion)
	}

	products, err := s.products.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return toDtos(products), nil
}

// Update applies a field-level merge to an existing product.
func (s *Service) Update(ctx context.Context, id int64, upd ProductUpdateDto) (bool, error) {
	if err := validateUpdate(upd); err != nil {
		return false, err
	}

	matched, err := s.products.Update(ctx, id, store.ProductUpdate{
		Name:     upd.Name,
		Category: upd.Category,
		Price:    upd.Price,
		Quantity: upd.Quantity,
		Supplier: upd.Supplier,
	})
	if err != nil {
		return false, fmt.Errorf("failed to update product %d: %w", id, err)
	}
	return matched, nil
}

// Remove deletes a product by its id.
func (s *Service) Remove(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.products.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete product %d: %w", id, err)
	}
	return deleted, nil
}

// ListAll returns the full catalog ordered by ascending id.
func (s *Service) ListAll(ctx context.Context) ([]ProductDto, error) {
	products, err := s.products.Find(ctx, store.ProductFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return toDtos(products), nil
}

// validateProduct enforces the Add-time constraints.
func validateProduct(p ProductDto) error {
	if p.Name == "" {
		return fmt.Errorf("%w: name must not be empty", ierrors.ErrInvalidInput)
	}
	if !ValidCategory(p.Category) {
		return fmt.Errorf("%w: unknown category %q", ierrors.ErrInvalidInput, p.Category)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ierrors.ErrInvalidInput)
	}
	if p.Quantity < 0 {
		return fmt.Errorf("%w: quantity must not be negative", ierrors.ErrInvalidInput)
	}
	if p.Supplier == "" {
		return fmt.Errorf("%w: supplier must not be empty", ierrors.ErrInvalidInput)
	}
	return nil
}

// validateUpdate applies the Add-time constraints to the fields present.
func validateUpdate(upd ProductUpdateDto) error {
	if upd.Name != nil && *upd.Name == "" {
		return fmt.Errorf("%w: name must not be empty", ierrors.ErrInvalidInput)
	}
	if upd.Category != nil && !ValidCategory(*upd.Category) {
		return fmt.Errorf("%w: unknown category %q", ierrors.ErrInvalidInput, *upd.Category)
	}
	if upd.Price != nil && *upd.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ierrors.ErrInvalidInput)
	}
	if upd.Quantity != nil && *upd.Quantity < 0 {
		return fmt.Errorf("%w: quantity must not be negative", ierrors.ErrInvalidInput)
	}
	if upd.Supplier != nil && *upd.Supplier == "" {
		return fmt.Errorf("%w: supplier must not be empty", ierrors.ErrInvalidInput)
	}
	return nil
}

// ValidCategory reports whether c belongs to the fixed category set.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// toDto converts a store.Product to a ProductDto.
func toDto(p *store.Product) *ProductDto {
	return &ProductDto{
		ID:       p.ProductID,
		Name:     p.Name,
		Category: p.Category,
		Price:    p.Price,
		Quantity: p.Quantity,
		Supplier: p.Supplier,
	}
}

func toDtos(products []store.Product) []ProductDto {
	dtos := make([]ProductDto, len(products))
	for i, p := range products {
		dtos[i] = *toDto(&p)
	}
	return dtos
}
