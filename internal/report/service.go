// Package report derives aggregate reports from the product catalog.
package report

import (
	"context"
	"fmt"

	"github.com/tiendatech/inventory/internal/catalog"
	"github.com/tiendatech/inventory/internal/store"
)

// DefaultLowStockThreshold flags products whose quantity falls strictly
// below it.
const DefaultLowStockThreshold = 5

// ReportService defines the reporting operations.
type ReportService interface {
	// Generate computes both reports from a single full-catalog read, so
	// the low-stock list and the total value observe the same snapshot.
	Generate(ctx context.Context) (*Report, error)

	// LowStock returns the products with quantity strictly below the
	// configured threshold.
	LowStock(ctx context.Context) ([]catalog.ProductDto, error)

	// TotalValue returns the sum of quantity*price over all products.
	TotalValue(ctx context.Context) (float64, error)
}

// Report is the result of one reporting pass over the catalog.
type Report struct {
	LowStock   []catalog.ProductDto `json:"low_stock"`
	TotalValue float64              `json:"total_value"`
}

// Service implements ReportService on top of the product store gateway.
// Reports are recomputed on demand; nothing is maintained incrementally.
type Service struct {
	products  store.ProductStore
	threshold int64
}

// NewService creates a new reporting service. A non-positive threshold falls
// back to DefaultLowStockThreshold.
func NewService(products store.ProductStore, threshold int64) *Service {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	return &Service{products: products, threshold: threshold}
}

// Generate computes the low-stock list and the total inventory value in one
// pass over one catalog read.
func (s *Service) Generate(ctx context.Context) (*Report, error) {
	products, err := s.products.Find(ctx, store.ProductFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog for report: %w", err)
	}

	report := &Report{LowStock: make([]catalog.ProductDto, 0)}
	for _, p := range products {
		report.TotalValue += float64(p.Quantity) * p.Price
		if p.Quantity < s.threshold {
			report.LowStock = append(report.LowStock, catalog.ProductDto{
				ID:       p.ProductID,
				Name:     p.Name,
				Category: p.Category,
				Price:    p.Price,
				Quantity: p.Quantity,
				Supplier: p.Supplier,
			})
		}
	}
	return report, nil
}

// LowStock returns the low-stock slice of a fresh report.
func (s *Service) LowStock(ctx context.Context) ([]catalog.ProductDto, error) {
	report, err := s.Generate(ctx)
	if err != nil {
		return nil, err
	}
	return report.LowStock, nil
}

// TotalValue returns the total-value figure of a fresh report.
func (s *Service) TotalValue(ctx context.Context) (float64, error) {
	report, err := s.Generate(ctx)
	if err != nil {
		return 0, err
	}
	return report.TotalValue, nil
}
