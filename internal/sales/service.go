// Package sales provides the implementation of sale-related business logic.
package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	ierrors "github.com/tiendatech/inventory/internal/errors"
	"github.com/tiendatech/inventory/internal/store"
	"github.com/tiendatech/inventory/pkg/messaging"
	"github.com/tiendatech/inventory/pkg/messaging/events"
)

// SaleService defines the methods for executing and querying sales.
type SaleService interface {
	// Execute sells quantity units of the given product on behalf of the
	// acting user (nil when unattributed). The stock decrement and the
	// stock check are one conditional store write, so the quantity can
	// never go negative. Returns ErrProductNotFound for an unknown id,
	// ErrInvalidInput for a non-positive quantity and ErrInsufficientStock
	// when the recorded stock is lower than requested.
	Execute(ctx context.Context, productID, quantity int64, user *string) (*SaleResult, error)

	// History returns the sales matching the filter, ordered by
	// descending timestamp.
	History(ctx context.Context, filter HistoryFilter) ([]SaleDto, error)
}

// Service implements SaleService on top of the product and sale stores.
type Service struct {
	products  store.ProductStore
	sales     store.SaleStore
	publisher messaging.Publisher
	logger    *slog.Logger
}

// NewService creates a new sales service. The publisher may be nil when event
// publishing is not configured.
func NewService(products store.ProductStore, sales store.SaleStore, publisher messaging.Publisher, logger *slog.Logger) *Service {
	return &Service{
		products:  products,
		sales:     sales,
		publisher: publisher,
		logger:    logger.With("component", "sales"),
	}
}

// SaleResult reports a committed sale. AuditRecorded is false when the sale
// record insert failed; the sale still happened from the inventory's point of
// view and the stock decrement is not reversed.
type SaleResult struct {
	Total          float64 `json:"total"`
	RemainingStock int64   `json:"remaining_stock"`
	AuditRecorded  bool    `json:"audit_recorded"`
}

// SaleDto represents the data transfer object for a recorded sale.
type SaleDto struct {
	ProductID   int64     `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int64     `json:"quantity_sold"`
	UnitPrice   float64   `json:"unit_price"`
	Total       float64   `json:"total"`
	Timestamp   time.Time `json:"timestamp"`
	User        *string   `json:"user"`
}

// HistoryFilter narrows a sales history query. Time bounds are inclusive.
// A positive Limit caps the number of returned sales.
type HistoryFilter struct {
	User  *string
	From  *time.Time
	To    *time.Time
	Limit int64
}

// Execute performs the sale and appends the audit record.
func (s *Service) Execute(ctx context.Context, productID, quantity int64, user *string) (*SaleResult, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity sold must be positive, got %d", ierrors.ErrInvalidInput, quantity)
	}

	updated, err := s.products.DecrementQuantity(ctx, productID, quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to decrement stock for product %d: %w", productID, err)
	}
	if updated == nil {
		// The conditional write matched nothing: either the product is
		// absent or its stock is lower than requested.
		if _, err := s.products.FindByID(ctx, productID); err != nil {
			if errors.Is(err, ierrors.ErrProductNotFound) {
				return nil, fmt.Errorf("%w: id %d", ierrors.ErrProductNotFound, productID)
			}
			return nil, fmt.Errorf("failed to fetch product %d: %w", productID, err)
		}
		return nil, fmt.Errorf("%w: product %d has fewer than %d units", ierrors.ErrInsufficientStock, productID, quantity)
	}

	total := float64(quantity) * updated.Price
	now := time.Now()

	sale := store.Sale{
		ProductID: updated.ProductID,
		Name:      updated.Name,
		Quantity:  quantity,
		UnitPrice: updated.Price,
		Total:     total,
		Timestamp: now,
		User:      user,
	}

	// Best-effort audit write: a failure here is reported, never rolled back.
	auditRecorded := true
	if err := s.sales.Insert(ctx, sale); err != nil {
		auditRecorded = false
		s.logger.ErrorContext(ctx, "Sale committed but audit record insert failed",
			"product_id", productID, "quantity", quantity, "error", err)
	}

	s.publish(ctx, events.SaleCompletedEvent{
		ProductID:     updated.ProductID,
		ProductName:   updated.Name,
		Quantity:      quantity,
		Total:         total,
		User:          user,
		AuditRecorded: auditRecorded,
		OccurredAt:    now,
	})

	return &SaleResult{
		Total:          total,
		RemainingStock: updated.Quantity,
		AuditRecorded:  auditRecorded,
	}, nil
}

// History returns the sales matching the filter as SaleDtos.
func (s *Service) History(ctx context.Context, filter HistoryFilter) ([]SaleDto, error) {
	found, err := s.sales.Find(ctx, store.SaleFilter{
		User:  filter.User,
		From:  filter.From,
		To:    filter.To,
		Limit: filter.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sales history: %w", err)
	}

	dtos := make([]SaleDto, len(found))
	for i, sale := range found {
		dtos[i] = SaleDto{
			ProductID:   sale.ProductID,
			ProductName: sale.Name,
			Quantity:    sale.Quantity,
			UnitPrice:   sale.UnitPrice,
			Total:       sale.Total,
			Timestamp:   sale.Timestamp,
			User:        sale.User,
		}
	}
	return dtos, nil
}

func (s *Service) publish(ctx context.Context, event events.SaleCompletedEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish SaleCompletedEvent", "error", err)
	}
}
