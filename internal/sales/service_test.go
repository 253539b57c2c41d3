package sales

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierrors "github.com/tiendatech/inventory/internal/errors"
	"github.com/tiendatech/inventory/internal/store"
	"github.com/tiendatech/inventory/pkg/messaging"
)

// mockProductStore is a mock implementation of the store.ProductStore interface
type mockProductStore struct {
	decremented *store.Product
	decErr      error
	found       *store.Product
	findErr     error
}

func (m *mockProductStore) FindByID(_ context.Context, _ int64) (*store.Product, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.found, nil
}

func (m *mockProductStore) Find(_ context.Context, _ store.ProductFilter) ([]store.Product, error) {
	return nil, nil
}

func (m *mockProductStore) Insert(_ context.Context, _ store.Product) error { return nil }

func (m *mockProductStore) Update(_ context.Context, _ int64, _ store.ProductUpdate) (bool, error) {
	return false, nil
}

func (m *mockProductStore) Delete(_ context.Context, _ int64) (bool, error) { return false, nil }

func (m *mockProductStore) DecrementQuantity(_ context.Context, _ int64, _ int64) (*store.Product, error) {
	if m.decErr != nil {
		return nil, m.decErr
	}
	return m.decremented, nil
}

// mockSaleStore is a mock implementation of the store.SaleStore interface
type mockSaleStore struct {
	inserted  []store.Sale
	insertErr error
	sales     []store.Sale
	findErr   error
	gotFilter store.SaleFilter
}

func (m *mockSaleStore) Insert(_ context.Context, s store.Sale) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, s)
	return nil
}

func (m *mockSaleStore) Find(_ context.Context, filter store.SaleFilter) ([]store.Sale, error) {
	m.gotFilter = filter
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.sales, nil
}

type mockPublisher struct {
	published []messaging.Event
	err       error
}

func (m *mockPublisher) Publish(_ context.Context, event messaging.Event) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, event)
	return nil
}

func noopLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func Test_SaleService_Execute(t *testing.T) {
	seller := "alice"
	laptop := &store.Product{ProductID: 1, Name: "Laptop", Category: "Computers", Price: 1000, Quantity: 8, Supplier: "Dell"}

	testCases := []struct {
		name          string
		products      *mockProductStore
		sales         *mockSaleStore
		quantity      int64
		expected      *SaleResult
		expectError   error
		expectNoAudit bool
	}{
		{
			name:     "Success - sale committed",
			products: &mockProductStore{decremented: laptop},
			sales:    &mockSaleStore{},
			quantity: 2,
			expected: &SaleResult{Total: 2000, RemainingStock: 8, AuditRecorded: true},
		},
		{
			name:        "Error - non-positive quantity",
			products:    &mockProductStore{},
			sales:       &mockSaleStore{},
			quantity:    0,
			expectError: ierrors.ErrInvalidInput,
		},
		{
			name:        "Error - product not found",
			products:    &mockProductStore{decremented: nil, findErr: ierrors.ErrProductNotFound},
			sales:       &mockSaleStore{},
			quantity:    2,
			expectError: ierrors.ErrProductNotFound,
		},
		{
			name:        "Error - insufficient stock",
			products:    &mockProductStore{decremented: nil, found: laptop},
			sales:       &mockSaleStore{},
			quantity:    100,
			expectError: ierrors.ErrInsufficientStock,
		},
		{
			name:        "Error - store unavailable",
			products:    &mockProductStore{decErr: ierrors.ErrStoreUnavailable},
			sales:       &mockSaleStore{},
			quantity:    2,
			expectError: ierrors.ErrStoreUnavailable,
		},
		{
			name:          "Success - audit insert failure does not fail the sale",
			products:      &mockProductStore{decremented: laptop},
			sales:         &mockSaleStore{insertErr: ierrors.ErrStoreUnavailable},
			quantity:      2,
			expected:      &SaleResult{Total: 2000, RemainingStock: 8, AuditRecorded: false},
			expectNoAudit: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			publisher := &mockPublisher{}
			service := NewService(tc.products, tc.sales, publisher, noopLogger())
			// when
			result, err := service.Execute(context.Background(), 1, tc.quantity, &seller)
			// then
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				assert.Nil(t, result)
				assert.Empty(t, publisher.published)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, result)
			if tc.expectNoAudit {
				assert.Empty(t, tc.sales.inserted)
			} else {
				require.Len(t, tc.sales.inserted, 1)
				sale := tc.sales.inserted[0]
				assert.Equal(t, laptop.ProductID, sale.ProductID)
				assert.Equal(t, laptop.Name, sale.Name)
				assert.Equal(t, tc.quantity, sale.Quantity)
				assert.Equal(t, laptop.Price, sale.UnitPrice)
				assert.Equal(t, tc.expected.Total, sale.Total)
				require.NotNil(t, sale.User)
				assert.Equal(t, seller, *sale.User)
			}
			// the event is published even when the audit write failed
			assert.Len(t, publisher.published, 1)
		})
	}
}

func Test_SaleService_Execute_NilPublisher(t *testing.T) {
	// given
	laptop := &store.Product{ProductID: 1, Name: "Laptop", Price: 1000, Quantity: 8}
	sales := &mockSaleStore{}
	service := NewService(&mockProductStore{decremented: laptop}, sales, nil, noopLogger())
	// when
	result, err := service.Execute(context.Background(), 1, 1, nil)
	// then
	require.NoError(t, err)
	assert.Equal(t, float64(1000), result.Total)
	require.Len(t, sales.inserted, 1)
	assert.Nil(t, sales.inserted[0].User)
}

func Test_SaleService_History(t *testing.T) {
	seller := "alice"
	now := time.Now()
	stored := []store.Sale{
		{ProductID: 2, Name: "Mouse", Quantity: 1, UnitPrice: 25, Total: 25, Timestamp: now, User: &seller},
		{ProductID: 1, Name: "Laptop", Quantity: 2, UnitPrice: 1000, Total: 2000, Timestamp: now.Add(-time.Hour), User: nil},
	}
	from := now.Add(-24 * time.Hour)

	testCases := []struct {
		name        string
		mockStore   *mockSaleStore
		filter      HistoryFilter
		expectedLen int
		expectError error
	}{
		{
			name:        "Success - full history",
			mockStore:   &mockSaleStore{sales: stored},
			filter:      HistoryFilter{},
			expectedLen: 2,
		},
		{
			name:        "Success - filter forwarded",
			mockStore:   &mockSaleStore{sales: stored[:1]},
			filter:      HistoryFilter{User: &seller, From: &from, Limit: 10},
			expectedLen: 1,
		},
		{
			name:        "Error - store unavailable",
			mockStore:   &mockSaleStore{findErr: ierrors.ErrStoreUnavailable},
			filter:      HistoryFilter{},
			expectError: ierrors.ErrStoreUnavailable,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			service := NewService(&mockProductStore{}, tc.mockStore, nil, noopLogger())
			// when
			history, err := service.History(context.Background(), tc.filter)
			// then
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				assert.Nil(t, history)
				return
			}
			require.NoError(t, err)
			assert.Len(t, history, tc.expectedLen)
			assert.Equal(t, tc.filter.User, tc.mockStore.gotFilter.User)
			assert.Equal(t, tc.filter.From, tc.mockStore.gotFilter.From)
			assert.Equal(t, tc.filter.Limit, tc.mockStore.gotFilter.Limit)
		})
	}
}
