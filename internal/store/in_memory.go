package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	ierrors "github.com/tiendatech/inventory/internal/errors"
)

// InMemoryGateway implements Gateway with plain maps. It backs the unit tests
// and the memory store mode, and mirrors the Mongo gateway's query semantics.
type InMemoryGateway struct {
	mu       sync.RWMutex
	products map[int64]Product
	sales    []Sale
	users    map[string]User
}

// NewInMemoryGateway creates an empty in-memory gateway.
func NewInMemoryGateway() *InMemoryGateway {
	return &InMemoryGateway{
		products: make(map[int64]Product),
		users:    make(map[string]User),
	}
}

func (g *InMemoryGateway) Products() ProductStore { return (*memProductStore)(g) }
func (g *InMemoryGateway) Sales() SaleStore       { return (*memSaleStore)(g) }
func (g *InMemoryGateway) Users() UserStore       { return (*memUserStore)(g) }

type memProductStore InMemoryGateway

func (s *memProductStore) FindByID(_ context.Context, id int64) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, ierrors.ErrProductNotFound
	}
	return &p, nil
}

func (s *memProductStore) Find(_ context.Context, filter ProductFilter) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		if filter.ID != nil && p.ProductID != *filter.ID {
			continue
		}
		if filter.NameSubstr != "" && !containsFold(p.Name, filter.NameSubstr) {
			continue
		}
		if filter.SupplierSubstr != "" && !containsFold(p.Supplier, filter.SupplierSubstr) {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ProductID < list[j].ProductID })
	return list, nil
}

func (s *memProductStore) Insert(_ context.Context, p Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[p.ProductID]; exists {
		return ierrors.ErrProductExists
	}
	s.products[p.ProductID] = p
	return nil
}

func (s *memProductStore) Update(_ context.Context, id int64, upd ProductUpdate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return false, nil
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Category != nil {
		p.Category = *upd.Category
	}
	if upd.Price != nil {
		p.Price = *upd.Price
	}
	if upd.Quantity != nil {
		p.Quantity = *upd.Quantity
	}
	if upd.Supplier != nil {
		p.Supplier = *upd.Supplier
	}
	s.products[id] = p
	return true, nil
}

func (s *memProductStore) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return false, nil
	}
	delete(s.products, id)
	return true, nil
}

func (s *memProductStore) DecrementQuantity(_ context.Context, id int64, by int64) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok || p.Quantity < by {
		return nil, nil
	}
	p.Quantity -= by
	s.products[id] = p
	return &p, nil
}

type memSaleStore InMemoryGateway

func (s *memSaleStore) Insert(_ context.Context, sale Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sales = append(s.sales, sale)
	return nil
}

func (s *memSaleStore) Find(_ context.Context, filter SaleFilter) ([]Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if filter.User != nil && (sale.User == nil || *sale.User != *filter.User) {
			continue
		}
		if filter.From != nil && sale.Timestamp.Before(*filter.From) {
			continue
		}
		if filter.To != nil && sale.Timestamp.After(*filter.To) {
			continue
		}
		list = append(list, sale)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Timestamp.After(list[j].Timestamp) })
	if filter.Limit > 0 && int64(len(list)) > filter.Limit {
		list = list[:filter.Limit]
	}
	return list, nil
}

type memUserStore InMemoryGateway

func (s *memUserStore) FindByUsername(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return nil, ierrors.ErrUserNotFound
	}
	return &u, nil
}

func (s *memUserStore) Insert(_ context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.Username]; exists {
		return ierrors.ErrUserExists
	}
	s.users[u.Username] = u
	return nil
}

func (s *memUserStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.users)), nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
