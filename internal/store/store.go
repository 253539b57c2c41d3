// Package store provides the gateway to the three backing collections:
// products, users and sales. It owns document shapes and the generic
// find/insert/update/delete contract; business rules live in the services.
package store

import (
	"context"
	"time"
)

// Product is one document in the products collection.
// ProductID is caller-supplied and unique across live products.
type Product struct {
	ProductID int64   `bson:"product_id"`
	Name      string  `bson:"name"`
	Category  string  `bson:"category"`
	Price     float64 `bson:"price"`
	Quantity  int64   `bson:"quantity"`
	Supplier  string  `bson:"supplier"`
}

// Sale is one append-only document in the sales collection. Name, UnitPrice
// and Total are snapshots taken at the moment of sale and never recomputed.
// User is nil when no acting user was recorded.
type Sale struct {
	ProductID int64     `bson:"product_id"`
	Name      string    `bson:"product_name"`
	Quantity  int64     `bson:"quantity_sold"`
	UnitPrice float64   `bson:"unit_price"`
	Total     float64   `bson:"total"`
	Timestamp time.Time `bson:"timestamp"`
	User      *string   `bson:"user"`
}

// User is one document in the users collection. PasswordHash holds a bcrypt
// hash, never the plaintext. CreatedBy is nil for the bootstrap account.
type User struct {
	Username     string  `bson:"username"`
	PasswordHash string  `bson:"password"`
	CreatedBy    *string `bson:"created_by"`
}

// ProductFilter narrows a product find. Zero-valued fields do not filter.
// NameSubstr and SupplierSubstr match case-insensitively on substrings,
// ID and Category match exactly.
type ProductFilter struct {
	ID             *int64
	NameSubstr     string
	SupplierSubstr string
	Category       string
}

// ProductUpdate is a field-level merge. Nil fields are left untouched.
type ProductUpdate struct {
	Name     *string
	Category *string
	Price    *float64
	Quantity *int64
	Supplier *string
}

// SaleFilter narrows a sale find. Time bounds are inclusive.
// A positive Limit caps the number of returned documents.
type SaleFilter struct {
	User  *string
	From  *time.Time
	To    *time.Time
	Limit int64
}

// ProductStore is the gateway to the products collection.
type ProductStore interface {
	// FindByID retrieves a single product by its identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id int64) (*Product, error)

	// Find returns the products matching the filter, ordered by ascending
	// product id. A zero filter returns the whole collection.
	Find(ctx context.Context, filter ProductFilter) ([]Product, error)

	// Insert adds a new product document.
	// Returns ErrProductExists if the id is already taken.
	Insert(ctx context.Context, p Product) error

	// Update applies a field-level merge to the product with the given id.
	// Returns whether a matching document existed.
	Update(ctx context.Context, id int64, upd ProductUpdate) (bool, error)

	// Delete removes the product with the given id.
	// Returns whether a matching document existed.
	Delete(ctx context.Context, id int64) (bool, error)

	// DecrementQuantity subtracts by from the product's quantity in one
	// conditional write that matches only if quantity >= by. Returns the
	// updated document, or nil if no document matched (absent id or
	// insufficient quantity - the caller disambiguates).
	DecrementQuantity(ctx context.Context, id int64, by int64) (*Product, error)
}

// SaleStore is the gateway to the append-only sales collection.
type SaleStore interface {
	// Insert appends one sale document.
	Insert(ctx context.Context, s Sale) error

	// Find returns the sales matching the filter, ordered by descending
	// timestamp.
	Find(ctx context.Context, filter SaleFilter) ([]Sale, error)
}

// UserStore is the gateway to the users collection.
type UserStore interface {
	// FindByUsername retrieves a single user account.
	// Returns ErrUserNotFound if no such username exists.
	FindByUsername(ctx context.Context, username string) (*User, error)

	// Insert adds a new user document.
	// Returns ErrUserExists if the username is already taken.
	Insert(ctx context.Context, u User) error

	// Count returns the number of user documents.
	Count(ctx context.Context) (int64, error)
}

// Gateway bundles the three collection stores behind one seam so the
// application can swap the whole backing store at once.
type Gateway interface {
	Products() ProductStore
	Sales() SaleStore
	Users() UserStore
}
