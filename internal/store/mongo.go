package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	ierrors "github.com/tiendatech/inventory/internal/errors"
)

const (
	productsCollection = "products"
	usersCollection    = "users"
	salesCollection    = "sales"
)

// MongoGateway implements Gateway on top of a MongoDB database.
type MongoGateway struct {
	products *mongoProductStore
	sales    *mongoSaleStore
	users    *mongoUserStore
}

// NewMongoGateway creates the gateway and ensures the unique indexes on
// products.product_id and users.username. Index creation errors are ignored
// when the indexes already exist.
func NewMongoGateway(client *mongo.Client, dbName string) *MongoGateway {
	db := client.Database(dbName)
	products := db.Collection(productsCollection)
	users := db.Collection(usersCollection)
	sales := db.Collection(salesCollection)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, _ = products.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "product_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	_, _ = users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return &MongoGateway{
		products: &mongoProductStore{col: products},
		sales:    &mongoSaleStore{col: sales},
		users:    &mongoUserStore{col: users},
	}
}

func (g *MongoGateway) Products() ProductStore { return g.products }
func (g *MongoGateway) Sales() SaleStore       { return g.sales }
func (g *MongoGateway) Users() UserStore       { return g.users }

type mongoProductStore struct {
	col *mongo.Collection
}

func (s *mongoProductStore) FindByID(ctx context.Context, id int64) (*Product, error) {
	var p Product
	err := s.col.FindOne(ctx, bson.M{"product_id": id}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ierrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("%w: find product by id: %v", ierrors.ErrStoreUnavailable, err)
	}
	return &p, nil
}

func (s *mongoProductStore) Find(ctx context.Context, filter ProductFilter) ([]Product, error) {
	query := bson.M{}
	if filter.ID != nil {
		query["product_id"] = *filter.ID
	}
	if filter.NameSubstr != "" {
		query["name"] = ciSubstr(filter.NameSubstr)
	}
	if filter.SupplierSubstr != "" {
		query["supplier"] = ciSubstr(filter.SupplierSubstr)
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}

	opts := options.Find().SetSort(bson.D{{Key: "product_id", Value: 1}})
	cursor, err := s.col.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: find products: %v", ierrors.ErrStoreUnavailable, err)
	}
	products := make([]Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("%w: decode products: %v", ierrors.ErrStoreUnavailable, err)
	}
	return products, nil
}

func (s *mongoProductStore) Insert(ctx context.Context, p Product) error {
	_, err := s.col.InsertOne(ctx, p)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ierrors.ErrProductExists
		}
		return fmt.Errorf("%w: insert product: %v", ierrors.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *mongoProductStore) Update(ctx context.Context, id int64, upd ProductUpdate) (bool, error) {
	set := bson.M{}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Category != nil {
		set["category"] = *upd.Category
	}
	if upd.Price != nil {
		set["price"] = *upd.Price
	}
	if upd.Quantity != nil {
		set["quantity"] = *upd.Quantity
	}
	if upd.Supplier != nil {
		set["supplier"] = *upd.Supplier
	}
	if len(set) == 0 {
		// Nothing to merge; report only whether the document exists.
		count, err := s.col.CountDocuments(ctx, bson.M{"product_id": id})
		if err != nil {
			return false, fmt.Errorf("%w: count products: %v", ierrors.ErrStoreUnavailable, err)
		}
		return count > 0, nil
	}

	res, err := s.col.UpdateOne(ctx, bson.M{"product_id": id}, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("%w: update product: %v", ierrors.ErrStoreUnavailable, err)
	}
	return res.MatchedCount > 0, nil
}

func (s *mongoProductStore) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.col.DeleteOne(ctx, bson.M{"product_id": id})
	if err != nil {
		return false, fmt.Errorf("%w: delete product: %v", ierrors.ErrStoreUnavailable, err)
	}
	return res.DeletedCount > 0, nil
}

// DecrementQuantity is the one conditional write in the gateway: the filter
// matches only while quantity >= by, so two concurrent sales can never drive
// the quantity negative.
func (s *mongoProductStore) DecrementQuantity(ctx context.Context, id int64, by int64) (*Product, error) {
	filter := bson.M{
		"product_id": id,
		"quantity":   bson.M{"$gte": by},
	}
	update := bson.M{"$inc": bson.M{"quantity": -by}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var p Product
	err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Absent id or insufficient quantity; the caller tells them apart.
			return nil, nil
		}
		return nil, fmt.Errorf("%w: decrement quantity: %v", ierrors.ErrStoreUnavailable, err)
	}
	return &p, nil
}

type mongoSaleStore struct {
	col *mongo.Collection
}

func (s *mongoSaleStore) Insert(ctx context.Context, sale Sale) error {
	if _, err := s.col.InsertOne(ctx, sale); err != nil {
		return fmt.Errorf("%w: insert sale: %v", ierrors.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *mongoSaleStore) Find(ctx context.Context, filter SaleFilter) ([]Sale, error) {
	query := bson.M{}
	if filter.User != nil {
		query["user"] = *filter.User
	}
	timeRange := bson.M{}
	if filter.From != nil {
		timeRange["$gte"] = *filter.From
	}
	if filter.To != nil {
		timeRange["$lte"] = *filter.To
	}
	if len(timeRange) > 0 {
		query["timestamp"] = timeRange
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if filter.Limit > 0 {
		opts = opts.SetLimit(filter.Limit)
	}
	cursor, err := s.col.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: find sales: %v", ierrors.ErrStoreUnavailable, err)
	}
	sales := make([]Sale, 0)
	if err := cursor.All(ctx, &sales); err != nil {
		return nil, fmt.Errorf("%w: decode sales: %v", ierrors.ErrStoreUnavailable, err)
	}
	return sales, nil
}

type mongoUserStore struct {
	col *mongo.Collection
}

func (s *mongoUserStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := s.col.FindOne(ctx, bson.M{"username": username}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ierrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: find user: %v", ierrors.ErrStoreUnavailable, err)
	}
	return &u, nil
}

func (s *mongoUserStore) Insert(ctx context.Context, u User) error {
	_, err := s.col.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ierrors.ErrUserExists
		}
		return fmt.Errorf("%w: insert user: %v", ierrors.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *mongoUserStore) Count(ctx context.Context) (int64, error) {
	count, err := s.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("%w: count users: %v", ierrors.ErrStoreUnavailable, err)
	}
	return count, nil
}

// ciSubstr builds a case-insensitive substring match with the input escaped,
// so user text is never interpreted as a regular expression.
func ciSubstr(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}
