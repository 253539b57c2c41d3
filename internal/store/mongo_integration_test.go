package store

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	ierrors "github.com/tiendatech/inventory/internal/errors"
)

const skipIntegrationTests = "INVENTORY_SKIP_INTEGRATION_TESTS"

const testDBName = "inventory_test"

// MongoGatewaySuite is a test suite for the MongoDB gateway implementation.
type MongoGatewaySuite struct {
	suite.Suite
	mongoContainer *mongodb.MongoDBContainer
	client         *mongo.Client
	gateway        *MongoGateway
	logger         *slog.Logger
	ctx            context.Context
}

// SetupSuite starts a MongoDB container and connects the gateway to it.
func (s *MongoGatewaySuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var err error
	s.mongoContainer, err = mongodb.Run(s.ctx, "mongo:7")
	require.NoError(s.T(), err, "Failed to run MongoDB container")

	uri, err := s.mongoContainer.ConnectionString(s.ctx)
	require.NoError(s.T(), err, "Failed to get connection string from container")

	s.client, err = mongo.Connect(s.ctx, options.Client().ApplyURI(uri))
	require.NoError(s.T(), err, "Failed to connect to MongoDB")

	// Ping with retry until the container accepts connections
	for i := range 10 {
		s.logger.Info("Pinging MongoDB", "attempt", i+1)
		err = s.client.Ping(s.ctx, nil)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(s.T(), err, "Failed to ping MongoDB after retries")

	s.gateway = NewMongoGateway(s.client, testDBName)
	s.logger.Info("Initialization complete for MongoGatewaySuite")
}

// TearDownSuite cleans up resources after all tests in the suite have run.
func (s *MongoGatewaySuite) TearDownSuite() {
	s.logger.Info("Tearing down suite...")
	if s.client != nil {
		_ = s.client.Disconnect(s.ctx)
	}
	if s.mongoContainer != nil {
		if err := s.mongoContainer.Terminate(s.ctx); err != nil {
			s.logger.Warn("failed to terminate MongoDB container", "error", err)
		}
	}
}

// SetupTest empties the three collections before each test.
func (s *MongoGatewaySuite) SetupTest() {
	db := s.client.Database(testDBName)
	for _, name := range []string{productsCollection, salesCollection, usersCollection} {
		_, err := db.Collection(name).DeleteMany(s.ctx, bson.M{})
		require.NoError(s.T(), err, "Failed to empty collection "+name)
	}
}

// TestMongoGatewayIntegration runs the MongoDB gateway integration tests.
func TestMongoGatewayIntegration(t *testing.T) {
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	suite.Run(t, new(MongoGatewaySuite))
}

func (s *MongoGatewaySuite) seedProducts() {
	s.T().Helper()
	for _, p := range []Product{
		{ProductID: 2, Name: "Wireless Mouse", Category: "Peripherals", Price: 25, Quantity: 80, Supplier: "Logitech"},
		{ProductID: 1, Name: "Laptop Pro", Category: "Computers", Price: 1999, Quantity: 4, Supplier: "Apple"},
	} {
		require.NoError(s.T(), s.gateway.Products().Insert(s.ctx, p))
	}
}

func (s *MongoGatewaySuite) TestProducts_InsertAndFindByID() {
	s.SetupTest()
	s.seedProducts()

	found, err := s.gateway.Products().FindByID(s.ctx, 1)
	require.NoError(s.T(), err)
	require.Equal(s.T(), "Laptop Pro", found.Name)
	require.Equal(s.T(), int64(4), found.Quantity)

	_, err = s.gateway.Products().FindByID(s.ctx, 99)
	require.ErrorIs(s.T(), err, ierrors.ErrProductNotFound)
}

func (s *MongoGatewaySuite) TestProducts_DuplicateID() {
	s.SetupTest()
	s.seedProducts()

	err := s.gateway.Products().Insert(s.ctx, Product{ProductID: 1, Name: "Other"})
	require.ErrorIs(s.T(), err, ierrors.ErrProductExists)
}

func (s *MongoGatewaySuite) TestProducts_Find() {
	s.SetupTest()
	s.seedProducts()

	// ascending id order regardless of insertion order
	all, err := s.gateway.Products().Find(s.ctx, ProductFilter{})
	require.NoError(s.T(), err)
	require.Len(s.T(), all, 2)
	require.Equal(s.T(), int64(1), all[0].ProductID)
	require.Equal(s.T(), int64(2), all[1].ProductID)

	// case-insensitive substring match on name
	byName, err := s.gateway.Products().Find(s.ctx, ProductFilter{NameSubstr: "mOuSe"})
	require.NoError(s.T(), err)
	require.Len(s.T(), byName, 1)
	require.Equal(s.T(), int64(2), byName[0].ProductID)

	// regex metacharacters in the needle are taken literally
	escaped, err := s.gateway.Products().Find(s.ctx, ProductFilter{NameSubstr: ".*"})
	require.NoError(s.T(), err)
	require.Empty(s.T(), escaped)

	byCategory, err := s.gateway.Products().Find(s.ctx, ProductFilter{Category: "Computers"})
	require.NoError(s.T(), err)
	require.Len(s.T(), byCategory, 1)
	require.Equal(s.T(), int64(1), byCategory[0].ProductID)
}

func (s *MongoGatewaySuite) TestProducts_Update() {
	s.SetupTest()
	s.seedProducts()
	newPrice := 1899.0

	matched, err := s.gateway.Products().Update(s.ctx, 1, ProductUpdate{Price: &newPrice})
	require.NoError(s.T(), err)
	require.True(s.T(), matched)

	updated, err := s.gateway.Products().FindByID(s.ctx, 1)
	require.NoError(s.T(), err)
	require.Equal(s.T(), newPrice, updated.Price)
	require.Equal(s.T(), "Laptop Pro", updated.Name)

	matched, err = s.gateway.Products().Update(s.ctx, 99, ProductUpdate{Price: &newPrice})
	require.NoError(s.T(), err)
	require.False(s.T(), matched)

	// an empty merge still reports existence
	matched, err = s.gateway.Products().Update(s.ctx, 1, ProductUpdate{})
	require.NoError(s.T(), err)
	require.True(s.T(), matched)
}

func (s *MongoGatewaySuite) TestProducts_Delete() {
	s.SetupTest()
	s.seedProducts()

	deleted, err := s.gateway.Products().Delete(s.ctx, 1)
	require.NoError(s.T(), err)
	require.True(s.T(), deleted)

	deleted, err = s.gateway.Products().Delete(s.ctx, 1)
	require.NoError(s.T(), err)
	require.False(s.T(), deleted)
}

func (s *MongoGatewaySuite) TestProducts_DecrementQuantity() {
	s.SetupTest()
	s.seedProducts()

	// within stock: 4 - 3 = 1
	updated, err := s.gateway.Products().DecrementQuantity(s.ctx, 1, 3)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), updated)
	require.Equal(s.T(), int64(1), updated.Quantity)

	// beyond stock: no match, quantity untouched
	updated, err = s.gateway.Products().DecrementQuantity(s.ctx, 1, 2)
	require.NoError(s.T(), err)
	require.Nil(s.T(), updated)

	current, err := s.gateway.Products().FindByID(s.ctx, 1)
	require.NoError(s.T(), err)
	require.Equal(s.T(), int64(1), current.Quantity)

	// unknown id: no match
	updated, err = s.gateway.Products().DecrementQuantity(s.ctx, 99, 1)
	require.NoError(s.T(), err)
	require.Nil(s.T(), updated)
}

func (s *MongoGatewaySuite) TestSales_InsertAndFind() {
	s.SetupTest()
	alice, bob := "alice", "bob"
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	for _, sale := range []Sale{
		{ProductID: 1, Name: "Laptop", Quantity: 1, UnitPrice: 1000, Total: 1000, Timestamp: base, User: &alice},
		{ProductID: 2, Name: "Mouse", Quantity: 2, UnitPrice: 25, Total: 50, Timestamp: base.Add(time.Hour), User: &bob},
		{ProductID: 3, Name: "Cable", Quantity: 1, UnitPrice: 10, Total: 10, Timestamp: base.Add(2 * time.Hour), User: &alice},
	} {
		require.NoError(s.T(), s.gateway.Sales().Insert(s.ctx, sale))
	}

	// newest first
	all, err := s.gateway.Sales().Find(s.ctx, SaleFilter{})
	require.NoError(s.T(), err)
	require.Len(s.T(), all, 3)
	require.Equal(s.T(), int64(3), all[0].ProductID)
	require.Equal(s.T(), int64(1), all[2].ProductID)

	// exact user match
	byUser, err := s.gateway.Sales().Find(s.ctx, SaleFilter{User: &alice})
	require.NoError(s.T(), err)
	require.Len(s.T(), byUser, 2)

	// inclusive bounds
	from := base.Add(time.Hour)
	to := base.Add(2 * time.Hour)
	inRange, err := s.gateway.Sales().Find(s.ctx, SaleFilter{From: &from, To: &to})
	require.NoError(s.T(), err)
	require.Len(s.T(), inRange, 2)

	// limit caps the newest results
	limited, err := s.gateway.Sales().Find(s.ctx, SaleFilter{Limit: 1})
	require.NoError(s.T(), err)
	require.Len(s.T(), limited, 1)
	require.Equal(s.T(), int64(3), limited[0].ProductID)
}

func (s *MongoGatewaySuite) TestUsers() {
	s.SetupTest()

	count, err := s.gateway.Users().Count(s.ctx)
	require.NoError(s.T(), err)
	require.Equal(s.T(), int64(0), count)

	require.NoError(s.T(), s.gateway.Users().Insert(s.ctx, User{Username: "alice", PasswordHash: "h"}))
	err = s.gateway.Users().Insert(s.ctx, User{Username: "alice", PasswordHash: "h2"})
	require.ErrorIs(s.T(), err, ierrors.ErrUserExists)

	found, err := s.gateway.Users().FindByUsername(s.ctx, "alice")
	require.NoError(s.T(), err)
	require.Equal(s.T(), "h", found.PasswordHash)

	_, err = s.gateway.Users().FindByUsername(s.ctx, "bob")
	require.ErrorIs(s.T(), err, ierrors.ErrUserNotFound)

	count, err = s.gateway.Users().Count(s.ctx)
	require.NoError(s.T(), err)
	require.Equal(s.T(), int64(1), count)
}
