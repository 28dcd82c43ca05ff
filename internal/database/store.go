package database

import (
	"context"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store wraps the MongoDB collections used by the back office. Handlers and
// services depend on narrow interfaces satisfied by *Store, not on Store
// itself.
type Store struct {
	orders       *mongo.Collection
	orderDetails *mongo.Collection
	products     *mongo.Collection
	customers    *mongo.Collection
	employees    *mongo.Collection
	users        *mongo.Collection
}

// New creates a Store over the given database.
func New(db *mongo.Database) *Store {
	return &Store{
		orders:       db.Collection("orders"),
		orderDetails: db.Collection("orderDetails"),
		products:     db.Collection("products"),
		customers:    db.Collection("customers"),
		employees:    db.Collection("employees"),
		users:        db.Collection("users"),
	}
}

// --- Orders ---

// ListOrders returns orders matching the given filter document with
// limit/skip pagination.
func (s *Store) ListOrders(ctx context.Context, filter bson.M, limit, skip int64) ([]Order, error) {
	opts := options.Find().SetLimit(limit).SetSkip(skip)
	cur, err := s.orders.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	orders := []Order{}
	if err := cur.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) GetOrder(ctx context.Context, id primitive.ObjectID) (Order, error) {
	var o Order
	err := s.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	return o, err
}

func (s *Store) InsertOrder(ctx context.Context, o Order) (Order, error) {
	if _, err := s.orders.InsertOne(ctx, o); err != nil {
		return Order{}, err
	}
	return o, nil
}

// SaveOrder replaces the stored order document. Returns
// mongo.ErrNoDocuments if the order no longer exists.
func (s *Store) SaveOrder(ctx context.Context, o Order) error {
	res, err := s.orders.ReplaceOne(ctx, bson.M{"_id": o.ID}, o)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// DeleteOrder removes an order and cascades its line-item documents.
// Returns mongo.ErrNoDocuments if the order did not exist.
func (s *Store) DeleteOrder(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.orders.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	_, err = s.orderDetails.DeleteMany(ctx, bson.M{"orderId": id})
	return err
}

func (s *Store) CountOrders(ctx context.Context) (int64, error) {
	return s.orders.CountDocuments(ctx, bson.M{})
}

// --- Order details ---

func (s *Store) InsertOrderDetail(ctx context.Context, d OrderDetail) (OrderDetail, error) {
	if _, err := s.orderDetails.InsertOne(ctx, d); err != nil {
		return OrderDetail{}, err
	}
	return d, nil
}

// DeleteOrderDetail removes a line-item document. Missing ids are not an
// error; the caller treats them as already gone.
func (s *Store) DeleteOrderDetail(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.orderDetails.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (s *Store) ListOrderDetailsByOrder(ctx context.Context, orderID primitive.ObjectID) ([]OrderDetail, error) {
	cur, err := s.orderDetails.Find(ctx, bson.M{"orderId": orderID})
	if err != nil {
		return nil, err
	}
	details := []OrderDetail{}
	if err := cur.All(ctx, &details); err != nil {
		return nil, err
	}
	return details, nil
}

// --- Products ---

func (s *Store) GetProduct(ctx context.Context, id primitive.ObjectID) (Product, error) {
	var p Product
	err := s.products.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	return p, err
}

func (s *Store) ListProducts(ctx context.Context) ([]Product, error) {
	cur, err := s.products.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	products := []Product{}
	if err := cur.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) InsertProduct(ctx context.Context, p Product) (Product, error) {
	res, err := s.products.InsertOne(ctx, p)
	if err != nil {
		return Product{}, err
	}
	p.ID = res.InsertedID.(primitive.ObjectID)
	return p, nil
}

// --- Customers / employees ---

// FindCustomerIDsByName returns the ids of customers whose name contains the
// given substring, case-insensitive. The input is quoted so regex
// metacharacters match literally. An empty result is valid and narrows an
// $in condition to match nothing.
func (s *Store) FindCustomerIDsByName(ctx context.Context, name string) ([]primitive.ObjectID, error) {
	return s.findIDsByName(ctx, s.customers, name)
}

// FindEmployeeIDsByName is the employee counterpart of FindCustomerIDsByName.
func (s *Store) FindEmployeeIDsByName(ctx context.Context, name string) ([]primitive.ObjectID, error) {
	return s.findIDsByName(ctx, s.employees, name)
}

func (s *Store) findIDsByName(ctx context.Context, coll *mongo.Collection, name string) ([]primitive.ObjectID, error) {
	filter := bson.M{"name": primitive.Regex{Pattern: regexp.QuoteMeta(name), Options: "i"}}
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids, nil
}

func (s *Store) ListCustomers(ctx context.Context, search string) ([]Customer, error) {
	filter := bson.M{}
	if search != "" {
		filter["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
	}
	cur, err := s.customers.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	customers := []Customer{}
	if err := cur.All(ctx, &customers); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) InsertCustomer(ctx context.Context, c Customer) (Customer, error) {
	res, err := s.customers.InsertOne(ctx, c)
	if err != nil {
		return Customer{}, err
	}
	c.ID = res.InsertedID.(primitive.ObjectID)
	return c, nil
}

func (s *Store) ListEmployees(ctx context.Context, search string) ([]Employee, error) {
	filter := bson.M{}
	if search != "" {
		filter["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
	}
	cur, err := s.employees.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	employees := []Employee{}
	if err := cur.All(ctx, &employees); err != nil {
		return nil, err
	}
	return employees, nil
}

func (s *Store) InsertEmployee(ctx context.Context, e Employee) (Employee, error) {
	res, err := s.employees.InsertOne(ctx, e)
	if err != nil {
		return Employee{}, err
	}
	e.ID = res.InsertedID.(primitive.ObjectID)
	return e, nil
}

// --- Users ---

func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	return u, err
}

func (s *Store) InsertUser(ctx context.Context, u User) (User, error) {
	res, err := s.users.InsertOne(ctx, u)
	if err != nil {
		return User{}, err
	}
	u.ID = res.InsertedID.(primitive.ObjectID)
	return u, nil
}
