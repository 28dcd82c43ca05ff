package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storelane/api/internal/database"
	"github.com/storelane/api/internal/enum"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Errors returned by the order service.
var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrProductNotFound      = errors.New("product not found")
	ErrEmptyOrderDetails    = errors.New("orderDetails are required")
	ErrInvalidQuantity      = errors.New("quantity must be > 0")
	ErrInvalidCustomerID    = errors.New("invalid customerId")
	ErrInvalidEmployeeID    = errors.New("invalid employeeId")
	ErrInvalidProductID     = errors.New("invalid productId")
	ErrInvalidOrderDetailID = errors.New("invalid order detail id")
	ErrInvalidTotal         = errors.New("invalid total")
)

// InvalidDateError reports a query or body date that does not match the
// accepted DD/MM/YYYY shape. Its message is the exact client-facing text.
type InvalidDateError struct {
	Field string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("Invalid %s format. Accepted format: DD/MM/YYYY", e.Field)
}

// OrderStore defines the database methods needed by the order service.
// Satisfied by *database.Store; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id primitive.ObjectID) (database.Order, error)
	InsertOrder(ctx context.Context, o database.Order) (database.Order, error)
	SaveOrder(ctx context.Context, o database.Order) error
	InsertOrderDetail(ctx context.Context, d database.OrderDetail) (database.OrderDetail, error)
	DeleteOrderDetail(ctx context.Context, id primitive.ObjectID) error
	GetProduct(ctx context.Context, id primitive.ObjectID) (database.Product, error)
	FindCustomerIDsByName(ctx context.Context, name string) ([]primitive.ObjectID, error)
	FindEmployeeIDsByName(ctx context.Context, name string) ([]primitive.ObjectID, error)
}

// OrderQuery holds the supported list-filter parameters. Date fields are raw
// DD/MM/YYYY strings.
type OrderQuery struct {
	CustomerName    string
	EmployeeName    string
	OrderDate       string
	OrderBeforeDate string
	OrderAfterDate  string
	Status          string
}

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	CustomerID   string
	EmployeeID   string
	OrderDetails []NewOrderDetailRequest
}

// NewOrderDetailRequest is a single line item to add.
type NewOrderDetailRequest struct {
	ProductID string
	Quantity  int32
}

// UpdateOrderRequest is the allow-list of mutable order fields plus
// incremental line-item changes. Nil pointer fields are left untouched.
type UpdateOrderRequest struct {
	CustomerID         *string
	EmployeeID         *string
	OrderDate          *string // DD/MM/YYYY
	Status             *string
	Total              *string
	DeleteOrderDetails []string
	NewOrderDetails    []NewOrderDetailRequest
}

// OrderService handles order business logic.
type OrderService struct {
	store OrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(store OrderStore) *OrderService {
	return &OrderService{store: store}
}

// BuildOrderFilter composes the list query parameters into a single filter
// document. Name parameters resolve to id sets via case-insensitive substring
// match; a substring matching nobody narrows the filter to select nothing.
func (s *OrderService) BuildOrderFilter(ctx context.Context, q OrderQuery) (bson.M, error) {
	filter := bson.M{}

	if q.CustomerName != "" {
		ids, err := s.store.FindCustomerIDsByName(ctx, q.CustomerName)
		if err != nil {
			return nil, fmt.Errorf("find customers by name: %w", err)
		}
		filter["customerId"] = bson.M{"$in": ids}
	}
	if q.EmployeeName != "" {
		ids, err := s.store.FindEmployeeIDsByName(ctx, q.EmployeeName)
		if err != nil {
			return nil, fmt.Errorf("find employees by name: %w", err)
		}
		filter["employeeId"] = bson.M{"$in": ids}
	}

	// Every supplied date string is validated before any condition is built:
	// a malformed low-precedence field still fails even though a higher-
	// precedence field would have shadowed its condition.
	for _, f := range []struct{ name, value string }{
		{"orderAfterDate", q.OrderAfterDate},
		{"orderBeforeDate", q.OrderBeforeDate},
		{"orderDate", q.OrderDate},
	} {
		if f.value != "" && !IsValidOrderDate(f.value) {
			return nil, &InvalidDateError{Field: f.name}
		}
	}

	// Date rules in ascending precedence. Each supplied rule overwrites the
	// orderDate slot, so only the highest-precedence field takes effect:
	// orderAfterDate < orderBeforeDate < orderDate.
	dateRules := []struct {
		value string
		cond  func(day time.Time) bson.M
	}{
		{q.OrderAfterDate, func(day time.Time) bson.M {
			return bson.M{"$gte": day}
		}},
		{q.OrderBeforeDate, func(day time.Time) bson.M {
			return bson.M{"$lt": day}
		}},
		{q.OrderDate, func(day time.Time) bson.M {
			return bson.M{"$gte": day, "$lt": day.AddDate(0, 0, 1)}
		}},
	}
	for _, rule := range dateRules {
		if rule.value == "" {
			continue
		}
		day, _ := ParseOrderDate(rule.value)
		filter["orderDate"] = rule.cond(day)
	}

	if q.Status != "" {
		filter["status"] = q.Status
	}

	return filter, nil
}

// CreateOrder creates an order with status Pending, total 0 and the current
// timestamp, snapshotting each product's sell price onto its line item.
// Writes are sequential with no transaction: a missing product aborts before
// the order document is saved, but earlier detail inserts remain.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*database.Order, error) {
	customerID, err := primitive.ObjectIDFromHex(req.CustomerID)
	if err != nil {
		return nil, ErrInvalidCustomerID
	}
	employeeID, err := primitive.ObjectIDFromHex(req.EmployeeID)
	if err != nil {
		return nil, ErrInvalidEmployeeID
	}
	if len(req.OrderDetails) == 0 {
		return nil, ErrEmptyOrderDetails
	}

	order := database.Order{
		ID:           primitive.NewObjectID(),
		CustomerID:   customerID,
		EmployeeID:   employeeID,
		OrderDate:    time.Now(),
		Status:       enum.OrderStatusPending,
		OrderDetails: []primitive.ObjectID{},
		Total:        decimalZero,
	}

	for _, item := range req.OrderDetails {
		productID, err := primitive.ObjectIDFromHex(item.ProductID)
		if err != nil {
			return nil, ErrInvalidProductID
		}
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		product, err := s.store.GetProduct(ctx, productID)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, ErrProductNotFound
			}
			return nil, fmt.Errorf("get product: %w", err)
		}
		detail := database.OrderDetail{
			ID:        primitive.NewObjectID(),
			OrderID:   order.ID,
			ProductID: productID,
			Quantity:  item.Quantity,
			SellPrice: product.SellPrice,
		}
		if _, err := s.store.InsertOrderDetail(ctx, detail); err != nil {
			return nil, fmt.Errorf("insert order detail: %w", err)
		}
		order.OrderDetails = append(order.OrderDetails, detail.ID)
	}

	if _, err := s.store.InsertOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	return &order, nil
}

// ApplyOrderUpdate merges a partial update onto a stored order: header fields
// first, then line-item removals, then additions, then one save. Steps run
// sequentially with no rollback across them.
func (s *OrderService) ApplyOrderUpdate(ctx context.Context, id primitive.ObjectID, patch UpdateOrderRequest) (*database.Order, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if patch.CustomerID != nil {
		cid, err := primitive.ObjectIDFromHex(*patch.CustomerID)
		if err != nil {
			return nil, ErrInvalidCustomerID
		}
		order.CustomerID = cid
	}
	if patch.EmployeeID != nil {
		eid, err := primitive.ObjectIDFromHex(*patch.EmployeeID)
		if err != nil {
			return nil, ErrInvalidEmployeeID
		}
		order.EmployeeID = eid
	}
	if patch.Status != nil {
		order.Status = *patch.Status
	}
	if patch.Total != nil {
		d, err := decimal.NewFromString(*patch.Total)
		if err != nil {
			return nil, ErrInvalidTotal
		}
		t, err := primitive.ParseDecimal128(d.String())
		if err != nil {
			return nil, ErrInvalidTotal
		}
		order.Total = t
	}
	if patch.OrderDate != nil {
		day, ok := ParseOrderDate(*patch.OrderDate)
		if !ok {
			return nil, &InvalidDateError{Field: "orderDate"}
		}
		// Stored as UTC midnight of the calendar day so the instant does not
		// depend on the server's time zone.
		order.OrderDate = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	}

	// Removals before additions. Ids absent from the order's sequence are
	// ignored; the detail document is deleted either way.
	for _, idStr := range patch.DeleteOrderDetails {
		detailID, err := primitive.ObjectIDFromHex(idStr)
		if err != nil {
			return nil, ErrInvalidOrderDetailID
		}
		if err := s.store.DeleteOrderDetail(ctx, detailID); err != nil {
			return nil, fmt.Errorf("delete order detail: %w", err)
		}
		for i, ref := range order.OrderDetails {
			if ref == detailID {
				order.OrderDetails = append(order.OrderDetails[:i], order.OrderDetails[i+1:]...)
				break
			}
		}
	}

	// Additions: entries whose product does not exist are skipped silently.
	for _, item := range patch.NewOrderDetails {
		productID, err := primitive.ObjectIDFromHex(item.ProductID)
		if err != nil {
			return nil, ErrInvalidProductID
		}
		product, err := s.store.GetProduct(ctx, productID)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				continue
			}
			return nil, fmt.Errorf("get product: %w", err)
		}
		detail := database.OrderDetail{
			ID:        primitive.NewObjectID(),
			OrderID:   order.ID,
			ProductID: productID,
			Quantity:  item.Quantity,
			SellPrice: product.SellPrice,
		}
		if _, err := s.store.InsertOrderDetail(ctx, detail); err != nil {
			return nil, fmt.Errorf("insert order detail: %w", err)
		}
		order.OrderDetails = append(order.OrderDetails, detail.ID)
	}

	if err := s.store.SaveOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}
	return &order, nil
}

func mustDecimal128(s string) primitive.Decimal128 {
	d, err := primitive.ParseDecimal128(s)
	if err != nil {
		panic(err)
	}
	return d
}

var decimalZero = mustDecimal128("0")
