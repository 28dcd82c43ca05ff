package database

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order is the persisted order document. OrderDetails holds references to
// OrderDetail documents; the order owns them (deletes cascade).
type Order struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty"`
	CustomerID   primitive.ObjectID   `bson:"customerId"`
	EmployeeID   primitive.ObjectID   `bson:"employeeId"`
	OrderDate    time.Time            `bson:"orderDate"`
	Status       string               `bson:"status"`
	OrderDetails []primitive.ObjectID `bson:"orderDetails"`
	Total        primitive.Decimal128 `bson:"total"`
}

// OrderDetail is one line item. SellPrice is snapshotted from the product at
// creation time and never recomputed afterwards.
type OrderDetail struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty"`
	OrderID   primitive.ObjectID   `bson:"orderId"`
	ProductID primitive.ObjectID   `bson:"productId"`
	Quantity  int32                `bson:"quantity"`
	SellPrice primitive.Decimal128 `bson:"sellPrice"`
}

type Product struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty"`
	Name      string               `bson:"name"`
	SellPrice primitive.Decimal128 `bson:"sellPrice"`
	CreatedAt time.Time            `bson:"createdAt"`
}

type Customer struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Phone     string             `bson:"phone"`
	Email     string             `bson:"email"`
	CreatedAt time.Time          `bson:"createdAt"`
}

type Employee struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// User is a staff login account, distinct from Employee which is the entity
// orders reference.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"passwordHash"`
	FullName     string             `bson:"fullName"`
	Role         string             `bson:"role"`
	CreatedAt    time.Time          `bson:"createdAt"`
}
