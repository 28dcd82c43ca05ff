package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storelane/api/internal/config"
	"github.com/storelane/api/internal/database"
	"github.com/storelane/api/internal/enum"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// CLI flags
	email := flag.String("email", "", "Admin email address")
	password := flag.String("password", "", "Admin password")
	name := flag.String("name", "", "Admin full name")
	sample := flag.Bool("sample", false, "Also insert sample customers, employees and products")
	flag.Parse()

	// Fall back to environment variables
	if *email == "" {
		*email = os.Getenv("SEED_EMAIL")
	}
	if *password == "" {
		*password = os.Getenv("SEED_PASSWORD")
	}
	if *name == "" {
		*name = os.Getenv("SEED_NAME")
	}

	// Fall back to defaults
	if *email == "" {
		*email = "admin@storelane.io"
	}
	if *password == "" {
		*password = "password123"
		log.Println("WARNING: Using default password 'password123'. Change immediately in production!")
	}
	if *name == "" {
		*name = "Back Office Admin"
	}

	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.MongoDB)
	store := database.New(db)

	// Idempotent admin creation: skip when the email is already registered.
	if _, err := store.GetUserByEmail(ctx, *email); err == nil {
		log.Printf("User %s already exists, skipping", *email)
	} else {
		hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}
		user, err := store.InsertUser(ctx, database.User{
			Email:        *email,
			PasswordHash: string(hash),
			FullName:     *name,
			Role:         enum.RoleAdmin,
			CreatedAt:    time.Now(),
		})
		if err != nil {
			log.Fatalf("insert user: %v", err)
		}
		log.Printf("Created admin user %s (%s)", user.Email, user.ID.Hex())
	}

	if *sample {
		seedSamples(ctx, store)
	}

	// Filter queries walk orders by date and by reference ids.
	for _, spec := range []struct {
		coll string
		keys bson.D
	}{
		{"orders", bson.D{{Key: "orderDate", Value: 1}}},
		{"orders", bson.D{{Key: "customerId", Value: 1}}},
		{"orders", bson.D{{Key: "employeeId", Value: 1}}},
		{"orderDetails", bson.D{{Key: "orderId", Value: 1}}},
	} {
		if _, err := db.Collection(spec.coll).Indexes().CreateOne(ctx, mongo.IndexModel{Keys: spec.keys}); err != nil {
			log.Fatalf("create index on %s: %v", spec.coll, err)
		}
	}
	log.Println("Indexes ensured")
}

func seedSamples(ctx context.Context, store *database.Store) {
	customers := []database.Customer{
		{Name: "Anna Kowalski", Phone: "555-0101", Email: "anna@example.com", CreatedAt: time.Now()},
		{Name: "Brian Okafor", Phone: "555-0102", Email: "brian@example.com", CreatedAt: time.Now()},
	}
	for _, c := range customers {
		if _, err := store.InsertCustomer(ctx, c); err != nil {
			log.Fatalf("insert customer: %v", err)
		}
	}

	employees := []database.Employee{
		{Name: "Dana Fields", Email: "dana@storelane.io", CreatedAt: time.Now()},
		{Name: "Marcus Lee", Email: "marcus@storelane.io", CreatedAt: time.Now()},
	}
	for _, e := range employees {
		if _, err := store.InsertEmployee(ctx, e); err != nil {
			log.Fatalf("insert employee: %v", err)
		}
	}

	products := []struct {
		name  string
		price string
	}{
		{"Espresso Beans 1kg", "24.50"},
		{"Ceramic Mug", "9.90"},
		{"Pour-over Kettle", "42.00"},
	}
	for _, p := range products {
		price := decimal.RequireFromString(p.price)
		d128, err := primitive.ParseDecimal128(price.String())
		if err != nil {
			log.Fatalf("parse price: %v", err)
		}
		if _, err := store.InsertProduct(ctx, database.Product{
			Name:      p.name,
			SellPrice: d128,
			CreatedAt: time.Now(),
		}); err != nil {
			log.Fatalf("insert product: %v", err)
		}
	}

	log.Println("Sample data inserted")
}
