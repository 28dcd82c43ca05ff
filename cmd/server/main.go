package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/storelane/api/internal/config"
	"github.com/storelane/api/internal/database"
	"github.com/storelane/api/internal/router"
	"github.com/storelane/api/internal/ws"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer client.Disconnect(context.Background())

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}

	store := database.New(client.Database(cfg.MongoDB))

	hub := ws.NewHub()
	go hub.Run()

	r := router.New(cfg, store, hub)

	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}
