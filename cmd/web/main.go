package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shamba_marketplace/internal/repository"
	"shamba_marketplace/internal/service"
	"shamba_marketplace/internal/store"
)

type application struct {
	infoLog      *log.Logger
	errorLog     *log.Logger
	session      *scs.SessionManager
	users        *repository.UserRepository
	catalog      *service.CatalogService
	orders       *service.OrderService
	reviews      *service.ReviewService
	aggregator   *service.Aggregator
	reviewEvents chan service.ReviewEvent
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file loaded:", err)
	}

	addr := flag.String("addr", ":4000", "HTTP network address")
	flag.Parse()

	infoLog := log.New(os.Stdout, "INFO\t", log.Ldate|log.Ltime)
	errorLog := log.New(os.Stderr, "ERROR\t", log.Ldate|log.Ltime|log.Lshortfile)

	uri := getEnv("MONGO_URI", "mongodb://localhost:27017")
	dbName := getEnv("MONGO_DB", "shamba_marketplace")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetRegistry(store.BSONRegistry()))
	if err != nil {
		errorLog.Fatal(err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		errorLog.Fatal(err)
	}
	infoLog.Println("Connected to database")

	db := store.NewMongo(client.Database(dbName))
	if err := db.EnsureIndexes(ctx); err != nil {
		errorLog.Fatal(err)
	}

	session := scs.New()
	session.Lifetime = 12 * time.Hour

	reviewEvents := make(chan service.ReviewEvent, 64)

	app := &application{
		infoLog:    infoLog,
		errorLog:   errorLog,
		session:    session,
		users:      &repository.UserRepository{Collection: db.Users},
		catalog:    service.NewCatalogService(db),
		aggregator: service.NewAggregator(db, db, errorLog),
		orders: service.NewOrderService(service.OrderDeps{
			Catalog:  db,
			Orders:   db,
			ErrorLog: errorLog,
		}),
		reviews: service.NewReviewService(service.ReviewDeps{
			Reviews:   db,
			Catalog:   db,
			Orders:    db,
			Publisher: &eventQueue{ch: reviewEvents},
		}),
		reviewEvents: reviewEvents,
	}

	go app.reviewWorker()

	srv := &http.Server{
		Addr:     *addr,
		ErrorLog: errorLog,
		Handler:  app.routes(),
	}

	infoLog.Printf("Starting Shamba Marketplace on %s", *addr)
	err = srv.ListenAndServe()
	errorLog.Fatal(err)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
