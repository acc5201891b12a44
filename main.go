package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mal49/period-tracker/internal/dispatcher"
	"github.com/mal49/period-tracker/internal/handlers"
	"github.com/mal49/period-tracker/internal/store"
	"github.com/mal49/period-tracker/internal/webpush"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	// VAPID keys: load from env, or generate a pair for first runs.
	vapidPrivateKey := os.Getenv("VAPID_PRIVATE_KEY")
	if vapidPrivateKey == "" {
		log.Println("VAPID keys not found in environment. Generating new keys...")
		privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
		if err != nil {
			log.Fatal("Failed to generate VAPID keys:", err)
		}
		vapidPrivateKey = privateKey
		log.Printf("Generated VAPID keys:\nVAPID_PRIVATE_KEY=%s\nVAPID_PUBLIC_KEY=%s\n(Add these to your .env file to persist them)", privateKey, publicKey)
	}
	keys, err := webpush.ParseVAPIDKeys(vapidPrivateKey)
	if err != nil {
		log.Fatalf("Invalid VAPID private key: %v", err)
	}

	subscriber := os.Getenv("VAPID_SUBSCRIBER")
	if subscriber == "" {
		subscriber = "mailto:admin@example.com"
	}

	// Schedule store: Postgres by default, in-memory for local runs.
	var scheduleStore store.ScheduleStore
	if os.Getenv("SCHEDULE_STORE") == "memory" {
		log.Println("Using in-memory schedule store (schedules will not survive restarts)")
		scheduleStore = store.NewMemoryStore()
	} else {
		databaseURL := os.Getenv("DATABASE_URL")
		if databaseURL == "" {
			log.Fatal("DATABASE_URL environment variable is required")
		}

		pgStore, err := store.NewPostgresStore(databaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		if err := pgStore.RunMigrations(context.Background()); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		log.Println("Database migrations completed")
		scheduleStore = pgStore
	}

	sender := &webpush.Sender{
		Client:     &http.Client{Timeout: 10 * time.Second},
		Keys:       keys,
		Subscriber: subscriber,
		TTL:        time.Hour,
		Urgency:    "normal",
	}

	// Optional Redis lock so replicas don't sweep the same due set.
	var sweepLock dispatcher.Lock
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		sweepLock = store.NewSweepLock(&redis.Options{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
	}

	clickURL := os.Getenv("NOTIFICATION_URL")
	if clickURL == "" {
		clickURL = "/"
	}

	sweepInterval := time.Minute
	if v := os.Getenv("SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("Invalid SWEEP_INTERVAL: %v", err)
		}
		sweepInterval = d
	}

	disp := &dispatcher.Dispatcher{
		Store:    scheduleStore,
		Sender:   sender,
		Lock:     sweepLock,
		ClickURL: clickURL,
	}
	go disp.Run(context.Background(), sweepInterval)

	h := handlers.NewHandler(scheduleStore, keys)

	http.HandleFunc("/health", h.HealthHandler)
	http.HandleFunc("/api/vapid-public-key", h.GetVAPIDKeyHandler)
	http.HandleFunc("/api/schedule", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			h.ScheduleHandler(w, r)
		case http.MethodDelete:
			h.UnscheduleHandler(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	http.HandleFunc("/api/schedule/status", h.ScheduleStatusHandler)
	http.Handle("/metrics", promhttp.Handler())

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Println("Listening on :" + port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal(err)
	}
}
