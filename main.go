package main

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	Event "fanhub/Events"
	Monitoring "fanhub/Monitoring"
	Auth "fanhub/Services/Auth"
	Mdb "fanhub/Services/Mdb"
	Storage "fanhub/Services/Storage"
	Utils "fanhub/Utils"
)

var ServerPort string

func loadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, relying on process environment")
	}

	port := os.Getenv("GO_SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	ServerPort = ":" + port
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Info("request handled")
	})
}

func main() {
	loadEnv()
	Utils.InitLogger()

	Mdb.InitPostgres()

	// Run migrations if RUN_MIGRATIONS env var is set
	if os.Getenv("RUN_MIGRATIONS") == "true" {
		log.Info("Running database migrations...")
		if err := Mdb.RunMigrations(); err != nil {
			log.Fatal("Migration failed: ", err)
		}
		log.Info("Migrations completed successfully")
	}

	Auth.Initauth()
	Storage.InitStorage()

	mux := chi.NewRouter()
	mux.Use(corsMiddleware, loggingMiddleware, Monitoring.InstrumentHandler)
	Event.Handler(mux)

	mux.Handle("/metrics", promhttp.Handler())

	log.Info("Server started at " + ServerPort)
	if err := http.ListenAndServe(ServerPort, mux); err != nil {
		log.Fatal("Server error: ", err)
	}
}
