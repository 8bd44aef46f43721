package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	bankHandler "github.com/billyapp/bankfeed/internal/controller/http/bank"
	"github.com/billyapp/bankfeed/internal/gateway"
	"github.com/billyapp/bankfeed/internal/provider"
	mappingSqlite "github.com/billyapp/bankfeed/internal/repositories/requisition/sqlite"
	cacheSqlite "github.com/billyapp/bankfeed/internal/repositories/txcache/sqlite"
	"github.com/billyapp/bankfeed/pkg/common/logger"
)

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "debug"
	}
	logger.Initialize(level)
	logger.Info("starting server")

	secretID := os.Getenv("GOCARDLESS_SECRET_ID")
	secretKey := os.Getenv("GOCARDLESS_SECRET_KEY")
	if secretID == "" || secretKey == "" {
		logger.Error("GOCARDLESS_SECRET_ID and GOCARDLESS_SECRET_KEY are required")
		os.Exit(1)
	}

	appBaseURL := os.Getenv("APP_BASE_URL")
	if appBaseURL == "" {
		appBaseURL = "http://localhost:3000"
	}

	mdbPath := os.Getenv("MAPPING_SQLITE_PATH")
	if mdbPath == "" {
		mdbPath = "./requisition-mapping.db"
	}
	mappings, err := mappingSqlite.NewSQLiteRepo(mdbPath)
	if err != nil {
		logger.Error("init mapping repo: %v", err)
		os.Exit(1)
	}

	// Cache can share the same DB file or use a separate one
	cdbPath := os.Getenv("CACHE_SQLITE_PATH")
	if cdbPath == "" {
		cdbPath = "./transaction-cache.db"
	}
	cache, err := cacheSqlite.NewSQLiteRepo(cdbPath)
	if err != nil {
		logger.Error("init cache repo: %v", err)
		os.Exit(1)
	}

	client := provider.NewClient(provider.Config{
		BaseURL:   os.Getenv("GOCARDLESS_BASE_URL"),
		SecretID:  secretID,
		SecretKey: secretKey,
	})
	gw := gateway.New(client, mappings, cache, appBaseURL)

	h := bankHandler.NewHandler(gw, mappings, cache)
	router := chi.NewRouter()
	const maxBodySize = 1 << 20
	router.Use(middleware.RequestSize(maxBodySize))
	router.Use(middleware.Recoverer)
	router.Mount("/", h.Router())

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	addr := ":" + port
	server := &http.Server{Addr: addr, Handler: withCORS(router)}

	go func() {
		logger.Info("listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen: %v", err)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown: %v", err)
	}
	if mappings != nil {
		mappings.Disconnect()
	}
	if cache != nil {
		cache.Disconnect()
	}
	logger.Info("server stopped")
}
