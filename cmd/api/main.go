package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"upc-catalog/catalog"
	"upc-catalog/internal/api"
	"upc-catalog/utils"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	var (
		driverFlag = flag.String("driver", envOr("CATALOG_DRIVER", catalog.DriverSQLite), "Catalog driver (memory, sqlite, postgres, mysql, redis)")
		dsnFlag    = flag.String("dsn", os.Getenv("CATALOG_DSN"), "Catalog DSN (sqlite: file path)")
		portFlag   = flag.String("port", envOr("API_PORT", "3000"), "Port to listen on")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	logger := utils.NewLogger(*verbose)
	if !*verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := catalog.Open(ctx, catalog.Config{Driver: *driverFlag, DSN: *dsnFlag})
	if err != nil {
		logger.Fatalf("Failed to open catalog: %v", err)
	}
	defer store.Close()

	router := api.NewRouter(store, logger)
	srv := &http.Server{
		Addr:              ":" + *portFlag,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Catalog API listening on :%s (driver %s)", *portFlag, *driverFlag)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		logger.Errorf("Server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Graceful shutdown failed: %v", err)
	}
	logger.Info("Server stopped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
