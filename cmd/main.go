package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"upc-catalog/adapters"
	"upc-catalog/catalog"
	"upc-catalog/extractor"
	"upc-catalog/internal/types"
	"upc-catalog/utils"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	defaults := types.DefaultConfig()

	// Parse command line flags
	var (
		sourcesFlag   = flag.String("sources", "", "YAML file of source descriptors (default: built-in sources)")
		onlyFlag      = flag.String("only", "", "Comma-separated source names to ingest")
		outputFlag    = flag.String("output", "", "Report output file path (default: stdout)")
		driverFlag    = flag.String("driver", envOr("CATALOG_DRIVER", catalog.DriverSQLite), "Catalog driver (memory, sqlite, postgres, mysql, redis)")
		dsnFlag       = flag.String("dsn", os.Getenv("CATALOG_DSN"), "Catalog DSN (sqlite: file path)")
		productCap    = flag.Int("cap", defaults.ProductCap, "Maximum product fetches across the run")
		requestDelay  = flag.Duration("delay", defaults.RequestDelay, "Delay between requests")
		maxRetries    = flag.Int("retries", defaults.MaxRetries, "Maximum retry attempts on transport errors, 429 and 5xx")
		timeout       = flag.Duration("timeout", defaults.Timeout, "Request timeout")
		maxConcurrent = flag.Int("concurrent", defaults.MaxConcurrentRequests, "Maximum concurrent product fetches per source")
		stripHTML     = flag.Bool("strip-html", false, "Store descriptions as plain text")
		verbose       = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	logger := utils.NewLogger(*verbose)

	if err := extractor.ValidateCap(*productCap); err != nil {
		logger.Fatalf("Invalid -cap: %v", err)
	}

	sources := adapters.DefaultSources()
	if *sourcesFlag != "" {
		loaded, err := adapters.LoadSources(*sourcesFlag)
		if err != nil {
			logger.Fatalf("Failed to load sources: %v", err)
		}
		sources = loaded
	}
	if *onlyFlag != "" {
		filtered, err := adapters.FilterSources(sources, strings.Split(*onlyFlag, ","))
		if err != nil {
			logger.Fatalf("Invalid -only: %v", err)
		}
		sources = filtered
	}

	// Create configuration
	config := &types.Config{
		RequestDelay:          *requestDelay,
		MaxRetries:            *maxRetries,
		Timeout:               *timeout,
		MaxConcurrentRequests: *maxConcurrent,
		UserAgent:             defaults.UserAgent,
		ProductCap:            *productCap,
		StripHTML:             *stripHTML,
	}

	// SIGINT/SIGTERM stop the run at the next fetch
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := catalog.Open(ctx, catalog.Config{Driver: *driverFlag, DSN: *dsnFlag})
	if err != nil {
		logger.Fatalf("Failed to open catalog: %v", err)
	}
	defer store.Close()

	client := utils.NewHTTPClient(config, logger)
	defer client.Close()

	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, s.Name)
	}
	logger.Infof("Starting ingestion for sources: %v (driver %s)", names, *driverFlag)

	startTime := time.Now()
	report, runErr := extractor.NewIngestor(config, logger, client, store).Run(ctx, sources, config.ProductCap)
	if runErr != nil && !extractor.IsCancelled(runErr) {
		logger.Errorf("Ingestion failed: %v", runErr)
	}
	logger.Infof("Ingestion completed in %v", time.Since(startTime))

	// Marshal report to JSON
	jsonData, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		logger.Fatalf("Failed to marshal report: %v", err)
	}

	// Output report
	if *outputFlag != "" {
		if err := os.WriteFile(*outputFlag, jsonData, 0644); err != nil {
			logger.Fatalf("Failed to write output file: %v", err)
		}
		logger.Infof("Report written to: %s", *outputFlag)
	} else {
		fmt.Println(string(jsonData))
	}

	// Print summary
	totals := report.Totals()
	for _, s := range report.Sources {
		logger.Infof("%s: %s, %d urls, attempted %d, upserted %d, skipped %d, failed %d",
			s.Source, s.State, s.ManifestURLs, s.Attempted, s.Upserted, s.Skipped, s.Failed)
	}
	logger.Infof("Total attempted: %d of cap %d", report.Attempted, report.Cap)
	logger.Infof("Total upserted: %d (%d new)", totals.Upserted, totals.Created)
	if report.CapReached {
		logger.Infof("Product cap reached")
	}
	if report.Cancelled {
		logger.Warnf("Run was cancelled before finishing")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
