package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"upc-catalog/adapters"
	"upc-catalog/internal/types"
	"upc-catalog/utils"
)

// inspect lists what ingestion would fetch for a source without touching the catalog
func main() {
	var (
		sourcesFlag = flag.String("sources", "", "YAML file of source descriptors (default: built-in sources)")
		sourceFlag  = flag.String("source", "", "Source name to inspect (default: all)")
		limitFlag   = flag.Int("limit", 10, "Number of product URLs to show per source")
		fetchFlag   = flag.Bool("fetch", false, "Also fetch each shown product and print its UPC")
	)
	flag.Parse()

	config := types.DefaultConfig()
	logger := utils.NewLogger(false)
	client := utils.NewHTTPClient(config, logger)
	defer client.Close()

	sources := adapters.DefaultSources()
	if *sourcesFlag != "" {
		loaded, err := adapters.LoadSources(*sourcesFlag)
		if err != nil {
			log.Fatalf("Failed to load sources: %v", err)
		}
		sources = loaded
	}
	if *sourceFlag != "" {
		filtered, err := adapters.FilterSources(sources, []string{*sourceFlag})
		if err != nil {
			log.Fatalf("Invalid -source: %v", err)
		}
		sources = filtered
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	failed := false
	for _, source := range sources {
		fmt.Printf("=== %s ===\n", source.Name)
		if !inspectSource(ctx, adapters.NewSiteAdapter(source, config, logger, client), *limitFlag, *fetchFlag) {
			failed = true
		}
		fmt.Println()
	}
	if failed {
		os.Exit(1)
	}
}

func inspectSource(ctx context.Context, adapter *adapters.SiteAdapter, limit int, fetch bool) bool {
	urls, err := adapter.ProductURLs(ctx)
	if err != nil {
		log.Printf("Failed to get product URLs: %v", err)
		return false
	}
	fmt.Printf("Product URLs in sitemap: %d\n", len(urls))

	for i, productURL := range urls {
		if i >= limit {
			break
		}
		slug, err := adapters.Slug(productURL)
		if err != nil {
			fmt.Printf("  %d: %s (no slug: %v)\n", i+1, productURL, err)
			continue
		}
		detailURL, _ := adapter.DetailURL(productURL)
		fmt.Printf("  %d: slug='%s' detail='%s' page='%s'\n", i+1, slug, detailURL, adapter.ProductPageURL(slug))

		if !fetch {
			continue
		}
		extraction, err := adapter.FetchProduct(ctx, productURL)
		switch {
		case err != nil:
			fmt.Printf("     error: %v\n", err)
		case extraction.Skipped():
			fmt.Printf("     skipped: %s\n", extraction.Skip)
		default:
			offer := extraction.Record.Retailers[0]
			fmt.Printf("     upc=%s title='%s' price=%s %s\n", extraction.Record.ID, extraction.Record.Title, offer.Price.String(), offer.Currency)
		}
	}
	return true
}
