package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// RetailerOffer is one source's listing of a catalog product.
// Retailer is the secondary key inside a CatalogRecord.
type RetailerOffer struct {
	Retailer    string          `json:"retailer"`
	ProductURL  string          `json:"productUrl"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	SKU         string          `json:"sku"`
}

// CatalogRecord is a product keyed by its UPC
type CatalogRecord struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Image      string          `json:"image"`
	Weight     float64         `json:"weight"`
	WeightUnit string          `json:"weightUnit"`
	Retailers  []RetailerOffer `json:"retailers"`
}

// Clone returns a deep copy so callers never share the retailers slice
func (r *CatalogRecord) Clone() *CatalogRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Retailers = append(make([]RetailerOffer, 0, len(r.Retailers)), r.Retailers...)
	return &out
}

// SourceDescriptor configures one storefront. Values are fixed for a run.
type SourceDescriptor struct {
	Name           string `json:"name" yaml:"name"`
	SitemapURL     string `json:"sitemap_url" yaml:"sitemap_url"`
	DetailBaseURL  string `json:"detail_base_url" yaml:"detail_base_url"`
	ProductBaseURL string `json:"product_base_url" yaml:"product_base_url"`
}

// SkipReason explains why a product produced no candidate record
type SkipReason string

const (
	SkipNone       SkipReason = ""
	SkipNoVariants SkipReason = "no_variants"
	SkipInvalidUPC SkipReason = "invalid_upc"
)

// Extraction is the outcome of fetching one product detail payload.
// Exactly one of Record and Skip is set.
type Extraction struct {
	Record *CatalogRecord
	Skip   SkipReason
}

// Skipped reports whether the product was filtered out
func (e Extraction) Skipped() bool {
	return e.Skip != SkipNone
}

// SourceState tracks a source through a run
type SourceState string

const (
	SourcePending          SourceState = "pending"
	SourceFetchingManifest SourceState = "fetching_manifest"
	SourceIterating        SourceState = "iterating"
	SourceCompleted        SourceState = "completed"
	SourceStopped          SourceState = "stopped"
	SourceFailed           SourceState = "failed"
)

// SourceReport holds the per-source counters of a run
type SourceReport struct {
	Source       string      `json:"source"`
	State        SourceState `json:"state"`
	ManifestURLs int         `json:"manifest_urls"`
	Attempted    int         `json:"attempted"`
	Upserted     int         `json:"upserted"`
	Created      int         `json:"created"`
	Skipped      int         `json:"skipped"`
	Failed       int         `json:"failed"`
	Error        string      `json:"error,omitempty"`
}

// IngestionReport is returned by a run, including partial runs
type IngestionReport struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Cap        int            `json:"cap"`
	Attempted  int            `json:"attempted"`
	CapReached bool           `json:"cap_reached"`
	Cancelled  bool           `json:"cancelled"`
	Sources    []SourceReport `json:"sources"`
}

// Totals sums the per-source counters
func (r *IngestionReport) Totals() SourceReport {
	total := SourceReport{Source: "total"}
	for _, s := range r.Sources {
		total.ManifestURLs += s.ManifestURLs
		total.Attempted += s.Attempted
		total.Upserted += s.Upserted
		total.Created += s.Created
		total.Skipped += s.Skipped
		total.Failed += s.Failed
	}
	return total
}

// Count is one row of an aggregate count query
type Count struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Config holds the configuration for an ingestion run
type Config struct {
	RequestDelay          time.Duration
	MaxRetries            int
	Timeout               time.Duration
	MaxConcurrentRequests int
	UserAgent             string
	ProductCap            int
	StripHTML             bool
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		RequestDelay:          250 * time.Millisecond,
		MaxRetries:            0,
		Timeout:               30 * time.Second,
		MaxConcurrentRequests: 1,
		ProductCap:            1000,
		UserAgent:             "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// Logger defines the logging interface
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}
