package extractor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"upc-catalog/adapters"
	"upc-catalog/internal/types"
)

// Upserter is the catalog write used by ingestion. *catalog.Catalog satisfies it.
type Upserter interface {
	Upsert(ctx context.Context, candidate *types.CatalogRecord) (bool, error)
}

// Ingestor walks every configured source and merges its products into the catalog
type Ingestor struct {
	config *types.Config
	logger types.Logger
	getter adapters.Getter
	store  Upserter
}

// NewIngestor creates a new ingestor
func NewIngestor(config *types.Config, logger types.Logger, getter adapters.Getter, store Upserter) *Ingestor {
	return &Ingestor{
		config: config,
		logger: logger,
		getter: getter,
		store:  store,
	}
}

// run holds the state shared by every source of a single Run
type run struct {
	budget     *Budget
	capReached atomic.Bool
}

// Run ingests sources in order, attempting at most productCap product fetches
// in total. Sources that fail are recorded and skipped. The report is always
// returned; the error is non-nil only when ctx ended the run early.
func (i *Ingestor) Run(ctx context.Context, sources []types.SourceDescriptor, productCap int) (*types.IngestionReport, error) {
	report := &types.IngestionReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Cap:       productCap,
		Sources:   make([]types.SourceReport, len(sources)),
	}
	for idx, source := range sources {
		report.Sources[idx] = types.SourceReport{Source: source.Name, State: types.SourcePending}
	}

	state := &run{budget: NewBudget(productCap)}
	i.logger.Infof("Starting ingestion run %s: %d sources, cap %d", report.RunID, len(sources), productCap)

	for idx, source := range sources {
		if ctx.Err() != nil {
			break
		}
		if state.budget.Exhausted() {
			state.capReached.Store(true)
			i.logger.Infof("Product cap of %d reached, not starting %s", productCap, source.Name)
			break
		}
		i.runSource(ctx, state, source, &report.Sources[idx])
	}

	report.Attempted = state.budget.Used()
	report.CapReached = state.capReached.Load()
	report.FinishedAt = time.Now()

	totals := report.Totals()
	i.logger.Infof("Ingestion run %s finished in %v: attempted %d, upserted %d (%d new), skipped %d, failed %d",
		report.RunID, report.FinishedAt.Sub(report.StartedAt), totals.Attempted, totals.Upserted, totals.Created, totals.Skipped, totals.Failed)

	if err := ctx.Err(); err != nil {
		report.Cancelled = true
		i.logger.Warnf("Ingestion run %s cancelled: %v", report.RunID, err)
		return report, err
	}
	return report, nil
}

func (i *Ingestor) runSource(ctx context.Context, state *run, source types.SourceDescriptor, sr *types.SourceReport) {
	adapter := adapters.NewSiteAdapter(source, i.config, i.logger, i.getter)

	sr.State = types.SourceFetchingManifest
	i.logger.Infof("Fetching manifest for %s", source.Name)
	urls, err := adapter.ProductURLs(ctx)
	if err != nil {
		sr.State = types.SourceFailed
		sr.Error = err.Error()
		i.logger.Warnf("Skipping source %s: %v", source.Name, err)
		return
	}

	sr.State = types.SourceIterating
	sr.ManifestURLs = len(urls)
	i.logger.Infof("Found %d product URLs for %s", len(urls), source.Name)

	var (
		mu      sync.Mutex
		stopped bool
		g       errgroup.Group
	)
	limit := i.config.MaxConcurrentRequests
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for _, productURL := range urls {
		if ctx.Err() != nil || state.budget.Exhausted() {
			stopped = true
			break
		}

		productURL := productURL
		g.Go(func() error {
			// the slot may open after the run was cut short
			if ctx.Err() != nil {
				return nil
			}
			if !state.budget.TryAcquire() {
				return nil
			}
			result := i.process(ctx, adapter, productURL)

			mu.Lock()
			sr.Attempted++
			switch result {
			case outcomeCreated:
				sr.Upserted++
				sr.Created++
			case outcomeUpdated:
				sr.Upserted++
			case outcomeSkipped:
				sr.Skipped++
			case outcomeFailed:
				sr.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if state.budget.Exhausted() && sr.Attempted < len(urls) {
		state.capReached.Store(true)
		stopped = true
	}
	if ctx.Err() != nil && sr.Attempted < len(urls) {
		stopped = true
	}

	if stopped {
		sr.State = types.SourceStopped
	} else {
		sr.State = types.SourceCompleted
	}
	i.logger.Infof("Source %s %s: attempted %d, upserted %d, skipped %d, failed %d",
		source.Name, sr.State, sr.Attempted, sr.Upserted, sr.Skipped, sr.Failed)
}

type outcome int

const (
	outcomeCreated outcome = iota
	outcomeUpdated
	outcomeSkipped
	outcomeFailed
)

// process fetches one product and merges it. Every failure is logged here and
// reduced to an outcome.
func (i *Ingestor) process(ctx context.Context, adapter *adapters.SiteAdapter, productURL string) outcome {
	start := time.Now()
	i.logger.Debugf("Processing %s (%s)", productURL, adapter.Name())

	extraction, err := adapter.FetchProduct(ctx, productURL)
	if err != nil {
		i.logger.Warnf("Failed to fetch product %s (%s): %v", productURL, adapter.Name(), err)
		return outcomeFailed
	}
	if extraction.Skipped() {
		i.logger.Debugf("Skipped %s (%s): %s", productURL, adapter.Name(), extraction.Skip)
		return outcomeSkipped
	}

	record := extraction.Record
	created, err := i.store.Upsert(ctx, record)
	if err != nil {
		storeErr := &types.StageError{
			Kind:   types.ErrStore,
			Source: adapter.Name(),
			URL:    productURL,
			ID:     record.ID,
			Err:    err,
		}
		i.logger.Errorf("%v", storeErr)
		return outcomeFailed
	}

	result, verb := outcomeUpdated, "updated"
	if created {
		result, verb = outcomeCreated, "created"
	}
	i.logger.Infof("Upserted record for UPC: %s (%s, %s)", record.ID, adapter.Name(), verb)
	i.logger.Debugf("Product %s processed in %v", productURL, time.Since(start))
	return result
}

// ValidateCap rejects a negative product cap
func ValidateCap(productCap int) error {
	if productCap < 0 {
		return fmt.Errorf("product cap must not be negative, got %d", productCap)
	}
	return nil
}

// IsCancelled reports whether err came from the run's context ending
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
