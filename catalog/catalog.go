// Package catalog stores CatalogRecords keyed by UPC and implements the
// insert-or-merge write used by ingestion.
package catalog

import (
	"context"
	"errors"
	"sort"

	"upc-catalog/internal/types"
)

var (
	ErrNotFound      = errors.New("catalog record not found")
	ErrExists        = errors.New("catalog record already exists")
	ErrInvalidID     = errors.New("invalid upc")
	ErrInvalidRecord = errors.New("invalid catalog record")
)

// mutateFunc receives the stored record, or nil when absent, and returns the
// record to store. Returning an error aborts the write.
type mutateFunc func(existing *types.CatalogRecord) (*types.CatalogRecord, error)

// backend is implemented by each storage driver. mutate must apply fn and
// persist its result atomically with respect to other writers of the same id.
// fn may be invoked more than once when a driver retries on conflict.
type backend interface {
	get(ctx context.Context, id string) (*types.CatalogRecord, error)
	mutate(ctx context.Context, id string, fn mutateFunc) error
	delete(ctx context.Context, id string) error
	list(ctx context.Context) ([]types.CatalogRecord, error)
	close() error
}

// counter is implemented by drivers that aggregate natively
type counter interface {
	countByRetailer(ctx context.Context) ([]types.Count, error)
	countByWeightUnit(ctx context.Context) ([]types.Count, error)
}

// Catalog is the shared product store
type Catalog struct {
	backend backend
	locks   *keyedMutex
}

func newCatalog(b backend) *Catalog {
	return &Catalog{backend: b, locks: newKeyedMutex()}
}

// Upsert inserts candidate when its id is new, otherwise merges it into the
// stored record. Calls for the same id are serialized. It reports whether a
// new record was created.
func (c *Catalog) Upsert(ctx context.Context, candidate *types.CatalogRecord) (bool, error) {
	if err := validate(candidate); err != nil {
		return false, err
	}

	unlock := c.locks.lock(candidate.ID)
	defer unlock()

	var created bool
	err := c.backend.mutate(ctx, candidate.ID, func(existing *types.CatalogRecord) (*types.CatalogRecord, error) {
		created = existing == nil
		if created {
			return candidate.Clone(), nil
		}
		return Merge(existing, candidate), nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// Get returns the record stored under id
func (c *Catalog) Get(ctx context.Context, id string) (*types.CatalogRecord, error) {
	return c.backend.get(ctx, id)
}

// Insert stores a new record, failing with ErrExists if the id is taken
func (c *Catalog) Insert(ctx context.Context, record *types.CatalogRecord) error {
	if err := validate(record); err != nil {
		return err
	}

	unlock := c.locks.lock(record.ID)
	defer unlock()

	return c.backend.mutate(ctx, record.ID, func(existing *types.CatalogRecord) (*types.CatalogRecord, error) {
		if existing != nil {
			return nil, ErrExists
		}
		return record.Clone(), nil
	})
}

// Update applies a partial update to an existing record
func (c *Catalog) Update(ctx context.Context, id string, patch Patch) error {
	unlock := c.locks.lock(id)
	defer unlock()

	return c.backend.mutate(ctx, id, func(existing *types.CatalogRecord) (*types.CatalogRecord, error) {
		if existing == nil {
			return nil, ErrNotFound
		}
		next := patch.Apply(existing)
		if err := validate(next); err != nil {
			return nil, err
		}
		return next, nil
	})
}

// Delete removes the record stored under id
func (c *Catalog) Delete(ctx context.Context, id string) error {
	unlock := c.locks.lock(id)
	defer unlock()

	return c.backend.delete(ctx, id)
}

// List returns every record ordered by id
func (c *Catalog) List(ctx context.Context) ([]types.CatalogRecord, error) {
	records, err := c.backend.list(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// CountByRetailer counts offers per retailer across all records
func (c *Catalog) CountByRetailer(ctx context.Context) ([]types.Count, error) {
	if agg, ok := c.backend.(counter); ok {
		return agg.countByRetailer(ctx)
	}
	records, err := c.backend.list(ctx)
	if err != nil {
		return nil, err
	}
	return countBy(records, func(r types.CatalogRecord) []string {
		keys := make([]string, 0, len(r.Retailers))
		for _, offer := range r.Retailers {
			keys = append(keys, offer.Retailer)
		}
		return keys
	}), nil
}

// CountByWeightUnit counts records per weight unit
func (c *Catalog) CountByWeightUnit(ctx context.Context) ([]types.Count, error) {
	if agg, ok := c.backend.(counter); ok {
		return agg.countByWeightUnit(ctx)
	}
	records, err := c.backend.list(ctx)
	if err != nil {
		return nil, err
	}
	return countBy(records, func(r types.CatalogRecord) []string {
		return []string{r.WeightUnit}
	}), nil
}

// Close releases the underlying driver
func (c *Catalog) Close() error {
	return c.backend.close()
}

func countBy(records []types.CatalogRecord, keys func(types.CatalogRecord) []string) []types.Count {
	counts := make(map[string]int)
	for _, r := range records {
		for _, k := range keys(r) {
			counts[k]++
		}
	}

	out := make([]types.Count, 0, len(counts))
	for value, n := range counts {
		out = append(out, types.Count{Value: value, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}
