package extractor

import "sync/atomic"

// Budget is a run-scoped ceiling on product fetch attempts. It is safe for
// concurrent use; TryAcquire never grants more than the limit.
type Budget struct {
	limit int64
	used  atomic.Int64
}

// NewBudget returns a budget allowing limit attempts. A limit below zero is treated as zero.
func NewBudget(limit int) *Budget {
	if limit < 0 {
		limit = 0
	}
	return &Budget{limit: int64(limit)}
}

// TryAcquire claims one attempt, reporting false once the limit is reached
func (b *Budget) TryAcquire() bool {
	for {
		n := b.used.Load()
		if n >= b.limit {
			return false
		}
		if b.used.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Used returns the number of attempts granted so far
func (b *Budget) Used() int {
	return int(b.used.Load())
}

// Limit returns the configured ceiling
func (b *Budget) Limit() int {
	return int(b.limit)
}

// Exhausted reports whether no attempts remain
func (b *Budget) Exhausted() bool {
	return b.used.Load() >= b.limit
}
