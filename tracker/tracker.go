package tracker

import (
	"context"
	"fmt"
	"time"
)

// CounterStore is the durable sequence backing tracking id allocation. Next
// must be atomic: two concurrent calls never return the same value.
type CounterStore interface {
	NextCounterValue(ctx context.Context) (int64, error)
}

// Allocator issues human-readable tracking ids of the form
// PTH-YYYYMMDD-NNNNNN. The date part is the UTC date of the call; the numeric
// suffix comes from one global, never-resetting counter, so a suffix like
// 000999 can roll into 001000 across a day boundary without resetting.
type Allocator struct {
	counter CounterStore
	now     func() time.Time
}

// NewAllocator creates an allocator over the given counter store.
func NewAllocator(counter CounterStore) *Allocator {
	return &Allocator{
		counter: counter,
		now:     time.Now,
	}
}

// Allocate returns a new unique tracking id. If the counter cannot be read or
// persisted, the error is returned and no id is issued.
func (a *Allocator) Allocate(ctx context.Context) (string, error) {
	value, err := a.counter.NextCounterValue(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to advance tracking counter: %w", err)
	}

	datePart := a.now().UTC().Format("20060102")
	return fmt.Sprintf("PTH-%s-%06d", datePart, value), nil
}
