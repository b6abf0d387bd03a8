// Package stock manages the per-flower-type counters kept in the catalog
// product's metadata ("stock_rouge", ...). Counters are seeded by hand in
// the provider dashboard; this package only reads and decrements them.
package stock

import (
	"context"
	"fmt"
	"log"
	"strconv"
)

const keyPrefix = "stock_"

// Key returns the product metadata key holding the counter for a flower
// type.
func Key(flowerType string) string {
	return keyPrefix + flowerType
}

// MetadataStore is the slice of the provider product this package needs.
type MetadataStore interface {
	ProductMetadata(ctx context.Context) (map[string]string, error)
	UpdateProductMetadata(ctx context.Context, patch map[string]string) (map[string]string, error)
}

// InsufficientError reports a stock pre-check failure for one flower type.
type InsufficientError struct {
	FlowerType string
	Available  int
	Requested  int
}

func (e InsufficientError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: have %d, want %d", e.FlowerType, e.Available, e.Requested)
}

// Ledger reads and decrements the counters. The provider has no
// compare-and-swap, so Check followed by Decrement is not a reservation;
// concurrent sales can interleave between them.
type Ledger struct {
	products MetadataStore
}

func NewLedger(products MetadataStore) *Ledger {
	return &Ledger{products: products}
}

// Check verifies that every requested flower type has enough stock. It is a
// pure pre-check, not a reservation. Returns InsufficientError for the
// first failing type.
func (l *Ledger) Check(ctx context.Context, required map[string]int) error {
	meta, err := l.products.ProductMetadata(ctx)
	if err != nil {
		return err
	}
	for flowerType, count := range required {
		current := parseCount(meta[Key(flowerType)])
		if current < count {
			return InsufficientError{FlowerType: flowerType, Available: current, Requested: count}
		}
	}
	return nil
}

// Remaining is the stock left for one flower type after a decrement,
// carried into the admin notification email.
type Remaining struct {
	FlowerType string
	Before     int
	After      int
}

func (r Remaining) String() string {
	return fmt.Sprintf("%s: %d (was %d)", r.FlowerType, r.After, r.Before)
}

// Decrement subtracts the given counts, flooring each counter at zero. It
// never fails on underflow; going below zero only logs a warning. Counters
// already at their target are left untouched.
func (l *Ledger) Decrement(ctx context.Context, counts map[string]int) ([]Remaining, error) {
	meta, err := l.products.ProductMetadata(ctx)
	if err != nil {
		return nil, err
	}

	patch := make(map[string]string)
	remaining := make([]Remaining, 0, len(counts))
	for flowerType, count := range counts {
		current := parseCount(meta[Key(flowerType)])
		next := current - count
		if next < 0 {
			log.Printf("[STOCK] [WARN] %s would go to %d, flooring at 0", flowerType, next)
			next = 0
		}
		remaining = append(remaining, Remaining{FlowerType: flowerType, Before: current, After: next})
		if next != current {
			patch[Key(flowerType)] = strconv.Itoa(next)
		}
	}

	if len(patch) > 0 {
		if _, err := l.products.UpdateProductMetadata(ctx, patch); err != nil {
			return nil, err
		}
	}
	return remaining, nil
}

func parseCount(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
