// Package payments wraps the payment provider, which doubles as the only
// persistent store: orders live in payment-record metadata, stock in the
// product's metadata and the admin logs on a dedicated pseudo-customer.
// The provider offers no transactions and no compare-and-swap, so every
// read-modify-write through these interfaces is last-write-wins.
package payments

import (
	"context"
	"errors"
)

// Record statuses mirrored from the provider.
const (
	StatusSucceeded = "succeeded"
)

// ErrRecordNotFound is returned for unknown record or customer ids.
var ErrRecordNotFound = errors.New("payment record not found")

// ErrBadSignature is returned when a webhook payload fails signature
// verification.
var ErrBadSignature = errors.New("invalid webhook signature")

// Record is one payment record (a checkout attempt) with its metadata.
type Record struct {
	ID           string
	Created      int64
	Amount       int64
	Status       string
	ClientSecret string
	Metadata     map[string]string
}

// Customer is a provider customer object; the only one this service touches
// is the logs pseudo-customer.
type Customer struct {
	ID       string
	Email    string
	Name     string
	Metadata map[string]string
}

// RecordStore is the order table: CRUD over payment records. UpdateRecord
// merges the patch into existing metadata key by key; untouched keys are
// preserved.
type RecordStore interface {
	CreateRecord(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Record, error)
	GetRecord(ctx context.Context, id string) (*Record, error)
	UpdateRecord(ctx context.Context, id string, patch map[string]string) (*Record, error)
	ListRecords(ctx context.Context, limit int64) ([]*Record, error)
}

// ProductStore exposes the single catalog product: its active unit price
// and its metadata, which holds the stock counters.
type ProductStore interface {
	UnitAmount(ctx context.Context) (int64, string, error)
	ProductMetadata(ctx context.Context) (map[string]string, error)
	UpdateProductMetadata(ctx context.Context, patch map[string]string) (map[string]string, error)
}

// CustomerStore finds and mutates the logs pseudo-customer.
type CustomerStore interface {
	FindOrCreateCustomer(ctx context.Context, email, name string) (*Customer, error)
	UpdateCustomerMetadata(ctx context.Context, id string, patch map[string]string) (*Customer, error)
}

// EventParser verifies and decodes a webhook delivery. Implementations
// return ErrBadSignature (possibly wrapped) when the payload cannot be
// trusted.
type EventParser interface {
	ParseEvent(payload []byte, sigHeader string) (eventType string, record *Record, err error)
}
