package payments

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process provider used by tests and local development. It
// mimics the provider's merge semantics: metadata patches update key by
// key, and patching a key to "" deletes it.
type Memory struct {
	mu        sync.Mutex
	records   map[string]*Record
	order     []string // creation order, oldest first
	customers map[string]*Customer

	productMeta map[string]string
	unitAmount  int64
	currency    string

	// WebhookSecret is the signature the fake parser accepts.
	WebhookSecret string
	// NextEvent is returned by ParseEvent on a valid signature.
	NextEvent struct {
		Type   string
		Record *Record
	}

	created int64
}

func NewMemory() *Memory {
	return &Memory{
		records:     make(map[string]*Record),
		customers:   make(map[string]*Customer),
		productMeta: make(map[string]string),
		unitAmount:  500,
		currency:    "eur",
		created:     1700000000,
	}
}

// SetUnitAmount overrides the catalog price; amount <= 0 simulates a
// missing price configuration.
func (m *Memory) SetUnitAmount(amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unitAmount = amount
}

// SetStock seeds a raw product metadata key.
func (m *Memory) SetStock(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.productMeta[key] = value
}

// SeedRecord installs a record as if it had been created earlier.
func (m *Memory) SeedRecord(rec *Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.Metadata == nil {
		rec.Metadata = make(map[string]string)
	}
	m.records[rec.ID] = rec
	m.order = append(m.order, rec.ID)
}

func (m *Memory) CreateRecord(_ context.Context, amount int64, currency string, metadata map[string]string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.created++
	id := "pi_" + uuid.NewString()
	rec := &Record{
		ID:           id,
		Created:      m.created,
		Amount:       amount,
		Status:       StatusSucceeded,
		ClientSecret: id + "_secret",
		Metadata:     cloneMeta(metadata),
	}
	m.records[id] = rec
	m.order = append(m.order, id)
	return cloneRecord(rec), nil
}

func (m *Memory) GetRecord(_ context.Context, id string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return cloneRecord(rec), nil
}

func (m *Memory) UpdateRecord(_ context.Context, id string, patch map[string]string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	applyPatch(rec.Metadata, patch)
	return cloneRecord(rec), nil
}

func (m *Memory) ListRecords(_ context.Context, limit int64) ([]*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := make([]*Record, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0 && int64(len(records)) < limit; i-- {
		records = append(records, cloneRecord(m.records[m.order[i]]))
	}
	return records, nil
}

func (m *Memory) UnitAmount(context.Context) (int64, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unitAmount <= 0 {
		return 0, "", ErrRecordNotFound
	}
	return m.unitAmount, m.currency, nil
}

func (m *Memory) ProductMetadata(context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneMeta(m.productMeta), nil
}

func (m *Memory) UpdateProductMetadata(_ context.Context, patch map[string]string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	applyPatch(m.productMeta, patch)
	return cloneMeta(m.productMeta), nil
}

func (m *Memory) FindOrCreateCustomer(_ context.Context, email, name string) (*Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.customers {
		if c.Email == email {
			return cloneCustomer(c), nil
		}
	}
	c := &Customer{
		ID:       "cus_" + uuid.NewString(),
		Email:    email,
		Name:     name,
		Metadata: make(map[string]string),
	}
	m.customers[c.ID] = c
	return cloneCustomer(c), nil
}

func (m *Memory) UpdateCustomerMetadata(_ context.Context, id string, patch map[string]string) (*Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.customers[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	applyPatch(c.Metadata, patch)
	return cloneCustomer(c), nil
}

func (m *Memory) ParseEvent(_ []byte, sigHeader string) (string, *Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.WebhookSecret == "" || sigHeader != m.WebhookSecret {
		return "", nil, ErrBadSignature
	}
	return m.NextEvent.Type, m.NextEvent.Record, nil
}

func applyPatch(meta, patch map[string]string) {
	for k, v := range patch {
		if v == "" {
			delete(meta, k)
			continue
		}
		meta[k] = v
	}
}

func cloneMeta(meta map[string]string) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

func cloneRecord(rec *Record) *Record {
	clone := *rec
	clone.Metadata = cloneMeta(rec.Metadata)
	return &clone
}

func cloneCustomer(c *Customer) *Customer {
	clone := *c
	clone.Metadata = cloneMeta(c.Metadata)
	return &clone
}
