// Package orders is the order store: CRUD-style operations over payment
// records, with the metadata codec translating between records and
// structured orders.
package orders

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"time"

	"tulipes/internal/logbook"
	"tulipes/internal/metadata"
	"tulipes/internal/models"
	"tulipes/internal/payments"
	"tulipes/internal/stock"
)

// listLimit caps how many provider records one listing fetches.
const listLimit = 100

// EditableFields is the whitelist for super-admin field edits; anything
// else is silently dropped.
var EditableFields = []string{
	"tulipType",
	"name",
	"message",
	"recipientName",
	"recipientFirstName",
	"recipientLastName",
	"formation",
	"isAnonymous",
	"deliveryStatus",
	"firstName",
}

// Service exposes the order operations used by both the storefront and the
// admin dashboard.
type Service struct {
	records   payments.RecordStore
	products  payments.ProductStore
	ledger    *stock.Ledger
	logs      *logbook.Book
	productID string
	currency  string
}

func NewService(records payments.RecordStore, products payments.ProductStore, ledger *stock.Ledger, logs *logbook.Book, productID, currency string) *Service {
	return &Service{
		records:   records,
		products:  products,
		ledger:    ledger,
		logs:      logs,
		productID: productID,
		currency:  currency,
	}
}

// CreateResult is handed back to the storefront so the client can complete
// the payment.
type CreateResult struct {
	RecordID     string
	ClientSecret string
	Amount       int64
}

// Create validates the cart, pre-checks stock and opens a payment record
// carrying the encoded items. The stock check is advisory only; actual
// decrements happen at fulfillment time.
func (s *Service) Create(ctx context.Context, items []models.OrderDraft, customerEmail string) (*CreateResult, error) {
	if len(items) == 0 {
		return nil, ValidationError{Message: "no items in order"}
	}

	unitAmount, currency, err := s.products.UnitAmount(ctx)
	if err != nil {
		if errors.Is(err, payments.ErrRecordNotFound) {
			return nil, ConfigError{Message: "no catalog price configured"}
		}
		return nil, UpstreamError{Op: "fetch price", Err: err}
	}
	if currency == "" {
		currency = s.currency
	}

	required := make(map[string]int)
	for _, item := range items {
		required[item.FlowerType]++
	}
	if err := s.ledger.Check(ctx, required); err != nil {
		var insufficient stock.InsufficientError
		if errors.As(err, &insufficient) {
			return nil, ValidationError{Message: "Rupture de stock pour " + insufficient.FlowerType}
		}
		return nil, UpstreamError{Op: "check stock", Err: err}
	}

	md, err := metadata.BuildPaymentMetadata(items, customerEmail, s.productID)
	if err != nil {
		return nil, ValidationError{Message: err.Error()}
	}

	total := unitAmount * int64(len(items))
	rec, err := s.records.CreateRecord(ctx, total, currency, md)
	if err != nil {
		return nil, UpstreamError{Op: "create payment record", Err: err}
	}

	log.Printf("[ORDERS] created record %s (%d item(s), %d %s)", rec.ID, len(items), total, currency)
	return &CreateResult{RecordID: rec.ID, ClientSecret: rec.ClientSecret, Amount: total}, nil
}

// List returns every decoded, non-deleted, successfully-paid order, newest
// first, with multi-item records expanded into individual orders.
func (s *Service) List(ctx context.Context) ([]models.Order, error) {
	records, err := s.records.ListRecords(ctx, listLimit)
	if err != nil {
		return nil, UpstreamError{Op: "list payment records", Err: err}
	}

	orders := make([]models.Order, 0, len(records))
	for _, rec := range records {
		if rec.Status != payments.StatusSucceeded {
			continue
		}
		if !metadata.IsOrderRecord(rec.Metadata) {
			continue
		}
		if rec.Metadata[metadata.KeyDeleted] == "true" {
			continue
		}
		orders = append(orders, metadata.DecodeRecord(rec.ID, rec.Created, rec.Amount, rec.Metadata)...)
	}

	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt > orders[j].CreatedAt
	})
	return orders, nil
}

// UpdateDeliveryStatus toggles one order between pending and delivered. For
// a virtual item id only that item's ds sub-field is rewritten; sibling
// items keep their blobs byte for byte.
func (s *Service) UpdateDeliveryStatus(ctx context.Context, orderID, status string) error {
	if status != models.StatusPending && status != models.StatusDelivered {
		return ValidationError{Message: "invalid delivery status"}
	}
	if orderID == "" {
		return ValidationError{Message: "missing order id"}
	}

	parentID, index, hasIndex := metadata.SplitOrderID(orderID)
	if !hasIndex {
		if _, err := s.records.UpdateRecord(ctx, parentID, map[string]string{
			metadata.KeyDeliveryStatus: status,
		}); err != nil {
			return s.wrapRecordErr("update delivery status", parentID, err)
		}
		return nil
	}

	rec, err := s.records.GetRecord(ctx, parentID)
	if err != nil {
		return s.wrapRecordErr("retrieve record", parentID, err)
	}

	itemKey := metadata.ItemKey(index)
	blob, ok := rec.Metadata[itemKey]
	if !ok {
		return NotFoundError{ID: orderID}
	}
	item, err := metadata.ParseItem(blob)
	if err != nil {
		return UpstreamError{Op: "decode " + itemKey, Err: err}
	}

	item.DeliveryStatus = status
	encoded, err := item.Encode()
	if err != nil {
		return UpstreamError{Op: "encode " + itemKey, Err: err}
	}
	if _, err := s.records.UpdateRecord(ctx, parentID, map[string]string{itemKey: encoded}); err != nil {
		return s.wrapRecordErr("update delivery status", parentID, err)
	}
	return nil
}

// SoftDelete flags the underlying payment record as deleted, hiding it from
// listings. Deletion is parent-level only: a single item inside a
// multi-item order cannot be deleted on its own, so a virtual id deletes
// the whole record.
func (s *Service) SoftDelete(ctx context.Context, orderID string) error {
	if orderID == "" {
		return ValidationError{Message: "missing order id"}
	}
	parentID, _, _ := metadata.SplitOrderID(orderID)
	if _, err := s.records.UpdateRecord(ctx, parentID, map[string]string{
		metadata.KeyDeleted: "true",
	}); err != nil {
		return s.wrapRecordErr("soft delete", parentID, err)
	}
	return nil
}

// EditResult reports what an edit actually changed.
type EditResult struct {
	Updated map[string]string
	Record  *payments.Record
}

// EditFields merges whitelisted field updates into a record's flat
// metadata. Non-whitelisted fields are dropped without failing the rest of
// the call; values are truncated to the provider limit. One audit entry is
// appended per applied field (best effort). Fails with ValidationError only
// when nothing survives the filter.
func (s *Service) EditFields(ctx context.Context, orderID string, updates map[string]string, editorIP string) (*EditResult, error) {
	if orderID == "" {
		return nil, ValidationError{Message: "missing order id"}
	}
	parentID, _, _ := metadata.SplitOrderID(orderID)

	rec, err := s.records.GetRecord(ctx, parentID)
	if err != nil {
		return nil, s.wrapRecordErr("retrieve record", parentID, err)
	}

	timestamp := time.Now().UTC().Format(time.RFC3339)
	applied := make(map[string]string)
	audits := make([]models.AuditEntry, 0, len(updates))

	for field, value := range updates {
		if !fieldAllowed(field) {
			log.Printf("[ORDERS] [WARN] blocked edit of field %q on %s", field, parentID)
			continue
		}
		sanitized := strings.TrimSpace(metadata.Truncate(value, metadata.ValueLimit))
		applied[field] = sanitized
		audits = append(audits, models.AuditEntry{
			OrderID:   parentID,
			Field:     field,
			OldValue:  rec.Metadata[field],
			NewValue:  sanitized,
			Timestamp: timestamp,
			EditorIP:  editorIP,
		})
	}

	if len(applied) == 0 {
		return nil, ValidationError{Message: "no valid fields to update"}
	}

	updated, err := s.records.UpdateRecord(ctx, parentID, applied)
	if err != nil {
		return nil, s.wrapRecordErr("update record", parentID, err)
	}

	if err := s.logs.AppendAudit(ctx, audits); err != nil {
		log.Printf("[ORDERS] [ERROR] failed to append audit entries for %s: %v", parentID, err)
	}

	return &EditResult{Updated: applied, Record: updated}, nil
}

func (s *Service) wrapRecordErr(op, id string, err error) error {
	if errors.Is(err, payments.ErrRecordNotFound) {
		return NotFoundError{ID: id}
	}
	return UpstreamError{Op: op, Err: err}
}

func fieldAllowed(field string) bool {
	for _, allowed := range EditableFields {
		if field == allowed {
			return true
		}
	}
	return false
}
