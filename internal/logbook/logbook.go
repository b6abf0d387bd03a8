// Package logbook keeps the admin audit trail on a dedicated pseudo-customer
// record at the payment provider: two 20-slot ring buffers of pipe-delimited
// rows (login events under log_0..log_19, field edits under edit_0..edit_19,
// index 0 newest) plus a JSON-encoded IP blocklist. One shared record, no
// compare-and-swap: concurrent pushes are last-write-wins and best-effort.
package logbook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"tulipes/internal/metadata"
	"tulipes/internal/models"
	"tulipes/internal/payments"
)

// Capacity is the fixed slot count of each ring buffer.
const Capacity = 20

// Ring buffer key prefixes.
const (
	PrefixLogin = "log"
	PrefixAudit = "edit"
)

const keyBlockedIPs = "blockedIps"

// Book is the handle to the logs record.
type Book struct {
	customers payments.CustomerStore
	email     string
	name      string
}

func New(customers payments.CustomerStore) *Book {
	return &Book{
		customers: customers,
		email:     "admin-logs@tulipes.internal",
		name:      "Admin Login Logs",
	}
}

func (b *Book) logsCustomer(ctx context.Context) (*payments.Customer, error) {
	return b.customers.FindOrCreateCustomer(ctx, b.email, b.name)
}

func slotKey(prefix string, i int) string {
	return fmt.Sprintf("%s_%d", prefix, i)
}

// Push prepends rows to the ring buffer with the given prefix. Existing
// rows shift right by len(rows); anything shifted past the last slot is
// dropped. Pushing more than Capacity rows keeps only the first Capacity.
func (b *Book) Push(ctx context.Context, prefix string, rows []string) error {
	if len(rows) == 0 {
		return nil
	}

	customer, err := b.logsCustomer(ctx)
	if err != nil {
		return err
	}

	meta := customer.Metadata
	patch := make(map[string]string)
	n := len(rows)
	if n > Capacity {
		rows = rows[:Capacity]
		n = Capacity
	}

	for i := Capacity - 1; i >= n; i-- {
		if shifted := meta[slotKey(prefix, i-n)]; shifted != "" {
			patch[slotKey(prefix, i)] = shifted
		}
	}
	for i := 0; i < n; i++ {
		patch[slotKey(prefix, i)] = rows[i]
	}

	_, err = b.customers.UpdateCustomerMetadata(ctx, customer.ID, patch)
	return err
}

// AppendLogin records one admin login attempt.
func (b *Book) AppendLogin(ctx context.Context, entry models.LoginLogEntry) error {
	row := strings.Join([]string{
		entry.IP,
		metadata.Truncate(entry.UserAgent, 100),
		entry.Timestamp,
		entry.Country,
	}, "|")
	return b.Push(ctx, PrefixLogin, []string{row})
}

// FormatAudit packs an edit into its ring-buffer row. Old and new values
// are truncated to keep the row under the provider's value limit.
func FormatAudit(entry models.AuditEntry) string {
	id := entry.OrderID
	if len(id) > 8 {
		id = id[len(id)-8:]
	}
	return strings.Join([]string{
		id,
		entry.Field,
		metadata.Truncate(entry.OldValue, 50),
		metadata.Truncate(entry.NewValue, 50),
		entry.Timestamp,
		entry.EditorIP,
	}, "|")
}

// AppendAudit records a batch of field edits, newest first.
func (b *Book) AppendAudit(ctx context.Context, entries []models.AuditEntry) error {
	rows := make([]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, FormatAudit(entry))
	}
	return b.Push(ctx, PrefixAudit, rows)
}

// Logins returns the login log, newest first, along with the blocklist.
// Rows with fewer than three fields are skipped.
func (b *Book) Logins(ctx context.Context) ([]models.LoginLogEntry, []string, error) {
	customer, err := b.logsCustomer(ctx)
	if err != nil {
		return nil, nil, err
	}

	entries := make([]models.LoginLogEntry, 0, Capacity)
	for i := 0; i < Capacity; i++ {
		row := customer.Metadata[slotKey(PrefixLogin, i)]
		if row == "" {
			continue
		}
		parts := strings.Split(row, "|")
		if len(parts) < 3 {
			continue
		}
		entry := models.LoginLogEntry{
			IP:        parts[0],
			UserAgent: parts[1],
			Timestamp: parts[2],
			Country:   "?",
		}
		if len(parts) > 3 && parts[3] != "" {
			entry.Country = parts[3]
		}
		entries = append(entries, entry)
	}
	return entries, parseBlockedIPs(customer.Metadata), nil
}

// Audits returns the edit log, newest first. Rows with fewer than five
// fields are skipped.
func (b *Book) Audits(ctx context.Context) ([]models.AuditEntry, error) {
	customer, err := b.logsCustomer(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]models.AuditEntry, 0, Capacity)
	for i := 0; i < Capacity; i++ {
		row := customer.Metadata[slotKey(PrefixAudit, i)]
		if row == "" {
			continue
		}
		parts := strings.Split(row, "|")
		if len(parts) < 5 {
			continue
		}
		entry := models.AuditEntry{
			OrderID:   parts[0],
			Field:     parts[1],
			OldValue:  parts[2],
			NewValue:  parts[3],
			Timestamp: parts[4],
			EditorIP:  "unknown",
		}
		if len(parts) > 5 && parts[5] != "" {
			entry.EditorIP = parts[5]
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// IsBlocked reports whether ip is on the blocklist.
func (b *Book) IsBlocked(ctx context.Context, ip string) (bool, error) {
	customer, err := b.logsCustomer(ctx)
	if err != nil {
		return false, err
	}
	for _, blocked := range parseBlockedIPs(customer.Metadata) {
		if blocked == ip {
			return true, nil
		}
	}
	return false, nil
}

// SetBlocked adds or removes ip from the blocklist, idempotently, and
// returns the resulting list.
func (b *Book) SetBlocked(ctx context.Context, ip string, blocked bool) ([]string, error) {
	customer, err := b.logsCustomer(ctx)
	if err != nil {
		return nil, err
	}

	ips := parseBlockedIPs(customer.Metadata)
	next := make([]string, 0, len(ips)+1)
	found := false
	for _, existing := range ips {
		if existing == ip {
			found = true
			if !blocked {
				continue
			}
		}
		next = append(next, existing)
	}
	if blocked && !found {
		next = append(next, ip)
	}

	encoded, err := json.Marshal(next)
	if err != nil {
		return nil, err
	}
	if _, err := b.customers.UpdateCustomerMetadata(ctx, customer.ID, map[string]string{
		keyBlockedIPs: string(encoded),
	}); err != nil {
		return nil, err
	}
	return next, nil
}

// parseBlockedIPs tolerates a missing or corrupt blocklist by treating it
// as empty.
func parseBlockedIPs(meta map[string]string) []string {
	raw := meta[keyBlockedIPs]
	if raw == "" {
		return nil
	}
	var ips []string
	if err := json.Unmarshal([]byte(raw), &ips); err != nil {
		return nil
	}
	return ips
}
