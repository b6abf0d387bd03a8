package logbook

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tulipes/internal/models"
	"tulipes/internal/payments"
)

func newBook(t *testing.T) (*Book, *payments.Memory) {
	t.Helper()
	mem := payments.NewMemory()
	return New(mem), mem
}

func TestPushKeepsNewestTwenty(t *testing.T) {
	book, _ := newBook(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		require.NoError(t, book.Push(ctx, PrefixLogin, []string{fmt.Sprintf("row-%d|ua|ts", i)}))
	}

	logins, _, err := book.Logins(ctx)
	require.NoError(t, err)
	require.Len(t, logins, Capacity)

	// Newest first: last push lands at index 0, the first five are gone.
	assert.Equal(t, "row-24", logins[0].IP)
	assert.Equal(t, "row-5", logins[Capacity-1].IP)
}

func TestPushBatchShiftsExisting(t *testing.T) {
	book, _ := newBook(t)
	ctx := context.Background()

	require.NoError(t, book.Push(ctx, PrefixAudit, []string{"old|f|o|n|ts"}))
	require.NoError(t, book.Push(ctx, PrefixAudit, []string{"new-a|f|o|n|ts", "new-b|f|o|n|ts"}))

	audits, err := book.Audits(ctx)
	require.NoError(t, err)
	require.Len(t, audits, 3)
	assert.Equal(t, "new-a", audits[0].OrderID)
	assert.Equal(t, "new-b", audits[1].OrderID)
	assert.Equal(t, "old", audits[2].OrderID)
}

func TestPushOversizedBatch(t *testing.T) {
	book, _ := newBook(t)
	ctx := context.Background()

	rows := make([]string, 30)
	for i := range rows {
		rows[i] = fmt.Sprintf("batch-%d|ua|ts", i)
	}
	require.NoError(t, book.Push(ctx, PrefixLogin, rows))

	logins, _, err := book.Logins(ctx)
	require.NoError(t, err)
	require.Len(t, logins, Capacity)
	assert.Equal(t, "batch-0", logins[0].IP)
	assert.Equal(t, "batch-19", logins[Capacity-1].IP)
}

func TestLoginsSkipsShortRows(t *testing.T) {
	book, mem := newBook(t)
	ctx := context.Background()

	customer, err := mem.FindOrCreateCustomer(ctx, "admin-logs@tulipes.internal", "Admin Login Logs")
	require.NoError(t, err)
	_, err = mem.UpdateCustomerMetadata(ctx, customer.ID, map[string]string{
		"log_0": "1.2.3.4|agent|2026-01-01T00:00:00Z|FR",
		"log_1": "garbage-without-pipes",
		"log_2": "5.6.7.8|agent|2026-01-02T00:00:00Z",
	})
	require.NoError(t, err)

	logins, _, err := book.Logins(ctx)
	require.NoError(t, err)
	require.Len(t, logins, 2)
	assert.Equal(t, "FR", logins[0].Country)
	assert.Equal(t, "?", logins[1].Country)
}

func TestAppendLoginTruncatesUserAgent(t *testing.T) {
	book, _ := newBook(t)
	ctx := context.Background()

	longUA := ""
	for i := 0; i < 30; i++ {
		longUA += "Mozilla/5.0"
	}
	require.NoError(t, book.AppendLogin(ctx, models.LoginLogEntry{
		IP:        "1.2.3.4",
		UserAgent: longUA,
		Timestamp: "2026-01-01T00:00:00Z",
		Country:   "FR",
	}))

	logins, _, err := book.Logins(ctx)
	require.NoError(t, err)
	require.Len(t, logins, 1)
	assert.Len(t, logins[0].UserAgent, 100)
}

func TestFormatAudit(t *testing.T) {
	row := FormatAudit(models.AuditEntry{
		OrderID:   "pi_3MtwBwLkdIwHu7ix28a3tqPa",
		Field:     "name",
		OldValue:  "Alice",
		NewValue:  "Bob",
		Timestamp: "2026-01-01T00:00:00Z",
		EditorIP:  "1.2.3.4",
	})
	assert.Equal(t, "28a3tqPa|name|Alice|Bob|2026-01-01T00:00:00Z|1.2.3.4", row)
}

func TestBlocklistIdempotent(t *testing.T) {
	book, _ := newBook(t)
	ctx := context.Background()

	ips, err := book.SetBlocked(ctx, "1.2.3.4", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.2.3.4"}, ips)

	ips, err = book.SetBlocked(ctx, "1.2.3.4", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.2.3.4"}, ips)

	blocked, err := book.IsBlocked(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, blocked)

	blocked, err = book.IsBlocked(ctx, "5.6.7.8")
	require.NoError(t, err)
	assert.False(t, blocked)

	ips, err = book.SetBlocked(ctx, "1.2.3.4", false)
	require.NoError(t, err)
	assert.Empty(t, ips)

	// Unblocking an absent ip is a no-op, not an error.
	_, err = book.SetBlocked(ctx, "9.9.9.9", false)
	require.NoError(t, err)
}
