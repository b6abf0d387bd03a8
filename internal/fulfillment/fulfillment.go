// Package fulfillment is the single entry point for order side effects:
// stock decrement and confirmation emails. Both the payment webhook and the
// explicit email-trigger endpoint funnel into Fulfill, which is idempotent
// under retry.
//
// Progress is persisted on the payment record itself as a small state
// machine (created -> stock_reserved -> notified -> done), so a retry
// resumes after the last completed step instead of re-running it. Stock is
// decremented exactly once, when the record moves into stock_reserved; the
// write of that state follows the decrement, so a crash in between can
// still lose the marker - a far smaller window than the original single
// email_sent flag, which only landed after the emails too. The legacy
// email_sent flag is still written at completion and still honored as a
// short-circuit so records fulfilled by earlier revisions are never
// re-processed.
package fulfillment

import (
	"context"
	"fmt"
	"log"
	"strings"

	"tulipes/internal/mailer"
	"tulipes/internal/metadata"
	"tulipes/internal/payments"
	"tulipes/internal/stock"
)

// KeyState is the metadata key carrying fulfillment progress.
const KeyState = "fulfillment_state"

// Fulfillment states, in order.
const (
	StateCreated       = ""
	StateStockReserved = "stock_reserved"
	StateNotified      = "notified"
	StateDone          = "done"
)

func stateRank(state string) int {
	switch state {
	case StateStockReserved:
		return 1
	case StateNotified:
		return 2
	case StateDone:
		return 3
	default:
		return 0
	}
}

// Service runs fulfillment for paid records.
type Service struct {
	records payments.RecordStore
	ledger  *stock.Ledger
	mail    *mailer.Mailer
}

func NewService(records payments.RecordStore, ledger *stock.Ledger, mail *mailer.Mailer) *Service {
	return &Service{records: records, ledger: ledger, mail: mail}
}

// Fulfill processes one paid record: decrement stock, email the customer
// and the formation contacts, then mark the record done. Calling it again
// for an already-fulfilled record is a no-op. Email dispatch is always
// attempted before the completion markers are written.
func (s *Service) Fulfill(ctx context.Context, recordID string) error {
	rec, err := s.records.GetRecord(ctx, recordID)
	if err != nil {
		return fmt.Errorf("retrieve record %s: %w", recordID, err)
	}

	if rec.Metadata[metadata.KeyEmailSent] == "true" || rec.Metadata[KeyState] == StateDone {
		log.Printf("[FULFILL] record %s already processed", recordID)
		return nil
	}

	items := metadata.DecodeRecord(rec.ID, rec.Created, rec.Amount, rec.Metadata)
	if len(items) == 0 {
		log.Printf("[FULFILL] [ERROR] record %s carries no items, nothing to fulfill", recordID)
		return nil
	}

	state := rec.Metadata[KeyState]
	stockLine := ""

	if stateRank(state) < stateRank(StateStockReserved) {
		required := make(map[string]int)
		for _, item := range items {
			if item.FlowerType != "" {
				required[item.FlowerType]++
			}
		}

		remaining, err := s.ledger.Decrement(ctx, required)
		if err != nil {
			// Stock bookkeeping must not block the customer email; the
			// counters get reconciled by hand.
			log.Printf("[FULFILL] [ERROR] stock decrement failed for %s: %v", recordID, err)
		} else {
			stockLine = joinRemaining(remaining)
			if _, err := s.records.UpdateRecord(ctx, recordID, map[string]string{KeyState: StateStockReserved}); err != nil {
				return fmt.Errorf("mark %s stock_reserved: %w", recordID, err)
			}
			state = StateStockReserved
			log.Printf("[FULFILL] stock updated for %s: %s", recordID, stockLine)
		}
	}

	if stateRank(state) < stateRank(StateNotified) {
		customerEmail := items[0].CustomerEmail
		if customerEmail == "" {
			log.Printf("[FULFILL] [ERROR] record %s has no customer email", recordID)
		} else {
			total := fmt.Sprintf("%.2f", float64(rec.Amount)/100)
			if err := s.mail.SendOrderConfirmation(ctx, customerEmail, items, total); err != nil {
				return fmt.Errorf("send confirmation for %s: %w", recordID, err)
			}
		}
		if err := s.mail.SendAdminNotifications(ctx, items, stockLine); err != nil {
			return fmt.Errorf("send admin notifications for %s: %w", recordID, err)
		}
		if _, err := s.records.UpdateRecord(ctx, recordID, map[string]string{KeyState: StateNotified}); err != nil {
			return fmt.Errorf("mark %s notified: %w", recordID, err)
		}
	}

	if _, err := s.records.UpdateRecord(ctx, recordID, map[string]string{
		KeyState:              StateDone,
		metadata.KeyEmailSent: "true",
	}); err != nil {
		return fmt.Errorf("mark %s done: %w", recordID, err)
	}

	log.Printf("[FULFILL] record %s fulfilled (%d item(s))", recordID, len(items))
	return nil
}

// NotifyDelivered sends the delivered notice for one order.
func (s *Service) NotifyDelivered(ctx context.Context, toEmail, recipientName, formation string) error {
	return s.mail.SendDeliveryNotice(ctx, toEmail, recipientName, formation)
}

func joinRemaining(remaining []stock.Remaining) string {
	parts := make([]string, 0, len(remaining))
	for _, r := range remaining {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, " | ")
}
