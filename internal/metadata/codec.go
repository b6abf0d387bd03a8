// Package metadata packs orders into and out of the payment provider's
// size-limited string metadata. Two record shapes exist in the wild: the
// legacy single-item shape (flat keys directly on the record) and the
// compact multi-item shape (item_count plus one JSON blob per item). Both
// must stay readable forever; old records are never migrated.
package metadata

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"tulipes/internal/models"
)

const (
	// MessageLimit caps gift messages before encoding; provider metadata
	// values are hard-capped around 500 characters per key and one item
	// blob has to fit several fields.
	MessageLimit = 350

	// ValueLimit is the provider's per-key ceiling, applied to every
	// value written through field edits.
	ValueLimit = 500
)

// Record metadata keys.
const (
	KeyItemCount      = "item_count"
	KeyCustomerEmail  = "customer_email"
	KeyProductID      = "product_id"
	KeyDeleted        = "deleted"
	KeyEmailSent      = "email_sent"
	KeyDeliveryStatus = "deliveryStatus"

	// Legacy single-item flat keys.
	KeyTulipType          = "tulipType"
	KeyName               = "name"
	KeyMessage            = "message"
	KeyRecipientName      = "recipientName"
	KeyRecipientFirstName = "recipientFirstName"
	KeyRecipientLastName  = "recipientLastName"
	KeyFormation          = "formation"
	KeyIsAnonymous        = "isAnonymous"
	keyCustomerEmailOld   = "customerEmail"
)

// virtualIDSep joins a record id and an item index into a virtual order id.
const virtualIDSep = "__"

// AnonymousName replaces the sender's display name on anonymous orders. The
// original name is still kept under the "on" key for the admin panel.
const AnonymousName = "Anonyme"

// Item is the compact JSON encoding of one flower order, short keys chosen
// to fit the provider's per-value size limit.
type Item struct {
	FlowerType         string `json:"t"`
	DisplayName        string `json:"n"`
	OriginalName       string `json:"on,omitempty"`
	Message            string `json:"m"`
	RecipientName      string `json:"rn,omitempty"`
	RecipientFirstName string `json:"rfn,omitempty"`
	RecipientLastName  string `json:"rln,omitempty"`
	Formation          string `json:"f"`
	Anonymous          string `json:"a"`
	DeliveryStatus     string `json:"ds"`
}

// ItemKey returns the metadata key holding item i of a multi-item record.
func ItemKey(i int) string {
	return fmt.Sprintf("item_%d", i)
}

// JoinOrderID builds the virtual id of item i inside record parentID.
func JoinOrderID(parentID string, i int) string {
	return parentID + virtualIDSep + strconv.Itoa(i)
}

// SplitOrderID splits a possibly-virtual order id into the underlying
// record id and item index. hasIndex is false for plain record ids.
func SplitOrderID(orderID string) (parentID string, index int, hasIndex bool) {
	pos := strings.LastIndex(orderID, virtualIDSep)
	if pos < 0 {
		return orderID, 0, false
	}
	idx, err := strconv.Atoi(orderID[pos+len(virtualIDSep):])
	if err != nil || idx < 0 {
		return orderID, 0, false
	}
	return orderID[:pos], idx, true
}

// EncodeItem converts a checkout draft into its compact form, resolving the
// anonymous display name and truncating the message.
func EncodeItem(d models.OrderDraft) Item {
	displayName := d.SenderName
	anon := "0"
	if d.IsAnonymous {
		displayName = AnonymousName
		anon = "1"
	}
	return Item{
		FlowerType:         d.FlowerType,
		DisplayName:        displayName,
		OriginalName:       d.SenderName,
		Message:            Truncate(d.Message, MessageLimit),
		RecipientName:      d.RecipientName,
		RecipientFirstName: d.RecipientFirstName,
		RecipientLastName:  d.RecipientLastName,
		Formation:          d.Formation,
		Anonymous:          anon,
		DeliveryStatus:     models.StatusPending,
	}
}

// ParseItem decodes one item_{i} blob.
func ParseItem(blob string) (Item, error) {
	var item Item
	if err := json.Unmarshal([]byte(blob), &item); err != nil {
		return Item{}, fmt.Errorf("parse item blob: %w", err)
	}
	return item, nil
}

// Encode serializes the item back into its metadata blob.
func (it Item) Encode() (string, error) {
	data, err := json.Marshal(it)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// BuildPaymentMetadata encodes a full cart into the metadata map for a new
// payment record. The top-level tulipType mirrors the first item so legacy
// readers keep working.
func BuildPaymentMetadata(items []models.OrderDraft, customerEmail, productID string) (map[string]string, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("no items to encode")
	}

	md := map[string]string{
		KeyItemCount:     strconv.Itoa(len(items)),
		KeyCustomerEmail: customerEmail,
		KeyProductID:     productID,
		KeyTulipType:     items[0].FlowerType,
	}
	for i, draft := range items {
		blob, err := EncodeItem(draft).Encode()
		if err != nil {
			return nil, fmt.Errorf("encode item %d: %w", i, err)
		}
		md[ItemKey(i)] = blob
	}
	return md, nil
}

// DecodeRecord expands one payment record into its orders. Multi-item
// records yield one order per parseable item blob; a malformed blob is
// logged and skipped without disturbing its siblings. Legacy records yield
// exactly one order. Records with neither shape yield none.
func DecodeRecord(id string, created, amount int64, md map[string]string) []models.Order {
	if md == nil {
		return nil
	}
	if countStr, ok := md[KeyItemCount]; ok {
		return decodeMultiItem(id, created, amount, countStr, md)
	}
	if _, ok := md[KeyTulipType]; ok {
		return []models.Order{decodeLegacy(id, created, amount, md)}
	}
	return nil
}

func decodeMultiItem(id string, created, amount int64, countStr string, md map[string]string) []models.Order {
	count, err := strconv.Atoi(countStr)
	if err != nil || count <= 0 {
		log.Printf("[CODEC] record %s has invalid item_count %q", id, countStr)
		return nil
	}

	// Per-item price is an approximation; only the record total is real.
	perItem := amount / int64(count)

	deleted := md[KeyDeleted] == "true"
	emailSent := md[KeyEmailSent] == "true"
	email := customerEmail(md)

	orders := make([]models.Order, 0, count)
	for i := 0; i < count; i++ {
		blob, ok := md[ItemKey(i)]
		if !ok {
			continue
		}
		item, err := ParseItem(blob)
		if err != nil {
			log.Printf("[CODEC] record %s: skipping malformed %s: %v", id, ItemKey(i), err)
			continue
		}
		orders = append(orders, orderFromItem(id, i, created, perItem, email, deleted, emailSent, item))
	}
	return orders
}

func orderFromItem(parentID string, index int, created, amount int64, email string, deleted, emailSent bool, item Item) models.Order {
	status := item.DeliveryStatus
	if status == "" {
		status = models.StatusPending
	}
	return models.Order{
		ID:                 JoinOrderID(parentID, index),
		ParentPaymentID:    parentID,
		ItemIndex:          index,
		CreatedAt:          created,
		Amount:             amount,
		FlowerType:         item.FlowerType,
		SenderDisplayName:  item.DisplayName,
		SenderOriginalName: item.OriginalName,
		Message:            item.Message,
		RecipientName:      item.RecipientName,
		RecipientFirstName: item.RecipientFirstName,
		RecipientLastName:  item.RecipientLastName,
		Formation:          item.Formation,
		IsAnonymous:        item.Anonymous == "1",
		DeliveryStatus:     status,
		CustomerEmail:      email,
		Deleted:            deleted,
		EmailSent:          emailSent,
	}
}

func decodeLegacy(id string, created, amount int64, md map[string]string) models.Order {
	status := md[KeyDeliveryStatus]
	if status == "" {
		status = models.StatusPending
	}
	anon := md[KeyIsAnonymous] == "true" || md[KeyIsAnonymous] == "1"
	displayName := md[KeyName]
	if anon {
		displayName = AnonymousName
	}
	return models.Order{
		ID:                 id,
		ParentPaymentID:    id,
		ItemIndex:          -1,
		CreatedAt:          created,
		Amount:             amount,
		FlowerType:         md[KeyTulipType],
		SenderDisplayName:  displayName,
		SenderOriginalName: md[KeyName],
		Message:            md[KeyMessage],
		RecipientName:      md[KeyRecipientName],
		RecipientFirstName: md[KeyRecipientFirstName],
		RecipientLastName:  md[KeyRecipientLastName],
		Formation:          md[KeyFormation],
		IsAnonymous:        anon,
		DeliveryStatus:     status,
		CustomerEmail:      customerEmail(md),
		Deleted:            md[KeyDeleted] == "true",
		EmailSent:          md[KeyEmailSent] == "true",
	}
}

func customerEmail(md map[string]string) string {
	if email := md[keyCustomerEmailOld]; email != "" {
		return email
	}
	return md[KeyCustomerEmail]
}

// IsOrderRecord reports whether a payment record carries either order
// shape. Unrelated records on the same provider account are ignored.
func IsOrderRecord(md map[string]string) bool {
	if md == nil {
		return false
	}
	_, hasCount := md[KeyItemCount]
	_, hasLegacy := md[KeyTulipType]
	return hasCount || hasLegacy
}

// Truncate cuts s to at most limit characters.
func Truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
