package models

// Flower types sold by the fundraiser. Stock keys on the provider product
// are derived from these ("stock_rouge", ...).
const (
	FlowerRouge   = "rouge"
	FlowerRose    = "rose"
	FlowerBlanche = "blanche"
)

// Delivery statuses an order can be in. Admins may toggle between the two.
const (
	StatusPending   = "pending"
	StatusDelivered = "delivered"
)

// OrderDraft is one flower as submitted at checkout, before it is encoded
// into payment-record metadata.
type OrderDraft struct {
	FlowerType         string `json:"tulipType" binding:"required"`
	SenderName         string `json:"name"`
	Message            string `json:"message"`
	IsAnonymous        bool   `json:"isAnonymous"`
	RecipientName      string `json:"recipientName"`
	RecipientFirstName string `json:"recipientFirstName"`
	RecipientLastName  string `json:"recipientLastName"`
	Formation          string `json:"formation"`
}

// Order is one purchased flower as decoded from a payment record. For
// multi-item records the ID is virtual ("{recordId}__{index}") and Amount is
// an approximation (record total divided by item count), not an
// authoritative per-item price.
type Order struct {
	ID                 string `json:"id"`
	ParentPaymentID    string `json:"parentPaymentId"`
	ItemIndex          int    `json:"itemIndex"` // -1 for legacy single-item orders

	CreatedAt          int64  `json:"createdAt"`
	Amount             int64  `json:"amount"`
	FlowerType         string `json:"tulipType"`
	SenderDisplayName  string `json:"senderDisplayName"`
	SenderOriginalName string `json:"senderOriginalName,omitempty"`
	Message            string `json:"message"`
	RecipientName      string `json:"recipientName,omitempty"`
	RecipientFirstName string `json:"recipientFirstName,omitempty"`
	RecipientLastName  string `json:"recipientLastName,omitempty"`
	Formation          string `json:"formation"`
	IsAnonymous        bool   `json:"isAnonymous"`
	DeliveryStatus     string `json:"deliveryStatus"`
	CustomerEmail      string `json:"customerEmail,omitempty"`
	Deleted            bool   `json:"deleted"`
	EmailSent          bool   `json:"emailSent"`
}

// Recipient returns the best available recipient label, preferring the
// split first/last fields over the legacy single field.
func (o Order) Recipient() string {
	if o.RecipientFirstName != "" || o.RecipientLastName != "" {
		if o.RecipientFirstName != "" && o.RecipientLastName != "" {
			return o.RecipientFirstName + " " + o.RecipientLastName
		}
		return o.RecipientFirstName + o.RecipientLastName
	}
	return o.RecipientName
}
