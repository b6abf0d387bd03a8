package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	stripe "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
)

// StripeClient implements the provider interfaces against the Stripe API.
type StripeClient struct {
	sc            *client.API
	productID     string
	webhookSecret string
}

func NewStripeClient(apiKey, productID, webhookSecret string) *StripeClient {
	sc := &client.API{}
	sc.Init(apiKey, nil)
	return &StripeClient{sc: sc, productID: productID, webhookSecret: webhookSecret}
}

func (s *StripeClient) CreateRecord(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Record, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := s.sc.PaymentIntents.New(params)
	if err != nil {
		return nil, wrapStripeErr("create payment intent", err)
	}
	return recordFromIntent(pi), nil
}

func (s *StripeClient) GetRecord(ctx context.Context, id string) (*Record, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := s.sc.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, wrapStripeErr("retrieve payment intent", err)
	}
	return recordFromIntent(pi), nil
}

func (s *StripeClient) UpdateRecord(ctx context.Context, id string, patch map[string]string) (*Record, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	for k, v := range patch {
		params.AddMetadata(k, v)
	}
	pi, err := s.sc.PaymentIntents.Update(id, params)
	if err != nil {
		return nil, wrapStripeErr("update payment intent", err)
	}
	return recordFromIntent(pi), nil
}

func (s *StripeClient) ListRecords(ctx context.Context, limit int64) ([]*Record, error) {
	params := &stripe.PaymentIntentListParams{}
	params.Context = ctx
	params.Limit = stripe.Int64(limit)

	var records []*Record
	iter := s.sc.PaymentIntents.List(params)
	for iter.Next() {
		records = append(records, recordFromIntent(iter.PaymentIntent()))
	}
	if err := iter.Err(); err != nil {
		return nil, wrapStripeErr("list payment intents", err)
	}
	return records, nil
}

func (s *StripeClient) UnitAmount(ctx context.Context) (int64, string, error) {
	params := &stripe.PriceListParams{
		Product: stripe.String(s.productID),
		Active:  stripe.Bool(true),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	iter := s.sc.Prices.List(params)
	for iter.Next() {
		price := iter.Price()
		if price.UnitAmount <= 0 {
			return 0, "", fmt.Errorf("price %s has no unit amount", price.ID)
		}
		return price.UnitAmount, string(price.Currency), nil
	}
	if err := iter.Err(); err != nil {
		return 0, "", wrapStripeErr("list prices", err)
	}
	return 0, "", fmt.Errorf("no active price for product %s: %w", s.productID, ErrRecordNotFound)
}

func (s *StripeClient) ProductMetadata(ctx context.Context) (map[string]string, error) {
	params := &stripe.ProductParams{}
	params.Context = ctx
	product, err := s.sc.Products.Get(s.productID, params)
	if err != nil {
		return nil, wrapStripeErr("retrieve product", err)
	}
	return product.Metadata, nil
}

func (s *StripeClient) UpdateProductMetadata(ctx context.Context, patch map[string]string) (map[string]string, error) {
	params := &stripe.ProductParams{}
	params.Context = ctx
	for k, v := range patch {
		params.AddMetadata(k, v)
	}
	product, err := s.sc.Products.Update(s.productID, params)
	if err != nil {
		return nil, wrapStripeErr("update product", err)
	}
	return product.Metadata, nil
}

func (s *StripeClient) FindOrCreateCustomer(ctx context.Context, email, name string) (*Customer, error) {
	listParams := &stripe.CustomerListParams{Email: stripe.String(email)}
	listParams.Context = ctx
	listParams.Limit = stripe.Int64(1)

	iter := s.sc.Customers.List(listParams)
	for iter.Next() {
		return customerFromStripe(iter.Customer()), nil
	}
	if err := iter.Err(); err != nil {
		return nil, wrapStripeErr("list customers", err)
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.Context = ctx
	created, err := s.sc.Customers.New(params)
	if err != nil {
		return nil, wrapStripeErr("create customer", err)
	}
	return customerFromStripe(created), nil
}

func (s *StripeClient) UpdateCustomerMetadata(ctx context.Context, id string, patch map[string]string) (*Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	for k, v := range patch {
		params.AddMetadata(k, v)
	}
	updated, err := s.sc.Customers.Update(id, params)
	if err != nil {
		return nil, wrapStripeErr("update customer", err)
	}
	return customerFromStripe(updated), nil
}

// ParseEvent verifies the webhook signature and, for payment events,
// returns the embedded payment record.
func (s *StripeClient) ParseEvent(payload []byte, sigHeader string) (string, *Record, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, s.webhookSecret)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return string(event.Type), nil, fmt.Errorf("decode event object: %w", err)
	}
	return string(event.Type), recordFromIntent(&pi), nil
}

func recordFromIntent(pi *stripe.PaymentIntent) *Record {
	return &Record{
		ID:           pi.ID,
		Created:      pi.Created,
		Amount:       pi.Amount,
		Status:       string(pi.Status),
		ClientSecret: pi.ClientSecret,
		Metadata:     pi.Metadata,
	}
}

func customerFromStripe(c *stripe.Customer) *Customer {
	return &Customer{
		ID:       c.ID,
		Email:    c.Email,
		Name:     c.Name,
		Metadata: c.Metadata,
	}
}

func wrapStripeErr(op string, err error) error {
	var sErr *stripe.Error
	if errors.As(err, &sErr) && sErr.Code == stripe.ErrorCodeResourceMissing {
		return fmt.Errorf("%s: %w", op, ErrRecordNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
