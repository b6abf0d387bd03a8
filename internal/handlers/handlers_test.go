package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tulipes/internal/fulfillment"
	"tulipes/internal/logbook"
	"tulipes/internal/mailer"
	"tulipes/internal/metadata"
	"tulipes/internal/models"
	"tulipes/internal/orders"
	"tulipes/internal/payments"
	"tulipes/internal/stock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type nopSender struct{ sent int }

func (s *nopSender) Send(context.Context, mailer.Message) error {
	s.sent++
	return nil
}

type testEnv struct {
	mem    *payments.Memory
	svc    *orders.Service
	book   *logbook.Book
	fulfil *fulfillment.Service
	sender *nopSender
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	mem := payments.NewMemory()
	ledger := stock.NewLedger(mem)
	book := logbook.New(mem)
	sender := &nopSender{}
	return &testEnv{
		mem:    mem,
		svc:    orders.NewService(mem, mem, ledger, book, "prod_tulips", "eur"),
		book:   book,
		fulfil: fulfillment.NewService(mem, ledger, mailer.New(sender, "shop@example.com")),
		sender: sender,
	}
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCreateOrderLegacyBody(t *testing.T) {
	env := newEnv(t)
	env.mem.SetStock(stock.Key(models.FlowerRouge), "5")
	r := gin.New()
	r.POST("/api/orders", CreateOrder(env.svc))

	w := doJSON(t, r, http.MethodPost, "/api/orders", gin.H{
		"tulipType":     models.FlowerRouge,
		"name":          "Alice",
		"customerEmail": "alice@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.NotEmpty(t, body["clientSecret"])
	assert.NotEmpty(t, body["recordId"])

	rec, err := env.mem.GetRecord(context.Background(), body["recordId"].(string))
	require.NoError(t, err)
	assert.Equal(t, "1", rec.Metadata[metadata.KeyItemCount])
}

func TestCreateOrderEmptyCart(t *testing.T) {
	env := newEnv(t)
	r := gin.New()
	r.POST("/api/orders", CreateOrder(env.svc))

	w := doJSON(t, r, http.MethodPost, "/api/orders", gin.H{"customerEmail": "a@b.c"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrderOutOfStock(t *testing.T) {
	env := newEnv(t)
	r := gin.New()
	r.POST("/api/orders", CreateOrder(env.svc))

	w := doJSON(t, r, http.MethodPost, "/api/orders", gin.H{
		"items":         []gin.H{{"tulipType": models.FlowerRose}},
		"customerEmail": "a@b.c",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody(t, w)["error"], models.FlowerRose)
}

func TestGetPrice(t *testing.T) {
	env := newEnv(t)
	env.mem.SetUnitAmount(350)
	env.mem.SetStock(stock.Key(models.FlowerRouge), "7")
	r := gin.New()
	r.GET("/api/price", GetPrice(env.mem))

	w := doJSON(t, r, http.MethodGet, "/api/price", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, 3.5, body["amount"])
	assert.Equal(t, "eur", body["currency"])
	meta := body["metadata"].(map[string]any)
	assert.Equal(t, "7", meta[stock.Key(models.FlowerRouge)])
}

func TestWebhookBadSignature(t *testing.T) {
	env := newEnv(t)
	env.mem.WebhookSecret = "whsec_test"
	r := gin.New()
	r.POST("/api/webhook", StripeWebhook(env.mem, env.fulfil))

	req := httptest.NewRequest(http.MethodPost, "/api/webhook", bytes.NewReader([]byte("{}")))
	req.Header.Set("Stripe-Signature", "wrong")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookSucceededEventFulfills(t *testing.T) {
	env := newEnv(t)
	env.mem.SetStock(stock.Key(models.FlowerRouge), "5")
	item, err := metadata.Item{FlowerType: models.FlowerRouge, DeliveryStatus: models.StatusPending}.Encode()
	require.NoError(t, err)
	env.mem.SeedRecord(&payments.Record{
		ID:     "pi_hook",
		Amount: 500,
		Status: payments.StatusSucceeded,
		Metadata: map[string]string{
			metadata.KeyItemCount:     "1",
			metadata.KeyCustomerEmail: "buyer@example.com",
			metadata.ItemKey(0):       item,
		},
	})
	env.mem.WebhookSecret = "whsec_test"
	env.mem.NextEvent.Type = "payment_intent.succeeded"
	env.mem.NextEvent.Record = &payments.Record{ID: "pi_hook"}

	r := gin.New()
	r.POST("/api/webhook", StripeWebhook(env.mem, env.fulfil))

	req := httptest.NewRequest(http.MethodPost, "/api/webhook", bytes.NewReader([]byte("{}")))
	req.Header.Set("Stripe-Signature", "whsec_test")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	rec, err := env.mem.GetRecord(context.Background(), "pi_hook")
	require.NoError(t, err)
	assert.Equal(t, "true", rec.Metadata[metadata.KeyEmailSent])
	assert.Positive(t, env.sender.sent)
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	env := newEnv(t)
	env.mem.WebhookSecret = "whsec_test"
	env.mem.NextEvent.Type = "payment_intent.created"
	env.mem.NextEvent.Record = &payments.Record{ID: "pi_other"}

	r := gin.New()
	r.POST("/api/webhook", StripeWebhook(env.mem, env.fulfil))

	req := httptest.NewRequest(http.MethodPost, "/api/webhook", bytes.NewReader([]byte("{}")))
	req.Header.Set("Stripe-Signature", "whsec_test")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, env.sender.sent)
}

func TestFulfillEndpointDelivery(t *testing.T) {
	env := newEnv(t)
	r := gin.New()
	r.POST("/api/fulfill", Fulfill(env.fulfil))

	w := doJSON(t, r, http.MethodPost, "/api/fulfill", gin.H{"type": "delivery"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/fulfill", gin.H{
		"type":          "delivery",
		"toEmail":       "buyer@example.com",
		"recipientName": "Bob",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, env.sender.sent)
}

func TestFulfillEndpointRequiresRecordID(t *testing.T) {
	env := newEnv(t)
	r := gin.New()
	r.POST("/api/fulfill", Fulfill(env.fulfil))

	w := doJSON(t, r, http.MethodPost, "/api/fulfill", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOrdersAndStatusFlow(t *testing.T) {
	env := newEnv(t)
	env.mem.SeedRecord(&payments.Record{
		ID:      "pi_legacy",
		Created: 100,
		Amount:  500,
		Status:  payments.StatusSucceeded,
		Metadata: map[string]string{
			metadata.KeyTulipType:      models.FlowerRouge,
			metadata.KeyDeliveryStatus: models.StatusPending,
		},
	})

	r := gin.New()
	r.GET("/api/admin/orders", GetOrders(env.svc))
	r.POST("/api/admin/orders/status", UpdateOrderStatus(env.svc))
	r.POST("/api/admin/orders/delete", DeleteOrder(env.svc))

	w := doJSON(t, r, http.MethodGet, "/api/admin/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["orders"], 1)

	w = doJSON(t, r, http.MethodPost, "/api/admin/orders/status", gin.H{
		"paymentIntentId": "pi_legacy",
		"status":          models.StatusDelivered,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/admin/orders/status", gin.H{
		"paymentIntentId": "pi_missing",
		"status":          models.StatusDelivered,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Binding failure: status missing.
	w = doJSON(t, r, http.MethodPost, "/api/admin/orders/status", gin.H{"paymentIntentId": "pi_legacy"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/admin/orders/delete", gin.H{"paymentIntentId": "pi_legacy"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/admin/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody(t, w)["orders"])
}

func TestEditOrderEndpoint(t *testing.T) {
	env := newEnv(t)
	env.mem.SeedRecord(&payments.Record{
		ID:     "pi_edit",
		Status: payments.StatusSucceeded,
		Metadata: map[string]string{
			metadata.KeyTulipType: models.FlowerRouge,
			metadata.KeyName:      "Alice",
		},
	})

	r := gin.New()
	r.POST("/api/admin/orders/edit", EditOrder(env.svc))

	w := doJSON(t, r, http.MethodPost, "/api/admin/orders/edit", gin.H{
		"paymentIntentId": "pi_edit",
		"updates":         gin.H{"name": "Bob"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	updated := body["updated"].(map[string]any)
	assert.Equal(t, "Bob", updated["name"])
}

func TestBlockedIPFlow(t *testing.T) {
	env := newEnv(t)
	r := gin.New()
	r.POST("/api/admin/blocked-ips", ManageBlockedIP(env.book))
	r.GET("/api/blocked", CheckIPBlocked(env.book))

	w := doJSON(t, r, http.MethodPost, "/api/admin/blocked-ips", gin.H{"ip": "1.2.3.4", "action": "ban"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/admin/blocked-ips", gin.H{"ip": "1.2.3.4", "action": "block"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"1.2.3.4"}, decodeBody(t, w)["blockedIps"])

	req := httptest.NewRequest(http.MethodGet, "/api/blocked", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["blocked"])

	w = doJSON(t, r, http.MethodPost, "/api/admin/blocked-ips", gin.H{"ip": "1.2.3.4", "action": "unblock"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody(t, w)["blockedIps"])
}

func TestLogAdminLogin(t *testing.T) {
	env := newEnv(t)
	r := gin.New()
	r.POST("/api/login-events", LogAdminLogin(env.book))

	req := httptest.NewRequest(http.MethodPost, "/api/login-events", bytes.NewReader([]byte(`{"userAgent":"test-agent"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "9.8.7.6")
	req.Header.Set("CF-IPCountry", "FR")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	logins, _, err := env.book.Logins(context.Background())
	require.NoError(t, err)
	require.Len(t, logins, 1)
	assert.Equal(t, "9.8.7.6", logins[0].IP)
	assert.Equal(t, "test-agent", logins[0].UserAgent)
	assert.Equal(t, "FR", logins[0].Country)
}
