package controllers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/papeleria-1x1/checkout-api/events"
	"github.com/papeleria-1x1/checkout-api/initializers"
	"github.com/papeleria-1x1/checkout-api/models"
	"github.com/papeleria-1x1/checkout-api/payments"
	"github.com/papeleria-1x1/checkout-api/services"
	"github.com/papeleria-1x1/checkout-api/shipping"
	"github.com/papeleria-1x1/checkout-api/store"
)

type mockPayments struct {
	mock.Mock
}

func (m *mockPayments) Enabled() bool { return m.Called().Bool(0) }

func (m *mockPayments) CreateCheckoutSession(ctx context.Context, req payments.SessionRequest) (payments.Session, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(payments.Session), args.Error(1)
}

func (m *mockPayments) VerifyWebhook(payload []byte, signature string) (payments.Event, error) {
	args := m.Called(payload, signature)
	return args.Get(0).(payments.Event), args.Error(1)
}

type staticRates []shipping.Rate

func (staticRates) Enabled() bool { return true }

func (r staticRates) Rates(context.Context, string) ([]shipping.Rate, error) { return r, nil }

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func setupRouter(p payments.Provider, rates shipping.RateProvider) (*gin.Engine, *store.Memory) {
	gin.SetMode(gin.TestMode)

	mem := store.NewMemory(func() time.Time { return testNow })
	log := zap.NewNop()
	sc := &initializers.ServiceContext{
		Config:   &initializers.Config{},
		Log:      log,
		Store:    mem,
		Payments: p,
		Shipping: shipping.NewQuoter(rates, log),
		Events:   events.Noop{},
		Now:      func() time.Time { return testNow },
	}
	sc.Orders = services.NewOrders(services.Options{
		Store:     mem,
		Payments:  p,
		Log:       log,
		Now:       sc.Now,
		ClientURL: "https://shop.example",
	})

	c := New(sc)
	r := gin.New()
	r.GET("/", c.GetHome)
	r.POST("/create-checkout-session", c.CreateCheckoutSession)
	r.POST("/stripe/webhook", c.StripeWebhook)
	r.POST("/calculate-shipping", c.CalculateShipping)
	r.GET("/orders/user/:userId", c.GetOrdersByUserID)
	return r, mem
}

func doJSON(r *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestGetHome(t *testing.T) {
	r, _ := setupRouter(payments.Disabled{}, shipping.Disabled{})
	w := doJSON(r, http.MethodGet, "/", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Servidor 1x1 y más - Activo", body["message"])
	assert.Equal(t, false, body["stripeEnabled"])
	assert.Equal(t, map[string]any{
		"cardPayments":   false,
		"cashPayments":   true,
		"shippingQuotes": false,
	}, body["capabilities"])
}

const cardBody = `{
	"orderId": "ORD-1714564800000",
	"isCash": false,
	"items": [{"id": "p1", "name": "Cuaderno", "unitPrice": 19.995, "quantity": 2, "imageUrl": "https://img/c.png"}],
	"orderMetadata": {"userId": "u1", "deliveryMethod": "store", "total": 39.99, "items": [{"id": "p1", "name": "Cuaderno", "unitPrice": 19.995, "quantity": 2, "totalPrice": 39.99}]}
}`

func TestCreateCheckoutSessionCard(t *testing.T) {
	p := &mockPayments{}
	p.On("Enabled").Return(true)
	p.On("CreateCheckoutSession", mock.Anything, mock.Anything).
		Return(payments.Session{ID: "cs_1", URL: "https://checkout.stripe.com/cs_1"}, nil)
	r, mem := setupRouter(p, shipping.Disabled{})

	w := doJSON(r, http.MethodPost, "/create-checkout-session", cardBody, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "cs_1", body["id"])
	assert.Equal(t, "https://checkout.stripe.com/cs_1", body["url"])

	doc, ok := mem.Get("ORD-1714564800000")
	require.True(t, ok)
	assert.Equal(t, "checkout_session", doc["status"])
}

func TestCreateCheckoutSessionCash(t *testing.T) {
	r, mem := setupRouter(payments.Disabled{}, shipping.Disabled{})
	w := doJSON(r, http.MethodPost, "/create-checkout-session",
		`{"orderId":"ORD-2","isCash":true,"items":[],"orderMetadata":{"userId":"u1","deliveryMethod":"store"}}`, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Orden en efectivo registrada", body["message"])

	doc, ok := mem.Get("ORD-2")
	require.True(t, ok)
	assert.Equal(t, "pending", doc["status"])
	assert.Equal(t, "cash", doc["paymentMethod"])
}

func TestCreateCheckoutSessionCardDisabled(t *testing.T) {
	r, mem := setupRouter(payments.Disabled{}, shipping.Disabled{})
	w := doJSON(r, http.MethodPost, "/create-checkout-session", cardBody, nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["cashOnly"])
	_, ok := mem.Get("ORD-1714564800000")
	assert.False(t, ok)
}

func TestCreateCheckoutSessionBadRequests(t *testing.T) {
	p := &mockPayments{}
	p.On("Enabled").Return(true)
	r, _ := setupRouter(p, shipping.Disabled{})

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"orderId":`},
		{"missing order id", `{"isCash":true,"items":[]}`},
		{"invalid price", `{"orderId":"ORD-3","items":[{"name":"Goma","unitPrice":"gratis","quantity":1}]}`},
		{"delivery without address", `{"orderId":"ORD-4","isCash":true,"orderMetadata":{"deliveryMethod":"delivery"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, http.MethodPost, "/create-checkout-session", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
	p.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
}

func TestCreateCheckoutSessionProviderError(t *testing.T) {
	p := &mockPayments{}
	p.On("Enabled").Return(true)
	p.On("CreateCheckoutSession", mock.Anything, mock.Anything).Return(payments.Session{}, errors.New("stripe unavailable"))
	r, _ := setupRouter(p, shipping.Disabled{})

	w := doJSON(r, http.MethodPost, "/create-checkout-session", cardBody, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "stripe unavailable", decode(t, w)["error"])
}

func signStripe(payload, secret string) string {
	ts := fmt.Sprintf("%d", time.Now().Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts + "." + payload))
	return "t=" + ts + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}

func TestStripeWebhook(t *testing.T) {
	const secret = "whsec_test"
	p, err := payments.NewStripe("sk_test_123", secret, nil)
	require.NoError(t, err)
	r, mem := setupRouter(p, shipping.Disabled{})

	require.NoError(t, mem.Write(context.Background(), "ORD-5", store.Replace{Order: models.Order{
		Status: models.StatusCheckoutSession, PaymentMethod: models.PaymentCard,
	}}))

	payload := `{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_5","object":"checkout.session","metadata":{"orderId":"ORD-5"}}}}`

	w := doJSON(r, http.MethodPost, "/stripe/webhook", payload, map[string]string{"Stripe-Signature": "t=1,v1=deadbeef"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	doc, _ := mem.Get("ORD-5")
	assert.Equal(t, "checkout_session", doc["status"])

	w = doJSON(r, http.MethodPost, "/stripe/webhook", payload, map[string]string{"Stripe-Signature": signStripe(payload, secret)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, map[string]any{"received": true}, decode(t, w))

	doc, _ = mem.Get("ORD-5")
	assert.Equal(t, "paid", doc["status"])
	assert.Equal(t, "cs_5", doc["stripeSessionId"])
	assert.Equal(t, testNow.UnixMilli(), doc["paidAt"])
}

func TestStripeWebhookAcknowledgesUnreadableSession(t *testing.T) {
	const secret = "whsec_test"
	p, err := payments.NewStripe("sk_test_123", secret, nil)
	require.NoError(t, err)
	r, mem := setupRouter(p, shipping.Disabled{})

	require.NoError(t, mem.Write(context.Background(), "ORD-6", store.Replace{Order: models.Order{
		Status: models.StatusCheckoutSession, PaymentMethod: models.PaymentCard,
	}}))

	payload := `{"id":"evt_6","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_6","object":"checkout.session","metadata":["ORD-6"]}}}`
	w := doJSON(r, http.MethodPost, "/stripe/webhook", payload, map[string]string{"Stripe-Signature": signStripe(payload, secret)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, map[string]any{"received": true}, decode(t, w))

	doc, _ := mem.Get("ORD-6")
	assert.Equal(t, "checkout_session", doc["status"])
}

func TestStripeWebhookDisabled(t *testing.T) {
	r, _ := setupRouter(payments.Disabled{}, shipping.Disabled{})
	w := doJSON(r, http.MethodPost, "/stripe/webhook", `{}`, map[string]string{"Stripe-Signature": "t=1,v1=x"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCalculateShipping(t *testing.T) {
	rates := staticRates{
		{ID: "1", Provider: "Estafeta", ServiceLevel: "Terrestre", TotalPricing: 80, Days: 3, DaysLabel: "3"},
		{ID: "2", Provider: "DHL", ServiceLevel: "Express", TotalPricing: 150, Days: 1, DaysLabel: "1"},
	}
	r, _ := setupRouter(payments.Disabled{}, rates)

	w := doJSON(r, http.MethodPost, "/calculate-shipping", `{"total":"1500","zipCode":"44100"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Options []models.ShippingOption `json:"options"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Options, 2)
	assert.Equal(t, "Estafeta - Terrestre (GRATIS)", body.Options[0].Name)
	assert.Equal(t, 0.0, body.Options[0].Price)
	assert.Equal(t, 170.0, body.Options[1].Price)
}

func TestCalculateShippingNeverFails(t *testing.T) {
	r, _ := setupRouter(payments.Disabled{}, staticRates{{ID: "1", Provider: "X", ServiceLevel: "Y", TotalPricing: 10, Days: 1}})

	for _, body := range []string{`{"zipCode":"123"}`, `not json`, `{"total":100}`} {
		w := doJSON(r, http.MethodPost, "/calculate-shipping", body, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"options":[]}`, w.Body.String())
	}
}

func TestGetOrdersByUserID(t *testing.T) {
	r, mem := setupRouter(payments.Disabled{}, shipping.Disabled{})
	ctx := context.Background()
	require.NoError(t, mem.Write(ctx, "ORD-A", store.Replace{Order: models.Order{UserID: "u7", Status: models.StatusPaid, Timestamp: models.Timestamp{Millis: 10, Valid: true}}}))
	require.NoError(t, mem.Write(ctx, "ORD-B", store.Replace{Order: models.Order{UserID: "u7", Status: models.StatusCheckoutSession}}))
	require.NoError(t, mem.Write(ctx, "ORD-C", store.Replace{Order: models.Order{UserID: "u8", Status: models.StatusPaid}}))

	w := doJSON(r, http.MethodGet, "/orders/user/u7", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Orders []models.Order `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Orders, 1)
	assert.Equal(t, "ORD-A", body.Orders[0].ID)
}

func TestCashOrderKeepsStorefrontFields(t *testing.T) {
	r, _ := setupRouter(payments.Disabled{}, shipping.Disabled{})

	body := `{"orderId":"ORD-7","isCash":true,"items":[{"name":"Cuaderno","price":35,"quantity":1}],` +
		`"orderMetadata":{"orderId":"ORD-7","userId":"u9","deliveryMethod":"store","total":35,"notes":"sin bolsa",` +
		`"items":[{"id":101,"name":"Cuaderno","quantity":1,"images":["https://cdn.example/c.jpg"]}],` +
		`"userInfo":{"fullName":"Ana Ruiz","email":"ana@example.mx"}}}`
	w := doJSON(r, http.MethodPost, "/create-checkout-session", body, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(r, http.MethodGet, "/orders/user/u9", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Orders []map[string]any `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Orders, 1)
	order := list.Orders[0]
	assert.Equal(t, "ORD-7", order["id"])
	assert.Equal(t, "ORD-7", order["orderId"])
	assert.Equal(t, "sin bolsa", order["notes"])
	assert.Equal(t, "pending", order["status"])
	assert.Equal(t, "Ana Ruiz", order["userInfo"].(map[string]any)["fullName"])
	item := order["items"].([]any)[0].(map[string]any)
	assert.Equal(t, []any{"https://cdn.example/c.jpg"}, item["images"])
	assert.NotContains(t, order, "subtotal")
}
