package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xenking/storefront/db"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/payment"
	"github.com/xenking/storefront/internal/domain/pricing"
	"github.com/xenking/storefront/internal/seed"
	"github.com/xenking/storefront/internal/storage/memory"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

const (
	arohaKey = "demo-aroha-key" // c1001, balance -20.00, 12 km
	jamesKey = "demo-james-key" // c1002, balance -95.50, 35 km
	staffKey = "demo-staff-key"
)

type testEnv struct {
	t     *testing.T
	mux   *http.ServeMux
	store *memory.Store
	carts *cart.Store
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	ctx := context.Background()
	lg := zaptest.NewLogger(t)

	store := memory.New()
	pepper := []byte("test-pepper")
	accounts, err := seed.Parse(db.Accounts)
	require.NoError(t, err)
	require.NoError(t, seed.Apply(ctx, store, accounts, pepper, seed.Defaults{
		CorporateRate: decimal.RequireFromString("0.10"),
		MaxOwing:      decimal.RequireFromString("-100"),
	}))

	cat, err := catalog.Load(db.Vegetables, db.Boxes)
	require.NoError(t, err)

	carts := cart.NewStore()
	calc := pricing.NewCalculator(pricing.DefaultRules())
	payments := payment.NewProcessor(store, payment.DefaultMinPayment, lg)
	svc, err := checkout.NewService(store, calc, payments, lg,
		checkout.WithObserver(checkout.ObserverFuncs{
			CartCleared: func(_ context.Context, id string) { carts.OnCartCleared(id) },
		}),
	)
	require.NoError(t, err)

	h := New(cfg, Deps{
		Catalog:   cat,
		Carts:     carts,
		Customers: store,
		Pricing:   calc,
		Payments:  payments,
		Records:   store,
		Checkout:  svc,
		Orders:    order.NewService(store.Orders(), lg),
		Auth:      auth.NewAuthenticator(store, pepper),
	})
	mux := http.NewServeMux()
	h.Register(mux)

	return &testEnv{t: t, mux: mux, store: store, carts: carts}
}

type response struct {
	Code int
	Body map[string]any
	List []any
	Raw  string
}

func (e *testEnv) do(method, path, key, body string) response {
	e.t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if key != "" {
		r.Header.Set(APIKeyHeader, key)
	}
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, r)

	resp := response{Code: w.Code, Raw: w.Body.String()}
	if w.Body.Len() == 0 {
		return resp
	}
	dec := json.NewDecoder(bytes.NewReader(w.Body.Bytes()))
	dec.UseNumber()
	var v any
	require.NoError(e.t, dec.Decode(&v), w.Body.String())
	switch v := v.(type) {
	case map[string]any:
		resp.Body = v
	case []any:
		resp.List = v
	}
	return resp
}

func (e *testEnv) addItem(key, body string) {
	e.t.Helper()
	resp := e.do(http.MethodPost, "/api/cart/items", key, body)
	require.Equal(e.t, http.StatusCreated, resp.Code, resp.Raw)
}

func (e *testEnv) begin(key string, delivery bool) string {
	e.t.Helper()
	body := `{"delivery":false}`
	if delivery {
		body = `{"delivery":true}`
	}
	resp := e.do(http.MethodPost, "/api/checkout", key, body)
	require.Equal(e.t, http.StatusCreated, resp.Code, resp.Raw)
	return resp.Body["id"].(string)
}

func num(v any) string {
	return v.(json.Number).String()
}

const (
	accountBody = `{"method":"account"}`
	debitBody   = `{"method":"debit","bank_name":"Kiwibank","card_number":"4000123412341234"}`
)

func TestAuth(t *testing.T) {
	env := newTestEnv(t, Config{})

	for _, tt := range []struct {
		name string
		path string
		key  string
		code int
	}{
		{name: "MissingKey", path: "/api/cart", code: http.StatusUnauthorized},
		{name: "UnknownKey", path: "/api/cart", key: "nope", code: http.StatusUnauthorized},
		{name: "StaffOnCustomerRoute", path: "/api/cart", key: staffKey, code: http.StatusForbidden},
		{name: "CustomerOnStaffRoute", path: "/api/staff/orders", key: arohaKey, code: http.StatusForbidden},
		{name: "CatalogAnyRole", path: "/api/catalog", key: staffKey, code: http.StatusOK},
		{name: "Customer", path: "/api/cart", key: arohaKey, code: http.StatusOK},
	} {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(http.MethodGet, tt.path, tt.key, "")
			assert.Equal(t, tt.code, resp.Code, resp.Raw)
			if tt.code >= 400 {
				assert.Equal(t, strconv.Itoa(tt.code), num(resp.Body["code"]))
			}
		})
	}
}

func TestCatalog(t *testing.T) {
	env := newTestEnv(t, Config{})
	resp := env.do(http.MethodGet, "/api/catalog", arohaKey, "")
	require.Equal(t, http.StatusOK, resp.Code)

	veg := resp.Body["vegetables"].(map[string]any)
	weight := veg["weight"].([]any)
	require.NotEmpty(t, weight)
	carrot := weight[0].(map[string]any)
	assert.Equal(t, "Carrot", carrot["name"])
	assert.Equal(t, "3.50", num(carrot["price"]))
	assert.Len(t, veg["pack"], 4)

	boxes := resp.Body["boxes"].([]any)
	require.Len(t, boxes, 3)
	small := boxes[0].(map[string]any)
	assert.Equal(t, "Small Box", small["name"])
	assert.Len(t, small["contents"], 3)
}

func TestCart(t *testing.T) {
	env := newTestEnv(t, Config{})

	resp := env.do(http.MethodPost, "/api/cart/items", arohaKey, `{"kind":"weight","name":"carrot","quantity":"1.5"}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Raw)
	assert.Equal(t, "Carrot", resp.Body["name"])
	assert.Equal(t, "5.25", num(resp.Body["subtotal"]))

	env.addItem(arohaKey, `{"kind":"box","name":"small","quantity":1,"contents":["Kumara","Avocado","Spinach"]}`)

	resp = env.do(http.MethodGet, "/api/cart?delivery=true", arohaKey, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Raw)
	assert.Len(t, resp.Body["items"], 2)
	sum := resp.Body["summary"].(map[string]any)
	assert.Equal(t, "20.25", num(sum["subtotal"]))
	assert.Equal(t, "0.00", num(sum["discount"]))
	assert.Equal(t, "10.00", num(sum["delivery_fee"]))
	assert.Equal(t, "30.25", num(sum["total"]))

	// Carts are per customer.
	resp = env.do(http.MethodGet, "/api/cart", jamesKey, "")
	assert.Empty(t, resp.Body["items"])
	assert.NotContains(t, resp.Body, "summary")

	resp = env.do(http.MethodDelete, "/api/cart", arohaKey, "")
	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Zero(t, env.carts.For("c1001").Len())
}

func TestCart_Rejections(t *testing.T) {
	env := newTestEnv(t, Config{})

	for _, tt := range []struct {
		name  string
		body  string
		code  int
		field string
	}{
		{name: "FractionalUnit", body: `{"kind":"unit","name":"Cabbage","quantity":1.5}`, code: http.StatusUnprocessableEntity, field: "quantity"},
		{name: "ZeroQuantity", body: `{"kind":"weight","name":"Carrot","quantity":0}`, code: http.StatusUnprocessableEntity, field: "quantity"},
		{name: "WrongKind", body: `{"kind":"pack","name":"Carrot","quantity":1}`, code: http.StatusUnprocessableEntity, field: "name"},
		{name: "UnknownKind", body: `{"kind":"crate","name":"Carrot","quantity":1}`, code: http.StatusUnprocessableEntity, field: "kind"},
		{name: "BoxSlots", body: `{"kind":"box","name":"small","quantity":1,"contents":["Carrot"]}`, code: http.StatusUnprocessableEntity, field: "contents"},
		{name: "Malformed", body: `{"kind":`, code: http.StatusBadRequest},
		{name: "BadQuantity", body: `{"kind":"weight","name":"Carrot","quantity":"lots"}`, code: http.StatusBadRequest, field: "quantity"},
		{name: "HugeExponent", body: `{"kind":"unit","name":"Cabbage","quantity":1e30000000}`, code: http.StatusBadRequest, field: "quantity"},
		{name: "HugeExponentString", body: `{"kind":"unit","name":"Cabbage","quantity":"1E30000000"}`, code: http.StatusBadRequest, field: "quantity"},
		{name: "LongNumber", body: `{"kind":"weight","name":"Carrot","quantity":0.000000000000000000000000000000001}`, code: http.StatusBadRequest, field: "quantity"},
		{name: "TooMany", body: `{"kind":"unit","name":"Cabbage","quantity":10000}`, code: http.StatusUnprocessableEntity, field: "quantity"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(http.MethodPost, "/api/cart/items", arohaKey, tt.body)
			assert.Equal(t, tt.code, resp.Code, resp.Raw)
			if tt.field != "" {
				assert.Equal(t, tt.field, resp.Body["field"])
			}
		})
	}
	assert.Zero(t, env.carts.For("c1001").Len())
}

func TestCheckout_Account(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.addItem(arohaKey, `{"kind":"weight","name":"Carrot","quantity":2}`)
	env.addItem(arohaKey, `{"kind":"box","name":"small","quantity":1}`)

	id := env.begin(arohaKey, true)

	resp := env.do(http.MethodGet, "/api/checkout/"+id, arohaKey, "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "idle", resp.Body["state"])
	assert.Equal(t, "32.00", num(resp.Body["summary"].(map[string]any)["total"]))

	resp = env.do(http.MethodPost, "/api/checkout/"+id+"/confirm", arohaKey, accountBody)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Raw)
	number := resp.Body["number"].(string)
	assert.True(t, strings.HasPrefix(number, "ORD"), number)
	assert.Equal(t, "delivery", resp.Body["delivery_method"])
	assert.Equal(t, "account", resp.Body["payment_method"])
	assert.Equal(t, "pending", resp.Body["status"])

	// The cart is cleared and the balance charged.
	assert.Zero(t, env.carts.For("c1001").Len())
	resp = env.do(http.MethodGet, "/api/account", arohaKey, "")
	require.Equal(t, http.StatusOK, resp.Code)
	cust := resp.Body["customer"].(map[string]any)
	assert.Equal(t, "-52.00", num(cust["balance"]))
	assert.Equal(t, "52.00", num(cust["owing"]))
	assert.Equal(t, "-100.00", num(cust["max_owing"]))
	payments := resp.Body["payments"].([]any)
	require.Len(t, payments, 1)
	assert.Equal(t, number, payments[0].(map[string]any)["order_number"])

	resp = env.do(http.MethodGet, "/api/checkout/"+id, arohaKey, "")
	assert.Equal(t, "committed", resp.Body["state"])
	assert.Equal(t, number, resp.Body["order_number"])

	resp = env.do(http.MethodPost, "/api/checkout/"+id+"/confirm", arohaKey, accountBody)
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = env.do(http.MethodGet, "/api/orders", arohaKey, "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, resp.List, 1)
	resp = env.do(http.MethodGet, "/api/orders", jamesKey, "")
	assert.Empty(t, resp.List)
}

func TestCheckout_CreditLimit(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.addItem(jamesKey, `{"kind":"weight","name":"Carrot","quantity":2}`)
	id := env.begin(jamesKey, false)

	resp := env.do(http.MethodPost, "/api/checkout/"+id+"/confirm", jamesKey, accountBody)
	require.Equal(t, http.StatusPaymentRequired, resp.Code, resp.Raw)
	assert.Equal(t, "-95.50", num(resp.Body["current_balance"]))
	assert.Equal(t, "7.00", num(resp.Body["order_amount"]))
	assert.Equal(t, "-102.50", num(resp.Body["would_be_balance"]))
	assert.Equal(t, "-100.00", num(resp.Body["max_owing"]))

	// Nothing changed; the cart is intact and the attempt can be retried
	// with a card.
	assert.Equal(t, 1, env.carts.For("c1002").Len())
	resp = env.do(http.MethodGet, "/api/checkout/"+id, jamesKey, "")
	assert.Equal(t, "rejected", resp.Body["state"])

	resp = env.do(http.MethodPost, "/api/checkout/"+id+"/confirm", jamesKey, debitBody)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Raw)
	assert.Equal(t, "debit", resp.Body["payment_method"])

	cust, err := env.store.Get(context.Background(), "c1002")
	require.NoError(t, err)
	assert.Equal(t, "-95.50", cust.Balance.StringFixed(2))
}

func TestCheckout_Validation(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.addItem(arohaKey, `{"kind":"unit","name":"Cabbage","quantity":1}`)
	id := env.begin(arohaKey, false)

	resp := env.do(http.MethodPost, "/api/checkout/"+id+"/confirm", arohaKey,
		`{"method":"credit","card_type":"Visa","card_number":"4111","expiry_month":12,"expiry_year":2030,"cvv":"123","holder_name":"A Ngata"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, "card_number", resp.Body["field"])

	resp = env.do(http.MethodPost, "/api/checkout/"+id+"/confirm", arohaKey, `{"method":"cash"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, "method", resp.Body["field"])

	resp = env.do(http.MethodPost, "/api/checkout/"+id+"/confirm", arohaKey,
		`{"method":"credit","card_type":"Visa","card_number":"4111111111111111","expiry_month":12,"expiry_year":2030,"cvv":"123","holder_name":"A Ngata"}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Raw)
	assert.Equal(t, "credit", resp.Body["payment_method"])
}

func TestCheckout_BeginRejections(t *testing.T) {
	env := newTestEnv(t, Config{})

	resp := env.do(http.MethodPost, "/api/checkout", arohaKey, "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, "cart is empty", resp.Body["message"])

	env.addItem(jamesKey, `{"kind":"unit","name":"Cabbage","quantity":1}`)
	resp = env.do(http.MethodPost, "/api/checkout", jamesKey, `{"delivery":true}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, "delivery", resp.Body["field"])
}

func TestCheckout_UnknownAndForeign(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.addItem(arohaKey, `{"kind":"unit","name":"Cabbage","quantity":1}`)
	id := env.begin(arohaKey, false)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/checkout/not-a-uuid", arohaKey, "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/checkout/"+id, jamesKey, "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPost, "/api/checkout/"+id+"/confirm", jamesKey, accountBody).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, "/api/checkout/"+id, jamesKey, "").Code)
}

func TestCheckout_Cancel(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.addItem(arohaKey, `{"kind":"unit","name":"Cabbage","quantity":1}`)
	id := env.begin(arohaKey, false)

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/api/checkout/"+id, arohaKey, "").Code)
	assert.Equal(t, http.StatusConflict, env.do(http.MethodDelete, "/api/checkout/"+id, arohaKey, "").Code)
	assert.Equal(t, http.StatusConflict, env.do(http.MethodPost, "/api/checkout/"+id+"/confirm", arohaKey, accountBody).Code)
	assert.Equal(t, 1, env.carts.For("c1001").Len())
}

func TestBalancePayment(t *testing.T) {
	env := newTestEnv(t, Config{})

	resp := env.do(http.MethodPost, "/api/account/payments", arohaKey, `{"amount":0.50,"method":"debit","bank_name":"ASB","card_number":"4000123412341234"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, "amount", resp.Body["field"])

	resp = env.do(http.MethodPost, "/api/account/payments", arohaKey, `{"amount":"5","method":"account"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, "method", resp.Body["field"])

	resp = env.do(http.MethodPost, "/api/account/payments", arohaKey, `{"method":"debit"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	for _, amount := range []string{`"lots"`, `1e30000000`, `"12.345"`, `-5`} {
		resp = env.do(http.MethodPost, "/api/account/payments", arohaKey, `{"amount":`+amount+`,"method":"debit","bank_name":"ASB","card_number":"4000123412341234"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code, amount)
		assert.Equal(t, "amount", resp.Body["field"], amount)
	}

	resp = env.do(http.MethodPost, "/api/account/payments", arohaKey, `{"amount":50,"method":"debit","bank_name":"ASB","card_number":"4000123412341234"}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Raw)
	assert.Equal(t, "50.00", num(resp.Body["requested"]))
	assert.Equal(t, "20.00", num(resp.Body["applied"]))
	assert.Equal(t, true, resp.Body["clamped"])
	assert.Equal(t, "0.00", num(resp.Body["balance"]))
	pay := resp.Body["payment"].(map[string]any)
	assert.Equal(t, "balance", pay["purpose"])
	assert.Equal(t, "1234", pay["card_last4"])
	assert.NotContains(t, pay, "card_number")

	resp = env.do(http.MethodPost, "/api/account/payments", arohaKey, `{"amount":5,"method":"debit","bank_name":"ASB","card_number":"4000123412341234"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, "account balance has nothing owing", resp.Body["message"])
}

func TestStaff(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.addItem(arohaKey, `{"kind":"weight","name":"Carrot","quantity":2}`)
	env.addItem(arohaKey, `{"kind":"box","name":"small","quantity":2}`)
	id := env.begin(arohaKey, false)
	resp := env.do(http.MethodPost, "/api/checkout/"+id+"/confirm", arohaKey, debitBody)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Raw)
	number := resp.Body["number"].(string)

	resp = env.do(http.MethodGet, "/api/staff/orders?status=pending", staffKey, "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, resp.List, 1)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/staff/orders?status=lost", staffKey, "").Code)

	resp = env.do(http.MethodPost, "/api/staff/orders/"+number+"/fulfill", staffKey, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Raw)
	assert.Equal(t, "fulfilled", resp.Body["status"])
	assert.Equal(t, http.StatusConflict, env.do(http.MethodPost, "/api/staff/orders/"+number+"/fulfill", staffKey, "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPost, "/api/staff/orders/ORD1/fulfill", staffKey, "").Code)

	resp = env.do(http.MethodGet, "/api/staff/orders?status=pending", staffKey, "")
	assert.Empty(t, resp.List)

	resp = env.do(http.MethodGet, "/api/staff/customers", staffKey, "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, resp.List, 4)

	today := time.Now().Format(time.DateOnly)
	resp = env.do(http.MethodGet, "/api/staff/reports/sales?from="+today+"&to="+today, staffKey, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Raw)
	assert.Equal(t, "37.00", num(resp.Body["total_sales"]))
	assert.Equal(t, "1", num(resp.Body["order_count"]))

	resp = env.do(http.MethodGet, "/api/staff/reports/sales?from=2026-02-01&to=2026-01-01", staffKey, "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/staff/reports/sales?from=yesterday", staffKey, "").Code)

	resp = env.do(http.MethodGet, "/api/staff/reports/popular", staffKey, "")
	require.Equal(t, http.StatusOK, resp.Code)
	veg := resp.Body["vegetables"].([]any)
	require.NotEmpty(t, veg)
	top := veg[0].(map[string]any)
	// 2 kg loose plus one per small box.
	assert.Equal(t, "Carrot", top["name"])
	assert.Equal(t, "4", num(top["quantity"]))
	boxes := resp.Body["boxes"].([]any)
	require.Len(t, boxes, 1)
	assert.Equal(t, "Small Box", boxes[0].(map[string]any)["name"])
}

func TestPaymentRateLimit(t *testing.T) {
	limiter := httpmiddleware.NewLimiter(httpmiddleware.RateLimitConfig{
		Rate:    0.001,
		Burst:   1,
		KeyFunc: RateLimitKey,
	})
	env := newTestEnv(t, Config{PaymentLimit: limiter.Middleware()})

	body := `{"amount":5,"method":"debit","bank_name":"ASB","card_number":"4000123412341234"}`
	assert.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/account/payments", arohaKey, body).Code)
	resp := env.do(http.MethodPost, "/api/account/payments", arohaKey, body)
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	// Buckets are per principal.
	assert.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/account/payments", jamesKey, body).Code)
	// Non-payment routes are not limited.
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/account", arohaKey, "").Code)
}
