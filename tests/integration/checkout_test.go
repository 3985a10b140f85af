//go:build integration

package integration

import (
	"net/http"
	"strings"
	"testing"
)

func addItem(t *testing.T, apiKey string, item map[string]any) {
	t.Helper()
	resp := do(t, http.MethodPost, "/api/cart/items", apiKey, item)
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusCreated)
}

func beginCheckout(t *testing.T, apiKey string, delivery bool) transactionResponse {
	t.Helper()
	resp := do(t, http.MethodPost, "/api/checkout", apiKey, map[string]any{"delivery": delivery})
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusCreated)
	return decodeJSON[transactionResponse](t, resp)
}

func TestCheckout_CorporateAccountDelivery(t *testing.T) {
	addItem(t, meiKey, map[string]any{"kind": "weight", "name": "Carrot", "quantity": 2})

	tx := beginCheckout(t, meiKey, true)
	if tx.State != "idle" {
		t.Fatalf("state: got %q, want idle", tx.State)
	}
	if got := tx.Summary; got.Subtotal != "7.00" || got.Discount != "0.70" || got.DeliveryFee != "10.00" || got.Total != "16.30" {
		t.Fatalf("unexpected summary: %+v", got)
	}

	resp := do(t, http.MethodPost, "/api/checkout/"+tx.ID+"/confirm", meiKey, map[string]any{"method": "account"})
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusCreated)

	order := decodeJSON[orderResponse](t, resp)
	if !strings.HasPrefix(order.Number, "ORD") {
		t.Errorf("order number %q", order.Number)
	}
	if order.Status != "pending" || order.PaymentMethod != "account" || order.Summary.Total != "16.30" {
		t.Errorf("unexpected order: %+v", order)
	}

	acct := do(t, http.MethodGet, "/api/account", meiKey, nil)
	defer acct.Body.Close()
	expectStatus(t, acct, http.StatusOK)
	if got := decodeJSON[accountResponse](t, acct).Customer.Balance; got != "-16.30" {
		t.Errorf("balance: got %s, want -16.30", got)
	}

	again := do(t, http.MethodPost, "/api/checkout/"+tx.ID+"/confirm", meiKey, map[string]any{"method": "account"})
	defer again.Body.Close()
	expectStatus(t, again, http.StatusConflict)

	cart := do(t, http.MethodGet, "/api/cart", meiKey, nil)
	defer cart.Body.Close()
	expectStatus(t, cart, http.StatusOK)
	if items := decodeJSON[transactionResponse](t, cart).Items; len(items) != 0 {
		t.Errorf("cart not cleared: %+v", items)
	}

	fulfil := do(t, http.MethodPost, "/api/staff/orders/"+order.Number+"/fulfill", staffKey, nil)
	defer fulfil.Body.Close()
	expectStatus(t, fulfil, http.StatusOK)
	if got := decodeJSON[orderResponse](t, fulfil).Status; got != "fulfilled" {
		t.Errorf("status after fulfil: got %q", got)
	}
}

func TestCheckout_CreditLimit(t *testing.T) {
	addItem(t, jamesKey, map[string]any{"kind": "weight", "name": "Carrot", "quantity": 2})
	tx := beginCheckout(t, jamesKey, false)

	resp := do(t, http.MethodPost, "/api/checkout/"+tx.ID+"/confirm", jamesKey, map[string]any{"method": "account"})
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusPaymentRequired)

	body := decodeJSON[errorResponse](t, resp)
	if body.CurrentBalance != "-95.50" || body.OrderAmount != "7.00" || body.WouldBe != "-102.50" || body.MaxOwing != "-100.00" {
		t.Errorf("unexpected credit limit body: %+v", body)
	}

	cancel := do(t, http.MethodDelete, "/api/checkout/"+tx.ID, jamesKey, nil)
	defer cancel.Body.Close()
	expectStatus(t, cancel, http.StatusNoContent)
}

func TestCheckout_Rejections(t *testing.T) {
	resp := do(t, http.MethodPost, "/api/checkout", arohaKey, map[string]any{"delivery": false})
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusUnprocessableEntity)
	if got := decodeJSON[errorResponse](t, resp).Message; got != "cart is empty" {
		t.Errorf("message: got %q", got)
	}

	addItem(t, arohaKey, map[string]any{"kind": "unit", "name": "Cabbage", "quantity": 1})
	tx := beginCheckout(t, arohaKey, false)

	bad := do(t, http.MethodPost, "/api/checkout/"+tx.ID+"/confirm", arohaKey, map[string]any{
		"method":      "debit",
		"bank_name":   "ASB",
		"card_number": "1234",
	})
	defer bad.Body.Close()
	expectStatus(t, bad, http.StatusUnprocessableEntity)
	if got := decodeJSON[errorResponse](t, bad).Field; got != "card_number" {
		t.Errorf("field: got %q", got)
	}

	foreign := do(t, http.MethodGet, "/api/checkout/"+tx.ID, jamesKey, nil)
	defer foreign.Body.Close()
	expectStatus(t, foreign, http.StatusNotFound)

	cancel := do(t, http.MethodDelete, "/api/checkout/"+tx.ID, arohaKey, nil)
	defer cancel.Body.Close()
	expectStatus(t, cancel, http.StatusNoContent)

	cleared := do(t, http.MethodDelete, "/api/cart", arohaKey, nil)
	defer cleared.Body.Close()
	expectStatus(t, cleared, http.StatusNoContent)
}
