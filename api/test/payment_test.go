package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/plutov/paypal/v4"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"
	mock "github.com/stripe/stripe-mock/param"
	"github.com/tuanngo-dev/e-education/api/web"
	"github.com/tuanngo-dev/e-education/core/payment"
)

type mockPaypal struct {
	mu       sync.Mutex
	orders   []string
	captured []string
}

// LastOrder returns the provider id of the latest checkout.
func (m *mockPaypal) LastOrder() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.orders) == 0 {
		return ""
	}
	return m.orders[len(m.orders)-1]
}

func (m *mockPaypal) handle() http.Handler {
	token := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := map[string]any{
			"access_token": "mock-paypal-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		}
		web.Respond(context.Background(), w, tok, 200)
	})

	checkout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var pu struct {
			Units []paypal.PurchaseUnitRequest `json:"purchase_units"`
		}
		if err := json.NewDecoder(r.Body).Decode(&pu); err != nil {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		if len(pu.Units) != 1 || len(pu.Units[0].Items) != 1 {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		if pu.Units[0].Items[0].Quantity != "1" {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		if pu.Units[0].Amount.Value != pu.Units[0].Items[0].UnitAmount.Value {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		m.mu.Lock()
		id := fmt.Sprintf("PAYPAL-%d", len(m.orders)+1)
		m.orders = append(m.orders, id)
		m.mu.Unlock()

		ord := paypal.Order{
			ID:    id,
			Links: []paypal.Link{{Href: "https://paypal.test/approve/" + id, Rel: "approve"}},
		}
		web.Respond(context.Background(), w, ord, 200)
	})

	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		m.mu.Lock()
		m.captured = append(m.captured, id)
		m.mu.Unlock()

		ord := paypal.CaptureOrderResponse{ID: id, Status: "COMPLETED"}
		web.Respond(context.Background(), w, ord, 200)
	})

	r := mux.NewRouter()
	r.Handle("/v1/oauth2/token", token).Methods("POST")
	r.Handle("/v2/checkout/orders", checkout).Methods("POST")
	r.Handle("/v2/checkout/orders/{id}/capture", capture).Methods("POST")
	return r
}

type mockStripe struct {
	mu       sync.Mutex
	sessions []string
}

// LastSession returns the id of the latest checkout session.
func (m *mockStripe) LastSession() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sessions) == 0 {
		return ""
	}
	return m.sessions[len(m.sessions)-1]
}

func (m *mockStripe) handle() http.Handler {
	checkout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params, _ := mock.ParseParams(r)

		if params["mode"] != "payment" {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		lines := params["line_items"].(map[string]any)
		if len(lines) != 1 {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		for _, li := range lines {
			it := li.(map[string]any)

			if it["quantity"] != "1" {
				web.Respond(context.Background(), w, nil, 400)
				return
			}

			pd := it["price_data"].(map[string]any)
			if _, err := strconv.ParseInt(pd["unit_amount"].(string), 10, 64); err != nil {
				web.Respond(context.Background(), w, err, 400)
				return
			}
		}

		m.mu.Lock()
		id := fmt.Sprintf("cs_test_%d", len(m.sessions)+1)
		m.sessions = append(m.sessions, id)
		m.mu.Unlock()

		sess := map[string]any{"id": id, "url": "https://stripe.test/pay/" + id}
		web.Respond(context.Background(), w, sess, 201)
	})

	r := mux.NewRouter()
	r.Handle("/v1/checkout/sessions", checkout).Methods("POST")
	return r
}

type paymentTest struct {
	*TestEnv
}

func (pt *paymentTest) listPlansOK(t *testing.T) []payment.Plan {
	w, err := pt.Client().Get(pt.URL + "/payments/plans")
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't list plans: status code %s", w.Status)
	}

	var plans []payment.Plan
	if err := json.NewDecoder(w.Body).Decode(&plans); err != nil {
		t.Fatalf("cannot unmarshal plans: %v", err)
	}
	return plans
}

func (pt *paymentTest) createOrderOK(t *testing.T, planID int, provider string) payment.CheckoutResponse {
	body, err := json.Marshal(map[string]any{"planId": planID, "provider": provider})
	if err != nil {
		t.Fatal(err)
	}

	w, err := pt.Client().Post(pt.URL+"/payments/create-order", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't create %s order: status code %s", provider, w.Status)
	}

	var chk payment.CheckoutResponse
	if err := json.NewDecoder(w.Body).Decode(&chk); err != nil {
		t.Fatalf("cannot unmarshal checkout response: %v", err)
	}

	if chk.PaymentURL == "" {
		t.Fatal("checkout response has no payment url")
	}
	if len(chk.OrderCode) != 12 {
		t.Fatalf("order code %q is not 12 digits long", chk.OrderCode)
	}
	return chk
}

func (pt *paymentTest) verify(t *testing.T, code string) (payment.Verification, int) {
	w, err := pt.Client().Get(pt.URL + "/payments/verify/" + code)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		return payment.Verification{}, w.StatusCode
	}

	var v payment.Verification
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("cannot unmarshal verification: %v", err)
	}
	return v, w.StatusCode
}

func (pt *paymentTest) verifyOK(t *testing.T, code string, want payment.Status) payment.Verification {
	v, status := pt.verify(t, code)
	if status != http.StatusOK {
		t.Fatalf("can't verify order[%s]: status code %d", code, status)
	}
	if v.Status != want {
		t.Fatalf("order[%s] has status %q, want %q", code, v.Status, want)
	}
	return v
}

func (pt *paymentTest) vipStatusOK(t *testing.T) payment.VIPStatus {
	w, err := pt.Client().Get(pt.URL + "/payments/vip-status")
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't fetch vip status: status code %s", w.Status)
	}

	var vip payment.VIPStatus
	if err := json.NewDecoder(w.Body).Decode(&vip); err != nil {
		t.Fatalf("cannot unmarshal vip status: %v", err)
	}
	return vip
}

func (pt *paymentTest) historyOK(t *testing.T) []payment.Order {
	w, err := pt.Client().Get(pt.URL + "/payments/history")
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't fetch order history: status code %s", w.Status)
	}

	var orders []payment.Order
	if err := json.NewDecoder(w.Body).Decode(&orders); err != nil {
		t.Fatalf("cannot unmarshal order history: %v", err)
	}
	return orders
}

// stripeEvent posts a signed Stripe webhook event for the given checkout
// session and returns the response status code.
func (pt *paymentTest) stripeEvent(t *testing.T, eventType string, sessionID string) int {
	obj := map[string]any{
		"id":   sessionID,
		"mode": stripe.CheckoutSessionModePayment,
	}

	raw, err := json.Marshal(obj)
	if err != nil {
		t.Fatal(err)
	}

	evt := stripe.Event{
		APIVersion: "2022-11-15",
		Type:       eventType,
		Data: &stripe.EventData{
			Raw: json.RawMessage(raw),
		},
	}

	b, err := json.Marshal(evt)
	if err != nil {
		t.Fatal(err)
	}

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   b,
		Secret:    WebhookSecret,
		Timestamp: time.Now(),
	})

	r, err := http.NewRequest(http.MethodPost, pt.URL+"/payments/stripe/capture", bytes.NewBuffer(b))
	if err != nil {
		t.Fatal(err)
	}
	r.Header.Set("Stripe-Signature", signed.Header)

	w, err := pt.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	return w.StatusCode
}
