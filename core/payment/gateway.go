package payment

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/plutov/paypal/v4"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/tuanngo-dev/e-education/config"
)

// Checkout is the provider-side session backing an order: where to send the
// purchaser, and the provider's own id for the later capture.
type Checkout struct {
	ProviderID string
	URL        string
}

// Gateway creates a redirect checkout for a plan purchase. Completion arrives
// later and out-of-band, through the provider's capture path.
type Gateway interface {
	CreateCheckout(ctx context.Context, orderCode string, plan Plan) (Checkout, error)
}

// Currencies without a minor unit. Their amounts go to the providers as-is,
// everything else in cents.
var zeroDecimal = map[string]bool{
	"vnd": true,
	"jpy": true,
	"krw": true,
}

func minorUnits(plan Plan) int64 {
	if zeroDecimal[plan.Currency] {
		return plan.Price
	}
	return plan.Price * 100
}

// withOrderCode appends the order code to a return URL so the landing page
// can hand it to the verification loop.
func withOrderCode(base string, code string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("orderCode", code)
	u.RawQuery = q.Encode()
	return u.String()
}

type StripeGateway struct {
	API *stripecl.API
	Cfg config.Stripe
}

func (g *StripeGateway) CreateCheckout(ctx context.Context, orderCode string, plan Plan) (Checkout, error) {
	params := &stripe.CheckoutSessionParams{
		SuccessURL:        stripe.String(withOrderCode(g.Cfg.SuccessURL, orderCode)),
		CancelURL:         stripe.String(withOrderCode(g.Cfg.CancelURL, orderCode)),
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(orderCode),

		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),

			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(plan.Currency),
				UnitAmount: stripe.Int64(minorUnits(plan)),

				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(plan.Name),
					Description: stripe.String(fmt.Sprintf("VIP access for %d days", plan.Days)),
				},
			},
		}},
	}
	params.Context = ctx

	s, err := g.API.CheckoutSessions.New(params)
	if err != nil {
		return Checkout{}, fmt.Errorf("creating stripe session: %w", err)
	}

	return Checkout{ProviderID: s.ID, URL: s.URL}, nil
}

type PaypalGateway struct {
	Client *paypal.Client
	Cfg    config.Paypal
}

func (g *PaypalGateway) CreateCheckout(ctx context.Context, orderCode string, plan Plan) (Checkout, error) {
	units := []paypal.PurchaseUnitRequest{{
		ReferenceID: orderCode,

		Items: []paypal.Item{{
			Quantity:    "1",
			Name:        plan.Name,
			Description: fmt.Sprintf("VIP access for %d days", plan.Days),

			UnitAmount: &paypal.Money{
				Currency: plan.Currency,
				Value:    strconv.FormatInt(plan.Price, 10),
			},
		}},

		Amount: &paypal.PurchaseUnitAmount{
			Currency: plan.Currency,
			Value:    strconv.FormatInt(plan.Price, 10),

			Breakdown: &paypal.PurchaseUnitAmountBreakdown{ItemTotal: &paypal.Money{
				Currency: plan.Currency,
				Value:    strconv.FormatInt(plan.Price, 10),
			}},
		},
	}}

	app := &paypal.ApplicationContext{
		ReturnURL: withOrderCode(g.Cfg.ReturnURL, orderCode),
		CancelURL: withOrderCode(g.Cfg.CancelURL, orderCode),
	}

	ord, err := g.Client.CreateOrder(ctx, paypal.OrderIntentCapture, units, nil, app)
	if err != nil {
		return Checkout{}, fmt.Errorf("creating paypal order: %w", err)
	}

	for _, link := range ord.Links {
		if link.Rel == "approve" {
			return Checkout{ProviderID: ord.ID, URL: link.Href}, nil
		}
	}
	return Checkout{}, errors.New("paypal order has no approval link")
}
