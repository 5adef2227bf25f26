package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/plutov/paypal/v4"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"
	"github.com/tuanngo-dev/e-education/api/web"
	"github.com/tuanngo-dev/e-education/api/weberr"
	"github.com/tuanngo-dev/e-education/config"
	"github.com/tuanngo-dev/e-education/core/claims"
	"github.com/tuanngo-dev/e-education/random"
	"github.com/tuanngo-dev/e-education/validate"
)

const orderCodeLen = 12

func HandleListPlans(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		plans, err := ListPlans(ctx, db)
		if err != nil {
			return fmt.Errorf("listing plans: %w", err)
		}

		return web.Respond(ctx, w, plans, http.StatusOK)
	}
}

// HandleCreateOrder opens a purchase attempt: it snapshots the plan price
// into a pending order, creates the provider checkout, and hands back the
// redirect URL together with the order code the client will poll with.
func HandleCreateOrder(db *sqlx.DB, gateways map[string]Gateway) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var on OrderNew
		if err := web.Decode(w, r, &on); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(on); err != nil {
			return weberr.BadRequest(fmt.Errorf("validating data: %w", err))
		}

		provider := on.Provider
		if provider == "" {
			provider = "stripe"
		}

		gw, ok := gateways[provider]
		if !ok {
			err := fmt.Errorf("unsupported payment provider %q", provider)
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		plan, err := FetchPlan(ctx, db, on.PlanID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(fmt.Errorf("plan[%d] does not exist", on.PlanID))
			}
			return fmt.Errorf("fetching plan[%d]: %w", on.PlanID, err)
		}

		if !plan.IsActive {
			err := fmt.Errorf("plan[%d] is no longer offered", plan.ID)
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		code := random.Digits(orderCodeLen)

		chk, err := gw.CreateCheckout(ctx, code, plan)
		if err != nil {
			return fmt.Errorf("creating %s checkout: %w", provider, err)
		}

		ord := Order{
			Code:       code,
			UserID:     clm.UserID,
			PlanID:     plan.ID,
			Amount:     plan.Price,
			Currency:   plan.Currency,
			Provider:   provider,
			ProviderID: chk.ProviderID,
			Status:     Pending,
			CreatedAt:  time.Now().UTC(),
		}

		if err := Create(ctx, db, ord); err != nil {
			return fmt.Errorf("creating the order bound to payment[%s]: %w", chk.ProviderID, err)
		}

		return web.Respond(ctx, w, CheckoutResponse{PaymentURL: chk.URL, OrderCode: code}, http.StatusOK)
	}
}

// HandleVerify is the read side of the reconciliation flow. It never moves an
// order forward; it only reports the latest state the capture path produced.
func HandleVerify(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		code := web.Param(r, "order_code")
		ord, err := fetchOwned(ctx, db, code, clm.UserID)
		if err != nil {
			return err
		}

		vip, err := Entitlement(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("projecting vip status: %w", err)
		}

		verification := Verification{
			Status:       ord.Status,
			CompletedAt:  ord.CompletedAt,
			IsVip:        vip.IsVip,
			VipExpiresAt: vip.ExpiresAt,
		}

		return web.Respond(ctx, w, verification, http.StatusOK)
	}
}

// HandleVIPStatus reports the caller's entitlement. Anonymous callers get the
// non-entitled default instead of an error.
func HandleVIPStatus(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return web.Respond(ctx, w, VIPStatus{}, http.StatusOK)
		}

		vip, err := Entitlement(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("projecting vip status: %w", err)
		}

		return web.Respond(ctx, w, vip, http.StatusOK)
	}
}

func HandleHistory(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		orders, err := ListByUser(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("listing orders: %w", err)
		}

		return web.Respond(ctx, w, orders, http.StatusOK)
	}
}

// HandleCancel records that the purchaser abandoned checkout on the provider
// page. Terminal orders are left untouched; the current state is returned
// either way.
func HandleCancel(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		code := web.Param(r, "order_code")
		if _, err := fetchOwned(ctx, db, code, clm.UserID); err != nil {
			return err
		}

		if err := MarkCancelled(ctx, db, code); err != nil {
			return fmt.Errorf("cancelling order[%s]: %w", code, err)
		}

		ord, err := Fetch(ctx, db, code)
		if err != nil {
			return fmt.Errorf("fetching order[%s]: %w", code, err)
		}

		verification := Verification{Status: ord.Status, CompletedAt: ord.CompletedAt}
		return web.Respond(ctx, w, verification, http.StatusOK)
	}
}

// HandleStripeCapture applies Stripe webhook events to the order store. This
// is the only place a stripe order leaves pending.
func HandleStripeCapture(db *sqlx.DB, cfg config.Stripe) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot read the request body: %w", err))
		}

		sig := r.Header.Get("Stripe-Signature")
		if sig == "" {
			return weberr.BadRequest(errors.New("received stripe event is not signed"))
		}

		event, err := webhook.ConstructEvent(b, sig, cfg.WebhookSecret)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot construct stripe event: %w", err))
		}

		switch event.Type {
		case "checkout.session.completed", "checkout.session.expired", "checkout.session.async_payment_failed":
		default:
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		var session stripe.CheckoutSession
		if err = json.Unmarshal(event.Data.Raw, &session); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode stripe event: %w", err))
		}

		if session.Mode != stripe.CheckoutSessionModePayment {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		ord, err := FetchByProviderID(ctx, db, session.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(fmt.Errorf("no order bound to payment[%s]", session.ID))
			}
			return fmt.Errorf("fetching the order bound to payment[%s]: %w", session.ID, err)
		}

		switch event.Type {
		case "checkout.session.completed":
			err = MarkCompleted(ctx, db, ord.Code, time.Now().UTC())
		case "checkout.session.expired":
			err = MarkCancelled(ctx, db, ord.Code)
		case "checkout.session.async_payment_failed":
			err = MarkFailed(ctx, db, ord.Code)
		}
		if err != nil {
			return fmt.Errorf("the gateway reported payment[%s] but the order update failed: %w", session.ID, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// HandlePaypalCapture captures an approved PayPal order and fulfills ours.
func HandlePaypalCapture(db *sqlx.DB, pp *paypal.Client) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		code := web.Param(r, "order_code")
		ord, err := fetchOwned(ctx, db, code, clm.UserID)
		if err != nil {
			return err
		}

		resp, err := pp.CaptureOrder(ctx, ord.ProviderID, paypal.CaptureOrderRequest{})
		if err != nil {
			return fmt.Errorf("capturing paypal order[%s]: %w", ord.ProviderID, err)
		}

		if resp.Status != "COMPLETED" {
			if err := MarkFailed(ctx, db, code); err != nil {
				return fmt.Errorf("failing order[%s]: %w", code, err)
			}
			return fmt.Errorf("captured order[%s] with status[%s] different from 'COMPLETED'", ord.ProviderID, resp.Status)
		}

		if err := MarkCompleted(ctx, db, code, time.Now().UTC()); err != nil {
			return fmt.Errorf("the order was payed but its fulfillment failed: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func fetchOwned(ctx context.Context, db *sqlx.DB, code string, userID string) (Order, error) {
	if code == "" {
		return Order{}, weberr.NotFound(errors.New("missing order code"))
	}

	ord, err := Fetch(ctx, db, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, weberr.NotFound(fmt.Errorf("order[%s] does not exist", code))
		}
		return Order{}, fmt.Errorf("fetching order[%s]: %w", code, err)
	}

	// Orders are visible to their purchaser only. Report foreign orders as
	// missing rather than forbidden.
	if ord.UserID != userID {
		return Order{}, weberr.NotFound(fmt.Errorf("order[%s] does not belong to user[%s]", code, userID))
	}

	return ord, nil
}
