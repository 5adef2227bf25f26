package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

func ListPlans(ctx context.Context, db *sqlx.DB) ([]Plan, error) {
	const q = `SELECT plan_id, name, days, price, currency, is_active FROM plans WHERE is_active ORDER BY days`

	plans := []Plan{}
	if err := db.SelectContext(ctx, &plans, q); err != nil {
		return nil, fmt.Errorf("selecting plans: %w", err)
	}
	return plans, nil
}

func FetchPlan(ctx context.Context, db *sqlx.DB, id int) (Plan, error) {
	const q = `SELECT plan_id, name, days, price, currency, is_active FROM plans WHERE plan_id = $1`

	var plan Plan
	if err := db.GetContext(ctx, &plan, q, id); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

func Create(ctx context.Context, db sqlx.ExtContext, ord Order) error {
	const q = `
	INSERT INTO orders (order_code, user_id, plan_id, amount, currency, provider, provider_id, status, created_at)
	VALUES (:order_code, :user_id, :plan_id, :amount, :currency, :provider, :provider_id, :status, :created_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, ord); err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}
	return nil
}

func Fetch(ctx context.Context, db *sqlx.DB, code string) (Order, error) {
	const q = `
	SELECT order_code, user_id, plan_id, amount, currency, provider, provider_id, status, created_at, completed_at
	FROM orders WHERE order_code = $1`

	var ord Order
	if err := db.GetContext(ctx, &ord, q, code); err != nil {
		return Order{}, err
	}
	return ord, nil
}

func FetchByProviderID(ctx context.Context, db *sqlx.DB, providerID string) (Order, error) {
	const q = `
	SELECT order_code, user_id, plan_id, amount, currency, provider, provider_id, status, created_at, completed_at
	FROM orders WHERE provider_id = $1`

	var ord Order
	if err := db.GetContext(ctx, &ord, q, providerID); err != nil {
		return Order{}, err
	}
	return ord, nil
}

func ListByUser(ctx context.Context, db *sqlx.DB, userID string) ([]Order, error) {
	const q = `
	SELECT order_code, user_id, plan_id, amount, currency, provider, provider_id, status, created_at, completed_at
	FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	orders := []Order{}
	if err := db.SelectContext(ctx, &orders, q, userID); err != nil {
		return nil, fmt.Errorf("selecting orders of user[%s]: %w", userID, err)
	}
	return orders, nil
}

// transition moves an order out of pending. The guard on the current status
// makes transitions forward-only: a terminal order is never rewritten, and a
// duplicate webhook delivery affects zero rows.
func transition(ctx context.Context, db sqlx.ExtContext, code string, to Status, completedAt *time.Time) (bool, error) {
	const q = `
	UPDATE orders SET status = $2, completed_at = $3
	WHERE order_code = $1 AND status = 'pending'`

	res, err := db.ExecContext(ctx, q, code, to, completedAt)
	if err != nil {
		return false, fmt.Errorf("updating order[%s] to %s: %w", code, to, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading affected rows: %w", err)
	}
	return n > 0, nil
}

// MarkCompleted fulfills a pending order, stamping completed_at exactly once.
// It is idempotent: completing an already completed order is a no-op, while
// completing a cancelled or failed order is an error.
func MarkCompleted(ctx context.Context, db *sqlx.DB, code string, now time.Time) error {
	moved, err := transition(ctx, db, code, Completed, &now)
	if err != nil {
		return err
	}
	if moved {
		return nil
	}

	ord, err := Fetch(ctx, db, code)
	if err != nil {
		return fmt.Errorf("fetching order[%s] after no-op completion: %w", code, err)
	}
	if ord.Status == Completed {
		return nil
	}
	return fmt.Errorf("order[%s] is %s and cannot complete", code, ord.Status)
}

func MarkCancelled(ctx context.Context, db *sqlx.DB, code string) error {
	_, err := transition(ctx, db, code, Cancelled, nil)
	return err
}

func MarkFailed(ctx context.Context, db *sqlx.DB, code string) error {
	_, err := transition(ctx, db, code, Failed, nil)
	return err
}

type completedOrder struct {
	Order
	Days int `db:"days"`
}

func fetchLatestCompleted(ctx context.Context, db *sqlx.DB, userID string) (Order, int, error) {
	const q = `
	SELECT o.order_code, o.user_id, o.plan_id, o.amount, o.currency, o.provider, o.provider_id,
	       o.status, o.created_at, o.completed_at, p.days
	FROM orders o JOIN plans p ON p.plan_id = o.plan_id
	WHERE o.user_id = $1 AND o.status = 'completed'
	ORDER BY o.completed_at DESC LIMIT 1`

	var co completedOrder
	if err := db.GetContext(ctx, &co, q, userID); err != nil {
		return Order{}, 0, err
	}
	return co.Order, co.Days, nil
}
