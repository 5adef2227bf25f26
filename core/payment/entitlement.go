package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Project derives the VIP status granted by a completed order: plan duration
// applied to the completion time. Orders that never completed grant nothing.
func Project(ord Order, planDays int, now time.Time) VIPStatus {
	if ord.Status != Completed || ord.CompletedAt == nil {
		return VIPStatus{}
	}

	expires := ord.CompletedAt.Add(time.Duration(planDays) * 24 * time.Hour)
	if !expires.After(now) {
		return VIPStatus{}
	}

	days := int(expires.Sub(now).Hours() / 24)
	if days < 0 {
		days = 0
	}

	return VIPStatus{IsVip: true, ExpiresAt: &expires, DaysRemaining: &days}
}

// Entitlement recomputes the purchaser's VIP status from the most recent
// completed order. It is a pure read and safe to call at any time.
func Entitlement(ctx context.Context, db *sqlx.DB, userID string) (VIPStatus, error) {
	ord, days, err := fetchLatestCompleted(ctx, db, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return VIPStatus{}, nil
		}
		return VIPStatus{}, fmt.Errorf("fetching latest completed order: %w", err)
	}

	return Project(ord, days, time.Now().UTC()), nil
}
