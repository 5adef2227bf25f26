// Package reconcile turns the eventually-consistent payment confirmation into
// a bounded, synchronous answer. A purchase completes out-of-band (the
// gateway calls the backend, not us), so after the purchaser lands back on
// the site the only way to learn the outcome is to poll the verification
// endpoint. The loop here is the single place that polling logic lives.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tuanngo-dev/e-education/client"
	"github.com/tuanngo-dev/e-education/core/payment"
)

type State string

const (
	Verifying State = "verifying"
	Succeeded State = "succeeded"
	Failed    State = "failed"
)

var (
	// ErrMissingOrderCode means the purchaser landed on the return page
	// without an order reference; there is nothing to verify.
	ErrMissingOrderCode = errors.New("missing order code")

	// ErrExhausted means the order was still pending after the full attempt
	// budget. The purchase is abandoned, not left verifying forever.
	ErrExhausted = errors.New("payment verification did not conclude")
)

const (
	DefaultInterval    = 2 * time.Second
	DefaultMaxAttempts = 5
)

// Verifier is the read-only status query the loop drives. *client.Client
// satisfies it.
type Verifier interface {
	VerifyPayment(ctx context.Context, orderCode string) (payment.Verification, error)
}

// Result is the terminal outcome of one reconciliation run. On Succeeded the
// Verification carries the entitlement snapshot observed with the completed
// order. Attempts counts every query issued.
type Result struct {
	State        State
	Verification payment.Verification
	Attempts     int
	Err          error
}

type Loop struct {
	verifier    Verifier
	interval    time.Duration
	maxAttempts int
}

type Option func(*Loop)

func WithInterval(d time.Duration) Option {
	return func(l *Loop) { l.interval = d }
}

func WithMaxAttempts(n int) Option {
	return func(l *Loop) { l.maxAttempts = n }
}

func New(v Verifier, opts ...Option) *Loop {
	l := &Loop{
		verifier:    v,
		interval:    DefaultInterval,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run drives the verification state machine to a terminal state and blocks
// until it gets there. Queries are strictly sequential: one in flight at a
// time, a fixed interval apart, at most maxAttempts in total with the first
// issued immediately. Cancelling ctx stops the loop between queries; the
// single pending timer is always released on return.
//
// Every failure mode collapses into State == Failed with the cause in Err;
// no error escapes the loop.
func (l *Loop) Run(ctx context.Context, orderCode string) Result {
	if orderCode == "" {
		return Result{State: Failed, Err: ErrMissingOrderCode}
	}

	// Zero delay on the first tick: the common case is that the webhook
	// already landed before the purchaser finished the redirect.
	timer := time.NewTimer(0)
	defer timer.Stop()

	res := Result{State: Verifying}
	for res.Attempts < l.maxAttempts {
		select {
		case <-ctx.Done():
			res.State = Failed
			res.Err = ctx.Err()
			return res
		case <-timer.C:
		}

		v, err := l.verifier.VerifyPayment(ctx, orderCode)
		res.Attempts++

		switch {
		case err == nil:
			res.Verification = v
			res.Err = nil

			switch v.Status {
			case payment.Completed:
				res.State = Succeeded
				return res
			case payment.Cancelled, payment.Failed:
				res.State = Failed
				res.Err = fmt.Errorf("payment did not complete: order is %s", v.Status)
				return res
			}
			// Still pending: spend another attempt.

		case errors.Is(err, client.ErrUnauthenticated), errors.Is(err, client.ErrNotFound):
			// Neither can heal by waiting.
			res.State = Failed
			res.Err = err
			return res

		default:
			// Transient failure: counts against the budget, loop goes on.
			res.Err = err
		}

		timer.Reset(l.interval)
	}

	res.State = Failed
	if res.Err == nil {
		res.Err = ErrExhausted
	}
	return res
}
