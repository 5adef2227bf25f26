package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/tuanngo-dev/e-education/client"
	"github.com/tuanngo-dev/e-education/core/payment"
)

type step struct {
	v   payment.Verification
	err error
}

// scriptVerifier replays a fixed sequence of answers, repeating the last one
// forever, and counts every query it receives.
type scriptVerifier struct {
	script []step
	calls  int
	cancel context.CancelFunc
}

func (s *scriptVerifier) VerifyPayment(ctx context.Context, orderCode string) (payment.Verification, error) {
	i := s.calls
	s.calls++
	if s.cancel != nil {
		s.cancel()
	}
	if i >= len(s.script) {
		i = len(s.script) - 1
	}
	st := s.script[i]
	return st.v, st.err
}

func pending() step {
	return step{v: payment.Verification{Status: payment.Pending}}
}

func fastLoop(v Verifier) *Loop {
	return New(v, WithInterval(time.Millisecond), WithMaxAttempts(5))
}

func TestFastPath(t *testing.T) {
	sv := &scriptVerifier{script: []step{
		{v: payment.Verification{Status: payment.Completed, IsVip: true}},
	}}

	res := fastLoop(sv).Run(context.Background(), "ORD123")

	if res.State != Succeeded {
		t.Fatalf("expected %s, got %s (err: %v)", Succeeded, res.State, res.Err)
	}
	if sv.calls != 1 {
		t.Fatalf("an immediately completed order must need exactly 1 query, got %d", sv.calls)
	}
	if !res.Verification.IsVip {
		t.Fatal("the entitlement snapshot was not carried into the result")
	}
}

func TestPendingExhaustsBudget(t *testing.T) {
	sv := &scriptVerifier{script: []step{pending()}}

	res := New(sv, WithInterval(time.Millisecond), WithMaxAttempts(5)).Run(context.Background(), "ORD123")

	if res.State != Failed {
		t.Fatalf("expected %s, got %s", Failed, res.State)
	}
	if sv.calls != 5 {
		t.Fatalf("expected exactly 5 queries, got %d", sv.calls)
	}
	if !errors.Is(res.Err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", res.Err)
	}
}

func TestCancelledStopsImmediately(t *testing.T) {
	sv := &scriptVerifier{script: []step{
		pending(),
		{v: payment.Verification{Status: payment.Cancelled}},
	}}

	res := fastLoop(sv).Run(context.Background(), "ORD123")

	if res.State != Failed {
		t.Fatalf("expected %s, got %s", Failed, res.State)
	}
	if sv.calls != 2 {
		t.Fatalf("a cancelled order must stop the loop at once, got %d queries", sv.calls)
	}
}

func TestGatewayFailureStopsImmediately(t *testing.T) {
	sv := &scriptVerifier{script: []step{
		{v: payment.Verification{Status: payment.Failed}},
	}}

	res := fastLoop(sv).Run(context.Background(), "ORD123")

	if res.State != Failed || sv.calls != 1 {
		t.Fatalf("expected immediate failure after 1 query, got state %s after %d", res.State, sv.calls)
	}
}

func TestMissingOrderCode(t *testing.T) {
	sv := &scriptVerifier{script: []step{pending()}}

	res := fastLoop(sv).Run(context.Background(), "")

	if res.State != Failed || !errors.Is(res.Err, ErrMissingOrderCode) {
		t.Fatalf("expected failure with ErrMissingOrderCode, got state %s err %v", res.State, res.Err)
	}
	if sv.calls != 0 {
		t.Fatalf("no query may be issued without an order code, got %d", sv.calls)
	}
}

func TestTeardownStopsPolling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sv := &scriptVerifier{script: []step{pending()}, cancel: cancel}

	res := New(sv, WithInterval(time.Hour), WithMaxAttempts(5)).Run(ctx, "ORD123")

	if res.State != Failed || !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("expected failure with context.Canceled, got state %s err %v", res.State, res.Err)
	}
	if sv.calls != 1 {
		t.Fatalf("cancellation must prevent further queries, got %d", sv.calls)
	}
}

func TestNotFoundIsTerminal(t *testing.T) {
	sv := &scriptVerifier{script: []step{
		{err: fmt.Errorf("verify: %w", client.ErrNotFound)},
	}}

	res := fastLoop(sv).Run(context.Background(), "ORD123")

	if res.State != Failed || !errors.Is(res.Err, client.ErrNotFound) {
		t.Fatalf("expected failure with ErrNotFound, got state %s err %v", res.State, res.Err)
	}
	if sv.calls != 1 {
		t.Fatalf("an unknown order must not be retried, got %d queries", sv.calls)
	}
}

func TestUnauthenticatedIsTerminal(t *testing.T) {
	sv := &scriptVerifier{script: []step{{err: client.ErrUnauthenticated}}}

	res := fastLoop(sv).Run(context.Background(), "ORD123")

	if res.State != Failed || sv.calls != 1 {
		t.Fatalf("expected immediate failure after 1 query, got state %s after %d", res.State, sv.calls)
	}
}

func TestTransientErrorsConsumeBudget(t *testing.T) {
	sv := &scriptVerifier{script: []step{{err: errors.New("connection reset")}}}

	res := New(sv, WithInterval(time.Millisecond), WithMaxAttempts(3)).Run(context.Background(), "ORD123")

	if res.State != Failed {
		t.Fatalf("expected %s, got %s", Failed, res.State)
	}
	if sv.calls != 3 {
		t.Fatalf("transient errors must count against the budget, got %d queries", sv.calls)
	}
}

func TestTransientErrorThenCompleted(t *testing.T) {
	sv := &scriptVerifier{script: []step{
		{err: errors.New("gateway timeout")},
		{v: payment.Verification{Status: payment.Completed}},
	}}

	res := fastLoop(sv).Run(context.Background(), "ORD123")

	if res.State != Succeeded || res.Err != nil {
		t.Fatalf("expected clean success, got state %s err %v", res.State, res.Err)
	}
	if sv.calls != 2 {
		t.Fatalf("expected 2 queries, got %d", sv.calls)
	}
}

func TestPurchaseScenario(t *testing.T) {
	completedAt := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	expiresAt := time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC)

	sv := &scriptVerifier{script: []step{
		pending(),
		{v: payment.Verification{
			Status:       payment.Completed,
			CompletedAt:  &completedAt,
			IsVip:        true,
			VipExpiresAt: &expiresAt,
		}},
	}}

	res := fastLoop(sv).Run(context.Background(), "ORD123")

	if res.State != Succeeded {
		t.Fatalf("expected %s, got %s (err: %v)", Succeeded, res.State, res.Err)
	}
	if res.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", res.Attempts)
	}

	want := payment.Verification{
		Status:       payment.Completed,
		CompletedAt:  &completedAt,
		IsVip:        true,
		VipExpiresAt: &expiresAt,
	}
	if diff := cmp.Diff(want, res.Verification); diff != "" {
		t.Fatalf("unexpected entitlement snapshot (-want +got):\n%s", diff)
	}
}
