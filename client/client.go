// Package client is a typed API client for the e-education backend. The
// session token is passed in explicitly; an empty token means the caller is
// anonymous, and methods with a safe anonymous default answer locally instead
// of issuing unauthenticated requests.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tuanngo-dev/e-education/api/weberr"
	"github.com/tuanngo-dev/e-education/core/payment"
)

var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrNotFound        = errors.New("resource not found")
)

// sessionCookie matches the cookie name of the server's session manager.
const sessionCookie = "session"

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithSession authenticates the client with a session token.
func WithSession(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Plans(ctx context.Context) ([]payment.Plan, error) {
	var plans []payment.Plan
	if err := c.do(ctx, http.MethodGet, "/payments/plans", nil, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// CreateOrder opens a purchase attempt for a plan. The returned payment URL
// is where the purchaser must be sent; the order code is what the
// reconciliation loop polls with once they come back.
func (c *Client) CreateOrder(ctx context.Context, planID int, provider string) (payment.CheckoutResponse, error) {
	if c.token == "" {
		return payment.CheckoutResponse{}, ErrUnauthenticated
	}

	body := payment.OrderNew{PlanID: planID, Provider: provider}
	var resp payment.CheckoutResponse
	if err := c.do(ctx, http.MethodPost, "/payments/create-order", body, &resp); err != nil {
		return payment.CheckoutResponse{}, err
	}
	return resp, nil
}

// VerifyPayment reads the current state of an order. It is a pure read and
// safe to call repeatedly.
func (c *Client) VerifyPayment(ctx context.Context, orderCode string) (payment.Verification, error) {
	if c.token == "" {
		return payment.Verification{}, ErrUnauthenticated
	}

	var v payment.Verification
	if err := c.do(ctx, http.MethodGet, "/payments/verify/"+orderCode, nil, &v); err != nil {
		return payment.Verification{}, err
	}
	return v, nil
}

// VIPStatus projects the caller's entitlement. Anonymous clients get the
// non-entitled default without a network round trip.
func (c *Client) VIPStatus(ctx context.Context) (payment.VIPStatus, error) {
	if c.token == "" {
		return payment.VIPStatus{}, nil
	}

	var vip payment.VIPStatus
	if err := c.do(ctx, http.MethodGet, "/payments/vip-status", nil, &vip); err != nil {
		return payment.VIPStatus{}, err
	}
	return vip, nil
}

// History lists the caller's purchase attempts, newest first. Anonymous
// clients have none.
func (c *Client) History(ctx context.Context) ([]payment.Order, error) {
	if c.token == "" {
		return []payment.Order{}, nil
	}

	var orders []payment.Order
	if err := c.do(ctx, http.MethodGet, "/payments/history", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// CancelOrder reports that the purchaser abandoned the provider checkout.
func (c *Client) CancelOrder(ctx context.Context, orderCode string) (payment.Verification, error) {
	if c.token == "" {
		return payment.Verification{}, ErrUnauthenticated
	}

	var v payment.Verification
	if err := c.do(ctx, http.MethodPost, "/payments/"+orderCode+"/cancel", nil, &v); err != nil {
		return payment.Verification{}, err
	}
	return v, nil
}

func (c *Client) do(ctx context.Context, method string, path string, in interface{}, out interface{}) error {
	var body *bytes.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: c.token})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.asError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) asError(resp *http.Response) error {
	var er weberr.ErrorResponse
	msg := http.StatusText(resp.StatusCode)
	if err := json.NewDecoder(resp.Body).Decode(&er); err == nil && er.Error != "" {
		msg = er.Error
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", msg, ErrUnauthenticated)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	}
	return fmt.Errorf("server answered %d: %s", resp.StatusCode, msg)
}
