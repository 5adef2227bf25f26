package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/tuanngo-dev/e-education/api/web"
	"github.com/tuanngo-dev/e-education/api/weberr"
	"github.com/tuanngo-dev/e-education/rate"
)

// RateLimit rejects clients that exceed the limiter budget, keyed by the
// caller's host address.
func RateLimit(lim *rate.Limiter) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}

			if !lim.Check(host) {
				return weberr.TooManyRequests(fmt.Errorf("rate limit exceeded for client[%s]", host))
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
