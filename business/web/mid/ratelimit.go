package mid

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/ardanlabs/simplestorage/business/sys/metrics"
	"github.com/ardanlabs/simplestorage/business/web/errs"
	"github.com/ardanlabs/simplestorage/foundation/ratelimit"
	"github.com/ardanlabs/simplestorage/foundation/web"
)

// ErrTooManyRequests is returned when a client exceeds its request budget.
var ErrTooManyRequests = errors.New("too many requests, slow down")

// RateLimit rejects requests from clients that exceed the limiter budget.
func RateLimit(limiter *ratelimit.Limiter) web.Middleware {

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			allowed := limiter.Allow(clientIP(r), time.Now())
			if limiter != nil {
				metrics.SetRateLimitKeys(limiter.Len())
			}

			if !allowed {
				w.Header().Set("Retry-After", "1")
				return errs.NewTrusted(ErrTooManyRequests, http.StatusTooManyRequests)
			}

			// Call the next handler.
			return handler(ctx, w, r)
		}

		return h
	}

	return m
}

// clientIP returns the host portion of the remote address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
