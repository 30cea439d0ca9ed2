package completion

import (
	"context"

	"golang.org/x/time/rate"
)

// Limited throttles requests to the completion service. The limiter is
// shared by every job in the process.
type Limited struct {
	next    Requester
	limiter *rate.Limiter
}

// NewLimited wraps next with a token bucket of requestsPerMinute and burst.
// A non-positive rate disables limiting.
func NewLimited(next Requester, requestsPerMinute, burst int) Requester {
	if requestsPerMinute <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &Limited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst),
	}
}

func (l *Limited) Request(ctx context.Context, prompt string) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", requestFailed("limiter", 0, "rate limit wait: "+err.Error(), err)
	}
	return l.next.Request(ctx, prompt)
}
