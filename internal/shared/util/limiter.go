package util

import (
	"context"
	"math"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket shared by the GitHub client and the per-client
// request gate.
type Limiter struct {
	bucket *rate.Limiter
}

// NewLimiter returns a bucket refilled at perSecond tokens per second.
// A non-positive rate means unlimited.
func NewLimiter(perSecond float64, burst int) *Limiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{bucket: rate.NewLimiter(limit, burst)}
}

// Admit takes one token, or reports how long the caller would have to wait
// for one without consuming it.
func (l *Limiter) Admit() (bool, time.Duration) {
	now := time.Now()
	res := l.bucket.ReserveN(now, 1)
	if !res.OK() {
		return false, 0
	}
	delay := res.DelayFrom(now)
	if delay == 0 {
		return true, 0
	}
	res.CancelAt(now)
	return false, delay
}

// Wait blocks until n tokens are available or ctx ends.
func (l *Limiter) Wait(ctx context.Context, n int) error {
	return l.bucket.WaitN(ctx, n)
}

// RetryAfterSeconds renders a delay as a Retry-After header value, rounded up
// to whole seconds with a floor of one.
func RetryAfterSeconds(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
