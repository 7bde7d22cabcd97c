package downloader

import "time"

// RateLimiter spaces out image fetches against the shared remote host.
// A politeness throttle, not a correctness mechanism.
type RateLimiter struct {
	ticker *time.Ticker
}

// NewRateLimiter returns a limiter that allows one operation per interval.
// A non-positive interval disables the limiter.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	if interval <= 0 {
		return &RateLimiter{}
	}
	return &RateLimiter{ticker: time.NewTicker(interval)}
}

// Wait blocks until the next tick. Call before each rate-limited fetch.
func (rl *RateLimiter) Wait() {
	if rl.ticker == nil {
		return
	}
	<-rl.ticker.C
}

// Stop releases the limiter's resources.
func (rl *RateLimiter) Stop() {
	if rl.ticker != nil {
		rl.ticker.Stop()
	}
}
