package xclient

import (
	"os"
	"strconv"
	"sync"

	"golang.org/x/time/rate"
)

var (
	limiterOnce sync.Once
	limiter     *rate.Limiter
)

// sharedLimiter returns the process-wide outbound limiter. All clients share
// one budget: bots are posted sequentially and the API rate limit applies to
// the runner, not to any single account.
func sharedLimiter() *rate.Limiter {
	limiterOnce.Do(func() {
		rps := 2.0
		burst := 10
		if v := os.Getenv("X_API_RPS"); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
				rps = f
			}
		}
		if v := os.Getenv("X_API_BURST"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				burst = n
			}
		}
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
	})
	return limiter
}
