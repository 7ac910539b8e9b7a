package providers

import (
	"context"
	"sync"
	"time"
)

// RateLimiter implements a token bucket rate limiter.
type RateLimiter struct {
	mu sync.Mutex

	// Configuration
	ratePerSecond float64
	burst         float64

	// Token bucket state
	tokens     float64
	lastUpdate time.Time

	// Statistics
	totalConsumed int64
	totalWaited   time.Duration
	last429Time   time.Time
}

// RateLimiterStatus reports current limiter state.
type RateLimiterStatus struct {
	TokensAvailable int           `json:"tokens_available"`
	TokensLimit     int           `json:"tokens_limit"`
	Utilization     float64       `json:"utilization"`
	TimeUntilToken  time.Duration `json:"time_until_token"`
	TotalConsumed   int64         `json:"total_consumed"`
	TotalWaited     time.Duration `json:"total_waited"`
	Last429Time     time.Time     `json:"last_429_time,omitempty"`
}

// NewRateLimiter creates a limiter allowing ratePerSecond requests per second
// with a burst of one second's worth of tokens (at least one).
func NewRateLimiter(ratePerSecond float64) *RateLimiter {
	if ratePerSecond <= 0 {
		ratePerSecond = 2.5 // ~150 RPM
	}
	burst := ratePerSecond
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		ratePerSecond: ratePerSecond,
		burst:         burst,
		tokens:        burst,
		lastUpdate:    time.Now(),
	}
}

// Wait blocks until a token is available or context is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		r.refill()

		if r.tokens >= 1.0 {
			r.tokens--
			r.totalConsumed++
			r.mu.Unlock()
			return nil
		}

		waitTime := r.untilNextToken()
		r.mu.Unlock()

		// Wait outside lock
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
			r.mu.Lock()
			r.totalWaited += waitTime
			r.mu.Unlock()
		}
	}
}

// TryConsume attempts to consume a token without blocking.
func (r *RateLimiter) TryConsume() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()

	if r.tokens >= 1.0 {
		r.tokens--
		r.totalConsumed++
		return true
	}
	return false
}

// Record429 drains the bucket after the upstream reported rate limiting.
func (r *RateLimiter) Record429() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.last429Time = time.Now()
	r.tokens = 0
}

// Status returns current limiter status.
func (r *RateLimiter) Status() RateLimiterStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()

	utilization := 1.0 - (r.tokens / r.burst)
	if utilization < 0 {
		utilization = 0
	}

	var timeUntilToken time.Duration
	if r.tokens < 1.0 {
		timeUntilToken = r.untilNextToken()
	}

	return RateLimiterStatus{
		TokensAvailable: int(r.tokens),
		TokensLimit:     int(r.burst),
		Utilization:     utilization,
		TimeUntilToken:  timeUntilToken,
		TotalConsumed:   r.totalConsumed,
		TotalWaited:     r.totalWaited,
		Last429Time:     r.last429Time,
	}
}

// untilNextToken must be called with lock held.
func (r *RateLimiter) untilNextToken() time.Duration {
	tokensNeeded := 1.0 - r.tokens
	return time.Duration(tokensNeeded / r.ratePerSecond * float64(time.Second))
}

// refill adds tokens based on elapsed time. Must be called with lock held.
func (r *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(r.lastUpdate).Seconds()
	r.lastUpdate = now

	r.tokens += elapsed * r.ratePerSecond
	if r.tokens > r.burst {
		r.tokens = r.burst
	}
}

// LimitedEmbedder paces an Embedder through a RateLimiter.
type LimitedEmbedder struct {
	Embedder
	limiter *RateLimiter
}

// WithRateLimit wraps e so that Embed waits for a token first.
func WithRateLimit(e Embedder, ratePerSecond float64) *LimitedEmbedder {
	return &LimitedEmbedder{Embedder: e, limiter: NewRateLimiter(ratePerSecond)}
}

// Embed waits for the limiter, then delegates.
func (l *LimitedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.Embedder.Embed(ctx, text)
}

// Status reports the wrapped limiter's state.
func (l *LimitedEmbedder) Status() RateLimiterStatus {
	return l.limiter.Status()
}

var _ Embedder = (*LimitedEmbedder)(nil)
