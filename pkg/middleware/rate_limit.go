package middleware

import (
	"net/http"
	"sync"
	"time"

	"campuspark/pkg/logger"
	"campuspark/pkg/sanitizer"
)

const RequesterHeader = "X-Requester"

type RequesterExtractor func(r *http.Request) string

// RequesterRateLimiter is a sliding-window limiter keyed by requester.
type RequesterRateLimiter struct {
	mu        sync.Mutex
	requests  map[string][]time.Time
	limit     int
	window    time.Duration
	extractor RequesterExtractor
	log       *logger.Logger
	stopCh    chan struct{}
	stopOnce  sync.Once
}

func NewRequesterRateLimiter(limit int, window time.Duration, extractor RequesterExtractor, log *logger.Logger) *RequesterRateLimiter {
	limiter := &RequesterRateLimiter{
		requests:  make(map[string][]time.Time),
		limit:     limit,
		window:    window,
		extractor: extractor,
		log:       log,
		stopCh:    make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

func (rl *RequesterRateLimiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for requester, timestamps := range rl.requests {
				if len(timestamps) == 0 || time.Since(timestamps[len(timestamps)-1]) > rl.window {
					delete(rl.requests, requester)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RequesterRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *RequesterRateLimiter) Allow(requester string) bool {
	if requester == "" {
		return true
	}

	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	timestamps := rl.requests[requester]
	valid := timestamps[:0]
	for _, ts := range timestamps {
		if now.Sub(ts) < rl.window {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[requester] = valid
		return false
	}

	rl.requests[requester] = append(valid, now)
	return true
}

// RequesterRateLimit rejects requests over the limit with 429. Anonymous
// requests are not limited here.
func RequesterRateLimit(limiter *RequesterRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			extract := limiter.extractor
			if extract == nil {
				extract = DefaultRequesterExtractor
			}
			requester := extract(r)

			if !limiter.Allow(requester) {
				rejectRateLimited(w, limiter.log, r, requester)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rejectRateLimited(w http.ResponseWriter, log *logger.Logger, r *http.Request, requester string) {
	log.Warn("Rate limit exceeded",
		"request_id", RequestIDFromContext(r.Context()),
		"requester", requester,
		"path", r.URL.Path,
	)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "60")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"error":"Rate limit exceeded","code":"RATE_LIMITED"}`))
}

// DefaultRequesterExtractor reads the X-Requester header, falling back to the
// requester query parameter used by list calls.
func DefaultRequesterExtractor(r *http.Request) string {
	if requester := r.Header.Get(RequesterHeader); requester != "" {
		return sanitizer.NormalizeRequester(requester)
	}
	return sanitizer.NormalizeRequester(r.URL.Query().Get("requester"))
}
