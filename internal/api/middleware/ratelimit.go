package middleware

import (
	"math"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/dataacquisition/das/internal/api/models"
)

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	RequestLimit int
	WindowLength time.Duration
}

// Default rate limits.
var (
	// WriteRateLimit applies to request creation and state updates (30 req/min).
	WriteRateLimit = RateLimitConfig{RequestLimit: 30, WindowLength: time.Minute}

	// StandardRateLimit applies to lookups (100 req/min).
	StandardRateLimit = RateLimitConfig{RequestLimit: 100, WindowLength: time.Minute}

	// CallbackRateLimit applies to status reports from internal services (600 req/min).
	CallbackRateLimit = RateLimitConfig{RequestLimit: 600, WindowLength: time.Minute}
)

// RateLimitByIP limits by client address. Put chi's RealIP in front of it
// when running behind a proxy.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(limitExceeded(cfg)),
	)
}

// RateLimitByUser limits by authenticated principal, falling back to the
// client address. It must run after Auth to see the principal.
func RateLimitByUser(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(keyByUserOrIP),
		httprate.WithLimitHandler(limitExceeded(cfg)),
	)
}

func keyByUserOrIP(r *http.Request) (string, error) {
	if userID := GetUserID(r.Context()); userID != "" {
		return "user:" + userID, nil
	}
	return httprate.KeyByRealIP(r)
}

// limitExceeded writes a 429 problem. httprate does not expose the window
// reset time to the handler, so Retry-After is the full window length and
// the reset header it already set is kept.
func limitExceeded(cfg RateLimitConfig) http.HandlerFunc {
	info := models.RateLimitInfo{
		Limit:      cfg.RequestLimit,
		RetryAfter: int(math.Ceil(cfg.WindowLength.Seconds())),
	}
	return func(w http.ResponseWriter, r *http.Request) {
		info.SetHeaders(w.Header())
		models.NewTooManyRequests(GetRequestID(r.Context()), "rate limit exceeded, retry later").
			WithInstance(r.URL.Path).
			Write(w)
	}
}
