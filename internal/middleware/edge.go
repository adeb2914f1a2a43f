package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"feedback-hub/internal/utils"
)

// SecurityHeaders sets the usual hardening headers. HTTPS redirects are
// only enforced in production.
func SecurityHeaders(production bool) func(http.Handler) http.Handler {
	s := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'; img-src 'self' data:; style-src 'self' 'unsafe-inline'",
		STSSeconds:            15552000,
		STSIncludeSubdomains:  true,
		SSLRedirect:           production,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !production,
	})
	return s.Handler
}

// fixedWindowCounter drops the previous window's count so httprate
// enforces a fixed window instead of its sliding estimate.
type fixedWindowCounter struct {
	httprate.LimitCounter
}

func newFixedWindowCounter(window time.Duration) fixedWindowCounter {
	return fixedWindowCounter{LimitCounter: httprate.NewLocalLimitCounter(window)}
}

func (c fixedWindowCounter) Get(key string, currentWindow, previousWindow time.Time) (int, int, error) {
	curr, _, err := c.LimitCounter.Get(key, currentWindow, previousWindow)
	return curr, 0, err
}

// RateLimit caps requests per client IP within a fixed window.
func RateLimit(max int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(max, window,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitCounter(newFixedWindowCounter(window)),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			utils.Fail(w, r, utils.RateLimitError())
		}),
	)
}

// BodyLimit caps request bodies at n bytes.
func BodyLimit(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > n {
				utils.Fail(w, r, utils.ValidationError("Request body too large").WithDetails(map[string]int64{"limit": n}))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}
