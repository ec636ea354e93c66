package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// clientIdleLimit is how long an idle client keeps its bucket before the
// sweep drops it.
const clientIdleLimit = 10 * time.Minute

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit throttles requests per client IP with a token bucket allowing
// perMinute sustained requests and bursts up to burst. Throttled requests
// get 429 with the API's JSON error envelope shape.
func RateLimit(perMinute, burst int) func(http.Handler) http.Handler {
	var (
		mu      sync.Mutex
		clients = make(map[string]*clientBucket)
	)

	limit := rate.Every(time.Minute / time.Duration(perMinute))

	take := func(ip string) bool {
		mu.Lock()
		defer mu.Unlock()

		now := time.Now()
		b, ok := clients[ip]
		if !ok {
			for addr, stale := range clients {
				if now.Sub(stale.lastSeen) > clientIdleLimit {
					delete(clients, addr)
				}
			}
			b = &clientBucket{limiter: rate.NewLimiter(limit, burst)}
			clients[ip] = b
		}
		b.lastSeen = now
		return b.limiter.Allow()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !take(clientIP(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "60")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":{"code":"RATE_LIMITED","message":"rate limit exceeded, retry later"}}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
