package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/errors"
	"golang.org/x/time/rate"
)

const (
	throttleIdleTTL     = 10 * time.Minute
	throttleSweepAt     = 1024
	throttleSweepPeriod = time.Minute
)

type throttleClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientThrottle applies a token bucket per remote address. It protects the
// provider quota from a single noisy browser tab; the sliding window in the
// engine still governs the process as a whole.
type ClientThrottle struct {
	limit rate.Limit
	burst int

	mu        sync.Mutex
	clients   map[string]*throttleClient
	lastSweep time.Time
	now       func() time.Time
}

// NewClientThrottle returns nil when rps is not positive, which disables
// throttling.
func NewClientThrottle(rps float64, burst int) *ClientThrottle {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = int(math.Ceil(rps))
	}
	return &ClientThrottle{
		limit:   rate.Limit(rps),
		burst:   burst,
		clients: make(map[string]*throttleClient),
		now:     time.Now,
	}
}

// Handler wraps next; a nil throttle passes requests through.
func (t *ClientThrottle) Handler(next http.Handler) http.Handler {
	if t == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if t.allow(clientKey(r)) {
			next.ServeHTTP(w, r)
			return
		}

		retryAfter := int(math.Ceil(1 / float64(t.limit)))
		if retryAfter < 1 {
			retryAfter = 1
		}
		envelope := errors.NewErrorEnvelope("RATE_LIMITED", "too many requests from this client").
			WithCorrelationID(GetRequestID(r.Context())).
			WithDetails(map[string]interface{}{"retry_after_seconds": retryAfter})

		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		writeErrorResponse(w, envelope, http.StatusTooManyRequests)
	})
}

func (t *ClientThrottle) allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	client, ok := t.clients[key]
	if !ok {
		client = &throttleClient{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.clients[key] = client
	}
	client.lastSeen = now

	if len(t.clients) > throttleSweepAt && now.Sub(t.lastSweep) > throttleSweepPeriod {
		for k, c := range t.clients {
			if now.Sub(c.lastSeen) > throttleIdleTTL {
				delete(t.clients, k)
			}
		}
		t.lastSweep = now
	}

	return client.limiter.AllowN(now, 1)
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
