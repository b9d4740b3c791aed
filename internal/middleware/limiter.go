package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"chemshop-be/internal/utils"

	"golang.org/x/time/rate"
)

// Tier bundles a refill rate and burst size.
type Tier struct {
	Rate  rate.Limit
	Burst int
}

var (
	// TierDefault covers browsing and wallet reads.
	TierDefault = Tier{Rate: 10, Burst: 20}
	// TierStrict covers checkout, payment actions and the bank callback.
	TierStrict = Tier{Rate: 2, Burst: 5}
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps a per-IP token bucket and drops 429 when it runs dry. Stale
// visitors are evicted in the background.
type Limiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	tier     Tier
}

func NewLimiter(tier Tier) *Limiter {
	l := &Limiter{
		visitors: make(map[string]*visitor),
		tier:     tier,
	}
	go l.cleanup()
	return l
}

func (l *Limiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.tier.Rate, l.tier.Burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = time.Now()

	return v.limiter.Allow()
}

func (l *Limiter) cleanup() {
	for range time.Tick(3 * time.Minute) {
		l.mu.Lock()
		for ip, v := range l.visitors {
			if time.Since(v.lastSeen) > 10*time.Minute {
				delete(l.visitors, ip)
			}
		}
		l.mu.Unlock()
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientIP(r)) {
			utils.WriteJSONError(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
