package middleware

import (
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ifeis/server/internal/api/problem"
	"github.com/ifeis/server/internal/config"
	"golang.org/x/time/rate"
)

type RateLimitTier string

const (
	TierPublic        RateLimitTier = "public"
	TierAuthenticated RateLimitTier = "authenticated"
	TierLogin         RateLimitTier = "login"
)

type rateLimitKey string

const (
	rateLimitTierKey rateLimitKey = "rateLimitTier"
	clientIPKey      rateLimitKey = "clientIP"
)

// idleBucketTTL is how long an unused bucket is kept.
const idleBucketTTL = 15 * time.Minute

var errRateLimited = errors.New("rate limit exceeded")

func WithRateLimitTier(ctx context.Context, tier RateLimitTier) context.Context {
	return context.WithValue(ctx, rateLimitTierKey, tier)
}

// ClientIP is the client address RateLimit resolved, honouring forwarding
// headers from trusted proxies only.
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}

// RateLimit throttles per client IP and tier. A tier already in the context
// wins; otherwise login routes get the login tier, requests carrying
// credentials the authenticated tier, and everything else the public tier.
// Probes are never limited.
func RateLimit(cfg config.RateLimitConfig, cookieName, env string) func(http.Handler) http.Handler {
	store := newLimiterStore(cfg)
	trusted := parseProxies(cfg.TrustedProxyCIDRs)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientKey(r, trusted)
			r = r.WithContext(context.WithValue(r.Context(), clientIPKey, ip))
			if quietPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			if wait := store.take(tierFor(r, cookieName), ip, time.Now()); wait > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				problem.Write(w, r, http.StatusTooManyRequests, problem.Type("rate-limited"), "Too many requests", errRateLimited, env)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tierFor(r *http.Request, cookieName string) RateLimitTier {
	if tier, ok := r.Context().Value(rateLimitTierKey).(RateLimitTier); ok {
		return tier
	}
	if strings.HasPrefix(r.URL.Path, "/login/") {
		return TierLogin
	}
	if r.Header.Get("Authorization") != "" {
		return TierAuthenticated
	}
	if _, err := r.Cookie(cookieName); err == nil {
		return TierAuthenticated
	}
	return TierPublic
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterStore keeps one token bucket per tier and client. Idle buckets are
// swept on access at most once per idleBucketTTL.
type limiterStore struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	perMinute map[RateLimitTier]int
	lastSweep time.Time
}

func newLimiterStore(cfg config.RateLimitConfig) *limiterStore {
	return &limiterStore{
		buckets: make(map[string]*bucket),
		perMinute: map[RateLimitTier]int{
			TierPublic:        cfg.PublicPerMinute,
			TierAuthenticated: cfg.AuthenticatedPerMinute,
			TierLogin:         cfg.LoginPerMinute,
		},
		lastSweep: time.Now(),
	}
}

// take spends a token and returns zero, or returns how long the client must
// wait for one. A tier with no limit always allows.
func (s *limiterStore) take(tier RateLimitTier, key string, now time.Time) time.Duration {
	limit := s.perMinute[tier]
	if limit <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) > idleBucketTTL {
		for k, b := range s.buckets {
			if now.Sub(b.lastSeen) > idleBucketTTL {
				delete(s.buckets, k)
			}
		}
		s.lastSweep = now
	}

	id := string(tier) + ":" + key
	b, ok := s.buckets[id]
	if !ok {
		// A full minute's allowance may be spent at once.
		b = &bucket{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(limit)), limit)}
		s.buckets[id] = b
	}
	b.lastSeen = now

	res := b.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return delay
	}
	return 0
}

func parseProxies(cidrs []string) []netip.Prefix {
	var out []netip.Prefix
	for _, c := range cidrs {
		if p, err := netip.ParsePrefix(strings.TrimSpace(c)); err == nil {
			out = append(out, p.Masked())
		}
	}
	return out
}

// clientKey identifies the client. Forwarding headers are only believed when
// the connection comes from a trusted proxy.
func clientKey(r *http.Request, trusted []netip.Prefix) string {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = h
	}

	addr, err := netip.ParseAddr(host)
	if err != nil || !isTrusted(addr.Unmap(), trusted) {
		return host
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}
	return host
}

func isTrusted(addr netip.Addr, trusted []netip.Prefix) bool {
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
