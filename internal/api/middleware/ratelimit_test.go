package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ifeis/server/internal/config"
)

const testCookie = "ifeis_session"

func limited(cfg config.RateLimitConfig) http.Handler {
	return RateLimit(cfg, testCookie, "test")(okHandler())
}

func TestLoginRateLimit_BlocksAfterBurst(t *testing.T) {
	handler := limited(config.RateLimitConfig{LoginPerMinute: 5})

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/login/google", nil)
		req.RemoteAddr = "192.168.1.101:54321"
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusOK {
			t.Fatalf("request %d: expected status 200, got %d", i+1, res.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/login/google", nil)
	req.RemoteAddr = "192.168.1.101:54321"
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", res.Code)
	}
	// Five a minute refills one token every twelve seconds.
	if got := res.Header().Get("Retry-After"); got != "12" {
		t.Errorf("expected Retry-After 12, got %s", got)
	}
	if got := res.Header().Get("Content-Type"); got != "application/problem+json" {
		t.Errorf("expected problem+json, got %s", got)
	}
}

func TestLoginRateLimit_PerIPIsolation(t *testing.T) {
	handler := limited(config.RateLimitConfig{LoginPerMinute: 1})

	first := httptest.NewRequest(http.MethodGet, "/login/google", nil)
	first.RemoteAddr = "192.168.1.10:1"
	handler.ServeHTTP(httptest.NewRecorder(), first)

	other := httptest.NewRequest(http.MethodGet, "/login/google", nil)
	other.RemoteAddr = "192.168.1.11:1"
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, other)

	if res.Code != http.StatusOK {
		t.Fatalf("different IP should not be rate limited, got status %d", res.Code)
	}
}

func TestRateLimit_TierSelection(t *testing.T) {
	cases := []struct {
		name  string
		setup func(r *http.Request)
		want  RateLimitTier
	}{
		{"anonymous", func(r *http.Request) {}, TierPublic},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer x") }, TierAuthenticated},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: testCookie, Value: "x"}) }, TierAuthenticated},
		{"explicit", func(r *http.Request) {
			*r = *r.WithContext(WithRateLimitTier(r.Context(), TierLogin))
		}, TierLogin},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/feiseanna", nil)
			tc.setup(req)
			if got := tierFor(req, testCookie); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestRateLimit_AuthenticatedTierIsSeparate(t *testing.T) {
	handler := limited(config.RateLimitConfig{PublicPerMinute: 1, AuthenticatedPerMinute: 100})

	anon := httptest.NewRequest(http.MethodGet, "/api/feiseanna", nil)
	anon.RemoteAddr = "192.168.1.20:1"
	handler.ServeHTTP(httptest.NewRecorder(), anon)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/feiseanna", nil)
		req.RemoteAddr = "192.168.1.20:1"
		req.Header.Set("Authorization", "Bearer token")
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusOK {
			t.Fatalf("authenticated request %d limited: %d", i+1, res.Code)
		}
	}
}

func TestRateLimit_DisabledWhenZero(t *testing.T) {
	handler := limited(config.RateLimitConfig{})

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/login/google", nil)
		req.RemoteAddr = "192.168.1.100:12345"
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusOK {
			t.Fatalf("request %d: disabled rate limit should allow all, got status %d", i+1, res.Code)
		}
	}
}

func TestRateLimit_ProbesExempt(t *testing.T) {
	handler := limited(config.RateLimitConfig{PublicPerMinute: 1})

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		for i := 0; i < 20; i++ {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.RemoteAddr = "192.168.1.100:12345"
			res := httptest.NewRecorder()
			handler.ServeHTTP(res, req)
			if res.Code != http.StatusOK {
				t.Fatalf("%s should never be rate limited, got status %d", path, res.Code)
			}
		}
	}
}

func TestClientKey_TrustedProxyForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	req.Header.Set("X-Forwarded-For", "203.0.113.45, 198.51.100.1")

	if key := clientKey(req, parseProxies([]string{"10.0.0.0/8"})); key != "203.0.113.45" {
		t.Errorf("expected first X-Forwarded-For IP, got %s", key)
	}
}

func TestClientKey_TrustedProxyRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	req.Header.Set("X-Real-IP", "203.0.113.45")

	if key := clientKey(req, parseProxies([]string{"10.0.0.0/8"})); key != "203.0.113.45" {
		t.Errorf("expected X-Real-IP, got %s", key)
	}
}

func TestClientKey_IgnoresHeadersFromUntrustedPeer(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.100:12345"
	req.Header.Set("X-Forwarded-For", "203.0.113.45")

	if key := clientKey(req, nil); key != "192.168.1.100" {
		t.Errorf("expected RemoteAddr host, got %s", key)
	}
	if key := clientKey(req, parseProxies([]string{"10.0.0.0/8"})); key != "192.168.1.100" {
		t.Errorf("expected RemoteAddr host for untrusted peer, got %s", key)
	}
}

func TestLimiterStore_SweepsIdleBuckets(t *testing.T) {
	store := newLimiterStore(config.RateLimitConfig{PublicPerMinute: 1})
	start := time.Now()

	if wait := store.take(TierPublic, "203.0.113.1", start); wait != 0 {
		t.Fatalf("first request waited %s", wait)
	}
	if wait := store.take(TierPublic, "203.0.113.1", start); wait <= 0 {
		t.Fatal("second request in the same instant should wait")
	}

	later := start.Add(idleBucketTTL + time.Minute)
	store.take(TierPublic, "203.0.113.2", later)
	if _, ok := store.buckets["public:203.0.113.1"]; ok {
		t.Error("idle bucket survived the sweep")
	}
}

func TestRateLimit_StoresClientIP(t *testing.T) {
	var seen string
	handler := RateLimit(config.RateLimitConfig{TrustedProxyCIDRs: []string{"10.0.0.0/8"}}, testCookie, "test")(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { seen = ClientIP(r.Context()) }))

	req := httptest.NewRequest(http.MethodGet, "/api/feiseanna", nil)
	req.RemoteAddr = "10.1.2.3:443"
	req.Header.Set("X-Forwarded-For", "198.51.100.7")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "198.51.100.7" {
		t.Errorf("expected forwarded client IP, got %q", seen)
	}
}

func BenchmarkRateLimit_Allow(b *testing.B) {
	handler := limited(config.RateLimitConfig{PublicPerMinute: 1000})

	req := httptest.NewRequest(http.MethodGet, "/api/feiseanna", nil)
	req.RemoteAddr = "192.168.1.100:12345"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}
