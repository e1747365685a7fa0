package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"hrflow/internal/transport/http/api"
)

// RateLimitKeyFunc picks the bucket a request is counted against.
type RateLimitKeyFunc func(r *http.Request) string

const sweepEvery = 256

// slidingLimiter admits at most limit requests per key in any trailing
// window. Each key keeps the timestamps of its admitted requests, oldest
// first; rejected requests are not recorded.
type slidingLimiter struct {
	limit  int
	window time.Duration
	key    RateLimitKeyFunc
	now    func() time.Time

	mu    sync.Mutex
	hits  map[string][]time.Time
	calls int
}

type admission struct {
	allowed   bool
	remaining int
	resetIn   time.Duration
}

func newSlidingLimiter(limit int, window time.Duration, key RateLimitKeyFunc) *slidingLimiter {
	if key == nil {
		key = actorOrIPKey
	}
	return &slidingLimiter{
		limit:  limit,
		window: window,
		key:    key,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
	}
}

func (l *slidingLimiter) admit(key string) admission {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls++
	if l.calls%sweepEvery == 0 {
		l.sweep(cutoff)
	}

	recent := dropBefore(l.hits[key], cutoff)
	if len(recent) >= l.limit {
		l.hits[key] = recent
		return admission{remaining: 0, resetIn: recent[0].Sub(cutoff)}
	}
	recent = append(recent, now)
	l.hits[key] = recent
	return admission{
		allowed:   true,
		remaining: l.limit - len(recent),
		resetIn:   recent[0].Sub(cutoff),
	}
}

// sweep forgets keys with no hit inside the window. Caller holds mu.
func (l *slidingLimiter) sweep(cutoff time.Time) {
	for key, times := range l.hits {
		if len(times) == 0 || !times[len(times)-1].After(cutoff) {
			delete(l.hits, key)
		}
	}
}

func dropBefore(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	return times[i:]
}

// allow writes the X-RateLimit headers and, once the key is over its limit,
// a 429 response. It reports whether the request may continue.
func (l *slidingLimiter) allow(w http.ResponseWriter, r *http.Request) bool {
	if l.limit <= 0 {
		return true
	}
	key := l.key(r)
	if key == "" {
		key = clientIP(r)
	}
	res := l.admit(key)
	resetSec := ceilSeconds(res.resetIn)

	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.remaining))
	h.Set("X-RateLimit-Reset", strconv.Itoa(resetSec))
	if res.allowed {
		return true
	}

	h.Set("Retry-After", strconv.Itoa(max(resetSec, 1)))
	zerolog.Ctx(r.Context()).Warn().
		Str("key", key).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("limit", l.limit).
		Dur("window", l.window).
		Msg("rate limit exceeded")
	api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	return false
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

// RateLimit caps every request per authenticated employee, or per client
// address for anonymous callers.
func RateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	l := newSlidingLimiter(limit, window, actorOrIPKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.allow(w, r) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// SensitiveMutationRateLimit adds tighter limits on login, MFA and the
// decision endpoints. Login attempts are counted both per address and per
// employee code.
func SensitiveMutationRateLimit(baseLimit int, window time.Duration) func(http.Handler) http.Handler {
	authLimit := max(baseLimit/4, 1)
	actorLimit := max(baseLimit/2, 1)
	limiters := map[sensitiveScope][]*slidingLimiter{
		sensitiveScopeAuth: {
			newSlidingLimiter(authLimit, window, clientIP),
			newSlidingLimiter(authLimit, window, AuthFieldOrIPKey("code")),
		},
		sensitiveScopeActor: {
			newSlidingLimiter(actorLimit, window, actorOrIPKey),
		},
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, l := range limiters[sensitiveRateScope(r)] {
				if !l.allow(w, r) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthFieldOrIPKey keys login attempts by the employee code in the JSON
// body so one account cannot be brute forced from many addresses.
func AuthFieldOrIPKey(field string) RateLimitKeyFunc {
	field = strings.TrimSpace(field)
	if field == "" {
		field = "code"
	}
	return func(r *http.Request) string {
		if value := peekJSONString(r, field); value != "" {
			return field + ":" + strings.ToUpper(value)
		}
		return clientIP(r)
	}
}

func actorOrIPKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.EmployeeCode != "" {
		return "employee:" + user.EmployeeCode
	}
	return clientIP(r)
}

// clientIP prefers the first X-Forwarded-For hop over the socket address.
func clientIP(r *http.Request) string {
	first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	if first = strings.TrimSpace(first); first != "" {
		return first
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	return addr
}

// peekJSONString reads one top-level string field from a JSON body and
// restores the body for the handler.
func peekJSONString(r *http.Request, field string) string {
	if r == nil || r.Body == nil {
		return ""
	}
	if !strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ""
	}
	var value string
	if err := json.Unmarshal(fields[field], &value); err != nil {
		return ""
	}
	return strings.TrimSpace(value)
}

type sensitiveScope int

const (
	sensitiveScopeNone sensitiveScope = iota
	sensitiveScopeAuth
	sensitiveScopeActor
)

type scopeRule struct {
	prefix string
	suffix string
	scope  sensitiveScope
}

// Rules match the path below /api/v1. An empty suffix means an exact match.
var sensitiveRules = []scopeRule{
	{prefix: "/auth/login", scope: sensitiveScopeAuth},
	{prefix: "/auth/mfa/setup", scope: sensitiveScopeAuth},
	{prefix: "/auth/mfa/enable", scope: sensitiveScopeAuth},
	{prefix: "/requests", scope: sensitiveScopeActor},
	{prefix: "/requests/", suffix: "/approve", scope: sensitiveScopeActor},
	{prefix: "/requests/", suffix: "/reject", scope: sensitiveScopeActor},
	{prefix: "/employees/", suffix: "/deactivate", scope: sensitiveScopeActor},
	{prefix: "/employees/", suffix: "/rejoin", scope: sensitiveScopeActor},
	{prefix: "/directory/refresh", scope: sensitiveScopeActor},
}

func sensitiveRateScope(r *http.Request) sensitiveScope {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return sensitiveScopeNone
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/v1")
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	for _, rule := range sensitiveRules {
		if rule.suffix == "" {
			if path == rule.prefix {
				return rule.scope
			}
			continue
		}
		if strings.HasPrefix(path, rule.prefix) && strings.HasSuffix(path, rule.suffix) {
			return rule.scope
		}
	}
	return sensitiveScopeNone
}
