package middleware

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const rateLimitScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if current > tonumber(ARGV[2]) then
  return 0
end
return 1
`

const rateLimitKeyPrefix = "rateLimit:"

// RedisLimiter is a fixed-window counter shared by every server instance.
// Redis failures let the request through.
type RedisLimiter struct {
	client  redis.Scripter
	script  *redis.Script
	timeout time.Duration
	logger  *logrus.Logger
}

func NewRedisLimiter(client redis.Scripter, timeout time.Duration, logger *logrus.Logger) *RedisLimiter {
	return &RedisLimiter{
		client:  client,
		script:  redis.NewScript(rateLimitScript),
		timeout: timeout,
		logger:  logger,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) bool {
	if key == "" || limit <= 0 || window <= 0 {
		return true
	}

	ttl := window.Milliseconds()
	if ttl <= 0 {
		ttl = 1
	}

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	allowed, err := l.script.Run(ctx, l.client, []string{rateLimitKeyPrefix + key}, ttl, limit).Int64()
	if err != nil {
		l.logger.WithError(err).Warn("Rate limiter unavailable, allowing request")
		return true
	}
	return allowed == 1
}

func (l *RedisLimiter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.timeout)
}

// RateLimit rejects requests with 429 once the client exceeds limit within
// window. Clients are told apart by ClientIP with the given trusted proxies.
func RateLimit(limiter *RedisLimiter, scope string, limit int, window time.Duration, trustedProxies []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(r.Context(), scope+":"+ClientIP(r, trustedProxies), limit, window) {
				respondJSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the address of the connecting peer. When the peer is a
// trusted proxy, X-Forwarded-For is walked from the right and the first hop
// that is not a trusted proxy wins.
func ClientIP(r *http.Request, trustedProxies []netip.Prefix) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	peer, err := netip.ParseAddr(host)
	if err != nil || !isTrusted(peer, trustedProxies) {
		return host
	}

	var hops []string
	for _, header := range r.Header.Values("X-Forwarded-For") {
		for _, hop := range strings.Split(header, ",") {
			if hop = strings.TrimSpace(hop); hop != "" {
				hops = append(hops, hop)
			}
		}
	}

	client := host
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(hops[i])
		if err != nil {
			// Anything left of a hop we cannot parse is client controlled.
			return client
		}
		client = addr.Unmap().String()
		if !isTrusted(addr, trustedProxies) {
			return client
		}
	}
	return client
}

func isTrusted(addr netip.Addr, trustedProxies []netip.Prefix) bool {
	addr = addr.Unmap()
	for _, prefix := range trustedProxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
