package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/frahmantamala/resto-order/internal"
)

// Limiter counts hits per key inside a fixed window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit throttles by client IP as resolved by ips. A nil resolver keys on
// the socket address only. Limiter failures let the request through so an
// unavailable Redis never blocks gateway callbacks.
func RateLimit(limiter Limiter, ips *ClientIPResolver, scope string, limit int, window time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ips.Resolve(r)
			ctx := internal.ContextWithRequestIP(r.Context(), ip)

			if limiter != nil {
				allowed, err := limiter.Allow(ctx, scope+":"+ip, limit, window)
				if err != nil {
					logger.Warn("rate limiter unavailable, allowing request", "scope", scope, "ip", ip, "error", err)
				} else if !allowed {
					logger.Warn("rate limit exceeded", "scope", scope, "ip", ip, "limit", limit, "window", window.String())
					w.Header().Set("Content-Type", "application/json")
					w.Header().Set("Retry-After", formatSeconds(window))
					w.WriteHeader(http.StatusTooManyRequests)
					_ = json.NewEncoder(w).Encode(map[string]interface{}{
						"success": false,
						"message": "too many requests",
					})
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIPResolver honours forwarding headers only when the socket peer is a
// trusted proxy.
type ClientIPResolver struct {
	trusted []*net.IPNet
}

// NewClientIPResolver parses a comma separated list of IPs or CIDRs. An empty
// list trusts nobody.
func NewClientIPResolver(trustedProxies string) (*ClientIPResolver, error) {
	res := &ClientIPResolver{}
	for _, entry := range strings.Split(trustedProxies, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			if ip := net.ParseIP(entry); ip != nil && ip.To4() != nil {
				entry += "/32"
			} else {
				entry += "/128"
			}
		}
		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		res.trusted = append(res.trusted, network)
	}
	return res, nil
}

func (c *ClientIPResolver) isTrusted(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, n := range c.trusted {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}

// Resolve returns the socket peer unless it is a trusted proxy. Behind a
// trusted proxy it walks X-Forwarded-For right to left and returns the first
// untrusted hop, so values prepended by the caller are never used.
func (c *ClientIPResolver) Resolve(r *http.Request) string {
	peer := ClientIP(r)
	if c == nil || !c.isTrusted(peer) {
		return peer
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if net.ParseIP(hop) == nil {
			// garbage in the chain; stop before trusting anything left of it
			return peer
		}
		if !c.isTrusted(hop) {
			return hop
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(real) != nil {
		return real
	}
	return peer
}

// ClientIP is the socket peer address without the port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func formatSeconds(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
