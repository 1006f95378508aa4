package api

import (
	"net"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const mappedPrefix = "::ffff:"

// AccessGate admits only callers whose IP is on a static allowlist.
type AccessGate struct {
	allowed map[string]struct{}
	denied  prometheus.Counter
	logger  zerolog.Logger
}

// NewAccessGate builds a gate from a comma-separated list of IPv4 addresses.
// A nil counter disables the denial metric.
func NewAccessGate(raw string, logger zerolog.Logger, denied prometheus.Counter) *AccessGate {
	return &AccessGate{
		allowed: parseAllowList(raw),
		denied:  denied,
		logger:  logger,
	}
}

func parseAllowList(raw string) map[string]struct{} {
	allowed := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		ip := normalizeIP(part)
		if ip == "" {
			continue
		}
		allowed[ip] = struct{}{}
		allowed[mappedPrefix+ip] = struct{}{}
	}
	return allowed
}

// Empty reports whether the gate denies every caller.
func (g *AccessGate) Empty() bool {
	return len(g.allowed) == 0
}

// Allows reports whether the request's caller is on the allowlist.
func (g *AccessGate) Allows(r *http.Request) bool {
	ip := clientIP(r)
	if ip == "" {
		return false
	}
	_, ok := g.allowed[ip]
	return ok
}

// Middleware rejects callers that are not on the allowlist with a bare 403.
func (g *AccessGate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Allows(r) {
			if g.denied != nil {
				g.denied.Inc()
			}
			g.logger.Debug().Str("ip", clientIP(r)).Str("path", r.URL.Path).Msg("access denied")
			w.WriteHeader(http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the first X-Forwarded-For hop, or the peer address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := normalizeIP(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return normalizeIP(host)
}

func normalizeIP(raw string) string {
	ip := strings.ToLower(strings.TrimSpace(raw))
	ip = strings.TrimSuffix(strings.TrimPrefix(ip, "["), "]")
	return strings.TrimPrefix(ip, mappedPrefix)
}

// isSecure reports whether the request arrived over TLS, directly or via a
// terminating proxy.
func isSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	proto, _, _ := strings.Cut(r.Header.Get("X-Forwarded-Proto"), ",")
	return strings.EqualFold(strings.TrimSpace(proto), "https")
}
