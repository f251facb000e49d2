package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// TrustedProxies makes c.RealIP() honour X-Real-IP and X-Forwarded-For only
// when the direct peer is inside one of trustedCIDRs. The submit and ingest
// rate limits key on this IP.
//
// Typical values for TRUSTED_PROXIES:
//   - "127.0.0.1/8"    -- localhost
//   - "10.0.0.0/8"     -- Docker default bridge network
//   - "172.16.0.0/12"  -- Docker bridge (alternative range)
//   - "192.168.0.0/16" -- common LAN range
func TrustedProxies(e *echo.Echo, trustedCIDRs []string) {
	// Echo's IPExtractor decides what c.RealIP() returns.
	e.IPExtractor = buildIPExtractor(trustedCIDRs)
}

// buildIPExtractor returns an extractor that reads forwarding headers only
// from peers inside trustedCIDRs.
func buildIPExtractor(trustedCIDRs []string) echo.IPExtractor {
	// Parse once at startup; the extractor runs on every request.
	var trusted []*net.IPNet
	for _, cidr := range trustedCIDRs {
		_, network, err := net.ParseCIDR(strings.TrimSpace(cidr))
		if err != nil {
			slog.Warn("ignoring invalid trusted proxy CIDR", slog.String("cidr", cidr))
			continue
		}
		trusted = append(trusted, network)
	}

	return func(req *http.Request) string {
		peer := peerIP(req.RemoteAddr)

		// A direct client could forge the headers, so they only count when
		// the peer is a known proxy.
		if !isTrusted(peer, trusted) {
			return peer
		}
		// X-Real-IP first (nginx and most reverse proxies set it).
		if ip := strings.TrimSpace(req.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
		// Then X-Forwarded-For; the leftmost entry is the original client.
		if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		return peer
	}
}

// peerIP strips the port from a "host:port" RemoteAddr.
func peerIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// isTrusted reports whether ipStr falls inside any trusted network.
func isTrusted(ipStr string, trusted []*net.IPNet) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, network := range trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
