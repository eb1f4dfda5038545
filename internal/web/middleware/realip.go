package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// TrustedRealIP rewrites r.RemoteAddr to the client address carried in
// X-Real-IP or X-Forwarded-For, but only when the connection itself comes
// from one of the configured proxy networks. Anyone else could forge those
// headers to dodge the per-IP upload limits, so their headers are ignored
// and the connection address stands.
func TrustedRealIP(proxies []string) func(http.Handler) http.Handler {
	nets := parseProxyList(proxies)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if fromTrustedProxy(r.RemoteAddr, nets) {
				if ip := forwardedClient(r.Header); ip != nil {
					r.RemoteAddr = ip.String()
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// parseProxyList accepts CIDRs and bare addresses; bad entries are logged
// and skipped rather than failing startup.
func parseProxyList(proxies []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, p := range proxies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, network, err := net.ParseCIDR(p); err == nil {
			nets = append(nets, network)
			continue
		}
		ip := net.ParseIP(p)
		if ip == nil {
			slog.Warn("ignoring invalid trusted proxy entry", "entry", p)
			continue
		}
		bits := 128
		if ip.To4() != nil {
			bits = 32
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return nets
}

func fromTrustedProxy(remoteAddr string, nets []*net.IPNet) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// forwardedClient picks X-Real-IP first, then the first hop of
// X-Forwarded-For. An unparseable value yields nil and the caller keeps the
// connection address.
func forwardedClient(h http.Header) net.IP {
	if v := strings.TrimSpace(h.Get("X-Real-IP")); v != "" {
		return net.ParseIP(v)
	}
	v := h.Get("X-Forwarded-For")
	if v == "" {
		return nil
	}
	first, _, _ := strings.Cut(v, ",")
	return net.ParseIP(strings.TrimSpace(first))
}
