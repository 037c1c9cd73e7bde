package support

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// NormalizeIP parses raw as an IP address and returns its canonical form.
// IPv4-mapped IPv6 addresses are unmapped. ok is false for anything that is
// not a bare address.
func NormalizeIP(raw string) (string, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	return addr.Unmap().String(), true
}

// ClientIP returns the address of the peer that sent r. When trustProxy is
// set the left-most X-Forwarded-For entry wins.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if ip, ok := NormalizeIP(first); ok {
				return ip
			}
		}
		if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
			if ip, ok := NormalizeIP(realIP); ok {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip, ok := NormalizeIP(host); ok {
		return ip
	}
	return host
}
