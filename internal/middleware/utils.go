package middleware

import (
	"net"
	"net/http"
	"strings"
)

// GetClientIP extracts the client IP used as the rate limit identifier.
// Proxy headers win over the socket address; the first X-Forwarded-For hop
// is the original client.
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])

		if net.ParseIP(first) != nil {
			return first
		}
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		if net.ParseIP(realIP) != nil {
			return realIP
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)

	if err != nil {
		return r.RemoteAddr
	}

	return host
}
