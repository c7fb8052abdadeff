// Package clientkey resolves the rate limiter's notion of "client" from
// an inbound HTTP request, honoring a configured reverse-proxy hop count.
package clientkey

import (
	"net"
	"net/http"
	"strings"
)

// Resolve implements : with trustedProxies == 0, the direct
// socket address is the key. Otherwise the X-Forwarded-For header is
// split on commas and the entry at position length-trustedProxies
// (clamped at 0) is used; a missing or empty header falls back to the
// socket address.
func Resolve(r *http.Request, trustedProxies int) string {
	host := socketHost(r.RemoteAddr)

	if trustedProxies <= 0 {
		return host
	}

	xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if xff == "" {
		return host
	}

	parts := strings.Split(xff, ",")
	idx := len(parts) - trustedProxies
	if idx < 0 {
		idx = 0
	}
	return strings.TrimSpace(parts[idx])
}

func socketHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
