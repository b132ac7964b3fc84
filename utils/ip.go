package utils

import (
	"net"
	"net/http"
	"strings"
)

// RealClientIP resolves the originating client address. Behind a proxy the
// X-Forwarded-For header holds a chain; the first entry is the client.
func RealClientIP(r *http.Request) string {
	if xfwd := r.Header.Get("X-Forwarded-For"); xfwd != "" {
		first, _, _ := strings.Cut(xfwd, ",")
		return strings.TrimSpace(first)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
