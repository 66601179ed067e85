package middleware

import (
	"net/http"
	"strings"
)

// securityHeaders follow the OWASP REST Security Cheat Sheet. Probe and
// greeting responses are never meant to be cached or framed.
var securityHeaders = [][2]string{
	{"Cache-Control", "no-store"},
	{"Content-Security-Policy", "frame-ancestors 'none'"},
	{"Cross-Origin-Opener-Policy", "same-origin"},
	{"Cross-Origin-Resource-Policy", "same-origin"},
	{"Permissions-Policy", "accelerometer=(), camera=(), geolocation=(), gyroscope=(), magnetometer=(), microphone=(), payment=(), usb=()"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
}

// Security sets security headers on every response whose path does not start
// with one of skipPrefixes. Empty prefixes are ignored.
func Security(skipPrefixes ...string) func(http.Handler) http.Handler {
	prefixes := make([]string, 0, len(skipPrefixes))
	for _, p := range skipPrefixes {
		if p != "" {
			prefixes = append(prefixes, p)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range prefixes {
				if strings.HasPrefix(r.URL.Path, p) {
					next.ServeHTTP(w, r)
					return
				}
			}
			h := w.Header()
			for _, kv := range securityHeaders {
				h.Set(kv[0], kv[1])
			}
			next.ServeHTTP(w, r)
		})
	}
}
