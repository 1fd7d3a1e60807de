package app

import (
	"net"
	"strings"
)

// SanitizeIP picks the first X-Forwarded-For entry, falling back to the peer
// address, and unwraps IPv4-mapped IPv6 ("::ffff:1.2.3.4").
func SanitizeIP(forwardedFor, remoteAddr string) string {
	ip := ""
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		ip = strings.TrimSpace(first)
	}
	if ip == "" {
		ip = remoteAddr
		if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
			ip = host
		}
	}
	return strings.TrimPrefix(ip, "::ffff:")
}
