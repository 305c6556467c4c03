package http

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// DefaultTrustedProxies are the networks allowed to set forwarding headers.
var DefaultTrustedProxies = []string{
	"127.0.0.0/8",
	"::1/128",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
}

// ClientIPResolver finds the caller's address behind trusted proxies.
type ClientIPResolver struct {
	trusted []*net.IPNet
}

func NewClientIPResolver(cidrs []string) (*ClientIPResolver, error) {
	r := &ClientIPResolver{}
	for _, c := range cidrs {
		_, network, err := net.ParseCIDR(c)
		if err != nil {
			return nil, fmt.Errorf("parse trusted proxy %q: %w", c, err)
		}
		r.trusted = append(r.trusted, network)
	}
	return r, nil
}

func (r *ClientIPResolver) isTrusted(ip net.IP) bool {
	for _, network := range r.trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the peer address, or the first untrusted hop of
// X-Forwarded-For read right to left when the peer is a trusted proxy.
func (r *ClientIPResolver) ClientIP(req *http.Request) string {
	peer, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		peer = req.RemoteAddr
	}
	ip := net.ParseIP(peer)
	if ip == nil || !r.isTrusted(ip) {
		return peer
	}

	if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := net.ParseIP(strings.TrimSpace(hops[i]))
			if hop == nil {
				break
			}
			if !r.isTrusted(hop) || i == 0 {
				return hop.String()
			}
		}
	}
	if xri := net.ParseIP(strings.TrimSpace(req.Header.Get("X-Real-IP"))); xri != nil {
		return xri.String()
	}
	return peer
}
