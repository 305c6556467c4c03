package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	resolver, err := NewClientIPResolver(DefaultTrustedProxies)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{name: "direct", remote: "203.0.113.5:4000", want: "203.0.113.5"},
		{name: "untrusted peer ignores headers", remote: "203.0.113.5:4000", xff: "1.2.3.4", want: "203.0.113.5"},
		{name: "trusted proxy", remote: "10.0.0.2:80", xff: "198.51.100.7", want: "198.51.100.7"},
		{name: "skips trusted hops", remote: "10.0.0.2:80", xff: "198.51.100.7, 192.168.1.1", want: "198.51.100.7"},
		{name: "spoofed left hop", remote: "10.0.0.2:80", xff: "1.1.1.1, 198.51.100.7", want: "198.51.100.7"},
		{name: "all trusted", remote: "127.0.0.1:80", xff: "10.0.0.9", want: "10.0.0.9"},
		{name: "real ip header", remote: "127.0.0.1:80", xri: "198.51.100.9", want: "198.51.100.9"},
		{name: "garbage header", remote: "127.0.0.1:80", xff: "not-an-ip", want: "127.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := resolver.ClientIP(req); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewClientIPResolverRejectsBadCIDR(t *testing.T) {
	if _, err := NewClientIPResolver([]string{"10.0.0.0/33"}); err == nil {
		t.Fatal("expected error")
	}
}
