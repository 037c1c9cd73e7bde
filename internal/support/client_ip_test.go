package support

import (
	"net/http/httptest"
	"testing"
)

func TestNormalizeIP(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{" 1.2.3.4 ", "1.2.3.4", true},
		{"::ffff:10.0.0.1", "10.0.0.1", true},
		{"2001:DB8::1", "2001:db8::1", true},
		{"1.2.3", "", false},
		{"10.0.0.0/24", "", false},
	}

	for _, tc := range cases {
		got, ok := NormalizeIP(tc.raw)
		if got != tc.want || ok != tc.ok {
			t.Errorf("NormalizeIP(%q) = (%q, %v), want (%q, %v)", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.10:51234"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	if got := ClientIP(req, false); got != "192.0.2.10" {
		t.Fatalf("ClientIP without proxy trust = %q, want 192.0.2.10", got)
	}
	if got := ClientIP(req, true); got != "203.0.113.7" {
		t.Fatalf("ClientIP with proxy trust = %q, want 203.0.113.7", got)
	}
}
