package ipgeo

import (
	"net/netip"
	"testing"
)

func TestTailscalePrefix(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"100.64.0.1", true},
		{"100.127.255.254", true},
		{"100.63.255.255", false},
		{"100.128.0.0", false},
	}
	for _, tt := range tests {
		addr := netip.MustParseAddr(tt.ip)
		if got := tailscalePrefix.Contains(addr); got != tt.want {
			t.Errorf("tailscalePrefix.Contains(%s) = %v, want %v", tt.ip, got, tt.want)
		}
	}
}

func TestCountryCodeWithoutDatabase(t *testing.T) {
	c, err := Open("")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Close() }()
	tests := []struct {
		ip   string
		want string
	}{
		{"127.0.0.1", Local},
		{"::1", Local},
		{"::ffff:10.0.0.1", Local},
		{"192.168.1.1", Local},
		{"172.16.0.1", Local},
		{"0.0.0.0", Local},
		{"169.254.1.1", Local},
		{"fe80::1", Local},
		{"100.64.0.1", Tailscale},
		{"100.100.100.100", Tailscale},
		{"203.0.113.9", ""},
		{"not-an-ip", ""},
	}
	for _, tt := range tests {
		if got := c.CountryCode(tt.ip); got != tt.want {
			t.Errorf("CountryCode(%q) = %q, want %q", tt.ip, got, tt.want)
		}
	}
}

func TestOpenMissing(t *testing.T) {
	if _, err := Open("/nonexistent/GeoLite2-Country.mmdb"); err == nil {
		t.Error("Open() of a missing file should fail")
	}
}
