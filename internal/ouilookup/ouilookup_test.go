package ouilookup

import "testing"

func TestLookup_knownVendors(t *testing.T) {
	tests := []struct {
		mac  string
		want string
	}{
		{"4C:5E:0C:11:22:33", "MikroTik"},
		{"6c:3b:6b:aa:bb:cc", "MikroTik"},
		{"1C-74-0D-00-00-01", "Zyxel"},
		{"00:24:D7:12:34:56", "Ruckus Wireless"},
		{"00:01:02:03:04:05", "3Com"},
	}
	for _, tt := range tests {
		if got := Lookup(tt.mac); got != tt.want {
			t.Errorf("Lookup(%q) = %q, want %q", tt.mac, got, tt.want)
		}
	}
}

func TestLookup_unknownReturnsEmpty(t *testing.T) {
	if got := Lookup("02:00:00:00:00:01"); got != "" {
		t.Errorf("Lookup unknown OUI = %q, want empty", got)
	}
}

func TestLookup_malformedReturnsEmpty(t *testing.T) {
	for _, mac := range []string{"", "not-a-mac", "AB:CD"} {
		if got := Lookup(mac); got != "" {
			t.Errorf("Lookup(%q) = %q, want empty", mac, got)
		}
	}
}

func TestNormalizePrefix_handlesDashesAndCase(t *testing.T) {
	if got := normalizePrefix("4c-5e-0c-11-22-33"); got != "4C:5E:0C" {
		t.Errorf("normalizePrefix = %q, want 4C:5E:0C", got)
	}
}
