package snmpwalk

import (
	"testing"

	"github.com/gosnmp/gosnmp"
)

func TestNew_defaults(t *testing.T) {
	c := New("10.0.0.1", 0, "public", 0)
	if c.port != 161 {
		t.Errorf("port = %d, want 161", c.port)
	}
	if c.timeout <= 0 {
		t.Errorf("timeout = %v, want positive default", c.timeout)
	}
}

func TestFormatMAC(t *testing.T) {
	got := formatMAC([]byte{0x00, 0x1A, 0x2B, 0x3C, 0x4D, 0x5E})
	want := "00:1A:2B:3C:4D:5E"
	if got != want {
		t.Errorf("formatMAC = %q, want %q", got, want)
	}
}

func TestLastOIDIndex(t *testing.T) {
	tests := []struct {
		oid  string
		want int
	}{
		{".1.3.6.1.2.1.2.2.1.2.3", 3},
		{"1.3.6.1.2.1.2.2.1.2.12", 12},
		{"no-dots", -1},
		{"trailing.", -1},
	}
	for _, tt := range tests {
		if got := lastOIDIndex(tt.oid); got != tt.want {
			t.Errorf("lastOIDIndex(%q) = %d, want %d", tt.oid, got, tt.want)
		}
	}
}

func TestOidPrefix(t *testing.T) {
	got := oidPrefix(".1.3.6.1.2.1.2.2.1.2.3")
	want := "1.3.6.1.2.1.2.2.1.2"
	if got != want {
		t.Errorf("oidPrefix = %q, want %q", got, want)
	}
}

func TestFdbAddressFromIndex(t *testing.T) {
	oid := "." + OIDFdbPort + ".0.26.43.60.77.94"
	got := fdbAddressFromIndex(oid)
	want := "00:1A:2B:3C:4D:5E"
	if got != want {
		t.Errorf("fdbAddressFromIndex(%q) = %q, want %q", oid, got, want)
	}
}

func TestFdbAddressFromIndex_malformed(t *testing.T) {
	if got := fdbAddressFromIndex("." + OIDFdbPort + ".1.2.3"); got != "" {
		t.Errorf("expected empty string for malformed index, got %q", got)
	}
}

func TestPduString(t *testing.T) {
	pdu := gosnmp.SnmpPDU{Value: []byte("sw-floor3")}
	if got := pduString(pdu); got != "sw-floor3" {
		t.Errorf("pduString = %q, want sw-floor3", got)
	}
}

func TestPduInt(t *testing.T) {
	tests := []struct {
		value any
		want  int
	}{
		{int(5), 5},
		{int64(6), 6},
		{uint32(7), 7},
		{uint64(8), 8},
		{"not-a-number", 0},
	}
	for _, tt := range tests {
		pdu := gosnmp.SnmpPDU{Value: tt.value}
		if got := pduInt(pdu); got != tt.want {
			t.Errorf("pduInt(%v) = %d, want %d", tt.value, got, tt.want)
		}
	}
}
