package mdns

import (
	"net"
	"testing"

	"github.com/miekg/dns"
)

func TestNew_defaultBudget(t *testing.T) {
	s := New(0, nil)
	if s.budget != defaultBudget {
		t.Errorf("budget = %v, want %v", s.budget, defaultBudget)
	}
}

func TestTrimServiceName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"sw-floor3.local.", "sw-floor3"},
		{"sw-floor3._ssh._tcp.local.", "sw-floor3"},
		{"router._http._tcp.local", "router"},
		{"plainhost", "plainhost"},
	}
	for _, tt := range tests {
		if got := trimServiceName(tt.in); got != tt.want {
			t.Errorf("trimServiceName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRecordHints_fromARecord(t *testing.T) {
	hints := make(map[string]string)
	msg := &dns.Msg{
		Answer: []dns.RR{
			&dns.A{
				Hdr: dns.RR_Header{Name: "sw-floor3.local."},
				A:   net.ParseIP("10.0.3.1"),
			},
		},
	}
	recordHints(hints, msg, "10.0.3.1")
	if hints["10.0.3.1"] != "sw-floor3" {
		t.Errorf("hints[10.0.3.1] = %q, want sw-floor3", hints["10.0.3.1"])
	}
}

func TestRecordHints_fallsBackToSourceIP(t *testing.T) {
	hints := make(map[string]string)
	msg := &dns.Msg{
		Answer: []dns.RR{
			&dns.PTR{
				Hdr: dns.RR_Header{Name: "_ssh._tcp.local."},
				Ptr: "ap-lobby._ssh._tcp.local.",
			},
		},
	}
	recordHints(hints, msg, "10.0.3.5")
	if hints["10.0.3.5"] != "ap-lobby" {
		t.Errorf("hints[10.0.3.5] = %q, want ap-lobby", hints["10.0.3.5"])
	}
}

func TestRecordHints_doesNotOverwriteExistingHint(t *testing.T) {
	hints := map[string]string{"10.0.3.1": "first-seen"}
	msg := &dns.Msg{
		Answer: []dns.RR{
			&dns.A{
				Hdr: dns.RR_Header{Name: "second-seen.local."},
				A:   net.ParseIP("10.0.3.1"),
			},
		},
	}
	recordHints(hints, msg, "10.0.3.1")
	if hints["10.0.3.1"] != "first-seen" {
		t.Errorf("hints[10.0.3.1] = %q, want first-seen preserved", hints["10.0.3.1"])
	}
}

func TestRecordHints_noAnswersYieldsNoHint(t *testing.T) {
	hints := make(map[string]string)
	recordHints(hints, &dns.Msg{}, "10.0.3.9")
	if len(hints) != 0 {
		t.Errorf("expected no hints from empty message, got %v", hints)
	}
}
