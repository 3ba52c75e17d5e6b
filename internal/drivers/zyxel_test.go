package drivers

import "testing"

const sampleSysInfo = `
System Name      : sw-floor3
Model             : GS1900-24
Firmware Version  : V2.70(ABTO.5)
Serial Number     : S210L12345678
`

func TestParseZyxelField(t *testing.T) {
	if got := parseZyxelField(sampleSysInfo, "System Name"); got != "sw-floor3" {
		t.Errorf("System Name = %q", got)
	}
	if got := parseZyxelField(sampleSysInfo, "Serial Number"); got != "S210L12345678" {
		t.Errorf("Serial Number = %q", got)
	}
}

func TestParseZyxelInterfaces(t *testing.T) {
	out := "Port   Name   Link   State\n" +
		"1      -      Up     Forwarding\n" +
		"2      -      Down   -\n"
	ifaces := parseZyxelInterfaces(out)
	if len(ifaces) != 2 {
		t.Fatalf("expected 2 interfaces, got %d: %+v", len(ifaces), ifaces)
	}
	if !ifaces[0].LinkUp {
		t.Errorf("port 1 should be up")
	}
	if ifaces[1].LinkUp {
		t.Errorf("port 2 should be down")
	}
}

func TestParseZyxelMacTable(t *testing.T) {
	out := "1    AA:BB:CC:DD:EE:01    1    Dynamic\n" +
		"1    AA:BB:CC:DD:EE:02    2    Dynamic\n"
	neighbors := parseZyxelMacTable(out)
	if len(neighbors) != 2 {
		t.Fatalf("expected 2 neighbors, got %d", len(neighbors))
	}
	if neighbors[0].Interface != "1" {
		t.Errorf("interface = %q, want 1", neighbors[0].Interface)
	}
}

func TestDetectZyxelUpstream_prefersExplicitConfig(t *testing.T) {
	runningConfig := "interface port-channel uplink 1\n"
	got := detectZyxelUpstream("", runningConfig)
	if got != "1" {
		t.Errorf("detectZyxelUpstream = %q, want 1", got)
	}
}

func TestDetectZyxelUpstream_fallsBackToMostSeenPort(t *testing.T) {
	macTable := "1  AA:BB:CC:DD:EE:01  5  Dynamic\n" +
		"1  AA:BB:CC:DD:EE:02  5  Dynamic\n" +
		"1  AA:BB:CC:DD:EE:03  3  Dynamic\n"
	got := detectZyxelUpstream(macTable, "")
	if got != "5" {
		t.Errorf("detectZyxelUpstream = %q, want 5", got)
	}
}

func TestSerialPattern_matchesFirstPageFormat(t *testing.T) {
	body := `<html><body>Serial: S210L98765432</body></html>`
	if m := serialPattern.FindString(body); m != "S210L98765432" {
		t.Errorf("serialPattern match = %q", m)
	}
}
