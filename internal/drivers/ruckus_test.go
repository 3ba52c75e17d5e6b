package drivers

import "testing"

const sampleRuckusSysInfo = `
Device Name     : ap-lobby
Model           : R610
Version         : 6.1.0.0.1620
Serial Number   : 941802001234
`

func TestParseRuckusField(t *testing.T) {
	if got := parseRuckusField(sampleRuckusSysInfo, "Device Name"); got != "ap-lobby" {
		t.Errorf("Device Name = %q", got)
	}
	if got := parseRuckusField(sampleRuckusSysInfo, "Model"); got != "R610" {
		t.Errorf("Model = %q", got)
	}
}

func TestParseRuckusClients(t *testing.T) {
	out := "AA:BB:CC:DD:EE:01   10.0.3.50   5GHz   wlan-corp\n" +
		"AA:BB:CC:DD:EE:02   10.0.3.51   2.4GHz  wlan-corp\n"
	clients := parseRuckusClients(out)
	if len(clients) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(clients))
	}
	if clients[0].MAC != "AA:BB:CC:DD:EE:01" || clients[0].IP != "10.0.3.50" {
		t.Errorf("client 0 = %+v", clients[0])
	}
	if clients[0].Type != "wireless-client" {
		t.Errorf("Type = %q, want wireless-client", clients[0].Type)
	}
}

func TestParseRuckusClients_ignoresLinesWithoutMAC(t *testing.T) {
	out := "no clients connected\n"
	if clients := parseRuckusClients(out); clients != nil {
		t.Errorf("expected nil, got %v", clients)
	}
}
