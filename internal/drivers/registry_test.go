package drivers

import "testing"

func TestClassify_byOUITakesPriority(t *testing.T) {
	name, confidence, source := Classify("4C:5E:0C:11:22:33", "SSH-2.0-OpenSSH_7.4")
	if name != "mikrotik-cli" {
		t.Errorf("name = %q, want mikrotik-cli", name)
	}
	if confidence != 0.9 || source != "oui" {
		t.Errorf("confidence/source = %v/%v, want 0.9/oui", confidence, source)
	}
}

func TestClassify_fallsBackToBanner(t *testing.T) {
	name, confidence, source := Classify("00:00:00:00:00:00", "SSH-2.0-ZyNOS")
	if name != "zyxel" {
		t.Errorf("name = %q, want zyxel", name)
	}
	if confidence != 0.6 || source != "banner" {
		t.Errorf("confidence/source = %v/%v, want 0.6/banner", confidence, source)
	}
}

func TestClassify_unknownYieldsEmpty(t *testing.T) {
	name, confidence, source := Classify("00:00:00:00:00:00", "SSH-2.0-OpenSSH_8.0")
	if name != "" || confidence != 0 || source != "" {
		t.Errorf("expected empty classification, got %q/%v/%v", name, confidence, source)
	}
}

func TestDriverForVendor_knownVendors(t *testing.T) {
	tests := map[string]string{
		"MikroTik":       "mikrotik-cli",
		"Zyxel Communications": "zyxel",
		"3Com Corp":      "threecom",
		"Ruckus Wireless": "ruckus",
	}
	for vendor, want := range tests {
		got, ok := driverForVendor(vendor)
		if !ok || got != want {
			t.Errorf("driverForVendor(%q) = %q, %v; want %q, true", vendor, got, ok, want)
		}
	}
}

func TestDriverForBanner_routerosMatches(t *testing.T) {
	got, ok := driverForBanner("SSH-2.0-ROSSSH")
	if !ok || got != "mikrotik-cli" {
		t.Errorf("driverForBanner = %q, %v; want mikrotik-cli, true", got, ok)
	}
}

func TestExtractMAC_findsAndNormalizes(t *testing.T) {
	got := extractMAC("System Information\nMAC Address: aa-bb-cc-dd-ee-ff\nModel: GS1900")
	if got != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("extractMAC = %q, want AA:BB:CC:DD:EE:FF", got)
	}
}

func TestExtractMAC_noMatch(t *testing.T) {
	if got := extractMAC("no address here"); got != "" {
		t.Errorf("extractMAC = %q, want empty", got)
	}
}

func TestRegistry_containsAllFiveDrivers(t *testing.T) {
	for _, name := range []string{"mikrotik-cli", "mikrotik-api", "zyxel", "threecom", "ruckus"} {
		d, ok := Registry[name]
		if !ok {
			t.Fatalf("registry missing driver %q", name)
		}
		if d.Name() != name {
			t.Errorf("driver %q reports Name() = %q", name, d.Name())
		}
	}
}

func TestRegistry_shellOnlyFlags(t *testing.T) {
	shellOnly := map[string]bool{
		"mikrotik-cli": false,
		"mikrotik-api": false,
		"zyxel":        true,
		"threecom":     true,
		"ruckus":       true,
	}
	for name, want := range shellOnly {
		if got := Registry[name].ShellOnly(); got != want {
			t.Errorf("%s.ShellOnly() = %v, want %v", name, got, want)
		}
	}
}
