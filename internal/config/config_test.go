package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	v, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := v.GetString("server.host"); got != "0.0.0.0" {
		t.Errorf("server.host = %q, want 0.0.0.0", got)
	}
	if got := v.GetInt("server.port"); got != 8080 {
		t.Errorf("server.port = %d, want 8080", got)
	}
	if got := v.GetString("database.path"); got != "netspan.db" {
		t.Errorf("database.path = %q, want netspan.db", got)
	}
	if got := v.GetString("snmp.community"); got != "public" {
		t.Errorf("snmp.community = %q, want public", got)
	}
	if !v.GetBool("mdns.enabled") {
		t.Error("mdns.enabled should default to true")
	}
}

func TestConfigWrapsViper(t *testing.T) {
	v, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	cfg := New(v)
	if cfg.GetInt("scan.concurrency") != 32 {
		t.Errorf("scan.concurrency = %d, want 32", cfg.GetInt("scan.concurrency"))
	}

	sub := cfg.Sub("scan")
	if sub.GetInt("concurrency") != 32 {
		t.Errorf("sub scan.concurrency = %d, want 32", sub.GetInt("concurrency"))
	}
}
