package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ridgeline-labs/netspan/pkg/models"
)

func openMigrated(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "gw.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Migrate(context.Background(), Migrations()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedNetwork(t *testing.T, s *Store) *models.Network {
	t.Helper()
	n := &models.Network{Name: "test-net", RootIP: "10.0.0.1"}
	if err := s.CreateNetwork(context.Background(), n); err != nil {
		t.Fatalf("CreateNetwork: %v", err)
	}
	return n
}

func TestUpsertDevice_insertThenUpdatePreservesUserFields(t *testing.T) {
	s := openMigrated(t)
	ctx := context.Background()
	net := seedNetwork(t, s)

	d := &models.Device{
		PrimaryMAC: "00:1A:2B:3C:4D:5E",
		NetworkID:  net.ID,
		Hostname:   "sw1",
		DeviceType: models.DeviceTypeSwitch,
	}
	created, err := s.UpsertDevice(ctx, d)
	if err != nil {
		t.Fatalf("UpsertDevice insert: %v", err)
	}
	if !created {
		t.Fatal("expected created=true on first upsert")
	}

	if err := s.SetUserFields(ctx, d.PrimaryMAC, models.Device{Comment: "core switch", AssetTag: "A-1"}); err != nil {
		t.Fatalf("SetUserFields: %v", err)
	}

	d.Hostname = "sw1-renamed"
	created, err = s.UpsertDevice(ctx, d)
	if err != nil {
		t.Fatalf("UpsertDevice update: %v", err)
	}
	if created {
		t.Fatal("expected created=false on second upsert")
	}

	got, err := s.GetDevice(ctx, d.PrimaryMAC)
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	if got.Hostname != "sw1-renamed" {
		t.Errorf("hostname = %q, want sw1-renamed", got.Hostname)
	}
	if got.Comment != "core switch" || got.AssetTag != "A-1" {
		t.Errorf("user-managed fields were overwritten by scan upsert: %+v", got)
	}
}

func TestReplaceInterfaces_deletesStaleRows(t *testing.T) {
	s := openMigrated(t)
	ctx := context.Background()
	net := seedNetwork(t, s)

	d := &models.Device{PrimaryMAC: "00:AA:BB:CC:DD:EE", NetworkID: net.ID}
	if _, err := s.UpsertDevice(ctx, d); err != nil {
		t.Fatalf("UpsertDevice: %v", err)
	}

	first := []models.Interface{{Name: "ether1"}, {Name: "ether2"}}
	if err := s.ReplaceInterfaces(ctx, d.PrimaryMAC, first); err != nil {
		t.Fatalf("ReplaceInterfaces first: %v", err)
	}

	second := []models.Interface{{Name: "ether1"}}
	if err := s.ReplaceInterfaces(ctx, d.PrimaryMAC, second); err != nil {
		t.Fatalf("ReplaceInterfaces second: %v", err)
	}

	ifaces, err := s.InterfacesForDevice(ctx, d.PrimaryMAC)
	if err != nil {
		t.Fatalf("InterfacesForDevice: %v", err)
	}
	if len(ifaces) != 1 || ifaces[0].Name != "ether1" {
		t.Fatalf("expected only ether1 to remain, got %+v", ifaces)
	}
}

func TestCredentialsForNetwork_ordersScopedFirst(t *testing.T) {
	s := openMigrated(t)
	ctx := context.Background()
	net := seedNetwork(t, s)

	global := &models.Credential{Username: "global-admin"}
	if err := s.UpsertCredential(ctx, global); err != nil {
		t.Fatalf("UpsertCredential global: %v", err)
	}
	scoped := &models.Credential{Username: "scoped-admin", NetworkID: &net.ID}
	if err := s.UpsertCredential(ctx, scoped); err != nil {
		t.Fatalf("UpsertCredential scoped: %v", err)
	}

	creds, err := s.CredentialsForNetwork(ctx, net.ID)
	if err != nil {
		t.Fatalf("CredentialsForNetwork: %v", err)
	}
	if len(creds) != 2 {
		t.Fatalf("expected 2 credentials, got %d", len(creds))
	}
	if creds[0].Username != "scoped-admin" {
		t.Errorf("expected scoped credential first, got %q", creds[0].Username)
	}
}

func TestMatchedCredential_recordAndLookup(t *testing.T) {
	s := openMigrated(t)
	ctx := context.Background()
	net := seedNetwork(t, s)

	cred := &models.Credential{Username: "admin", NetworkID: &net.ID}
	if err := s.UpsertCredential(ctx, cred); err != nil {
		t.Fatalf("UpsertCredential: %v", err)
	}

	if _, ok, err := s.MatchedCredentialFor(ctx, "00:11:22:33:44:55"); err != nil || ok {
		t.Fatalf("expected no match before recording, ok=%v err=%v", ok, err)
	}

	if err := s.RecordMatchedCredential(ctx, "00:11:22:33:44:55", cred.ID); err != nil {
		t.Fatalf("RecordMatchedCredential: %v", err)
	}

	got, ok, err := s.MatchedCredentialFor(ctx, "00:11:22:33:44:55")
	if err != nil || !ok {
		t.Fatalf("expected match after recording, ok=%v err=%v", ok, err)
	}
	if got != cred.ID {
		t.Errorf("matched credential = %q, want %q", got, cred.ID)
	}
}

func TestReconcileOrphanedScans_forceFailsRunningScan(t *testing.T) {
	s := openMigrated(t)
	ctx := context.Background()
	net := seedNetwork(t, s)

	sc := &models.Scan{NetworkID: net.ID}
	if err := s.CreateScan(ctx, sc); err != nil {
		t.Fatalf("CreateScan: %v", err)
	}

	n, err := s.ReconcileOrphanedScans(ctx)
	if err != nil {
		t.Fatalf("ReconcileOrphanedScans: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 reconciled scan, got %d", n)
	}

	got, err := s.GetScan(ctx, sc.ID)
	if err != nil {
		t.Fatalf("GetScan: %v", err)
	}
	if got.Status != models.ScanStatusFailed {
		t.Errorf("status = %q, want failed", got.Status)
	}
}
