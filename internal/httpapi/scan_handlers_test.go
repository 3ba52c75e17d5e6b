package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ridgeline-labs/netspan/internal/mdns"
	"github.com/ridgeline-labs/netspan/internal/prober"
	"github.com/ridgeline-labs/netspan/internal/scanner"
	"github.com/ridgeline-labs/netspan/internal/sshconn"
	"github.com/ridgeline-labs/netspan/internal/store"
	"github.com/ridgeline-labs/netspan/pkg/models"
)

func newTestHandlers(t *testing.T) (*ScanHandlers, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	prb := prober.New(50*time.Millisecond, 4, nil)
	sshClient := sshconn.New(nil)
	sweeper := mdns.New(50*time.Millisecond, nil)
	orch := scanner.New(s, nil, sshClient, prb, sweeper, nil)
	return NewScanHandlers(orch, s, nil), s
}

func mustCreateNetwork(t *testing.T, s *store.Store, id string) {
	t.Helper()
	err := s.CreateNetwork(context.Background(), &models.Network{
		ID:           id,
		Name:         "test-net",
		RootIP:       "10.0.0.1",
		RootUsername: "admin",
		RootPassword: "admin",
	})
	if err != nil {
		t.Fatalf("CreateNetwork: %v", err)
	}
}

func TestHandleStart_unknownNetwork(t *testing.T) {
	h, _ := newTestHandlers(t)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodPost, "/scan/does-not-exist/start", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestHandleStart_conflictOnSecondStart(t *testing.T) {
	h, s := newTestHandlers(t)
	mustCreateNetwork(t, s, "net-1")
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	first := httptest.NewRequest(http.MethodPost, "/scan/net-1/start", nil)
	rr1 := httptest.NewRecorder()
	mux.ServeHTTP(rr1, first)
	if rr1.Code != http.StatusAccepted {
		t.Fatalf("first start status = %d, want %d", rr1.Code, http.StatusAccepted)
	}

	second := httptest.NewRequest(http.MethodPost, "/scan/net-1/start", nil)
	rr2 := httptest.NewRecorder()
	mux.ServeHTTP(rr2, second)
	if rr2.Code != http.StatusConflict {
		t.Errorf("second start status = %d, want %d", rr2.Code, http.StatusConflict)
	}

	h.orchestrator.Stop("net-1")
}

func TestHandleStatus_noScanYet(t *testing.T) {
	h, s := newTestHandlers(t)
	mustCreateNetwork(t, s, "net-2")
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/scan/net-2/status", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestHandleLogs_afterOffset(t *testing.T) {
	h, s := newTestHandlers(t)
	mustCreateNetwork(t, s, "net-3")
	ctx := context.Background()

	scan := &models.Scan{ID: "scan-1", NetworkID: "net-3", Status: models.ScanStatusRunning, StartedAt: time.Now()}
	if err := s.CreateScan(ctx, scan); err != nil {
		t.Fatalf("CreateScan: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := s.AppendScanLog(ctx, models.ScanLog{ScanID: "scan-1", Level: models.LogInfo, Message: "line"}); err != nil {
			t.Fatalf("AppendScanLog: %v", err)
		}
	}

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/scan/net-3/logs?after=1", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%s", rr.Code, http.StatusOK, rr.Body.String())
	}
}

func TestParseAfter(t *testing.T) {
	cases := []struct {
		query string
		want  int64
	}{
		{"", 0},
		{"after=5", 5},
		{"after=-1", 0},
		{"after=notanumber", 0},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "/x?"+c.query, nil)
		if got := parseAfter(req); got != c.want {
			t.Errorf("parseAfter(%q) = %d, want %d", c.query, got, c.want)
		}
	}
}
