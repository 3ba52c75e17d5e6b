package prober

import (
	"context"
	"net"
	"testing"
	"time"

	"go.uber.org/zap"
)

func listenOn(t *testing.T) (ip string, port int, closeFn func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()
	addr := ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port, func() { ln.Close() }
}

func TestNew_defaults(t *testing.T) {
	p := New(0, 0, zap.NewNop())
	if p.timeout != 3*time.Second {
		t.Errorf("expected default timeout 3s, got %v", p.timeout)
	}
	p = New(-time.Second, -5, zap.NewNop())
	if p.timeout != 3*time.Second {
		t.Errorf("expected default timeout for negative input, got %v", p.timeout)
	}
}

func TestScan_findsOpenPort(t *testing.T) {
	ip, port, closeFn := listenOn(t)
	defer closeFn()

	closedLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	closedPort := closedLn.Addr().(*net.TCPAddr).Port
	closedLn.Close()

	p := New(500*time.Millisecond, 10, zap.NewNop())
	result := p.Scan(context.Background(), ip, []int{port, closedPort})

	if len(result.OpenPorts) != 1 || result.OpenPorts[0] != port {
		t.Fatalf("OpenPorts = %v, want [%d]", result.OpenPorts, port)
	}
	if result.IP != ip {
		t.Errorf("IP = %q, want %q", result.IP, ip)
	}
}

func TestScan_sortsResults(t *testing.T) {
	ip, port1, close1 := listenOn(t)
	defer close1()
	_, port2, close2 := listenOn(t)
	defer close2()

	ports := []int{port2, port1}
	if ports[0] < ports[1] {
		ports[0], ports[1] = ports[1], ports[0]
	}

	p := New(500*time.Millisecond, 10, zap.NewNop())
	result := p.Scan(context.Background(), ip, ports)

	for i := 1; i < len(result.OpenPorts); i++ {
		if result.OpenPorts[i-1] > result.OpenPorts[i] {
			t.Fatalf("OpenPorts not sorted: %v", result.OpenPorts)
		}
	}
}

func TestScan_noOpenPorts(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	closedPort := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	p := New(200*time.Millisecond, 5, zap.NewNop())
	result := p.Scan(context.Background(), "127.0.0.1", []int{closedPort})

	if len(result.OpenPorts) != 0 {
		t.Errorf("expected no open ports, got %v", result.OpenPorts)
	}
}

func TestScan_contextCanceledStopsEarly(t *testing.T) {
	p := New(2*time.Second, 10, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := p.Scan(ctx, "127.0.0.1", ManagementPorts)
	if len(result.OpenPorts) != 0 {
		t.Errorf("expected no open ports with canceled context, got %v", result.OpenPorts)
	}
}

func TestManagementPorts_containsExpectedSet(t *testing.T) {
	want := map[int]bool{22: true, 23: true, 80: true, 161: true, 443: true, 8080: true, 8291: true, 8443: true, 8728: true}
	if len(ManagementPorts) != len(want) {
		t.Fatalf("ManagementPorts has %d entries, want %d", len(ManagementPorts), len(want))
	}
	for _, p := range ManagementPorts {
		if !want[p] {
			t.Errorf("unexpected port %d in ManagementPorts", p)
		}
	}
}
