// Package mdns performs a one-shot multicast DNS sweep of the local
// network to collect hostname hints by IP address, feeding the
// scanner's enrichment stage (spec.md §4.5 step 2).
package mdns

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"
)

const (
	multicastAddr = "224.0.0.251:5353"

	// defaultBudget is the sweep's total listening window.
	defaultBudget = 5 * time.Second
)

// serviceQueries are the PTR service types queried on every sweep;
// devices that advertise mDNS/Bonjour typically answer at least one.
var serviceQueries = []string{
	"_services._dns-sd._udp.local.",
	"_device-info._tcp.local.",
	"_workstation._tcp.local.",
	"_ssh._tcp.local.",
	"_http._tcp.local.",
}

// Sweeper performs one-shot mDNS sweeps.
type Sweeper struct {
	budget time.Duration
	logger *zap.Logger
}

// New creates a Sweeper. budget defaults to 5s when zero-valued.
func New(budget time.Duration, logger *zap.Logger) *Sweeper {
	if budget <= 0 {
		budget = defaultBudget
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{budget: budget, logger: logger}
}

// Sweep queries the mDNS multicast group and returns hostname hints
// keyed by IP address, observed within the sweep's budget. Errors
// establishing the multicast socket are returned; errors from
// individual malformed responses are swallowed.
func (s *Sweeper) Sweep(ctx context.Context) (map[string]string, error) {
	groupAddr, err := net.ResolveUDPAddr("udp4", multicastAddr)
	if err != nil {
		return nil, err
	}

	conn, err := net.ListenMulticastUDP("udp4", nil, groupAddr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	sweepCtx, cancel := context.WithTimeout(ctx, s.budget)
	defer cancel()

	var mu sync.Mutex
	hints := make(map[string]string)

	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 65535)
		for {
			if sweepCtx.Err() != nil {
				return
			}
			conn.SetReadDeadline(time.Now().Add(250 * time.Millisecond))
			n, addr, err := conn.ReadFromUDP(buf)
			if err != nil {
				continue
			}
			msg := new(dns.Msg)
			if err := msg.Unpack(buf[:n]); err != nil {
				continue
			}
			mu.Lock()
			recordHints(hints, msg, addr.IP.String())
			mu.Unlock()
		}
	}()

	for _, svc := range serviceQueries {
		s.sendQuery(conn, groupAddr, svc)
	}

	select {
	case <-done:
	case <-sweepCtx.Done():
		<-done
	}

	s.logger.Debug("mdns sweep complete", zap.Int("hints", len(hints)))
	return hints, nil
}

func (s *Sweeper) sendQuery(conn *net.UDPConn, dst *net.UDPAddr, name string) {
	msg := new(dns.Msg)
	msg.SetQuestion(name, dns.TypePTR)
	packed, err := msg.Pack()
	if err != nil {
		return
	}
	if _, err := conn.WriteToUDP(packed, dst); err != nil {
		s.logger.Debug("mdns query send failed", zap.String("name", name), zap.Error(err))
	}
}

// recordHints folds a response message's address and PTR/SRV records
// into hints, preferring the responder's source IP when a record
// doesn't carry its own A/AAAA answer.
func recordHints(hints map[string]string, msg *dns.Msg, sourceIP string) {
	hostname := ""
	ips := []string{}

	for _, rr := range append(msg.Answer, msg.Extra...) {
		switch rec := rr.(type) {
		case *dns.A:
			ips = append(ips, rec.A.String())
			if hostname == "" {
				hostname = trimServiceName(rec.Hdr.Name)
			}
		case *dns.AAAA:
			ips = append(ips, rec.AAAA.String())
		case *dns.PTR:
			if hostname == "" {
				hostname = trimServiceName(rec.Ptr)
			}
		case *dns.SRV:
			if hostname == "" {
				hostname = trimServiceName(rec.Target)
			}
		}
	}

	if hostname == "" {
		return
	}
	if len(ips) == 0 {
		ips = []string{sourceIP}
	}
	for _, ip := range ips {
		if _, exists := hints[ip]; !exists {
			hints[ip] = hostname
		}
	}
}

// trimServiceName strips the ".local." suffix and any service-type
// component from an mDNS record name, leaving a bare hostname.
func trimServiceName(name string) string {
	name = strings.TrimSuffix(name, ".")
	name = strings.TrimSuffix(name, ".local")
	if idx := strings.Index(name, "._"); idx >= 0 {
		name = name[:idx]
	}
	return name
}
