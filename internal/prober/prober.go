// Package prober performs targeted TCP connect scans against candidate
// management ports on network infrastructure devices.
package prober

import (
	"context"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ManagementPorts are the TCP ports netspan probes on every discovered
// device: SSH, Telnet, HTTP/HTTPS management UIs, SNMP-over-TCP,
// Winbox, and the MikroTik API.
var ManagementPorts = []int{22, 23, 80, 161, 443, 8080, 8291, 8443, 8728}

// Result holds the open ports found on a single host.
type Result struct {
	IP        string
	OpenPorts []int
}

// Prober performs targeted TCP port scans on network devices, rate
// limiting the total rate of concurrent connection attempts.
type Prober struct {
	timeout time.Duration
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New creates a Prober. timeout bounds each individual connect attempt
// (default 3s per spec.md §4.1). concurrency sets both the limiter's
// rate and its burst, matching the teacher's flat worker-count model.
func New(timeout time.Duration, concurrency int, logger *zap.Logger) *Prober {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if concurrency <= 0 {
		concurrency = 10
	}
	return &Prober{
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Limit(concurrency), concurrency),
		logger:  logger,
	}
}

// Scan checks which of the given ports are open on ip. Probes run
// concurrently; an individual port's failure (refused, unreachable,
// timeout) is swallowed and simply excluded from the result. No
// retries are attempted.
func (p *Prober) Scan(ctx context.Context, ip string, ports []int) *Result {
	result := &Result{IP: ip}

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, port := range ports {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(port int) {
			defer wg.Done()
			if err := p.limiter.Wait(ctx); err != nil {
				return
			}
			if p.isOpen(ctx, ip, port) {
				mu.Lock()
				result.OpenPorts = append(result.OpenPorts, port)
				mu.Unlock()
			}
		}(port)
	}
	wg.Wait()

	sort.Ints(result.OpenPorts)

	if p.logger != nil {
		p.logger.Debug("port probe complete",
			zap.String("ip", ip),
			zap.Ints("open", result.OpenPorts),
		)
	}

	return result
}

func (p *Prober) isOpen(ctx context.Context, ip string, port int) bool {
	addr := net.JoinHostPort(ip, strconv.Itoa(port))
	d := net.Dialer{Timeout: p.timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
