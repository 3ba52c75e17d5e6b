package sshconn

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// jumpHostState is the jump-host manager's state machine, per spec.md
// §4.3. There is a single owner per scan (spec.md §5): one Manager
// instance guards its state behind a mutex rather than relying on
// external synchronization.
type jumpHostState int

const (
	jumpHostAbsent jumpHostState = iota
	jumpHostEstablished
	jumpHostProbedYes
	jumpHostProbedNo
)

const directTCPIPProbeTimeout = 5 * time.Second

// Manager owns the optional second SSH session opened against a root
// device, used to tunnel traffic to devices the netspan host cannot
// reach directly.
type Manager struct {
	mu      sync.Mutex
	state   jumpHostState
	client  *ssh.Client
	rootIP  string
}

// NewManager returns a Manager in the absent state.
func NewManager() *Manager {
	return &Manager{state: jumpHostAbsent}
}

// Establish opens the tunneling session against a root device once the
// primary SSH session to it has already succeeded.
func (m *Manager) Establish(ctx context.Context, sshClient *Client, rootIP, user, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, err := sshClient.Connect(ctx, rootIP, user, password, 0, 0)
	if err != nil {
		return fmt.Errorf("establish jump host: %w", err)
	}
	m.client = sess.client
	m.rootIP = rootIP
	m.state = jumpHostEstablished
	return nil
}

// ProbeDirectTCPIP tests whether the root device's SSH server supports
// forwarding (direct-tcpip) by dialing its own SSH port through itself.
// Success moves the manager to probedYes; failure or timeout closes the
// session and moves it to probedNo.
func (m *Manager) ProbeDirectTCPIP(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != jumpHostEstablished || m.client == nil {
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, directTCPIPProbeTimeout)
	defer cancel()

	type result struct {
		conn net.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		c, err := m.client.Dial("tcp", net.JoinHostPort(m.rootIP, "22"))
		done <- result{conn: c, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			m.client.Close()
			m.state = jumpHostProbedNo
			return false
		}
		r.conn.Close()
		m.state = jumpHostProbedYes
		return true
	case <-probeCtx.Done():
		m.client.Close()
		m.state = jumpHostProbedNo
		return false
	}
}

// Supported reports whether the jump host is known to support
// forwarding downstream connections.
func (m *Manager) Supported() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == jumpHostProbedYes
}

// Present reports whether a jump host session has been established at
// all, independent of whether ProbeDirectTCPIP has confirmed forwarding
// support yet. The scanner's connection-path decision falls back to a
// tunneled attempt on this weaker condition when a device isn't the
// scan root and direct port 22 access isn't open, per spec.md §4.5.
func (m *Manager) Present() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state != jumpHostAbsent
}

// ForwardOut opens a tunneled TCP stream to targetIP:targetPort through
// the jump host's SSH connection (direct-tcpip / forward_out).
func (m *Manager) ForwardOut(targetIP string, targetPort int) (net.Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != jumpHostProbedYes || m.client == nil {
		return nil, fmt.Errorf("jump host not established or not supported")
	}
	return m.client.Dial("tcp", net.JoinHostPort(targetIP, fmt.Sprintf("%d", targetPort)))
}

// FetchHTTP performs a single GET request over the jump-host tunnel,
// optionally over TLS with certificate verification disabled (the
// target is almost always a self-signed management UI on gear the
// operator already controls). Used for Zyxel serial-number retrieval
// when the CLI omits it.
func (m *Manager) FetchHTTP(targetIP string, port int, useTLS bool, path, host string) ([]byte, error) {
	conn, err := m.ForwardOut(targetIP, port)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var rw net.Conn = conn
	if useTLS {
		tlsConn := tls.Client(conn, &tls.Config{InsecureSkipVerify: true}) //nolint:gosec // self-signed management UI
		if err := tlsConn.Handshake(); err != nil {
			return nil, fmt.Errorf("tls handshake: %w", err)
		}
		rw = tlsConn
	}

	req := fmt.Sprintf("GET %s HTTP/1.1\r\nHost: %s\r\nConnection: close\r\n\r\n", path, host)
	if _, err := rw.Write([]byte(req)); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)
	for {
		n, err := rw.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}
		if err != nil {
			break
		}
	}
	return buf, nil
}

// DialSSH opens an SSH session to targetIP over the jump-host tunnel
// rather than a direct TCP dial, for devices only reachable through the
// root device's forwarding. Mirrors Client.Connect's auth and legacy
// key-exchange configuration without its own retry loop, since a failed
// tunnel attempt is just one more credential to try.
func (m *Manager) DialSSH(ctx context.Context, targetIP, user, password string, port int, timeout time.Duration) (*Session, error) {
	if port <= 0 {
		port = 22
	}
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}

	conn, err := m.ForwardOut(targetIP, port)
	if err != nil {
		return nil, fmt.Errorf("forward to %s:%d: %w", targetIP, port, err)
	}

	config := &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.Password(password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // management tool against operator-owned gear
		Timeout:         timeout,
		Config: ssh.Config{
			KeyExchanges: legacyKeyExchanges,
		},
	}

	addr := net.JoinHostPort(targetIP, fmt.Sprintf("%d", port))
	type result struct {
		client *ssh.Client
		err    error
	}
	done := make(chan result, 1)
	go func() {
		sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
		if err != nil {
			done <- result{err: err}
			return
		}
		done <- result{client: ssh.NewClient(sshConn, chans, reqs)}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			conn.Close()
			return nil, fmt.Errorf("ssh handshake over tunnel to %s: %w", addr, r.err)
		}
		return &Session{client: r.client, ServerBanner: string(r.client.ServerVersion())}, nil
	case <-ctx.Done():
		conn.Close()
		return nil, ctx.Err()
	}
}

// Close tears down the jump-host session and returns the manager to
// the absent state, per the "any -> scan end or abort -> absent"
// transition.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.client != nil {
		err = m.client.Close()
	}
	m.client = nil
	m.state = jumpHostAbsent
	return err
}
