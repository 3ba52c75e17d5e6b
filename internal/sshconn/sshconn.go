// Package sshconn dials network device management consoles over SSH,
// offering both one-shot command execution and scripted interactive
// shell sessions against gear that predates modern SSH defaults.
package sshconn

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"github.com/ridgeline-labs/netspan/internal/metrics"
)

// legacyKeyExchanges re-enables key exchange algorithms that modern
// golang.org/x/crypto/ssh no longer offers by default, needed for the
// aging MikroTik/Zyxel/3Com/Ruckus gear this package targets.
var legacyKeyExchanges = []string{
	"curve25519-sha256",
	"diffie-hellman-group14-sha1",
	"diffie-hellman-group1-sha1",
}

const (
	defaultPort         = 22
	defaultDialTimeout  = 15 * time.Second
	defaultExecTimeout  = 10 * time.Second
	reconnectAttempts   = 3
	reconnectGap        = 500 * time.Millisecond
)

// dialFunc matches ssh.Dial's signature, overridden in tests.
type dialFunc func(network, addr string, config *ssh.ClientConfig) (*ssh.Client, error)

// Session wraps an established SSH client connection to a device.
type Session struct {
	client       *ssh.Client
	ServerBanner string
}

// Close releases the underlying SSH client.
func (s *Session) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Client dials SSH connections to network devices, retrying transient
// failures and accepting legacy key exchanges.
type Client struct {
	logger *zap.Logger
	dial   dialFunc
}

// New creates a Client. A nil logger is replaced with a no-op logger.
func New(logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{logger: logger, dial: ssh.Dial}
}

// Connect establishes an SSH session against ip:port using password
// auth, retrying up to 3 times with a 500ms gap between attempts. port
// defaults to 22 and timeout to 15s when zero-valued.
func (c *Client) Connect(ctx context.Context, ip, user, password string, port int, timeout time.Duration) (*Session, error) {
	if port <= 0 {
		port = defaultPort
	}
	if timeout <= 0 {
		timeout = defaultDialTimeout
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

	addr := net.JoinHostPort(ip, fmt.Sprintf("%d", port))

	var lastErr error
	for attempt := 1; attempt <= reconnectAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		client, err := c.dial("tcp", addr, config)
		if err == nil {
			metrics.SSHConnectAttemptsTotal.WithLabelValues("success").Inc()
			return &Session{client: client, ServerBanner: string(client.ServerVersion())}, nil
		}
		lastErr = err
		metrics.SSHConnectAttemptsTotal.WithLabelValues("failure").Inc()
		c.logger.Debug("ssh connect attempt failed",
			zap.String("addr", addr),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < reconnectAttempts {
			select {
			case <-time.After(reconnectGap):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("ssh connect to %s: %w", addr, lastErr)
}

// Exec runs a single command on the device and returns its combined
// stdout+stderr, closing the channel on remote EOF. Bounded by a 10s
// default timeout when ctx carries no earlier deadline.
func (s *Session) Exec(ctx context.Context, cmd string) ([]byte, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultExecTimeout)
		defer cancel()
	}

	session, err := s.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("new exec session: %w", err)
	}
	defer session.Close()

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := session.CombinedOutput(cmd)
		done <- result{out: out, err: err}
	}()

	select {
	case r := <-done:
		return r.out, r.err
	case <-ctx.Done():
		session.Signal(ssh.SIGKILL)
		return nil, ctx.Err()
	}
}

// NewShell opens a PTY'd interactive shell session (vt100, 24x132) on
// the device, per spec for vendors that close exec channels outright.
func (s *Session) NewShell() (*Shell, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("new shell session: %w", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 38400,
		ssh.TTY_OP_OSPEED: 38400,
	}
	if err := session.RequestPty("vt100", 24, 132, modes); err != nil {
		session.Close()
		return nil, fmt.Errorf("request pty: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := session.Shell(); err != nil {
		session.Close()
		return nil, fmt.Errorf("start shell: %w", err)
	}

	return &Shell{
		session: session,
		stdin:   stdin,
		stdout:  stdout,
		buf:     &bytes.Buffer{},
	}, nil
}
