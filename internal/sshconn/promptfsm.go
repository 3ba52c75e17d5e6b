package sshconn

import (
	"bytes"
	"context"
	"io"
	"regexp"
	"time"

	"golang.org/x/crypto/ssh"
)

// csiSequence matches ANSI CSI escape sequences (cursor movement,
// color, clear-line, ...).
var csiSequence = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// vt100TwoByteEscape matches the two-byte VT100 escapes devices emit
// outside a full CSI sequence (e.g. ESC 7 / ESC 8 save/restore cursor).
var vt100TwoByteEscape = regexp.MustCompile(`\x1b[0-9A-Za-z]`)

// Prompt is a vendor's shell-prompt recognition profile: the regex that
// marks the command line is ready for input, the regex for a
// "press space to continue" pager banner, and the bytes to send in
// reply to it.
type Prompt struct {
	PromptRegexp      *regexp.Regexp
	PaginationRegexp  *regexp.Regexp
	PaginationReply   []byte
}

// Known vendor prompt profiles, per spec.md §4.2.
var (
	MikroTikPrompt = Prompt{
		PromptRegexp: regexp.MustCompile(`\S+>\s*$|\S+\]\s*>\s*$`),
	}
	ZyxelThreeComPrompt = Prompt{
		PromptRegexp:     regexp.MustCompile(`\w+#\s*$`),
		PaginationRegexp: regexp.MustCompile(`--More--|---- More ----`),
		PaginationReply:  []byte(" "),
	}
	RuckusPrompt = Prompt{
		PromptRegexp:     regexp.MustCompile(`[\w-]+[>#]\s*$`),
		PaginationRegexp: regexp.MustCompile(`--More--`),
		PaginationReply:  []byte(" "),
	}
)

// stripANSI removes CSI sequences, lone VT100 two-byte escapes, bare
// carriage returns, and the standalone "7" artifact some vendor CLIs
// leave in their output, ahead of any prompt/pagination matching.
func stripANSI(b []byte) []byte {
	b = csiSequence.ReplaceAll(b, nil)
	b = vt100TwoByteEscape.ReplaceAll(b, nil)
	b = bytes.ReplaceAll(b, []byte{'\r'}, nil)
	b = bytes.ReplaceAll(b, []byte("\x1b7"), nil)
	return b
}

// Shell drives a PTY'd SSH session through a scripted command sequence,
// detecting the vendor prompt to know when a command's output is
// complete and answering pagination banners automatically.
type Shell struct {
	session *ssh.Session
	stdin   io.Writer
	stdout  io.Reader
	buf     *bytes.Buffer
}

// Close terminates the shell session.
func (sh *Shell) Close() error {
	return sh.session.Close()
}

// RunCommand writes cmd followed by a newline, then reads output until
// the prompt profile's PromptRegexp matches the trailing, ANSI-stripped
// text, answering any pagination prompts along the way. It falls back
// to returning whatever was accumulated after ctx's deadline elapses.
func (sh *Shell) RunCommand(ctx context.Context, cmd string, p Prompt) (string, error) {
	sh.buf.Reset()

	if _, err := io.WriteString(sh.stdin, cmd+"\r\n"); err != nil {
		return "", err
	}

	type chunk struct {
		b   []byte
		err error
	}
	reads := make(chan chunk, 1)
	readLoop := func() {
		buf := make([]byte, 4096)
		for {
			n, err := sh.stdout.Read(buf)
			if n > 0 {
				out := make([]byte, n)
				copy(out, buf[:n])
				reads <- chunk{b: out}
			}
			if err != nil {
				reads <- chunk{err: err}
				return
			}
		}
	}
	go readLoop()

	for {
		select {
		case c := <-reads:
			if c.err != nil {
				return sh.buf.String(), c.err
			}
			sh.buf.Write(c.b)
			stripped := stripANSI(sh.buf.Bytes())
			if p.PaginationRegexp != nil && p.PaginationRegexp.Match(stripped) {
				sh.stdin.Write(p.PaginationReply)
				// Drop the answered banner so later chunks can reach the prompt check.
				sh.buf.Reset()
				sh.buf.Write(p.PaginationRegexp.ReplaceAll(stripped, nil))
				continue
			}
			if p.PromptRegexp != nil && p.PromptRegexp.Match(bytes.TrimRight(stripped, "\n\t ")) {
				return string(stripANSI(sh.buf.Bytes())), nil
			}
		case <-ctx.Done():
			return sh.buf.String(), ctx.Err()
		}
	}
}

// WaitForPrompt blocks until the shell's first prompt appears (used
// right after opening the shell, before any command is sent) or the
// context expires.
func (sh *Shell) WaitForPrompt(ctx context.Context, p Prompt) error {
	_, err := sh.RunCommand(ctx, "", p)
	return err
}

// ShellSilenceFallback (10s) and ShellAbandonTimeout (20s) name the
// timings for falling back from PTY-open to a plain shell open after
// silence, and for abandoning a silent shell. No code in this package
// reads them: NewShell always requests a PTY, and shell reads are
// bounded only by the caller's context.
const (
	ShellSilenceFallback = 10 * time.Second
	ShellAbandonTimeout  = 20 * time.Second
)
