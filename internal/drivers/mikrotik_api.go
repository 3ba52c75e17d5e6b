package drivers

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/ridgeline-labs/netspan/pkg/models"
)

// MikroTikAPIDriver probes RouterOS devices over the vendor's binary
// API protocol on TCP 8728, for gear where SSH access is unavailable or
// disabled but API access is open. RouterOS's API has no public client
// library in the corpus, so the length-prefixed word framing and login
// handshake are hand-rolled here, per spec.md §4.4/§9.
type MikroTikAPIDriver struct{}

func (d *MikroTikAPIDriver) Name() string    { return "mikrotik-api" }
func (d *MikroTikAPIDriver) ShellOnly() bool { return false }

const (
	apiPort        = 8728
	apiDialTimeout = 10 * time.Second
)

func (d *MikroTikAPIDriver) Probe(ctx context.Context, target Target) (*DeviceInfo, error) {
	conn, err := apiDial(ctx, target.IP)
	if err != nil {
		return nil, fmt.Errorf("api dial: %w", err)
	}
	defer conn.Close()

	if err := conn.login(target.Username, target.Password); err != nil {
		return nil, fmt.Errorf("api login: %w", err)
	}

	leaseRows, err := conn.query("/ip/dhcp-server/lease/print")
	if err != nil {
		return nil, fmt.Errorf("lease print: %w", err)
	}
	identityRows, err := conn.query("/system/identity/print")
	if err != nil {
		return nil, fmt.Errorf("identity print: %w", err)
	}
	resourceRows, err := conn.query("/system/resource/print")
	if err != nil {
		return nil, fmt.Errorf("resource print: %w", err)
	}
	routerboardRows, _ := conn.query("/system/routerboard/print")
	ifaceRows, err := conn.query("/interface/print")
	if err != nil {
		return nil, fmt.Errorf("interface print: %w", err)
	}
	ipAddrRows, _ := conn.query("/ip/address/print")
	arpRows, _ := conn.query("/ip/arp/print")
	bridgeHostRows, _ := conn.query("/interface/bridge/host/print")
	ethernetRows, _ := conn.query("/interface/ethernet/print")

	info := &DeviceInfo{
		DhcpLeases: rowsToLeases(leaseRows),
	}
	if len(ethernetRows) > 0 {
		info.MAC = strings.ToUpper(ethernetRows[0]["mac-address"])
	}
	if len(identityRows) > 0 {
		info.Hostname = identityRows[0]["name"]
	}
	if len(routerboardRows) > 0 {
		info.Model = routerboardRows[0]["model"]
		info.Serial = routerboardRows[0]["serial-number"]
	}
	if len(resourceRows) > 0 {
		if info.Model == "" {
			info.Model = resourceRows[0]["board-name"]
		}
		info.Version = resourceRows[0]["version"]
	}

	ipByIface := make(map[string]string)
	for _, rec := range ipAddrRows {
		if iface := rec["interface"]; iface != "" {
			ipByIface[iface] = rec["address"]
		}
	}
	var ifaces []models.Interface
	for _, rec := range ifaceRows {
		name := rec["name"]
		if name == "" {
			continue
		}
		ifaces = append(ifaces, models.Interface{
			Name:   name,
			IP:     ipByIface[name],
			LinkUp: rec["running"] == "true",
		})
	}
	info.Interfaces = ifaces

	macToPort := make(map[string]string)
	for _, rec := range bridgeHostRows {
		mac := strings.ToUpper(rec["mac-address"])
		if mac != "" && rec["interface"] != "" {
			macToPort[mac] = rec["interface"]
		}
	}

	var neighbors []Neighbor
	for _, rec := range arpRows {
		mac := strings.ToUpper(rec["mac-address"])
		if mac == "" {
			continue
		}
		iface := rec["interface"]
		if port, ok := macToPort[mac]; ok {
			iface = port
		}
		neighbors = append(neighbors, Neighbor{MAC: mac, IP: rec["address"], Interface: iface, Type: "arp"})
	}
	info.Neighbors = neighbors

	return info, nil
}

func rowsToLeases(rows []map[string]string) []models.DhcpLease {
	var leases []models.DhcpLease
	for _, rec := range rows {
		if rec["status"] != "" && rec["status"] != "bound" {
			continue
		}
		leases = append(leases, models.DhcpLease{
			MAC:      rec["mac-address"],
			IP:       rec["address"],
			Hostname: rec["host-name"],
		})
	}
	return leases
}

// apiConn is a single RouterOS API TCP connection, speaking the
// length-prefixed "sentence of words" wire format.
type apiConn struct {
	conn net.Conn
	r    *bufio.Reader
}

func apiDial(ctx context.Context, ip string) (*apiConn, error) {
	d := net.Dialer{Timeout: apiDialTimeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(ip, strconv.Itoa(apiPort)))
	if err != nil {
		return nil, err
	}
	return &apiConn{conn: conn, r: bufio.NewReader(conn)}, nil
}

func (c *apiConn) Close() error { return c.conn.Close() }

// login performs the post-6.43 plain login handshake: a single /login
// sentence carrying name and password, followed by a !done reply.
func (c *apiConn) login(user, password string) error {
	if err := c.writeSentence([]string{"/login", "=name=" + user, "=password=" + password}); err != nil {
		return err
	}
	reply, err := c.readSentence()
	if err != nil {
		return err
	}
	if len(reply) == 0 || reply[0] != "!done" {
		return fmt.Errorf("unexpected login reply: %v", reply)
	}
	return nil
}

// query issues a command and collects every !re sentence's attribute
// words into a record map, stopping at the terminating !done.
func (c *apiConn) query(command string) ([]map[string]string, error) {
	if err := c.writeSentence([]string{command}); err != nil {
		return nil, err
	}

	var rows []map[string]string
	for {
		words, err := c.readSentence()
		if err != nil {
			return nil, err
		}
		if len(words) == 0 {
			continue
		}
		switch words[0] {
		case "!done":
			return rows, nil
		case "!trap", "!fatal":
			return nil, fmt.Errorf("api error reply: %v", words)
		case "!re":
			row := make(map[string]string)
			for _, w := range words[1:] {
				key, val, ok := strings.Cut(strings.TrimPrefix(w, "="), "=")
				if ok {
					row[key] = val
				}
			}
			rows = append(rows, row)
		}
	}
}

func (c *apiConn) writeSentence(words []string) error {
	for _, w := range words {
		if err := c.writeWord(w); err != nil {
			return err
		}
	}
	return c.writeWord("")
}

func (c *apiConn) writeWord(w string) error {
	if err := writeLength(c.conn, len(w)); err != nil {
		return err
	}
	_, err := io.WriteString(c.conn, w)
	return err
}

func (c *apiConn) readSentence() ([]string, error) {
	var words []string
	for {
		w, err := c.readWord()
		if err != nil {
			return nil, err
		}
		if w == "" {
			return words, nil
		}
		words = append(words, w)
	}
}

func (c *apiConn) readWord() (string, error) {
	n, err := readLength(c.r)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// writeLength encodes a word length using RouterOS's variable-length
// control-byte scheme: lengths under 0x80 are a single byte; larger
// lengths take two to five bytes, big-endian, whose first byte carries a
// 0x80, 0xC0, 0xE0 or 0xF0 marker in its high bits, matching the API
// protocol documentation.
func writeLength(w io.Writer, l int) error {
	switch {
	case l < 0x80:
		_, err := w.Write([]byte{byte(l)})
		return err
	case l < 0x4000:
		b := []byte{byte(l>>8) | 0x80, byte(l)}
		_, err := w.Write(b)
		return err
	case l < 0x200000:
		b := []byte{byte(l>>16) | 0xC0, byte(l >> 8), byte(l)}
		_, err := w.Write(b)
		return err
	case l < 0x10000000:
		b := []byte{byte(l>>24) | 0xE0, byte(l >> 16), byte(l >> 8), byte(l)}
		_, err := w.Write(b)
		return err
	default:
		b := make([]byte, 5)
		b[0] = 0xF0
		binary.BigEndian.PutUint32(b[1:], uint32(l))
		_, err := w.Write(b)
		return err
	}
}

func readLength(r io.Reader) (int, error) {
	var first [1]byte
	if _, err := io.ReadFull(r, first[:]); err != nil {
		return 0, err
	}
	c := first[0]

	switch {
	case c&0x80 == 0:
		return int(c), nil
	case c&0xC0 == 0x80:
		var rest [1]byte
		if _, err := io.ReadFull(r, rest[:]); err != nil {
			return 0, err
		}
		return int(c&^0xC0)<<8 | int(rest[0]), nil
	case c&0xE0 == 0xC0:
		var rest [2]byte
		if _, err := io.ReadFull(r, rest[:]); err != nil {
			return 0, err
		}
		return int(c&^0xE0)<<16 | int(rest[0])<<8 | int(rest[1]), nil
	case c&0xF0 == 0xE0:
		var rest [3]byte
		if _, err := io.ReadFull(r, rest[:]); err != nil {
			return 0, err
		}
		return int(c&^0xF0)<<24 | int(rest[0])<<16 | int(rest[1])<<8 | int(rest[2]), nil
	default:
		var rest [4]byte
		if _, err := io.ReadFull(r, rest[:]); err != nil {
			return 0, err
		}
		return int(binary.BigEndian.Uint32(rest[:])), nil
	}
}
