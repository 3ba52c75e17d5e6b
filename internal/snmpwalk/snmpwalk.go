// Package snmpwalk performs SNMP v2c GET and WALK requests against
// network devices, used by drivers whose CLI doesn't expose interface
// or forwarding-table data directly (notably the 3Com driver).
package snmpwalk

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
)

// Interface is a row from the IF-MIB interface table.
type Interface struct {
	Index       int
	Description string
	Type        int
	PhysAddress string
	OperUp      bool
}

// FdbEntry is a row from the BRIDGE-MIB forwarding database, mapping a
// learned MAC address to the bridge port it was seen on.
type FdbEntry struct {
	MAC  string
	Port int
}

// Client performs SNMP v2c queries against a single target.
type Client struct {
	target    string
	port      int
	community string
	timeout   time.Duration
}

// New creates a Client for target:port using community-based v2c auth.
// port defaults to 161 and timeout to 3s when zero-valued.
func New(target string, port int, community string, timeout time.Duration) *Client {
	if port <= 0 {
		port = 161
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{target: target, port: port, community: community, timeout: timeout}
}

func (c *Client) dial() (*gosnmp.GoSNMP, error) {
	g := &gosnmp.GoSNMP{
		Target:    c.target,
		Port:      uint16(c.port),
		Community: c.community,
		Version:   gosnmp.Version2c,
		Timeout:   c.timeout,
		Retries:   3,
	}
	if err := g.Connect(); err != nil {
		return nil, fmt.Errorf("snmp connect to %s: %w", net.JoinHostPort(c.target, strconv.Itoa(c.port)), err)
	}
	return g, nil
}

// SysInfo returns sysDescr, sysObjectID, and sysName for the target.
func (c *Client) SysInfo() (descr, objectID, name string, err error) {
	g, err := c.dial()
	if err != nil {
		return "", "", "", err
	}
	defer g.Conn.Close()

	result, err := g.Get([]string{OIDSysDescr, OIDSysObjectID, OIDSysName})
	if err != nil {
		return "", "", "", fmt.Errorf("snmp get system info: %w", err)
	}
	for _, pdu := range result.Variables {
		switch strings.TrimPrefix(pdu.Name, ".") {
		case OIDSysDescr:
			descr = pduString(pdu)
		case OIDSysObjectID:
			objectID = pduString(pdu)
		case OIDSysName:
			name = pduString(pdu)
		}
	}
	return descr, objectID, name, nil
}

// Interfaces walks the IF-MIB interface table and returns Ethernet
// interfaces (ifType 6) sorted by index.
func (c *Client) Interfaces() ([]Interface, error) {
	g, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer g.Conn.Close()

	pdus, err := g.BulkWalkAll(OIDIfTable)
	if err != nil {
		return nil, fmt.Errorf("snmp walk if table: %w", err)
	}

	byIndex := make(map[int]*Interface)
	for _, pdu := range pdus {
		idx := lastOIDIndex(pdu.Name)
		if idx < 0 {
			continue
		}
		iface, ok := byIndex[idx]
		if !ok {
			iface = &Interface{Index: idx}
			byIndex[idx] = iface
		}
		switch oidPrefix(pdu.Name) {
		case OIDIfDescr:
			iface.Description = pduString(pdu)
		case OIDIfType:
			iface.Type = pduInt(pdu)
		case OIDIfPhysAddress:
			if b, ok := pdu.Value.([]byte); ok {
				iface.PhysAddress = formatMAC(b)
			}
		case OIDIfOperStatus:
			iface.OperUp = pduInt(pdu) == 1
		}
	}

	ifaces := make([]Interface, 0, len(byIndex))
	for _, iface := range byIndex {
		if iface.Type != IfTypeEthernetCSMACD {
			continue
		}
		ifaces = append(ifaces, *iface)
	}
	sort.Slice(ifaces, func(i, j int) bool { return ifaces[i].Index < ifaces[j].Index })
	return ifaces, nil
}

// ForwardingTable walks the BRIDGE-MIB dot1dTpFdbTable and returns the
// learned MAC-to-port mappings.
func (c *Client) ForwardingTable() ([]FdbEntry, error) {
	g, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer g.Conn.Close()

	pdus, err := g.BulkWalkAll(OIDFdbTable)
	if err != nil {
		return nil, fmt.Errorf("snmp walk fdb table: %w", err)
	}

	byMAC := make(map[string]*FdbEntry)
	for _, pdu := range pdus {
		prefix := oidPrefix(pdu.Name)
		switch prefix {
		case OIDFdbAddress:
			if b, ok := pdu.Value.([]byte); ok && len(b) == 6 {
				mac := formatMAC(b)
				if _, exists := byMAC[mac]; !exists {
					byMAC[mac] = &FdbEntry{MAC: mac}
				}
			}
		case OIDFdbPort:
			mac := fdbAddressFromIndex(pdu.Name)
			if mac == "" {
				continue
			}
			entry, ok := byMAC[mac]
			if !ok {
				entry = &FdbEntry{MAC: mac}
				byMAC[mac] = entry
			}
			entry.Port = pduInt(pdu)
		}
	}

	entries := make([]FdbEntry, 0, len(byMAC))
	for _, e := range byMAC {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].MAC < entries[j].MAC })
	return entries, nil
}

// fdbAddressFromIndex decodes a dot1dTpFdbPort OID's six trailing
// numeric sub-identifiers (the MAC address encoded as the table index)
// back into a colon-separated MAC string.
func fdbAddressFromIndex(oid string) string {
	trimmed := strings.TrimPrefix(oid, "."+OIDFdbPort+".")
	parts := strings.Split(trimmed, ".")
	if len(parts) != 6 {
		return ""
	}
	octets := make([]string, 6)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return ""
		}
		octets[i] = fmt.Sprintf("%02X", n)
	}
	return strings.Join(octets, ":")
}

func pduString(pdu gosnmp.SnmpPDU) string {
	switch v := pdu.Value.(type) {
	case []byte:
		return string(v)
	case string:
		return v
	default:
		return ""
	}
}

func pduInt(pdu gosnmp.SnmpPDU) int {
	switch v := pdu.Value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint:
		return int(v) //nolint:gosec // SNMP integer values fit in int
	case uint32:
		return int(v)
	case uint64:
		return int(v) //nolint:gosec // SNMP integer values fit in int
	default:
		return 0
	}
}

func formatMAC(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%02X", v)
	}
	return strings.Join(parts, ":")
}

func lastOIDIndex(oid string) int {
	lastDot := strings.LastIndex(oid, ".")
	if lastDot < 0 || lastDot == len(oid)-1 {
		return -1
	}
	idx, err := strconv.Atoi(oid[lastDot+1:])
	if err != nil {
		return -1
	}
	return idx
}

func oidPrefix(oid string) string {
	oid = strings.TrimPrefix(oid, ".")
	lastDot := strings.LastIndex(oid, ".")
	if lastDot < 0 {
		return oid
	}
	return oid[:lastDot]
}
