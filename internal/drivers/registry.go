// Package drivers implements per-vendor probing of network
// infrastructure devices: parsing CLI or API output into a normalized
// DeviceInfo the scanner orchestrator can expand neighbors from.
package drivers

import (
	"context"
	"regexp"
	"strings"

	"github.com/ridgeline-labs/netspan/internal/ouilookup"
	"github.com/ridgeline-labs/netspan/internal/sshconn"
	"github.com/ridgeline-labs/netspan/pkg/models"
)

// Neighbor is a device discovered via another device's own tables
// (DHCP leases, ARP cache, bridge host table, or a discovery protocol
// such as MNDP/CDP/LLDP), per spec.md §4.4.
type Neighbor struct {
	MAC       string
	IP        string
	Hostname  string
	Interface string
	Type      string // dhcp, arp, bridge-host, mndp, lldp, cdp, wireless-client
	Version   string
	Model     string
}

// DeviceInfo is a driver's normalized probe result.
type DeviceInfo struct {
	Hostname             string
	MAC                  string
	Model                string
	Serial               string
	Version              string
	Interfaces           []models.Interface
	Neighbors            []Neighbor
	DhcpLeases           []models.DhcpLease
	OwnUpstreamInterface string

	// ClassificationConfidence/ClassificationSource are non-authoritative
	// hints the topology assembler and HTTP surface can use to explain
	// why a device got its type, without changing the type itself.
	ClassificationConfidence float64
	ClassificationSource     string
}

// Target is the connection surface a Driver probes against: either an
// established SSH session (CLI drivers) or a bare IP (the MikroTik API
// driver, which speaks its own binary protocol on TCP 8728).
type Target struct {
	IP            string
	SSH           *sshconn.Session
	Username      string
	Password      string
	JumpHost      *sshconn.Manager
	SNMPCommunity string
}

// Driver probes a single device and returns its normalized info.
// Drivers never call back into the orchestrator; they return data and
// let the orchestrator decide the next hop.
type Driver interface {
	Name() string
	// ShellOnly reports whether this driver must commit to interactive
	// shell mode before issuing any command, because the device closes
	// exec channels outright (Zyxel, 3Com).
	ShellOnly() bool
	Probe(ctx context.Context, target Target) (*DeviceInfo, error)
}

// Registry is a record of function pointers, keyed by driver name, per
// spec.md §4.4/§9.
var Registry = map[string]Driver{
	"mikrotik-cli": &MikroTikCLIDriver{},
	"mikrotik-api": &MikroTikAPIDriver{},
	"zyxel":        &ZyxelDriver{},
	"threecom":     &ThreeComDriver{},
	"ruckus":       &RuckusDriver{},
}

// Classify performs the two-stage vendor classification spec.md
// §4.4/§9 describes: OUI first, then SSH banner / shell-detected CLI
// family as a fallback, returning the driver name to use and a
// confidence score for the topology assembler's non-authoritative
// hint fields.
func Classify(mac, sshBanner string) (driverName string, confidence float64, source string) {
	if vendor := ouilookup.Lookup(mac); vendor != "" {
		if name, ok := driverForVendor(vendor); ok {
			return name, 0.9, "oui"
		}
	}
	if name, ok := driverForBanner(sshBanner); ok {
		return name, 0.6, "banner"
	}
	return "", 0, ""
}

func driverForVendor(vendor string) (string, bool) {
	v := strings.ToLower(vendor)
	switch {
	case strings.Contains(v, "mikrotik"):
		return "mikrotik-cli", true
	case strings.Contains(v, "zyxel"):
		return "zyxel", true
	case strings.Contains(v, "3com"):
		return "threecom", true
	case strings.Contains(v, "ruckus"):
		return "ruckus", true
	default:
		return "", false
	}
}

// macPattern matches a colon- or hyphen-delimited MAC address anywhere
// in free-form command output, used as a last resort when a driver's
// structured fields don't carry the device's own address.
var macPattern = regexp.MustCompile(`(?i)([0-9A-F]{2}[:-]){5}[0-9A-F]{2}`)

// extractMAC returns the first MAC-shaped token in text, normalized to
// upper-case colon notation, or "" if none is found.
func extractMAC(text string) string {
	m := macPattern.FindString(text)
	if m == "" {
		return ""
	}
	return strings.ToUpper(strings.NewReplacer("-", ":").Replace(m))
}

func driverForBanner(banner string) (string, bool) {
	b := strings.ToLower(banner)
	switch {
	case strings.Contains(b, "mikrotik") || strings.Contains(b, "routeros") || strings.Contains(b, "rosssh"):
		return "mikrotik-cli", true
	case strings.Contains(b, "zyxel") || strings.Contains(b, "zynos"):
		return "zyxel", true
	case strings.Contains(b, "3com") || strings.Contains(b, "h3c"):
		return "threecom", true
	case strings.Contains(b, "ruckus"):
		return "ruckus", true
	default:
		return "", false
	}
}
