package drivers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ridgeline-labs/netspan/pkg/models"
)

// MikroTikCLIDriver probes RouterOS devices over an exec-mode SSH
// session, per spec.md §4.4.
type MikroTikCLIDriver struct{}

func (d *MikroTikCLIDriver) Name() string    { return "mikrotik-cli" }
func (d *MikroTikCLIDriver) ShellOnly() bool { return false }

// pingBatchSize and pingBatchInterval implement the lease-repopulation
// sweep: ping every bound DHCP lease in batches to force the device to
// relearn ARP and bridge-host entries for hosts it hasn't talked to
// recently.
const (
	pingBatchSize     = 20
	pingBatchInterval = 2 * time.Second
)

func (d *MikroTikCLIDriver) Probe(ctx context.Context, target Target) (*DeviceInfo, error) {
	sess := target.SSH

	leaseOut, err := sess.Exec(ctx, "/ip dhcp-server lease print terse")
	if err != nil {
		return nil, fmt.Errorf("dhcp lease print: %w", err)
	}
	leases := parseDhcpLeases(string(leaseOut))

	d.repopulateTables(ctx, sess, leases)

	identityOut, err := sess.Exec(ctx, "/system identity print")
	if err != nil {
		return nil, fmt.Errorf("identity print: %w", err)
	}
	resourceOut, err := sess.Exec(ctx, "/system resource print")
	if err != nil {
		return nil, fmt.Errorf("resource print: %w", err)
	}
	routerboardOut, _ := sess.Exec(ctx, "/system routerboard print")
	ifaceOut, err := sess.Exec(ctx, "/interface print terse")
	if err != nil {
		return nil, fmt.Errorf("interface print: %w", err)
	}
	ipAddrOut, _ := sess.Exec(ctx, "/ip address print terse")
	arpOut, _ := sess.Exec(ctx, "/ip arp print terse")
	bridgeHostOut, _ := sess.Exec(ctx, "/interface bridge host print terse")
	routeOut, _ := sess.Exec(ctx, "/ip route print terse where dst-address=0.0.0.0/0")
	bridgePortOut, _ := sess.Exec(ctx, "/interface bridge port print terse")
	bridgeVlanOut, _ := sess.Exec(ctx, "/interface bridge vlan print terse")
	neighborOut, _ := sess.Exec(ctx, "/ip neighbor print terse")
	ethernetOut, _ := sess.Exec(ctx, "/interface ethernet print terse")

	info := &DeviceInfo{
		Hostname:   parseIdentity(string(identityOut)),
		MAC:        firstMACAddress(string(ethernetOut)),
		Model:      firstNonEmpty(parseKV(string(routerboardOut), "model"), parseKV(string(resourceOut), "board-name")),
		Serial:     parseKV(string(routerboardOut), "serial-number"),
		Version:    parseKV(string(resourceOut), "version"),
		DhcpLeases: leases,
	}

	ifaces := parseInterfaces(string(ifaceOut), string(ipAddrOut))
	info.Interfaces = ifaces

	macToPort := buildBridgeHostPortMap(string(bridgeHostOut))
	pvidByPort := parseBridgePortPVID(string(bridgePortOut))
	applyVLANs(ifaces, pvidByPort, string(bridgeVlanOut))

	info.Neighbors = collectNeighbors(string(arpOut), string(bridgeHostOut), string(neighborOut), macToPort)

	info.OwnUpstreamInterface = deriveUpstream(string(routeOut), string(arpOut), macToPort)

	return info, nil
}

// repopulateTables pings every bound lease in batches so devices that
// haven't communicated recently still show up in ARP and bridge-host.
func (d *MikroTikCLIDriver) repopulateTables(ctx context.Context, sess interface {
	Exec(context.Context, string) ([]byte, error)
}, leases []models.DhcpLease) {
	for i := 0; i < len(leases); i += pingBatchSize {
		end := i + pingBatchSize
		if end > len(leases) {
			end = len(leases)
		}
		for _, lease := range leases[i:end] {
			if lease.IP == "" {
				continue
			}
			cmd := fmt.Sprintf("/ping %s count=1", lease.IP)
			_, _ = sess.Exec(ctx, cmd)
		}
		select {
		case <-time.After(pingBatchInterval):
		case <-ctx.Done():
			return
		}
	}
}

func parseIdentity(output string) string {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if name, ok := strings.CutPrefix(line, "name:"); ok {
			return strings.TrimSpace(name)
		}
	}
	return ""
}

func parseKV(output, key string) string {
	for _, rec := range parseTerseLines(output) {
		if v, ok := rec[key]; ok {
			return v
		}
	}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, key+":"); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// firstMACAddress returns the mac-address field of the first row in a
// terse ethernet-interface listing, the device's own physical address.
func firstMACAddress(ethernetOut string) string {
	for _, rec := range parseTerseLines(ethernetOut) {
		if mac := rec["mac-address"]; mac != "" {
			return strings.ToUpper(mac)
		}
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseDhcpLeases(output string) []models.DhcpLease {
	var leases []models.DhcpLease
	for _, rec := range parseTerseLines(output) {
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

func parseInterfaces(ifaceOut, ipAddrOut string) []models.Interface {
	ipByIface := make(map[string]string)
	for _, rec := range parseTerseLines(ipAddrOut) {
		if iface := rec["interface"]; iface != "" {
			ipByIface[iface] = rec["address"]
		}
	}

	var ifaces []models.Interface
	for _, rec := range parseTerseLines(ifaceOut) {
		name := rec["name"]
		if name == "" {
			continue
		}
		ifaces = append(ifaces, models.Interface{
			Name:   name,
			IP:     ipByIface[name],
			LinkUp: rec["running"] == "true" || rec["running"] == "",
		})
	}
	return ifaces
}

// buildBridgeHostPortMap maps a learned MAC to the physical bridge
// port it was seen on, distinct from the bridge interface's own name.
func buildBridgeHostPortMap(bridgeHostOut string) map[string]string {
	macToPort := make(map[string]string)
	for _, rec := range parseTerseLines(bridgeHostOut) {
		mac := strings.ToUpper(rec["mac-address"])
		port := rec["interface"]
		if mac == "" || port == "" {
			continue
		}
		macToPort[mac] = port
	}
	return macToPort
}

func parseBridgePortPVID(bridgePortOut string) map[string]int {
	pvid := make(map[string]int)
	for _, rec := range parseTerseLines(bridgePortOut) {
		port := rec["interface"]
		if port == "" {
			continue
		}
		if v, err := strconv.Atoi(rec["pvid"]); err == nil {
			pvid[port] = v
		}
	}
	return pvid
}

func applyVLANs(ifaces []models.Interface, pvidByPort map[string]int, bridgeVlanOut string) {
	taggedByPort := make(map[string][]int)
	for _, rec := range parseTerseLines(bridgeVlanOut) {
		vlanID, err := strconv.Atoi(rec["vlan-ids"])
		if err != nil {
			continue
		}
		for _, port := range strings.Split(rec["tagged"], ",") {
			port = strings.TrimSpace(port)
			if port == "" {
				continue
			}
			taggedByPort[port] = append(taggedByPort[port], vlanID)
		}
	}

	for i := range ifaces {
		desc := models.VLANDescriptor{}
		if pvid, ok := pvidByPort[ifaces[i].Name]; ok {
			v := pvid
			desc.Access = &v
		}
		desc.Tagged = taggedByPort[ifaces[i].Name]
		if desc.Access != nil || len(desc.Tagged) > 0 {
			ifaces[i].VLAN = desc.String()
		}
	}
}

// collectNeighbors folds ARP, bridge-host, and IP-neighbor (MNDP) rows
// into a single neighbor list, filtering each neighbor's interface
// through the bridge-host MAC->port map so reported interfaces are
// physical ports rather than bridge names.
func collectNeighbors(arpOut, bridgeHostOut, neighborOut string, macToPort map[string]string) []Neighbor {
	var neighbors []Neighbor

	for _, rec := range parseTerseLines(arpOut) {
		mac := strings.ToUpper(rec["mac-address"])
		if mac == "" {
			continue
		}
		neighbors = append(neighbors, Neighbor{
			MAC:       mac,
			IP:        rec["address"],
			Interface: resolvePort(rec["interface"], mac, macToPort),
			Type:      "arp",
		})
	}

	for _, rec := range parseTerseLines(bridgeHostOut) {
		mac := strings.ToUpper(rec["mac-address"])
		if mac == "" {
			continue
		}
		neighbors = append(neighbors, Neighbor{
			MAC:       mac,
			Interface: rec["interface"],
			Type:      "bridge-host",
		})
	}

	for _, rec := range parseTerseLines(neighborOut) {
		mac := strings.ToUpper(rec["mac-address"])
		if mac == "" {
			continue
		}
		neighbors = append(neighbors, Neighbor{
			MAC:       mac,
			IP:        rec["address"],
			Hostname:  rec["identity"],
			Interface: resolvePort(rec["interface"], mac, macToPort),
			Version:   rec["version"],
			Model:     rec["board"],
			Type:      "mndp",
		})
	}

	return neighbors
}

func resolvePort(iface, mac string, macToPort map[string]string) string {
	if port, ok := macToPort[mac]; ok {
		return port
	}
	return iface
}

// deriveUpstream finds the device's own upstream physical interface:
// the default-route gateway's IP, resolved to a MAC via ARP, resolved
// to a physical port via the bridge-host map.
func deriveUpstream(routeOut, arpOut string, macToPort map[string]string) string {
	var gateway string
	for _, rec := range parseTerseLines(routeOut) {
		if g := rec["gateway"]; g != "" {
			gateway = g
			break
		}
	}
	if gateway == "" {
		return ""
	}

	var gatewayMAC string
	for _, rec := range parseTerseLines(arpOut) {
		if rec["address"] == gateway {
			gatewayMAC = strings.ToUpper(rec["mac-address"])
			break
		}
	}
	if gatewayMAC == "" {
		return ""
	}

	return macToPort[gatewayMAC]
}
