package drivers

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ridgeline-labs/netspan/internal/sshconn"
	"github.com/ridgeline-labs/netspan/pkg/models"
)

// ZyxelDriver probes Zyxel (and compatible 3Com-lineage) switches that
// close exec channels outright, forcing every command through an
// interactive shell, per spec.md §4.4/§4.2.
type ZyxelDriver struct{}

func (d *ZyxelDriver) Name() string    { return "zyxel" }
func (d *ZyxelDriver) ShellOnly() bool { return true }

// serialPattern matches the serial number format Zyxel prints on its
// embedded web UI first page when the CLI omits it.
var serialPattern = regexp.MustCompile(`S\d{3}[A-Z]\d+`)

func (d *ZyxelDriver) Probe(ctx context.Context, target Target) (*DeviceInfo, error) {
	shell, err := target.SSH.NewShell()
	if err != nil {
		return nil, fmt.Errorf("open shell: %w", err)
	}
	defer shell.Close()

	if err := shell.WaitForPrompt(ctx, sshconn.ZyxelThreeComPrompt); err != nil {
		return nil, fmt.Errorf("wait for initial prompt: %w", err)
	}

	sysInfoOut, err := shell.RunCommand(ctx, "show system-information", sshconn.ZyxelThreeComPrompt)
	if err != nil {
		return nil, fmt.Errorf("show system-information: %w", err)
	}
	macTableOut, err := shell.RunCommand(ctx, "show mac address-table all", sshconn.ZyxelThreeComPrompt)
	if err != nil {
		return nil, fmt.Errorf("show mac address-table all: %w", err)
	}
	ifaceOut, err := shell.RunCommand(ctx, "show interfaces status", sshconn.ZyxelThreeComPrompt)
	if err != nil {
		return nil, fmt.Errorf("show interfaces status: %w", err)
	}
	runningConfigOut, err := shell.RunCommand(ctx, "show running-config", sshconn.ZyxelThreeComPrompt)
	if err != nil {
		return nil, fmt.Errorf("show running-config: %w", err)
	}
	vlanOut, err := shell.RunCommand(ctx, "show vlan", sshconn.ZyxelThreeComPrompt)
	if err != nil {
		return nil, fmt.Errorf("show vlan: %w", err)
	}

	info := &DeviceInfo{
		Hostname:   parseZyxelField(sysInfoOut, "System Name"),
		Model:      parseZyxelField(sysInfoOut, "Model"),
		Version:    parseZyxelField(sysInfoOut, "Firmware Version"),
		Serial:     parseZyxelField(sysInfoOut, "Serial Number"),
		Interfaces: parseZyxelInterfaces(ifaceOut),
	}

	info.MAC = parseZyxelField(sysInfoOut, "MAC Address")
	if info.MAC == "" {
		info.MAC = extractMAC(sysInfoOut)
	}

	applyZyxelVLANs(info.Interfaces, vlanOut)
	info.Neighbors = parseZyxelMacTable(macTableOut)
	info.OwnUpstreamInterface = detectZyxelUpstream(macTableOut, runningConfigOut)

	if info.Serial == "" && target.JumpHost != nil && target.JumpHost.Supported() {
		if body, err := target.JumpHost.FetchHTTP(target.IP, 443, true, "/FirstPage.html", target.IP); err == nil {
			if m := serialPattern.FindString(string(body)); m != "" {
				info.Serial = m
			}
		} else if body, err := target.JumpHost.FetchHTTP(target.IP, 80, false, "/FirstPage.html", target.IP); err == nil {
			if m := serialPattern.FindString(string(body)); m != "" {
				info.Serial = m
			}
		}
	}

	return info, nil
}

// parseZyxelField extracts a "Key : value" or "Key: value" line from a
// show system-information block.
func parseZyxelField(output, field string) string {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, field) {
			continue
		}
		rest := strings.TrimPrefix(line, field)
		rest = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest), ":"))
		return rest
	}
	return ""
}

// parseZyxelInterfaces parses "show interfaces status" rows of the
// form "Port  Name  Link  State  LACP  PVID  Pri  Flow Ctrl".
func parseZyxelInterfaces(output string) []models.Interface {
	var ifaces []models.Interface
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		port := fields[0]
		if !isPortToken(port) {
			continue
		}
		link := strings.ToLower(fields[2])
		ifaces = append(ifaces, models.Interface{
			Name:   port,
			LinkUp: link == "up" || link == "forwarding",
		})
	}
	return ifaces
}

func isPortToken(s string) bool {
	return strings.Contains(s, "/") || isDigits(s)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// applyZyxelVLANs parses "show vlan" output, one VLAN block per VLAN ID
// listing untagged and tagged member ports, and writes the resulting
// descriptor string onto each matching interface.
func applyZyxelVLANs(ifaces []models.Interface, vlanOut string) {
	access := make(map[string]int)
	tagged := make(map[string][]int)

	var currentVLAN int
	for _, line := range strings.Split(vlanOut, "\n") {
		line = strings.TrimSpace(line)
		if vid, ok := strings.CutPrefix(line, "VLAN "); ok {
			if n, err := strconv.Atoi(strings.Fields(vid)[0]); err == nil {
				currentVLAN = n
			}
			continue
		}
		if currentVLAN == 0 {
			continue
		}
		if ports, ok := strings.CutPrefix(line, "Untagged Ports:"); ok {
			for _, p := range strings.Split(ports, ",") {
				p = strings.TrimSpace(p)
				if p != "" {
					access[p] = currentVLAN
				}
			}
		}
		if ports, ok := strings.CutPrefix(line, "Tagged Ports:"); ok {
			for _, p := range strings.Split(ports, ",") {
				p = strings.TrimSpace(p)
				if p != "" {
					tagged[p] = append(tagged[p], currentVLAN)
				}
			}
		}
	}

	for i := range ifaces {
		desc := models.VLANDescriptor{Tagged: tagged[ifaces[i].Name]}
		if v, ok := access[ifaces[i].Name]; ok {
			desc.Access = &v
		}
		if desc.Access != nil || len(desc.Tagged) > 0 {
			ifaces[i].VLAN = desc.String()
		}
	}
}

// parseZyxelMacTable parses "show mac address-table all" rows of the
// form "VLAN  MAC Address  Port  Type".
func parseZyxelMacTable(output string) []Neighbor {
	var neighbors []Neighbor
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		mac := strings.ToUpper(fields[1])
		if !looksLikeMAC(mac) {
			continue
		}
		neighbors = append(neighbors, Neighbor{
			MAC:       mac,
			Interface: fields[2],
			Type:      "bridge-host",
		})
	}
	return neighbors
}

func looksLikeMAC(s string) bool {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ':' || r == '-' })
	return len(parts) == 6
}

// detectZyxelUpstream assumes the port carrying the most distinct MACs
// in the MAC table is the uplink, matching the heuristic a human reading
// "show mac address-table all" would apply absent an explicit uplink
// designation in running-config.
func detectZyxelUpstream(macTableOut, runningConfigOut string) string {
	if port, ok := explicitUplinkFromConfig(runningConfigOut); ok {
		return port
	}

	counts := make(map[string]int)
	for _, n := range parseZyxelMacTable(macTableOut) {
		counts[n.Interface]++
	}
	var best string
	var bestCount int
	for port, count := range counts {
		if count > bestCount {
			best, bestCount = port, count
		}
	}
	return best
}

func explicitUplinkFromConfig(runningConfigOut string) (string, bool) {
	for _, line := range strings.Split(runningConfigOut, "\n") {
		line = strings.TrimSpace(line)
		if strings.Contains(strings.ToLower(line), "uplink") {
			fields := strings.Fields(line)
			if len(fields) > 0 {
				return fields[len(fields)-1], true
			}
		}
	}
	return "", false
}
