package drivers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ridgeline-labs/netspan/internal/snmpwalk"
	"github.com/ridgeline-labs/netspan/internal/sshconn"
	"github.com/ridgeline-labs/netspan/pkg/models"
)

// ThreeComDriver probes 3Com (and H3C-lineage) switches whose shell
// exposes identity data but not interface or forwarding-table state;
// those come from SNMP instead, per spec.md §4.4.
type ThreeComDriver struct{}

func (d *ThreeComDriver) Name() string    { return "threecom" }
func (d *ThreeComDriver) ShellOnly() bool { return true }

func (d *ThreeComDriver) Probe(ctx context.Context, target Target) (*DeviceInfo, error) {
	shell, err := target.SSH.NewShell()
	if err != nil {
		return nil, fmt.Errorf("open shell: %w", err)
	}
	defer shell.Close()

	if err := shell.WaitForPrompt(ctx, sshconn.ZyxelThreeComPrompt); err != nil {
		return nil, fmt.Errorf("wait for initial prompt: %w", err)
	}

	summaryOut, err := shell.RunCommand(ctx, "summary", sshconn.ZyxelThreeComPrompt)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}

	info := &DeviceInfo{
		Hostname: parseThreeComField(summaryOut, "Select menu option"),
		Model:    parseThreeComField(summaryOut, "Hardware version"),
		Serial:   parseThreeComField(summaryOut, "Serial number"),
		Version:  parseThreeComField(summaryOut, "Software version"),
	}
	if info.Hostname == "" {
		info.Hostname = parseThreeComHostname(summaryOut)
	}
	info.MAC = extractMAC(summaryOut)

	snmpClient := snmpwalk.New(target.IP, 0, target.SNMPCommunity, 3*time.Second)

	ifaces, err := snmpClient.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("snmp interfaces: %w", err)
	}
	info.Interfaces = convertSNMPInterfaces(ifaces)

	fdb, err := snmpClient.ForwardingTable()
	if err != nil {
		return nil, fmt.Errorf("snmp forwarding table: %w", err)
	}
	portByIndex := make(map[int]string, len(ifaces))
	for _, iface := range ifaces {
		portByIndex[iface.Index] = iface.Description
	}
	for _, entry := range fdb {
		info.Neighbors = append(info.Neighbors, Neighbor{
			MAC:       entry.MAC,
			Interface: portByIndex[entry.Port],
			Type:      "bridge-host",
		})
	}

	return info, nil
}

func parseThreeComField(output, label string) string {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, label); ok {
			return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(v), ":"))
		}
	}
	return ""
}

// parseThreeComHostname falls back to the prompt line's device name
// when summary doesn't carry an explicit system-name field.
func parseThreeComHostname(summaryOut string) string {
	for _, line := range strings.Split(summaryOut, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasSuffix(line, ">") || strings.HasSuffix(line, "#") {
			return strings.Trim(line, "<>#")
		}
	}
	return ""
}

func convertSNMPInterfaces(ifaces []snmpwalk.Interface) []models.Interface {
	out := make([]models.Interface, 0, len(ifaces))
	for _, iface := range ifaces {
		name := iface.Description
		if name == "" {
			name = "if" + strconv.Itoa(iface.Index)
		}
		out = append(out, models.Interface{
			Name:   name,
			LinkUp: iface.OperUp,
		})
	}
	return out
}
