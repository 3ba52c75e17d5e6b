package drivers

import (
	"context"
	"fmt"
	"strings"

	"github.com/ridgeline-labs/netspan/internal/sshconn"
)

// RuckusDriver probes Ruckus wireless access points/controllers over a
// shell session that requires an explicit "enable" preamble before
// privileged show commands become available, per spec.md §4.4.
type RuckusDriver struct{}

func (d *RuckusDriver) Name() string    { return "ruckus" }
func (d *RuckusDriver) ShellOnly() bool { return true }

func (d *RuckusDriver) Probe(ctx context.Context, target Target) (*DeviceInfo, error) {
	shell, err := target.SSH.NewShell()
	if err != nil {
		return nil, fmt.Errorf("open shell: %w", err)
	}
	defer shell.Close()

	if err := shell.WaitForPrompt(ctx, sshconn.RuckusPrompt); err != nil {
		return nil, fmt.Errorf("wait for initial prompt: %w", err)
	}
	if _, err := shell.RunCommand(ctx, "enable", sshconn.RuckusPrompt); err != nil {
		return nil, fmt.Errorf("enable: %w", err)
	}

	sysInfoOut, err := shell.RunCommand(ctx, "show sysinfo", sshconn.RuckusPrompt)
	if err != nil {
		return nil, fmt.Errorf("show sysinfo: %w", err)
	}
	clientsOut, err := shell.RunCommand(ctx, "show current-active-clients all", sshconn.RuckusPrompt)
	if err != nil {
		return nil, fmt.Errorf("show current-active-clients all: %w", err)
	}

	info := &DeviceInfo{
		Hostname: parseRuckusField(sysInfoOut, "Device Name"),
		Model:    parseRuckusField(sysInfoOut, "Model"),
		Serial:   parseRuckusField(sysInfoOut, "Serial Number"),
		Version:  parseRuckusField(sysInfoOut, "Version"),
	}
	info.Neighbors = parseRuckusClients(clientsOut)

	info.MAC = parseRuckusField(sysInfoOut, "MAC Address")
	if info.MAC == "" {
		info.MAC = extractMAC(sysInfoOut)
	}

	return info, nil
}

func parseRuckusField(output, label string) string {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, label); ok {
			return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(v), ":"))
		}
	}
	return ""
}

// parseRuckusClients parses "show current-active-clients all" rows,
// each carrying a client MAC and the IP it was last seen using.
func parseRuckusClients(output string) []Neighbor {
	var neighbors []Neighbor
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		var mac, ip string
		for _, f := range fields {
			if looksLikeMAC(strings.ToUpper(f)) {
				mac = strings.ToUpper(f)
			} else if strings.Count(f, ".") == 3 {
				ip = f
			}
		}
		if mac == "" {
			continue
		}
		neighbors = append(neighbors, Neighbor{
			MAC:  mac,
			IP:   ip,
			Type: "wireless-client",
		})
	}
	return neighbors
}
