// Package ouilookup resolves a MAC address's organizationally unique
// identifier (OUI) prefix to the manufacturer name IEEE assigned it,
// the first signal netspan's vendor classifier consults before
// falling back to a banner match.
package ouilookup

import "strings"

// table maps a normalized "XX:XX:XX" OUI prefix to manufacturer name.
// Covers the vendors netspan's drivers target plus enough common
// consumer/infrastructure manufacturers that end-device classification
// has something to go on. Not an exhaustive IEEE registry mirror --
// no ecosystem library in the example pack ships one, so this is a
// hand-maintained table in the same spirit as the teacher's
// classification-rule list in oui_classifier.go.
var table = map[string]string{
	"4C:5E:0C": "MikroTik",
	"6C:3B:6B": "MikroTik",
	"D4:CA:6D": "MikroTik",
	"00:0C:42": "MikroTik",
	"64:D1:54": "MikroTik",
	"74:4D:28": "MikroTik",

	"1C:74:0D": "Zyxel",
	"5C:83:5C": "Zyxel",
	"B0:B2:DC": "Zyxel",
	"88:DC:96": "Zyxel",

	"00:01:02": "3Com",
	"00:10:4B": "3Com",
	"00:50:8B": "3Com",
	"00:60:08": "3Com",

	"00:24:D7": "Ruckus Wireless",
	"8C:0C:90": "Ruckus Wireless",
	"C0:C5:22": "Ruckus Wireless",
	"2C:5B:B8": "CommScope Ruckus",

	"00:1A:2B": "Cisco",
	"00:0C:29": "VMware",
	"B8:27:EB": "Raspberry Pi Foundation",
	"DC:A6:32": "Raspberry Pi Foundation",
	"3C:5A:B4": "Google",
	"F4:F5:D8": "Google",
	"FC:FC:48": "Apple",
	"A4:83:E7": "Apple",
	"B4:F1:DA": "Apple",
}

// Lookup returns the manufacturer name for mac's OUI prefix, or "" if
// unknown. mac may use ":" or "-" separators and any case.
func Lookup(mac string) string {
	prefix := normalizePrefix(mac)
	if prefix == "" {
		return ""
	}
	return table[prefix]
}

// normalizePrefix extracts the first three octets of mac as
// "XX:XX:XX", uppercased, regardless of the input's separator.
func normalizePrefix(mac string) string {
	mac = strings.ReplaceAll(mac, "-", ":")
	parts := strings.Split(mac, ":")
	if len(parts) < 3 {
		return ""
	}
	octets := make([]string, 3)
	for i := 0; i < 3; i++ {
		if len(parts[i]) != 2 {
			return ""
		}
		octets[i] = strings.ToUpper(parts[i])
	}
	return strings.Join(octets, ":")
}
