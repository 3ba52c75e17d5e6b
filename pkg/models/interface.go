package models

import (
	"sort"
	"strconv"
	"strings"
)

// Interface is a port on a device. Owned by exactly one device; every
// scan deletes and re-inserts a device's interface rows wholesale.
type Interface struct {
	ID          int64  `json:"id"`
	DeviceMAC   string `json:"device_mac"`
	Name        string `json:"name" example:"ether1"`
	IP          string `json:"ip,omitempty" example:"10.0.3.1/24"`
	Bridge      string `json:"bridge,omitempty" example:"bridge1"`
	VLAN        string `json:"vlan,omitempty" example:"T:1000,1010"`
	PoEWatts    float64 `json:"poe_watts,omitempty" example:"15.4"`
	PoEStandard string  `json:"poe_standard,omitempty" example:"802.3af"`
	LinkUp      bool    `json:"link_up"`
	Comment     string  `json:"comment,omitempty"`
}

// VLANDescriptor is the parsed form of an Interface.VLAN string: an
// optional untagged access/PVID value plus zero or more tagged VLANs.
type VLANDescriptor struct {
	Access *int
	Tagged []int
}

// ParseVLAN decodes one of the three wire forms produced by a driver:
//
//	"1000"            -> access-only
//	"T:1000,1010"     -> tagged-trunk only
//	"100+T:200,300"   -> hybrid: access 100, tagged 200 and 300
//
// An empty string yields a zero-value descriptor.
func ParseVLAN(s string) (VLANDescriptor, error) {
	var d VLANDescriptor
	if s == "" {
		return d, nil
	}

	accessPart, taggedPart, hasTagged := strings.Cut(s, "+T:")
	if !hasTagged {
		if strings.HasPrefix(s, "T:") {
			taggedPart = strings.TrimPrefix(s, "T:")
			accessPart = ""
		} else {
			accessPart = s
			taggedPart = ""
		}
	}

	if accessPart != "" {
		v, err := strconv.Atoi(accessPart)
		if err != nil {
			return d, err
		}
		d.Access = &v
	}

	if taggedPart != "" {
		for _, tok := range strings.Split(taggedPart, ",") {
			v, err := strconv.Atoi(strings.TrimSpace(tok))
			if err != nil {
				return d, err
			}
			d.Tagged = append(d.Tagged, v)
		}
	}

	return d, nil
}

// String re-serializes the descriptor to the same wire form ParseVLAN
// accepts. Tagged VLANs are emitted in ascending order so the result is
// stable regardless of discovery order.
func (d VLANDescriptor) String() string {
	if d.Access == nil && len(d.Tagged) == 0 {
		return ""
	}

	tagged := append([]int(nil), d.Tagged...)
	sort.Ints(tagged)

	var taggedStr string
	if len(tagged) > 0 {
		parts := make([]string, len(tagged))
		for i, v := range tagged {
			parts[i] = strconv.Itoa(v)
		}
		taggedStr = "T:" + strings.Join(parts, ",")
	}

	switch {
	case d.Access != nil && taggedStr != "":
		return strconv.Itoa(*d.Access) + "+" + taggedStr
	case d.Access != nil:
		return strconv.Itoa(*d.Access)
	default:
		return taggedStr
	}
}
