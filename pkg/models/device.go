package models

import "time"

// DeviceType is the classifier's best guess at what a device is.
// The coarse values drive topology-layer inference; UserType on Device
// can override with a finer label without touching this field.
type DeviceType string

const (
	DeviceTypeRouter      DeviceType = "router"
	DeviceTypeSwitch      DeviceType = "switch"
	DeviceTypeAccessPoint DeviceType = "access-point"
	DeviceTypeEndDevice   DeviceType = "end-device"
	DeviceTypeUnknown     DeviceType = "unknown"
)

// DiscoveryMethod records which neighbor-table entry produced a device.
type DiscoveryMethod string

const (
	DiscoveryDHCP       DiscoveryMethod = "dhcp"
	DiscoveryARP        DiscoveryMethod = "arp"
	DiscoveryBridgeHost DiscoveryMethod = "bridge-host"
	DiscoveryMNDP       DiscoveryMethod = "mndp"
	DiscoveryLLDP       DiscoveryMethod = "lldp"
	DiscoveryCDP        DiscoveryMethod = "cdp"
	DiscoveryManual     DiscoveryMethod = "manual"
)

// Device is a discovered network node, keyed by its primary MAC address.
// Rows outlive the scan that found them; only the scan-owned fields above
// the "User-managed" comment line are rewritten on a re-scan. The
// user-managed fields are never touched by the scanner once set.
type Device struct {
	PrimaryMAC string `json:"primary_mac" example:"00:1A:2B:3C:4D:5E"`
	NetworkID  string `json:"network_id"`

	Hostname        string          `json:"hostname,omitempty" example:"sw-floor3-01"`
	IP              string          `json:"ip,omitempty" example:"10.0.3.1"`
	Vendor          string          `json:"vendor,omitempty" example:"MikroTik"`
	Model           string          `json:"model,omitempty" example:"CRS326-24G-2S+"`
	Serial          string          `json:"serial,omitempty" example:"A1B2C3D4E5"`
	FirmwareVersion string          `json:"firmware_version,omitempty" example:"7.15.3"`
	DeviceType      DeviceType      `json:"device_type" example:"switch"`
	Accessible      bool            `json:"accessible"`
	OpenPorts       string          `json:"open_ports,omitempty" example:"[22,80,443,8291]"`
	Driver          string          `json:"driver,omitempty" example:"mikrotik-api"`
	DiscoveryMethod DiscoveryMethod `json:"discovery_method,omitempty" example:"bridge-host"`

	// ParentInterfaceID is the interface on the parent device this device
	// hangs off of. Nil for the scan's root device.
	ParentInterfaceID *int64 `json:"parent_interface_id,omitempty"`
	// UpstreamInterfaceName is the name of this device's own interface
	// that carries traffic toward its parent.
	UpstreamInterfaceName string `json:"upstream_interface_name,omitempty" example:"ether1"`

	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`

	// User-managed. Set once by an operator, never overwritten by a scan.
	Comment    string `json:"comment,omitempty"`
	Nomad      bool   `json:"nomad"`
	SkipLogin  bool   `json:"skip_login"`
	UserType   string `json:"user_type,omitempty" example:"security-camera"`
	AssetTag   string `json:"asset_tag,omitempty"`
	LocationID string `json:"location_id,omitempty"`
}

// EffectiveType returns UserType when set, else the classifier's DeviceType.
func (d Device) EffectiveType() string {
	if d.UserType != "" {
		return d.UserType
	}
	return string(d.DeviceType)
}

// Network layer constants used by the topology assembler to order a
// device's place in the discovered tree.
const (
	NetworkLayerUnknown      = 0
	NetworkLayerGateway      = 1
	NetworkLayerDistribution = 2
	NetworkLayerAccess       = 3
	NetworkLayerEndpoint     = 4
)

// Layer returns the hierarchy layer implied by DeviceType.
func (dt DeviceType) Layer() int {
	switch dt {
	case DeviceTypeRouter:
		return NetworkLayerGateway
	case DeviceTypeSwitch:
		return NetworkLayerDistribution
	case DeviceTypeAccessPoint:
		return NetworkLayerAccess
	case DeviceTypeEndDevice:
		return NetworkLayerEndpoint
	default:
		return NetworkLayerUnknown
	}
}

// UnknownDeviceID builds the synthetic identifier used in place of a MAC
// when no MAC is learnable for a discovered node.
func UnknownDeviceID(ip string) string {
	out := make([]byte, 0, len(ip)+8)
	out = append(out, "UNKNOWN-"...)
	for _, r := range ip {
		if r == '.' || r == ':' {
			out = append(out, '-')
			continue
		}
		out = append(out, byte(r))
	}
	return string(out)
}
