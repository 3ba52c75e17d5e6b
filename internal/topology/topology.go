// Package topology assembles the discovered device tree for a network
// from persisted state, per spec.md §4.7. Assembly is a pure function
// of the database: no column it reads is scan-session state, so a
// result can be cached per network until the next scan completes.
package topology

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ridgeline-labs/netspan/internal/store"
	"github.com/ridgeline-labs/netspan/pkg/models"
)

// Node is one device's place in the assembled tree: its row, its
// current interfaces, and the devices hanging off any of them.
//
// Synthetic marks a node the assembler inserted rather than read from
// the devices table: an inferred "unknown switch" standing in for an
// unmanaged hub/switch that itself never answered a probe, per
// spec.md §4.5's tree-inference rule. Synthetic nodes have no
// Interfaces and their Device.PrimaryMAC is not a real MAC.
type Node struct {
	Device     models.Device
	Interfaces []models.Interface
	Children   []*Node
	Synthetic  bool
}

// Assemble loads a network's devices, interfaces, and DHCP leases and
// builds the parent-interface -> child-device forest spec.md §4.7
// describes, rooted at every device with a nil ParentInterfaceID.
func Assemble(ctx context.Context, s *store.Store, networkID string) ([]*Node, error) {
	devices, err := s.ListDevicesByNetwork(ctx, networkID)
	if err != nil {
		return nil, fmt.Errorf("load devices: %w", err)
	}
	ifaces, err := s.InterfacesForNetwork(ctx, networkID)
	if err != nil {
		return nil, fmt.Errorf("load interfaces: %w", err)
	}
	leases, err := s.DhcpLeasesForNetwork(ctx, networkID)
	if err != nil {
		return nil, fmt.Errorf("load dhcp leases: %w", err)
	}
	return AssembleFromData(devices, ifaces, leases), nil
}

// AssembleFromData is the pure-logic half of Assemble, separated out
// for testability the way the teacher's InferHierarchyFromData is.
func AssembleFromData(devices []models.Device, ifaces []models.Interface, leases []models.DhcpLease) []*Node {
	if len(devices) == 0 {
		return nil
	}

	resolveHostnames(devices, leases)

	ifacesByDevice := make(map[string][]models.Interface)
	ifaceOwner := make(map[int64]string, len(ifaces)) // interface ID -> owning device MAC
	ifaceByID := make(map[int64]models.Interface, len(ifaces))
	for _, iface := range ifaces {
		ifacesByDevice[iface.DeviceMAC] = append(ifacesByDevice[iface.DeviceMAC], iface)
		ifaceOwner[iface.ID] = iface.DeviceMAC
		ifaceByID[iface.ID] = iface
	}

	nodes := make(map[string]*Node, len(devices))
	for _, d := range devices {
		nodes[d.PrimaryMAC] = &Node{Device: d, Interfaces: ifacesByDevice[d.PrimaryMAC]}
	}

	var roots []*Node
	for _, d := range devices {
		node := nodes[d.PrimaryMAC]
		if d.ParentInterfaceID == nil {
			roots = append(roots, node)
			continue
		}
		parentMAC, ok := ifaceOwner[*d.ParentInterfaceID]
		if !ok {
			// Parent interface row vanished (device deleted, interface
			// replaced mid-read): treat this device as a root rather
			// than dropping it from the tree.
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[parentMAC]
		if !ok {
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	roots = breakCycles(roots, nodes)
	insertSyntheticSwitches(roots, ifaceByID)
	sortForest(roots)
	return roots
}

// insertSyntheticSwitches walks the forest bottom-up and, at each node,
// groups children that hang off the same wired parent interface. A
// group of two or more, all inaccessible, stands in for an unmanaged
// switch/hub the scan never reached directly; a synthetic node is
// spliced in between so the tree output reflects that physical layer
// without a row ever being written for it.
func insertSyntheticSwitches(nodes []*Node, ifaceByID map[int64]models.Interface) {
	for _, n := range nodes {
		insertSyntheticSwitches(n.Children, ifaceByID)
		n.Children = groupSharedUpstreamChildren(n.Children, ifaceByID)
	}
}

func groupSharedUpstreamChildren(children []*Node, ifaceByID map[int64]models.Interface) []*Node {
	if len(children) < 2 {
		return children
	}

	var order []int64
	byIface := make(map[int64][]*Node)
	var unparented []*Node
	for _, c := range children {
		if c.Device.ParentInterfaceID == nil {
			unparented = append(unparented, c)
			continue
		}
		id := *c.Device.ParentInterfaceID
		if _, seen := byIface[id]; !seen {
			order = append(order, id)
		}
		byIface[id] = append(byIface[id], c)
	}

	out := make([]*Node, 0, len(children))
	for _, id := range order {
		group := byIface[id]
		iface := ifaceByID[id]
		if len(group) >= 2 && !strings.HasPrefix(strings.ToLower(iface.Name), "wlan") && allInaccessible(group) {
			out = append(out, &Node{
				Device: models.Device{
					PrimaryMAC: models.UnknownDeviceID(iface.Name),
					Hostname:   "Unknown switch",
					DeviceType: models.DeviceTypeSwitch,
				},
				Synthetic: true,
				Children:  group,
			})
			continue
		}
		out = append(out, group...)
	}
	return append(out, unparented...)
}

func allInaccessible(nodes []*Node) bool {
	for _, n := range nodes {
		if n.Device.Accessible {
			return false
		}
	}
	return true
}

// resolveHostnames fills in a device's hostname from the lease table
// when the scan itself produced none: first by MAC, then by IP.
func resolveHostnames(devices []models.Device, leases []models.DhcpLease) {
	byMAC := make(map[string]string, len(leases))
	byIP := make(map[string]string, len(leases))
	for _, l := range leases {
		if l.Hostname == "" {
			continue
		}
		if l.MAC != "" {
			byMAC[l.MAC] = l.Hostname
		}
		if l.IP != "" {
			byIP[l.IP] = l.Hostname
		}
	}

	for i := range devices {
		if devices[i].Hostname != "" {
			continue
		}
		if h, ok := byMAC[devices[i].PrimaryMAC]; ok {
			devices[i].Hostname = h
		} else if h, ok := byIP[devices[i].IP]; ok {
			devices[i].Hostname = h
		}
	}
}

// breakCycles defensively walks from every root and detaches any child
// link that would revisit a device already on the current path. Per
// spec.md §9, cycles are structurally impossible given how
// parent_interface_id is populated, but link-building must still bail
// out safely if the data ever violates that invariant. A device no root
// reaches (one caught in a pure parent cycle) is promoted to a root, in
// MAC order, so it stays in the forest; the returned slice holds the
// roots after promotion.
func breakCycles(roots []*Node, nodes map[string]*Node) []*Node {
	visited := make(map[string]bool, len(nodes))
	for _, root := range roots {
		walkBreakingCycles(root, map[string]bool{}, visited)
	}
	var unreached []string
	for mac := range nodes {
		if !visited[mac] {
			unreached = append(unreached, mac)
		}
	}
	sort.Strings(unreached)
	for _, mac := range unreached {
		if visited[mac] {
			continue
		}
		roots = append(roots, nodes[mac])
		walkBreakingCycles(nodes[mac], map[string]bool{}, visited)
	}
	return roots
}

func walkBreakingCycles(n *Node, onPath map[string]bool, visited map[string]bool) {
	mac := n.Device.PrimaryMAC
	onPath[mac] = true
	visited[mac] = true

	kept := n.Children[:0]
	for _, child := range n.Children {
		if onPath[child.Device.PrimaryMAC] {
			continue // would close a cycle back onto the current path
		}
		kept = append(kept, child)
	}
	n.Children = kept

	for _, child := range n.Children {
		walkBreakingCycles(child, onPath, visited)
	}
	delete(onPath, mac)
}

// sortForest orders roots and every children slice by MAC so the
// assembled tree is stable across calls given identical input data.
func sortForest(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Device.PrimaryMAC < nodes[j].Device.PrimaryMAC })
	for _, n := range nodes {
		sortForest(n.Children)
	}
}
