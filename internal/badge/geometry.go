package badge

import (
	"sort"

	"github.com/ridgeline-labs/netspan/pkg/models"
)

const (
	badgeWidth       = 140.0
	sectionHeight    = 14.0
	lineGap          = 4.0
	centroidRadius   = 12.0
	anchorOffsetX    = 10.0
	displaceStep     = 6.0
	maxCrossingPasses = 10
	maxBlockPasses    = 5
)

// rect is an axis-aligned bounding box in PDF point space.
type rect struct {
	X, Y, W, H float64
}

func (r rect) overlaps(o rect) bool {
	return r.X < o.X+o.W && r.X+r.W > o.X && r.Y < o.Y+o.H && r.Y+r.H > o.Y
}

func (r rect) intersectsCircle(cx, cy, radius float64) bool {
	closestX := clamp(cx, r.X, r.X+r.W)
	closestY := clamp(cy, r.Y, r.Y+r.H)
	dx, dy := cx-closestX, cy-closestY
	return dx*dx+dy*dy <= radius*radius
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// placement is one device badge's working state during layout.
type placement struct {
	deviceMAC  string
	deviceType string
	fields     []string
	centroid   models.Point
	stackDir   int // +1 stacks downward, -1 stacks upward
	box        rect
}

// leftEdgeCenter is the leader-line endpoint on the badge, per spec.md
// §4.8's "centroid -> badge left-edge center" segment.
func (p placement) leftEdgeCenter() models.Point {
	return models.Point{X: p.box.X, Y: p.box.Y + p.box.H/2}
}

// badgeSize derives a badge's rectangle dimensions from its field count,
// one 0.5pt-separated section per field (field 0 is the icon cell).
func badgeSize(fieldCount int) (w, h float64) {
	sections := fieldCount
	return badgeWidth, float64(sections)*sectionHeight + float64(sections-1)*0.5
}

// layoutLocations orders the locations by ascending centroid Y (stable
// tie-break on location ID, per spec.md §4.8's determinism requirement)
// and builds one placement per device, stacked from each location's
// initial anchor.
func layoutLocations(polygons []models.LocationPolygon, devicesByLocation map[string][]models.Device) []*placement {
	type locEntry struct {
		poly     models.LocationPolygon
		centroid models.Point
	}
	entries := make([]locEntry, 0, len(polygons))
	for _, poly := range polygons {
		entries = append(entries, locEntry{poly: poly, centroid: poly.Centroid()})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].centroid.Y != entries[j].centroid.Y {
			return entries[i].centroid.Y < entries[j].centroid.Y
		}
		return entries[i].poly.LocationID < entries[j].poly.LocationID
	})

	var placements []*placement
	for idx, e := range entries {
		stackDir := 1
		if idx%2 == 1 {
			stackDir = -1
		}

		devices := devicesByLocation[e.poly.LocationID]
		sort.SliceStable(devices, func(i, j int) bool { return devices[i].PrimaryMAC < devices[j].PrimaryMAC })

		cursorY := e.centroid.Y
		for _, d := range devices {
			fields := badgeFields(d)
			w, h := badgeSize(len(fields))

			anchorY := cursorY - h/2

			p := &placement{
				deviceMAC:  d.PrimaryMAC,
				deviceType: d.EffectiveType(),
				fields:     fields,
				centroid:   e.centroid,
				stackDir:   stackDir,
				box: rect{
					X: e.centroid.X + anchorOffsetX,
					Y: anchorY,
					W: w,
					H: h,
				},
			}
			placements = append(placements, p)

			cursorY = anchorY + float64(stackDir)*(h+lineGap)
		}
	}
	return placements
}

// badgeFields renders a device's badge content in the fixed
// {icon, asset tag?, vendor+model, serial?} order, per spec.md §4.8.
func badgeFields(d models.Device) []string {
	fields := []string{d.EffectiveType()}
	if d.AssetTag != "" {
		fields = append(fields, d.AssetTag)
	}
	vendorModel := d.Vendor
	if d.Model != "" {
		if vendorModel != "" {
			vendorModel += " " + d.Model
		} else {
			vendorModel = d.Model
		}
	}
	if vendorModel != "" {
		fields = append(fields, vendorModel)
	}
	if d.Serial != "" {
		fields = append(fields, d.Serial)
	}
	return fields
}

// resolveOverlaps implements relaxation pass (i)/(iii)/(vi): any two
// badges whose rectangles overlap are separated by displacing the
// later one along its own stack direction.
func resolveOverlaps(placements []*placement) {
	for i := 0; i < len(placements); i++ {
		for j := i + 1; j < len(placements); j++ {
			a, b := placements[i], placements[j]
			for a.box.overlaps(b.box) {
				b.box.Y += float64(b.stackDir) * displaceStep
			}
		}
	}
}

// resolveCentroidOverlaps implements pass (ii): a badge rectangle must
// not intersect the 12pt-radius clearance circle around any centroid.
func resolveCentroidOverlaps(placements []*placement) {
	for _, p := range placements {
		for _, other := range placements {
			guard := 0
			for p.box.intersectsCircle(other.centroid.X, other.centroid.Y, centroidRadius) && guard < 1000 {
				p.box.Y += float64(p.stackDir) * displaceStep
				guard++
			}
		}
	}
}

// uncrossLeaderLines implements pass (iv): swap the Y position of two
// badges whenever doing so removes a leader-line crossing between them.
func uncrossLeaderLines(placements []*placement) {
	for iter := 0; iter < maxCrossingPasses; iter++ {
		swapped := false
		for i := 0; i < len(placements); i++ {
			for j := i + 1; j < len(placements); j++ {
				a, b := placements[i], placements[j]
				if !segmentsCross(a.centroid, a.leftEdgeCenter(), b.centroid, b.leftEdgeCenter()) {
					continue
				}
				a.box.Y, b.box.Y = b.box.Y, a.box.Y
				if segmentsCross(a.centroid, a.leftEdgeCenter(), b.centroid, b.leftEdgeCenter()) {
					a.box.Y, b.box.Y = b.box.Y, a.box.Y // revert, swap made no improvement
					continue
				}
				swapped = true
			}
		}
		if !swapped {
			break
		}
	}
}

// resolveLeaderLineBlocks implements pass (v): displace any badge whose
// rectangle sits across another badge's leader line.
func resolveLeaderLineBlocks(placements []*placement) {
	for iter := 0; iter < maxBlockPasses; iter++ {
		moved := false
		for _, blocker := range placements {
			for _, owner := range placements {
				if blocker == owner {
					continue
				}
				if segmentIntersectsRect(owner.centroid, owner.leftEdgeCenter(), blocker.box) {
					blocker.box.Y += float64(blocker.stackDir) * displaceStep
					moved = true
				}
			}
		}
		if !moved {
			break
		}
	}
}

// clampToPage implements pass (vii): bounds-clamping wins over any
// residual non-crossing guarantee, per spec.md §9 Open Question (c).
func clampToPage(placements []*placement, pageW, pageH float64) {
	for _, p := range placements {
		p.box.X = clamp(p.box.X, 0, pageW-p.box.W)
		p.box.Y = clamp(p.box.Y, 0, pageH-p.box.H)
	}
}

// layout runs the full relaxation pipeline of spec.md §4.8 step 3 over
// an initial set of placements, in document order.
func layout(placements []*placement, pageW, pageH float64) {
	resolveOverlaps(placements)       // (i)
	resolveCentroidOverlaps(placements) // (ii)
	resolveOverlaps(placements)       // (iii)
	uncrossLeaderLines(placements)    // (iv)
	resolveLeaderLineBlocks(placements) // (v)
	resolveOverlaps(placements)       // (vi)
	clampToPage(placements, pageW, pageH) // (vii)
}

// segmentsCross reports whether segments p1-p2 and p3-p4 cross,
// excluding shared endpoints, within an epsilon tolerance matching
// spec.md §8 property 6.
func segmentsCross(p1, p2, p3, p4 models.Point) bool {
	const eps = 0.01

	d1 := cross(p3, p4, p1)
	d2 := cross(p3, p4, p2)
	d3 := cross(p1, p2, p3)
	d4 := cross(p1, p2, p4)

	if ((d1 > eps && d2 < -eps) || (d1 < -eps && d2 > eps)) &&
		((d3 > eps && d4 < -eps) || (d3 < -eps && d4 > eps)) {
		return true
	}
	return false
}

func cross(a, b, c models.Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// segmentIntersectsRect reports whether segment p1-p2 crosses any edge
// of r, or has an endpoint strictly inside it.
func segmentIntersectsRect(p1, p2 models.Point, r rect) bool {
	if pointInRect(p1, r) || pointInRect(p2, r) {
		return true
	}
	corners := [4]models.Point{
		{X: r.X, Y: r.Y},
		{X: r.X + r.W, Y: r.Y},
		{X: r.X + r.W, Y: r.Y + r.H},
		{X: r.X, Y: r.Y + r.H},
	}
	for i := 0; i < 4; i++ {
		a, b := corners[i], corners[(i+1)%4]
		if segmentsCross(p1, p2, a, b) {
			return true
		}
	}
	return false
}

func pointInRect(p models.Point, r rect) bool {
	return p.X > r.X && p.X < r.X+r.W && p.Y > r.Y && p.Y < r.Y+r.H
}
