package badge

import (
	"github.com/go-pdf/fpdf"

	"github.com/ridgeline-labs/netspan/pkg/models"
)

// deviceTypeFill returns the icon-cell background color for a device
// type, per spec.md §4.8 step 2's "icon cell colored by device type".
func deviceTypeFill(deviceType string) (r, g, b int) {
	switch models.DeviceType(deviceType) {
	case models.DeviceTypeRouter:
		return 0xef, 0x44, 0x44
	case models.DeviceTypeSwitch:
		return 0x3b, 0x82, 0xf6
	case models.DeviceTypeAccessPoint:
		return 0x22, 0xc5, 0x5e
	case models.DeviceTypeEndDevice:
		return 0xa8, 0xa2, 0x9e
	default:
		return 0x64, 0x74, 0x8b
	}
}

const (
	polygonStrokeR, polygonStrokeG, polygonStrokeB = 0x8b, 0x5c, 0xf6
	slateDarkR, slateDarkG, slateDarkB             = 0x1e, 0x29, 0x3b
	slateLightR, slateLightG, slateLightB          = 0x33, 0x41, 0x55
)

// drawPolygon outlines one location polygon and centers its label
// inside the polygon's bounding box, per spec.md §4.8 step 1.
func drawPolygon(pdf *fpdf.Fpdf, poly models.LocationPolygon, label string) {
	if len(poly.Points) == 0 {
		return
	}

	pts := make([]fpdf.PointType, len(poly.Points))
	minX, minY := poly.Points[0].X, poly.Points[0].Y
	maxX, maxY := minX, minY
	for i, p := range poly.Points {
		pts[i] = fpdf.PointType{X: p.X, Y: p.Y}
		minX, maxX = minFloat(minX, p.X), maxFloat(maxX, p.X)
		minY, maxY = minFloat(minY, p.Y), maxFloat(maxY, p.Y)
	}

	pdf.SetDrawColor(polygonStrokeR, polygonStrokeG, polygonStrokeB)
	pdf.SetLineWidth(1.5)
	pdf.SetAlpha(0.8, "Normal")
	pdf.Polygon(pts, "D")
	pdf.SetAlpha(1.0, "Normal")

	boxW, boxH := maxX-minX, maxY-minY
	drawFittedLabel(pdf, label, minX+boxW*0.1, minY+boxH*0.1, boxW*0.8, boxH*0.8)
}

// drawFittedLabel sizes label to fit within the given box (max 24pt),
// stroking it in white from eight offset directions before the solid
// black fill, a cheap outline effect for legibility over a photograph
// or scanned floorplan background.
func drawFittedLabel(pdf *fpdf.Fpdf, label string, x, y, w, h float64) {
	if label == "" || w <= 0 || h <= 0 {
		return
	}
	size := h
	if size > 24 {
		size = 24
	}
	pdf.SetFont("Helvetica", "B", size)

	cx, cy := x+w/2, y+h/2
	offsets := [8][2]float64{
		{-0.5, -0.5}, {0, -0.5}, {0.5, -0.5},
		{-0.5, 0}, {0.5, 0},
		{-0.5, 0.5}, {0, 0.5}, {0.5, 0.5},
	}
	pdf.SetTextColor(255, 255, 255)
	for _, off := range offsets {
		pdf.SetXY(cx-w/2+off[0], cy-size/2+off[1])
		pdf.CellFormat(w, size, label, "", 0, "C", false, 0, "")
	}
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(cx-w/2, cy-size/2)
	pdf.CellFormat(w, size, label, "", 0, "C", false, 0, "")
}

// drawLeaderLine draws the centroid->badge segment of spec.md §4.8
// step 4: a 0.75pt shadow offset by (+0.75,-0.75) at 0.2 opacity under
// the solid line, plus a 2pt centroid marker circle and its shadow.
func drawLeaderLine(pdf *fpdf.Fpdf, p *placement) {
	end := p.leftEdgeCenter()

	pdf.SetAlpha(0.2, "Normal")
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.75)
	pdf.Line(p.centroid.X+0.75, p.centroid.Y-0.75, end.X+0.75, end.Y-0.75)
	pdf.Circle(p.centroid.X+0.75, p.centroid.Y-0.75, 2, "F")
	pdf.SetAlpha(1.0, "Normal")

	pdf.SetDrawColor(polygonStrokeR, polygonStrokeG, polygonStrokeB)
	pdf.SetLineWidth(0.75)
	pdf.Line(p.centroid.X, p.centroid.Y, end.X, end.Y)
	pdf.SetFillColor(polygonStrokeR, polygonStrokeG, polygonStrokeB)
	pdf.Circle(p.centroid.X, p.centroid.Y, 2, "F")
}

// drawBadge renders one device badge: alternating dark-slate section
// backgrounds separated by 0.5pt lines, with the icon cell tinted by
// device type, per spec.md §4.8 step 2.
func drawBadge(pdf *fpdf.Fpdf, p *placement) {
	x, y, w := p.box.X, p.box.Y, p.box.W
	rowY := y

	iconR, iconG, iconB := deviceTypeFill(p.deviceType)
	pdf.SetFillColor(iconR, iconG, iconB)
	pdf.Rect(x, rowY, w, sectionHeight, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetXY(x, rowY)
	pdf.CellFormat(w, sectionHeight, p.deviceType, "", 0, "C", false, 0, "")
	rowY += sectionHeight

	dark := true
	for _, field := range p.fields[1:] {
		rowY += 0.5
		if dark {
			pdf.SetFillColor(slateDarkR, slateDarkG, slateDarkB)
		} else {
			pdf.SetFillColor(slateLightR, slateLightG, slateLightB)
		}
		pdf.Rect(x, rowY, w, sectionHeight, "F")
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetXY(x, rowY)
		pdf.CellFormat(w, sectionHeight, field, "", 0, "C", false, 0, "")
		rowY += sectionHeight
		dark = !dark
	}
	pdf.SetTextColor(0, 0, 0)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
