package main

import (
	"image/color"
	"math"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Activity is a span of time drawn as a filled box, such as a period spent in one association state.
type Activity struct {
	Start float64
	End   float64
	Color color.Color
	Label string
}

// Marker is a single frame or packet.
type Marker struct {
	Time  float64
	Glyph draw.GlyphStyle
	Label string
}

// Lane is one horizontal row of the timeline.
type Lane struct {
	Name       string
	Activities []Activity
	Markers    []Marker
}

// TimelinePlot draws each lane at y = its index, so that p.NominalY(names...) labels them.
type TimelinePlot struct {
	Lanes     []Lane
	Height    vg.Length
	LastX     float64
	BoxStyle  draw.LineStyle
	TextStyle draw.TextStyle
}

var _ plot.Plotter = &TimelinePlot{}
var _ plot.DataRanger = &TimelinePlot{}

func NewTimelinePlot(lanes []Lane, height vg.Length, lastX float64) *TimelinePlot {
	for _, lane := range lanes {
		// labels are clipped against the next marker to the right, so render right-to-left
		markers := lane.Markers
		sort.SliceStable(markers, func(i, j int) bool {
			return markers[i].Time > markers[j].Time
		})
	}
	return &TimelinePlot{
		Lanes:    lanes,
		Height:   height,
		LastX:    lastX,
		BoxStyle: plotter.DefaultLineStyle,
		TextStyle: text.Style{
			Font:    font.From(plotter.DefaultFont, plotter.DefaultFontSize),
			XAlign:  draw.XCenter,
			YAlign:  draw.YCenter,
			Handler: plot.DefaultTextHandler,
		},
	}
}

func (t *TimelinePlot) Names() (names []string) {
	for _, lane := range t.Lanes {
		names = append(names, lane.Name)
	}
	return names
}

// shrinkToFit halves the font until label fits in maxWidth, or gives up once it is unreadably small.
func shrinkToFit(style draw.TextStyle, label string, maxWidth vg.Length) (draw.TextStyle, bool) {
	for style.Width(label) > maxWidth {
		style.Font.Size *= 0.5
		if style.Font.Size < vg.Points(3) {
			return style, false
		}
	}
	return style, true
}

func (t *TimelinePlot) plotLane(c draw.Canvas, trX func(float64) vg.Length, y vg.Length, lane Lane) {
	for _, activity := range lane.Activities {
		xStart, xEnd := trX(activity.Start), trX(activity.End)
		pts := []vg.Point{
			{X: xStart, Y: y - t.Height/2},
			{X: xEnd, Y: y - t.Height/2},
			{X: xEnd, Y: y + t.Height/2},
			{X: xStart, Y: y + t.Height/2},
			{X: xStart, Y: y - t.Height/2},
		}
		c.FillPolygon(activity.Color, c.ClipPolygonX(pts[0:4]))
		c.StrokeLines(t.BoxStyle, c.ClipLinesX(pts)...)
		if activity.Label != "" && t.TextStyle.Width(activity.Label)+xStart <= xEnd && c.ContainsX(xStart) {
			c.FillText(t.TextStyle, vg.Point{X: (xStart + xEnd) / 2, Y: y}, activity.Label)
		}
	}

	lastClipX := t.LastX
	for _, marker := range lane.Markers {
		xPos := trX(marker.Time)
		c.DrawGlyph(marker.Glyph, vg.Point{X: xPos, Y: y})
		startPos := xPos + marker.Glyph.Radius
		endPos := trX(lastClipX) - marker.Glyph.Radius
		if marker.Label != "" && startPos < endPos {
			if style, ok := shrinkToFit(t.TextStyle, marker.Label, endPos-startPos); ok {
				c.FillText(style, vg.Point{X: startPos + style.Width(marker.Label)/2, Y: y + t.Height/2}, marker.Label)
			}
		}
		lastClipX = marker.Time
	}
}

func (t *TimelinePlot) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	for i, lane := range t.Lanes {
		y := trY(float64(i))
		if c.ContainsY(y) {
			t.plotLane(c, trX, y, lane)
		}
	}
}

func (t *TimelinePlot) DataRange() (xmin, xmax, ymin, ymax float64) {
	xmin, xmax = math.Inf(1), math.Inf(-1)
	for _, lane := range t.Lanes {
		for _, m := range lane.Markers {
			xmin, xmax = math.Min(xmin, m.Time), math.Max(xmax, m.Time)
		}
		for _, a := range lane.Activities {
			xmin, xmax = math.Min(xmin, a.Start), math.Max(xmax, a.End)
		}
	}
	if xmin > xmax {
		xmin, xmax = 0, t.LastX
	}
	return xmin, xmax, -0.5, float64(len(t.Lanes)) - 0.5
}
