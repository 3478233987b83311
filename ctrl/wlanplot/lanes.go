package main

import (
	"image/color"
	"math"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/toitlang/wlansim/sim/capture"
	"github.com/toitlang/wlansim/sim/component"
	"github.com/toitlang/wlansim/sim/wlan/ap"
	"github.com/toitlang/wlansim/sim/wlan/ieee80211"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"k8s.io/klog/v2"
)

const stateLane = "access point"

var stateColors = map[ap.State]color.Color{
	ap.NotAuthenticated: color.RGBA{R: 224, G: 224, B: 224, A: 255},
	ap.Authenticated:    color.RGBA{R: 192, G: 192, B: 64, A: 255},
	ap.Associated:       color.RGBA{R: 64, G: 192, B: 64, A: 255},
}

func glyph(shape draw.GlyphDrawer, c color.Color, radius float64) draw.GlyphStyle {
	return draw.GlyphStyle{
		Color:  c,
		Radius: vg.Points(radius),
		Shape:  shape,
	}
}

var (
	beaconGlyph     = glyph(draw.CircleGlyph{}, color.Gray{Y: 160}, 2)
	managementGlyph = glyph(draw.PyramidGlyph{}, color.Black, 5)
	dataGlyph       = glyph(draw.BoxGlyph{}, color.RGBA{B: 192, A: 255}, 4)
	invalidGlyph    = glyph(draw.CrossGlyph{}, color.RGBA{R: 192, A: 255}, 4)
)

func frameMarker(at float64, data []byte) (Marker, ieee80211.Frame, bool) {
	frame, err := ieee80211.Decode(data)
	if err != nil {
		return Marker{Time: at, Glyph: invalidGlyph, Label: "malformed"}, frame, false
	}
	switch kind := frame.Kind(); kind {
	case ieee80211.KindBeacon:
		// far too frequent to label
		return Marker{Time: at, Glyph: beaconGlyph}, frame, true
	case ieee80211.KindData:
		return Marker{Time: at, Glyph: dataGlyph, Label: frame.EtherType().String()}, frame, true
	default:
		return Marker{Time: at, Glyph: managementGlyph, Label: kind.String()}, frame, true
	}
}

func packetMarker(at float64, data []byte) Marker {
	packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.NoCopy)
	if packet.ErrorLayer() != nil {
		return Marker{Time: at, Glyph: invalidGlyph, Label: "malformed"}
	}
	label := "ethernet"
	if ls := packet.Layers(); len(ls) > 1 {
		label = ls[len(ls)-1].LayerType().String()
		if ls[len(ls)-1].LayerType() == gopacket.LayerTypePayload && len(ls) > 2 {
			label = ls[len(ls)-2].LayerType().String()
		}
	}
	return Marker{Time: at, Glyph: dataGlyph, Label: label}
}

// stateTracker follows the association state from the management frames crossing the air, the same transitions the
// access point itself makes.
type stateTracker struct {
	from  float64
	state ap.State
	since float64
	spans []Activity
}

func (s *stateTracker) moveTo(state ap.State, at float64) {
	if state == s.state {
		return
	}
	s.close(at)
	s.state = state
	s.since = at
}

func (s *stateTracker) close(at float64) {
	start := math.Max(s.since, s.from)
	if at > start {
		s.spans = append(s.spans, Activity{
			Start: start,
			End:   at,
			Color: stateColors[s.state],
			Label: s.state.String(),
		})
	}
}

func (s *stateTracker) observe(channel string, frame ieee80211.Frame, at float64) {
	kind := frame.Kind()
	switch {
	case channel == capture.ChannelGuestRx && kind == ieee80211.KindAuthentication:
		s.moveTo(ap.Authenticated, at)
	case channel == capture.ChannelGuestRx && kind == ieee80211.KindAssociationResponse:
		s.moveTo(ap.Associated, at)
	case channel == capture.ChannelGuestTx && kind == ieee80211.KindDeauthentication:
		s.moveTo(ap.NotAuthenticated, at)
	case channel == capture.ChannelGuestTx && kind == ieee80211.KindDisassociation:
		s.moveTo(ap.Authenticated, at)
	}
}

// BuildLanes turns a device recording into one lane per capture channel, plus a lane with the association state,
// restricted to records in [start, end]. The state lane ends at the last record shown.
func BuildLanes(records []component.Record, start, end float64) []Lane {
	lanes := []Lane{{Name: stateLane}}
	index := map[string]int{}
	for _, channel := range capture.Channels {
		index[channel] = len(lanes)
		lanes = append(lanes, Lane{Name: channel})
	}
	tracker := &stateTracker{from: start, since: start}
	last := start
	for _, record := range records {
		at := record.Timestamp.Seconds()
		if at > end {
			break
		}
		i, ok := index[record.Channel]
		if !ok {
			klog.Warningf("skipping record on unknown channel %q", record.Channel)
			continue
		}
		var marker Marker
		switch record.Channel {
		case capture.ChannelGuestTx, capture.ChannelGuestRx:
			var frame ieee80211.Frame
			marker, frame, ok = frameMarker(at, record.Bytes)
			if ok {
				tracker.observe(record.Channel, frame, at)
			}
		default:
			marker = packetMarker(at, record.Bytes)
		}
		if at < start {
			continue
		}
		lanes[i].Markers = append(lanes[i].Markers, marker)
		last = at
	}
	tracker.close(last)
	lanes[0].Activities = tracker.spans
	return lanes
}
