// Command wlanplot renders a device recording as a timeline: one lane per traffic direction, plus the association
// state the access point was in.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"path/filepath"
	"strings"

	"github.com/toitlang/wlansim/sim/component"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"k8s.io/klog/v2"
)

var (
	input  = flag.String("input", "io-dump.csv", "CSV recording to plot")
	output = flag.String("output", "timeline.png", "image to write; the format follows the extension")
	start  = flag.Float64("start", 0, "first second to show")
	end    = flag.Float64("end", math.Inf(1), "last second to show")
	width  = flag.Float64("width", 40, "image width in centimeters")
	height = flag.Float64("height", 8, "image height in centimeters")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	records, err := component.DecodeRecording(*input)
	if err != nil {
		log.Fatalf("Cannot read recording: %v", err)
	}
	if len(records) == 0 {
		log.Fatalf("Recording %q is empty", *input)
	}
	lanes := BuildLanes(records, *start, *end)

	lastX := math.Min(*end, records[len(records)-1].Timestamp.Seconds())
	tp := NewTimelinePlot(lanes, vg.Points(14), lastX)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Device traffic from %s", filepath.Base(*input))
	p.X.Label.Text = "Virtual time (seconds)"
	p.Add(tp)
	p.NominalY(tp.Names()...)

	format := strings.TrimPrefix(filepath.Ext(*output), ".")
	if err := SavePlot(p, vg.Length(*width)*vg.Centimeter, vg.Length(*height)*vg.Centimeter, *output, format); err != nil {
		log.Fatalf("Cannot write plot: %v", err)
	}
	log.Printf("Wrote %d records to %s", len(records), *output)
}
