// Package capture records the traffic crossing a device, either as CSV rows for the plotting tools or as pcap files
// for Wireshark.
package capture

import (
	"github.com/toitlang/wlansim/sim/component"
	"github.com/toitlang/wlansim/sim/wlan"
	"github.com/toitlang/wlansim/sim/wlan/ieee80211"
)

// CSV channel names, one per direction.
const (
	ChannelGuestTx  = "guest-tx"
	ChannelGuestRx  = "guest-rx"
	ChannelUplinkTx = "uplink-tx"
	ChannelUplinkRx = "uplink-rx"
)

var Channels = []string{ChannelGuestTx, ChannelGuestRx, ChannelUplinkTx, ChannelUplinkRx}

type csvMonitor struct {
	r *component.CSVByteRecorder
}

// RecordMonitor writes every frame and packet the device handles to r. Frames are recorded in wire format without
// FCS.
func RecordMonitor(r *component.CSVByteRecorder) wlan.Monitor {
	if !r.IsRecording() {
		return NopMonitor{}
	}
	return csvMonitor{r: r}
}

func (c csvMonitor) FromGuest(frame ieee80211.Frame) {
	c.r.Record(ChannelGuestTx, frame.Encode())
}

func (c csvMonitor) ToGuest(frame ieee80211.Frame) {
	c.r.Record(ChannelGuestRx, frame.Encode())
}

func (c csvMonitor) FromUplink(packet []byte) {
	c.r.Record(ChannelUplinkRx, packet)
}

func (c csvMonitor) ToUplink(packet []byte) {
	c.r.Record(ChannelUplinkTx, packet)
}

type NopMonitor struct{}

func (NopMonitor) FromGuest(ieee80211.Frame) {}
func (NopMonitor) ToGuest(ieee80211.Frame)   {}
func (NopMonitor) FromUplink([]byte)         {}
func (NopMonitor) ToUplink([]byte)           {}
