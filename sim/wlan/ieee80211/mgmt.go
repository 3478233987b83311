package ieee80211

import (
	"time"

	"github.com/google/gopacket/layers"
)

// AccessPointInfo describes one access point the emulated radio can see.
type AccessPointInfo struct {
	SSID           string `yaml:"ssid"`
	Channel        int    `yaml:"channel"`
	SignalStrength int    `yaml:"signal_strength"`
}

const (
	BeaconInterval    = 1000
	CapabilityESS     = 0x0001
	managementAirtime = 314
)

// ReasonLeaving is IEEE reason code 3, the sending station is leaving. gopacket's names for the reason codes are
// shifted by one, so the code is spelled out.
const ReasonLeaving layers.Dot11Reason = 3

const (
	// the association response grants capability 0x0421 with association ID 0xc001
	associationCapability = 0x0421
	associationID         = 0xc001

	beaconFieldsSize    = 12
	statusFieldsSize    = 6
	reasonFieldSize     = 2
	authenticationReply = 2
)

func management(subtype Subtype, duration uint16, body []byte) Frame {
	return Frame{
		Header: Header{
			Control: FrameControl{
				Type:    TypeManagement,
				Subtype: subtype,
			},
			DurationID: duration,
		},
		Body: body,
	}
}

func beaconFields(b *bodyBuilder, now time.Time) {
	b.fixed(&layers.Dot11MgmtBeacon{
		Timestamp: uint64(now.UnixMicro()),
		Interval:  BeaconInterval,
		Flags:     CapabilityESS,
	}, beaconFieldsSize)
}

// Beacon advertises ap to everyone. The sequence number and transmitter addresses are left for Finalize.
func Beacon(ap AccessPointInfo, now time.Time) Frame {
	b := newBodyBuilder()
	beaconFields(b, now)
	b.ssid(ap.SSID)
	b.rates()
	b.channel(uint8(ap.Channel))
	b.tim()
	f := management(SubtypeBeacon, 0, b.bytes())
	f.Destination = Broadcast
	f.SignalStrength = ap.SignalStrength
	return f
}

// ProbeResponse carries the same fields as a beacon, minus the traffic indication map.
func ProbeResponse(ap AccessPointInfo, now time.Time) Frame {
	b := newBodyBuilder()
	b.fixed(&layers.Dot11MgmtProbeResp{
		Timestamp: uint64(now.UnixMicro()),
		Interval:  BeaconInterval,
		Flags:     CapabilityESS,
	}, beaconFieldsSize)
	b.ssid(ap.SSID)
	b.rates()
	b.channel(uint8(ap.Channel))
	return management(SubtypeProbeResponse, managementAirtime, b.bytes())
}

// Authentication accepts an open system request.
func Authentication(ap AccessPointInfo) Frame {
	b := newBodyBuilder()
	b.fixed(&layers.Dot11MgmtAuthentication{
		Algorithm: layers.Dot11AlgorithmOpen,
		Sequence:  authenticationReply,
		Status:    layers.Dot11StatusSuccess,
	}, statusFieldsSize)
	b.ssid(ap.SSID)
	return management(SubtypeAuthentication, managementAirtime, b.bytes())
}

func Deauthentication() Frame {
	b := newBodyBuilder()
	b.fixed(&layers.Dot11MgmtDeauthentication{Reason: ReasonLeaving}, reasonFieldSize)
	return management(SubtypeDeauthentication, managementAirtime, b.bytes())
}

func AssociationResponse(ap AccessPointInfo) Frame {
	b := newBodyBuilder()
	b.fixed(&layers.Dot11MgmtAssociationResp{
		CapabilityInfo: associationCapability,
		Status:         layers.Dot11StatusSuccess,
		AID:            associationID,
	}, statusFieldsSize)
	b.ssid(ap.SSID)
	b.rates()
	return management(SubtypeAssociationResponse, 0, b.bytes())
}

func Disassociation() Frame {
	b := newBodyBuilder()
	b.fixed(&layers.Dot11MgmtDisassociation{Reason: ReasonLeaving}, reasonFieldSize)
	return management(SubtypeDisassociation, managementAirtime, b.bytes())
}
