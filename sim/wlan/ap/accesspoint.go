// Package ap runs the access point the emulated station talks to: a three-state association machine and the replies
// it sends.
package ap

import (
	"github.com/toitlang/wlansim/sim/wlan/ieee80211"
	"k8s.io/klog/v2"
	"k8s.io/utils/clock"
)

const sequenceModulus = 4096

var (
	DefaultMAC     = ieee80211.MAC{0x01, 0x13, 0x46, 0xbf, 0x31, 0x59}
	DefaultStation = ieee80211.MAC{0x11, 0x01, 0x00, 0xc4, 0x0a, 0x24}
)

// Sink receives what the access point produces. Inject takes finalized frames bound for the station; Forward takes
// data frames from the station bound for the wired side.
type Sink interface {
	Inject(frame ieee80211.Frame)
	Forward(frame ieee80211.Frame)
}

type AccessPoint struct {
	MAC     ieee80211.MAC
	Station ieee80211.MAC

	roster   Roster
	channel  int
	state    State
	sequence uint16
	clock    clock.PassiveClock
	sink     Sink
}

func MakeAccessPoint(roster Roster, channel int, clk clock.PassiveClock, sink Sink) *AccessPoint {
	return &AccessPoint{
		MAC:     DefaultMAC,
		Station: DefaultStation,
		roster:  roster,
		channel: channel,
		state:   NotAuthenticated,
		clock:   clk,
		sink:    sink,
	}
}

func (a *AccessPoint) State() State {
	return a.state
}

func (a *AccessPoint) Channel() int {
	return a.channel
}

func (a *AccessPoint) Roster() Roster {
	return a.roster
}

// Tune moves the radio. Frames are only answered while some access point serves the tuned channel.
func (a *AccessPoint) Tune(channel int) {
	if channel != a.channel {
		klog.V(1).Infof("radio tuned from channel %d to %d", a.channel, channel)
	}
	a.channel = channel
}

// Reset forgets the association and restarts sequence numbering.
func (a *AccessPoint) Reset() {
	a.setState(NotAuthenticated)
	a.sequence = 0
}

func (a *AccessPoint) setState(state State) {
	if state != a.state {
		klog.V(1).Infof("association state %v -> %v", a.state, state)
	}
	a.state = state
}

// Finalize stamps a frame as transmitted by this access point, taking the next sequence number.
func (a *AccessPoint) Finalize(frame *ieee80211.Frame) {
	frame.Sequence = a.sequence
	a.sequence = (a.sequence + 1) % sequenceModulus
	frame.Source = a.MAC
	frame.BSSID = a.MAC
}

// Beacon builds and finalizes a beacon for info. The caller enqueues it.
func (a *AccessPoint) Beacon(info ieee80211.AccessPointInfo) ieee80211.Frame {
	frame := ieee80211.Beacon(info, a.clock.Now())
	a.Finalize(&frame)
	return frame
}

func (a *AccessPoint) reply(info ieee80211.AccessPointInfo, request ieee80211.Frame, frame ieee80211.Frame) {
	frame.SignalStrength = info.SignalStrength
	frame.Destination = request.Source
	a.Finalize(&frame)
	klog.V(2).Infof("reply: %v", &frame)
	a.sink.Inject(frame)
}

// Handle runs one frame from the station through the association state machine.
func (a *AccessPoint) Handle(frame ieee80211.Frame) Outcome {
	info, ok := a.roster.OnChannel(a.channel)
	if !ok {
		klog.V(2).Infof("no access point on channel %d; ignoring %v", a.channel, &frame)
		return OutcomeOffChannel
	}
	switch frame.Kind() {
	case ieee80211.KindProbeRequest:
		a.reply(info, frame, ieee80211.ProbeResponse(info, a.clock.Now()))
		return OutcomeReplied
	case ieee80211.KindAuthentication:
		a.reply(info, frame, ieee80211.Authentication(info))
		if a.state == NotAuthenticated {
			a.setState(Authenticated)
		}
		return OutcomeReplied
	case ieee80211.KindDeauthentication:
		// some stations never disassociate first, so this drops straight back
		a.setState(NotAuthenticated)
		return OutcomeUpdated
	case ieee80211.KindAssociationRequest:
		a.reply(info, frame, ieee80211.AssociationResponse(info))
		if a.state == Authenticated {
			a.setState(Associated)
		}
		return OutcomeReplied
	case ieee80211.KindDisassociation:
		a.setState(Authenticated)
		return OutcomeUpdated
	case ieee80211.KindData:
		if a.state != Associated {
			klog.V(2).Infof("dropping data frame while %v: %v", a.state, &frame)
			return OutcomeNotAssociated
		}
		a.sink.Forward(frame)
		return OutcomeForwarded
	default:
		klog.V(2).Infof("ignoring %v", &frame)
		return OutcomeIgnored
	}
}
