// Package ieee80211 models the 802.11 frames the simulated access point exchanges with the guest: the 24-byte
// management/data header, the handful of management bodies needed to associate, and the LLC/SNAP bridging between
// data frames and Ethernet packets.
package ieee80211

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	HeaderSize  = 24
	MaxBodySize = 2312
	FCSSize     = 4
	MaxFrameLen = HeaderSize + MaxBodySize
)

var ErrShortFrame = errors.New("frame shorter than an 802.11 header")

type MAC [6]byte

var Broadcast = MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

func (m MAC) String() string {
	return net.HardwareAddr(m[:]).String()
}

func ParseMAC(s string) (MAC, error) {
	var m MAC
	hw, err := net.ParseMAC(s)
	if err != nil {
		return m, err
	}
	if len(hw) != len(m) {
		return m, fmt.Errorf("not a 48-bit address: %q", s)
	}
	copy(m[:], hw)
	return m, nil
}

type Type uint8

const (
	TypeManagement Type = 0
	TypeControl    Type = 1
	TypeData       Type = 2
)

type Subtype uint8

const (
	SubtypeAssociationRequest  Subtype = 0x0
	SubtypeAssociationResponse Subtype = 0x1
	SubtypeProbeRequest        Subtype = 0x4
	SubtypeProbeResponse       Subtype = 0x5
	SubtypeBeacon              Subtype = 0x8
	SubtypeDisassociation      Subtype = 0x9
	SubtypeAuthentication      Subtype = 0xb
	SubtypeDeauthentication    Subtype = 0xc
	SubtypeAction              Subtype = 0xd

	SubtypeData Subtype = 0x0
)

const (
	FlagToDS   uint8 = 0x01
	FlagFromDS uint8 = 0x02
)

// Kind is the closed set of frame variants the device understands.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindBeacon
	KindProbeRequest
	KindProbeResponse
	KindAuthentication
	KindDeauthentication
	KindAssociationRequest
	KindAssociationResponse
	KindDisassociation
	KindData
)

var kindNames = map[Kind]string{
	KindUnknown:             "unknown",
	KindBeacon:              "beacon",
	KindProbeRequest:        "probe-request",
	KindProbeResponse:       "probe-response",
	KindAuthentication:      "authentication",
	KindDeauthentication:    "deauthentication",
	KindAssociationRequest:  "association-request",
	KindAssociationResponse: "association-response",
	KindDisassociation:      "disassociation",
	KindData:                "data",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("[UNKNOWN KIND=%d]", uint8(k))
}

var managementKinds = map[Subtype]Kind{
	SubtypeAssociationRequest:  KindAssociationRequest,
	SubtypeAssociationResponse: KindAssociationResponse,
	SubtypeProbeRequest:        KindProbeRequest,
	SubtypeProbeResponse:       KindProbeResponse,
	SubtypeBeacon:              KindBeacon,
	SubtypeDisassociation:      KindDisassociation,
	SubtypeAuthentication:      KindAuthentication,
	SubtypeDeauthentication:    KindDeauthentication,
}

type FrameControl struct {
	Version uint8 // 2 bits, always 0
	Type    Type  // 2 bits
	Subtype Subtype
	Flags   uint8
}

func (fc FrameControl) encode() [2]byte {
	return [2]byte{(fc.Version & 0x3) | uint8(fc.Type&0x3)<<2 | uint8(fc.Subtype&0xf)<<4, fc.Flags}
}

func decodeFrameControl(b []byte) FrameControl {
	return FrameControl{
		Version: b[0] & 0x3,
		Type:    Type((b[0] >> 2) & 0x3),
		Subtype: Subtype(b[0] >> 4),
		Flags:   b[1],
	}
}

type Header struct {
	Control     FrameControl
	DurationID  uint16
	Destination MAC
	Source      MAC
	BSSID       MAC
	Fragment    uint8  // 4 bits
	Sequence    uint16 // 12 bits
}

// Frame is one link-layer frame plus the out-of-band bookkeeping the device keeps next to it.
type Frame struct {
	Header
	// Body is everything after the header, excluding any FCS. Never longer than MaxBodySize.
	Body []byte
	// SignalStrength is the RSSI (dBm) the receiver should report for this frame; not part of the wire format.
	SignalStrength int
}

func (f *Frame) Kind() Kind {
	switch f.Control.Type {
	case TypeManagement:
		if k, ok := managementKinds[f.Control.Subtype]; ok {
			return k
		}
	case TypeData:
		if f.Control.Subtype == SubtypeData {
			return KindData
		}
	}
	return KindUnknown
}

// Len is the serialized length: header plus body, at most MaxFrameLen.
func (f *Frame) Len() int {
	if len(f.Body) > MaxBodySize {
		return MaxFrameLen
	}
	return HeaderSize + len(f.Body)
}

func (f *Frame) String() string {
	return fmt.Sprintf("%v seq=%d %v->%v bssid=%v len=%d", f.Kind(), f.Sequence, f.Source, f.Destination, f.BSSID, f.Len())
}

func (m MAC) hardwareAddr() net.HardwareAddr {
	return append(net.HardwareAddr(nil), m[:]...)
}

// dot11 is the header as a gopacket layer. gopacket lays out the full three-address header only for management and
// data frames, and adds a fourth address when both DS flags are set; the layer is built as a plain management or
// data header and Encode restores the real frame control bytes afterwards.
func (f *Frame) dot11() *layers.Dot11 {
	mainType := layers.Dot11TypeMgmt
	if f.Control.Type == TypeData {
		mainType = layers.Dot11TypeData
	}
	return &layers.Dot11{
		Type:           mainType | layers.Dot11Type(f.Control.Subtype&0xf)<<2,
		Proto:          f.Control.Version & 0x3,
		Flags:          layers.Dot11Flags(f.Control.Flags) &^ layers.Dot11FlagsToDS,
		DurationID:     f.DurationID,
		Address1:       f.Destination.hardwareAddr(),
		Address2:       f.Source.hardwareAddr(),
		Address3:       f.BSSID.hardwareAddr(),
		SequenceNumber: f.Sequence & 0xfff,
		FragmentNumber: uint16(f.Fragment & 0xf),
	}
}

// Encode serializes the header and body, without FCS. A body longer than MaxBodySize is cut short.
func (f *Frame) Encode() []byte {
	body := f.Body
	if len(body) > MaxBodySize {
		body = body[:MaxBodySize]
	}
	out := serialize(f.dot11(), gopacket.Payload(body))
	fc := f.Control.encode()
	copy(out[0:2], fc[:])
	return out
}

// Decode parses a frame without FCS. Bodies longer than MaxBodySize are cut short rather than rejected.
func Decode(data []byte) (Frame, error) {
	if len(data) < HeaderSize {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(data))
	}
	var f Frame
	f.Control = decodeFrameControl(data[0:2])
	f.DurationID = binary.LittleEndian.Uint16(data[2:4])
	copy(f.Destination[:], data[4:10])
	copy(f.Source[:], data[10:16])
	copy(f.BSSID[:], data[16:22])
	seqCtl := binary.LittleEndian.Uint16(data[22:24])
	f.Fragment = uint8(seqCtl & 0xf)
	f.Sequence = seqCtl >> 4
	body := data[HeaderSize:]
	if len(body) > MaxBodySize {
		body = body[:MaxBodySize]
	}
	f.Body = append([]byte{}, body...)
	return f, nil
}
