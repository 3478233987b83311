package ieee80211

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	EthernetHeaderSize = 14
	MaxEthernetFrame   = 1518

	ethernetAddrsSize = 12
	llcSNAPSize       = 6
	etherTypeSize     = 2
	dataAirtime       = 44

	// dataLengthCorrection is added to the Ethernet body length derived from an uplinked data frame. It was found
	// empirically against real guest drivers; it should be re-derived from the two header layouts.
	dataLengthCorrection = 22
)

var ErrShortPacket = errors.New("packet shorter than an Ethernet address header")

// snapOUI is the zero organizational code of RFC 1042 encapsulation; the Ethernet type follows it.
var snapOUI = []byte{0x00, 0x00, 0x00}

func llcHeader() *layers.LLC {
	return &layers.LLC{DSAP: 0xaa, SSAP: 0xaa, Control: 0x03}
}

// DataFromEthernet wraps an Ethernet packet from the uplink into a data frame headed for the station. The two
// Ethernet addresses are dropped; the type and payload follow the LLC/SNAP header, cut short if they would overflow
// the frame body.
func DataFromEthernet(station MAC, packet []byte) (Frame, error) {
	if len(packet) < ethernetAddrsSize {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(packet))
	}
	var body []byte
	if len(packet) < EthernetHeaderSize {
		// an incomplete type is carried as-is
		body = serialize(llcHeader(), gopacket.Payload(append(append([]byte{}, snapOUI...), packet[ethernetAddrsSize:]...)))
	} else {
		payload := packet[EthernetHeaderSize:]
		if len(payload) > MaxBodySize-llcSNAPSize-etherTypeSize {
			payload = payload[:MaxBodySize-llcSNAPSize-etherTypeSize]
		}
		body = serialize(
			llcHeader(),
			&layers.SNAP{
				OrganizationalCode: snapOUI,
				Type:               layers.EthernetType(binary.BigEndian.Uint16(packet[ethernetAddrsSize:])),
			},
			gopacket.Payload(payload),
		)
	}
	return Frame{
		Header: Header{
			Control: FrameControl{
				Type:    TypeData,
				Subtype: SubtypeData,
				Flags:   FlagFromDS,
			},
			DurationID:  dataAirtime,
			Destination: station,
		},
		Body: body,
	}, nil
}

// EtherType reads the type carried after the LLC/SNAP header of a data frame, or 0 if the body is too short.
func (f *Frame) EtherType() layers.EthernetType {
	offset := llcSNAPSize
	if len(f.Body) < offset+etherTypeSize {
		return 0
	}
	return layers.EthernetType(binary.BigEndian.Uint16(f.Body[offset:]))
}

// EthernetFromData unwraps a data frame from the station into an Ethernet packet for the uplink, sent in the name of
// the access point. ARP goes to broadcast; anything else goes to the frame's destination.
func EthernetFromData(f Frame, accessPoint MAC) []byte {
	bodyLen := len(f.Body) - FCSSize - (llcSNAPSize + etherTypeSize) + dataLengthCorrection
	if bodyLen < 0 {
		bodyLen = 0
	}
	if bodyLen > MaxEthernetFrame-EthernetHeaderSize {
		bodyLen = MaxEthernetFrame - EthernetHeaderSize
	}
	// whatever the frame lacks stays zero
	payload := make([]byte, bodyLen)
	if len(f.Body) > llcSNAPSize+etherTypeSize {
		copy(payload, f.Body[llcSNAPSize+etherTypeSize:])
	}
	eth := &layers.Ethernet{
		DstMAC:       f.Destination.hardwareAddr(),
		SrcMAC:       accessPoint.hardwareAddr(),
		EthernetType: f.EtherType(),
	}
	if eth.EthernetType == layers.EthernetTypeARP {
		eth.DstMAC = Broadcast.hardwareAddr()
	}
	// layers.Ethernet pads short packets to the 60-byte minimum; the uplink gets the exact length
	return serialize(eth, gopacket.Payload(payload))[:EthernetHeaderSize+bodyLen]
}
