package ieee80211

import (
	"encoding/binary"
	"testing"

	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ethernetPacket(dst, src MAC, etherType layers.EthernetType, payloadLen int) []byte {
	packet := make([]byte, EthernetHeaderSize+payloadLen)
	copy(packet[0:6], dst[:])
	copy(packet[6:12], src[:])
	binary.BigEndian.PutUint16(packet[12:14], uint16(etherType))
	for i := EthernetHeaderSize; i < len(packet); i++ {
		packet[i] = byte(i)
	}
	return packet
}

func TestDataFromEthernet(t *testing.T) {
	gateway := MAC{0x52, 0x55, 0x0a, 0x00, 0x02, 0x02}
	packet := ethernetPacket(testStation, gateway, layers.EthernetTypeIPv4, 32)
	require.Len(t, packet, 46)

	f, err := DataFromEthernet(testStation, packet)
	require.NoError(t, err)
	assert.Equal(t, KindData, f.Kind())
	assert.Equal(t, FlagFromDS, f.Control.Flags)
	assert.Equal(t, uint16(44), f.DurationID)
	assert.Equal(t, testStation, f.Destination)
	assert.Len(t, f.Body, 46-12+6)
	assert.Equal(t, []byte{0xaa, 0xaa, 0x03, 0x00, 0x00, 0x00}, f.Body[:6])
	assert.Equal(t, packet[12:], f.Body[6:])
	assert.Equal(t, layers.EthernetTypeIPv4, f.EtherType())

	p := decodeWithGopacket(t, f)
	snap, ok := p.Layer(layers.LayerTypeSNAP).(*layers.SNAP)
	require.True(t, ok, "no SNAP layer: %v", p.ErrorLayer())
	assert.Equal(t, layers.EthernetTypeIPv4, snap.Type)
}

func TestDataFromEthernetTruncates(t *testing.T) {
	packet := ethernetPacket(testStation, testAP, layers.EthernetTypeIPv4, 4000)
	f, err := DataFromEthernet(testStation, packet)
	require.NoError(t, err)
	assert.Len(t, f.Body, MaxBodySize)
	assert.Equal(t, MaxFrameLen, f.Len())
}

func TestDataFromEthernetRejectsRunts(t *testing.T) {
	_, err := DataFromEthernet(testStation, make([]byte, 11))
	assert.ErrorIs(t, err, ErrShortPacket)
}

// the station transmits to the AP; the DMA length the guest reports includes the FCS, which Decode strips.
func stationData(dst MAC, etherType layers.EthernetType, payloadLen int) Frame {
	f, _ := DataFromEthernet(dst, ethernetPacket(dst, testStation, etherType, payloadLen))
	f.Control.Flags = FlagToDS
	f.Source = testStation
	f.BSSID = testAP
	return f
}

func TestEthernetFromDataRoundTrip(t *testing.T) {
	server := MAC{0x52, 0x55, 0x0a, 0x00, 0x02, 0x02}
	f := stationData(server, layers.EthernetTypeIPv4, 60)

	packet := EthernetFromData(f, testAP)
	assert.Equal(t, server[:], packet[0:6])
	assert.Equal(t, testAP[:], packet[6:12])
	assert.Equal(t, uint16(layers.EthernetTypeIPv4), binary.BigEndian.Uint16(packet[12:14]))
	// body: len(frame body) - 4 - 8 + 22
	assert.Len(t, packet, EthernetHeaderSize+len(f.Body)-4-8+22)
	assert.Equal(t, f.Body[8:], packet[EthernetHeaderSize:EthernetHeaderSize+len(f.Body)-8])
	for _, b := range packet[EthernetHeaderSize+len(f.Body)-8:] {
		assert.Zero(t, b)
	}
}

func TestEthernetFromDataBroadcastsARP(t *testing.T) {
	f := stationData(testAP, layers.EthernetTypeARP, 28)
	packet := EthernetFromData(f, testAP)
	assert.Equal(t, Broadcast[:], packet[0:6])
	assert.Equal(t, uint16(layers.EthernetTypeARP), binary.BigEndian.Uint16(packet[12:14]))
}

func TestEthernetFromDataClamps(t *testing.T) {
	f := stationData(testAP, layers.EthernetTypeIPv4, 2000)
	packet := EthernetFromData(f, testAP)
	assert.Len(t, packet, MaxEthernetFrame)

	runt := Frame{Header: Header{Control: FrameControl{Type: TypeData}}, Body: []byte{0xaa}}
	packet = EthernetFromData(runt, testAP)
	assert.Len(t, packet, EthernetHeaderSize+1-4-8+22)
	assert.Equal(t, uint16(0), binary.BigEndian.Uint16(packet[12:14]))
}
