package ieee80211

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testAP      = MAC{0x01, 0x13, 0x46, 0xbf, 0x31, 0x59}
	testStation = MAC{0x11, 0x01, 0x00, 0xc4, 0x0a, 0x24}
)

// decodeWithGopacket parses an encoded frame independently; gopacket expects a trailing FCS.
func decodeWithGopacket(t *testing.T, f Frame) gopacket.Packet {
	wire := append(f.Encode(), 0xde, 0xad, 0xbe, 0xef)
	p := gopacket.NewPacket(wire, layers.LayerTypeDot11, gopacket.Default)
	require.NotNil(t, p.Layer(layers.LayerTypeDot11), "gopacket could not find an 802.11 header: %v", p.ErrorLayer())
	return p
}

func TestHeaderLayout(t *testing.T) {
	f := Frame{
		Header: Header{
			Control: FrameControl{
				Type:    TypeManagement,
				Subtype: SubtypeAuthentication,
				Flags:   0x08,
			},
			DurationID:  0x013a,
			Destination: testStation,
			Source:      testAP,
			BSSID:       testAP,
			Fragment:    0x3,
			Sequence:    0xabc,
		},
		Body: []byte{1, 2, 3},
	}
	wire := f.Encode()
	require.Len(t, wire, HeaderSize+3)
	assert.Equal(t, []byte{0xb0, 0x08}, wire[0:2])
	assert.Equal(t, []byte{0x3a, 0x01}, wire[2:4])
	assert.Equal(t, testStation[:], wire[4:10])
	assert.Equal(t, testAP[:], wire[10:16])
	assert.Equal(t, testAP[:], wire[16:22])
	assert.Equal(t, []byte{0xc3, 0xab}, wire[22:24])
	assert.Equal(t, []byte{1, 2, 3}, wire[24:])
	assert.Equal(t, len(wire), f.Len())

	p := decodeWithGopacket(t, f)
	dot11 := p.Layer(layers.LayerTypeDot11).(*layers.Dot11)
	assert.Equal(t, layers.Dot11TypeMgmtAuthentication, dot11.Type)
	assert.Equal(t, uint16(0xabc), dot11.SequenceNumber)
	assert.Equal(t, uint16(0x3), dot11.FragmentNumber)
	assert.Equal(t, uint16(0x013a), dot11.DurationID)
	assert.Equal(t, testStation[:], []byte(dot11.Address1))
	assert.Equal(t, testAP[:], []byte(dot11.Address2))
}

func randFrame(r *rand.Rand) Frame {
	var f Frame
	f.Control = FrameControl{
		Type:    Type(r.Intn(3)),
		Subtype: Subtype(r.Intn(16)),
		Flags:   uint8(r.Uint32()),
	}
	f.DurationID = uint16(r.Uint32())
	r.Read(f.Destination[:])
	r.Read(f.Source[:])
	r.Read(f.BSSID[:])
	f.Fragment = uint8(r.Intn(16))
	f.Sequence = uint16(r.Intn(4096))
	f.Body = make([]byte, r.Intn(MaxBodySize+1))
	r.Read(f.Body)
	return f
}

func TestDecodeInvertsEncode(t *testing.T) {
	r := rand.New(rand.NewSource(80211))
	for i := 0; i < 200; i++ {
		f := randFrame(r)
		decoded, err := Decode(f.Encode())
		require.NoError(t, err)
		assert.Equal(t, f.Header, decoded.Header)
		assert.True(t, bytes.Equal(f.Body, decoded.Body))
	}
}

func TestEncodeKeepsFullHeaderForEveryType(t *testing.T) {
	for _, fc := range []FrameControl{
		{Type: TypeControl, Subtype: 0xc},
		{Type: TypeData, Subtype: SubtypeData, Flags: FlagToDS | FlagFromDS},
		{Type: 3, Subtype: 0x5, Flags: 0xff},
	} {
		f := Frame{
			Header: Header{
				Control:     fc,
				Destination: testStation,
				Source:      testAP,
				BSSID:       Broadcast,
				Sequence:    4095,
			},
			Body: []byte{7},
		}
		wire := f.Encode()
		require.Len(t, wire, HeaderSize+1, "%+v", fc)
		fcBytes := fc.encode()
		assert.Equal(t, fcBytes[:], wire[0:2])
		assert.Equal(t, testAP[:], wire[10:16])
		assert.Equal(t, Broadcast[:], wire[16:22])
		assert.Equal(t, []byte{0xf0, 0xff}, wire[22:24])
		assert.Equal(t, byte(7), wire[24])
	}
}

func TestEncodeTruncatesOversizedBody(t *testing.T) {
	f := Frame{
		Header: Header{Control: FrameControl{Type: TypeData}},
		Body:   bytes.Repeat([]byte{0x5a}, MaxBodySize+100),
	}
	wire := f.Encode()
	assert.Len(t, wire, MaxFrameLen)
	assert.Equal(t, MaxFrameLen, f.Len())
	assert.Len(t, f.Body, MaxBodySize+100, "the frame itself is left alone")

	decoded, err := Decode(wire)
	require.NoError(t, err)
	assert.Equal(t, f.Body[:MaxBodySize], decoded.Body)
}

func TestDecodeRejectsShortFrames(t *testing.T) {
	_, err := Decode(make([]byte, HeaderSize-1))
	assert.ErrorIs(t, err, ErrShortFrame)

	f, err := Decode(make([]byte, HeaderSize))
	require.NoError(t, err)
	assert.Empty(t, f.Body)
}

func TestDecodeTruncatesOversizedBody(t *testing.T) {
	f, err := Decode(make([]byte, MaxFrameLen+100))
	require.NoError(t, err)
	assert.Len(t, f.Body, MaxBodySize)
	assert.Equal(t, MaxFrameLen, f.Len())
}

func TestKindClassification(t *testing.T) {
	cases := []struct {
		typ     Type
		subtype Subtype
		kind    Kind
	}{
		{TypeManagement, SubtypeBeacon, KindBeacon},
		{TypeManagement, SubtypeProbeRequest, KindProbeRequest},
		{TypeManagement, SubtypeProbeResponse, KindProbeResponse},
		{TypeManagement, SubtypeAuthentication, KindAuthentication},
		{TypeManagement, SubtypeDeauthentication, KindDeauthentication},
		{TypeManagement, SubtypeAssociationRequest, KindAssociationRequest},
		{TypeManagement, SubtypeAssociationResponse, KindAssociationResponse},
		{TypeManagement, SubtypeDisassociation, KindDisassociation},
		{TypeManagement, SubtypeAction, KindUnknown},
		{TypeData, SubtypeData, KindData},
		{TypeData, 0x4, KindUnknown},
		{TypeControl, 0xd, KindUnknown},
		{Type(3), 0, KindUnknown},
	}
	for _, c := range cases {
		f := Frame{Header: Header{Control: FrameControl{Type: c.typ, Subtype: c.subtype}}}
		assert.Equal(t, c.kind, f.Kind(), "type %d subtype %d", c.typ, c.subtype)
	}
}

func TestParseMAC(t *testing.T) {
	m, err := ParseMAC("01:13:46:bf:31:59")
	require.NoError(t, err)
	assert.Equal(t, testAP, m)
	assert.Equal(t, "01:13:46:bf:31:59", m.String())

	_, err = ParseMAC("00:00:00:00:fe:80:00:00:00:00:00:00:02:00:5e:10:00:00:00:01")
	assert.Error(t, err)
}
