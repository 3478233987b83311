package ieee80211

import (
	"encoding/binary"
	"strings"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var massey = AccessPointInfo{SSID: "MasseyWifi", Channel: 6, SignalStrength: -30}

func elementIDs(elements []Element) []layers.Dot11InformationElementID {
	var ids []layers.Dot11InformationElementID
	for _, e := range elements {
		ids = append(ids, e.ID)
	}
	return ids
}

func TestBeaconBody(t *testing.T) {
	now := time.Unix(1234, 567891000)
	f := Beacon(massey, now)

	assert.Equal(t, KindBeacon, f.Kind())
	assert.Equal(t, Broadcast, f.Destination)
	assert.Equal(t, uint16(0), f.DurationID)
	assert.Equal(t, -30, f.SignalStrength)
	require.True(t, len(f.Body) > 12)
	assert.Equal(t, uint64(1234567891), binary.LittleEndian.Uint64(f.Body[0:8]))
	assert.Equal(t, uint16(1000), binary.LittleEndian.Uint16(f.Body[8:10]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(f.Body[10:12]))

	elements := ParseElements(f.Body[12:])
	assert.Equal(t, []layers.Dot11InformationElementID{
		layers.Dot11InformationElementIDSSID,
		layers.Dot11InformationElementIDRates,
		layers.Dot11InformationElementIDDSSet,
		layers.Dot11InformationElementIDTIM,
	}, elementIDs(elements))
	assert.Equal(t, []byte("MasseyWifi"), elements[0].Info)
	assert.Equal(t, []byte{0x82, 0x84, 0x8b, 0x96, 0x24, 0x36, 0x48, 0x6c}, elements[1].Info)
	assert.Equal(t, []byte{6}, elements[2].Info)
	assert.Equal(t, []byte{1, 3, 0, 0}, elements[3].Info)
	assert.Equal(t, 12+2+10+2+8+2+1+2+4, len(f.Body))

	p := decodeWithGopacket(t, f)
	beacon, ok := p.Layer(layers.LayerTypeDot11MgmtBeacon).(*layers.Dot11MgmtBeacon)
	require.True(t, ok)
	assert.Equal(t, uint16(1000), beacon.Interval)
	assert.Equal(t, uint64(1234567891), beacon.Timestamp)
}

func TestProbeResponseHasNoTIM(t *testing.T) {
	f := ProbeResponse(massey, time.Unix(0, 0))
	assert.Equal(t, KindProbeResponse, f.Kind())
	assert.Equal(t, uint16(314), f.DurationID)
	assert.Equal(t, []layers.Dot11InformationElementID{
		layers.Dot11InformationElementIDSSID,
		layers.Dot11InformationElementIDRates,
		layers.Dot11InformationElementIDDSSet,
	}, elementIDs(ParseElements(f.Body[12:])))
}

func TestAuthentication(t *testing.T) {
	f := Authentication(massey)
	assert.Equal(t, KindAuthentication, f.Kind())
	assert.Equal(t, []byte{0, 0, 2, 0, 0, 0}, f.Body[:6])
	assert.Equal(t, []byte{0, 10}, f.Body[6:8])
	assert.Equal(t, "MasseyWifi", string(f.Body[8:]))

	p := decodeWithGopacket(t, f)
	auth, ok := p.Layer(layers.LayerTypeDot11MgmtAuthentication).(*layers.Dot11MgmtAuthentication)
	require.True(t, ok)
	assert.Equal(t, uint16(2), auth.Sequence)
	assert.Equal(t, layers.Dot11StatusSuccess, auth.Status)
}

func TestAssociationResponse(t *testing.T) {
	f := AssociationResponse(massey)
	assert.Equal(t, KindAssociationResponse, f.Kind())
	assert.Equal(t, []byte{0x21, 0x04, 0x00, 0x00, 0x01, 0xc0}, f.Body[:6])
	assert.Equal(t, []layers.Dot11InformationElementID{
		layers.Dot11InformationElementIDSSID,
		layers.Dot11InformationElementIDRates,
	}, elementIDs(ParseElements(f.Body[6:])))

	p := decodeWithGopacket(t, f)
	resp, ok := p.Layer(layers.LayerTypeDot11MgmtAssociationResp).(*layers.Dot11MgmtAssociationResp)
	require.True(t, ok)
	assert.Equal(t, uint16(0x0421), resp.CapabilityInfo)
	assert.Equal(t, layers.Dot11StatusSuccess, resp.Status)
	assert.Equal(t, uint16(0xc001), resp.AID)
}

func TestReasonFrames(t *testing.T) {
	deauth := Deauthentication()
	assert.Equal(t, KindDeauthentication, deauth.Kind())
	assert.Equal(t, []byte{0x03, 0x00}, deauth.Body)

	disassoc := Disassociation()
	assert.Equal(t, KindDisassociation, disassoc.Kind())
	assert.Equal(t, []byte{0x03, 0x00}, disassoc.Body)
}

func TestEmptySSID(t *testing.T) {
	f := Authentication(AccessPointInfo{Channel: 1})
	assert.Equal(t, []byte{0, 0}, f.Body[6:])
	elements := ParseElements(f.Body[6:])
	require.Len(t, elements, 1)
	assert.Empty(t, elements[0].Info)
}

func TestOversizedSSIDIsTruncated(t *testing.T) {
	f := Beacon(AccessPointInfo{SSID: strings.Repeat("x", 300), Channel: 1}, time.Unix(0, 0))
	elements := ParseElements(f.Body[12:])
	require.Len(t, elements, 4)
	assert.Len(t, elements[0].Info, 255)
}

func TestBodyBuilderRespectsBudget(t *testing.T) {
	b := newBodyBuilder()
	b.fixed(gopacket.Payload(make([]byte, MaxBodySize-5)), MaxBodySize-5)
	b.element(layers.Dot11InformationElementIDSSID, []byte("abcdef"))
	body := b.bytes()
	assert.Len(t, body, MaxBodySize)
	assert.Equal(t, []byte{0, 3, 'a', 'b', 'c'}, body[MaxBodySize-5:])

	// no room left for even a tag
	b.element(layers.Dot11InformationElementIDRates, supportedRates)
	assert.Len(t, b.bytes(), MaxBodySize)
	assert.Panics(t, func() { b.fixed(gopacket.Payload{1, 2, 3}, 3) })
}

// finalized stamps the addresses and sequence number the access point would.
func finalized(f Frame) Frame {
	f.Destination = testStation
	f.Source = testAP
	f.BSSID = testAP
	f.Sequence = 17
	return f
}

func serializeWithGopacket(t *testing.T, ls ...gopacket.SerializableLayer) []byte {
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, ls...))
	return buf.Bytes()
}

func header(typ layers.Dot11Type, duration uint16) *layers.Dot11 {
	return &layers.Dot11{
		Type:           typ,
		DurationID:     duration,
		Address1:       testStation[:],
		Address2:       testAP[:],
		Address3:       testAP[:],
		SequenceNumber: 17,
	}
}

func TestFramesMatchGopacketLayers(t *testing.T) {
	now := time.Unix(1234, 567891000)
	ssid := &layers.Dot11InformationElement{ID: layers.Dot11InformationElementIDSSID, Info: []byte(massey.SSID)}
	rates := &layers.Dot11InformationElement{ID: layers.Dot11InformationElementIDRates, Info: supportedRates}
	ds := &layers.Dot11InformationElement{ID: layers.Dot11InformationElementIDDSSet, Info: []byte{6}}

	cases := []struct {
		name  string
		frame Frame
		want  []gopacket.SerializableLayer
	}{
		{"authentication", Authentication(massey), []gopacket.SerializableLayer{
			header(layers.Dot11TypeMgmtAuthentication, 314),
			&layers.Dot11MgmtAuthentication{Sequence: 2},
			ssid,
		}},
		{"beacon", Beacon(massey, now), []gopacket.SerializableLayer{
			header(layers.Dot11TypeMgmtBeacon, 0),
			&layers.Dot11MgmtBeacon{Timestamp: 1234567891, Interval: 1000, Flags: 1},
			ssid, rates, ds,
			&layers.Dot11InformationElement{ID: layers.Dot11InformationElementIDTIM, Info: []byte{1, 3, 0, 0}},
		}},
		{"probe response", ProbeResponse(massey, now), []gopacket.SerializableLayer{
			header(layers.Dot11TypeMgmtProbeResp, 314),
			&layers.Dot11MgmtProbeResp{Timestamp: 1234567891, Interval: 1000, Flags: 1},
			ssid, rates, ds,
		}},
		{"association response", AssociationResponse(massey), []gopacket.SerializableLayer{
			header(layers.Dot11TypeMgmtAssociationResp, 0),
			&layers.Dot11MgmtAssociationResp{CapabilityInfo: 0x0421, AID: 0xc001},
			ssid, rates,
		}},
		{"deauthentication", Deauthentication(), []gopacket.SerializableLayer{
			header(layers.Dot11TypeMgmtDeauthentication, 314),
			&layers.Dot11MgmtDeauthentication{Reason: 3},
		}},
		{"disassociation", Disassociation(), []gopacket.SerializableLayer{
			header(layers.Dot11TypeMgmtDisassociation, 314),
			&layers.Dot11MgmtDisassociation{Reason: 3},
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := finalized(c.frame)
			assert.Equal(t, serializeWithGopacket(t, c.want...), f.Encode())
		})
	}
}
