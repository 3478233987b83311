package ieee80211

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const maxElementInfo = 255

// supportedRates: 1, 2, 5.5, 11 Mbps (basic) and 18, 27, 36, 54 Mbps.
var supportedRates = []byte{0x82, 0x84, 0x8b, 0x96, 0x24, 0x36, 0x48, 0x6c}

// trafficIndication: DTIM count 1, period 3, no buffered traffic.
var trafficIndication = []byte{0x01, 0x03, 0x00, 0x00}

// bodyBuilder collects the layers of a management body and keeps their total within MaxBodySize. Elements are cut
// short to fit; an element without room for its two-byte tag is dropped entirely.
type bodyBuilder struct {
	remaining int
	layers    []gopacket.SerializableLayer
}

func newBodyBuilder() *bodyBuilder {
	return &bodyBuilder{remaining: MaxBodySize}
}

// fixed adds the fixed fields of a management subtype, size bytes long.
func (b *bodyBuilder) fixed(l gopacket.SerializableLayer, size int) {
	if size > b.remaining {
		panic("fixed fields larger than a frame body")
	}
	b.layers = append(b.layers, l)
	b.remaining -= size
}

func (b *bodyBuilder) element(id layers.Dot11InformationElementID, info []byte) {
	if b.remaining < 2 {
		return
	}
	limit := b.remaining - 2
	if limit > maxElementInfo {
		limit = maxElementInfo
	}
	if len(info) > limit {
		info = info[:limit]
	}
	b.layers = append(b.layers, &layers.Dot11InformationElement{ID: id, Info: info})
	b.remaining -= 2 + len(info)
}

func (b *bodyBuilder) ssid(ssid string) {
	b.element(layers.Dot11InformationElementIDSSID, []byte(ssid))
}

func (b *bodyBuilder) rates() {
	b.element(layers.Dot11InformationElementIDRates, supportedRates)
}

func (b *bodyBuilder) channel(channel uint8) {
	b.element(layers.Dot11InformationElementIDDSSet, []byte{channel})
}

func (b *bodyBuilder) tim() {
	b.element(layers.Dot11InformationElementIDTIM, trafficIndication)
}

func (b *bodyBuilder) bytes() []byte {
	return serialize(b.layers...)
}

// serialize lays out ls front to back. The layers used here only prepend fixed-size fields, so it never fails.
func serialize(ls ...gopacket.SerializableLayer) []byte {
	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, ls...); err != nil {
		panic("serializing frame: " + err.Error())
	}
	return buf.Bytes()
}

// Element is one decoded tagged element.
type Element struct {
	ID   layers.Dot11InformationElementID
	Info []byte
}

// ParseElements walks a run of tagged elements, stopping at the first truncated one. Short trailing elements such
// as an empty SSID are kept, which layers.Dot11InformationElement refuses to decode.
func ParseElements(data []byte) []Element {
	var elements []Element
	for len(data) >= 2 {
		length := int(data[1])
		if len(data) < 2+length {
			break
		}
		elements = append(elements, Element{
			ID:   layers.Dot11InformationElementID(data[0]),
			Info: data[2 : 2+length],
		})
		data = data[2+length:]
	}
	return elements
}
