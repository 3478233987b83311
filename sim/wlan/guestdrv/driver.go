// Package guestdrv is a scripted station: it drives the device through its registers and DMA rings the way a guest
// driver would, scanning for an access point, associating, resolving the gateway and pinging it.
package guestdrv

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/toitlang/wlansim/sim/model"
	"github.com/toitlang/wlansim/sim/wlan"
	"github.com/toitlang/wlansim/sim/wlan/dma"
	"github.com/toitlang/wlansim/sim/wlan/ieee80211"
	"k8s.io/klog/v2"
)

type Phase int

const (
	Scanning Phase = iota
	Authenticating
	Associating
	Resolving
	Pinging
	Done
)

func (p Phase) String() string {
	switch p {
	case Scanning:
		return "scanning"
	case Authenticating:
		return "authenticating"
	case Associating:
		return "associating"
	case Resolving:
		return "resolving"
	case Pinging:
		return "pinging"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("[UNKNOWN PHASE=%d]", int(p))
	}
}

// Registers is how the driver reaches the device.
type Registers interface {
	ReadRegister(offset uint32) uint32
	WriteRegister(offset uint32, value uint32)
}

type Params struct {
	TargetSSID string
	Station    ieee80211.MAC
	IP         net.IP
	GatewayIP  net.IP
	Pings      int
}

type Driver struct {
	ctx    model.SimContext
	mem    model.Memory
	regs   Registers
	layout Layout
	params Params

	phase       Phase
	rxCursor    int
	accessPoint ieee80211.MAC
	gatewayMAC  net.HardwareAddr
	sequence    uint16
	pingSeq     uint16

	// Beacons counts beacons received per SSID.
	Beacons     map[string]int
	Received    []ieee80211.Frame
	PingReplies int
	Interrupts  int
	onDone      func()
}

func MakeDriver(ctx model.SimContext, mem model.Memory, regs Registers, layout Layout, params Params) *Driver {
	return &Driver{
		ctx:     ctx,
		mem:     mem,
		regs:    regs,
		layout:  layout,
		params:  params,
		Beacons: map[string]int{},
	}
}

func (d *Driver) Phase() Phase {
	return d.phase
}

func (d *Driver) GatewayMAC() net.HardwareAddr {
	return d.gatewayMAC
}

// OnDone is called once the last ping is answered.
func (d *Driver) OnDone(callback func()) {
	d.onDone = callback
}

// Start lays out the receive ring, hands it to the device, and starts listening on irq.
func (d *Driver) Start(irq model.EventSource) {
	for i := 0; i < d.layout.RxCount; i++ {
		d.armRx(i)
	}
	d.rxCursor = 0
	d.regs.WriteRegister(wlan.RegDMAInlink, d.layout.rxDescriptor(0))
	irq.Subscribe(d.interrupt)
	d.setPhase(Scanning)
}

func (d *Driver) setPhase(phase Phase) {
	klog.V(1).Infof("%v [station] %v -> %v", d.ctx.Now(), d.phase, phase)
	d.phase = phase
	if phase == Done && d.onDone != nil {
		d.onDone()
	}
}

func (d *Driver) armRx(i int) {
	dma.Descriptor{
		Control: dma.FlagOwner | uint32(d.layout.BufferSize)&dma.SizeMask,
		Buffer:  d.layout.rxBuffer(i),
		Next:    d.layout.rxDescriptor((i + 1) % d.layout.RxCount),
	}.Write(d.mem, d.layout.rxDescriptor(i))
}

func (d *Driver) interrupt() {
	d.Interrupts++
	status := d.regs.ReadRegister(wlan.RegDMAIntStatus)
	d.regs.WriteRegister(wlan.RegDMAIntClear, status)
	if status&dma.IntRxDone != 0 {
		d.drainRx()
	}
}

func (d *Driver) drainRx() {
	for {
		address := d.layout.rxDescriptor(d.rxCursor)
		desc := dma.ReadDescriptor(d.mem, address)
		if !desc.Ready() {
			return
		}
		data := make([]byte, desc.Length())
		d.mem.ReadPhysical(desc.Buffer, data)
		d.armRx(d.rxCursor)
		d.rxCursor = (d.rxCursor + 1) % d.layout.RxCount
		d.receive(data)
	}
}

func (d *Driver) receive(data []byte) {
	if len(data) < dma.PreambleSize {
		klog.Warningf("%v [station] runt receive of %d bytes", d.ctx.Now(), len(data))
		return
	}
	length := int(binary.LittleEndian.Uint16(data[24:26])&0x0fff) - ieee80211.FCSSize
	payload := data[dma.PreambleSize:]
	if length >= 0 && length < len(payload) {
		payload = payload[:length]
	}
	frame, err := ieee80211.Decode(payload)
	if err != nil {
		klog.Warningf("%v [station] undecodable frame: %v", d.ctx.Now(), err)
		return
	}
	d.Received = append(d.Received, frame)
	d.handle(frame)
}

func (d *Driver) handle(frame ieee80211.Frame) {
	switch frame.Kind() {
	case ieee80211.KindBeacon:
		ssid := beaconSSID(frame)
		d.Beacons[ssid]++
		if d.phase == Scanning && ssid == d.params.TargetSSID {
			d.accessPoint = frame.BSSID
			d.sendManagement(ieee80211.SubtypeAuthentication, []byte{0x00, 0x00, 0x01, 0x00, 0x00, 0x00})
			d.setPhase(Authenticating)
		}
	case ieee80211.KindAuthentication:
		if d.phase == Authenticating {
			body := []byte{0x21, 0x04, 0x0a, 0x00}
			body = appendElement(body, layers.Dot11InformationElementIDSSID, []byte(d.params.TargetSSID))
			body = appendElement(body, layers.Dot11InformationElementIDRates, []byte{0x82, 0x84, 0x8b, 0x96})
			d.sendManagement(ieee80211.SubtypeAssociationRequest, body)
			d.setPhase(Associating)
		}
	case ieee80211.KindAssociationResponse:
		if d.phase == Associating {
			d.setPhase(Resolving)
			d.sendARPRequest()
		}
	case ieee80211.KindData:
		d.handleData(frame)
	}
}

func beaconSSID(frame ieee80211.Frame) string {
	const fixedFields = 12
	if len(frame.Body) < fixedFields {
		return ""
	}
	for _, element := range ieee80211.ParseElements(frame.Body[fixedFields:]) {
		if element.ID == layers.Dot11InformationElementIDSSID {
			return string(element.Info)
		}
	}
	return ""
}

func appendElement(body []byte, id layers.Dot11InformationElementID, info []byte) []byte {
	body = append(body, byte(id), byte(len(info)))
	return append(body, info...)
}

func (d *Driver) handleData(frame ieee80211.Frame) {
	p := gopacket.NewPacket(frame.Body, layers.LayerTypeLLC, gopacket.Default)
	if arp, ok := p.Layer(layers.LayerTypeARP).(*layers.ARP); ok {
		if d.phase == Resolving && arp.Operation == layers.ARPReply && net.IP(arp.SourceProtAddress).Equal(d.params.GatewayIP) {
			d.gatewayMAC = net.HardwareAddr(append([]byte{}, arp.SourceHwAddress...))
			klog.V(1).Infof("%v [station] gateway %v is at %v", d.ctx.Now(), d.params.GatewayIP, d.gatewayMAC)
			d.setPhase(Pinging)
			d.sendPing()
		}
		return
	}
	if icmp, ok := p.Layer(layers.LayerTypeICMPv4).(*layers.ICMPv4); ok {
		if d.phase == Pinging && icmp.TypeCode.Type() == layers.ICMPv4TypeEchoReply && icmp.Seq == d.pingSeq {
			d.PingReplies++
			if d.PingReplies >= d.params.Pings {
				d.setPhase(Done)
			} else {
				d.sendPing()
			}
		}
	}
}

func (d *Driver) sendManagement(subtype ieee80211.Subtype, body []byte) {
	d.transmit(ieee80211.Frame{
		Header: ieee80211.Header{
			Control:     ieee80211.FrameControl{Type: ieee80211.TypeManagement, Subtype: subtype},
			Destination: d.accessPoint,
			Source:      d.params.Station,
			BSSID:       d.accessPoint,
		},
		Body: body,
	})
}

func (d *Driver) sendData(destination net.HardwareAddr, etherType layers.EthernetType, payload ...gopacket.SerializableLayer) {
	buf := gopacket.NewSerializeBuffer()
	ls := append([]gopacket.SerializableLayer{
		&layers.LLC{DSAP: 0xaa, SSAP: 0xaa, Control: 0x03},
		&layers.SNAP{OrganizationalCode: []byte{0, 0, 0}, Type: etherType},
	}, payload...)
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, ls...); err != nil {
		klog.Errorf("%v [station] cannot build %v frame: %v", d.ctx.Now(), etherType, err)
		return
	}
	var dst ieee80211.MAC
	copy(dst[:], destination)
	d.transmit(ieee80211.Frame{
		Header: ieee80211.Header{
			Control: ieee80211.FrameControl{
				Type:    ieee80211.TypeData,
				Subtype: ieee80211.SubtypeData,
				Flags:   ieee80211.FlagToDS,
			},
			Destination: dst,
			Source:      d.params.Station,
			BSSID:       d.accessPoint,
		},
		Body: buf.Bytes(),
	})
}

func (d *Driver) sendARPRequest() {
	d.sendData(layers.EthernetBroadcast, layers.EthernetTypeARP, &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   d.params.Station[:],
		SourceProtAddress: d.params.IP.To4(),
		DstHwAddress:      make([]byte, 6),
		DstProtAddress:    d.params.GatewayIP.To4(),
	})
}

func (d *Driver) sendPing() {
	d.pingSeq++
	d.sendData(d.gatewayMAC, layers.EthernetTypeIPv4,
		&layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolICMPv4,
			SrcIP:    d.params.IP.To4(),
			DstIP:    d.params.GatewayIP.To4(),
		},
		&layers.ICMPv4{
			TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0),
			Id:       0x5157,
			Seq:      d.pingSeq,
		},
		gopacket.Payload(fmt.Sprintf("ping %d", d.pingSeq)),
	)
}

func (d *Driver) transmit(frame ieee80211.Frame) {
	frame.Sequence = d.sequence
	d.sequence = (d.sequence + 1) % 4096
	// the device ignores the FCS, so zeros will do
	wire := append(frame.Encode(), make([]byte, ieee80211.FCSSize)...)
	d.mem.WritePhysical(d.layout.TxBuffer, wire)
	dma.Descriptor{
		Control: dma.FlagOwner | dma.FlagEOF | uint32(len(wire))<<dma.LengthShift | uint32(len(wire)),
		Buffer:  d.layout.TxBuffer,
	}.Write(d.mem, d.layout.TxDescriptor)
	klog.V(2).Infof("%v [station] transmit %v", d.ctx.Now(), &frame)
	d.regs.WriteRegister(wlan.RegDMAOutlink, dma.OutlinkStart|d.layout.TxDescriptor&0xfffff)
}
