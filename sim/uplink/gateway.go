// Package uplink is the wired network behind the access point: a single gateway host that answers ARP and ping.
package uplink

import (
	"bytes"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/pkg/errors"
	"github.com/toitlang/wlansim/sim/model"
	"k8s.io/klog/v2"
)

var (
	DefaultGatewayMAC = net.HardwareAddr{0x52, 0x55, 0x0a, 0x00, 0x02, 0x02}
	DefaultGatewayIP  = net.IPv4(10, 0, 2, 2).To4()
)

var serializeOptions = gopacket.SerializeOptions{
	FixLengths:       true,
	ComputeChecksums: true,
}

// Receiver is the device side of the link. Receive may refuse a packet; the gateway then holds it until the next
// notification from Subscribe.
type Receiver interface {
	CanReceive() bool
	Receive(packet []byte) bool
	Subscribe(callback func()) (cancel func())
}

type Gateway struct {
	ctx model.SimContext
	MAC net.HardwareAddr
	IP  net.IP

	device  Receiver
	pending [][]byte
	pumping bool
	cancel  func()

	// Received keeps every packet the device sent here, in order.
	Received [][]byte
	// Sent counts packets the device accepted from the gateway.
	Sent int
}

func MakeGateway(ctx model.SimContext, mac net.HardwareAddr, ip net.IP) *Gateway {
	return &Gateway{
		ctx: ctx,
		MAC: mac,
		IP:  ip.To4(),
	}
}

// Attach connects the gateway to the device it forwards packets to.
func (g *Gateway) Attach(device Receiver) {
	if g.cancel != nil {
		g.cancel()
	}
	g.device = device
	g.cancel = device.Subscribe(g.schedulePump)
}

// Pending is the number of packets waiting for the device to accept them.
func (g *Gateway) Pending() int {
	return len(g.pending)
}

// Send queues a packet toward the device.
func (g *Gateway) Send(packet []byte) {
	g.pending = append(g.pending, packet)
	g.schedulePump()
}

func (g *Gateway) schedulePump() {
	if g.pumping || len(g.pending) == 0 || g.device == nil {
		return
	}
	g.pumping = true
	g.ctx.Later("uplink/pump", g.pump)
}

func (g *Gateway) pump() {
	g.pumping = false
	for len(g.pending) > 0 && g.device.CanReceive() {
		if !g.device.Receive(g.pending[0]) {
			break
		}
		g.pending[0] = nil
		g.pending = g.pending[1:]
		g.Sent++
	}
	if len(g.pending) > 0 {
		klog.V(2).Infof("%v [uplink] %d packets held until the device accepts more", g.ctx.Now(), len(g.pending))
	}
}

// SendPacket takes a packet from the device and answers it if it is addressed to the gateway.
func (g *Gateway) SendPacket(packet []byte) {
	g.Received = append(g.Received, packet)
	reply, err := g.respond(packet)
	if err != nil {
		klog.Warningf("%v [uplink] cannot answer packet: %v", g.ctx.Now(), err)
		return
	}
	if reply != nil {
		g.Send(reply)
	}
}

func (g *Gateway) respond(packet []byte) ([]byte, error) {
	p := gopacket.NewPacket(packet, layers.LayerTypeEthernet, gopacket.Default)
	if arp, ok := p.Layer(layers.LayerTypeARP).(*layers.ARP); ok {
		return g.respondARP(arp)
	}
	if icmp, ok := p.Layer(layers.LayerTypeICMPv4).(*layers.ICMPv4); ok {
		ip, _ := p.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
		eth, _ := p.Layer(layers.LayerTypeEthernet).(*layers.Ethernet)
		if ip != nil && eth != nil {
			return g.respondEcho(eth, ip, icmp)
		}
	}
	klog.V(2).Infof("%v [uplink] no answer for %d byte packet", g.ctx.Now(), len(packet))
	return nil, nil
}

func (g *Gateway) respondARP(request *layers.ARP) ([]byte, error) {
	if request.Operation != layers.ARPRequest || !bytes.Equal(request.DstProtAddress, g.IP) {
		return nil, nil
	}
	klog.V(1).Infof("%v [uplink] ARP: %v is at %v", g.ctx.Now(), g.IP, g.MAC)
	eth := &layers.Ethernet{
		SrcMAC:       g.MAC,
		DstMAC:       net.HardwareAddr(request.SourceHwAddress),
		EthernetType: layers.EthernetTypeARP,
	}
	reply := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPReply,
		SourceHwAddress:   g.MAC,
		SourceProtAddress: g.IP,
		DstHwAddress:      request.SourceHwAddress,
		DstProtAddress:    request.SourceProtAddress,
	}
	return serialize(eth, reply)
}

func (g *Gateway) respondEcho(eth *layers.Ethernet, ip *layers.IPv4, icmp *layers.ICMPv4) ([]byte, error) {
	if !ip.DstIP.Equal(g.IP) || icmp.TypeCode.Type() != layers.ICMPv4TypeEchoRequest {
		return nil, nil
	}
	klog.V(1).Infof("%v [uplink] echo reply to %v seq %d", g.ctx.Now(), ip.SrcIP, icmp.Seq)
	return serialize(
		&layers.Ethernet{
			SrcMAC:       g.MAC,
			DstMAC:       eth.SrcMAC,
			EthernetType: layers.EthernetTypeIPv4,
		},
		&layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolICMPv4,
			SrcIP:    g.IP,
			DstIP:    ip.SrcIP,
		},
		&layers.ICMPv4{
			TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoReply, 0),
			Id:       icmp.Id,
			Seq:      icmp.Seq,
		},
		gopacket.Payload(icmp.Payload),
	)
}

func serialize(ls ...gopacket.SerializableLayer) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, serializeOptions, ls...); err != nil {
		return nil, errors.Wrap(err, "serializing reply")
	}
	return buf.Bytes(), nil
}
