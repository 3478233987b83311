package dma

import (
	"errors"
	"fmt"

	"github.com/toitlang/wlansim/sim/model"
	"github.com/toitlang/wlansim/sim/wlan/ieee80211"
	"k8s.io/klog/v2"
)

const (
	// OutlinkStart is the pair of bits in an OUTLINK write that start a transfer.
	OutlinkStart uint32 = 0xc0000000
	// descriptors for outbound transfers live in this window; the written value only carries the low 20 bits
	outlinkWindow uint32 = 0x3ff00000
	outlinkMask   uint32 = 0x000fffff

	PreambleSize = 28
	// signalBias turns a negative dBm figure into the unsigned RSSI byte the guest driver reads
	signalBias = 96
	jitterSpan = 10
)

var ErrNotStarted = errors.New("outlink write without start bits")

// Bridge is the DMA engine: it pulls frames the guest transmits and pushes frames into the guest's receive ring.
type Bridge struct {
	ctx        model.SimContext
	mem        model.Memory
	interrupts *Interrupts

	inboundHead uint32
	// handle receives each frame the guest transmits, with its FCS already stripped
	handle func(frame ieee80211.Frame)
}

func MakeBridge(ctx model.SimContext, mem model.Memory, interrupts *Interrupts, handle func(frame ieee80211.Frame)) *Bridge {
	return &Bridge{
		ctx:        ctx,
		mem:        mem,
		interrupts: interrupts,
		handle:     handle,
	}
}

// OutlinkAddress maps the value written to OUTLINK to the descriptor it names.
func OutlinkAddress(value uint32) uint32 {
	return outlinkWindow | (value & outlinkMask)
}

// Transmit runs the outbound path for a write of value to OUTLINK. Writes without the start bits do nothing and
// return ErrNotStarted. A frame that fails to decode is dropped and reported, but the transfer still completes.
func (b *Bridge) Transmit(value uint32) error {
	if value&OutlinkStart == 0 {
		return ErrNotStarted
	}
	address := OutlinkAddress(value)
	desc := ReadDescriptor(b.mem, address)
	raw := make([]byte, desc.Length())
	b.mem.ReadPhysical(desc.Buffer, raw)
	klog.V(2).Infof("%v outbound descriptor at 0x%08x: %v", b.ctx.Now(), address, desc)

	var err error
	if len(raw) < ieee80211.FCSSize {
		err = fmt.Errorf("outbound transfer of %d bytes cannot hold an FCS", len(raw))
	} else {
		var frame ieee80211.Frame
		frame, err = ieee80211.Decode(raw[:len(raw)-ieee80211.FCSSize])
		if err == nil {
			b.handle(frame)
		}
	}
	b.interrupts.Raise(IntTxDone)
	return err
}

func (b *Bridge) SetInboundHead(address uint32) {
	b.inboundHead = address
}

func (b *Bridge) InboundHead() uint32 {
	return b.inboundHead
}

// Preamble builds the pseudo-radiotap header the guest driver expects in front of every received frame.
func Preamble(signalStrength int, jitter int, frameLen int) [PreambleSize]byte {
	var p [PreambleSize]byte
	p[0] = byte(signalStrength + jitter + signalBias)
	p[1] = 11
	p[2] = 177
	p[3] = 16
	withFCS := frameLen + ieee80211.FCSSize
	p[24] = byte(withFCS)
	p[25] = byte(withFCS>>8) & 0x0f
	return p
}

// Deliver writes frame into the buffer of the inbound head descriptor and advances the head. It reports false if the
// guest has not registered a receive ring, in which case the frame is lost.
func (b *Bridge) Deliver(frame ieee80211.Frame) bool {
	if b.inboundHead == 0 {
		klog.V(2).Infof("%v no inbound ring; dropping %v", b.ctx.Now(), &frame)
		return false
	}
	address := b.inboundHead
	desc := ReadDescriptor(b.mem, address)
	encoded := frame.Encode()
	if size := desc.Size(); size != 0 && PreambleSize+len(encoded) > size {
		klog.Warningf("%v inbound buffer at 0x%08x holds %d bytes; truncating %d byte delivery", b.ctx.Now(), desc.Buffer, size, PreambleSize+len(encoded))
		encoded = encoded[:maxInt(size-PreambleSize, 0)]
	}
	// the preamble describes the frame bytes actually written
	preamble := Preamble(frame.SignalStrength, b.ctx.Rand().Intn(jitterSpan), len(encoded))
	data := append(preamble[:], encoded...)
	if size := desc.Size(); size != 0 && len(data) > size {
		data = data[:size]
	}
	b.mem.WritePhysical(desc.Buffer, data)
	desc = desc.Filled(len(data))
	desc.WriteControl(b.mem, address)
	b.inboundHead = desc.Next
	klog.V(2).Infof("%v delivered %d bytes to 0x%08x, next head 0x%08x", b.ctx.Now(), len(data), desc.Buffer, b.inboundHead)

	b.interrupts.Raise(IntRxDone)
	return true
}

func (b *Bridge) Reset() {
	b.inboundHead = 0
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
