package guestdrv

import "github.com/toitlang/wlansim/sim/wlan/dma"

// Layout places the driver's rings and buffers in guest memory. Everything must fall inside the window that the
// device's OUTLINK register can name.
type Layout struct {
	TxDescriptor uint32
	TxBuffer     uint32
	RxRing       uint32
	RxBuffers    uint32
	RxCount      int
	BufferSize   int
}

var DefaultLayout = Layout{
	TxDescriptor: 0x3ffb0000,
	TxBuffer:     0x3ffb0100,
	RxRing:       0x3ffb1000,
	RxBuffers:    0x3ffb2000,
	RxCount:      8,
	BufferSize:   2560,
}

// Region is the span of guest memory the layout uses.
func (l Layout) Region() (base uint32, size int) {
	base = l.TxDescriptor
	end := l.RxBuffers + uint32(l.RxCount*l.BufferSize)
	return base, int(end - base)
}

func (l Layout) rxDescriptor(i int) uint32 {
	return l.RxRing + uint32(i*dma.DescriptorSize)
}

func (l Layout) rxBuffer(i int) uint32 {
	return l.RxBuffers + uint32(i*l.BufferSize)
}
