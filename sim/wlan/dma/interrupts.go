package dma

import (
	"github.com/toitlang/wlansim/sim/model"
	"k8s.io/klog/v2"
)

const (
	IntTxDone uint32 = 0x00000080
	// IntRxDone is the composite the guest driver expects for a completed receive.
	IntRxDone uint32 = 0x01000024
)

// Interrupts is the raw interrupt status plus the line it drives. The line stays asserted while any bit is pending.
type Interrupts struct {
	line    model.SignalLine
	pending uint32
	onRaise func(bits uint32)
}

func MakeInterrupts(line model.SignalLine) *Interrupts {
	return &Interrupts{line: line}
}

// OnRaise registers a hook that sees every raise; used for accounting.
func (in *Interrupts) OnRaise(hook func(bits uint32)) {
	in.onRaise = hook
}

func (in *Interrupts) Pending() uint32 {
	return in.pending
}

func (in *Interrupts) Raise(bits uint32) {
	in.pending |= bits
	klog.V(3).Infof("interrupt raise 0x%08x -> pending 0x%08x", bits, in.pending)
	in.line.SetLevel(true)
	if in.onRaise != nil {
		in.onRaise(bits)
	}
}

// Acknowledge clears exactly the given bits. The line drops only once nothing is left pending.
func (in *Interrupts) Acknowledge(bits uint32) {
	in.pending &^= bits
	klog.V(3).Infof("interrupt ack 0x%08x -> pending 0x%08x", bits, in.pending)
	if in.pending == 0 {
		in.line.SetLevel(false)
	}
}

func (in *Interrupts) Reset() {
	in.pending = 0
	in.line.SetLevel(false)
}
