// Package dma moves frames between the device and guest memory through chains of 12-byte descriptors, and owns the
// interrupt status the guest acknowledges.
package dma

import (
	"encoding/binary"
	"fmt"

	"github.com/toitlang/wlansim/sim/model"
)

const DescriptorSize = 12

// Control word layout.
const (
	SizeMask    uint32 = 0x00000fff
	LengthShift        = 12
	LengthMask  uint32 = 0x00fff000
	FlagEOF     uint32 = 1 << 30 // data ready
	FlagOwner   uint32 = 1 << 31

	// bits of the control word the device preserves when it fills a buffer
	preservedOnFill uint32 = 0xff000fff
)

type Descriptor struct {
	Control uint32
	Buffer  uint32
	Next    uint32
}

func ReadDescriptor(mem model.Memory, address uint32) Descriptor {
	var raw [DescriptorSize]byte
	mem.ReadPhysical(address, raw[:])
	return Descriptor{
		Control: binary.LittleEndian.Uint32(raw[0:4]),
		Buffer:  binary.LittleEndian.Uint32(raw[4:8]),
		Next:    binary.LittleEndian.Uint32(raw[8:12]),
	}
}

func (d Descriptor) Write(mem model.Memory, address uint32) {
	var raw [DescriptorSize]byte
	binary.LittleEndian.PutUint32(raw[0:4], d.Control)
	binary.LittleEndian.PutUint32(raw[4:8], d.Buffer)
	binary.LittleEndian.PutUint32(raw[8:12], d.Next)
	mem.WritePhysical(address, raw[:])
}

// WriteControl rewrites only the first word, leaving the guest's addresses untouched.
func (d Descriptor) WriteControl(mem model.Memory, address uint32) {
	var raw [4]byte
	binary.LittleEndian.PutUint32(raw[:], d.Control)
	mem.WritePhysical(address, raw[:])
}

// Length is the number of valid bytes in the buffer.
func (d Descriptor) Length() int {
	return int((d.Control & LengthMask) >> LengthShift)
}

// Size is the capacity of the buffer; zero means the guest did not say.
func (d Descriptor) Size() int {
	return int(d.Control & SizeMask)
}

func (d Descriptor) Ready() bool {
	return d.Control&FlagEOF != 0
}

// Filled returns the descriptor as the device leaves it after writing length bytes: new length, data ready, and the
// size and top byte kept.
func (d Descriptor) Filled(length int) Descriptor {
	d.Control = (d.Control & preservedOnFill) | (uint32(length)<<LengthShift)&LengthMask | FlagEOF
	return d
}

func (d Descriptor) String() string {
	return fmt.Sprintf("{ctl=0x%08x len=%d size=%d buf=0x%08x next=0x%08x}", d.Control, d.Length(), d.Size(), d.Buffer, d.Next)
}
