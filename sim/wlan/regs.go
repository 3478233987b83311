package wlan

import "fmt"

// RegisterWindow is the size of the device's MMIO region. Every register is 32 bits wide.
const RegisterWindow = 0x1000

const (
	RegStatus       uint32 = 0x00
	RegDMAInlink    uint32 = 0x04
	RegDMAOutlink   uint32 = 0x08
	RegDMAIntStatus uint32 = 0x0c
	RegDMAIntClear  uint32 = 0x10
	RegDMAInStatus  uint32 = 0x14
	RegDMAOutStatus uint32 = 0x18
)

var registerNames = map[uint32]string{
	RegStatus:       "STATUS",
	RegDMAInlink:    "DMA_INLINK",
	RegDMAOutlink:   "DMA_OUTLINK",
	RegDMAIntStatus: "DMA_INT_STATUS",
	RegDMAIntClear:  "DMA_INT_CLR",
	RegDMAInStatus:  "DMA_IN_STATUS",
	RegDMAOutStatus: "DMA_OUT_STATUS",
}

func registerName(offset uint32) string {
	if name, ok := registerNames[offset]; ok {
		return name
	}
	return fmt.Sprintf("REG[0x%03x]", offset)
}

// registerFile keeps the last value written to every register, which is what unmodelled registers read back.
type registerFile struct {
	values [RegisterWindow / 4]uint32
}

func registerIndex(offset uint32) (int, bool) {
	if offset >= RegisterWindow || offset%4 != 0 {
		return 0, false
	}
	return int(offset / 4), true
}

func (rf *registerFile) load(offset uint32) uint32 {
	index, ok := registerIndex(offset)
	if !ok {
		return 0
	}
	return rf.values[index]
}

func (rf *registerFile) store(offset uint32, value uint32) {
	if index, ok := registerIndex(offset); ok {
		rf.values[index] = value
	}
}

func (rf *registerFile) clear() {
	rf.values = [RegisterWindow / 4]uint32{}
}
