package component

import (
	"fmt"
	"sort"

	"github.com/toitlang/wlansim/sim/model"
	"k8s.io/klog/v2"
)

type memoryRegion struct {
	base uint32
	data []byte
}

func (r *memoryRegion) end() uint64 {
	return uint64(r.base) + uint64(len(r.data))
}

// GuestMemory is a sparse physical address space made of RAM regions.
type GuestMemory struct {
	regions []*memoryRegion
}

var _ model.Memory = &GuestMemory{}

func MakeGuestMemory() *GuestMemory {
	return &GuestMemory{}
}

// AddRegion backs [base, base+size) with zeroed RAM. Regions may not overlap.
func (gm *GuestMemory) AddRegion(base uint32, size int) error {
	if size <= 0 || uint64(base)+uint64(size) > 1<<32 {
		return fmt.Errorf("invalid region at 0x%08x with size %d", base, size)
	}
	region := &memoryRegion{base: base, data: make([]byte, size)}
	for _, r := range gm.regions {
		if uint64(base) < r.end() && region.end() > uint64(r.base) {
			return fmt.Errorf("region at 0x%08x overlaps region at 0x%08x", base, r.base)
		}
	}
	gm.regions = append(gm.regions, region)
	sort.Slice(gm.regions, func(i, j int) bool {
		return gm.regions[i].base < gm.regions[j].base
	})
	return nil
}

func (gm *GuestMemory) lookup(address uint32) *memoryRegion {
	i := sort.Search(len(gm.regions), func(i int) bool {
		return gm.regions[i].end() > uint64(address)
	})
	if i < len(gm.regions) && gm.regions[i].base <= address {
		return gm.regions[i]
	}
	return nil
}

// access walks [address, address+n) region by region, handing each backed piece to fn. Unbacked bytes are reported
// to unbacked.
func (gm *GuestMemory) access(address uint32, n int, fn func(offset int, chunk []byte), unbacked func(offset, count int)) {
	offset := 0
	for offset < n {
		cur := uint64(address) + uint64(offset)
		if cur >= 1<<32 {
			unbacked(offset, n-offset)
			return
		}
		region := gm.lookup(uint32(cur))
		if region == nil {
			// skip forward to the next region, if any
			next := n - offset
			for _, r := range gm.regions {
				if uint64(r.base) > cur && r.base-uint32(cur) < uint32(next) {
					next = int(uint64(r.base) - cur)
					break
				}
			}
			unbacked(offset, next)
			offset += next
			continue
		}
		start := int(cur - uint64(region.base))
		count := len(region.data) - start
		if count > n-offset {
			count = n - offset
		}
		fn(offset, region.data[start:start+count])
		offset += count
	}
}

func (gm *GuestMemory) ReadPhysical(address uint32, into []byte) {
	gm.access(address, len(into), func(offset int, chunk []byte) {
		copy(into[offset:], chunk)
	}, func(offset, count int) {
		klog.V(2).Infof("guest memory: read of %d unbacked bytes at 0x%08x", count, uint64(address)+uint64(offset))
		for i := offset; i < offset+count; i++ {
			into[i] = 0
		}
	})
}

func (gm *GuestMemory) WritePhysical(address uint32, from []byte) {
	gm.access(address, len(from), func(offset int, chunk []byte) {
		copy(chunk, from[offset:])
	}, func(offset, count int) {
		klog.V(2).Infof("guest memory: discarded write of %d bytes at 0x%08x", count, uint64(address)+uint64(offset))
	})
}
