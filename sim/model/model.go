package model

import "math/rand"

// SimContext is the timer service every simulated component runs on. All callbacks run on a single event loop, one
// at a time and to completion, so components never need locks.
type SimContext interface {
	Now() VirtualTime
	// SetTimer schedules callback to run once the simulation reaches expireAt. Timers with equal expiry run in the order
	// they were set.
	SetTimer(expireAt VirtualTime, name string, callback func()) (cancel func())
	// Later schedules callback for the next scheduler tick at the current time. It never runs re-entrantly inside the
	// caller.
	Later(name string, callback func()) (cancel func())
	Rand() *rand.Rand
}

type EventSource interface {
	Subscribe(callback func()) (cancel func())
}

// Memory is the guest's physical address space as seen by a bus master. Accesses outside of backed memory read as
// zero and discard writes, like an unmapped bus region.
type Memory interface {
	ReadPhysical(address uint32, into []byte)
	WritePhysical(address uint32, from []byte)
}

// SignalLine is a single interrupt wire into the guest.
type SignalLine interface {
	SetLevel(asserted bool)
}
