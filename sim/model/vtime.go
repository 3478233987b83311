package model

import (
	"fmt"
	"time"
)

// VirtualTime counts nanoseconds of simulated time since the simulation started. Negative values mean "never".
type VirtualTime int64

const (
	TimeNever VirtualTime = -1
	TimeZero  VirtualTime = 0
)

const NanosecondsPerSecond = int64(time.Second / time.Nanosecond)

func (t VirtualTime) String() string {
	if !t.TimeExists() {
		return "[never]"
	}
	ns := int64(t)
	return fmt.Sprintf("[%ds+%09dns]", ns/NanosecondsPerSecond, ns%NanosecondsPerSecond)
}

func (t VirtualTime) TimeExists() bool {
	return t >= 0
}

func mustExist(times ...VirtualTime) {
	for _, t := range times {
		if !t.TimeExists() {
			panic("times don't exist")
		}
	}
}

func (t VirtualTime) After(t2 VirtualTime) bool {
	mustExist(t, t2)
	return t > t2
}

func (t VirtualTime) AtOrAfter(t2 VirtualTime) bool {
	mustExist(t, t2)
	return t >= t2
}

func (t VirtualTime) Before(t2 VirtualTime) bool {
	mustExist(t, t2)
	return t < t2
}

func (t VirtualTime) AtOrBefore(t2 VirtualTime) bool {
	mustExist(t, t2)
	return t <= t2
}

// Add offsets t by duration. Adding to TimeNever yields TimeNever.
func (t VirtualTime) Add(duration time.Duration) VirtualTime {
	if !t.TimeExists() {
		return t
	}
	t2 := t + VirtualTime(duration.Nanoseconds())
	if (duration > 0 && t2 < t) || (duration < 0 && t2 > t) {
		panic("times wrapped around")
	}
	return t2
}

// Since returns t - base; base must be at or before t.
func (t VirtualTime) Since(base VirtualTime) time.Duration {
	mustExist(t, base)
	if base > t {
		panic("cannot compute negative duration in since; expectation is that base is AT or BEFORE t")
	}
	return time.Duration(t - base)
}

func (t VirtualTime) Nanoseconds() uint64 {
	mustExist(t)
	return uint64(t)
}

// Seconds is used by host tooling that plots recordings.
func (t VirtualTime) Seconds() float64 {
	mustExist(t)
	return float64(t) / float64(NanosecondsPerSecond)
}

func FromNanoseconds(t uint64) (VirtualTime, bool) {
	vt := VirtualTime(t)
	return vt, vt.TimeExists()
}
