package component

import (
	"container/heap"
	"math/rand"
	"time"

	"github.com/toitlang/wlansim/sim/model"
	"k8s.io/klog/v2"
)

type simTimer struct {
	expireAt model.VirtualTime
	order    uint64
	name     string
	callback func()
	index    int
}

type timerQueue []*simTimer

func (tq timerQueue) Len() int {
	return len(tq)
}

// Less breaks ties by insertion order, so timers set for the same instant fire first-come first-served.
func (tq timerQueue) Less(i, j int) bool {
	if tq[i].expireAt == tq[j].expireAt {
		return tq[i].order < tq[j].order
	}
	return tq[i].expireAt.Before(tq[j].expireAt)
}

func (tq timerQueue) Swap(i, j int) {
	tq[i], tq[j] = tq[j], tq[i]
	tq[i].index = i
	tq[j].index = j
}

func (tq *timerQueue) Push(x interface{}) {
	timer := x.(*simTimer)
	timer.index = len(*tq)
	*tq = append(*tq, timer)
}

func (tq *timerQueue) Pop() interface{} {
	tqa := *tq
	timer := tqa[len(tqa)-1]
	timer.index = -1
	*tq = tqa[0 : len(tqa)-1]
	return timer
}

// SimController is the event loop behind model.SimContext. Time only moves inside Advance.
type SimController struct {
	currentTime model.VirtualTime
	rand        *rand.Rand
	nextOrder   uint64

	timers timerQueue
}

var _ model.SimContext = &SimController{}

func (sc *SimController) Now() model.VirtualTime {
	return sc.currentTime
}

func (sc *SimController) SetTimer(expireAt model.VirtualTime, name string, callback func()) (cancel func()) {
	if !expireAt.TimeExists() {
		panic("attempt to set timer at nonexistent time")
	}
	if expireAt.Before(sc.currentTime) {
		expireAt = sc.currentTime
	}
	timer := &simTimer{
		expireAt: expireAt,
		order:    sc.nextOrder,
		name:     name,
		callback: callback,
		index:    -1,
	}
	sc.nextOrder++
	heap.Push(&sc.timers, timer)
	if timer.index == -1 {
		panic("should have a real index now")
	}
	return func() {
		if timer.index != -1 {
			heap.Remove(&sc.timers, timer.index)
			if timer.index != -1 {
				panic("should have been removed!")
			}
		}
	}
}

func (sc *SimController) Later(name string, callback func()) (cancel func()) {
	// will cause it to be executed in Advance, after whatever is running now
	return sc.SetTimer(sc.Now(), name, callback)
}

func (sc *SimController) Rand() *rand.Rand {
	return sc.rand
}

// Pending reports how many timers are armed.
func (sc *SimController) Pending() int {
	return len(sc.timers)
}

func (sc *SimController) peekNextTimerExpiry() model.VirtualTime {
	if len(sc.timers) > 0 {
		return sc.timers[0].expireAt
	}
	return model.TimeNever
}

func (sc *SimController) runCurrentTimers() {
	// keeps going as long as there are timers at or before the current time, including ones armed by callbacks
	for len(sc.timers) > 0 && sc.peekNextTimerExpiry().AtOrBefore(sc.Now()) {
		nextTimer := heap.Pop(&sc.timers).(*simTimer)
		if nextTimer.index != -1 {
			panic("invalid timer index")
		}
		if klog.V(5).Enabled() {
			klog.Infof("%v running timer %s", sc.currentTime, nextTimer.name)
		}
		nextTimer.callback()
	}
}

// Advance runs every timer due at or before advanceTo, moving the clock forward one expiry at a time, and returns the
// expiry of the next timer still pending.
func (sc *SimController) Advance(advanceTo model.VirtualTime) (nextTimer model.VirtualTime) {
	sc.runCurrentTimers()
	for sc.Now().Before(advanceTo) {
		timeStepTo := sc.peekNextTimerExpiry()
		if timeStepTo.TimeExists() && timeStepTo.AtOrBefore(advanceTo) {
			sc.currentTime = timeStepTo
		} else {
			sc.currentTime = advanceTo
		}
		sc.runCurrentTimers()
	}
	return sc.peekNextTimerExpiry()
}

// AdvanceBy is Advance relative to the current time.
func (sc *SimController) AdvanceBy(d time.Duration) model.VirtualTime {
	return sc.Advance(sc.Now().Add(d))
}

func MakeSimControllerRandomized(start model.VirtualTime) *SimController {
	return MakeSimControllerSeeded(time.Now().UnixNano(), start)
}

func MakeSimControllerSeeded(seed int64, start model.VirtualTime) *SimController {
	if !start.TimeExists() {
		panic("simulation must start at a real time")
	}
	return &SimController{
		currentTime: start,
		rand:        rand.New(rand.NewSource(seed)),
	}
}
