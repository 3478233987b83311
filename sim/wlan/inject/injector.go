// Package inject paces frames from the access point into the station's receive path, one per interval, and keeps the
// beacons coming.
package inject

import (
	"fmt"
	"time"

	"github.com/toitlang/wlansim/sim/component"
	"github.com/toitlang/wlansim/sim/model"
	"github.com/toitlang/wlansim/sim/wlan/ieee80211"
	"k8s.io/klog/v2"
)

const DefaultPacingInterval = 25 * time.Millisecond

// Injector owns the injection queue and the pacing timer that drains it. A single radio link delivers at most one
// frame per interval no matter how many arrive at once.
type Injector struct {
	ctx      model.SimContext
	name     string
	interval time.Duration
	deliver  func(frame ieee80211.Frame)

	queue        Queue
	running      bool
	cancel       func()
	lastDelivery model.VirtualTime

	delivered *component.EventDispatcher
}

func MakeInjector(ctx model.SimContext, name string, interval time.Duration, deliver func(frame ieee80211.Frame)) *Injector {
	if interval <= 0 {
		panic(fmt.Sprintf("invalid pacing interval %v", interval))
	}
	return &Injector{
		ctx:          ctx,
		name:         name,
		interval:     interval,
		deliver:      deliver,
		lastDelivery: model.TimeNever,
		delivered:    component.MakeEventDispatcher(ctx, name+"/delivered"),
	}
}

func (i *Injector) Len() int {
	return i.queue.Len()
}

// Running reports whether the pacing timer is armed.
func (i *Injector) Running() bool {
	return i.running
}

// Subscribe fires after every delivery, once the frame has left the queue.
func (i *Injector) Subscribe(callback func()) (cancel func()) {
	return i.delivered.Subscribe(callback)
}

// Enqueue appends frame and kicks the pacer if it is idle. The kick happens on a later tick, never inside the caller.
func (i *Injector) Enqueue(frame ieee80211.Frame) {
	i.queue.Push(frame)
	if klog.V(2).Enabled() {
		klog.Infof("%v [%s] queued %v (depth %d)", i.ctx.Now(), i.name, &frame, i.queue.Len())
	}
	if i.running {
		return
	}
	i.running = true
	if i.lastDelivery.TimeExists() {
		if earliest := i.lastDelivery.Add(i.interval); earliest.After(i.ctx.Now()) {
			i.cancel = i.ctx.SetTimer(earliest, i.name+"/pace", i.tick)
			return
		}
	}
	i.cancel = i.ctx.Later(i.name+"/pace", i.tick)
}

func (i *Injector) tick() {
	i.cancel = nil
	frame, ok := i.queue.Pop()
	if !ok {
		i.running = false
		return
	}
	i.lastDelivery = i.ctx.Now()
	if klog.V(2).Enabled() {
		klog.Infof("%v [%s] delivering %v", i.ctx.Now(), i.name, &frame)
	}
	i.deliver(frame)
	i.delivered.Dispatch()
	if i.queue.Len() > 0 {
		i.cancel = i.ctx.SetTimer(i.ctx.Now().Add(i.interval), i.name+"/pace", i.tick)
	} else {
		i.running = false
	}
}

// Stop discards everything queued and disarms the pacer.
func (i *Injector) Stop() {
	if i.cancel != nil {
		i.cancel()
		i.cancel = nil
	}
	i.running = false
	i.queue.Clear()
	i.lastDelivery = model.TimeNever
}
