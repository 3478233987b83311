package main

import (
	"time"

	"github.com/toitlang/wlansim/sim/capture"
	"github.com/toitlang/wlansim/sim/model"
	"github.com/toitlang/wlansim/sim/wlan/ieee80211"
)

// IOMonitor watches the guest's transmissions and reports once the guest has gone quiet for Delay. Nothing is
// reported before InitDelay, so a station still scanning for beacons is not mistaken for a stalled one.
type IOMonitor struct {
	capture.NopMonitor
	ctx       model.SimContext
	InitDelay time.Duration
	Delay     time.Duration
	LastIO    model.VirtualTime
	EndFn     func(lastTxmit model.VirtualTime)
	cancel    func()
}

func MakeMonitor(ctx model.SimContext, initDelay time.Duration, delay time.Duration, end func(lastTxmit model.VirtualTime)) *IOMonitor {
	i := &IOMonitor{
		ctx:       ctx,
		InitDelay: initDelay,
		Delay:     delay,
		LastIO:    model.TimeZero,
		EndFn:     end,
	}
	i.rearm()
	return i
}

func (i *IOMonitor) FromGuest(ieee80211.Frame) {
	i.LastIO = i.ctx.Now()
	i.rearm()
}

func (i *IOMonitor) rearm() {
	if i.EndFn == nil {
		return
	}
	if i.cancel != nil {
		i.cancel()
	}
	// the expiration point is when no data has been written for a certain amount of time
	ioExpire := i.LastIO.Add(i.Delay)
	if ioExpire.Since(model.TimeZero) < i.InitDelay {
		ioExpire = model.TimeZero.Add(i.InitDelay)
	}
	i.cancel = i.ctx.SetTimer(ioExpire, "sim.experiments.association.IOMonitor", i.expire)
}

func (i *IOMonitor) expire() {
	i.cancel = nil
	end := i.EndFn
	// stop tracking now
	i.EndFn = nil
	end(i.LastIO)
}

// Stop disarms the monitor without reporting.
func (i *IOMonitor) Stop() {
	if i.cancel != nil {
		i.cancel()
		i.cancel = nil
	}
	i.EndFn = nil
}
