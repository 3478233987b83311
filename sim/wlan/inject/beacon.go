package inject

import (
	"time"

	"github.com/toitlang/wlansim/sim/model"
	"github.com/toitlang/wlansim/sim/wlan/ieee80211"
	"k8s.io/klog/v2"
)

const (
	DefaultBeaconDelay  = 100 * time.Millisecond
	DefaultBeaconPeriod = 50 * time.Millisecond
)

// BeaconScheduler advertises each access point of the roster in turn, forever. Every firing hands the next roster
// entry to emit and re-arms.
type BeaconScheduler struct {
	ctx    model.SimContext
	name   string
	roster []ieee80211.AccessPointInfo
	delay  time.Duration
	period time.Duration
	emit   func(info ieee80211.AccessPointInfo)

	next   int
	cancel func()
}

func MakeBeaconScheduler(ctx model.SimContext, name string, roster []ieee80211.AccessPointInfo,
	delay, period time.Duration, emit func(info ieee80211.AccessPointInfo)) *BeaconScheduler {
	if period <= 0 {
		panic("beacon period must be positive")
	}
	return &BeaconScheduler{
		ctx:    ctx,
		name:   name,
		roster: roster,
		delay:  delay,
		period: period,
		emit:   emit,
	}
}

// Start (re)starts the rotation at the first roster entry, firing after the initial delay.
func (b *BeaconScheduler) Start() {
	b.Stop()
	b.next = 0
	b.arm(b.delay)
}

func (b *BeaconScheduler) Stop() {
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}

func (b *BeaconScheduler) arm(after time.Duration) {
	b.cancel = b.ctx.SetTimer(b.ctx.Now().Add(after), b.name+"/beacon", b.fire)
}

func (b *BeaconScheduler) fire() {
	if len(b.roster) > 0 {
		info := b.roster[b.next]
		b.next = (b.next + 1) % len(b.roster)
		klog.V(3).Infof("%v [%s] beacon for %q on channel %d", b.ctx.Now(), b.name, info.SSID, info.Channel)
		b.emit(info)
	}
	b.arm(b.period)
}
