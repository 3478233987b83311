package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/toitlang/wlansim/sim/component"
	"github.com/toitlang/wlansim/sim/model"
	"github.com/toitlang/wlansim/sim/wlan/ieee80211"
)

func TestMonitorWaitsForInitDelay(t *testing.T) {
	sim := component.MakeSimControllerSeeded(1, model.TimeZero)
	var reported []model.VirtualTime
	MakeMonitor(sim, 2*time.Second, time.Second, func(last model.VirtualTime) {
		reported = append(reported, last)
	})
	sim.AdvanceBy(1999 * time.Millisecond)
	assert.Empty(t, reported)
	sim.AdvanceBy(10 * time.Second)
	assert.Equal(t, []model.VirtualTime{model.TimeZero}, reported, "reports once")
}

func TestMonitorTracksGuestTransmissions(t *testing.T) {
	sim := component.MakeSimControllerSeeded(1, model.TimeZero)
	var reported []model.VirtualTime
	mon := MakeMonitor(sim, 2*time.Second, time.Second, func(last model.VirtualTime) {
		reported = append(reported, last)
	})
	sim.AdvanceBy(1500 * time.Millisecond)
	mon.FromGuest(ieee80211.Frame{})
	mon.ToGuest(ieee80211.Frame{})
	sim.AdvanceBy(999 * time.Millisecond)
	assert.Empty(t, reported)
	sim.AdvanceBy(time.Millisecond)
	assert.Equal(t, []model.VirtualTime{model.TimeZero.Add(1500 * time.Millisecond)}, reported)
}

func TestMonitorStop(t *testing.T) {
	sim := component.MakeSimControllerSeeded(1, model.TimeZero)
	mon := MakeMonitor(sim, time.Second, time.Second, func(model.VirtualTime) {
		t.Fatal("stopped monitor reported")
	})
	mon.Stop()
	sim.AdvanceBy(5 * time.Second)
	mon.FromGuest(ieee80211.Frame{})
	sim.AdvanceBy(5 * time.Second)
}
