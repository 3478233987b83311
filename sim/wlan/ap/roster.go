package ap

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/toitlang/wlansim/sim/wlan/ieee80211"
)

const MaxSSIDLength = 32

// Roster is the set of access points the radio can hear, in beacon order.
type Roster []ieee80211.AccessPointInfo

func DefaultRoster() Roster {
	return Roster{
		{SSID: "Open Wifi", Channel: 4, SignalStrength: -40},
		{SSID: "MasseyWifi", Channel: 6, SignalStrength: -30},
		{SSID: "Home Wifi", Channel: 7, SignalStrength: -70},
		{SSID: "My Wifi", Channel: 8, SignalStrength: -75},
		{SSID: "New Wifi", Channel: 10, SignalStrength: -90},
	}
}

// OnChannel finds the access point serving channel, if there is one.
func (r Roster) OnChannel(channel int) (ieee80211.AccessPointInfo, bool) {
	for _, info := range r {
		if info.Channel == channel {
			return info, true
		}
	}
	return ieee80211.AccessPointInfo{}, false
}

func (r Roster) Validate() error {
	var result *multierror.Error
	if len(r) == 0 {
		result = multierror.Append(result, fmt.Errorf("roster has no access points"))
	}
	seen := map[int]string{}
	for i, info := range r {
		if len(info.SSID) > MaxSSIDLength {
			result = multierror.Append(result, fmt.Errorf("access point %d: SSID %q longer than %d bytes", i, info.SSID, MaxSSIDLength))
		}
		if info.Channel < 1 || info.Channel > 14 {
			result = multierror.Append(result, fmt.Errorf("access point %d: channel %d out of range 1-14", i, info.Channel))
		}
		if other, dup := seen[info.Channel]; dup {
			result = multierror.Append(result, fmt.Errorf("access point %d: channel %d already used by %q", i, info.Channel, other))
		}
		seen[info.Channel] = info.SSID
	}
	return result.ErrorOrNil()
}
