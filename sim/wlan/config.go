package wlan

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/toitlang/wlansim/sim/wlan/ap"
	"github.com/toitlang/wlansim/sim/wlan/ieee80211"
	"github.com/toitlang/wlansim/sim/wlan/inject"
	"gopkg.in/yaml.v3"
)

const DefaultMaxQueue = 20

// Config is everything that varies between device instances. Durations are written as Go duration strings in YAML.
type Config struct {
	Roster         ap.Roster     `yaml:"roster"`
	Channel        int           `yaml:"channel"`
	AccessPointMAC string        `yaml:"access_point_mac"`
	StationMAC     string        `yaml:"station_mac"`
	MaxQueue       int           `yaml:"max_queue"`
	PacingInterval time.Duration `yaml:"pacing_interval"`
	BeaconDelay    time.Duration `yaml:"beacon_delay"`
	BeaconPeriod   time.Duration `yaml:"beacon_period"`
}

func DefaultConfig() Config {
	return Config{
		Roster:         ap.DefaultRoster(),
		Channel:        6,
		AccessPointMAC: ap.DefaultMAC.String(),
		StationMAC:     ap.DefaultStation.String(),
		MaxQueue:       DefaultMaxQueue,
		PacingInterval: inject.DefaultPacingInterval,
		BeaconDelay:    inject.DefaultBeaconDelay,
		BeaconPeriod:   inject.DefaultBeaconPeriod,
	}
}

func (c Config) addresses() (accessPoint ieee80211.MAC, station ieee80211.MAC, err error) {
	accessPoint, err = ieee80211.ParseMAC(c.AccessPointMAC)
	if err != nil {
		return accessPoint, station, errors.Wrap(err, "access_point_mac")
	}
	station, err = ieee80211.ParseMAC(c.StationMAC)
	if err != nil {
		return accessPoint, station, errors.Wrap(err, "station_mac")
	}
	return accessPoint, station, nil
}

// Validate reports every problem with the configuration at once.
func (c Config) Validate() error {
	var result *multierror.Error
	if err := c.Roster.Validate(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "roster"))
	}
	if c.Channel < 1 || c.Channel > 14 {
		result = multierror.Append(result, fmt.Errorf("channel %d out of range 1-14", c.Channel))
	}
	if _, _, err := c.addresses(); err != nil {
		result = multierror.Append(result, err)
	}
	if c.MaxQueue <= 0 {
		result = multierror.Append(result, fmt.Errorf("max_queue must be positive, not %d", c.MaxQueue))
	}
	if c.PacingInterval <= 0 {
		result = multierror.Append(result, fmt.Errorf("pacing_interval must be positive, not %v", c.PacingInterval))
	}
	if c.BeaconDelay < 0 {
		result = multierror.Append(result, fmt.Errorf("beacon_delay must not be negative, not %v", c.BeaconDelay))
	}
	if c.BeaconPeriod <= 0 {
		result = multierror.Append(result, fmt.Errorf("beacon_period must be positive, not %v", c.BeaconPeriod))
	}
	return result.ErrorOrNil()
}

// ParseConfig overlays YAML onto the defaults. Unknown keys are rejected; an empty document yields the defaults.
func ParseConfig(data []byte) (Config, error) {
	config := DefaultConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil && err != io.EOF {
		return Config{}, errors.Wrap(err, "decoding device config")
	}
	if err := config.Validate(); err != nil {
		return Config{}, errors.Wrap(err, "invalid device config")
	}
	return config, nil
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading device config %q", path)
	}
	config, err := ParseConfig(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "loading %q", path)
	}
	return config, nil
}
