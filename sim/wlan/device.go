// Package wlan is the emulated wireless NIC: a register file the guest drives, a DMA engine, and the access point on
// the far side of the air, joined to a wired uplink.
package wlan

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/toitlang/wlansim/sim/component"
	"github.com/toitlang/wlansim/sim/model"
	"github.com/toitlang/wlansim/sim/wlan/ap"
	"github.com/toitlang/wlansim/sim/wlan/dma"
	"github.com/toitlang/wlansim/sim/wlan/ieee80211"
	"github.com/toitlang/wlansim/sim/wlan/inject"
	"k8s.io/klog/v2"
	"k8s.io/utils/clock"
)

// Uplink is the wired network behind the access point.
type Uplink interface {
	SendPacket(packet []byte)
}

type discardUplink struct{}

func (discardUplink) SendPacket([]byte) {}

// Monitor observes traffic crossing the device; captures implement it.
type Monitor interface {
	FromGuest(frame ieee80211.Frame)
	ToGuest(frame ieee80211.Frame)
	FromUplink(packet []byte)
	ToUplink(packet []byte)
}

type Option func(*Device)

// WithRegisterer exposes the device's metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(d *Device) {
		d.registerer = reg
	}
}

// WithClock sets the wall clock used for beacon timestamps.
func WithClock(clk clock.PassiveClock) Option {
	return func(d *Device) {
		d.clock = clk
	}
}

func WithMonitor(m Monitor) Option {
	return func(d *Device) {
		d.monitors = append(d.monitors, m)
	}
}

type Device struct {
	ctx        model.SimContext
	name       string
	config     Config
	uplink     Uplink
	clock      clock.PassiveClock
	registerer prometheus.Registerer
	monitors   []Monitor

	registers  registerFile
	ap         *ap.AccessPoint
	injector   *inject.Injector
	beacons    *inject.BeaconScheduler
	interrupts *dma.Interrupts
	bridge     *dma.Bridge
	admission  *component.EventDispatcher
	metrics    *deviceCollector
}

// MakeDevice builds a device and resets it, which starts the beacon timer.
func MakeDevice(ctx model.SimContext, name string, config Config, mem model.Memory, line model.SignalLine,
	uplink Uplink, options ...Option) (*Device, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	accessPointMAC, stationMAC, err := config.addresses()
	if err != nil {
		return nil, err
	}
	if uplink == nil {
		uplink = discardUplink{}
	}
	d := &Device{
		ctx:    ctx,
		name:   name,
		config: config,
		uplink: uplink,
		clock:  clock.RealClock{},
	}
	for _, option := range options {
		option(d)
	}

	d.ap = ap.MakeAccessPoint(config.Roster, config.Channel, d.clock, accessPointSink{d})
	d.ap.MAC = accessPointMAC
	d.ap.Station = stationMAC
	d.injector = inject.MakeInjector(ctx, name+"/inject", config.PacingInterval, d.deliver)
	d.beacons = inject.MakeBeaconScheduler(ctx, name, config.Roster, config.BeaconDelay, config.BeaconPeriod, d.beacon)
	d.interrupts = dma.MakeInterrupts(line)
	d.bridge = dma.MakeBridge(ctx, mem, d.interrupts, d.fromGuest)
	d.admission = component.MakeEventDispatcher(ctx, name+"/admission")
	d.metrics = newDeviceCollector(name,
		func() float64 { return float64(d.injector.Len()) },
		func() float64 { return float64(d.ap.State()) })

	d.interrupts.OnRaise(d.countInterrupt)
	d.injector.Subscribe(func() {
		if d.CanReceive() {
			d.admission.DispatchLater()
		}
	})
	if d.registerer != nil {
		if err := d.registerer.Register(d.metrics); err != nil {
			return nil, err
		}
	}
	d.Reset()
	return d, nil
}

func (d *Device) Name() string {
	return d.name
}

func (d *Device) State() ap.State {
	return d.ap.State()
}

func (d *Device) QueueLength() int {
	return d.injector.Len()
}

func (d *Device) AccessPointMAC() ieee80211.MAC {
	return d.ap.MAC
}

func (d *Device) StationMAC() ieee80211.MAC {
	return d.ap.Station
}

// Tune is driven by the PHY side of the guest; only the access point on the tuned channel answers.
func (d *Device) Tune(channel int) {
	d.ap.Tune(channel)
}

func (d *Device) Channel() int {
	return d.ap.Channel()
}

// Reset returns the device to its power-on state: nothing queued, no association, no receive ring, no pending
// interrupts, and beacons restarting from the first access point.
func (d *Device) Reset() {
	klog.V(1).Infof("%v [%s] reset", d.ctx.Now(), d.name)
	d.injector.Stop()
	d.ap.Reset()
	d.bridge.Reset()
	d.interrupts.Reset()
	d.registers.clear()
	d.beacons.Start()
}

func (d *Device) ReadRegister(offset uint32) uint32 {
	value := d.registers.load(offset)
	switch offset {
	case RegDMAInStatus:
		value = 0
	case RegDMAIntStatus, RegDMAIntClear:
		value = d.interrupts.Pending()
	case RegStatus, RegDMAOutStatus:
		value = 1
	}
	if klog.V(4).Enabled() {
		klog.Infof("%v [%s] read %s = 0x%08x", d.ctx.Now(), d.name, registerName(offset), value)
	}
	return value
}

func (d *Device) WriteRegister(offset uint32, value uint32) {
	if klog.V(4).Enabled() {
		klog.Infof("%v [%s] write %s = 0x%08x", d.ctx.Now(), d.name, registerName(offset), value)
	}
	if _, ok := registerIndex(offset); !ok {
		klog.Warningf("%v [%s] write to invalid register offset 0x%x ignored", d.ctx.Now(), d.name, offset)
		return
	}
	switch offset {
	case RegDMAInlink:
		d.bridge.SetInboundHead(value)
	case RegDMAIntClear:
		d.interrupts.Acknowledge(value)
	case RegDMAOutlink:
		err := d.bridge.Transmit(value)
		if err != nil && !errors.Is(err, dma.ErrNotStarted) {
			klog.Warningf("%v [%s] dropping malformed frame from guest: %v", d.ctx.Now(), d.name, err)
			d.metrics.dropped.WithLabelValues("malformed").Inc()
		}
	}
	d.registers.store(offset, value)
}

// CanReceive reports whether the uplink may hand over a packet now: the station must be associated and the queue
// below its limit.
func (d *Device) CanReceive() bool {
	return d.ap.State() == ap.Associated && d.injector.Len() < d.config.MaxQueue
}

// Subscribe fires whenever CanReceive may have turned true; the uplink retries then.
func (d *Device) Subscribe(callback func()) (cancel func()) {
	return d.admission.Subscribe(callback)
}

// Receive takes an Ethernet packet from the uplink. It returns false if the packet was refused, in which case the
// uplink keeps it until the next admission notification.
func (d *Device) Receive(packet []byte) bool {
	if !d.CanReceive() {
		d.metrics.uplinkRejected.Inc()
		klog.V(2).Infof("%v [%s] uplink refused while %v with %d queued", d.ctx.Now(), d.name, d.ap.State(), d.injector.Len())
		return false
	}
	frame, err := ieee80211.DataFromEthernet(d.ap.Station, packet)
	if err != nil {
		klog.Warningf("%v [%s] discarding packet from uplink: %v", d.ctx.Now(), d.name, err)
		d.metrics.dropped.WithLabelValues("short_packet").Inc()
		return true
	}
	for _, m := range d.monitors {
		m.FromUplink(packet)
	}
	if info, ok := d.ap.Roster().OnChannel(d.ap.Channel()); ok {
		frame.SignalStrength = info.SignalStrength
	}
	d.ap.Finalize(&frame)
	d.metrics.uplinkAccepted.Inc()
	d.injector.Enqueue(frame)
	return true
}

func (d *Device) fromGuest(frame ieee80211.Frame) {
	kind := frame.Kind()
	d.metrics.guestFrames.WithLabelValues(kind.String()).Inc()
	for _, m := range d.monitors {
		m.FromGuest(frame)
	}
	before := d.ap.State()
	outcome := d.ap.Handle(frame)
	d.metrics.accessPoint.WithLabelValues(outcome.String()).Inc()
	klog.V(2).Infof("%v [%s] guest %v: %v", d.ctx.Now(), d.name, &frame, outcome)
	if before != ap.Associated && d.ap.State() == ap.Associated && d.CanReceive() {
		d.admission.DispatchLater()
	}
}

func (d *Device) deliver(frame ieee80211.Frame) {
	if !d.bridge.Deliver(frame) {
		d.metrics.dropped.WithLabelValues("no_receive_ring").Inc()
		return
	}
	d.metrics.delivered.Inc()
	for _, m := range d.monitors {
		m.ToGuest(frame)
	}
}

func (d *Device) beacon(info ieee80211.AccessPointInfo) {
	d.metrics.beacons.Inc()
	d.injector.Enqueue(d.ap.Beacon(info))
}

func (d *Device) countInterrupt(bits uint32) {
	switch bits {
	case dma.IntTxDone:
		d.metrics.interrupts.WithLabelValues("tx_done").Inc()
	case dma.IntRxDone:
		d.metrics.interrupts.WithLabelValues("rx_done").Inc()
	default:
		d.metrics.interrupts.WithLabelValues("other").Inc()
	}
}

// accessPointSink routes access point output into the device without widening Device's API.
type accessPointSink struct {
	d *Device
}

func (s accessPointSink) Inject(frame ieee80211.Frame) {
	s.d.injector.Enqueue(frame)
}

func (s accessPointSink) Forward(frame ieee80211.Frame) {
	packet := ieee80211.EthernetFromData(frame, s.d.ap.MAC)
	s.d.metrics.uplinkForwarded.Inc()
	for _, m := range s.d.monitors {
		m.ToUplink(packet)
	}
	s.d.uplink.SendPacket(packet)
}
