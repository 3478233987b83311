package wlan

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "wlansim"

// deviceCollector holds the per-device counters. It implements prometheus.Collector so a device registers with a
// single call.
type deviceCollector struct {
	guestFrames     *prometheus.CounterVec
	accessPoint     *prometheus.CounterVec
	delivered       prometheus.Counter
	dropped         *prometheus.CounterVec
	beacons         prometheus.Counter
	uplinkAccepted  prometheus.Counter
	uplinkRejected  prometheus.Counter
	uplinkForwarded prometheus.Counter
	interrupts      *prometheus.CounterVec
	queueDepth      prometheus.GaugeFunc
	state           prometheus.GaugeFunc
}

func newDeviceCollector(name string, queueDepth func() float64, state func() float64) *deviceCollector {
	labels := prometheus.Labels{"device": name}
	return &deviceCollector{
		guestFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "guest_frames_total",
			Help:        "Frames transmitted by the guest, by frame kind.",
			ConstLabels: labels,
		}, []string{"kind"}),
		accessPoint: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "access_point_outcomes_total",
			Help:        "What the access point did with each frame from the guest.",
			ConstLabels: labels,
		}, []string{"outcome"}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "delivered_frames_total",
			Help:        "Frames written into the guest receive ring.",
			ConstLabels: labels,
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "dropped_frames_total",
			Help:        "Frames lost inside the device, by reason.",
			ConstLabels: labels,
		}, []string{"reason"}),
		beacons: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "beacons_total",
			Help:        "Beacons queued for the guest.",
			ConstLabels: labels,
		}),
		uplinkAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "uplink_accepted_packets_total",
			Help:        "Packets from the uplink queued for the guest.",
			ConstLabels: labels,
		}),
		uplinkRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "uplink_rejected_packets_total",
			Help:        "Packets from the uplink refused by admission control.",
			ConstLabels: labels,
		}),
		uplinkForwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "uplink_forwarded_packets_total",
			Help:        "Packets sent to the uplink on behalf of the guest.",
			ConstLabels: labels,
		}),
		interrupts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "interrupts_total",
			Help:        "Interrupts raised toward the guest, by cause.",
			ConstLabels: labels,
		}, []string{"cause"}),
		queueDepth: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        "injection_queue_depth",
			Help:        "Frames waiting for delivery to the guest.",
			ConstLabels: labels,
		}, queueDepth),
		state: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        "association_state",
			Help:        "0 not authenticated, 1 authenticated, 2 associated.",
			ConstLabels: labels,
		}, state),
	}
}

func (c *deviceCollector) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.guestFrames, c.accessPoint, c.delivered, c.dropped, c.beacons,
		c.uplinkAccepted, c.uplinkRejected, c.uplinkForwarded, c.interrupts,
		c.queueDepth, c.state,
	}
}

func (c *deviceCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range c.collectors() {
		collector.Describe(ch)
	}
}

func (c *deviceCollector) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range c.collectors() {
		collector.Collect(ch)
	}
}
