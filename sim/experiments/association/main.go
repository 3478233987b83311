// Command association runs one station through scan, authentication, association, ARP and ping against the
// emulated access point, and appends the outcome to a results log.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/toitlang/wlansim/sim/capture"
	"github.com/toitlang/wlansim/sim/component"
	"github.com/toitlang/wlansim/sim/model"
	"github.com/toitlang/wlansim/sim/uplink"
	"github.com/toitlang/wlansim/sim/wlan"
	"github.com/toitlang/wlansim/sim/wlan/guestdrv"
	"k8s.io/klog/v2"
)

var (
	configPath = flag.String("config", "", "YAML device configuration (defaults apply when empty)")
	ssid       = flag.String("ssid", "MasseyWifi", "network the station joins")
	pings      = flag.Int("pings", 3, "echo requests to send once the gateway is resolved")
	seed       = flag.Int64("seed", 0, "simulation seed; 0 picks one from the wall clock")
	duration   = flag.Duration("duration", 10*time.Second, "virtual time limit")
	step       = flag.Duration("step", 10*time.Millisecond, "virtual time per profiler sample")
	resultsLog = flag.String("log", "association.log", "results log, appended to")
	recording  = flag.String("record", "io-dump.csv", "CSV recording of device traffic; empty disables")
	airPcap    = flag.String("air-pcap", "", "802.11 pcap of guest traffic")
	wirePcap   = flag.String("wire-pcap", "", "Ethernet pcap of uplink traffic")
	profile    = flag.String("profile", "", "CSV of wall-clock cost per step")
	metrics    = flag.Bool("metrics", true, "print device metrics at exit")
)

func appendLog(logFile *os.File, format string, args ...interface{}) {
	_, err := fmt.Fprintf(logFile, format, args...)
	if err == nil {
		err = logFile.Sync()
	}
	if err != nil {
		log.Printf("Encountered error while writing to log file: %v", err)
	}
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	logFile, err := os.OpenFile(*resultsLog, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("Encountered error while opening results log: %v", err)
	}
	defer func() {
		err := logFile.Close()
		if err != nil {
			log.Printf("Encountered error while closing log file: %v", err)
		}
	}()
	appendLog(logFile, "\nExperiment started.\n")

	config := wlan.DefaultConfig()
	if *configPath != "" {
		config, err = wlan.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Cannot load configuration: %v", err)
		}
	}

	var sim *component.SimController
	if *seed == 0 {
		sim = component.MakeSimControllerRandomized(model.TimeZero)
	} else {
		sim = component.MakeSimControllerSeeded(*seed, model.TimeZero)
	}

	mem := component.MakeGuestMemory()
	base, size := guestdrv.DefaultLayout.Region()
	if err := mem.AddRegion(base, size); err != nil {
		log.Fatalf("Cannot map guest memory: %v", err)
	}
	irq := component.MakeSignalRecorder(sim)
	gateway := uplink.MakeGateway(sim, uplink.DefaultGatewayMAC, uplink.DefaultGatewayIP)

	recorder := component.MakeNullCSVRecorder()
	if *recording != "" {
		recorder, err = component.MakeCSVRecorder(sim, *recording)
		if err != nil {
			log.Fatalf("Cannot open recording: %v", err)
		}
	}
	defer func() {
		if err := recorder.Close(); err != nil {
			log.Printf("Encountered error while closing recording: %v", err)
		}
	}()
	pcaps, err := capture.MakePcapMonitor(sim, *airPcap, *wirePcap)
	if err != nil {
		log.Fatalf("Cannot open packet captures: %v", err)
	}
	defer func() {
		if err := pcaps.Close(); err != nil {
			log.Printf("Encountered error while closing packet captures: %v", err)
		}
	}()

	stalled := false
	mon := MakeMonitor(sim, 2*time.Second, time.Second, func(lastTxmit model.VirtualTime) {
		appendLog(logFile, "Experiment: monitor reported guest transmissions ceased at %f seconds\n", lastTxmit.Seconds())
		log.Printf("Wrote monitor halt information to log file")
		stalled = true
	})

	registry := prometheus.NewRegistry()
	dev, err := wlan.MakeDevice(sim, "wlan0", config, mem, irq, gateway,
		wlan.WithRegisterer(registry),
		wlan.WithMonitor(capture.RecordMonitor(recorder)),
		wlan.WithMonitor(pcaps),
		wlan.WithMonitor(mon),
	)
	if err != nil {
		log.Fatalf("Cannot build device: %v", err)
	}
	gateway.Attach(dev)

	driver := guestdrv.MakeDriver(sim, mem, dev, guestdrv.DefaultLayout, guestdrv.Params{
		TargetSSID: *ssid,
		Station:    dev.StationMAC(),
		IP:         net.IPv4(10, 0, 2, 15),
		GatewayIP:  uplink.DefaultGatewayIP,
		Pings:      *pings,
	})
	done := false
	driver.OnDone(func() {
		done = true
		mon.Stop()
	})
	driver.Start(irq)

	var profiler *Profiler
	if *profile != "" {
		profiler, err = MakeProfiler(*profile, sim)
		if err != nil {
			log.Fatalf("Cannot initialize profiler: %v", err)
		}
		defer func() {
			if err := profiler.Close(); err != nil {
				log.Printf("Encountered error while closing profiler: %v", err)
			}
		}()
	}

	deadline := model.TimeZero.Add(*duration)
	for !done && !stalled && sim.Now().Before(deadline) {
		if profiler != nil {
			if _, err := profiler.Step(*step); err != nil {
				log.Fatalf("Encountered error while profiling: %v", err)
			}
		} else {
			sim.AdvanceBy(*step)
		}
	}

	elapsed := sim.Now().Since(model.TimeZero)
	if done {
		appendLog(logFile, "Experiment: time elapsed is %f seconds\nStation reached %v with %d ping replies.\nExperiment succeeded.\n",
			elapsed.Seconds(), driver.Phase(), driver.PingReplies)
	} else {
		appendLog(logFile, "Experiment: time elapsed is %f seconds\nStation stuck in phase %v (access point state %v).\nFailure detected in experiment.\n",
			elapsed.Seconds(), driver.Phase(), dev.State())
	}
	log.Printf("Station phase %v after %v; %d packets crossed to the gateway", driver.Phase(), elapsed, len(gateway.Received))

	if *metrics {
		families, err := registry.Gather()
		if err != nil {
			log.Printf("Encountered error while gathering metrics: %v", err)
		}
		for _, mf := range families {
			if _, err := expfmt.MetricFamilyToText(os.Stdout, mf); err != nil {
				log.Printf("Encountered error while printing metrics: %v", err)
				break
			}
		}
	}
}
