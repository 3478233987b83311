package capture

import (
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/toitlang/wlansim/sim/model"
	"github.com/toitlang/wlansim/sim/wlan/ieee80211"
	"k8s.io/klog/v2"
)

const snapLength = 65536

// PcapMonitor writes over-the-air frames (802.11, no FCS) and uplink packets (Ethernet) to two pcap streams.
// Timestamps are virtual time offset from Epoch.
type PcapMonitor struct {
	ctx   model.SimContext
	Epoch time.Time

	air     *pcapgo.Writer
	wire    *pcapgo.Writer
	closers []io.Closer
	err     error
}

func MakePcapMonitorTo(ctx model.SimContext, air io.Writer, wire io.Writer) (*PcapMonitor, error) {
	m := &PcapMonitor{
		ctx:   ctx,
		Epoch: time.Unix(0, 0).UTC(),
	}
	if air != nil {
		m.air = pcapgo.NewWriter(air)
		if err := m.air.WriteFileHeader(snapLength, layers.LinkTypeIEEE802_11); err != nil {
			return nil, errors.Wrap(err, "writing 802.11 pcap header")
		}
	}
	if wire != nil {
		m.wire = pcapgo.NewWriter(wire)
		if err := m.wire.WriteFileHeader(snapLength, layers.LinkTypeEthernet); err != nil {
			return nil, errors.Wrap(err, "writing Ethernet pcap header")
		}
	}
	return m, nil
}

// MakePcapMonitor creates the two capture files; an empty path skips that stream.
func MakePcapMonitor(ctx model.SimContext, airPath, wirePath string) (*PcapMonitor, error) {
	var files []io.Closer
	open := func(path string) (io.Writer, error) {
		if path == "" {
			return nil, nil
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, errors.Wrapf(err, "creating capture %q", path)
		}
		files = append(files, f)
		return f, nil
	}
	closeAll := func(err error) error {
		for _, f := range files {
			if e := f.Close(); e != nil {
				err = multierror.Append(err, e)
			}
		}
		return err
	}
	air, err := open(airPath)
	if err != nil {
		return nil, closeAll(err)
	}
	wire, err := open(wirePath)
	if err != nil {
		return nil, closeAll(err)
	}
	m, err := MakePcapMonitorTo(ctx, air, wire)
	if err != nil {
		return nil, closeAll(err)
	}
	m.closers = files
	return m, nil
}

func (m *PcapMonitor) write(w *pcapgo.Writer, data []byte) {
	if w == nil || m.err != nil {
		return
	}
	ci := gopacket.CaptureInfo{
		Timestamp:     m.Epoch.Add(time.Duration(m.ctx.Now().Nanoseconds())),
		CaptureLength: len(data),
		Length:        len(data),
	}
	if err := w.WritePacket(ci, data); err != nil {
		klog.Errorf("capture stopped after write error: %v", err)
		m.err = err
	}
}

func (m *PcapMonitor) FromGuest(frame ieee80211.Frame) {
	m.write(m.air, frame.Encode())
}

func (m *PcapMonitor) ToGuest(frame ieee80211.Frame) {
	m.write(m.air, frame.Encode())
}

func (m *PcapMonitor) FromUplink(packet []byte) {
	m.write(m.wire, packet)
}

func (m *PcapMonitor) ToUplink(packet []byte) {
	m.write(m.wire, packet)
}

// Close reports the first write error, if any, along with any error closing the files.
func (m *PcapMonitor) Close() (err error) {
	if m.err != nil {
		err = multierror.Append(err, m.err)
	}
	for _, c := range m.closers {
		if e := c.Close(); e != nil {
			err = multierror.Append(err, e)
		}
	}
	m.closers = nil
	return err
}
