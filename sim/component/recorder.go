package component

import (
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/toitlang/wlansim/sim/model"
	"k8s.io/klog/v2"
)

var recordingHeader = []string{"Nanoseconds", "Channel", "Hex Bytes"}

// CSVByteRecorder appends timestamped byte blobs to a CSV file, one row per blob, tagged with a channel name.
type CSVByteRecorder struct {
	sim    model.SimContext
	closer io.Closer
	output *csv.Writer
	failed bool
}

func (r *CSVByteRecorder) IsRecording() bool {
	return r.output != nil && !r.failed
}

func (r *CSVByteRecorder) Record(channel string, dataBytes []byte) {
	if channel == "" {
		panic("invalid empty channel name")
	}
	if !r.IsRecording() {
		// not recording; discard
		return
	}
	err := r.output.Write([]string{
		strconv.FormatUint(r.sim.Now().Nanoseconds(), 10),
		channel,
		hex.EncodeToString(dataBytes),
	})
	r.output.Flush()
	if err == nil {
		err = r.output.Error()
	}
	if err != nil {
		klog.Errorf("recording stopped after write error: %v", err)
		r.failed = true
	}
}

func (r *CSVByteRecorder) Close() (err error) {
	if r.output == nil {
		return nil
	}
	r.output.Flush()
	if e := r.output.Error(); e != nil {
		err = multierror.Append(err, e)
	}
	if r.closer != nil {
		if e := r.closer.Close(); e != nil {
			err = multierror.Append(err, e)
		}
	}
	r.output = nil
	return err
}

func MakeNullCSVRecorder() *CSVByteRecorder {
	return &CSVByteRecorder{}
}

// MakeCSVRecorderTo records into w; the caller keeps ownership of w.
func MakeCSVRecorderTo(sim model.SimContext, w io.Writer) (*CSVByteRecorder, error) {
	cw := csv.NewWriter(w)
	err := cw.Write(recordingHeader)
	cw.Flush()
	if err == nil {
		err = cw.Error()
	}
	if err != nil {
		return nil, err
	}
	return &CSVByteRecorder{
		sim:    sim,
		output: cw,
	}, nil
}

func MakeCSVRecorder(sim model.SimContext, path string) (*CSVByteRecorder, error) {
	w, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	r, err := MakeCSVRecorderTo(sim, w)
	if err != nil {
		if e := w.Close(); e != nil {
			err = multierror.Append(err, e)
		}
		return nil, err
	}
	r.closer = w
	return r, nil
}

type Record struct {
	Timestamp model.VirtualTime
	Channel   string
	Bytes     []byte
}

func DecodeRecording(path string) (records []Record, re error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := r.Close(); err != nil {
			re = multierror.Append(re, err)
		}
	}()
	return DecodeRecordingFrom(r)
}

func DecodeRecordingFrom(r io.Reader) (records []Record, err error) {
	recordsRaw, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(recordsRaw) < 1 {
		return nil, errors.New("no header found")
	}
	header := recordsRaw[0]
	if len(header) != 3 || header[0] != recordingHeader[0] || header[1] != recordingHeader[1] || header[2] != recordingHeader[2] {
		return nil, fmt.Errorf("invalid header: %v", header)
	}
	for _, record := range recordsRaw[1:] {
		if len(record) != 3 {
			return nil, fmt.Errorf("invalid data record: %v", record)
		}
		timestampNS, err := strconv.ParseUint(record[0], 10, 64)
		if err != nil {
			return nil, err
		}
		timestamp, ok := model.FromNanoseconds(timestampNS)
		if !ok {
			return nil, fmt.Errorf("invalid timestamp: %v", record[0])
		}
		channel := record[1]
		if channel == "" {
			return nil, errors.New("invalid empty string channel")
		}
		dataBytes, err := hex.DecodeString(record[2])
		if err != nil {
			return nil, err
		}
		records = append(records, Record{
			Timestamp: timestamp,
			Channel:   channel,
			Bytes:     dataBytes,
		})
	}
	return records, nil
}
