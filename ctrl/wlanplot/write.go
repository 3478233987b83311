package main

import (
	"io"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
)

func WritePlot(p *plot.Plot, width, height vg.Length, output io.Writer, format string) error {
	w, err := p.WriterTo(width, height, format)
	if err != nil {
		return errors.Wrapf(err, "rendering %s", format)
	}
	_, err = w.WriteTo(output)
	return err
}

// SavePlot writes p to path; a failure to close the file is reported alongside any rendering error.
func SavePlot(p *plot.Plot, width, height vg.Length, path string, format string) (err error) {
	output, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if e := output.Close(); e != nil {
			err = multierror.Append(err, e)
		}
	}()
	return WritePlot(p, width, height, output, format)
}
