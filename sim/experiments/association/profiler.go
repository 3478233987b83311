package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/toitlang/wlansim/sim/component"
	"github.com/toitlang/wlansim/sim/model"
)

// Profiler advances the simulation in fixed steps and records how much wall-clock time each step took.
type Profiler struct {
	sim      *component.SimController
	closer   io.Closer
	writer   *csv.Writer
	timebase time.Time
}

func MakeProfiler(profile string, sim *component.SimController) (*Profiler, error) {
	pc, err := os.Create(profile)
	if err != nil {
		return nil, err
	}
	p := &Profiler{
		sim:      sim,
		closer:   pc,
		writer:   csv.NewWriter(pc),
		timebase: time.Now(),
	}
	err = p.writer.Write([]string{"Virtual Time", "Clock Time", "Pending Timers"})
	if err != nil {
		return nil, multierror.Append(err, pc.Close())
	}
	return p, nil
}

func (p *Profiler) Step(d time.Duration) (model.VirtualTime, error) {
	p.sim.AdvanceBy(d)
	now := p.sim.Now()
	err := p.writer.Write([]string{
		fmt.Sprint(now.Nanoseconds()),
		fmt.Sprint(time.Since(p.timebase).Nanoseconds()),
		fmt.Sprint(p.sim.Pending()),
	})
	if err != nil {
		return now, err
	}
	p.writer.Flush()
	return now, p.writer.Error()
}

func (p *Profiler) Close() (err error) {
	p.writer.Flush()
	if e := p.writer.Error(); e != nil {
		err = multierror.Append(err, e)
	}
	if e := p.closer.Close(); e != nil {
		err = multierror.Append(err, e)
	}
	return err
}
