package component

import "github.com/toitlang/wlansim/sim/model"

type SignalEdge struct {
	Time     model.VirtualTime
	Asserted bool
}

// SignalRecorder is an interrupt line that remembers its level and every change to it, and notifies subscribers
// on each rising edge.
type SignalRecorder struct {
	*EventDispatcher
	ctx      model.SimContext
	asserted bool
	Edges    []SignalEdge
}

var _ model.SignalLine = &SignalRecorder{}

func MakeSignalRecorder(ctx model.SimContext) *SignalRecorder {
	return &SignalRecorder{
		EventDispatcher: MakeEventDispatcher(ctx, "sim.component.SignalRecorder"),
		ctx:             ctx,
	}
}

func (s *SignalRecorder) SetLevel(asserted bool) {
	if asserted == s.asserted {
		return
	}
	s.asserted = asserted
	s.Edges = append(s.Edges, SignalEdge{Time: s.ctx.Now(), Asserted: asserted})
	if asserted {
		s.DispatchLater()
	}
}

func (s *SignalRecorder) Asserted() bool {
	return s.asserted
}
