package hmmcore

import "github.com/golang/glog"

// EventSink receives notable engine events. The default sink is a
// no-op; callers who want structured telemetry instead of glog's
// verbosity-gated lines can supply their own. Global state: none —
// each engine instance holds its own sink.
type EventSink interface {
	// OnStep fires after a successful Viterbi NextStep, before return;
	// the Online Filter does not report steps.
	OnStep(stepIndex int, candidateCount int)
	// OnBreak fires once when a Viterbi message collapses to zero mass
	// (the engine then latches), and on every Online Filter
	// break-recovery pass, including a first sample with no
	// predecessors; the filter always reports step 0.
	OnBreak(stepIndex int)
}

type noopSink struct{}

func (noopSink) OnStep(int, int) {}
func (noopSink) OnBreak(int)     {}

var defaultSink EventSink = noopSink{}

func traceStep(sink EventSink, step, candidates int) {
	if glog.V(5) {
		glog.Infof("hmmcore: step %d produced %d candidates", step, candidates)
	}
	sink.OnStep(step, candidates)
}

func traceBreak(sink EventSink, step int) {
	if glog.V(4) {
		glog.Infof("hmmcore: break detected at step %d", step)
	}
	sink.OnBreak(step)
}
