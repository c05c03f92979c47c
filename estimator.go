package hmmcore

import "math"

// Estimator is the common surface over either the Viterbi engine or
// the Online Filter + k-State pairing: Result and IsBroken. Update is
// not part of it, since each wrapper's Update takes its own engine's
// arguments; code that only reads results can be written against this
// interface and the concrete engine swapped without touching it.
type Estimator[S comparable, O any, D any] interface {
	// Result returns the current most-likely sequence.
	Result() ([]SequenceState[S, O, D], error)
	// IsBroken reports whether the underlying engine has latched a
	// break.
	IsBroken() bool
}

// ViterbiEstimator drives a Viterbi engine (and its optional embedded
// Forward-Backward smoother).
type ViterbiEstimator[S comparable, O any, D any] struct {
	engine *Viterbi[S, O, D]
}

// NewViterbiEstimator wraps an already-configured Viterbi engine.
func NewViterbiEstimator[S comparable, O any, D any](engine *Viterbi[S, O, D]) *ViterbiEstimator[S, O, D] {
	return &ViterbiEstimator[S, O, D]{engine: engine}
}

// Start seeds the underlying engine from initial log-probabilities.
func (e *ViterbiEstimator[S, O, D]) Start(states []S, initialLogProbs map[S]LogProb) error {
	return e.engine.Start(states, initialLogProbs)
}

// Update advances the underlying engine by one observation.
func (e *ViterbiEstimator[S, O, D]) Update(
	obs O,
	candidates []S,
	emissionLogProbs map[S]LogProb,
	transitionLogProbs map[TransitionKey[S]]LogProb,
	transitionDescriptors map[TransitionKey[S]]D,
) error {
	return e.engine.NextStep(obs, candidates, emissionLogProbs, transitionLogProbs, transitionDescriptors)
}

// Result returns the current most-likely sequence.
func (e *ViterbiEstimator[S, O, D]) Result() ([]SequenceState[S, O, D], error) {
	return e.engine.ComputeMostLikelySequence()
}

// IsBroken reports whether the Viterbi engine has latched a break.
func (e *ViterbiEstimator[S, O, D]) IsBroken() bool { return e.engine.Broken() }

// FilterEstimator drives an Online Filter paired with a k-State
// memory, the streaming alternative to ViterbiEstimator.
type FilterEstimator[C comparable, T any, SM Sample] struct {
	filter  *Filter[C, T, SM]
	state   *KState[C, T, SM]
	prev    SM
	hasPrev bool
}

// NewFilterEstimator wraps a Filter and the KState it feeds.
func NewFilterEstimator[C comparable, T any, SM Sample](filter *Filter[C, T, SM], state *KState[C, T, SM]) *FilterEstimator[C, T, SM] {
	return &FilterEstimator[C, T, SM]{filter: filter, state: state}
}

// Update runs one filter step against the current k-State vector and
// appends the result to the k-State.
func (e *FilterEstimator[C, T, SM]) Update(sample SM) error {
	predecessors := e.state.Vector()
	var prevSample SM
	if e.hasPrev {
		prevSample = e.prev
	}
	vector := e.filter.Execute(predecessors, prevSample, sample)
	if err := e.state.Update(vector, sample); err != nil {
		return err
	}
	e.prev = sample
	e.hasPrev = true
	return nil
}

// Result reconstructs the most-likely sequence retained by the
// k-State, with a NaN smoothing probability (the Online Filter never
// computes smoothing posteriors; only the Viterbi path does).
func (e *FilterEstimator[C, T, SM]) Result() ([]SequenceState[C, struct{}, T], error) {
	chain := e.state.Sequence()
	out := make([]SequenceState[C, struct{}, T], len(chain))
	for i, c := range chain {
		out[i] = SequenceState[C, struct{}, T]{
			State:                c.Candidate,
			TransitionDescriptor: c.Transition,
			SmoothingProbability: math.NaN(),
		}
	}
	return out, nil
}

// IsBroken reports whether the last k-State vector is empty, the
// Online Filter's equivalent of a latched break (it silently recovers
// rather than latching).
func (e *FilterEstimator[C, T, SM]) IsBroken() bool {
	return len(e.state.Vector()) == 0
}
