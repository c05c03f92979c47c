package hmmcore

import (
	"math"

	"github.com/pkg/errors"
)

// Viterbi is a time-inhomogeneous, log-domain most-likely-sequence
// decoder. The candidate set, emission probabilities, and transition
// probabilities are supplied fresh at every step rather than
// registered once up front, so the state space can change shape from
// one observation to the next; the engine keeps one incremental
// log-domain message plus a shared back-pointer DAG instead of
// rebuilding whole path slices per step.
//
// D is the transition descriptor type; pass struct{} if unused.
type Viterbi[S comparable, O any, D any] struct {
	started       bool
	broken        bool
	brokenAtStart bool
	step          int

	message           map[S]LogProb
	lastExtended      map[S]*CandidateNode[S, O, D]
	prevOrder         []S
	defaultDescriptor D

	keepHistory bool
	history     []map[S]LogProb

	fb *ForwardBackward[S]

	sink EventSink
}

// ViterbiOption configures a Viterbi engine at construction time.
type ViterbiOption[S comparable, O any, D any] func(*Viterbi[S, O, D])

// WithMessageHistory enables retention of a copy of every intermediate
// message for debugging, readable through MessageHistory. The copies
// hold log-probabilities only, not candidate nodes.
func WithMessageHistory[S comparable, O any, D any]() ViterbiOption[S, O, D] {
	return func(v *Viterbi[S, O, D]) { v.keepHistory = true }
}

// WithSmoothing enables an embedded Forward-Backward engine fed the
// linear-domain equivalent of every step, for smoothing posteriors.
func WithSmoothing[S comparable, O any, D any]() ViterbiOption[S, O, D] {
	return func(v *Viterbi[S, O, D]) { v.fb = NewForwardBackward[S]() }
}

// WithEventSink overrides the default no-op event sink.
func WithEventSink[S comparable, O any, D any](sink EventSink) ViterbiOption[S, O, D] {
	return func(v *Viterbi[S, O, D]) { v.sink = sink }
}

// NewViterbi constructs an unstarted engine.
func NewViterbi[S comparable, O any, D any](opts ...ViterbiOption[S, O, D]) *Viterbi[S, O, D] {
	v := &Viterbi[S, O, D]{sink: defaultSink}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Viterbi[S, O, D]) checkDuplicates(states []S) error {
	seen := make(map[S]struct{}, len(states))
	for _, s := range states {
		if _, ok := seen[s]; ok {
			return errors.Wrapf(ErrDuplicateState, "state %v", s)
		}
		seen[s] = struct{}{}
	}
	return nil
}

// Start seeds the message from initial log-probabilities and creates
// one root candidate per state (no back-pointer, no descriptor, zero
// value observation).
func (v *Viterbi[S, O, D]) Start(states []S, initialLogProbs map[S]LogProb) error {
	if v.started {
		return errors.Wrap(ErrAlreadyStarted, "viterbi start")
	}
	if err := v.checkDuplicates(states); err != nil {
		return err
	}
	var zeroObs O
	msg := make(map[S]LogProb, initialCapacityHint(len(states)))
	ext := make(map[S]*CandidateNode[S, O, D], initialCapacityHint(len(states)))
	for _, s := range states {
		lp, ok := initialLogProbs[s]
		if !ok {
			return errors.Wrapf(ErrMissingInitialProbability, "state %v", s)
		}
		msg[s] = lp
		ext[s] = newRootCandidate[S, O, D](s, zeroObs, v.defaultDescriptor)
	}
	return v.finishStart(states, msg, ext)
}

// StartWithObservation seeds the message from emission
// log-probabilities over the given candidates, binding obs into each
// root candidate.
func (v *Viterbi[S, O, D]) StartWithObservation(obs O, candidates []S, emissionLogProbs map[S]LogProb) error {
	if v.started {
		return errors.Wrap(ErrAlreadyStarted, "viterbi start")
	}
	if err := v.checkDuplicates(candidates); err != nil {
		return err
	}
	msg := make(map[S]LogProb, initialCapacityHint(len(candidates)))
	ext := make(map[S]*CandidateNode[S, O, D], initialCapacityHint(len(candidates)))
	for _, s := range candidates {
		lp, ok := emissionLogProbs[s]
		if !ok {
			return errors.Wrapf(ErrMissingEmission, "state %v", s)
		}
		msg[s] = lp
		ext[s] = newRootCandidate[S, O, D](s, obs, v.defaultDescriptor)
	}
	return v.finishStart(candidates, msg, ext)
}

func (v *Viterbi[S, O, D]) finishStart(order []S, msg map[S]LogProb, ext map[S]*CandidateNode[S, O, D]) error {
	v.started = true
	v.message = msg
	v.lastExtended = ext
	v.prevOrder = append([]S(nil), order...)
	if v.keepHistory {
		v.history = append(v.history, cloneLogMap(msg))
	}
	if v.fb != nil {
		v.fb.StartWithEmissions(order, logToLinear(msg))
	}
	if isBreak(msg) {
		v.broken = true
		v.brokenAtStart = true
		traceBreak(v.sink, v.step)
	}
	return nil
}

// lookupDescriptor abstracts the optional descriptor table so
// NextStep has one shape whether or not the caller supplies
// descriptors: a missing entry falls back to defaultVal.
func lookupDescriptor[S comparable, D any](table map[TransitionKey[S]]D, from, to S, defaultVal D) D {
	if table == nil {
		return defaultVal
	}
	if d, ok := table[NewTransitionKey(from, to)]; ok {
		return d
	}
	return defaultVal
}

// NextStep advances the engine by one observation. transitionDescriptors
// may be nil; a missing entry falls back to the zero value of D.
func (v *Viterbi[S, O, D]) NextStep(
	obs O,
	candidates []S,
	emissionLogProbs map[S]LogProb,
	transitionLogProbs map[TransitionKey[S]]LogProb,
	transitionDescriptors map[TransitionKey[S]]D,
) error {
	if !v.started {
		return errors.Wrap(ErrNotStarted, "viterbi nextStep")
	}
	if v.broken {
		return errors.Wrap(ErrBrokenSequence, "viterbi nextStep")
	}
	if err := v.checkDuplicates(candidates); err != nil {
		return err
	}

	newMessage := make(map[S]LogProb, initialCapacityHint(len(candidates)))
	newExtended := make(map[S]*CandidateNode[S, O, D], initialCapacityHint(len(candidates)))

	for _, cur := range candidates {
		scores := make(map[S]LogProb, len(v.prevOrder))
		for _, p := range v.prevOrder {
			prevScore, ok := v.message[p]
			if !ok {
				continue
			}
			tl, ok := transitionLogProbs[NewTransitionKey(p, cur)]
			if !ok {
				continue
			}
			scores[p] = prevScore + tl
		}
		best, bestScore, ok := stableArgmax(v.prevOrder, scores)

		emission, hasEmission := emissionLogProbs[cur]
		if !hasEmission {
			return errors.Wrapf(ErrMissingEmission, "state %v at step %d", cur, v.step+1)
		}

		if ok && !math.IsInf(bestScore, -1) {
			newMessage[cur] = bestScore + emission
			descriptor := lookupDescriptor(transitionDescriptors, best, cur, v.defaultDescriptor)
			newExtended[cur] = newCandidate(cur, v.lastExtended[best], obs, descriptor)
		} else {
			newMessage[cur] = math.Inf(-1)
		}
	}

	v.step++
	if isBreak(newMessage) {
		v.broken = true
		traceBreak(v.sink, v.step)
		return nil
	}

	v.message = newMessage
	v.lastExtended = newExtended
	v.prevOrder = append([]S(nil), candidates...)
	if v.keepHistory {
		v.history = append(v.history, cloneLogMap(newMessage))
	}
	if v.fb != nil {
		linearTrans := make(map[TransitionKey[S]]float64, len(transitionLogProbs))
		for k, lp := range transitionLogProbs {
			linearTrans[k] = math.Exp(lp)
		}
		if err := v.fb.NextStep(candidates, logToLinear(emissionLogProbs), linearTrans); err != nil {
			return err
		}
	}
	traceStep(v.sink, v.step, len(candidates))
	return nil
}

// Broken reports whether the engine has latched the break flag.
func (v *Viterbi[S, O, D]) Broken() bool { return v.broken }

// MessageHistory returns every recorded message in order, or an error
// if history retention was not enabled at construction.
func (v *Viterbi[S, O, D]) MessageHistory() ([]map[S]LogProb, error) {
	if !v.keepHistory {
		return nil, errors.Wrap(ErrHistoryUnavailable, "viterbi messageHistory")
	}
	return v.history, nil
}

// ComputeMostLikelySequence walks back-pointers from the current
// message's argmax to produce the most likely state sequence. Returns
// an empty slice if the engine was never started, or broken at step 0
// with nothing recorded.
func (v *Viterbi[S, O, D]) ComputeMostLikelySequence() ([]SequenceState[S, O, D], error) {
	if !v.started {
		return nil, nil
	}
	if v.brokenAtStart {
		return nil, nil
	}
	order := v.prevOrder
	last, _, ok := stableArgmax(order, v.message)
	if !ok {
		return nil, nil
	}
	chain := v.lastExtended[last].chain()

	var smoothing []map[S]float64
	if v.fb != nil {
		g, err := v.fb.ComputeSmoothingProbabilities()
		if err != nil {
			return nil, err
		}
		smoothing = g
	}

	out := make([]SequenceState[S, O, D], len(chain))
	for i, node := range chain {
		prob := math.NaN()
		if smoothing != nil && i < len(smoothing) {
			prob = smoothing[i][node.State]
		}
		out[i] = SequenceState[S, O, D]{
			State:                node.State,
			Observation:          node.Observation,
			TransitionDescriptor: node.Descriptor,
			SmoothingProbability: prob,
		}
	}
	return out, nil
}

func cloneLogMap[S comparable](m map[S]LogProb) map[S]LogProb {
	out := make(map[S]LogProb, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
