package hmmcore

import "github.com/pkg/errors"

// fbStep records one step's linear-domain inputs needed to run the
// backward pass later: the candidate states in caller order, the
// emission probabilities used to seed/extend alpha, and the
// transition probabilities from the previous step's states into this
// step's states (nil for the seed step).
type fbStep[S comparable] struct {
	states      []S
	emissions   map[S]float64
	transitions map[TransitionKey[S]]float64
}

// ForwardBackward runs the linear-domain alpha/beta recursion for a
// time-inhomogeneous HMM. Beta is computed only on demand, by
// ComputeSmoothingProbabilities; alpha history is retained across every
// call to NextStep/Start.
type ForwardBackward[S comparable] struct {
	started bool
	alpha   []map[S]float64
	steps   []fbStep[S]
}

// NewForwardBackward constructs an unstarted engine.
func NewForwardBackward[S comparable]() *ForwardBackward[S] {
	return &ForwardBackward[S]{}
}

// Start seeds alpha_0 directly from initial probabilities (linear
// domain). states fixes the iteration order recorded for this step.
func (fb *ForwardBackward[S]) Start(states []S, initialProbs map[S]float64) {
	fb.started = true
	a0 := make(map[S]float64, initialCapacityHint(len(states)))
	for _, s := range states {
		if p, ok := initialProbs[s]; ok {
			a0[s] = p
		}
	}
	fb.alpha = []map[S]float64{a0}
	fb.steps = []fbStep[S]{{states: append([]S(nil), states...), emissions: nil}}
}

// StartWithEmissions seeds alpha_0 = emissionProbs over the given
// candidates.
func (fb *ForwardBackward[S]) StartWithEmissions(candidates []S, emissionProbs map[S]float64) {
	fb.started = true
	a0 := make(map[S]float64, initialCapacityHint(len(candidates)))
	for _, s := range candidates {
		a0[s] = emissionProbs[s]
	}
	fb.alpha = []map[S]float64{a0}
	fb.steps = []fbStep[S]{{states: append([]S(nil), candidates...), emissions: cloneMap(emissionProbs)}}
}

// NextStep computes alpha_t(s) = emission(s) * sum_s' alpha_{t-1}(s') *
// trans(s'->s); a missing transition contributes 0.
func (fb *ForwardBackward[S]) NextStep(candidates []S, emissionProbs map[S]float64, transitionProbs map[TransitionKey[S]]float64) error {
	if !fb.started {
		return errors.Wrap(ErrNotStarted, "forward-backward nextStep")
	}
	prev := fb.alpha[len(fb.alpha)-1]
	prevStates := fb.steps[len(fb.steps)-1].states

	at := make(map[S]float64, initialCapacityHint(len(candidates)))
	for _, cur := range candidates {
		sum := 0.0
		for _, p := range prevStates {
			aPrev, ok := prev[p]
			if !ok || aPrev == 0 {
				continue
			}
			tp, ok := transitionProbs[NewTransitionKey(p, cur)]
			if !ok || tp == 0 {
				continue
			}
			sum += aPrev * tp
		}
		at[cur] = sum * emissionProbs[cur]
	}

	fb.alpha = append(fb.alpha, at)
	fb.steps = append(fb.steps, fbStep[S]{
		states:      append([]S(nil), candidates...),
		emissions:   cloneMap(emissionProbs),
		transitions: cloneTransMap(transitionProbs),
	})
	return nil
}

// ComputeSmoothingProbabilities runs the backward pass and returns, for
// each recorded step, the posterior vector gamma_t(s) = alpha_t(s) *
// beta_t(s), normalized over s. Result length equals the number of
// recorded steps.
func (fb *ForwardBackward[S]) ComputeSmoothingProbabilities() ([]map[S]float64, error) {
	if !fb.started {
		return nil, errors.Wrap(ErrNotStarted, "forward-backward computeSmoothingProbabilities")
	}
	n := len(fb.alpha)
	beta := make([]map[S]float64, n)

	last := fb.steps[n-1].states
	bLast := make(map[S]float64, len(last))
	for _, s := range last {
		bLast[s] = 1.0
	}
	beta[n-1] = bLast

	for t := n - 2; t >= 0; t-- {
		cur := fb.steps[t].states
		next := fb.steps[t+1]
		bt := make(map[S]float64, initialCapacityHint(len(cur)))
		for _, s := range cur {
			sum := 0.0
			for _, sNext := range next.states {
				tp, ok := next.transitions[NewTransitionKey(s, sNext)]
				if !ok || tp == 0 {
					continue
				}
				em := next.emissions[sNext]
				sum += tp * em * beta[t+1][sNext]
			}
			bt[s] = sum
		}
		beta[t] = bt
	}

	gamma := make([]map[S]float64, n)
	for t := 0; t < n; t++ {
		states := fb.steps[t].states
		raw := make(map[S]float64, len(states))
		total := 0.0
		for _, s := range states {
			v := fb.alpha[t][s] * beta[t][s]
			raw[s] = v
			total += v
		}
		g := make(map[S]float64, len(states))
		if total > 0 {
			for _, s := range states {
				g[s] = raw[s] / total
			}
		} else {
			for _, s := range states {
				g[s] = 0
			}
		}
		gamma[t] = g
	}
	return gamma, nil
}

func cloneMap[S comparable](m map[S]float64) map[S]float64 {
	if m == nil {
		return nil
	}
	out := make(map[S]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneTransMap[S comparable](m map[TransitionKey[S]]float64) map[TransitionKey[S]]float64 {
	if m == nil {
		return nil
	}
	out := make(map[TransitionKey[S]]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
