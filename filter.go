package hmmcore

import "math"

// CandidateEmission pairs a raw candidate value with its linear-domain
// emission probability, the shape the Candidates oracle returns.
type CandidateEmission[C any] struct {
	Candidate C
	Emission  float64
}

// TransitionResult pairs a transition payload with its linear-domain
// probability; 0 means "no transition".
type TransitionResult[T any] struct {
	Transition T
	Prob       float64
}

// FilterConfig holds the oracle functions an Online HMM Filter needs,
// as plain function values rather than an interface to implement — the
// inference loop in Filter.Execute is concrete and final, only the
// oracles vary per use site.
//
// SM is the sample type; it must expose a totally ordered timestamp
// via the Sample interface, enforced where samples are compared
// (k-State), not here.
type FilterConfig[C any, T any, SM any] struct {
	// Candidates produces, for a sample and its predecessor vector,
	// the candidate set with linear-domain emission probabilities.
	Candidates func(predecessors []*StateCandidate[C, T], sample SM) []CandidateEmission[C]

	// Transition computes the transition object and linear-domain
	// probability between a previous (sample, candidate) pair and a
	// current one. A probability of 0 means "no transition".
	Transition func(prevSample SM, prev *StateCandidate[C, T], curSample SM, cur C) TransitionResult[T]

	// Transitions optionally computes the full cross product of
	// transitions in bulk, e.g. for an oracle that can batch a graph
	// query. If nil, defaultTransitions (the cross product built from
	// Transition) is used.
	Transitions func(prevSample SM, predecessors []*StateCandidate[C, T], curSample SM, candidates []C) map[int]map[int]TransitionResult[T]
}

// defaultTransitions forms the full cross product of predecessors x
// candidates by calling Transition pairwise; it is the fallback used
// when a filter doesn't override bulk computation.
func defaultTransitions[C any, T any, SM any](cfg FilterConfig[C, T, SM], prevSample SM, predecessors []*StateCandidate[C, T], curSample SM, candidates []CandidateEmission[C]) map[int]map[int]TransitionResult[T] {
	out := make(map[int]map[int]TransitionResult[T], len(predecessors))
	for pi, p := range predecessors {
		row := make(map[int]TransitionResult[T], len(candidates))
		for ci, c := range candidates {
			row[ci] = cfg.Transition(prevSample, p, curSample, c.Candidate)
		}
		out[pi] = row
	}
	return out
}

// Filter is the Online HMM Filter: a per-sample filter producing
// posterior weights over candidate states plus back-links to
// predecessors, suitable for streaming. It holds no history itself —
// pair it with a KState if bounded retention/back-pointer pruning is
// needed.
type Filter[C any, T any, SM any] struct {
	cfg  FilterConfig[C, T, SM]
	sink EventSink
}

// NewFilter constructs a filter around the given oracle config.
func NewFilter[C any, T any, SM any](cfg FilterConfig[C, T, SM]) *Filter[C, T, SM] {
	if cfg.Transitions == nil {
		captured := cfg
		cfg.Transitions = func(prevSample SM, predecessors []*StateCandidate[C, T], curSample SM, candidates []C) map[int]map[int]TransitionResult[T] {
			ces := make([]CandidateEmission[C], len(candidates))
			for i, c := range candidates {
				ces[i] = CandidateEmission[C]{Candidate: c}
			}
			return defaultTransitions(captured, prevSample, predecessors, curSample, ces)
		}
	}
	return &Filter[C, T, SM]{cfg: cfg, sink: defaultSink}
}

// Execute runs one filter step: produces the candidate set, updates
// filter/sequence probabilities against predecessors, normalizes, and
// on total mass collapse (or an empty
// predecessor vector) silently re-initializes via the break-recovery
// path — the Online Filter's characteristic behavior of never erroring
// on an HMM break, only the Viterbi engine latches a broken flag.
func (f *Filter[C, T, SM]) Execute(predecessors []*StateCandidate[C, T], previousSample SM, sample SM) []*StateCandidate[C, T] {
	emissions := f.cfg.Candidates(predecessors, sample)

	var out []*StateCandidate[C, T]
	if len(predecessors) > 0 {
		out = f.executeWithPredecessors(predecessors, previousSample, sample, emissions)
	}
	if len(predecessors) == 0 || len(out) == 0 {
		traceBreak(f.sink, 0)
		out = f.executeBreakRecovery(emissions)
	}
	return out
}

func (f *Filter[C, T, SM]) executeWithPredecessors(predecessors []*StateCandidate[C, T], previousSample, sample SM, emissions []CandidateEmission[C]) []*StateCandidate[C, T] {
	candVals := make([]C, len(emissions))
	for i, e := range emissions {
		candVals[i] = e.Candidate
	}
	trans := f.cfg.Transitions(previousSample, predecessors, sample, candVals)

	out := make([]*StateCandidate[C, T], 0, len(emissions))
	sum := 0.0
	for ci, em := range emissions {
		c := &StateCandidate[C, T]{FilterProb: 0, SeqProb: math.Inf(-1)}
		for pi, p := range predecessors {
			t := trans[pi][ci]
			if t.Prob == 0 {
				continue
			}
			c.FilterProb += t.Prob * p.FilterProb
			seq := p.SeqProb + math.Log10(t.Prob) + math.Log10(em.Emission)
			if seq > c.SeqProb {
				c.Predecessor = p
				c.hasPredecessor = true
				c.Transition = t.Transition
				c.SeqProb = seq
			}
		}
		if c.FilterProb == 0 {
			continue
		}
		c.FilterProb *= em.Emission
		c.Candidate = em.Candidate
		sum += c.FilterProb
		out = append(out, c)
	}
	normalize(out, sum)
	return out
}

func (f *Filter[C, T, SM]) executeBreakRecovery(emissions []CandidateEmission[C]) []*StateCandidate[C, T] {
	out := make([]*StateCandidate[C, T], 0, len(emissions))
	sum := 0.0
	for _, em := range emissions {
		if em.Emission == 0 {
			continue
		}
		c := newRootStateCandidate[C, T](em.Candidate, em.Emission)
		sum += c.FilterProb
		out = append(out, c)
	}
	normalize(out, sum)
	return out
}

func normalize[C any, T any](candidates []*StateCandidate[C, T], sum float64) {
	if sum == 0 {
		return
	}
	for _, c := range candidates {
		c.FilterProb /= sum
	}
}
