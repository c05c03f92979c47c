package hmmcore

import "math"

// StateCandidate is the Online Filter's mutable per-step tuple: a
// candidate value, its normalized linear-domain filter probability,
// its unnormalized log-domain running-max sequence probability, and an
// optional predecessor/transition pair.
// C is the raw candidate value the Candidates oracle returns (often
// just the state, but may carry geometry/route context); T is the
// transition payload type.
type StateCandidate[C any, T any] struct {
	Candidate      C
	FilterProb     float64
	SeqProb        float64 // base-10 log
	Predecessor    *StateCandidate[C, T]
	Transition     T
	hasPredecessor bool
}

// HasPredecessor reports whether this candidate has a predecessor,
// i.e. is not a sequence root.
func (c *StateCandidate[C, T]) HasPredecessor() bool { return c.hasPredecessor }

func newRootStateCandidate[C any, T any](candidate C, filterProb float64) *StateCandidate[C, T] {
	return &StateCandidate[C, T]{
		Candidate:  candidate,
		FilterProb: filterProb,
		SeqProb:    math.Log10(filterProb),
	}
}
