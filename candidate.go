package hmmcore

// CandidateNode is one state at one time step in the Viterbi engine's
// back-pointer DAG. It is immutable once constructed; ownership is
// shared via the back-pointer itself being a *CandidateNode, so a
// node stays alive exactly as long as some live node (or the engine's
// lastExtended map) transitively points to it. Back-pointers
// always address a strictly earlier time step, so the DAG cannot
// cycle.
type CandidateNode[S comparable, O any, D any] struct {
	State       S
	Back        *CandidateNode[S, O, D]
	Observation O
	Descriptor  D
}

// newRootCandidate builds a candidate with no back-pointer: only valid
// at t=0 or immediately after a break.
func newRootCandidate[S comparable, O any, D any](state S, obs O, descriptor D) *CandidateNode[S, O, D] {
	return &CandidateNode[S, O, D]{State: state, Observation: obs, Descriptor: descriptor}
}

func newCandidate[S comparable, O any, D any](state S, back *CandidateNode[S, O, D], obs O, descriptor D) *CandidateNode[S, O, D] {
	return &CandidateNode[S, O, D]{State: state, Back: back, Observation: obs, Descriptor: descriptor}
}

// path walks back-pointers from n to the root, returning states in
// chronological order.
func (n *CandidateNode[S, O, D]) path() []S {
	if n == nil {
		return nil
	}
	var rev []S
	for c := n; c != nil; c = c.Back {
		rev = append(rev, c.State)
	}
	out := make([]S, len(rev))
	for i, s := range rev {
		out[len(rev)-1-i] = s
	}
	return out
}

// chain walks back-pointers from n to the root, returning nodes in
// chronological order (used to zip in Forward-Backward posteriors).
func (n *CandidateNode[S, O, D]) chain() []*CandidateNode[S, O, D] {
	if n == nil {
		return nil
	}
	var rev []*CandidateNode[S, O, D]
	for c := n; c != nil; c = c.Back {
		rev = append(rev, c)
	}
	out := make([]*CandidateNode[S, O, D], len(rev))
	for i, c := range rev {
		out[len(rev)-1-i] = c
	}
	return out
}
