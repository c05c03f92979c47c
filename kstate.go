package hmmcore

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

// Sample is the minimal contract the k-State memory requires of a
// stream element: a totally ordered timestamp.
type Sample interface {
	Time() time.Time
}

// UnboundedDuration marks a k-State as retaining no bound on
// wall-clock span.
const UnboundedDuration = time.Duration(math.MaxInt64)

// UnboundedDepth marks a k-State as retaining no bound on step count.
const UnboundedDepth = -1

type kEntry[C any, T any, SM Sample] struct {
	vector    []*StateCandidate[C, T]
	sample    SM
	estimated *StateCandidate[C, T]
}

// KState is the bounded-history state memory: a deque of at most
// kappa+1 entries spanning at most tau, plus a reference-counted
// candidate registry that prunes predecessors no longer reachable from
// any surviving current-step candidate.
type KState[C any, T any, SM Sample] struct {
	kappa   int
	tau     time.Duration
	entries []*kEntry[C, T, SM]
	refs    map[*StateCandidate[C, T]]int
}

// NewKState constructs an empty k-State with the given retention
// bounds.
func NewKState[C any, T any, SM Sample](kappa int, tau time.Duration) *KState[C, T, SM] {
	return &KState[C, T, SM]{
		kappa: kappa,
		tau:   tau,
		refs:  make(map[*StateCandidate[C, T]]int),
	}
}

// Update appends a new candidate vector for sample, registers
// reference counts for predecessor links, prunes unreachable
// predecessors from the previous entry, and trims the head to respect
// kappa/tau.
func (k *KState[C, T, SM]) Update(vector []*StateCandidate[C, T], sample SM) error {
	if len(vector) == 0 {
		return nil
	}
	if len(k.entries) > 0 {
		last := k.entries[len(k.entries)-1]
		if sample.Time().Before(last.sample.Time()) {
			return errors.Wrapf(ErrOutOfOrderUpdate, "sample time %v before last %v", sample.Time(), last.sample.Time())
		}
	}

	var lastEntry *kEntry[C, T, SM]
	if len(k.entries) > 0 {
		lastEntry = k.entries[len(k.entries)-1]
	}

	for _, c := range vector {
		if _, ok := k.refs[c]; !ok {
			k.refs[c] = 0
		}
		if c.HasPredecessor() {
			if lastEntry == nil {
				return errors.Wrap(ErrInconsistentUpdate, "candidate has predecessor but there is no previous entry")
			}
			if _, inRegistry := k.refs[c.Predecessor]; !inRegistry {
				return errors.Wrap(ErrInconsistentUpdate, "predecessor not present in registry")
			}
			if !containsCandidate(lastEntry.vector, c.Predecessor) {
				return errors.Wrap(ErrInconsistentUpdate, "predecessor not present in previous vector")
			}
			k.refs[c.Predecessor]++
		}
	}

	estimated, _, _ := stableArgmaxBy(vector, func(c *StateCandidate[C, T]) float64 { return c.SeqProb })
	entry := &kEntry[C, T, SM]{vector: vector, sample: sample, estimated: estimated}

	if lastEntry != nil {
		k.pruneEntry(lastEntry)
	}

	k.entries = append(k.entries, entry)
	k.trim()
	return nil
}

func containsCandidate[C any, T any](vector []*StateCandidate[C, T], c *StateCandidate[C, T]) bool {
	for _, v := range vector {
		if v == c {
			return true
		}
	}
	return false
}

// pruneEntry removes every candidate of entry whose reference count is
// zero, except entry's own estimated candidate — unless every
// candidate is at zero, in which case the estimated tail is
// conservatively preserved rather than leaving the entry with no
// walkable candidate at all.
func (k *KState[C, T, SM]) pruneEntry(entry *kEntry[C, T, SM]) {
	allZero := true
	for _, c := range entry.vector {
		if k.refs[c] != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return
	}
	for _, c := range append([]*StateCandidate[C, T](nil), entry.vector...) {
		if k.refs[c] == 0 {
			k.remove(entry, c)
		}
	}
}

// remove drops candidate from entry's vector and the registry, unless
// it is entry's distinguished estimated candidate, and cascades the
// predecessor's reference count decrement.
func (k *KState[C, T, SM]) remove(entry *kEntry[C, T, SM], c *StateCandidate[C, T]) {
	if c == entry.estimated {
		return
	}
	delete(k.refs, c)
	entry.vector = removeCandidate(entry.vector, c)

	if c.HasPredecessor() {
		pred := c.Predecessor
		if _, ok := k.refs[pred]; ok {
			k.refs[pred]--
			if k.refs[pred] == 0 {
				predEntry := k.entryOwning(pred)
				if predEntry != nil {
					k.remove(predEntry, pred)
				}
			}
		}
	}
}

func (k *KState[C, T, SM]) entryOwning(c *StateCandidate[C, T]) *kEntry[C, T, SM] {
	for _, e := range k.entries {
		if containsCandidate(e.vector, c) {
			return e
		}
	}
	return nil
}

func removeCandidate[C any, T any](vector []*StateCandidate[C, T], c *StateCandidate[C, T]) []*StateCandidate[C, T] {
	out := vector[:0]
	for _, v := range vector {
		if v != c {
			out = append(out, v)
		}
	}
	return out
}

// trim pops entries off the front while the retained span exceeds tau
// or the retained length exceeds kappa+1, clearing the new front's
// candidates' predecessor links so they become sequence roots.
func (k *KState[C, T, SM]) trim() {
	for len(k.entries) > 0 {
		span := time.Duration(0)
		if k.tau != UnboundedDuration && len(k.entries) > 1 {
			span = k.entries[len(k.entries)-1].sample.Time().Sub(k.entries[0].sample.Time())
		}
		overLength := k.kappa != UnboundedDepth && len(k.entries) > k.kappa+1
		overSpan := k.tau != UnboundedDuration && span > k.tau
		if !overLength && !overSpan {
			break
		}
		front := k.entries[0]
		for _, c := range front.vector {
			delete(k.refs, c)
		}
		k.entries = k.entries[1:]
		if len(k.entries) > 0 {
			for _, c := range k.entries[0].vector {
				c.Predecessor = nil
				c.hasPredecessor = false
			}
		}
	}
}

// Vector returns the last entry's candidates, or nil if empty.
func (k *KState[C, T, SM]) Vector() []*StateCandidate[C, T] {
	if len(k.entries) == 0 {
		return nil
	}
	return k.entries[len(k.entries)-1].vector
}

// Estimate returns the last vector's argmax by FilterProb — distinct
// from the SeqProb-based `estimated` used for sequence reconstruction.
func (k *KState[C, T, SM]) Estimate() *StateCandidate[C, T] {
	if len(k.entries) == 0 {
		return nil
	}
	best, _, ok := stableArgmaxBy(k.entries[len(k.entries)-1].vector, func(c *StateCandidate[C, T]) float64 { return c.FilterProb })
	if !ok {
		return nil
	}
	return best
}

// Sequence reconstructs the most likely chain by walking
// estimated/predecessor links from the last entry to the first,
// substituting each step's own estimated candidate whenever the chain
// breaks (predecessor nil mid-stream), in chronological order.
func (k *KState[C, T, SM]) Sequence() []StateCandidate[C, T] {
	if len(k.entries) == 0 {
		return nil
	}
	out := make([]StateCandidate[C, T], len(k.entries))
	cur := k.entries[len(k.entries)-1].estimated
	for i := len(k.entries) - 1; i >= 0; i-- {
		if cur == nil {
			cur = k.entries[i].estimated
		}
		out[i] = *cur
		if cur.HasPredecessor() {
			cur = cur.Predecessor
		} else {
			cur = nil
		}
	}
	return out
}

// Samples returns every stored observation in chronological order.
func (k *KState[C, T, SM]) Samples() []SM {
	out := make([]SM, len(k.entries))
	for i, e := range k.entries {
		out[i] = e.sample
	}
	return out
}

// Size reports the number of retained entries.
func (k *KState[C, T, SM]) Size() int { return len(k.entries) }
