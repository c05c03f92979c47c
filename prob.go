package hmmcore

import "math"

// LogProb is a real number in [-Inf, 0]; math.Inf(-1) denotes
// impossibility. All Viterbi/Forward-Backward-internal arithmetic that
// is supposed to live in the log domain uses this alias so call sites
// read as intent, not as a bare float64.
type LogProb = float64

// logToLinear exponentiates every value of a log-domain message,
// preserving keys. Used wherever a log-domain message needs to seed or
// feed a linear-domain computation.
func logToLinear[S comparable](m map[S]LogProb) map[S]float64 {
	out := make(map[S]float64, len(m))
	for s, lp := range m {
		out[s] = math.Exp(lp)
	}
	return out
}

// isBreak reports whether a log-domain message is broken: empty, or
// every value is -Inf.
func isBreak[S comparable](m map[S]LogProb) bool {
	if len(m) == 0 {
		return true
	}
	for _, lp := range m {
		if lp != math.Inf(-1) {
			return false
		}
	}
	return true
}

// initialCapacityHint sizes a hash table for an expected candidate
// count, leaving Go's default load-factor headroom so a fully
// populated step doesn't force a rehash mid-insert.
func initialCapacityHint(expected int) int {
	if expected <= 0 {
		return 0
	}
	return expected + expected/3 + 1
}

// stableArgmax returns the key of the maximal value in m according to
// order, breaking ties in favor of the first key encountered in order
// that is present in m. order supplies the deterministic iteration
// order the caller must provide, since Go map iteration order is
// randomized. ok is false iff no key in order is present in m.
func stableArgmax[K comparable, V int | float64](order []K, m map[K]V) (best K, bestVal V, ok bool) {
	haveBest := false
	for _, k := range order {
		v, present := m[k]
		if !present {
			continue
		}
		if !haveBest || v > bestVal {
			bestVal = v
			best = k
			haveBest = true
		}
	}
	return best, bestVal, haveBest
}

// stableArgmaxBy is stableArgmax's counterpart for a slice of values
// that aren't themselves map keys: it scans items in slice order,
// extracting each one's comparison value with key, and keeps the
// first-encountered item on a tie. ok is false iff items is empty.
func stableArgmaxBy[T any, V int | float64](items []T, key func(T) V) (best T, bestVal V, ok bool) {
	haveBest := false
	for _, it := range items {
		v := key(it)
		if !haveBest || v > bestVal {
			bestVal = v
			best = it
			haveBest = true
		}
	}
	return best, bestVal, haveBest
}
