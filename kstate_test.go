package hmmcore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type kSample struct {
	t time.Time
}

func (s kSample) Time() time.Time { return s.t }

func rootCand(seq float64) *StateCandidate[string, struct{}] {
	return &StateCandidate[string, struct{}]{SeqProb: seq}
}

func childCand(seq float64, pred *StateCandidate[string, struct{}]) *StateCandidate[string, struct{}] {
	c := &StateCandidate[string, struct{}]{SeqProb: seq}
	if pred != nil {
		c.Predecessor = pred
		c.hasPredecessor = true
	}
	return c
}

// TestKStatePruningDropsFrontAndClearsRoots verifies that with
// kappa=1, pushing three vectors of size 2 with a single winning chain
// drops the front entry after the third update, leaves the registry
// holding exactly the survivors of the last two steps, and clears the
// new front's candidates into roots.
func TestKStatePruningDropsFrontAndClearsRoots(t *testing.T) {
	base := time.Unix(1000, 0)
	k := NewKState[string, struct{}, kSample](1, UnboundedDuration)

	c0a := rootCand(-1.0)
	c0a.Candidate = "0a"
	c0b := rootCand(-5.0)
	c0b.Candidate = "0b"
	require.NoError(t, k.Update([]*StateCandidate[string, struct{}]{c0a, c0b}, kSample{base}))

	c1a := childCand(-1.5, c0a)
	c1a.Candidate = "1a"
	c1b := childCand(-2.0, nil)
	c1b.Candidate = "1b"
	require.NoError(t, k.Update([]*StateCandidate[string, struct{}]{c1a, c1b}, kSample{base.Add(time.Second)}))

	c2a := childCand(-1.8, c1a)
	c2a.Candidate = "2a"
	c2b := childCand(-2.5, nil)
	c2b.Candidate = "2b"
	require.NoError(t, k.Update([]*StateCandidate[string, struct{}]{c2a, c2b}, kSample{base.Add(2 * time.Second)}))

	assert.Equal(t, 2, k.Size())
	assert.Len(t, k.refs, 3)
	assert.Contains(t, k.refs, c1a)
	assert.Contains(t, k.refs, c2a)
	assert.Contains(t, k.refs, c2b)
	assert.NotContains(t, k.refs, c0a)
	assert.NotContains(t, k.refs, c0b)
	assert.NotContains(t, k.refs, c1b)

	assert.False(t, c1a.HasPredecessor())
	assert.Nil(t, c1a.Predecessor)
}

func TestKStateRejectsOutOfOrderUpdate(t *testing.T) {
	base := time.Unix(2000, 0)
	k := NewKState[string, struct{}, kSample](UnboundedDepth, UnboundedDuration)
	c := rootCand(0)
	require.NoError(t, k.Update([]*StateCandidate[string, struct{}]{c}, kSample{base}))

	earlier := kSample{base.Add(-time.Second)}
	c2 := rootCand(0)
	err := k.Update([]*StateCandidate[string, struct{}]{c2}, earlier)
	assert.ErrorIs(t, err, ErrOutOfOrderUpdate)
}

func TestKStateRejectsInconsistentPredecessor(t *testing.T) {
	base := time.Unix(3000, 0)
	k := NewKState[string, struct{}, kSample](UnboundedDepth, UnboundedDuration)
	c := rootCand(0)
	require.NoError(t, k.Update([]*StateCandidate[string, struct{}]{c}, kSample{base}))

	orphan := childCand(0, &StateCandidate[string, struct{}]{})
	err := k.Update([]*StateCandidate[string, struct{}]{orphan}, kSample{base.Add(time.Second)})
	assert.ErrorIs(t, err, ErrInconsistentUpdate)
}

func TestKStateEstimateUsesFilterProb(t *testing.T) {
	k := NewKState[string, struct{}, kSample](UnboundedDepth, UnboundedDuration)
	a := rootCand(0)
	a.Candidate = "a"
	a.FilterProb = 0.2
	b := rootCand(0)
	b.Candidate = "b"
	b.FilterProb = 0.8
	require.NoError(t, k.Update([]*StateCandidate[string, struct{}]{a, b}, kSample{time.Unix(4000, 0)}))

	est := k.Estimate()
	require.NotNil(t, est)
	assert.Equal(t, "b", est.Candidate)
}

func TestKStateUpdateNoopOnEmptyVector(t *testing.T) {
	k := NewKState[string, struct{}, kSample](UnboundedDepth, UnboundedDuration)
	require.NoError(t, k.Update(nil, kSample{time.Unix(5000, 0)}))
	assert.Equal(t, 0, k.Size())
}

func TestKStateTrimsByTauSpan(t *testing.T) {
	base := time.Unix(6000, 0)
	k := NewKState[string, struct{}, kSample](UnboundedDepth, 2*time.Second)

	for i := 0; i < 4; i++ {
		c := rootCand(0)
		require.NoError(t, k.Update([]*StateCandidate[string, struct{}]{c}, kSample{base.Add(time.Duration(i) * time.Second)}))
	}
	samples := k.Samples()
	require.NotEmpty(t, samples)
	span := samples[len(samples)-1].Time().Sub(samples[0].Time())
	assert.LessOrEqual(t, span, 2*time.Second)
}
