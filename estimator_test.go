package hmmcore

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViterbiEstimatorDrivesEngine(t *testing.T) {
	engine := NewViterbi[string, struct{}, struct{}]()
	est := NewViterbiEstimator(engine)

	require.NoError(t, est.Start([]string{"A", "B"}, map[string]LogProb{
		"A": math.Log(0.6),
		"B": math.Log(0.4),
	}))
	trans := map[TransitionKey[string]]LogProb{
		NewTransitionKey("A", "A"): math.Log(0.7),
		NewTransitionKey("A", "B"): math.Log(0.3),
		NewTransitionKey("B", "A"): math.Log(0.4),
		NewTransitionKey("B", "B"): math.Log(0.6),
	}
	em := map[string]LogProb{"A": math.Log(0.5), "B": math.Log(0.5)}
	require.NoError(t, est.Update(struct{}{}, []string{"A", "B"}, em, trans, nil))

	seq, err := est.Result()
	require.NoError(t, err)
	assert.Len(t, seq, 2)
	assert.False(t, est.IsBroken())
}

func TestFilterEstimatorDrivesFilterAndKState(t *testing.T) {
	base := time.Unix(7000, 0)
	cfg := FilterConfig[string, struct{}, kSample]{
		Candidates: func(predecessors []*StateCandidate[string, struct{}], sample kSample) []CandidateEmission[string] {
			return []CandidateEmission[string]{
				{Candidate: "A", Emission: 0.5},
				{Candidate: "B", Emission: 0.5},
			}
		},
		Transition: func(kSample, *StateCandidate[string, struct{}], kSample, string) TransitionResult[struct{}] {
			return TransitionResult[struct{}]{Prob: 1.0}
		},
	}
	filter := NewFilter(cfg)
	state := NewKState[string, struct{}, kSample](UnboundedDepth, UnboundedDuration)
	est := NewFilterEstimator(filter, state)

	require.NoError(t, est.Update(kSample{base}))
	require.NoError(t, est.Update(kSample{base.Add(time.Second)}))

	assert.False(t, est.IsBroken())
	seq, err := est.Result()
	require.NoError(t, err)
	assert.Len(t, seq, 2)
	for _, s := range seq {
		assert.True(t, math.IsNaN(s.SmoothingProbability))
	}
}
