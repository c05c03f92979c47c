package hmmcore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwardBackwardSmoothingSumsToOne(t *testing.T) {
	fb := NewForwardBackward[string]()
	fb.Start([]string{"A", "B"}, map[string]float64{"A": 0.6, "B": 0.4})

	trans := map[TransitionKey[string]]float64{
		NewTransitionKey("A", "A"): 0.7,
		NewTransitionKey("A", "B"): 0.3,
		NewTransitionKey("B", "A"): 0.4,
		NewTransitionKey("B", "B"): 0.6,
	}
	em := map[string]float64{"A": 0.5, "B": 0.5}
	require.NoError(t, fb.NextStep([]string{"A", "B"}, em, trans))
	require.NoError(t, fb.NextStep([]string{"A", "B"}, em, trans))

	gamma, err := fb.ComputeSmoothingProbabilities()
	require.NoError(t, err)
	require.Len(t, gamma, 3)
	for _, g := range gamma {
		sum := 0.0
		for _, p := range g {
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestForwardBackwardNextStepBeforeStartFails(t *testing.T) {
	fb := NewForwardBackward[string]()
	err := fb.NextStep([]string{"A"}, map[string]float64{"A": 1}, nil)
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestForwardBackwardMatchesLogDomainMessage(t *testing.T) {
	// On a single dominant path (only A ever carries mass) the Viterbi
	// max-product message degenerates to the forward engine's
	// sum-product alpha, so the two must agree in log space — the one
	// case where "max" and "sum" over a single live term coincide.
	v := NewViterbi[string, struct{}, struct{}]()
	require.NoError(t, v.StartWithObservation(struct{}{}, []string{"A", "B"}, map[string]LogProb{
		"A": math.Log(1),
		"B": negInf,
	}))
	trans := map[TransitionKey[string]]LogProb{
		NewTransitionKey("A", "A"): math.Log(1),
		NewTransitionKey("A", "B"): negInf,
		NewTransitionKey("B", "A"): negInf,
		NewTransitionKey("B", "B"): math.Log(1),
	}
	em := map[string]LogProb{"A": math.Log(1), "B": negInf}
	require.NoError(t, v.NextStep(struct{}{}, []string{"A", "B"}, em, trans, nil))

	fb := NewForwardBackward[string]()
	fb.StartWithEmissions([]string{"A", "B"}, map[string]float64{"A": 1, "B": 0})
	require.NoError(t, fb.NextStep([]string{"A", "B"}, map[string]float64{"A": 1, "B": 0}, map[TransitionKey[string]]float64{
		NewTransitionKey("A", "A"): 1,
		NewTransitionKey("A", "B"): 0,
		NewTransitionKey("B", "A"): 0,
		NewTransitionKey("B", "B"): 1,
	}))

	assert.InDelta(t, math.Log(fb.alpha[1]["A"]), v.message["A"], 1e-9)
}
