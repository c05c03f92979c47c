package hmmcore

import "github.com/pkg/errors"

// Sentinel errors for the engines' contract violations. Callers
// compare against these with errors.Is; wrapped errors carry call-site
// context (which state, which time) via errors.Wrapf.
var (
	ErrNotStarted                = errors.New("hmmcore: engine not started")
	ErrAlreadyStarted            = errors.New("hmmcore: engine already started")
	ErrBrokenSequence            = errors.New("hmmcore: sequence is broken, start a new engine")
	ErrMissingEmission           = errors.New("hmmcore: emission probability missing for candidate state")
	ErrMissingInitialProbability = errors.New("hmmcore: initial probability missing for state")
	ErrOutOfOrderUpdate          = errors.New("hmmcore: sample timestamp precedes last recorded sample")
	ErrInconsistentUpdate        = errors.New("hmmcore: candidate predecessor not present in previous vector")
	ErrHistoryUnavailable        = errors.New("hmmcore: message history was not enabled at construction")
	ErrDuplicateState            = errors.New("hmmcore: duplicate state within one candidate set")
)
