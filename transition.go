package hmmcore

// TransitionKey is an ordered (prev, cur) state pair, value-equal iff
// both components are equal. Go structs of comparable fields are
// already comparable and already hash correctly as map keys, so this
// type needs no custom Equals/HashCode to serve as one.
type TransitionKey[S comparable] struct {
	From S
	To   S
}

// NewTransitionKey builds a transition key from a previous and current
// state.
func NewTransitionKey[S comparable](from, to S) TransitionKey[S] {
	return TransitionKey[S]{From: from, To: to}
}
