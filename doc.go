// Package hmmcore implements the maximum-a-posteriori inference core
// of a map-matching / time-series state-estimation toolkit: a
// time-inhomogeneous Viterbi decoder with optional forward-backward
// smoothing, an online HMM filter for streaming use, and a bounded
// k-State memory that garbage-collects candidates no longer reachable
// from any surviving back-pointer chain.
//
// The road network, candidate generation, and routing/cost functions
// that supply emission and transition probabilities are out of scope
// here — this package treats them as pluggable oracles.
package hmmcore
