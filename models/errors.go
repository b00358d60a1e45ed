package models

import "errors"

// Adapter failure modes. ErrEmptyGeneration is an expected outcome (e.g. the
// provider's safety filter suppressed every candidate) and must stay
// distinguishable from a transport or parse failure.
var (
	ErrMalformedResponse = errors.New("provider returned no usable choices")
	ErrEmptyGeneration   = errors.New("provider returned an empty generation")
)
