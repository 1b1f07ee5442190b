package domain

import "fmt"

// RequestState tracks a request through the pipeline.
type RequestState string

const (
	StatePending      RequestState = "PENDING"
	StateProcessing   RequestState = "PROCESSING"
	StateCompleted    RequestState = "COMPLETED"
	StateFailed       RequestState = "FAILED"
	StateManualReview RequestState = "MANUAL_REVIEW"
)

var transitions = map[RequestState][]RequestState{
	StatePending:    {StateProcessing},
	StateProcessing: {StateCompleted, StateFailed, StateManualReview},
}

// Terminal reports whether no further transition is allowed.
func (s RequestState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateManualReview
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to RequestState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition returns to, or ErrInvalidTransition.
func Transition(from, to RequestState) (RequestState, error) {
	if !CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return to, nil
}
