package domain

import "errors"

var (
	// ErrInputRejected means there was nothing usable to classify.
	ErrInputRejected = errors.New("input rejected")
	// ErrRuleLookupMissing means a category has no rule set.
	ErrRuleLookupMissing = errors.New("no rule set for category")
	// ErrExtractorFault is wrapped around extractor failures and panics.
	ErrExtractorFault = errors.New("extractor fault")
	// ErrInvalidTransition is returned for an illegal request state change.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrUnknownCategory is returned when a category is not configured.
	ErrUnknownCategory = errors.New("unknown category")
)
