package entities

import "errors"

// Domain errors
var (
	// Transcript errors
	ErrMissingMeetingID = errors.New("meeting id is required")
	ErrNoContent        = errors.New("transcript has no notes or content sections")

	// Scoring errors
	ErrUnknownCriterion = errors.New("unknown criterion")

	// Client mapping errors
	ErrEmptyVariant   = errors.New("variant name is required")
	ErrEmptyCanonical = errors.New("canonical name is required")
)
