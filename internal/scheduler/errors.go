package scheduler

import "errors"

var (
	// ErrInvalidDuration rejects searches and commits with a non-positive duration.
	ErrInvalidDuration = errors.New("scheduler: duration must be positive")
	// ErrMissingEmployee rejects operations without a resource to schedule.
	ErrMissingEmployee = errors.New("scheduler: employee is required")
	// ErrConflict reports that the proposed interval overlaps an existing
	// commitment. It is an expected outcome, not a failure path.
	ErrConflict = errors.New("scheduler: technician already booked")
	// ErrNoSlotFound reports an exhausted search window. Callers surface it as
	// a "widen search" prompt.
	ErrNoSlotFound = errors.New("scheduler: no availability in range")
	// ErrWeekendUnsupported distinguishes "company does not offer weekend
	// work" from an empty weekend-only search result.
	ErrWeekendUnsupported = errors.New("scheduler: weekend work not offered")
	// ErrNotEnoughCrew reports that fewer schedulable employees exist than the
	// requested crew size.
	ErrNotEnoughCrew = errors.New("scheduler: not enough schedulable employees for crew")
)
