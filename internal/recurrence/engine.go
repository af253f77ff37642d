// Package recurrence expands a template appointment into a bounded sequence
// of future occurrence start times. Generation is pure: the caller turns each
// timestamp into a concrete appointment and owns all persistence.
package recurrence

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"
)

// Frequency selects the recurrence period.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// DefaultMaxOccurrences bounds unattended growth when a rule supplies neither
// an end date nor an occurrence cap.
const DefaultMaxOccurrences = 52

var (
	// ErrInvalidFrequency rejects rules with an unsupported frequency.
	ErrInvalidFrequency = errors.New("recurrence: invalid frequency")
	// ErrInvalidStart rejects generation from a zero start time.
	ErrInvalidStart = errors.New("recurrence: start time is required")
)

// Rule describes a recurrence policy: every Interval periods of Frequency,
// until EndDate or Occurrences entries, whichever comes first.
type Rule struct {
	Frequency   Frequency
	Interval    int
	EndDate     *time.Time
	Occurrences int
}

// Cap returns the effective occurrence bound for the rule.
func (r Rule) Cap() int {
	if r.Occurrences > 0 && r.Occurrences <= DefaultMaxOccurrences {
		return r.Occurrences
	}
	return DefaultMaxOccurrences
}

// Generate expands the rule from start into occurrence start times, the first
// of which is start itself. The result never exceeds the rule's cap and never
// contains an entry after the end date.
func Generate(start time.Time, rule Rule) ([]time.Time, error) {
	if start.IsZero() {
		return nil, ErrInvalidStart
	}

	freq, err := rruleFrequency(rule.Frequency)
	if err != nil {
		return nil, err
	}

	interval := rule.Interval
	if interval < 1 {
		interval = 1
	}

	opt := rrule.ROption{
		Freq:     freq,
		Interval: interval,
		Dtstart:  start,
		Count:    rule.Cap(),
	}
	if rule.EndDate != nil {
		opt.Until = *rule.EndDate
	}

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, err
	}

	return r.All(), nil
}

func rruleFrequency(f Frequency) (rrule.Frequency, error) {
	switch f {
	case FrequencyDaily:
		return rrule.DAILY, nil
	case FrequencyWeekly:
		return rrule.WEEKLY, nil
	case FrequencyMonthly:
		return rrule.MONTHLY, nil
	default:
		return 0, ErrInvalidFrequency
	}
}
