package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Settings is the read-only scheduling policy applied to every availability
// search and conflict check. It is loaded once per operation and passed
// explicitly so the search and validation functions stay pure.
type Settings struct {
	// BusinessHoursStart/End are clock times in "HH:MM" form, e.g. "07:30".
	BusinessHoursStart string
	BusinessHoursEnd   string
	// BufferBefore/BufferAfter pad existing bookings on both sides when
	// evaluating conflicts.
	BufferBefore time.Duration
	BufferAfter  time.Duration
	// WorkingDays lists the weekdays open for scheduling.
	WorkingDays []time.Weekday
	// NightsWeekends reports whether the company offers weekend work.
	NightsWeekends bool
	// MinAdvance is the shortest notice accepted for a new booking.
	MinAdvance time.Duration
	// MaxAdvanceDays bounds how far ahead bookings may be placed.
	MaxAdvanceDays int
	// CapacityHoursPerDay caps one employee's booked hours on a single day.
	CapacityHoursPerDay float64
}

// DefaultSettings mirrors the product defaults applied when a company has not
// customised its scheduling policy.
func DefaultSettings() Settings {
	return Settings{
		BusinessHoursStart:  "07:30",
		BusinessHoursEnd:    "17:00",
		BufferBefore:        30 * time.Minute,
		BufferAfter:         30 * time.Minute,
		WorkingDays:         []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		NightsWeekends:      false,
		MinAdvance:          time.Hour,
		MaxAdvanceDays:      30,
		CapacityHoursPerDay: 8,
	}
}

// WorkingDay reports whether d is open for scheduling. Weekend days count as
// working days when the company offers nights-and-weekends service, which is
// what allows weekend-only searches to produce slots at all.
func (s Settings) WorkingDay(d time.Weekday) bool {
	for _, wd := range s.WorkingDays {
		if wd == d {
			return true
		}
	}
	if s.NightsWeekends && isWeekend(d) {
		return true
	}
	return false
}

// BusinessWindow returns the business-hours interval on the day containing t,
// in t's location.
func (s Settings) BusinessWindow(t time.Time) (time.Time, time.Time, error) {
	startH, startM, err := parseClock(s.BusinessHoursStart)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("business hours start: %w", err)
	}
	endH, endM, err := parseClock(s.BusinessHoursEnd)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("business hours end: %w", err)
	}

	y, m, d := t.Date()
	loc := t.Location()
	open := time.Date(y, m, d, startH, startM, 0, 0, loc)
	close := time.Date(y, m, d, endH, endM, 0, 0, loc)
	if !close.After(open) {
		return time.Time{}, time.Time{}, fmt.Errorf("business hours %q-%q are empty", s.BusinessHoursStart, s.BusinessHoursEnd)
	}
	return open, close, nil
}

// WithinBusinessHours reports whether [start, end] fits a working day's
// business hours.
func (s Settings) WithinBusinessHours(start, end time.Time) bool {
	if !s.WorkingDay(start.Weekday()) {
		return false
	}
	open, close, err := s.BusinessWindow(start)
	if err != nil {
		return false
	}
	return !start.Before(open) && !end.After(close)
}

func parseClock(v string) (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(v), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock value %q", v)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid clock value %q", v)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid clock value %q", v)
	}
	return hour, minute, nil
}

func isWeekend(d time.Weekday) bool {
	return d == time.Saturday || d == time.Sunday
}
