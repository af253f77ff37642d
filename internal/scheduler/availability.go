package scheduler

import (
	"context"
	"sort"
	"time"
)

// SlotIncrement aligns candidate slots to clean quarter-hour boundaries.
const SlotIncrement = 15 * time.Minute

// TimeSlot is an open interval produced by the availability search. Slots are
// ephemeral search output and are never persisted.
type TimeSlot struct {
	Start      time.Time
	End        time.Time
	EmployeeID string
}

// Window bounds an availability search.
type Window struct {
	Start time.Time
	End   time.Time
}

// CapacitySource resolves an employee's own daily capacity in hours. A zero
// value means the employee has no individual override.
type CapacitySource interface {
	CapacityForEmployee(ctx context.Context, employeeID string) (float64, error)
}

// Engine enumerates open time slots per employee, respecting business hours,
// buffers, daily capacity, and existing bookings.
type Engine struct {
	bookings   BookingSource
	capacities CapacitySource
	now        func() time.Time
}

// NewEngine wires an availability engine. A nil capacities source applies the
// company-wide capacity to every employee; a nil now falls back to time.Now.
func NewEngine(bookings BookingSource, capacities CapacitySource, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{bookings: bookings, capacities: capacities, now: now}
}

// Suggest returns chronologically ordered open slots of exactly
// durationMinutes per employee inside the search window. An employee with no
// fitting slot maps to an empty list; exhausting the window is not an error.
func (e *Engine) Suggest(ctx context.Context, employeeIDs []string, durationMinutes int, window Window, settings Settings) (map[string][]TimeSlot, error) {
	if durationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}
	if len(employeeIDs) == 0 {
		return nil, ErrMissingEmployee
	}

	effStart, effEnd := e.effectiveWindow(window, settings)

	suggestions := make(map[string][]TimeSlot, len(employeeIDs))
	for _, employeeID := range employeeIDs {
		if employeeID == "" {
			return nil, ErrMissingEmployee
		}
		slots, err := e.suggestForEmployee(ctx, employeeID, durationMinutes, effStart, effEnd, settings)
		if err != nil {
			return nil, err
		}
		suggestions[employeeID] = slots
	}
	return suggestions, nil
}

// effectiveWindow clamps the requested window to the advance-booking policy.
func (e *Engine) effectiveWindow(window Window, settings Settings) (time.Time, time.Time) {
	now := e.now()
	earliest := now.Add(settings.MinAdvance)
	start := window.Start
	if start.Before(earliest) {
		start = earliest
	}
	end := window.End
	if settings.MaxAdvanceDays > 0 {
		latest := now.AddDate(0, 0, settings.MaxAdvanceDays)
		if end.IsZero() || end.After(latest) {
			end = latest
		}
	}
	return start, end
}

func (e *Engine) suggestForEmployee(ctx context.Context, employeeID string, durationMinutes int, from, to time.Time, settings Settings) ([]TimeSlot, error) {
	if !from.Before(to) {
		return []TimeSlot{}, nil
	}

	existing, err := e.bookings.BookingsForEmployee(ctx, employeeID, from.Add(-ReloadMargin), to.Add(ReloadMargin))
	if err != nil {
		return nil, err
	}

	capacityHours, err := e.capacityFor(ctx, employeeID, settings)
	if err != nil {
		return nil, err
	}

	duration := time.Duration(durationMinutes) * time.Minute
	slots := make([]TimeSlot, 0)

	for start := RoundUpToIncrement(from); start.Before(to); start = start.Add(SlotIncrement) {
		end := start.Add(duration)
		if end.After(to) {
			break
		}
		if !settings.WithinBusinessHours(start, end) {
			continue
		}
		if exceedsDailyCapacity(existing, start, durationMinutes, capacityHours) {
			continue
		}
		if HasConflict(existing, start, end, settings) {
			continue
		}
		slots = append(slots, TimeSlot{Start: start, End: end, EmployeeID: employeeID})
	}

	return slots, nil
}

// RoundUpToIncrement advances t to the next quarter-hour boundary, stripping
// seconds. A time already on a boundary is returned as-is.
func RoundUpToIncrement(t time.Time) time.Time {
	t = t.Truncate(time.Minute)
	rem := t.Minute() % 15
	if rem == 0 {
		return t
	}
	return t.Add(time.Duration(15-rem) * time.Minute)
}

// capacityFor resolves the daily capacity applied to an employee's search.
// An individual capacity on the employee record wins over the company-wide
// setting.
func (e *Engine) capacityFor(ctx context.Context, employeeID string, settings Settings) (float64, error) {
	if e.capacities == nil {
		return settings.CapacityHoursPerDay, nil
	}
	own, err := e.capacities.CapacityForEmployee(ctx, employeeID)
	if err != nil {
		return 0, err
	}
	if own > 0 {
		return own, nil
	}
	return settings.CapacityHoursPerDay, nil
}

// exceedsDailyCapacity checks the per-day capacity guard: the employee's
// already booked minutes on the slot's day plus the new job may not exceed
// the daily capacity.
func exceedsDailyCapacity(existing []Booking, slotStart time.Time, durationMinutes int, capacityHours float64) bool {
	if capacityHours <= 0 {
		return false
	}
	y, m, d := slotStart.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, slotStart.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var booked time.Duration
	for _, b := range existing {
		s := maxTime(b.Start, dayStart)
		e := minTime(b.End, dayEnd)
		if e.After(s) {
			booked += e.Sub(s)
		}
	}
	total := booked + time.Duration(durationMinutes)*time.Minute
	return total > time.Duration(capacityHours*float64(time.Hour))
}

// FlattenEarliest merges per-employee suggestions into one list ordered by
// earliest start. Callers that do not care about resource identity (backlog
// smart assign) pick the head.
func FlattenEarliest(suggestions map[string][]TimeSlot) []TimeSlot {
	var all []TimeSlot
	for _, slots := range suggestions {
		all = append(all, slots...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Start.Equal(all[j].Start) {
			return all[i].EmployeeID < all[j].EmployeeID
		}
		return all[i].Start.Before(all[j].Start)
	})
	return all
}

// WeekendOnly applies the weekend customer preference as a post-filter. When
// the company does not offer weekend work the caller gets
// ErrWeekendUnsupported instead of an empty list indistinguishable from
// "fully booked".
func WeekendOnly(slots []TimeSlot, settings Settings) ([]TimeSlot, error) {
	if !settings.NightsWeekends {
		return nil, ErrWeekendUnsupported
	}
	filtered := make([]TimeSlot, 0, len(slots))
	for _, s := range slots {
		if isWeekend(s.Start.Weekday()) {
			filtered = append(filtered, s)
		}
	}
	return filtered, nil
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
