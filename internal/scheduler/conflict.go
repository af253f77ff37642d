package scheduler

import (
	"context"
	"time"
)

// Booking is an employee's existing commitment on the calendar, hydrated from
// schedule events and scheduled work orders alike.
type Booking struct {
	ID          string
	WorkOrderID string
	EmployeeID  string
	Title       string
	Start       time.Time
	End         time.Time
}

// BookingSource loads an employee's commitments overlapping a window. The
// window an implementation receives already includes the reload margin; the
// source must return every booking whose interval intersects it.
type BookingSource interface {
	BookingsForEmployee(ctx context.Context, employeeID string, from, to time.Time) ([]Booking, error)
}

// ReloadMargin widens booking loads around a proposed interval so buffer rules
// at the edges see adjacent-day spillover.
const ReloadMargin = 8 * time.Hour

// Conflict details an overlapping commitment that callers can present in
// domain terms ("technician already booked").
type Conflict struct {
	WithBookingID string
	WorkOrderID   string
	EmployeeID    string
	Title         string
	Start         time.Time
	End           time.Time
}

// HasConflict reports whether [start, end) collides with any existing booking
// once the policy buffers are applied to both sides of each booking.
func HasConflict(existing []Booking, start, end time.Time, settings Settings) bool {
	return len(DetectConflicts(existing, start, end, settings)) > 0
}

// DetectConflicts returns every existing booking whose buffered interval
// overlaps the proposed one. A degenerate proposal (start >= end) conflicts
// with itself and is reported against a zero-value Conflict.
func DetectConflicts(existing []Booking, start, end time.Time, settings Settings) []Conflict {
	if !start.Before(end) {
		return []Conflict{{Start: start, End: end}}
	}

	var conflicts []Conflict
	for _, b := range existing {
		bufferedStart := b.Start.Add(-settings.BufferBefore)
		bufferedEnd := b.End.Add(settings.BufferAfter)
		if start.Before(bufferedEnd) && bufferedStart.Before(end) {
			conflicts = append(conflicts, Conflict{
				WithBookingID: b.ID,
				WorkOrderID:   b.WorkOrderID,
				EmployeeID:    b.EmployeeID,
				Title:         b.Title,
				Start:         b.Start,
				End:           b.End,
			})
		}
	}
	return conflicts
}

// OverlapsCoarse is the buffer-free overlap check used by calendar views that
// operate on the in-memory event list instead of a fresh reload.
func OverlapsCoarse(existing []Booking, start, end time.Time) bool {
	for _, b := range existing {
		if start.Before(b.End) && b.Start.Before(end) {
			return true
		}
	}
	return false
}

// FreshConflictCheck reloads the employee's bookings with the standard margin
// and evaluates the buffered predicate. Every commit path calls this
// immediately before writing; a slot computed earlier can go stale between
// suggestion and commit.
func FreshConflictCheck(ctx context.Context, source BookingSource, employeeID string, start, end time.Time, settings Settings, excludeBookingIDs ...string) (bool, []Conflict, error) {
	existing, err := source.BookingsForEmployee(ctx, employeeID, start.Add(-ReloadMargin), end.Add(ReloadMargin))
	if err != nil {
		return false, nil, err
	}
	existing = excludeBookings(existing, excludeBookingIDs)
	conflicts := DetectConflicts(existing, start, end, settings)
	return len(conflicts) > 0, conflicts, nil
}

func excludeBookings(bookings []Booking, ids []string) []Booking {
	if len(ids) == 0 {
		return bookings
	}
	skip := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			skip[id] = struct{}{}
		}
	}
	out := bookings[:0]
	for _, b := range bookings {
		if _, ok := skip[b.ID]; ok {
			continue
		}
		if b.WorkOrderID != "" {
			if _, ok := skip[b.WorkOrderID]; ok {
				continue
			}
		}
		out = append(out, b)
	}
	return out
}
