package scheduler

import (
	"context"
	"fmt"
	"time"
)

// RescheduleState labels the states of a drag/resize gesture.
type RescheduleState string

const (
	// StateCommitted means the new interval was persisted.
	StateCommitted RescheduleState = "committed"
	// StateConflictPrompt means the proposed interval conflicts and the caller
	// should ask whether to jump to the offered slot.
	StateConflictPrompt RescheduleState = "conflict_prompt"
	// StateReverted means the gesture was abandoned; the store is untouched
	// and the UI must restore the pre-gesture interval.
	StateReverted RescheduleState = "reverted"
)

// RescheduleStore is the adapter slice the controller commits through. The
// interval update is the single atomic step per transition.
type RescheduleStore interface {
	UpdateBookingInterval(ctx context.Context, bookingID string, start, end time.Time) (Booking, error)
}

// Proposal is the input of one reschedule transition: the booking being
// moved, the interval the user dropped or resized it to, and how the caller
// wants conflicts handled.
type Proposal struct {
	Booking Booking
	Start   time.Time
	End     time.Time

	// LaneEmployeeID names the specific resource lane being moved in crew or
	// resource views; it selects the buffer-aware fresh check. Empty means a
	// non-resource view: conflict is evaluated coarsely against Loaded.
	LaneEmployeeID string
	// Loaded is the in-memory event list for the visible range, used by the
	// coarse check only.
	Loaded []Booking

	// AcceptNext answers the conflict prompt: commit the next available slot
	// instead of the requested interval.
	AcceptNext bool
	// Decline abandons the gesture outright.
	Decline bool
}

// Outcome reports the terminal or intermediate state of a transition.
type Outcome struct {
	State RescheduleState
	// Committed holds the persisted interval when State is StateCommitted.
	Committed *TimeSlot
	// NextSlot is the alternative offered with StateConflictPrompt.
	NextSlot *TimeSlot
	// Conflicts explains what blocked the requested interval.
	Conflicts []Conflict
}

// Rescheduler validates interactive move/resize gestures and either commits
// the new interval, proposes the next open slot, or reverts.
type Rescheduler struct {
	bookings BookingSource
	engine   *Engine
	store    RescheduleStore
}

// NewRescheduler wires a reschedule controller.
func NewRescheduler(bookings BookingSource, engine *Engine, store RescheduleStore) *Rescheduler {
	return &Rescheduler{bookings: bookings, engine: engine, store: store}
}

// Move runs one state-machine transition for a drag or resize gesture.
// Validation failures and explicit declines both map to the no-op Reverted
// state; only a successful commit writes to the store.
func (r *Rescheduler) Move(ctx context.Context, p Proposal, settings Settings) (Outcome, error) {
	if p.Decline {
		return Outcome{State: StateReverted}, nil
	}
	if !p.Start.Before(p.End) {
		return Outcome{State: StateReverted}, ErrInvalidDuration
	}

	conflicts, err := r.evaluate(ctx, p, settings)
	if err != nil {
		return Outcome{State: StateReverted}, err
	}

	if len(conflicts) == 0 {
		return r.commit(ctx, p.Booking.ID, p.Start, p.End)
	}

	next, err := r.nextAvailable(ctx, p, settings)
	if err != nil {
		return Outcome{State: StateReverted}, err
	}
	if next == nil {
		// No alternate slot exists; nothing to offer.
		return Outcome{State: StateReverted, Conflicts: conflicts}, nil
	}

	if !p.AcceptNext {
		return Outcome{State: StateConflictPrompt, NextSlot: next, Conflicts: conflicts}, nil
	}
	return r.commit(ctx, p.Booking.ID, next.Start, next.End)
}

func (r *Rescheduler) evaluate(ctx context.Context, p Proposal, settings Settings) ([]Conflict, error) {
	if p.LaneEmployeeID != "" {
		_, conflicts, err := FreshConflictCheck(ctx, r.bookings, p.LaneEmployeeID, p.Start, p.End, settings, p.Booking.ID, p.Booking.WorkOrderID)
		return conflicts, err
	}

	// Non-resource views accept coarse overlap precision against the events
	// already loaded for the visible range.
	others := make([]Booking, 0, len(p.Loaded))
	for _, b := range p.Loaded {
		if b.ID == p.Booking.ID {
			continue
		}
		if b.EmployeeID != p.Booking.EmployeeID {
			continue
		}
		others = append(others, b)
	}
	if OverlapsCoarse(others, p.Start, p.End) {
		return []Conflict{{EmployeeID: p.Booking.EmployeeID, Start: p.Start, End: p.End}}, nil
	}
	return nil, nil
}

func (r *Rescheduler) nextAvailable(ctx context.Context, p Proposal, settings Settings) (*TimeSlot, error) {
	employeeID := p.LaneEmployeeID
	if employeeID == "" {
		employeeID = p.Booking.EmployeeID
	}
	// Round a ragged gesture up to whole minutes so the replacement slot
	// never comes out shorter than what was asked for.
	durationMinutes := int((p.End.Sub(p.Start) + time.Minute - 1) / time.Minute)
	if durationMinutes < int(SlotIncrement.Minutes()) {
		durationMinutes = int(SlotIncrement.Minutes())
	}

	window := Window{Start: p.Start, End: p.Start.AddDate(0, 0, 7)}
	suggestions, err := r.engine.Suggest(ctx, []string{employeeID}, durationMinutes, window, settings)
	if err != nil {
		return nil, err
	}
	slots := suggestions[employeeID]
	if len(slots) == 0 {
		return nil, nil
	}
	return &slots[0], nil
}

func (r *Rescheduler) commit(ctx context.Context, bookingID string, start, end time.Time) (Outcome, error) {
	updated, err := r.store.UpdateBookingInterval(ctx, bookingID, start, end)
	if err != nil {
		// An adapter failure reverts the in-flight gesture; nothing was
		// half-applied because the update is a single call.
		return Outcome{State: StateReverted}, fmt.Errorf("commit reschedule: %w", err)
	}
	return Outcome{
		State:     StateCommitted,
		Committed: &TimeSlot{Start: updated.Start, End: updated.End, EmployeeID: updated.EmployeeID},
	}, nil
}
