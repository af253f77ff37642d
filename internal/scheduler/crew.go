package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Employee is the resource view the scheduling core operates on. Records are
// immutable during a scheduling operation; HR workflows mutate them elsewhere.
type Employee struct {
	ID                  string
	DisplayName         string
	Role                string
	Schedulable         bool
	CapacityHoursPerDay float64
}

// EmployeeDirectory lists the employees available for assignment.
type EmployeeDirectory interface {
	SchedulableEmployees(ctx context.Context) ([]Employee, error)
}

// WorkOrderRef carries the scheduling-relevant fields of the work order being
// committed.
type WorkOrderRef struct {
	ID                       string
	Title                    string
	CustomerID               string
	EstimatedDurationMinutes int
	CrewSize                 int
	HoursPerDay              float64
}

// DurationMinutes derives the booking duration from the labor summary,
// falling back to the estimated duration.
func (w WorkOrderRef) DurationMinutes() int {
	if w.HoursPerDay > 0 {
		return int(w.HoursPerDay * 60)
	}
	if w.EstimatedDurationMinutes > 0 {
		return w.EstimatedDurationMinutes
	}
	return 0
}

// BookingCommit is the single atomic write of a crew assignment: the anchor
// event plus the work order's scheduling fields.
type BookingCommit struct {
	WorkOrderID string
	CustomerID  string
	EmployeeID  string
	Title       string
	Start       time.Time
	End         time.Time
}

// LaborEntry records one participant's share of the committed work order.
type LaborEntry struct {
	WorkOrderID string
	EmployeeID  string
	Hours       float64
}

// CommitStore is the slice of the event store adapter the crew scheduler
// needs. CommitBooking is the one atomic step; labor entries are independent
// follow-up writes.
type CommitStore interface {
	CommitBooking(ctx context.Context, commit BookingCommit) (Booking, error)
	AddLaborEntry(ctx context.Context, entry LaborEntry) error
}

// CrewCommit is the outcome of a crew assignment.
type CrewCommit struct {
	Anchor Booking
	// CrewIDs lists every participant, anchor first.
	CrewIDs []string
	// Warnings records secondary labor writes that failed after the anchor
	// booking stood. The booking is authoritative; these are surfaced
	// non-blockingly.
	Warnings []string
}

// CrewScheduler coordinates multi-resource bookings: one anchor interval plus
// N participating employees, each validated independently before commit.
type CrewScheduler struct {
	bookings  BookingSource
	employees EmployeeDirectory
	store     CommitStore
	logger    *slog.Logger
}

// NewCrewScheduler wires a crew scheduler.
func NewCrewScheduler(bookings BookingSource, employees EmployeeDirectory, store CommitStore, logger *slog.Logger) *CrewScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CrewScheduler{bookings: bookings, employees: employees, store: store, logger: logger}
}

// AssignCrew books the slot for the anchor employee and, when crewSize > 1,
// selects additional participants in first-available order. The anchor event
// and work order dual-write is the single atomic step; per-participant labor
// entries are best-effort by design given the adapter's lack of multi-row
// transactions across calls.
func (c *CrewScheduler) AssignCrew(ctx context.Context, anchorEmployeeID string, crewSize int, slot TimeSlot, order WorkOrderRef, settings Settings) (CrewCommit, error) {
	if anchorEmployeeID == "" {
		return CrewCommit{}, ErrMissingEmployee
	}
	if !slot.Start.Before(slot.End) {
		return CrewCommit{}, ErrInvalidDuration
	}
	if crewSize < 1 {
		crewSize = 1
	}

	// Staleness guard: the anchor check runs against a booking set fetched
	// after the triggering action, never against session-old data.
	conflicted, _, err := FreshConflictCheck(ctx, c.bookings, anchorEmployeeID, slot.Start, slot.End, settings, order.ID)
	if err != nil {
		return CrewCommit{}, err
	}
	if conflicted {
		return CrewCommit{}, ErrConflict
	}

	crewIDs := []string{anchorEmployeeID}
	if crewSize > 1 {
		extra, err := c.pickAdditionalCrew(ctx, anchorEmployeeID, crewSize-1, slot, order, settings)
		if err != nil {
			return CrewCommit{}, err
		}
		crewIDs = append(crewIDs, extra...)
	}

	anchor, err := c.store.CommitBooking(ctx, BookingCommit{
		WorkOrderID: order.ID,
		CustomerID:  order.CustomerID,
		EmployeeID:  anchorEmployeeID,
		Title:       order.Title,
		Start:       slot.Start,
		End:         slot.End,
	})
	if err != nil {
		return CrewCommit{}, fmt.Errorf("commit anchor booking: %w", err)
	}

	commit := CrewCommit{Anchor: anchor, CrewIDs: crewIDs}

	hours := order.HoursPerDay
	if hours <= 0 {
		hours = slot.End.Sub(slot.Start).Hours()
	}
	for _, employeeID := range crewIDs {
		entry := LaborEntry{WorkOrderID: order.ID, EmployeeID: employeeID, Hours: hours}
		if err := c.store.AddLaborEntry(ctx, entry); err != nil {
			// The anchor booking stands; a failed labor record does not roll
			// it back.
			c.logger.WarnContext(ctx, "labor entry write failed after anchor commit",
				"work_order_id", order.ID,
				"employee_id", employeeID,
				"error", err,
			)
			commit.Warnings = append(commit.Warnings, fmt.Sprintf("labor record for employee %s was not saved", employeeID))
		}
	}

	return commit, nil
}

// pickAdditionalCrew selects n more employees in simple first-available
// order. No optimization beyond "first available": each candidate passes a
// fresh conflict check for the slot or is skipped.
func (c *CrewScheduler) pickAdditionalCrew(ctx context.Context, anchorEmployeeID string, n int, slot TimeSlot, order WorkOrderRef, settings Settings) ([]string, error) {
	candidates, err := c.employees.SchedulableEmployees(ctx)
	if err != nil {
		return nil, err
	}

	picked := make([]string, 0, n)
	for _, candidate := range candidates {
		if len(picked) == n {
			break
		}
		if candidate.ID == anchorEmployeeID || !candidate.Schedulable {
			continue
		}
		conflicted, _, err := FreshConflictCheck(ctx, c.bookings, candidate.ID, slot.Start, slot.End, settings, order.ID)
		if err != nil {
			return nil, err
		}
		if conflicted {
			continue
		}
		picked = append(picked, candidate.ID)
	}

	if len(picked) < n {
		return nil, ErrNotEnoughCrew
	}
	return picked, nil
}

// LaneEvent is one display row of a logical booking projected onto an
// employee lane in the calendar's resource view.
type LaneEvent struct {
	Booking
	LaneEmployeeID string
	Clone          bool
}

// ProjectLanes reconstructs the virtual clones of one logical booking across
// its crew's resource lanes at read time. The stored record stays singular;
// rows for secondary participants are marked as clones.
func ProjectLanes(b Booking, crewIDs []string) []LaneEvent {
	lanes := []LaneEvent{{Booking: b, LaneEmployeeID: b.EmployeeID}}
	for _, id := range crewIDs {
		if id == "" || id == b.EmployeeID {
			continue
		}
		lanes = append(lanes, LaneEvent{Booking: b, LaneEmployeeID: id, Clone: true})
	}
	return lanes
}
