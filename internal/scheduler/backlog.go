package scheduler

import (
	"context"
	"errors"
	"fmt"
)

// BacklogAssigner turns unscheduled work orders into committed bookings by
// searching availability across every schedulable employee and delegating the
// commit to the crew scheduler.
type BacklogAssigner struct {
	engine    *Engine
	crew      *CrewScheduler
	employees EmployeeDirectory
}

// NewBacklogAssigner wires a backlog assigner.
func NewBacklogAssigner(engine *Engine, crew *CrewScheduler, employees EmployeeDirectory) *BacklogAssigner {
	return &BacklogAssigner{engine: engine, crew: crew, employees: employees}
}

// AutoAssign finds the globally earliest open slot for the work order and
// commits it. ErrNoSlotFound is the expected outcome of an exhausted window;
// the caller surfaces it and may widen the search.
func (a *BacklogAssigner) AutoAssign(ctx context.Context, order WorkOrderRef, window Window, settings Settings) (CrewCommit, error) {
	durationMinutes := order.DurationMinutes()
	if durationMinutes <= 0 {
		return CrewCommit{}, ErrInvalidDuration
	}
	crewSize := order.CrewSize
	if crewSize < 1 {
		crewSize = 1
	}

	candidates, err := a.employees.SchedulableEmployees(ctx)
	if err != nil {
		return CrewCommit{}, fmt.Errorf("list schedulable employees: %w", err)
	}
	if len(candidates) == 0 {
		return CrewCommit{}, ErrNoSlotFound
	}
	if len(candidates) < crewSize {
		return CrewCommit{}, ErrNotEnoughCrew
	}

	employeeIDs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		employeeIDs = append(employeeIDs, c.ID)
	}

	suggestions, err := a.engine.Suggest(ctx, employeeIDs, durationMinutes, window, settings)
	if err != nil {
		return CrewCommit{}, err
	}

	// Resource identity does not matter here: flatten and take the earliest
	// slot across all employees. AssignCrew re-validates with a fresh booking
	// set before writing, so a slot gone stale surfaces as ErrConflict and
	// the next candidate is tried.
	for _, slot := range FlattenEarliest(suggestions) {
		commit, err := a.crew.AssignCrew(ctx, slot.EmployeeID, crewSize, slot, order, settings)
		if err == nil {
			return commit, nil
		}
		if errors.Is(err, ErrConflict) || errors.Is(err, ErrNotEnoughCrew) {
			continue
		}
		return CrewCommit{}, err
	}

	return CrewCommit{}, ErrNoSlotFound
}
