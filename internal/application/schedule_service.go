package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tradesmatepro/fieldsched/internal/persistence"
	"github.com/tradesmatepro/fieldsched/internal/scheduler"
)

// ScheduleService orchestrates validation, conflict gating, and persistence
// for calendar events.
type ScheduleService struct {
	events      persistence.EventRepository
	store       persistence.SchedulingStore
	workOrders  persistence.WorkOrderRepository
	employees   persistence.EmployeeRepository
	settings    persistence.SettingsRepository
	bookings    scheduler.BookingSource
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewScheduleService wires dependencies for event operations.
func NewScheduleService(events persistence.EventRepository, store persistence.SchedulingStore, workOrders persistence.WorkOrderRepository, employees persistence.EmployeeRepository, settings persistence.SettingsRepository, bookings scheduler.BookingSource, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ScheduleService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ScheduleService{
		events:      events,
		store:       store,
		workOrders:  workOrders,
		employees:   employees,
		settings:    settings,
		bookings:    bookings,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *ScheduleService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ScheduleService", operation, attrs...)
}

// CreateEvent validates the request, re-checks conflicts against a fresh
// booking load, and commits the event. Events referencing a work order go
// through the dual-write path so the order's scheduling fields stay in sync.
func (s *ScheduleService) CreateEvent(ctx context.Context, params CreateEventParams) (persistence.ScheduleEvent, error) {
	if s == nil {
		return persistence.ScheduleEvent{}, fmt.Errorf("ScheduleService is nil")
	}
	input := params.Input
	principal := params.Principal

	if input.EmployeeID == "" {
		input.EmployeeID = principal.UserID
	}
	if input.EmployeeID != principal.UserID && !principal.CanDispatch() {
		return persistence.ScheduleEvent{}, ErrUnauthorized
	}

	logger := s.loggerWith(ctx, "CreateEvent",
		"employee_id", input.EmployeeID,
	)

	vErr := &ValidationError{}
	validateEventCore(input, vErr)
	if vErr.HasErrors() {
		return persistence.ScheduleEvent{}, vErr
	}

	if err := s.ensureEmployeeExists(ctx, input.EmployeeID); err != nil {
		return persistence.ScheduleEvent{}, err
	}
	if input.WorkOrderID != nil {
		if _, err := s.workOrders.GetWorkOrder(ctx, *input.WorkOrderID); err != nil {
			if isNotFoundError(err) {
				vErr.add("work_order_id", "work order does not exist")
				return persistence.ScheduleEvent{}, vErr
			}
			return persistence.ScheduleEvent{}, err
		}
	}

	settings, err := loadSettings(ctx, s.settings)
	if err != nil {
		return persistence.ScheduleEvent{}, err
	}

	conflicted, conflicts, err := scheduler.FreshConflictCheck(ctx, s.bookings, input.EmployeeID, input.Start, input.End, settings, derefOrEmpty(input.WorkOrderID))
	if err != nil {
		return persistence.ScheduleEvent{}, err
	}
	if conflicted {
		logger.InfoContext(ctx, "event rejected by conflict check",
			"conflicts", len(conflicts),
		)
		return persistence.ScheduleEvent{}, scheduler.ErrConflict
	}

	now := s.now()
	event := persistence.ScheduleEvent{
		ID:          s.idGenerator(),
		WorkOrderID: input.WorkOrderID,
		CustomerID:  input.CustomerID,
		EmployeeID:  input.EmployeeID,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Start:       input.Start,
		End:         input.End,
		Status:      persistence.EventStatusScheduled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	persisted, err := s.store.CommitScheduledEvent(ctx, event)
	if err != nil {
		return persistence.ScheduleEvent{}, mapRepoError(err)
	}
	logger.With("event_id", persisted.ID).InfoContext(ctx, "event created")
	return persisted, nil
}

// GetEvent loads a single event.
func (s *ScheduleService) GetEvent(ctx context.Context, id string) (persistence.ScheduleEvent, error) {
	if s == nil || s.events == nil {
		return persistence.ScheduleEvent{}, fmt.Errorf("event repository not configured")
	}
	event, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return persistence.ScheduleEvent{}, mapRepoError(err)
	}
	return event, nil
}

// UpdateEvent applies validation and authorization before updating an event.
// Interval changes pass the same fresh conflict gate as creation, excluding
// the event's own booking from the comparison set.
func (s *ScheduleService) UpdateEvent(ctx context.Context, params UpdateEventParams) (persistence.ScheduleEvent, error) {
	if s == nil || s.events == nil {
		return persistence.ScheduleEvent{}, fmt.Errorf("event repository not configured")
	}

	existing, err := s.events.GetEvent(ctx, params.EventID)
	if err != nil {
		return persistence.ScheduleEvent{}, mapRepoError(err)
	}

	principal := params.Principal
	input := params.Input

	if existing.EmployeeID != principal.UserID && !principal.CanDispatch() {
		return persistence.ScheduleEvent{}, ErrUnauthorized
	}

	if input.EmployeeID == "" {
		input.EmployeeID = existing.EmployeeID
	}

	vErr := &ValidationError{}
	validateEventCore(input, vErr)
	if vErr.HasErrors() {
		return persistence.ScheduleEvent{}, vErr
	}

	if input.EmployeeID != existing.EmployeeID {
		if err := s.ensureEmployeeExists(ctx, input.EmployeeID); err != nil {
			return persistence.ScheduleEvent{}, err
		}
	}

	intervalChanged := !existing.Start.Equal(input.Start) || !existing.End.Equal(input.End) || existing.EmployeeID != input.EmployeeID
	if intervalChanged {
		settings, err := loadSettings(ctx, s.settings)
		if err != nil {
			return persistence.ScheduleEvent{}, err
		}
		conflicted, _, err := scheduler.FreshConflictCheck(ctx, s.bookings, input.EmployeeID, input.Start, input.End, settings, existing.ID, derefOrEmpty(existing.WorkOrderID))
		if err != nil {
			return persistence.ScheduleEvent{}, err
		}
		if conflicted {
			return persistence.ScheduleEvent{}, scheduler.ErrConflict
		}
	}

	updated := existing
	updated.EmployeeID = input.EmployeeID
	updated.Title = strings.TrimSpace(input.Title)
	updated.Description = input.Description
	updated.Start = input.Start
	updated.End = input.End
	updated.UpdatedAt = s.now()

	persisted, err := s.events.UpdateEvent(ctx, updated)
	if err != nil {
		return persistence.ScheduleEvent{}, mapRepoError(err)
	}

	// Keep the linked work order's scheduling fields in step when the
	// interval moved.
	if intervalChanged && existing.WorkOrderID != nil && s.workOrders != nil {
		start := persisted.Start
		end := persisted.End
		employeeID := persisted.EmployeeID
		if _, err := s.workOrders.UpdateScheduling(ctx, *existing.WorkOrderID, &start, &end, &employeeID); err != nil && !isNotFoundError(err) {
			return persistence.ScheduleEvent{}, mapRepoError(err)
		}
	}

	return persisted, nil
}

// DeleteEvent ensures authorization before removing an event. Deleting the
// event of a scheduled work order returns the order to the backlog.
func (s *ScheduleService) DeleteEvent(ctx context.Context, principal Principal, eventID string) error {
	if s == nil || s.events == nil {
		return fmt.Errorf("event repository not configured")
	}

	existing, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return mapRepoError(err)
	}
	if existing.EmployeeID != principal.UserID && !principal.CanDispatch() {
		return ErrUnauthorized
	}

	if err := s.events.DeleteEvent(ctx, eventID); err != nil {
		return mapRepoError(err)
	}

	if existing.WorkOrderID != nil && s.workOrders != nil {
		if _, err := s.workOrders.UpdateScheduling(ctx, *existing.WorkOrderID, nil, nil, nil); err != nil && !isNotFoundError(err) {
			return mapRepoError(err)
		}
	}

	return nil
}

// ListEvents enumerates events overlapping the requested calendar range.
func (s *ScheduleService) ListEvents(ctx context.Context, params ListEventsParams) ([]persistence.ScheduleEvent, error) {
	if s == nil || s.events == nil {
		return nil, fmt.Errorf("event repository not configured")
	}

	filter := persistence.EventFilter{
		EmployeeID:   params.EmployeeID,
		StartsBefore: params.To,
		EndsAfter:    params.From,
	}
	events, err := s.events.ListEvents(ctx, filter)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return events, nil
}

// Lanes projects the events of a calendar range onto employee resource lanes.
// Crew bookings stay singular in storage; every secondary participant gets a
// clone row here.
func (s *ScheduleService) Lanes(ctx context.Context, params ListEventsParams) (CalendarLanes, error) {
	events, err := s.ListEvents(ctx, params)
	if err != nil {
		return CalendarLanes{}, err
	}

	var lanes []scheduler.LaneEvent
	for _, e := range events {
		booking := scheduler.Booking{
			ID:         e.ID,
			EmployeeID: e.EmployeeID,
			Title:      e.Title,
			Start:      e.Start,
			End:        e.End,
		}
		var crewIDs []string
		if e.WorkOrderID != nil {
			booking.WorkOrderID = *e.WorkOrderID
			if s.workOrders != nil {
				entries, err := s.workOrders.ListLaborEntries(ctx, *e.WorkOrderID)
				if err != nil && !isNotFoundError(err) {
					return CalendarLanes{}, err
				}
				for _, entry := range entries {
					crewIDs = append(crewIDs, entry.EmployeeID)
				}
			}
		}
		lanes = append(lanes, scheduler.ProjectLanes(booking, crewIDs)...)
	}
	return CalendarLanes{Lanes: lanes}, nil
}

func (s *ScheduleService) ensureEmployeeExists(ctx context.Context, id string) error {
	if s.employees == nil {
		return nil
	}
	employee, err := s.employees.GetEmployee(ctx, id)
	if err != nil {
		if isNotFoundError(err) {
			vErr := &ValidationError{}
			vErr.add("employee_id", "employee does not exist")
			return vErr
		}
		return err
	}
	if !employee.Schedulable || employee.Disabled {
		vErr := &ValidationError{}
		vErr.add("employee_id", "employee is not schedulable")
		return vErr
	}
	return nil
}

func validateEventCore(input EventInput, vErr *ValidationError) {
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if input.EmployeeID == "" {
		vErr.add("employee_id", "employee is required")
	}
	if input.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if input.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if !input.Start.IsZero() && !input.End.IsZero() && !input.Start.Before(input.End) {
		vErr.add("time", "start must be before end")
	}
}

func derefOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("time", "start must be before end")
		return vErr
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("references", "related records are missing")
		return vErr
	}
	return err
}

func isNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}
