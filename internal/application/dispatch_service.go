package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tradesmatepro/fieldsched/internal/persistence"
	"github.com/tradesmatepro/fieldsched/internal/scheduler"
)

// DispatchService exposes the dispatcher workflows: availability search,
// drag/resize rescheduling, and backlog assignment.
type DispatchService struct {
	engine      *scheduler.Engine
	crew        *scheduler.CrewScheduler
	assigner    *scheduler.BacklogAssigner
	rescheduler *scheduler.Rescheduler
	events      persistence.EventRepository
	workOrders  persistence.WorkOrderRepository
	settings    persistence.SettingsRepository
	suggestions *suggestionCache
	now         func() time.Time
	logger      *slog.Logger
}

// NewDispatchService wires dependencies for dispatch operations.
func NewDispatchService(engine *scheduler.Engine, crew *scheduler.CrewScheduler, assigner *scheduler.BacklogAssigner, rescheduler *scheduler.Rescheduler, events persistence.EventRepository, workOrders persistence.WorkOrderRepository, settings persistence.SettingsRepository, now func() time.Time, logger *slog.Logger) *DispatchService {
	if now == nil {
		now = time.Now
	}
	return &DispatchService{
		engine:      engine,
		crew:        crew,
		assigner:    assigner,
		rescheduler: rescheduler,
		events:      events,
		workOrders:  workOrders,
		settings:    settings,
		suggestions: newSuggestionCache(30*time.Second, 128, now),
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *DispatchService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "DispatchService", operation, attrs...)
}

// Suggest runs the availability search for the requested employees and
// window. With WeekendsOnly set the result is filtered to weekend slots;
// companies that do not offer weekend work get ErrWeekendUnsupported so the
// caller can distinguish policy from a fully booked calendar.
func (s *DispatchService) Suggest(ctx context.Context, params SuggestParams) (SuggestResult, error) {
	if s == nil || s.engine == nil {
		return SuggestResult{}, fmt.Errorf("availability engine not configured")
	}

	logger := s.loggerWith(ctx, "Suggest",
		"employees", len(params.EmployeeIDs),
		"duration_minutes", params.DurationMinutes,
	)

	settings, err := loadSettings(ctx, s.settings)
	if err != nil {
		return SuggestResult{}, err
	}
	if params.WeekendsOnly && !settings.NightsWeekends {
		return SuggestResult{}, scheduler.ErrWeekendUnsupported
	}

	key := buildSuggestionCacheKey(params)
	if slots, ok := s.suggestions.Get(key); ok {
		logger.DebugContext(ctx, "suggestion cache hit")
		return resultFromSlots(slots), nil
	}

	window := scheduler.Window{Start: params.WindowStart, End: params.WindowEnd}
	perEmployee, err := s.engine.Suggest(ctx, params.EmployeeIDs, params.DurationMinutes, window, settings)
	if err != nil {
		return SuggestResult{}, err
	}

	earliest := scheduler.FlattenEarliest(perEmployee)
	if params.WeekendsOnly {
		earliest, err = scheduler.WeekendOnly(earliest, settings)
		if err != nil {
			return SuggestResult{}, err
		}
	}

	s.suggestions.Store(key, earliest)
	logger.InfoContext(ctx, "availability computed", "slots", len(earliest))
	return resultFromSlots(earliest), nil
}

func resultFromSlots(slots []scheduler.TimeSlot) SuggestResult {
	perEmployee := make(map[string][]scheduler.TimeSlot)
	for _, slot := range slots {
		perEmployee[slot.EmployeeID] = append(perEmployee[slot.EmployeeID], slot)
	}
	return SuggestResult{PerEmployee: perEmployee, Earliest: slots}
}

// Reschedule runs one transition of the drag/resize state machine for an
// event. A commit in any branch invalidates cached suggestions.
func (s *DispatchService) Reschedule(ctx context.Context, params RescheduleParams) (scheduler.Outcome, error) {
	if s == nil || s.rescheduler == nil {
		return scheduler.Outcome{}, fmt.Errorf("rescheduler not configured")
	}
	if s.events == nil {
		return scheduler.Outcome{}, fmt.Errorf("event repository not configured")
	}

	event, err := s.events.GetEvent(ctx, params.EventID)
	if err != nil {
		return scheduler.Outcome{}, mapRepoError(err)
	}
	if event.EmployeeID != params.Principal.UserID && !params.Principal.CanDispatch() {
		return scheduler.Outcome{}, ErrUnauthorized
	}

	settings, err := loadSettings(ctx, s.settings)
	if err != nil {
		return scheduler.Outcome{}, err
	}

	booking := scheduler.Booking{
		ID:         event.ID,
		EmployeeID: event.EmployeeID,
		Title:      event.Title,
		Start:      event.Start,
		End:        event.End,
	}
	if event.WorkOrderID != nil {
		booking.WorkOrderID = *event.WorkOrderID
	}

	proposal := scheduler.Proposal{
		Booking:        booking,
		Start:          params.Start,
		End:            params.End,
		LaneEmployeeID: params.LaneEmployeeID,
		AcceptNext:     params.AcceptNext,
		Decline:        params.Decline,
	}
	if params.LaneEmployeeID == "" {
		loaded, err := s.loadedBookings(ctx, event.EmployeeID, params.Start, params.End)
		if err != nil {
			return scheduler.Outcome{}, err
		}
		proposal.Loaded = loaded
	}

	outcome, err := s.rescheduler.Move(ctx, proposal, settings)
	if err != nil {
		return outcome, err
	}
	if outcome.State == scheduler.StateCommitted {
		s.suggestions.Invalidate()
	}
	return outcome, nil
}

// loadedBookings fetches the in-memory event view a non-resource calendar
// would have for the gesture's surroundings.
func (s *DispatchService) loadedBookings(ctx context.Context, employeeID string, start, end time.Time) ([]scheduler.Booking, error) {
	from := start.Add(-scheduler.ReloadMargin)
	to := end.Add(scheduler.ReloadMargin)
	events, err := s.events.ListEvents(ctx, persistence.EventFilter{
		EmployeeID:   employeeID,
		StartsBefore: &to,
		EndsAfter:    &from,
		Statuses:     []persistence.EventStatus{persistence.EventStatusScheduled, persistence.EventStatusInProgress},
	})
	if err != nil {
		return nil, err
	}
	bookings := make([]scheduler.Booking, 0, len(events))
	for _, e := range events {
		b := scheduler.Booking{
			ID:         e.ID,
			EmployeeID: e.EmployeeID,
			Title:      e.Title,
			Start:      e.Start,
			End:        e.End,
		}
		if e.WorkOrderID != nil {
			b.WorkOrderID = *e.WorkOrderID
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

// ListBacklog returns the unscheduled work orders.
func (s *DispatchService) ListBacklog(ctx context.Context, principal Principal) ([]persistence.WorkOrder, error) {
	if s == nil || s.workOrders == nil {
		return nil, fmt.Errorf("work order repository not configured")
	}
	if !principal.CanDispatch() {
		return nil, ErrUnauthorized
	}
	return s.workOrders.ListBacklog(ctx)
}

// AssignWorkOrder finds the earliest open slot for a backlog order and
// commits the crew assignment.
func (s *DispatchService) AssignWorkOrder(ctx context.Context, params AssignWorkOrderParams) (AssignWorkOrderResult, error) {
	if s == nil || s.assigner == nil {
		return AssignWorkOrderResult{}, fmt.Errorf("backlog assigner not configured")
	}
	if s.workOrders == nil {
		return AssignWorkOrderResult{}, fmt.Errorf("work order repository not configured")
	}
	if !params.Principal.CanDispatch() {
		return AssignWorkOrderResult{}, ErrUnauthorized
	}

	logger := s.loggerWith(ctx, "AssignWorkOrder", "work_order_id", params.WorkOrderID)

	order, err := s.workOrders.GetWorkOrder(ctx, params.WorkOrderID)
	if err != nil {
		return AssignWorkOrderResult{}, mapRepoError(err)
	}
	if order.Scheduled() {
		vErr := &ValidationError{}
		vErr.add("work_order_id", "work order is already scheduled")
		return AssignWorkOrderResult{}, vErr
	}

	settings, err := loadSettings(ctx, s.settings)
	if err != nil {
		return AssignWorkOrderResult{}, err
	}

	ref := scheduler.WorkOrderRef{
		ID:                       order.ID,
		Title:                    order.Title,
		CustomerID:               derefOrEmpty(order.CustomerID),
		EstimatedDurationMinutes: order.EstimatedDurationMinutes,
		CrewSize:                 order.Labor.CrewSize,
		HoursPerDay:              order.Labor.HoursPerDay,
	}

	window := scheduler.Window{Start: params.WindowStart, End: params.WindowEnd}
	if window.Start.IsZero() {
		window.Start = s.now()
	}

	commit, err := s.assigner.AutoAssign(ctx, ref, window, settings)
	if err != nil {
		logger.ErrorContext(ctx, "auto assign failed", "error", err, "error_kind", ErrorKind(err))
		return AssignWorkOrderResult{}, err
	}

	s.suggestions.Invalidate()

	event, err := s.events.GetEvent(ctx, commit.Anchor.ID)
	if err != nil {
		return AssignWorkOrderResult{}, mapRepoError(err)
	}

	logger.With(
		"event_id", event.ID,
		"crew", len(commit.CrewIDs),
	).InfoContext(ctx, "work order assigned")

	return AssignWorkOrderResult{
		Event:    event,
		CrewIDs:  commit.CrewIDs,
		Warnings: commit.Warnings,
	}, nil
}
