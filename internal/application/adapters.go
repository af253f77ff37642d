package application

import (
	"context"
	"time"

	"github.com/tradesmatepro/fieldsched/internal/persistence"
	"github.com/tradesmatepro/fieldsched/internal/scheduler"
)

// bookingSource hydrates scheduler.Booking values from two tables: schedule
// events and work orders with scheduling fields set. An order committed
// through the dual-write path appears in both; the event row wins and the
// order row is dropped to avoid double-counting the same commitment.
type bookingSource struct {
	events     persistence.EventRepository
	workOrders persistence.WorkOrderRepository
}

// NewBookingSource adapts the event and work order repositories into the
// booking view the scheduling core consumes.
func NewBookingSource(events persistence.EventRepository, workOrders persistence.WorkOrderRepository) scheduler.BookingSource {
	return &bookingSource{events: events, workOrders: workOrders}
}

func (b *bookingSource) BookingsForEmployee(ctx context.Context, employeeID string, from, to time.Time) ([]scheduler.Booking, error) {
	events, err := b.events.ListEvents(ctx, persistence.EventFilter{
		EmployeeID:   employeeID,
		StartsBefore: &to,
		EndsAfter:    &from,
		Statuses:     []persistence.EventStatus{persistence.EventStatusScheduled, persistence.EventStatusInProgress},
	})
	if err != nil {
		return nil, err
	}

	bookings := make([]scheduler.Booking, 0, len(events))
	coveredOrders := make(map[string]struct{})
	for _, e := range events {
		booking := scheduler.Booking{
			ID:         e.ID,
			EmployeeID: e.EmployeeID,
			Title:      e.Title,
			Start:      e.Start,
			End:        e.End,
		}
		if e.WorkOrderID != nil {
			booking.WorkOrderID = *e.WorkOrderID
			coveredOrders[*e.WorkOrderID] = struct{}{}
		}
		bookings = append(bookings, booking)
	}

	orders, err := b.workOrders.ListScheduledForEmployee(ctx, employeeID, from, to)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		if _, ok := coveredOrders[o.ID]; ok {
			continue
		}
		if !o.Scheduled() {
			continue
		}
		bookings = append(bookings, scheduler.Booking{
			ID:          o.ID,
			WorkOrderID: o.ID,
			EmployeeID:  employeeID,
			Title:       o.Title,
			Start:       *o.ScheduledStart,
			End:         *o.ScheduledEnd,
		})
	}

	return bookings, nil
}

// employeeDirectory adapts the employee repository for crew selection.
type employeeDirectory struct {
	employees persistence.EmployeeRepository
}

// NewEmployeeDirectory adapts the employee repository into the directory view
// the scheduling core consumes.
func NewEmployeeDirectory(employees persistence.EmployeeRepository) scheduler.EmployeeDirectory {
	return &employeeDirectory{employees: employees}
}

// NewCapacitySource adapts the employee repository into the per-employee
// capacity lookup the availability engine consumes.
func NewCapacitySource(employees persistence.EmployeeRepository) scheduler.CapacitySource {
	return &employeeDirectory{employees: employees}
}

func (d *employeeDirectory) CapacityForEmployee(ctx context.Context, employeeID string) (float64, error) {
	record, err := d.employees.GetEmployee(ctx, employeeID)
	if err != nil {
		return 0, err
	}
	return record.CapacityHoursPerDay, nil
}

func (d *employeeDirectory) SchedulableEmployees(ctx context.Context) ([]scheduler.Employee, error) {
	records, err := d.employees.ListEmployees(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make([]scheduler.Employee, 0, len(records))
	for _, e := range records {
		out = append(out, scheduler.Employee{
			ID:                  e.ID,
			DisplayName:         e.DisplayName,
			Role:                e.Role,
			Schedulable:         e.Schedulable,
			CapacityHoursPerDay: e.CapacityHoursPerDay,
		})
	}
	return out, nil
}

// commitStore adapts the transactional event store and labor writes for the
// crew scheduler.
type commitStore struct {
	store       persistence.SchedulingStore
	workOrders  persistence.WorkOrderRepository
	idGenerator func() string
}

// NewCommitStore adapts the scheduling store for crew commits.
func NewCommitStore(store persistence.SchedulingStore, workOrders persistence.WorkOrderRepository, idGenerator func() string) scheduler.CommitStore {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	return &commitStore{store: store, workOrders: workOrders, idGenerator: idGenerator}
}

func (c *commitStore) CommitBooking(ctx context.Context, commit scheduler.BookingCommit) (scheduler.Booking, error) {
	event := persistence.ScheduleEvent{
		ID:         c.idGenerator(),
		EmployeeID: commit.EmployeeID,
		Title:      commit.Title,
		Start:      commit.Start,
		End:        commit.End,
		Status:     persistence.EventStatusScheduled,
	}
	if commit.WorkOrderID != "" {
		workOrderID := commit.WorkOrderID
		event.WorkOrderID = &workOrderID
	}
	if commit.CustomerID != "" {
		customerID := commit.CustomerID
		event.CustomerID = &customerID
	}

	persisted, err := c.store.CommitScheduledEvent(ctx, event)
	if err != nil {
		return scheduler.Booking{}, err
	}

	booking := scheduler.Booking{
		ID:         persisted.ID,
		EmployeeID: persisted.EmployeeID,
		Title:      persisted.Title,
		Start:      persisted.Start,
		End:        persisted.End,
	}
	if persisted.WorkOrderID != nil {
		booking.WorkOrderID = *persisted.WorkOrderID
	}
	return booking, nil
}

func (c *commitStore) AddLaborEntry(ctx context.Context, entry scheduler.LaborEntry) error {
	_, err := c.workOrders.AddLaborEntry(ctx, persistence.LaborEntry{
		ID:          c.idGenerator(),
		WorkOrderID: entry.WorkOrderID,
		EmployeeID:  entry.EmployeeID,
		Hours:       entry.Hours,
	})
	return err
}

// rescheduleStore adapts interval updates for the reschedule controller.
type rescheduleStore struct {
	store persistence.SchedulingStore
}

// NewRescheduleStore adapts the scheduling store for reschedule commits.
func NewRescheduleStore(store persistence.SchedulingStore) scheduler.RescheduleStore {
	return &rescheduleStore{store: store}
}

func (r *rescheduleStore) UpdateBookingInterval(ctx context.Context, bookingID string, start, end time.Time) (scheduler.Booking, error) {
	event, err := r.store.UpdateEventInterval(ctx, bookingID, start, end)
	if err != nil {
		return scheduler.Booking{}, err
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
	return booking, nil
}

// settingsFromRecord converts the persisted policy row into the scheduling
// core's settings value.
func settingsFromRecord(record persistence.CompanySettings) scheduler.Settings {
	settings := scheduler.Settings{
		BusinessHoursStart:  record.BusinessHoursStart,
		BusinessHoursEnd:    record.BusinessHoursEnd,
		BufferBefore:        time.Duration(record.BufferBeforeMinutes) * time.Minute,
		BufferAfter:         time.Duration(record.BufferAfterMinutes) * time.Minute,
		WorkingDays:         record.WorkingDays,
		NightsWeekends:      record.NightsWeekends,
		MinAdvance:          time.Duration(record.MinAdvanceBookingHours) * time.Hour,
		MaxAdvanceDays:      record.MaxAdvanceBookingDays,
		CapacityHoursPerDay: scheduler.DefaultSettings().CapacityHoursPerDay,
	}
	if settings.BusinessHoursStart == "" || settings.BusinessHoursEnd == "" {
		defaults := scheduler.DefaultSettings()
		settings.BusinessHoursStart = defaults.BusinessHoursStart
		settings.BusinessHoursEnd = defaults.BusinessHoursEnd
	}
	if len(settings.WorkingDays) == 0 {
		settings.WorkingDays = scheduler.DefaultSettings().WorkingDays
	}
	return settings
}

// loadSettings fetches the company policy, falling back to product defaults
// when no row has been saved yet.
func loadSettings(ctx context.Context, repo persistence.SettingsRepository) (scheduler.Settings, error) {
	if repo == nil {
		return scheduler.DefaultSettings(), nil
	}
	record, err := repo.GetSettings(ctx)
	if err != nil {
		if isNotFoundError(err) {
			return scheduler.DefaultSettings(), nil
		}
		return scheduler.Settings{}, err
	}
	return settingsFromRecord(record), nil
}
