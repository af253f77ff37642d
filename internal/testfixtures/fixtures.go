package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tradesmatepro/fieldsched/internal/application"
	"github.com/tradesmatepro/fieldsched/internal/persistence"
	"github.com/tradesmatepro/fieldsched/internal/scheduler"
)

var (
	employeeCounter  uint64
	workOrderCounter uint64
	eventCounter     uint64
	seriesCounter    uint64
	sessionCounter   uint64
)

// referenceTime is a Tuesday inside default business hours.
var referenceTime = time.Date(2024, time.January, 2, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// --------------------------- Employee fixtures ---------------------------

// EmployeeFixture represents a deterministic employee record that can be
// materialised for application or persistence tests.
type EmployeeFixture struct {
	ID                  string
	Email               string
	DisplayName         string
	Role                string
	Schedulable         bool
	CapacityHoursPerDay float64
	PasswordHash        string
	Disabled            bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// EmployeeOption configures the generated employee fixture.
type EmployeeOption func(*EmployeeFixture)

// NewEmployeeFixture returns a deterministic employee fixture with optional
// overrides. Generated employees are schedulable technicians.
func NewEmployeeFixture(opts ...EmployeeOption) EmployeeFixture {
	idx := atomic.AddUint64(&employeeCounter, 1)
	id := fmt.Sprintf("emp-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := EmployeeFixture{
		ID:                  id,
		Email:               fmt.Sprintf("%s@example.com", id),
		DisplayName:         fmt.Sprintf("Technician %03d", idx),
		Role:                "technician",
		Schedulable:         true,
		CapacityHoursPerDay: 8,
		PasswordHash:        fmt.Sprintf("hash-%03d", idx),
		CreatedAt:           created,
		UpdatedAt:           created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEmployeeID overrides the generated employee ID.
func WithEmployeeID(id string) EmployeeOption {
	return func(f *EmployeeFixture) {
		f.ID = id
	}
}

// WithEmployeeEmail overrides the generated email address.
func WithEmployeeEmail(email string) EmployeeOption {
	return func(f *EmployeeFixture) {
		f.Email = email
	}
}

// WithEmployeeDisplayName overrides the generated display name.
func WithEmployeeDisplayName(name string) EmployeeOption {
	return func(f *EmployeeFixture) {
		f.DisplayName = name
	}
}

// WithEmployeeRole sets the role on the generated fixture.
func WithEmployeeRole(role string) EmployeeOption {
	return func(f *EmployeeFixture) {
		f.Role = role
	}
}

// WithEmployeeSchedulable sets the schedulable flag.
func WithEmployeeSchedulable(schedulable bool) EmployeeOption {
	return func(f *EmployeeFixture) {
		f.Schedulable = schedulable
	}
}

// WithEmployeeCapacity sets the daily capacity in hours.
func WithEmployeeCapacity(hours float64) EmployeeOption {
	return func(f *EmployeeFixture) {
		f.CapacityHoursPerDay = hours
	}
}

// WithEmployeePasswordHash overrides the generated password hash.
func WithEmployeePasswordHash(hash string) EmployeeOption {
	return func(f *EmployeeFixture) {
		f.PasswordHash = hash
	}
}

// WithEmployeeDisabled sets the disabled flag on the fixture.
func WithEmployeeDisabled(disabled bool) EmployeeOption {
	return func(f *EmployeeFixture) {
		f.Disabled = disabled
	}
}

// WithEmployeeTimestamps sets both created and updated timestamps.
func WithEmployeeTimestamps(created, updated time.Time) EmployeeOption {
	return func(f *EmployeeFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Persistence returns the fixture as a persistence.Employee value.
func (f EmployeeFixture) Persistence() persistence.Employee {
	return persistence.Employee{
		ID:                  f.ID,
		Email:               f.Email,
		DisplayName:         f.DisplayName,
		Role:                f.Role,
		Schedulable:         f.Schedulable,
		CapacityHoursPerDay: f.CapacityHoursPerDay,
		PasswordHash:        f.PasswordHash,
		Disabled:            f.Disabled,
		CreatedAt:           f.CreatedAt,
		UpdatedAt:           f.UpdatedAt,
	}
}

// Scheduler returns the fixture as a scheduler.Employee value.
func (f EmployeeFixture) Scheduler() scheduler.Employee {
	return scheduler.Employee{
		ID:                  f.ID,
		DisplayName:         f.DisplayName,
		Role:                f.Role,
		Schedulable:         f.Schedulable,
		CapacityHoursPerDay: f.CapacityHoursPerDay,
	}
}

// Principal returns an application.Principal derived from the fixture.
func (f EmployeeFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, Role: f.Role}
}

// -------------------------- Work order fixtures --------------------------

// WorkOrderFixture represents a deterministic work order record.
type WorkOrderFixture struct {
	ID                       string
	Title                    string
	CustomerID               *string
	ScheduledStart           *time.Time
	ScheduledEnd             *time.Time
	AssignedTo               *string
	EstimatedDurationMinutes int
	CrewSize                 int
	HoursPerDay              float64
	Status                   string
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// WorkOrderOption configures the generated work order fixture.
type WorkOrderOption func(*WorkOrderFixture)

// NewWorkOrderFixture returns a deterministic backlog work order with optional
// overrides.
func NewWorkOrderFixture(opts ...WorkOrderOption) WorkOrderFixture {
	idx := atomic.AddUint64(&workOrderCounter, 1)
	id := fmt.Sprintf("wo-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := WorkOrderFixture{
		ID:                       id,
		Title:                    fmt.Sprintf("Work Order %03d", idx),
		EstimatedDurationMinutes: 120,
		CrewSize:                 1,
		Status:                   "approved",
		CreatedAt:                created,
		UpdatedAt:                created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithWorkOrderID overrides the generated work order ID.
func WithWorkOrderID(id string) WorkOrderOption {
	return func(f *WorkOrderFixture) {
		f.ID = id
	}
}

// WithWorkOrderTitle overrides the generated title.
func WithWorkOrderTitle(title string) WorkOrderOption {
	return func(f *WorkOrderFixture) {
		f.Title = title
	}
}

// WithWorkOrderCustomer sets the customer ID.
func WithWorkOrderCustomer(customerID string) WorkOrderOption {
	return func(f *WorkOrderFixture) {
		id := customerID
		f.CustomerID = &id
	}
}

// WithWorkOrderSchedule sets the scheduled interval and assignee.
func WithWorkOrderSchedule(start, end time.Time, assignedTo string) WorkOrderOption {
	return func(f *WorkOrderFixture) {
		s, e, a := start, end, assignedTo
		f.ScheduledStart = &s
		f.ScheduledEnd = &e
		f.AssignedTo = &a
	}
}

// WithWorkOrderDuration sets the estimated duration in minutes.
func WithWorkOrderDuration(minutes int) WorkOrderOption {
	return func(f *WorkOrderFixture) {
		f.EstimatedDurationMinutes = minutes
	}
}

// WithWorkOrderCrew sets the crew sizing fields.
func WithWorkOrderCrew(crewSize int, hoursPerDay float64) WorkOrderOption {
	return func(f *WorkOrderFixture) {
		f.CrewSize = crewSize
		f.HoursPerDay = hoursPerDay
	}
}

// WithWorkOrderStatus sets the lifecycle status.
func WithWorkOrderStatus(status string) WorkOrderOption {
	return func(f *WorkOrderFixture) {
		f.Status = status
	}
}

// Persistence returns the fixture as a persistence.WorkOrder value.
func (f WorkOrderFixture) Persistence() persistence.WorkOrder {
	return persistence.WorkOrder{
		ID:                       f.ID,
		Title:                    f.Title,
		CustomerID:               copyStringPtr(f.CustomerID),
		ScheduledStart:           copyTimePtr(f.ScheduledStart),
		ScheduledEnd:             copyTimePtr(f.ScheduledEnd),
		AssignedTo:               copyStringPtr(f.AssignedTo),
		EstimatedDurationMinutes: f.EstimatedDurationMinutes,
		Labor: persistence.LaborSummary{
			CrewSize:    f.CrewSize,
			HoursPerDay: f.HoursPerDay,
		},
		Status:    f.Status,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Ref returns the fixture as a scheduler.WorkOrderRef value.
func (f WorkOrderFixture) Ref() scheduler.WorkOrderRef {
	var customerID string
	if f.CustomerID != nil {
		customerID = *f.CustomerID
	}
	return scheduler.WorkOrderRef{
		ID:                       f.ID,
		Title:                    f.Title,
		CustomerID:               customerID,
		EstimatedDurationMinutes: f.EstimatedDurationMinutes,
		CrewSize:                 f.CrewSize,
		HoursPerDay:              f.HoursPerDay,
	}
}

// ----------------------------- Event fixtures ----------------------------

// EventFixture represents a deterministic schedule event record.
type EventFixture struct {
	ID          string
	WorkOrderID *string
	CustomerID  *string
	EmployeeID  string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Status      persistence.EventStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EventOption configures the generated event fixture.
type EventOption func(*EventFixture)

// NewEventFixture returns a deterministic two hour event with optional
// overrides. Consecutive fixtures land on consecutive days so they do not
// conflict with each other by default.
func NewEventFixture(opts ...EventOption) EventFixture {
	idx := atomic.AddUint64(&eventCounter, 1)
	id := fmt.Sprintf("evt-%03d", idx)
	start := referenceTime.AddDate(0, 0, int(idx)%28)
	fixture := EventFixture{
		ID:         id,
		EmployeeID: fmt.Sprintf("emp-%03d", idx),
		Title:      fmt.Sprintf("Event %03d", idx),
		Start:      start,
		End:        start.Add(2 * time.Hour),
		Status:     persistence.EventStatusScheduled,
		CreatedAt:  referenceTime,
		UpdatedAt:  referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventID overrides the generated event ID.
func WithEventID(id string) EventOption {
	return func(f *EventFixture) {
		f.ID = id
	}
}

// WithEventWorkOrder links the event to a work order.
func WithEventWorkOrder(workOrderID string) EventOption {
	return func(f *EventFixture) {
		id := workOrderID
		f.WorkOrderID = &id
	}
}

// WithEventCustomer sets the customer ID.
func WithEventCustomer(customerID string) EventOption {
	return func(f *EventFixture) {
		id := customerID
		f.CustomerID = &id
	}
}

// WithEventEmployee sets the assigned employee.
func WithEventEmployee(employeeID string) EventOption {
	return func(f *EventFixture) {
		f.EmployeeID = employeeID
	}
}

// WithEventTitle overrides the title.
func WithEventTitle(title string) EventOption {
	return func(f *EventFixture) {
		f.Title = title
	}
}

// WithEventDescription sets the description.
func WithEventDescription(description string) EventOption {
	return func(f *EventFixture) {
		f.Description = description
	}
}

// WithEventInterval sets the start and end times.
func WithEventInterval(start, end time.Time) EventOption {
	return func(f *EventFixture) {
		f.Start = start
		f.End = end
	}
}

// WithEventStatus sets the lifecycle status.
func WithEventStatus(status persistence.EventStatus) EventOption {
	return func(f *EventFixture) {
		f.Status = status
	}
}

// WithEventTimestamps sets both created and updated timestamps.
func WithEventTimestamps(created, updated time.Time) EventOption {
	return func(f *EventFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Persistence returns the fixture as a persistence.ScheduleEvent value.
func (f EventFixture) Persistence() persistence.ScheduleEvent {
	return persistence.ScheduleEvent{
		ID:          f.ID,
		WorkOrderID: copyStringPtr(f.WorkOrderID),
		CustomerID:  copyStringPtr(f.CustomerID),
		EmployeeID:  f.EmployeeID,
		Title:       f.Title,
		Description: f.Description,
		Start:       f.Start,
		End:         f.End,
		Status:      f.Status,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Booking returns the fixture as a scheduler.Booking value.
func (f EventFixture) Booking() scheduler.Booking {
	var workOrderID string
	if f.WorkOrderID != nil {
		workOrderID = *f.WorkOrderID
	}
	return scheduler.Booking{
		ID:          f.ID,
		WorkOrderID: workOrderID,
		EmployeeID:  f.EmployeeID,
		Title:       f.Title,
		Start:       f.Start,
		End:         f.End,
	}
}

// ----------------------------- Series fixtures ---------------------------

// SeriesFixture represents a deterministic recurring series record.
type SeriesFixture struct {
	ID              string
	TemplateEventID string
	Frequency       string
	Interval        int
	EndDate         *time.Time
	MaxOccurrences  int
	GeneratedCount  int
	NextOccurrence  *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SeriesOption configures the generated series fixture.
type SeriesOption func(*SeriesFixture)

// NewSeriesFixture returns a deterministic weekly series with optional
// overrides.
func NewSeriesFixture(opts ...SeriesOption) SeriesFixture {
	idx := atomic.AddUint64(&seriesCounter, 1)
	fixture := SeriesFixture{
		ID:              fmt.Sprintf("series-%03d", idx),
		TemplateEventID: fmt.Sprintf("evt-%03d", idx),
		Frequency:       "weekly",
		Interval:        1,
		MaxOccurrences:  52,
		GeneratedCount:  1,
		CreatedAt:       referenceTime,
		UpdatedAt:       referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSeriesID overrides the series ID.
func WithSeriesID(id string) SeriesOption {
	return func(f *SeriesFixture) {
		f.ID = id
	}
}

// WithSeriesTemplate sets the template event ID.
func WithSeriesTemplate(eventID string) SeriesOption {
	return func(f *SeriesFixture) {
		f.TemplateEventID = eventID
	}
}

// WithSeriesRule sets the frequency and interval.
func WithSeriesRule(frequency string, interval int) SeriesOption {
	return func(f *SeriesFixture) {
		f.Frequency = frequency
		f.Interval = interval
	}
}

// WithSeriesEndDate sets the optional end date.
func WithSeriesEndDate(t time.Time) SeriesOption {
	return func(f *SeriesFixture) {
		end := t
		f.EndDate = &end
	}
}

// WithSeriesProgress sets the materialization progress fields.
func WithSeriesProgress(generated int, next *time.Time) SeriesOption {
	return func(f *SeriesFixture) {
		f.GeneratedCount = generated
		f.NextOccurrence = copyTimePtr(next)
	}
}

// WithSeriesMaxOccurrences sets the occurrence cap.
func WithSeriesMaxOccurrences(maxOccurrences int) SeriesOption {
	return func(f *SeriesFixture) {
		f.MaxOccurrences = maxOccurrences
	}
}

// Persistence returns the fixture as a persistence.RecurringSeries value.
func (f SeriesFixture) Persistence() persistence.RecurringSeries {
	return persistence.RecurringSeries{
		ID:              f.ID,
		TemplateEventID: f.TemplateEventID,
		Frequency:       f.Frequency,
		Interval:        f.Interval,
		EndDate:         copyTimePtr(f.EndDate),
		MaxOccurrences:  f.MaxOccurrences,
		GeneratedCount:  f.GeneratedCount,
		NextOccurrence:  copyTimePtr(f.NextOccurrence),
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}

// ---------------------------- Session fixtures ---------------------------

// SessionFixture represents a deterministic session record.
type SessionFixture struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a deterministic session fixture with optional
// overrides.
func NewSessionFixture(opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	fixture := SessionFixture{
		ID:        fmt.Sprintf("session-%03d", idx),
		UserID:    fmt.Sprintf("emp-%03d", idx),
		Token:     fmt.Sprintf("token-%03d", idx),
		ExpiresAt: referenceTime.Add(24 * time.Hour),
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionID overrides the session ID.
func WithSessionID(id string) SessionOption {
	return func(f *SessionFixture) {
		f.ID = id
	}
}

// WithSessionUserID sets the owning user ID.
func WithSessionUserID(id string) SessionOption {
	return func(f *SessionFixture) {
		f.UserID = id
	}
}

// WithSessionToken overrides the token value.
func WithSessionToken(token string) SessionOption {
	return func(f *SessionFixture) {
		f.Token = token
	}
}

// WithSessionExpiresAt sets the expiration timestamp.
func WithSessionExpiresAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		f.ExpiresAt = t
	}
}

// WithSessionRevokedAt sets the optional revoked timestamp.
func WithSessionRevokedAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		revoked := t
		f.RevokedAt = &revoked
	}
}

// Persistence returns the fixture as a persistence.Session value.
func (f SessionFixture) Persistence() persistence.Session {
	return persistence.Session{
		ID:        f.ID,
		UserID:    f.UserID,
		Token:     f.Token,
		ExpiresAt: f.ExpiresAt,
		CreatedAt: f.CreatedAt,
		RevokedAt: copyTimePtr(f.RevokedAt),
	}
}

// helpers to deep copy optional fields.
func copyStringPtr(src *string) *string {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}

func copyTimePtr(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}
