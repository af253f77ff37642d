package testfixtures

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tradesmatepro/fieldsched/internal/persistence"
)

// MemoryStore is an in-memory implementation of every persistence repository
// interface. It mirrors the SQLite repositories' semantics, including the
// event and work order dual write, so application tests can run without a
// database file.
type MemoryStore struct {
	mu sync.Mutex

	now func() time.Time

	events     map[string]persistence.ScheduleEvent
	workOrders map[string]persistence.WorkOrder
	labor      []persistence.LaborEntry
	employees  map[string]persistence.Employee
	settings   *persistence.CompanySettings
	series     map[string]persistence.RecurringSeries
	sessions   map[string]persistence.Session
}

// NewMemoryStore constructs an empty store. A nil now falls back to time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		now:        now,
		events:     make(map[string]persistence.ScheduleEvent),
		workOrders: make(map[string]persistence.WorkOrder),
		employees:  make(map[string]persistence.Employee),
		series:     make(map[string]persistence.RecurringSeries),
		sessions:   make(map[string]persistence.Session),
	}
}

// SeedEmployees loads employee fixtures directly, bypassing timestamps.
func (s *MemoryStore) SeedEmployees(employees ...persistence.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range employees {
		s.employees[e.ID] = e
	}
}

// SeedWorkOrders loads work order fixtures directly.
func (s *MemoryStore) SeedWorkOrders(orders ...persistence.WorkOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range orders {
		s.workOrders[o.ID] = o
	}
}

// SeedEvents loads event fixtures directly.
func (s *MemoryStore) SeedEvents(events ...persistence.ScheduleEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		s.events[e.ID] = e
	}
}

// SeedSeries loads recurring series fixtures directly.
func (s *MemoryStore) SeedSeries(series ...persistence.RecurringSeries) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sr := range series {
		s.series[sr.ID] = sr
	}
}

// SeedSessions loads session fixtures directly.
func (s *MemoryStore) SeedSessions(sessions ...persistence.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range sessions {
		s.sessions[session.ID] = session
	}
}

// SeedSettings sets the stored company policy.
func (s *MemoryStore) SeedSettings(settings persistence.CompanySettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := settings
	s.settings = &copied
}

// ------------------------------- Events ----------------------------------

// CreateEvent implements persistence.EventRepository.
func (s *MemoryStore) CreateEvent(_ context.Context, event persistence.ScheduleEvent) (persistence.ScheduleEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createEventLocked(event)
}

func (s *MemoryStore) createEventLocked(event persistence.ScheduleEvent) (persistence.ScheduleEvent, error) {
	if _, exists := s.events[event.ID]; exists {
		return persistence.ScheduleEvent{}, persistence.ErrDuplicate
	}
	now := s.now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	if event.Status == "" {
		event.Status = persistence.EventStatusScheduled
	}
	s.events[event.ID] = event
	return event, nil
}

// GetEvent implements persistence.EventRepository.
func (s *MemoryStore) GetEvent(_ context.Context, id string) (persistence.ScheduleEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return persistence.ScheduleEvent{}, persistence.ErrNotFound
	}
	return event, nil
}

// UpdateEvent implements persistence.EventRepository.
func (s *MemoryStore) UpdateEvent(_ context.Context, event persistence.ScheduleEvent) (persistence.ScheduleEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.events[event.ID]
	if !ok {
		return persistence.ScheduleEvent{}, persistence.ErrNotFound
	}
	event.CreatedAt = existing.CreatedAt
	event.UpdatedAt = s.now().UTC()
	s.events[event.ID] = event
	return event, nil
}

// DeleteEvent implements persistence.EventRepository.
func (s *MemoryStore) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.events, id)
	return nil
}

// ListEvents implements persistence.EventRepository.
func (s *MemoryStore) ListEvents(_ context.Context, filter persistence.EventFilter) ([]persistence.ScheduleEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []persistence.ScheduleEvent
	for _, event := range s.events {
		if filter.EmployeeID != "" && event.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.WorkOrderID != "" && (event.WorkOrderID == nil || *event.WorkOrderID != filter.WorkOrderID) {
			continue
		}
		if filter.StartsBefore != nil && !event.Start.Before(*filter.StartsBefore) {
			continue
		}
		if filter.EndsAfter != nil && !event.End.After(*filter.EndsAfter) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, event.Status) {
			continue
		}
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Start.Equal(events[j].Start) {
			return events[i].ID < events[j].ID
		}
		return events[i].Start.Before(events[j].Start)
	})
	return events, nil
}

// CommitScheduledEvent implements persistence.SchedulingStore.
func (s *MemoryStore) CommitScheduledEvent(_ context.Context, event persistence.ScheduleEvent) (persistence.ScheduleEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.WorkOrderID != nil {
		if _, ok := s.workOrders[*event.WorkOrderID]; !ok {
			return persistence.ScheduleEvent{}, fmt.Errorf("work order %s: %w", *event.WorkOrderID, persistence.ErrNotFound)
		}
	}
	created, err := s.createEventLocked(event)
	if err != nil {
		return persistence.ScheduleEvent{}, err
	}
	if created.WorkOrderID != nil {
		s.syncWorkOrderLocked(*created.WorkOrderID, created.Start, created.End, created.EmployeeID)
	}
	return created, nil
}

// UpdateEventInterval implements persistence.SchedulingStore.
func (s *MemoryStore) UpdateEventInterval(_ context.Context, eventID string, start, end time.Time) (persistence.ScheduleEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return persistence.ScheduleEvent{}, persistence.ErrNotFound
	}
	event.Start = start
	event.End = end
	event.UpdatedAt = s.now().UTC()
	s.events[eventID] = event

	if event.WorkOrderID != nil {
		s.syncWorkOrderLocked(*event.WorkOrderID, start, end, event.EmployeeID)
	}
	return event, nil
}

func (s *MemoryStore) syncWorkOrderLocked(workOrderID string, start, end time.Time, employeeID string) {
	order, ok := s.workOrders[workOrderID]
	if !ok {
		return
	}
	startCopy, endCopy, assignee := start, end, employeeID
	order.ScheduledStart = &startCopy
	order.ScheduledEnd = &endCopy
	order.AssignedTo = &assignee
	order.Status = "scheduled"
	order.UpdatedAt = s.now().UTC()
	s.workOrders[workOrderID] = order
}

// ----------------------------- Work orders -------------------------------

// CreateWorkOrder implements persistence.WorkOrderRepository.
func (s *MemoryStore) CreateWorkOrder(_ context.Context, order persistence.WorkOrder) (persistence.WorkOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.workOrders[order.ID]; exists {
		return persistence.WorkOrder{}, persistence.ErrDuplicate
	}
	now := s.now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now
	if order.Status == "" {
		order.Status = "pending"
	}
	if order.Labor.CrewSize < 1 {
		order.Labor.CrewSize = 1
	}
	s.workOrders[order.ID] = order
	return order, nil
}

// GetWorkOrder implements persistence.WorkOrderRepository.
func (s *MemoryStore) GetWorkOrder(_ context.Context, id string) (persistence.WorkOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.workOrders[id]
	if !ok {
		return persistence.WorkOrder{}, persistence.ErrNotFound
	}
	return order, nil
}

// ListBacklog implements persistence.WorkOrderRepository.
func (s *MemoryStore) ListBacklog(_ context.Context) ([]persistence.WorkOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var orders []persistence.WorkOrder
	for _, order := range s.workOrders {
		if order.ScheduledStart != nil {
			continue
		}
		if order.Status == "completed" || order.Status == "cancelled" {
			continue
		}
		orders = append(orders, order)
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	return orders, nil
}

// ListScheduledForEmployee implements persistence.WorkOrderRepository.
func (s *MemoryStore) ListScheduledForEmployee(_ context.Context, employeeID string, from, to time.Time) ([]persistence.WorkOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var orders []persistence.WorkOrder
	for _, order := range s.workOrders {
		if order.AssignedTo == nil || *order.AssignedTo != employeeID {
			continue
		}
		if order.Status != "scheduled" && order.Status != "in_progress" {
			continue
		}
		if !order.Scheduled() {
			continue
		}
		if !order.ScheduledStart.Before(to) || !order.ScheduledEnd.After(from) {
			continue
		}
		orders = append(orders, order)
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].ScheduledStart.Before(*orders[j].ScheduledStart)
	})
	return orders, nil
}

// UpdateScheduling implements persistence.WorkOrderRepository.
func (s *MemoryStore) UpdateScheduling(_ context.Context, id string, start, end *time.Time, assignedTo *string) (persistence.WorkOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.workOrders[id]
	if !ok {
		return persistence.WorkOrder{}, persistence.ErrNotFound
	}
	order.ScheduledStart = copyTimePtr(start)
	order.ScheduledEnd = copyTimePtr(end)
	order.AssignedTo = copyStringPtr(assignedTo)
	if start != nil && end != nil {
		order.Status = "scheduled"
	} else {
		order.Status = "pending"
	}
	order.UpdatedAt = s.now().UTC()
	s.workOrders[id] = order
	return order, nil
}

// AddLaborEntry implements persistence.WorkOrderRepository.
func (s *MemoryStore) AddLaborEntry(_ context.Context, entry persistence.LaborEntry) (persistence.LaborEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workOrders[entry.WorkOrderID]; !ok {
		return persistence.LaborEntry{}, persistence.ErrForeignKeyViolation
	}
	entry.CreatedAt = s.now().UTC()
	s.labor = append(s.labor, entry)
	return entry, nil
}

// ListLaborEntries implements persistence.WorkOrderRepository.
func (s *MemoryStore) ListLaborEntries(_ context.Context, workOrderID string) ([]persistence.LaborEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []persistence.LaborEntry
	for _, entry := range s.labor {
		if entry.WorkOrderID == workOrderID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// ------------------------------ Employees --------------------------------

// CreateEmployee implements persistence.EmployeeRepository.
func (s *MemoryStore) CreateEmployee(_ context.Context, employee persistence.Employee) (persistence.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.employees[employee.ID]; exists {
		return persistence.Employee{}, persistence.ErrDuplicate
	}
	for _, existing := range s.employees {
		if existing.Email == employee.Email {
			return persistence.Employee{}, persistence.ErrDuplicate
		}
	}
	now := s.now().UTC()
	employee.CreatedAt = now
	employee.UpdatedAt = now
	s.employees[employee.ID] = employee
	return employee, nil
}

// GetEmployee implements persistence.EmployeeRepository.
func (s *MemoryStore) GetEmployee(_ context.Context, id string) (persistence.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	employee, ok := s.employees[id]
	if !ok {
		return persistence.Employee{}, persistence.ErrNotFound
	}
	return employee, nil
}

// GetEmployeeByEmail implements persistence.EmployeeRepository.
func (s *MemoryStore) GetEmployeeByEmail(_ context.Context, email string) (persistence.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, employee := range s.employees {
		if employee.Email == email {
			return employee, nil
		}
	}
	return persistence.Employee{}, persistence.ErrNotFound
}

// ListEmployees implements persistence.EmployeeRepository.
func (s *MemoryStore) ListEmployees(_ context.Context, schedulableOnly bool) ([]persistence.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var employees []persistence.Employee
	for _, employee := range s.employees {
		if schedulableOnly && (!employee.Schedulable || employee.Disabled) {
			continue
		}
		employees = append(employees, employee)
	}
	sort.Slice(employees, func(i, j int) bool {
		return employees[i].ID < employees[j].ID
	})
	return employees, nil
}

// ------------------------------- Settings --------------------------------

// GetSettings implements persistence.SettingsRepository.
func (s *MemoryStore) GetSettings(_ context.Context) (persistence.CompanySettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		return persistence.CompanySettings{}, persistence.ErrNotFound
	}
	return *s.settings, nil
}

// SaveSettings implements persistence.SettingsRepository.
func (s *MemoryStore) SaveSettings(_ context.Context, settings persistence.CompanySettings) (persistence.CompanySettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings.UpdatedAt = s.now().UTC()
	copied := settings
	s.settings = &copied
	return settings, nil
}

// -------------------------------- Series ---------------------------------

// CreateSeries implements persistence.RecurrenceRepository.
func (s *MemoryStore) CreateSeries(_ context.Context, series persistence.RecurringSeries) (persistence.RecurringSeries, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.series[series.ID]; exists {
		return persistence.RecurringSeries{}, persistence.ErrDuplicate
	}
	now := s.now().UTC()
	series.CreatedAt = now
	series.UpdatedAt = now
	s.series[series.ID] = series
	return series, nil
}

// GetSeries implements persistence.RecurrenceRepository.
func (s *MemoryStore) GetSeries(_ context.Context, id string) (persistence.RecurringSeries, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	series, ok := s.series[id]
	if !ok {
		return persistence.RecurringSeries{}, persistence.ErrNotFound
	}
	return series, nil
}

// ListActiveSeries implements persistence.RecurrenceRepository.
func (s *MemoryStore) ListActiveSeries(_ context.Context, reference time.Time) ([]persistence.RecurringSeries, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var active []persistence.RecurringSeries
	for _, series := range s.series {
		if series.NextOccurrence == nil || series.NextOccurrence.After(reference) {
			continue
		}
		if series.GeneratedCount >= series.MaxOccurrences {
			continue
		}
		active = append(active, series)
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].ID < active[j].ID
	})
	return active, nil
}

// UpdateSeriesProgress implements persistence.RecurrenceRepository.
func (s *MemoryStore) UpdateSeriesProgress(_ context.Context, id string, generated int, next *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	series, ok := s.series[id]
	if !ok {
		return persistence.ErrNotFound
	}
	series.GeneratedCount = generated
	series.NextOccurrence = copyTimePtr(next)
	series.UpdatedAt = s.now().UTC()
	s.series[id] = series
	return nil
}

// DeleteSeries implements persistence.RecurrenceRepository.
func (s *MemoryStore) DeleteSeries(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.series[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.series, id)
	return nil
}

// ------------------------------- Sessions --------------------------------

// CreateSession implements persistence.SessionRepository.
func (s *MemoryStore) CreateSession(_ context.Context, session persistence.Session) (persistence.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.ID]; exists {
		return persistence.Session{}, persistence.ErrDuplicate
	}
	for _, existing := range s.sessions {
		if existing.Token == session.Token {
			return persistence.Session{}, persistence.ErrDuplicate
		}
	}
	session.CreatedAt = s.now().UTC()
	s.sessions[session.ID] = session
	return session, nil
}

// GetSession implements persistence.SessionRepository.
func (s *MemoryStore) GetSession(_ context.Context, token string) (persistence.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		if session.Token == token {
			return session, nil
		}
	}
	return persistence.Session{}, persistence.ErrNotFound
}

// RevokeSession implements persistence.SessionRepository.
func (s *MemoryStore) RevokeSession(_ context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.sessions {
		if session.Token != token {
			continue
		}
		if session.RevokedAt == nil {
			revoked := revokedAt
			session.RevokedAt = &revoked
			s.sessions[id] = session
		}
		return s.sessions[id], nil
	}
	return persistence.Session{}, persistence.ErrNotFound
}

// DeleteExpiredSessions implements persistence.SessionRepository.
func (s *MemoryStore) DeleteExpiredSessions(_ context.Context, reference time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.sessions {
		if session.ExpiresAt.Before(reference) {
			delete(s.sessions, id)
		}
	}
	return nil
}

func containsStatus(statuses []persistence.EventStatus, status persistence.EventStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
