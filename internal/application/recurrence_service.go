package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tradesmatepro/fieldsched/internal/persistence"
	"github.com/tradesmatepro/fieldsched/internal/recurrence"
	"github.com/tradesmatepro/fieldsched/internal/scheduler"
)

// eagerBatchSize caps how many occurrences are materialized synchronously
// when a rule is attached. The rest are rolled forward by the periodic job.
const eagerBatchSize = 10

// rollForwardHorizon bounds how far ahead the periodic job materializes.
const rollForwardHorizon = 90 * 24 * time.Hour

// RecurrenceService turns a template event into a bounded series of future
// events. Each occurrence is validated against the calendar independently;
// conflicting occurrences are skipped with a warning rather than failing the
// whole series.
type RecurrenceService struct {
	series      persistence.RecurrenceRepository
	events      persistence.EventRepository
	store       persistence.SchedulingStore
	settings    persistence.SettingsRepository
	bookings    scheduler.BookingSource
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewRecurrenceService wires dependencies for recurrence operations.
func NewRecurrenceService(series persistence.RecurrenceRepository, events persistence.EventRepository, store persistence.SchedulingStore, settings persistence.SettingsRepository, bookings scheduler.BookingSource, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RecurrenceService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RecurrenceService{
		series:      series,
		events:      events,
		store:       store,
		settings:    settings,
		bookings:    bookings,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *RecurrenceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RecurrenceService", operation, attrs...)
}

// AttachRule makes an existing event recurring. The first occurrence is the
// template itself; the next batch is materialized eagerly and the remainder
// is left to the roll-forward job.
func (s *RecurrenceService) AttachRule(ctx context.Context, params AttachRecurrenceParams) (AttachRecurrenceResult, error) {
	if s == nil || s.series == nil || s.events == nil {
		return AttachRecurrenceResult{}, fmt.Errorf("recurrence repositories not configured")
	}

	template, err := s.events.GetEvent(ctx, params.EventID)
	if err != nil {
		return AttachRecurrenceResult{}, mapRepoError(err)
	}
	if template.EmployeeID != params.Principal.UserID && !params.Principal.CanDispatch() {
		return AttachRecurrenceResult{}, ErrUnauthorized
	}

	rule := recurrence.Rule{
		Frequency:   recurrence.Frequency(params.Frequency),
		Interval:    params.Interval,
		EndDate:     params.EndDate,
		Occurrences: params.Occurrences,
	}

	starts, err := recurrence.Generate(template.Start, rule)
	if err != nil {
		return AttachRecurrenceResult{}, err
	}

	logger := s.loggerWith(ctx, "AttachRule",
		"event_id", template.ID,
		"frequency", params.Frequency,
		"occurrences", len(starts),
	)

	series := persistence.RecurringSeries{
		ID:              s.idGenerator(),
		TemplateEventID: template.ID,
		Frequency:       string(rule.Frequency),
		Interval:        rule.Interval,
		EndDate:         rule.EndDate,
		MaxOccurrences:  rule.Cap(),
	}
	if series.Interval < 1 {
		series.Interval = 1
	}

	// The template event is occurrence zero; only later starts spawn events.
	future := starts
	if len(future) > 0 && future[0].Equal(template.Start) {
		future = future[1:]
	}

	batch := future
	if len(batch) > eagerBatchSize {
		batch = batch[:eagerBatchSize]
	}

	materialized, warnings, err := s.materialize(ctx, template, batch)
	if err != nil {
		return AttachRecurrenceResult{}, err
	}

	series.GeneratedCount = 1 + len(batch)
	if len(future) > len(batch) {
		next := future[len(batch)]
		series.NextOccurrence = &next
	}

	persisted, err := s.series.CreateSeries(ctx, series)
	if err != nil {
		return AttachRecurrenceResult{}, mapRepoError(err)
	}

	logger.With(
		"series_id", persisted.ID,
		"materialized", len(materialized),
		"skipped", len(warnings),
	).InfoContext(ctx, "recurrence attached")

	return AttachRecurrenceResult{
		Series:       persisted,
		Materialized: materialized,
		Warnings:     warnings,
	}, nil
}

// RemoveSeries deletes the series master record. Already generated events are
// left on the calendar.
func (s *RecurrenceService) RemoveSeries(ctx context.Context, principal Principal, seriesID string) error {
	if s == nil || s.series == nil {
		return fmt.Errorf("series repository not configured")
	}

	series, err := s.series.GetSeries(ctx, seriesID)
	if err != nil {
		return mapRepoError(err)
	}

	template, err := s.events.GetEvent(ctx, series.TemplateEventID)
	if err == nil {
		if template.EmployeeID != principal.UserID && !principal.CanDispatch() {
			return ErrUnauthorized
		}
	} else if !isNotFoundError(err) {
		return mapRepoError(err)
	}

	if err := s.series.DeleteSeries(ctx, seriesID); err != nil {
		return mapRepoError(err)
	}
	return nil
}

// RollForward advances every active series, materializing occurrences that
// have come within the horizon. The periodic job calls this with the current
// time.
func (s *RecurrenceService) RollForward(ctx context.Context, reference time.Time) error {
	if s == nil || s.series == nil {
		return fmt.Errorf("series repository not configured")
	}

	horizon := reference.Add(rollForwardHorizon)
	active, err := s.series.ListActiveSeries(ctx, horizon)
	if err != nil {
		return err
	}

	logger := s.loggerWith(ctx, "RollForward", "series", len(active))

	for _, series := range active {
		if err := s.rollForwardSeries(ctx, series, horizon); err != nil {
			logger.ErrorContext(ctx, "series roll-forward failed",
				"series_id", series.ID,
				"error", err,
			)
			// One broken series must not stall the rest.
			continue
		}
	}
	return nil
}

func (s *RecurrenceService) rollForwardSeries(ctx context.Context, series persistence.RecurringSeries, horizon time.Time) error {
	template, err := s.events.GetEvent(ctx, series.TemplateEventID)
	if err != nil {
		if isNotFoundError(err) {
			// Template deleted; retire the series.
			return s.series.DeleteSeries(ctx, series.ID)
		}
		return err
	}

	rule := recurrence.Rule{
		Frequency:   recurrence.Frequency(series.Frequency),
		Interval:    series.Interval,
		EndDate:     series.EndDate,
		Occurrences: series.MaxOccurrences,
	}
	starts, err := recurrence.Generate(template.Start, rule)
	if err != nil {
		return err
	}

	if series.GeneratedCount >= len(starts) {
		return s.series.UpdateSeriesProgress(ctx, series.ID, series.GeneratedCount, nil)
	}

	pending := starts[series.GeneratedCount:]
	batch := make([]time.Time, 0, eagerBatchSize)
	for _, start := range pending {
		if start.After(horizon) || len(batch) == eagerBatchSize {
			break
		}
		batch = append(batch, start)
	}
	if len(batch) == 0 {
		return nil
	}

	_, warnings, err := s.materialize(ctx, template, batch)
	if err != nil {
		return err
	}
	if len(warnings) > 0 {
		logger := s.loggerWith(ctx, "RollForward", "series_id", series.ID)
		for _, warning := range warnings {
			logger.WarnContext(ctx, "occurrence skipped", "reason", warning)
		}
	}

	generated := series.GeneratedCount + len(batch)
	var next *time.Time
	if generated < len(starts) {
		n := starts[generated]
		next = &n
	}
	return s.series.UpdateSeriesProgress(ctx, series.ID, generated, next)
}

// materialize turns occurrence start times into concrete events cloned from
// the template. An occurrence that conflicts with the employee's calendar is
// skipped and reported as a warning; the series keeps going.
func (s *RecurrenceService) materialize(ctx context.Context, template persistence.ScheduleEvent, starts []time.Time) ([]persistence.ScheduleEvent, []string, error) {
	if len(starts) == 0 {
		return nil, nil, nil
	}

	settings, err := loadSettings(ctx, s.settings)
	if err != nil {
		return nil, nil, err
	}

	duration := template.End.Sub(template.Start)
	now := s.now()

	var created []persistence.ScheduleEvent
	var warnings []string
	for _, start := range starts {
		end := start.Add(duration)

		conflicted, _, err := scheduler.FreshConflictCheck(ctx, s.bookings, template.EmployeeID, start, end, settings)
		if err != nil {
			return created, warnings, err
		}
		if conflicted {
			warnings = append(warnings, fmt.Sprintf("occurrence at %s skipped: technician already booked", start.Format(time.RFC3339)))
			continue
		}

		event := persistence.ScheduleEvent{
			ID:          s.idGenerator(),
			CustomerID:  template.CustomerID,
			EmployeeID:  template.EmployeeID,
			Title:       template.Title,
			Description: template.Description,
			Start:       start,
			End:         end,
			Status:      persistence.EventStatusScheduled,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		persisted, err := s.store.CommitScheduledEvent(ctx, event)
		if err != nil {
			return created, warnings, mapRepoError(err)
		}
		created = append(created, persisted)
	}
	return created, warnings, nil
}
