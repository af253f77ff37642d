package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/tradesmatepro/fieldsched/internal/persistence"
)

// RecurrenceRepository implements persistence.RecurrenceRepository.
type RecurrenceRepository struct {
	pool *ConnectionPool
	now  func() time.Time
}

// NewRecurrenceRepository creates a recurrence repository.
func NewRecurrenceRepository(pool *ConnectionPool, now func() time.Time) *RecurrenceRepository {
	if now == nil {
		now = time.Now
	}
	return &RecurrenceRepository{pool: pool, now: now}
}

const seriesColumns = `id, template_event_id, frequency, interval, end_date,
	max_occurrences, generated_count, next_occurrence, created_at, updated_at`

// CreateSeries persists a new series master record.
func (r *RecurrenceRepository) CreateSeries(ctx context.Context, series persistence.RecurringSeries) (persistence.RecurringSeries, error) {
	now := r.now().UTC()
	series.CreatedAt = now
	series.UpdatedAt = now

	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO recurring_series (`+seriesColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		series.ID,
		series.TemplateEventID,
		series.Frequency,
		series.Interval,
		formatTimePtr(series.EndDate),
		series.MaxOccurrences,
		series.GeneratedCount,
		formatTimePtr(series.NextOccurrence),
		formatTime(series.CreatedAt),
		formatTime(series.UpdatedAt),
	)
	if err != nil {
		return persistence.RecurringSeries{}, mapError(err)
	}
	return series, nil
}

// GetSeries loads a series by id.
func (r *RecurrenceRepository) GetSeries(ctx context.Context, id string) (persistence.RecurringSeries, error) {
	row := r.pool.db.QueryRowContext(ctx,
		`SELECT `+seriesColumns+` FROM recurring_series WHERE id = ?`, id)
	return scanSeries(row)
}

// ListActiveSeries returns series whose next occurrence falls on or before the
// reference time and that have occurrences left to generate. The rolling
// materialization job polls this.
func (r *RecurrenceRepository) ListActiveSeries(ctx context.Context, reference time.Time) ([]persistence.RecurringSeries, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT `+seriesColumns+` FROM recurring_series
		WHERE next_occurrence IS NOT NULL
		  AND next_occurrence <= ?
		  AND generated_count < max_occurrences
		ORDER BY next_occurrence, id`,
		formatTime(reference))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []persistence.RecurringSeries
	for rows.Next() {
		series, err := scanSeries(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, series)
	}
	return out, rows.Err()
}

// UpdateSeriesProgress records how far materialization has advanced.
func (r *RecurrenceRepository) UpdateSeriesProgress(ctx context.Context, id string, generated int, next *time.Time) error {
	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE recurring_series
		SET generated_count = ?, next_occurrence = ?, updated_at = ?
		WHERE id = ?`,
		generated, formatTimePtr(next), formatTime(r.now().UTC()), id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// DeleteSeries removes a series master record. Generated events stay.
func (r *RecurrenceRepository) DeleteSeries(ctx context.Context, id string) error {
	result, err := r.pool.db.ExecContext(ctx,
		`DELETE FROM recurring_series WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func scanSeries(row rowScanner) (persistence.RecurringSeries, error) {
	var (
		series         persistence.RecurringSeries
		endDate        sql.NullString
		nextOccurrence sql.NullString
		createdAt      string
		updatedAt      string
	)
	err := row.Scan(&series.ID, &series.TemplateEventID, &series.Frequency,
		&series.Interval, &endDate, &series.MaxOccurrences, &series.GeneratedCount,
		&nextOccurrence, &createdAt, &updatedAt)
	if err != nil {
		return persistence.RecurringSeries{}, mapError(err)
	}
	if series.EndDate, err = parseTimePtr(endDate); err != nil {
		return persistence.RecurringSeries{}, err
	}
	if series.NextOccurrence, err = parseTimePtr(nextOccurrence); err != nil {
		return persistence.RecurringSeries{}, err
	}
	if series.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.RecurringSeries{}, err
	}
	if series.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.RecurringSeries{}, err
	}
	return series, nil
}
