package sqlite

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/tradesmatepro/fieldsched/internal/persistence"
)

// defaultSettingsID keys the single policy row of a deployment; the service
// runs one company per instance.
const defaultSettingsID = "default"

// SettingsRepository implements persistence.SettingsRepository.
type SettingsRepository struct {
	pool *ConnectionPool
	now  func() time.Time
}

// NewSettingsRepository creates a settings repository.
func NewSettingsRepository(pool *ConnectionPool, now func() time.Time) *SettingsRepository {
	if now == nil {
		now = time.Now
	}
	return &SettingsRepository{pool: pool, now: now}
}

// GetSettings loads the company scheduling policy.
func (r *SettingsRepository) GetSettings(ctx context.Context) (persistence.CompanySettings, error) {
	row := r.pool.db.QueryRowContext(ctx, `
		SELECT id, business_hours_start, business_hours_end, buffer_before_minutes,
		       buffer_after_minutes, working_days, nights_weekends,
		       min_advance_booking_hours, max_advance_booking_days, updated_at
		FROM company_settings WHERE id = ?`, defaultSettingsID)

	var (
		settings       persistence.CompanySettings
		workingDays    string
		nightsWeekends bool
		updatedAt      string
	)
	err := row.Scan(&settings.ID, &settings.BusinessHoursStart, &settings.BusinessHoursEnd,
		&settings.BufferBeforeMinutes, &settings.BufferAfterMinutes, &workingDays,
		&nightsWeekends, &settings.MinAdvanceBookingHours, &settings.MaxAdvanceBookingDays,
		&updatedAt)
	if err != nil {
		return persistence.CompanySettings{}, mapError(err)
	}

	settings.NightsWeekends = nightsWeekends
	if settings.WorkingDays, err = parseWorkingDays(workingDays); err != nil {
		return persistence.CompanySettings{}, err
	}
	if settings.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.CompanySettings{}, err
	}
	return settings, nil
}

// SaveSettings upserts the policy row. The scheduling core never calls this;
// it exists for the external settings workflow and first-run seeding.
func (r *SettingsRepository) SaveSettings(ctx context.Context, settings persistence.CompanySettings) (persistence.CompanySettings, error) {
	settings.ID = defaultSettingsID
	settings.UpdatedAt = r.now().UTC()

	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO company_settings (id, business_hours_start, business_hours_end,
			buffer_before_minutes, buffer_after_minutes, working_days, nights_weekends,
			min_advance_booking_hours, max_advance_booking_days, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			business_hours_start = excluded.business_hours_start,
			business_hours_end = excluded.business_hours_end,
			buffer_before_minutes = excluded.buffer_before_minutes,
			buffer_after_minutes = excluded.buffer_after_minutes,
			working_days = excluded.working_days,
			nights_weekends = excluded.nights_weekends,
			min_advance_booking_hours = excluded.min_advance_booking_hours,
			max_advance_booking_days = excluded.max_advance_booking_days,
			updated_at = excluded.updated_at`,
		settings.ID,
		settings.BusinessHoursStart,
		settings.BusinessHoursEnd,
		settings.BufferBeforeMinutes,
		settings.BufferAfterMinutes,
		formatWorkingDays(settings.WorkingDays),
		settings.NightsWeekends,
		settings.MinAdvanceBookingHours,
		settings.MaxAdvanceBookingDays,
		formatTime(settings.UpdatedAt),
	)
	if err != nil {
		return persistence.CompanySettings{}, mapError(err)
	}
	return settings, nil
}

func formatWorkingDays(days []time.Weekday) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(int(d))
	}
	return strings.Join(parts, ",")
}

func parseWorkingDays(v string) ([]time.Weekday, error) {
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}
	parts := strings.Split(v, ",")
	days := make([]time.Weekday, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 6 {
			return nil, persistence.ErrConstraintViolation
		}
		days = append(days, time.Weekday(n))
	}
	return days, nil
}
