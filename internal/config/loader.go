package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tradesmatepro/fieldsched/internal/scheduler"
)

// Config captures environment driven configuration values for the service.
type Config struct {
	HTTPPort         int
	SQLiteDSN        string
	SessionTTL       time.Duration
	SearchWindowDays int
	// SchedulingDefaultsPath optionally points at a YAML file whose values
	// seed the company scheduling policy on first boot.
	SchedulingDefaultsPath string
}

// SchedulingDefaults mirrors the optional YAML policy file. Zero values fall
// back to the built-in product defaults.
type SchedulingDefaults struct {
	BusinessHoursStart  string  `yaml:"business_hours_start"`
	BusinessHoursEnd    string  `yaml:"business_hours_end"`
	BufferBeforeMinutes int     `yaml:"buffer_before_minutes"`
	BufferAfterMinutes  int     `yaml:"buffer_after_minutes"`
	WorkingDays         []int   `yaml:"working_days"`
	NightsWeekends      *bool   `yaml:"nights_weekends"`
	MinAdvanceHours     int     `yaml:"min_advance_hours"`
	MaxAdvanceDays      int     `yaml:"max_advance_days"`
	CapacityHoursPerDay float64 `yaml:"capacity_hours_per_day"`
}

// Load parses configuration values from the current process environment.
//
// The loader applies sensible defaults for optional fields while validating
// anything that is present but malformed.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:         8080,
		SQLiteDSN:        "file:fieldsched.db?_foreign_keys=on",
		SessionTTL:       24 * time.Hour,
		SearchWindowDays: 7,
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("FIELDSCHED_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "FIELDSCHED_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("FIELDSCHED_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if ttlValue := strings.TrimSpace(os.Getenv("FIELDSCHED_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "FIELDSCHED_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if windowValue := strings.TrimSpace(os.Getenv("FIELDSCHED_SEARCH_WINDOW_DAYS")); windowValue != "" {
		days, err := strconv.Atoi(windowValue)
		if err != nil || days <= 0 {
			invalid = append(invalid, "FIELDSCHED_SEARCH_WINDOW_DAYS")
		} else {
			cfg.SearchWindowDays = days
		}
	}

	cfg.SchedulingDefaultsPath = strings.TrimSpace(os.Getenv("FIELDSCHED_SCHEDULING_DEFAULTS"))

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// LoadSchedulingDefaults reads the YAML policy file referenced by the config,
// overlaying its values onto the built-in defaults. An empty path returns the
// built-in defaults unchanged.
func (c Config) LoadSchedulingDefaults() (scheduler.Settings, error) {
	settings := scheduler.DefaultSettings()
	if c.SchedulingDefaultsPath == "" {
		return settings, nil
	}

	raw, err := os.ReadFile(c.SchedulingDefaultsPath)
	if err != nil {
		return scheduler.Settings{}, fmt.Errorf("read scheduling defaults: %w", err)
	}

	var overlay SchedulingDefaults
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return scheduler.Settings{}, fmt.Errorf("parse scheduling defaults: %w", err)
	}

	if overlay.BusinessHoursStart != "" {
		settings.BusinessHoursStart = overlay.BusinessHoursStart
	}
	if overlay.BusinessHoursEnd != "" {
		settings.BusinessHoursEnd = overlay.BusinessHoursEnd
	}
	if overlay.BufferBeforeMinutes > 0 {
		settings.BufferBefore = time.Duration(overlay.BufferBeforeMinutes) * time.Minute
	}
	if overlay.BufferAfterMinutes > 0 {
		settings.BufferAfter = time.Duration(overlay.BufferAfterMinutes) * time.Minute
	}
	if len(overlay.WorkingDays) > 0 {
		days := make([]time.Weekday, 0, len(overlay.WorkingDays))
		for _, d := range overlay.WorkingDays {
			if d < 0 || d > 6 {
				return scheduler.Settings{}, fmt.Errorf("scheduling defaults: working day %d out of range", d)
			}
			days = append(days, time.Weekday(d))
		}
		settings.WorkingDays = days
	}
	if overlay.NightsWeekends != nil {
		settings.NightsWeekends = *overlay.NightsWeekends
	}
	if overlay.MinAdvanceHours > 0 {
		settings.MinAdvance = time.Duration(overlay.MinAdvanceHours) * time.Hour
	}
	if overlay.MaxAdvanceDays > 0 {
		settings.MaxAdvanceDays = overlay.MaxAdvanceDays
	}
	if overlay.CapacityHoursPerDay > 0 {
		settings.CapacityHoursPerDay = overlay.CapacityHoursPerDay
	}

	return settings, nil
}
