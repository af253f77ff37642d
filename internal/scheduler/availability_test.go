package scheduler

import (
	"context"
	"reflect"
	"testing"
	"time"
)

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// capacityStub maps employee IDs to individual daily capacities. A missing
// entry reads as zero, deferring to the company-wide setting.
type capacityStub map[string]float64

func (c capacityStub) CapacityForEmployee(_ context.Context, employeeID string) (float64, error) {
	return c[employeeID], nil
}

func TestRoundUpToIncrement(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   time.Time
		want time.Time
	}{
		{day(t, 9, 0), day(t, 9, 0)},
		{day(t, 9, 1), day(t, 9, 15)},
		{day(t, 9, 14), day(t, 9, 15)},
		{day(t, 9, 15), day(t, 9, 15)},
		{day(t, 9, 50), day(t, 10, 0)},
	}
	for _, tc := range tests {
		if got := RoundUpToIncrement(tc.in); !got.Equal(tc.want) {
			t.Fatalf("RoundUpToIncrement(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestEngine_Suggest(t *testing.T) {
	t.Parallel()

	// Monday 2024-01-01 at midnight; business hours start at 07:30.
	base := day(t, 0, 0)
	window := Window{Start: base, End: base.AddDate(0, 0, 1)}

	t.Run("enumerates quarter-hour slots inside business hours", func(t *testing.T) {
		t.Parallel()

		engine := NewEngine(&bookingStub{}, nil, fixedNow(base))
		suggestions, err := engine.Suggest(context.Background(), []string{"emp-1"}, 120, window, DefaultSettings())
		if err != nil {
			t.Fatalf("Suggest returned error: %v", err)
		}

		slots := suggestions["emp-1"]
		if len(slots) == 0 {
			t.Fatalf("expected slots on an empty calendar")
		}
		if !slots[0].Start.Equal(day(t, 7, 30)) {
			t.Fatalf("expected first slot at 07:30, got %v", slots[0].Start)
		}
		last := slots[len(slots)-1]
		if !last.Start.Equal(day(t, 15, 0)) || !last.End.Equal(day(t, 17, 0)) {
			t.Fatalf("expected last slot 15:00-17:00, got %v-%v", last.Start, last.End)
		}
		for _, s := range slots {
			if s.Start.Minute()%15 != 0 {
				t.Fatalf("slot start %v is not on a quarter-hour boundary", s.Start)
			}
			if s.EmployeeID != "emp-1" {
				t.Fatalf("slot carries wrong employee %q", s.EmployeeID)
			}
		}
	})

	t.Run("skips slots blocked by buffered bookings", func(t *testing.T) {
		t.Parallel()

		source := &bookingStub{bookings: map[string][]Booking{
			"emp-1": {{ID: "b", EmployeeID: "emp-1", Start: day(t, 9, 0), End: day(t, 11, 0)}},
		}}
		engine := NewEngine(source, nil, fixedNow(base))

		suggestions, err := engine.Suggest(context.Background(), []string{"emp-1"}, 120, window, DefaultSettings())
		if err != nil {
			t.Fatalf("Suggest returned error: %v", err)
		}

		slots := suggestions["emp-1"]
		if len(slots) == 0 {
			t.Fatalf("expected slots after the booking")
		}
		// 07:30 start would end 09:30, inside the buffered 08:30-11:30 block.
		if !slots[0].Start.Equal(day(t, 11, 30)) {
			t.Fatalf("expected first open slot at 11:30, got %v", slots[0].Start)
		}
	})

	t.Run("returns an empty list for a fully booked employee", func(t *testing.T) {
		t.Parallel()

		source := &bookingStub{bookings: map[string][]Booking{
			"emp-1": {{ID: "b", EmployeeID: "emp-1", Start: day(t, 7, 30), End: day(t, 17, 0)}},
		}}
		engine := NewEngine(source, nil, fixedNow(base))

		suggestions, err := engine.Suggest(context.Background(), []string{"emp-1"}, 60, window, DefaultSettings())
		if err != nil {
			t.Fatalf("Suggest returned error: %v", err)
		}
		if slots := suggestions["emp-1"]; len(slots) != 0 {
			t.Fatalf("expected no slots, got %d", len(slots))
		}
	})

	t.Run("enforces the daily capacity guard", func(t *testing.T) {
		t.Parallel()

		// Seven hours already booked; a 90 minute job would exceed 8h.
		source := &bookingStub{bookings: map[string][]Booking{
			"emp-1": {{ID: "b", EmployeeID: "emp-1", Start: day(t, 7, 30), End: day(t, 14, 30)}},
		}}
		engine := NewEngine(source, nil, fixedNow(base))

		suggestions, err := engine.Suggest(context.Background(), []string{"emp-1"}, 90, window, DefaultSettings())
		if err != nil {
			t.Fatalf("Suggest returned error: %v", err)
		}
		if slots := suggestions["emp-1"]; len(slots) != 0 {
			t.Fatalf("expected capacity to block all slots, got %d", len(slots))
		}
	})

	t.Run("an employee's own capacity overrides the company default", func(t *testing.T) {
		t.Parallel()

		// Three hours booked; under the 8h company default a 90 minute job
		// still fits, but emp-1 only works 4h days.
		source := &bookingStub{bookings: map[string][]Booking{
			"emp-1": {{ID: "b", EmployeeID: "emp-1", Start: day(t, 7, 30), End: day(t, 10, 30)}},
		}}
		engine := NewEngine(source, capacityStub{"emp-1": 4}, fixedNow(base))

		suggestions, err := engine.Suggest(context.Background(), []string{"emp-1"}, 90, window, DefaultSettings())
		if err != nil {
			t.Fatalf("Suggest returned error: %v", err)
		}
		if slots := suggestions["emp-1"]; len(slots) != 0 {
			t.Fatalf("expected the 4h personal capacity to block all slots, got %d", len(slots))
		}
	})

	t.Run("a zero personal capacity falls back to the company default", func(t *testing.T) {
		t.Parallel()

		source := &bookingStub{bookings: map[string][]Booking{
			"emp-1": {{ID: "b", EmployeeID: "emp-1", Start: day(t, 7, 30), End: day(t, 14, 30)}},
		}}
		engine := NewEngine(source, capacityStub{}, fixedNow(base))

		suggestions, err := engine.Suggest(context.Background(), []string{"emp-1"}, 90, window, DefaultSettings())
		if err != nil {
			t.Fatalf("Suggest returned error: %v", err)
		}
		// Seven hours booked plus 90 minutes exceeds the 8h default.
		if slots := suggestions["emp-1"]; len(slots) != 0 {
			t.Fatalf("expected the company capacity to block all slots, got %d", len(slots))
		}
	})

	t.Run("repeated searches over an unchanged calendar agree", func(t *testing.T) {
		t.Parallel()

		source := &bookingStub{bookings: map[string][]Booking{
			"emp-1": {{ID: "b", EmployeeID: "emp-1", Start: day(t, 9, 0), End: day(t, 11, 0)}},
		}}
		engine := NewEngine(source, nil, fixedNow(base))

		first, err := engine.Suggest(context.Background(), []string{"emp-1"}, 60, window, DefaultSettings())
		if err != nil {
			t.Fatalf("Suggest returned error: %v", err)
		}
		second, err := engine.Suggest(context.Background(), []string{"emp-1"}, 60, window, DefaultSettings())
		if err != nil {
			t.Fatalf("repeat Suggest returned error: %v", err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("identical searches disagree:\nfirst:  %v\nsecond: %v", first, second)
		}
	})

	t.Run("clamps the window to the advance booking policy", func(t *testing.T) {
		t.Parallel()

		now := day(t, 10, 0)
		engine := NewEngine(&bookingStub{}, nil, fixedNow(now))

		suggestions, err := engine.Suggest(context.Background(), []string{"emp-1"}, 60, window, DefaultSettings())
		if err != nil {
			t.Fatalf("Suggest returned error: %v", err)
		}
		slots := suggestions["emp-1"]
		if len(slots) == 0 {
			t.Fatalf("expected slots after the minimum advance")
		}
		if !slots[0].Start.Equal(day(t, 11, 0)) {
			t.Fatalf("expected first slot at 11:00 after the 1h advance, got %v", slots[0].Start)
		}
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		t.Parallel()

		engine := NewEngine(&bookingStub{}, nil, fixedNow(base))

		if _, err := engine.Suggest(context.Background(), []string{"emp-1"}, 0, window, DefaultSettings()); err != ErrInvalidDuration {
			t.Fatalf("expected ErrInvalidDuration, got %v", err)
		}
		if _, err := engine.Suggest(context.Background(), nil, 60, window, DefaultSettings()); err != ErrMissingEmployee {
			t.Fatalf("expected ErrMissingEmployee for empty employee list, got %v", err)
		}
		if _, err := engine.Suggest(context.Background(), []string{""}, 60, window, DefaultSettings()); err != ErrMissingEmployee {
			t.Fatalf("expected ErrMissingEmployee for blank employee, got %v", err)
		}
	})
}

func TestFlattenEarliest(t *testing.T) {
	t.Parallel()

	suggestions := map[string][]TimeSlot{
		"emp-b": {
			{Start: day(t, 9, 0), End: day(t, 10, 0), EmployeeID: "emp-b"},
			{Start: day(t, 13, 0), End: day(t, 14, 0), EmployeeID: "emp-b"},
		},
		"emp-a": {
			{Start: day(t, 9, 0), End: day(t, 10, 0), EmployeeID: "emp-a"},
			{Start: day(t, 11, 0), End: day(t, 12, 0), EmployeeID: "emp-a"},
		},
	}

	flattened := FlattenEarliest(suggestions)
	if len(flattened) != 4 {
		t.Fatalf("expected 4 slots, got %d", len(flattened))
	}
	// Equal starts break the tie by employee ID.
	if flattened[0].EmployeeID != "emp-a" || flattened[1].EmployeeID != "emp-b" {
		t.Fatalf("unexpected tie-break order: %q, %q", flattened[0].EmployeeID, flattened[1].EmployeeID)
	}
	if !flattened[2].Start.Equal(day(t, 11, 0)) || !flattened[3].Start.Equal(day(t, 13, 0)) {
		t.Fatalf("expected chronological order, got %v then %v", flattened[2].Start, flattened[3].Start)
	}
}

func TestWeekendOnly(t *testing.T) {
	t.Parallel()

	saturday := time.Date(2024, time.January, 6, 9, 0, 0, 0, time.UTC)
	slots := []TimeSlot{
		{Start: day(t, 9, 0), End: day(t, 10, 0), EmployeeID: "emp-1"},
		{Start: saturday, End: saturday.Add(time.Hour), EmployeeID: "emp-1"},
	}

	t.Run("rejected when the company does not offer weekend work", func(t *testing.T) {
		t.Parallel()

		if _, err := WeekendOnly(slots, DefaultSettings()); err != ErrWeekendUnsupported {
			t.Fatalf("expected ErrWeekendUnsupported, got %v", err)
		}
	})

	t.Run("keeps only weekend slots otherwise", func(t *testing.T) {
		t.Parallel()

		settings := DefaultSettings()
		settings.NightsWeekends = true

		filtered, err := WeekendOnly(slots, settings)
		if err != nil {
			t.Fatalf("WeekendOnly returned error: %v", err)
		}
		if len(filtered) != 1 || !filtered[0].Start.Equal(saturday) {
			t.Fatalf("expected only the Saturday slot, got %+v", filtered)
		}
	})
}
