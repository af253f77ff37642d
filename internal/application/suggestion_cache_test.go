package application

import (
	"testing"
	"time"

	"github.com/tradesmatepro/fieldsched/internal/scheduler"
)

func TestSuggestionCache(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)
	slots := []scheduler.TimeSlot{{Start: base, End: base.Add(time.Hour), EmployeeID: "emp-1"}}

	t.Run("round-trips within the TTL", func(t *testing.T) {
		t.Parallel()

		now := base
		cache := newSuggestionCache(30*time.Second, 4, func() time.Time { return now })

		cache.Store("key", slots)
		got, ok := cache.Get("key")
		if !ok || len(got) != 1 {
			t.Fatalf("expected a cache hit, got %v %v", got, ok)
		}

		// The cached copy is isolated from caller mutation.
		got[0].EmployeeID = "mutated"
		fresh, ok := cache.Get("key")
		if !ok || fresh[0].EmployeeID != "emp-1" {
			t.Fatalf("expected the stored slots untouched, got %+v", fresh)
		}
	})

	t.Run("expires entries after the TTL", func(t *testing.T) {
		t.Parallel()

		now := base
		cache := newSuggestionCache(30*time.Second, 4, func() time.Time { return now })

		cache.Store("key", slots)
		now = now.Add(31 * time.Second)
		if _, ok := cache.Get("key"); ok {
			t.Fatalf("expected the entry to expire")
		}
	})

	t.Run("invalidate drops everything", func(t *testing.T) {
		t.Parallel()

		cache := newSuggestionCache(time.Minute, 4, func() time.Time { return base })
		cache.Store("a", slots)
		cache.Store("b", slots)
		cache.Invalidate()
		if _, ok := cache.Get("a"); ok {
			t.Fatalf("expected a to be gone")
		}
		if _, ok := cache.Get("b"); ok {
			t.Fatalf("expected b to be gone")
		}
	})

	t.Run("bounded size evicts an entry", func(t *testing.T) {
		t.Parallel()

		cache := newSuggestionCache(time.Minute, 2, func() time.Time { return base })
		cache.Store("a", slots)
		cache.Store("b", slots)
		cache.Store("c", slots)

		hits := 0
		for _, key := range []string{"a", "b", "c"} {
			if _, ok := cache.Get(key); ok {
				hits++
			}
		}
		if hits != 2 {
			t.Fatalf("expected the cache capped at 2 entries, got %d hits", hits)
		}
	})
}

func TestBuildSuggestionCacheKey(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	a := buildSuggestionCacheKey(SuggestParams{
		EmployeeIDs:     []string{"emp-2", "emp-1"},
		DurationMinutes: 60,
		WindowStart:     start,
		WindowEnd:       end,
	})
	b := buildSuggestionCacheKey(SuggestParams{
		EmployeeIDs:     []string{"emp-1", "emp-2"},
		DurationMinutes: 60,
		WindowStart:     start,
		WindowEnd:       end,
	})
	if a != b {
		t.Fatalf("employee order must not change the key: %q vs %q", a, b)
	}

	weekend := buildSuggestionCacheKey(SuggestParams{
		EmployeeIDs:     []string{"emp-1", "emp-2"},
		DurationMinutes: 60,
		WindowStart:     start,
		WindowEnd:       end,
		WeekendsOnly:    true,
	})
	if weekend == a {
		t.Fatalf("the weekend preference must be part of the key")
	}
}
