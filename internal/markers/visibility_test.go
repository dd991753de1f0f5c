package markers

import (
	"testing"
	"time"
)

// manualHide captures the armed hide so tests control when the debounce
// fires.
type manualHide struct {
	fire      func()
	cancelled int
	armed     int
}

func (m *manualHide) scheduler() HideScheduler {
	return func(delay time.Duration, fire func()) func() {
		m.armed++
		m.fire = fire
		return func() {
			m.cancelled++
			m.fire = nil
		}
	}
}

func (m *manualHide) fireNow(t *testing.T) {
	t.Helper()
	if m.fire == nil {
		t.Fatalf("no hide timer armed")
	}
	fire := m.fire
	m.fire = nil
	fire()
}

func newTestVisibility(t *testing.T) (*Visibility, *manualHide, *int, *int) {
	t.Helper()
	hide := &manualHide{}
	shows, hides := 0, 0
	visibility := NewVisibility(VisibilityConfig{
		Scheduler: hide.scheduler(),
		OnShow:    func() { shows++ },
		OnHide:    func() { hides++ },
	})
	return visibility, hide, &shows, &hides
}

func TestHoverShowsThenHidesAfterDebounce(t *testing.T) {
	visibility, hide, shows, hides := newTestVisibility(t)

	visibility.PointerEnter()
	if visibility.State() != ShownTransient {
		t.Fatalf("expected ShownTransient, got %v", visibility.State())
	}
	if *shows != 1 {
		t.Fatalf("expected one show callback, got %d", *shows)
	}

	visibility.PointerLeave()
	if visibility.State() != ShownTransient {
		t.Fatalf("tooltip must stay visible until the debounce fires")
	}
	hide.fireNow(t)
	if visibility.State() != Hidden {
		t.Fatalf("expected Hidden after debounce, got %v", visibility.State())
	}
	if *hides != 1 {
		t.Fatalf("expected one hide callback, got %d", *hides)
	}
}

func TestPointerReenterCancelsPendingHide(t *testing.T) {
	visibility, hide, shows, _ := newTestVisibility(t)

	visibility.PointerEnter()
	visibility.PointerLeave()
	// Crossing from the marker onto the tooltip.
	visibility.PointerEnter()

	if hide.cancelled != 1 {
		t.Fatalf("expected the pending hide to be cancelled, got %d", hide.cancelled)
	}
	if visibility.State() != ShownTransient {
		t.Fatalf("expected tooltip to stay shown, got %v", visibility.State())
	}
	if *shows != 1 {
		t.Fatalf("re-enter of a visible tooltip must not re-show, got %d", *shows)
	}
}

func TestClickPinsAndUnpins(t *testing.T) {
	visibility, hide, shows, hides := newTestVisibility(t)

	visibility.Click()
	if visibility.State() != ShownPinned {
		t.Fatalf("expected ShownPinned, got %v", visibility.State())
	}
	if *shows != 1 {
		t.Fatalf("expected one show callback, got %d", *shows)
	}

	// A pinned tooltip ignores hover departures.
	visibility.PointerLeave()
	if hide.armed != 0 {
		t.Fatalf("pinned tooltip must not arm the hide timer")
	}

	visibility.Click()
	if visibility.State() != Hidden {
		t.Fatalf("expected second click to hide, got %v", visibility.State())
	}
	if *hides != 1 {
		t.Fatalf("expected one hide callback, got %d", *hides)
	}
}

func TestHoverThenClickUpgradesToPinned(t *testing.T) {
	visibility, hide, shows, _ := newTestVisibility(t)

	visibility.PointerEnter()
	visibility.PointerLeave()
	visibility.Click()

	if visibility.State() != ShownPinned {
		t.Fatalf("expected ShownPinned, got %v", visibility.State())
	}
	if hide.cancelled != 1 {
		t.Fatalf("click must cancel the pending transient hide")
	}
	if *shows != 1 {
		t.Fatalf("already-visible tooltip must not re-show, got %d", *shows)
	}
}

func TestOutsideClickDismissesPinned(t *testing.T) {
	visibility, _, _, hides := newTestVisibility(t)

	visibility.Click()
	visibility.OutsideClick()

	if visibility.State() != Hidden {
		t.Fatalf("expected Hidden after outside click, got %v", visibility.State())
	}
	if *hides != 1 {
		t.Fatalf("expected one hide callback, got %d", *hides)
	}

	// Outside click while already hidden stays silent.
	visibility.OutsideClick()
	if *hides != 1 {
		t.Fatalf("outside click while hidden must not fire callbacks")
	}
}

func TestDebounceFiringLateIsHarmless(t *testing.T) {
	visibility, hide, _, hides := newTestVisibility(t)

	visibility.PointerEnter()
	visibility.PointerLeave()
	fire := hide.fire
	visibility.Click()

	// The click cancelled the manual timer, but even a stale fire must not
	// hide a pinned tooltip.
	if fire != nil {
		fire()
	}
	if visibility.State() != ShownPinned {
		t.Fatalf("stale debounce must not hide a pinned tooltip, got %v", visibility.State())
	}
	if *hides != 0 {
		t.Fatalf("unexpected hide callback")
	}
}
