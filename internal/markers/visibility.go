package markers

import (
	"sync"
	"time"
)

// VisibilityState is the tooltip display state of one marker.
type VisibilityState int

const (
	// Hidden means the tooltip is not displayed.
	Hidden VisibilityState = iota
	// ShownTransient means the tooltip is displayed because the pointer is
	// over the marker or tooltip; it hides after a short debounce once the
	// pointer leaves both.
	ShownTransient
	// ShownPinned means the tooltip was pinned by a click and stays visible
	// until clicked again or dismissed by an outside click.
	ShownPinned
)

// DefaultHideDelay matches the debounce used to avoid flicker when the
// pointer crosses from the marker to the tooltip.
const DefaultHideDelay = 100 * time.Millisecond

// HideScheduler arms the debounced hide and returns a cancel function.
type HideScheduler func(delay time.Duration, fire func()) (cancel func())

func defaultHideScheduler(delay time.Duration, fire func()) func() {
	timer := time.AfterFunc(delay, fire)
	return func() { timer.Stop() }
}

// VisibilityConfig customizes a Visibility machine. Zero values select the
// default hide delay and a time.AfterFunc based scheduler.
type VisibilityConfig struct {
	HideDelay time.Duration
	Scheduler HideScheduler
	// OnShow fires on every transition into a shown state, so the host can
	// display the tooltip and recompute its anchor offset.
	OnShow func()
	// OnHide fires on every transition into Hidden.
	OnHide func()
}

// Visibility is the per-marker hover/click state machine. All events are
// host page callbacks on a single goroutine, but the debounce timer fires on
// its own, hence the lock.
type Visibility struct {
	delay    time.Duration
	schedule HideScheduler
	onShow   func()
	onHide   func()

	mu         sync.Mutex
	state      VisibilityState
	cancelHide func()
}

// NewVisibility returns a machine in the Hidden state.
func NewVisibility(cfg VisibilityConfig) *Visibility {
	delay := cfg.HideDelay
	if delay <= 0 {
		delay = DefaultHideDelay
	}
	schedule := cfg.Scheduler
	if schedule == nil {
		schedule = defaultHideScheduler
	}
	return &Visibility{
		delay:    delay,
		schedule: schedule,
		onShow:   cfg.OnShow,
		onHide:   cfg.OnHide,
	}
}

// State returns the current visibility state.
func (v *Visibility) State() VisibilityState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// PointerEnter handles the pointer entering the marker or the tooltip. Any
// pending hide is cancelled so crossing between the two never flickers.
func (v *Visibility) PointerEnter() {
	v.mu.Lock()
	v.cancelPendingHideLocked()
	show := v.state == Hidden
	if show {
		v.state = ShownTransient
	}
	v.mu.Unlock()

	if show && v.onShow != nil {
		v.onShow()
	}
}

// PointerLeave handles the pointer leaving the marker or the tooltip. A
// transient tooltip hides after the debounce unless the pointer re-enters
// first; a pinned tooltip stays.
func (v *Visibility) PointerLeave() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != ShownTransient {
		return
	}
	v.cancelPendingHideLocked()
	v.cancelHide = v.schedule(v.delay, v.hideIfTransient)
}

// Click toggles the pin: an unpinned marker pins its tooltip open, a pinned
// one hides it.
func (v *Visibility) Click() {
	v.mu.Lock()
	v.cancelPendingHideLocked()
	var show, hide bool
	if v.state == ShownPinned {
		v.state = Hidden
		hide = true
	} else {
		show = v.state == Hidden
		v.state = ShownPinned
	}
	v.mu.Unlock()

	if show && v.onShow != nil {
		v.onShow()
	}
	if hide && v.onHide != nil {
		v.onHide()
	}
}

// OutsideClick dismisses the tooltip regardless of pinning.
func (v *Visibility) OutsideClick() {
	v.mu.Lock()
	v.cancelPendingHideLocked()
	hide := v.state != Hidden
	v.state = Hidden
	v.mu.Unlock()

	if hide && v.onHide != nil {
		v.onHide()
	}
}

func (v *Visibility) hideIfTransient() {
	v.mu.Lock()
	if v.state != ShownTransient {
		v.mu.Unlock()
		return
	}
	v.state = Hidden
	v.cancelHide = nil
	v.mu.Unlock()

	if v.onHide != nil {
		v.onHide()
	}
}

func (v *Visibility) cancelPendingHideLocked() {
	if v.cancelHide != nil {
		v.cancelHide()
		v.cancelHide = nil
	}
}
