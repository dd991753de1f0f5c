package engine

// Scheduler defers render fan-out to a point where the host layout has
// settled, the way a rendering framework defers DOM updates to the next
// frame. Implementations must eventually run every scheduled function.
type Scheduler interface {
	Schedule(flush func())
}

type immediateScheduler struct{}

// ImmediateScheduler runs scheduled flushes synchronously. Hosts with a real
// frame boundary supply their own Scheduler.
func ImmediateScheduler() Scheduler {
	return immediateScheduler{}
}

func (immediateScheduler) Schedule(flush func()) {
	flush()
}
