package supervisor

import "time"

// restartBudget bounds restart attempts to max per window. The window resets
// lazily: the first attempt after an expired window starts a fresh one. Not
// safe for concurrent use; callers hold the supervisor lock.
type restartBudget struct {
	max         int
	window      time.Duration
	windowStart time.Time
	attempts    int
}

func newRestartBudget(max int, window time.Duration) *restartBudget {
	return &restartBudget{max: max, window: window}
}

// allow reports whether another restart fits the budget, recording the
// attempt when it does. Denied checks do not consume budget.
func (b *restartBudget) allow(now time.Time) bool {
	if b.windowStart.IsZero() || now.Sub(b.windowStart) > b.window {
		b.windowStart = now
		b.attempts = 0
	}
	if b.attempts >= b.max {
		return false
	}
	b.attempts++
	return true
}
