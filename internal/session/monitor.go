package session

import (
	"context"
	"time"
)

// idleMonitor counts poll intervals with zero connected clients and fires
// once the accumulated idle time reaches the timeout. Any interval with at
// least one client resets the counter. A zero timeout disables the monitor.
type idleMonitor struct {
	interval time.Duration
	timeout  time.Duration
	clients  func(context.Context) int
	onIdle   func(int)
	onExpire func()
}

// run blocks until ctx is cancelled or the timeout fires (after which it
// calls onExpire exactly once and returns).
func (m *idleMonitor) run(ctx context.Context) {
	if m.timeout <= 0 {
		return
	}
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	var idle time.Duration
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if m.clients(ctx) > 0 {
			idle = 0
		} else {
			idle += m.interval
		}
		if m.onIdle != nil {
			m.onIdle(int(idle / time.Second))
		}
		if idle >= m.timeout {
			m.onExpire()
			return
		}
	}
}
