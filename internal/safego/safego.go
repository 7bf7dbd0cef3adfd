// Package safego launches background goroutines that survive panics.
package safego

import "log/slog"

// Go runs fn in a new goroutine, recovering and logging any panic with the
// given task name instead of crashing the process. Use it for fire-and-forget
// work (audit shipping, async cleanup) where an unrecovered panic would
// silently kill the goroutine forever.
func Go(task string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("recovered panic in background goroutine", "task", task, "panic", r)
			}
		}()
		fn()
	}()
}
