// Package safego launches background goroutines that survive panics.
package safego

import "log/slog"

// Go runs fn on its own goroutine and converts a panic into an error log
// instead of a process crash. Fire-and-forget work (audit record writes,
// cache invalidation, notification sends) goes through here so a bug in one
// async path never takes the gateway down or silently kills the goroutine.
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("recovered panic in background goroutine", "panic", r)
			}
		}()
		fn()
	}()
}
