// Package obs wraps zerolog for this module's mutation and validation
// logging: For attaches a component field, and WithCalendar/WithEvent
// attach calendar_uid and event_uid fields.
package obs

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	base     zerolog.Logger
	baseOnce sync.Once
)

// Logger returns the process-wide base logger, initialized lazily with a
// console writer suitable for development use.
func Logger() zerolog.Logger {
	baseOnce.Do(func() {
		base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	})
	return base
}

// For returns a logger scoped to component, e.g. "calendar", "event",
// "query".
func For(component string) zerolog.Logger {
	return Logger().With().Str("component", component).Logger()
}

// WithCalendar attaches a calendar_uid field.
func WithCalendar(l zerolog.Logger, calendarUID string) zerolog.Logger {
	return l.With().Str("calendar_uid", calendarUID).Logger()
}

// WithEvent attaches an event_uid field.
func WithEvent(l zerolog.Logger, eventUID string) zerolog.Logger {
	return l.With().Str("event_uid", eventUID).Logger()
}
