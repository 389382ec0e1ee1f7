package notifier

import (
	"context"
	"time"
)

// Event types.
const (
	EventBacktestCompleted = "backtest.completed"
)

// Event is a notification about something the service finished.
type Event struct {
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data"`
}

// Config holds notifier configuration
type Config struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration // Zero selects the notifier default
}

// Notifier delivers events to an external endpoint.
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Init initializes the notifier with configuration
	Init(cfg Config) error

	// Send delivers one event
	Send(ctx context.Context, event Event) error
}
