package monitor

import (
	"context"
	"time"
)

type EventKind string

const (
	ServiceRecovered EventKind = "service_recovered"
	ServiceDown      EventKind = "service_down"
	AutoPublished    EventKind = "auto_published"
)

// Action is a remediation an operator may take on a ServiceDown event.
type Action string

const (
	ActionAcknowledge Action = "Acknowledge"
	ActionAllGood     Action = "All good"
	ActionPublish     Action = "Publish"
)

// DownActions are offered with every ServiceDown event.
var DownActions = []Action{ActionAcknowledge, ActionAllGood, ActionPublish}

// Event is a notification for the presentation layer.
type Event struct {
	ID      string
	Kind    EventKind
	Service string
	At      time.Time

	// Actions is only set for ServiceDown.
	Actions []Action

	// Downtime is only set for ServiceRecovered.
	Downtime time.Duration
}

// Publisher delivers events to humans.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, ev Event) error

func (f PublisherFunc) Publish(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}
