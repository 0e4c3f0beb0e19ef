package service

import (
	"time"
)

// EventKind is a notification sent by the Supervisor to its presentation layer.
type EventKind int

const (
	EventStarted EventKind = iota + 1
	EventTimedOut
	EventCanceled
	EventSucceeded
	EventRejectedBusy
	// EventFailed reports a stage fault, it is never conflated with EventCanceled
	EventFailed
	// EventFinished is sent once the run is back to idle
	EventFinished
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "run-started"
	case EventTimedOut:
		return "run-timed-out"
	case EventCanceled:
		return "run-canceled"
	case EventSucceeded:
		return "run-succeeded"
	case EventRejectedBusy:
		return "run-rejected-busy"
	case EventFailed:
		return "run-failed"
	case EventFinished:
		return "run-finished"
	default:
		return "unknown"
	}
}

// Outcome is the terminal decision of a run. Only the first actor decides it.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSucceeded
	OutcomeTimedOut
	OutcomeCanceled
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeTimedOut:
		return "timed-out"
	case OutcomeCanceled:
		return "canceled"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// stop-derived outcomes and the notification announcing them
func (o Outcome) event() EventKind {
	switch o {
	case OutcomeTimedOut:
		return EventTimedOut
	case OutcomeCanceled:
		return EventCanceled
	case OutcomeSucceeded:
		return EventSucceeded
	default:
		return EventFailed
	}
}

type Event struct {
	Kind    EventKind
	RunID   string
	Outcome Outcome       // EventFinished only
	Elapsed time.Duration // EventFinished only
	Err     error         // EventFailed only
	At      time.Time
}

// Notifier receives Supervisor events. Notify is called from worker and timer
// goroutines and must not block; a presentation layer marshals the event
// onto its own goroutine. Notify may be called with Supervisor locks held, so
// it must not call back into the Supervisor.
type Notifier interface {
	Notify(Event)
}

type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) {
	f(e)
}

// Notifiers fans an event out to all of its members in order.
type Notifiers []Notifier

func (n Notifiers) Notify(e Event) {
	for _, notifier := range n {
		if notifier != nil {
			notifier.Notify(e)
		}
	}
}

type discard struct{}

func (discard) Notify(Event) {}
