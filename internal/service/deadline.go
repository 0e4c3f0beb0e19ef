package service

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var ErrDeadlineReused = errors.New("deadline already armed: create a new one")

// Timer is the part of *time.Timer the Deadline needs.
type Timer interface {
	Stop() bool
}

// Clock creates the alarms used by the Supervisor. Tests can inject a manual one.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
	Now() time.Time
}

// SystemClock is a Clock backed by package time.
type SystemClock struct{}

func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func (SystemClock) Now() time.Time {
	return time.Now()
}

const (
	deadlineIdle int32 = iota
	deadlineArmed
	deadlineFired
	deadlineDisarmed
)

// Deadline is a one-shot alarm valid for a single run. Once it has fired or
// was disarmed it is inert and can't be armed again.
type Deadline struct {
	clock Clock
	state atomic.Int32

	mx    sync.Mutex
	timer Timer
}

func NewDeadline(clock Clock) *Deadline {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Deadline{clock: clock}
}

// Arm schedules onFire to be called once after d, unless Disarm is called first.
// onFire runs on the clock goroutine, Arm itself never waits for it.
// A disarmed Deadline is inert and Arm does nothing. Arming twice or after the
// fire returns ErrDeadlineReused.
func (d *Deadline) Arm(dur time.Duration, onFire func()) error {
	if !d.state.CompareAndSwap(deadlineIdle, deadlineArmed) {
		if d.state.Load() == deadlineDisarmed {
			return nil
		}
		return ErrDeadlineReused
	}

	d.mx.Lock()
	defer d.mx.Unlock()
	// disarmed between the swap and here
	if d.state.Load() != deadlineArmed {
		return nil
	}
	d.timer = d.clock.AfterFunc(dur, func() {
		if d.state.CompareAndSwap(deadlineArmed, deadlineFired) {
			onFire()
		}
	})
	return nil
}

// Disarm cancels a pending alarm. It can be called any number of times, also
// after the alarm fired. Returns true only for the call that prevented the fire.
func (d *Deadline) Disarm() bool {
	if !d.state.CompareAndSwap(deadlineArmed, deadlineDisarmed) {
		// never armed or already inert
		d.state.CompareAndSwap(deadlineIdle, deadlineDisarmed)
		return false
	}

	d.mx.Lock()
	defer d.mx.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	return true
}

// Armed reports whether the alarm is pending.
func (d *Deadline) Armed() bool {
	return d.state.Load() == deadlineArmed
}

// Fired reports whether onFire has been called.
func (d *Deadline) Fired() bool {
	return d.state.Load() == deadlineFired
}
