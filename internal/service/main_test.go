package service_test

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/ncradle/GuiTimeoutSample/internal/service"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recorder collects the events in the order they were sent
type recorder struct {
	mx     sync.Mutex
	events []service.Event
}

func (r *recorder) Notify(e service.Event) {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) Events() []service.Event {
	r.mx.Lock()
	defer r.mx.Unlock()
	return append([]service.Event(nil), r.events...)
}

func (r *recorder) Kinds() []service.EventKind {
	var kinds []service.EventKind
	for _, e := range r.Events() {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func (r *recorder) Last() service.Event {
	events := r.Events()
	if len(events) == 0 {
		return service.Event{}
	}
	return events[len(events)-1]
}

// fakeClock never fires on its own, tests call fire. Stop does not prevent
// a later fire, so a test can simulate an alarm racing with Disarm.
type fakeClock struct {
	mx     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) service.Timer {
	c.mx.Lock()
	defer c.mx.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Now() time.Time {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.now
}

func (c *fakeClock) timer(i int) *fakeTimer {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.timers[i]
}

func (c *fakeClock) count() int {
	c.mx.Lock()
	defer c.mx.Unlock()
	return len(c.timers)
}

func (c *fakeClock) fire(i int) {
	c.timer(i).f()
}
