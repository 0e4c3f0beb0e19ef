package service

import (
	"sync"
	"sync/atomic"
)

// RunState is the status shared by the Supervisor, the stage chain and the
// deadline. Reads are lock-free; every mutation happens under mx, so begin,
// stop and end are linearizable.
//
// Each run gets a new generation. Calls carrying an older generation are
// ignored, which keeps a late alarm of an abandoned run from touching the
// current one.
type RunState struct {
	active atomic.Bool
	stop   atomic.Bool
	gen    atomic.Uint64

	mx      sync.Mutex
	outcome Outcome
}

// TryBegin starts a new run unless one is active. The stop flag is reset only here.
func (s *RunState) TryBegin() (uint64, bool) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.active.Load() {
		return 0, false
	}
	s.outcome = OutcomeNone
	s.stop.Store(false)
	gen := s.gen.Add(1)
	s.active.Store(true)
	return gen, true
}

// RequestStop raises the stop flag of run gen. It returns true for the single
// call which decided the outcome, all later calls are no-ops.
func (s *RunState) RequestStop(gen uint64, reason Outcome) bool {
	s.mx.Lock()
	defer s.mx.Unlock()
	if !s.current(gen) {
		return false
	}
	s.stop.Store(true)
	if s.outcome != OutcomeNone {
		return false
	}
	s.outcome = reason
	return true
}

// Succeed is the final checkpoint: it decides success only when no stop was
// requested before.
func (s *RunState) Succeed(gen uint64) bool {
	s.mx.Lock()
	defer s.mx.Unlock()
	if !s.current(gen) || s.stop.Load() || s.outcome != OutcomeNone {
		return false
	}
	s.outcome = OutcomeSucceeded
	return true
}

// Fail records a stage fault if nothing has decided the run yet.
func (s *RunState) Fail(gen uint64) bool {
	s.mx.Lock()
	defer s.mx.Unlock()
	if !s.current(gen) || s.outcome != OutcomeNone {
		return false
	}
	s.outcome = OutcomeFailed
	return true
}

// End marks run gen as done and returns its outcome. Only the first call for
// an active generation reports true.
func (s *RunState) End(gen uint64) (Outcome, bool) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if !s.current(gen) {
		return OutcomeNone, false
	}
	s.active.Store(false)
	return s.outcome, true
}

func (s *RunState) current(gen uint64) bool {
	return s.active.Load() && s.gen.Load() == gen
}

// Running reports whether a run has begun and not ended yet.
func (s *RunState) Running() bool {
	return s.active.Load()
}

// StopRequested reports whether the current run was asked to stop, by the
// deadline or by Cancel. It is read at every stage checkpoint.
func (s *RunState) StopRequested() bool {
	return s.stop.Load()
}
