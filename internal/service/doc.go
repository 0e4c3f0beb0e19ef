// Package service implements a single-flight supervisor of a multi-stage job.
//
// Overview
// The Supervisor owns the RunState, a Deadline per run and the Plan. Clients
// send two commands, Start and Cancel, and observe the run through a Notifier.
// Only one run may be active at a time: Start while running is rejected, never
// queued.
//
// A run executes the Plan stages in order on a Pool. Each stage does its work
// and then reaches a checkpoint, where it reads the stop flag. If a stop was
// requested the run ends, otherwise the next stage is submitted or, for the
// final stage, success is declared.
//
// Data flow:
//
//	caller                Supervisor              Pool                  Deadline
//	   |                      |                     |                       |
//	   | Start() ------------>| TryBegin            |                       |
//	   |                      | Arm --------------------------------------->|
//	   |                      | Submit(stage 1) --->| work, checkpoint      |
//	   |                      |                     | Submit(stage 2) ...   |
//	   | Cancel() ----------->| Disarm, RequestStop |                       |
//	   |                      |<--------------------------------- fire -----| RequestStop
//	   |                      |<-- Succeed / End ---| final checkpoint      |
//	   |<------ Event --------|                     |                       |
//
// Cancellation is cooperative. Work in flight is never interrupted; a cancel or
// timeout is observed at the next checkpoint, so the latency of a stop is
// bounded by the duration of one stage.
//
// Invariants:
//   - At most one run is active.
//   - The stop flag is reset only when a new run begins.
//   - Exactly one of run-succeeded, run-timed-out and run-canceled is sent per
//     run, unless a stage fault happened, which is reported as run-failed.
//   - Each run ends with a single run-finished event and the Supervisor is idle
//     again, also when a stage fails or panics.
//   - Signals of an ended run (a late deadline) never affect a newer run.
//
// Timeout and cancel are the same operation, they differ only in the outcome
// they report.
package service
