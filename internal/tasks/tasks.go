/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package tasks implements the polling state machine that tracks one unit
// of asynchronous backend work to a terminal state.
//
// A task moves Submitted -> Polling -> {Succeeded, Failed, Cancelled}. The
// handle behind the Poller is single-run: once a terminal outcome has been
// observed it is discarded, never re-polled.
package tasks

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	"github.com/veldt-io/vsteer/internal/obs/metrics"
)

// State is the lifecycle state of a tracked task.
type State string

const (
	// StateSubmitted means the backend accepted the work and returned a handle
	StateSubmitted State = "Submitted"
	// StatePolling means the task is being queried for a terminal status
	StatePolling State = "Polling"
	// StateSucceeded is terminal success
	StateSucceeded State = "Succeeded"
	// StateFailed is terminal failure; failures are fatal and never retried
	StateFailed State = "Failed"
	// StateCancelled means the caller stopped observing the task. It says
	// nothing about the backend side: the task may still run to completion
	// remotely.
	StateCancelled State = "Cancelled"
)

// Status is one observation of a backend task.
type Status struct {
	// Done is set once the backend reports a terminal state. Intermediate
	// statuses (queued, running, progress updates) leave it unset.
	Done bool
	// Err carries the classified terminal failure; nil means success
	Err error
	// Result is the backend's opaque result payload on success
	Result any
}

// Poller queries the backend for the current status of one task.
type Poller interface {
	Status(ctx context.Context) (Status, error)
}

// PollerFunc adapts a function to the Poller interface.
type PollerFunc func(ctx context.Context) (Status, error)

// Status implements Poller.
func (f PollerFunc) Status(ctx context.Context) (Status, error) {
	return f(ctx)
}

// Outcome is the terminal result of one Await.
type Outcome struct {
	State  State
	Result any
	// Err is set for StateFailed and StateCancelled
	Err error
}

// Waiter blocks until a task reaches a terminal state, polling with bounded
// exponential backoff.
type Waiter struct {
	Backoff BackoffConfig
	// Timeout bounds the whole wait; zero means the caller's context is the
	// only deadline
	Timeout time.Duration
	Log     logr.Logger
}

// NewWaiter returns a Waiter with default backoff and the given logger.
func NewWaiter(log logr.Logger) *Waiter {
	return &Waiter{Backoff: DefaultBackoffConfig(), Log: log}
}

// Await polls p until the task is terminal, the timeout fires, or ctx is
// cancelled. Cancellation and timeout only stop observing: the remote task
// is not cancelled and may still finish on the backend.
func (w *Waiter) Await(ctx context.Context, p Poller) Outcome {
	if w.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.Timeout)
		defer cancel()
	}

	metrics.TasksInflightInc()
	defer metrics.TasksInflightDec()

	start := time.Now()
	outcome := w.poll(ctx, p)
	metrics.RecordTaskWait(string(outcome.State), time.Since(start))

	return outcome
}

func (w *Waiter) poll(ctx context.Context, p Poller) Outcome {
	state := StateSubmitted

	for attempt := 0; ; attempt++ {
		status, err := p.Status(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.Log.V(1).Info("stopped observing task", "state", state, "reason", ctx.Err())
				return Outcome{State: StateCancelled, Err: ctx.Err()}
			}
			return Outcome{State: StateFailed, Err: err}
		}

		if status.Done {
			if status.Err != nil {
				return Outcome{State: StateFailed, Err: status.Err}
			}
			return Outcome{State: StateSucceeded, Result: status.Result}
		}

		if state == StateSubmitted {
			state = StatePolling
			w.Log.V(1).Info("task accepted, polling for completion")
		}

		select {
		case <-ctx.Done():
			w.Log.V(1).Info("stopped observing task", "state", state, "reason", ctx.Err())
			return Outcome{State: StateCancelled, Err: ctx.Err()}
		case <-time.After(CalculateBackoff(w.Backoff, attempt)):
		}
	}
}
