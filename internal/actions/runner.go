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

package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/veldt-io/vsteer/internal/faults"
	"github.com/veldt-io/vsteer/internal/obs/logging"
	"github.com/veldt-io/vsteer/internal/obs/metrics"
	"github.com/veldt-io/vsteer/internal/reconcile"
	"github.com/veldt-io/vsteer/internal/tasks"
)

// Mode selects whether pending changes are applied or only reported.
type Mode string

const (
	// ModeApply applies the computed changes
	ModeApply Mode = "apply"
	// ModeDryRun computes and reports changes without executing anything
	ModeDryRun Mode = "dry-run"
)

// dryRunSuffix is appended to every change description in dry-run mode.
const dryRunSuffix = " (not applied, dry-run)"

// Result is the boundary response of one action run.
type Result struct {
	// Changed reports whether the live object differed from the desired
	// state (dry-run included)
	Changed bool `json:"changed"`
	// Changes lists what was (or would be) changed, in application order
	Changes []string `json:"changes,omitempty"`
	// Facts is an observed summary of the VM
	Facts map[string]interface{} `json:"facts,omitempty"`
}

// Runner executes actions against one backend client.
type Runner struct {
	Client Client
	Waiter *tasks.Waiter
	Mode   Mode
	Log    logr.Logger
}

// DryRun reports whether the runner only computes changes.
func (r *Runner) DryRun() bool {
	return r.Mode == ModeDryRun
}

// runLog derives a logger carrying the correlation ID of one run and
// stores it in the context, so backend calls log under the same run.
func (r *Runner) runLog(ctx context.Context, action, guest string) (context.Context, logr.Logger) {
	log := r.Log.WithValues("action", action, "guest", guest, "run", uuid.New().String())
	return logging.IntoContext(ctx, log), log
}

// finish records metrics for a completed run.
func (r *Runner) finish(action string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
		metrics.RecordError(errorReason(err), action)
	}
	metrics.RecordAction(action, outcome, time.Since(start))
}

// await blocks on one submitted work item and surfaces its terminal
// failure, if any, as the action's fatal error. Work is never retried.
func (r *Runner) await(ctx context.Context, poller tasks.Poller, what string) error {
	outcome := r.Waiter.Await(ctx, poller)
	switch outcome.State {
	case tasks.StateSucceeded:
		return nil
	case tasks.StateCancelled:
		return fmt.Errorf("stopped waiting for %s, the backend task may still complete: %w", what, outcome.Err)
	default:
		return outcome.Err
	}
}

// facts builds the observed-state summary returned to the caller.
func facts(observed *reconcile.ObservedState) map[string]interface{} {
	return map[string]interface{}{
		"vm_name":       observed.Name,
		"vm_uuid":       observed.UUID,
		"instance_uuid": observed.InstanceUUID,
		"num_cpus":      observed.NumCPUs,
		"memory_mb":     observed.MemoryMB,
		"memory_gb":     observed.MemoryMB / 1024,
	}
}

func errorReason(err error) string {
	switch {
	case faults.IsNotFound(err):
		return "not_found"
	case faults.IsUnsafeChange(err):
		return "unsafe_change"
	case faults.IsTaskFailure(err):
		return "task_failure"
	case faults.IsConnection(err):
		return "connection"
	default:
		return "internal"
	}
}
