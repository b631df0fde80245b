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

	"github.com/veldt-io/vsteer/internal/obs/tracing"
	"github.com/veldt-io/vsteer/internal/reconcile"
)

// ToolsRequest checks or upgrades the guest tools of a VM.
type ToolsRequest struct {
	// Guest is the VM to act on
	Guest string
	// State is the desired tools state: present, latest or absent
	State reconcile.ToolsState
	// InstallerOptions are passed to the tools installer on upgrade
	InstallerOptions string
}

// Tools enforces the requested guest-tools state. "present" and "absent"
// are pure checks that fail on mismatch; "latest" upgrades the tools
// whenever the backend reports an upgradeable status.
func (r *Runner) Tools(ctx context.Context, req ToolsRequest) (result *Result, err error) {
	start := time.Now()
	defer func() { r.finish("tools", start, err) }()

	ctx, span := tracing.StartSpan(ctx, "tools")
	defer span.End()

	ctx, log := r.runLog(ctx, "tools", req.Guest)

	if !req.State.Valid() {
		return nil, fmt.Errorf("invalid state %q, state must be one of: present, latest, absent", req.State)
	}

	if err := r.Client.Refresh(ctx); err != nil {
		return nil, err
	}

	vm, err := r.Client.Resolve(reconcile.KindVirtualMachine, req.Guest)
	if err != nil {
		return nil, err
	}
	observed, err := r.Client.ObserveVM(ctx, vm)
	if err != nil {
		return nil, err
	}
	status := observed.ToolsStatus

	toolsFacts := map[string]interface{}{"vm_tools_status": string(status)}

	switch reconcile.DecideTools(req.State, status) {
	case reconcile.ToolsMismatch:
		return nil, fmt.Errorf("guest VM %q has the tools state %q, but the current status of the tools is %q",
			req.Guest, req.State, status)

	case reconcile.ToolsUpgrade:
		change := fmt.Sprintf("tools on guest VM %s have been upgraded", req.Guest)

		if r.DryRun() {
			log.Info("pending tools upgrade", "status", status)
			return &Result{Changed: true, Changes: []string{change + dryRunSuffix}, Facts: toolsFacts}, nil
		}

		poller, err := r.Client.UpgradeTools(ctx, vm, req.InstallerOptions)
		if err != nil {
			return nil, err
		}
		if err := r.await(ctx, poller, "tools upgrade"); err != nil {
			return nil, err
		}
		log.Info("tools upgraded", "previous_status", status)

		return &Result{Changed: true, Changes: []string{change}, Facts: toolsFacts}, nil

	default:
		log.Info("tools state satisfied", "status", status)
		return &Result{Changed: false, Facts: toolsFacts}, nil
	}
}
