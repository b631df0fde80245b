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

	"github.com/veldt-io/vsteer/internal/faults"
	"github.com/veldt-io/vsteer/internal/obs/tracing"
	"github.com/veldt-io/vsteer/internal/reconcile"
)

// DeployRequest describes the desired state of one guest VM.
type DeployRequest struct {
	// Guest is the VM name to create or reconcile
	Guest string
	// Template is the source template for the create path
	Template string
	// Datastore places a newly created VM; never changed once the VM exists
	Datastore string
	// Folder is the target inventory folder
	Folder string
	// ResourcePool is the target resource pool
	ResourcePool string
	// Annotation is the note attached to the VM
	Annotation string
	// NumCPUs is the virtual CPU count
	NumCPUs int32
	// MemoryMB is the memory size in MiB
	MemoryMB int64
	// PowerOn powers the VM on after creation
	PowerOn bool
}

// Deploy converges one guest VM onto the requested state. If the VM exists
// its observed state is diffed and the minimal change-set applied,
// relocation before reconfiguration; otherwise the VM is cloned from the
// template. Either way the run ends with fresh facts for the VM.
func (r *Runner) Deploy(ctx context.Context, req DeployRequest) (result *Result, err error) {
	start := time.Now()
	defer func() { r.finish("deploy", start, err) }()

	ctx, span := tracing.StartSpan(ctx, "deploy")
	defer span.End()

	ctx, log := r.runLog(ctx, "deploy", req.Guest)

	if err := r.Client.Refresh(ctx); err != nil {
		return nil, err
	}

	desired := reconcile.DesiredSpec{
		Name:       req.Guest,
		Annotation: req.Annotation,
		NumCPUs:    req.NumCPUs,
		MemoryMB:   req.MemoryMB,
		PowerOn:    req.PowerOn,
	}
	if desired.ResourcePool, err = r.Client.Resolve(reconcile.KindResourcePool, req.ResourcePool); err != nil {
		return nil, err
	}
	if desired.Folder, err = r.Client.Resolve(reconcile.KindFolder, req.Folder); err != nil {
		return nil, err
	}

	if vm, exists := r.Client.Lookup(reconcile.KindVirtualMachine, req.Guest); exists {
		return r.converge(ctx, log, vm, desired)
	}
	return r.create(ctx, log, req, desired)
}

// converge reconciles an existing VM onto the desired spec.
func (r *Runner) converge(ctx context.Context, log logr.Logger, vm reconcile.ObjectRef, desired reconcile.DesiredSpec) (*Result, error) {
	observed, err := r.Client.ObserveVM(ctx, vm)
	if err != nil {
		return nil, err
	}

	plan := reconcile.BuildPlan(desired, *observed)
	if plan.Empty() {
		log.Info("already converged")
		return &Result{Changed: false, Facts: facts(observed)}, nil
	}

	if err := reconcile.Guard(desired.Name, plan, observed.PowerState); err != nil {
		return nil, err
	}

	if r.DryRun() {
		log.Info("pending changes", "count", len(plan.Changes))
		return &Result{
			Changed: true,
			Changes: appendSuffix(plan.Changes.Descriptions(), dryRunSuffix),
			Facts:   facts(observed),
		}, nil
	}

	// Relocation strictly precedes reconfiguration: hardware settings may
	// depend on placement.
	if plan.Relocation != nil {
		poller, err := r.Client.Relocate(ctx, vm, *plan.Relocation)
		if err != nil {
			return nil, err
		}
		if err := r.await(ctx, poller, "relocation"); err != nil {
			return nil, err
		}
		log.Info("relocation applied")
	}

	if plan.Reconfiguration != nil {
		poller, err := r.Client.Reconfigure(ctx, vm, *plan.Reconfiguration)
		if err != nil {
			return nil, err
		}
		if err := r.await(ctx, poller, "reconfiguration"); err != nil {
			return nil, err
		}
		log.Info("reconfiguration applied")
	}

	observed, err = r.Client.ObserveVM(ctx, vm)
	if err != nil {
		return nil, err
	}

	return &Result{
		Changed: true,
		Changes: plan.Changes.Descriptions(),
		Facts:   facts(observed),
	}, nil
}

// create clones the VM from the template.
func (r *Runner) create(ctx context.Context, log logr.Logger, req DeployRequest, desired reconcile.DesiredSpec) (*Result, error) {
	template, ok := r.Client.Lookup(reconcile.KindVirtualMachine, req.Template)
	if !ok {
		return nil, faults.NewNotFound("template", req.Template, r.Client.Server())
	}

	var err error
	if desired.Datastore, err = r.Client.Resolve(reconcile.KindDatastore, req.Datastore); err != nil {
		return nil, err
	}

	change := fmt.Sprintf("vm %s created from template %s", req.Guest, req.Template)

	if r.DryRun() {
		log.Info("would create vm", "template", req.Template)
		return &Result{Changed: true, Changes: []string{change + dryRunSuffix}}, nil
	}

	poller, err := r.Client.Clone(ctx, template, desired.Folder, desired)
	if err != nil {
		return nil, err
	}
	if err := r.await(ctx, poller, "clone"); err != nil {
		return nil, err
	}
	log.Info("vm created", "template", req.Template)

	// Re-index so the freshly created VM resolves for the facts read.
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

	return &Result{Changed: true, Changes: []string{change}, Facts: facts(observed)}, nil
}

func appendSuffix(changes []string, suffix string) []string {
	out := make([]string, len(changes))
	for i, c := range changes {
		out[i] = c + suffix
	}
	return out
}
