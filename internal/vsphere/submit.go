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

package vsphere

import (
	"context"
	"errors"
	"fmt"

	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"

	"github.com/veldt-io/vsteer/internal/faults"
	"github.com/veldt-io/vsteer/internal/obs/logging"
	"github.com/veldt-io/vsteer/internal/reconcile"
	"github.com/veldt-io/vsteer/internal/tasks"
)

// genericTaskFailure is reported for every backend fault that has no more
// specific classification.
const genericTaskFailure = "an error occurred while waiting for the task to complete"

// Relocate submits the relocation group (pool and/or folder move) as one
// backend work item.
func (s *Session) Relocate(ctx context.Context, vm reconcile.ObjectRef, spec reconcile.RelocationSpec) (tasks.Poller, error) {
	if err := s.ensureConnection(ctx); err != nil {
		return nil, err
	}

	relocate := types.VirtualMachineRelocateSpec{}
	if spec.Pool != nil {
		pool := moRef(*spec.Pool)
		relocate.Pool = &pool
	}
	if spec.Folder != nil {
		folder := moRef(*spec.Folder)
		relocate.Folder = &folder
	}

	machine := object.NewVirtualMachine(s.client.Client, moRef(vm))
	task, err := machine.Relocate(ctx, relocate, types.VirtualMachineMovePriorityDefaultPriority)
	if err != nil {
		return nil, fmt.Errorf("failed to submit relocation: %w", err)
	}

	logging.FromContext(ctx).V(1).Info("submitted relocation", "task", task.Reference().Value)
	return s.poller(task), nil
}

// Reconfigure submits the reconfiguration group (annotation, CPU, memory)
// as one backend work item.
func (s *Session) Reconfigure(ctx context.Context, vm reconcile.ObjectRef, spec reconcile.ReconfigSpec) (tasks.Poller, error) {
	if err := s.ensureConnection(ctx); err != nil {
		return nil, err
	}

	configSpec := types.VirtualMachineConfigSpec{}
	if spec.Annotation != nil {
		configSpec.Annotation = *spec.Annotation
	}
	if spec.NumCPUs != nil {
		configSpec.NumCPUs = *spec.NumCPUs
	}
	if spec.MemoryMB != nil {
		configSpec.MemoryMB = *spec.MemoryMB
	}

	machine := object.NewVirtualMachine(s.client.Client, moRef(vm))
	task, err := machine.Reconfigure(ctx, configSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to submit reconfiguration: %w", err)
	}

	logging.FromContext(ctx).V(1).Info("submitted reconfiguration", "task", task.Reference().Value)
	return s.poller(task), nil
}

// Clone creates a new VM from a template. Placement (pool, datastore) and
// configuration (CPU, memory, annotation) are applied as part of the clone;
// CPU and memory hot-add stay disabled on the new VM.
func (s *Session) Clone(ctx context.Context, template, folder reconcile.ObjectRef, desired reconcile.DesiredSpec) (tasks.Poller, error) {
	if err := s.ensureConnection(ctx); err != nil {
		return nil, err
	}

	relocate := types.VirtualMachineRelocateSpec{}
	if !desired.ResourcePool.IsZero() {
		pool := moRef(desired.ResourcePool)
		relocate.Pool = &pool
	}
	if !desired.Datastore.IsZero() {
		datastore := moRef(desired.Datastore)
		relocate.Datastore = &datastore
	}

	cloneSpec := types.VirtualMachineCloneSpec{
		Location: relocate,
		Config: &types.VirtualMachineConfigSpec{
			NumCPUs:             desired.NumCPUs,
			MemoryMB:            desired.MemoryMB,
			Annotation:          desired.Annotation,
			CpuHotAddEnabled:    types.NewBool(false),
			MemoryHotAddEnabled: types.NewBool(false),
		},
		PowerOn:  desired.PowerOn,
		Template: false,
	}

	source := object.NewVirtualMachine(s.client.Client, moRef(template))
	task, err := source.Clone(ctx, object.NewFolder(s.client.Client, moRef(folder)), desired.Name, cloneSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to submit clone: %w", err)
	}

	logging.FromContext(ctx).V(1).Info("submitted clone", "name", desired.Name, "task", task.Reference().Value)
	return s.poller(task), nil
}

// UpgradeTools submits a guest-tools upgrade with the given installer
// options.
func (s *Session) UpgradeTools(ctx context.Context, vm reconcile.ObjectRef, installerOptions string) (tasks.Poller, error) {
	if err := s.ensureConnection(ctx); err != nil {
		return nil, err
	}

	machine := object.NewVirtualMachine(s.client.Client, moRef(vm))
	task, err := machine.UpgradeTools(ctx, installerOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to submit tools upgrade: %w", err)
	}

	logging.FromContext(ctx).V(1).Info("submitted tools upgrade", "task", task.Reference().Value)
	return s.poller(task), nil
}

// taskPoller reads a backend task's info until it is terminal. The handle
// is single-run: its outcome is observed exactly once and discarded.
type taskPoller struct {
	task *object.Task
}

func (s *Session) poller(task *object.Task) tasks.Poller {
	return &taskPoller{task: task}
}

// Status implements tasks.Poller.
func (p *taskPoller) Status(ctx context.Context) (tasks.Status, error) {
	var t mo.Task
	if err := p.task.Properties(ctx, p.task.Reference(), []string{"info"}, &t); err != nil {
		return tasks.Status{}, fmt.Errorf("failed to read task state: %w", err)
	}

	switch t.Info.State {
	case types.TaskInfoStateSuccess:
		return tasks.Status{Done: true, Result: t.Info.Result}, nil
	case types.TaskInfoStateError:
		return tasks.Status{Done: true, Err: classifyTaskFault(t.Info.Error)}, nil
	default:
		// queued or running
		return tasks.Status{}, nil
	}
}

// classifyTaskFault maps a backend fault to a TaskFailureError. A name
// collision is refined to name the conflicting object; everything else gets
// the generic message.
func classifyTaskFault(fault *types.LocalizedMethodFault) error {
	message := genericTaskFailure
	var cause error

	if fault != nil {
		if dup, ok := fault.Fault.(*types.DuplicateName); ok {
			message = fmt.Sprintf("an object with the name %s already exists", dup.Name)
		}
		if fault.LocalizedMessage != "" {
			cause = errors.New(fault.LocalizedMessage)
		}
	}

	return &faults.TaskFailureError{Message: message, Cause: cause}
}
