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
	"fmt"

	"github.com/vmware/govmomi/property"
	"github.com/vmware/govmomi/vim25/mo"

	"github.com/veldt-io/vsteer/internal/reconcile"
)

// vmProperties are the VM fields one observation reads.
var vmProperties = []string{
	"config.name",
	"config.uuid",
	"config.instanceUuid",
	"config.annotation",
	"config.hardware.numCPU",
	"config.hardware.memoryMB",
	"runtime.powerState",
	"resourcePool",
	"parent",
	"guest.toolsVersionStatus2",
}

// ObserveVM reads the current state of an existing VM. The read is fresh on
// every call; observations are never cached across runs.
func (s *Session) ObserveVM(ctx context.Context, vm reconcile.ObjectRef) (*reconcile.ObservedState, error) {
	if err := s.ensureConnection(ctx); err != nil {
		return nil, err
	}

	pc := property.DefaultCollector(s.client.Client)

	var machine mo.VirtualMachine
	if err := pc.RetrieveOne(ctx, moRef(vm), vmProperties, &machine); err != nil {
		return nil, fmt.Errorf("failed to read VM properties: %w", err)
	}

	observed := &reconcile.ObservedState{
		PowerState: reconcile.PowerState(machine.Runtime.PowerState),
	}

	if machine.Config != nil {
		observed.Name = machine.Config.Name
		observed.UUID = machine.Config.Uuid
		observed.InstanceUUID = machine.Config.InstanceUuid
		observed.Annotation = machine.Config.Annotation
		observed.NumCPUs = machine.Config.Hardware.NumCPU
		observed.MemoryMB = int64(machine.Config.Hardware.MemoryMB)
	}

	if machine.ResourcePool != nil {
		observed.ResourcePool = objectRef(*machine.ResourcePool)

		var pool mo.ResourcePool
		if err := pc.RetrieveOne(ctx, *machine.ResourcePool, []string{"name"}, &pool); err != nil {
			return nil, fmt.Errorf("failed to read resource pool name: %w", err)
		}
		observed.ResourcePoolName = pool.Name
	}

	if machine.Parent != nil {
		observed.Folder = objectRef(*machine.Parent)
	}

	if machine.Guest != nil {
		observed.ToolsStatus = reconcile.ToolsStatus(machine.Guest.ToolsVersionStatus2)
	}

	return observed, nil
}
