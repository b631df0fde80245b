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

// Package reconcile contains the pure decision core of vsteer: the
// desired-state comparator, the safety gate, the resource-pool path matcher
// and the guest-tools policy. Nothing in this package performs I/O, so every
// decision is directly unit-testable.
package reconcile

// RefKind is the vSphere inventory kind of an object reference.
type RefKind string

const (
	KindVirtualMachine RefKind = "VirtualMachine"
	KindDatastore      RefKind = "Datastore"
	KindFolder         RefKind = "Folder"
	KindResourcePool   RefKind = "ResourcePool"
	KindCluster        RefKind = "ClusterComputeResource"
	KindDatacenter     RefKind = "Datacenter"
)

// ObjectRef identifies an inventory object. Comparisons are by identity,
// never by display name, so path-prefix lookalikes can not false-match.
type ObjectRef struct {
	Kind RefKind
	// Value is the managed object identifier on the server
	Value string
}

// IsZero reports whether the reference is unset.
func (r ObjectRef) IsZero() bool {
	return r.Value == ""
}

// PowerState is the backend-reported power state of a VM.
type PowerState string

const (
	PoweredOn  PowerState = "poweredOn"
	PoweredOff PowerState = "poweredOff"
	Suspended  PowerState = "suspended"
)

// DesiredSpec is the immutable input of one reconciliation run.
type DesiredSpec struct {
	// Name is the guest VM name
	Name string
	// ResourcePool is the resolved target resource pool
	ResourcePool ObjectRef
	// Folder is the resolved target folder
	Folder ObjectRef
	// Datastore is the resolved target datastore. It is honored on create
	// only: datastore placement of an existing VM is never changed because
	// multi-datastore relocation has unpredictable data-movement semantics.
	Datastore ObjectRef
	// Annotation is the free-form note attached to the VM
	Annotation string
	// NumCPUs is the desired virtual CPU count
	NumCPUs int32
	// MemoryMB is the desired memory size in MiB
	MemoryMB int64
	// PowerOn powers the VM on after it has been created from a template
	PowerOn bool
}

// ObservedState is what the backend reports for an existing VM. It is read
// fresh at the start of each run and never cached across runs.
type ObservedState struct {
	Name         string
	UUID         string
	InstanceUUID string

	ResourcePool ObjectRef
	// ResourcePoolName is the display name of the current pool, used by the
	// pool path matcher
	ResourcePoolName string
	Folder           ObjectRef

	Annotation string
	NumCPUs    int32
	MemoryMB   int64

	PowerState PowerState

	// ToolsStatus is the guest-agent state as reported by the backend
	ToolsStatus ToolsStatus
}

// ChangeKind classifies a change as placement or hardware/metadata work.
type ChangeKind string

const (
	// Relocation moves the VM's pool or folder assignment
	Relocation ChangeKind = "relocation"
	// Reconfiguration changes virtual hardware or metadata
	Reconfiguration ChangeKind = "reconfiguration"
)

// ChangeItem is a single pending change produced by the comparator.
type ChangeItem struct {
	// Description is operator-readable, naming old and new values
	Description string
	Kind        ChangeKind
	// RequiresShutdown marks hardware changes that are unsafe to apply live
	RequiresShutdown bool
}

// ChangeSet is an ordered sequence of changes. Relocation items always
// precede reconfiguration items: hardware settings may depend on placement.
type ChangeSet []ChangeItem

// Descriptions returns the description of every change, in order.
func (cs ChangeSet) Descriptions() []string {
	if len(cs) == 0 {
		return nil
	}
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Description
	}
	return out
}

// Blocked returns the descriptions of all changes that require a shutdown.
func (cs ChangeSet) Blocked() []string {
	var out []string
	for _, c := range cs {
		if c.RequiresShutdown {
			out = append(out, c.Description)
		}
	}
	return out
}

// RelocationSpec carries the resolved targets of the relocation group.
// Nil fields are left untouched by the backend.
type RelocationSpec struct {
	Pool   *ObjectRef
	Folder *ObjectRef
}

// ReconfigSpec carries the values of the reconfiguration group. Nil fields
// are left untouched by the backend.
type ReconfigSpec struct {
	Annotation *string
	NumCPUs    *int32
	MemoryMB   *int64
}
