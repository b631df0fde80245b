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

package reconcile

import "fmt"

// Plan is the full output of one comparator pass: the ordered change-set
// plus the two submission groups derived from it. Each group is submitted as
// a single backend work item, so a mid-flight failure leaves at most one of
// the two groups applied.
type Plan struct {
	Changes ChangeSet

	// Relocation is non-nil when pool or folder placement differs
	Relocation *RelocationSpec
	// Reconfiguration is non-nil when annotation, CPU or memory differs
	Reconfiguration *ReconfigSpec
}

// Empty reports whether the observed state already matches the desired spec.
func (p Plan) Empty() bool {
	return len(p.Changes) == 0
}

// BuildPlan diffs the desired spec against the observed state of an existing
// VM. It is a pure function of its two inputs. Rules are independent and
// order-stable: relocation items (pool, folder) come first, then
// reconfiguration items (annotation, CPU, memory). Datastore placement is
// intentionally never diffed for an existing VM.
func BuildPlan(desired DesiredSpec, observed ObservedState) Plan {
	var plan Plan

	if observed.ResourcePool != desired.ResourcePool {
		plan.Changes = append(plan.Changes, ChangeItem{
			Description: fmt.Sprintf("resource pool change to %s", desired.ResourcePool.Value),
			Kind:        Relocation,
		})
		pool := desired.ResourcePool
		plan.relocation().Pool = &pool
	}

	if observed.Folder != desired.Folder {
		plan.Changes = append(plan.Changes, ChangeItem{
			Description: fmt.Sprintf("folder change to %s", desired.Folder.Value),
			Kind:        Relocation,
		})
		folder := desired.Folder
		plan.relocation().Folder = &folder
	}

	if observed.Annotation != desired.Annotation {
		plan.Changes = append(plan.Changes, ChangeItem{
			Description: fmt.Sprintf("annotation changed from %q to %q", observed.Annotation, desired.Annotation),
			Kind:        Reconfiguration,
		})
		annotation := desired.Annotation
		plan.reconfiguration().Annotation = &annotation
	}

	if observed.NumCPUs != desired.NumCPUs {
		plan.Changes = append(plan.Changes, ChangeItem{
			Description:      fmt.Sprintf("number of CPUs changed from %d to %d", observed.NumCPUs, desired.NumCPUs),
			Kind:             Reconfiguration,
			RequiresShutdown: true,
		})
		cpus := desired.NumCPUs
		plan.reconfiguration().NumCPUs = &cpus
	}

	if observed.MemoryMB != desired.MemoryMB {
		plan.Changes = append(plan.Changes, ChangeItem{
			Description:      fmt.Sprintf("memory changed from %d MB to %d MB", observed.MemoryMB, desired.MemoryMB),
			Kind:             Reconfiguration,
			RequiresShutdown: true,
		})
		memory := desired.MemoryMB
		plan.reconfiguration().MemoryMB = &memory
	}

	return plan
}

func (p *Plan) relocation() *RelocationSpec {
	if p.Relocation == nil {
		p.Relocation = &RelocationSpec{}
	}
	return p.Relocation
}

func (p *Plan) reconfiguration() *ReconfigSpec {
	if p.Reconfiguration == nil {
		p.Reconfiguration = &ReconfigSpec{}
	}
	return p.Reconfiguration
}
