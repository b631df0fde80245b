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

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func poolRef(id string) ObjectRef   { return ObjectRef{Kind: KindResourcePool, Value: id} }
func folderRef(id string) ObjectRef { return ObjectRef{Kind: KindFolder, Value: id} }

func alignedState(desired DesiredSpec) ObservedState {
	return ObservedState{
		Name:         desired.Name,
		ResourcePool: desired.ResourcePool,
		Folder:       desired.Folder,
		Annotation:   desired.Annotation,
		NumCPUs:      desired.NumCPUs,
		MemoryMB:     desired.MemoryMB,
	}
}

func TestBuildPlan(t *testing.T) {
	desired := DesiredSpec{
		Name:         "web-01",
		ResourcePool: poolRef("resgroup-42"),
		Folder:       folderRef("group-v7"),
		Annotation:   "managed",
		NumCPUs:      4,
		MemoryMB:     8192,
	}

	tests := []struct {
		name           string
		observed       ObservedState
		wantChanges    []string
		wantKinds      []ChangeKind
		wantShutdown   []bool
		wantRelocation *RelocationSpec
		wantReconfig   *ReconfigSpec
	}{
		{
			name:     "no drift produces an empty plan",
			observed: alignedState(desired),
		},
		{
			name: "pool drift is a relocation",
			observed: func() ObservedState {
				o := alignedState(desired)
				o.ResourcePool = poolRef("resgroup-9")
				return o
			}(),
			wantChanges:    []string{"resource pool change to resgroup-42"},
			wantKinds:      []ChangeKind{Relocation},
			wantShutdown:   []bool{false},
			wantRelocation: &RelocationSpec{Pool: refPtr(poolRef("resgroup-42"))},
		},
		{
			name: "folder drift is a relocation",
			observed: func() ObservedState {
				o := alignedState(desired)
				o.Folder = folderRef("group-v2")
				return o
			}(),
			wantChanges:    []string{"folder change to group-v7"},
			wantKinds:      []ChangeKind{Relocation},
			wantShutdown:   []bool{false},
			wantRelocation: &RelocationSpec{Folder: refPtr(folderRef("group-v7"))},
		},
		{
			name: "annotation drift is a live reconfiguration",
			observed: func() ObservedState {
				o := alignedState(desired)
				o.Annotation = "old note"
				return o
			}(),
			wantChanges:  []string{`annotation changed from "old note" to "managed"`},
			wantKinds:    []ChangeKind{Reconfiguration},
			wantShutdown: []bool{false},
			wantReconfig: &ReconfigSpec{Annotation: strPtr("managed")},
		},
		{
			name: "cpu and memory drift both require a shutdown",
			observed: func() ObservedState {
				o := alignedState(desired)
				o.NumCPUs = 2
				o.MemoryMB = 4096
				return o
			}(),
			wantChanges: []string{
				"number of CPUs changed from 2 to 4",
				"memory changed from 4096 MB to 8192 MB",
			},
			wantKinds:    []ChangeKind{Reconfiguration, Reconfiguration},
			wantShutdown: []bool{true, true},
			wantReconfig: &ReconfigSpec{NumCPUs: int32Ptr(4), MemoryMB: int64Ptr(8192)},
		},
		{
			name: "full drift orders relocation before reconfiguration",
			observed: ObservedState{
				Name:         "web-01",
				ResourcePool: poolRef("resgroup-9"),
				Folder:       folderRef("group-v2"),
				Annotation:   "",
				NumCPUs:      2,
				MemoryMB:     4096,
			},
			wantChanges: []string{
				"resource pool change to resgroup-42",
				"folder change to group-v7",
				`annotation changed from "" to "managed"`,
				"number of CPUs changed from 2 to 4",
				"memory changed from 4096 MB to 8192 MB",
			},
			wantKinds: []ChangeKind{
				Relocation, Relocation,
				Reconfiguration, Reconfiguration, Reconfiguration,
			},
			wantShutdown: []bool{false, false, false, true, true},
			wantRelocation: &RelocationSpec{
				Pool:   refPtr(poolRef("resgroup-42")),
				Folder: refPtr(folderRef("group-v7")),
			},
			wantReconfig: &ReconfigSpec{
				Annotation: strPtr("managed"),
				NumCPUs:    int32Ptr(4),
				MemoryMB:   int64Ptr(8192),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := BuildPlan(desired, tt.observed)

			assert.Equal(t, tt.wantChanges, plan.Changes.Descriptions())
			require.Len(t, plan.Changes, len(tt.wantKinds))
			for i, c := range plan.Changes {
				assert.Equal(t, tt.wantKinds[i], c.Kind, "change %d kind", i)
				assert.Equal(t, tt.wantShutdown[i], c.RequiresShutdown, "change %d shutdown", i)
			}

			if diff := cmp.Diff(tt.wantRelocation, plan.Relocation); diff != "" {
				t.Errorf("relocation spec mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantReconfig, plan.Reconfiguration); diff != "" {
				t.Errorf("reconfiguration spec mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, len(tt.wantChanges) == 0, plan.Empty())
		})
	}
}

// Applying the plan yields a state the comparator no longer flags.
func TestBuildPlanIsIdempotent(t *testing.T) {
	desired := DesiredSpec{
		Name:         "web-01",
		ResourcePool: poolRef("resgroup-42"),
		Folder:       folderRef("group-v7"),
		Annotation:   "managed",
		NumCPUs:      4,
		MemoryMB:     8192,
	}
	observed := ObservedState{
		ResourcePool: poolRef("resgroup-9"),
		Folder:       folderRef("group-v2"),
		NumCPUs:      2,
		MemoryMB:     4096,
	}

	plan := BuildPlan(desired, observed)
	require.False(t, plan.Empty())

	// Simulate a successful apply of both groups.
	converged := observed
	if plan.Relocation != nil {
		if plan.Relocation.Pool != nil {
			converged.ResourcePool = *plan.Relocation.Pool
		}
		if plan.Relocation.Folder != nil {
			converged.Folder = *plan.Relocation.Folder
		}
	}
	if plan.Reconfiguration != nil {
		if plan.Reconfiguration.Annotation != nil {
			converged.Annotation = *plan.Reconfiguration.Annotation
		}
		if plan.Reconfiguration.NumCPUs != nil {
			converged.NumCPUs = *plan.Reconfiguration.NumCPUs
		}
		if plan.Reconfiguration.MemoryMB != nil {
			converged.MemoryMB = *plan.Reconfiguration.MemoryMB
		}
	}

	assert.True(t, BuildPlan(desired, converged).Empty())
}

func TestChangeSetBlocked(t *testing.T) {
	cs := ChangeSet{
		{Description: "pool", Kind: Relocation},
		{Description: "cpus", Kind: Reconfiguration, RequiresShutdown: true},
		{Description: "memory", Kind: Reconfiguration, RequiresShutdown: true},
	}
	assert.Equal(t, []string{"cpus", "memory"}, cs.Blocked())
	assert.Nil(t, ChangeSet{}.Blocked())
	assert.Nil(t, ChangeSet{}.Descriptions())
}

func refPtr(r ObjectRef) *ObjectRef { return &r }
func strPtr(s string) *string       { return &s }
func int32Ptr(v int32) *int32       { return &v }
func int64Ptr(v int64) *int64       { return &v }
