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

import "strings"

// PoolEntry is one resource pool reachable under the target cluster.
type PoolEntry struct {
	Ref ObjectRef
	// Path is the hierarchical inventory path of the pool
	Path string
}

// PoolMatch is the outcome of a successful pool lookup.
type PoolMatch struct {
	Ref  ObjectRef
	Path string
	// NoChange is set when the only matching pool is the one the VM is
	// already in, so no migration is needed
	NoChange bool
}

// MatchPool finds the pool whose path ends with the desired name, which may
// be a partial suffix such as "/Resources" or a bare pool name. Matching is
// case-sensitive suffix matching, not an anchored full-path match.
//
// A candidate whose path also ends with the VM's current pool name is the
// pool the VM already lives in; the first candidate that does NOT is
// selected as the migration target. If only current-placement candidates
// match, the result reports NoChange. The second return value is false when
// nothing under the cluster matches at all.
//
// Known limitation: a desired name that is a suffix of two sibling pools
// under different parents is ambiguous and resolves to whichever the search
// order visits first.
func MatchPool(desired, current string, pools []PoolEntry) (PoolMatch, bool) {
	var sawCurrent *PoolEntry

	for i := range pools {
		entry := pools[i]
		if !strings.HasSuffix(entry.Path, desired) {
			continue
		}
		if current != "" && strings.HasSuffix(entry.Path, current) {
			if sawCurrent == nil {
				sawCurrent = &entry
			}
			continue
		}
		return PoolMatch{Ref: entry.Ref, Path: entry.Path}, true
	}

	if sawCurrent != nil {
		return PoolMatch{Ref: sawCurrent.Ref, Path: sawCurrent.Path, NoChange: true}, true
	}

	return PoolMatch{}, false
}
