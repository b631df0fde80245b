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

import "github.com/veldt-io/vsteer/internal/faults"

// Guard checks whether the plan can be applied given the VM's current power
// state. An empty plan always passes. A plan containing any change that
// requires a shutdown while the VM is powered on is rejected as a whole: the
// returned UnsafeChangeError names every blocked change, so the operator can
// power off once and retry once instead of discovering them one at a time.
func Guard(vm string, plan Plan, power PowerState) error {
	if plan.Empty() || power != PoweredOn {
		return nil
	}

	blocked := plan.Changes.Blocked()
	if len(blocked) == 0 {
		return nil
	}

	return &faults.UnsafeChangeError{VM: vm, Blocked: blocked}
}
