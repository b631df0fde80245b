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

// ToolsStatus is the backend-reported guest-agent state
// (toolsVersionStatus2 in the vSphere API).
type ToolsStatus string

const (
	ToolsNotInstalled ToolsStatus = "guestToolsNotInstalled"
	ToolsNeedUpgrade  ToolsStatus = "guestToolsNeedUpgrade"
	ToolsSupportedOld ToolsStatus = "guestToolsSupportedOld"
	ToolsTooOld       ToolsStatus = "guestToolsTooOld"
	ToolsBlacklisted  ToolsStatus = "guestToolsBlacklisted"
	ToolsCurrent      ToolsStatus = "guestToolsCurrent"
	ToolsUnmanaged    ToolsStatus = "guestToolsUnmanaged"
)

// ToolsState is the desired guest-tools state requested by the operator.
type ToolsState string

const (
	// ToolsPresent only requires the tools to be installed
	ToolsPresent ToolsState = "present"
	// ToolsLatest upgrades the tools whenever a newer version applies
	ToolsLatest ToolsState = "latest"
	// ToolsAbsent requires the tools to not be installed
	ToolsAbsent ToolsState = "absent"
)

// Valid reports whether the state is one of present, latest or absent.
func (s ToolsState) Valid() bool {
	switch s {
	case ToolsPresent, ToolsLatest, ToolsAbsent:
		return true
	}
	return false
}

// ToolsVerdict is the decision of the guest-tools policy.
type ToolsVerdict int

const (
	// ToolsOK means the observed status satisfies the desired state
	ToolsOK ToolsVerdict = iota
	// ToolsUpgrade means an upgrade task must be submitted
	ToolsUpgrade
	// ToolsMismatch means the desired state can not be satisfied by an
	// upgrade; the action must fail
	ToolsMismatch
)

// upgradeable lists every status that a tools upgrade can act on.
var upgradeable = map[ToolsStatus]bool{
	ToolsBlacklisted:  true,
	ToolsNeedUpgrade:  true,
	ToolsNotInstalled: true,
	ToolsSupportedOld: true,
	ToolsTooOld:       true,
}

// DecideTools maps the desired state and the observed status to a verdict.
// "present" and "absent" never submit work: they either hold or are a fatal
// mismatch, mirroring a pure status check.
func DecideTools(state ToolsState, status ToolsStatus) ToolsVerdict {
	switch state {
	case ToolsPresent:
		if status == ToolsNotInstalled {
			return ToolsMismatch
		}
	case ToolsAbsent:
		if status != ToolsNotInstalled {
			return ToolsMismatch
		}
	case ToolsLatest:
		if upgradeable[status] {
			return ToolsUpgrade
		}
	}
	return ToolsOK
}
