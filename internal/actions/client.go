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

// Package actions orchestrates the vsteer actions: deploy, migrate-pool and
// tools. Each action runs strictly sequentially — lookup, compare, gate,
// then one relocation unit and one reconfiguration unit — and holds no
// state across runs.
package actions

import (
	"context"

	"github.com/veldt-io/vsteer/internal/reconcile"
	"github.com/veldt-io/vsteer/internal/tasks"
)

// Client is the backend surface an action consumes. *vsphere.Session is the
// production implementation; tests substitute fakes.
type Client interface {
	// Server identifies the backend endpoint for operator messages
	Server() string

	// Refresh rebuilds the per-run name index. Called once at the start of
	// each run; results are never carried across runs.
	Refresh(ctx context.Context) error

	// Lookup resolves a name within a kind; false when absent
	Lookup(kind reconcile.RefKind, name string) (reconcile.ObjectRef, bool)

	// Resolve is Lookup with a NotFoundError on absence
	Resolve(kind reconcile.RefKind, name string) (reconcile.ObjectRef, error)

	// ObserveVM reads the live state of an existing VM
	ObserveVM(ctx context.Context, vm reconcile.ObjectRef) (*reconcile.ObservedState, error)

	// ResourcePools lists (ref, path) pairs reachable under a cluster
	ResourcePools(ctx context.Context, cluster string) ([]reconcile.PoolEntry, error)

	// Relocate submits the relocation group as one work item
	Relocate(ctx context.Context, vm reconcile.ObjectRef, spec reconcile.RelocationSpec) (tasks.Poller, error)

	// Reconfigure submits the reconfiguration group as one work item
	Reconfigure(ctx context.Context, vm reconcile.ObjectRef, spec reconcile.ReconfigSpec) (tasks.Poller, error)

	// Clone creates a VM from a template
	Clone(ctx context.Context, template, folder reconcile.ObjectRef, desired reconcile.DesiredSpec) (tasks.Poller, error)

	// UpgradeTools submits a guest-tools upgrade
	UpgradeTools(ctx context.Context, vm reconcile.ObjectRef, installerOptions string) (tasks.Poller, error)
}
