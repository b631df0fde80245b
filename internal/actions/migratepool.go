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

	"github.com/veldt-io/vsteer/internal/faults"
	"github.com/veldt-io/vsteer/internal/obs/tracing"
	"github.com/veldt-io/vsteer/internal/reconcile"
)

// MigratePoolRequest moves a guest VM into a resource pool under a cluster.
type MigratePoolRequest struct {
	// Guest is the VM to migrate
	Guest string
	// ResourcePool is the target pool name; a partial suffix such as
	// "/Resources" matches the end of the pool's inventory path
	ResourcePool string
	// Cluster bounds the pool search
	Cluster string
}

// MigratePool ensures the guest VM lives in the requested pool. The match
// is suffix-based against every pool path under the cluster; a match that
// is the VM's current pool reports no change instead of re-migrating.
func (r *Runner) MigratePool(ctx context.Context, req MigratePoolRequest) (result *Result, err error) {
	start := time.Now()
	defer func() { r.finish("migrate-pool", start, err) }()

	ctx, span := tracing.StartSpan(ctx, "migrate-pool")
	defer span.End()

	ctx, log := r.runLog(ctx, "migrate-pool", req.Guest)

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

	pools, err := r.Client.ResourcePools(ctx, req.Cluster)
	if err != nil {
		return nil, err
	}

	match, ok := reconcile.MatchPool(req.ResourcePool, observed.ResourcePoolName, pools)
	if !ok {
		return nil, faults.NewNotFound("resource pool", req.ResourcePool, r.Client.Server())
	}

	if match.NoChange || match.Ref == observed.ResourcePool {
		log.Info("already in requested pool", "pool", match.Path)
		return &Result{Changed: false, Facts: facts(observed)}, nil
	}

	change := fmt.Sprintf("resource pool changed from %s to %s", observed.ResourcePoolName, match.Path)

	if r.DryRun() {
		log.Info("pending pool migration", "target", match.Path)
		return &Result{
			Changed: true,
			Changes: []string{change + dryRunSuffix},
			Facts:   facts(observed),
		}, nil
	}

	pool := match.Ref
	poller, err := r.Client.Relocate(ctx, vm, reconcile.RelocationSpec{Pool: &pool})
	if err != nil {
		return nil, err
	}
	if err := r.await(ctx, poller, "pool migration"); err != nil {
		return nil, err
	}
	log.Info("pool migration applied", "target", match.Path)

	observed, err = r.Client.ObserveVM(ctx, vm)
	if err != nil {
		return nil, err
	}

	return &Result{Changed: true, Changes: []string{change}, Facts: facts(observed)}, nil
}
