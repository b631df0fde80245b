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
	"path"

	"github.com/vmware/govmomi/find"

	"github.com/veldt-io/vsteer/internal/faults"
	"github.com/veldt-io/vsteer/internal/reconcile"
)

// ResourcePools lists every resource pool reachable under the named
// cluster, with its full inventory path. The pool path matcher consumes the
// result.
func (s *Session) ResourcePools(ctx context.Context, cluster string) ([]reconcile.PoolEntry, error) {
	if err := s.ensureConnection(ctx); err != nil {
		return nil, err
	}

	cc, err := s.finder.ClusterComputeResource(ctx, cluster)
	if err != nil {
		var notFound *find.NotFoundError
		if errors.As(err, &notFound) {
			return nil, faults.NewNotFound("cluster", cluster, s.cfg.Host)
		}
		return nil, fmt.Errorf("failed to find cluster %s: %w", cluster, err)
	}

	pools, err := s.finder.ResourcePoolList(ctx, path.Join(cc.InventoryPath, "..."))
	if err != nil {
		var notFound *find.NotFoundError
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list resource pools under cluster %s: %w", cluster, err)
	}

	entries := make([]reconcile.PoolEntry, 0, len(pools))
	for _, pool := range pools {
		entries = append(entries, reconcile.PoolEntry{
			Ref:  objectRef(pool.Reference()),
			Path: pool.InventoryPath,
		})
	}
	return entries, nil
}
