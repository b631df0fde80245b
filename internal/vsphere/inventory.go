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

	"github.com/vmware/govmomi/view"
	"github.com/vmware/govmomi/vim25/types"

	"github.com/veldt-io/vsteer/internal/faults"
	"github.com/veldt-io/vsteer/internal/reconcile"
)

// indexedKinds are the inventory kinds resolved by name during a run.
var indexedKinds = []string{
	string(reconcile.KindVirtualMachine),
	string(reconcile.KindDatastore),
	string(reconcile.KindFolder),
	string(reconcile.KindResourcePool),
	string(reconcile.KindCluster),
}

// kindLabels maps inventory kinds to the nouns used in operator messages.
var kindLabels = map[reconcile.RefKind]string{
	reconcile.KindVirtualMachine: "guest VM",
	reconcile.KindDatastore:      "datastore",
	reconcile.KindFolder:         "folder",
	reconcile.KindResourcePool:   "resource pool",
	reconcile.KindCluster:        "cluster",
	reconcile.KindDatacenter:     "datacenter",
}

type invKey struct {
	kind reconcile.RefKind
	name string
}

// Inventory is a name index over the vCenter inventory, keyed by
// (kind, name). It is built once per reconciliation run from a single
// container view traversal and discarded afterwards. Duplicate names keep
// the first entry seen, preserving first-match-wins semantics.
type Inventory struct {
	byKey  map[invKey]types.ManagedObjectReference
	server string
}

// Refresh rebuilds the session's inventory index. Must be called at the
// start of each run; observed names are never reused across runs.
func (s *Session) Refresh(ctx context.Context) error {
	if err := s.ensureConnection(ctx); err != nil {
		return err
	}

	m := view.NewManager(s.client.Client)
	v, err := m.CreateContainerView(ctx, s.client.ServiceContent.RootFolder, indexedKinds, true)
	if err != nil {
		return fmt.Errorf("failed to create inventory view: %w", err)
	}
	defer func() {
		_ = v.Destroy(ctx)
	}()

	var contents []types.ObjectContent
	if err := v.Retrieve(ctx, indexedKinds, []string{"name"}, &contents); err != nil {
		return fmt.Errorf("failed to retrieve inventory names: %w", err)
	}

	inv := &Inventory{
		byKey:  make(map[invKey]types.ManagedObjectReference, len(contents)),
		server: s.cfg.Host,
	}
	for _, content := range contents {
		name, ok := firstString(content.PropSet)
		if !ok {
			continue
		}
		key := invKey{kind: reconcile.RefKind(content.Obj.Type), name: name}
		if _, exists := inv.byKey[key]; !exists {
			inv.byKey[key] = content.Obj
		}
	}

	s.inventory = inv
	return nil
}

// Lookup resolves a name within a kind. The second return value is false
// when no object of that kind carries the name.
func (s *Session) Lookup(kind reconcile.RefKind, name string) (reconcile.ObjectRef, bool) {
	if s.inventory == nil {
		return reconcile.ObjectRef{}, false
	}
	ref, ok := s.inventory.byKey[invKey{kind: kind, name: name}]
	if !ok {
		return reconcile.ObjectRef{}, false
	}
	return objectRef(ref), true
}

// Resolve resolves a name within a kind, failing with a NotFoundError that
// names the object and the server.
func (s *Session) Resolve(kind reconcile.RefKind, name string) (reconcile.ObjectRef, error) {
	ref, ok := s.Lookup(kind, name)
	if !ok {
		return reconcile.ObjectRef{}, faults.NewNotFound(kindLabels[kind], name, s.cfg.Host)
	}
	return ref, nil
}

func firstString(props []types.DynamicProperty) (string, bool) {
	for _, p := range props {
		if s, ok := p.Val.(string); ok {
			return s, true
		}
	}
	return "", false
}

// objectRef converts a managed object reference to the core's ref type.
func objectRef(ref types.ManagedObjectReference) reconcile.ObjectRef {
	return reconcile.ObjectRef{Kind: reconcile.RefKind(ref.Type), Value: ref.Value}
}

// moRef converts a core ref back to a managed object reference.
func moRef(ref reconcile.ObjectRef) types.ManagedObjectReference {
	return types.ManagedObjectReference{Type: string(ref.Kind), Value: ref.Value}
}
