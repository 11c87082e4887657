// Copyright 2022 Overlaynet Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package topostore implements the topology consistency layer. Every logical
// mutation is translated into a minimal batch of primitive coordination-store
// operations and committed atomically: the primary record, the tenant index
// entry and the name uniqueness entry of an entity never diverge. The store
// holds no locks; conflicting writers are serialized by the store's
// node-exists and compare-and-swap semantics.
package topostore

import (
	"context"

	"github.com/google/uuid"

	"github.com/overlaynet/topod/pkg/metrics"
	"github.com/overlaynet/topod/pkg/private/serrors"
	"github.com/overlaynet/topod/pkg/topology"
	"github.com/overlaynet/topod/private/coord"
)

type options struct {
	codec Codec
	paths coord.Paths
	ops   metrics.Counter
}

// Option configures the store.
type Option func(*options)

// WithCodec overrides the default JSON codec.
func WithCodec(c Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithPaths overrides the default node layout root.
func WithPaths(p coord.Paths) Option {
	return func(o *options) { o.paths = p }
}

// WithOperationMetrics counts operations, labeled by op and result.
func WithOperationMetrics(c metrics.Counter) Option {
	return func(o *options) { o.ops = c }
}

// Store is the topology store. It is safe for concurrent use; all durable
// state lives in the coordination directory.
type Store struct {
	dir   coord.Directory
	paths coord.Paths
	codec Codec
	ops   metrics.Counter
}

// NewStore returns a store on top of the given coordination directory.
func NewStore(dir coord.Directory, opts ...Option) *Store {
	o := options{
		codec: JSONCodec{},
		paths: coord.NewPaths("/topo"),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store{dir: dir, paths: o.paths, codec: o.codec, ops: o.ops}
}

// Setup creates the static directory skeleton. It must be called once before
// the first mutation, typically at process startup.
func (s *Store) Setup(ctx context.Context) error {
	if err := s.paths.Setup(ctx, s.dir); err != nil {
		return mapCoordErr(err)
	}
	return nil
}

// observe records the outcome of an operation.
func (s *Store) observe(op string, err error) {
	if s.ops != nil {
		s.ops.With("op", op, "result", errKind(err)).Add(1)
	}
}

// marshal encodes a record, mapping codec failures to ErrSerialization.
func (s *Store) marshal(v any) ([]byte, error) {
	data, err := s.codec.Marshal(v)
	if err != nil {
		return nil, serrors.Join(ErrSerialization, err)
	}
	return data, nil
}

// getRecord reads and decodes a primary record, returning its version for
// optimistic concurrency.
func (s *Store) getRecord(ctx context.Context, path string, v any) (int32, error) {
	data, version, err := s.dir.Get(ctx, path)
	if err != nil {
		return 0, mapCoordErr(err)
	}
	if err := s.codec.Unmarshal(data, v); err != nil {
		return 0, serrors.Join(ErrSerialization, err, "path", path)
	}
	return version, nil
}

// multi submits an atomic batch and maps the failure kind.
func (s *Store) multi(ctx context.Context, ops []coord.Op) error {
	return mapCoordErr(s.dir.Multi(ctx, ops...))
}

// validateName checks only the name field, for update paths where the rest
// of the record is taken from the stored state.
func validateName(name string) []topology.Violation {
	switch {
	case name == "":
		return []topology.Violation{{Property: "name", Message: "must not be empty"}}
	case len(name) > 255:
		return []topology.Violation{{Property: "name",
			Message: "must not exceed 255 characters"}}
	}
	return nil
}

// checkTenantImmutable rejects updates that try to move an entity to another
// tenant. An empty tenant on the update payload means "keep".
func checkTenantImmutable(requested, current string) error {
	if requested != "" && requested != current {
		return topology.Check([]topology.Violation{
			{Property: "tenantId", Message: "immutable after creation"},
		})
	}
	return nil
}

// serrorsSerialization flags an index entry whose name is not a valid
// identifier. Such an entry can only come from a corrupted writer.
func serrorsSerialization(raw string, err error) error {
	return serrors.Join(ErrSerialization, err, "entry", raw)
}

// ensureID assigns a fresh identifier when the caller did not supply one.
func ensureID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

// Owner returns the owning tenant of an entity by walking the containment
// edges: ports resolve through their device, rules through their chain and
// memberships through their port group.
func (s *Store) Owner(ctx context.Context, kind topology.Kind,
	id uuid.UUID) (string, error) {

	switch kind {
	case topology.KindBridge:
		b, err := s.GetBridge(ctx, id)
		if err != nil {
			return "", err
		}
		return b.TenantID, nil
	case topology.KindRouter:
		r, err := s.GetRouter(ctx, id)
		if err != nil {
			return "", err
		}
		return r.TenantID, nil
	case topology.KindPort:
		p, err := s.GetPort(ctx, id)
		if err != nil {
			return "", err
		}
		return s.deviceOwner(ctx, p)
	case topology.KindChain:
		c, err := s.GetChain(ctx, id)
		if err != nil {
			return "", err
		}
		return c.TenantID, nil
	case topology.KindRule:
		r, err := s.GetRule(ctx, id)
		if err != nil {
			return "", err
		}
		return s.Owner(ctx, topology.KindChain, r.ChainID)
	case topology.KindPortGroup:
		g, err := s.GetPortGroup(ctx, id)
		if err != nil {
			return "", err
		}
		return g.TenantID, nil
	case topology.KindPortGroupPort:
		m, err := s.GetPortGroupPort(ctx, id)
		if err != nil {
			return "", err
		}
		return s.Owner(ctx, topology.KindPortGroup, m.PortGroupID)
	default:
		return "", serrors.Join(ErrNotFound, nil, "kind", kind)
	}
}

// deviceOwner resolves a port's tenant through its device. The port kind
// determines whether the device is a bridge or a router.
func (s *Store) deviceOwner(ctx context.Context, p *topology.Port) (string, error) {
	if p.RouterAttached() {
		r, err := s.GetRouter(ctx, p.DeviceID)
		if err != nil {
			return "", err
		}
		return r.TenantID, nil
	}
	b, err := s.GetBridge(ctx, p.DeviceID)
	if err != nil {
		return "", err
	}
	return b.TenantID, nil
}
