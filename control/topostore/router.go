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

package topostore

import (
	"context"

	"github.com/google/uuid"

	"github.com/overlaynet/topod/pkg/log"
	"github.com/overlaynet/topod/pkg/topology"
	"github.com/overlaynet/topod/private/coord"
)

// CreateRouter writes the router's primary record, its tenant index entry,
// its name uniqueness entry and its empty port index in one atomic batch.
// Router names are unique per tenant among routers; a collision fails with
// ErrConflict.
func (s *Store) CreateRouter(ctx context.Context, r *topology.Router) (uuid.UUID, error) {
	if err := topology.Check(r.Validate()); err != nil {
		s.observe("router.create", err)
		return uuid.Nil, err
	}
	r.ID = ensureID(r.ID)
	data, err := s.marshal(r)
	if err != nil {
		s.observe("router.create", err)
		return uuid.Nil, err
	}
	path := s.paths.RouterPath(r.ID)
	log.FromCtx(ctx).Debug("Preparing router create", "path", path)
	err = s.multi(ctx, []coord.Op{
		coord.CreateOp(path, data),
		coord.CreateOp(s.paths.TenantEntryPath(r.TenantID, routersIndex, r.ID), nil),
		coord.CreateOp(s.paths.TenantNamePath(r.TenantID, "router", r.Name),
			[]byte(r.ID.String())),
		coord.CreateOp(s.paths.DevicePortsPath(r.ID), nil),
	})
	s.observe("router.create", err)
	if err != nil {
		return uuid.Nil, err
	}
	return r.ID, nil
}

// GetRouter reads and decodes the router's primary record.
func (s *Store) GetRouter(ctx context.Context, id uuid.UUID) (*topology.Router, error) {
	var r topology.Router
	if _, err := s.getRecord(ctx, s.paths.RouterPath(id), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRouters returns all routers owned by the tenant. Order is unspecified.
func (s *Store) ListRouters(ctx context.Context, tenantID string) ([]*topology.Router, error) {
	ids, err := s.dir.Children(ctx, s.paths.TenantKindPath(tenantID, routersIndex))
	if err != nil {
		return nil, mapCoordErr(err)
	}
	routers := make([]*topology.Router, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, serrorsSerialization(raw, err)
		}
		r, err := s.GetRouter(ctx, id)
		if err != nil {
			return nil, err
		}
		routers = append(routers, r)
	}
	return routers, nil
}

// UpdateRouter rewrites the primary record and, on rename, atomically swaps
// the name uniqueness entries. The tenant is immutable.
func (s *Store) UpdateRouter(ctx context.Context, r *topology.Router) error {
	err := s.updateRouter(ctx, r)
	s.observe("router.update", err)
	return err
}

func (s *Store) updateRouter(ctx context.Context, r *topology.Router) error {
	if err := topology.Check(validateName(r.Name)); err != nil {
		return err
	}
	var cur topology.Router
	version, err := s.getRecord(ctx, s.paths.RouterPath(r.ID), &cur)
	if err != nil {
		return err
	}
	if err := checkTenantImmutable(r.TenantID, cur.TenantID); err != nil {
		return err
	}
	next := cur
	next.Name = r.Name
	data, err := s.marshal(&next)
	if err != nil {
		return err
	}
	var ops []coord.Op
	if next.Name != cur.Name {
		ops = append(ops,
			coord.DeleteOp(s.paths.TenantNamePath(cur.TenantID, "router", cur.Name)),
			coord.CreateOp(s.paths.TenantNamePath(cur.TenantID, "router", next.Name),
				[]byte(cur.ID.String())),
		)
	}
	ops = append(ops, coord.SetOpVersion(s.paths.RouterPath(r.ID), data, version))
	return s.multi(ctx, ops)
}

// DeleteRouter removes the router together with its index entries and all of
// its ports in one atomic batch. It fails with ErrConflict while any of the
// router's logical ports is still linked.
func (s *Store) DeleteRouter(ctx context.Context, id uuid.UUID) error {
	err := s.deleteRouter(ctx, id)
	s.observe("router.delete", err)
	return err
}

func (s *Store) deleteRouter(ctx context.Context, id uuid.UUID) error {
	r, err := s.GetRouter(ctx, id)
	if err != nil {
		return err
	}
	ops, err := s.prepareDevicePortsDelete(ctx, id)
	if err != nil {
		return err
	}
	ops = append(ops,
		coord.DeleteOp(s.paths.DevicePortsPath(id)),
		coord.DeleteOp(s.paths.TenantNamePath(r.TenantID, "router", r.Name)),
		coord.DeleteOp(s.paths.TenantEntryPath(r.TenantID, routersIndex, id)),
		coord.DeleteOp(s.paths.RouterPath(id)),
	)
	log.FromCtx(ctx).Debug("Preparing router delete", "id", id, "ops", len(ops))
	return s.multi(ctx, ops)
}
