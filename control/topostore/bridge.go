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

// CreateBridge writes the bridge's primary record, its tenant index entry,
// its name uniqueness entry and its empty port index in one atomic batch.
// A name collision within the tenant fails with ErrConflict.
func (s *Store) CreateBridge(ctx context.Context, b *topology.Bridge) (uuid.UUID, error) {
	if err := topology.Check(b.Validate()); err != nil {
		s.observe("bridge.create", err)
		return uuid.Nil, err
	}
	b.ID = ensureID(b.ID)
	data, err := s.marshal(b)
	if err != nil {
		s.observe("bridge.create", err)
		return uuid.Nil, err
	}
	path := s.paths.BridgePath(b.ID)
	log.FromCtx(ctx).Debug("Preparing bridge create", "path", path)
	err = s.multi(ctx, []coord.Op{
		coord.CreateOp(path, data),
		coord.CreateOp(s.paths.TenantEntryPath(b.TenantID, bridgesIndex, b.ID), nil),
		coord.CreateOp(s.paths.TenantNamePath(b.TenantID, "bridge", b.Name),
			[]byte(b.ID.String())),
		coord.CreateOp(s.paths.DevicePortsPath(b.ID), nil),
	})
	s.observe("bridge.create", err)
	if err != nil {
		return uuid.Nil, err
	}
	return b.ID, nil
}

// GetBridge reads and decodes the bridge's primary record.
func (s *Store) GetBridge(ctx context.Context, id uuid.UUID) (*topology.Bridge, error) {
	var b topology.Bridge
	if _, err := s.getRecord(ctx, s.paths.BridgePath(id), &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBridges returns all bridges owned by the tenant. Order is unspecified.
func (s *Store) ListBridges(ctx context.Context, tenantID string) ([]*topology.Bridge, error) {
	ids, err := s.dir.Children(ctx, s.paths.TenantKindPath(tenantID, bridgesIndex))
	if err != nil {
		return nil, mapCoordErr(err)
	}
	bridges := make([]*topology.Bridge, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, serrorsSerialization(raw, err)
		}
		b, err := s.GetBridge(ctx, id)
		if err != nil {
			return nil, err
		}
		bridges = append(bridges, b)
	}
	return bridges, nil
}

// UpdateBridge rewrites the primary record and, on rename, atomically swaps
// the name uniqueness entries. The tenant is immutable.
func (s *Store) UpdateBridge(ctx context.Context, b *topology.Bridge) error {
	err := s.updateBridge(ctx, b)
	s.observe("bridge.update", err)
	return err
}

func (s *Store) updateBridge(ctx context.Context, b *topology.Bridge) error {
	if err := topology.Check(validateName(b.Name)); err != nil {
		return err
	}
	var cur topology.Bridge
	version, err := s.getRecord(ctx, s.paths.BridgePath(b.ID), &cur)
	if err != nil {
		return err
	}
	if err := checkTenantImmutable(b.TenantID, cur.TenantID); err != nil {
		return err
	}
	next := cur
	next.Name = b.Name
	data, err := s.marshal(&next)
	if err != nil {
		return err
	}
	var ops []coord.Op
	if next.Name != cur.Name {
		ops = append(ops,
			coord.DeleteOp(s.paths.TenantNamePath(cur.TenantID, "bridge", cur.Name)),
			coord.CreateOp(s.paths.TenantNamePath(cur.TenantID, "bridge", next.Name),
				[]byte(cur.ID.String())),
		)
	}
	ops = append(ops, coord.SetOpVersion(s.paths.BridgePath(b.ID), data, version))
	return s.multi(ctx, ops)
}

// DeleteBridge removes the bridge together with its index entries and all of
// its ports in one atomic batch. It fails with ErrConflict while any of the
// bridge's logical ports is still linked.
func (s *Store) DeleteBridge(ctx context.Context, id uuid.UUID) error {
	err := s.deleteBridge(ctx, id)
	s.observe("bridge.delete", err)
	return err
}

func (s *Store) deleteBridge(ctx context.Context, id uuid.UUID) error {
	b, err := s.GetBridge(ctx, id)
	if err != nil {
		return err
	}
	ops, err := s.prepareDevicePortsDelete(ctx, id)
	if err != nil {
		return err
	}
	ops = append(ops,
		coord.DeleteOp(s.paths.DevicePortsPath(id)),
		coord.DeleteOp(s.paths.TenantNamePath(b.TenantID, "bridge", b.Name)),
		coord.DeleteOp(s.paths.TenantEntryPath(b.TenantID, bridgesIndex, id)),
		coord.DeleteOp(s.paths.BridgePath(id)),
	)
	log.FromCtx(ctx).Debug("Preparing bridge delete", "id", id, "ops", len(ops))
	return s.multi(ctx, ops)
}
