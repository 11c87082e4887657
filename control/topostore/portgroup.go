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
	"github.com/overlaynet/topod/pkg/private/serrors"
	"github.com/overlaynet/topod/pkg/topology"
	"github.com/overlaynet/topod/private/coord"
)

// CreatePortGroup writes the group's primary record, its tenant index entry,
// its name uniqueness entry and its empty membership index in one atomic
// batch.
func (s *Store) CreatePortGroup(ctx context.Context,
	g *topology.PortGroup) (uuid.UUID, error) {

	if err := topology.Check(g.Validate()); err != nil {
		s.observe("portgroup.create", err)
		return uuid.Nil, err
	}
	g.ID = ensureID(g.ID)
	data, err := s.marshal(g)
	if err != nil {
		s.observe("portgroup.create", err)
		return uuid.Nil, err
	}
	err = s.multi(ctx, []coord.Op{
		coord.CreateOp(s.paths.PortGroupPath(g.ID), data),
		coord.CreateOp(s.paths.TenantEntryPath(g.TenantID, portGroupsIndex, g.ID), nil),
		coord.CreateOp(s.paths.TenantNamePath(g.TenantID, "port-group", g.Name),
			[]byte(g.ID.String())),
		coord.CreateOp(s.paths.PortGroupPortsPath(g.ID), nil),
	})
	s.observe("portgroup.create", err)
	if err != nil {
		return uuid.Nil, err
	}
	return g.ID, nil
}

// GetPortGroup reads and decodes the group's primary record.
func (s *Store) GetPortGroup(ctx context.Context,
	id uuid.UUID) (*topology.PortGroup, error) {

	var g topology.PortGroup
	if _, err := s.getRecord(ctx, s.paths.PortGroupPath(id), &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// ListPortGroups returns all port groups owned by the tenant. Order is
// unspecified.
func (s *Store) ListPortGroups(ctx context.Context,
	tenantID string) ([]*topology.PortGroup, error) {

	ids, err := s.dir.Children(ctx, s.paths.TenantKindPath(tenantID, portGroupsIndex))
	if err != nil {
		return nil, mapCoordErr(err)
	}
	groups := make([]*topology.PortGroup, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, serrorsSerialization(raw, err)
		}
		g, err := s.GetPortGroup(ctx, id)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// DeletePortGroup removes the group, its index entries and all membership
// edges in one atomic batch. The member ports themselves are untouched.
func (s *Store) DeletePortGroup(ctx context.Context, id uuid.UUID) error {
	err := s.deletePortGroup(ctx, id)
	s.observe("portgroup.delete", err)
	return err
}

func (s *Store) deletePortGroup(ctx context.Context, id uuid.UUID) error {
	g, err := s.GetPortGroup(ctx, id)
	if err != nil {
		return err
	}
	members, err := s.ListPortGroupPorts(ctx, id)
	if err != nil {
		return err
	}
	var ops []coord.Op
	for _, m := range members {
		ops = append(ops,
			coord.DeleteOp(s.paths.PortGroupPortPath(id, m.PortID)),
			coord.DeleteOp(s.paths.MembershipPath(m.ID)),
		)
	}
	ops = append(ops,
		coord.DeleteOp(s.paths.PortGroupPortsPath(id)),
		coord.DeleteOp(s.paths.TenantNamePath(g.TenantID, "port-group", g.Name)),
		coord.DeleteOp(s.paths.TenantEntryPath(g.TenantID, portGroupsIndex, id)),
		coord.DeleteOp(s.paths.PortGroupPath(id)),
	)
	log.FromCtx(ctx).Debug("Preparing port group delete",
		"id", id, "members", len(members))
	return s.multi(ctx, ops)
}

// AddPortGroupPort creates a membership edge between a group and a port. The
// edge has its own identity and lifecycle. Adding a port that is already a
// member fails with ErrConflict; a missing group or port fails with
// ErrNotFound.
func (s *Store) AddPortGroupPort(ctx context.Context,
	m *topology.PortGroupPort) (uuid.UUID, error) {

	id, err := s.addPortGroupPort(ctx, m)
	s.observe("portgroup.add_port", err)
	return id, err
}

func (s *Store) addPortGroupPort(ctx context.Context,
	m *topology.PortGroupPort) (uuid.UUID, error) {

	if err := topology.Check(m.Validate()); err != nil {
		return uuid.Nil, err
	}
	if _, err := s.GetPortGroup(ctx, m.PortGroupID); err != nil {
		return uuid.Nil, err
	}
	if _, err := s.GetPort(ctx, m.PortID); err != nil {
		return uuid.Nil, err
	}
	m.ID = ensureID(m.ID)
	data, err := s.marshal(m)
	if err != nil {
		return uuid.Nil, err
	}
	return m.ID, s.multi(ctx, []coord.Op{
		coord.CreateOp(s.paths.MembershipPath(m.ID), data),
		coord.CreateOp(s.paths.PortGroupPortPath(m.PortGroupID, m.PortID),
			[]byte(m.ID.String())),
	})
}

// GetPortGroupPort reads and decodes a membership edge.
func (s *Store) GetPortGroupPort(ctx context.Context,
	id uuid.UUID) (*topology.PortGroupPort, error) {

	var m topology.PortGroupPort
	if _, err := s.getRecord(ctx, s.paths.MembershipPath(id), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// DeletePortGroupPort removes a membership edge.
func (s *Store) DeletePortGroupPort(ctx context.Context, id uuid.UUID) error {
	err := s.deletePortGroupPort(ctx, id)
	s.observe("portgroup.delete_port", err)
	return err
}

func (s *Store) deletePortGroupPort(ctx context.Context, id uuid.UUID) error {
	m, err := s.GetPortGroupPort(ctx, id)
	if err != nil {
		return err
	}
	return s.multi(ctx, []coord.Op{
		coord.DeleteOp(s.paths.PortGroupPortPath(m.PortGroupID, m.PortID)),
		coord.DeleteOp(s.paths.MembershipPath(id)),
	})
}

// ListPortGroupPorts returns the membership edges of a group. Order is
// unspecified.
func (s *Store) ListPortGroupPorts(ctx context.Context,
	groupID uuid.UUID) ([]*topology.PortGroupPort, error) {

	entries, err := s.dir.Children(ctx, s.paths.PortGroupPortsPath(groupID))
	if err != nil {
		return nil, mapCoordErr(err)
	}
	members := make([]*topology.PortGroupPort, 0, len(entries))
	for _, raw := range entries {
		data, _, err := s.dir.Get(ctx,
			s.paths.PortGroupPortsPath(groupID)+"/"+raw)
		if err != nil {
			return nil, mapCoordErr(err)
		}
		edgeID, err := uuid.ParseBytes(data)
		if err != nil {
			return nil, serrors.Join(ErrSerialization, err, "entry", raw)
		}
		m, err := s.GetPortGroupPort(ctx, edgeID)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}
