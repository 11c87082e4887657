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

// CreatePort writes the port's primary record and its device index entry in
// one atomic batch. Ports are always created unbound; peers are established
// exclusively through Link. A missing device, or a device whose kind does not
// match the port variant, fails with ErrNotFound.
func (s *Store) CreatePort(ctx context.Context, p *topology.Port) (uuid.UUID, error) {
	id, err := s.createPort(ctx, p)
	s.observe("port.create", err)
	return id, err
}

func (s *Store) createPort(ctx context.Context, p *topology.Port) (uuid.UUID, error) {
	vs := p.Validate()
	if p.PeerID != nil {
		vs = append(vs, topology.Violation{
			Property: "peerId", Message: "ports are created unbound"})
	}
	if err := topology.Check(vs); err != nil {
		return uuid.Nil, err
	}
	if err := s.checkDeviceRef(ctx, p); err != nil {
		return uuid.Nil, err
	}
	if err := s.checkChainRef(ctx, "inboundFilterId", p.InboundFilterID); err != nil {
		return uuid.Nil, err
	}
	if err := s.checkChainRef(ctx, "outboundFilterId", p.OutboundFilterID); err != nil {
		return uuid.Nil, err
	}
	p.ID = ensureID(p.ID)
	data, err := s.marshal(p)
	if err != nil {
		return uuid.Nil, err
	}
	return p.ID, s.multi(ctx, []coord.Op{
		coord.CreateOp(s.paths.PortPath(p.ID), data),
		coord.CreateOp(s.paths.DevicePortPath(p.DeviceID, p.ID), nil),
	})
}

// GetPort reads and decodes the port's primary record.
func (s *Store) GetPort(ctx context.Context, id uuid.UUID) (*topology.Port, error) {
	var p topology.Port
	if _, err := s.getRecord(ctx, s.paths.PortPath(id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPorts returns all ports of the given device. Order is unspecified.
func (s *Store) ListPorts(ctx context.Context, deviceID uuid.UUID) ([]*topology.Port, error) {
	ids, err := s.dir.Children(ctx, s.paths.DevicePortsPath(deviceID))
	if err != nil {
		return nil, mapCoordErr(err)
	}
	ports := make([]*topology.Port, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, serrorsSerialization(raw, err)
		}
		p, err := s.GetPort(ctx, id)
		if err != nil {
			return nil, err
		}
		ports = append(ports, p)
	}
	return ports, nil
}

// UpdatePort rewrites the port's mutable fields: the VIF attachment, the
// filter chain references and, for router-attached variants, the address
// triple. The device, the kind and the peer are immutable here; peers change
// only through Link and Unlink.
func (s *Store) UpdatePort(ctx context.Context, p *topology.Port) error {
	err := s.updatePort(ctx, p)
	s.observe("port.update", err)
	return err
}

func (s *Store) updatePort(ctx context.Context, p *topology.Port) error {
	var cur topology.Port
	version, err := s.getRecord(ctx, s.paths.PortPath(p.ID), &cur)
	if err != nil {
		return err
	}
	var vs []topology.Violation
	if p.DeviceID != uuid.Nil && p.DeviceID != cur.DeviceID {
		vs = append(vs, topology.Violation{
			Property: "deviceId", Message: "immutable after creation"})
	}
	if p.Kind != "" && p.Kind != cur.Kind {
		vs = append(vs, topology.Violation{
			Property: "kind", Message: "immutable after creation"})
	}
	if p.PeerID != nil {
		vs = append(vs, topology.Violation{
			Property: "peerId", Message: "peers change only through link operations"})
	}
	if err := topology.Check(vs); err != nil {
		return err
	}

	next := cur
	next.VIFID = p.VIFID
	next.InboundFilterID = p.InboundFilterID
	next.OutboundFilterID = p.OutboundFilterID
	if cur.RouterAttached() {
		next.NetworkAddress = p.NetworkAddress
		next.NetworkLength = p.NetworkLength
		next.PortAddress = p.PortAddress
	}
	if err := topology.Check(next.Validate()); err != nil {
		return err
	}
	if err := s.checkChainRef(ctx, "inboundFilterId", next.InboundFilterID); err != nil {
		return err
	}
	if err := s.checkChainRef(ctx, "outboundFilterId", next.OutboundFilterID); err != nil {
		return err
	}
	data, err := s.marshal(&next)
	if err != nil {
		return err
	}
	return s.multi(ctx, []coord.Op{
		coord.SetOpVersion(s.paths.PortPath(p.ID), data, version),
	})
}

// DeletePort removes the port's primary record and its device index entry.
// A logical port that still holds a peer reference is refused with
// ErrConflict; callers must Unlink first.
func (s *Store) DeletePort(ctx context.Context, id uuid.UUID) error {
	err := s.deletePort(ctx, id)
	s.observe("port.delete", err)
	return err
}

func (s *Store) deletePort(ctx context.Context, id uuid.UUID) error {
	p, err := s.GetPort(ctx, id)
	if err != nil {
		return err
	}
	if p.Bound() {
		return serrors.Join(ErrConflict, nil, "reason", "port is bound", "port", id)
	}
	return s.multi(ctx, []coord.Op{
		coord.DeleteOp(s.paths.DevicePortPath(p.DeviceID, id)),
		coord.DeleteOp(s.paths.PortPath(id)),
	})
}

// Link binds two unbound logical ports on different devices to each other.
// Both peer writes commit in one atomic batch guarded by the ports' read
// versions, so an observer never sees a one-sided link and concurrent link
// attempts on the same port lose with ErrConflict.
func (s *Store) Link(ctx context.Context, aID, bID uuid.UUID) error {
	err := s.link(ctx, aID, bID)
	s.observe("port.link", err)
	return err
}

func (s *Store) link(ctx context.Context, aID, bID uuid.UUID) error {
	if aID == bID {
		return topology.Check([]topology.Violation{
			{Property: "peerId", Message: "cannot link a port to itself"},
		})
	}
	var a, b topology.Port
	aVersion, err := s.getRecord(ctx, s.paths.PortPath(aID), &a)
	if err != nil {
		return err
	}
	bVersion, err := s.getRecord(ctx, s.paths.PortPath(bID), &b)
	if err != nil {
		return err
	}
	var vs []topology.Violation
	if !a.Logical() {
		vs = append(vs, topology.Violation{
			Property: "portId", Message: "not a logical port"})
	}
	if !b.Logical() {
		vs = append(vs, topology.Violation{
			Property: "peerId", Message: "not a logical port"})
	}
	if err := topology.Check(vs); err != nil {
		return err
	}
	if a.DeviceID == b.DeviceID {
		return serrors.Join(ErrConflict, nil,
			"reason", "ports belong to the same device", "device", a.DeviceID)
	}
	if a.Bound() || b.Bound() {
		return serrors.Join(ErrConflict, nil, "reason", "port already bound")
	}

	a.PeerID = &b.ID
	b.PeerID = &a.ID
	aData, err := s.marshal(&a)
	if err != nil {
		return err
	}
	bData, err := s.marshal(&b)
	if err != nil {
		return err
	}
	log.FromCtx(ctx).Debug("Linking ports", "a", aID, "b", bID)
	return s.multi(ctx, []coord.Op{
		coord.SetOpVersion(s.paths.PortPath(aID), aData, aVersion),
		coord.SetOpVersion(s.paths.PortPath(bID), bData, bVersion),
	})
}

// Unlink clears the link of the given port and of its peer in one atomic
// batch. Unlinking an already unbound port is a no-op success.
func (s *Store) Unlink(ctx context.Context, id uuid.UUID) error {
	err := s.unlink(ctx, id)
	s.observe("port.unlink", err)
	return err
}

func (s *Store) unlink(ctx context.Context, id uuid.UUID) error {
	var p topology.Port
	version, err := s.getRecord(ctx, s.paths.PortPath(id), &p)
	if err != nil {
		return err
	}
	if !p.Bound() {
		return nil
	}
	var peer topology.Port
	peerVersion, err := s.getRecord(ctx, s.paths.PortPath(*p.PeerID), &peer)
	if err != nil {
		return err
	}
	p.PeerID = nil
	peer.PeerID = nil
	pData, err := s.marshal(&p)
	if err != nil {
		return err
	}
	peerData, err := s.marshal(&peer)
	if err != nil {
		return err
	}
	log.FromCtx(ctx).Debug("Unlinking ports", "port", p.ID, "peer", peer.ID)
	return s.multi(ctx, []coord.Op{
		coord.SetOpVersion(s.paths.PortPath(p.ID), pData, version),
		coord.SetOpVersion(s.paths.PortPath(peer.ID), peerData, peerVersion),
	})
}

// prepareDevicePortsDelete builds the delete operations for all ports of a
// device, for the cascading device delete. It refuses while any logical port
// of the device is still linked.
func (s *Store) prepareDevicePortsDelete(ctx context.Context,
	deviceID uuid.UUID) ([]coord.Op, error) {

	ids, err := s.dir.Children(ctx, s.paths.DevicePortsPath(deviceID))
	if err != nil {
		return nil, mapCoordErr(err)
	}
	var ops []coord.Op
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, serrorsSerialization(raw, err)
		}
		p, err := s.GetPort(ctx, id)
		if err != nil {
			return nil, err
		}
		if p.Bound() {
			return nil, serrors.Join(ErrConflict, nil,
				"reason", "port is bound", "port", id)
		}
		ops = append(ops,
			coord.DeleteOp(s.paths.DevicePortPath(deviceID, id)),
			coord.DeleteOp(s.paths.PortPath(id)),
		)
	}
	return ops, nil
}

// checkDeviceRef verifies the port's device exists and is of the kind the
// port variant attaches to: a router for router-attached ports, a bridge for
// bridge-attached and VXLAN ports. Without this check a port could exist
// whose owning tenant is unresolvable.
func (s *Store) checkDeviceRef(ctx context.Context, p *topology.Port) error {
	path := s.paths.BridgePath(p.DeviceID)
	if p.RouterAttached() {
		path = s.paths.RouterPath(p.DeviceID)
	}
	ok, err := s.dir.Exists(ctx, path)
	if err != nil {
		return mapCoordErr(err)
	}
	if !ok {
		return serrors.Join(ErrNotFound, nil,
			"property", "deviceId", "device", p.DeviceID, "kind", p.Kind)
	}
	return nil
}

// checkChainRef verifies that a referenced filter chain exists.
func (s *Store) checkChainRef(ctx context.Context, property string,
	id *uuid.UUID) error {

	if id == nil {
		return nil
	}
	ok, err := s.dir.Exists(ctx, s.paths.ChainPath(*id))
	if err != nil {
		return mapCoordErr(err)
	}
	if !ok {
		return serrors.Join(ErrNotFound, nil, "property", property, "chain", *id)
	}
	return nil
}
