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

package topology

import (
	"github.com/google/uuid"
)

// PortKind is the closed set of port variants. A port's kind and device never
// change after creation.
type PortKind string

const (
	// MaterializedBridgePort attaches an external VIF to a bridge.
	MaterializedBridgePort PortKind = "materialized-bridge"
	// MaterializedRouterPort attaches an external VIF to a router and
	// carries the network address triple.
	MaterializedRouterPort PortKind = "materialized-router"
	// LogicalBridgePort interconnects a bridge with a peer logical port.
	LogicalBridgePort PortKind = "logical-bridge"
	// LogicalRouterPort interconnects a router with a peer logical port and
	// carries the network address triple.
	LogicalRouterPort PortKind = "logical-router"
	// VXLANPort terminates a VXLAN tunnel on a bridge.
	VXLANPort PortKind = "vxlan"
)

// Port is the tagged union over all port variants. Which fields are
// meaningful depends on Kind; the constructors below build only valid
// combinations.
type Port struct {
	ID       uuid.UUID `json:"id"`
	DeviceID uuid.UUID `json:"deviceId"`
	Kind     PortKind  `json:"kind"`

	// Materialized variants only.
	VIFID            *uuid.UUID `json:"vifId,omitempty"`
	InboundFilterID  *uuid.UUID `json:"inboundFilterId,omitempty"`
	OutboundFilterID *uuid.UUID `json:"outboundFilterId,omitempty"`

	// Logical variants only.
	PeerID *uuid.UUID `json:"peerId,omitempty"`

	// Router-attached variants only.
	NetworkAddress string `json:"networkAddress,omitempty"`
	NetworkLength  int    `json:"networkLength,omitempty"`
	PortAddress    string `json:"portAddress,omitempty"`

	// VXLAN only.
	MgmtIP string `json:"mgmtIp,omitempty"`
}

// NewMaterializedBridgePort returns a materialized port on the given bridge.
func NewMaterializedBridgePort(bridgeID uuid.UUID) Port {
	return Port{DeviceID: bridgeID, Kind: MaterializedBridgePort}
}

// NewMaterializedRouterPort returns a materialized port on the given router
// with the network address triple.
func NewMaterializedRouterPort(routerID uuid.UUID, netAddr string, netLen int,
	portAddr string) Port {

	return Port{
		DeviceID:       routerID,
		Kind:           MaterializedRouterPort,
		NetworkAddress: netAddr,
		NetworkLength:  netLen,
		PortAddress:    portAddr,
	}
}

// NewLogicalBridgePort returns an unbound logical port on the given bridge.
func NewLogicalBridgePort(bridgeID uuid.UUID) Port {
	return Port{DeviceID: bridgeID, Kind: LogicalBridgePort}
}

// NewLogicalRouterPort returns an unbound logical port on the given router
// with the network address triple.
func NewLogicalRouterPort(routerID uuid.UUID, netAddr string, netLen int,
	portAddr string) Port {

	return Port{
		DeviceID:       routerID,
		Kind:           LogicalRouterPort,
		NetworkAddress: netAddr,
		NetworkLength:  netLen,
		PortAddress:    portAddr,
	}
}

// NewVXLANPort returns a VXLAN port on the given bridge with the tunnel
// endpoint management address.
func NewVXLANPort(bridgeID uuid.UUID, mgmtIP string) Port {
	return Port{DeviceID: bridgeID, Kind: VXLANPort, MgmtIP: mgmtIP}
}

// Logical returns whether the port participates in the peer-link state
// machine.
func (p *Port) Logical() bool {
	return p.Kind == LogicalBridgePort || p.Kind == LogicalRouterPort
}

// Materialized returns whether the port carries an external VIF attachment.
func (p *Port) Materialized() bool {
	return p.Kind == MaterializedBridgePort || p.Kind == MaterializedRouterPort
}

// RouterAttached returns whether the port carries the network address triple.
func (p *Port) RouterAttached() bool {
	return p.Kind == MaterializedRouterPort || p.Kind == LogicalRouterPort
}

// Bound returns whether the logical port currently has a peer.
func (p *Port) Bound() bool {
	return p.PeerID != nil
}
