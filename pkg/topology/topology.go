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

// Package topology defines the virtual topology entity model: tenant-owned
// bridges, routers, ports, rule chains and port groups. Entities are plain
// values; all persistence and consistency logic lives in the topology store.
package topology

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Kind discriminates the stored entity kinds.
type Kind string

const (
	KindBridge        Kind = "bridge"
	KindRouter        Kind = "router"
	KindPort          Kind = "port"
	KindChain         Kind = "chain"
	KindRule          Kind = "rule"
	KindPortGroup     Kind = "port-group"
	KindPortGroupPort Kind = "port-group-port"
)

// Bridge is a tenant-owned L2 switching device.
type Bridge struct {
	ID       uuid.UUID `json:"id"`
	TenantID string    `json:"tenantId"`
	Name     string    `json:"name"`
}

// Router is a tenant-owned L3 routing device.
type Router struct {
	ID       uuid.UUID `json:"id"`
	TenantID string    `json:"tenantId"`
	Name     string    `json:"name"`
}

// RuleChain is a named, ordered sequence of filtering rules. RuleIDs is kept
// in position order, index i holding the rule at position i+1.
type RuleChain struct {
	ID       uuid.UUID   `json:"id"`
	TenantID string      `json:"tenantId"`
	Name     string      `json:"name"`
	RuleIDs  []uuid.UUID `json:"ruleIds"`
}

// Rule is a single entry of a rule chain. Position is 1-based and contiguous
// within the chain. The match/action payload is opaque to the data layer.
type Rule struct {
	ID       uuid.UUID       `json:"id"`
	ChainID  uuid.UUID       `json:"chainId"`
	Position int             `json:"position"`
	Config   json.RawMessage `json:"config,omitempty"`
}

// PortGroup is a named set of ports. Membership is modeled as PortGroupPort
// edges with their own identity, not as an attribute of Port.
type PortGroup struct {
	ID       uuid.UUID `json:"id"`
	TenantID string    `json:"tenantId"`
	Name     string    `json:"name"`
}

// PortGroupPort is a membership edge between a port group and a port.
type PortGroupPort struct {
	ID          uuid.UUID `json:"id"`
	PortGroupID uuid.UUID `json:"portGroupId"`
	PortID      uuid.UUID `json:"portId"`
}
