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
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
)

const maxNameLen = 255

// Violation describes a single invalid input field.
type Violation struct {
	Property string `json:"property"`
	Message  string `json:"message"`
}

// ValidationError carries the ordered list of field violations for a
// malformed entity. It is produced before any store interaction happens.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Property, v.Message))
	}
	return "validation failed [ " + strings.Join(parts, "; ") + " ]"
}

// Check converts a violation list into an error, or nil if the list is empty.
func Check(violations []Violation) error {
	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}

// Validate checks the bridge fields.
func (b *Bridge) Validate() []Violation {
	return validateNamed(b.TenantID, b.Name)
}

// Validate checks the router fields.
func (r *Router) Validate() []Violation {
	return validateNamed(r.TenantID, r.Name)
}

// Validate checks the rule chain fields.
func (c *RuleChain) Validate() []Violation {
	return validateNamed(c.TenantID, c.Name)
}

// Validate checks the port group fields.
func (g *PortGroup) Validate() []Violation {
	return validateNamed(g.TenantID, g.Name)
}

// Validate checks that the port's field set matches its kind and that the
// address fields parse. The violation order follows the field order of the
// wire shape, so boundary error lists are deterministic.
func (p *Port) Validate() []Violation {
	var vs []Violation
	if p.DeviceID == uuid.Nil {
		vs = append(vs, Violation{"deviceId", "must be set"})
	}
	switch p.Kind {
	case MaterializedBridgePort:
		vs = append(vs, p.requireNoPeer()...)
	case MaterializedRouterPort:
		vs = append(vs, p.validateAddressTriple()...)
		vs = append(vs, p.requireNoPeer()...)
	case LogicalBridgePort:
		vs = append(vs, p.requireNoVIF()...)
	case LogicalRouterPort:
		vs = append(vs, p.validateAddressTriple()...)
		vs = append(vs, p.requireNoVIF()...)
	case VXLANPort:
		if !isDottedQuad(p.MgmtIP) {
			vs = append(vs, Violation{"mgmtIp", "must be a dotted-quad address"})
		}
	default:
		vs = append(vs, Violation{"kind", fmt.Sprintf("unknown port kind %q", p.Kind)})
	}
	return vs
}

// Validate checks the rule fields. Position bounds, including negative
// positions, are checked against the chain size by the store, not here.
func (r *Rule) Validate() []Violation {
	var vs []Violation
	if r.ChainID == uuid.Nil {
		vs = append(vs, Violation{"chainId", "must be set"})
	}
	return vs
}

// Validate checks the membership edge fields.
func (m *PortGroupPort) Validate() []Violation {
	var vs []Violation
	if m.PortGroupID == uuid.Nil {
		vs = append(vs, Violation{"portGroupId", "must be set"})
	}
	if m.PortID == uuid.Nil {
		vs = append(vs, Violation{"portId", "must be set"})
	}
	return vs
}

func validateNamed(tenantID, name string) []Violation {
	var vs []Violation
	if tenantID == "" {
		vs = append(vs, Violation{"tenantId", "must be set"})
	}
	switch {
	case name == "":
		vs = append(vs, Violation{"name", "must not be empty"})
	case len(name) > maxNameLen:
		vs = append(vs, Violation{"name",
			fmt.Sprintf("must not exceed %d characters", maxNameLen)})
	}
	return vs
}

func (p *Port) validateAddressTriple() []Violation {
	var vs []Violation
	if !isDottedQuad(p.NetworkAddress) {
		vs = append(vs, Violation{"networkAddress", "must be a dotted-quad address"})
	}
	if p.NetworkLength < 0 || p.NetworkLength > 32 {
		vs = append(vs, Violation{"networkLength", "must be in range 0..32"})
	}
	if !isDottedQuad(p.PortAddress) {
		vs = append(vs, Violation{"portAddress", "must be a dotted-quad address"})
	}
	return vs
}

func (p *Port) requireNoPeer() []Violation {
	if p.PeerID != nil {
		return []Violation{{"peerId", "not allowed on materialized ports"}}
	}
	return nil
}

func (p *Port) requireNoVIF() []Violation {
	var vs []Violation
	if p.VIFID != nil {
		vs = append(vs, Violation{"vifId", "not allowed on logical ports"})
	}
	if p.InboundFilterID != nil || p.OutboundFilterID != nil {
		vs = append(vs, Violation{"inboundFilterId",
			"filters are not allowed on logical ports"})
	}
	return vs
}

func isDottedQuad(s string) bool {
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() != nil && strings.Count(s, ".") == 3
}
