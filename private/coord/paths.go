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

package coord

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Paths computes the node layout of the topology store under a configurable
// root. Primary records live in flat per-kind directories; tenant and name
// index entries live under the tenant subtree; ports are additionally indexed
// under their device, rules under their chain and memberships under their
// port group.
type Paths struct {
	root string
}

// NewPaths returns a path layout rooted at the given node.
func NewPaths(root string) Paths {
	return Paths{root: root}
}

// Root returns the root node of the layout.
func (p Paths) Root() string {
	return p.root
}

// Setup creates the static directory skeleton.
func (p Paths) Setup(ctx context.Context, dir Directory) error {
	for _, path := range []string{
		p.BridgesPath(), p.RoutersPath(), p.PortsPath(), p.DevicePortsRoot(),
		p.ChainsPath(), p.RulesPath(), p.PortGroupsPath(), p.MembershipsPath(),
		p.TenantsPath(),
	} {
		if err := dir.EnsurePath(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

func (p Paths) BridgesPath() string { return p.root + "/bridges" }
func (p Paths) RoutersPath() string { return p.root + "/routers" }
func (p Paths) PortsPath() string   { return p.root + "/ports" }
func (p Paths) ChainsPath() string  { return p.root + "/chains" }
func (p Paths) RulesPath() string   { return p.root + "/rules" }
func (p Paths) TenantsPath() string { return p.root + "/tenants" }

func (p Paths) PortGroupsPath() string { return p.root + "/port-groups" }
func (p Paths) DevicePortsRoot() string {
	return p.root + "/device-ports"
}

// BridgePath is the primary record of a bridge.
func (p Paths) BridgePath(id uuid.UUID) string {
	return fmt.Sprintf("%s/%s", p.BridgesPath(), id)
}

// RouterPath is the primary record of a router.
func (p Paths) RouterPath(id uuid.UUID) string {
	return fmt.Sprintf("%s/%s", p.RoutersPath(), id)
}

// PortPath is the primary record of a port.
func (p Paths) PortPath(id uuid.UUID) string {
	return fmt.Sprintf("%s/%s", p.PortsPath(), id)
}

// ChainPath is the primary record of a rule chain.
func (p Paths) ChainPath(id uuid.UUID) string {
	return fmt.Sprintf("%s/%s", p.ChainsPath(), id)
}

// RulePath is the primary record of a rule.
func (p Paths) RulePath(id uuid.UUID) string {
	return fmt.Sprintf("%s/%s", p.RulesPath(), id)
}

// PortGroupPath is the primary record of a port group.
func (p Paths) PortGroupPath(id uuid.UUID) string {
	return fmt.Sprintf("%s/%s", p.PortGroupsPath(), id)
}

// TenantPath is the index directory of a tenant.
func (p Paths) TenantPath(tenantID string) string {
	return fmt.Sprintf("%s/%s", p.TenantsPath(), tenantID)
}

// TenantKindPath is the tenant index directory for an entity kind, e.g.
// .../tenants/t1/bridges.
func (p Paths) TenantKindPath(tenantID, kind string) string {
	return fmt.Sprintf("%s/%s", p.TenantPath(tenantID), kind)
}

// TenantEntryPath is a tenant index entry for one entity.
func (p Paths) TenantEntryPath(tenantID, kind string, id uuid.UUID) string {
	return fmt.Sprintf("%s/%s", p.TenantKindPath(tenantID, kind), id)
}

// TenantNamesPath is the name uniqueness directory for an entity kind, e.g.
// .../tenants/t1/bridge-names.
func (p Paths) TenantNamesPath(tenantID, kind string) string {
	return fmt.Sprintf("%s/%s-names", p.TenantPath(tenantID), kind)
}

// TenantNamePath is the name uniqueness entry for one entity name.
func (p Paths) TenantNamePath(tenantID, kind, name string) string {
	return fmt.Sprintf("%s/%s", p.TenantNamesPath(tenantID, kind), name)
}

// DevicePortsPath is the index directory of a device's ports.
func (p Paths) DevicePortsPath(deviceID uuid.UUID) string {
	return fmt.Sprintf("%s/%s", p.DevicePortsRoot(), deviceID)
}

// DevicePortPath is the device index entry for one port.
func (p Paths) DevicePortPath(deviceID, portID uuid.UUID) string {
	return fmt.Sprintf("%s/%s", p.DevicePortsPath(deviceID), portID)
}

// ChainRulesPath is the index directory of a chain's rules.
func (p Paths) ChainRulesPath(chainID uuid.UUID) string {
	return fmt.Sprintf("%s/rules", p.ChainPath(chainID))
}

// ChainRulePath is the chain index entry for one rule.
func (p Paths) ChainRulePath(chainID, ruleID uuid.UUID) string {
	return fmt.Sprintf("%s/%s", p.ChainRulesPath(chainID), ruleID)
}

// MembershipsPath is the primary record directory of port group memberships.
func (p Paths) MembershipsPath() string {
	return p.root + "/port-group-ports"
}

// MembershipPath is the primary record of a port group membership edge.
func (p Paths) MembershipPath(id uuid.UUID) string {
	return fmt.Sprintf("%s/%s", p.MembershipsPath(), id)
}

// PortGroupPortsPath is the membership directory of a port group.
func (p Paths) PortGroupPortsPath(groupID uuid.UUID) string {
	return fmt.Sprintf("%s/ports", p.PortGroupPath(groupID))
}

// PortGroupPortPath is the membership entry linking a group to a port.
func (p Paths) PortGroupPortPath(groupID, portID uuid.UUID) string {
	return fmt.Sprintf("%s/%s", p.PortGroupPortsPath(groupID), portID)
}
