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

	"github.com/overlaynet/topod/pkg/topology"
)

// Index directory names per tenant-owned entity kind.
const (
	bridgesIndex    = "bridges"
	routersIndex    = "routers"
	chainsIndex     = "chains"
	portGroupsIndex = "port-groups"
)

var nameIndexKinds = map[topology.Kind]string{
	topology.KindBridge:    "bridge",
	topology.KindRouter:    "router",
	topology.KindChain:     "chain",
	topology.KindPortGroup: "port-group",
}

// EnsureTenant creates the index skeleton for a tenant. Idempotent. Entities
// can only be created under tenants that have been set up this way.
func (s *Store) EnsureTenant(ctx context.Context, tenantID string) error {
	if tenantID == "" {
		return topology.Check([]topology.Violation{
			{Property: "tenantId", Message: "must be set"},
		})
	}
	for _, idx := range []string{bridgesIndex, routersIndex, chainsIndex, portGroupsIndex} {
		if err := s.dir.EnsurePath(ctx, s.paths.TenantKindPath(tenantID, idx)); err != nil {
			return mapCoordErr(err)
		}
	}
	for _, kind := range nameIndexKinds {
		if err := s.dir.EnsurePath(ctx, s.paths.TenantNamesPath(tenantID, kind)); err != nil {
			return mapCoordErr(err)
		}
	}
	return nil
}

// ListTenants returns the identifiers of all tenants that have been set up.
func (s *Store) ListTenants(ctx context.Context) ([]string, error) {
	tenants, err := s.dir.Children(ctx, s.paths.TenantsPath())
	if err != nil {
		return nil, mapCoordErr(err)
	}
	return tenants, nil
}
