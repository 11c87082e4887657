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

package auth_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overlaynet/topod/control/auth"
	"github.com/overlaynet/topod/control/topostore"
	"github.com/overlaynet/topod/pkg/log"
	"github.com/overlaynet/topod/pkg/log/testlog"
	"github.com/overlaynet/topod/pkg/topology"
	"github.com/overlaynet/topod/private/coord/coordtest"
)

type fixture struct {
	ctx        context.Context
	store      *topostore.Store
	authorizer *auth.Authorizer

	bridgeID uuid.UUID
	portID   uuid.UUID
	ruleID   uuid.UUID
	groupID  uuid.UUID
}

const (
	blueTenant = "blue"
	redTenant  = "red"
)

// newFixture builds a small blue-tenant topology: a bridge with one port, a
// chain with one rule and a port group containing the port. Port groups are
// configured as publicly readable.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := coordtest.New()
	store := topostore.NewStore(dir)
	ctx := log.CtxWith(context.Background(), testlog.NewLogger(t))
	require.NoError(t, store.Setup(ctx))
	require.NoError(t, store.EnsureTenant(ctx, blueTenant))
	require.NoError(t, store.EnsureTenant(ctx, redTenant))

	bridgeID, err := store.CreateBridge(ctx, &topology.Bridge{
		TenantID: blueTenant, Name: "br0",
	})
	require.NoError(t, err)
	port := topology.NewMaterializedBridgePort(bridgeID)
	portID, err := store.CreatePort(ctx, &port)
	require.NoError(t, err)
	chainID, err := store.CreateChain(ctx, &topology.RuleChain{
		TenantID: blueTenant, Name: "filter",
	})
	require.NoError(t, err)
	ruleID, err := store.InsertRule(ctx, &topology.Rule{ChainID: chainID, Position: 1})
	require.NoError(t, err)
	groupID, err := store.CreatePortGroup(ctx, &topology.PortGroup{
		TenantID: blueTenant, Name: "pg0",
	})
	require.NoError(t, err)

	return &fixture{
		ctx:        ctx,
		store:      store,
		authorizer: auth.NewAuthorizer(store, topology.KindPortGroup),
		bridgeID:   bridgeID,
		portID:     portID,
		ruleID:     ruleID,
		groupID:    groupID,
	}
}

var (
	admin     = auth.Identity{TenantID: "ops", Roles: []string{auth.RoleAdmin}}
	blue      = auth.Identity{TenantID: blueTenant, Roles: []string{auth.RoleTenant}}
	red       = auth.Identity{TenantID: redTenant, Roles: []string{auth.RoleTenant}}
	anonymous = auth.Identity{}
)

func TestAuthorize(t *testing.T) {
	f := newFixture(t)

	testCases := map[string]struct {
		identity auth.Identity
		action   auth.Action
		ref      auth.Ref
		allowed  bool
	}{
		"admin writes foreign bridge": {
			admin, auth.ActionWrite,
			auth.Ref{Kind: topology.KindBridge, ID: f.bridgeID}, true,
		},
		"owner writes own bridge": {
			blue, auth.ActionWrite,
			auth.Ref{Kind: topology.KindBridge, ID: f.bridgeID}, true,
		},
		"foreign tenant writes bridge": {
			red, auth.ActionWrite,
			auth.Ref{Kind: topology.KindBridge, ID: f.bridgeID}, false,
		},
		"foreign tenant reads bridge": {
			red, auth.ActionRead,
			auth.Ref{Kind: topology.KindBridge, ID: f.bridgeID}, false,
		},
		"ownership through port device": {
			blue, auth.ActionDelete,
			auth.Ref{Kind: topology.KindPort, ID: f.portID}, true,
		},
		"foreign tenant through port device": {
			red, auth.ActionDelete,
			auth.Ref{Kind: topology.KindPort, ID: f.portID}, false,
		},
		"ownership through rule chain": {
			blue, auth.ActionWrite,
			auth.Ref{Kind: topology.KindRule, ID: f.ruleID}, true,
		},
		"public kind readable by foreign tenant": {
			red, auth.ActionRead,
			auth.Ref{Kind: topology.KindPortGroup, ID: f.groupID}, true,
		},
		"public kind readable by anonymous": {
			anonymous, auth.ActionRead,
			auth.Ref{Kind: topology.KindPortGroup, ID: f.groupID}, true,
		},
		"public kind not writable by foreign tenant": {
			red, auth.ActionWrite,
			auth.Ref{Kind: topology.KindPortGroup, ID: f.groupID}, false,
		},
		"anonymous reads private kind": {
			anonymous, auth.ActionRead,
			auth.Ref{Kind: topology.KindBridge, ID: f.bridgeID}, false,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			allowed, tenant, err := f.authorizer.Authorize(f.ctx, tc.identity,
				tc.action, tc.ref)
			require.NoError(t, err)
			assert.Equal(t, tc.allowed, allowed)
			assert.Equal(t, blueTenant, tenant)
		})
	}
}

func TestAuthorizeMissingEntity(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.authorizer.Authorize(f.ctx, admin, auth.ActionRead,
		auth.Ref{Kind: topology.KindBridge, ID: uuid.New()})
	require.Error(t, err)
	assert.True(t, auth.IsNotFound(err))
}

func TestRequire(t *testing.T) {
	f := newFixture(t)
	ref := auth.Ref{Kind: topology.KindBridge, ID: f.bridgeID}

	assert.NoError(t, f.authorizer.Require(f.ctx, blue, auth.ActionWrite, ref))
	err := f.authorizer.Require(f.ctx, red, auth.ActionWrite, ref)
	assert.ErrorIs(t, err, auth.ErrForbidden)
}

func TestVisible(t *testing.T) {
	bridges := []*topology.Bridge{
		{TenantID: blueTenant, Name: "br0"},
		{TenantID: redTenant, Name: "br1"},
		{TenantID: blueTenant, Name: "br2"},
	}
	ownerOf := func(b *topology.Bridge) string { return b.TenantID }

	assert.Len(t, auth.Visible(admin, bridges, ownerOf), 3)
	blueVisible := auth.Visible(blue, bridges, ownerOf)
	require.Len(t, blueVisible, 2)
	assert.Equal(t, "br0", blueVisible[0].Name)
	assert.Equal(t, "br2", blueVisible[1].Name)
	assert.Empty(t, auth.Visible(anonymous, bridges, ownerOf))
}
