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

package topostore_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overlaynet/topod/control/topostore"
	"github.com/overlaynet/topod/pkg/topology"
)

func mustCreatePortGroup(t *testing.T, ctx context.Context, store *topostore.Store,
	tenantID, name string) uuid.UUID {

	t.Helper()
	id, err := store.CreatePortGroup(ctx, &topology.PortGroup{
		TenantID: tenantID, Name: name,
	})
	require.NoError(t, err)
	return id
}

func TestPortGroupLifecycle(t *testing.T) {
	ctx, store, _ := newTestStore(t)

	id := mustCreatePortGroup(t, ctx, store, tenant1, "pg0")
	g, err := store.GetPortGroup(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "pg0", g.Name)

	groups, err := store.ListPortGroups(ctx, tenant1)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	require.NoError(t, store.DeletePortGroup(ctx, id))
	_, err = store.GetPortGroup(ctx, id)
	assert.ErrorIs(t, err, topostore.ErrNotFound)
}

func TestPortGroupMembership(t *testing.T) {
	ctx, store, _ := newTestStore(t)
	bridgeID := mustCreateBridge(t, ctx, store, tenant1, "br0")
	portID := mustCreatePort(t, ctx, store, topology.NewMaterializedBridgePort(bridgeID))
	groupID := mustCreatePortGroup(t, ctx, store, tenant1, "pg0")

	edgeID, err := store.AddPortGroupPort(ctx, &topology.PortGroupPort{
		PortGroupID: groupID, PortID: portID,
	})
	require.NoError(t, err)

	members, err := store.ListPortGroupPorts(ctx, groupID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, edgeID, members[0].ID)
	assert.Equal(t, portID, members[0].PortID)

	require.NoError(t, store.DeletePortGroupPort(ctx, edgeID))
	members, err = store.ListPortGroupPorts(ctx, groupID)
	require.NoError(t, err)
	assert.Empty(t, members)
	_, err = store.GetPortGroupPort(ctx, edgeID)
	assert.ErrorIs(t, err, topostore.ErrNotFound)
}

func TestPortGroupDuplicateMember(t *testing.T) {
	ctx, store, _ := newTestStore(t)
	bridgeID := mustCreateBridge(t, ctx, store, tenant1, "br0")
	portID := mustCreatePort(t, ctx, store, topology.NewMaterializedBridgePort(bridgeID))
	groupID := mustCreatePortGroup(t, ctx, store, tenant1, "pg0")

	_, err := store.AddPortGroupPort(ctx, &topology.PortGroupPort{
		PortGroupID: groupID, PortID: portID,
	})
	require.NoError(t, err)

	_, err = store.AddPortGroupPort(ctx, &topology.PortGroupPort{
		PortGroupID: groupID, PortID: portID,
	})
	assert.ErrorIs(t, err, topostore.ErrConflict)
}

func TestPortGroupMemberRefs(t *testing.T) {
	ctx, store, _ := newTestStore(t)
	bridgeID := mustCreateBridge(t, ctx, store, tenant1, "br0")
	portID := mustCreatePort(t, ctx, store, topology.NewMaterializedBridgePort(bridgeID))
	groupID := mustCreatePortGroup(t, ctx, store, tenant1, "pg0")

	_, err := store.AddPortGroupPort(ctx, &topology.PortGroupPort{
		PortGroupID: uuid.New(), PortID: portID,
	})
	assert.ErrorIs(t, err, topostore.ErrNotFound)

	_, err = store.AddPortGroupPort(ctx, &topology.PortGroupPort{
		PortGroupID: groupID, PortID: uuid.New(),
	})
	assert.ErrorIs(t, err, topostore.ErrNotFound)
}

func TestPortGroupDeleteCascade(t *testing.T) {
	ctx, store, _ := newTestStore(t)
	bridgeID := mustCreateBridge(t, ctx, store, tenant1, "br0")
	portID := mustCreatePort(t, ctx, store, topology.NewMaterializedBridgePort(bridgeID))
	groupID := mustCreatePortGroup(t, ctx, store, tenant1, "pg0")

	edgeID, err := store.AddPortGroupPort(ctx, &topology.PortGroupPort{
		PortGroupID: groupID, PortID: portID,
	})
	require.NoError(t, err)

	require.NoError(t, store.DeletePortGroup(ctx, groupID))

	_, err = store.GetPortGroupPort(ctx, edgeID)
	assert.ErrorIs(t, err, topostore.ErrNotFound)
	// The member port is untouched by the group's removal.
	_, err = store.GetPort(ctx, portID)
	assert.NoError(t, err)
}
