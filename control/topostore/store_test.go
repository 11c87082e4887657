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
	"go.uber.org/goleak"

	"github.com/overlaynet/topod/control/topostore"
	"github.com/overlaynet/topod/pkg/log"
	"github.com/overlaynet/topod/pkg/log/testlog"
	"github.com/overlaynet/topod/pkg/private/serrors"
	"github.com/overlaynet/topod/pkg/topology"
	"github.com/overlaynet/topod/private/coord/coordtest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	tenant1 = "t1"
	tenant2 = "t2"
)

// newTestStore returns a store on a fresh in-memory directory with the
// skeleton and both test tenants set up.
func newTestStore(t *testing.T,
	opts ...topostore.Option) (context.Context, *topostore.Store, *coordtest.Directory) {

	t.Helper()
	dir := coordtest.New()
	store := topostore.NewStore(dir, opts...)
	ctx := log.CtxWith(context.Background(), testlog.NewLogger(t))
	require.NoError(t, store.Setup(ctx))
	require.NoError(t, store.EnsureTenant(ctx, tenant1))
	require.NoError(t, store.EnsureTenant(ctx, tenant2))
	return ctx, store, dir
}

func TestEnsureTenantIdempotent(t *testing.T) {
	ctx, store, _ := newTestStore(t)
	require.NoError(t, store.EnsureTenant(ctx, tenant1))

	tenants, err := store.ListTenants(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{tenant1, tenant2}, tenants)
}

func TestEnsureTenantEmptyID(t *testing.T) {
	ctx, store, _ := newTestStore(t)
	err := store.EnsureTenant(ctx, "")
	var vErr *topology.ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestCreateWithoutTenantSetup(t *testing.T) {
	ctx, store, _ := newTestStore(t)
	_, err := store.CreateBridge(ctx, &topology.Bridge{
		TenantID: "unknown", Name: "br",
	})
	assert.ErrorIs(t, err, topostore.ErrNotFound)
}

func TestContextCanceled(t *testing.T) {
	ctx, store, _ := newTestStore(t)
	canceled, cancel := context.WithCancel(ctx)
	cancel()

	_, err := store.CreateBridge(canceled, &topology.Bridge{
		TenantID: tenant1, Name: "br",
	})
	assert.ErrorIs(t, err, topostore.ErrUnavailable)
}

// failCodec fails marshaling after the first n successful calls, so tests can
// hit the serialization path at a chosen depth.
type failCodec struct {
	topostore.JSONCodec
	remaining int
}

func (c *failCodec) Marshal(v any) ([]byte, error) {
	if c.remaining == 0 {
		return nil, serrors.New("marshal failed")
	}
	c.remaining--
	return c.JSONCodec.Marshal(v)
}

func TestMarshalFailure(t *testing.T) {
	ctx, store, dir := newTestStore(t, topostore.WithCodec(&failCodec{}))
	before := dir.Dump()

	_, err := store.CreateBridge(ctx, &topology.Bridge{
		TenantID: tenant1, Name: "br",
	})
	assert.ErrorIs(t, err, topostore.ErrSerialization)
	assert.Equal(t, before, dir.Dump())
}

func TestCorruptedRecord(t *testing.T) {
	ctx, store, dir := newTestStore(t)
	id, err := store.CreateBridge(ctx, &topology.Bridge{
		TenantID: tenant1, Name: "br",
	})
	require.NoError(t, err)

	// Overwrite the primary record with garbage, as a broken writer would.
	require.NoError(t, dir.Set(ctx, "/topo/bridges/"+id.String(),
		[]byte("{not json"), -1))

	_, err = store.GetBridge(ctx, id)
	assert.ErrorIs(t, err, topostore.ErrSerialization)
}

func TestOwnerWalk(t *testing.T) {
	ctx, store, _ := newTestStore(t)

	bridgeID, err := store.CreateBridge(ctx, &topology.Bridge{
		TenantID: tenant1, Name: "br",
	})
	require.NoError(t, err)
	routerID, err := store.CreateRouter(ctx, &topology.Router{
		TenantID: tenant2, Name: "rt",
	})
	require.NoError(t, err)

	bridgePort := topology.NewMaterializedBridgePort(bridgeID)
	bridgePortID, err := store.CreatePort(ctx, &bridgePort)
	require.NoError(t, err)
	routerPort := topology.NewMaterializedRouterPort(routerID, "10.0.0.0", 24, "10.0.0.1")
	routerPortID, err := store.CreatePort(ctx, &routerPort)
	require.NoError(t, err)

	chainID, err := store.CreateChain(ctx, &topology.RuleChain{
		TenantID: tenant1, Name: "filter",
	})
	require.NoError(t, err)
	ruleID, err := store.InsertRule(ctx, &topology.Rule{ChainID: chainID, Position: 1})
	require.NoError(t, err)

	groupID, err := store.CreatePortGroup(ctx, &topology.PortGroup{
		TenantID: tenant2, Name: "pg",
	})
	require.NoError(t, err)
	memberID, err := store.AddPortGroupPort(ctx, &topology.PortGroupPort{
		PortGroupID: groupID, PortID: bridgePortID,
	})
	require.NoError(t, err)

	testCases := map[string]struct {
		kind   topology.Kind
		id     uuid.UUID
		tenant string
	}{
		"bridge":           {topology.KindBridge, bridgeID, tenant1},
		"router":           {topology.KindRouter, routerID, tenant2},
		"port via bridge":  {topology.KindPort, bridgePortID, tenant1},
		"port via router":  {topology.KindPort, routerPortID, tenant2},
		"chain":            {topology.KindChain, chainID, tenant1},
		"rule via chain":   {topology.KindRule, ruleID, tenant1},
		"port group":       {topology.KindPortGroup, groupID, tenant2},
		"member via group": {topology.KindPortGroupPort, memberID, tenant2},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			tenant, err := store.Owner(ctx, tc.kind, tc.id)
			require.NoError(t, err)
			assert.Equal(t, tc.tenant, tenant)
		})
	}

	_, err = store.Owner(ctx, topology.KindBridge, uuid.New())
	assert.ErrorIs(t, err, topostore.ErrNotFound)
	_, err = store.Owner(ctx, topology.Kind("vlan"), bridgeID)
	assert.ErrorIs(t, err, topostore.ErrNotFound)
}
