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
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overlaynet/topod/control/topostore"
	"github.com/overlaynet/topod/pkg/private/serrors"
	"github.com/overlaynet/topod/pkg/topology"
)

func mustCreateChain(t *testing.T, ctx context.Context, store *topostore.Store,
	tenantID, name string) uuid.UUID {

	t.Helper()
	id, err := store.CreateChain(ctx, &topology.RuleChain{TenantID: tenantID, Name: name})
	require.NoError(t, err)
	return id
}

func mustInsertRule(t *testing.T, ctx context.Context, store *topostore.Store,
	chainID uuid.UUID, position int, label string) uuid.UUID {

	t.Helper()
	id, err := store.InsertRule(ctx, &topology.Rule{
		ChainID:  chainID,
		Position: position,
		Config:   json.RawMessage(fmt.Sprintf("%q", label)),
	})
	require.NoError(t, err)
	return id
}

// requireRuleOrder asserts the chain holds exactly the labeled rules at
// contiguous positions 1..N in the given order.
func requireRuleOrder(t *testing.T, ctx context.Context, store *topostore.Store,
	chainID uuid.UUID, labels []string) {

	t.Helper()
	rules, err := store.ListRules(ctx, chainID)
	require.NoError(t, err)
	require.Len(t, rules, len(labels))
	for i, r := range rules {
		require.Equal(t, i+1, r.Position)
		var label string
		require.NoError(t, json.Unmarshal(r.Config, &label))
		require.Equal(t, labels[i], label)
	}
}

func TestInsertRuleAppend(t *testing.T) {
	ctx, store, _ := newTestStore(t)
	chainID := mustCreateChain(t, ctx, store, tenant1, "filter")

	mustInsertRule(t, ctx, store, chainID, 1, "a")
	mustInsertRule(t, ctx, store, chainID, 2, "b")
	mustInsertRule(t, ctx, store, chainID, 3, "c")

	requireRuleOrder(t, ctx, store, chainID, []string{"a", "b", "c"})
}

func TestInsertRuleHead(t *testing.T) {
	ctx, store, _ := newTestStore(t)
	chainID := mustCreateChain(t, ctx, store, tenant1, "filter")

	// Position 0 means head insertion, so repeated inserts stack in reverse.
	for _, label := range []string{"c", "b", "a"} {
		mustInsertRule(t, ctx, store, chainID, 0, label)
	}

	requireRuleOrder(t, ctx, store, chainID, []string{"a", "b", "c"})
}

func TestInsertRuleMiddle(t *testing.T) {
	ctx, store, _ := newTestStore(t)
	chainID := mustCreateChain(t, ctx, store, tenant1, "filter")

	mustInsertRule(t, ctx, store, chainID, 1, "a")
	mustInsertRule(t, ctx, store, chainID, 2, "c")
	mustInsertRule(t, ctx, store, chainID, 2, "b")

	requireRuleOrder(t, ctx, store, chainID, []string{"a", "b", "c"})
}

func TestInsertRuleBounds(t *testing.T) {
	ctx, store, _ := newTestStore(t)
	chainID := mustCreateChain(t, ctx, store, tenant1, "filter")

	// An empty chain accepts only position 1 (or 0, its alias).
	_, err := store.InsertRule(ctx, &topology.Rule{ChainID: chainID, Position: 2})
	assert.ErrorIs(t, err, topostore.ErrIndexOutOfBounds)

	_, err = store.InsertRule(ctx, &topology.Rule{ChainID: chainID, Position: -1})
	assert.ErrorIs(t, err, topostore.ErrIndexOutOfBounds)

	mustInsertRule(t, ctx, store, chainID, 1, "a")
	_, err = store.InsertRule(ctx, &topology.Rule{ChainID: chainID, Position: 3})
	assert.ErrorIs(t, err, topostore.ErrIndexOutOfBounds)
}

func TestInsertRuleMissingChain(t *testing.T) {
	ctx, store, _ := newTestStore(t)
	_, err := store.InsertRule(ctx, &topology.Rule{ChainID: uuid.New(), Position: 1})
	assert.ErrorIs(t, err, topostore.ErrNotFound)
}

func TestDeleteRule(t *testing.T) {
	ctx, store, _ := newTestStore(t)
	chainID := mustCreateChain(t, ctx, store, tenant1, "filter")

	mustInsertRule(t, ctx, store, chainID, 1, "a")
	bID := mustInsertRule(t, ctx, store, chainID, 2, "b")
	mustInsertRule(t, ctx, store, chainID, 3, "c")

	require.NoError(t, store.DeleteRule(ctx, bID))
	requireRuleOrder(t, ctx, store, chainID, []string{"a", "c"})

	_, err := store.GetRule(ctx, bID)
	assert.ErrorIs(t, err, topostore.ErrNotFound)
}

func TestDeleteLastRule(t *testing.T) {
	ctx, store, _ := newTestStore(t)
	chainID := mustCreateChain(t, ctx, store, tenant1, "filter")
	id := mustInsertRule(t, ctx, store, chainID, 1, "a")

	require.NoError(t, store.DeleteRule(ctx, id))
	requireRuleOrder(t, ctx, store, chainID, nil)

	// The emptied chain accepts head insertion again.
	mustInsertRule(t, ctx, store, chainID, 0, "b")
	requireRuleOrder(t, ctx, store, chainID, []string{"b"})
}

func TestRuleChurn(t *testing.T) {
	ctx, store, _ := newTestStore(t)
	chainID := mustCreateChain(t, ctx, store, tenant1, "filter")

	aID := mustInsertRule(t, ctx, store, chainID, 1, "a")
	mustInsertRule(t, ctx, store, chainID, 2, "b")
	mustInsertRule(t, ctx, store, chainID, 1, "head")
	requireRuleOrder(t, ctx, store, chainID, []string{"head", "a", "b"})

	require.NoError(t, store.DeleteRule(ctx, aID))
	requireRuleOrder(t, ctx, store, chainID, []string{"head", "b"})

	mustInsertRule(t, ctx, store, chainID, 3, "tail")
	requireRuleOrder(t, ctx, store, chainID, []string{"head", "b", "tail"})
}

func TestInsertRuleAtomicity(t *testing.T) {
	ctx, store, dir := newTestStore(t)
	chainID := mustCreateChain(t, ctx, store, tenant1, "filter")
	mustInsertRule(t, ctx, store, chainID, 1, "a")

	dir.InjectMultiError(serrors.New("ensemble gone"))
	_, err := store.InsertRule(ctx, &topology.Rule{ChainID: chainID, Position: 1})
	require.Error(t, err)

	// Neither the shifted rule nor the chain list may have moved.
	requireRuleOrder(t, ctx, store, chainID, []string{"a"})
}

func TestChainRuleListImmutable(t *testing.T) {
	ctx, store, _ := newTestStore(t)
	chainID := mustCreateChain(t, ctx, store, tenant1, "filter")
	mustInsertRule(t, ctx, store, chainID, 1, "a")

	// An update rewrites only the name; a rule list on the payload is ignored.
	require.NoError(t, store.UpdateChain(ctx, &topology.RuleChain{
		ID:      chainID,
		Name:    "renamed",
		RuleIDs: []uuid.UUID{uuid.New()},
	}))
	requireRuleOrder(t, ctx, store, chainID, []string{"a"})
	c, err := store.GetChain(ctx, chainID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", c.Name)
}

func TestDeleteChainCascade(t *testing.T) {
	ctx, store, _ := newTestStore(t)
	chainID := mustCreateChain(t, ctx, store, tenant1, "filter")
	aID := mustInsertRule(t, ctx, store, chainID, 1, "a")
	bID := mustInsertRule(t, ctx, store, chainID, 2, "b")

	require.NoError(t, store.DeleteChain(ctx, chainID))

	_, err := store.GetChain(ctx, chainID)
	assert.ErrorIs(t, err, topostore.ErrNotFound)
	_, err = store.GetRule(ctx, aID)
	assert.ErrorIs(t, err, topostore.ErrNotFound)
	_, err = store.GetRule(ctx, bID)
	assert.ErrorIs(t, err, topostore.ErrNotFound)

	// The name is released together with the record.
	_, err = store.CreateChain(ctx, &topology.RuleChain{TenantID: tenant1, Name: "filter"})
	assert.NoError(t, err)
}
