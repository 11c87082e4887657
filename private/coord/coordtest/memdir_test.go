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

package coordtest_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overlaynet/topod/private/coord"
	"github.com/overlaynet/topod/private/coord/coordtest"
)

func TestCreateGet(t *testing.T) {
	d := coordtest.New()
	ctx := context.Background()

	require.NoError(t, d.EnsurePath(ctx, "/topo/bridges"))
	require.NoError(t, d.Create(ctx, "/topo/bridges/b1", []byte("payload")))

	data, version, err := d.Get(ctx, "/topo/bridges/b1")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
	assert.Equal(t, int32(0), version)

	err = d.Create(ctx, "/topo/bridges/b1", nil)
	assert.ErrorIs(t, err, coord.ErrNodeExists)

	err = d.Create(ctx, "/topo/missing/child", nil)
	assert.ErrorIs(t, err, coord.ErrNoNode)
}

func TestSetCompareAndSwap(t *testing.T) {
	d := coordtest.New()
	ctx := context.Background()
	require.NoError(t, d.EnsurePath(ctx, "/topo"))
	require.NoError(t, d.Create(ctx, "/topo/n", []byte("v0")))

	require.NoError(t, d.Set(ctx, "/topo/n", []byte("v1"), 0))
	err := d.Set(ctx, "/topo/n", []byte("v2"), 0)
	assert.ErrorIs(t, err, coord.ErrBadVersion)

	_, version, err := d.Get(ctx, "/topo/n")
	require.NoError(t, err)
	assert.Equal(t, int32(1), version)
}

func TestDeleteNotEmpty(t *testing.T) {
	d := coordtest.New()
	ctx := context.Background()
	require.NoError(t, d.EnsurePath(ctx, "/topo/parent/child"))

	err := d.Delete(ctx, "/topo/parent", coord.AnyVersion)
	assert.ErrorIs(t, err, coord.ErrNotEmpty)

	require.NoError(t, d.Delete(ctx, "/topo/parent/child", coord.AnyVersion))
	require.NoError(t, d.Delete(ctx, "/topo/parent", coord.AnyVersion))
}

func TestMultiAtomic(t *testing.T) {
	d := coordtest.New()
	ctx := context.Background()
	require.NoError(t, d.EnsurePath(ctx, "/topo"))
	require.NoError(t, d.Create(ctx, "/topo/existing", nil))
	before := d.Dump()

	// Second op fails, first op must not be applied.
	err := d.Multi(ctx,
		coord.CreateOp("/topo/fresh", nil),
		coord.CreateOp("/topo/existing", nil),
	)
	assert.ErrorIs(t, err, coord.ErrNodeExists)
	assert.Equal(t, before, d.Dump())

	// All ops valid, all applied.
	require.NoError(t, d.Multi(ctx,
		coord.CreateOp("/topo/fresh", nil),
		coord.SetOp("/topo/existing", []byte("x")),
	))
	ok, err := d.Exists(ctx, "/topo/fresh")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestChildren(t *testing.T) {
	d := coordtest.New()
	ctx := context.Background()
	require.NoError(t, d.EnsurePath(ctx, "/topo/dir/sub"))
	require.NoError(t, d.Create(ctx, "/topo/dir/a", nil))
	require.NoError(t, d.Create(ctx, "/topo/dir/b", nil))

	children, err := d.Children(ctx, "/topo/dir")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "sub"}, children)

	_, err = d.Children(ctx, "/topo/nope")
	assert.ErrorIs(t, err, coord.ErrNoNode)
}

func TestInjectMultiError(t *testing.T) {
	d := coordtest.New()
	ctx := context.Background()
	require.NoError(t, d.EnsurePath(ctx, "/topo"))
	before := d.Dump()

	d.InjectMultiError(coord.ErrUnavailable)
	err := d.Multi(ctx, coord.CreateOp("/topo/n", nil))
	assert.ErrorIs(t, err, coord.ErrUnavailable)
	assert.Equal(t, before, d.Dump())

	// One-shot: next call succeeds.
	require.NoError(t, d.Multi(ctx, coord.CreateOp("/topo/n", nil)))
}
