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

// Package coordtest provides an in-memory coordination directory for tests.
// It implements the same operation contract as the ZooKeeper backend,
// including batch atomicity, and supports fault injection. Each test
// constructs its own instance; there is no shared global state.
package coordtest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/overlaynet/topod/pkg/private/serrors"
	"github.com/overlaynet/topod/private/coord"
)

var _ coord.Directory = (*Directory)(nil)

type node struct {
	data    []byte
	version int32
}

// Directory is an in-memory coord.Directory.
type Directory struct {
	mu    sync.Mutex
	nodes map[string]*node

	multiErr error
	opErr    error
}

// New returns an empty directory containing only the root node.
func New() *Directory {
	return &Directory{nodes: map[string]*node{"/": {}}}
}

// InjectMultiError makes the next Multi call fail with err before applying
// any suboperation. One-shot.
func (d *Directory) InjectMultiError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.multiErr = err
}

// InjectError makes the next operation of any kind fail with err. One-shot.
func (d *Directory) InjectError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opErr = err
}

// Dump returns all node paths in sorted order, for test assertions.
func (d *Directory) Dump() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	paths := make([]string, 0, len(d.nodes))
	for p := range d.nodes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (d *Directory) Create(ctx context.Context, path string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.pending(ctx); err != nil {
		return err
	}
	return d.create(path, data)
}

func (d *Directory) Get(ctx context.Context, path string) ([]byte, int32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.pending(ctx); err != nil {
		return nil, 0, err
	}
	n, ok := d.nodes[path]
	if !ok {
		return nil, 0, serrors.Join(coord.ErrNoNode, nil, "path", path)
	}
	data := make([]byte, len(n.data))
	copy(data, n.data)
	return data, n.version, nil
}

func (d *Directory) Set(ctx context.Context, path string, data []byte,
	version int32) error {

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.pending(ctx); err != nil {
		return err
	}
	return d.set(path, data, version)
}

func (d *Directory) Delete(ctx context.Context, path string, version int32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.pending(ctx); err != nil {
		return err
	}
	return d.delete(path, version)
}

func (d *Directory) Exists(ctx context.Context, path string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.pending(ctx); err != nil {
		return false, err
	}
	_, ok := d.nodes[path]
	return ok, nil
}

func (d *Directory) Children(ctx context.Context, path string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.pending(ctx); err != nil {
		return nil, err
	}
	if _, ok := d.nodes[path]; !ok {
		return nil, serrors.Join(coord.ErrNoNode, nil, "path", path)
	}
	prefix := path + "/"
	var children []string
	for p := range d.nodes {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := p[len(prefix):]
		if !strings.Contains(rest, "/") {
			children = append(children, rest)
		}
	}
	sort.Strings(children)
	return children, nil
}

func (d *Directory) Multi(ctx context.Context, ops ...coord.Op) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.pending(ctx); err != nil {
		return err
	}
	if err := d.multiErr; err != nil {
		d.multiErr = nil
		return err
	}
	// Apply on a copy, swap in only on full success.
	backup := d.nodes
	d.nodes = make(map[string]*node, len(backup))
	for p, n := range backup {
		clone := *n
		d.nodes[p] = &clone
	}
	for _, op := range ops {
		var err error
		switch op.Kind {
		case coord.OpCreate:
			err = d.create(op.Path, op.Data)
		case coord.OpSet:
			err = d.set(op.Path, op.Data, op.Version)
		case coord.OpDelete:
			err = d.delete(op.Path, op.Version)
		}
		if err != nil {
			d.nodes = backup
			return err
		}
	}
	return nil
}

func (d *Directory) EnsurePath(ctx context.Context, path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.pending(ctx); err != nil {
		return err
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	cur := ""
	for _, part := range parts {
		cur += "/" + part
		if _, ok := d.nodes[cur]; !ok {
			d.nodes[cur] = &node{}
		}
	}
	return nil
}

func (d *Directory) pending(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return serrors.Join(coord.ErrUnavailable, err)
	}
	if err := d.opErr; err != nil {
		d.opErr = nil
		return err
	}
	return nil
}

func (d *Directory) create(path string, data []byte) error {
	if _, ok := d.nodes[path]; ok {
		return serrors.Join(coord.ErrNodeExists, nil, "path", path)
	}
	if parent := parentOf(path); parent != "" {
		if _, ok := d.nodes[parent]; !ok {
			return serrors.Join(coord.ErrNoNode, nil, "path", parent)
		}
	}
	d.nodes[path] = &node{data: data}
	return nil
}

func (d *Directory) set(path string, data []byte, version int32) error {
	n, ok := d.nodes[path]
	if !ok {
		return serrors.Join(coord.ErrNoNode, nil, "path", path)
	}
	if version != coord.AnyVersion && version != n.version {
		return serrors.Join(coord.ErrBadVersion, nil, "path", path)
	}
	n.data = data
	n.version++
	return nil
}

func (d *Directory) delete(path string, version int32) error {
	n, ok := d.nodes[path]
	if !ok {
		return serrors.Join(coord.ErrNoNode, nil, "path", path)
	}
	if version != coord.AnyVersion && version != n.version {
		return serrors.Join(coord.ErrBadVersion, nil, "path", path)
	}
	prefix := path + "/"
	for p := range d.nodes {
		if strings.HasPrefix(p, prefix) {
			return serrors.Join(coord.ErrNotEmpty, nil, "path", path)
		}
	}
	delete(d.nodes, path)
	return nil
}

func parentOf(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx <= 0 {
		return ""
	}
	return path[:idx]
}
