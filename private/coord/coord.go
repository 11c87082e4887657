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

// Package coord abstracts the hierarchical coordination store that holds all
// durable topology state. Nodes are addressed by slash-separated paths, carry
// an opaque payload and a version, and can be mutated in atomic batches.
package coord

import (
	"context"

	"github.com/overlaynet/topod/pkg/private/serrors"
)

// Error values returned by Directory implementations.
var (
	// ErrNoNode indicates the addressed node does not exist.
	ErrNoNode = serrors.New("coord: no node")
	// ErrNodeExists indicates a create hit an existing node.
	ErrNodeExists = serrors.New("coord: node exists")
	// ErrBadVersion indicates a compare-and-swap lost against a concurrent
	// writer.
	ErrBadVersion = serrors.New("coord: bad version")
	// ErrNotEmpty indicates a delete was attempted on a node with children.
	ErrNotEmpty = serrors.New("coord: node not empty")
	// ErrUnavailable indicates the store is unreachable or the call timed
	// out; the outcome of an in-flight transaction is unknown.
	ErrUnavailable = serrors.New("coord: unavailable")
)

// AnyVersion disables the version check on Set and Delete operations.
const AnyVersion int32 = -1

// OpKind discriminates primitive batch operations.
type OpKind int

const (
	OpCreate OpKind = iota
	OpSet
	OpDelete
)

// Op is one primitive operation of an atomic batch.
type Op struct {
	Kind    OpKind
	Path    string
	Data    []byte
	Version int32
}

// CreateOp returns a create operation for the given node.
func CreateOp(path string, data []byte) Op {
	return Op{Kind: OpCreate, Path: path, Data: data}
}

// SetOp returns a set-data operation that overwrites regardless of version.
func SetOp(path string, data []byte) Op {
	return Op{Kind: OpSet, Path: path, Data: data, Version: AnyVersion}
}

// SetOpVersion returns a set-data operation guarded by the expected version.
func SetOpVersion(path string, data []byte, version int32) Op {
	return Op{Kind: OpSet, Path: path, Data: data, Version: version}
}

// DeleteOp returns a delete operation that removes regardless of version.
func DeleteOp(path string) Op {
	return Op{Kind: OpDelete, Path: path, Version: AnyVersion}
}

// Directory is the client to the coordination store. All methods are
// synchronous round trips; implementations are safe for concurrent use.
type Directory interface {
	// Create writes a new node. Fails with ErrNodeExists if the node is
	// already present and ErrNoNode if the parent is missing.
	Create(ctx context.Context, path string, data []byte) error
	// Get reads a node's payload and version.
	Get(ctx context.Context, path string) ([]byte, int32, error)
	// Set overwrites a node's payload. Version AnyVersion skips the
	// compare-and-swap check.
	Set(ctx context.Context, path string, data []byte, version int32) error
	// Delete removes a leaf node. Fails with ErrNotEmpty if the node still
	// has children.
	Delete(ctx context.Context, path string, version int32) error
	// Exists reports whether the node is present.
	Exists(ctx context.Context, path string) (bool, error)
	// Children lists the names of the node's children. Order is not
	// specified.
	Children(ctx context.Context, path string) ([]string, error)
	// Multi commits the given operations as one all-or-nothing batch. On
	// failure no operation is applied and the error of the offending
	// suboperation is returned.
	Multi(ctx context.Context, ops ...Op) error
	// EnsurePath creates the node and all missing ancestors, with empty
	// payloads. Existing nodes are left untouched.
	EnsurePath(ctx context.Context, path string) error
}
