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

// Package zk implements the coordination directory on top of a ZooKeeper
// ensemble. The client library has no per-operation contexts; cancellation is
// honored by a pre-flight check before each round trip and timeouts are
// bounded by the session timeout of the connection.
package zk

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/samuel/go-zookeeper/zk"

	"github.com/overlaynet/topod/pkg/log"
	"github.com/overlaynet/topod/pkg/private/serrors"
	"github.com/overlaynet/topod/private/coord"
)

var _ coord.Directory = (*Directory)(nil)

// Directory is a ZooKeeper backed coordination directory.
type Directory struct {
	conn *zk.Conn
	acl  []zk.ACL
}

// Connect establishes the process-wide session to the ensemble.
func Connect(servers []string, sessionTimeout time.Duration) (*Directory, error) {
	conn, events, err := zk.Connect(servers, sessionTimeout)
	if err != nil {
		return nil, serrors.Join(coord.ErrUnavailable, err, "servers", servers)
	}
	go func() {
		for ev := range events {
			log.Debug("Session event", "state", ev.State.String(), "server", ev.Server)
		}
	}()
	return &Directory{conn: conn, acl: zk.WorldACL(zk.PermAll)}, nil
}

// Close tears down the session.
func (d *Directory) Close() {
	d.conn.Close()
}

func (d *Directory) Create(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return serrors.Join(coord.ErrUnavailable, err)
	}
	_, err := d.conn.Create(path, data, 0, d.acl)
	return mapErr(err, path)
}

func (d *Directory) Get(ctx context.Context, path string) ([]byte, int32, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, serrors.Join(coord.ErrUnavailable, err)
	}
	data, stat, err := d.conn.Get(path)
	if err != nil {
		return nil, 0, mapErr(err, path)
	}
	return data, stat.Version, nil
}

func (d *Directory) Set(ctx context.Context, path string, data []byte,
	version int32) error {

	if err := ctx.Err(); err != nil {
		return serrors.Join(coord.ErrUnavailable, err)
	}
	_, err := d.conn.Set(path, data, version)
	return mapErr(err, path)
}

func (d *Directory) Delete(ctx context.Context, path string, version int32) error {
	if err := ctx.Err(); err != nil {
		return serrors.Join(coord.ErrUnavailable, err)
	}
	return mapErr(d.conn.Delete(path, version), path)
}

func (d *Directory) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, serrors.Join(coord.ErrUnavailable, err)
	}
	ok, _, err := d.conn.Exists(path)
	if err != nil {
		return false, mapErr(err, path)
	}
	return ok, nil
}

func (d *Directory) Children(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, serrors.Join(coord.ErrUnavailable, err)
	}
	children, _, err := d.conn.Children(path)
	if err != nil {
		return nil, mapErr(err, path)
	}
	return children, nil
}

func (d *Directory) Multi(ctx context.Context, ops ...coord.Op) error {
	if err := ctx.Err(); err != nil {
		return serrors.Join(coord.ErrUnavailable, err)
	}
	reqs := make([]interface{}, 0, len(ops))
	for _, op := range ops {
		switch op.Kind {
		case coord.OpCreate:
			reqs = append(reqs, &zk.CreateRequest{
				Path: op.Path, Data: op.Data, Acl: d.acl,
			})
		case coord.OpSet:
			reqs = append(reqs, &zk.SetDataRequest{
				Path: op.Path, Data: op.Data, Version: op.Version,
			})
		case coord.OpDelete:
			reqs = append(reqs, &zk.DeleteRequest{
				Path: op.Path, Version: op.Version,
			})
		}
	}
	resps, err := d.conn.Multi(reqs...)
	if err != nil {
		return mapErr(err, "batch")
	}
	for i, r := range resps {
		if r.Error != nil {
			return mapErr(r.Error, ops[i].Path)
		}
	}
	return nil
}

func (d *Directory) EnsurePath(ctx context.Context, path string) error {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	cur := ""
	for _, part := range parts {
		cur += "/" + part
		err := d.Create(ctx, cur, nil)
		if err != nil && !isExists(err) {
			return err
		}
	}
	return nil
}

func isExists(err error) bool {
	return errors.Is(err, coord.ErrNodeExists)
}

func mapErr(err error, path string) error {
	switch err {
	case nil:
		return nil
	case zk.ErrNoNode:
		return serrors.Join(coord.ErrNoNode, nil, "path", path)
	case zk.ErrNodeExists:
		return serrors.Join(coord.ErrNodeExists, nil, "path", path)
	case zk.ErrBadVersion:
		return serrors.Join(coord.ErrBadVersion, nil, "path", path)
	case zk.ErrNotEmpty:
		return serrors.Join(coord.ErrNotEmpty, nil, "path", path)
	default:
		return serrors.Join(coord.ErrUnavailable, err, "path", path)
	}
}
