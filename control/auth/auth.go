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

// Package auth implements the ownership predicate that every mutation and
// most reads consult. Authorization is decided by walking the containment
// edges of the topology down to the owning tenant; it never mutates state.
package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/overlaynet/topod/control/topostore"
	"github.com/overlaynet/topod/pkg/private/serrors"
	"github.com/overlaynet/topod/pkg/topology"
)

// ErrForbidden indicates the identity is not authorized for the action. It is
// distinct from topostore.ErrNotFound: the entity may exist but be invisible
// to the identity. Whether to mask existence is the boundary layer's call.
var ErrForbidden = serrors.New("auth: forbidden")

// Role names understood by the predicate.
const (
	// RoleAdmin authorizes every action unconditionally.
	RoleAdmin = "admin"
	// RoleTenant scopes the identity to its tenant's entities.
	RoleTenant = "tenant"
)

// Identity is the resolved caller identity, produced by the excluded
// authentication layer.
type Identity struct {
	TenantID string
	Roles    []string
}

// Admin returns whether the identity carries the administrative role.
func (i Identity) Admin() bool {
	for _, r := range i.Roles {
		if r == RoleAdmin {
			return true
		}
	}
	return false
}

// Action is the kind of access being requested.
type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"
)

// Ref names the entity an action is requested on.
type Ref struct {
	Kind topology.Kind
	ID   uuid.UUID
}

// OwnerResolver resolves an entity to its owning tenant. The topology store
// implements it.
type OwnerResolver interface {
	Owner(ctx context.Context, kind topology.Kind, id uuid.UUID) (string, error)
}

var _ OwnerResolver = (*topostore.Store)(nil)

// Authorizer answers whether an identity may perform an action on an entity.
type Authorizer struct {
	owners OwnerResolver
	public map[topology.Kind]bool
}

// NewAuthorizer returns an authorizer backed by the given owner resolver.
// Kinds listed in publicReads are readable by any identity.
func NewAuthorizer(owners OwnerResolver, publicReads ...topology.Kind) *Authorizer {
	public := make(map[topology.Kind]bool, len(publicReads))
	for _, k := range publicReads {
		public[k] = true
	}
	return &Authorizer{owners: owners, public: public}
}

// Authorize returns whether the identity may perform the action, together
// with the entity's owning tenant so the boundary can decide whether to mask
// existence. It returns an error only when the ownership walk itself fails.
func (a *Authorizer) Authorize(ctx context.Context, id Identity, action Action,
	ref Ref) (bool, string, error) {

	if id.Admin() {
		tenant, err := a.owners.Owner(ctx, ref.Kind, ref.ID)
		if err != nil {
			return false, "", err
		}
		return true, tenant, nil
	}
	if action == ActionRead && a.public[ref.Kind] {
		tenant, err := a.owners.Owner(ctx, ref.Kind, ref.ID)
		if err != nil {
			return false, "", err
		}
		return true, tenant, nil
	}
	tenant, err := a.owners.Owner(ctx, ref.Kind, ref.ID)
	if err != nil {
		return false, "", err
	}
	return tenant == id.TenantID && id.TenantID != "", tenant, nil
}

// Require is the fail-fast form used before mutations: it converts a denial
// into ErrForbidden.
func (a *Authorizer) Require(ctx context.Context, id Identity, action Action,
	ref Ref) error {

	ok, tenant, err := a.Authorize(ctx, id, action, ref)
	if err != nil {
		return err
	}
	if !ok {
		return serrors.Join(ErrForbidden, nil,
			"tenant", tenant, "action", action, "kind", ref.Kind, "id", ref.ID)
	}
	return nil
}

// Visible filters an owner-keyed listing down to what the identity may see.
// Admins see everything; tenant identities see their own entities.
func Visible[T any](id Identity, items []T, ownerOf func(T) string) []T {
	if id.Admin() {
		return items
	}
	visible := make([]T, 0, len(items))
	for _, item := range items {
		if ownerOf(item) == id.TenantID {
			visible = append(visible, item)
		}
	}
	return visible
}

// IsNotFound reports whether the walk failed because an edge was missing,
// which callers may want to surface as NotFound rather than Forbidden.
func IsNotFound(err error) bool {
	return errors.Is(err, topostore.ErrNotFound)
}
