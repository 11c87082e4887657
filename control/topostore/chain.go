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

	"github.com/google/uuid"

	"github.com/overlaynet/topod/pkg/log"
	"github.com/overlaynet/topod/pkg/topology"
	"github.com/overlaynet/topod/private/coord"
)

// CreateChain writes the chain's primary record, its tenant index entry, its
// name uniqueness entry and its empty rule index in one atomic batch.
func (s *Store) CreateChain(ctx context.Context, c *topology.RuleChain) (uuid.UUID, error) {
	if err := topology.Check(c.Validate()); err != nil {
		s.observe("chain.create", err)
		return uuid.Nil, err
	}
	c.ID = ensureID(c.ID)
	c.RuleIDs = nil
	data, err := s.marshal(c)
	if err != nil {
		s.observe("chain.create", err)
		return uuid.Nil, err
	}
	err = s.multi(ctx, []coord.Op{
		coord.CreateOp(s.paths.ChainPath(c.ID), data),
		coord.CreateOp(s.paths.TenantEntryPath(c.TenantID, chainsIndex, c.ID), nil),
		coord.CreateOp(s.paths.TenantNamePath(c.TenantID, "chain", c.Name),
			[]byte(c.ID.String())),
		coord.CreateOp(s.paths.ChainRulesPath(c.ID), nil),
	})
	s.observe("chain.create", err)
	if err != nil {
		return uuid.Nil, err
	}
	return c.ID, nil
}

// GetChain reads and decodes the chain's primary record.
func (s *Store) GetChain(ctx context.Context, id uuid.UUID) (*topology.RuleChain, error) {
	var c topology.RuleChain
	if _, err := s.getRecord(ctx, s.paths.ChainPath(id), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListChains returns all rule chains owned by the tenant. Order is
// unspecified.
func (s *Store) ListChains(ctx context.Context, tenantID string) ([]*topology.RuleChain, error) {
	ids, err := s.dir.Children(ctx, s.paths.TenantKindPath(tenantID, chainsIndex))
	if err != nil {
		return nil, mapCoordErr(err)
	}
	chains := make([]*topology.RuleChain, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, serrorsSerialization(raw, err)
		}
		c, err := s.GetChain(ctx, id)
		if err != nil {
			return nil, err
		}
		chains = append(chains, c)
	}
	return chains, nil
}

// UpdateChain rewrites the primary record and, on rename, atomically swaps
// the name uniqueness entries. The tenant and the rule list are immutable
// here; the rule list changes only through InsertRule and DeleteRule.
func (s *Store) UpdateChain(ctx context.Context, c *topology.RuleChain) error {
	err := s.updateChain(ctx, c)
	s.observe("chain.update", err)
	return err
}

func (s *Store) updateChain(ctx context.Context, c *topology.RuleChain) error {
	if err := topology.Check(validateName(c.Name)); err != nil {
		return err
	}
	var cur topology.RuleChain
	version, err := s.getRecord(ctx, s.paths.ChainPath(c.ID), &cur)
	if err != nil {
		return err
	}
	if err := checkTenantImmutable(c.TenantID, cur.TenantID); err != nil {
		return err
	}
	next := cur
	next.Name = c.Name
	data, err := s.marshal(&next)
	if err != nil {
		return err
	}
	var ops []coord.Op
	if next.Name != cur.Name {
		ops = append(ops,
			coord.DeleteOp(s.paths.TenantNamePath(cur.TenantID, "chain", cur.Name)),
			coord.CreateOp(s.paths.TenantNamePath(cur.TenantID, "chain", next.Name),
				[]byte(cur.ID.String())),
		)
	}
	ops = append(ops, coord.SetOpVersion(s.paths.ChainPath(c.ID), data, version))
	return s.multi(ctx, ops)
}

// DeleteChain removes the chain, its index entries and all of its rules in
// one atomic batch.
func (s *Store) DeleteChain(ctx context.Context, id uuid.UUID) error {
	err := s.deleteChain(ctx, id)
	s.observe("chain.delete", err)
	return err
}

func (s *Store) deleteChain(ctx context.Context, id uuid.UUID) error {
	c, err := s.GetChain(ctx, id)
	if err != nil {
		return err
	}
	var ops []coord.Op
	for _, ruleID := range c.RuleIDs {
		ops = append(ops,
			coord.DeleteOp(s.paths.ChainRulePath(id, ruleID)),
			coord.DeleteOp(s.paths.RulePath(ruleID)),
		)
	}
	ops = append(ops,
		coord.DeleteOp(s.paths.ChainRulesPath(id)),
		coord.DeleteOp(s.paths.TenantNamePath(c.TenantID, "chain", c.Name)),
		coord.DeleteOp(s.paths.TenantEntryPath(c.TenantID, chainsIndex, id)),
		coord.DeleteOp(s.paths.ChainPath(id)),
	)
	log.FromCtx(ctx).Debug("Preparing chain delete", "id", id, "rules", len(c.RuleIDs))
	return s.multi(ctx, ops)
}
