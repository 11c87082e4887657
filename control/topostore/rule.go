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
	"sort"

	"github.com/google/uuid"

	"github.com/overlaynet/topod/pkg/log"
	"github.com/overlaynet/topod/pkg/private/serrors"
	"github.com/overlaynet/topod/pkg/topology"
	"github.com/overlaynet/topod/private/coord"
)

// InsertRule inserts the rule into its chain at the requested position.
// Position 0 means "insert at the head" and is normalized to 1. With N rules
// in the chain, positions outside [1, N+1] fail with ErrIndexOutOfBounds.
// Every rule at or above the requested position is shifted up by one and the
// chain's ordered rule list is rewritten, all in one atomic batch guarded by
// the read versions, so the 1..N contiguity invariant holds at every
// observable point.
func (s *Store) InsertRule(ctx context.Context, r *topology.Rule) (uuid.UUID, error) {
	id, err := s.insertRule(ctx, r)
	s.observe("rule.insert", err)
	return id, err
}

func (s *Store) insertRule(ctx context.Context, r *topology.Rule) (uuid.UUID, error) {
	if err := topology.Check(r.Validate()); err != nil {
		return uuid.Nil, err
	}
	var chain topology.RuleChain
	chainVersion, err := s.getRecord(ctx, s.paths.ChainPath(r.ChainID), &chain)
	if err != nil {
		return uuid.Nil, err
	}

	pos := r.Position
	if pos == 0 {
		pos = 1
	}
	n := len(chain.RuleIDs)
	if pos < 1 || pos > n+1 {
		return uuid.Nil, serrors.Join(ErrIndexOutOfBounds, nil,
			"position", r.Position, "size", n)
	}

	var ops []coord.Op
	// Shift everything at or above the insertion point up by one.
	for _, ruleID := range chain.RuleIDs[pos-1:] {
		var shifted topology.Rule
		version, err := s.getRecord(ctx, s.paths.RulePath(ruleID), &shifted)
		if err != nil {
			return uuid.Nil, err
		}
		shifted.Position++
		data, err := s.marshal(&shifted)
		if err != nil {
			return uuid.Nil, err
		}
		ops = append(ops, coord.SetOpVersion(s.paths.RulePath(ruleID), data, version))
	}

	r.ID = ensureID(r.ID)
	r.Position = pos
	data, err := s.marshal(r)
	if err != nil {
		return uuid.Nil, err
	}
	ops = append(ops,
		coord.CreateOp(s.paths.RulePath(r.ID), data),
		coord.CreateOp(s.paths.ChainRulePath(r.ChainID, r.ID), nil),
	)

	chain.RuleIDs = append(chain.RuleIDs[:pos-1],
		append([]uuid.UUID{r.ID}, chain.RuleIDs[pos-1:]...)...)
	chainData, err := s.marshal(&chain)
	if err != nil {
		return uuid.Nil, err
	}
	ops = append(ops,
		coord.SetOpVersion(s.paths.ChainPath(r.ChainID), chainData, chainVersion))

	log.FromCtx(ctx).Debug("Inserting rule",
		"chain", r.ChainID, "rule", r.ID, "position", pos)
	if err := s.multi(ctx, ops); err != nil {
		return uuid.Nil, err
	}
	return r.ID, nil
}

// GetRule reads and decodes the rule's primary record.
func (s *Store) GetRule(ctx context.Context, id uuid.UUID) (*topology.Rule, error) {
	var r topology.Rule
	if _, err := s.getRecord(ctx, s.paths.RulePath(id), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteRule removes the rule from its chain and shifts every rule at a
// higher position down by one, atomically. Removing the last rule leaves a
// valid empty chain.
func (s *Store) DeleteRule(ctx context.Context, id uuid.UUID) error {
	err := s.deleteRule(ctx, id)
	s.observe("rule.delete", err)
	return err
}

func (s *Store) deleteRule(ctx context.Context, id uuid.UUID) error {
	r, err := s.GetRule(ctx, id)
	if err != nil {
		return err
	}
	var chain topology.RuleChain
	chainVersion, err := s.getRecord(ctx, s.paths.ChainPath(r.ChainID), &chain)
	if err != nil {
		return err
	}

	ops := []coord.Op{
		coord.DeleteOp(s.paths.ChainRulePath(r.ChainID, id)),
		coord.DeleteOp(s.paths.RulePath(id)),
	}
	// Shift everything above the removed position down by one.
	for _, ruleID := range chain.RuleIDs[r.Position:] {
		var shifted topology.Rule
		version, err := s.getRecord(ctx, s.paths.RulePath(ruleID), &shifted)
		if err != nil {
			return err
		}
		shifted.Position--
		data, err := s.marshal(&shifted)
		if err != nil {
			return err
		}
		ops = append(ops, coord.SetOpVersion(s.paths.RulePath(ruleID), data, version))
	}

	chain.RuleIDs = append(chain.RuleIDs[:r.Position-1], chain.RuleIDs[r.Position:]...)
	chainData, err := s.marshal(&chain)
	if err != nil {
		return err
	}
	ops = append(ops,
		coord.SetOpVersion(s.paths.ChainPath(r.ChainID), chainData, chainVersion))

	log.FromCtx(ctx).Debug("Deleting rule",
		"chain", r.ChainID, "rule", id, "position", r.Position)
	return s.multi(ctx, ops)
}

// ListRules returns the chain's rules strictly ordered by position. The
// sequence is recomputed on every call.
func (s *Store) ListRules(ctx context.Context, chainID uuid.UUID) ([]*topology.Rule, error) {
	chain, err := s.GetChain(ctx, chainID)
	if err != nil {
		return nil, err
	}
	rules := make([]*topology.Rule, 0, len(chain.RuleIDs))
	for _, ruleID := range chain.RuleIDs {
		r, err := s.GetRule(ctx, ruleID)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool {
		return rules[i].Position < rules[j].Position
	})
	return rules, nil
}
