/*
Copyright 2025 Flant JSC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package rollingrestart

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/deckhouse/cmux-cli/internal/rollingrestart/domain"
	"github.com/deckhouse/cmux-cli/pkg/hbasetools"
	"github.com/deckhouse/cmux-cli/pkg/parallel"
)

// preview prints what the run is going to touch. Current role states are
// fetched from the manager.
func (s *session) preview(ctx context.Context, plan domain.Plan, target *hbasetools.Target) error {
	s.printer.Plain("")
	s.printer.Plain(" * %-16s : %s", "Cloudera Manager", s.cluster.ManagerURL)
	s.printer.Plain(" * %-16s : [%s] %s", "Cluster", s.cluster.Name, s.cluster.DisplayName)
	s.printer.Plain(" * %-16s : %s", "CDH Version", s.cluster.Version)
	if plan.Scope == domain.ScopeRoleType {
		services := lo.Uniq(lo.FlatMap(plan.Units, func(u domain.RestartUnit, _ int) []string {
			return lo.Map(u.Roles, func(r domain.UnitRole, _ int) string { return r.Ref.Service })
		}))
		s.printer.Plain(" * %-16s : %s", "Service", strings.Join(services, ", "))
		s.printer.Plain(" * %-16s : %s", "Role Type", plan.RoleType)
	}
	if target != nil {
		s.printer.Plain(" * %-16s : %s", "Zookeeper", target.ZooKeeper)
		s.printer.Plain(" * %-16s : %s", "hbase-tool", target.JarName())
	}

	refs := lo.FlatMap(plan.Units, func(u domain.RestartUnit, _ int) []domain.RoleRef {
		return lo.Map(u.Roles, func(r domain.UnitRole, _ int) domain.RoleRef { return r.Ref })
	})
	statuses, err := parallel.Map(ctx, refs, parallel.DefaultLimit, func(ctx context.Context, ref domain.RoleRef, _ int) (string, error) {
		return s.roleStatus(ctx, ref)
	})
	if err != nil {
		return err
	}
	status := make(map[domain.RoleRef]string, len(refs))
	for i, ref := range refs {
		status[ref] = statuses[i]
	}

	if plan.Scope == domain.ScopeHost {
		s.printer.Plain(" * %-16s :", "Hosts")
		for _, u := range plan.Units {
			s.printer.Plain("   %s", u.Hostname)
			s.printer.Tree(3, lo.Map(u.Roles, func(r domain.UnitRole, _ int) string {
				if r.Skip {
					return fmt.Sprintf("%s (skip)", r.Ref.Name)
				}
				return fmt.Sprintf("%s %s", r.Ref.Name, status[r.Ref])
			}))
		}
	} else {
		s.printer.Plain(" * %-16s :", "Roles")
		s.printer.Tree(3, lo.Map(plan.Units, func(u domain.RestartUnit, _ int) string {
			ref := u.Roles[0].Ref
			line := fmt.Sprintf("%s %s", ref, status[ref])
			if u.Nameservice != "" {
				line += " (" + u.Nameservice + ")"
			}
			return line
		}))
	}
	s.printer.Plain("")
	return nil
}

// roleStatus renders the run state of a role, followed by its HA status
// for the types that have one.
func (s *session) roleStatus(ctx context.Context, ref domain.RoleRef) (string, error) {
	state, err := s.cp.RoleState(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("read state of %s: %w", ref.Name, err)
	}
	if !ref.Type.HACapable() {
		return string(state), nil
	}
	ha, err := s.cp.HAStatus(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("read HA status of %s: %w", ref.Name, err)
	}
	if ha == domain.HAStatusNone {
		return string(state), nil
	}
	return fmt.Sprintf("%s %s", state, ha), nil
}
