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
	"errors"

	"github.com/deckhouse/cmux-cli/internal/rollingrestart/domain"
)

// planFunc builds the plan once the session is bound to a cluster.
type planFunc func(ctx context.Context, s *session) (domain.Plan, error)

// run drives one invocation: pick the cluster, build and preview the plan,
// confirm it, settle the policy and execute. An operator abort at any point
// prints STOPPED and is not an error.
func (s *session) run(ctx context.Context, build planFunc) error {
	err := s.runPlan(ctx, build)
	if errors.Is(err, domain.ErrOperatorAbort) {
		s.printer.Error("STOPPED")
		return nil
	}
	return err
}

func (s *session) runPlan(ctx context.Context, build planFunc) error {
	if err := s.load(); err != nil {
		return err
	}
	cluster, err := s.selectCluster(ctx)
	if err != nil {
		return err
	}
	if err := s.connect(cluster); err != nil {
		return err
	}

	plan, err := build(ctx, s)
	if err != nil {
		return err
	}
	if len(plan.Units) == 0 {
		return errNothingSelected
	}

	// hbase-manager must be usable before any role is touched.
	target, err := s.regionTarget(ctx, plan)
	if err != nil {
		return err
	}
	if err := s.preview(ctx, plan, target); err != nil {
		return err
	}

	ok, err := confirm(ctx, s.opts, s.prompter)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrOperatorAbort
	}
	policy, err := resolvePolicy(ctx, s.opts, s.prompter)
	if err != nil {
		return err
	}

	return s.execute(ctx, plan, policy, s.regionTool(target, policy))
}

func hostPlan(ctx context.Context, s *session) (domain.Plan, error) {
	hostnames, err := s.selectHosts(ctx)
	if err != nil {
		return domain.Plan{}, err
	}
	return s.planner.HostPlan(s.cluster, hostnames)
}

func rolePlan(ctx context.Context, s *session) (domain.Plan, error) {
	roleType, err := s.selectRoleType(ctx)
	if err != nil {
		return domain.Plan{}, err
	}
	if roleType == domain.RoleTypeNameNode {
		nameservices, err := s.selectNameservices(ctx)
		if err != nil {
			return domain.Plan{}, err
		}
		return s.planner.NameNodePlan(s.cluster, nameservices)
	}

	roles, err := s.selectRoles(ctx, roleType)
	if err != nil {
		return domain.Plan{}, err
	}
	return s.planner.RoleTypePlan(s.cluster, roleType, roles)
}
