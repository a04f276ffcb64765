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

package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/deckhouse/cmux-cli/internal/rollingrestart/domain"
)

var ErrUnknownHost = errors.New("host is not part of the cluster")

// PlannerUseCase turns an operator selection into an ordered plan.
type PlannerUseCase struct {
	cp       ControlPlane
	excluded sets.Set[domain.RoleType]
	logger   Logger
}

func NewPlannerUseCase(cp ControlPlane, excluded []domain.RoleType, logger Logger) *PlannerUseCase {
	return &PlannerUseCase{
		cp:       cp,
		excluded: sets.New(excluded...),
		logger:   logger,
	}
}

// Excluded reports whether the role type is never restarted.
func (uc *PlannerUseCase) Excluded(t domain.RoleType) bool {
	return uc.excluded.Has(t)
}

// HostPlan builds one unit per host, in the given order. Roles are sorted
// so storage-serving roles stop last and start first; excluded roles stay
// in the unit marked as skipped.
func (uc *PlannerUseCase) HostPlan(cluster domain.Cluster, hostnames []string) (domain.Plan, error) {
	plan := domain.Plan{Cluster: cluster, Scope: domain.ScopeHost}
	for _, hostname := range hostnames {
		idx := slices.IndexFunc(cluster.Hosts, func(h domain.Host) bool { return h.Hostname == hostname })
		if idx < 0 {
			return domain.Plan{}, fmt.Errorf("%s: %w", hostname, ErrUnknownHost)
		}
		host := cluster.Hosts[idx]

		unit := domain.RestartUnit{Scope: domain.ScopeHost, Hostname: host.Hostname}
		for _, r := range host.Roles {
			unit.Roles = append(unit.Roles, domain.UnitRole{Ref: host.Ref(r), Skip: uc.excluded.Has(r.Type)})
		}
		slices.SortStableFunc(unit.Roles, func(a, b domain.UnitRole) int {
			return domain.Priority(a.Ref.Type) - domain.Priority(b.Ref.Type)
		})
		plan.Units = append(plan.Units, unit)
	}

	uc.logger.Debug("Host plan built", "cluster", cluster.Name, "units", len(plan.Units))
	return plan, nil
}

// RoleTypes lists the restartable role types present in the cluster.
func (uc *PlannerUseCase) RoleTypes(cluster domain.Cluster) []domain.RoleType {
	types := sets.New[domain.RoleType]()
	for _, h := range cluster.Hosts {
		for _, r := range h.Roles {
			types.Insert(r.Type)
		}
	}
	return sets.List(types.Difference(uc.excluded))
}

// Candidates lists the roles of one type, ordered by hostname.
func (uc *PlannerUseCase) Candidates(cluster domain.Cluster, roleType domain.RoleType) ([]domain.RoleRef, error) {
	if uc.excluded.Has(roleType) {
		return nil, fmt.Errorf("role type %s is excluded from rolling restarts", roleType)
	}
	var refs []domain.RoleRef
	for _, h := range cluster.Hosts {
		for _, r := range h.Roles {
			if r.Type == roleType {
				refs = append(refs, h.Ref(r))
			}
		}
	}
	slices.SortStableFunc(refs, func(a, b domain.RoleRef) int {
		return strings.Compare(a.Hostname, b.Hostname)
	})
	return refs, nil
}

// RoleTypePlan builds one unit per selected role.
func (uc *PlannerUseCase) RoleTypePlan(cluster domain.Cluster, roleType domain.RoleType, roles []domain.RoleRef) (domain.Plan, error) {
	if uc.excluded.Has(roleType) {
		return domain.Plan{}, fmt.Errorf("role type %s is excluded from rolling restarts", roleType)
	}
	plan := domain.Plan{Cluster: cluster, Scope: domain.ScopeRoleType, RoleType: roleType}
	for _, ref := range roles {
		if ref.Type != roleType {
			return domain.Plan{}, fmt.Errorf("%s is a %s, not a %s", ref.Name, ref.Type, roleType)
		}
		plan.Units = append(plan.Units, domain.RestartUnit{
			Scope:    domain.ScopeRoleType,
			Hostname: ref.Hostname,
			Roles:    []domain.UnitRole{{Ref: ref}},
		})
	}
	return plan, nil
}

// HANameservices returns the nameservices with an automatic failover pair
// across every HDFS service of the cluster.
func (uc *PlannerUseCase) HANameservices(ctx context.Context, cluster domain.Cluster) ([]domain.Nameservice, error) {
	services := sets.New[string]()
	for _, h := range cluster.Hosts {
		for _, r := range h.Roles {
			if r.Type == domain.RoleTypeNameNode {
				services.Insert(h.Ref(r).Service)
			}
		}
	}
	if services.Len() == 0 {
		return nil, fmt.Errorf("cluster %s has no NameNode: %w", cluster.Name, domain.ErrNameserviceMissing)
	}

	var result []domain.Nameservice
	for _, service := range sets.List(services) {
		nameservices, err := uc.cp.Nameservices(ctx, service)
		if err != nil {
			return nil, err
		}
		ha := slices.DeleteFunc(nameservices, func(ns domain.Nameservice) bool { return !ns.HighlyAvailable() })
		if len(ha) == 0 {
			return nil, fmt.Errorf("%s %w", service, domain.ErrNoHAPeer)
		}
		result = append(result, ha...)
	}
	return result, nil
}

// NameNodePlan restarts the standby before the active NameNode of every
// selected nameservice.
func (uc *PlannerUseCase) NameNodePlan(cluster domain.Cluster, nameservices []domain.Nameservice) (domain.Plan, error) {
	plan := domain.Plan{Cluster: cluster, Scope: domain.ScopeRoleType, RoleType: domain.RoleTypeNameNode}
	for _, ns := range nameservices {
		if !ns.HighlyAvailable() {
			return domain.Plan{}, fmt.Errorf("%s/%s %w", ns.Service, ns.Name, domain.ErrNoHAPeer)
		}
		for _, name := range []string{ns.Standby, ns.Active} {
			ref, ok := cluster.FindRole(name)
			if !ok {
				return domain.Plan{}, fmt.Errorf("NameNode %s of %s is not in the cluster snapshot", name, ns.Name)
			}
			plan.Units = append(plan.Units, domain.RestartUnit{
				Scope:       domain.ScopeRoleType,
				Hostname:    ref.Hostname,
				Nameservice: ns.Name,
				Roles:       []domain.UnitRole{{Ref: ref}},
			})
		}
	}
	return plan, nil
}
