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
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/deckhouse/cmux-cli/internal/rollingrestart/domain"
	"github.com/deckhouse/cmux-cli/internal/snapshot"
)

var errNothingSelected = fmt.Errorf("nothing selected: %w", domain.ErrOperatorAbort)

// selectCluster resolves --cluster or lets the operator pick one cluster.
func (s *session) selectCluster(ctx context.Context) (domain.Cluster, error) {
	manager, name, err := s.opts.clusterKey()
	if err != nil {
		return domain.Cluster{}, err
	}
	if manager != "" {
		return s.snapshot.Cluster(manager, name)
	}

	clusters := s.snapshot.ListClusters()
	rows := lo.Map(clusters, func(c domain.Cluster, _ int) []string {
		return []string{c.Manager, c.Name, c.DisplayName, c.Version}
	})
	picked, err := s.selector.Select(ctx, "Select a cluster",
		[]string{"cm", "cluster", "cluster_display", "version"}, rows, false)
	if err != nil {
		return domain.Cluster{}, err
	}
	if len(picked) == 0 {
		return domain.Cluster{}, errNothingSelected
	}
	return clusters[picked[0]], nil
}

// selectHosts resolves --hosts or lets the operator pick hosts.
func (s *session) selectHosts(ctx context.Context) ([]string, error) {
	if len(s.opts.Hosts) > 0 {
		return s.opts.Hosts, nil
	}

	hosts := s.snapshot.ListHosts(snapshot.ClusterFilter{Manager: s.cluster.Manager, Cluster: s.cluster.Name})
	if len(hosts) == 0 {
		return nil, fmt.Errorf("cluster %s has no hosts", s.cluster.Name)
	}
	rows := lo.Map(hosts, func(h domain.Host, _ int) []string {
		types := lo.Uniq(lo.Map(h.Roles, func(r domain.Role, _ int) string { return r.Type.Short() }))
		slices.Sort(types)
		return []string{h.Hostname, h.IPAddress, h.RackID, strings.Join(types, ",")}
	})
	picked, err := s.selector.Select(ctx, "Select hosts (TAB: multi)",
		[]string{"hostname", "ip", "rack", "roles"}, rows, true)
	if err != nil {
		return nil, err
	}
	if len(picked) == 0 {
		return nil, errNothingSelected
	}
	return lo.Map(picked, func(i int, _ int) string { return hosts[i].Hostname }), nil
}

// selectRoleType resolves --role-type or lets the operator pick one type.
func (s *session) selectRoleType(ctx context.Context) (domain.RoleType, error) {
	if s.opts.RoleType != "" {
		return domain.RoleType(strings.ToUpper(s.opts.RoleType)), nil
	}

	types := s.planner.RoleTypes(s.cluster)
	rows := lo.Map(types, func(t domain.RoleType, _ int) []string {
		return []string{string(t), t.Short()}
	})
	picked, err := s.selector.Select(ctx, "Select a role type", []string{"role_type", "short"}, rows, false)
	if err != nil {
		return "", err
	}
	if len(picked) == 0 {
		return "", errNothingSelected
	}
	return types[picked[0]], nil
}

// selectRoles resolves --roles or lets the operator pick roles of one type.
// A --roles entry matches a role name or a hostname.
func (s *session) selectRoles(ctx context.Context, roleType domain.RoleType) ([]domain.RoleRef, error) {
	candidates, err := s.planner.Candidates(s.cluster, roleType)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("cluster %s has no %s roles", s.cluster.Name, roleType)
	}

	if len(s.opts.Roles) > 0 {
		var selected []domain.RoleRef
		for _, want := range s.opts.Roles {
			ref, ok := lo.Find(candidates, func(r domain.RoleRef) bool {
				return r.Name == want || r.Hostname == want
			})
			if !ok {
				return nil, fmt.Errorf("no %s role named or hosted on %q", roleType, want)
			}
			selected = append(selected, ref)
		}
		return lo.Uniq(selected), nil
	}

	rows := lo.Map(candidates, func(r domain.RoleRef, _ int) []string {
		return []string{r.Hostname, r.Name, r.Service}
	})
	picked, err := s.selector.Select(ctx, "Select roles (TAB: multi)",
		[]string{"hostname", "role", "service"}, rows, true)
	if err != nil {
		return nil, err
	}
	if len(picked) == 0 {
		return nil, errNothingSelected
	}
	return lo.Map(picked, func(i int, _ int) domain.RoleRef { return candidates[i] }), nil
}

// selectNameservices resolves --nameservices or lets the operator pick
// the HA nameservices whose NameNodes are restarted.
func (s *session) selectNameservices(ctx context.Context) ([]domain.Nameservice, error) {
	nameservices, err := s.planner.HANameservices(ctx, s.cluster)
	if err != nil {
		return nil, err
	}

	if len(s.opts.Nameservices) > 0 {
		var selected []domain.Nameservice
		for _, want := range s.opts.Nameservices {
			ns, ok := lo.Find(nameservices, func(ns domain.Nameservice) bool { return ns.Name == want })
			if !ok {
				return nil, fmt.Errorf("nameservice %q %w", want, domain.ErrNoHAPeer)
			}
			selected = append(selected, ns)
		}
		return selected, nil
	}

	rows := lo.Map(nameservices, func(ns domain.Nameservice, _ int) []string {
		return []string{ns.Service, ns.Name, s.cluster.HostnameOf(ns.Active), s.cluster.HostnameOf(ns.Standby)}
	})
	picked, err := s.selector.Select(ctx, "Select nameservices (TAB: multi)",
		[]string{"service", "nameservice", "active", "standby"}, rows, true)
	if err != nil {
		return nil, err
	}
	if len(picked) == 0 {
		return nil, errNothingSelected
	}
	return lo.Map(picked, func(i int, _ int) domain.Nameservice { return nameservices[i] }), nil
}
