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

package snapshot

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/deckhouse/cmux-cli/internal/rollingrestart/domain"
)

var ErrClusterNotFound = errors.New("cluster not found in snapshot")

type managerEntry struct {
	Version  string           `yaml:"version"`
	Clusters []domain.Cluster `yaml:"clusters"`
}

type document struct {
	Managers map[string]managerEntry `yaml:"managers"`
}

// ClusterFilter narrows ListHosts. Empty fields match everything.
type ClusterFilter struct {
	Manager string
	Cluster string
}

func (f ClusterFilter) match(c domain.Cluster) bool {
	return (f.Manager == "" || f.Manager == c.Manager) && (f.Cluster == "" || f.Cluster == c.Name)
}

// Provider serves the topology written by the inventory sync job. It is
// loaded once and never refreshed.
type Provider struct {
	clusters []domain.Cluster
}

func Load(path string) (*Provider, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cluster snapshot: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse cluster snapshot %s: %w", path, err)
	}
	return newProvider(doc), nil
}

func newProvider(doc document) *Provider {
	var clusters []domain.Cluster
	for manager, entry := range doc.Managers {
		for _, c := range entry.Clusters {
			c.Manager = manager
			c.ManagerVersion = entry.Version
			slices.SortFunc(c.Hosts, func(a, b domain.Host) int { return cmp.Compare(a.Hostname, b.Hostname) })
			clusters = append(clusters, c)
		}
	}
	slices.SortFunc(clusters, func(a, b domain.Cluster) int {
		return cmp.Or(cmp.Compare(a.Manager, b.Manager), cmp.Compare(a.Name, b.Name))
	})
	return &Provider{clusters: clusters}
}

// ListClusters returns every cluster ordered by manager and name.
func (p *Provider) ListClusters() []domain.Cluster {
	return slices.Clone(p.clusters)
}

// ListHosts returns the hosts of all clusters matching the filter.
func (p *Provider) ListHosts(filter ClusterFilter) []domain.Host {
	return lo.FlatMap(lo.Filter(p.clusters, func(c domain.Cluster, _ int) bool {
		return filter.match(c)
	}), func(c domain.Cluster, _ int) []domain.Host {
		return c.Hosts
	})
}

// Cluster returns one cluster by manager and name.
func (p *Provider) Cluster(manager, name string) (domain.Cluster, error) {
	c, ok := lo.Find(p.clusters, func(c domain.Cluster) bool {
		return c.Manager == manager && c.Name == name
	})
	if !ok {
		return domain.Cluster{}, fmt.Errorf("%s/%s: %w", manager, name, ErrClusterNotFound)
	}
	return c, nil
}
