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

package adapters

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/deckhouse/cmux-cli/internal/config"
	"github.com/deckhouse/cmux-cli/internal/rollingrestart/domain"
	"github.com/deckhouse/cmux-cli/internal/rollingrestart/usecase"
	"github.com/deckhouse/cmux-cli/pkg/cmapi"
	"github.com/deckhouse/cmux-cli/pkg/hbasetools"
)

const (
	defaultZooKeeperPort = "2181"
	hbaseServiceType     = "hbase"
)

// Compile-time check
var _ usecase.RegionBalancer = (*BalancerAdapter)(nil)

// BalancerAdapter runs hbase-manager against one cluster. Every run writes
// its own manifest.
type BalancerAdapter struct {
	tool         *hbasetools.Tool
	manifestPath string
}

// NewBalancerAdapter creates a new BalancerAdapter
func NewBalancerAdapter(tool *hbasetools.Tool, manifestPath string) *BalancerAdapter {
	return &BalancerAdapter{tool: tool, manifestPath: manifestPath}
}

func (a *BalancerAdapter) SetBalancer(ctx context.Context, enabled bool) (string, error) {
	out, err := a.tool.SetBalancer(ctx, enabled)
	if err != nil {
		return "", translateToolError(err, domain.ErrBalancerTool)
	}
	if a.tool.DryRun() {
		return "dry run", nil
	}
	return out, nil
}

func (a *BalancerAdapter) ExportAssignment(ctx context.Context) (domain.ExportManifest, error) {
	if err := a.tool.Export(ctx, a.manifestPath); err != nil {
		return domain.ExportManifest{}, translateToolError(err, domain.ErrExport)
	}
	return domain.ExportManifest{Path: a.manifestPath}, nil
}

func (a *BalancerAdapter) DrainHost(ctx context.Context, role domain.RoleRef, m domain.ExportManifest) (bool, error) {
	rs, ok, err := a.lookup(role, m)
	if err != nil || !ok {
		return false, translateToolError(err, domain.ErrDrain)
	}
	if err := a.tool.Empty(ctx, rs); err != nil {
		return false, translateToolError(err, domain.ErrDrain)
	}
	return true, nil
}

func (a *BalancerAdapter) RestoreHost(ctx context.Context, role domain.RoleRef, m domain.ExportManifest) (bool, error) {
	rs, ok, err := a.lookup(role, m)
	if err != nil || !ok {
		return false, translateToolError(err, domain.ErrRestore)
	}
	if err := a.tool.Import(ctx, m.Path, rs); err != nil {
		return false, translateToolError(err, domain.ErrRestore)
	}
	return true, nil
}

// lookup finds the region server unit of the role's host. A dry run never
// wrote the manifest, so the host counts as empty there.
func (a *BalancerAdapter) lookup(role domain.RoleRef, m domain.ExportManifest) (string, bool, error) {
	rs, ok, err := hbasetools.Manifest{Path: m.Path}.RegionServerFor(role.Hostname)
	if errors.Is(err, hbasetools.ErrManifestNotFound) && a.tool.DryRun() {
		return "", false, nil
	}
	return rs, ok, err
}

// TargetResolver is the part of the manager client needed to locate the
// hbase-manager target.
type TargetResolver interface {
	RoleConfig(ctx context.Context, cluster, service, role string) ([]cmapi.ConfigItem, error)
	ServiceConfig(ctx context.Context, cluster, service string) ([]cmapi.ConfigItem, error)
}

// ResolveTarget locates everything hbase-manager needs for the cluster: the
// jar matching the CDH release, the ZooKeeper leader with its client port
// and, for a secured HBase, the kerberos options of the manager entry.
func ResolveTarget(ctx context.Context, client TargetResolver, cluster domain.Cluster, manager config.Manager, settings config.Settings) (hbasetools.Target, error) {
	jar, err := hbasetools.ResolveJar(settings.HBaseToolsHome, cluster.Version)
	if err != nil {
		return hbasetools.Target{}, err
	}

	host, zk, ok := cluster.ZooKeeperLeader()
	if !ok {
		return hbasetools.Target{}, fmt.Errorf("cluster %s has no ZooKeeper leader", cluster.Name)
	}
	ref := host.Ref(zk)
	items, err := client.RoleConfig(ctx, cluster.Name, ref.Service, ref.Name)
	if err != nil {
		return hbasetools.Target{}, fmt.Errorf("read config of %s: %w", ref.Name, translateAPIError(err))
	}
	port, ok := cmapi.LookupConfig(items, "clientPort")
	if !ok || port == "" {
		port = defaultZooKeeperPort
	}

	target := hbasetools.Target{Jar: jar, ZooKeeper: host.Hostname + ":" + port}

	service, ok := hbaseService(cluster)
	if !ok {
		return target, nil
	}
	items, err = client.ServiceConfig(ctx, cluster.Name, service)
	if err != nil {
		return hbasetools.Target{}, fmt.Errorf("read config of %s: %w", service, translateAPIError(err))
	}
	if auth, _ := cmapi.LookupConfig(items, "hbase_security_authentication"); strings.EqualFold(auth, "kerberos") {
		krb, err := manager.KerberosFor(hbaseServiceType)
		if err != nil {
			return hbasetools.Target{}, err
		}
		target.Kerberos = &hbasetools.Kerberos{Principal: krb.Principal, Keytab: krb.Keytab, Krb5Conf: krb.Krb5Conf}
	}
	return target, nil
}

func hbaseService(cluster domain.Cluster) (string, bool) {
	roles := lo.FlatMap(cluster.Hosts, func(h domain.Host, _ int) []domain.RoleRef {
		return lo.Map(h.Roles, func(r domain.Role, _ int) domain.RoleRef { return h.Ref(r) })
	})
	rs, ok := lo.Find(roles, func(r domain.RoleRef) bool { return r.Type == domain.RoleTypeRegionServer })
	return rs.Service, ok
}
