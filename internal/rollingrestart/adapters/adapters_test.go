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
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dkplog "github.com/deckhouse/deckhouse/pkg/log"

	"github.com/deckhouse/cmux-cli/internal/config"
	"github.com/deckhouse/cmux-cli/internal/rollingrestart/domain"
	"github.com/deckhouse/cmux-cli/pkg/cmapi"
	"github.com/deckhouse/cmux-cli/pkg/hbasetools"
)

type fakeRunner struct {
	calls  []string
	stdout string
	stderr string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, strings.Join(append([]string{name}, args...), " "))
	return []byte(f.stdout), []byte(f.stderr), nil
}

func newTestTool(runner *fakeRunner, dryRun bool) *hbasetools.Tool {
	return hbasetools.New(
		hbasetools.Target{Jar: "/opt/ht/hbase-manager-1.2-0.1.jar", ZooKeeper: "h2.example.com:2181"},
		hbasetools.WithRunner(runner),
		hbasetools.WithDryRun(dryRun),
		hbasetools.WithForceProceed(true),
	)
}

func writeManifest(t *testing.T, lines ...string) domain.ExportManifest {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cm01-cluster-1_20240305070809.exp")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
	return domain.ExportManifest{Path: path}
}

func TestTranslateAPIError(t *testing.T) {
	apiErr := &cmapi.APIError{Method: http.MethodGet, URL: "http://cm01:7180/api/v14/clusters", StatusCode: 500, Status: "500 Internal Server Error"}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unavailable", apiErr, domain.ErrControlPlaneUnavailable},
		{"no nameservices", fmt.Errorf("hdfs %w", cmapi.ErrNoNameservices), domain.ErrNameserviceMissing},
		{"no HA pair", cmapi.ErrNoHAPair, domain.ErrNoHAPeer},
		{"command failed", cmapi.ErrCommandFailed, domain.ErrCommandFailed},
		{"cancelled", context.Canceled, context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateAPIError(tt.err)
			require.ErrorIs(t, got, tt.want)
			require.ErrorIs(t, got, tt.err)
			assert.Equal(t, tt.err.Error(), got.Error())
		})
	}

	timeout := &cmapi.StateTimeoutError{Role: "hdfs-DATANODE-3", Expected: "STARTED", Last: "STARTING", MaxWait: 3 * time.Minute}
	var maxWait *domain.MaxWaitError
	require.ErrorAs(t, translateAPIError(timeout), &maxWait)
	require.ErrorIs(t, maxWait, domain.ErrMaxWaitExceeded)
	assert.Equal(t, domain.RunStateStarting, maxWait.Last)
	assert.Equal(t, 3*time.Minute, maxWait.MaxWait)

	assert.NoError(t, translateAPIError(nil))
}

func TestBalancerAdapterDrainAndRestore(t *testing.T) {
	runner := &fakeRunner{}
	manifest := writeManifest(t,
		"h1.example.com,60020,1700000000000/region-a",
		"h3.example.com,60020,1700000000001/region-b",
	)
	a := NewBalancerAdapter(newTestTool(runner, false), manifest.Path)
	role := domain.NewRoleRef("hbase-REGIONSERVER-3", "hbase", domain.RoleTypeRegionServer, "h3.example.com")

	moved, err := a.DrainHost(t.Context(), role, manifest)
	require.NoError(t, err)
	assert.True(t, moved)

	restored, err := a.RestoreHost(t.Context(), role, manifest)
	require.NoError(t, err)
	assert.True(t, restored)

	assert.Equal(t, []string{
		"java -jar /opt/ht/hbase-manager-1.2-0.1.jar assign h2.example.com:2181 empty h3.example.com,60020,1700000000001 --skip-export --force-proceed",
		"java -jar /opt/ht/hbase-manager-1.2-0.1.jar assign h2.example.com:2181 import " + manifest.Path + " --rs=h3.example.com,60020,1700000000001 --force-proceed",
	}, runner.calls)
}

func TestBalancerAdapterHostNotInManifest(t *testing.T) {
	runner := &fakeRunner{}
	manifest := writeManifest(t, "h1.example.com,60020,1700000000000/region-a")
	a := NewBalancerAdapter(newTestTool(runner, false), manifest.Path)
	role := domain.NewRoleRef("hbase-REGIONSERVER-3", "hbase", domain.RoleTypeRegionServer, "h3.example.com")

	moved, err := a.DrainHost(t.Context(), role, manifest)
	require.NoError(t, err)
	assert.False(t, moved)

	restored, err := a.RestoreHost(t.Context(), role, manifest)
	require.NoError(t, err)
	assert.False(t, restored)

	assert.Empty(t, runner.calls)
}

func TestBalancerAdapterToolFailure(t *testing.T) {
	runner := &fakeRunner{stderr: "ERROR: ZooKeeper connection refused"}
	a := NewBalancerAdapter(newTestTool(runner, false), filepath.Join(t.TempDir(), "run.exp"))

	_, err := a.SetBalancer(t.Context(), false)
	require.ErrorIs(t, err, domain.ErrBalancerTool)
	assert.Contains(t, err.Error(), "balancer false")
	assert.Contains(t, err.Error(), "connection refused")

	_, err = a.ExportAssignment(t.Context())
	require.ErrorIs(t, err, domain.ErrExport)
}

func TestBalancerAdapterMissingManifest(t *testing.T) {
	role := domain.NewRoleRef("hbase-REGIONSERVER-3", "hbase", domain.RoleTypeRegionServer, "h3.example.com")
	missing := domain.ExportManifest{Path: filepath.Join(t.TempDir(), "missing.exp")}

	t.Run("real run fails", func(t *testing.T) {
		runner := &fakeRunner{}
		a := NewBalancerAdapter(newTestTool(runner, false), missing.Path)
		_, err := a.DrainHost(t.Context(), role, missing)
		require.ErrorIs(t, err, domain.ErrDrain)
		require.ErrorIs(t, err, hbasetools.ErrManifestNotFound)
		assert.Empty(t, runner.calls)
	})

	t.Run("dry run without manifest moves nothing", func(t *testing.T) {
		runner := &fakeRunner{}
		a := NewBalancerAdapter(newTestTool(runner, true), missing.Path)
		moved, err := a.DrainHost(t.Context(), role, missing)
		require.NoError(t, err)
		assert.False(t, moved)
		restored, err := a.RestoreHost(t.Context(), role, missing)
		require.NoError(t, err)
		assert.False(t, restored)
		assert.Empty(t, runner.calls)

		out, err := a.SetBalancer(t.Context(), true)
		require.NoError(t, err)
		assert.Equal(t, "dry run", out)
	})
}

type fakeResolver struct {
	roleConfig    []cmapi.ConfigItem
	serviceConfig []cmapi.ConfigItem
}

func (f *fakeResolver) RoleConfig(context.Context, string, string, string) ([]cmapi.ConfigItem, error) {
	return f.roleConfig, nil
}

func (f *fakeResolver) ServiceConfig(context.Context, string, string) ([]cmapi.ConfigItem, error) {
	return f.serviceConfig, nil
}

func targetCluster() domain.Cluster {
	return domain.Cluster{
		Name:    "cluster-1",
		Version: "5.16.2",
		Hosts: []domain.Host{
			{Hostname: "h1.example.com", Roles: []domain.Role{
				{Name: "zookeeper-SERVER-1", Type: domain.RoleTypeZooKeeper, ServiceName: "zookeeper", HAStatus: "REPLICATED_FOLLOWER"},
			}},
			{Hostname: "h2.example.com", Roles: []domain.Role{
				{Name: "zookeeper-SERVER-2", Type: domain.RoleTypeZooKeeper, ServiceName: "zookeeper", HAStatus: "REPLICATED_LEADER"},
				{Name: "hbase-REGIONSERVER-2", Type: domain.RoleTypeRegionServer, ServiceName: "hbase"},
			}},
		},
	}
}

func TestResolveTarget(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, "hbase-manager-1.2-0.2.jar"), nil, 0o600))
	settings := config.Settings{HBaseToolsHome: home}

	t.Run("plain", func(t *testing.T) {
		resolver := &fakeResolver{roleConfig: []cmapi.ConfigItem{{Name: "clientPort", Default: "2181"}}}
		target, err := ResolveTarget(t.Context(), resolver, targetCluster(), config.Manager{Name: "cm01"}, settings)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, "hbase-manager-1.2-0.2.jar"), target.Jar)
		assert.Equal(t, "h2.example.com:2181", target.ZooKeeper)
		assert.Nil(t, target.Kerberos)
	})

	t.Run("kerberos", func(t *testing.T) {
		dir := t.TempDir()
		keytab := filepath.Join(dir, "hbase.keytab")
		krb5 := filepath.Join(dir, "krb5.conf")
		require.NoError(t, os.WriteFile(keytab, nil, 0o600))
		require.NoError(t, os.WriteFile(krb5, nil, 0o600))

		manager := config.Manager{Name: "cm01", Service: map[string]config.Service{
			"hbase": {Kerberos: &config.Kerberos{Principal: "hbase/admin", Keytab: keytab, Krb5Conf: krb5}},
		}}
		resolver := &fakeResolver{
			roleConfig:    []cmapi.ConfigItem{{Name: "clientPort", Value: "2182"}},
			serviceConfig: []cmapi.ConfigItem{{Name: "hbase_security_authentication", Value: "kerberos"}},
		}
		target, err := ResolveTarget(t.Context(), resolver, targetCluster(), manager, settings)
		require.NoError(t, err)
		assert.Equal(t, "h2.example.com:2182", target.ZooKeeper)
		require.NotNil(t, target.Kerberos)
		assert.Equal(t, "hbase/admin", target.Kerberos.Principal)
	})

	t.Run("kerberos not configured", func(t *testing.T) {
		resolver := &fakeResolver{
			serviceConfig: []cmapi.ConfigItem{{Name: "hbase_security_authentication", Value: "kerberos"}},
		}
		_, err := ResolveTarget(t.Context(), resolver, targetCluster(), config.Manager{Name: "cm01"}, settings)
		require.ErrorIs(t, err, config.ErrKerberosMissing)
	})
}

func newNameserviceServer(t *testing.T) *httptest.Server {
	t.Helper()
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v14").Subrouter()
	api.HandleFunc("/clusters/{cluster}/services/{service}/nameservices", func(w http.ResponseWriter, req *http.Request) {
		if mux.Vars(req)["service"] != "hdfs" {
			http.NotFound(w, req)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"items": []map[string]any{
			{
				"name":                     "nameservice1",
				"active":                   map[string]string{"roleName": "hdfs-NAMENODE-1"},
				"standBy":                  map[string]string{"roleName": "hdfs-NAMENODE-2"},
				"activeFailoverController": map[string]string{"roleName": "hdfs-FAILOVERCONTROLLER-1"},
			},
			{"name": "nameservice2", "active": map[string]string{"roleName": "hdfs-NAMENODE-3"}},
		}})
	}).Methods(http.MethodGet)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestControlPlaneAdapterNameservices(t *testing.T) {
	srv := newNameserviceServer(t)
	client, err := cmapi.NewClient(cmapi.Config{BaseURL: srv.URL, APIVersion: "v14", User: "admin", Password: "admin"}, dkplog.NewNop())
	require.NoError(t, err)
	a := NewControlPlaneAdapter(client, "cluster-1", nil)

	items, err := a.Nameservices(t.Context(), "hdfs")
	require.NoError(t, err)
	assert.Equal(t, []domain.Nameservice{
		{Service: "hdfs", Name: "nameservice1", Active: "hdfs-NAMENODE-1", Standby: "hdfs-NAMENODE-2", AutoFailover: true},
		{Service: "hdfs", Name: "nameservice2", Active: "hdfs-NAMENODE-3"},
	}, items)
	assert.True(t, items[0].HighlyAvailable())
	assert.False(t, items[1].HighlyAvailable())

	_, err = a.Nameservices(t.Context(), "hdfs2")
	require.ErrorIs(t, err, domain.ErrNameserviceMissing)
}

func TestControlPlaneAdapterHAPair(t *testing.T) {
	srv := newNameserviceServer(t)
	client, err := cmapi.NewClient(cmapi.Config{BaseURL: srv.URL, APIVersion: "v14", User: "admin", Password: "admin"}, dkplog.NewNop())
	require.NoError(t, err)
	a := NewControlPlaneAdapter(client, "cluster-1", nil)

	names, err := a.NameservicesOf(t.Context(), domain.NewRoleRef("hdfs-NAMENODE-2", "hdfs", domain.RoleTypeNameNode, "h2.example.com"))
	require.NoError(t, err)
	assert.Equal(t, []string{"nameservice1"}, names)

	standby, active, err := a.HAPair(t.Context(), "hdfs", "nameservice1")
	require.NoError(t, err)
	assert.Equal(t, "hdfs-NAMENODE-2", standby)
	assert.Equal(t, "hdfs-NAMENODE-1", active)

	_, _, err = a.HAPair(t.Context(), "hdfs", "nameservice2")
	require.ErrorIs(t, err, domain.ErrNoHAPeer)
}

type recordingSpinner struct {
	labels []string
}

func (s *recordingSpinner) Spin(label string, fn func(update func(status string)) error) error {
	s.labels = append(s.labels, label)
	return fn(func(string) {})
}

func TestControlPlaneAdapterSpinsBlockingCalls(t *testing.T) {
	client, err := cmapi.NewClient(cmapi.Config{BaseURL: "http://127.0.0.1:1", APIVersion: "v14", User: "a", Password: "b"}, dkplog.NewNop())
	require.NoError(t, err)
	spinner := &recordingSpinner{}
	a := NewControlPlaneAdapter(client, "cluster-1", spinner)
	role := domain.NewRoleRef("hdfs-DATANODE-3", "hdfs", domain.RoleTypeDataNode, "h3.example.com")

	err = a.ChangeRoleState(t.Context(), role, domain.CommandStop, domain.MinMaxWait)
	require.ErrorIs(t, err, domain.ErrControlPlaneUnavailable)
	assert.Equal(t, []string{"stop hdfs-DATANODE-3, waiting for STOPPED"}, spinner.labels)
}
