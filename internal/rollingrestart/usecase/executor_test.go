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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckhouse/cmux-cli/internal/rollingrestart/domain"
)

func newTestExecutor(cluster domain.Cluster, cp *fakeControlPlane, b *fakeBalancer, p *fakePrinter) *MaintenanceStepExecutor {
	return NewMaintenanceStepExecutor(cluster, cp, b, p, nopLogger{})
}

func TestStrategyTable(t *testing.T) {
	for _, roleType := range []domain.RoleType{
		domain.RoleTypeNameNode, domain.RoleTypeMaster, domain.RoleTypeResourceManager, domain.RoleTypeZooKeeper,
	} {
		assert.True(t, roleType.HACapable())
		assert.NotNil(t, strategyFor(roleType).confirmHA, "%s must confirm its HA status", roleType)
	}

	rs := strategyFor(domain.RoleTypeRegionServer)
	assert.Len(t, rs.before(), 1)
	assert.Len(t, rs.after(), 1)

	assert.Empty(t, strategyFor(domain.RoleTypeDataNode).before())
	assert.Empty(t, strategyFor("IMPALAD").after())
	assert.Len(t, strategyFor(domain.RoleTypeJournalNode).after(), 1)
}

func TestUnknownRoleTypeOnlyTogglesMaintenance(t *testing.T) {
	cluster := testCluster()
	cp := newTestControlPlane(cluster)
	cp.add("impala-IMPALAD-1", "")
	e := newTestExecutor(cluster, cp, newFakeBalancer(cp), &fakePrinter{})
	role := domain.NewRoleRef("impala-IMPALAD-1", "", "IMPALAD", "h1.example.com")

	require.NoError(t, e.BeforeRestart(t.Context(), role))
	require.NoError(t, e.AfterRestart(t.Context(), role))

	assert.Equal(t, []string{"enter impala-IMPALAD-1", "exit impala-IMPALAD-1"}, cp.callLog())
	assert.Empty(t, e.OpenWindows())
}

func TestAfterRestartExitsMaintenanceWhenHookFails(t *testing.T) {
	cluster := testCluster()
	cp := newTestControlPlane(cluster)
	hookErr := errors.New("HA status never reported")
	cp.failOn["confirm hdfs-NAMENODE-2"] = hookErr
	e := newTestExecutor(cluster, cp, newFakeBalancer(cp), &fakePrinter{})
	role, _ := cluster.FindRole("hdfs-NAMENODE-2")

	require.NoError(t, e.BeforeRestart(t.Context(), role))
	require.NoError(t, e.Transition(t.Context(), role, domain.CommandRestart, domain.MinMaxWait))
	err := e.AfterRestart(t.Context(), role)

	require.ErrorIs(t, err, hookErr)
	assert.Equal(t, []string{
		"enter hdfs-NAMENODE-2",
		"restart hdfs-NAMENODE-2",
		"confirm hdfs-NAMENODE-2",
		"exit hdfs-NAMENODE-2",
	}, cp.callLog())
	assert.False(t, cp.roles["hdfs-NAMENODE-2"].maintenance)
	assert.Empty(t, e.OpenWindows())
}

func TestAfterRestartReportsBothFailures(t *testing.T) {
	cluster := testCluster()
	cp := newTestControlPlane(cluster)
	hookErr := errors.New("roll edits failed")
	cp.failOn["roll-edits hdfs"] = hookErr
	cp.failOn["exit hdfs-JOURNALNODE-1"] = domain.ErrControlPlaneUnavailable
	e := newTestExecutor(cluster, cp, newFakeBalancer(cp), &fakePrinter{})
	role, _ := cluster.FindRole("hdfs-JOURNALNODE-1")

	require.NoError(t, e.BeforeRestart(t.Context(), role))
	err := e.AfterRestart(t.Context(), role)

	require.ErrorIs(t, err, hookErr)
	require.ErrorIs(t, err, domain.ErrControlPlaneUnavailable)
	open := e.OpenWindows()
	require.Len(t, open, 1)
	assert.Equal(t, "hdfs-JOURNALNODE-1", open[0].Role.Name)
	assert.Equal(t, domain.PhasePreHookDone, open[0].Phase)
}

func TestFailoverSkippedForStandby(t *testing.T) {
	cluster := testCluster()
	cp := newTestControlPlane(cluster)
	p := &fakePrinter{}
	e := newTestExecutor(cluster, cp, newFakeBalancer(cp), p)
	role, _ := cluster.FindRole("hdfs-NAMENODE-2")

	require.NoError(t, e.BeforeRestart(t.Context(), role))

	assert.Equal(t, []string{"enter hdfs-NAMENODE-2"}, cp.callLog())
	assert.True(t, p.contains("Skip Failover"))
}

func TestFailoverOfActiveNameNode(t *testing.T) {
	cluster := testCluster()
	cp := newTestControlPlane(cluster)
	p := &fakePrinter{}
	e := newTestExecutor(cluster, cp, newFakeBalancer(cp), p)
	role, _ := cluster.FindRole("hdfs-NAMENODE-1")

	require.NoError(t, e.BeforeRestart(t.Context(), role))

	assert.Equal(t, []string{"enter hdfs-NAMENODE-1", "failover hdfs-NAMENODE-1 hdfs-NAMENODE-2"}, cp.callLog())
	assert.True(t, p.contains("  => [h2.example.com] hdfs-NAMENODE-2 (STANDBY)"))
	assert.True(t, p.contains("h1.example.com is now a STANDBY NameNode"))
	assert.Equal(t, domain.HAStatusActive, cp.roles["hdfs-NAMENODE-2"].ha)
}

func TestFailoverWithoutHAPair(t *testing.T) {
	tests := []struct {
		name         string
		nameservices []domain.Nameservice
	}{
		{"no standby", []domain.Nameservice{{Service: "hdfs", Name: "nameservice1", Active: "hdfs-NAMENODE-1"}}},
		{"not assigned", []domain.Nameservice{{Service: "hdfs", Name: "nameservice9", Active: "hdfs-NAMENODE-7", Standby: "hdfs-NAMENODE-8"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cluster := testCluster()
			cp := newTestControlPlane(cluster)
			cp.nameservices["hdfs"] = tt.nameservices
			e := newTestExecutor(cluster, cp, newFakeBalancer(cp), &fakePrinter{})
			role, _ := cluster.FindRole("hdfs-NAMENODE-1")

			err := e.BeforeRestart(t.Context(), role)
			require.ErrorIs(t, err, domain.ErrNoHAPeer)
			assert.Equal(t, []string{"enter hdfs-NAMENODE-1"}, cp.callLog())
		})
	}
}

func TestFailoverInEveryAssignedNameservice(t *testing.T) {
	cluster := testCluster()
	cp := newTestControlPlane(cluster)
	cp.nameservices["hdfs"] = append(cp.nameservices["hdfs"], domain.Nameservice{
		Service: "hdfs", Name: "nameservice2", Active: "hdfs-NAMENODE-1", Standby: "hdfs-NAMENODE-2",
	})
	p := &fakePrinter{}
	e := newTestExecutor(cluster, cp, newFakeBalancer(cp), p)
	role, _ := cluster.FindRole("hdfs-NAMENODE-1")

	require.NoError(t, e.BeforeRestart(t.Context(), role))

	// The first failover leaves the NameNode STANDBY in the second nameservice too.
	assert.Equal(t, []string{"enter hdfs-NAMENODE-1", "failover hdfs-NAMENODE-1 hdfs-NAMENODE-2"}, cp.callLog())
	assert.True(t, p.contains("Skip Failover"))
}

func TestDrainAndRestoreNoop(t *testing.T) {
	cluster := testCluster()
	cp := newTestControlPlane(cluster)
	b := newFakeBalancer(cp)
	b.empty["hbase-REGIONSERVER-3"] = true
	p := &fakePrinter{}
	e := newTestExecutor(cluster, cp, b, p)
	e.UseManifest(b.manifest)
	role, _ := cluster.FindRole("hbase-REGIONSERVER-3")

	require.NoError(t, e.BeforeRestart(t.Context(), role))
	require.NoError(t, e.AfterRestart(t.Context(), role))

	assert.Equal(t, []string{"enter hbase-REGIONSERVER-3", "exit hbase-REGIONSERVER-3"}, cp.callLog())
	assert.True(t, p.contains("This RegionServer is already empty."))
	assert.True(t, p.contains("Do nothing."))
}

func TestDrainWithoutManifest(t *testing.T) {
	cluster := testCluster()
	cp := newTestControlPlane(cluster)
	e := newTestExecutor(cluster, cp, newFakeBalancer(cp), &fakePrinter{})
	role, _ := cluster.FindRole("hbase-REGIONSERVER-3")

	err := e.BeforeRestart(t.Context(), role)
	require.ErrorIs(t, err, domain.ErrDrain)
	require.Len(t, e.OpenWindows(), 1)
}

func TestEnterMaintenanceFailureLeavesNothingOpen(t *testing.T) {
	cluster := testCluster()
	cp := newTestControlPlane(cluster)
	cp.failOn["enter hdfs-DATANODE-3"] = domain.ErrControlPlaneUnavailable
	e := newTestExecutor(cluster, cp, newFakeBalancer(cp), &fakePrinter{})
	role, _ := cluster.FindRole("hdfs-DATANODE-3")

	err := e.BeforeRestart(t.Context(), role)
	require.ErrorIs(t, err, domain.ErrControlPlaneUnavailable)
	assert.Empty(t, e.OpenWindows())
}
