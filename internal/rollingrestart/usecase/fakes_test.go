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
	"strings"
	"sync"
	"time"

	"github.com/deckhouse/cmux-cli/internal/rollingrestart/domain"
)

type fakeRole struct {
	state       domain.RunState
	ha          domain.HAStatus
	maintenance bool
}

type fakeControlPlane struct {
	mu           sync.Mutex
	roles        map[string]*fakeRole
	nameservices map[string][]domain.Nameservice
	calls        []string

	// failOn makes the named call fail, e.g. "restart hdfs-NAMENODE-2".
	failOn map[string]error
}

func newFakeControlPlane() *fakeControlPlane {
	return &fakeControlPlane{
		roles:        make(map[string]*fakeRole),
		nameservices: make(map[string][]domain.Nameservice),
		failOn:       make(map[string]error),
	}
}

func (f *fakeControlPlane) add(name string, ha domain.HAStatus) {
	f.roles[name] = &fakeRole{state: domain.RunStateStarted, ha: ha}
}

func (f *fakeControlPlane) record(call string) error {
	f.calls = append(f.calls, call)
	return f.failOn[call]
}

func (f *fakeControlPlane) role(name string) (*fakeRole, error) {
	r, ok := f.roles[name]
	if !ok {
		return nil, fmt.Errorf("%w: role %s not found", domain.ErrControlPlaneUnavailable, name)
	}
	return r, nil
}

func (f *fakeControlPlane) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeControlPlane) RoleState(_ context.Context, role domain.RoleRef) (domain.RunState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, err := f.role(role.Name)
	if err != nil {
		return "", err
	}
	return r.state, nil
}

func (f *fakeControlPlane) ChangeRoleState(_ context.Context, role domain.RoleRef, cmd domain.RoleCommand, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(string(cmd) + " " + role.Name); err != nil {
		return err
	}
	r, err := f.role(role.Name)
	if err != nil {
		return err
	}
	r.state = cmd.TargetState()
	return nil
}

func (f *fakeControlPlane) EnterMaintenance(_ context.Context, role domain.RoleRef) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("enter " + role.Name); err != nil {
		return nil, err
	}
	r, err := f.role(role.Name)
	if err != nil {
		return nil, err
	}
	r.maintenance = true
	return []string{"ROLE"}, nil
}

func (f *fakeControlPlane) ExitMaintenance(_ context.Context, role domain.RoleRef) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("exit " + role.Name); err != nil {
		return nil, err
	}
	r, err := f.role(role.Name)
	if err != nil {
		return nil, err
	}
	r.maintenance = false
	return []string{}, nil
}

func (f *fakeControlPlane) HAStatus(_ context.Context, role domain.RoleRef) (domain.HAStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, err := f.role(role.Name)
	if err != nil {
		return "", err
	}
	return r.ha, nil
}

func (f *fakeControlPlane) CheckHAStatus(_ context.Context, role domain.RoleRef) (domain.HAStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("confirm " + role.Name); err != nil {
		return "", err
	}
	r, err := f.role(role.Name)
	if err != nil {
		return "", err
	}
	return r.ha, nil
}

func (f *fakeControlPlane) Nameservices(_ context.Context, service string) ([]domain.Nameservice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items, ok := f.nameservices[service]
	if !ok {
		return nil, fmt.Errorf("%s %w", service, domain.ErrNameserviceMissing)
	}
	return append([]domain.Nameservice(nil), items...), nil
}

func (f *fakeControlPlane) NameservicesOf(_ context.Context, role domain.RoleRef) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items, ok := f.nameservices[role.Service]
	if !ok {
		return nil, fmt.Errorf("%s %w", role.Service, domain.ErrNameserviceMissing)
	}
	var names []string
	for _, ns := range items {
		if ns.Active == role.Name || ns.Standby == role.Name {
			names = append(names, ns.Name)
		}
	}
	return names, nil
}

func (f *fakeControlPlane) HAPair(_ context.Context, service, nameservice string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ns := range f.nameservices[service] {
		if ns.Name == nameservice && ns.Active != "" && ns.Standby != "" {
			return ns.Standby, ns.Active, nil
		}
	}
	return "", "", fmt.Errorf("%s/%s %w", service, nameservice, domain.ErrNoHAPeer)
}

func (f *fakeControlPlane) Failover(_ context.Context, active, standby domain.RoleRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("failover " + active.Name + " " + standby.Name); err != nil {
		return err
	}
	f.roles[active.Name].ha = domain.HAStatusStandby
	f.roles[standby.Name].ha = domain.HAStatusActive
	for svc, items := range f.nameservices {
		for i := range items {
			if items[i].Active == active.Name {
				items[i].Active, items[i].Standby = standby.Name, active.Name
			}
		}
		f.nameservices[svc] = items
	}
	return nil
}

func (f *fakeControlPlane) RollEdits(_ context.Context, service string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("roll-edits " + service)
}

// fakeBalancer shares the call log of the control plane so the tests can
// assert the interleaving of tool and manager calls.
type fakeBalancer struct {
	cp       *fakeControlPlane
	manifest domain.ExportManifest
	// empty lists role names the manifest has no entry for.
	empty  map[string]bool
	failOn map[string]error
}

func newFakeBalancer(cp *fakeControlPlane) *fakeBalancer {
	return &fakeBalancer{
		cp:       cp,
		manifest: domain.ExportManifest{Path: "/tmp/cm01-cluster-1_20240305070809.exp"},
		empty:    make(map[string]bool),
		failOn:   make(map[string]error),
	}
}

func (b *fakeBalancer) record(call string) error {
	b.cp.mu.Lock()
	defer b.cp.mu.Unlock()
	b.cp.calls = append(b.cp.calls, call)
	return b.failOn[call]
}

func (b *fakeBalancer) SetBalancer(_ context.Context, enabled bool) (string, error) {
	if err := b.record(fmt.Sprintf("balancer %t", enabled)); err != nil {
		return "", err
	}
	return fmt.Sprintf("Previous balancer state : %t", !enabled), nil
}

func (b *fakeBalancer) ExportAssignment(context.Context) (domain.ExportManifest, error) {
	if err := b.record("export"); err != nil {
		return domain.ExportManifest{}, err
	}
	return b.manifest, nil
}

func (b *fakeBalancer) DrainHost(_ context.Context, role domain.RoleRef, m domain.ExportManifest) (bool, error) {
	if m != b.manifest {
		return false, errors.New("unexpected manifest " + m.Path)
	}
	if b.empty[role.Name] {
		return false, nil
	}
	if err := b.record("drain " + role.Name); err != nil {
		return false, err
	}
	return true, nil
}

func (b *fakeBalancer) RestoreHost(_ context.Context, role domain.RoleRef, m domain.ExportManifest) (bool, error) {
	if m != b.manifest {
		return false, errors.New("unexpected manifest " + m.Path)
	}
	if b.empty[role.Name] {
		return false, nil
	}
	if err := b.record("restore " + role.Name); err != nil {
		return false, err
	}
	return true, nil
}

type fakePrompter struct {
	answers   []bool
	questions []string
}

func (p *fakePrompter) AskYesNo(ctx context.Context, question string) (bool, error) {
	p.questions = append(p.questions, question)
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if len(p.answers) == 0 {
		return false, errors.New("no answer scripted")
	}
	answer := p.answers[0]
	p.answers = p.answers[1:]
	return answer, nil
}

func (p *fakePrompter) AskValue(_ context.Context, question string, _ func(string) error) (string, error) {
	p.questions = append(p.questions, question)
	return "", errors.New("no value scripted")
}

type fakePrinter struct {
	lines []string
}

func (p *fakePrinter) add(format string, args ...any) {
	p.lines = append(p.lines, fmt.Sprintf(format, args...))
}

func (p *fakePrinter) Action(verb, target string)      { p.add("%s %s", verb, target) }
func (p *fakePrinter) Title(format string, a ...any)   { p.add(format, a...) }
func (p *fakePrinter) Info(format string, a ...any)    { p.add(format, a...) }
func (p *fakePrinter) Step(format string, a ...any)    { p.add("└── "+format, a...) }
func (p *fakePrinter) Success(format string, a ...any) { p.add("└── "+format, a...) }
func (p *fakePrinter) Warn(format string, a ...any)    { p.add(format, a...) }
func (p *fakePrinter) Error(format string, a ...any)   { p.add(format, a...) }
func (p *fakePrinter) Mark() int                       { return len(p.lines) }

func (p *fakePrinter) Since(mark int) []string {
	return append([]string(nil), p.lines[mark:]...)
}

func (p *fakePrinter) contains(substr string) bool {
	for _, l := range p.lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

type fakeWaiter struct {
	waits []time.Duration
}

func (w *fakeWaiter) Wait(ctx context.Context, d time.Duration) error {
	w.waits = append(w.waits, d)
	return ctx.Err()
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// testCluster has H1 with the active NameNode, H2 with the standby and H3
// serving storage only.
func testCluster() domain.Cluster {
	return domain.Cluster{
		Manager: "cm01",
		Name:    "cluster-1",
		Version: "5.16.2",
		Hosts: []domain.Host{
			{Hostname: "h1.example.com", Roles: []domain.Role{
				{Name: "hdfs-NAMENODE-1", Type: domain.RoleTypeNameNode, ServiceName: "hdfs", HAStatus: domain.HAStatusActive},
				{Name: "hdfs-JOURNALNODE-1", Type: domain.RoleTypeJournalNode, ServiceName: "hdfs"},
			}},
			{Hostname: "h2.example.com", Roles: []domain.Role{
				{Name: "hdfs-NAMENODE-2", Type: domain.RoleTypeNameNode, ServiceName: "hdfs", HAStatus: domain.HAStatusStandby},
				{Name: "zookeeper-SERVER-2", Type: domain.RoleTypeZooKeeper, ServiceName: "zookeeper", HAStatus: "REPLICATED_LEADER"},
			}},
			{Hostname: "h3.example.com", Roles: []domain.Role{
				{Name: "hbase-REGIONSERVER-3", Type: domain.RoleTypeRegionServer, ServiceName: "hbase"},
				{Name: "hdfs-GATEWAY-3", Type: "GATEWAY", ServiceName: "hdfs"},
				{Name: "yarn-NODEMANAGER-3", Type: domain.RoleTypeNodeManager, ServiceName: "yarn"},
				{Name: "hdfs-DATANODE-3", Type: domain.RoleTypeDataNode, ServiceName: "hdfs"},
			}},
		},
	}
}

func newTestControlPlane(cluster domain.Cluster) *fakeControlPlane {
	cp := newFakeControlPlane()
	for _, h := range cluster.Hosts {
		for _, r := range h.Roles {
			cp.add(r.Name, r.HAStatus)
		}
	}
	cp.nameservices["hdfs"] = []domain.Nameservice{{
		Service:      "hdfs",
		Name:         "nameservice1",
		Active:       "hdfs-NAMENODE-1",
		Standby:      "hdfs-NAMENODE-2",
		AutoFailover: true,
	}}
	return cp
}

func testPolicy() domain.BatchExecutionPolicy {
	enable := true
	return domain.BatchExecutionPolicy{
		Interval:       10 * time.Second,
		MaxWait:        domain.MinMaxWait,
		ForceProceed:   true,
		EnableBalancer: &enable,
	}
}
