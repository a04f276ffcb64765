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
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/deckhouse/cmux-cli/internal/rollingrestart/domain"
)

// hook is one role-type specific step around a restart.
type hook func(e *MaintenanceStepExecutor, ctx context.Context, role domain.RoleRef) error

// roleStrategy lists the steps a role type needs. A missing step is a no-op.
type roleStrategy struct {
	drain     hook
	failover  hook
	restore   hook
	rollEdits hook
	confirmHA hook
}

func (s roleStrategy) before() []hook {
	return compact(s.drain, s.failover)
}

func (s roleStrategy) after() []hook {
	return compact(s.restore, s.rollEdits, s.confirmHA)
}

func compact(hooks ...hook) []hook {
	return slices.DeleteFunc(hooks, func(h hook) bool { return h == nil })
}

var strategies = map[domain.RoleType]roleStrategy{
	domain.RoleTypeRegionServer: {
		drain:   (*MaintenanceStepExecutor).drain,
		restore: (*MaintenanceStepExecutor).restore,
	},
	domain.RoleTypeNameNode: {
		failover:  (*MaintenanceStepExecutor).failover,
		confirmHA: (*MaintenanceStepExecutor).confirmHA,
	},
	domain.RoleTypeJournalNode: {
		rollEdits: (*MaintenanceStepExecutor).rollEdits,
	},
	domain.RoleTypeMaster: {
		confirmHA: (*MaintenanceStepExecutor).confirmHA,
	},
	domain.RoleTypeResourceManager: {
		confirmHA: (*MaintenanceStepExecutor).confirmHA,
	},
	domain.RoleTypeZooKeeper: {
		confirmHA: (*MaintenanceStepExecutor).confirmHA,
	},
}

func strategyFor(t domain.RoleType) roleStrategy {
	return strategies[t]
}

// MaintenanceStepExecutor wraps every role transition in a maintenance
// window and runs the role-type specific steps around it.
type MaintenanceStepExecutor struct {
	cluster  domain.Cluster
	cp       ControlPlane
	balancer RegionBalancer
	printer  Printer
	logger   Logger

	manifest *domain.ExportManifest
	phases   map[string]domain.MaintenancePhase
	refs     map[string]domain.RoleRef
	order    []string
}

func NewMaintenanceStepExecutor(cluster domain.Cluster, cp ControlPlane, balancer RegionBalancer, printer Printer, logger Logger) *MaintenanceStepExecutor {
	return &MaintenanceStepExecutor{
		cluster:  cluster,
		cp:       cp,
		balancer: balancer,
		printer:  printer,
		logger:   logger,
		phases:   make(map[string]domain.MaintenancePhase),
		refs:     make(map[string]domain.RoleRef),
	}
}

// UseManifest sets the region assignment used by drain and restore.
func (e *MaintenanceStepExecutor) UseManifest(m domain.ExportManifest) {
	e.manifest = &m
}

// BeforeRestart enters maintenance first, then runs the pre-restart steps.
func (e *MaintenanceStepExecutor) BeforeRestart(ctx context.Context, role domain.RoleRef) error {
	e.printer.Title("Enter maintenance mode")
	owners, err := e.cp.EnterMaintenance(ctx, role)
	if err != nil {
		return fmt.Errorf("enter maintenance mode of %s: %w", role.Name, err)
	}
	e.setPhase(role, domain.PhaseInMaintenance)
	e.printer.Step("Maintenance owners: %v", owners)

	for _, h := range strategyFor(role.Type).before() {
		if err := h(e, ctx, role); err != nil {
			return err
		}
	}
	e.setPhase(role, domain.PhasePreHookDone)
	return nil
}

// Transition sends a state command and waits for it to be confirmed.
func (e *MaintenanceStepExecutor) Transition(ctx context.Context, role domain.RoleRef, cmd domain.RoleCommand, maxWait time.Duration) error {
	e.printer.Action(transitionVerbs[cmd], role.String())
	e.logger.Debug("Changing role state", "role", role.Name, "command", string(cmd))

	if err := e.cp.ChangeRoleState(ctx, role, cmd, maxWait); err != nil {
		return fmt.Errorf("%s %s: %w", cmd, role.Name, err)
	}
	e.printer.Success("%s", cmd.TargetState())

	if cmd == domain.CommandStop {
		e.setPhase(role, domain.PhaseStopped)
	} else {
		e.setPhase(role, domain.PhaseStarted)
	}
	return nil
}

var transitionVerbs = map[domain.RoleCommand]string{
	domain.CommandStart:   "Start",
	domain.CommandStop:    "Stop",
	domain.CommandRestart: "Restart",
}

// AfterRestart runs the post-restart steps and exits maintenance last.
// Maintenance is exited even when a step fails; both failures are returned.
func (e *MaintenanceStepExecutor) AfterRestart(ctx context.Context, role domain.RoleRef) error {
	var result *multierror.Error
	for _, h := range strategyFor(role.Type).after() {
		if err := h(e, ctx, role); err != nil {
			result = multierror.Append(result, err)
			break
		}
	}
	if result == nil {
		e.setPhase(role, domain.PhasePostHookDone)
	}

	e.printer.Title("Exit maintenance mode")
	owners, err := e.cp.ExitMaintenance(ctx, role)
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("exit maintenance mode of %s: %w", role.Name, err))
	} else {
		e.printer.Step("Maintenance owners: %v", owners)
		e.setPhase(role, domain.PhaseIdle)
	}
	return result.ErrorOrNil()
}

// OpenWindows lists roles whose maintenance window is still open, in the
// order they were entered.
func (e *MaintenanceStepExecutor) OpenWindows() []domain.OpenWindow {
	var open []domain.OpenWindow
	for _, name := range e.order {
		if phase := e.phases[name]; phase != domain.PhaseIdle {
			open = append(open, domain.OpenWindow{Role: e.refs[name], Phase: phase})
		}
	}
	return open
}

func (e *MaintenanceStepExecutor) setPhase(role domain.RoleRef, phase domain.MaintenancePhase) {
	if _, ok := e.phases[role.Name]; !ok {
		e.order = append(e.order, role.Name)
		e.refs[role.Name] = role
	}
	e.phases[role.Name] = phase
}

func (e *MaintenanceStepExecutor) currentManifest(sentinel error) (domain.ExportManifest, error) {
	if e.manifest == nil {
		return domain.ExportManifest{}, fmt.Errorf("%w: region assignment was not exported", sentinel)
	}
	return *e.manifest, nil
}

func (e *MaintenanceStepExecutor) drain(ctx context.Context, role domain.RoleRef) error {
	manifest, err := e.currentManifest(domain.ErrDrain)
	if err != nil {
		return err
	}
	e.printer.Title("Move all Regions to other RegionServers")
	moved, err := e.balancer.DrainHost(ctx, role, manifest)
	if err != nil {
		return err
	}
	if !moved {
		e.printer.Success("This RegionServer is already empty.")
		return nil
	}
	e.printer.Success("Moved")
	return nil
}

func (e *MaintenanceStepExecutor) restore(ctx context.Context, role domain.RoleRef) error {
	manifest, err := e.currentManifest(domain.ErrRestore)
	if err != nil {
		return err
	}
	e.printer.Title("Import assignment of Regions")
	restored, err := e.balancer.RestoreHost(ctx, role, manifest)
	if err != nil {
		return err
	}
	if !restored {
		e.printer.Success("Do nothing. This RegionServer was empty.")
		return nil
	}
	e.printer.Success("Imported")
	return nil
}

// failover hands the active state of the NameNode over to its peer in
// every nameservice the NameNode belongs to.
func (e *MaintenanceStepExecutor) failover(ctx context.Context, role domain.RoleRef) error {
	names, err := e.cp.NameservicesOf(ctx, role)
	if err != nil {
		return fmt.Errorf("nameservices of %s: %w", role.Name, err)
	}
	if len(names) == 0 {
		return fmt.Errorf("%s: no nameservice has %s: %w", role.Service, role.Name, domain.ErrNoHAPeer)
	}
	for _, name := range names {
		if err := e.failoverIn(ctx, role, name); err != nil {
			return err
		}
	}
	return nil
}

func (e *MaintenanceStepExecutor) failoverIn(ctx context.Context, role domain.RoleRef, nameservice string) error {
	status, err := e.cp.HAStatus(ctx, role)
	if err != nil {
		return fmt.Errorf("HA status of %s: %w", role.Name, err)
	}
	if status != domain.HAStatusActive {
		e.printer.Warn("Skip Failover: This is NOT a ACTIVE NameNode")
		return nil
	}

	standbyName, _, err := e.cp.HAPair(ctx, role.Service, nameservice)
	if err != nil {
		return fmt.Errorf("HA pair of %s: %w", nameservice, err)
	}
	standby, ok := e.cluster.FindRole(standbyName)
	if !ok {
		standby = domain.NewRoleRef(standbyName, role.Service, domain.RoleTypeNameNode, "?")
	}

	e.printer.Title("Failing over NameNode")
	e.printer.Info("%s (%s)", role, domain.HAStatusActive)
	e.printer.Info("  => %s (%s)", standby, domain.HAStatusStandby)
	if err := e.cp.Failover(ctx, role, standby); err != nil {
		return fmt.Errorf("failover %s to %s: %w", role.Name, standby.Name, err)
	}
	e.printer.Success("%s is now a STANDBY NameNode", role.Hostname)
	return nil
}

func (e *MaintenanceStepExecutor) rollEdits(ctx context.Context, role domain.RoleRef) error {
	e.printer.Title("Roll the edits of an HDFS Nameservice")
	if err := e.cp.RollEdits(ctx, role.Service); err != nil {
		return fmt.Errorf("roll edits of %s: %w", role.Service, err)
	}
	e.printer.Success("OK")
	return nil
}

func (e *MaintenanceStepExecutor) confirmHA(ctx context.Context, role domain.RoleRef) error {
	e.printer.Title("Wait for HA status to become active")
	status, err := e.cp.CheckHAStatus(ctx, role)
	if err != nil {
		return fmt.Errorf("HA status of %s: %w", role.Name, err)
	}
	e.printer.Success("OK %s", status)
	return nil
}

// IsOperatorAbort reports whether err is a clean stop requested by the
// operator.
func IsOperatorAbort(err error) bool {
	return errors.Is(err, domain.ErrOperatorAbort)
}
