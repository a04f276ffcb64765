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
	"fmt"

	"github.com/google/uuid"

	"github.com/deckhouse/cmux-cli/internal/rollingrestart/domain"
)

const (
	continueQuestion = "Continue (y|n:stop)? "
	balancerQuestion = "Do you want to turn on auto balancer (y|n)? "
)

// Report is the outcome of one run.
type Report struct {
	RunID string
	// Completed are the units that finished every step.
	Completed []domain.RestartUnit
	// Aborted is set when the operator stopped the run.
	Aborted bool
	// OpenMaintenance lists roles left in maintenance by a failure.
	OpenMaintenance []domain.OpenWindow
	Transcript      []string
}

// RollingRestartUseCase restarts the units of a plan one by one.
type RollingRestartUseCase struct {
	cp       ControlPlane
	balancer RegionBalancer
	prompter Prompter
	printer  Printer
	waiter   Waiter
	logger   Logger
}

func NewRollingRestartUseCase(cp ControlPlane, balancer RegionBalancer, prompter Prompter, printer Printer, waiter Waiter, logger Logger) *RollingRestartUseCase {
	return &RollingRestartUseCase{
		cp:       cp,
		balancer: balancer,
		prompter: prompter,
		printer:  printer,
		waiter:   waiter,
		logger:   logger,
	}
}

// Execute runs the plan. An operator abort is not an error: the report is
// marked aborted and the finish step still runs. Any other failure stops the
// run immediately and is returned together with the partial report.
func (uc *RollingRestartUseCase) Execute(ctx context.Context, plan domain.Plan, policy domain.BatchExecutionPolicy) (*Report, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("validate policy: %w", err)
	}

	mark := uc.printer.Mark()
	report := &Report{RunID: uuid.NewString()}
	exec := NewMaintenanceStepExecutor(plan.Cluster, uc.cp, uc.balancer, uc.printer, uc.logger)

	uc.printer.Info("Rolling restart %s on [%s] %s", report.RunID, plan.Cluster.Name, plan.Cluster.DisplayName)
	uc.logger.Info("Rolling restart started",
		"run", report.RunID,
		"cluster", plan.Cluster.Name,
		"scope", string(plan.Scope),
		"units", len(plan.Units))

	err := uc.run(ctx, plan, policy, exec, report)
	switch {
	case IsOperatorAbort(err):
		report.Aborted = true
		uc.logger.Info("Rolling restart stopped by operator", "run", report.RunID, "completed", len(report.Completed))
	case err != nil:
		report.OpenMaintenance = exec.OpenWindows()
		for _, w := range report.OpenMaintenance {
			uc.printer.Warn("%s is still in maintenance mode (%s)", w.Role, w.Phase)
		}
		uc.logger.Error("Rolling restart failed", "run", report.RunID, "completed", len(report.Completed), "error", err)
		report.Transcript = uc.printer.Since(mark)
		return report, err
	}

	if err := uc.finish(ctx, plan, policy); err != nil {
		report.Transcript = uc.printer.Since(mark)
		return report, err
	}

	uc.logger.Info("Rolling restart finished", "run", report.RunID, "completed", len(report.Completed))
	report.Transcript = uc.printer.Since(mark)
	return report, nil
}

func (uc *RollingRestartUseCase) run(ctx context.Context, plan domain.Plan, policy domain.BatchExecutionPolicy, exec *MaintenanceStepExecutor, report *Report) error {
	if plan.Involves(domain.RoleTypeRegionServer) {
		if err := uc.prepare(ctx, exec); err != nil {
			return err
		}
	}

	for i, unit := range plan.Units {
		uc.announce(unit)

		if policy.Interactive {
			ok, err := uc.prompter.AskYesNo(ctx, continueQuestion)
			if err != nil {
				return fmt.Errorf("ask to continue: %w", err)
			}
			if !ok {
				return domain.ErrOperatorAbort
			}
		}

		var err error
		if unit.Scope == domain.ScopeHost {
			err = uc.restartHost(ctx, unit, policy, exec)
		} else {
			err = uc.restartRoles(ctx, unit, policy, exec)
		}
		if err != nil {
			return fmt.Errorf("restart %s: %w", unitName(unit), err)
		}
		report.Completed = append(report.Completed, unit)

		if i < len(plan.Units)-1 && policy.Interval > 0 {
			uc.printer.Info("Waiting up %d seconds to next batch", int(policy.Interval.Seconds()))
			if err := uc.waiter.Wait(ctx, policy.Interval); err != nil {
				return err
			}
		}
	}
	return nil
}

// prepare turns the balancer off and exports the assignment once per run.
func (uc *RollingRestartUseCase) prepare(ctx context.Context, exec *MaintenanceStepExecutor) error {
	uc.printer.Title("Disable HBase balancer")
	out, err := uc.balancer.SetBalancer(ctx, false)
	if err != nil {
		return err
	}
	uc.printer.Success("%s", out)

	uc.printer.Title("Export assignment of all Regions")
	manifest, err := uc.balancer.ExportAssignment(ctx)
	if err != nil {
		return err
	}
	exec.UseManifest(manifest)
	uc.printer.Success("Exported %s", manifest.Path)
	return nil
}

func (uc *RollingRestartUseCase) announce(unit domain.RestartUnit) {
	switch {
	case unit.Scope == domain.ScopeHost:
		uc.printer.Action("Restart", "all roles on "+unit.Hostname)
	case len(unit.Roles) == 1 && unit.Nameservice != "":
		uc.printer.Action("Restart", fmt.Sprintf("%s (%s)", unit.Roles[0].Ref, unit.Nameservice))
	default:
		for _, r := range unit.Roles {
			uc.printer.Action("Restart", r.Ref.String())
		}
	}
}

// restartHost stops every role in stop order, then starts them in reverse.
func (uc *RollingRestartUseCase) restartHost(ctx context.Context, unit domain.RestartUnit, policy domain.BatchExecutionPolicy, exec *MaintenanceStepExecutor) error {
	for _, r := range unit.StopOrder() {
		if r.Skip {
			uc.printer.Info("Skip %s", r.Ref)
			continue
		}
		if err := exec.BeforeRestart(ctx, r.Ref); err != nil {
			return err
		}
		if err := exec.Transition(ctx, r.Ref, domain.CommandStop, policy.MaxWait); err != nil {
			return err
		}
	}

	for _, r := range unit.StartOrder() {
		if r.Skip {
			continue
		}
		if err := exec.Transition(ctx, r.Ref, domain.CommandStart, policy.MaxWait); err != nil {
			return err
		}
		if err := exec.AfterRestart(ctx, r.Ref); err != nil {
			return err
		}
	}
	return nil
}

func (uc *RollingRestartUseCase) restartRoles(ctx context.Context, unit domain.RestartUnit, policy domain.BatchExecutionPolicy, exec *MaintenanceStepExecutor) error {
	for _, r := range unit.Roles {
		if r.Skip {
			uc.printer.Info("Skip %s", r.Ref)
			continue
		}
		if err := exec.BeforeRestart(ctx, r.Ref); err != nil {
			return err
		}
		if err := exec.Transition(ctx, r.Ref, domain.CommandRestart, policy.MaxWait); err != nil {
			return err
		}
		if err := exec.AfterRestart(ctx, r.Ref); err != nil {
			return err
		}
	}
	return nil
}

// finish offers to turn the balancer back on when regions were moved.
func (uc *RollingRestartUseCase) finish(ctx context.Context, plan domain.Plan, policy domain.BatchExecutionPolicy) error {
	if plan.Involves(domain.RoleTypeRegionServer) {
		enable := false
		if policy.EnableBalancer != nil {
			enable = *policy.EnableBalancer
		} else {
			answer, err := uc.prompter.AskYesNo(ctx, balancerQuestion)
			if err != nil {
				return fmt.Errorf("ask to enable balancer: %w", err)
			}
			enable = answer
		}

		if enable {
			uc.printer.Title("Enable HBase balancer")
			out, err := uc.balancer.SetBalancer(ctx, true)
			if err != nil {
				return err
			}
			uc.printer.Success("%s", out)
		}
	}

	uc.printer.Title("Finish")
	return nil
}

func unitName(unit domain.RestartUnit) string {
	if unit.Scope == domain.ScopeHost {
		return unit.Hostname
	}
	names := make([]string, 0, len(unit.Roles))
	for _, r := range unit.Roles {
		names = append(names, r.Ref.Name)
	}
	if len(names) == 1 {
		return names[0]
	}
	return fmt.Sprint(names)
}
