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
	"log/slog"
	"os"

	"k8s.io/utils/clock"

	dkplog "github.com/deckhouse/deckhouse/pkg/log"

	"github.com/deckhouse/cmux-cli/internal/config"
	"github.com/deckhouse/cmux-cli/internal/rollingrestart/adapters"
	"github.com/deckhouse/cmux-cli/internal/rollingrestart/domain"
	"github.com/deckhouse/cmux-cli/internal/rollingrestart/usecase"
	"github.com/deckhouse/cmux-cli/internal/snapshot"
	"github.com/deckhouse/cmux-cli/internal/ui"
	"github.com/deckhouse/cmux-cli/pkg/cmapi"
	"github.com/deckhouse/cmux-cli/pkg/hbasetools"
)

// Selector picks rows of a table.
type Selector interface {
	Select(ctx context.Context, prompt string, header []string, rows [][]string, multi bool) ([]int, error)
}

// session is everything one command invocation works with.
type session struct {
	opts     *Options
	logger   *dkplog.Logger
	state    *ui.UIState
	printer  *ui.Printer
	prompter usecase.Prompter
	selector Selector
	spinner  *ui.Spinner
	clock    clock.Clock

	cfg       *config.Config
	snapshot  *snapshot.Provider
	cluster   domain.Cluster
	manager   config.Manager
	client    *cmapi.Client
	cp        *adapters.ControlPlaneAdapter
	planner   *usecase.PlannerUseCase
	useLogger usecase.Logger
}

func newSession(opts *Options, state *ui.UIState, logger *dkplog.Logger) *session {
	c := clock.RealClock{}
	return &session{
		opts:      opts,
		logger:    logger,
		state:     state,
		printer:   ui.NewPrinter(os.Stdout),
		prompter:  ui.NewPrompter(os.Stdin, os.Stdout),
		selector:  ui.NewFzfSelector(opts.FzfPath, state),
		spinner:   ui.NewSpinner(state, c),
		clock:     c,
		useLogger: adapters.NewLoggerAdapter(logger),
	}
}

// load reads the config files and the snapshot.
func (s *session) load() error {
	cfg, err := config.Load(s.opts.ConfigPath, s.opts.SettingsPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	s.cfg = cfg

	provider, err := snapshot.Load(s.opts.SnapshotPath)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	s.snapshot = provider
	return nil
}

// connect binds the session to the selected cluster.
func (s *session) connect(cluster domain.Cluster) error {
	manager, err := s.cfg.Manager(cluster.Manager)
	if err != nil {
		return err
	}

	apiVersion := cmapi.APIVersionFor(cluster.ManagerVersion)
	client, err := cmapi.NewClient(cmapi.Config{
		BaseURL:            manager.BaseURL(),
		APIVersion:         apiVersion,
		User:               manager.User,
		Password:           manager.Password,
		InsecureSkipVerify: manager.InsecureSkipVerify,
	}, s.logger.Named("cmapi"))
	if err != nil {
		return fmt.Errorf("create manager client: %w", err)
	}

	s.logger.Debug("Connected to manager",
		slog.String("manager", manager.Name),
		slog.String("api", apiVersion),
		slog.String("cluster", cluster.Name))

	cluster.ManagerURL = manager.BaseURL()
	s.cluster = cluster
	s.manager = manager
	s.client = client
	s.cp = adapters.NewControlPlaneAdapter(client, cluster.Name, s.spinner)
	s.planner = usecase.NewPlannerUseCase(s.cp, excludedRoleTypes(s.cfg.Settings), s.useLogger)
	return nil
}

func excludedRoleTypes(settings config.Settings) []domain.RoleType {
	types := make([]domain.RoleType, 0, len(settings.ExcludedRoleTypes))
	for _, t := range settings.ExcludedRoleTypes {
		types = append(types, domain.RoleType(t))
	}
	return types
}

// regionTarget resolves the hbase-manager target when the plan moves
// regions. It returns nil otherwise.
func (s *session) regionTarget(ctx context.Context, plan domain.Plan) (*hbasetools.Target, error) {
	if !plan.Involves(domain.RoleTypeRegionServer) {
		return nil, nil
	}
	target, err := adapters.ResolveTarget(ctx, s.client, s.cluster, s.manager, s.cfg.Settings)
	if err != nil {
		return nil, fmt.Errorf("resolve hbase-manager: %w", err)
	}
	return &target, nil
}

func (s *session) regionTool(target *hbasetools.Target, policy domain.BatchExecutionPolicy) *hbasetools.Tool {
	if target == nil {
		return nil
	}
	return hbasetools.New(*target,
		hbasetools.WithJava(s.cfg.Settings.Java),
		hbasetools.WithDryRun(policy.DryRun),
		hbasetools.WithForceProceed(policy.ForceProceed),
		hbasetools.WithCommandObserver(s.printer.Command),
	)
}

// execute runs the plan and reports the outcome to the operator.
func (s *session) execute(ctx context.Context, plan domain.Plan, policy domain.BatchExecutionPolicy, tool *hbasetools.Tool) error {
	var balancer usecase.RegionBalancer = noRegions{}
	if tool != nil {
		path := hbasetools.ManifestPath(s.cfg.Settings.ManifestDir, s.cluster.Manager, s.cluster.Name, s.clock.Now())
		balancer = adapters.NewBalancerAdapter(tool, path)
	}

	uc := usecase.NewRollingRestartUseCase(
		s.cp,
		balancer,
		s.prompter,
		s.printer,
		ui.NewCountdown(os.Stdout, s.clock),
		s.useLogger,
	)
	report, err := uc.Execute(ctx, plan, policy)
	if err != nil {
		return err
	}
	if report.Aborted {
		s.printer.Error("STOPPED")
	}
	return nil
}

// noRegions stands in for the region tool when no RegionServer is involved.
type noRegions struct{}

func (noRegions) SetBalancer(context.Context, bool) (string, error) {
	return "", fmt.Errorf("%w: no RegionServer in this run", domain.ErrBalancerTool)
}

func (noRegions) ExportAssignment(context.Context) (domain.ExportManifest, error) {
	return domain.ExportManifest{}, fmt.Errorf("%w: no RegionServer in this run", domain.ErrExport)
}

func (noRegions) DrainHost(context.Context, domain.RoleRef, domain.ExportManifest) (bool, error) {
	return false, fmt.Errorf("%w: no RegionServer in this run", domain.ErrDrain)
}

func (noRegions) RestoreHost(context.Context, domain.RoleRef, domain.ExportManifest) (bool, error) {
	return false, fmt.Errorf("%w: no RegionServer in this run", domain.ErrRestore)
}
