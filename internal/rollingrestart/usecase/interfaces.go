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
	"time"

	"github.com/deckhouse/cmux-cli/internal/rollingrestart/domain"
)

// ControlPlane drives roles of one cluster through the cluster manager.
type ControlPlane interface {
	// RoleState returns the current run state of a role
	RoleState(ctx context.Context, role domain.RoleRef) (domain.RunState, error)
	// ChangeRoleState issues a command and waits up to maxWait for the target state
	ChangeRoleState(ctx context.Context, role domain.RoleRef, cmd domain.RoleCommand, maxWait time.Duration) error
	// EnterMaintenance enters role maintenance mode and returns the maintenance owners
	EnterMaintenance(ctx context.Context, role domain.RoleRef) ([]string, error)
	// ExitMaintenance exits role maintenance mode and returns the maintenance owners
	ExitMaintenance(ctx context.Context, role domain.RoleRef) ([]string, error)
	// HAStatus returns the current HA status of a role
	HAStatus(ctx context.Context, role domain.RoleRef) (domain.HAStatus, error)
	// CheckHAStatus waits until the role reports an HA status
	CheckHAStatus(ctx context.Context, role domain.RoleRef) (domain.HAStatus, error)
	// Nameservices lists the nameservices of an HDFS service
	Nameservices(ctx context.Context, service string) ([]domain.Nameservice, error)
	// NameservicesOf lists the names of the nameservices a NameNode belongs to
	NameservicesOf(ctx context.Context, role domain.RoleRef) ([]string, error)
	// HAPair returns the standby and active NameNode names of a nameservice
	HAPair(ctx context.Context, service, nameservice string) (standby, active string, err error)
	// Failover makes standby the active NameNode and waits until active reports STANDBY
	Failover(ctx context.Context, active, standby domain.RoleRef) error
	// RollEdits rolls the edit logs of every nameservice of an HDFS service
	RollEdits(ctx context.Context, service string) error
}

// RegionBalancer moves HBase regions around a RegionServer restart.
type RegionBalancer interface {
	// SetBalancer switches the HBase auto balancer and returns the tool output
	SetBalancer(ctx context.Context, enabled bool) (string, error)
	// ExportAssignment writes the region assignment of the whole cluster
	ExportAssignment(ctx context.Context) (domain.ExportManifest, error)
	// DrainHost moves every region off the RegionServer of role. It returns
	// false when the server held no regions.
	DrainHost(ctx context.Context, role domain.RoleRef, manifest domain.ExportManifest) (bool, error)
	// RestoreHost moves the regions listed in the manifest back. It returns
	// false when there was nothing to restore.
	RestoreHost(ctx context.Context, role domain.RoleRef, manifest domain.ExportManifest) (bool, error)
}

// Prompter asks the operator. Both calls return ctx.Err() once ctx is done.
type Prompter interface {
	AskYesNo(ctx context.Context, question string) (bool, error)
	AskValue(ctx context.Context, question string, validate func(string) error) (string, error)
}

// Printer renders operator facing progress lines.
type Printer interface {
	Action(verb, target string)
	Title(format string, args ...any)
	Info(format string, args ...any)
	Step(format string, args ...any)
	Success(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	Mark() int
	Since(mark int) []string
}

// Waiter sleeps between batches.
type Waiter interface {
	Wait(ctx context.Context, d time.Duration) error
}

// Logger provides logging
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
