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

package domain

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// MinMaxWait is the lowest accepted per-role wait ceiling.
const MinMaxWait = 180 * time.Second

// RoleCommand is a state-changing command sent to a role.
type RoleCommand string

const (
	CommandStart   RoleCommand = "start"
	CommandStop    RoleCommand = "stop"
	CommandRestart RoleCommand = "restart"
)

// TargetState is the terminal state that confirms the command.
func (c RoleCommand) TargetState() RunState {
	if c == CommandStop {
		return RunStateStopped
	}
	return RunStateStarted
}

// Scope tells how a plan was built.
type Scope string

const (
	ScopeHost     Scope = "host"
	ScopeRoleType Scope = "role-type"
)

// Priority orders roles on one host. Storage-serving roles come last so
// their drain happens after everything else on the host is down.
func Priority(t RoleType) int {
	switch t {
	case RoleTypeDataNode:
		return 99
	case RoleTypeRegionServer:
		return 89
	case RoleTypeNodeManager, RoleTypeImpalad:
		return 79
	default:
		return 0
	}
}

// StorageServing reports whether the role type holds data partitions and
// is kept at the end of a host's stop order.
func StorageServing(t RoleType) bool {
	return t == RoleTypeDataNode || t == RoleTypeRegionServer
}

// UnitRole is one role inside a restart unit.
type UnitRole struct {
	Ref RoleRef
	// Skip marks an excluded role type; the engine prints a skip notice
	// instead of touching it.
	Skip bool
}

// RestartUnit is the atomic item the engine processes.
type RestartUnit struct {
	Scope       Scope
	Hostname    string
	Nameservice string
	// Roles are in stop order.
	Roles []UnitRole
}

// StopOrder returns the roles in the order they are stopped.
func (u RestartUnit) StopOrder() []UnitRole {
	return slices.Clone(u.Roles)
}

// StartOrder is the exact reverse of StopOrder.
func (u RestartUnit) StartOrder() []UnitRole {
	roles := slices.Clone(u.Roles)
	slices.Reverse(roles)
	return roles
}

// Involves reports whether a non-skipped role of the given type is part of
// the unit.
func (u RestartUnit) Involves(t RoleType) bool {
	return slices.ContainsFunc(u.Roles, func(r UnitRole) bool {
		return !r.Skip && r.Ref.Type == t
	})
}

// Plan is the ordered list of units for one cluster.
type Plan struct {
	Cluster  Cluster
	Scope    Scope
	RoleType RoleType
	Units    []RestartUnit
}

// Involves reports whether any unit touches the given role type.
func (p Plan) Involves(t RoleType) bool {
	return slices.ContainsFunc(p.Units, func(u RestartUnit) bool {
		return u.Involves(t)
	})
}

// BatchExecutionPolicy is confirmed by the operator before a run and never
// changes afterwards.
type BatchExecutionPolicy struct {
	Interval    time.Duration
	MaxWait     time.Duration
	Interactive bool
	// ForceProceed makes the region tool move regions without asking and
	// on a best-effort basis. Non-interactive runs always force.
	ForceProceed bool
	// DryRun prints region tool invocations without executing them.
	DryRun bool
	// EnableBalancer answers the finish question up front when set.
	EnableBalancer *bool
}

// NewBatchExecutionPolicy builds a validated policy.
func NewBatchExecutionPolicy(interval, maxWait time.Duration, interactive, forceProceed, dryRun bool) (BatchExecutionPolicy, error) {
	p := BatchExecutionPolicy{
		Interval:     interval,
		MaxWait:      maxWait,
		Interactive:  interactive,
		ForceProceed: forceProceed || !interactive,
		DryRun:       dryRun,
	}
	return p, p.Validate()
}

// Validate checks the operator supplied values.
func (p BatchExecutionPolicy) Validate() error {
	var errs []error
	if p.Interval < 0 {
		errs = append(errs, fmt.Errorf("interval must be >= 0 seconds, got %v", p.Interval))
	}
	if p.MaxWait < MinMaxWait {
		errs = append(errs, fmt.Errorf("max wait must be >= %d seconds, got %v", int(MinMaxWait.Seconds()), p.MaxWait))
	}
	return errors.Join(errs...)
}
