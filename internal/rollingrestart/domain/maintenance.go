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

import "slices"

// Nameservice is an HDFS nameservice with its NameNode pair.
type Nameservice struct {
	Service string
	Name    string
	Active  string
	Standby string
	// AutoFailover is set when a failover controller guards the pair.
	AutoFailover bool
}

// HighlyAvailable reports whether the pair can be failed over.
func (n Nameservice) HighlyAvailable() bool {
	return n.AutoFailover && n.Active != "" && n.Standby != ""
}

// Has reports whether role is either side of the pair.
func (n Nameservice) Has(role string) bool {
	return role != "" && (n.Active == role || n.Standby == role)
}

// ExportManifest is the region assignment file of one run.
type ExportManifest struct {
	Path string
}

// MaintenancePhase is where a role is in its restart cycle.
type MaintenancePhase int

const (
	PhaseIdle MaintenancePhase = iota
	PhaseInMaintenance
	PhasePreHookDone
	PhaseStopped
	PhaseStarted
	PhasePostHookDone
)

var phaseNames = []string{"IDLE", "IN_MAINTENANCE", "PRE_HOOK_DONE", "STOPPED", "STARTED", "POST_HOOK_DONE"}

func (p MaintenancePhase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "UNKNOWN"
}

// OpenWindow is a role whose maintenance window was entered but not exited.
type OpenWindow struct {
	Role  RoleRef
	Phase MaintenancePhase
}

// HasOwner reports whether owners contains the role level owner.
func HasOwner(owners []string, owner string) bool {
	return slices.Contains(owners, owner)
}
