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
	"fmt"
	"strings"
)

// RoleType is the functional kind of a role as reported by the manager.
type RoleType string

const (
	RoleTypeNameNode        RoleType = "NAMENODE"
	RoleTypeDataNode        RoleType = "DATANODE"
	RoleTypeJournalNode     RoleType = "JOURNALNODE"
	RoleTypeRegionServer    RoleType = "REGIONSERVER"
	RoleTypeMaster          RoleType = "MASTER"
	RoleTypeResourceManager RoleType = "RESOURCEMANAGER"
	RoleTypeNodeManager     RoleType = "NODEMANAGER"
	RoleTypeImpalad         RoleType = "IMPALAD"
	RoleTypeZooKeeper       RoleType = "SERVER"
)

// DefaultExcludedRoleTypes are never restarted by a rolling restart.
var DefaultExcludedRoleTypes = []RoleType{
	"BALANCER",
	"GATEWAY",
	"ACTIVITYMONITOR",
	"HOSTMONITOR",
	"EVENTSERVER",
	"SERVICEMONITOR",
	"ALERTPUBLISHER",
}

var shortRoleTypes = map[RoleType]string{
	RoleTypeNameNode:        "NN",
	RoleTypeDataNode:        "DN",
	RoleTypeJournalNode:     "JN",
	RoleTypeRegionServer:    "RS",
	RoleTypeMaster:          "HM",
	RoleTypeResourceManager: "RM",
	RoleTypeNodeManager:     "NM",
	RoleTypeImpalad:         "ID",
	RoleTypeZooKeeper:       "ZK",
	"SECONDARYNAMENODE":     "SNN",
	"FAILOVERCONTROLLER":    "FC",
	"HTTPFS":                "HFS",
	"JOBHISTORY":            "JHS",
	"HBASETHRIFTSERVER":     "HBTS",
	"HBASERESTSERVER":       "HBRES",
	"HIVESERVER2":           "HS2",
	"HIVEMETASTORE":         "HMS",
	"STATESTORE":            "ISS",
	"CATALOGSERVER":         "ICS",
	"KAFKA_BROKER":          "KB",
}

// Short returns the abbreviation used in tables, or the type itself.
func (t RoleType) Short() string {
	if s, ok := shortRoleTypes[t]; ok {
		return s
	}
	return string(t)
}

// HACapable reports whether the role reports an HA status (or a
// ZooKeeper server mode) that must settle after a restart.
func (t RoleType) HACapable() bool {
	switch t {
	case RoleTypeMaster, RoleTypeNameNode, RoleTypeResourceManager, RoleTypeZooKeeper:
		return true
	}
	return false
}

// RunState is the role state reported by the manager.
type RunState string

const (
	RunStateStarted  RunState = "STARTED"
	RunStateStopped  RunState = "STOPPED"
	RunStateStarting RunState = "STARTING"
	RunStateStopping RunState = "STOPPING"
	RunStateBusy     RunState = "BUSY"
	RunStateUnknown  RunState = "UNKNOWN"
)

// HAStatus is either an HA status (ACTIVE/STANDBY) or a ZooKeeper server
// mode. The empty value means the manager has not reported one yet.
type HAStatus string

const (
	HAStatusNone    HAStatus = ""
	HAStatusActive  HAStatus = "ACTIVE"
	HAStatusStandby HAStatus = "STANDBY"
)

// RoleRef identifies one role instance inside a cluster.
type RoleRef struct {
	Name     string
	Service  string
	Type     RoleType
	Hostname string
}

// NewRoleRef builds a reference, deriving the service name from the role
// name prefix when it is not known.
func NewRoleRef(name, service string, roleType RoleType, hostname string) RoleRef {
	if service == "" {
		service = ServiceOf(name)
	}
	return RoleRef{Name: name, Service: service, Type: roleType, Hostname: hostname}
}

// ServiceOf returns the service-name prefix of a role name,
// e.g. "hdfs-NAMENODE-3f2a" -> "hdfs".
func ServiceOf(roleName string) string {
	service, _, _ := strings.Cut(roleName, "-")
	return service
}

func (r RoleRef) String() string {
	return fmt.Sprintf("[%s] %s", r.Hostname, r.Name)
}

// Role is one role as recorded in the cluster snapshot.
type Role struct {
	Name              string   `yaml:"name"`
	Type              RoleType `yaml:"type"`
	ServiceName       string   `yaml:"serviceName"`
	ServiceType       string   `yaml:"serviceType"`
	Health            string   `yaml:"health"`
	State             RunState `yaml:"state"`
	HAStatus          HAStatus `yaml:"haStatus"`
	MaintenanceOwners []string `yaml:"maintenanceOwners"`
}

// Host is one cluster host with its roles.
type Host struct {
	ID        string `yaml:"id"`
	Hostname  string `yaml:"hostname"`
	IPAddress string `yaml:"ipAddress"`
	RackID    string `yaml:"rackId"`
	Health    string `yaml:"health"`
	Roles     []Role `yaml:"roles"`
}

// Ref returns the reference of a role running on this host.
func (h Host) Ref(r Role) RoleRef {
	return NewRoleRef(r.Name, r.ServiceName, r.Type, h.Hostname)
}

// Cluster is one cluster of one manager.
type Cluster struct {
	Manager        string `yaml:"-"`
	ManagerVersion string `yaml:"-"`
	ManagerURL     string `yaml:"-"`
	Name           string `yaml:"name"`
	DisplayName    string `yaml:"displayName"`
	Version        string `yaml:"version"`
	Hosts          []Host `yaml:"hosts"`
}

// HostnameOf returns the hostname a role runs on, or "" when unknown.
func (c Cluster) HostnameOf(roleName string) string {
	for _, h := range c.Hosts {
		for _, r := range h.Roles {
			if r.Name == roleName {
				return h.Hostname
			}
		}
	}
	return ""
}

// FindRole looks a role up by name.
func (c Cluster) FindRole(roleName string) (RoleRef, bool) {
	for _, h := range c.Hosts {
		for _, r := range h.Roles {
			if r.Name == roleName {
				return h.Ref(r), true
			}
		}
	}
	return RoleRef{}, false
}

// ZooKeeperLeader returns the host and role of the ZooKeeper leader, falling
// back to a standalone server.
func (c Cluster) ZooKeeperLeader() (Host, Role, bool) {
	var (
		fallbackHost Host
		fallbackRole Role
		found        bool
	)
	for _, h := range c.Hosts {
		for _, r := range h.Roles {
			if r.Type != RoleTypeZooKeeper {
				continue
			}
			switch r.HAStatus {
			case "REPLICATED_LEADER":
				return h, r, true
			case "STANDALONE":
				if !found {
					fallbackHost, fallbackRole, found = h, r, true
				}
			}
		}
	}
	return fallbackHost, fallbackRole, found
}
