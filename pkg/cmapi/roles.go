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

package cmapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/deckhouse/cmux-cli/pkg/poll"
)

const (
	CommandStart   = "start"
	CommandStop    = "stop"
	CommandRestart = "restart"

	StateStarted = "STARTED"
	StateStopped = "STOPPED"

	// MaintenanceOwnerRole is the owner set by role level maintenance mode.
	MaintenanceOwnerRole = "ROLE"

	roleTypeZooKeeper = "SERVER"
)

var commandTargets = map[string]string{
	CommandStart:   StateStarted,
	CommandStop:    StateStopped,
	CommandRestart: StateStarted,
}

type ServiceRef struct {
	ClusterName string `json:"clusterName"`
	ServiceName string `json:"serviceName"`
}

type HostRef struct {
	HostID   string `json:"hostId"`
	Hostname string `json:"hostname,omitempty"`
}

// Role is the subset of ApiRole the rolling restart relies on.
type Role struct {
	Name                string     `json:"name"`
	Type                string     `json:"type"`
	ServiceRef          ServiceRef `json:"serviceRef"`
	HostRef             HostRef    `json:"hostRef"`
	RoleState           string     `json:"roleState"`
	HealthSummary       string     `json:"healthSummary"`
	HAStatus            string     `json:"haStatus"`
	ZooKeeperServerMode string     `json:"zooKeeperServerMode"`
	MaintenanceMode     bool       `json:"maintenanceMode"`
	MaintenanceOwners   []string   `json:"maintenanceOwners"`
}

// InMaintenance reports whether role level maintenance is on.
func (r *Role) InMaintenance() bool {
	return slices.Contains(r.MaintenanceOwners, MaintenanceOwnerRole)
}

// Status returns the HA status, or the ZooKeeper server mode for a
// ZooKeeper server.
func (r *Role) Status() string {
	if r.Type == roleTypeZooKeeper {
		return r.ZooKeeperServerMode
	}
	return r.HAStatus
}

type ConfigItem struct {
	Name    string `json:"name"`
	Value   string `json:"value,omitempty"`
	Default string `json:"default,omitempty"`
}

// Effective returns the configured value or the default.
func (i ConfigItem) Effective() string {
	if i.Value != "" {
		return i.Value
	}
	return i.Default
}

type configList struct {
	Items []ConfigItem `json:"items"`
}

type itemsBody struct {
	Items []string `json:"items"`
}

type bulkCommandList struct {
	Errors []string  `json:"errors"`
	Items  []Command `json:"items"`
}

func (c *Client) Role(ctx context.Context, cluster, service, role string) (*Role, error) {
	var r Role
	if err := c.get(ctx, rolePath(cluster, service, role), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) RoleState(ctx context.Context, cluster, service, role string) (string, error) {
	r, err := c.Role(ctx, cluster, service, role)
	if err != nil {
		return "", err
	}
	return r.RoleState, nil
}

// ChangeRoleState issues a start, stop or restart command and waits until
// the role reaches the matching terminal state. A non-positive maxWait waits
// without a ceiling.
func (c *Client) ChangeRoleState(ctx context.Context, cluster, service, role, command string, maxWait time.Duration) error {
	target, ok := commandTargets[command]
	if !ok {
		return fmt.Errorf("unknown role command %q", command)
	}

	var bulk bulkCommandList
	resource := servicePath(cluster, service) + "/roleCommands/" + command
	if err := c.post(ctx, resource, itemsBody{Items: []string{role}}, &bulk); err != nil {
		return err
	}
	if len(bulk.Errors) > 0 {
		return fmt.Errorf("%w: %s %s: %v", ErrCommandFailed, command, role, bulk.Errors)
	}

	c.logger.Debug("Waiting for role state", slog.String("role", role), slog.String("target", target))

	last := ""
	err := c.poller.Until(ctx, maxWait, func(ctx context.Context) (bool, error) {
		state, err := c.RoleState(ctx, cluster, service, role)
		if err != nil {
			return false, err
		}
		last = state
		c.progress(state)
		return state == target, nil
	})
	if errors.Is(err, poll.ErrTimeout) {
		return &StateTimeoutError{Role: role, Expected: target, Last: last, MaxWait: maxWait}
	}
	return err
}

// EnterMaintenanceMode puts the role into maintenance, waits until the
// manager reports the ROLE owner and returns the resulting owners.
func (c *Client) EnterMaintenanceMode(ctx context.Context, cluster, service, role string) ([]string, error) {
	return c.setMaintenance(ctx, cluster, service, role, true)
}

// ExitMaintenanceMode reverses EnterMaintenanceMode.
func (c *Client) ExitMaintenanceMode(ctx context.Context, cluster, service, role string) ([]string, error) {
	return c.setMaintenance(ctx, cluster, service, role, false)
}

func (c *Client) setMaintenance(ctx context.Context, cluster, service, role string, enable bool) ([]string, error) {
	command := "exitMaintenanceMode"
	if enable {
		command = "enterMaintenanceMode"
	}

	if err := c.post(ctx, rolePath(cluster, service, role)+"/commands/"+command, nil, nil); err != nil {
		return nil, err
	}

	var owners []string
	err := c.poller.Forever(ctx, func(ctx context.Context) (bool, error) {
		r, err := c.Role(ctx, cluster, service, role)
		if err != nil {
			return false, err
		}
		owners = r.MaintenanceOwners
		c.progress(fmt.Sprintf("maintenance owners %v", owners))
		return r.InMaintenance() == enable, nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(owners)
	return owners, nil
}

// HAStatus returns the HA status of a role, or its ZooKeeper server mode.
func (c *Client) HAStatus(ctx context.Context, cluster, service, role string) (string, error) {
	r, err := c.Role(ctx, cluster, service, role)
	if err != nil {
		return "", err
	}
	return r.Status(), nil
}

// WaitHAStatus polls until the role reports a non-empty HA status and
// returns it.
func (c *Client) WaitHAStatus(ctx context.Context, cluster, service, role string) (string, error) {
	var status string
	err := c.poller.Forever(ctx, func(ctx context.Context) (bool, error) {
		s, err := c.HAStatus(ctx, cluster, service, role)
		if err != nil {
			return false, err
		}
		status = s
		if s == "" {
			c.progress("waiting for HA status")
		}
		return s != "", nil
	})
	return status, err
}

func (c *Client) RoleConfig(ctx context.Context, cluster, service, role string) ([]ConfigItem, error) {
	var list configList
	if err := c.get(ctx, rolePath(cluster, service, role)+"/config?view=full", &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (c *Client) ServiceConfig(ctx context.Context, cluster, service string) ([]ConfigItem, error) {
	var list configList
	if err := c.get(ctx, servicePath(cluster, service)+"/config?view=full", &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// LookupConfig returns the effective value of a named item.
func LookupConfig(items []ConfigItem, name string) (string, bool) {
	for _, item := range items {
		if item.Name == name {
			return item.Effective(), true
		}
	}
	return "", false
}
