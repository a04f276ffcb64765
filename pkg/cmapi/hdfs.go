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
	"fmt"
	"log/slog"
	"strconv"
)

const HAStatusStandby = "STANDBY"

type RoleRef struct {
	RoleName    string `json:"roleName"`
	ServiceName string `json:"serviceName,omitempty"`
}

// Nameservice is an HDFS nameservice with its HA pair.
type Nameservice struct {
	Name                      string   `json:"name"`
	Active                    *RoleRef `json:"active,omitempty"`
	StandBy                   *RoleRef `json:"standBy,omitempty"`
	ActiveFailoverController  *RoleRef `json:"activeFailoverController,omitempty"`
	StandByFailoverController *RoleRef `json:"standByFailoverController,omitempty"`
}

// HighlyAvailable reports whether automatic failover is configured.
func (n Nameservice) HighlyAvailable() bool {
	return n.ActiveFailoverController != nil && n.Active != nil && n.StandBy != nil
}

// Has reports whether the role is either side of the pair.
func (n Nameservice) Has(role string) bool {
	return (n.Active != nil && n.Active.RoleName == role) || (n.StandBy != nil && n.StandBy.RoleName == role)
}

type nameserviceList struct {
	Items []Nameservice `json:"items"`
}

// Command is an asynchronous manager command.
type Command struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Active        bool   `json:"active"`
	Success       bool   `json:"success"`
	ResultMessage string `json:"resultMessage"`
}

// Nameservices lists the nameservices of an HDFS service. A service without
// any nameservice yields ErrNoNameservices.
func (c *Client) Nameservices(ctx context.Context, cluster, service string) ([]Nameservice, error) {
	var list nameserviceList
	err := c.get(ctx, servicePath(cluster, service)+"/nameservices", &list)
	if IsNotFound(err) {
		return nil, fmt.Errorf("%s %w", service, ErrNoNameservices)
	}
	if err != nil {
		return nil, err
	}
	if len(list.Items) == 0 {
		return nil, fmt.Errorf("%s %w", service, ErrNoNameservices)
	}
	return list.Items, nil
}

// NameservicesOf returns the names of the nameservices the role belongs to.
func (c *Client) NameservicesOf(ctx context.Context, cluster, service, role string) ([]string, error) {
	items, err := c.Nameservices(ctx, cluster, service)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, ns := range items {
		if ns.Has(role) {
			names = append(names, ns.Name)
		}
	}
	return names, nil
}

// HAPair returns the standby and active NameNode role names of a nameservice.
func (c *Client) HAPair(ctx context.Context, cluster, service, nameservice string) (standby, active string, err error) {
	items, err := c.Nameservices(ctx, cluster, service)
	if err != nil {
		return "", "", err
	}
	for _, ns := range items {
		if ns.Name == nameservice && ns.Active != nil && ns.StandBy != nil {
			return ns.StandBy.RoleName, ns.Active.RoleName, nil
		}
	}
	return "", "", fmt.Errorf("%s/%s %w", service, nameservice, ErrNoHAPair)
}

// Failover swaps the HA pair and waits until the formerly active NameNode
// reports STANDBY.
func (c *Client) Failover(ctx context.Context, cluster, service, active, standby string) error {
	var cmd Command
	body := itemsBody{Items: []string{active, standby}}
	if err := c.post(ctx, servicePath(cluster, service)+"/commands/hdfsFailover", body, &cmd); err != nil {
		return err
	}
	c.logger.Debug("Failover issued", slog.String("active", active), slog.String("standby", standby), slog.Int64("command", cmd.ID))

	return c.poller.Forever(ctx, func(ctx context.Context) (bool, error) {
		status, err := c.HAStatus(ctx, cluster, service, active)
		if err != nil {
			return false, err
		}
		c.progress(status)
		return status == HAStatusStandby, nil
	})
}

// RollEdits rolls the edit log of every nameservice in names and waits for
// each command to succeed.
func (c *Client) RollEdits(ctx context.Context, cluster, service string, names []string) error {
	for _, name := range names {
		var cmd Command
		body := map[string]string{"nameservice": name}
		if err := c.post(ctx, servicePath(cluster, service)+"/commands/hdfsRollEdits", body, &cmd); err != nil {
			return err
		}
		if err := c.WaitCommand(ctx, cmd.ID); err != nil {
			return fmt.Errorf("roll edits of %s: %w", name, err)
		}
	}
	return nil
}

// CommandStatus fetches an asynchronous command.
func (c *Client) CommandStatus(ctx context.Context, id int64) (*Command, error) {
	var cmd Command
	if err := c.get(ctx, "/commands/"+strconv.FormatInt(id, 10), &cmd); err != nil {
		return nil, err
	}
	return &cmd, nil
}

// WaitCommand polls a command until it succeeds. A command that finished
// without success is reported as ErrCommandFailed.
func (c *Client) WaitCommand(ctx context.Context, id int64) error {
	return c.poller.Forever(ctx, func(ctx context.Context) (bool, error) {
		cmd, err := c.CommandStatus(ctx, id)
		if err != nil {
			return false, err
		}
		if cmd.Success {
			return true, nil
		}
		if !cmd.Active {
			return false, fmt.Errorf("%w: command %d: %s", ErrCommandFailed, id, cmd.ResultMessage)
		}
		c.progress("command " + strconv.FormatInt(id, 10) + " running")
		return false, nil
	})
}
