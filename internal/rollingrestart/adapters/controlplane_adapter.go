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

package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/deckhouse/cmux-cli/internal/rollingrestart/domain"
	"github.com/deckhouse/cmux-cli/internal/rollingrestart/usecase"
	"github.com/deckhouse/cmux-cli/pkg/cmapi"
)

// Compile-time check
var _ usecase.ControlPlane = (*ControlPlaneAdapter)(nil)

// Spinner shows the progress of one blocking call.
type Spinner interface {
	Spin(label string, fn func(update func(status string)) error) error
}

type noSpinner struct{}

func (noSpinner) Spin(_ string, fn func(update func(status string)) error) error {
	return fn(func(string) {})
}

// ControlPlaneAdapter binds a manager client to one cluster.
type ControlPlaneAdapter struct {
	client  *cmapi.Client
	cluster string
	spinner Spinner
}

// NewControlPlaneAdapter creates a new ControlPlaneAdapter. A nil spinner
// reports nothing.
func NewControlPlaneAdapter(client *cmapi.Client, cluster string, spinner Spinner) *ControlPlaneAdapter {
	if spinner == nil {
		spinner = noSpinner{}
	}
	return &ControlPlaneAdapter{client: client, cluster: cluster, spinner: spinner}
}

// spin runs fn with a client reporting its poll progress to the spinner.
func (a *ControlPlaneAdapter) spin(label string, fn func(c *cmapi.Client) error) error {
	err := a.spinner.Spin(label, func(update func(string)) error {
		return fn(a.client.WithProgress(update))
	})
	return translateAPIError(err)
}

func (a *ControlPlaneAdapter) RoleState(ctx context.Context, role domain.RoleRef) (domain.RunState, error) {
	state, err := a.client.RoleState(ctx, a.cluster, role.Service, role.Name)
	if err != nil {
		return "", translateAPIError(err)
	}
	return domain.RunState(state), nil
}

func (a *ControlPlaneAdapter) ChangeRoleState(ctx context.Context, role domain.RoleRef, cmd domain.RoleCommand, maxWait time.Duration) error {
	label := fmt.Sprintf("%s %s, waiting for %s", cmd, role.Name, cmd.TargetState())
	return a.spin(label, func(c *cmapi.Client) error {
		return c.ChangeRoleState(ctx, a.cluster, role.Service, role.Name, string(cmd), maxWait)
	})
}

func (a *ControlPlaneAdapter) EnterMaintenance(ctx context.Context, role domain.RoleRef) ([]string, error) {
	var owners []string
	err := a.spin("Entering maintenance mode", func(c *cmapi.Client) error {
		var err error
		owners, err = c.EnterMaintenanceMode(ctx, a.cluster, role.Service, role.Name)
		return err
	})
	return owners, err
}

func (a *ControlPlaneAdapter) ExitMaintenance(ctx context.Context, role domain.RoleRef) ([]string, error) {
	var owners []string
	err := a.spin("Exiting maintenance mode", func(c *cmapi.Client) error {
		var err error
		owners, err = c.ExitMaintenanceMode(ctx, a.cluster, role.Service, role.Name)
		return err
	})
	return owners, err
}

func (a *ControlPlaneAdapter) HAStatus(ctx context.Context, role domain.RoleRef) (domain.HAStatus, error) {
	status, err := a.client.HAStatus(ctx, a.cluster, role.Service, role.Name)
	if err != nil {
		return "", translateAPIError(err)
	}
	return domain.HAStatus(status), nil
}

func (a *ControlPlaneAdapter) CheckHAStatus(ctx context.Context, role domain.RoleRef) (domain.HAStatus, error) {
	var status string
	err := a.spin("Waiting for HA status of "+role.Name, func(c *cmapi.Client) error {
		var err error
		status, err = c.WaitHAStatus(ctx, a.cluster, role.Service, role.Name)
		return err
	})
	return domain.HAStatus(status), err
}

func (a *ControlPlaneAdapter) Nameservices(ctx context.Context, service string) ([]domain.Nameservice, error) {
	items, err := a.client.Nameservices(ctx, a.cluster, service)
	if err != nil {
		return nil, translateAPIError(err)
	}
	return lo.Map(items, func(ns cmapi.Nameservice, _ int) domain.Nameservice {
		return toDomainNameservice(service, ns)
	}), nil
}

func (a *ControlPlaneAdapter) NameservicesOf(ctx context.Context, role domain.RoleRef) ([]string, error) {
	names, err := a.client.NameservicesOf(ctx, a.cluster, role.Service, role.Name)
	if err != nil {
		return nil, translateAPIError(err)
	}
	return names, nil
}

func (a *ControlPlaneAdapter) HAPair(ctx context.Context, service, nameservice string) (string, string, error) {
	standby, active, err := a.client.HAPair(ctx, a.cluster, service, nameservice)
	if err != nil {
		return "", "", translateAPIError(err)
	}
	return standby, active, nil
}

func toDomainNameservice(service string, ns cmapi.Nameservice) domain.Nameservice {
	result := domain.Nameservice{
		Service:      service,
		Name:         ns.Name,
		AutoFailover: ns.ActiveFailoverController != nil,
	}
	if ns.Active != nil {
		result.Active = ns.Active.RoleName
	}
	if ns.StandBy != nil {
		result.Standby = ns.StandBy.RoleName
	}
	return result
}

func (a *ControlPlaneAdapter) Failover(ctx context.Context, active, standby domain.RoleRef) error {
	return a.spin("Failing over "+active.Name, func(c *cmapi.Client) error {
		return c.Failover(ctx, a.cluster, active.Service, active.Name, standby.Name)
	})
}

func (a *ControlPlaneAdapter) RollEdits(ctx context.Context, service string) error {
	items, err := a.client.Nameservices(ctx, a.cluster, service)
	if err != nil {
		return translateAPIError(err)
	}
	names := lo.Map(items, func(ns cmapi.Nameservice, _ int) string { return ns.Name })
	return a.spin("Rolling edits of "+service, func(c *cmapi.Client) error {
		return c.RollEdits(ctx, a.cluster, service, names)
	})
}
